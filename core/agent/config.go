package agent

import (
	"errors"
	"time"
)

// Config holds the thresholds and rates shared by every agent of a fleet.
// It is built once and passed by value.
type Config struct {
	// Speed is the lane progress added per tick.
	Speed float64 `json:"speed"`
	// WaitTime is how long an agent stays Waiting before retrying.
	WaitTime time.Duration `json:"wait_time"`
	// DrainRate is the battery consumed when a lane segment starts.
	DrainRate float64 `json:"drain_rate"`
	// ChargeRate is the battery gained per Charging tick.
	ChargeRate float64 `json:"charge_rate"`

	LowThreshold      float64 `json:"low_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`
	CompleteThreshold float64 `json:"complete_threshold"`

	MaxPathRetries      int `json:"max_path_retries"`
	MaxEmergencyRetries int `json:"max_emergency_retries"`
}

// DefaultConfig returns the stock fleet parameters.
func DefaultConfig() Config {
	return Config{
		Speed:               0.1,
		WaitTime:            2 * time.Second,
		DrainRate:           1,
		ChargeRate:          2,
		LowThreshold:        20,
		CriticalThreshold:   5,
		CompleteThreshold:   95,
		MaxPathRetries:      3,
		MaxEmergencyRetries: 5,
	}
}

// Validate checks that the thresholds are ordered and the rates usable.
func (c Config) Validate() error {
	if c.Speed <= 0 || c.Speed > 1 {
		return errors.New("agent: speed must be in (0,1]")
	}
	if c.WaitTime < 0 {
		return errors.New("agent: wait time must not be negative")
	}
	if c.DrainRate < 0 || c.ChargeRate <= 0 {
		return errors.New("agent: drain rate must be >= 0 and charge rate > 0")
	}
	if !(0 <= c.CriticalThreshold && c.CriticalThreshold < c.LowThreshold &&
		c.LowThreshold < c.CompleteThreshold && c.CompleteThreshold <= 100) {
		return errors.New("agent: thresholds must satisfy 0 <= critical < low < complete <= 100")
	}
	if c.MaxPathRetries < 0 || c.MaxEmergencyRetries < 0 {
		return errors.New("agent: retry limits must not be negative")
	}
	return nil
}
