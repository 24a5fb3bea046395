package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/fleetnav/core/agent"
	"github.com/kilianp07/fleetnav/core/fleet"
)

// FleetConfig holds the orchestrator settings and the agent thresholds.
type FleetConfig struct {
	// TickPeriod is the wall-clock interval between two ticks.
	TickPeriod time.Duration `json:"tick_period"`
	// Parallel updates agents concurrently inside a tick.
	Parallel bool `json:"parallel"`
	// DirectedLanes reserves each lane direction separately instead of the
	// whole corridor.
	DirectedLanes    bool          `json:"directed_lanes"`
	ConflictWindow   time.Duration `json:"conflict_window"`
	ConflictCapacity int           `json:"conflict_capacity"`
	Agent            agent.Config  `json:"agent"`
	// Spawn lists the vertices that receive an agent at startup.
	Spawn []int `json:"spawn"`
}

// SetDefaults fills zero values from agent.DefaultConfig and the stock
// orchestrator settings.
func (c *FleetConfig) SetDefaults() {
	if c.TickPeriod == 0 {
		c.TickPeriod = 100 * time.Millisecond
	}
	if c.ConflictWindow == 0 {
		c.ConflictWindow = 5 * time.Second
	}
	if c.ConflictCapacity == 0 {
		c.ConflictCapacity = 256
	}
	d := agent.DefaultConfig()
	a := &c.Agent
	if a.Speed == 0 {
		a.Speed = d.Speed
	}
	if a.WaitTime == 0 {
		a.WaitTime = d.WaitTime
	}
	if a.DrainRate == 0 {
		a.DrainRate = d.DrainRate
	}
	if a.ChargeRate == 0 {
		a.ChargeRate = d.ChargeRate
	}
	if a.LowThreshold == 0 {
		a.LowThreshold = d.LowThreshold
	}
	if a.CriticalThreshold == 0 {
		a.CriticalThreshold = d.CriticalThreshold
	}
	if a.CompleteThreshold == 0 {
		a.CompleteThreshold = d.CompleteThreshold
	}
	if a.MaxPathRetries == 0 {
		a.MaxPathRetries = d.MaxPathRetries
	}
	if a.MaxEmergencyRetries == 0 {
		a.MaxEmergencyRetries = d.MaxEmergencyRetries
	}
}

// Validate checks the orchestrator settings and the agent thresholds.
func (c FleetConfig) Validate() error {
	if c.TickPeriod <= 0 {
		return errors.New("fleet.tick_period must be positive")
	}
	if c.ConflictWindow <= 0 || c.ConflictCapacity <= 0 {
		return errors.New("fleet.conflict_window and fleet.conflict_capacity must be positive")
	}
	for i, v := range c.Spawn {
		if v < 0 {
			return fmt.Errorf("fleet.spawn[%d]: negative vertex %d", i, v)
		}
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("fleet.%w", err)
	}
	return nil
}

// ToFleetConfig converts the section to the orchestrator configuration.
func (c FleetConfig) ToFleetConfig() fleet.Config {
	return fleet.Config{
		Agent:            c.Agent,
		DirectedLanes:    c.DirectedLanes,
		ConflictWindow:   c.ConflictWindow,
		ConflictCapacity: c.ConflictCapacity,
	}
}
