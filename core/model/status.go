package model

import "fmt"

// Status is the lifecycle state of an agent.
type Status int

const (
	StatusIdle Status = iota
	StatusMoving
	StatusWaiting
	StatusCharging
	StatusComplete
	StatusDisabled
)

// Statuses lists every status in declaration order.
var Statuses = []Status{StatusIdle, StatusMoving, StatusWaiting, StatusCharging, StatusComplete, StatusDisabled}

// String returns the lowercase name used in logs and on the wire.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusMoving:
		return "moving"
	case StatusWaiting:
		return "waiting"
	case StatusCharging:
		return "charging"
	case StatusComplete:
		return "complete"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ParseStatus converts a status name back to its value.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
