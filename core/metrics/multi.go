package metrics

import (
	"errors"

	"github.com/kilianp07/fleetnav/core/model"
)

// MultiSink fans records out to several sinks. Optional recorders are only
// called on the sinks that implement them.
type MultiSink struct {
	Sinks []FleetSink
}

// NewMultiSink creates a sink forwarding to all provided sinks.
func NewMultiSink(sinks ...FleetSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordTick(s TickSummary) error {
	var errs []error
	for _, sink := range m.Sinks {
		if err := sink.RecordTick(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordAgentStates(states []model.AgentSnapshot) error {
	var errs []error
	for _, sink := range m.Sinks {
		if r, ok := sink.(AgentStateRecorder); ok {
			if err := r.RecordAgentStates(states); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordConflict(ev ConflictEvent) error {
	var errs []error
	for _, sink := range m.Sinks {
		if r, ok := sink.(ConflictRecorder); ok {
			if err := r.RecordConflict(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
