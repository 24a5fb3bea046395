package fleet

import (
	"context"
	"errors"

	"github.com/kilianp07/fleetnav/core/eventlog"
	"github.com/kilianp07/fleetnav/core/events"
	"github.com/kilianp07/fleetnav/core/logger"
	"github.com/kilianp07/fleetnav/core/model"
	"github.com/kilianp07/fleetnav/internal/eventbus"
)

// EventSink receives the log entries drained from agents after each update.
type EventSink interface {
	Emit(ctx context.Context, entries []model.LogEntry) error
}

// LoggerSink writes entries through a Logger at info level.
type LoggerSink struct {
	Log logger.Logger
}

func (s LoggerSink) Emit(_ context.Context, entries []model.LogEntry) error {
	for _, e := range entries {
		s.Log.Infof("%s", e)
	}
	return nil
}

// StoreSink persists entries in an event log store.
type StoreSink struct {
	Store eventlog.Store
}

func (s StoreSink) Emit(ctx context.Context, entries []model.LogEntry) error {
	for _, e := range entries {
		if err := s.Store.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// BusSink publishes entries on the event bus.
type BusSink struct {
	Bus *eventbus.Bus[events.AgentLog]
}

func (s BusSink) Emit(_ context.Context, entries []model.LogEntry) error {
	for _, e := range entries {
		s.Bus.Publish(events.AgentLog{Entry: e})
	}
	return nil
}

// MultiSink forwards to every sink and joins their errors.
type MultiSink []EventSink

func (ms MultiSink) Emit(ctx context.Context, entries []model.LogEntry) error {
	var errs []error
	for _, s := range ms {
		if err := s.Emit(ctx, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
