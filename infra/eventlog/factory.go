package eventlog

import (
	"errors"

	"github.com/kilianp07/fleetnav/core/eventlog"
	"github.com/kilianp07/fleetnav/core/factory"
)

var registry = factory.NewRegistry[eventlog.Store]()

func init() {
	registry.MustRegister("jsonl", func(conf map[string]any) (eventlog.Store, error) {
		c := JSONLConfig{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 7}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, errors.New("jsonl event log: path required")
		}
		return NewJSONLStore(c)
	})
	registry.MustRegister("sqlite", func(conf map[string]any) (eventlog.Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, errors.New("sqlite event log: path required")
		}
		return NewSQLiteStore(c.Path)
	})
}

// New builds a store from configuration. An empty type disables persistence
// and returns nil.
func New(cfg factory.ModuleConfig) (eventlog.Store, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		return nil, nil
	}
	return registry.Create(cfg)
}
