package factory

import (
	"testing"
	"time"
)

type store struct {
	path  string
	flush time.Duration
}

type storeConf struct {
	Path  string        `json:"path"`
	Flush time.Duration `json:"flush_interval"`
}

func storeFactory(conf map[string]any) (*store, error) {
	var c storeConf
	if err := Decode(conf, &c); err != nil {
		return nil, err
	}
	return &store{path: c.Path, flush: c.Flush}, nil
}

func TestRegistryCreatesConfiguredModule(t *testing.T) {
	reg := NewRegistry[*store]()
	reg.MustRegister("jsonl", storeFactory)

	s, err := reg.Create(ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "events.jsonl", "flush_interval": "2s"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.path != "events.jsonl" || s.flush != 2*time.Second {
		t.Fatalf("unexpected store %+v", s)
	}
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry[*store]()
	if err := reg.Register("sqlite", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if err := reg.Register("sqlite", storeFactory); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("sqlite", storeFactory); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "postgres"}); err == nil {
		t.Fatal("expected unknown type error")
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "sqlite" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry[*store]()
	reg.MustRegister("jsonl", storeFactory)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	reg.MustRegister("jsonl", storeFactory)
}

// Env overrides arrive as strings.
func TestDecodeWeakTypes(t *testing.T) {
	var c struct {
		Capacity int           `json:"capacity"`
		Window   time.Duration `json:"window"`
	}
	if err := Decode(map[string]any{"capacity": "7", "window": "250ms"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Capacity != 7 || c.Window != 250*time.Millisecond {
		t.Fatalf("unexpected %+v", c)
	}
}
