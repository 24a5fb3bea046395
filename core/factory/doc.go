// Package factory is a small generic registry that builds pluggable modules
// (event log stores, metrics sinks) from configuration. A module is named by
// a type string and carries a map of raw settings which the registered
// constructor decodes into its own struct.
//
//	reg := factory.NewRegistry[eventlog.Store]()
//	reg.Register("jsonl", func(conf map[string]any) (eventlog.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return openJSONL(c.Path)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "events.jsonl"}})
package factory
