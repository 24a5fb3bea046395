// Package graphfile reads navigation graph documents:
//
//	{"levels": {"<name>": {"vertices": [[x, y, {"name": "...", "is_charger": true}]],
//	                       "lanes": [[a, b, {...}]]}}}
//
// from JSON or YAML and builds a navgraph.Graph for one level.
package graphfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetnav/core/navgraph"
)

// Level is one floor of the document.
type Level struct {
	Vertices [][]any `json:"vertices" yaml:"vertices"`
	Lanes    [][]any `json:"lanes" yaml:"lanes"`
}

// Document is the parsed file.
type Document struct {
	Levels map[string]Level `json:"levels" yaml:"levels"`
}

// LevelNames returns the level names in sorted order.
func (d Document) LevelNames() []string {
	names := make([]string, 0, len(d.Levels))
	for n := range d.Levels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load reads path, choosing the decoder from the extension, and builds the
// named level. An empty level selects the first name in sorted order.
func Load(path, level string) (*navgraph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	g, err := Parse(data, format, level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes data in the given format ("json", "yaml" or "yml").
func Parse(data []byte, format, level string) (*navgraph.Graph, error) {
	var doc Document
	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported graph format %q", format)
	}
	return doc.Build(level)
}

// Build converts one level into a graph.
func (d Document) Build(level string) (*navgraph.Graph, error) {
	if len(d.Levels) == 0 {
		return nil, fmt.Errorf("document has no levels")
	}
	if level == "" {
		level = d.LevelNames()[0]
	}
	lv, ok := d.Levels[level]
	if !ok {
		return nil, fmt.Errorf("level %q not found (have %v)", level, d.LevelNames())
	}

	vertices := make([]navgraph.VertexSpec, len(lv.Vertices))
	for i, raw := range lv.Vertices {
		if len(raw) < 2 {
			return nil, fmt.Errorf("vertex %d: expected [x, y, attributes]", i)
		}
		x, err := number(raw[0])
		if err != nil {
			return nil, fmt.Errorf("vertex %d x: %w", i, err)
		}
		y, err := number(raw[1])
		if err != nil {
			return nil, fmt.Errorf("vertex %d y: %w", i, err)
		}
		v := navgraph.VertexSpec{X: x, Y: y}
		if len(raw) > 2 {
			attrs, _ := raw[2].(map[string]any)
			v.Name, _ = attrs["name"].(string)
			v.IsCharger, _ = attrs["is_charger"].(bool)
		}
		vertices[i] = v
	}

	lanes := make([][2]int, len(lv.Lanes))
	for i, raw := range lv.Lanes {
		if len(raw) < 2 {
			return nil, fmt.Errorf("lane %d: expected [from, to, attributes]", i)
		}
		a, err := index(raw[0])
		if err != nil {
			return nil, fmt.Errorf("lane %d: %w", i, err)
		}
		b, err := index(raw[1])
		if err != nil {
			return nil, fmt.Errorf("lane %d: %w", i, err)
		}
		lanes[i] = [2]int{a, b}
	}
	return navgraph.New(vertices, lanes)
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("not a number: %v", v)
}

func index(v any) (int, error) {
	f, err := number(v)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("vertex index %v is not an integer", v)
	}
	return int(f), nil
}
