package eventlog

import (
	"testing"
	"time"

	"github.com/kilianp07/fleetnav/core/model"
)

func TestQueryMatch(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	id := 2
	tests := []struct {
		name string
		q    Query
		e    model.LogEntry
		want bool
	}{
		{"empty filter", Query{}, model.LogEntry{AgentID: 1, Time: base}, true},
		{"before start", Query{Start: base.Add(time.Minute)}, model.LogEntry{Time: base}, false},
		{"after end", Query{End: base.Add(-time.Minute)}, model.LogEntry{Time: base}, false},
		{"agent mismatch", Query{AgentID: &id}, model.LogEntry{AgentID: 1, Time: base}, false},
		{"agent match", Query{AgentID: &id, Start: base, End: base}, model.LogEntry{AgentID: 2, Time: base}, true},
	}
	for _, tt := range tests {
		if got := tt.q.Match(tt.e); got != tt.want {
			t.Fatalf("%s: got %v want %v", tt.name, got, tt.want)
		}
	}
}
