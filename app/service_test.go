package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetnav/config"
	coreeventlog "github.com/kilianp07/fleetnav/core/eventlog"
	"github.com/kilianp07/fleetnav/core/model"
)

const graphDoc = `{"levels": {"floor": {
  "vertices": [[0, 0, {"name": "dock"}], [4, 0, {}], [8, 0, {"name": "exit"}], [4, 3, {"is_charger": true}]],
  "lanes": [[0, 1, {}], [1, 2, {}], [1, 3, {}]]
}}}`

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	graph := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(graph, []byte(graphDoc), 0o644))
	cfgPath := filepath.Join(dir, "config.yaml")
	data := fmt.Sprintf(`graph:
  path: %q
fleet:
  tick_period: 2ms
  spawn: [0]
event_log:
  type: jsonl
  conf:
    path: %q
api:
  addr: "127.0.0.1:0"
`, graph, filepath.Join(dir, "events.jsonl"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o644))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	return cfg
}

func TestServiceStep(t *testing.T) {
	svc, err := New(newTestConfig(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()

	ok, reason := svc.Manager.AssignTask(0, 2)
	require.True(t, ok, reason)
	sub := svc.ticks.Subscribe()
	for i := 0; i < 21; i++ {
		require.NoError(t, svc.Step(context.Background()))
	}
	st, err := svc.Manager.Status(0)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, st)

	select {
	case ev := <-sub:
		assert.Equal(t, uint64(1), ev.Number)
		assert.Len(t, ev.Snapshots, 1)
	default:
		t.Fatal("no tick event published")
	}

	entries, err := svc.store.Query(context.Background(), coreeventlog.Query{})
	require.NoError(t, err)
	var completed bool
	for _, e := range entries {
		if strings.HasPrefix(e.Message, "Task completed at exit") {
			completed = true
		}
	}
	assert.True(t, completed, "completion not persisted: %v", entries)
}

func TestServiceRunServesAPI(t *testing.T) {
	svc, err := New(newTestConfig(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	addr, err := svc.APIAddr(ctx)
	require.NoError(t, err)
	base := "http://" + addr.String()

	resp, err := http.Post(base+"/api/agents/0/task", "application/json", strings.NewReader(`{"target":2}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/agents/0")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var snap model.AgentSnapshot
		if json.NewDecoder(resp.Body).Decode(&snap) != nil {
			return false
		}
		return snap.Status == model.StatusComplete && snap.Current == 2
	}, 4*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Greater(t, svc.Manager.TickCount(), uint64(20))
}

func TestNewRejectsMissingGraph(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Graph.Path = filepath.Join(t.TempDir(), "missing.json")
	_, err := New(cfg)
	assert.Error(t, err)
}
