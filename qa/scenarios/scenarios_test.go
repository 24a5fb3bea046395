package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioFiles(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			rep, err := Run(context.Background(), sc)
			require.NoError(t, err)
			assert.True(t, rep.Passed(), "failures: %v", rep.Failures)
			assert.LessOrEqual(t, rep.MaxOwners, 1)
			assert.NotEmpty(t, rep.RunID)
			assert.Len(t, rep.Trace, sc.Ticks)
			assert.NotZero(t, rep.Conflicts)
			assert.NotEmpty(t, rep.Logs)
			assert.Zero(t, rep.DroppedLogs)
		})
	}
}

const lineScenario = `
name: line
graph:
  vertices: [{x: 0, y: 0}, {x: 1, y: 0}, {x: 2, y: 0}]
  lanes: [[0, 1], [1, 2]]
agents:
  - spawn: 0
  - spawn: 2
    battery: 50
commands:
  - {tick: 0, kind: assign, agent: 0, target: 2}
ticks: 30
expected:
  - {agent: 0, status: complete, vertex: 2}
`

func TestRunCompletionAndTrace(t *testing.T) {
	sc, err := Parse([]byte(lineScenario))
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, sc.TickPeriod)

	// Agent 1 is parked on the target; unreserved parked agents do not block.
	rep, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, rep.Passed(), "failures: %v", rep.Failures)
	assert.Equal(t, 19, rep.Completion[0])
	_, done := rep.Completion[1]
	assert.False(t, done)

	assert.Equal(t, Epoch, rep.Trace[0].Time)
	assert.Equal(t, Epoch.Add(29*100*time.Millisecond), rep.Trace[29].Time)
	assert.Equal(t, 1, rep.Trace[0].Owners)
	assert.Equal(t, 0, rep.Trace[29].Owners)
}

func TestRunReportsFailedExpectations(t *testing.T) {
	sc, err := Parse([]byte(lineScenario))
	require.NoError(t, err)
	sc.Ticks = 5
	rep, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, rep.Passed())
	assert.Len(t, rep.Failures, 2)
}

func TestBatteryStatistics(t *testing.T) {
	sc, err := Parse([]byte(`
name: idle
graph: {vertices: [{x: 0, y: 0}, {x: 1, y: 0}], lanes: [[0, 1]]}
agents: [{spawn: 0}, {spawn: 1, battery: 50}]
ticks: 1
`))
	require.NoError(t, err)
	rep, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, rep.BatteryMean, 1e-9)
	assert.InDelta(t, 35.35533905932738, rep.BatteryStdDev, 1e-9)
	assert.Zero(t, rep.Conflicts)
}

func TestParseInvalid(t *testing.T) {
	cases := map[string]string{
		"no ticks":        "graph: {vertices: [{x: 0}]}\nticks: 0\n",
		"spawn range":     "graph: {vertices: [{x: 0}]}\nagents: [{spawn: 3}]\nticks: 1\n",
		"command agent":   "graph: {vertices: [{x: 0}]}\ncommands: [{tick: 0, kind: assign, agent: 1}]\nticks: 1\n",
		"command kind":    "graph: {vertices: [{x: 0}]}\nagents: [{spawn: 0}]\ncommands: [{tick: 0, kind: fly, agent: 0}]\nticks: 1\n",
		"command tick":    "graph: {vertices: [{x: 0}]}\nagents: [{spawn: 0}]\ncommands: [{tick: 5, kind: drain, agent: 0}]\nticks: 1\n",
		"expect status":   "graph: {vertices: [{x: 0}]}\nagents: [{spawn: 0}]\nticks: 1\nexpected: [{agent: 0, status: asleep}]\n",
		"empty graph":     "ticks: 1\n",
		"bad yaml":        ":",
		"negative period": "graph: {vertices: [{x: 0}]}\nticks: 1\ntick_period: -1s\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, os.IsNotExist(err))
}
