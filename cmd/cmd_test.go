package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const navGraph = `{"levels": {"level1": {
  "vertices": [[0, 0, {"name": "dock"}], [4, 0, {}], [4, 3, {"name": "c1", "is_charger": true}], [0, 3, {"name": "shelf"}], [8, 0, {"name": "exit"}]],
  "lanes": [[0, 1, {}], [1, 2, {}], [2, 3, {}], [3, 0, {}], [1, 4, {}]]
}}}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		routeFlags.to, routeFlags.charger, routeFlags.level = "", false, ""
		scenarioFlags.json, scenarioFlags.csv, scenarioFlags.chart = "", "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeGraph(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(p, []byte(navGraph), 0o644))
	return p
}

func TestRouteByName(t *testing.T) {
	out, err := execute(t, "route", "--graph", writeGraph(t), "--from", "dock", "--to", "exit")
	require.NoError(t, err)
	assert.Equal(t, "dock -> V1 -> exit (2 hops, length 8.00)\n", out)
}

func TestRouteToCharger(t *testing.T) {
	out, err := execute(t, "route", "--graph", writeGraph(t), "--from", "0", "--charger")
	require.NoError(t, err)
	assert.Equal(t, "dock -> V1 -> c1 (2 hops, length 7.00)\n", out)
}

func TestRouteErrors(t *testing.T) {
	g := writeGraph(t)
	_, err := execute(t, "route", "--graph", g, "--from", "nowhere", "--to", "exit")
	assert.ErrorContains(t, err, "unknown vertex")
	_, err = execute(t, "route", "--graph", g, "--from", "9", "--to", "exit")
	assert.ErrorContains(t, err, "out of range")
	_, err = execute(t, "route", "--graph", g, "--from", "dock")
	assert.ErrorContains(t, err, "--to or --charger")
}

const scenarioDoc = `
name: cli
graph:
  vertices: [{x: 0, y: 0}, {x: 1, y: 0}, {x: 2, y: 0}]
  lanes: [[0, 1], [1, 2]]
agents: [{spawn: 0}]
commands: [{tick: 0, kind: assign, agent: 0, target: 2}]
ticks: 25
expected: [{agent: 0, status: complete, vertex: 2}]
`

func TestScenarioCommand(t *testing.T) {
	dir := t.TempDir()
	sc := filepath.Join(dir, "sc.yaml")
	require.NoError(t, os.WriteFile(sc, []byte(scenarioDoc), 0o644))
	jsonOut := filepath.Join(dir, "report.json")
	csvOut := filepath.Join(dir, "trace.csv")
	chartOut := filepath.Join(dir, "battery.html")

	out, err := execute(t, "scenario", sc, "--json", jsonOut, "--csv", csvOut, "--chart", chartOut)
	require.NoError(t, err)
	assert.Contains(t, out, "scenario cli")
	assert.Contains(t, out, "agent 0 completed at tick 19")
	assert.NotContains(t, out, "FAIL")

	for _, p := range []string{jsonOut, csvOut, chartOut} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), p)
	}
	csv, err := os.ReadFile(csvOut)
	require.NoError(t, err)
	assert.Equal(t, 26, len(strings.Split(strings.TrimSpace(string(csv)), "\n")))
}

func TestScenarioCommandFailsOnExpectations(t *testing.T) {
	sc := filepath.Join(t.TempDir(), "sc.yaml")
	require.NoError(t, os.WriteFile(sc, []byte(strings.Replace(scenarioDoc, "ticks: 25", "ticks: 3", 1)), 0o644))
	out, err := execute(t, "scenario", sc)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL agent 0")
}

func TestServeFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("graph:\n  path: "+writeGraph(t)+"\napi:\n  addr: \":9000\"\n"), 0o644))

	oldPath := cfgPath
	t.Cleanup(func() {
		cfgPath = oldPath
		serveFlags.addr, serveFlags.graph, serveFlags.logLevel, serveFlags.parallel = "", "", "", false
		serveCmd.Flags().Lookup("parallel").Changed = false
	})
	cfgPath = cfgFile
	serveFlags.addr = "127.0.0.1:0"
	serveFlags.logLevel = "debug"
	require.NoError(t, serveCmd.Flags().Set("parallel", "true"))

	cfg, err := loadServeConfig(serveCmd)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", cfg.API.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Fleet.Parallel)

	serveFlags.logLevel = "loud"
	_, err = loadServeConfig(serveCmd)
	assert.ErrorContains(t, err, "unknown level")
}
