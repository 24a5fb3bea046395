package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetnav/pkg/export"
	"github.com/kilianp07/fleetnav/qa/scenarios"
)

var scenarioFlags struct {
	json  string
	csv   string
	chart string
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file.yaml>",
	Short: "Replay a scenario on a simulated clock and report the outcome",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenario,
}

func init() {
	f := scenarioCmd.Flags()
	f.StringVar(&scenarioFlags.json, "json", "", "write the full report as JSON")
	f.StringVar(&scenarioFlags.csv, "csv", "", "write the per-tick trace as CSV")
	f.StringVar(&scenarioFlags.chart, "chart", "", "write an HTML battery chart")
	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := scenarios.Load(args[0])
	if err != nil {
		return err
	}
	rep, runErr := scenarios.Run(cmd.Context(), sc)
	if rep == nil {
		return runErr
	}
	outputs := []struct {
		path  string
		write func(io.Writer, *scenarios.Report) error
	}{
		{scenarioFlags.json, export.WriteJSON},
		{scenarioFlags.csv, export.WriteCSV},
		{scenarioFlags.chart, export.BatteryChartHTML},
	}
	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		if err := writeFile(o.path, rep, o.write); err != nil {
			return err
		}
	}
	if err := printSummary(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !rep.Passed() {
		return fmt.Errorf("scenario %s: %d expectation(s) failed", rep.Scenario, len(rep.Failures))
	}
	return nil
}

func writeFile(path string, rep *scenarios.Report, write func(io.Writer, *scenarios.Report) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f, rep)
}

func printSummary(w io.Writer, rep *scenarios.Report) error {
	ids := make([]int, 0, len(rep.Completion))
	for id := range rep.Completion {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	lines := []string{
		fmt.Sprintf("scenario %s (run %s): %d ticks", rep.Scenario, rep.RunID, rep.Ticks),
		fmt.Sprintf("max owners per resource: %d, conflicts: %d", rep.MaxOwners, rep.Conflicts),
		fmt.Sprintf("battery mean %.2f%%, std-dev %.2f", rep.BatteryMean, rep.BatteryStdDev),
	}
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("agent %d completed at tick %d", id, rep.Completion[id]))
	}
	for _, f := range rep.Failures {
		lines = append(lines, "FAIL "+f)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
