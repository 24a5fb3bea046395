// Package export renders scenario reports as JSON, CSV or an HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/fleetnav/qa/scenarios"
)

// WriteJSON writes the report to w in indented JSON.
func WriteJSON(w io.Writer, rep *scenarios.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteCSV writes one row per agent and tick.
func WriteCSV(w io.Writer, rep *scenarios.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tick", "time", "agent_id", "status", "vertex", "battery", "lane", "progress"}); err != nil {
		return err
	}
	for _, tr := range rep.Trace {
		for _, a := range tr.Agents {
			lane := ""
			if a.Lane != nil {
				lane = fmt.Sprintf("%d-%d", a.Lane.From, a.Lane.To)
			}
			rec := []string{
				strconv.Itoa(tr.Tick),
				tr.Time.Format(time.RFC3339Nano),
				strconv.Itoa(a.ID),
				a.Status.String(),
				strconv.Itoa(a.Vertex),
				strconv.FormatFloat(a.Battery, 'f', -1, 64),
				lane,
				strconv.FormatFloat(a.Progress, 'f', 2, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// BatteryChartHTML renders the battery level of every agent over the run.
func BatteryChartHTML(w io.Writer, rep *scenarios.Report) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Battery levels", Subtitle: rep.Scenario}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Battery (%)"}),
	)

	xAxis := make([]string, len(rep.Trace))
	series := map[int][]opts.LineData{}
	var ids []int
	for i, tr := range rep.Trace {
		xAxis[i] = strconv.Itoa(tr.Tick)
		for _, a := range tr.Agents {
			if _, ok := series[a.ID]; !ok {
				ids = append(ids, a.ID)
			}
			series[a.ID] = append(series[a.ID], opts.LineData{Value: a.Battery})
		}
	}
	line.SetXAxis(xAxis)
	for _, id := range ids {
		line.AddSeries(fmt.Sprintf("Agent %d", id), series[id])
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
