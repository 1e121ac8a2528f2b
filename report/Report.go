// Package report renders an HTML report of a training run from the
// metrics recorded in the checkpoint database: one line chart per
// metric, plotted against training frames.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"sfneuman.com/stampede/checkpoint"
)

// Write renders the report of a run to dir/report.html and returns the
// written path. An empty runID selects the newest run in the database.
func Write(store *checkpoint.Store, runID, dir string) (string, error) {
	if runID == "" {
		runs, err := store.Runs()
		if err != nil {
			return "", fmt.Errorf("report: %w", err)
		}
		if len(runs) == 0 {
			return "", fmt.Errorf("report: no runs recorded")
		}
		runID = runs[0]
	}

	names, err := store.MetricNames(runID)
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("report: no metrics recorded for run %v",
			runID)
	}

	page := components.NewPage()
	page.PageTitle = "training report " + runID

	for _, name := range names {
		metrics, err := store.Metrics(runID, name)
		if err != nil {
			return "", fmt.Errorf("report: %w", err)
		}
		page.AddCharts(lineChart(name, metrics))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	path := filepath.Join(dir, "report.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	return path, nil
}

// lineChart plots one metric against training frames
func lineChart(name string, metrics []checkpoint.Metric) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: name,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	var frames []string
	items := make([]opts.LineData, 0, len(metrics))
	for _, m := range metrics {
		frames = append(frames, fmt.Sprintf("%d", m.Frames))
		items = append(items, opts.LineData{Value: m.Value})
	}

	line.SetXAxis(frames).AddSeries(name, items)
	return line
}
