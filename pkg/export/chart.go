package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/bessim/core/dispatch"
)

// WriteChartHTML renders input, output and SoC of a simulation as a line
// chart. SoC is plotted on a secondary axis.
func WriteChartHTML(w io.Writer, title string, res *dispatch.SimulationResult) error {
	if res == nil {
		return fmt.Errorf("nil simulation result")
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: res.Policy}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Power (kW)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "SoC (kWh)", Position: "right"})

	xAxis := make([]string, len(res.Steps))
	input := make([]opts.LineData, len(res.Steps))
	output := make([]opts.LineData, len(res.Steps))
	soc := make([]opts.LineData, len(res.Steps))
	for i, s := range res.Steps {
		xAxis[i] = s.Timestamp.Format("2006-01-02 15:04")
		input[i] = opts.LineData{Value: s.Input}
		output[i] = opts.LineData{Value: s.Output}
		soc[i] = opts.LineData{Value: s.SoCEndKWh}
	}
	line.SetXAxis(xAxis).
		AddSeries("Input", input).
		AddSeries("Output", output, charts.WithLineChartOpts(opts.LineChart{Step: "end"})).
		AddSeries("SoC", soc, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, Smooth: opts.Bool(true)}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
