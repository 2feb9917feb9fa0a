package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// echarts skips "-" values instead of drawing them as 0
const missing = "-"

func lineData(values []*float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = opts.LineData{Value: missing}
			continue
		}
		out[i] = opts.LineData{Value: *v}
	}
	return out
}

func barData(values []*float64) []opts.BarData {
	out := make([]opts.BarData, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = opts.BarData{Value: missing}
			continue
		}
		out[i] = opts.BarData{Value: *v}
	}
	return out
}

func plain(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: v}
	}
	return out
}

func lineChart(view StateView) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: view.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "600px"}),
	)
	line.SetXAxis(view.Years)
	for _, s := range view.Series {
		line.AddSeries(s.Name, lineData(s.Values))
	}
	return line
}

func barChart(view StateView) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: view.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "item"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "600px"}),
	)
	bar.SetXAxis(view.Years)
	for _, s := range view.Series {
		bar.AddSeries(s.Name, barData(s.Values))
	}
	return bar
}

// combinedChart draws the three USA series on their own y axes.
func combinedChart(c Combined) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Unemployment, education expenditure and crime in the USA"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1800px", Height: "600px"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Unemployment data"}),
	)
	line.ExtendYAxis(
		opts.YAxis{Name: "Total expenditure data"},
		opts.YAxis{Name: "Total crime data"},
	)
	line.SetXAxis(c.Years).
		AddSeries("Unemployment data", plain(c.Unemployment)).
		AddSeries("Total expenditure data", plain(c.Expenditure), charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1})).
		AddSeries("Total crime data", plain(c.Crime), charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 2}))
	return line
}

// RenderHTML writes every view as one HTML page of charts.
func RenderHTML(w io.Writer, v Views) error {
	page := components.NewPage()
	page.PageTitle = "US government data report"
	page.AddCharts(
		lineChart(v.Unemployment),
		barChart(v.Revenue),
		barChart(v.Expenditure),
		barChart(v.FocusCrime),
		combinedChart(v.Combined),
	)
	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// RenderTable prints the combined overlay as a terminal table.
func RenderTable(w io.Writer, c Combined) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Year", "Unemployment (sum of state averages)", "Total expenditure", "Total crime"})
	for i, y := range c.Years {
		t.AppendRow(table.Row{
			y,
			formatNumber(c.Unemployment[i]),
			formatNumber(c.Expenditure[i]),
			formatNumber(c.Crime[i]),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
