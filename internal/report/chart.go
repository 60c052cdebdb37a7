package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/flightlink/internal/flightdb"
)

// ChartOptions tune the HTML page. The zero value uses go-echarts defaults
// for asset loading.
type ChartOptions struct {
	Title      string
	AssetsHost string
}

// RenderHTML writes an interactive page with the angular rate, attitude and
// height charts for samples.
func RenderHTML(w io.Writer, samples []flightdb.Sample, o ChartOptions) error {
	tl, err := BuildTimeline(samples)
	if err != nil {
		return err
	}
	if o.Title == "" {
		o.Title = "Flight session"
	}

	xLabels := make([]string, len(tl.X))
	for i, x := range tl.X {
		xLabels[i] = strconv.FormatFloat(x, 'f', 2, 64)
	}

	page := components.NewPage()
	page.SetPageTitle(o.Title)
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(
		newLineChart(o, "Angular rate (deg/s)", xLabels, tl.Rates),
		newLineChart(o, "Attitude (deg)", xLabels, tl.Attitude),
		newLineChart(o, "Height (m)", xLabels, []Series{tl.Height}),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return nil
}

func newLineChart(o ChartOptions, title string, xLabels []string, series []Series) *charts.Line {
	line := charts.NewLine()
	initOpts := opts.Initialization{PageTitle: o.Title, Theme: "dark", Width: "100%", Height: "420px"}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
	)

	line.SetXAxis(xLabels)
	for _, s := range series {
		data := make([]opts.LineData, len(s.Y))
		for i, v := range s.Y {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.Name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	return line
}
