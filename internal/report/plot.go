package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/flightlink/internal/flightdb"
	"github.com/banshee-data/flightlink/internal/monitoring"
)

var palette = []color.Color{
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
}

// WritePlots renders the angular rate and attitude plots for samples into
// dir and returns the written file paths.
func WritePlots(dir, prefix string, samples []flightdb.Sample) ([]string, error) {
	tl, err := BuildTimeline(samples)
	if err != nil {
		return nil, err
	}

	ratePlot, err := newSeriesPlot("Angular rate", "Rate (deg/s)", tl.X, tl.Rates)
	if err != nil {
		return nil, fmt.Errorf("build rate plot: %w", err)
	}
	attPlot, err := newSeriesPlot("Attitude", "Angle (deg)", tl.X, tl.Attitude)
	if err != nil {
		return nil, fmt.Errorf("build attitude plot: %w", err)
	}
	heightPlot, err := newSeriesPlot("Height", "Height (m)", tl.X, []Series{tl.Height})
	if err != nil {
		return nil, fmt.Errorf("build height plot: %w", err)
	}

	outputs := []struct {
		name string
		p    *plot.Plot
	}{
		{prefix + "_rates.png", ratePlot},
		{prefix + "_attitude.png", attPlot},
		{prefix + "_height.png", heightPlot},
	}

	var written []string
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := o.p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
			return written, fmt.Errorf("save %s: %w", o.name, err)
		}
		written = append(written, path)
	}
	monitoring.Logf("report: wrote %d plots for %d samples to %s", len(written), len(samples), dir)
	return written, nil
}

func newSeriesPlot(title, yLabel string, x []float64, series []Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = yLabel

	for i, s := range series {
		pts := make(plotter.XYs, len(x))
		for j := range x {
			pts[j].X = x[j]
			pts[j].Y = s.Y[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}
