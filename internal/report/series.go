// Package report renders recorded flight samples as static PNG plots and
// interactive HTML charts.
package report

import (
	"errors"

	"github.com/banshee-data/flightlink/internal/flightdb"
)

// ErrNoSamples is returned when there is nothing to draw.
var ErrNoSamples = errors.New("report: no samples")

// Series is one named trace sampled at the times in Timeline.X.
type Series struct {
	Name string
	Y    []float64
}

// Timeline holds the sample times, in seconds from the first sample, and
// the traces derived from them.
type Timeline struct {
	X        []float64
	Rates    []Series // deg/s
	Attitude []Series // deg
	Height   Series   // m
}

// BuildTimeline extracts plot series from samples. Samples are assumed to
// be in arrival order, as returned by flightdb.
func BuildTimeline(samples []flightdb.Sample) (Timeline, error) {
	if len(samples) == 0 {
		return Timeline{}, ErrNoSamples
	}

	n := len(samples)
	tl := Timeline{
		X: make([]float64, n),
		Rates: []Series{
			{Name: "rate x", Y: make([]float64, n)},
			{Name: "rate y", Y: make([]float64, n)},
			{Name: "rate z", Y: make([]float64, n)},
		},
		Attitude: []Series{
			{Name: "tangaj", Y: make([]float64, n)},
			{Name: "bank", Y: make([]float64, n)},
			{Name: "course", Y: make([]float64, n)},
		},
		Height: Series{Name: "height", Y: make([]float64, n)},
	}

	start := samples[0].ReceivedAt
	for i, s := range samples {
		if start.IsZero() || s.ReceivedAt.IsZero() {
			tl.X[i] = float64(i)
		} else {
			tl.X[i] = s.ReceivedAt.Sub(start).Seconds()
		}
		for axis := range tl.Rates {
			tl.Rates[axis].Y[i] = s.Rate[axis]
		}
		tl.Attitude[0].Y[i] = float64(s.Telemetry.Pitch)
		tl.Attitude[1].Y[i] = float64(s.Telemetry.Roll)
		tl.Attitude[2].Y[i] = float64(s.Telemetry.Course)
		tl.Height.Y[i] = float64(s.Telemetry.Height)
	}
	return tl, nil
}
