// Package stats summarizes latency samples.
package stats

import (
	"math"
	"slices"
	"time"

	"github.com/siderolabs/gen/xslices"
)

// A Summary describes a set of latency samples. StdDev is the population
// standard deviation.
type Summary struct {
	Count   int
	Average time.Duration
	Min     time.Duration
	Max     time.Duration
	StdDev  time.Duration
}

func sum(values []float64) (total float64) {
	for _, v := range values {
		total += v
	}
	return
}

// Calculate summarizes values. An empty input yields the zero Summary.
func Calculate(values []time.Duration) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	n := float64(len(values))
	samples := xslices.Map(values, func(d time.Duration) float64 { return float64(d) })
	mean := sum(samples) / n
	deviations := xslices.Map(samples, func(v float64) float64 { return (v - mean) * (v - mean) })
	variance := sum(deviations) / n

	return Summary{
		Count:   len(values),
		Average: time.Duration(mean),
		Min:     slices.Min(values),
		Max:     slices.Max(values),
		StdDev:  time.Duration(math.Sqrt(variance)),
	}
}

// Milliseconds converts d to fractional milliseconds for reporting.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
