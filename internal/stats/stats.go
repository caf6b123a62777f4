// Package stats summarizes the signal strengths of a sample set.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/gogpu/heatmap"
)

// Summary describes the known strengths of a sample set. Samples with an
// unknown or NaN strength count toward Count only. When Known is 0 every
// other field is 0.
type Summary struct {
	Count  int     `json:"count"`
	Known  int     `json:"known"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
}

// Summarize computes the summary of samples. Strengths are clamped to
// [0, 100] the same way rendering clamps them.
func Summarize(samples []heatmap.Sample) Summary {
	sum := Summary{Count: len(samples)}

	x := make([]float64, 0, len(samples))
	for _, s := range samples {
		v, ok := s.Strength.Value()
		if !ok || math.IsNaN(v) {
			continue
		}
		x = append(x, s.Strength.Effective())
	}
	sum.Known = len(x)
	if len(x) == 0 {
		return sum
	}

	slices.Sort(x)
	sum.Min, sum.Max = x[0], x[len(x)-1]
	if len(x) == 1 {
		sum.Mean = x[0]
	} else {
		sum.Mean, sum.StdDev = stat.MeanStdDev(x, nil)
	}
	sum.P50 = stat.Quantile(0.5, stat.Empirical, x, nil)
	sum.P90 = stat.Quantile(0.9, stat.Empirical, x, nil)
	return sum
}
