// Package stats aggregates load records per day and summarizes their distribution
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of one daily metric
type Summary struct {
	Min     float64 `json:"min"`
	Q1      float64 `json:"q1"`
	Median  float64 `json:"median"`
	Q3      float64 `json:"q3"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	SD      float64 `json:"sd"`
	N       int     `json:"n"`
	Missing int     `json:"missing"`
}

// Describe summarizes values. NaN entries are counted as missing and ignored.
// SD is the sample standard deviation and is NaN for fewer than two values.
func Describe(values []float64) Summary {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	summary := Summary{
		N:       len(present),
		Missing: len(values) - len(present),
	}

	if len(present) == 0 {
		nan := math.NaN()
		summary.Min, summary.Q1, summary.Median, summary.Q3, summary.Max = nan, nan, nan, nan, nan
		summary.Mean, summary.SD = nan, nan

		return summary
	}

	sort.Float64s(present)

	summary.Min = present[0]
	summary.Max = present[len(present)-1]
	summary.Q1 = quantile(present, 0.25)
	summary.Median = quantile(present, 0.5)
	summary.Q3 = quantile(present, 0.75)
	summary.Mean = stat.Mean(present, nil)
	summary.SD = math.NaN()

	if len(present) > 1 {
		summary.SD = stat.StdDev(present, nil)
	}

	return summary
}

// quantile interpolates linearly between the closest ranks of sorted, h = (n-1)q
func quantile(sorted []float64, q float64) float64 {
	h := float64(len(sorted)-1) * q
	lo := math.Floor(h)
	hi := math.Ceil(h)

	lower := sorted[int(lo)]
	upper := sorted[int(hi)]

	return lower + (h-lo)*(upper-lower)
}
