// Package stats reduces per-record processing times to descriptive statistics.
package stats

import (
	"math"
	"sort"

	"go-box-pipeline/internal/model"
)

// Aggregate computes timing statistics for samples. It returns nil when
// samples is empty. The input slice is not modified.
func Aggregate(samples []float64) *model.TimingStatistics {
	n := len(samples)
	if n == 0 {
		return nil
	}

	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	return &model.TimingStatistics{
		Count:   n,
		Average: mean,
		Median:  Percentile(sorted, 50),
		Min:     sorted[0],
		Max:     sorted[n-1],
		StdDev:  sampleStdDev(sorted, mean),
		P90:     Percentile(sorted, 90),
		P99:     Percentile(sorted, 99),
	}
}

// Percentile returns the p-th percentile of an ascending slice using linear
// interpolation between the closest ranks, rank = p/100 * (n-1).
// It returns 0 for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// sampleStdDev is the Bessel-corrected standard deviation; 0 for one sample.
func sampleStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
