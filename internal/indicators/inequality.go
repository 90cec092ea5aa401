// Package indicators computes distribution statistics over agent state and
// keeps the per-week indicator history of a model.
package indicators

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Gini returns the Gini coefficient of values. Empty input or a non-positive
// total yields 0.
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	total, weighted := 0.0, 0.0
	for i, v := range sorted {
		total += v
		weighted += float64(i+1) * v
	}
	if total <= 0 {
		return 0
	}
	g := 2*weighted/(float64(n)*total) - float64(n+1)/float64(n)
	return math.Max(0, g)
}

// Lorenz returns the Lorenz curve of values: x[i] = i/n and y[i] the share of
// the total held by the poorest i. Both start at 0 and end at 1.
func Lorenz(values []float64) (x, y []float64) {
	n := len(values)
	x = make([]float64, n+1)
	y = make([]float64, n+1)
	if n == 0 {
		return x, y
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	total := 0.0
	for _, v := range sorted {
		total += v
	}
	cum := 0.0
	for i, v := range sorted {
		cum += v
		x[i+1] = float64(i+1) / float64(n)
		if total > 0 {
			y[i+1] = cum / total
		}
	}
	y[n] = 1
	return x, y
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. Empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := math.Max(0, math.Min(100, p)) / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Median is the 50th percentile.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

// MeanStd returns the mean and sample standard deviation. Fewer than two
// values give a zero deviation.
func MeanStd(values []float64) (mean, sd float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}
