// Package stats implements the descriptive statistics used for salary
// inequality metrics. Every function degrades to 0 on empty or degenerate
// input instead of returning NaN.
package stats

import (
	"math"
	"slices"
)

// Sum returns the total of xs.
func Sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

// Mean returns the arithmetic mean, or 0 for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return Sum(xs) / float64(len(xs))
}

// Median returns the middle value (mean of the two middle values for even
// lengths), or 0 for empty input. xs is not modified.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Std returns the population standard deviation.
func Std(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// SampleStd returns the sample standard deviation (n-1 denominator), or 0
// for fewer than two values.
func SampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// StandardError is the standard error of the mean, SampleStd/sqrt(n).
func StandardError(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return SampleStd(xs) / math.Sqrt(float64(len(xs)))
}

// Quantile returns the q-quantile of xs with linear interpolation between
// order statistics. q is clipped to [0, 1]; empty input yields 0.
func Quantile(xs []float64, q float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	pos := Clip(q, 0, 1) * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// MinMax returns the smallest and largest values, or zeros for empty input.
func MinMax(xs []float64) (lo, hi float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return slices.Min(xs), slices.Max(xs)
}

// CoefficientOfVariation is Std/Mean, or 0 when the mean is zero.
func CoefficientOfVariation(xs []float64) float64 {
	mean := Mean(xs)
	if mean == 0 {
		return 0
	}
	return Std(xs) / mean
}

// Gini computes the Gini coefficient of xs via the cumulative-sum form
// (n+1-2*sum(cumsum)/cumsum[n-1])/n, clipped to [0, 1].
func Gini(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)

	cum, cumTotal := 0.0, 0.0
	for _, x := range sorted {
		cum += x
		cumTotal += cum
	}
	if cum == 0 {
		return 0
	}
	g := (float64(n) + 1 - 2*cumTotal/cum) / float64(n)
	return Clip(g, 0, 1)
}

// Pearson returns the Pearson correlation of x and y. Mismatched lengths,
// fewer than two points, or zero variance yield 0.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return 0
	}
	mx, my := Mean(x), Mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	r := sxy / math.Sqrt(sxx*syy)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// GenderGapPercent returns (median(male)-median(female))/median(male)*100.
// ok is false when either group is empty or the male median is zero.
func GenderGapPercent(male, female []float64) (gap float64, ok bool) {
	if len(male) == 0 || len(female) == 0 {
		return 0, false
	}
	mm := Median(male)
	if mm == 0 {
		return 0, false
	}
	return (mm - Median(female)) / mm * 100, true
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// ClipAll bounds every element of xs to [lo, hi] in place.
func ClipAll(xs []float64, lo, hi float64) {
	for i, v := range xs {
		xs[i] = Clip(v, lo, hi)
	}
}
