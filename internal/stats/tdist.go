package stats

import "math"

// NormalQuantile returns the standard normal quantile for probability p in
// (0, 1). It returns NaN outside that range.
func NormalQuantile(p float64) float64 {
	if !(p > 0 && p < 1) {
		return math.NaN()
	}
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// StudentTQuantile returns the quantile of Student's t distribution with df
// degrees of freedom. One and two degrees of freedom are exact; higher
// values use the Cornish-Fisher expansion (Abramowitz and Stegun 26.7.5),
// within 0.005 of the exact value at df=3 and closer as df grows.
func StudentTQuantile(p float64, df int) float64 {
	if df < 1 || !(p > 0 && p < 1) {
		return math.NaN()
	}
	switch df {
	case 1:
		return math.Tan(math.Pi * (p - 0.5))
	case 2:
		return (2*p - 1) / math.Sqrt(2*p*(1-p))
	}

	z := NormalQuantile(p)
	v := float64(df)
	z2 := z * z
	g1 := (z2 + 1) * z / 4
	g2 := ((5*z2+16)*z2 + 3) * z / 96
	g3 := (((3*z2+19)*z2+17)*z2 - 15) * z / 384
	g4 := ((((79*z2+776)*z2+1482)*z2-1920)*z2 - 945) * z / 92160
	return z + g1/v + g2/(v*v) + g3/(v*v*v) + g4/(v*v*v*v)
}

// MeanConfidenceInterval returns the two-sided t interval for the mean of xs
// at the given confidence level. A single value, or values without spread,
// collapse to the mean.
func MeanConfidenceInterval(xs []float64, confidence float64) (lo, hi float64) {
	mean := Mean(xs)
	se := StandardError(xs)
	if len(xs) < 2 || se == 0 {
		return mean, mean
	}
	t := StudentTQuantile((1+confidence)/2, len(xs)-1)
	return mean - t*se, mean + t*se
}
