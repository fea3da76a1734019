// Package stats provides the descriptive statistics the pipeline needs:
// means, population deviation and linearly interpolated quantiles.
package stats

import (
	"math"
	"slices"
)

// Mean computes the arithmetic mean of x. It returns NaN for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// Std computes the population standard deviation (ddof = 0) of x.
func Std(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := Mean(x)
	var ss float64
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(x)))
}

// Quantile returns the q-th quantile (0 <= q <= 1) of x using linear
// interpolation between the closest ranks. x is not modified.
// NaN values are ignored. Returns NaN when no values remain.
func Quantile(x []float64, q float64) float64 {
	sorted := sortedFinite(x)
	return quantileSorted(sorted, q)
}

// Quantiles computes several quantiles with a single sort.
func Quantiles(x []float64, qs ...float64) []float64 {
	sorted := sortedFinite(x)
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = quantileSorted(sorted, q)
	}
	return out
}

func sortedFinite(x []float64) []float64 {
	cp := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			cp = append(cp, v)
		}
	}
	slices.Sort(cp)
	return cp
}

func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(q) {
		return math.NaN()
	}
	q = math.Max(0, math.Min(1, q))
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
