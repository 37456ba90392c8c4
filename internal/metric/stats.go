// Package metric implements the statistics behind benchmark scores and
// ceilings: correlations, split-half reliability and cross-validated
// regression from model features to neural responses.
package metric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Pearson returns the Pearson correlation of x and y, or NaN when either
// has zero variance.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// SpearmanBrown extrapolates a reliability r to a test n times as long.
func SpearmanBrown(r, n float64) float64 {
	return n * r / (1 + (n-1)*r)
}

// Median returns the median of the finite values in xs, or NaN if none.
func Median(xs []float64) float64 {
	finite := finiteValues(xs)
	if len(finite) == 0 {
		return math.NaN()
	}
	sort.Float64s(finite)
	mid := len(finite) / 2
	if len(finite)%2 == 1 {
		return finite[mid]
	}
	return (finite[mid-1] + finite[mid]) / 2
}

// MeanStd returns the mean and sample standard deviation of the finite
// values in xs. A single value has a standard deviation of zero.
func MeanStd(xs []float64) (mean, std float64) {
	finite := finiteValues(xs)
	switch len(finite) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return finite[0], 0
	}
	return stat.MeanStdDev(finite, nil)
}

func finiteValues(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

// column extracts column j of a row-major matrix.
func column(m [][]float64, j int) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = row[j]
	}
	return out
}

// rows selects the given rows of m without copying them.
func rows(m [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, r := range idx {
		out[i] = m[r]
	}
	return out
}
