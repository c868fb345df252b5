// Package similarity implements the time-activity curve comparisons used by
// region growing and neighbourhood smoothing.
package similarity

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Pearson returns the sample correlation coefficient of x and y over
// n = len(x) points.
//
// It returns 0 when x is empty or either curve is missing or too short,
// and 1 when n < 3 or when either curve is flat: such curves cannot be told
// apart statistically and are treated as similar.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n < 1 || y == nil || len(y) < n {
		return 0
	}
	if n < 3 {
		return 1
	}
	y = y[:n]

	_, vx := stat.MeanVariance(x, nil)
	_, vy := stat.MeanVariance(y, nil)
	if vx*vy <= 0 {
		return 1
	}
	return stat.Covariance(x, y, nil) / math.Sqrt(vx*vy)
}

// AUCCoefficientOfVariation is a two-point dispersion test between two areas
// under the curve. Small values mean a and b are close relative to their
// magnitude.
func AUCCoefficientOfVariation(a, b float64) float64 {
	mean := 0.5 * (a + b)
	if math.Abs(mean) <= 1e-10 {
		return 0
	}
	return ((a-mean)*(a-mean) + (b-mean)*(b-mean)) / mean
}

// MaxRunLength returns the longest streak of consecutive samples in which
// y1-y2 keeps the same non-zero sign. A zero difference ends the current run
// and does not count toward any run.
func MaxRunLength(y1, y2 []float64) int {
	n := len(y1)
	if len(y2) < n {
		n = len(y2)
	}

	best, run, last := 0, 0, 0
	for i := 0; i < n; i++ {
		sign := 0
		switch d := y1[i] - y2[i]; {
		case d > 0:
			sign = 1
		case d < 0:
			sign = -1
		}

		switch {
		case sign == 0:
			run = 0
		case sign == last:
			run++
		default:
			run = 1
		}
		last = sign
		if run > best {
			best = run
		}
	}
	return best
}
