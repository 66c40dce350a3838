// Package stats provides the statistical tests behind the modeling pipeline:
// autocorrelation functions, the Augmented Dickey-Fuller unit-root test,
// Ljung-Box and ARCH portmanteau tests, and the Shapiro-Wilk normality test.
// All functions operate on plain float64 slices and are free of I/O.
package stats

import (
	"fmt"
	"math"
)

// NumericalError reports a test that received degenerate input — a constant
// residual vector, too few observations, a singular regression — and could
// not compute a p-value. It marks that single test unavailable; it is never
// fatal to the rest of a diagnostic battery.
type NumericalError struct {
	Test   string
	Reason string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Test, e.Reason)
}

// ─── Autocorrelation ──────────────────────────────────────────────────────────

// ACF calculates the autocorrelation function for lags 0..maxLag.
// The lag-0 value is always 1.
func ACF(xs []float64, maxLag int) ([]float64, error) {
	n := len(xs)
	if n < 2 {
		return nil, &NumericalError{Test: "acf", Reason: fmt.Sprintf("need at least 2 observations, got %d", n)}
	}
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil, &NumericalError{Test: "acf", Reason: "negative lag"}
	}

	m := mean(xs)
	variance := 0.0
	for _, v := range xs {
		d := v - m
		variance += d * d
	}
	if variance == 0 {
		return nil, &NumericalError{Test: "acf", Reason: "series is constant"}
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (xs[i] - m) * (xs[i-k] - m)
		}
		acf[k] = sum / variance
	}
	return acf, nil
}

// PACF calculates the partial autocorrelation function for lags 0..maxLag
// using the Durbin-Levinson recursion. The lag-0 value is always 1.
func PACF(xs []float64, maxLag int) ([]float64, error) {
	n := len(xs)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil, &NumericalError{Test: "pacf", Reason: "need at least lag 1"}
	}

	acf, err := ACF(xs, maxLag)
	if err != nil {
		return nil, err
	}

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1

	phi := make([][]float64, maxLag+1)
	for i := range phi {
		phi[i] = make([]float64, maxLag+1)
	}
	phi[1][1] = acf[1]
	pacf[1] = acf[1]

	for k := 2; k <= maxLag; k++ {
		num := acf[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= phi[k-1][j] * acf[k-j]
			den -= phi[k-1][j] * acf[j]
		}
		if den == 0 {
			pacf[k] = 0
			continue
		}
		phi[k][k] = num / den
		pacf[k] = phi[k][k]
		for j := 1; j < k; j++ {
			phi[k][j] = phi[k-1][j] - phi[k][k]*phi[k-1][k-j]
		}
	}
	return pacf, nil
}

// ConfBound returns the two-sided 95% significance bound for sample
// autocorrelations of a length-n series: 1.96/sqrt(n).
func ConfBound(n int) float64 {
	if n <= 0 {
		return math.NaN()
	}
	return 1.96 / math.Sqrt(float64(n))
}

// SignificantLags returns the lags (excluding 0) whose values exceed the
// confidence bound in absolute value.
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var s float64
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, v := range xs {
		d := v - m
		ss += d * d
	}
	return ss / float64(len(xs)-1)
}
