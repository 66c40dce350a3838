package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ShapiroResult holds the outcome of a Shapiro-Wilk normality test.
type ShapiroResult struct {
	Statistic float64 `json:"statistic"` // the W statistic
	PValue    float64 `json:"p_value"`
	N         int     `json:"n"`
}

// ShapiroWilk tests the null hypothesis that the sample is drawn from a
// normal distribution, using Royston's AS R94 approximation (valid for
// 3 <= n <= 5000). A small p-value rejects normality.
func ShapiroWilk(xs []float64) (*ShapiroResult, error) {
	n := len(xs)
	if n < 3 {
		return nil, &NumericalError{Test: "shapiro-wilk", Reason: fmt.Sprintf("need at least 3 observations, got %d", n)}
	}
	if n > 5000 {
		return nil, &NumericalError{Test: "shapiro-wilk", Reason: fmt.Sprintf("approximation unreliable above 5000 observations, got %d", n)}
	}

	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	if sorted[n-1] == sorted[0] {
		return nil, &NumericalError{Test: "shapiro-wilk", Reason: "sample is constant"}
	}

	w := swStatistic(sorted)
	p := swPValue(w, n)

	return &ShapiroResult{Statistic: w, PValue: p, N: n}, nil
}

// swStatistic computes the W statistic from an ascending sample.
func swStatistic(sorted []float64) float64 {
	n := len(sorted)
	a := swWeights(n)

	var num, ssd float64
	m := mean(sorted)
	for i, x := range sorted {
		num += a[i] * x
		d := x - m
		ssd += d * d
	}
	w := num * num / ssd
	if w > 1 {
		w = 1
	}
	return w
}

// swWeights builds the coefficient vector a of AS R94: expected normal order
// statistics normalized and polynomial-corrected at the tails.
func swWeights(n int) []float64 {
	if n == 3 {
		r := math.Sqrt(0.5)
		return []float64{-r, 0, r}
	}

	// Expected values of normal order statistics (Blom scores).
	m := make([]float64, n)
	ssm := 0.0
	for i := 0; i < n; i++ {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
		ssm += m[i] * m[i]
	}

	rsn := 1 / math.Sqrt(float64(n))
	c := make([]float64, n)
	norm := math.Sqrt(ssm)
	for i := range m {
		c[i] = m[i] / norm
	}

	// Tail corrections from Royston (1995).
	an := c[n-1] + 0.221157*rsn - 0.147981*rsn*rsn -
		2.071190*math.Pow(rsn, 3) + 4.434685*math.Pow(rsn, 4) - 2.706056*math.Pow(rsn, 5)

	a := make([]float64, n)
	if n > 5 {
		an1 := c[n-2] + 0.042981*rsn - 0.293762*rsn*rsn -
			1.752461*math.Pow(rsn, 3) + 5.682633*math.Pow(rsn, 4) - 3.582633*math.Pow(rsn, 5)
		phi := (ssm - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) /
			(1 - 2*an*an - 2*an1*an1)
		sp := math.Sqrt(phi)
		for i := 2; i < n-2; i++ {
			a[i] = m[i] / sp
		}
		a[n-1], a[n-2] = an, an1
		a[0], a[1] = -an, -an1
	} else {
		phi := (ssm - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
		sp := math.Sqrt(phi)
		for i := 1; i < n-1; i++ {
			a[i] = m[i] / sp
		}
		a[n-1] = an
		a[0] = -an
	}
	return a
}

// swPValue maps W to a p-value through Royston's normalizing transforms.
func swPValue(w float64, n int) float64 {
	if w >= 1 {
		return 1
	}

	if n == 3 {
		// Exact small-sample distribution.
		p := (6 / math.Pi) * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		return math.Max(0, math.Min(1, p))
	}

	var z float64
	if n <= 11 {
		nf := float64(n)
		gamma := -2.273 + 0.459*nf
		if gamma <= math.Log(1-w) {
			return 0
		}
		wPrime := -math.Log(gamma - math.Log(1-w))
		mu := 0.5440 - 0.39978*nf + 0.025054*nf*nf - 0.0006714*nf*nf*nf
		sigma := math.Exp(1.3822 - 0.77857*nf + 0.062767*nf*nf - 0.0020322*nf*nf*nf)
		z = (wPrime - mu) / sigma
	} else {
		y := math.Log(float64(n))
		wPrime := math.Log(1 - w)
		mu := -1.5861 - 0.31082*y - 0.083751*y*y + 0.0038915*y*y*y
		sigma := math.Exp(-0.4803 - 0.082676*y + 0.0030302*y*y)
		z = (wPrime - mu) / sigma
	}

	return 1 - distuv.UnitNormal.CDF(z)
}

// NormalQuantiles returns the standard-normal quantiles at the Blom plotting
// positions (i - 0.375)/(n + 0.25) for a sample of size n — the theoretical
// axis of a Q-Q plot.
func NormalQuantiles(n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
	}
	return out
}
