package arima

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// critZ95 is the two-sided standard-normal critical value for 95% intervals.
const critZ95 = 1.959963984540054

// Forecast holds h-step predictions on the model's original (pre-transform,
// integrated) scale. Lower and Upper are symmetric interval bounds around
// Mean at the requested confidence Level.
type Forecast struct {
	Mean  []float64 `json:"mean"`
	SE    []float64 `json:"se"`
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
	Level float64   `json:"level"`
}

// Forecast predicts steps observations ahead with symmetric prediction
// intervals at the given confidence level (0 < level < 1). Point forecasts
// come from the conditional expectation recursion on the differenced scale
// (future shocks zero) integrated back d times; standard errors accumulate
// psi weights of the full ARIMA polynomial, so they widen correctly for
// integrated models.
func (m *Model) Forecast(steps int, level float64) (*Forecast, error) {
	if steps < 1 {
		return nil, fmt.Errorf("forecast steps must be >= 1, got %d", steps)
	}
	if level <= 0 || level >= 1 {
		return nil, fmt.Errorf("confidence level must be in (0, 1), got %g", level)
	}
	if len(m.residuals) == 0 {
		return nil, fmt.Errorf("model has no fitted state")
	}

	y := m.diffed
	n := len(y)
	p, q := m.Candidate.P, m.Candidate.Q

	extY := make([]float64, n+steps)
	copy(extY, y)
	extRes := make([]float64, n+steps)
	copy(extRes, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.AR[i] * (extY[t-i-1] - m.Intercept)
		}
		for i := 0; i < q && t-i-1 >= 0; i++ {
			pred += m.MA[i] * extRes[t-i-1]
		}
		extY[t] = pred
		extRes[t] = 0
	}

	mean := integrate(extY[n:], m.original, m.Candidate.D)

	psi := psiWeights(m.AR, m.MA, m.Candidate.D, steps)
	se := make([]float64, steps)
	acc := 0.0
	for h := 0; h < steps; h++ {
		acc += psi[h] * psi[h]
		se[h] = math.Sqrt(m.Variance * acc)
	}

	z := critZ95
	if level != 0.95 {
		z = distuv.UnitNormal.Quantile(0.5 + level/2)
	}
	lower := make([]float64, steps)
	upper := make([]float64, steps)
	for h := 0; h < steps; h++ {
		lower[h] = mean[h] - z*se[h]
		upper[h] = mean[h] + z*se[h]
	}

	return &Forecast{Mean: mean, SE: se, Lower: lower, Upper: upper, Level: level}, nil
}

// integrate undoes d rounds of differencing. Each round anchors on the last
// value of the history differenced the matching number of times.
func integrate(forecasts, original []float64, d int) []float64 {
	out := make([]float64, len(forecasts))
	copy(out, forecasts)

	last := make([]float64, d)
	cur := append([]float64(nil), original...)
	for k := 0; k < d; k++ {
		last[k] = cur[len(cur)-1]
		for t := len(cur) - 1; t > 0; t-- {
			cur[t] -= cur[t-1]
		}
		cur = cur[1:]
	}

	for k := d - 1; k >= 0; k-- {
		out[0] += last[k]
		for j := 1; j < len(out); j++ {
			out[j] += out[j-1]
		}
	}
	return out
}

// psiWeights returns the first h coefficients of the MA(infinity)
// representation of the full ARIMA(p,d,q) process: the AR polynomial is
// convolved with (1-B)^d, then psi_j = theta_j + sum_i Phi_i psi_{j-i}.
func psiWeights(ar, ma []float64, d, h int) []float64 {
	phi := expandDifferencing(ar, d)
	psi := make([]float64, h)
	if h == 0 {
		return psi
	}
	psi[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j <= len(ma) {
			v = ma[j-1]
		}
		for i := 1; i <= len(phi) && i <= j; i++ {
			v += phi[i-1] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

// expandDifferencing multiplies the AR polynomial by (1-B)^d and returns the
// implied autoregressive coefficients of the combined operator.
func expandDifferencing(ar []float64, d int) []float64 {
	poly := make([]float64, len(ar)+1)
	poly[0] = 1
	for i, a := range ar {
		poly[i+1] = -a
	}
	for k := 0; k < d; k++ {
		next := make([]float64, len(poly)+1)
		for i, c := range poly {
			next[i] += c
			next[i+1] -= c
		}
		poly = next
	}
	out := make([]float64, len(poly)-1)
	for i := 1; i < len(poly); i++ {
		out[i-1] = -poly[i]
	}
	return out
}
