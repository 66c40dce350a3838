// Package arima fits ARIMA(p,d,q) models by conditional sum of squares and
// produces h-step forecasts with psi-weight prediction intervals.
package arima

import (
	"fmt"
	"math"

	"github.com/random-logic/sta137-final/internal/stats"
)

// Candidate identifies a model order in the search grid.
type Candidate struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", c.P, c.D, c.Q)
}

// Validate rejects orders the estimator cannot fit.
func (c Candidate) Validate() error {
	if c.P < 0 || c.D < 0 || c.Q < 0 {
		return fmt.Errorf("invalid order %s: negative component", c)
	}
	return nil
}

// ConvergenceError reports an estimation that broke down numerically — the
// optimizer produced non-finite coefficients or a degenerate residual
// variance. A candidate that fails this way is excluded from model selection
// rather than aborting the search.
type ConvergenceError struct {
	Candidate Candidate
	Reason    string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s did not converge: %s", e.Candidate, e.Reason)
}

// Model is a fitted ARIMA model.
type Model struct {
	Candidate  Candidate `json:"candidate"`
	AR         []float64 `json:"ar,omitempty"`
	MA         []float64 `json:"ma,omitempty"`
	Intercept  float64   `json:"intercept"`
	Variance   float64   `json:"variance"` // ML residual variance
	LogLik     float64   `json:"log_lik"`
	AIC        float64   `json:"aic"`
	AICc       float64   `json:"aicc"`
	BIC        float64   `json:"bic"`
	NObs       int       `json:"n_obs"` // observations after differencing
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`

	original  []float64
	diffed    []float64
	residuals []float64
	fitted    []float64
}

const (
	maxIterations = 200
	cssTolerance  = 1e-8
	coeffBound    = 0.99 // stationarity/invertibility clamp
	minLearnRate  = 1e-7
)

// Fit estimates an ARIMA model of the given order on xs by conditional sum
// of squares: Yule-Walker starting values for the AR part, small constants
// for the MA part, then gradient refinement with coefficients clamped to
// (-0.99, 0.99). The input must be finite and long enough to leave at least
// ten observations beyond the model order after differencing.
func Fit(xs []float64, c Candidate) (*Model, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	for i, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite value at index %d", i)
		}
	}
	if len(xs) < c.P+c.Q+c.D+10 {
		return nil, fmt.Errorf("%s: need at least %d observations, got %d", c, c.P+c.Q+c.D+10, len(xs))
	}

	original := make([]float64, len(xs))
	copy(original, xs)

	diffed := original
	for i := 0; i < c.D; i++ {
		next := make([]float64, len(diffed)-1)
		for t := 1; t < len(diffed); t++ {
			next[t-1] = diffed[t] - diffed[t-1]
		}
		diffed = next
	}

	m := &Model{
		Candidate: c,
		AR:        make([]float64, c.P),
		MA:        make([]float64, c.Q),
		NObs:      len(diffed),
		original:  original,
		diffed:    diffed,
	}

	if err := m.estimate(); err != nil {
		return nil, err
	}
	m.informationCriteria()
	return m, nil
}

// estimate runs the CSS fit on the differenced series.
func (m *Model) estimate() error {
	y := m.diffed
	n := len(y)
	p, q := m.Candidate.P, m.Candidate.Q

	mu := 0.0
	for _, v := range y {
		mu += v
	}
	mu /= float64(n)
	m.Intercept = mu

	// White-noise shortcut: nothing to optimize.
	if p == 0 && q == 0 {
		m.fitted, m.residuals, _ = m.recurse(y)
		m.Converged = true
		return m.finishVariance()
	}

	if p > 0 {
		if acf, err := stats.ACF(y, p); err == nil {
			if phi := yuleWalker(acf, p); phi != nil {
				copy(m.AR, phi)
				clamp(m.AR)
			}
		}
	}
	for i := range m.MA {
		m.MA[i] = 0.1
	}

	start := p
	if q > start {
		start = q
	}

	lr := 0.01
	_, _, sse := m.recurse(y)
	for iter := 0; iter < maxIterations; iter++ {
		m.Iterations = iter + 1

		_, res, _ := m.recurse(y)
		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		for t := start; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * res[t] * (y[t-i-1] - mu)
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * res[t] * res[t-i-1]
			}
		}

		prevAR := append([]float64(nil), m.AR...)
		prevMA := append([]float64(nil), m.MA...)
		for i := range m.AR {
			m.AR[i] -= lr * arGrad[i] / float64(n)
		}
		for i := range m.MA {
			m.MA[i] -= lr * maGrad[i] / float64(n)
		}
		clamp(m.AR)
		clamp(m.MA)

		_, _, newSSE := m.recurse(y)
		if math.IsNaN(newSSE) || math.IsInf(newSSE, 0) {
			return &ConvergenceError{Candidate: m.Candidate, Reason: "sum of squares diverged"}
		}
		if newSSE > sse {
			// Overshot: back off and retry smaller steps.
			copy(m.AR, prevAR)
			copy(m.MA, prevMA)
			lr /= 2
			if lr < minLearnRate {
				break
			}
			continue
		}
		if sse-newSSE < cssTolerance {
			sse = newSSE
			m.Converged = true
			break
		}
		sse = newSSE
	}

	for _, v := range append(append([]float64(nil), m.AR...), m.MA...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ConvergenceError{Candidate: m.Candidate, Reason: "non-finite coefficient"}
		}
	}

	m.fitted, m.residuals, _ = m.recurse(y)
	return m.finishVariance()
}

// recurse runs the conditional recursion over the differenced series with
// the current coefficients: pre-sample shocks are zero, terms whose lag
// falls before the sample are skipped. The SSE excludes the first
// max(p,q) rows so that optimizer steps are compared on a fixed sample.
func (m *Model) recurse(y []float64) (fitted, residuals []float64, sse float64) {
	n := len(y)
	p, q := m.Candidate.P, m.Candidate.Q
	mu := m.Intercept

	start := p
	if q > start {
		start = q
	}

	fitted = make([]float64, n)
	residuals = make([]float64, n)
	for t := 0; t < n; t++ {
		pred := mu
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.AR[i] * (y[t-i-1] - mu)
		}
		for i := 0; i < q && t-i-1 >= 0; i++ {
			pred += m.MA[i] * residuals[t-i-1]
		}
		fitted[t] = pred
		residuals[t] = y[t] - pred
		if t >= start {
			sse += residuals[t] * residuals[t]
		}
	}
	return fitted, residuals, sse
}

// finishVariance sets the ML residual variance over the full sample.
func (m *Model) finishVariance() error {
	n := len(m.residuals)
	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}
	if n == 0 {
		return &ConvergenceError{Candidate: m.Candidate, Reason: "empty differenced series"}
	}
	m.Variance = sse / float64(n)
	if m.Variance <= 0 || math.IsNaN(m.Variance) {
		return &ConvergenceError{Candidate: m.Candidate, Reason: "degenerate residual variance"}
	}
	return nil
}

// informationCriteria fills LogLik, AIC, AICc and BIC with k = p+q+1
// parameters (the intercept counts).
func (m *Model) informationCriteria() {
	n := float64(len(m.residuals))
	k := float64(m.K())

	// Gaussian log-likelihood at the ML variance.
	m.LogLik = -n/2*(math.Log(2*math.Pi)+math.Log(m.Variance)) - n/2

	m.AIC = -2*m.LogLik + 2*k
	if n-k-1 > 0 {
		m.AICc = m.AIC + 2*k*(k+1)/(n-k-1)
	} else {
		m.AICc = math.Inf(1)
	}
	m.BIC = -2*m.LogLik + k*math.Log(n)
}

// K is the parameter count used by the information criteria: p + q + 1.
func (m *Model) K() int {
	return m.Candidate.P + m.Candidate.Q + 1
}

// Residuals returns a copy of the in-sample residuals on the differenced
// scale.
func (m *Model) Residuals() []float64 {
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}

// Fitted returns a copy of the in-sample fitted values on the differenced
// scale.
func (m *Model) Fitted() []float64 {
	out := make([]float64, len(m.fitted))
	copy(out, m.fitted)
	return out
}

// clamp bounds coefficients away from the unit circle.
func clamp(xs []float64) {
	for i, v := range xs {
		if v > coeffBound {
			xs[i] = coeffBound
		} else if v < -coeffBound {
			xs[i] = -coeffBound
		}
	}
}

// yuleWalker solves the Yule-Walker equations for AR starting values via
// Levinson-Durbin.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := make([]float64, order)
	phi[0] = acf[1]
	if order == 1 {
		return phi
	}

	v := 1 - phi[0]*phi[0]
	for i := 1; i < order; i++ {
		if v <= 0 {
			break
		}
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v

		next := make([]float64, i+1)
		for j := 0; j < i; j++ {
			next[j] = phi[j] - lambda*phi[i-1-j]
		}
		next[i] = lambda
		copy(phi, next)

		v *= 1 - lambda*lambda
	}
	return phi
}
