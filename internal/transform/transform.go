// Package transform implements the variance-stabilizing and
// stationarity-inducing operators of the modeling pipeline: the Box-Cox
// power transform (forward, inverse, and lambda estimation) and successive
// differencing. Each operator is a pure function; no side effects, no I/O.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/random-logic/sta137-final/internal/model"
)

// Params carries the estimated Box-Cox exponent together with the
// forward-transform toggle. Estimated once from the raw series and immutable
// thereafter; the forecaster consumes it for inversion. Forward and inverse
// are applied together or not at all — applying one without the other changes
// the measurement scale of the output.
type Params struct {
	Lambda  float64 `json:"lambda"`
	Applied bool    `json:"applied"`
}

// LogCase reports whether the exponent falls on the logarithmic branch.
func (p Params) LogCase() bool {
	return math.Abs(p.Lambda) < lambdaZeroTol
}

// DomainError reports an input outside the mathematical domain of a
// transform: a non-positive value where Box-Cox requires positivity, or an
// inverse-transform base that cannot be raised to 1/lambda.
type DomainError struct {
	Op    string  // operation that failed, e.g. "boxcox"
	Value float64 // offending value
	Index int     // position in the input, -1 for scalar operations
}

func (e *DomainError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: value %g at index %d outside domain", e.Op, e.Value, e.Index)
	}
	return fmt.Sprintf("%s: value %g outside domain", e.Op, e.Value)
}

// Exponents within this distance of zero take the log branch. The estimation
// grid steps by 0.01, so anything smaller than this is an accumulated
// floating-point zero.
const lambdaZeroTol = 1e-12

// ─── Lambda Estimation ────────────────────────────────────────────────────────

// Grid searched by EstimateLambda. The usual practical range; exponents
// outside [-2, 2] indicate the transform is the wrong tool for the series.
const (
	lambdaMin  = -2.0
	lambdaMax  = 2.0
	lambdaStep = 0.01
)

// EstimateLambda finds the Box-Cox exponent maximizing the profile
// log-likelihood of the transformed series, searching a fixed grid over
// [-2, 2]. All values must be strictly positive.
func EstimateLambda(xs []float64) (float64, error) {
	if len(xs) < 3 {
		return 0, fmt.Errorf("estimate-lambda: need at least 3 observations, got %d", len(xs))
	}
	logSum := 0.0
	for i, x := range xs {
		if x <= 0 || math.IsNaN(x) {
			return 0, &DomainError{Op: "estimate-lambda", Value: x, Index: i}
		}
		logSum += math.Log(x)
	}

	best, bestLL := 1.0, math.Inf(-1)
	for lam := lambdaMin; lam <= lambdaMax+lambdaStep/2; lam += lambdaStep {
		ll := profileLogLik(xs, lam, logSum)
		if ll > bestLL {
			bestLL, best = ll, lam
		}
	}
	if math.IsInf(bestLL, -1) {
		return 0, fmt.Errorf("estimate-lambda: profile likelihood degenerate for all candidates")
	}
	// The grid accumulates upward from an exact -2.0, so drift can only push
	// candidates past the top bound or off the zero point. Snap both back.
	if math.Abs(best) < lambdaStep/2 {
		best = 0
	}
	if best > lambdaMax {
		best = lambdaMax
	}
	return best, nil
}

// profileLogLik evaluates the Box-Cox profile log-likelihood at lam:
// -n/2 * log(sigma^2 of transformed data) + (lam-1) * sum(log x).
func profileLogLik(xs []float64, lam, logSum float64) float64 {
	n := float64(len(xs))
	tx := make([]float64, len(xs))
	for i, x := range xs {
		tx[i] = boxcoxPoint(x, lam)
	}
	m := mean(tx)
	var ss float64
	for _, v := range tx {
		d := v - m
		ss += d * d
	}
	sigma2 := ss / n
	if sigma2 <= 0 {
		return math.Inf(-1)
	}
	return -n/2*math.Log(sigma2) + (lam-1)*logSum
}

// ─── Box-Cox ──────────────────────────────────────────────────────────────────

// BoxCox applies the power transform elementwise:
// (x^lambda - 1)/lambda for lambda != 0, log(x) for lambda = 0.
// Every value must be strictly positive.
func BoxCox(xs []float64, lambda float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if x <= 0 || math.IsNaN(x) {
			return nil, &DomainError{Op: "boxcox", Value: x, Index: i}
		}
		out[i] = boxcoxPoint(x, lambda)
	}
	return out, nil
}

func boxcoxPoint(x, lambda float64) float64 {
	if math.Abs(lambda) < lambdaZeroTol {
		return math.Log(x)
	}
	return (math.Pow(x, lambda) - 1) / lambda
}

// InverseBoxCox maps a transformed value back to the original scale:
// (lambda*x + 1)^(1/lambda) for lambda != 0, exp(x) for lambda = 0.
// For lambda != 0 the base lambda*x+1 must be positive; otherwise the
// inversion is undefined and a DomainError is returned — never a silent NaN.
func InverseBoxCox(x, lambda float64) (float64, error) {
	if math.IsNaN(x) {
		return 0, &DomainError{Op: "inverse-boxcox", Value: x, Index: -1}
	}
	if math.Abs(lambda) < lambdaZeroTol {
		return math.Exp(x), nil
	}
	base := lambda*x + 1
	if base <= 0 {
		return 0, &DomainError{Op: "inverse-boxcox", Value: x, Index: -1}
	}
	return math.Pow(base, 1/lambda), nil
}

// InvertibleBound returns the transformed-scale value below (lambda > 0) or
// above (lambda < 0) which InverseBoxCox is undefined: x such that
// lambda*x + 1 = 0. The second return is false on the log branch, which is
// invertible everywhere.
func InvertibleBound(lambda float64) (float64, bool) {
	if math.Abs(lambda) < lambdaZeroTol {
		return 0, false
	}
	return -1 / lambda, true
}

// ─── Difference ───────────────────────────────────────────────────────────────

// Difference computes successive first differences. Each pass shortens the
// series by one, so the output has length len(xs)-order.
func Difference(xs []float64, order int) ([]float64, error) {
	if order < 1 {
		return nil, fmt.Errorf("difference: order must be >= 1, got %d", order)
	}
	if len(xs) <= order {
		return nil, fmt.Errorf("difference: need more than %d observations, got %d", order, len(xs))
	}
	cur := xs
	for k := 0; k < order; k++ {
		next := make([]float64, len(cur)-1)
		for i := 1; i < len(cur); i++ {
			next[i-1] = cur[i] - cur[i-1]
		}
		cur = next
	}
	out := make([]float64, len(cur))
	copy(out, cur)
	return out, nil
}

// ─── Observation Operators ────────────────────────────────────────────────────

// Pipe-stage wrappers over the float-slice core. These keep the year index
// aligned with the numeric output and tolerate missing values the way the
// rest of the pipeline does: NaN stays NaN, illegal values fail loudly.

// BoxCoxObs applies the forward Box-Cox transform to a series of
// observations. Missing values pass through as NaN; non-positive observed
// values are a DomainError.
func BoxCoxObs(obs []model.Observation, lambda float64) ([]model.Observation, error) {
	out := make([]model.Observation, len(obs))
	for i, o := range obs {
		var val float64
		if math.IsNaN(o.Value) {
			val = math.NaN()
		} else if o.Value <= 0 {
			return nil, &DomainError{Op: "boxcox", Value: o.Value, Index: i}
		} else {
			val = boxcoxPoint(o.Value, lambda)
		}
		out[i] = model.Observation{
			Year:     o.Year,
			Value:    val,
			ValueRaw: formatRaw(val),
		}
	}
	return out, nil
}

// InverseBoxCoxObs maps transformed observations back to the original scale.
// Missing values pass through as NaN; an out-of-domain base is a DomainError.
func InverseBoxCoxObs(obs []model.Observation, lambda float64) ([]model.Observation, error) {
	out := make([]model.Observation, len(obs))
	for i, o := range obs {
		var val float64
		if math.IsNaN(o.Value) {
			val = math.NaN()
		} else {
			v, err := InverseBoxCox(o.Value, lambda)
			if err != nil {
				var de *DomainError
				if errors.As(err, &de) {
					de.Index = i
				}
				return nil, err
			}
			val = v
		}
		out[i] = model.Observation{
			Year:     o.Year,
			Value:    val,
			ValueRaw: formatRaw(val),
		}
	}
	return out, nil
}

// Log computes the natural log of each observation value.
// Non-positive values produce NaN with a warning; NaN inputs stay NaN.
func Log(obs []model.Observation) ([]model.Observation, []string) {
	out := make([]model.Observation, len(obs))
	var warnings []string
	for i, o := range obs {
		var val float64
		if math.IsNaN(o.Value) {
			val = math.NaN()
		} else if o.Value <= 0 {
			val = math.NaN()
			warnings = append(warnings, fmt.Sprintf("%d: log(%g) is undefined, set to NaN", o.Year, o.Value))
		} else {
			val = math.Log(o.Value)
		}
		out[i] = model.Observation{
			Year:     o.Year,
			Value:    val,
			ValueRaw: formatRaw(val),
		}
	}
	return out, warnings
}

// Diff computes the n-th order difference of a series of observations,
// dropping the leading years that have no prior value.
func Diff(obs []model.Observation, order int) ([]model.Observation, error) {
	if order < 1 {
		return nil, fmt.Errorf("diff: order must be >= 1, got %d", order)
	}
	result := obs
	for k := 0; k < order; k++ {
		next, err := diffOnce(result)
		if err != nil {
			return nil, err
		}
		result = next
	}
	return result, nil
}

func diffOnce(obs []model.Observation) ([]model.Observation, error) {
	if len(obs) < 2 {
		return nil, fmt.Errorf("diff: need at least 2 observations, got %d", len(obs))
	}
	out := make([]model.Observation, 0, len(obs)-1)
	for i := 1; i < len(obs); i++ {
		var val float64
		if math.IsNaN(obs[i].Value) || math.IsNaN(obs[i-1].Value) {
			val = math.NaN()
		} else {
			val = obs[i].Value - obs[i-1].Value
		}
		out = append(out, model.Observation{
			Year:     obs[i].Year,
			Value:    val,
			ValueRaw: formatRaw(val),
		})
	}
	return out, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	var s float64
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

func formatRaw(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return fmt.Sprintf("%g", v)
}
