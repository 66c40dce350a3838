// Package search enumerates ARIMA candidates over a (p, q) grid, fits each
// one independently, and selects the best model by information criteria.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/random-logic/sta137-final/internal/arima"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/stats"
)

// ljungBoxLag is the residual-autocorrelation lag recorded per candidate.
const ljungBoxLag = 10

// Options bounds the candidate grid.
type Options struct {
	MaxP    int // highest AR order, inclusive
	MaxQ    int // highest MA order, inclusive
	D       int // differencing order shared by every candidate
	Workers int // >1 fits candidates on a bounded worker pool
}

// DefaultOptions is the standard grid: p and q in 0..4, first differences.
func DefaultOptions() Options {
	return Options{MaxP: 4, MaxQ: 4, D: 1, Workers: 1}
}

// FitResult is one cell of the grid. A candidate that failed to converge
// keeps its failure reason and carries AIC/BIC of +Inf so it sorts last and
// can never win selection.
type FitResult struct {
	Candidate arima.Candidate `json:"candidate"`
	AR        []float64       `json:"ar,omitempty"`
	MA        []float64       `json:"ma,omitempty"`
	Intercept float64         `json:"intercept"`
	Sigma2    float64         `json:"sigma2"`
	LogLik    float64         `json:"log_lik"`
	AIC       float64         `json:"aic"`
	BIC       float64         `json:"bic"`
	LjungBoxP float64         `json:"ljung_box_p"`
	Residuals []float64       `json:"-"`
	Fitted    []float64       `json:"-"`
	Model     *arima.Model    `json:"-"`
	Converged bool            `json:"converged"`
	Err       string          `json:"error,omitempty"`
}

// MarshalJSON renders the non-finite sentinels (+Inf criteria on failed
// cells, NaN Ljung-Box) as null so a whole grid stays JSON-encodable.
func (r FitResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Candidate arima.Candidate `json:"candidate"`
		AR        []float64       `json:"ar,omitempty"`
		MA        []float64       `json:"ma,omitempty"`
		Intercept float64         `json:"intercept"`
		Sigma2    float64         `json:"sigma2"`
		LogLik    interface{}     `json:"log_lik"`
		AIC       interface{}     `json:"aic"`
		BIC       interface{}     `json:"bic"`
		LjungBoxP interface{}     `json:"ljung_box_p"`
		Converged bool            `json:"converged"`
		Err       string          `json:"error,omitempty"`
	}{
		Candidate: r.Candidate,
		AR:        r.AR,
		MA:        r.MA,
		Intercept: r.Intercept,
		Sigma2:    r.Sigma2,
		LogLik:    model.JSONNumber(r.LogLik),
		AIC:       model.JSONNumber(r.AIC),
		BIC:       model.JSONNumber(r.BIC),
		LjungBoxP: model.JSONNumber(r.LjungBoxP),
		Converged: r.Converged,
		Err:       r.Err,
	})
}

// Grid fits ARIMA(p, D, q) for every p in 0..MaxP and q in 0..MaxQ on xs.
// Enumeration is p-major so the output order is deterministic. Each fit
// succeeds or fails on its own: a non-converging candidate is recorded in
// place and never aborts the rest of the search. xs is the transformed,
// undifferenced series; differencing happens inside the fit.
func Grid(ctx context.Context, xs []float64, opts Options) ([]FitResult, error) {
	if opts.MaxP < 0 || opts.MaxQ < 0 {
		return nil, fmt.Errorf("grid bounds must be non-negative, got max-p=%d max-q=%d", opts.MaxP, opts.MaxQ)
	}
	if opts.MaxP > 10 || opts.MaxQ > 10 {
		return nil, fmt.Errorf("grid bounds must be <= 10, got max-p=%d max-q=%d", opts.MaxP, opts.MaxQ)
	}
	if opts.D < 0 {
		return nil, fmt.Errorf("differencing order must be non-negative, got %d", opts.D)
	}

	cands := make([]arima.Candidate, 0, (opts.MaxP+1)*(opts.MaxQ+1))
	for p := 0; p <= opts.MaxP; p++ {
		for q := 0; q <= opts.MaxQ; q++ {
			cands = append(cands, arima.Candidate{P: p, D: opts.D, Q: q})
		}
	}

	if opts.Workers > 1 {
		return fitParallel(ctx, xs, cands, opts.Workers)
	}

	results := make([]FitResult, len(cands))
	for i, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = fitOne(xs, c)
	}
	return results, nil
}

// fitParallel fits candidates on a bounded worker pool. Every candidate
// writes to its own index, so ordering and tie-breaking are identical to
// the sequential path.
func fitParallel(ctx context.Context, xs []float64, cands []arima.Candidate, workers int) ([]FitResult, error) {
	sem := make(chan struct{}, workers)
	results := make([]FitResult, len(cands))
	var wg sync.WaitGroup

	for i, c := range cands {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[i] = FitResult{Candidate: c, AIC: math.Inf(1), BIC: math.Inf(1), Err: ctx.Err().Error()}
				return
			}
			results[i] = fitOne(xs, c)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// fitOne fits a single candidate, converting failure into a recorded cell.
// A fit that returns without meeting the tolerance is a failure too: its
// criteria are not trustworthy, so it must never win selection.
func fitOne(xs []float64, c arima.Candidate) FitResult {
	m, err := arima.Fit(xs, c)
	if err != nil {
		return FitResult{Candidate: c, AIC: math.Inf(1), BIC: math.Inf(1), Err: err.Error()}
	}
	if !m.Converged {
		ce := &arima.ConvergenceError{
			Candidate: c,
			Reason:    fmt.Sprintf("tolerance not met after %d iterations", m.Iterations),
		}
		return FitResult{Candidate: c, AIC: math.Inf(1), BIC: math.Inf(1), Err: ce.Error()}
	}

	res := m.Residuals()
	out := FitResult{
		Candidate: c,
		AR:        m.AR,
		MA:        m.MA,
		Intercept: m.Intercept,
		Sigma2:    m.Variance,
		LogLik:    m.LogLik,
		AIC:       m.AIC,
		BIC:       m.BIC,
		LjungBoxP: math.NaN(),
		Residuals: res,
		Fitted:    m.Fitted(),
		Model:     m,
		Converged: true,
	}
	if lb, lbErr := stats.LjungBox(res, ljungBoxLag, c.P+c.Q); lbErr == nil {
		out.LjungBoxP = lb.PValue
	}
	return out
}
