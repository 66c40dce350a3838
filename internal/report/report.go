// Package report runs the full analysis pipeline over one annual series in
// a single pass: validation, descriptive summary, Box-Cox transform,
// differencing, stationarity test, ARIMA grid search, model selection,
// residual diagnostics, and forecasting. All run state lives on the Report
// being assembled; the package computes only and leaves rendering to the
// caller.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/random-logic/sta137-final/internal/analyze"
	"github.com/random-logic/sta137-final/internal/diagnose"
	"github.com/random-logic/sta137-final/internal/forecast"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/search"
	"github.com/random-logic/sta137-final/internal/stats"
	"github.com/random-logic/sta137-final/internal/transform"
)

// acfMaxLag caps the autocorrelation lags carried on the report.
const acfMaxLag = 20

// Config bounds one pipeline run.
type Config struct {
	MaxP    int     // highest AR order, inclusive
	MaxQ    int     // highest MA order, inclusive
	D       int     // differencing order
	Horizon int     // forecast steps
	Level   float64 // interval coverage
	BoxCox  bool    // variance-stabilizing transform toggle
	Strict  bool    // error on inverse-transform domain violations instead of clamping
	Workers int     // grid parallelism; <= 1 fits sequentially
}

// DefaultConfig mirrors the standard run: the full 5x5 grid on first
// differences, a five-year forecast at 95%.
func DefaultConfig() Config {
	return Config{MaxP: 4, MaxQ: 4, D: 1, Horizon: 5, Level: 0.95, BoxCox: true, Workers: 1}
}

// Report is the assembled outcome of one pipeline run. The intermediate
// series stages are kept so charts and tables can be drawn from the report
// alone without re-running any step.
type Report struct {
	SeriesID  string            `json:"series_id"`
	Meta      *model.SeriesMeta `json:"meta,omitempty"`
	N         int               `json:"n"`
	FirstYear int               `json:"first_year"`
	LastYear  int               `json:"last_year"`

	Observed    []model.Observation `json:"observed"`
	Transformed []float64           `json:"transformed"`
	Differenced []float64           `json:"differenced"`

	Summary   *analyze.Summary     `json:"summary,omitempty"`
	Trend     *analyze.TrendResult `json:"trend,omitempty"`
	Transform transform.Params     `json:"transform"`
	ADF       *stats.ADFResult     `json:"adf,omitempty"`

	// Autocorrelations of the differenced series, lags 1..k.
	ACF  []float64 `json:"acf,omitempty"`
	PACF []float64 `json:"pacf,omitempty"`

	Grid        []search.FitResult `json:"grid"`
	Best        *search.FitResult  `json:"best"`
	Diagnostics *diagnose.Report   `json:"diagnostics"`
	Forecast    *forecast.Result   `json:"forecast"`

	Warnings []string `json:"warnings,omitempty"`
}

// Run executes the pipeline on series under cfg. Descriptive stages that
// fail (summary, trend, ADF) degrade to warnings; the modeling chain from
// grid search onward is fatal on error because nothing downstream can run
// without a selected model.
func Run(ctx context.Context, series *model.SeriesData, cfg Config) (*Report, error) {
	if series == nil || len(series.Obs) == 0 {
		return nil, fmt.Errorf("report: empty series")
	}
	if cfg.Horizon < 1 {
		return nil, fmt.Errorf("report: horizon must be >= 1, got %d", cfg.Horizon)
	}
	if cfg.Level <= 0 || cfg.Level >= 1 {
		return nil, fmt.Errorf("report: confidence level must be in (0, 1), got %g", cfg.Level)
	}
	if cfg.D < 1 {
		cfg.D = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	rep := &Report{SeriesID: series.SeriesID, Meta: series.Meta}

	ordWarnings, err := model.ValidateAnnual(series.Obs)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	rep.Warnings = append(rep.Warnings, ordWarnings...)

	obs, trimWarnings, err := model.CompleteValues(series.Obs)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	rep.Warnings = append(rep.Warnings, trimWarnings...)

	rep.Observed = obs
	rep.N = len(obs)
	rep.FirstYear = obs[0].Year
	rep.LastYear = obs[len(obs)-1].Year

	values := model.Values(obs)
	if len(values) < cfg.D+10 {
		return nil, fmt.Errorf("report: need at least %d observations to model, got %d", cfg.D+10, len(values))
	}

	// Descriptive layer; never gates the fit.
	if sum, err := analyze.Summarize(series.SeriesID, obs); err == nil {
		rep.Summary = sum
	} else {
		rep.Warnings = append(rep.Warnings, "summary unavailable: "+err.Error())
	}
	if tr, err := analyze.Trend(series.SeriesID, obs, analyze.TrendLinear); err == nil {
		rep.Trend = tr
	} else {
		rep.Warnings = append(rep.Warnings, "trend unavailable: "+err.Error())
	}

	// Box-Cox. A series with non-positive values cannot carry the transform;
	// it falls back to the raw scale with a warning. Anything else is fatal.
	working := values
	if cfg.BoxCox {
		lambda, err := transform.EstimateLambda(values)
		if err == nil {
			working, err = transform.BoxCox(values, lambda)
		}
		var de *transform.DomainError
		switch {
		case err == nil:
			rep.Transform = transform.Params{Lambda: lambda, Applied: true}
		case errors.As(err, &de):
			working = values
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("box-cox skipped: %v", de))
		default:
			return nil, fmt.Errorf("report: %w", err)
		}
	}
	rep.Transformed = working

	diffed, err := transform.Difference(working, cfg.D)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	rep.Differenced = diffed

	// Stationarity and autocorrelation structure of the differenced series.
	if adf, err := stats.ADF(diffed, -1); err == nil {
		rep.ADF = adf
	} else {
		rep.Warnings = append(rep.Warnings, "adf unavailable: "+err.Error())
	}
	maxLag := acfMaxLag
	if n := len(diffed) - 1; n < maxLag {
		maxLag = n
	}
	if acf, err := stats.ACF(diffed, maxLag); err == nil {
		rep.ACF = acf[1:]
	}
	if pacf, err := stats.PACF(diffed, maxLag); err == nil {
		rep.PACF = pacf[1:]
	}

	// Modeling chain. The grid runs on the transformed, undifferenced
	// series; every candidate differences internally.
	grid, err := search.Grid(ctx, working, search.Options{
		MaxP:    cfg.MaxP,
		MaxQ:    cfg.MaxQ,
		D:       cfg.D,
		Workers: cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	rep.Grid = grid

	best, err := search.SelectBest(grid)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	rep.Best = best

	diag, err := diagnose.Run(best.Residuals, best.Candidate.P+best.Candidate.Q)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	rep.Diagnostics = diag

	fc, err := best.Model.Forecast(cfg.Horizon, cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	out, err := forecast.Apply(fc, rep.Transform, forecast.Options{LastYear: rep.LastYear, Strict: cfg.Strict})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	rep.Forecast = out
	rep.Warnings = append(rep.Warnings, out.Warnings...)

	return rep, nil
}
