// Package analyze computes statistical summaries and trend analysis over
// slices of annual Observations. All functions are pure; no I/O.
package analyze

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/random-logic/sta137-final/internal/model"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for a series.
type Summary struct {
	SeriesID   string  `json:"series_id"`
	Count      int     `json:"count"`       // total observations
	Missing    int     `json:"missing"`     // NaN count
	MissingPct float64 `json:"missing_pct"` // percent missing
	FirstYear  int     `json:"first_year"`
	LastYear   int     `json:"last_year"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	P25        float64 `json:"p25"`
	Median     float64 `json:"median"`
	P75        float64 `json:"p75"`
	Max        float64 `json:"max"`
	Skew       float64 `json:"skew"`
	Kurtosis   float64 `json:"kurtosis"` // excess kurtosis, 0 for a normal
	First      float64 `json:"first"`    // first non-NaN value
	Last       float64 `json:"last"`     // last non-NaN value
	Change     float64 `json:"change"`   // Last - First
	ChangePct  float64 `json:"change_pct"`
}

// MarshalJSON keeps the summary JSON-encodable when a statistic is undefined:
// quartiles of a one-point series and percent change from a zero base are NaN.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		P25       interface{} `json:"p25"`
		P75       interface{} `json:"p75"`
		ChangePct interface{} `json:"change_pct"`
	}{
		alias:     alias(s),
		P25:       model.JSONNumber(s.P25),
		P75:       model.JSONNumber(s.P75),
		ChangePct: model.JSONNumber(s.ChangePct),
	})
}

// Summarize computes descriptive statistics over obs.
// NaN values are excluded from all numeric computations but counted.
// A series with no observed values at all is an error.
func Summarize(seriesID string, obs []model.Observation) (*Summary, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("summarize: empty series")
	}
	s := &Summary{
		SeriesID:  seriesID,
		Count:     len(obs),
		FirstYear: obs[0].Year,
		LastYear:  obs[len(obs)-1].Year,
	}

	vals := make([]float64, 0, len(obs))
	for _, o := range obs {
		if o.IsMissing() {
			s.Missing++
			continue
		}
		vals = append(vals, o.Value)
	}
	s.MissingPct = float64(s.Missing) / float64(s.Count) * 100
	if len(vals) == 0 {
		return nil, fmt.Errorf("summarize: series %s has no observed values", seriesID)
	}

	var err error
	if s.Mean, err = stats.Mean(vals); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	s.Min, _ = stats.Min(vals)
	s.Max, _ = stats.Max(vals)
	s.Median, _ = stats.Median(vals)
	if len(vals) >= 2 {
		s.Std, _ = stats.StandardDeviationSample(vals)
	}

	// Median-exclusive quartiles; NaN for a single value, nulled out in JSON.
	q, _ := stats.Quartile(vals)
	s.P25, s.P75 = q.Q1, q.Q3

	s.Skew = skewness(vals, s.Mean, s.Std)
	s.Kurtosis = kurtosis(vals, s.Mean, s.Std)

	// First and last non-NaN values in original order
	for _, o := range obs {
		if !o.IsMissing() {
			s.First = o.Value
			break
		}
	}
	for i := len(obs) - 1; i >= 0; i-- {
		if !obs[i].IsMissing() {
			s.Last = obs[i].Value
			break
		}
	}
	s.Change = s.Last - s.First
	if s.First != 0 {
		s.ChangePct = s.Change / math.Abs(s.First) * 100
	} else {
		s.ChangePct = math.NaN()
	}

	return s, nil
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// TrendMethod selects the regression algorithm.
type TrendMethod string

const (
	TrendLinear   TrendMethod = "linear"
	TrendTheilSen TrendMethod = "theil-sen"
)

// TrendResult holds a fitted line over (year, value) pairs. The x axis is
// year minus FirstYear, so Slope is in units per year and Intercept is the
// fitted value at the first observed year.
type TrendResult struct {
	SeriesID  string      `json:"series_id"`
	Method    TrendMethod `json:"method"`
	FirstYear int         `json:"first_year"`
	Slope     float64     `json:"slope"`
	Intercept float64     `json:"intercept"`
	R2        float64     `json:"r2"`
	GrowthPct float64     `json:"growth_pct"` // slope as a percent of the mean level
	Direction string      `json:"direction"`  // "up", "down", "flat"
}

// MarshalJSON nulls GrowthPct when the mean level is zero and the percent
// growth is undefined.
func (t TrendResult) MarshalJSON() ([]byte, error) {
	type alias TrendResult
	return json.Marshal(struct {
		alias
		GrowthPct interface{} `json:"growth_pct"`
	}{alias(t), model.JSONNumber(t.GrowthPct)})
}

// Trend fits a linear trend to the observations.
// X values are years since the first observed year. NaN observations are
// excluded.
func Trend(seriesID string, obs []model.Observation, method TrendMethod) (*TrendResult, error) {
	if method == "" {
		method = TrendLinear
	}
	tr := &TrendResult{SeriesID: seriesID, Method: method}

	var xs, ys []float64
	for _, o := range obs {
		if o.IsMissing() {
			continue
		}
		if len(xs) == 0 {
			tr.FirstYear = o.Year
		}
		xs = append(xs, float64(o.Year-tr.FirstYear))
		ys = append(ys, o.Value)
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("trend: need at least 2 non-NaN observations, got %d", len(xs))
	}

	switch method {
	case TrendTheilSen:
		slope, err := theilSenSlope(xs, ys)
		if err != nil {
			return nil, fmt.Errorf("trend: %w", err)
		}
		tr.Slope = slope
		// OLS intercept with the Theil-Sen slope
		tr.Intercept = stat.Mean(ys, nil) - slope*stat.Mean(xs, nil)
	case TrendLinear:
		tr.Intercept, tr.Slope = stat.LinearRegression(xs, ys, nil, false)
	default:
		return nil, fmt.Errorf("trend: unknown method %q", method)
	}

	tr.R2 = stat.RSquared(xs, ys, nil, tr.Intercept, tr.Slope)
	if math.IsNaN(tr.R2) {
		tr.R2 = 1 // constant series: the fitted line is exact
	}

	yMean := stat.Mean(ys, nil)
	if yMean != 0 {
		tr.GrowthPct = tr.Slope / math.Abs(yMean) * 100
	} else {
		tr.GrowthPct = math.NaN()
	}

	eps := 1e-9 * math.Max(1, math.Abs(yMean))
	switch {
	case tr.Slope > eps:
		tr.Direction = "up"
	case tr.Slope < -eps:
		tr.Direction = "down"
	default:
		tr.Direction = "flat"
	}
	return tr, nil
}

// ─── Analysis bundle ──────────────────────────────────────────────────────────

// Analysis bundles a full descriptive pass over one series: the summary, the
// trend fit, and the autocorrelation structure. ACF and PACF are indexed from
// lag 1; ConfBound is the ±1.96/√n white-noise band the lags are judged
// against.
type Analysis struct {
	Summary   *Summary     `json:"summary"`
	Trend     *TrendResult `json:"trend,omitempty"`
	ACF       []float64    `json:"acf,omitempty"`
	PACF      []float64    `json:"pacf,omitempty"`
	ConfBound float64      `json:"conf_bound,omitempty"`
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

// skewness is the adjusted Fisher-Pearson coefficient; 0 when undefined.
func skewness(vals []float64, mean, std float64) float64 {
	n := float64(len(vals))
	if n < 3 || std == 0 {
		return 0
	}
	var s float64
	for _, v := range vals {
		d := (v - mean) / std
		s += d * d * d
	}
	return s * n / ((n - 1) * (n - 2))
}

// kurtosis is the bias-adjusted sample excess kurtosis; 0 when undefined.
func kurtosis(vals []float64, mean, std float64) float64 {
	n := float64(len(vals))
	if n < 4 || std == 0 {
		return 0
	}
	var s float64
	for _, v := range vals {
		d := (v - mean) / std
		s += d * d * d * d
	}
	g2 := s/n - 3
	return ((n+1)*g2 + 6) * (n - 1) / ((n - 2) * (n - 3))
}

// theilSenSlope is the median of all pairwise slopes.
func theilSenSlope(xs, ys []float64) (float64, error) {
	var slopes []float64
	for i := range xs {
		for j := i + 1; j < len(xs); j++ {
			if dx := xs[j] - xs[i]; dx != 0 {
				slopes = append(slopes, (ys[j]-ys[i])/dx)
			}
		}
	}
	if len(slopes) == 0 {
		return 0, fmt.Errorf("no distinct years to slope over")
	}
	return stats.Median(slopes)
}
