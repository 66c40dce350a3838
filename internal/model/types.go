// Package model defines the canonical data types used throughout sta137.
// These types are the single source of truth for annual series data and
// the result envelope that every command returns.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ─── Series Types ─────────────────────────────────────────────────────────────

// SeriesMeta holds metadata for a single annual series.
type SeriesMeta struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Country    string    `json:"country,omitempty"`
	CountryISO string    `json:"country_iso,omitempty"`
	Indicator  string    `json:"indicator,omitempty"`
	Units      string    `json:"units,omitempty"`
	Source     string    `json:"source,omitempty"`
	StartYear  int       `json:"start_year,omitempty"`
	EndYear    int       `json:"end_year,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	FetchedAt  time.Time `json:"fetched_at,omitempty"`
}

// Observation is a single data point in an annual time series.
// Value is NaN when the source reported no value for that year (missing
// data). ValueRaw preserves the original token from the source.
type Observation struct {
	Year     int     `json:"year"`
	Value    float64 `json:"value"`
	ValueRaw string  `json:"value_raw,omitempty"`
}

// IsMissing returns true if the observation value is NaN (missing data).
func (o Observation) IsMissing() bool {
	return math.IsNaN(o.Value)
}

// MarshalJSON renders missing values as null. JSON has no encoding for NaN,
// and every command result is JSON-encodable by contract.
func (o Observation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year     int         `json:"year"`
		Value    interface{} `json:"value"`
		ValueRaw string      `json:"value_raw,omitempty"`
	}{o.Year, JSONNumber(o.Value), o.ValueRaw})
}

// UnmarshalJSON maps a null value back to NaN.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Year     int      `json:"year"`
		Value    *float64 `json:"value"`
		ValueRaw string   `json:"value_raw"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Year = raw.Year
	o.ValueRaw = raw.ValueRaw
	if raw.Value == nil {
		o.Value = math.NaN()
	} else {
		o.Value = *raw.Value
	}
	return nil
}

// JSONNumber returns v in a form encoding/json accepts: NaN and the
// infinities have no JSON representation and become null.
func JSONNumber(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// SeriesData bundles observations with optional metadata for a single series.
type SeriesData struct {
	SeriesID string        `json:"series_id"`
	Meta     *SeriesMeta   `json:"meta,omitempty"`
	Obs      []Observation `json:"observations"`
}

// Values extracts the value column. Missing observations come through as NaN.
func Values(obs []Observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Value
	}
	return out
}

// Years extracts the year column.
func Years(obs []Observation) []int {
	out := make([]int, len(obs))
	for i, o := range obs {
		out[i] = o.Year
	}
	return out
}

// ValidateAnnual checks the ordering invariant: strictly increasing years,
// one observation per year. Year gaps are legal at load time (the modeling
// stages reject them separately) and are reported as warnings.
func ValidateAnnual(obs []Observation) ([]string, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("empty series")
	}
	var warnings []string
	for i := 1; i < len(obs); i++ {
		prev, cur := obs[i-1].Year, obs[i].Year
		switch {
		case cur == prev:
			return warnings, fmt.Errorf("duplicate year %d", cur)
		case cur < prev:
			return warnings, fmt.Errorf("years out of order: %d follows %d", cur, prev)
		case cur > prev+1:
			warnings = append(warnings, fmt.Sprintf("gap between %d and %d", prev, cur))
		}
	}
	return warnings, nil
}

// CompleteValues prepares a series for modeling: leading and trailing missing
// values are trimmed (with a warning), interior missing values are an error,
// and year gaps are an error because the annual-frequency invariant no longer
// holds after trimming.
func CompleteValues(obs []Observation) ([]Observation, []string, error) {
	start, end := 0, len(obs)
	for start < end && obs[start].IsMissing() {
		start++
	}
	for end > start && obs[end-1].IsMissing() {
		end--
	}
	trimmed := obs[start:end]
	if len(trimmed) == 0 {
		return nil, nil, fmt.Errorf("series has no observed values")
	}

	var warnings []string
	if n := (start) + (len(obs) - end); n > 0 {
		warnings = append(warnings, fmt.Sprintf("trimmed %d missing observation(s) at the series edges", n))
	}
	for i, o := range trimmed {
		if o.IsMissing() {
			return nil, warnings, fmt.Errorf("missing value inside series at year %d", o.Year)
		}
		if i > 0 && o.Year != trimmed[i-1].Year+1 {
			return nil, warnings, fmt.Errorf("year gap between %d and %d: modeling requires consecutive years", trimmed[i-1].Year, o.Year)
		}
	}
	out := make([]Observation, len(trimmed))
	copy(out, trimmed)
	return out, warnings, nil
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries timing and size metadata for a command result.
type ResultStats struct {
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindSeriesMeta = "series_meta"
	KindSeriesData = "series_data"
	KindSummary    = "summary"
	KindADF        = "adf_report"
	KindFitGrid    = "fit_grid"
	KindDiagnostic = "diagnostic_report"
	KindForecast   = "forecast"
	KindReport     = "analysis_report"
)
