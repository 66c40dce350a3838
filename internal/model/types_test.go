package model_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/random-logic/sta137-final/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func makeObs(startYear int, values ...float64) []model.Observation {
	out := make([]model.Observation, len(values))
	for i, v := range values {
		out[i] = model.Observation{Year: startYear + i, Value: v}
	}
	return out
}

// ─── Column extraction ────────────────────────────────────────────────────────

func TestValuesAndYears(t *testing.T) {
	obs := makeObs(1970, 120.5, math.NaN(), 131.9)

	vals := model.Values(obs)
	if len(vals) != 3 || vals[0] != 120.5 || !math.IsNaN(vals[1]) || vals[2] != 131.9 {
		t.Errorf("Values: unexpected column %v", vals)
	}

	years := model.Years(obs)
	for i, want := range []int{1970, 1971, 1972} {
		if years[i] != want {
			t.Errorf("Years[%d]: expected %d, got %d", i, want, years[i])
		}
	}
}

// ─── ValidateAnnual ───────────────────────────────────────────────────────────

func TestValidateAnnualAcceptsOrderedSeries(t *testing.T) {
	warnings, err := model.ValidateAnnual(makeObs(1970, 1, 2, 3, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestValidateAnnualWarnsOnGap(t *testing.T) {
	obs := []model.Observation{
		{Year: 1970, Value: 1},
		{Year: 1971, Value: 2},
		{Year: 1975, Value: 3},
	}
	warnings, err := model.ValidateAnnual(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "1971") || !strings.Contains(warnings[0], "1975") {
		t.Errorf("expected one gap warning naming both years, got %v", warnings)
	}
}

func TestValidateAnnualRejectsDuplicateYear(t *testing.T) {
	obs := []model.Observation{
		{Year: 1970, Value: 1},
		{Year: 1970, Value: 2},
	}
	if _, err := model.ValidateAnnual(obs); err == nil || !strings.Contains(err.Error(), "duplicate year 1970") {
		t.Errorf("expected duplicate-year error, got %v", err)
	}
}

func TestValidateAnnualRejectsOutOfOrder(t *testing.T) {
	obs := []model.Observation{
		{Year: 1971, Value: 1},
		{Year: 1970, Value: 2},
	}
	if _, err := model.ValidateAnnual(obs); err == nil || !strings.Contains(err.Error(), "out of order") {
		t.Errorf("expected ordering error, got %v", err)
	}
}

func TestValidateAnnualRejectsEmpty(t *testing.T) {
	if _, err := model.ValidateAnnual(nil); err == nil {
		t.Error("expected error for empty series")
	}
}

// ─── CompleteValues ───────────────────────────────────────────────────────────

func TestCompleteValuesTrimsEdges(t *testing.T) {
	obs := makeObs(1968, math.NaN(), math.NaN(), 120.5, 126.1, 131.9, math.NaN())

	out, warnings, err := model.CompleteValues(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 || out[0].Year != 1970 || out[2].Year != 1972 {
		t.Fatalf("expected years 1970-1972 after trimming, got %v", model.Years(out))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "trimmed 3") {
		t.Errorf("expected a warning about 3 trimmed observations, got %v", warnings)
	}

	// Output is a copy: mutating it must not touch the input.
	out[0].Value = -1
	if obs[2].Value != 120.5 {
		t.Error("CompleteValues returned a view into the input slice")
	}
}

func TestCompleteValuesPassThroughNoWarnings(t *testing.T) {
	out, warnings, err := model.CompleteValues(makeObs(1970, 1, 2, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 || len(warnings) != 0 {
		t.Errorf("expected clean pass-through, got %d obs, warnings %v", len(out), warnings)
	}
}

func TestCompleteValuesRejectsInteriorMissing(t *testing.T) {
	obs := makeObs(1970, 1, math.NaN(), 3)
	if _, _, err := model.CompleteValues(obs); err == nil || !strings.Contains(err.Error(), "1971") {
		t.Errorf("expected interior-missing error naming year 1971, got %v", err)
	}
}

func TestCompleteValuesRejectsYearGap(t *testing.T) {
	obs := []model.Observation{
		{Year: 1970, Value: 1},
		{Year: 1972, Value: 2},
	}
	if _, _, err := model.CompleteValues(obs); err == nil || !strings.Contains(err.Error(), "gap") {
		t.Errorf("expected year-gap error, got %v", err)
	}
}

func TestCompleteValuesRejectsAllMissing(t *testing.T) {
	obs := makeObs(1970, math.NaN(), math.NaN())
	if _, _, err := model.CompleteValues(obs); err == nil {
		t.Error("expected error for a series with no observed values")
	}
}

// ─── Observation JSON ─────────────────────────────────────────────────────────

func TestObservationMarshalMissingAsNull(t *testing.T) {
	o := model.Observation{Year: 1971, Value: math.NaN(), ValueRaw: "."}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"value":null`) {
		t.Errorf("expected null value in %s", s)
	}
	if !strings.Contains(s, `"value_raw":"."`) {
		t.Errorf("expected preserved raw token in %s", s)
	}
}

func TestObservationMarshalOmitsEmptyRaw(t *testing.T) {
	o := model.Observation{Year: 1971, Value: 42.5}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "value_raw") {
		t.Errorf("expected value_raw omitted, got %s", data)
	}
}

func TestObservationUnmarshalNullToNaN(t *testing.T) {
	var o model.Observation
	if err := json.Unmarshal([]byte(`{"year":1971,"value":null,"value_raw":"."}`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.Year != 1971 || !o.IsMissing() || o.ValueRaw != "." {
		t.Errorf("unexpected decode: %+v", o)
	}
}

func TestObservationRoundTrip(t *testing.T) {
	in := makeObs(1970, 120.5, math.NaN(), 589441000000)
	in[1].ValueRaw = ".."

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []model.Observation
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(out))
	}
	if out[0].Value != 120.5 || !out[1].IsMissing() || out[2].Value != 589441000000 {
		t.Errorf("values did not survive the round trip: %+v", out)
	}
	if out[1].ValueRaw != ".." {
		t.Errorf("raw token did not survive: %q", out[1].ValueRaw)
	}
}

// ─── JSONNumber ───────────────────────────────────────────────────────────────

func TestJSONNumberSentinels(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := model.JSONNumber(v); got != nil {
			t.Errorf("JSONNumber(%v): expected nil, got %v", v, got)
		}
	}
	if got := model.JSONNumber(2.5); got != 2.5 {
		t.Errorf("JSONNumber(2.5): expected 2.5, got %v", got)
	}
}

// ─── Result envelope ──────────────────────────────────────────────────────────

func TestResultEnvelopeMarshal(t *testing.T) {
	res := model.Result{
		Kind:    model.KindForecast,
		Command: "forecast --horizon 5",
		Data:    map[string]int{"horizon": 5},
		Stats:   model.ResultStats{DurationMs: 12, Items: 5},
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"kind":"forecast"`) {
		t.Errorf("expected kind tag in %s", s)
	}
	if strings.Contains(s, "warnings") {
		t.Errorf("expected empty warnings omitted, got %s", s)
	}
}
