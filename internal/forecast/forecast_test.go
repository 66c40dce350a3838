package forecast_test

import (
	"errors"
	"math"
	"testing"

	"github.com/random-logic/sta137-final/internal/arima"
	"github.com/random-logic/sta137-final/internal/forecast"
	"github.com/random-logic/sta137-final/internal/transform"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func fixedForecast() *arima.Forecast {
	return &arima.Forecast{
		Mean:  []float64{10.0, 10.5, 11.0},
		SE:    []float64{0.5, 0.7, 0.9},
		Lower: []float64{9.02, 9.128, 9.236},
		Upper: []float64{10.98, 11.872, 12.764},
		Level: 0.95,
	}
}

func TestApplyWithoutTransform(t *testing.T) {
	fc := fixedForecast()
	res, err := forecast.Apply(fc, transform.Params{Lambda: 0.3, Applied: false}, forecast.Options{LastYear: 2019})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Horizon != 3 || res.Level != 0.95 {
		t.Errorf("header: horizon=%d level=%g", res.Horizon, res.Level)
	}
	wantYears := []int{2020, 2021, 2022}
	for i, y := range wantYears {
		if res.Years[i] != y {
			t.Errorf("years[%d]: expected %d, got %d", i, y, res.Years[i])
		}
	}
	for i := range fc.Mean {
		if res.Mean[i] != fc.Mean[i] || res.Lower[i] != fc.Lower[i] || res.Upper[i] != fc.Upper[i] {
			t.Errorf("step %d: values must pass through untouched", i)
		}
		if res.Clamped[i] {
			t.Errorf("step %d: nothing to clamp without a transform", i)
		}
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %q", res.Warnings)
	}
}

func TestApplyLogInverse(t *testing.T) {
	fc := &arima.Forecast{
		Mean:  []float64{1.0, 2.0},
		Lower: []float64{0.5, 1.5},
		Upper: []float64{1.5, 2.5},
		SE:    []float64{0.25, 0.25},
		Level: 0.95,
	}
	res, err := forecast.Apply(fc, transform.Params{Lambda: 0, Applied: true}, forecast.Options{LastYear: 1990})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range fc.Mean {
		if !approxEqual(res.Mean[i], math.Exp(fc.Mean[i]), 1e-12) {
			t.Errorf("mean[%d]: expected exp inverse", i)
		}
		if !approxEqual(res.Lower[i], math.Exp(fc.Lower[i]), 1e-12) {
			t.Errorf("lower[%d]: expected exp inverse", i)
		}
		if !approxEqual(res.Upper[i], math.Exp(fc.Upper[i]), 1e-12) {
			t.Errorf("upper[%d]: expected exp inverse", i)
		}
	}
	// The transformed copies must survive for the transformed-scale table.
	if res.MeanTransformed[0] != 1.0 || res.UpperTransformed[1] != 2.5 {
		t.Error("transformed-scale slices must be preserved")
	}
}

func TestApplyBoxCoxRoundTrip(t *testing.T) {
	lambda := 0.4
	orig := []float64{120.5, 133.2, 151.9}
	fwd, err := transform.BoxCox(orig, lambda)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fc := &arima.Forecast{
		Mean:  fwd,
		Lower: fwd,
		Upper: fwd,
		SE:    []float64{0, 0, 0},
		Level: 0.95,
	}
	res, err := forecast.Apply(fc, transform.Params{Lambda: lambda, Applied: true}, forecast.Options{LastYear: 2000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range orig {
		if !approxEqual(res.Mean[i], orig[i], 1e-9) {
			t.Errorf("mean[%d]: round trip expected %g, got %g", i, orig[i], res.Mean[i])
		}
	}
}

func TestApplyClampMode(t *testing.T) {
	// With lambda = 0.5 the invertible domain is x > -2; the first lower
	// bound sits outside it.
	fc := &arima.Forecast{
		Mean:  []float64{1.0, 1.2},
		Lower: []float64{-2.5, 0.4},
		Upper: []float64{2.0, 2.2},
		SE:    []float64{1, 1},
		Level: 0.95,
	}
	res, err := forecast.Apply(fc, transform.Params{Lambda: 0.5, Applied: true}, forecast.Options{LastYear: 2010})
	if err != nil {
		t.Fatalf("clamp mode must not fail: %v", err)
	}
	if !res.Clamped[0] {
		t.Error("step 0 must be flagged as clamped")
	}
	if res.Clamped[1] {
		t.Error("step 1 is inside the domain")
	}
	if res.Lower[0] != 0 {
		t.Errorf("positive lambda clamps the lower bound to 0, got %g", res.Lower[0])
	}
	if len(res.Warnings) == 0 {
		t.Error("a clamped bound must leave a warning")
	}
	for i := range res.Mean {
		if math.IsNaN(res.Mean[i]) || math.IsNaN(res.Lower[i]) || math.IsNaN(res.Upper[i]) {
			t.Errorf("step %d: NaN leaked through clamp mode", i)
		}
	}
}

func TestApplyStrictMode(t *testing.T) {
	fc := &arima.Forecast{
		Mean:  []float64{1.0},
		Lower: []float64{-2.5},
		Upper: []float64{2.0},
		SE:    []float64{1},
		Level: 0.95,
	}
	_, err := forecast.Apply(fc, transform.Params{Lambda: 0.5, Applied: true},
		forecast.Options{LastYear: 2010, Strict: true})
	if err == nil {
		t.Fatal("strict mode must surface the domain error")
	}
	var de *transform.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected *transform.DomainError, got %T", err)
	}
	if de.Index != 0 {
		t.Errorf("domain error must carry the failing step, got %d", de.Index)
	}
}

func TestApplyNegativeLambdaClampsHigh(t *testing.T) {
	// With lambda = -0.5 the domain is x < 2; the upper bound escapes it and
	// the inverse diverges, so the clamp saturates instead of overflowing.
	fc := &arima.Forecast{
		Mean:  []float64{1.0},
		Lower: []float64{0.5},
		Upper: []float64{2.5},
		SE:    []float64{1},
		Level: 0.95,
	}
	res, err := forecast.Apply(fc, transform.Params{Lambda: -0.5, Applied: true}, forecast.Options{LastYear: 2010})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Clamped[0] {
		t.Error("diverging upper bound must be flagged")
	}
	if math.IsInf(res.Upper[0], 0) || math.IsNaN(res.Upper[0]) {
		t.Errorf("clamped bound must stay finite, got %g", res.Upper[0])
	}
	if res.Upper[0] != math.MaxFloat64 {
		t.Errorf("negative lambda saturates at MaxFloat64, got %g", res.Upper[0])
	}
}

func TestApplyEndToEnd(t *testing.T) {
	// Fit on a Box-Cox-transformed trending series, forecast, and invert:
	// original-scale forecasts must continue above the last observation.
	orig := make([]float64, 60)
	for i := range orig {
		orig[i] = 100 + 5*float64(i)
	}
	lambda := 0.5
	fwd, err := transform.BoxCox(orig, lambda)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := arima.Fit(fwd, arima.Candidate{P: 0, D: 1, Q: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fc, err := m.Forecast(5, 0.95)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := forecast.Apply(fc, transform.Params{Lambda: lambda, Applied: true}, forecast.Options{LastYear: 2019})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := orig[len(orig)-1]
	prev := last
	for i := 0; i < 5; i++ {
		if res.Mean[i] <= prev {
			t.Errorf("step %d: forecast %g must extend the trend beyond %g", i, res.Mean[i], prev)
		}
		if res.Lower[i] >= res.Mean[i] || res.Upper[i] <= res.Mean[i] {
			t.Errorf("step %d: interval must bracket the mean", i)
		}
		prev = res.Mean[i]
	}
	if res.Years[0] != 2020 || res.Years[4] != 2024 {
		t.Errorf("years: got %v", res.Years)
	}
}

func TestApplyValidation(t *testing.T) {
	if _, err := forecast.Apply(nil, transform.Params{}, forecast.Options{}); err == nil {
		t.Error("nil forecast must be rejected")
	}
	if _, err := forecast.Apply(&arima.Forecast{}, transform.Params{}, forecast.Options{}); err == nil {
		t.Error("empty forecast must be rejected")
	}
}
