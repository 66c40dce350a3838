package stats_test

import (
	"errors"
	"testing"

	"github.com/random-logic/sta137-final/internal/stats"
)

func TestLjungBoxWhiteNoise(t *testing.T) {
	res, err := stats.LjungBox(whiteNoise, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(res.Statistic, 8.9175, 0.05) {
		t.Errorf("Q: expected about 8.9175, got %g", res.Statistic)
	}
	if !approxEqual(res.PValue, 0.5399, 0.02) {
		t.Errorf("p: expected about 0.5399, got %g", res.PValue)
	}
	if res.PValue <= 0.05 {
		t.Errorf("white noise should pass the test, got p=%g", res.PValue)
	}
	if res.DOF != 10 {
		t.Errorf("dof: expected 10, got %d", res.DOF)
	}
	if res.Lags != 10 {
		t.Errorf("lags: expected 10, got %d", res.Lags)
	}
}

func TestLjungBoxAutocorrelatedSeries(t *testing.T) {
	res, err := stats.LjungBox(arSeries, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PValue >= 0.05 {
		t.Errorf("AR(1) series should fail the test, got p=%g", res.PValue)
	}
}

func TestLjungBoxFitdfReducesDOF(t *testing.T) {
	res, err := stats.LjungBox(whiteNoise, 10, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DOF != 7 {
		t.Errorf("dof: expected 7, got %d", res.DOF)
	}
}

func TestLjungBoxDOFFloor(t *testing.T) {
	res, err := stats.LjungBox(whiteNoise, 2, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DOF != 1 {
		t.Errorf("dof should floor at 1, got %d", res.DOF)
	}
	if res.PValue < 0 || res.PValue > 1 {
		t.Errorf("p-value out of range: %g", res.PValue)
	}
}

func TestLjungBoxSweep(t *testing.T) {
	// Every lag in a 1..20 sweep over white noise should pass.
	for lags := 1; lags <= 20; lags++ {
		res, err := stats.LjungBox(whiteNoise, lags, 0)
		if err != nil {
			t.Fatalf("lag %d: unexpected error: %v", lags, err)
		}
		if res.PValue < 0 || res.PValue > 1 {
			t.Fatalf("lag %d: p-value out of range: %g", lags, res.PValue)
		}
		if res.PValue <= 0.05 {
			t.Errorf("lag %d: white noise should pass, got p=%g", lags, res.PValue)
		}
	}
}

func TestLjungBoxTruncatesLags(t *testing.T) {
	res, err := stats.LjungBox([]float64{1, 3, 2, 5, 4}, 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Lags != 4 {
		t.Errorf("lags should truncate to n-1=4, got %d", res.Lags)
	}
}

func TestLjungBoxDegenerateInput(t *testing.T) {
	if _, err := stats.LjungBox([]float64{2, 2, 2, 2, 2, 2}, 3, 0); !isNumericalError(err) {
		t.Errorf("constant series: expected NumericalError, got %v", err)
	}
	if _, err := stats.LjungBox([]float64{1, 2}, 3, 0); !isNumericalError(err) {
		t.Errorf("short series: expected NumericalError, got %v", err)
	}
	if _, err := stats.LjungBox(whiteNoise, 0, 0); !isNumericalError(err) {
		t.Errorf("zero lags: expected NumericalError, got %v", err)
	}
}

func TestARCHWhiteNoise(t *testing.T) {
	res, err := stats.ARCH(whiteNoise, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(res.PValue, 0.4811, 0.02) {
		t.Errorf("p: expected about 0.4811, got %g", res.PValue)
	}
	if res.PValue <= 0.05 {
		t.Errorf("homoskedastic residuals should pass, got p=%g", res.PValue)
	}
	// Squared residuals come from a zero-parameter null, so no dof reduction.
	if res.DOF != 5 {
		t.Errorf("dof: expected 5, got %d", res.DOF)
	}
}

func TestARCHVolatilityClustering(t *testing.T) {
	// Alternate calm and turbulent 15-year blocks: the squared series is
	// then strongly autocorrelated and the test must reject.
	clustered := make([]float64, len(whiteNoise))
	for i, v := range whiteNoise {
		if (i/15)%2 == 0 {
			clustered[i] = v * 5
		} else {
			clustered[i] = v * 0.4
		}
	}
	res, err := stats.ARCH(clustered, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PValue >= 0.05 {
		t.Errorf("clustered volatility should fail the test, got p=%g", res.PValue)
	}
}

func TestARCHDegenerateInput(t *testing.T) {
	_, err := stats.ARCH([]float64{1, -1, 1, -1, 1, -1}, 3)
	var ne *stats.NumericalError
	if !errors.As(err, &ne) {
		t.Fatalf("constant squares: expected NumericalError, got %v", err)
	}
	if ne.Test != "arch" {
		t.Errorf("error should identify the arch test, got %q", ne.Test)
	}
}
