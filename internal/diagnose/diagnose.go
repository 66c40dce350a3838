// Package diagnose runs the residual battery on a fitted model: Ljung-Box
// autocorrelation, Shapiro-Wilk normality, and a McLeod-Li ARCH check, plus
// the lag sweep and Q-Q data the charts draw from.
package diagnose

import (
	"errors"
	"fmt"
	"sort"

	"github.com/random-logic/sta137-final/internal/stats"
)

// Alpha is the significance threshold shared by every test in the battery.
const Alpha = 0.05

const (
	ljungBoxLags = 10
	archLags     = 5
	sweepMaxLag  = 20
)

// Test names as they appear in Report.Pass and rendered tables.
const (
	TestLjungBox    = "ljung-box"
	TestShapiroWilk = "shapiro-wilk"
	TestARCH        = "arch"
)

// TestResult is one diagnostic verdict. Unavailable means the test could not
// run on this residual vector; Reason says why and Pass is meaningless.
type TestResult struct {
	Statistic   float64 `json:"statistic"`
	PValue      float64 `json:"p_value"`
	Pass        bool    `json:"pass"`
	Unavailable bool    `json:"unavailable,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// SweepPoint is the Ljung-Box p-value at a single lag.
type SweepPoint struct {
	Lag    int     `json:"lag"`
	PValue float64 `json:"p_value"`
}

// QQPoint pairs a sorted residual with its theoretical normal quantile.
type QQPoint struct {
	Theoretical float64 `json:"theoretical"`
	Sample      float64 `json:"sample"`
}

// Report is the full battery outcome. Pass maps test name to verdict for
// tests that ran; unavailable tests are absent from the map.
type Report struct {
	N           int             `json:"n"`
	FitDF       int             `json:"fit_df"`
	LjungBox    TestResult      `json:"ljung_box"`
	ShapiroWilk TestResult      `json:"shapiro_wilk"`
	ARCH        TestResult      `json:"arch"`
	Sweep       []SweepPoint    `json:"sweep"`
	QQ          []QQPoint       `json:"qq"`
	Pass        map[string]bool `json:"pass"`
	Notes       []string        `json:"notes,omitempty"`
}

// Run executes the battery on a fixed residual vector. fitdf is the number
// of parameters the producing model estimated (p+q for ARIMA); it feeds the
// Ljung-Box degrees of freedom. A test that cannot run on this vector is
// marked Unavailable with its reason; it never fails the rest of the
// battery.
func Run(residuals []float64, fitdf int) (*Report, error) {
	if len(residuals) == 0 {
		return nil, fmt.Errorf("no residuals to diagnose")
	}
	if fitdf < 0 {
		return nil, fmt.Errorf("fitdf must be non-negative, got %d", fitdf)
	}

	rep := &Report{
		N:     len(residuals),
		FitDF: fitdf,
		Pass:  make(map[string]bool),
	}

	rep.LjungBox = verdict(func() (float64, float64, error) {
		r, err := stats.LjungBox(residuals, ljungBoxLags, fitdf)
		if err != nil {
			return 0, 0, err
		}
		return r.Statistic, r.PValue, nil
	})
	record(rep, TestLjungBox, rep.LjungBox)

	rep.ShapiroWilk = verdict(func() (float64, float64, error) {
		r, err := stats.ShapiroWilk(residuals)
		if err != nil {
			return 0, 0, err
		}
		return r.Statistic, r.PValue, nil
	})
	record(rep, TestShapiroWilk, rep.ShapiroWilk)
	if !rep.ShapiroWilk.Unavailable && !rep.ShapiroWilk.Pass {
		rep.Notes = append(rep.Notes,
			"residuals reject normality: point forecasts remain valid, interval coverage may be off")
	}

	rep.ARCH = verdict(func() (float64, float64, error) {
		r, err := stats.ARCH(residuals, archLags)
		if err != nil {
			return 0, 0, err
		}
		return r.Statistic, r.PValue, nil
	})
	record(rep, TestARCH, rep.ARCH)

	rep.Sweep = sweep(residuals)
	rep.QQ = qqPoints(residuals)

	return rep, nil
}

// verdict converts a test run into a TestResult, demoting a numerical
// failure to Unavailable.
func verdict(run func() (stat, p float64, err error)) TestResult {
	stat, p, err := run()
	if err != nil {
		var ne *stats.NumericalError
		if errors.As(err, &ne) {
			return TestResult{Unavailable: true, Reason: ne.Reason}
		}
		return TestResult{Unavailable: true, Reason: err.Error()}
	}
	return TestResult{Statistic: stat, PValue: p, Pass: p > Alpha}
}

func record(rep *Report, name string, tr TestResult) {
	if !tr.Unavailable {
		rep.Pass[name] = tr.Pass
	}
}

// sweep computes the Ljung-Box p-value at every lag 1..20 with fitdf 0, the
// curve the `chart --view sweep` bars draw. Lags the vector cannot support
// are simply absent.
func sweep(residuals []float64) []SweepPoint {
	maxLag := sweepMaxLag
	if n := len(residuals) - 1; n < maxLag {
		maxLag = n
	}
	var out []SweepPoint
	for lag := 1; lag <= maxLag; lag++ {
		r, err := stats.LjungBox(residuals, lag, 0)
		if err != nil {
			continue
		}
		out = append(out, SweepPoint{Lag: lag, PValue: r.PValue})
	}
	return out
}

// qqPoints pairs the sorted residuals with standard-normal quantiles at the
// Blom plotting positions.
func qqPoints(residuals []float64) []QQPoint {
	n := len(residuals)
	sorted := make([]float64, n)
	copy(sorted, residuals)
	sort.Float64s(sorted)

	theo := stats.NormalQuantiles(n)
	out := make([]QQPoint, n)
	for i := range out {
		out[i] = QQPoint{Theoretical: theo[i], Sample: sorted[i]}
	}
	return out
}
