package chart_test

import (
	"math"
	"strings"
	"testing"

	"github.com/random-logic/sta137-final/internal/chart"
	"github.com/random-logic/sta137-final/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// annual builds observations for consecutive years starting at startYear.
func annual(startYear int, values ...float64) []model.Observation {
	out := make([]model.Observation, len(values))
	for i, v := range values {
		out[i] = model.Observation{Year: startYear + i, Value: v}
	}
	return out
}

// nonEmptyLines returns lines with at least one non-space character.
func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}

// ─── Plot tests ───────────────────────────────────────────────────────────────

func TestPlotBasic(t *testing.T) {
	observations := annual(1990,
		508, 512, 530, 555, 570, 590, 610, 650, 700, 720,
		735, 760, 800, 850, 910, 960, 1010, 1080, 1020, 980,
	)
	var buf strings.Builder
	err := chart.Plot(&buf, "GBR:NE.IMP.GNFS.CD", observations, chart.PlotOptions{
		Width:  80,
		Height: 8,
	})
	if err != nil {
		t.Fatalf("Plot returned error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "GBR:NE.IMP.GNFS.CD") {
		t.Error("output missing series ID")
	}
	if !strings.Contains(out, "1990") {
		t.Error("output missing start year")
	}
	if !strings.Contains(out, "2009") {
		t.Error("output missing end year")
	}
	if !strings.Contains(out, "└") {
		t.Error("output missing bottom-left corner └")
	}
	if !strings.Contains(out, "─") {
		t.Error("output missing horizontal axis ─")
	}
}

func TestPlotLineCount(t *testing.T) {
	observations := annual(2000, 1.0, 2.0, 3.0, 4.0, 5.0, 6.0)
	height := 8
	var buf strings.Builder
	err := chart.Plot(&buf, "TEST", observations, chart.PlotOptions{
		Width:  80,
		Height: height,
	})
	if err != nil {
		t.Fatalf("Plot returned error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// header + height data rows + bottom axis + year labels = height + 3
	expected := height + 3
	if len(lines) != expected {
		t.Errorf("expected %d lines, got %d:\n%s", expected, len(lines), buf.String())
	}
}

func TestPlotTitleOverride(t *testing.T) {
	observations := annual(2000, 1.0, 2.0, 3.0)
	var buf strings.Builder
	_ = chart.Plot(&buf, "GBR:IMP", observations, chart.PlotOptions{
		Width:  60,
		Height: 6,
		Title:  "Imports (differenced)",
	})
	out := buf.String()
	if !strings.Contains(out, "Imports (differenced)") {
		t.Error("custom title not present in output")
	}
	if strings.Contains(strings.Split(out, "\n")[0], "GBR:IMP") {
		t.Error("series ID should be replaced by custom title on header line")
	}
}

func TestPlotAllNaN(t *testing.T) {
	observations := annual(2000, math.NaN(), math.NaN(), math.NaN())
	var buf strings.Builder
	err := chart.Plot(&buf, "TEST", observations, chart.PlotOptions{Width: 80, Height: 8})
	if err == nil {
		t.Fatal("expected error for all-NaN input, got nil")
	}
	if !strings.Contains(err.Error(), "non-NaN") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestPlotSingleObservation(t *testing.T) {
	observations := annual(2000, 5.0)
	var buf strings.Builder
	err := chart.Plot(&buf, "TEST", observations, chart.PlotOptions{Width: 80, Height: 8})
	if err == nil {
		t.Fatal("expected error for single observation, got nil")
	}
}

func TestPlotNaNGaps(t *testing.T) {
	// NaN in the middle renders as a gap, not a crash or a zero
	observations := annual(2000, 3.5, math.NaN(), math.NaN(), 4.1, 4.5)
	var buf strings.Builder
	err := chart.Plot(&buf, "TEST", observations, chart.PlotOptions{Width: 60, Height: 6})
	if err != nil {
		t.Fatalf("Plot with NaN gaps returned error: %v", err)
	}
}

func TestPlotFlatSeries(t *testing.T) {
	observations := annual(2000, 5.0, 5.0, 5.0, 5.0, 5.0)
	var buf strings.Builder
	err := chart.Plot(&buf, "TEST", observations, chart.PlotOptions{Width: 60, Height: 6})
	if err != nil {
		t.Fatalf("Plot with flat series returned error: %v", err)
	}
}

func TestPlotWidthRespected(t *testing.T) {
	observations := annual(2000, 1, 2, 3, 4, 5, 6, 7, 8)
	width := 60
	var buf strings.Builder
	_ = chart.Plot(&buf, "TEST", observations, chart.PlotOptions{
		Width:  width,
		Height: 6,
	})
	for i, line := range strings.Split(buf.String(), "\n") {
		// Rune count — box-drawing chars are multi-byte in UTF-8
		runeLen := len([]rune(line))
		if runeLen > width+2 {
			t.Errorf("line %d exceeds width %d: runes=%d %q", i, width, runeLen, line)
		}
	}
}

func TestPlotLargeMagnitudeLabels(t *testing.T) {
	// Import series run in the hundreds of billions — axis labels compact
	observations := annual(1990, 4.2e11, 4.5e11, 4.9e11, 5.6e11, 6.1e11)
	var buf strings.Builder
	err := chart.Plot(&buf, "TEST", observations, chart.PlotOptions{Width: 70, Height: 8})
	if err != nil {
		t.Fatalf("Plot returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "B") {
		t.Errorf("expected billions suffix in axis labels:\n%s", buf.String())
	}
}

// ─── PlotWithBands tests ──────────────────────────────────────────────────────

func forecastBand(startYear int, mean, lower, upper []float64) chart.Band {
	years := make([]int, len(mean))
	for i := range years {
		years[i] = startYear + i
	}
	return chart.Band{Years: years, Mean: mean, Lower: lower, Upper: upper}
}

func TestBandsBasic(t *testing.T) {
	history := annual(1980,
		10, 11, 12, 14, 15, 15, 16, 18, 19, 21,
		22, 24, 25, 27, 28, 30, 31, 33, 35, 36,
	)
	band := forecastBand(2000,
		[]float64{38, 39, 41},
		[]float64{34, 33, 33},
		[]float64{42, 45, 49},
	)
	var buf strings.Builder
	err := chart.PlotWithBands(&buf, "GBR:IMP", history, band, chart.PlotOptions{
		Width:  72,
		Height: 10,
	})
	if err != nil {
		t.Fatalf("PlotWithBands returned error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "1980") {
		t.Error("output missing history start year")
	}
	if !strings.Contains(out, "2002") {
		t.Error("output missing forecast end year")
	}
	if !strings.Contains(out, "forecast from 2000") {
		t.Error("header missing forecast origin")
	}
	if !strings.Contains(out, "░") {
		t.Errorf("output missing interval band fill:\n%s", out)
	}
	if !strings.Contains(out, "┊") {
		t.Error("output missing forecast-origin divider")
	}
}

func TestBandsScaleIncludesInterval(t *testing.T) {
	// The Y scale must cover the interval, not just the mean path
	history := annual(2000, 2, 4, 6)
	band := forecastBand(2003, []float64{8}, []float64{0}, []float64{12})
	var buf strings.Builder
	err := chart.PlotWithBands(&buf, "TEST", history, band, chart.PlotOptions{Width: 60, Height: 8})
	if err != nil {
		t.Fatalf("PlotWithBands returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "12.0") {
		t.Errorf("top tick should reach the upper bound 12:\n%s", out)
	}
	if !strings.Contains(out, "0") {
		t.Error("bottom tick should reach the lower bound 0")
	}
}

func TestBandsEmptyForecast(t *testing.T) {
	var buf strings.Builder
	err := chart.PlotWithBands(&buf, "TEST", annual(2000, 1, 2), chart.Band{}, chart.PlotOptions{})
	if err == nil {
		t.Fatal("expected error for empty forecast")
	}
}

func TestBandsLengthMismatch(t *testing.T) {
	band := chart.Band{
		Years: []int{2003, 2004},
		Mean:  []float64{8, 9},
		Lower: []float64{7},
		Upper: []float64{9, 10},
	}
	var buf strings.Builder
	err := chart.PlotWithBands(&buf, "TEST", annual(2000, 1, 2), band, chart.PlotOptions{})
	if err == nil {
		t.Fatal("expected error for mismatched band lengths")
	}
	if !strings.Contains(err.Error(), "lengths differ") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBandsNoHistory(t *testing.T) {
	band := forecastBand(2003, []float64{8}, []float64{7}, []float64{9})
	var buf strings.Builder
	err := chart.PlotWithBands(&buf, "TEST", nil, band, chart.PlotOptions{})
	if err == nil {
		t.Fatal("expected error for missing history")
	}
}

// ─── Stems tests ──────────────────────────────────────────────────────────────

func TestStemsBasic(t *testing.T) {
	values := []float64{0.62, 0.31, 0.12, -0.05, -0.18}
	var buf strings.Builder
	err := chart.Stems(&buf, "ACF", values, 0.28, chart.StemsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Stems returned error: %v", err)
	}
	out := buf.String()

	lines := nonEmptyLines(out)
	if len(lines) != 6 { // 1 header + 5 lags
		t.Errorf("expected 6 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "ACF") {
		t.Error("output missing title")
	}
	if !strings.Contains(out, "│") {
		t.Error("output missing zero baseline")
	}
	if !strings.Contains(out, "█") {
		t.Error("output missing bars")
	}
	// Lag numbers run 1..5
	if !strings.Contains(lines[1], "1") || !strings.Contains(lines[5], "5") {
		t.Error("lag numbering off")
	}
}

func TestStemsSignificanceFlag(t *testing.T) {
	values := []float64{0.5, 0.1}
	var buf strings.Builder
	err := chart.Stems(&buf, "ACF", values, 0.3, chart.StemsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Stems returned error: %v", err)
	}
	out := buf.String()
	if countRune(out, '*') != 1 {
		t.Errorf("expected exactly one significant lag flagged:\n%s", out)
	}
	lines := nonEmptyLines(out)
	if !strings.Contains(lines[1], "*") {
		t.Error("lag 1 (0.5 > 0.3) should be flagged")
	}
	if strings.Contains(lines[2], "*") {
		t.Error("lag 2 (0.1 < 0.3) should not be flagged")
	}
}

func TestStemsRailMarks(t *testing.T) {
	values := []float64{0.1, -0.05}
	var buf strings.Builder
	err := chart.Stems(&buf, "PACF", values, 0.4, chart.StemsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Stems returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "┊") {
		t.Errorf("expected rail marks:\n%s", out)
	}
	if !strings.Contains(out, "rail ±0.4") {
		t.Errorf("header missing rail value:\n%s", out)
	}
}

func TestStemsNegativeValues(t *testing.T) {
	values := []float64{-0.7}
	var buf strings.Builder
	err := chart.Stems(&buf, "ACF", values, 0.2, chart.StemsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Stems returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "█") {
		t.Error("negative bar missing block characters")
	}
	if !strings.Contains(out, "*") {
		t.Error("|-0.7| > 0.2 should be flagged")
	}
}

func TestStemsNoRail(t *testing.T) {
	values := []float64{0.3, 0.2}
	var buf strings.Builder
	err := chart.Stems(&buf, "ACF", values, 0, chart.StemsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Stems returned error: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "rail") {
		t.Error("no rail header expected when rail is 0")
	}
	if strings.Contains(out, "*") {
		t.Error("no significance flags expected when rail is 0")
	}
}

func TestStemsEmpty(t *testing.T) {
	var buf strings.Builder
	err := chart.Stems(&buf, "ACF", nil, 0.2, chart.StemsOptions{})
	if err == nil {
		t.Fatal("expected error for empty values")
	}
}

// ─── Scatter tests ────────────────────────────────────────────────────────────

func TestScatterBasic(t *testing.T) {
	xs := []float64{-2, -1, 0, 1, 2}
	ys := []float64{-1.8, -1.1, 0.1, 0.9, 2.2}
	var buf strings.Builder
	err := chart.Scatter(&buf, "Normal Q-Q", xs, ys, true, chart.PlotOptions{Width: 50, Height: 10})
	if err != nil {
		t.Fatalf("Scatter returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Normal Q-Q") {
		t.Error("output missing title")
	}
	if !strings.Contains(out, "•") {
		t.Error("output missing data points")
	}
}

func TestScatterIdentityLine(t *testing.T) {
	xs := []float64{-2, 2}
	ys := []float64{-2, 2}
	var buf strings.Builder
	err := chart.Scatter(&buf, "", xs, ys, true, chart.PlotOptions{Width: 50, Height: 10})
	if err != nil {
		t.Fatalf("Scatter returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "·") {
		t.Errorf("expected identity reference line:\n%s", buf.String())
	}
}

func TestScatterNoIdentity(t *testing.T) {
	xs := []float64{1, 2, 3}
	ys := []float64{10, 20, 15}
	var buf strings.Builder
	err := chart.Scatter(&buf, "resid", xs, ys, false, chart.PlotOptions{Width: 50, Height: 8})
	if err != nil {
		t.Fatalf("Scatter returned error: %v", err)
	}
	if strings.Contains(buf.String(), "·") {
		t.Error("no reference line expected when identity is false")
	}
}

func TestScatterLengthMismatch(t *testing.T) {
	var buf strings.Builder
	err := chart.Scatter(&buf, "", []float64{1, 2}, []float64{1}, false, chart.PlotOptions{})
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestScatterTooFewPoints(t *testing.T) {
	var buf strings.Builder
	err := chart.Scatter(&buf, "", []float64{1}, []float64{1}, false, chart.PlotOptions{})
	if err == nil {
		t.Fatal("expected error for a single point")
	}
}

func TestScatterNaNPairsDropped(t *testing.T) {
	xs := []float64{1, math.NaN(), 2, 3}
	ys := []float64{1, 5, 2, math.NaN()}
	var buf strings.Builder
	err := chart.Scatter(&buf, "", xs, ys, false, chart.PlotOptions{Width: 50, Height: 8})
	if err != nil {
		t.Fatalf("Scatter should survive NaN pairs: %v", err)
	}
}

// ─── Bars tests ───────────────────────────────────────────────────────────────

func TestBarsBasic(t *testing.T) {
	labels := []string{"1", "2", "3"}
	values := []float64{0.61, 0.45, 0.72}
	var buf strings.Builder
	err := chart.Bars(&buf, "Ljung-Box p-values by lag", labels, values, 0.05, chart.BarsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Bars returned error: %v", err)
	}
	out := buf.String()
	lines := nonEmptyLines(out)
	if len(lines) != 4 { // 1 header + 3 bars
		t.Errorf("expected 4 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "█") {
		t.Error("output missing bars")
	}
	if !strings.Contains(out, "rule at 0.05") {
		t.Errorf("header missing threshold rule:\n%s", out)
	}
}

func TestBarsBelowThresholdFlagged(t *testing.T) {
	labels := []string{"1", "2", "3"}
	values := []float64{0.61, 0.03, 0.45}
	var buf strings.Builder
	err := chart.Bars(&buf, "sweep", labels, values, 0.05, chart.BarsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Bars returned error: %v", err)
	}
	out := buf.String()
	if countRune(out, '*') != 1 {
		t.Errorf("expected exactly one flagged bar:\n%s", out)
	}
	lines := nonEmptyLines(out)
	if !strings.Contains(lines[2], "*") {
		t.Error("lag 2 (0.03 < 0.05) should be flagged")
	}
}

func TestBarsThresholdRule(t *testing.T) {
	labels := []string{"1", "2"}
	values := []float64{0.9, 0.4}
	var buf strings.Builder
	err := chart.Bars(&buf, "sweep", labels, values, 0.05, chart.BarsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Bars returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "┊") {
		t.Errorf("expected threshold rule mark:\n%s", buf.String())
	}
}

func TestBarsRuleVisibleWhenAllBarsPass(t *testing.T) {
	labels := []string{"1", "2", "3"}
	values := []float64{0.61, 0.52, 0.47}
	var buf strings.Builder
	err := chart.Bars(&buf, "sweep", labels, values, 0.05, chart.BarsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Bars returned error: %v", err)
	}
	lines := nonEmptyLines(buf.String())
	for _, line := range lines[1:] {
		if !strings.Contains(line, "┊") {
			t.Errorf("rule mark missing from bar line: %q", line)
		}
	}
}

func TestBarsLengthMismatch(t *testing.T) {
	var buf strings.Builder
	err := chart.Bars(&buf, "", []string{"1", "2"}, []float64{0.5}, 0, chart.BarsOptions{})
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
	if !strings.Contains(err.Error(), "lengths differ") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBarsEmpty(t *testing.T) {
	var buf strings.Builder
	err := chart.Bars(&buf, "", nil, nil, 0.05, chart.BarsOptions{})
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestBarsNaNValueRendered(t *testing.T) {
	labels := []string{"1", "2"}
	values := []float64{0.5, math.NaN()}
	var buf strings.Builder
	err := chart.Bars(&buf, "sweep", labels, values, 0.05, chart.BarsOptions{Width: 60})
	if err != nil {
		t.Fatalf("Bars should survive NaN values: %v", err)
	}
	lines := nonEmptyLines(buf.String())
	if len(lines) != 3 {
		t.Errorf("NaN row should still render, got %d lines", len(lines))
	}
}
