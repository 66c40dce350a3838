// Package chart provides ASCII terminal chart rendering for annual series
// and model diagnostics. Five renderers are available:
//
//   - Plot: multi-line ASCII chart of a series with labeled year axes
//   - PlotWithBands: history plus forecast overlay with an interval band
//   - Stems: lag bars for ACF/PACF with significance rails
//   - Scatter: point cloud for Q-Q data with an identity reference
//   - Bars: labeled horizontal bars with a threshold line (Ljung-Box sweep)
//
// All renderers take an io.Writer plus options, handle NaN values as gaps
// (never zeros), and hold no terminal state.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/random-logic/sta137-final/internal/model"
)

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls multi-line ASCII plot rendering.
type PlotOptions struct {
	// Width is the total character width of the chart (including Y-axis label).
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// Height is the number of data rows in the chart body (not counting axis labels).
	// If 0, defaults to 12.
	Height int
	// Title overrides the default title (seriesID). Empty = use seriesID.
	Title string
}

// Plot renders a multi-line ASCII chart of an annual series to w.
func Plot(w io.Writer, seriesID string, obs []model.Observation, opts PlotOptions) error {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = termWidth()
	}
	if height <= 0 {
		height = 12
	}
	title := opts.Title
	if title == "" {
		title = seriesID
	}

	vals := make([]float64, len(obs))
	years := make([]int, len(obs))
	valid := 0
	for i, o := range obs {
		vals[i] = o.Value
		years[i] = o.Year
		if !math.IsNaN(o.Value) {
			valid++
		}
	}
	if valid < 2 {
		return fmt.Errorf("chart plot: need at least 2 non-NaN observations (got %d)", valid)
	}

	minVal, maxVal := valueRange(vals)

	ticks := yTicks(minVal, maxVal, height)
	yLabelWidth := tickWidth(ticks)
	plotWidth := width - yLabelWidth - 2
	if plotWidth < 10 {
		plotWidth = 10
	}

	cols := sampleCols(vals, plotWidth)
	grid := buildGrid(cols, minVal, maxVal, height)

	fmt.Fprintf(w, "%s  (%d to %d)\n", title, years[0], years[len(years)-1])
	writeGrid(w, grid, ticks, minVal, maxVal, yLabelWidth)
	writeYearAxis(w, years[0], years[len(years)/2], years[len(years)-1], yLabelWidth, plotWidth)
	return nil
}

// ─── PlotWithBands ────────────────────────────────────────────────────────────

// Band is a forecast path with its interval, aligned on Years.
type Band struct {
	Years []int
	Mean  []float64
	Lower []float64
	Upper []float64
}

// PlotWithBands renders the observed series followed by the forecast mean
// path, with the prediction interval filled behind the forecast region and
// a dotted divider at the forecast origin.
func PlotWithBands(w io.Writer, seriesID string, obs []model.Observation, band Band, opts PlotOptions) error {
	h := len(band.Mean)
	if h == 0 {
		return fmt.Errorf("chart bands: empty forecast")
	}
	if len(band.Lower) != h || len(band.Upper) != h || len(band.Years) != h {
		return fmt.Errorf("chart bands: years/mean/lower/upper lengths differ")
	}
	if len(obs) == 0 {
		return fmt.Errorf("chart bands: no history to anchor the forecast")
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = termWidth()
	}
	if height <= 0 {
		height = 12
	}
	title := opts.Title
	if title == "" {
		title = seriesID
	}

	// Splice history and forecast onto one axis. Lower/upper stay NaN over
	// the history region so the band only fills the forecast columns.
	n := len(obs)
	total := n + h
	mean := make([]float64, total)
	lower := make([]float64, total)
	upper := make([]float64, total)
	for i, o := range obs {
		mean[i] = o.Value
		lower[i] = math.NaN()
		upper[i] = math.NaN()
	}
	for j := 0; j < h; j++ {
		mean[n+j] = band.Mean[j]
		lower[n+j] = band.Lower[j]
		upper[n+j] = band.Upper[j]
	}

	valid := 0
	for _, v := range mean {
		if !math.IsNaN(v) {
			valid++
		}
	}
	if valid < 2 {
		return fmt.Errorf("chart bands: need at least 2 non-NaN values (got %d)", valid)
	}

	// Scale over everything drawn, band edges included.
	minVal, maxVal := valueRange(mean)
	if lo, hi := valueRange(lower); !math.IsNaN(lo) {
		minVal, maxVal = math.Min(minVal, lo), math.Max(maxVal, hi)
	}
	if lo, hi := valueRange(upper); !math.IsNaN(lo) {
		minVal, maxVal = math.Min(minVal, lo), math.Max(maxVal, hi)
	}

	ticks := yTicks(minVal, maxVal, height)
	yLabelWidth := tickWidth(ticks)
	plotWidth := width - yLabelWidth - 2
	if plotWidth < 10 {
		plotWidth = 10
	}

	meanCols := sampleCols(mean, plotWidth)
	lowerCols := sampleCols(lower, plotWidth)
	upperCols := sampleCols(upper, plotWidth)

	grid := buildGrid(meanCols, minVal, maxVal, height)

	// Interval fill behind the forecast mean line.
	for col := 0; col < plotWidth; col++ {
		lo, hi := lowerCols[col], upperCols[col]
		if math.IsNaN(lo) || math.IsNaN(hi) {
			continue
		}
		rTop := clampRow(rowForValue(hi, minVal, maxVal, height), height)
		rBot := clampRow(rowForValue(lo, minVal, maxVal, height), height)
		for r := rTop; r <= rBot; r++ {
			if grid[r][col] == ' ' {
				grid[r][col] = '░'
			}
		}
	}

	// Divider at the forecast origin.
	boundaryCol := (n*plotWidth + total - 1) / total
	if boundaryCol >= plotWidth {
		boundaryCol = plotWidth - 1
	}
	for r := 0; r < height; r++ {
		if grid[r][boundaryCol] == ' ' {
			grid[r][boundaryCol] = '┊'
		}
	}

	firstYear := obs[0].Year
	lastYear := band.Years[h-1]
	midYear := obs[len(obs)-1].Year
	fmt.Fprintf(w, "%s  (%d to %d, forecast from %d)\n", title, firstYear, lastYear, band.Years[0])
	writeGrid(w, grid, ticks, minVal, maxVal, yLabelWidth)
	writeYearAxis(w, firstYear, midYear, lastYear, yLabelWidth, plotWidth)
	return nil
}

// ─── Stems ────────────────────────────────────────────────────────────────────

// StemsOptions controls lag-bar rendering.
type StemsOptions struct {
	// Width is the total character width available. If 0, auto-detects
	// from $COLUMNS, falls back to 80.
	Width int
}

// Stems renders autocorrelation values as horizontal bars around a zero
// baseline, one row per lag. values[i] is the value at lag i+1. Rails mark
// ±rail; lags outside the rails are flagged with an asterisk.
//
// Output example:
//
//	ACF  (rail ±0.277)
//	 1   0.412  │████████        *
//	 2  -0.103  ██│
func Stems(w io.Writer, title string, values []float64, rail float64, opts StemsOptions) error {
	if len(values) == 0 {
		return fmt.Errorf("chart stems: no lags to render")
	}
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	// Symmetric domain covering every bar and the rails.
	domain := rail
	for _, v := range values {
		if !math.IsNaN(v) && math.Abs(v) > domain {
			domain = math.Abs(v)
		}
	}
	if domain <= 0 {
		domain = 1
	}

	lagWidth := len(strconv.Itoa(len(values)))
	valWidth := 0
	for _, v := range values {
		if l := len(formatFloat(v)); l > valWidth {
			valWidth = l
		}
	}

	barArea := totalWidth - lagWidth - valWidth - 6
	if barArea < 11 {
		barArea = 11
	}
	if barArea%2 == 0 {
		barArea-- // odd width keeps the zero column centred
	}
	zeroPos := barArea / 2
	half := float64(zeroPos)

	railOffset := -1
	if rail > 0 {
		railOffset = int(math.Round(rail / domain * half))
	}

	if rail > 0 {
		fmt.Fprintf(w, "%s  (rail ±%s)\n", title, formatFloat(rail))
	} else {
		fmt.Fprintf(w, "%s\n", title)
	}

	for i, v := range values {
		buf := []rune(strings.Repeat(" ", barArea))
		buf[zeroPos] = '│'
		if railOffset > 0 {
			if p := zeroPos + railOffset; p < barArea && buf[p] == ' ' {
				buf[p] = '┊'
			}
			if p := zeroPos - railOffset; p >= 0 && buf[p] == ' ' {
				buf[p] = '┊'
			}
		}

		flag := ""
		valLabel := formatFloat(v)
		if !math.IsNaN(v) {
			span := int(math.Round(math.Abs(v) / domain * half))
			if v >= 0 {
				for p := zeroPos + 1; p <= zeroPos+span && p < barArea; p++ {
					buf[p] = '█'
				}
			} else {
				for p := zeroPos - span; p < zeroPos; p++ {
					if p >= 0 {
						buf[p] = '█'
					}
				}
			}
			if rail > 0 && math.Abs(v) > rail {
				flag = "  *"
			}
		}

		fmt.Fprintf(w, "%*d  %*s  %s%s\n", lagWidth, i+1, valWidth, valLabel, strings.TrimRight(string(buf), " "), flag)
	}
	return nil
}

// ─── Scatter ──────────────────────────────────────────────────────────────────

// Scatter renders an xy point cloud, used for Q-Q plots. When identity is
// true the axes share one scale and a dotted y=x reference line is drawn
// under the points.
func Scatter(w io.Writer, title string, xs, ys []float64, identity bool, opts PlotOptions) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("chart scatter: x/y lengths differ (%d vs %d)", len(xs), len(ys))
	}

	var px, py []float64
	for i := range xs {
		if !math.IsNaN(xs[i]) && !math.IsNaN(ys[i]) {
			px = append(px, xs[i])
			py = append(py, ys[i])
		}
	}
	if len(px) < 2 {
		return fmt.Errorf("chart scatter: need at least 2 points (got %d)", len(px))
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = termWidth()
	}
	if height <= 0 {
		height = 12
	}

	minX, maxX := valueRange(px)
	minY, maxY := valueRange(py)
	if identity {
		lo, hi := math.Min(minX, minY), math.Max(maxX, maxY)
		minX, maxX, minY, maxY = lo, hi, lo, hi
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}

	ticks := yTicks(minY, maxY, height)
	yLabelWidth := tickWidth(ticks)
	plotWidth := width - yLabelWidth - 2
	if plotWidth < 10 {
		plotWidth = 10
	}

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = make([]rune, plotWidth)
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}

	if identity {
		for col := 0; col < plotWidth; col++ {
			v := minX + float64(col)/float64(plotWidth-1)*(maxX-minX)
			r := clampRow(rowForValue(v, minY, maxY, height), height)
			grid[r][col] = '·'
		}
	}

	for i := range px {
		col := int(math.Round((px[i] - minX) / (maxX - minX) * float64(plotWidth-1)))
		if col < 0 {
			col = 0
		}
		if col >= plotWidth {
			col = plotWidth - 1
		}
		r := clampRow(rowForValue(py[i], minY, maxY, height), height)
		grid[r][col] = '•'
	}

	if title != "" {
		fmt.Fprintf(w, "%s\n", title)
	}
	writeGrid(w, grid, ticks, minY, maxY, yLabelWidth)
	writeXLabels(w, formatFloat(minX), formatFloat((minX+maxX)/2), formatFloat(maxX), yLabelWidth, plotWidth)
	return nil
}

// ─── Bars ─────────────────────────────────────────────────────────────────────

// BarsOptions controls labeled horizontal bar rendering.
type BarsOptions struct {
	// Width is the total character width available. If 0, auto-detects
	// from $COLUMNS, falls back to 80.
	Width int
}

// Bars renders one horizontal bar per label. A threshold > 0 draws a rule
// line at that value and flags bars that fall below it; for a Ljung-Box
// sweep that marks the lags where autocorrelation is detected at 0.05.
//
// Output example:
//
//	Ljung-Box p-values by lag  (rule at 0.05)
//	 1  0.612  ┊█████████████████
//	 2  0.031  █┊                 *
func Bars(w io.Writer, title string, labels []string, values []float64, threshold float64, opts BarsOptions) error {
	if len(labels) != len(values) {
		return fmt.Errorf("chart bars: label/value lengths differ (%d vs %d)", len(labels), len(values))
	}
	if len(values) == 0 {
		return fmt.Errorf("chart bars: nothing to render")
	}
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	domain := threshold
	for _, v := range values {
		if !math.IsNaN(v) && v > domain {
			domain = v
		}
	}
	if domain <= 0 {
		domain = 1
	}

	labelWidth, valWidth := 0, 0
	for i := range labels {
		if len(labels[i]) > labelWidth {
			labelWidth = len(labels[i])
		}
		if l := len(formatFloat(values[i])); l > valWidth {
			valWidth = l
		}
	}

	barArea := totalWidth - labelWidth - valWidth - 6
	if barArea < 8 {
		barArea = 8
	}

	threshPos := -1
	if threshold > 0 {
		threshPos = int(math.Round(threshold / domain * float64(barArea-1)))
	}

	if threshold > 0 {
		fmt.Fprintf(w, "%s  (rule at %s)\n", title, formatFloat(threshold))
	} else if title != "" {
		fmt.Fprintf(w, "%s\n", title)
	}

	for i, v := range values {
		buf := []rune(strings.Repeat(" ", barArea))
		flag := ""
		if !math.IsNaN(v) {
			span := int(math.Round(v / domain * float64(barArea-1)))
			for p := 0; p < span && p < barArea; p++ {
				buf[p] = '█'
			}
			if threshold > 0 && v < threshold {
				flag = "  *"
			}
		}
		// Rule overwrites the bar cell so it stays visible when every bar
		// clears the threshold.
		if threshPos >= 0 && threshPos < barArea {
			buf[threshPos] = '┊'
		}
		fmt.Fprintf(w, "%-*s  %*s  %s%s\n", labelWidth, labels[i], valWidth, formatFloat(v), strings.TrimRight(string(buf), " "), flag)
	}
	return nil
}

// ─── Grid building ────────────────────────────────────────────────────────────

// sampleCols reduces vals to exactly n columns by bucket averaging.
// A bucket with no finite values yields NaN (rendered as a gap).
func sampleCols(vals []float64, n int) []float64 {
	total := len(vals)
	cols := make([]float64, n)
	for col := 0; col < n; col++ {
		lo := col * total / n
		hi := (col+1)*total/n - 1
		if hi >= total {
			hi = total - 1
		}
		sum, count := 0.0, 0
		for i := lo; i <= hi; i++ {
			if !math.IsNaN(vals[i]) {
				sum += vals[i]
				count++
			}
		}
		if count == 0 {
			cols[col] = math.NaN()
		} else {
			cols[col] = sum / float64(count)
		}
	}
	return cols
}

// rowForValue returns the float row index (0=top=max) for a given value.
func rowForValue(v, minVal, maxVal float64, height int) float64 {
	if maxVal == minVal {
		return float64(height) / 2
	}
	return (maxVal - v) / (maxVal - minVal) * float64(height-1)
}

func clampRow(r float64, height int) int {
	n := int(math.Round(r))
	if n < 0 {
		n = 0
	}
	if n >= height {
		n = height - 1
	}
	return n
}

// buildGrid renders columns into a height×width rune grid using
// box-drawing characters to connect adjacent data points.
func buildGrid(cols []float64, minVal, maxVal float64, height int) [][]rune {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = make([]rune, len(cols))
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}

	// Row index per column; -1 marks a NaN gap.
	rowOf := make([]int, len(cols))
	for col, v := range cols {
		if math.IsNaN(v) {
			rowOf[col] = -1
		} else {
			rowOf[col] = clampRow(rowForValue(v, minVal, maxVal, height), height)
		}
	}

	for col := 0; col < len(cols); col++ {
		r := rowOf[col]
		if r < 0 {
			continue
		}

		// -2 sentinel: no neighbour at all (edge column).
		prevRow := -2
		if col > 0 {
			prevRow = rowOf[col-1]
		}
		nextRow := -2
		if col < len(cols)-1 {
			nextRow = rowOf[col+1]
		}

		if prevRow == -2 && nextRow == -2 {
			grid[r][col] = '·'
			continue
		}

		if (prevRow < 0 || prevRow == r) && (nextRow < 0 || nextRow == r) {
			if prevRow == -1 && nextRow == -1 {
				grid[r][col] = '·' // isolated between gaps
			} else {
				grid[r][col] = '─'
			}
			continue
		}

		switch {
		case prevRow >= 0 && prevRow < r && nextRow >= 0 && nextRow < r:
			grid[r][col] = '─' // valley floor
		case prevRow >= 0 && prevRow > r && nextRow >= 0 && nextRow > r:
			grid[r][col] = '─' // peak
		case (prevRow < 0 || prevRow < r) && nextRow >= 0 && nextRow > r:
			grid[r][col] = '╭'
		case (prevRow < 0 || prevRow > r) && nextRow >= 0 && nextRow < r:
			grid[r][col] = '╰'
		case prevRow >= 0 && prevRow < r && (nextRow < 0 || nextRow > r):
			grid[r][col] = '╮'
		case prevRow >= 0 && prevRow > r && (nextRow < 0 || nextRow < r):
			grid[r][col] = '╯'
		default:
			grid[r][col] = '│'
		}

		// Vertical connectors across large jumps from the previous column.
		if prevRow >= 0 && prevRow != r {
			lo, hi := r, prevRow
			if lo > hi {
				lo, hi = hi, lo
			}
			for fill := lo + 1; fill < hi; fill++ {
				if grid[fill][col] == ' ' {
					grid[fill][col] = '│'
				}
			}
		}
	}

	return grid
}

// ─── Axis helpers ─────────────────────────────────────────────────────────────

// writeGrid prints the chart body with Y-axis tick labels and the bottom rail.
func writeGrid(w io.Writer, grid [][]rune, ticks []float64, minVal, maxVal float64, yLabelWidth int) {
	height := len(grid)
	for row := 0; row < height; row++ {
		label := ""
		for _, t := range ticks {
			if math.Abs(rowForValue(t, minVal, maxVal, height)-float64(row)) < 0.5 {
				label = formatFloat(t)
				break
			}
		}
		axisCh := "┤"
		if label == "" {
			axisCh = "│"
		}
		fmt.Fprintf(w, "%*s%s%s\n", yLabelWidth, label, axisCh, strings.TrimRight(string(grid[row]), " "))
	}
	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", yLabelWidth), strings.Repeat("─", len(grid[0])))
}

// yTicks returns 3–5 evenly-spaced tick values for the Y axis.
func yTicks(minVal, maxVal float64, height int) []float64 {
	if maxVal == minVal {
		return []float64{minVal}
	}
	nTicks := 4
	if height <= 6 {
		nTicks = 3
	}
	ticks := make([]float64, nTicks)
	for i := 0; i < nTicks; i++ {
		ticks[i] = minVal + float64(i)*(maxVal-minVal)/float64(nTicks-1)
	}
	return ticks
}

func tickWidth(ticks []float64) int {
	w := 0
	for _, t := range ticks {
		if l := len(formatFloat(t)); l > w {
			w = l
		}
	}
	return w
}

// writeYearAxis prints start, middle, and end year labels under the chart.
func writeYearAxis(w io.Writer, first, mid, last int, yLabelWidth, plotWidth int) {
	writeXLabels(w, strconv.Itoa(first), strconv.Itoa(mid), strconv.Itoa(last), yLabelWidth, plotWidth)
}

func writeXLabels(w io.Writer, start, mid, end string, yLabelWidth, plotWidth int) {
	buf := []rune(strings.Repeat(" ", plotWidth))
	writeAt := func(pos int, s string) {
		for i, ch := range s {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}
	writeAt(0, start)
	writeAt(plotWidth/2-len(mid)/2, mid)
	writeAt(plotWidth-len(end), end)
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", yLabelWidth), strings.TrimRight(string(buf), " "))
}

// valueRange returns min and max over the finite entries of vals.
// Both are NaN when no finite entry exists.
func valueRange(vals []float64) (float64, float64) {
	minVal, maxVal := math.NaN(), math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if math.IsNaN(minVal) || v < minVal {
			minVal = v
		}
		if math.IsNaN(maxVal) || v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// formatFloat formats a float for axis labels: no unnecessary trailing zeros,
// at least one decimal place, compact suffix notation for large magnitudes.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	var s string
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e12:
		s = strconv.FormatFloat(v/1e12, 'f', 1, 64) + "T"
	case abs >= 1e9:
		s = strconv.FormatFloat(v/1e9, 'f', 1, 64) + "B"
	case abs >= 1e6:
		s = strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		s = strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case abs >= 100:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	case abs >= 1:
		s = strconv.FormatFloat(v, 'f', 2, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 4, 64)
	}
	if strings.Contains(s, ".") && !strings.ContainsAny(s, "TBMK") {
		s = strings.TrimRight(s, "0")
		if strings.HasSuffix(s, ".") {
			s += "0"
		}
	}
	return s
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
