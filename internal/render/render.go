// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/random-logic/sta137-final/internal/analyze"
	"github.com/random-logic/sta137-final/internal/diagnose"
	"github.com/random-logic/sta137-final/internal/forecast"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/pipeline"
	"github.com/random-logic/sta137-final/internal/report"
	"github.com/random-logic/sta137-final/internal/search"
	"github.com/random-logic/sta137-final/internal/stats"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// forecastRow is one horizon step on its own line.
type forecastRow struct {
	Year    int     `json:"year"`
	Mean    float64 `json:"mean"`
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
	Clamped bool    `json:"clamped,omitempty"`
}

func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch result.Kind {
	case model.KindSeriesData:
		sd, ok := result.Data.(*model.SeriesData)
		if !ok {
			return renderJSON(w, result)
		}
		return pipeline.WriteJSONL(w, sd.SeriesID, sd.Obs)
	case model.KindForecast:
		fc, ok := result.Data.(*forecast.Result)
		if !ok {
			return renderJSON(w, result)
		}
		for i := range fc.Years {
			row := forecastRow{
				Year:    fc.Years[i],
				Mean:    fc.Mean[i],
				Lower:   fc.Lower[i],
				Upper:   fc.Upper[i],
				Clamped: fc.Clamped[i],
			}
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	case model.KindFitGrid:
		gr, ok := result.Data.(*search.GridResult)
		if !ok {
			return renderJSON(w, result)
		}
		for i := range gr.Results {
			if err := enc.Encode(&gr.Results[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	switch result.Kind {
	case model.KindSeriesData:
		sd, ok := result.Data.(*model.SeriesData)
		if !ok {
			return fmt.Errorf("unexpected data type for series_data")
		}
		return renderObsTable(w, sd)
	case model.KindSeriesMeta:
		meta, ok := result.Data.(*model.SeriesMeta)
		if !ok {
			// could be a slice
			if metas, ok2 := result.Data.([]model.SeriesMeta); ok2 {
				return renderSeriesMetaSliceTable(w, metas)
			}
			return fmt.Errorf("unexpected data type for series_meta")
		}
		return renderSeriesMetaTable(w, meta)
	case model.KindSummary:
		switch d := result.Data.(type) {
		case *analyze.Analysis:
			return renderAnalysisTable(w, d)
		case *analyze.Summary:
			return renderSummaryTable(w, d)
		default:
			return fmt.Errorf("unexpected data type for summary")
		}
	case model.KindADF:
		r, ok := result.Data.(*stats.ADFResult)
		if !ok {
			return fmt.Errorf("unexpected data type for adf_report")
		}
		return renderADFTable(w, r)
	case model.KindFitGrid:
		gr, ok := result.Data.(*search.GridResult)
		if !ok {
			return fmt.Errorf("unexpected data type for fit_grid")
		}
		return renderGridTable(w, gr.Results, gr.Best)
	case model.KindDiagnostic:
		d, ok := result.Data.(*diagnose.Report)
		if !ok {
			return fmt.Errorf("unexpected data type for diagnostic_report")
		}
		return renderDiagTable(w, d)
	case model.KindForecast:
		fc, ok := result.Data.(*forecast.Result)
		if !ok {
			return fmt.Errorf("unexpected data type for forecast")
		}
		return renderForecastTable(w, fc)
	case model.KindReport:
		rep, ok := result.Data.(*report.Report)
		if !ok {
			return fmt.Errorf("unexpected data type for report")
		}
		return renderReportTable(w, rep)
	default:
		// Fallback: JSON
		return renderJSON(w, result)
	}
}

func renderObsTable(w io.Writer, sd *model.SeriesData) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"SERIES", "YEAR", "VALUE"})
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
	})
	tw.SetAutoWrapText(false)

	for _, obs := range sd.Obs {
		tw.Append([]string{
			sd.SeriesID,
			strconv.Itoa(obs.Year),
			formatValue(obs.Value),
		})
	}
	tw.Render()
	return nil
}

func renderSeriesMetaTable(w io.Writer, m *model.SeriesMeta) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"FIELD", "VALUE"})
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColWidth(80)
	tw.SetAutoWrapText(true)

	country := m.Country
	if m.CountryISO != "" {
		country = fmt.Sprintf("%s (%s)", m.Country, m.CountryISO)
	}
	rows := [][]string{
		{"ID", m.ID},
		{"Title", m.Title},
		{"Country", country},
		{"Indicator", m.Indicator},
		{"Units", m.Units},
		{"Source", m.Source},
	}
	if m.StartYear != 0 || m.EndYear != 0 {
		rows = append(rows, []string{"Range", fmt.Sprintf("%d to %d", m.StartYear, m.EndYear)})
	}
	if !m.FetchedAt.IsZero() {
		rows = append(rows, []string{"Fetched", m.FetchedAt.Format("2006-01-02")})
	}
	if m.Notes != "" {
		notes := m.Notes
		if len(notes) > 200 {
			notes = notes[:200] + "…"
		}
		rows = append(rows, []string{"Notes", notes})
	}
	for _, r := range rows {
		tw.Append(r)
	}
	tw.Render()
	return nil
}

func renderSeriesMetaSliceTable(w io.Writer, metas []model.SeriesMeta) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"ID", "TITLE", "COUNTRY", "RANGE", "SOURCE"})
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	tw.SetColWidth(40)

	for _, m := range metas {
		title := m.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		rng := ""
		if m.StartYear != 0 || m.EndYear != 0 {
			rng = fmt.Sprintf("%d-%d", m.StartYear, m.EndYear)
		}
		tw.Append([]string{
			m.ID,
			title,
			m.CountryISO,
			rng,
			m.Source,
		})
	}
	tw.Render()
	return nil
}

func renderSummaryTable(w io.Writer, s *analyze.Summary) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"FIELD", "VALUE"})
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	tw.SetAutoWrapText(false)

	rows := [][]string{
		{"Series", s.SeriesID},
		{"Years", fmt.Sprintf("%d to %d", s.FirstYear, s.LastYear)},
		{"Observations", strconv.Itoa(s.Count)},
		{"Missing", fmt.Sprintf("%d (%.1f%%)", s.Missing, s.MissingPct)},
		{"Mean", formatValue(s.Mean)},
		{"Std Dev", formatValue(s.Std)},
		{"Min", formatValue(s.Min)},
		{"P25", formatValue(s.P25)},
		{"Median", formatValue(s.Median)},
		{"P75", formatValue(s.P75)},
		{"Max", formatValue(s.Max)},
		{"Skewness", formatValue(s.Skew)},
		{"Kurtosis", formatValue(s.Kurtosis)},
		{"First", formatValue(s.First)},
		{"Last", formatValue(s.Last)},
		{"Change", formatValue(s.Change)},
		{"Change %", formatValue(s.ChangePct)},
	}
	for _, r := range rows {
		tw.Append(r)
	}
	tw.Render()
	return nil
}

func renderAnalysisTable(w io.Writer, a *analyze.Analysis) error {
	if a.Summary != nil {
		if err := renderSummaryTable(w, a.Summary); err != nil {
			return err
		}
	}
	if t := a.Trend; t != nil {
		fmt.Fprintf(w, "\nTrend (%s): %s, slope %s per year, r2 %s\n",
			t.Method, t.Direction, formatValue(t.Slope), formatValue(t.R2))
	}
	if len(a.ACF) > 0 {
		fmt.Fprintf(w, "\nAutocorrelations, white-noise band ±%s (* outside band)\n", formatValue(a.ConfBound))
		return renderLagTable(w, a.ACF, a.PACF, a.ConfBound)
	}
	return nil
}

func renderLagTable(w io.Writer, acf, pacf []float64, bound float64) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"LAG", "ACF", "PACF"})
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetAutoWrapText(false)

	flag := func(v float64) string {
		s := formatValue(v)
		if bound > 0 && !math.IsNaN(v) && math.Abs(v) > bound {
			s += " *"
		}
		return s
	}
	for i, v := range acf {
		p := math.NaN()
		if i < len(pacf) {
			p = pacf[i]
		}
		tw.Append([]string{strconv.Itoa(i + 1), flag(v), flag(p)})
	}
	tw.Render()
	return nil
}

func renderADFTable(w io.Writer, r *stats.ADFResult) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"FIELD", "VALUE"})
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	tw.SetAutoWrapText(false)

	verdict := "non-stationary (cannot reject unit root)"
	if r.Stationary {
		verdict = "stationary (reject unit root)"
	}
	rows := [][]string{
		{"Statistic", formatValue(r.Statistic)},
		{"P-Value", formatValue(r.PValue)},
		{"Used Lag", strconv.Itoa(r.UsedLag)},
		{"Observations", strconv.Itoa(r.NObs)},
	}
	for _, k := range sortedCriticalKeys(r.Critical) {
		rows = append(rows, []string{"Critical " + k, formatValue(r.Critical[k])})
	}
	rows = append(rows, []string{"Verdict", verdict})
	for _, row := range rows {
		tw.Append(row)
	}
	tw.Render()
	return nil
}

func renderGridTable(w io.Writer, results []search.FitResult, best *search.FitResult) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"MODEL", "AIC", "BIC", "LJUNG-BOX P"})
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	tw.SetAutoWrapText(false)

	failed := 0
	for i := range results {
		r := &results[i]
		if !r.Converged {
			failed++
		}
		tw.Append([]string{
			r.Candidate.String(),
			formatValue(r.AIC),
			formatValue(r.BIC),
			formatValue(r.LjungBoxP),
		})
	}
	tw.Render()

	if best != nil {
		fmt.Fprintf(w, "\nSelected: %s  (AIC %s, BIC %s)\n",
			best.Candidate, formatValue(best.AIC), formatValue(best.BIC))
	}
	if failed > 0 {
		fmt.Fprintf(w, "%d of %d candidates failed to fit.\n", failed, len(results))
	}
	return nil
}

func renderDiagTable(w io.Writer, d *diagnose.Report) error {
	fmt.Fprintf(w, "n=%d residuals, %d fitted parameter(s), alpha %.2f\n\n",
		d.N, d.FitDF, diagnose.Alpha)

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"TEST", "STATISTIC", "P-VALUE", "VERDICT"})
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})
	tw.SetAutoWrapText(false)

	appendTest := func(name string, t diagnose.TestResult) {
		stat, p := formatValue(t.Statistic), formatValue(t.PValue)
		if t.Unavailable {
			stat, p = ".", "."
		}
		tw.Append([]string{name, stat, p, verdictString(t)})
	}
	appendTest(diagnose.TestLjungBox, d.LjungBox)
	appendTest(diagnose.TestShapiroWilk, d.ShapiroWilk)
	appendTest(diagnose.TestARCH, d.ARCH)
	tw.Render()

	for _, n := range d.Notes {
		fmt.Fprintf(w, "note: %s\n", n)
	}
	return nil
}

func renderForecastTable(w io.Writer, fc *forecast.Result) error {
	pct := int(math.Round(fc.Level * 100))
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"YEAR", "FORECAST", fmt.Sprintf("LOWER %d", pct), fmt.Sprintf("UPPER %d", pct)})
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	tw.SetAutoWrapText(false)

	clamped := false
	for i := range fc.Years {
		year := strconv.Itoa(fc.Years[i])
		if fc.Clamped[i] {
			year += " *"
			clamped = true
		}
		tw.Append([]string{
			year,
			formatValue(fc.Mean[i]),
			formatValue(fc.Lower[i]),
			formatValue(fc.Upper[i]),
		})
	}
	tw.Render()

	if clamped {
		fmt.Fprintln(w, "* interval bound clamped at the transform domain edge")
	}
	return nil
}

func renderReportTable(w io.Writer, rep *report.Report) error {
	fmt.Fprintf(w, "%s\n", rep.SeriesID)
	if rep.Meta != nil && rep.Meta.Title != "" {
		fmt.Fprintf(w, "%s\n", rep.Meta.Title)
	}
	fmt.Fprintf(w, "%d to %d • %d observations\n", rep.FirstYear, rep.LastYear, rep.N)

	if rep.Summary != nil {
		sectionHeader(w, "Summary")
		if err := renderSummaryTable(w, rep.Summary); err != nil {
			return err
		}
		if t := rep.Trend; t != nil {
			fmt.Fprintf(w, "\nTrend (%s): %s, slope %s per year, r2 %s\n",
				t.Method, t.Direction, formatValue(t.Slope), formatValue(t.R2))
		}
	}

	sectionHeader(w, "Transform")
	if rep.Transform.Applied {
		fmt.Fprintf(w, "Box-Cox lambda %s applied before differencing.\n", formatValue(rep.Transform.Lambda))
	} else {
		fmt.Fprintln(w, "No variance-stabilizing transform; modeling the raw scale.")
	}
	d := 1
	if rep.Best != nil {
		d = rep.Best.Candidate.D
	}
	fmt.Fprintf(w, "Differencing order %d leaves %d observations.\n", d, len(rep.Differenced))

	if rep.ADF != nil {
		sectionHeader(w, "Stationarity")
		if err := renderADFTable(w, rep.ADF); err != nil {
			return err
		}
	}

	if len(rep.Grid) > 0 {
		sectionHeader(w, "Model Search")
		if err := renderGridTable(w, rep.Grid, rep.Best); err != nil {
			return err
		}
	}

	if rep.Diagnostics != nil {
		sectionHeader(w, "Diagnostics")
		if err := renderDiagTable(w, rep.Diagnostics); err != nil {
			return err
		}
	}

	if rep.Forecast != nil {
		sectionHeader(w, "Forecast")
		if err := renderForecastTable(w, rep.Forecast); err != nil {
			return err
		}
	}
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch result.Kind {
	case model.KindSeriesData:
		sd, ok := result.Data.(*model.SeriesData)
		if !ok {
			return fmt.Errorf("unexpected data type for series_data")
		}
		_ = cw.Write([]string{"series_id", "year", "value", "value_raw"})
		for _, obs := range sd.Obs {
			_ = cw.Write([]string{
				sd.SeriesID,
				strconv.Itoa(obs.Year),
				formatValue(obs.Value),
				obs.ValueRaw,
			})
		}
	case model.KindSeriesMeta:
		if metas, ok := result.Data.([]model.SeriesMeta); ok {
			_ = cw.Write([]string{"id", "title", "country", "country_iso", "indicator", "units", "source", "start_year", "end_year"})
			for _, m := range metas {
				_ = cw.Write([]string{
					m.ID, m.Title, m.Country, m.CountryISO, m.Indicator,
					m.Units, m.Source,
					strconv.Itoa(m.StartYear), strconv.Itoa(m.EndYear),
				})
			}
		} else if meta, ok := result.Data.(*model.SeriesMeta); ok {
			_ = cw.Write([]string{"field", "value"})
			_ = cw.Write([]string{"id", meta.ID})
			_ = cw.Write([]string{"title", meta.Title})
			_ = cw.Write([]string{"country", meta.Country})
			_ = cw.Write([]string{"indicator", meta.Indicator})
			_ = cw.Write([]string{"units", meta.Units})
			_ = cw.Write([]string{"source", meta.Source})
		}
	case model.KindFitGrid:
		gr, ok := result.Data.(*search.GridResult)
		if !ok {
			return fmt.Errorf("unexpected data type for fit_grid")
		}
		_ = cw.Write([]string{"p", "d", "q", "aic", "bic", "ljung_box_p", "converged", "selected", "error"})
		for i := range gr.Results {
			r := &gr.Results[i]
			selected := gr.Best != nil && r.Candidate == gr.Best.Candidate
			_ = cw.Write([]string{
				strconv.Itoa(r.Candidate.P),
				strconv.Itoa(r.Candidate.D),
				strconv.Itoa(r.Candidate.Q),
				formatValue(r.AIC),
				formatValue(r.BIC),
				formatValue(r.LjungBoxP),
				strconv.FormatBool(r.Converged),
				strconv.FormatBool(selected),
				r.Err,
			})
		}
	case model.KindDiagnostic:
		d, ok := result.Data.(*diagnose.Report)
		if !ok {
			return fmt.Errorf("unexpected data type for diagnostic_report")
		}
		_ = cw.Write([]string{"test", "statistic", "p_value", "pass", "unavailable", "reason"})
		writeRow := func(name string, t diagnose.TestResult) {
			_ = cw.Write([]string{
				name,
				formatValue(t.Statistic),
				formatValue(t.PValue),
				strconv.FormatBool(t.Pass),
				strconv.FormatBool(t.Unavailable),
				t.Reason,
			})
		}
		writeRow(diagnose.TestLjungBox, d.LjungBox)
		writeRow(diagnose.TestShapiroWilk, d.ShapiroWilk)
		writeRow(diagnose.TestARCH, d.ARCH)
	case model.KindForecast:
		fc, ok := result.Data.(*forecast.Result)
		if !ok {
			return fmt.Errorf("unexpected data type for forecast")
		}
		_ = cw.Write([]string{"year", "forecast", "lower", "upper", "clamped"})
		for i := range fc.Years {
			_ = cw.Write([]string{
				strconv.Itoa(fc.Years[i]),
				formatValue(fc.Mean[i]),
				formatValue(fc.Lower[i]),
				formatValue(fc.Upper[i]),
				strconv.FormatBool(fc.Clamped[i]),
			})
		}
	default:
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch result.Kind {
	case model.KindSeriesData:
		sd, ok := result.Data.(*model.SeriesData)
		if !ok {
			return renderJSON(w, result)
		}
		fmt.Fprintf(w, "| SERIES | YEAR | VALUE |\n|--------|------|-------|\n")
		for _, obs := range sd.Obs {
			fmt.Fprintf(w, "| %s | %d | %s |\n",
				mdEscape(sd.SeriesID),
				obs.Year,
				formatValue(obs.Value),
			)
		}
		return nil
	case model.KindSeriesMeta:
		if metas, ok := result.Data.([]model.SeriesMeta); ok {
			fmt.Fprintf(w, "| ID | TITLE | COUNTRY | RANGE | SOURCE |\n|----|----|----|----|----|\n")
			for _, m := range metas {
				title := m.Title
				if len(title) > 50 {
					title = title[:47] + "..."
				}
				rng := ""
				if m.StartYear != 0 || m.EndYear != 0 {
					rng = fmt.Sprintf("%d-%d", m.StartYear, m.EndYear)
				}
				fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
					m.ID, mdEscape(title), m.CountryISO, rng, mdEscape(m.Source))
			}
			return nil
		}
		return renderJSON(w, result)
	case model.KindFitGrid:
		gr, ok := result.Data.(*search.GridResult)
		if !ok {
			return renderJSON(w, result)
		}
		fmt.Fprintf(w, "| MODEL | AIC | BIC | LJUNG-BOX P |\n|-------|-----|-----|-------------|\n")
		for i := range gr.Results {
			r := &gr.Results[i]
			name := r.Candidate.String()
			if gr.Best != nil && r.Candidate == gr.Best.Candidate {
				name = "**" + name + "**"
			}
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
				name, formatValue(r.AIC), formatValue(r.BIC), formatValue(r.LjungBoxP))
		}
		return nil
	case model.KindDiagnostic:
		d, ok := result.Data.(*diagnose.Report)
		if !ok {
			return renderJSON(w, result)
		}
		fmt.Fprintf(w, "| TEST | STATISTIC | P-VALUE | VERDICT |\n|------|-----------|---------|---------|\n")
		writeRow := func(name string, t diagnose.TestResult) {
			stat, p := formatValue(t.Statistic), formatValue(t.PValue)
			if t.Unavailable {
				stat, p = ".", "."
			}
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n", name, stat, p, mdEscape(verdictString(t)))
		}
		writeRow(diagnose.TestLjungBox, d.LjungBox)
		writeRow(diagnose.TestShapiroWilk, d.ShapiroWilk)
		writeRow(diagnose.TestARCH, d.ARCH)
		return nil
	case model.KindForecast:
		fc, ok := result.Data.(*forecast.Result)
		if !ok {
			return renderJSON(w, result)
		}
		pct := int(math.Round(fc.Level * 100))
		fmt.Fprintf(w, "| YEAR | FORECAST | LOWER %d | UPPER %d |\n|------|----------|----------|----------|\n", pct, pct)
		for i := range fc.Years {
			fmt.Fprintf(w, "| %d | %s | %s | %s |\n",
				fc.Years[i], formatValue(fc.Mean[i]), formatValue(fc.Lower[i]), formatValue(fc.Upper[i]))
		}
		return nil
	default:
		return renderJSON(w, result)
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d items • %dms]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// formatValue formats a numeric value for display.
// Always shows at least one decimal place (e.g. 4.0, not 4).
// Trims unnecessary trailing zeros beyond the first (e.g. 3.400000 → 3.4).
// Missing values (NaN, and the Inf sentinels on failed fits) render as ".".
func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "."
	}
	// Clamped interval bounds can sit at the float64 edge, where %.6f
	// would print hundreds of digits.
	if math.Abs(v) >= 1e15 {
		return strconv.FormatFloat(v, 'g', 6, 64)
	}
	// Trim trailing zeros but keep at least one digit after the decimal point.
	s := strings.TrimRight(fmt.Sprintf("%.6f", v), "0")
	if strings.HasSuffix(s, ".") {
		s += "0" // "4." → "4.0"
	}
	return s
}

// verdictString is the rendered outcome of one diagnostic test.
func verdictString(t diagnose.TestResult) string {
	switch {
	case t.Unavailable:
		if t.Reason != "" {
			return "unavailable: " + t.Reason
		}
		return "unavailable"
	case t.Pass:
		return "pass"
	default:
		return "FAIL"
	}
}

// sortedCriticalKeys orders ADF critical-value labels ("1%", "5%", "10%")
// numerically; lexical order would put 10% before 5%.
func sortedCriticalKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, _ := strconv.ParseFloat(strings.TrimSuffix(keys[i], "%"), 64)
		pj, _ := strconv.ParseFloat(strings.TrimSuffix(keys[j], "%"), 64)
		return pi < pj
	})
	return keys
}

func sectionHeader(w io.Writer, name string) {
	title := strings.ToUpper(name)
	fill := 56 - len(title)
	if fill < 2 {
		fill = 2
	}
	fmt.Fprintf(w, "\n── %s %s\n\n", title, strings.Repeat("─", fill))
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
