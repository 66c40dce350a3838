package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/app"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/pipeline"
	"github.com/random-logic/sta137-final/internal/render"
	"github.com/random-logic/sta137-final/internal/store"
	"github.com/random-logic/sta137-final/internal/transform"
	"github.com/random-logic/sta137-final/internal/wbank"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// stdinPiped reports whether stdin is connected to a pipe or file rather
// than a terminal.
func stdinPiped() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}

// ─── Series input ─────────────────────────────────────────────────────────────

// inputFlags holds the series-source flags shared by every analysis command.
// Resolution order: --csv file, then piped JSONL on stdin, then the local
// store, then a World Bank fetch for the configured country/indicator.
var inputFlags struct {
	CSV       string
	YearCol   string
	ValueCol  string
	SeriesID  string
	Country   string
	Indicator string
	Start     int
	End       int
}

// registerInputFlags binds the shared input flags onto each command that
// reads a series.
func registerInputFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.Flags().StringVar(&inputFlags.CSV, "csv", "",
			"read the series from a CSV file instead of stdin")
		c.Flags().StringVar(&inputFlags.YearCol, "year-col", "",
			"CSV year column header (default: Year)")
		c.Flags().StringVar(&inputFlags.ValueCol, "value-col", "",
			"CSV value column header (default: Imports)")
		c.Flags().StringVar(&inputFlags.SeriesID, "series-id", "",
			"series id stamped on CSV rows (default: the value column header)")
		c.Flags().StringVar(&inputFlags.Country, "country", "",
			"World Bank country code, ISO3 (default: GBR)")
		c.Flags().StringVar(&inputFlags.Indicator, "indicator", "",
			"World Bank indicator code (default: NE.IMP.GNFS.CD)")
		c.Flags().IntVar(&inputFlags.Start, "start", 0,
			"first year, inclusive (0 = full range)")
		c.Flags().IntVar(&inputFlags.End, "end", 0,
			"last year, inclusive (0 = full range)")
	}
}

// readSeriesInput resolves the input series for an analysis command.
// Precedence: --csv file, piped JSONL on stdin, the local store, and finally
// a live World Bank fetch. The store is only consulted for the exact
// country/indicator/range requested; a miss falls through to the API.
func readSeriesInput(ctx context.Context, deps *app.Deps) (*model.SeriesData, error) {
	if inputFlags.CSV != "" {
		return readCSVFile(inputFlags.CSV)
	}

	if stdinPiped() {
		seriesID, obs, err := pipeline.ReadObservations(os.Stdin)
		if err != nil {
			return nil, err
		}
		return &model.SeriesData{SeriesID: seriesID, Obs: obs}, nil
	}

	country := inputFlags.Country
	if country == "" {
		country = deps.Config.Country
	}
	indicator := inputFlags.Indicator
	if indicator == "" {
		indicator = deps.Config.Indicator
	}
	id := wbank.SeriesID(country, indicator)

	if st, err := deps.RequireStore(); err == nil {
		key := store.SeriesKey(id, inputFlags.Start, inputFlags.End)
		if data, ok, err := st.GetSeries(key); err == nil && ok {
			if meta, ok, _ := st.GetSeriesMeta(id); ok {
				data.Meta = &meta
			}
			return &data, nil
		}
	}

	return deps.Client.GetObservations(ctx, country, indicator, wbank.ObsOptions{
		Start: inputFlags.Start,
		End:   inputFlags.End,
	})
}

// readCSVFile loads one annual series from a CSV file using the shared
// column flags.
func readCSVFile(path string) (*model.SeriesData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	seriesID, obs, err := pipeline.ReadCSV(f, pipeline.CSVOptions{
		YearCol:  inputFlags.YearCol,
		ValueCol: inputFlags.ValueCol,
		SeriesID: inputFlags.SeriesID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &model.SeriesData{SeriesID: seriesID, Obs: obs}, nil
}

// ─── Series output ────────────────────────────────────────────────────────────

// writeSeriesOutput writes a series to stdout in JSONL when piped and as a
// table on a terminal, unless --format forces otherwise. JSONL goes through
// pipeline.WriteJSONL so the output round-trips into the next command.
func writeSeriesOutput(command string, data *model.SeriesData, warnings []string, started time.Time) error {
	format := resolveFormat("")
	if globalFlags.Format == "" && globalFlags.Out == "" {
		if pipeline.IsTTY() {
			format = render.FormatTable
		} else {
			format = render.FormatJSONL
		}
	}

	if format == render.FormatJSONL && globalFlags.Out == "" {
		return pipeline.WriteJSONL(os.Stdout, data.SeriesID, data.Obs)
	}

	result := &model.Result{
		Kind:        model.KindSeriesData,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Warnings:    warnings,
		Stats: model.ResultStats{
			DurationMs: time.Since(started).Milliseconds(),
			Items:      len(data.Obs),
		},
	}
	return render.RenderTo(globalFlags.Out, result, format)
}

// ─── Model input preparation ──────────────────────────────────────────────────

// prepareModelInput trims a series to its complete span and applies the
// Box-Cox transform with an estimated exponent. A series that cannot carry
// the transform (non-positive values) falls back to the raw scale with a
// warning, matching the full-report behavior.
func prepareModelInput(data *model.SeriesData, boxcox bool) ([]float64, transform.Params, []string, error) {
	var warnings []string

	ordWarnings, err := model.ValidateAnnual(data.Obs)
	if err != nil {
		return nil, transform.Params{}, nil, err
	}
	warnings = append(warnings, ordWarnings...)

	obs, trimWarnings, err := model.CompleteValues(data.Obs)
	if err != nil {
		return nil, transform.Params{}, nil, err
	}
	warnings = append(warnings, trimWarnings...)

	values := model.Values(obs)
	if !boxcox {
		return values, transform.Params{}, warnings, nil
	}

	lambda, err := transform.EstimateLambda(values)
	if err == nil {
		tx, txErr := transform.BoxCox(values, lambda)
		if txErr == nil {
			return tx, transform.Params{Lambda: lambda, Applied: true}, warnings, nil
		}
		err = txErr
	}
	var de *transform.DomainError
	if errors.As(err, &de) {
		warnings = append(warnings, fmt.Sprintf("box-cox skipped: %v", de))
		return values, transform.Params{}, warnings, nil
	}
	return nil, transform.Params{}, nil, err
}

// lastYear returns the final year of a series after trimming to the
// complete span, for anchoring forecast calendars.
func lastYear(data *model.SeriesData) (int, error) {
	obs, _, err := model.CompleteValues(data.Obs)
	if err != nil {
		return 0, err
	}
	return obs[len(obs)-1].Year, nil
}

// ─── Store helpers ────────────────────────────────────────────────────────────

// persistSeries writes a fetched or loaded series (and its metadata when
// present) to the local store.
func persistSeries(deps *app.Deps, data *model.SeriesData, start, end int) (string, error) {
	st, err := deps.RequireStore()
	if err != nil {
		return "", err
	}

	key := store.SeriesKey(data.SeriesID, start, end)
	if err := st.PutSeries(key, *data); err != nil {
		return "", fmt.Errorf("storing series: %w", err)
	}
	if data.Meta != nil {
		if err := st.PutSeriesMeta(*data.Meta); err != nil {
			return "", fmt.Errorf("storing metadata: %w", err)
		}
	}
	return key, nil
}

// ─── Table helpers ────────────────────────────────────────────────────────────

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// printKVTable renders a two-column key/value listing with aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// ─── Result builders ──────────────────────────────────────────────────────────

// buildSeriesDataResult wraps a *SeriesData in a Result envelope.
func buildSeriesDataResult(command string, data *model.SeriesData) *model.Result {
	return &model.Result{
		Kind:        model.KindSeriesData,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats:       model.ResultStats{Items: len(data.Obs)},
	}
}
