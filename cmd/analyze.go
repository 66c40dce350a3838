package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/analyze"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/render"
	"github.com/random-logic/sta137-final/internal/stats"
)

var (
	analyzeMethod string
	analyzeMaxLag int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Descriptive summary, trend fit, and autocorrelation structure",
	Long: `Analyze computes the descriptive layer for one series: count and missing
tally, moments and quantiles, first/last change, a fitted trend line, and
the ACF/PACF with the white-noise significance band.

The trend fit is ordinary least squares by default; --method theil-sen uses
the median-of-slopes estimator, which shrugs off outlying years.`,
	Example: `  sta137 analyze
  sta137 analyze --csv data.csv --method theil-sen
  sta137 load data.csv | sta137 analyze --format json
  sta137 fetch USA | sta137 analyze --max-lag 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()

		method := analyze.TrendMethod(analyzeMethod)
		if method != analyze.TrendLinear && method != analyze.TrendTheilSen {
			return fmt.Errorf("unknown --method %q: expected linear|theil-sen", analyzeMethod)
		}
		if analyzeMaxLag < 1 {
			return fmt.Errorf("--max-lag must be >= 1, got %d", analyzeMaxLag)
		}

		start := time.Now()

		data, err := readSeriesInput(cmd.Context(), deps)
		if err != nil {
			return err
		}

		var warnings []string
		ordWarnings, err := model.ValidateAnnual(data.Obs)
		if err != nil {
			return err
		}
		warnings = append(warnings, ordWarnings...)

		summary, err := analyze.Summarize(data.SeriesID, data.Obs)
		if err != nil {
			return err
		}

		out := &analyze.Analysis{Summary: summary}

		// The trend and autocorrelation layers degrade to warnings; a series
		// too short for them still gets its summary.
		if tr, err := analyze.Trend(data.SeriesID, data.Obs, method); err == nil {
			out.Trend = tr
		} else {
			warnings = append(warnings, "trend unavailable: "+err.Error())
		}

		if obs, _, err := model.CompleteValues(data.Obs); err == nil {
			values := model.Values(obs)
			maxLag := analyzeMaxLag
			if n := len(values) - 1; n < maxLag {
				maxLag = n
			}
			if acf, err := stats.ACF(values, maxLag); err == nil {
				out.ACF = acf[1:]
				out.ConfBound = stats.ConfBound(len(values))
			}
			if pacf, err := stats.PACF(values, maxLag); err == nil {
				out.PACF = pacf[1:]
			}
		} else {
			warnings = append(warnings, "autocorrelations unavailable: "+err.Error())
		}

		result := &model.Result{
			Kind:        model.KindSummary,
			GeneratedAt: time.Now(),
			Command:     fmt.Sprintf("analyze %s", data.SeriesID),
			Data:        out,
			Warnings:    warnings,
			Stats: model.ResultStats{
				DurationMs: time.Since(start).Milliseconds(),
				Items:      summary.Count,
			},
		}
		format := resolveFormat(deps.Config.Format)
		if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
			return err
		}
		render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeMethod, "method", "linear",
		"trend method: linear|theil-sen")
	analyzeCmd.Flags().IntVar(&analyzeMaxLag, "max-lag", 20,
		"highest autocorrelation lag reported")

	registerInputFlags(analyzeCmd)
}
