package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/chart"
	"github.com/random-logic/sta137-final/internal/diagnose"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/pipeline"
	"github.com/random-logic/sta137-final/internal/render"
	"github.com/random-logic/sta137-final/internal/report"
	"github.com/random-logic/sta137-final/internal/stats"
)

var (
	reportMaxP     int
	reportMaxQ     int
	reportD        int
	reportHorizon  int
	reportLevel    float64
	reportStrict   bool
	reportParallel bool
	reportNoBoxCox bool
	reportNoCharts bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the full analysis pipeline in one pass",
	Long: `Report runs every stage on one series: descriptive summary, Box-Cox
transform, differencing, stationarity test, ARIMA grid search, model
selection, residual diagnostics, and the forecast. Descriptive stages that
cannot run degrade to warnings; the modeling chain is all or nothing.

On a terminal the tables are followed by ASCII charts of the series, the
autocorrelations, the residual diagnostics, and the forecast with its
interval band. Suppress them with --no-charts; they are also skipped for
non-table formats and when writing to a file.`,
	Example: `  sta137 report
  sta137 report --csv data.csv --horizon 10
  sta137 report --format json --out report.json
  sta137 fetch USA | sta137 report --no-charts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()

		cfg := report.Config{
			MaxP:    deps.Config.MaxP,
			MaxQ:    deps.Config.MaxQ,
			D:       reportD,
			Horizon: deps.Config.Horizon,
			Level:   deps.Config.Level,
			BoxCox:  deps.Config.BoxCox && !reportNoBoxCox,
			Strict:  reportStrict,
			Workers: 1,
		}
		if reportMaxP >= 0 {
			cfg.MaxP = reportMaxP
		}
		if reportMaxQ >= 0 {
			cfg.MaxQ = reportMaxQ
		}
		if reportHorizon > 0 {
			cfg.Horizon = reportHorizon
		}
		if reportLevel > 0 {
			cfg.Level = reportLevel
		}
		if reportParallel {
			cfg.Workers = deps.Config.Concurrency
		}

		start := time.Now()

		data, err := readSeriesInput(cmd.Context(), deps)
		if err != nil {
			return err
		}

		rep, err := report.Run(cmd.Context(), data, cfg)
		if err != nil {
			return err
		}

		result := &model.Result{
			Kind:        model.KindReport,
			GeneratedAt: time.Now(),
			Command:     fmt.Sprintf("report %s", rep.SeriesID),
			Data:        rep,
			Warnings:    rep.Warnings,
			Stats: model.ResultStats{
				DurationMs: time.Since(start).Milliseconds(),
				Items:      rep.N,
			},
		}
		format := resolveFormat(deps.Config.Format)
		if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
			return err
		}

		if format == render.FormatTable && globalFlags.Out == "" &&
			!reportNoCharts && pipeline.IsTTY() {
			drawReportCharts(cmd.OutOrStdout(), rep)
		}

		render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
		return nil
	},
}

// drawReportCharts appends the chart pack to a terminal report, in the same
// order the analysis ran. Charts are best effort: one that cannot render on
// this report is skipped, never fatal.
func drawReportCharts(w io.Writer, rep *report.Report) {
	fmt.Fprintln(w)
	if err := chart.Plot(w, rep.SeriesID, rep.Observed, chart.PlotOptions{}); err == nil {
		fmt.Fprintln(w)
	}

	if len(rep.Differenced) > 0 {
		rail := stats.ConfBound(len(rep.Differenced))
		if len(rep.ACF) > 0 {
			if err := chart.Stems(w, "ACF of the differenced series", rep.ACF, rail, chart.StemsOptions{}); err == nil {
				fmt.Fprintln(w)
			}
		}
		if len(rep.PACF) > 0 {
			if err := chart.Stems(w, "PACF of the differenced series", rep.PACF, rail, chart.StemsOptions{}); err == nil {
				fmt.Fprintln(w)
			}
		}
	}

	if d := rep.Diagnostics; d != nil {
		if len(d.Sweep) > 0 {
			labels := make([]string, len(d.Sweep))
			values := make([]float64, len(d.Sweep))
			for i, pt := range d.Sweep {
				labels[i] = strconv.Itoa(pt.Lag)
				values[i] = pt.PValue
			}
			if err := chart.Bars(w, "Ljung-Box p-values by lag", labels, values, diagnose.Alpha, chart.BarsOptions{}); err == nil {
				fmt.Fprintln(w)
			}
		}
		if len(d.QQ) > 0 {
			xs := make([]float64, len(d.QQ))
			ys := make([]float64, len(d.QQ))
			for i, pt := range d.QQ {
				xs[i] = pt.Theoretical
				ys[i] = pt.Sample
			}
			if err := chart.Scatter(w, "Residual Q-Q", xs, ys, true, chart.PlotOptions{}); err == nil {
				fmt.Fprintln(w)
			}
		}
	}

	if fc := rep.Forecast; fc != nil {
		band := chart.Band{
			Years: fc.Years,
			Mean:  fc.Mean,
			Lower: fc.Lower,
			Upper: fc.Upper,
		}
		title := fmt.Sprintf("%s with %d-year forecast", rep.SeriesID, fc.Horizon)
		if err := chart.PlotWithBands(w, rep.SeriesID, rep.Observed, band, chart.PlotOptions{Title: title}); err == nil {
			fmt.Fprintln(w)
		}
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().IntVar(&reportMaxP, "max-p", -1,
		"highest AR order tried, inclusive (default: 4)")
	reportCmd.Flags().IntVar(&reportMaxQ, "max-q", -1,
		"highest MA order tried, inclusive (default: 4)")
	reportCmd.Flags().IntVar(&reportD, "d", 1,
		"differencing order")
	reportCmd.Flags().IntVar(&reportHorizon, "horizon", 0,
		"forecast steps (default: 5)")
	reportCmd.Flags().Float64Var(&reportLevel, "level", 0,
		"prediction interval coverage in (0, 1) (default: 0.95)")
	reportCmd.Flags().BoolVar(&reportStrict, "strict", false,
		"error on out-of-domain interval bounds instead of clamping")
	reportCmd.Flags().BoolVar(&reportParallel, "parallel", false,
		"fit grid candidates on a worker pool sized by --concurrency")
	reportCmd.Flags().BoolVar(&reportNoBoxCox, "no-boxcox", false,
		"model the raw scale without the variance-stabilizing transform")
	reportCmd.Flags().BoolVar(&reportNoCharts, "no-charts", false,
		"omit the ASCII charts after the tables")

	registerInputFlags(reportCmd)
}
