package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/app"
	"github.com/random-logic/sta137-final/internal/chart"
	"github.com/random-logic/sta137-final/internal/diagnose"
	"github.com/random-logic/sta137-final/internal/forecast"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/search"
	"github.com/random-logic/sta137-final/internal/stats"
	"github.com/random-logic/sta137-final/internal/transform"
)

var (
	chartView     string
	chartWidth    int
	chartHeight   int
	chartTitle    string
	chartMaxLag   int
	chartHorizon  int
	chartLevel    float64
	chartD        int
	chartNoBoxCox bool
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render an ASCII chart of the series or its model",
	Long: `Chart renders one view of the input series to the terminal.

Views:
  series     the series itself, NaN values as gaps
  acf, pacf  autocorrelation lag bars with the white-noise rails
  qq         residual quantiles against normal quantiles
  sweep      Ljung-Box p-values lag by lag, rule at 0.05
  forecast   history plus the forecast mean with its interval band

The qq, sweep, and forecast views fit the model first, using the same grid
search and transform defaults as the fit command. The acf and pacf views
chart the series exactly as given; pipe through transform first to see the
differenced structure:

  sta137 load data.csv | sta137 transform --op diff | sta137 chart --view acf`,
	Example: `  sta137 chart --view series
  sta137 chart --view forecast --horizon 10 --csv data.csv
  sta137 load data.csv | sta137 chart --view qq
  sta137 fetch USA | sta137 transform --op diff | sta137 chart --view pacf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()

		data, err := readSeriesInput(cmd.Context(), deps)
		if err != nil {
			return err
		}

		plotOpts := chart.PlotOptions{
			Width:  chartWidth,
			Height: chartHeight,
			Title:  chartTitle,
		}

		switch chartView {
		case "series":
			return chart.Plot(os.Stdout, data.SeriesID, data.Obs, plotOpts)
		case "acf", "pacf":
			return chartLagView(data, chartView)
		case "qq", "sweep":
			return chartResidualView(cmd, deps, data, chartView)
		case "forecast":
			return chartForecastView(cmd, deps, data, plotOpts)
		default:
			return fmt.Errorf("unknown --view %q: expected series|acf|pacf|qq|sweep|forecast", chartView)
		}
	},
}

// chartLagView draws the ACF or PACF lag bars for the series as given.
func chartLagView(data *model.SeriesData, view string) error {
	obs, _, err := model.CompleteValues(data.Obs)
	if err != nil {
		return err
	}
	values := model.Values(obs)

	maxLag := chartMaxLag
	if n := len(values) - 1; n < maxLag {
		maxLag = n
	}

	var lags []float64
	var title string
	if view == "acf" {
		acf, err := stats.ACF(values, maxLag)
		if err != nil {
			return err
		}
		lags, title = acf[1:], "ACF"
	} else {
		pacf, err := stats.PACF(values, maxLag)
		if err != nil {
			return err
		}
		lags, title = pacf[1:], "PACF"
	}
	if chartTitle != "" {
		title = chartTitle
	}

	rail := stats.ConfBound(len(values))
	return chart.Stems(os.Stdout, title, lags, rail, chart.StemsOptions{Width: chartWidth})
}

// chartResidualView fits the model and draws the Q-Q point cloud or the
// Ljung-Box sweep of its residuals.
func chartResidualView(cmd *cobra.Command, deps *app.Deps, data *model.SeriesData, view string) error {
	best, _, _, err := chartFitBest(cmd, deps, data)
	if err != nil {
		return err
	}
	diag, err := diagnose.Run(best.Residuals, best.Candidate.P+best.Candidate.Q)
	if err != nil {
		return err
	}

	if view == "qq" {
		if len(diag.QQ) == 0 {
			return fmt.Errorf("no Q-Q data for this residual vector")
		}
		xs := make([]float64, len(diag.QQ))
		ys := make([]float64, len(diag.QQ))
		for i, pt := range diag.QQ {
			xs[i] = pt.Theoretical
			ys[i] = pt.Sample
		}
		title := chartTitle
		if title == "" {
			title = "Residual Q-Q"
		}
		return chart.Scatter(os.Stdout, title, xs, ys, true, chart.PlotOptions{
			Width:  chartWidth,
			Height: chartHeight,
		})
	}

	if len(diag.Sweep) == 0 {
		return fmt.Errorf("no Ljung-Box sweep for this residual vector")
	}
	labels := make([]string, len(diag.Sweep))
	values := make([]float64, len(diag.Sweep))
	for i, pt := range diag.Sweep {
		labels[i] = strconv.Itoa(pt.Lag)
		values[i] = pt.PValue
	}
	title := chartTitle
	if title == "" {
		title = "Ljung-Box p-values by lag"
	}
	return chart.Bars(os.Stdout, title, labels, values, diagnose.Alpha, chart.BarsOptions{Width: chartWidth})
}

// chartForecastView fits the model, forecasts, and draws the history with
// the forecast band.
func chartForecastView(cmd *cobra.Command, deps *app.Deps, data *model.SeriesData, plotOpts chart.PlotOptions) error {
	best, params, obs, err := chartFitBest(cmd, deps, data)
	if err != nil {
		return err
	}

	fc, err := best.Model.Forecast(chartHorizon, chartLevel)
	if err != nil {
		return err
	}
	out, err := forecast.Apply(fc, params, forecast.Options{LastYear: obs[len(obs)-1].Year})
	if err != nil {
		return err
	}
	for _, w := range out.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %s\n", w)
	}

	if plotOpts.Title == "" {
		plotOpts.Title = fmt.Sprintf("%s with %d-year forecast", data.SeriesID, out.Horizon)
	}
	return chart.PlotWithBands(os.Stdout, data.SeriesID, obs, chart.Band{
		Years: out.Years,
		Mean:  out.Mean,
		Lower: out.Lower,
		Upper: out.Upper,
	}, plotOpts)
}

// chartFitBest runs the standard transform and grid search for the
// model-backed views, returning the winning fit, the transform parameters,
// and the trimmed observations.
func chartFitBest(cmd *cobra.Command, deps *app.Deps, data *model.SeriesData) (*search.FitResult, transform.Params, []model.Observation, error) {
	boxcox := deps.Config.BoxCox && !chartNoBoxCox
	working, params, _, err := prepareModelInput(data, boxcox)
	if err != nil {
		return nil, transform.Params{}, nil, err
	}
	obs, _, err := model.CompleteValues(data.Obs)
	if err != nil {
		return nil, transform.Params{}, nil, err
	}

	grid, err := search.Grid(cmd.Context(), working, search.Options{
		MaxP:    deps.Config.MaxP,
		MaxQ:    deps.Config.MaxQ,
		D:       chartD,
		Workers: 1,
	})
	if err != nil {
		return nil, transform.Params{}, nil, err
	}
	best, err := search.SelectBest(grid)
	if err != nil {
		return nil, transform.Params{}, nil, err
	}
	return best, params, obs, nil
}

func init() {
	rootCmd.AddCommand(chartCmd)

	chartCmd.Flags().StringVar(&chartView, "view", "",
		"view: series|acf|pacf|qq|sweep|forecast (required)")
	chartCmd.Flags().IntVar(&chartWidth, "width", 0,
		"chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	chartCmd.Flags().IntVar(&chartHeight, "height", 0,
		"chart height in rows (default 12)")
	chartCmd.Flags().StringVar(&chartTitle, "title", "",
		"chart title (default: series ID)")
	chartCmd.Flags().IntVar(&chartMaxLag, "max-lag", 20,
		"highest lag for the acf and pacf views")
	chartCmd.Flags().IntVar(&chartHorizon, "horizon", 5,
		"forecast steps for the forecast view")
	chartCmd.Flags().Float64Var(&chartLevel, "level", 0.95,
		"interval coverage for the forecast view")
	chartCmd.Flags().IntVar(&chartD, "d", 1,
		"differencing order for the model-backed views")
	chartCmd.Flags().BoolVar(&chartNoBoxCox, "no-boxcox", false,
		"model the raw scale without the variance-stabilizing transform")
	chartCmd.MarkFlagRequired("view")

	registerInputFlags(chartCmd)
}
