package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/render"
	"github.com/random-logic/sta137-final/internal/wbank"
)

var (
	fetchIndicator string
	fetchStart     int
	fetchEnd       int
	fetchStore     bool
	fetchMetaOnly  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [country]",
	Short: "Fetch an annual series from the World Bank API",
	Long: `Fetch pulls the annual series for one country and indicator from the World
Bank API v2. The country argument is an ISO3 code and defaults to the
configured country (GBR). Null observations come through as missing values
so gaps stay visible downstream.

Use --store to persist the series and its metadata to the local database;
later commands then run offline against the stored copy.`,
	Example: `  sta137 fetch
  sta137 fetch GBR --store
  sta137 fetch USA --indicator NE.EXP.GNFS.CD --start 1970 --end 2009
  sta137 fetch DEU | sta137 analyze`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()

		country := deps.Config.Country
		if len(args) == 1 {
			country = args[0]
		}
		indicator := deps.Config.Indicator
		if fetchIndicator != "" {
			indicator = fetchIndicator
		}
		if (fetchStart == 0) != (fetchEnd == 0) {
			return fmt.Errorf("--start and --end must be given together")
		}

		start := time.Now()
		format := resolveFormat(deps.Config.Format)

		if fetchMetaOnly {
			meta, err := deps.Client.GetIndicator(cmd.Context(), indicator)
			if err != nil {
				return err
			}
			result := &model.Result{
				Kind:        model.KindSeriesMeta,
				GeneratedAt: time.Now(),
				Command:     fmt.Sprintf("fetch --meta-only %s", indicator),
				Data:        meta,
				Stats: model.ResultStats{
					DurationMs: time.Since(start).Milliseconds(),
					Items:      1,
				},
			}
			if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
				return err
			}
			render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
			return nil
		}

		data, err := deps.Client.GetObservations(cmd.Context(), country, indicator, wbank.ObsOptions{
			Start: fetchStart,
			End:   fetchEnd,
		})
		if err != nil {
			return err
		}

		if fetchStore {
			key, err := persistSeries(deps, data, fetchStart, fetchEnd)
			if err != nil {
				return err
			}
			if !deps.Config.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Stored %s  (%d observations) as %s\n",
					data.SeriesID, len(data.Obs), key)
			}
			return nil
		}

		return writeSeriesOutput(fmt.Sprintf("fetch %s", data.SeriesID), data, nil, start)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchIndicator, "indicator", "",
		"World Bank indicator code (default: NE.IMP.GNFS.CD)")
	fetchCmd.Flags().IntVar(&fetchStart, "start", 0,
		"first year, inclusive (0 = full range)")
	fetchCmd.Flags().IntVar(&fetchEnd, "end", 0,
		"last year, inclusive (0 = full range)")
	fetchCmd.Flags().BoolVar(&fetchStore, "store", false,
		"persist the series and metadata to the local database")
	fetchCmd.Flags().BoolVar(&fetchMetaOnly, "meta-only", false,
		"fetch indicator metadata without observations")
}
