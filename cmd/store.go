package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/render"
	"github.com/random-logic/sta137-final/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and manage the local data store",
	Long: `Commands for the local bbolt database that 'fetch --store' and 'load --store'
write into.

The store is intentional, not a transparent cache: series persist until you
clear them, so analyses repeat offline and byte-for-byte. Windowed and
full-range fetches of the same series are kept as separate sets.`,
}

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List series held in the local database",
	Example: `  sta137 store list
  sta137 store list --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		metas, err := st.ListSeriesMeta()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}

		if len(metas) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No series in local database.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: sta137 fetch --store")
			return nil
		}

		// Sort by ID for deterministic output
		sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })

		// Count stored sets per series: the same ID can carry a full-range
		// set plus any number of windowed ones.
		keys, _ := st.ListSeriesKeys("")
		keyCounts := make(map[string]int)
		for _, k := range keys {
			if id := seriesIDFromKey(k); id != "" {
				keyCounts[id]++
			}
		}

		format := resolveFormat(deps.Config.Format)
		if format == render.FormatTable || format == "" {
			printSimpleTable(cmd.OutOrStdout(), []string{"ID", "TITLE", "COUNTRY", "RANGE", "FETCHED", "SETS"}, func(add func(...string)) {
				for _, m := range metas {
					title := m.Title
					if len(title) > 40 {
						title = title[:37] + "..."
					}
					country := m.Country
					if country == "" {
						country = m.CountryISO
					}
					rng := ""
					if m.StartYear != 0 || m.EndYear != 0 {
						rng = fmt.Sprintf("%d-%d", m.StartYear, m.EndYear)
					}
					fetched := ""
					if !m.FetchedAt.IsZero() {
						fetched = m.FetchedAt.Format("2006-01-02 15:04")
					}
					add(m.ID, title, country, rng, fetched, fmt.Sprintf("%d", keyCounts[m.ID]))
				}
			})
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d series  •  %d stored sets  •  %s\n",
				len(metas), len(keys), st.Path())
			return nil
		}

		// Non-table formats: use the standard result envelope
		result := &model.Result{
			Kind:        model.KindSeriesMeta,
			GeneratedAt: time.Now(),
			Command:     "store list",
			Data:        metas,
			Stats:       model.ResultStats{Items: len(metas)},
		}
		return render.RenderTo(globalFlags.Out, result, format)
	},
}

// ─── store get ────────────────────────────────────────────────────────────────

var storeGetCmd = &cobra.Command{
	Use:   "get <ID>",
	Short: "Read a stored series",
	Long: `Get reads a stored series by ID or full key. A plain ID resolves to its
full-range set first, then to the first stored set for that ID. Pass a full
"series:" key (as shown by 'load --store') to pick a specific windowed set.

On a terminal the series prints as a table; in a pipeline it is emitted as
JSONL, so stored series feed straight into the analysis commands.`,
	Example: `  sta137 store get GBR:NE.IMP.GNFS.CD
  sta137 store get "series:GBR:NE.IMP.GNFS.CD|start:1970|end:2009"
  sta137 store get GBR:NE.IMP.GNFS.CD | sta137 fit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()

		id, key := args[0], args[0]
		if strings.HasPrefix(key, "series:") {
			id = seriesIDFromKey(key)
		} else {
			key = store.SeriesKey(id, 0, 0)
		}

		data, ok, err := st.GetSeries(key)
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if !ok {
			// No exact hit; fall back to the first stored set for the ID.
			keys, err := st.ListSeriesKeys(id)
			if err != nil {
				return fmt.Errorf("reading store: %w", err)
			}
			if len(keys) == 0 {
				return fmt.Errorf("no stored series for %s\n\n  Use: sta137 fetch --store", id)
			}
			data, ok, err = st.GetSeries(keys[0])
			if err != nil {
				return fmt.Errorf("reading store: %w", err)
			}
			if !ok {
				return fmt.Errorf("series data missing for key %s", keys[0])
			}
		}

		if meta, ok, _ := st.GetSeriesMeta(data.SeriesID); ok {
			data.Meta = &meta
		}

		return writeSeriesOutput("store get "+id, &data, nil, start)
	},
}

// ─── store stats ──────────────────────────────────────────────────────────────

var storeStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  sta137 store stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		stats, err := st.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}

		// Sort by bucket name for deterministic output
		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n\n", st.Path())
		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── store clear ──────────────────────────────────────────────────────────────

var (
	storeClearAll    bool
	storeClearBucket string
)

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local store",
	Long: `Delete entries from one or all buckets.

Note: bbolt does not shrink the database file automatically after clearing.
Free pages are reused internally on the next write. To reclaim disk space,
run 'sta137 store compact' after clearing.`,
	Example: `  sta137 store clear --all
  sta137 store clear --bucket series
  sta137 store clear --bucket runs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !storeClearAll && storeClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <name>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		if storeClearAll {
			if err := st.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
			fmt.Fprintln(cmd.OutOrStdout(), "  Run 'sta137 store compact' to reclaim disk space.")
			return nil
		}

		if err := st.ClearBucket(storeClearBucket); err != nil {
			return fmt.Errorf("clearing bucket %q: %w", storeClearBucket, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", storeClearBucket)
		fmt.Fprintln(cmd.OutOrStdout(), "  Run 'sta137 store compact' to reclaim disk space.")
		return nil
	},
}

// ─── store compact ────────────────────────────────────────────────────────────

var storeCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Compact rewrites the entire bbolt database to a new file, recovering space
freed by prior 'store clear' operations.

bbolt uses copy-on-write and never shrinks the database file automatically —
deleted pages are added to an internal freelist and reused on future writes.
Compaction is the only way to reduce the file's on-disk footprint.

The operation is safe: all live data is copied to a temporary file first, then
the original is atomically replaced. The database remains fully usable after
compaction completes.`,
	Example: `  sta137 store compact`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		// Compact swaps the database file and reopens it in place; the store
		// handle stays valid, so the usual Close at the end is correct.
		defer deps.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Compacting %s ...\n", st.Path())

		saved, err := st.Compact()
		if err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "✓ Compaction complete")
		if saved > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  Saved: %s\n", humanBytes(saved))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "  No space reclaimed (database was already compact).")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeGetCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeCompactCmd)

	storeClearCmd.Flags().BoolVar(&storeClearAll, "all", false, "clear all buckets")
	storeClearCmd.Flags().StringVar(&storeClearBucket, "bucket", "",
		"clear a specific bucket: series|series_meta|runs")
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// seriesIDFromKey parses the series ID from a series bucket key.
// Key format: series:<ID>|start:...|...
func seriesIDFromKey(key string) string {
	if !strings.HasPrefix(key, "series:") {
		return ""
	}
	rest := strings.TrimPrefix(key, "series:")
	if i := strings.IndexByte(rest, '|'); i >= 0 {
		return rest[:i]
	}
	return rest
}
