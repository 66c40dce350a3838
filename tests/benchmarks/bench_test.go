// Package benchmarks measures the modeling and serialization hot paths on
// synthetic annual series. Everything is generated in-process — no fixtures
// or network access at benchmark time.
//
// # Baseline
//
//	go test ./tests/benchmarks/... -bench=. -benchmem -count=10 | tee base.txt
//
// # JSON v2 internals via GOEXPERIMENT (same code, v2 engine under the hood)
//
//	GOEXPERIMENT=jsonv2 go test ./tests/benchmarks/... -bench=Marshal -benchmem -count=10 | tee v2exp.txt
//
// # explicit v2 API benchmarks + parity test (requires GOEXPERIMENT=jsonv2)
//
//	GOEXPERIMENT=jsonv2 go test ./tests/benchmarks/... -bench=V2 -run TestV1V2Parity -v -benchmem
//
// # compare
//
//	benchstat base.txt v2exp.txt
package benchmarks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/random-logic/sta137-final/internal/arima"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/pipeline"
	"github.com/random-logic/sta137-final/internal/report"
	"github.com/random-logic/sta137-final/internal/search"
	"github.com/random-logic/sta137-final/internal/stats"
	"github.com/random-logic/sta137-final/internal/store"
	"github.com/random-logic/sta137-final/internal/transform"
)

// ─── Synthetic series (shared by bench_test.go and bench_v2_test.go) ──────────

// synthObs builds a deterministic positive series with an exponential trend
// and an irregular cycle, shaped like the annual imports data the tool
// models. The chirp term keeps residual variance away from zero so every
// fit is numerically sane.
func synthObs(n int) []model.Observation {
	obs := make([]model.Observation, n)
	for i := 0; i < n; i++ {
		ft := float64(i)
		v := 120.0 * math.Exp(0.045*ft+0.08*math.Sin(1.7*ft)+0.03*math.Sin(0.41*ft*ft))
		obs[i] = model.Observation{Year: 1970 + i, Value: v}
	}
	return obs
}

func synthValues(n int) []float64 {
	return model.Values(synthObs(n))
}

// synthGappyObs is synthObs with every seventh value missing, to keep the
// NaN→null path in every serialization benchmark.
func synthGappyObs(n int) []model.Observation {
	obs := synthObs(n)
	for i := 3; i < n; i += 7 {
		obs[i].Value = math.NaN()
		obs[i].ValueRaw = "."
	}
	return obs
}

// synthReport runs the pipeline once; the resulting document is the marshal
// workload for the serialization benchmarks.
func synthReport(tb testing.TB) *report.Report {
	tb.Helper()
	series := &model.SeriesData{SeriesID: "GBR:NE.IMP.GNFS.CD", Obs: synthObs(40)}
	rep, err := report.Run(context.Background(), series, report.DefaultConfig())
	if err != nil {
		tb.Fatalf("setup: pipeline run: %v", err)
	}
	return rep
}

// ─── Group 1: Single-candidate fits ───────────────────────────────────────────
// arima.Fit is the grid's inner loop; these pin its cost per model order.

func BenchmarkFitRandomWalk(b *testing.B) {
	xs := synthValues(40)
	c := arima.Candidate{P: 0, D: 1, Q: 0}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := arima.Fit(xs, c); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFitAR2(b *testing.B) {
	xs := synthValues(40)
	c := arima.Candidate{P: 2, D: 1, Q: 0}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := arima.Fit(xs, c); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFitARMA22(b *testing.B) {
	xs := synthValues(40)
	c := arima.Candidate{P: 2, D: 1, Q: 2}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := arima.Fit(xs, c); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFitARMA22_Long(b *testing.B) {
	xs := synthValues(200)
	c := arima.Candidate{P: 2, D: 1, Q: 2}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := arima.Fit(xs, c); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Group 2: Grid search ─────────────────────────────────────────────────────
// The full 5x5 sweep dominates `fit` and `report` wall time; the two variants
// show what the worker pool buys on this workload.

func BenchmarkGridSequential(b *testing.B) {
	xs := synthValues(40)
	opts := search.Options{MaxP: 4, MaxQ: 4, D: 1, Workers: 1}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := search.Grid(context.Background(), xs, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGridParallel4(b *testing.B) {
	xs := synthValues(40)
	opts := search.Options{MaxP: 4, MaxQ: 4, D: 1, Workers: 4}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := search.Grid(context.Background(), xs, opts); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Group 3: Transform and autocorrelation ───────────────────────────────────

func BenchmarkEstimateLambda(b *testing.B) {
	xs := synthValues(200)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := transform.EstimateLambda(xs); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBoxCox(b *testing.B) {
	xs := synthValues(200)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := transform.BoxCox(xs, 0.3); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkACF(b *testing.B) {
	diffed, err := transform.Difference(synthValues(200), 1)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := stats.ACF(diffed, 20); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPACF(b *testing.B) {
	diffed, err := transform.Difference(synthValues(200), 1)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := stats.PACF(diffed, 20); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkADF(b *testing.B) {
	diffed, err := transform.Difference(synthValues(200), 1)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := stats.ADF(diffed, -1); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Group 4: JSONL pipe round-trip ───────────────────────────────────────────
// WriteJSONL → ReadObservations is the hot path between piped subcommands.
// Gappy input keeps the null encoding on the wire.

func BenchmarkJSONLRoundTrip40(b *testing.B) {
	obs := synthGappyObs(40)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := pipeline.WriteJSONL(&buf, "GBR:NE.IMP.GNFS.CD", obs); err != nil {
			b.Fatal(err)
		}
		b.SetBytes(int64(buf.Len()))
		if _, _, err := pipeline.ReadObservations(&buf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJSONLRoundTrip1000(b *testing.B) {
	obs := synthGappyObs(1000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := pipeline.WriteJSONL(&buf, "GBR:NE.IMP.GNFS.CD", obs); err != nil {
			b.Fatal(err)
		}
		b.SetBytes(int64(buf.Len()))
		if _, _, err := pipeline.ReadObservations(&buf); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Group 5: Document serialization ──────────────────────────────────────────
// The assembled analysis document is the largest payload the tool writes;
// failed grid cells carry non-finite sentinels that must render as null.
// Run with GOEXPERIMENT=jsonv2 to see v2 engine gains on unchanged code.

func BenchmarkMarshalReport(b *testing.B) {
	rep := synthReport(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, err := json.Marshal(rep)
		if err != nil {
			b.Fatal(err)
		}
		b.SetBytes(int64(len(data)))
	}
}

func BenchmarkMarshalSeriesData(b *testing.B) {
	sd := model.SeriesData{SeriesID: "GBR:NE.IMP.GNFS.CD", Obs: synthGappyObs(1000)}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, err := json.Marshal(&sd)
		if err != nil {
			b.Fatal(err)
		}
		b.SetBytes(int64(len(data)))
	}
}

func BenchmarkUnmarshalSeriesData(b *testing.B) {
	sd := model.SeriesData{SeriesID: "GBR:NE.IMP.GNFS.CD", Obs: synthGappyObs(1000)}
	data, err := json.Marshal(&sd)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out model.SeriesData
		if err := json.Unmarshal(data, &out); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Group 6: Store write/read path ───────────────────────────────────────────
// Each Put is a full bbolt write transaction; the numbers here are dominated
// by fsync and set the floor for `fetch --store`.

func BenchmarkStorePutSeries(b *testing.B) {
	st, err := store.Open(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer st.Close()

	data := model.SeriesData{SeriesID: "GBR:NE.IMP.GNFS.CD", Obs: synthGappyObs(40)}
	key := store.SeriesKey(data.SeriesID, 1970, 2009)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := st.PutSeries(key, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkStoreGetSeries(b *testing.B) {
	st, err := store.Open(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer st.Close()

	data := model.SeriesData{SeriesID: "GBR:NE.IMP.GNFS.CD", Obs: synthGappyObs(40)}
	key := store.SeriesKey(data.SeriesID, 1970, 2009)
	if err := st.PutSeries(key, data); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, found, err := st.GetSeries(key); err != nil || !found {
			b.Fatalf("get: found=%v err=%v", found, err)
		}
	}
}
