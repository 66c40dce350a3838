// Package store provides a thin bbolt wrapper for sta137's local data store.
//
// Design philosophy: the store is an intentional data accumulator, not a
// transparent HTTP cache. Series are written explicitly via fetch/load
// commands and read by analysis commands. No TTL, no auto-invalidation — you
// own your data.
//
// Buckets:
//
//	series      — accumulated annual observations keyed by series+range
//	series_meta — metadata for fetched series
//	runs        — saved command lines for reproducible workflows
//	_meta       — internal: schema version, created_at
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/util"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketSeries     = []byte("series")
	bucketSeriesMeta = []byte("series_meta")
	bucketRuns       = []byte("runs")
	bucketInternal   = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"series", "series_meta", "runs"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSeries, bucketSeriesMeta, bucketRuns, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Series Metadata ──────────────────────────────────────────────────────────

// PutSeriesMeta stores metadata for a series, stamping FetchedAt.
func (s *Store) PutSeriesMeta(meta model.SeriesMeta) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putSeriesMetaTx(tx, meta)
	})
}

// PutSeriesMetaBatch stores several metadata rows in one transaction.
func (s *Store) PutSeriesMetaBatch(metas []model.SeriesMeta) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, m := range metas {
			if err := putSeriesMetaTx(tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func putSeriesMetaTx(tx *bolt.Tx, meta model.SeriesMeta) error {
	meta.FetchedAt = time.Now().UTC()
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding series meta: %w", err)
	}
	return tx.Bucket(bucketSeriesMeta).Put([]byte(meta.ID), data)
}

// GetSeriesMeta retrieves metadata for a series by ID.
// Returns (meta, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetSeriesMeta(id string) (model.SeriesMeta, bool, error) {
	var meta model.SeriesMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSeriesMeta).Get([]byte(id))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &meta)
	})
	if err != nil {
		return meta, false, err
	}
	return meta, meta.ID != "", nil
}

// ListSeriesMeta returns all stored series metadata in key order.
func (s *Store) ListSeriesMeta() ([]model.SeriesMeta, error) {
	var metas []model.SeriesMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSeriesMeta).ForEach(func(k, v []byte) error {
			var m model.SeriesMeta
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			metas = append(metas, m)
			return nil
		})
	})
	return metas, err
}

// ─── Series ───────────────────────────────────────────────────────────────────

// SeriesKey builds the canonical key for a series entry.
// Format: series:<ID>|start:<year>|end:<year>. Zero years are omitted, so a
// full-range fetch and a windowed fetch of the same series store separately.
func SeriesKey(id string, start, end int) string {
	key := "series:" + id
	if start > 0 {
		key += fmt.Sprintf("|start:%d", start)
	}
	if end > 0 {
		key += fmt.Sprintf("|end:%d", end)
	}
	return key
}

// storedObsRow is the JSON-safe on-disk representation of one observation.
// Value is a *float64 so that missing values (NaN) are stored as JSON null
// rather than NaN, which encoding/json cannot handle.
type storedObsRow struct {
	Year     int      `json:"year"`
	Value    *float64 `json:"value"` // null = missing
	ValueRaw string   `json:"value_raw,omitempty"`
}

// storedSeries is the on-disk envelope for a series entry.
type storedSeries struct {
	SeriesID  string         `json:"series_id"`
	FetchedAt time.Time      `json:"fetched_at"`
	Obs       []storedObsRow `json:"observations"`
}

// obsToStored converts model.Observation → storedObsRow (NaN → null).
func obsToStored(o model.Observation) storedObsRow {
	row := storedObsRow{
		Year:     o.Year,
		ValueRaw: o.ValueRaw,
	}
	if !o.IsMissing() {
		v := o.Value
		row.Value = &v
	}
	return row
}

// storedToObs converts storedObsRow → model.Observation (null → NaN).
func storedToObs(r storedObsRow) model.Observation {
	obs := model.Observation{
		Year:     r.Year,
		ValueRaw: r.ValueRaw,
	}
	if r.Value != nil {
		obs.Value = *r.Value
	} else {
		obs.Value = math.NaN()
	}
	return obs
}

// PutSeries stores observations under the given key.
func (s *Store) PutSeries(key string, data model.SeriesData) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putSeriesTx(tx, key, data)
	})
}

// SeriesEntry pairs a key with its series for batch writes.
type SeriesEntry struct {
	Key  string
	Data model.SeriesData
}

// PutSeriesBatch stores several series in one transaction.
func (s *Store) PutSeriesBatch(entries []SeriesEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, e := range entries {
			if err := putSeriesTx(tx, e.Key, e.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

func putSeriesTx(tx *bolt.Tx, key string, data model.SeriesData) error {
	rows := make([]storedObsRow, len(data.Obs))
	for i, o := range data.Obs {
		rows[i] = obsToStored(o)
	}
	envelope := storedSeries{
		SeriesID:  data.SeriesID,
		FetchedAt: time.Now().UTC(),
		Obs:       rows,
	}
	b, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding series: %w", err)
	}
	return tx.Bucket(bucketSeries).Put([]byte(key), b)
}

// GetSeries retrieves observations by key.
// Returns (data, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetSeries(key string) (model.SeriesData, bool, error) {
	var envelope storedSeries
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSeries).Get([]byte(key))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &envelope)
	})
	if err != nil {
		return model.SeriesData{}, false, err
	}
	if envelope.SeriesID == "" {
		return model.SeriesData{}, false, nil
	}
	obs := make([]model.Observation, len(envelope.Obs))
	for i, r := range envelope.Obs {
		obs[i] = storedToObs(r)
	}
	return model.SeriesData{SeriesID: envelope.SeriesID, Obs: obs}, true, nil
}

// ListSeriesKeys returns all keys in the series bucket for a given series ID
// prefix. Pass id="" to list all keys.
func (s *Store) ListSeriesKeys(id string) ([]string, error) {
	prefix := []byte("series:")
	if id != "" {
		prefix = []byte("series:" + id)
	}
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSeries).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// ─── Runs ─────────────────────────────────────────────────────────────────────

// Run represents a saved command line for reproducible workflows.
type Run struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CommandLine string    `json:"command_line"`
	CreatedAt   time.Time `json:"created_at"`
}

// PutRun saves a run. The key is run:<ID>.
func (s *Store) PutRun(r Run) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Put([]byte("run:"+r.ID), b)
	})
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (Run, bool, error) {
	var r Run
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRuns).Get([]byte("run:" + id))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return r, false, err
	}
	return r, r.ID != "", nil
}

// ListRuns returns all runs in key order.
func (s *Store) ListRuns() ([]Run, error) {
	var runs []Run
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var r Run
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			runs = append(runs, r)
			return nil
		})
	})
	return runs, err
}

// DeleteRun removes a run by ID.
func (s *Store) DeleteRun(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Delete([]byte("run:" + id))
	})
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	buckets := map[string][]byte{
		"series":      bucketSeries,
		"series_meta": bucketSeriesMeta,
		"runs":        bucketRuns,
	}

	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket(buckets[name])
			if b == nil {
				continue
			}
			var count int
			var size int64
			b.ForEach(func(k, v []byte) error {
				count++
				size += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: size})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket. Buckets are
// cleared independently; one failure does not stop the rest.
func (s *Store) ClearAll() error {
	var merr util.MultiError
	for _, name := range AllBuckets {
		merr.Add(s.ClearBucket(name))
	}
	return merr.Err()
}

// Compact rewrites the database into a fresh file, reclaiming free pages,
// and swaps it in place. Returns bytes reclaimed. The store stays open and
// usable afterwards.
func (s *Store) Compact() (int64, error) {
	path := s.db.Path()
	before, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	tmp := path + ".compact"
	dst, err := bolt.Open(tmp, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return 0, fmt.Errorf("opening compact target: %w", err)
	}
	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("compacting: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return 0, err
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("swapping compacted db: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return 0, fmt.Errorf("reopening db: %w", err)
	}
	s.db = db

	after, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	saved := before.Size() - after.Size()
	if saved < 0 {
		saved = 0
	}
	return saved, nil
}
