// Package pipeline provides the I/O ends of the analysis chain: a CSV loader
// for year/value tables and JSONL read/write for carrying Observation streams
// between subcommands over stdin/stdout.
package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/util"
)

// ─── CSV Loader ───────────────────────────────────────────────────────────────

// CSVOptions selects the columns to load. Header matching is case-insensitive.
type CSVOptions struct {
	YearCol  string // year column header (default "Year")
	ValueCol string // value column header (default "Imports")
	SeriesID string // series id stamped on the rows (default: the value column header)
	Comma    rune   // field separator (default ',')
}

// ReadCSV loads an annual series from tabular data and returns the series id
// with the observations in file order. Years must be strictly increasing:
// duplicate and decreasing years are errors at the offending line. Missing
// value tokens parse to NaN with the raw text preserved. Year gaps are legal
// here; model.ValidateAnnual reports them as warnings.
func ReadCSV(r io.Reader, opts CSVOptions) (string, []model.Observation, error) {
	if opts.YearCol == "" {
		opts.YearCol = "Year"
	}
	if opts.ValueCol == "" {
		opts.ValueCol = "Imports"
	}

	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err == io.EOF {
		return "", nil, fmt.Errorf("empty input")
	}
	if err != nil {
		return "", nil, fmt.Errorf("reading header: %w", err)
	}

	yearIdx, valueIdx := -1, -1
	valueName := opts.ValueCol
	for i, h := range header {
		name := strings.TrimSpace(h)
		if yearIdx < 0 && strings.EqualFold(name, opts.YearCol) {
			yearIdx = i
		}
		if valueIdx < 0 && strings.EqualFold(name, opts.ValueCol) {
			valueIdx = i
			valueName = name
		}
	}
	if yearIdx < 0 {
		return "", nil, fmt.Errorf("no %q column in header %v", opts.YearCol, header)
	}
	if valueIdx < 0 {
		return "", nil, fmt.Errorf("no %q column in header %v", opts.ValueCol, header)
	}

	seriesID := opts.SeriesID
	if seriesID == "" {
		seriesID = valueName
	}

	var obs []model.Observation
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return "", nil, fmt.Errorf("line %d: %w", line, err)
		}

		year, err := util.ParseYear(rec[yearIdx])
		if err != nil {
			return "", nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(obs); n > 0 {
			switch prev := obs[n-1].Year; {
			case year == prev:
				return "", nil, fmt.Errorf("line %d: duplicate year %d", line, year)
			case year < prev:
				return "", nil, fmt.Errorf("line %d: year %d out of order after %d", line, year, prev)
			}
		}

		raw := strings.TrimSpace(rec[valueIdx])
		val := math.NaN()
		if !util.IsMissingToken(raw) {
			val, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return "", nil, fmt.Errorf("line %d: invalid value %q", line, raw)
			}
		}
		obs = append(obs, model.Observation{Year: year, Value: val, ValueRaw: raw})
	}
	if len(obs) == 0 {
		return "", nil, fmt.Errorf("no data rows after the header")
	}
	return seriesID, obs, nil
}

// ─── JSONL Pipe Format ────────────────────────────────────────────────────────

// jsonlRow is the canonical pipe record for one observation.
type jsonlRow struct {
	SeriesID string      `json:"series_id"`
	Year     int         `json:"year"`
	Value    interface{} `json:"value"` // float64 or null
	ValueRaw string      `json:"value_raw"`
}

// ReadObservations reads JSONL records from r (stdin) and returns the
// series_id and slice of Observations.
// Each line must be a JSON object with at least "year" and "value" fields.
func ReadObservations(r io.Reader) (string, []model.Observation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var obs []model.Observation
	seriesID := ""

	type row struct {
		SeriesID string      `json:"series_id"`
		Year     *int        `json:"year"`
		Value    interface{} `json:"value"`
		ValueRaw string      `json:"value_raw"`
	}

	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec row
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return "", nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}

		if seriesID == "" && rec.SeriesID != "" {
			seriesID = rec.SeriesID
		}
		if rec.Year == nil {
			return "", nil, fmt.Errorf("line %d: missing year field", lineNum)
		}

		// Parse value: may be null (NaN), float64, or a missing-value token
		var val float64
		raw := rec.ValueRaw
		switch v := rec.Value.(type) {
		case nil:
			val = math.NaN()
			if raw == "" {
				raw = "."
			}
		case float64:
			val = v
			if raw == "" {
				raw = fmt.Sprintf("%g", v)
			}
		case string:
			if !util.IsMissingToken(v) {
				return "", nil, fmt.Errorf("line %d: unexpected string value %q", lineNum, v)
			}
			val = math.NaN()
			if raw == "" {
				raw = "."
			}
		default:
			return "", nil, fmt.Errorf("line %d: unexpected value type %T", lineNum, rec.Value)
		}

		obs = append(obs, model.Observation{
			Year:     *rec.Year,
			Value:    val,
			ValueRaw: raw,
		})
	}
	if err := scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("reading input: %w", err)
	}
	if len(obs) == 0 {
		return "", nil, fmt.Errorf("no observations read from input (is stdin empty?)")
	}
	return seriesID, obs, nil
}

// WriteJSONL writes observations as JSONL to w.
func WriteJSONL(w io.Writer, seriesID string, obs []model.Observation) error {
	enc := json.NewEncoder(w)
	for _, o := range obs {
		rec := jsonlRow{
			SeriesID: seriesID,
			Year:     o.Year,
			ValueRaw: o.ValueRaw,
		}
		if !math.IsNaN(o.Value) {
			rec.Value = o.Value
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
