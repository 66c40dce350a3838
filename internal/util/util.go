// Package util provides shared utilities: year and value parsing plus a
// small error aggregator.
package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ─── Year Parsing ─────────────────────────────────────────────────────────────

// ParseYear parses a calendar-year token such as "1971". The World Bank API
// and course datasets both carry years as plain strings.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q: expected an integer", s)
	}
	if y < 1000 || y > 9999 {
		return 0, fmt.Errorf("year %d out of range", y)
	}
	return y, nil
}

// ─── Observation Value Parsing ────────────────────────────────────────────────

// IsMissingToken reports whether s is one of the missing-value tokens used
// by the sources we read ("", ".", "..", "NA", "null").
func IsMissingToken(s string) bool {
	switch strings.TrimSpace(s) {
	case "", ".", "..", "NA", "na", "null", "NULL":
		return true
	}
	return false
}

// FormatValue formats a float64 at full precision, showing "." for NaN.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
