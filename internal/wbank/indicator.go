package wbank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/random-logic/sta137-final/internal/model"
)

// sourceNoteMax caps the indicator description carried into metadata.
const sourceNoteMax = 500

// GetIndicator fetches metadata for a single indicator code.
func (c *Client) GetIndicator(ctx context.Context, indicator string) (*model.SeriesMeta, error) {
	indicator = strings.ToUpper(strings.TrimSpace(indicator))
	if indicator == "" {
		return nil, fmt.Errorf("indicator is required")
	}

	_, raw, err := c.getPage(ctx, "indicator/"+url.PathEscape(indicator), url.Values{})
	if err != nil {
		return nil, fmt.Errorf("indicator %s: %w", indicator, err)
	}

	var rows []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Unit   string `json:"unit"`
		Source struct {
			ID    string `json:"id"`
			Value string `json:"value"`
		} `json:"source"`
		SourceNote string `json:"sourceNote"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("indicator %s: decoding rows: %w", indicator, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("indicator not found: %s", indicator)
	}

	r := rows[0]
	notes := strings.TrimSpace(r.SourceNote)
	if len(notes) > sourceNoteMax {
		notes = notes[:sourceNoteMax] + "…"
	}
	return &model.SeriesMeta{
		ID:        r.ID,
		Title:     r.Name,
		Indicator: r.ID,
		Units:     r.Unit,
		Source:    r.Source.Value,
		Notes:     notes,
		FetchedAt: time.Now(),
	}, nil
}
