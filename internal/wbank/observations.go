package wbank

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/util"
)

// ObsOptions holds optional parameters for GetObservations.
type ObsOptions struct {
	Start   int // first year, inclusive; 0 means the API default
	End     int // last year, inclusive; 0 means the API default
	PerPage int // rows per request; 0 uses a sensible default
}

const defaultPerPage = 400

// obsRow is one data point as the API reports it: the year as a string and
// the value as a nullable number, newest first.
type obsRow struct {
	Indicator struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"indicator"`
	Country struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"country"`
	CountryISO3 string   `json:"countryiso3code"`
	Date        string   `json:"date"`
	Value       *float64 `json:"value"`
	Unit        string   `json:"unit"`
	ObsStatus   string   `json:"obs_status"`
}

// GetObservations fetches the annual series for one indicator in one
// country, paging through the API and reversing its newest-first order.
// Null values become NaN observations so gaps stay visible downstream.
func (c *Client) GetObservations(ctx context.Context, country, indicator string, opts ObsOptions) (*model.SeriesData, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	indicator = strings.ToUpper(strings.TrimSpace(indicator))
	if country == "" || indicator == "" {
		return nil, fmt.Errorf("country and indicator are required")
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	endpoint := fmt.Sprintf("country/%s/indicator/%s", url.PathEscape(country), url.PathEscape(indicator))

	var rows []obsRow
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(perPage))
		params.Set("page", strconv.Itoa(page))
		if opts.Start > 0 && opts.End > 0 {
			params.Set("date", fmt.Sprintf("%d:%d", opts.Start, opts.End))
		}

		hdr, raw, err := c.getPage(ctx, endpoint, params)
		if err != nil {
			return nil, fmt.Errorf("observations %s/%s: %w", country, indicator, err)
		}

		var batch []obsRow
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("observations %s/%s: decoding rows: %w", country, indicator, err)
		}
		rows = append(rows, batch...)

		if hdr.Pages <= page {
			break
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no observations found for %s/%s", country, indicator)
	}

	obs := make([]model.Observation, 0, len(rows))
	for _, r := range rows {
		year, err := strconv.Atoi(r.Date)
		if err != nil {
			continue // skip non-annual rows
		}
		o := model.Observation{Year: year}
		if r.Value == nil {
			o.Value = math.NaN()
			o.ValueRaw = ""
		} else {
			o.Value = *r.Value
			o.ValueRaw = util.FormatValue(*r.Value)
		}
		obs = append(obs, o)
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Year < obs[j].Year })

	if _, err := model.ValidateAnnual(obs); err != nil {
		return nil, fmt.Errorf("observations %s/%s: %w", country, indicator, err)
	}

	meta := &model.SeriesMeta{
		ID:         SeriesID(country, indicator),
		Title:      rows[0].Indicator.Value,
		Country:    rows[0].Country.Value,
		CountryISO: country,
		Indicator:  indicator,
		Units:      rows[0].Unit,
		Source:     "World Bank",
		StartYear:  obs[0].Year,
		EndYear:    obs[len(obs)-1].Year,
		FetchedAt:  time.Now(),
	}

	return &model.SeriesData{
		SeriesID: meta.ID,
		Meta:     meta,
		Obs:      obs,
	}, nil
}

// SeriesID is the canonical ID for a (country, indicator) pair.
func SeriesID(country, indicator string) string {
	return strings.ToUpper(country) + ":" + strings.ToUpper(indicator)
}
