package wbank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Country identifies one World Bank country or aggregate.
type Country struct {
	ID          string `json:"id"` // ISO3
	ISO2        string `json:"iso2"`
	Name        string `json:"name"`
	Region      string `json:"region,omitempty"`
	IncomeLevel string `json:"income_level,omitempty"`
	CapitalCity string `json:"capital_city,omitempty"`
}

// GetCountry resolves an ISO3 code to its identity, confirming the country
// exists before any data fetch.
func (c *Client) GetCountry(ctx context.Context, iso3 string) (Country, error) {
	iso3 = strings.ToUpper(strings.TrimSpace(iso3))
	if iso3 == "" {
		return Country{}, fmt.Errorf("country code is required")
	}

	_, raw, err := c.getPage(ctx, "country/"+url.PathEscape(iso3), url.Values{})
	if err != nil {
		return Country{}, fmt.Errorf("country %s: %w", iso3, err)
	}

	var rows []struct {
		ID       string `json:"id"`
		ISO2Code string `json:"iso2Code"`
		Name     string `json:"name"`
		Region   struct {
			Value string `json:"value"`
		} `json:"region"`
		IncomeLevel struct {
			Value string `json:"value"`
		} `json:"incomeLevel"`
		CapitalCity string `json:"capitalCity"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return Country{}, fmt.Errorf("country %s: decoding rows: %w", iso3, err)
	}
	if len(rows) == 0 {
		return Country{}, fmt.Errorf("country not found: %s", iso3)
	}

	r := rows[0]
	return Country{
		ID:          r.ID,
		ISO2:        r.ISO2Code,
		Name:        r.Name,
		Region:      strings.TrimSpace(r.Region.Value),
		IncomeLevel: strings.TrimSpace(r.IncomeLevel.Value),
		CapitalCity: r.CapitalCity,
	}, nil
}
