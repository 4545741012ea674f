// Package external holds adapters for third-party collaborators: the
// Tier 3 discovery provider and the channel delivery providers.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"outreach-engine/internal/config/configs"
	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// DiscoveryClient implements port.DiscoveryProvider against a places-style
// search API. It is the only sourcing path that leaves the process, so
// every call carries a bounded timeout and failures map onto the sourcing
// engine's degradable errors instead of surfacing raw transport errors.
type DiscoveryClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewDiscoveryClient builds a client from the DISCOVERY_ config section.
func NewDiscoveryClient(cfg configs.Discovery) *DiscoveryClient {
	return &DiscoveryClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type discoveryResult struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Trades     []string `json:"trades"`
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	WebFormURL string   `json:"web_form_url"`
}

// Search queries the provider for contractors of the trade around geo.
// Unreachable providers yield ErrSourceUnavailable; HTTP 429 yields
// ErrRateLimited. Both are tolerated upstream.
func (d *DiscoveryClient) Search(ctx context.Context, trade string, geo domain.GeoPoint, radiusKm float64) ([]domain.Contractor, error) {
	q := url.Values{}
	q.Set("trade", trade)
	q.Set("lat", strconv.FormatFloat(geo.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(geo.Lng, 'f', -1, 64))
	q.Set("radius_km", strconv.FormatFloat(radiusKm, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/v1/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, port.ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", port.ErrSourceUnavailable, resp.StatusCode)
	}

	var results []discoveryResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", port.ErrSourceUnavailable, err)
	}

	contractors := make([]domain.Contractor, 0, len(results))
	for _, r := range results {
		contractors = append(contractors, domain.Contractor{
			ID:         r.ID,
			Name:       r.Name,
			Trades:     r.Trades,
			Geo:        domain.GeoPoint{Lat: r.Lat, Lng: r.Lng},
			Email:      r.Email,
			Phone:      r.Phone,
			WebFormURL: r.WebFormURL,
		})
	}
	return contractors, nil
}

var _ port.DiscoveryProvider = (*DiscoveryClient)(nil)
