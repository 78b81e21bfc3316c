// Package places counts nearby amenities via the Google Places API (New)
// Nearby Search endpoint.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"

	// Nearby Search returns at most 3 pages of results.
	maxPages = 3
)

// Client counts places of given types near a coordinate.
type Client interface {
	CountNearby(ctx context.Context, lat, lon float64, includedTypes []string, radiusM int) (int, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)) }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchNearbyRequest struct {
	LocationRestriction locationRestriction `json:"locationRestriction"`
	IncludedTypes       []string            `json:"includedTypes"`
	PageToken           string              `json:"pageToken,omitempty"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchNearbyResponse struct {
	Places []struct {
		ID string `json:"id"`
	} `json:"places"`
	NextPageToken string `json:"nextPageToken"`
}

// CountNearby returns the number of places of the given types within radiusM
// meters of (lat, lon), following pagination up to the API's 3-page limit.
func (c *httpClient) CountNearby(ctx context.Context, lat, lon float64, includedTypes []string, radiusM int) (int, error) {
	payload := searchNearbyRequest{
		LocationRestriction: locationRestriction{
			Circle: circle{
				Center: latLng{Latitude: lat, Longitude: lon},
				Radius: float64(radiusM),
			},
		},
		IncludedTypes: includedTypes,
	}

	total := 0
	for page := 0; page < maxPages; page++ {
		resp, err := c.searchNearby(ctx, payload)
		if err != nil {
			return 0, err
		}
		total += len(resp.Places)

		if resp.NextPageToken == "" {
			break
		}
		payload.PageToken = resp.NextPageToken
	}
	return total, nil
}

func (c *httpClient) searchNearby(ctx context.Context, payload searchNearbyRequest) (*searchNearbyResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limit")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchNearby", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.id")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result searchNearbyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}
	return &result, nil
}
