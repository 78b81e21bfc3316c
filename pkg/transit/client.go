// Package transit queries the MTD (Champaign-Urbana Mass Transit District)
// developer API for bus stops near a coordinate.
package transit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://developer.mtd.org/api/v2.2/json"

// FtPerKM converts the API's distance-in-feet to the 1 km radius used for
// the bus_stops_1km attribute.
const FtPerKM = 3280.8399

// Stop is one bus stop returned by getstopsbylatlon. DistanceFt is nil when
// the API omits the distance field.
type Stop struct {
	ID         string
	Name       string
	DistanceFt *float64
}

// WithinKM reports whether the stop is within 1 km of the query point.
// Stops without a distance are treated as out of range.
func (s Stop) WithinKM() bool {
	return s.DistanceFt != nil && *s.DistanceFt <= FtPerKM
}

// Client fetches stops near a coordinate.
type Client interface {
	StopsNearby(ctx context.Context, lat, lon float64, count int) ([]Stop, error)
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

// NewClient creates an MTD API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// stopsResponse matches getstopsbylatlon. Older deployments used "stop"
// instead of "stops".
type stopsResponse struct {
	Stops    []stopEntry `json:"stops"`
	StopsAlt []stopEntry `json:"stop"`
}

type stopEntry struct {
	StopID   string   `json:"stop_id"`
	StopName string   `json:"stop_name"`
	Distance *float64 `json:"distance"`
}

func (c *httpClient) StopsNearby(ctx context.Context, lat, lon float64, count int) ([]Stop, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "transit: rate limit")
	}

	params := url.Values{
		"key":   {c.apiKey},
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"count": {strconv.Itoa(count)},
	}

	reqURL := c.baseURL + "/getstopsbylatlon?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "transit: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "transit: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "transit: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("transit: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var sr stopsResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "transit: parse response")
	}

	entries := sr.Stops
	if len(entries) == 0 {
		entries = sr.StopsAlt
	}

	stops := make([]Stop, 0, len(entries))
	for _, e := range entries {
		stops = append(stops, Stop{ID: e.StopID, Name: e.StopName, DistanceFt: e.Distance})
	}
	return stops, nil
}
