// Package routes computes point-to-point travel times via the Google Routes
// API computeRouteMatrix endpoint.
package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://routes.googleapis.com"

// Client computes travel minutes between two coordinates.
type Client interface {
	// TravelMinutes returns the travel time in minutes, or nil when no route
	// exists between the points.
	TravelMinutes(ctx context.Context, origLat, origLon, destLat, destLon float64, mode string) (*float64, error)
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

// NewClient creates a Routes API client. Requires a billing-enabled project.
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

type routeMatrixRequest struct {
	Origins      []waypointWrapper `json:"origins"`
	Destinations []waypointWrapper `json:"destinations"`
	TravelMode   string            `json:"travelMode"`
}

type waypointWrapper struct {
	Waypoint waypoint `json:"waypoint"`
}

type waypoint struct {
	Location location `json:"location"`
}

type location struct {
	LatLng latLng `json:"latLng"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routeMatrixElement struct {
	OriginIndex      int    `json:"originIndex"`
	DestinationIndex int    `json:"destinationIndex"`
	Duration         string `json:"duration"`
	Condition        string `json:"condition"`
}

func (c *httpClient) TravelMinutes(ctx context.Context, origLat, origLon, destLat, destLon float64, mode string) (*float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "routes: rate limit")
	}
	if mode == "" {
		mode = "DRIVE"
	}

	payload := routeMatrixRequest{
		Origins:      []waypointWrapper{wrap(origLat, origLon)},
		Destinations: []waypointWrapper{wrap(destLat, destLon)},
		TravelMode:   mode,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "routes: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/distanceMatrix/v2:computeRouteMatrix", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "routes: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "originIndex,destinationIndex,duration,condition")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "routes: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "routes: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("routes: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var elements []routeMatrixElement
	if err := json.Unmarshal(respBody, &elements); err != nil {
		return nil, eris.Wrap(err, "routes: unmarshal response")
	}
	if len(elements) == 0 {
		return nil, nil
	}

	secs, ok := parseDuration(elements[0].Duration)
	if !ok {
		return nil, nil
	}
	minutes := secs / 60
	return &minutes, nil
}

func wrap(lat, lon float64) waypointWrapper {
	return waypointWrapper{Waypoint: waypoint{Location: location{LatLng: latLng{Latitude: lat, Longitude: lon}}}}
}

// parseDuration parses the API's protobuf duration string, e.g. "123s".
func parseDuration(d string) (float64, bool) {
	if d == "" || !strings.HasSuffix(d, "s") {
		return 0, false
	}
	secs, err := strconv.ParseFloat(strings.TrimSuffix(d, "s"), 64)
	if err != nil {
		return 0, false
	}
	return secs, true
}
