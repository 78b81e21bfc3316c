// Package arcgis queries an ArcGIS feature layer for the polygon containing
// a point. Used for the Champaign police-beats open-data layer.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Client resolves the feature attribute value for a point.
type Client interface {
	FeatureForPoint(ctx context.Context, lat, lon float64) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithOutField sets the attribute returned for the matched feature
// (default "NAME").
func WithOutField(field string) Option {
	return func(c *httpClient) { c.outField = field }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	layerURL string
	outField string
	http     *http.Client
}

// NewClient creates a client for one feature layer query endpoint.
func NewClient(layerURL string, opts ...Option) Client {
	c := &httpClient{
		layerURL: layerURL,
		outField: "NAME",
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type queryResponse struct {
	Features []struct {
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

// FeatureForPoint runs a point-intersects query and returns the out field of
// the first matching feature, or "" when no polygon contains the point.
func (c *httpClient) FeatureForPoint(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"f":              {"geojson"},
		"where":          {"1=1"},
		"outFields":      {c.outField},
		"geometry":       {fmt.Sprintf("%f,%f", lon, lat)},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"returnGeometry": {"false"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.layerURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "arcgis: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "arcgis: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "arcgis: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("arcgis: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return "", eris.Wrap(err, "arcgis: parse response")
	}
	if len(qr.Features) == 0 {
		return "", nil
	}

	val, ok := qr.Features[0].Properties[c.outField].(string)
	if !ok {
		return "", nil
	}
	return val, nil
}
