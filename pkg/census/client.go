// Package census looks up ACS median household income for a coordinate via
// the Census geocoder (block-group resolution) and the ACS 5-year API.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultGeocoderURL = "https://geocoding.geo.census.gov/geocoder/geographies/coordinates"
	defaultACSBaseURL  = "https://api.census.gov/data"
	censusBenchmark    = "Public_AR_Current"
	censusVintage      = "Current_Current"

	// B19013_001E = median household income, inflation-adjusted dollars.
	incomeVariable = "B19013_001E"
)

// Client resolves a coordinate to a block group and fetches its median income.
type Client interface {
	MedianIncome(ctx context.Context, lat, lon float64) (*Income, error)
}

// BlockGroup identifies a Census block group.
type BlockGroup struct {
	State      string
	County     string
	Tract      string
	BlockGroup string
}

// Income is a successful median-income lookup. A nil *Income from
// MedianIncome means the point resolved but ACS has no income estimate for
// the block group.
type Income struct {
	Amount     int
	BlockGroup BlockGroup
}

// Option configures the client.
type Option func(*httpClient)

// WithGeocoderURL overrides the geocoder endpoint.
func WithGeocoderURL(u string) Option {
	return func(c *httpClient) { c.geocoderURL = u }
}

// WithACSBaseURL overrides the ACS API base URL.
func WithACSBaseURL(u string) Option {
	return func(c *httpClient) { c.acsBaseURL = u }
}

// WithYear sets the ACS 5-year vintage.
func WithYear(year int) Option {
	return func(c *httpClient) { c.year = year }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit sets the requests-per-second limit for Census calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)) }
}

type httpClient struct {
	apiKey      string
	geocoderURL string
	acsBaseURL  string
	year        int
	http        *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a Census client. The API key may be empty; the Census
// API permits modest keyless usage.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:      apiKey,
		geocoderURL: defaultGeocoderURL,
		acsBaseURL:  defaultACSBaseURL,
		year:        2023,
		http:        &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// geocoderResponse is the subset of the geographies geocoder response we use.
// "Census Block Groups" is preferred; "2020 Census Blocks" also carries the
// block-group identifiers and serves as a fallback.
type geocoderResponse struct {
	Result struct {
		Geographies map[string][]geographyEntry `json:"geographies"`
	} `json:"result"`
}

type geographyEntry struct {
	State      string `json:"STATE"`
	County     string `json:"COUNTY"`
	Tract      string `json:"TRACT"`
	BlockGroup string `json:"BLKGRP"`
}

// MedianIncome resolves the block group containing (lat, lon) and returns its
// ACS median household income. Returns (nil, nil) when the point resolves but
// no income estimate exists.
func (c *httpClient) MedianIncome(ctx context.Context, lat, lon float64) (*Income, error) {
	bg, err := c.blockGroup(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	amount, ok, err := c.medianIncomeBG(ctx, bg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Income{Amount: amount, BlockGroup: bg}, nil
}

func (c *httpClient) blockGroup(ctx context.Context, lat, lon float64) (BlockGroup, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return BlockGroup{}, eris.Wrap(err, "census: geocoder rate limit")
	}

	params := url.Values{
		"x":         {strconv.FormatFloat(lon, 'f', -1, 64)},
		"y":         {strconv.FormatFloat(lat, 'f', -1, 64)},
		"benchmark": {censusBenchmark},
		"vintage":   {censusVintage},
		"format":    {"json"},
	}

	body, err := c.get(ctx, c.geocoderURL+"?"+params.Encode())
	if err != nil {
		return BlockGroup{}, err
	}

	var resp geocoderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return BlockGroup{}, eris.Wrap(err, "census: parse geocoder response")
	}

	geos := resp.Result.Geographies["Census Block Groups"]
	if len(geos) == 0 {
		geos = resp.Result.Geographies["2020 Census Blocks"]
	}
	if len(geos) == 0 {
		return BlockGroup{}, eris.New("census: no block group for point")
	}

	g := geos[0]
	if g.State == "" || g.Tract == "" {
		return BlockGroup{}, eris.New("census: incomplete block group in geocoder response")
	}
	return BlockGroup{
		State:      g.State,
		County:     g.County,
		Tract:      g.Tract,
		BlockGroup: g.BlockGroup,
	}, nil
}

// medianIncomeBG fetches B19013_001E for the block group. ACS returns a
// two-row array: header row then value row; the estimate may be null or a
// negative sentinel when unavailable.
func (c *httpClient) medianIncomeBG(ctx context.Context, bg BlockGroup) (int, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false, eris.Wrap(err, "census: acs rate limit")
	}

	params := url.Values{
		"get": {"NAME," + incomeVariable},
		"for": {"block group:" + bg.BlockGroup},
		"in":  {fmt.Sprintf("state:%s county:%s tract:%s", bg.State, bg.County, bg.Tract)},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/%d/acs/acs5?%s", c.acsBaseURL, c.year, params.Encode())
	body, err := c.get(ctx, reqURL)
	if err != nil {
		return 0, false, err
	}

	var rows [][]*string
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, false, eris.Wrap(err, "census: parse acs response")
	}
	if len(rows) < 2 || len(rows[1]) < 2 || rows[1][1] == nil {
		return 0, false, nil
	}

	amount, err := strconv.Atoi(*rows[1][1])
	if err != nil || amount < 0 {
		// Negative sentinels mean the estimate is suppressed.
		return 0, false, nil
	}
	return amount, true, nil
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "census: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "census: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("census: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
