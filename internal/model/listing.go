package model

import (
	"math"
	"strconv"
	"strings"
)

// Well-known dataset columns.
const (
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
	ColAddress   = "address"
)

// Listing is one row of the listings dataset. Index is the row's position in
// the input set and never changes; Values maps column name to the raw cell
// value. Column order is tracked at the dataset level, not per row.
type Listing struct {
	Index  int
	Values map[string]string
}

// NewListing creates a listing with an initialized value map.
func NewListing(index int) Listing {
	return Listing{Index: index, Values: make(map[string]string)}
}

// Clone returns a deep copy so enrichment never mutates the caller's row.
func (l Listing) Clone() Listing {
	values := make(map[string]string, len(l.Values))
	for k, v := range l.Values {
		values[k] = v
	}
	return Listing{Index: l.Index, Values: values}
}

// Get returns the trimmed value of a column.
func (l Listing) Get(col string) string {
	return strings.TrimSpace(l.Values[col])
}

// Set assigns a column value.
func (l *Listing) Set(col, val string) {
	if l.Values == nil {
		l.Values = make(map[string]string)
	}
	l.Values[col] = val
}

// Coordinate returns the listing's lat/lon pair. The second return is false
// when either column is missing, empty, or not a finite number — such a
// listing is unenrichable and must be passed through untouched.
func (l Listing) Coordinate() (Coordinate, bool) {
	lat, ok := parseFinite(l.Get(ColLatitude))
	if !ok {
		return Coordinate{}, false
	}
	lon, ok := parseFinite(l.Get(ColLongitude))
	if !ok {
		return Coordinate{}, false
	}
	return Coordinate{Lat: lat, Lon: lon}, true
}

func parseFinite(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lon float64
}
