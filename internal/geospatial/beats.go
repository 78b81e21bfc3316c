// Package geospatial resolves police beats locally from a downloaded
// shapefile, avoiding a per-record ArcGIS round trip.
package geospatial

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// BeatIndex answers point-in-polygon queries against a set of named beat
// shapes. Safe for concurrent reads once built.
type BeatIndex struct {
	beats []beatShape
}

type beatShape struct {
	name   string
	rings  []*geom.LinearRing
	bounds *geom.Bounds
}

// NewBeatIndex creates an empty index.
func NewBeatIndex() *BeatIndex {
	return &BeatIndex{}
}

// AddBeat adds a named shape. Rings follow the even-odd rule: a point inside
// an odd number of rings is inside the beat, so holes need no orientation
// handling.
func (idx *BeatIndex) AddBeat(name string, rings ...*geom.LinearRing) {
	if name == "" || len(rings) == 0 {
		return
	}
	bounds := geom.NewBounds(geom.XY)
	for _, r := range rings {
		bounds = bounds.Extend(r)
	}
	idx.beats = append(idx.beats, beatShape{name: name, rings: rings, bounds: bounds})
}

// Len returns the number of indexed beats.
func (idx *BeatIndex) Len() int {
	return len(idx.beats)
}

// BeatForPoint returns the name of the beat containing (lat, lon), or ""
// when no beat contains it.
func (idx *BeatIndex) BeatForPoint(lat, lon float64) string {
	pt := geom.Coord{lon, lat}
	for _, b := range idx.beats {
		if !b.bounds.OverlapsPoint(geom.XY, pt) {
			continue
		}
		crossings := 0
		for _, ring := range b.rings {
			if ringContains(ring, lon, lat) {
				crossings++
			}
		}
		if crossings%2 == 1 {
			return b.name
		}
	}
	return ""
}

// ringContains runs a ray cast from the point along +x.
func ringContains(ring *geom.LinearRing, x, y float64) bool {
	coords := ring.Coords()
	inside := false
	n := len(coords)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := coords[i][0], coords[i][1]
		xj, yj := coords[j][0], coords[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// LoadBeatIndex reads beat polygons from a shapefile, naming each beat by
// the given attribute field (case-insensitive).
func LoadBeatIndex(shpPath, nameField string) (*BeatIndex, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geospatial: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		fn := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(fn, nameField) {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("geospatial: field %q not found in %s", nameField, shpPath)
	}

	idx := NewBeatIndex()
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly.NumParts == 0 || len(poly.Points) == 0 {
			skipped++
			continue
		}

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			skipped++
			continue
		}

		idx.AddBeat(name, polygonRings(poly)...)
	}

	if skipped > 0 {
		zap.L().Debug("geospatial: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return idx, nil
}

// polygonRings converts shapefile polygon parts to linear rings.
func polygonRings(p *shp.Polygon) []*geom.LinearRing {
	rings := make([]*geom.LinearRing, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		rings = append(rings, geom.NewLinearRingFlat(geom.XY, flat))
	}
	return rings
}
