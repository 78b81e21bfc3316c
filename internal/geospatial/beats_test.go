package geospatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	geom "github.com/twpayne/go-geom"
)

func ring(coords ...float64) *geom.LinearRing {
	return geom.NewLinearRingFlat(geom.XY, coords)
}

// unitSquare is a ring around (x0,y0)-(x1,y1).
func square(x0, y0, x1, y1 float64) *geom.LinearRing {
	return ring(x0, y0, x1, y0, x1, y1, x0, y1, x0, y0)
}

func TestBeatForPoint_SimplePolygon(t *testing.T) {
	idx := NewBeatIndex()
	idx.AddBeat("Beat 1", square(-88.30, 40.10, -88.20, 40.20))

	assert.Equal(t, "Beat 1", idx.BeatForPoint(40.15, -88.25))
	assert.Empty(t, idx.BeatForPoint(40.15, -88.35), "west of the beat")
	assert.Empty(t, idx.BeatForPoint(40.25, -88.25), "north of the beat")
}

func TestBeatForPoint_MultipleBeats(t *testing.T) {
	idx := NewBeatIndex()
	idx.AddBeat("West", square(-88.30, 40.10, -88.25, 40.20))
	idx.AddBeat("East", square(-88.25, 40.10, -88.20, 40.20))

	assert.Equal(t, "West", idx.BeatForPoint(40.15, -88.28))
	assert.Equal(t, "East", idx.BeatForPoint(40.15, -88.22))
}

func TestBeatForPoint_Hole(t *testing.T) {
	idx := NewBeatIndex()
	// Outer square with an inner hole; even-odd rule excludes the hole.
	idx.AddBeat("Donut",
		square(0, 0, 10, 10),
		square(4, 4, 6, 6),
	)

	assert.Equal(t, "Donut", idx.BeatForPoint(2, 2))
	assert.Empty(t, idx.BeatForPoint(5, 5), "inside the hole")
}

func TestBeatForPoint_BoundsShortCircuit(t *testing.T) {
	idx := NewBeatIndex()
	idx.AddBeat("Far", square(100, 100, 101, 101))

	assert.Empty(t, idx.BeatForPoint(40.1, -88.2))
}

func TestAddBeat_IgnoresEmpty(t *testing.T) {
	idx := NewBeatIndex()
	idx.AddBeat("", square(0, 0, 1, 1))
	idx.AddBeat("NoRings")

	assert.Zero(t, idx.Len())
}
