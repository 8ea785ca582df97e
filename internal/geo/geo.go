// Package geo holds the pure geometry used by the guessing game: great-circle
// distance, point-in-polygon classification, and the distance-to-feedback
// mappings shown to players.
package geo

import (
	"fmt"
	"math"
	"math/rand"
)

// earthRadiusM is the sphere radius used for all distance computations.
const earthRadiusM = 6371000.0

// LatLng is a WGS84 coordinate pair in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a lat/lng bounding box.
type Bounds struct {
	South float64
	North float64
	West  float64
	East  float64
}

// LondonBounds is the playing field: Greater London, roughly the M25.
var LondonBounds = Bounds{South: 51.3, North: 51.7, West: -0.5, East: 0.3}

// Contains reports whether p falls inside the box (edges inclusive).
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// RandomPoint returns a uniformly distributed point inside the box.
func (b Bounds) RandomPoint(rng *rand.Rand) LatLng {
	return LatLng{
		Lat: b.South + rng.Float64()*(b.North-b.South),
		Lng: b.West + rng.Float64()*(b.East-b.West),
	}
}

// Distance returns the great-circle distance between a and b in meters,
// using the haversine formula.
func Distance(a, b LatLng) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c
}

// PointInPolygon classifies p against the polygon using ray casting. The
// polygon is an ordered vertex list; the closing edge back to the first
// vertex is implied. Degenerate polygons (fewer than 3 vertices) contain
// nothing.
func PointInPolygon(p LatLng, polygon []LatLng) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		vi, vj := polygon[i], polygon[j]
		if (vi.Lng > p.Lng) != (vj.Lng > p.Lng) &&
			p.Lat < (vj.Lat-vi.Lat)*(p.Lng-vi.Lng)/(vj.Lng-vi.Lng)+vi.Lat {
			inside = !inside
		}
		j = i
	}
	return inside
}

// markerColorMaxM caps the gradient: anything 30 km or further is fully cold.
const markerColorMaxM = 30000.0

// MarkerColor maps a distance to a continuous HSL hue from red (0, on target)
// to blue (240, 30 km or more). This is the canonical color mapping for
// player markers.
func MarkerColor(distanceM float64) string {
	clamped := math.Max(0, math.Min(markerColorMaxM, distanceM))
	hue := clamped / markerColorMaxM * 240
	return fmt.Sprintf("hsl(%.0f, 100%%, 50%%)", hue)
}

// TemperatureLabel maps a distance to the coarse hot/cold hint shown when
// exact distances are hidden from players.
func TemperatureLabel(distanceM float64) string {
	switch {
	case distanceM <= 1000:
		return "on top of it"
	case distanceM <= 2000:
		return "burning hot"
	case distanceM <= 5000:
		return "very hot"
	case distanceM <= 10000:
		return "hot"
	case distanceM <= 15000:
		return "warm"
	case distanceM <= 20000:
		return "lukewarm"
	case distanceM <= 25000:
		return "cool"
	case distanceM <= 30000:
		return "very cold"
	default:
		return "freezing"
	}
}

// PolygonOpacity maps the number of players currently inside the target
// polygon to the overlay opacity observers see. A four-bucket step function,
// non-decreasing in the insider count.
func PolygonOpacity(insideCount int) float64 {
	switch {
	case insideCount <= 2:
		return 0
	case insideCount <= 5:
		return 0.2
	case insideCount <= 8:
		return 0.5
	default:
		return 1
	}
}
