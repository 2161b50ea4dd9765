package geospatial

import (
	"math"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// RingArea computes the area in square meters of an implicitly closed polygon
// on the sphere. The shoelace sum over longitude differences is weighted by
// (2 + sin(lat_i) + sin(lat_j)) to correct for curvature. The magnitude is
// orientation-independent. Rings with fewer than 3 vertices have zero area.
func RingArea(ring []domain.GeoPoint) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		p1 := ring[i]
		p2 := ring[(i+1)%n]
		sum += toRad(p2.Lon-p1.Lon) * (2 + math.Sin(toRad(p1.Lat)) + math.Sin(toRad(p2.Lat)))
	}

	return math.Abs(sum) * earthRadiusM * earthRadiusM / 2
}

// ccw reports whether a, b, c are in counterclockwise order on the lat/lon plane.
func ccw(a, b, c domain.GeoPoint) bool {
	return (c.Lat-a.Lat)*(b.Lon-a.Lon) > (b.Lat-a.Lat)*(c.Lon-a.Lon)
}

// SegmentsIntersect reports whether segment p1-p2 properly crosses segment
// p3-p4: the endpoints of each must straddle the line of the other. Collinear
// or endpoint-touching segments are not treated as intersecting.
func SegmentsIntersect(p1, p2, p3, p4 domain.GeoPoint) bool {
	return ccw(p1, p3, p4) != ccw(p2, p3, p4) && ccw(p1, p2, p3) != ccw(p1, p2, p4)
}

// PointInRing runs an even-odd ray cast against the implicitly closed ring.
func PointInRing(p domain.GeoPoint, ring []domain.GeoPoint) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		if (ring[i].Lat > p.Lat) != (ring[j].Lat > p.Lat) &&
			p.Lon < (ring[j].Lon-ring[i].Lon)*(p.Lat-ring[i].Lat)/
				(ring[j].Lat-ring[i].Lat)+ring[i].Lon {
			inside = !inside
		}
		j = i
	}
	return inside
}

// SegmentCrossesRing reports whether the segment a-b crosses any edge of the
// implicitly closed ring.
func SegmentCrossesRing(a, b domain.GeoPoint, ring []domain.GeoPoint) bool {
	n := len(ring)
	for i := 0; i < n; i++ {
		if SegmentsIntersect(a, b, ring[i], ring[(i+1)%n]) {
			return true
		}
	}
	return false
}

// RingBounds computes the bounding box of a set of vertices.
func RingBounds(ring []domain.GeoPoint) domain.Bounds {
	if len(ring) == 0 {
		return domain.Bounds{}
	}

	b := domain.Bounds{
		MinLat: ring[0].Lat, MaxLat: ring[0].Lat,
		MinLon: ring[0].Lon, MaxLon: ring[0].Lon,
	}
	for _, p := range ring[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b
}
