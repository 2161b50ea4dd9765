package geospatial

import (
	"math"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// GCJ-02 ellipsoid parameters (Krasovsky 1940).
const (
	gcjA  = 6378245.0
	gcjEE = 0.00669342162296594323
)

// Mainland-China bounding box; coordinates outside pass through unchanged.
var gcjBounds = domain.Bounds{
	MinLat: 0.8293,
	MaxLat: 55.8271,
	MinLon: 72.004,
	MaxLon: 137.8347,
}

// ToGCJ02 converts a WGS-84 coordinate to the GCJ-02 datum used by Chinese
// map tile providers, so that traces line up visually with the basemap.
// The transform is one-directional and must not be applied twice; callers
// apply it only at the display boundary.
func ToGCJ02(p domain.GeoPoint) domain.GeoPoint {
	if !gcjBounds.Contains(p) {
		return p
	}

	dLat := transformLat(p.Lon-105.0, p.Lat-35.0)
	dLon := transformLon(p.Lon-105.0, p.Lat-35.0)

	radLat := toRad(p.Lat)
	magic := math.Sin(radLat)
	magic = 1 - gcjEE*magic*magic
	sqrtMagic := math.Sqrt(magic)

	dLat = (dLat * 180.0) / ((gcjA * (1 - gcjEE)) / (magic * sqrtMagic) * math.Pi)
	dLon = (dLon * 180.0) / (gcjA / sqrtMagic * math.Cos(radLat) * math.Pi)

	return domain.GeoPoint{Lat: p.Lat + dLat, Lon: p.Lon + dLon}
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLon(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return ret
}
