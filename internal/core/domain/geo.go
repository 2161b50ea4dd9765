package domain

// GeoPoint represents a geographic coordinate (WGS 84 unless noted).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Path is an ordered, chronological trace of accepted points. Once filtered,
// consecutive points are at least the configured minimum gap apart.
type Path struct {
	Points []GeoPoint `json:"points"`
}

// Len returns the number of points in the path.
func (p Path) Len() int { return len(p.Points) }

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box (inclusive).
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Expand grows the box by the given margin in degrees on every side.
func (b Bounds) Expand(deg float64) Bounds {
	return Bounds{
		MinLat: b.MinLat - deg,
		MinLon: b.MinLon - deg,
		MaxLat: b.MaxLat + deg,
		MaxLon: b.MaxLon + deg,
	}
}
