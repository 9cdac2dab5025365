// README: Geographic point in decimal degrees.
package types

type Point struct {
	Lat     float64 `json:"latitude"`
	Lng     float64 `json:"longitude"`
	Name    string  `json:"name,omitempty"`
	Address string  `json:"address,omitempty"`
}

// Valid reports whether the point lies in the WGS84 ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
