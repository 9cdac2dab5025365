// README: Geohash encoding and search-window selection for the geohash GeoIndex.
package location

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"londa/internal/types"
)

// StoredGeohashChars is the precision written on driver documents (~5m cells).
const StoredGeohashChars = 9

// kmPerDegreeLat matches the sphere used by Distance.
const kmPerDegreeLat = earthRadiusKm * math.Pi / 180

// windowMargin keeps cells comfortably larger than the radius so points
// slightly poleward of the centre cell are still covered.
const windowMargin = 1.05

// maxWindowLat is the highest latitude a search circle may reach and still be
// covered by a 3x3 cell window; closer to a pole the neighbours no longer wrap it.
const maxWindowLat = 85.0

// Geohash encodes p at the stored precision.
func Geohash(p types.Point) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, StoredGeohashChars)
}

// searchCells returns the cell containing p plus its eight neighbours, at the
// finest precision whose cell is at least radiusKm on its shortest side. Any
// point within radiusKm of p therefore lies in one of the returned cells.
// ok is false when the circle reaches past maxWindowLat or across the
// antimeridian; callers must scan instead.
func searchCells(p types.Point, radiusKm float64) (cells []string, ok bool) {
	latSpan := radiusKm / kmPerDegreeLat
	if math.Abs(p.Lat)+latSpan > maxWindowLat {
		return nil, false
	}
	lngSpan := latSpan / math.Cos(degreesToRadians(math.Abs(p.Lat)+latSpan))
	if math.Abs(p.Lng)+lngSpan >= 180 {
		return nil, false
	}

	chars := uint(1)
	for c := StoredGeohashChars; c >= 1; c-- {
		if cellMinSideKm(geohash.EncodeWithPrecision(p.Lat, p.Lng, uint(c))) >= radiusKm*windowMargin {
			chars = uint(c)
			break
		}
	}
	center := geohash.EncodeWithPrecision(p.Lat, p.Lng, chars)
	cells = append([]string{center}, geohash.Neighbors(center)...)

	seen := make(map[string]struct{}, len(cells))
	out := cells[:0]
	for _, c := range cells {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, true
}

func cellMinSideKm(hash string) float64 {
	box := geohash.BoundingBox(hash)
	height := (box.MaxLat - box.MinLat) * kmPerDegreeLat
	// the narrowest edge of the cell is the one farthest from the equator
	lat := math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))
	width := (box.MaxLng - box.MinLng) * kmPerDegreeLat * math.Cos(degreesToRadians(lat))
	return math.Min(height, width)
}
