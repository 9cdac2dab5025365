// README: Nearby-driver query types and the GeoIndex contract.
package location

import (
	"context"

	"londa/internal/types"
)

// DefaultRadiusKm is used when a caller passes a non-positive radius.
const DefaultRadiusKm = 5.0

// Candidate is an online driver returned by a nearby search.
type Candidate struct {
	DriverID   types.ID
	Location   types.Point
	DistanceKm float64
}

// DriverPosition is an online driver as read from a backing store.
// Location is nil for drivers that have never reported one.
type DriverPosition struct {
	DriverID types.ID
	Location *types.Point
}

// GeoIndex answers "which online drivers are near this point".
// Implementations never return an error for an empty result.
type GeoIndex interface {
	Nearby(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error)
}
