// README: Shared ranking step used by every GeoIndex implementation.
package location

import (
	"context"
	"log/slog"

	"londa/internal/metrics"
	"londa/internal/types"
)

// rankCandidates keeps drivers within radiusKm of origin, sorted by distance
// then driver id, truncated to limit (limit <= 0 keeps all). It also reports
// how many drivers were skipped for having no location.
func rankCandidates(origin types.Point, drivers []DriverPosition, radiusKm float64, limit int) ([]Candidate, int) {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	out := make([]Candidate, 0, len(drivers))
	skipped := 0
	for _, d := range drivers {
		if d.Location == nil {
			skipped++
			continue
		}
		dist := Distance(origin, *d.Location)
		if dist > radiusKm {
			continue
		}
		out = append(out, Candidate{DriverID: d.DriverID, Location: *d.Location, DistanceKm: dist})
	}

	sortByDistance(out,
		func(c Candidate) float64 { return c.DistanceKm },
		func(c Candidate) string { return string(c.DriverID) },
	)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, skipped
}

func reportSkipped(ctx context.Context, skipped int) {
	if skipped == 0 {
		return
	}
	metrics.DriversSkipped.Add(float64(skipped))
	slog.WarnContext(ctx, "online drivers without location skipped", "count", skipped)
}
