// README: GeoIndex over the Firestore drivers collection (full scan or geohash windows).
package location

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/genproto/googleapis/type/latlng"

	"londa/internal/metrics"
	"londa/internal/types"
)

const (
	DriversCollection = "drivers"
	StatusOnline      = "online"
)

type Mode string

const (
	ModeScan    Mode = "scan"
	ModeGeohash Mode = "geohash"
)

// driverLocationDoc mirrors the location fields of a drivers/{id} document.
type driverLocationDoc struct {
	Status   string         `firestore:"status"`
	Location *latlng.LatLng `firestore:"location"`
	Geohash  string         `firestore:"geohash"`
}

type FirestoreIndex struct {
	client *firestore.Client
	mode   Mode
}

func NewFirestoreIndex(client *firestore.Client, mode Mode) *FirestoreIndex {
	if mode != ModeGeohash {
		mode = ModeScan
	}
	return &FirestoreIndex{client: client, mode: mode}
}

func (x *FirestoreIndex) Nearby(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	if err := ValidatePoint(p); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	defer func(start time.Time) { metrics.NearbyLatency.Observe(time.Since(start).Seconds()) }(time.Now())

	var (
		drivers []DriverPosition
		err     error
	)
	cells, windowed := searchCells(p, radiusKm)
	if x.mode == ModeGeohash && windowed {
		drivers, err = x.queryWindows(ctx, cells)
	} else {
		drivers, err = x.queryOnline(ctx, x.client.Collection(DriversCollection).Where("status", "==", StatusOnline))
	}
	if err != nil {
		return nil, err
	}

	out, skipped := rankCandidates(p, drivers, radiusKm, limit)
	reportSkipped(ctx, skipped)
	return out, nil
}

// queryWindows reads online drivers whose geohash falls in any of cells.
// Drivers with no geohash never match a window, so skipped drivers are
// only observable in scan mode.
func (x *FirestoreIndex) queryWindows(ctx context.Context, cells []string) ([]DriverPosition, error) {
	var all []DriverPosition
	for _, cell := range cells {
		q := x.client.Collection(DriversCollection).
			Where("status", "==", StatusOnline).
			Where("geohash", ">=", cell).
			Where("geohash", "<", cell+"~")
		drivers, err := x.queryOnline(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, drivers...)
	}
	return all, nil
}

func (x *FirestoreIndex) queryOnline(ctx context.Context, q firestore.Query) ([]DriverPosition, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("querying online drivers: %w", err)
	}
	out := make([]DriverPosition, 0, len(docs))
	for _, doc := range docs {
		var d driverLocationDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decoding driver %s: %w", doc.Ref.ID, err)
		}
		pos := DriverPosition{DriverID: types.ID(doc.Ref.ID)}
		if d.Location != nil {
			pos.Location = &types.Point{Lat: d.Location.Latitude, Lng: d.Location.Longitude}
		}
		out = append(out, pos)
	}
	return out, nil
}
