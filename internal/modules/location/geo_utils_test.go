package location

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"londa/internal/types"
)

func TestDistance_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: -22.5609, Lng: 17.0658},
			b:         types.Point{Lat: -22.5609, Lng: 17.0658},
			wantKm:    0,
			tolerance: 1e-6,
		},
		{
			name:      "driver to rider in Windhoek",
			a:         types.Point{Lat: -22.5700, Lng: 17.0836},
			b:         types.Point{Lat: -22.5650, Lng: 17.0800},
			wantKm:    0.667,
			tolerance: 0.05,
		},
		{
			name:      "Windhoek to Swakopmund (~261km)",
			a:         types.Point{Lat: -22.5609, Lng: 17.0658},
			b:         types.Point{Lat: -22.6784, Lng: 14.5266},
			wantKm:    261,
			tolerance: 5,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         types.Point{Lat: 40.7128, Lng: -74.0060},
			b:         types.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
		{
			name:      "antipodal points",
			a:         types.Point{Lat: 0, Lng: 0},
			b:         types.Point{Lat: 0, Lng: 180},
			wantKm:    math.Pi * earthRadiusKm,
			tolerance: 1e-6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("Distance() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistance_SymmetricAndNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a := types.Point{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180}
		b := types.Point{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180}
		d1, d2 := Distance(a, b), Distance(b, a)
		if d1 < 0 {
			t.Fatalf("negative distance %f for %+v %+v", d1, a, b)
		}
		if math.Abs(d1-d2) > 1e-9 {
			t.Fatalf("not symmetric: %f vs %f", d1, d2)
		}
		if self := Distance(a, a); self > 1e-6 {
			t.Fatalf("Distance(a, a) = %f", self)
		}
	}
}

func TestValidatePoint(t *testing.T) {
	tests := []struct {
		p       types.Point
		wantErr bool
	}{
		{types.Point{Lat: -22.57, Lng: 17.08}, false},
		{types.Point{Lat: -90, Lng: -180}, false},
		{types.Point{Lat: 91, Lng: 0}, true},
		{types.Point{Lat: 0, Lng: 181}, true},
		{types.Point{Lat: math.NaN(), Lng: 0}, true},
	}
	for _, tt := range tests {
		err := ValidatePoint(tt.p)
		if tt.wantErr != (err != nil) {
			t.Errorf("ValidatePoint(%+v) = %v", tt.p, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("expected ErrInvalidCoordinate, got %v", err)
		}
	}
}

func TestSortByDistance_TieBreaksOnKey(t *testing.T) {
	items := []Candidate{
		{DriverID: "c", DistanceKm: 1.0},
		{DriverID: "b", DistanceKm: 1.0},
		{DriverID: "a", DistanceKm: 3.0},
		{DriverID: "d", DistanceKm: 0.5},
	}
	sortByDistance(items,
		func(c Candidate) float64 { return c.DistanceKm },
		func(c Candidate) string { return string(c.DriverID) },
	)
	want := []types.ID{"d", "b", "c", "a"}
	for i, id := range want {
		if items[i].DriverID != id {
			t.Fatalf("position %d: got %s, want %s (%v)", i, items[i].DriverID, id, items)
		}
	}
}
