package location

import (
	"fmt"
	"math/rand"
	"testing"

	"londa/internal/types"
)

var windhoek = types.Point{Lat: -22.5650, Lng: 17.0800}

func pt(lat, lng float64) *types.Point {
	return &types.Point{Lat: lat, Lng: lng}
}

func TestRankCandidates_RiderExample(t *testing.T) {
	drivers := []DriverPosition{
		{DriverID: "driver-near", Location: pt(-22.5700, 17.0836)},
	}
	got, skipped := rankCandidates(windhoek, drivers, 5, 10)
	if skipped != 0 {
		t.Errorf("skipped = %d", skipped)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if d := got[0].DistanceKm; d < 0.617 || d > 0.717 {
		t.Errorf("distance = %f, want ≈0.667", d)
	}
}

func TestRankCandidates_WithinRadiusAndSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var drivers []DriverPosition
	for i := 0; i < 300; i++ {
		drivers = append(drivers, DriverPosition{
			DriverID: types.ID(fmt.Sprintf("d%03d", i)),
			Location: pt(windhoek.Lat+rng.Float64()*0.2-0.1, windhoek.Lng+rng.Float64()*0.2-0.1),
		})
	}

	for _, radius := range []float64{0.5, 2, 5, 20} {
		got, _ := rankCandidates(windhoek, drivers, radius, 0)
		for i, c := range got {
			if c.DistanceKm > radius {
				t.Fatalf("radius %v: %s at %f km is outside", radius, c.DriverID, c.DistanceKm)
			}
			if i > 0 && got[i-1].DistanceKm > c.DistanceKm {
				t.Fatalf("radius %v: not sorted at %d", radius, i)
			}
		}
	}
}

func TestRankCandidates_LimitAndTies(t *testing.T) {
	same := pt(-22.5700, 17.0836)
	drivers := []DriverPosition{
		{DriverID: "zeta", Location: same},
		{DriverID: "alpha", Location: same},
		{DriverID: "far", Location: pt(-22.6000, 17.1000)},
		{DriverID: "mid", Location: pt(-22.5680, 17.0820)},
	}
	got, _ := rankCandidates(windhoek, drivers, 5, 3)
	want := []types.ID{"mid", "alpha", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates", len(got))
	}
	for i, id := range want {
		if got[i].DriverID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].DriverID, id)
		}
	}
}

func TestRankCandidates_SkipsMissingLocation(t *testing.T) {
	drivers := []DriverPosition{
		{DriverID: "ghost"},
		{DriverID: "real", Location: pt(-22.5651, 17.0801)},
		{DriverID: "ghost2"},
	}
	got, skipped := rankCandidates(windhoek, drivers, 5, 10)
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(got) != 1 || got[0].DriverID != "real" {
		t.Errorf("unexpected candidates: %v", got)
	}
}

func TestRankCandidates_EmptyAndDefaultRadius(t *testing.T) {
	got, skipped := rankCandidates(windhoek, nil, 0, 10)
	if len(got) != 0 || skipped != 0 {
		t.Errorf("expected empty result, got %v (%d skipped)", got, skipped)
	}
	// 4.5km away: inside the default 5km radius
	drivers := []DriverPosition{{DriverID: "edge", Location: pt(windhoek.Lat-0.0405, windhoek.Lng)}}
	if got, _ := rankCandidates(windhoek, drivers, 0, 0); len(got) != 1 {
		t.Errorf("default radius should include driver at 4.5km, got %v", got)
	}
}
