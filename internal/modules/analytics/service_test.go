package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

type fakeLister struct {
	rides []ride.Ride
	calls int
	err   error
}

func (f *fakeLister) list(match func(ride.Ride) bool, q ride.PageQuery) (ride.Page, error) {
	f.calls++
	if f.err != nil {
		return ride.Page{}, f.err
	}
	q = q.Normalize()
	var mine []ride.Ride
	for _, r := range f.rides {
		if match(r) {
			mine = append(mine, r)
		}
	}
	start := min(q.Offset(), len(mine))
	end := min(start+q.Limit, len(mine))
	return ride.Page{Rides: mine[start:end], Total: len(mine), Page: q.Page, Limit: q.Limit, HasMore: end < len(mine)}, nil
}

func (f *fakeLister) ListForRider(_ context.Context, riderID types.ID, q ride.PageQuery) (ride.Page, error) {
	return f.list(func(r ride.Ride) bool { return r.RiderID == riderID }, q)
}

func (f *fakeLister) ListForDriver(_ context.Context, driverID types.ID, q ride.PageQuery) (ride.Page, error) {
	return f.list(func(r ride.Ride) bool { return r.AssignedTo(driverID) }, q)
}

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newService(rides ...ride.Ride) (*Service, *fakeLister) {
	f := &fakeLister{rides: rides}
	s := NewService(f, "NAD")
	s.now = func() time.Time { return now }
	return s, f
}

func fixture(id string, status ride.Status, created time.Time, fare float64) ride.Ride {
	driver := types.ID("d1")
	r := ride.Ride{
		ID:            types.ID(id),
		RiderID:       "r1",
		DriverID:      &driver,
		Status:        status,
		EstimatedFare: types.NewMoney(fare, "NAD"),
		CreatedAt:     created,
	}
	if status != ride.StatusPending && status != ride.StatusCancelled {
		accepted := created.Add(4 * time.Minute)
		r.AcceptedAt = &accepted
	}
	if status == ride.StatusPending {
		r.DriverID = nil
	}
	if status == ride.StatusCompleted {
		done := created.Add(30 * time.Minute)
		r.CompletedAt = &done
	}
	return r
}

func withRating(r ride.Ride, stars int) ride.Ride {
	r.Rating = &stars
	return r
}

func withFinal(r ride.Ride, major float64) ride.Ride {
	f := types.NewMoney(major, "NAD")
	r.FinalFare = &f
	return r
}

func TestRiderStats(t *testing.T) {
	svc, _ := newService(
		withRating(fixture("a", ride.StatusCompleted, now.Add(-time.Hour), 13), 5),
		withRating(withFinal(fixture("b", ride.StatusCompleted, now.Add(-48*time.Hour), 13), 20), 4),
		fixture("c", ride.StatusCancelled, now.Add(-time.Hour), 13),
		fixture("d", ride.StatusPending, now, 13),
		fixture("e", ride.StatusStarted, now, 13),
	)
	got, err := svc.RiderStats(context.Background(), "r1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.TotalRides != 5 || got.CompletedRides != 2 || got.CancelledRides != 1 || got.PendingRides != 2 {
		t.Fatalf("counts = %+v", got)
	}
	if got.TotalSpent != types.NewMoney(33, "NAD") {
		t.Fatalf("spent = %v, want NAD 33.00", got.TotalSpent)
	}
	if got.AverageRating != 4.5 {
		t.Fatalf("rating = %v, want 4.5", got.AverageRating)
	}
}

func TestRiderStats_Empty(t *testing.T) {
	svc, _ := newService()
	got, err := svc.RiderStats(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.TotalRides != 0 || got.AverageRating != 0 || got.TotalSpent.Currency != "NAD" {
		t.Fatalf("empty stats = %+v", got)
	}
}

func TestRiderPerformance(t *testing.T) {
	svc, _ := newService(
		fixture("a", ride.StatusCompleted, now.Add(-time.Hour), 13),
		fixture("b", ride.StatusCompleted, now.Add(-40*24*time.Hour), 13),
		fixture("c", ride.StatusCancelled, now.Add(-time.Hour), 13),
	)
	got, err := svc.RiderPerformance(context.Background(), "r1")
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if got.CompletionRate != 66.67 || got.RecentRides30Days != 2 {
		t.Fatalf("performance = %+v", got)
	}
}

func TestDriverEarnings_Windows(t *testing.T) {
	svc, _ := newService(
		fixture("today", ride.StatusCompleted, now.Add(-2*time.Hour), 10),
		fixture("week", ride.StatusCompleted, now.Add(-3*24*time.Hour), 20),
		fixture("month", ride.StatusCompleted, now.Add(-20*24*time.Hour), 30),
		fixture("old", ride.StatusCompleted, now.Add(-90*24*time.Hour), 40),
		fixture("open", ride.StatusStarted, now.Add(-time.Hour), 99),
	)
	got, err := svc.DriverEarnings(context.Background(), "d1")
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if got.TotalRides != 4 || got.TotalEarnings != types.NewMoney(100, "NAD") {
		t.Fatalf("totals = %+v", got)
	}
	if got.AveragePerRide != types.NewMoney(25, "NAD") {
		t.Fatalf("average = %v", got.AveragePerRide)
	}

	tests := []struct {
		name  string
		w     Window
		rides int
		total float64
	}{
		{"daily", got.Daily, 1, 10},
		{"weekly", got.Weekly, 2, 30},
		{"monthly", got.Monthly, 3, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.w.Rides != tt.rides || tt.w.Total != types.NewMoney(tt.total, "NAD") {
				t.Fatalf("window = %+v, want %d rides totalling %v", tt.w, tt.rides, tt.total)
			}
			if len(tt.w.Breakdown) != tt.rides {
				t.Fatalf("breakdown has %d days, want %d", len(tt.w.Breakdown), tt.rides)
			}
			for i := 1; i < len(tt.w.Breakdown); i++ {
				if tt.w.Breakdown[i-1].Date < tt.w.Breakdown[i].Date {
					t.Fatalf("breakdown not newest first: %+v", tt.w.Breakdown)
				}
			}
		})
	}
}

func TestDriverStatsAndPerformance(t *testing.T) {
	svc, _ := newService(
		withRating(fixture("a", ride.StatusCompleted, now.Add(-time.Hour), 13), 3),
		fixture("b", ride.StatusAccepted, now.Add(-time.Hour), 13),
		fixture("c", ride.StatusStarted, now.Add(-time.Hour), 13),
	)
	stats, err := svc.DriverStats(context.Background(), "d1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveRides != 2 || stats.CompletedRides != 1 || stats.AverageRating != 3 || stats.CompletionRate != 33.33 {
		t.Fatalf("stats = %+v", stats)
	}
	perf, err := svc.DriverPerformance(context.Background(), "d1")
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if perf.AverageResponseTimeMinutes != 4 {
		t.Fatalf("response time = %v, want 4", perf.AverageResponseTimeMinutes)
	}
}

func TestMonthlyUsage(t *testing.T) {
	svc, _ := newService(
		fixture("in1", ride.StatusCompleted, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), 13),
		fixture("in2", ride.StatusCancelled, time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC), 13),
		fixture("out", ride.StatusCompleted, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 13),
	)
	got, err := svc.MonthlyUsage(context.Background(), "r1", 2, 2026)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if got.TotalRides != 2 || got.CompletedRides != 1 || got.CancelledRides != 1 {
		t.Fatalf("usage = %+v", got)
	}
	if len(got.Rides) != 1 || got.Rides[0] != "in1" {
		t.Fatalf("completed ids = %v", got.Rides)
	}

	for _, bad := range [][2]int{{0, 2026}, {13, 2026}, {1, 99}} {
		if _, err := svc.MonthlyUsage(context.Background(), "r1", bad[0], bad[1]); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("month %d year %d: err = %v, want ErrBadRequest", bad[0], bad[1], err)
		}
	}
}

func TestHistory_CapsAndPropagatesErrors(t *testing.T) {
	var rides []ride.Ride
	for i := 0; i < historyCap+50; i++ {
		rides = append(rides, fixture(fmt.Sprintf("r%d", i), ride.StatusCancelled, now, 1))
	}
	svc, f := newService(rides...)
	got, err := svc.RiderStats(context.Background(), "r1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.TotalRides != historyCap {
		t.Fatalf("total = %d, want cap %d", got.TotalRides, historyCap)
	}
	if f.calls != historyCap/ride.MaxPageLimit {
		t.Fatalf("pages read = %d", f.calls)
	}

	f.err = errors.New("boom")
	if _, err := svc.DriverEarnings(context.Background(), "d1"); err == nil {
		t.Fatal("expected lister error to propagate")
	}
}
