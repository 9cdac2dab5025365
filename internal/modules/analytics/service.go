// README: Analytics service computes ride statistics and driver earnings on demand.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

var ErrBadRequest = errors.New("bad request")

type RideLister interface {
	ListForRider(ctx context.Context, riderID types.ID, q ride.PageQuery) (ride.Page, error)
	ListForDriver(ctx context.Context, driverID types.ID, q ride.PageQuery) (ride.Page, error)
}

type Service struct {
	rides    RideLister
	currency string
	now      func() time.Time
}

func NewService(rides RideLister, currency string) *Service {
	return &Service{rides: rides, currency: currency, now: time.Now}
}

// history pages through the newest rides up to historyCap.
func (s *Service) history(ctx context.Context, list func(context.Context, types.ID, ride.PageQuery) (ride.Page, error), id types.ID) ([]ride.Ride, error) {
	var out []ride.Ride
	for page := 1; len(out) < historyCap; page++ {
		p, err := list(ctx, id, ride.PageQuery{Page: page, Limit: ride.MaxPageLimit})
		if err != nil {
			return nil, fmt.Errorf("load ride history: %w", err)
		}
		out = append(out, p.Rides...)
		if !p.HasMore || len(p.Rides) == 0 {
			break
		}
	}
	if len(out) > historyCap {
		out = out[:historyCap]
	}
	return out, nil
}

func fare(r ride.Ride) types.Money {
	if r.FinalFare != nil {
		return *r.FinalFare
	}
	return r.EstimatedFare
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(n) / float64(total) * 100)
}

func averageRating(rides []ride.Ride) float64 {
	sum, n := 0, 0
	for _, r := range rides {
		if r.Status == ride.StatusCompleted && r.Rating != nil {
			sum += *r.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(float64(sum) / float64(n))
}

func countStatus(rides []ride.Ride, statuses ...ride.Status) int {
	n := 0
	for _, r := range rides {
		if slices.Contains(statuses, r.Status) {
			n++
		}
	}
	return n
}

func (s *Service) zero() types.Money {
	return types.Money{Currency: s.currency}
}

func (s *Service) RiderStats(ctx context.Context, riderID types.ID) (RiderStats, error) {
	rides, err := s.history(ctx, s.rides.ListForRider, riderID)
	if err != nil {
		return RiderStats{}, err
	}
	spent := s.zero()
	for _, r := range rides {
		if r.Status == ride.StatusCompleted {
			spent = spent.Add(fare(r))
		}
	}
	return RiderStats{
		TotalRides:     len(rides),
		CompletedRides: countStatus(rides, ride.StatusCompleted),
		CancelledRides: countStatus(rides, ride.StatusCancelled),
		PendingRides:   countStatus(rides, ride.StatusPending, ride.StatusAccepted, ride.StatusStarted),
		TotalSpent:     spent,
		AverageRating:  averageRating(rides),
	}, nil
}

func (s *Service) recent(rides []ride.Ride) int {
	cutoff := s.now().Add(-30 * 24 * time.Hour)
	n := 0
	for _, r := range rides {
		if !r.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n
}

func (s *Service) RiderPerformance(ctx context.Context, riderID types.ID) (RiderPerformance, error) {
	rides, err := s.history(ctx, s.rides.ListForRider, riderID)
	if err != nil {
		return RiderPerformance{}, err
	}
	completed := countStatus(rides, ride.StatusCompleted)
	return RiderPerformance{
		CompletionRate:    percent(completed, len(rides)),
		TotalRides:        len(rides),
		CompletedRides:    completed,
		RecentRides30Days: s.recent(rides),
	}, nil
}

// earnedAt is when a completed ride's fare was earned.
func earnedAt(r ride.Ride) time.Time {
	if r.CompletedAt != nil {
		return *r.CompletedAt
	}
	return r.CreatedAt
}

func (s *Service) window(rides []ride.Ride, since time.Time) Window {
	w := Window{Total: s.zero(), Breakdown: []DayEarnings{}}
	byDay := map[string]*DayEarnings{}
	for _, r := range rides {
		at := earnedAt(r).UTC()
		if at.Before(since) {
			continue
		}
		w.Total = w.Total.Add(fare(r))
		w.Rides++
		day := at.Format(time.DateOnly)
		d, ok := byDay[day]
		if !ok {
			d = &DayEarnings{Date: day, Earnings: s.zero()}
			byDay[day] = d
		}
		d.Earnings = d.Earnings.Add(fare(r))
		d.Rides++
	}
	for _, d := range byDay {
		w.Breakdown = append(w.Breakdown, *d)
	}
	slices.SortFunc(w.Breakdown, func(a, b DayEarnings) int { return strings.Compare(b.Date, a.Date) })
	return w
}

// DriverEarnings totals completed fares overall and for today, the last 7 and the last 30 days.
func (s *Service) DriverEarnings(ctx context.Context, driverID types.ID) (Earnings, error) {
	rides, err := s.history(ctx, s.rides.ListForDriver, driverID)
	if err != nil {
		return Earnings{}, err
	}
	var completed []ride.Ride
	total := s.zero()
	for _, r := range rides {
		if r.Status == ride.StatusCompleted {
			completed = append(completed, r)
			total = total.Add(fare(r))
		}
	}
	avg := s.zero()
	if len(completed) > 0 {
		avg.Amount = int64(math.Round(float64(total.Amount) / float64(len(completed))))
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Earnings{
		TotalEarnings:  total,
		TotalRides:     len(completed),
		AveragePerRide: avg,
		Daily:          s.window(completed, today),
		Weekly:         s.window(completed, now.Add(-7*24*time.Hour)),
		Monthly:        s.window(completed, now.Add(-30*24*time.Hour)),
	}, nil
}

func (s *Service) DriverStats(ctx context.Context, driverID types.ID) (DriverStats, error) {
	rides, err := s.history(ctx, s.rides.ListForDriver, driverID)
	if err != nil {
		return DriverStats{}, err
	}
	completed := countStatus(rides, ride.StatusCompleted)
	return DriverStats{
		TotalRides:     len(rides),
		CompletedRides: completed,
		CancelledRides: countStatus(rides, ride.StatusCancelled),
		ActiveRides:    countStatus(rides, ride.StatusAccepted, ride.StatusStarted),
		AverageRating:  averageRating(rides),
		CompletionRate: percent(completed, len(rides)),
	}, nil
}

// DriverPerformance reports the mean minutes between a ride request and this driver accepting it.
func (s *Service) DriverPerformance(ctx context.Context, driverID types.ID) (DriverPerformance, error) {
	rides, err := s.history(ctx, s.rides.ListForDriver, driverID)
	if err != nil {
		return DriverPerformance{}, err
	}
	var (
		wait time.Duration
		n    int
	)
	for _, r := range rides {
		if r.AcceptedAt != nil {
			wait += r.AcceptedAt.Sub(r.CreatedAt)
			n++
		}
	}
	resp := 0.0
	if n > 0 {
		resp = round2(wait.Minutes() / float64(n))
	}
	completed := countStatus(rides, ride.StatusCompleted)
	return DriverPerformance{
		CompletionRate:             percent(completed, len(rides)),
		TotalRides:                 len(rides),
		CompletedRides:             completed,
		RecentRides30Days:          s.recent(rides),
		AverageResponseTimeMinutes: resp,
	}, nil
}

// MonthlyUsage counts a rider's rides requested in the given calendar month (UTC).
func (s *Service) MonthlyUsage(ctx context.Context, riderID types.ID, month, year int) (MonthlyUsage, error) {
	if month < 1 || month > 12 || year < 2000 || year > 9999 {
		return MonthlyUsage{}, fmt.Errorf("%w: month must be 1-12 and year a four digit year", ErrBadRequest)
	}
	rides, err := s.history(ctx, s.rides.ListForRider, riderID)
	if err != nil {
		return MonthlyUsage{}, err
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	u := MonthlyUsage{Month: month, Year: year, Rides: []types.ID{}}
	for _, r := range rides {
		if r.CreatedAt.Before(start) || !r.CreatedAt.Before(end) {
			continue
		}
		u.TotalRides++
		switch r.Status {
		case ride.StatusCompleted:
			u.CompletedRides++
			u.Rides = append(u.Rides, r.ID)
		case ride.StatusCancelled:
			u.CancelledRides++
		}
	}
	return u, nil
}
