// README: Matching service turns ride requests into pending rides and tells nearby drivers about them.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"londa/internal/config"
	"londa/internal/metrics"
	"londa/internal/modules/location"
	"londa/internal/modules/notification"
	"londa/internal/modules/pricing"
	"londa/internal/modules/ride"
	"londa/internal/types"
)

var ErrBadRequest = errors.New("bad request")

type RideService interface {
	Create(ctx context.Context, cmd ride.CreateCommand) (*ride.Ride, error)
	Get(ctx context.Context, id types.ID) (*ride.Ride, error)
	ListPending(ctx context.Context, limit int) ([]ride.Ride, error)
}

type Quoter interface {
	Quote(ctx context.Context, pickup, dropoff types.Point, rideType string) pricing.Quote
}

type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []types.ID, msg notification.Message) []notification.Result
}

type Service struct {
	rides    RideService
	index    location.GeoIndex
	quotes   Quoter
	notifier Notifier
	dispatch DispatchStore
	cfg      config.MatchingConfig
	timeout  time.Duration
	now      func() time.Time
	deliver  func(func())
}

type Option func(*Service)

// WithSyncDispatch runs the driver fan-out inline before RequestRide returns.
func WithSyncDispatch() Option {
	return func(s *Service) { s.deliver = func(f func()) { f() } }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifyTimeout bounds one detached fan-out.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(rides RideService, index location.GeoIndex, quotes Quoter, notifier Notifier, dispatch DispatchStore, cfg config.MatchingConfig, opts ...Option) *Service {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = location.DefaultRadiusKm
	}
	s := &Service{
		rides:    rides,
		index:    index,
		quotes:   quotes,
		notifier: notifier,
		dispatch: dispatch,
		cfg:      cfg,
		timeout:  10 * time.Second,
		now:      time.Now,
		deliver:  func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestRide creates a pending ride and dispatches it to nearby drivers.
// Once the ride is stored, nothing downstream can fail the request.
func (s *Service) RequestRide(ctx context.Context, cmd RequestCommand) (*Dispatch, error) {
	if err := location.ValidatePoint(cmd.Pickup); err != nil {
		return nil, fmt.Errorf("pickup: %w", err)
	}
	if err := location.ValidatePoint(cmd.Dropoff); err != nil {
		return nil, fmt.Errorf("dropoff: %w", err)
	}
	if cmd.RideType == "" {
		cmd.RideType = ride.DefaultRideType
	}

	quote := s.quotes.Quote(ctx, cmd.Pickup, cmd.Dropoff, cmd.RideType)
	r, err := s.rides.Create(ctx, ride.CreateCommand{
		RiderID:        cmd.RiderID,
		Pickup:         cmd.Pickup,
		Dropoff:        cmd.Dropoff,
		RideType:       cmd.RideType,
		PassengerCount: cmd.PassengerCount,
		EstimatedFare:  quote.EstimatedFare,
	})
	if err != nil {
		return nil, err
	}
	metrics.RidesRequested.Inc()

	candidates, err := s.index.Nearby(ctx, cmd.Pickup, s.cfg.RadiusKm, s.cfg.NotifyLimit)
	if err != nil {
		slog.ErrorContext(ctx, "nearby driver search failed", "ride_id", r.ID, "err", err)
		candidates = nil
	}
	slog.InfoContext(ctx, "ride requested", "ride_id", r.ID, "candidates", len(candidates), "fare_fallback", quote.Fallback)

	s.dispatchRide(ctx, *r, candidates)
	return &Dispatch{Ride: r, Quote: quote, Candidates: candidates}, nil
}

func (s *Service) dispatchRide(ctx context.Context, r ride.Ride, candidates []location.Candidate) {
	ids := make([]types.ID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.DriverID
	}
	ttl := r.ExpiresAt.Sub(s.now())
	detached := context.WithoutCancel(ctx)
	s.deliver(func() {
		ctx, cancel := context.WithTimeout(detached, s.timeout)
		defer cancel()

		if err := s.dispatch.RecordDispatch(ctx, r.ID, ids, ttl); err != nil {
			slog.WarnContext(ctx, "record dispatch failed", "ride_id", r.ID, "err", err)
		}
		if len(ids) == 0 {
			return
		}
		failed := 0
		for _, res := range s.notifier.NotifyUsers(ctx, ids, notification.RideRequested(r)) {
			if res.Err != nil && !errors.Is(res.Err, notification.ErrNoToken) {
				failed++
				slog.WarnContext(ctx, "notify driver failed", "ride_id", r.ID, "driver_id", res.UserID, "err", res.Err)
			}
		}
		slog.InfoContext(ctx, "ride dispatched", "ride_id", r.ID, "drivers", len(ids), "failed", failed)
	})
}

// NearbyDrivers lists online drivers around p. A zero radius means the default.
func (s *Service) NearbyDrivers(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]location.Candidate, error) {
	if err := location.ValidatePoint(p); err != nil {
		return nil, err
	}
	if radiusKm == 0 {
		radiusKm = location.DefaultRadiusKm
	}
	if radiusKm < 0 || radiusKm > MaxRadiusKm {
		return nil, fmt.Errorf("%w: radius must be between 0 and %.0f km", ErrBadRequest, MaxRadiusKm)
	}
	return s.index.Nearby(ctx, p, radiusKm, limit)
}

// AvailableRides lists pending rides a driver has not declined.
func (s *Service) AvailableRides(ctx context.Context, driverID types.ID, limit int) ([]ride.Ride, error) {
	if limit == 0 {
		limit = DefaultAvailableLimit
	}
	if limit < 1 || limit > ride.MaxPageLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrBadRequest, ride.MaxPageLimit)
	}
	rides, err := s.rides.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(rides))
	for i, r := range rides {
		ids[i] = r.ID
	}
	declined, err := s.dispatch.Declined(ctx, driverID, ids)
	if err != nil {
		// a missing decline list only means the driver sees rides again
		slog.WarnContext(ctx, "load declined rides failed", "driver_id", driverID, "err", err)
		return rides, nil
	}
	out := rides[:0]
	for _, r := range rides {
		if !declined[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

// Decline hides a pending ride from one driver. The ride stays open to everyone else.
func (s *Service) Decline(ctx context.Context, cmd DeclineCommand) error {
	if cmd.RideID == "" || cmd.DriverID == "" {
		return fmt.Errorf("%w: ride id is required", ErrBadRequest)
	}
	r, err := s.rides.Get(ctx, cmd.RideID)
	if err != nil {
		return err
	}
	if r.Status != ride.StatusPending {
		return &ride.TransitionError{From: r.Status, Event: ride.EventAccept}
	}
	if err := s.dispatch.RecordDecline(ctx, r.ID, cmd.DriverID, r.ExpiresAt.Sub(s.now())); err != nil {
		return fmt.Errorf("record decline: %w", err)
	}
	slog.InfoContext(ctx, "ride declined", "ride_id", r.ID, "driver_id", cmd.DriverID, "reason", cmd.Reason)
	return nil
}

// OnTransition tells the drivers who saw a pending ride that it is gone.
func (s *Service) OnTransition(ctx context.Context, t ride.Transition) error {
	if t.From != ride.StatusPending || (t.Event != ride.EventCancel && t.Event != ride.EventExpire) {
		return nil
	}
	ids, err := s.dispatch.Notified(ctx, t.RideID)
	if err != nil {
		return fmt.Errorf("load notified drivers: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	for _, res := range s.notifier.NotifyUsers(ctx, ids, notification.RideCancelled(t.Ride)) {
		if res.Err != nil && !errors.Is(res.Err, notification.ErrNoToken) {
			slog.WarnContext(ctx, "notify driver of cancellation failed", "ride_id", t.RideID, "driver_id", res.UserID, "err", res.Err)
		}
	}
	return nil
}
