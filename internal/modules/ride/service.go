// README: Ride service applies state-machine transitions through the repository and publishes them.
package ride

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"londa/internal/config"
	"londa/internal/metrics"
	"londa/internal/modules/location"
	"londa/internal/types"
)

type Service struct {
	store     Repository
	cfg       config.RideConfig
	observers []Observer
	arbiter   *Arbiter
	now       func() time.Time
	dispatch  *dispatcher
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSyncDelivery runs observers inline before the transition returns.
func WithSyncDelivery() Option {
	return func(s *Service) { s.dispatch.inline = true }
}

func NewService(store Repository, cfg config.RideConfig, opts ...Option) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.PendingLimit <= 0 {
		cfg.PendingLimit = 50
	}
	s := &Service{
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		dispatch: newDispatcher(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.arbiter = newArbiter(s, cfg.AcceptAttempts)
	return s
}

// AddObserver registers o for every later transition. Call during startup only.
func (s *Service) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

type CreateCommand struct {
	RiderID        types.ID
	Pickup         types.Point
	Dropoff        types.Point
	RideType       string
	PassengerCount int
	EstimatedFare  types.Money
}

type AcceptCommand struct {
	RideID   types.ID
	DriverID types.ID
}

type CancelCommand struct {
	RideID  types.ID
	RiderID types.ID
	Reason  string
}

type StartCommand struct {
	RideID   types.ID
	DriverID types.ID
}

type CompleteCommand struct {
	RideID    types.ID
	DriverID  types.ID
	FinalFare *types.Money
}

type RateCommand struct {
	RideID  types.ID
	RiderID types.ID
	Rating  int
	Review  string
}

func (cmd CreateCommand) validate() error {
	if cmd.RiderID == "" {
		return fmt.Errorf("%w: rider id is required", ErrBadRequest)
	}
	if err := location.ValidatePoint(cmd.Pickup); err != nil {
		return fmt.Errorf("pickup: %w", err)
	}
	if err := location.ValidatePoint(cmd.Dropoff); err != nil {
		return fmt.Errorf("dropoff: %w", err)
	}
	if cmd.PassengerCount < 1 || cmd.PassengerCount > MaxPassengers {
		return fmt.Errorf("%w: passenger count must be between 1 and %d", ErrBadRequest, MaxPassengers)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Ride, error) {
	if cmd.PassengerCount == 0 {
		cmd.PassengerCount = 1
	}
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	if cmd.RideType == "" {
		cmd.RideType = DefaultRideType
	}

	now := s.now().UTC()
	r := &Ride{
		ID:             types.NewID(),
		RiderID:        cmd.RiderID,
		Pickup:         cmd.Pickup,
		Dropoff:        cmd.Dropoff,
		Status:         StatusPending,
		RideType:       cmd.RideType,
		PassengerCount: cmd.PassengerCount,
		EstimatedFare:  cmd.EstimatedFare,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.TTL),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create ride: %w", err)
	}
	metrics.RideTransitions.WithLabelValues(string(EventRequest), "ok").Inc()
	s.publish(ctx, Transition{
		RideID:    r.ID,
		To:        StatusPending,
		Event:     EventRequest,
		ActorID:   r.RiderID,
		ActorRole: RoleRider,
		Ride:      *r,
		At:        now,
	})
	return r, nil
}

// Get returns the ride, first persisting the expiry of a pending ride past its TTL.
func (s *Service) Get(ctx context.Context, id types.ID) (*Ride, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.expiryDue(s.now()) {
		return r, nil
	}
	expired, err := s.expire(ctx, id)
	if errors.Is(err, ErrIllegalTransition) {
		// another writer moved it first
		return s.store.Get(ctx, id)
	}
	return expired, err
}

func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Ride, error) {
	return s.arbiter.Accept(ctx, cmd)
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Ride, error) {
	return s.apply(ctx, cmd.RideID, EventCancel, cmd.RiderID, RoleRider, func(r *Ride, now time.Time) error {
		return r.Cancel(cmd.RiderID, cmd.Reason, now)
	})
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Ride, error) {
	return s.apply(ctx, cmd.RideID, EventStart, cmd.DriverID, RoleDriver, func(r *Ride, now time.Time) error {
		return r.Start(cmd.DriverID, now)
	})
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Ride, error) {
	return s.apply(ctx, cmd.RideID, EventComplete, cmd.DriverID, RoleDriver, func(r *Ride, now time.Time) error {
		return r.Complete(cmd.DriverID, cmd.FinalFare, now)
	})
}

func (s *Service) Rate(ctx context.Context, cmd RateCommand) (*Ride, error) {
	return s.apply(ctx, cmd.RideID, EventRate, cmd.RiderID, RoleRider, func(r *Ride, now time.Time) error {
		return r.Rate(cmd.RiderID, cmd.Rating, cmd.Review, now)
	})
}

func (s *Service) expire(ctx context.Context, id types.ID) (*Ride, error) {
	return s.apply(ctx, id, EventExpire, "", RoleSystem, func(r *Ride, now time.Time) error {
		return r.Expire(now)
	})
}

// apply runs one transition inside a store transaction. A pending ride found
// past its TTL is expired in the same transaction instead, and the requested
// event then fails as illegal against the cancelled ride.
func (s *Service) apply(ctx context.Context, id types.ID, ev Event, actorID types.ID, role string, fn func(r *Ride, now time.Time) error) (*Ride, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: ride id is required", ErrBadRequest)
	}
	var (
		from       Status
		prevDriver *types.ID
		expired    bool
	)
	now := s.now().UTC()
	updated, err := s.store.Update(ctx, id, func(r *Ride) error {
		from, prevDriver, expired = r.Status, r.DriverID, false
		if ev != EventExpire && r.expiryDue(now) {
			expired = true
			return r.Expire(now)
		}
		return fn(r, now)
	})
	if err != nil {
		metrics.RideTransitions.WithLabelValues(string(ev), resultLabel(err)).Inc()
		return nil, err
	}

	if expired {
		metrics.RideTransitions.WithLabelValues(string(EventExpire), "ok").Inc()
		s.publish(ctx, Transition{
			RideID: id, From: from, To: updated.Status, Event: EventExpire,
			ActorRole: RoleSystem, Ride: *updated, At: now,
		})
		err := &TransitionError{From: updated.Status, Event: ev}
		metrics.RideTransitions.WithLabelValues(string(ev), resultLabel(err)).Inc()
		return nil, err
	}

	metrics.RideTransitions.WithLabelValues(string(ev), "ok").Inc()
	t := Transition{
		RideID:    id,
		From:      from,
		To:        updated.Status,
		Event:     ev,
		ActorID:   actorID,
		ActorRole: role,
		Ride:      *updated,
		At:        now,
	}
	if prevDriver != nil && updated.DriverID == nil {
		t.PreviousDriverID = prevDriver
	}
	s.publish(ctx, t)
	return updated, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrIllegalTransition):
		return "illegal"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrNotAssigned), errors.Is(err, ErrNotRideOwner):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrContention):
		return "contention"
	}
	return "error"
}

func (s *Service) ListForRider(ctx context.Context, riderID types.ID, q PageQuery) (Page, error) {
	return s.store.ListByRider(ctx, riderID, q)
}

func (s *Service) ListForDriver(ctx context.Context, driverID types.ID, q PageQuery) (Page, error) {
	return s.store.ListByDriver(ctx, driverID, q)
}

// ListPending returns unexpired pending rides, newest first. limit is clamped
// to [1, 100] and defaults to the configured pending limit.
func (s *Service) ListPending(ctx context.Context, limit int) ([]Ride, error) {
	if limit <= 0 {
		limit = s.cfg.PendingLimit
	}
	limit = min(limit, MaxPageLimit)
	rides, err := s.store.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := rides[:0]
	for _, r := range rides {
		if !r.expiryDue(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

// RunExpirySweeper expires overdue pending rides every interval so observers
// hear about expiries nobody reads.
func (s *Service) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "expiry sweep failed", "err", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "expired pending rides", "count", n)
			}
		}
	}
}

const sweepBatch = 100

// SweepExpired expires one batch of overdue pending rides.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	rides, err := s.store.ListExpired(ctx, s.now(), sweepBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rides {
		if _, err := s.expire(ctx, r.ID); err != nil {
			if !errors.Is(err, ErrIllegalTransition) {
				slog.WarnContext(ctx, "expire ride failed", "ride_id", r.ID, "err", err)
			}
			continue
		}
		n++
	}
	return n, nil
}
