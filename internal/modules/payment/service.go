// README: Payment service: fare quotes and cash settlement of rides.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"londa/internal/modules/location"
	"londa/internal/modules/pricing"
	"londa/internal/modules/ride"
	"londa/internal/types"
)

var (
	ErrBadRequest  = errors.New("bad request")
	ErrNotRideUser = errors.New("ride does not belong to caller")
)

type RideReader interface {
	Get(ctx context.Context, id types.ID) (*ride.Ride, error)
}

type Quoter interface {
	Quote(ctx context.Context, pickup, dropoff types.Point, rideType string) pricing.Quote
	DefaultFare() types.Money
}

type Service struct {
	store  Repository
	rides  RideReader
	quotes Quoter
	now    func() time.Time
}

func NewService(store Repository, rides RideReader, quotes Quoter) *Service {
	return &Service{store: store, rides: rides, quotes: quotes, now: time.Now}
}

func (s *Service) CalculateFare(ctx context.Context, pickup, dropoff types.Point, rideType string) (pricing.Quote, error) {
	if err := validPoints(pickup, dropoff); err != nil {
		return pricing.Quote{}, err
	}
	if rideType == "" {
		rideType = ride.DefaultRideType
	}
	return s.quotes.Quote(ctx, pickup, dropoff, rideType), nil
}

func validPoints(points ...types.Point) error {
	for _, p := range points {
		if err := location.ValidatePoint(p); err != nil {
			return err
		}
	}
	return nil
}

// ProcessPayment records a cash payment for one of the caller's rides.
func (s *Service) ProcessPayment(ctx context.Context, cmd ProcessCommand) (*Payment, error) {
	if cmd.Method == "" {
		cmd.Method = MethodCash
	}
	if cmd.Method != MethodCash {
		return nil, fmt.Errorf("%w: only cash payments are accepted", ErrBadRequest)
	}
	if cmd.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrBadRequest)
	}
	if cmd.RideID == "" {
		return nil, fmt.Errorf("%w: ride id is required", ErrBadRequest)
	}
	r, err := s.rides.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if r.RiderID != cmd.UserID {
		return nil, ErrNotRideUser
	}

	def := s.quotes.DefaultFare()
	amount := def
	if cmd.Amount > 0 {
		amount = types.NewMoney(cmd.Amount, def.Currency)
	}
	if amount != def {
		slog.WarnContext(ctx, "payment amount differs from default fare", "ride_id", r.ID, "amount", amount.String(), "default", def.String())
	}

	p := &Payment{
		ID:        types.NewID(),
		RideID:    r.ID,
		UserID:    cmd.UserID,
		Amount:    amount,
		Method:    cmd.Method,
		Status:    StatusCompleted,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	slog.InfoContext(ctx, "payment recorded", "payment_id", p.ID, "ride_id", r.ID)
	return p, nil
}

func (s *Service) History(ctx context.Context, userID types.ID, q ride.PageQuery) (Page, error) {
	return s.store.ListByUser(ctx, userID, q)
}
