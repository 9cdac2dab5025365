// README: Subscription service for the driver and parent plans. Only cash is accepted.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"londa/internal/config"
	"londa/internal/modules/ride"
	"londa/internal/types"
)

type Service struct {
	store        Repository
	driverAmount types.Money
	parentAmount types.Money
	period       time.Duration
	now          func() time.Time
}

func NewService(store Repository, cfg config.SubscriptionConfig, currency string) *Service {
	if cfg.PeriodDays <= 0 {
		cfg.PeriodDays = 30
	}
	return &Service{
		store:        store,
		driverAmount: types.NewMoney(cfg.DriverAmount, currency),
		parentAmount: types.NewMoney(cfg.ParentAmount, currency),
		period:       time.Duration(cfg.PeriodDays) * 24 * time.Hour,
		now:          time.Now,
	}
}

func checkMethod(method string) error {
	if method != "" && method != MethodCash {
		return fmt.Errorf("%w: only cash payments are accepted", ErrBadRequest)
	}
	return nil
}

func (s *Service) amountFor(plan Plan) types.Money {
	if plan == PlanDriver {
		return s.driverAmount
	}
	return s.parentAmount
}

func (s *Service) newSubscription(plan Plan, owner types.ID, now time.Time) *Subscription {
	return &Subscription{
		ID:            types.NewID(),
		OwnerID:       owner,
		Plan:          plan,
		Status:        StatusActive,
		Amount:        s.amountFor(plan),
		PaymentMethod: MethodCash,
		StartDate:     now,
		EndDate:       now.Add(s.period),
		AutoRenew:     true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Status returns the owner's current subscription, persisting a lapsed one as
// expired. It returns nil, nil when the owner has no active subscription.
func (s *Service) Status(ctx context.Context, plan Plan, owner types.ID) (*Subscription, error) {
	sub, err := s.store.Active(ctx, plan, owner)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !sub.expireIfDue(now) {
		return sub, nil
	}
	return s.store.Update(ctx, plan, sub.ID, func(cur *Subscription) error {
		cur.expireIfDue(now)
		return nil
	})
}

// current is the owner's subscription if it is still active.
func (s *Service) current(ctx context.Context, plan Plan, owner types.ID) (*Subscription, error) {
	sub, err := s.Status(ctx, plan, owner)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.Status != StatusActive {
		return nil, fmt.Errorf("%w: no active %s subscription", ErrNotFound, plan)
	}
	return sub, nil
}

func (s *Service) CreateDriver(ctx context.Context, driverID types.ID, method string) (*Subscription, error) {
	if err := checkMethod(method); err != nil {
		return nil, err
	}
	existing, err := s.Status(ctx, PlanDriver, driverID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == StatusActive {
		return nil, ErrConflict
	}
	sub := s.newSubscription(PlanDriver, driverID, s.now().UTC())
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	slog.InfoContext(ctx, "driver subscription created", "driver_id", driverID, "subscription_id", sub.ID)
	return sub, nil
}

// GetDriverSubscription hides other drivers' subscriptions behind ErrNotFound.
func (s *Service) GetDriverSubscription(ctx context.Context, driverID, subID types.ID) (*Subscription, error) {
	sub, err := s.store.Get(ctx, PlanDriver, subID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != driverID {
		return nil, ErrNotFound
	}
	return sub, nil
}

func (s *Service) UpdateDriverSettings(ctx context.Context, cmd UpdateSettingsCommand) (*Subscription, error) {
	if cmd.PaymentMethod != nil {
		if err := checkMethod(*cmd.PaymentMethod); err != nil {
			return nil, err
		}
	}
	sub, err := s.current(ctx, PlanDriver, cmd.DriverID)
	if err != nil {
		return nil, err
	}
	if cmd.AutoRenew == nil && cmd.PaymentMethod == nil && len(cmd.NotificationPreferences) == 0 {
		return sub, nil
	}
	now := s.now().UTC()
	return s.store.Update(ctx, PlanDriver, sub.ID, func(cur *Subscription) error {
		if cmd.AutoRenew != nil {
			cur.AutoRenew = *cmd.AutoRenew
		}
		if cmd.PaymentMethod != nil && *cmd.PaymentMethod != "" {
			cur.PaymentMethod = *cmd.PaymentMethod
		}
		if len(cmd.NotificationPreferences) > 0 {
			cur.NotificationPreferences = cmd.NotificationPreferences
		}
		cur.UpdatedAt = now
		return nil
	})
}

// ProcessDriverPayment takes one period's cash payment, creating the
// subscription or restarting its period, and records the payment.
func (s *Service) ProcessDriverPayment(ctx context.Context, driverID types.ID, amount float64, method string) (*Subscription, *Payment, error) {
	if err := checkMethod(method); err != nil {
		return nil, nil, err
	}
	if types.NewMoney(amount, s.driverAmount.Currency) != s.driverAmount {
		return nil, nil, fmt.Errorf("%w: amount must be exactly %s", ErrBadRequest, s.driverAmount)
	}

	now := s.now().UTC()
	sub, err := s.current(ctx, PlanDriver, driverID)
	switch {
	case errors.Is(err, ErrNotFound):
		sub = s.newSubscription(PlanDriver, driverID, now)
		if err := s.store.Create(ctx, sub); err != nil {
			return nil, nil, fmt.Errorf("create subscription: %w", err)
		}
	case err != nil:
		return nil, nil, err
	default:
		sub, err = s.store.Update(ctx, PlanDriver, sub.ID, func(cur *Subscription) error {
			cur.Status = StatusActive
			cur.StartDate = now
			cur.EndDate = now.Add(s.period)
			cur.UpdatedAt = now
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}

	p := &Payment{
		ID:             types.NewID(),
		DriverID:       driverID,
		SubscriptionID: sub.ID,
		Amount:         s.driverAmount,
		PaymentMethod:  MethodCash,
		Status:         "completed",
		CreatedAt:      now,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("record subscription payment: %w", err)
	}
	return sub, p, nil
}

func (s *Service) PaymentHistory(ctx context.Context, driverID types.ID, q ride.PageQuery) (PaymentPage, error) {
	return s.store.Payments(ctx, driverID, q)
}

// Subscribe starts the parent plan with at least one child profile.
func (s *Service) Subscribe(ctx context.Context, cmd SubscribeCommand) (*Subscription, error) {
	if err := checkMethod(cmd.PaymentMethod); err != nil {
		return nil, err
	}
	if len(cmd.Children) == 0 {
		return nil, fmt.Errorf("%w: at least one child profile is required", ErrBadRequest)
	}
	for _, c := range cmd.Children {
		if err := c.validate(); err != nil {
			return nil, err
		}
	}
	existing, err := s.Status(ctx, PlanParent, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == StatusActive {
		return nil, ErrConflict
	}

	now := s.now().UTC()
	sub := s.newSubscription(PlanParent, cmd.UserID, now)
	for _, c := range cmd.Children {
		c.ID = types.NewID()
		c.UserID = cmd.UserID
		c.SubscriptionID = sub.ID
		c.CreatedAt = now
		sub.Children = append(sub.Children, c)
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

func (s *Service) UpdateParent(ctx context.Context, userID types.ID, autoRenew *bool) (*Subscription, error) {
	sub, err := s.current(ctx, PlanParent, userID)
	if err != nil {
		return nil, err
	}
	if autoRenew == nil {
		return sub, nil
	}
	now := s.now().UTC()
	return s.store.Update(ctx, PlanParent, sub.ID, func(cur *Subscription) error {
		cur.AutoRenew = *autoRenew
		cur.UpdatedAt = now
		return nil
	})
}

func (s *Service) Cancel(ctx context.Context, plan Plan, owner types.ID, reason string) (*Subscription, error) {
	sub, err := s.current(ctx, plan, owner)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return s.store.Update(ctx, plan, sub.ID, func(cur *Subscription) error {
		cur.Status = StatusCancelled
		if reason != "" {
			cur.CancellationReason = &reason
		}
		cur.UpdatedAt = now
		return nil
	})
}

func (s *Service) Children(ctx context.Context, userID types.ID) ([]Child, error) {
	return s.store.Children(ctx, userID)
}

func (s *Service) AddChild(ctx context.Context, userID types.ID, c Child) (*Child, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	sub, err := s.current(ctx, PlanParent, userID)
	if err != nil {
		return nil, err
	}
	c.ID = types.NewID()
	c.UserID = userID
	c.SubscriptionID = sub.ID
	c.CreatedAt = s.now().UTC()
	if _, err := s.store.AddChild(ctx, sub.ID, c); err != nil {
		return nil, err
	}
	return &c, nil
}
