// README: Subscription, child profile and subscription payment collections in Firestore.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

const (
	driverCollection   = "driver_subscriptions"
	parentCollection   = "parent_subscriptions"
	childrenCollection = "children_profiles"
	paymentsCollection = "subscription_payments"
)

type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, plan Plan, id types.ID) (*Subscription, error)
	// Active returns the owner's active subscription or ErrNotFound.
	Active(ctx context.Context, plan Plan, ownerID types.ID) (*Subscription, error)
	Update(ctx context.Context, plan Plan, id types.ID, fn func(s *Subscription) error) (*Subscription, error)
	AddChild(ctx context.Context, subID types.ID, c Child) (*Subscription, error)
	Children(ctx context.Context, userID types.ID) ([]Child, error)
	CreatePayment(ctx context.Context, p *Payment) error
	Payments(ctx context.Context, driverID types.ID, q ride.PageQuery) (PaymentPage, error)
}

type childDoc struct {
	ID               string            `firestore:"id"`
	UserID           string            `firestore:"userId"`
	SubscriptionID   string            `firestore:"subscriptionId"`
	Name             string            `firestore:"child_name"`
	Age              int               `firestore:"child_age"`
	SchoolName       string            `firestore:"school_name"`
	PickupAddress    string            `firestore:"pickup_address"`
	DropoffAddress   string            `firestore:"dropoff_address"`
	EmergencyContact map[string]string `firestore:"emergency_contact"`
	CreatedAt        time.Time         `firestore:"createdAt"`
}

type subscriptionDoc struct {
	ID                      string          `firestore:"id"`
	DriverID                string          `firestore:"driverId,omitempty"`
	UserID                  string          `firestore:"userId,omitempty"`
	Status                  string          `firestore:"status"`
	Amount                  float64         `firestore:"amount"`
	Currency                string          `firestore:"currency"`
	PaymentMethod           string          `firestore:"paymentMethod"`
	StartDate               time.Time       `firestore:"startDate"`
	EndDate                 time.Time       `firestore:"endDate"`
	AutoRenew               bool            `firestore:"autoRenew"`
	NotificationPreferences map[string]bool `firestore:"notificationPreferences,omitempty"`
	CancellationReason      *string         `firestore:"cancellationReason,omitempty"`
	Children                []childDoc      `firestore:"childrenProfiles,omitempty"`
	CreatedAt               time.Time       `firestore:"createdAt"`
	UpdatedAt               time.Time       `firestore:"updatedAt"`
}

type paymentDoc struct {
	ID             string    `firestore:"id"`
	DriverID       string    `firestore:"driverId"`
	SubscriptionID string    `firestore:"subscriptionId"`
	Amount         float64   `firestore:"amount"`
	Currency       string    `firestore:"currency"`
	PaymentMethod  string    `firestore:"paymentMethod"`
	Status         string    `firestore:"status"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

func toChildDoc(c Child) childDoc {
	return childDoc{
		ID:             string(c.ID),
		UserID:         string(c.UserID),
		SubscriptionID: string(c.SubscriptionID),
		Name:           c.Name,
		Age:            c.Age,
		SchoolName:     c.SchoolName,
		PickupAddress:  c.PickupAddress,
		DropoffAddress: c.DropoffAddress,
		EmergencyContact: map[string]string{
			"name":  c.EmergencyContact.Name,
			"phone": c.EmergencyContact.Phone,
		},
		CreatedAt: c.CreatedAt,
	}
}

func fromChildDoc(d childDoc) Child {
	return Child{
		ID:               types.ID(d.ID),
		UserID:           types.ID(d.UserID),
		SubscriptionID:   types.ID(d.SubscriptionID),
		Name:             d.Name,
		Age:              d.Age,
		SchoolName:       d.SchoolName,
		PickupAddress:    d.PickupAddress,
		DropoffAddress:   d.DropoffAddress,
		EmergencyContact: EmergencyContact{Name: d.EmergencyContact["name"], Phone: d.EmergencyContact["phone"]},
		CreatedAt:        d.CreatedAt,
	}
}

func toDoc(s *Subscription) subscriptionDoc {
	doc := subscriptionDoc{
		ID:                      string(s.ID),
		Status:                  string(s.Status),
		Amount:                  s.Amount.Major(),
		Currency:                s.Amount.Currency,
		PaymentMethod:           s.PaymentMethod,
		StartDate:               s.StartDate,
		EndDate:                 s.EndDate,
		AutoRenew:               s.AutoRenew,
		NotificationPreferences: s.NotificationPreferences,
		CancellationReason:      s.CancellationReason,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
	if s.Plan == PlanDriver {
		doc.DriverID = string(s.OwnerID)
	} else {
		doc.UserID = string(s.OwnerID)
	}
	for _, c := range s.Children {
		doc.Children = append(doc.Children, toChildDoc(c))
	}
	return doc
}

func fromDoc(plan Plan, id string, d subscriptionDoc) *Subscription {
	s := &Subscription{
		ID:                      types.ID(id),
		Plan:                    plan,
		Status:                  Status(d.Status),
		Amount:                  types.NewMoney(d.Amount, d.Currency),
		PaymentMethod:           d.PaymentMethod,
		StartDate:               d.StartDate,
		EndDate:                 d.EndDate,
		AutoRenew:               d.AutoRenew,
		NotificationPreferences: d.NotificationPreferences,
		CancellationReason:      d.CancellationReason,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
	}
	if plan == PlanDriver {
		s.OwnerID = types.ID(d.DriverID)
	} else {
		s.OwnerID = types.ID(d.UserID)
	}
	for _, c := range d.Children {
		s.Children = append(s.Children, fromChildDoc(c))
	}
	return s
}

func collectionFor(plan Plan) string {
	if plan == PlanDriver {
		return driverCollection
	}
	return parentCollection
}

func ownerField(plan Plan) string {
	if plan == PlanDriver {
		return "driverId"
	}
	return "userId"
}

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Create writes the subscription and, for the parent plan, its child profiles.
func (s *FirestoreStore) Create(ctx context.Context, sub *Subscription) error {
	ref := s.client.Collection(collectionFor(sub.Plan)).Doc(string(sub.ID))
	if len(sub.Children) == 0 {
		_, err := ref.Create(ctx, toDoc(sub))
		return err
	}
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, c := range sub.Children {
			if err := tx.Create(s.client.Collection(childrenCollection).Doc(string(c.ID)), toChildDoc(c)); err != nil {
				return err
			}
		}
		return tx.Create(ref, toDoc(sub))
	})
}

func (s *FirestoreStore) Get(ctx context.Context, plan Plan, id types.ID) (*Subscription, error) {
	snap, err := s.client.Collection(collectionFor(plan)).Doc(string(id)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	var doc subscriptionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return fromDoc(plan, snap.Ref.ID, doc), nil
}

func (s *FirestoreStore) Active(ctx context.Context, plan Plan, ownerID types.ID) (*Subscription, error) {
	it := s.client.Collection(collectionFor(plan)).
		Where(ownerField(plan), "==", string(ownerID)).
		Where("status", "==", string(StatusActive)).
		Limit(1).
		Documents(ctx)
	defer it.Stop()
	snap, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active subscription: %w", err)
	}
	var doc subscriptionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return fromDoc(plan, snap.Ref.ID, doc), nil
}

func (s *FirestoreStore) Update(ctx context.Context, plan Plan, id types.ID, fn func(sub *Subscription) error) (*Subscription, error) {
	var out *Subscription
	ref := s.client.Collection(collectionFor(plan)).Doc(string(id))
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var doc subscriptionDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		sub := fromDoc(plan, ref.ID, doc)
		if err := fn(sub); err != nil {
			return err
		}
		out = sub
		return tx.Set(ref, toDoc(sub))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddChild writes the child document and appends it to the parent subscription in one transaction.
func (s *FirestoreStore) AddChild(ctx context.Context, subID types.ID, c Child) (*Subscription, error) {
	var out *Subscription
	subRef := s.client.Collection(parentCollection).Doc(string(subID))
	childRef := s.client.Collection(childrenCollection).Doc(string(c.ID))
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(subRef)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var doc subscriptionDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		sub := fromDoc(PlanParent, subRef.ID, doc)
		sub.Children = append(sub.Children, c)
		sub.UpdatedAt = c.CreatedAt
		out = sub
		if err := tx.Create(childRef, toChildDoc(c)); err != nil {
			return err
		}
		return tx.Set(subRef, toDoc(sub))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FirestoreStore) Children(ctx context.Context, userID types.ID) ([]Child, error) {
	docs, err := s.client.Collection(childrenCollection).Where("userId", "==", string(userID)).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	out := make([]Child, 0, len(docs))
	for _, d := range docs {
		var doc childDoc
		if err := d.DataTo(&doc); err != nil {
			return nil, err
		}
		out = append(out, fromChildDoc(doc))
	}
	return out, nil
}

func (s *FirestoreStore) CreatePayment(ctx context.Context, p *Payment) error {
	_, err := s.client.Collection(paymentsCollection).Doc(string(p.ID)).Create(ctx, paymentDoc{
		ID:             string(p.ID),
		DriverID:       string(p.DriverID),
		SubscriptionID: string(p.SubscriptionID),
		Amount:         p.Amount.Major(),
		Currency:       p.Amount.Currency,
		PaymentMethod:  p.PaymentMethod,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
	})
	return err
}

func (s *FirestoreStore) Payments(ctx context.Context, driverID types.ID, q ride.PageQuery) (PaymentPage, error) {
	q = q.Normalize()
	base := s.client.Collection(paymentsCollection).Where("driverId", "==", string(driverID))
	res, err := base.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return PaymentPage{}, fmt.Errorf("count subscription payments: %w", err)
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return PaymentPage{}, errors.New("count aggregation returned no value")
	}
	total := int(v.GetIntegerValue())

	docs, err := base.OrderBy("createdAt", firestore.Desc).Offset(q.Offset()).Limit(q.Limit).Documents(ctx).GetAll()
	if err != nil {
		return PaymentPage{}, fmt.Errorf("list subscription payments: %w", err)
	}
	out := make([]Payment, 0, len(docs))
	for _, d := range docs {
		var doc paymentDoc
		if err := d.DataTo(&doc); err != nil {
			return PaymentPage{}, err
		}
		out = append(out, Payment{
			ID:             types.ID(doc.ID),
			DriverID:       types.ID(doc.DriverID),
			SubscriptionID: types.ID(doc.SubscriptionID),
			Amount:         types.NewMoney(doc.Amount, doc.Currency),
			PaymentMethod:  doc.PaymentMethod,
			Status:         doc.Status,
			CreatedAt:      doc.CreatedAt,
		})
	}
	return PaymentPage{Payments: out, Total: total, Page: q.Page, Limit: q.Limit, HasMore: q.Offset()+len(out) < total}, nil
}
