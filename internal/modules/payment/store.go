// README: Payments collection in Firestore.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

const paymentsCollection = "payments"

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	ListByUser(ctx context.Context, userID types.ID, q ride.PageQuery) (Page, error)
}

type paymentDoc struct {
	ID            string    `firestore:"id"`
	RideID        string    `firestore:"rideId,omitempty"`
	UserID        string    `firestore:"userId"`
	Amount        float64   `firestore:"amount"`
	Currency      string    `firestore:"currency"`
	PaymentMethod string    `firestore:"paymentMethod"`
	Status        string    `firestore:"status"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Create(ctx context.Context, p *Payment) error {
	_, err := s.client.Collection(paymentsCollection).Doc(string(p.ID)).Create(ctx, paymentDoc{
		ID:            string(p.ID),
		RideID:        string(p.RideID),
		UserID:        string(p.UserID),
		Amount:        p.Amount.Major(),
		Currency:      p.Amount.Currency,
		PaymentMethod: p.Method,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt,
	})
	return err
}

func (s *FirestoreStore) ListByUser(ctx context.Context, userID types.ID, q ride.PageQuery) (Page, error) {
	q = q.Normalize()
	base := s.client.Collection(paymentsCollection).Where("userId", "==", string(userID))

	res, err := base.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("count payments: %w", err)
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return Page{}, errors.New("count aggregation returned no value")
	}
	total := int(v.GetIntegerValue())

	docs, err := base.OrderBy("createdAt", firestore.Desc).Offset(q.Offset()).Limit(q.Limit).Documents(ctx).GetAll()
	if err != nil {
		return Page{}, fmt.Errorf("list payments: %w", err)
	}
	out := make([]Payment, 0, len(docs))
	for _, d := range docs {
		var doc paymentDoc
		if err := d.DataTo(&doc); err != nil {
			return Page{}, fmt.Errorf("decode payment %s: %w", d.Ref.ID, err)
		}
		out = append(out, Payment{
			ID:        types.ID(d.Ref.ID),
			RideID:    types.ID(doc.RideID),
			UserID:    types.ID(doc.UserID),
			Amount:    types.NewMoney(doc.Amount, doc.Currency),
			Method:    doc.PaymentMethod,
			Status:    doc.Status,
			CreatedAt: doc.CreatedAt,
		})
	}
	return Page{
		Payments: out,
		Total:    total,
		Page:     q.Page,
		Limit:    q.Limit,
		HasMore:  q.Offset()+len(out) < total,
	}, nil
}
