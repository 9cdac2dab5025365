// README: Ride repository contract and the Firestore implementation (transactions for every transition).
package ride

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"londa/internal/types"
)

// Repository persists rides. Update must apply fn atomically: fn sees the
// current document and its changes are written only if nothing else
// modified the ride in between. When fn returns an error nothing is written.
type Repository interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	Update(ctx context.Context, id types.ID, fn func(r *Ride) error) (*Ride, error)
	ListByRider(ctx context.Context, riderID types.ID, q PageQuery) (Page, error)
	ListByDriver(ctx context.Context, driverID types.ID, q PageQuery) (Page, error)
	ListPending(ctx context.Context, limit int) ([]Ride, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Ride, error)
}

const collection = "rides"

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

type locationDoc struct {
	Latitude  float64 `firestore:"latitude"`
	Longitude float64 `firestore:"longitude"`
	Name      string  `firestore:"name,omitempty"`
	Address   string  `firestore:"address,omitempty"`
}

// rideDoc is the rides/{id} document layout shared with the mobile clients.
type rideDoc struct {
	ID                 string      `firestore:"id"`
	UserID             string      `firestore:"userId"`
	DriverID           *string     `firestore:"driverId"`
	Pickup             locationDoc `firestore:"pickupLocation"`
	Dropoff            locationDoc `firestore:"dropoffLocation"`
	Status             string      `firestore:"status"`
	RideType           string      `firestore:"rideType"`
	PassengerCount     int         `firestore:"passengerCount"`
	EstimatedFare      float64     `firestore:"estimatedFare"`
	FinalFare          *float64    `firestore:"finalFare"`
	Currency           string      `firestore:"currency"`
	Rating             *int        `firestore:"rating"`
	Review             *string     `firestore:"review"`
	CancellationReason *string     `firestore:"cancellationReason"`
	CreatedAt          time.Time   `firestore:"createdAt"`
	UpdatedAt          time.Time   `firestore:"updatedAt"`
	ExpiresAt          time.Time   `firestore:"expiresAt"`
	AcceptedAt         *time.Time  `firestore:"acceptedAt"`
	StartedAt          *time.Time  `firestore:"startedAt"`
	CompletedAt        *time.Time  `firestore:"completedAt"`
	CancelledAt        *time.Time  `firestore:"cancelledAt"`
}

func toDoc(r *Ride) rideDoc {
	d := rideDoc{
		ID:                 string(r.ID),
		UserID:             string(r.RiderID),
		Pickup:             locationDoc{r.Pickup.Lat, r.Pickup.Lng, r.Pickup.Name, r.Pickup.Address},
		Dropoff:            locationDoc{r.Dropoff.Lat, r.Dropoff.Lng, r.Dropoff.Name, r.Dropoff.Address},
		Status:             string(r.Status),
		RideType:           r.RideType,
		PassengerCount:     r.PassengerCount,
		EstimatedFare:      r.EstimatedFare.Major(),
		Currency:           r.EstimatedFare.Currency,
		Rating:             r.Rating,
		Review:             r.Review,
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		ExpiresAt:          r.ExpiresAt,
		AcceptedAt:         r.AcceptedAt,
		StartedAt:          r.StartedAt,
		CompletedAt:        r.CompletedAt,
		CancelledAt:        r.CancelledAt,
	}
	if r.DriverID != nil {
		v := string(*r.DriverID)
		d.DriverID = &v
	}
	if r.FinalFare != nil {
		v := r.FinalFare.Major()
		d.FinalFare = &v
	}
	return d
}

func (d rideDoc) toRide() Ride {
	r := Ride{
		ID:                 types.ID(d.ID),
		RiderID:            types.ID(d.UserID),
		Pickup:             types.Point{Lat: d.Pickup.Latitude, Lng: d.Pickup.Longitude, Name: d.Pickup.Name, Address: d.Pickup.Address},
		Dropoff:            types.Point{Lat: d.Dropoff.Latitude, Lng: d.Dropoff.Longitude, Name: d.Dropoff.Name, Address: d.Dropoff.Address},
		Status:             Status(d.Status),
		RideType:           d.RideType,
		PassengerCount:     d.PassengerCount,
		EstimatedFare:      types.NewMoney(d.EstimatedFare, d.Currency),
		Rating:             d.Rating,
		Review:             d.Review,
		CancellationReason: d.CancellationReason,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		ExpiresAt:          d.ExpiresAt,
		AcceptedAt:         d.AcceptedAt,
		StartedAt:          d.StartedAt,
		CompletedAt:        d.CompletedAt,
		CancelledAt:        d.CancelledAt,
	}
	if d.DriverID != nil && *d.DriverID != "" {
		id := types.ID(*d.DriverID)
		r.DriverID = &id
	}
	if d.FinalFare != nil {
		m := types.NewMoney(*d.FinalFare, d.Currency)
		r.FinalFare = &m
	}
	return r
}

func decode(snap *firestore.DocumentSnapshot) (Ride, error) {
	var d rideDoc
	if err := snap.DataTo(&d); err != nil {
		return Ride{}, fmt.Errorf("decoding ride %s: %w", snap.Ref.ID, err)
	}
	if d.ID == "" {
		d.ID = snap.Ref.ID
	}
	return d.toRide(), nil
}

func (s *FirestoreStore) Create(ctx context.Context, r *Ride) error {
	_, err := s.client.Collection(collection).Doc(string(r.ID)).Create(ctx, toDoc(r))
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	snap, err := s.client.Collection(collection).Doc(string(id)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r, err := decode(snap)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Update runs fn inside a single-attempt Firestore transaction. Retrying is
// left to the caller: a conflicting commit surfaces as ErrContention.
func (s *FirestoreStore) Update(ctx context.Context, id types.ID, fn func(r *Ride) error) (*Ride, error) {
	ref := s.client.Collection(collection).Doc(string(id))
	var out Ride
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		r, err := decode(snap)
		if err != nil {
			return err
		}
		if err := fn(&r); err != nil {
			return err
		}
		out = r
		return tx.Set(ref, toDoc(&r))
	}, firestore.MaxAttempts(1))
	if err != nil {
		return nil, classify(err)
	}
	return &out, nil
}

func classify(err error) error {
	switch status.Code(err) {
	case codes.Aborted, codes.Unavailable, codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", ErrContention, err)
	}
	return err
}

func (s *FirestoreStore) ListByRider(ctx context.Context, riderID types.ID, q PageQuery) (Page, error) {
	return s.page(ctx, s.client.Collection(collection).Where("userId", "==", string(riderID)), q)
}

func (s *FirestoreStore) ListByDriver(ctx context.Context, driverID types.ID, q PageQuery) (Page, error) {
	return s.page(ctx, s.client.Collection(collection).Where("driverId", "==", string(driverID)), q)
}

func (s *FirestoreStore) page(ctx context.Context, base firestore.Query, q PageQuery) (Page, error) {
	q = q.Normalize()
	total, err := count(ctx, base)
	if err != nil {
		return Page{}, err
	}
	rides, err := collect(ctx, base.OrderBy("createdAt", firestore.Desc).Offset(q.Offset()).Limit(q.Limit))
	if err != nil {
		return Page{}, err
	}
	return Page{
		Rides:   rides,
		Total:   total,
		Page:    q.Page,
		Limit:   q.Limit,
		HasMore: q.Offset()+len(rides) < total,
	}, nil
}

func (s *FirestoreStore) ListPending(ctx context.Context, limit int) ([]Ride, error) {
	return collect(ctx, s.client.Collection(collection).
		Where("status", "==", string(StatusPending)).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit))
}

func (s *FirestoreStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]Ride, error) {
	return collect(ctx, s.client.Collection(collection).
		Where("status", "==", string(StatusPending)).
		Where("expiresAt", "<", now).
		Limit(limit))
}

func collect(ctx context.Context, q firestore.Query) ([]Ride, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]Ride, 0, len(snaps))
	for _, snap := range snaps {
		r, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func count(ctx context.Context, q firestore.Query) (int, error) {
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, errors.New("count aggregation returned no value")
	}
	return int(v.GetIntegerValue()), nil
}
