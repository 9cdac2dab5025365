// README: User documents in the Firestore users collection.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"londa/internal/types"
)

const usersCollection = "users"

var (
	ErrNotFound   = errors.New("user not found")
	ErrConflict   = errors.New("account already created")
	ErrBadRequest = errors.New("bad request")
)

type Repository interface {
	Get(ctx context.Context, id types.ID) (*User, error)
	Create(ctx context.Context, u *User) error
	// Update applies fn to the stored user atomically.
	Update(ctx context.Context, id types.ID, fn func(u *User) error) (*User, error)
}

type userDoc struct {
	PhoneNumber       string         `firestore:"phone_number"`
	Email             string         `firestore:"email,omitempty"`
	Name              string         `firestore:"name"`
	UserType          string         `firestore:"userType,omitempty"`
	Location          *latlng.LatLng `firestore:"location,omitempty"`
	LocationUpdatedAt *time.Time     `firestore:"locationUpdatedAt,omitempty"`
	CreatedAt         time.Time      `firestore:"createdAt"`
	UpdatedAt         time.Time      `firestore:"updatedAt"`
}

func toDoc(u *User) userDoc {
	doc := userDoc{
		PhoneNumber:       u.PhoneNumber,
		Email:             u.Email,
		Name:              u.Name,
		UserType:          string(u.UserType),
		LocationUpdatedAt: u.LocationUpdatedAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
	if u.Location != nil {
		doc.Location = &latlng.LatLng{Latitude: u.Location.Lat, Longitude: u.Location.Lng}
	}
	return doc
}

func fromDoc(id string, doc userDoc) *User {
	u := &User{
		ID:                types.ID(id),
		PhoneNumber:       doc.PhoneNumber,
		Email:             doc.Email,
		Name:              doc.Name,
		UserType:          Type(doc.UserType),
		LocationUpdatedAt: doc.LocationUpdatedAt,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
	if doc.Location != nil {
		u.Location = &types.Point{Lat: doc.Location.Latitude, Lng: doc.Location.Longitude}
	}
	return u
}

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, id types.ID) (*User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(string(id)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return fromDoc(snap.Ref.ID, doc), nil
}

func (s *FirestoreStore) Create(ctx context.Context, u *User) error {
	_, err := s.client.Collection(usersCollection).Doc(string(u.ID)).Create(ctx, toDoc(u))
	if status.Code(err) == codes.AlreadyExists {
		return ErrConflict
	}
	return err
}

func (s *FirestoreStore) Update(ctx context.Context, id types.ID, fn func(u *User) error) (*User, error) {
	var out *User
	ref := s.client.Collection(usersCollection).Doc(string(id))
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		u := fromDoc(ref.ID, doc)
		if err := fn(u); err != nil {
			return err
		}
		out = u
		return tx.Set(ref, toDoc(u))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
