// README: Driver documents in the Firestore drivers collection.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"londa/internal/modules/location"
	"londa/internal/types"
)

var (
	ErrNotFound   = errors.New("driver not found")
	ErrConflict   = errors.New("driver account already created")
	ErrBadRequest = errors.New("bad request")
)

type Repository interface {
	Get(ctx context.Context, id types.ID) (*Driver, error)
	// Create stores d unless a document with its id exists, in which case it returns ErrConflict.
	Create(ctx context.Context, d *Driver) error
	// Register fills in the profile, failing with ErrConflict if one is already set.
	Register(ctx context.Context, id types.ID, p Profile, now time.Time) (*Driver, error)
	SetStatus(ctx context.Context, id types.ID, s Status, now time.Time) (*Driver, error)
	SetLocation(ctx context.Context, id types.ID, p types.Point, s *Status, now time.Time) (*Driver, error)
}

type driverDoc struct {
	PhoneNumber       string         `firestore:"phone_number"`
	Email             string         `firestore:"email,omitempty"`
	Name              string         `firestore:"name"`
	LicenseNumber     string         `firestore:"license_number"`
	VehicleModel      string         `firestore:"vehicle_model"`
	VehiclePlate      string         `firestore:"vehicle_plate"`
	VehicleColor      string         `firestore:"vehicle_color"`
	Status            string         `firestore:"status"`
	Location          *latlng.LatLng `firestore:"location,omitempty"`
	Geohash           string         `firestore:"geohash,omitempty"`
	LocationUpdatedAt *time.Time     `firestore:"locationUpdatedAt,omitempty"`
	CreatedAt         time.Time      `firestore:"createdAt"`
	UpdatedAt         time.Time      `firestore:"updatedAt"`
}

func toDoc(d *Driver) driverDoc {
	doc := driverDoc{
		PhoneNumber:       d.PhoneNumber,
		Email:             d.Email,
		Name:              d.Name,
		LicenseNumber:     d.LicenseNumber,
		VehicleModel:      d.VehicleModel,
		VehiclePlate:      d.VehiclePlate,
		VehicleColor:      d.VehicleColor,
		Status:            string(d.Status),
		Geohash:           d.Geohash,
		LocationUpdatedAt: d.LocationUpdatedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.Location != nil {
		doc.Location = &latlng.LatLng{Latitude: d.Location.Lat, Longitude: d.Location.Lng}
	}
	return doc
}

func fromDoc(id string, doc driverDoc) *Driver {
	d := &Driver{
		ID:                types.ID(id),
		PhoneNumber:       doc.PhoneNumber,
		Email:             doc.Email,
		Name:              doc.Name,
		LicenseNumber:     doc.LicenseNumber,
		VehicleModel:      doc.VehicleModel,
		VehiclePlate:      doc.VehiclePlate,
		VehicleColor:      doc.VehicleColor,
		Status:            Status(doc.Status),
		Geohash:           doc.Geohash,
		LocationUpdatedAt: doc.LocationUpdatedAt,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
	if d.Status == "" {
		d.Status = StatusOffline
	}
	if doc.Location != nil {
		d.Location = &types.Point{Lat: doc.Location.Latitude, Lng: doc.Location.Longitude}
	}
	return d
}

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) doc(id types.ID) *firestore.DocumentRef {
	return s.client.Collection(location.DriversCollection).Doc(string(id))
}

func (s *FirestoreStore) Get(ctx context.Context, id types.ID) (*Driver, error) {
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get driver: %w", err)
	}
	var doc driverDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode driver %s: %w", id, err)
	}
	return fromDoc(snap.Ref.ID, doc), nil
}

func (s *FirestoreStore) Create(ctx context.Context, d *Driver) error {
	_, err := s.doc(d.ID).Create(ctx, toDoc(d))
	if status.Code(err) == codes.AlreadyExists {
		return ErrConflict
	}
	return err
}

// mutate runs fn against the current document inside a transaction and writes the result back.
func (s *FirestoreStore) mutate(ctx context.Context, id types.ID, fn func(d *Driver) error) (*Driver, error) {
	var out *Driver
	ref := s.doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var doc driverDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		d := fromDoc(ref.ID, doc)
		if err := fn(d); err != nil {
			return err
		}
		out = d
		return tx.Set(ref, toDoc(d))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FirestoreStore) Register(ctx context.Context, id types.ID, p Profile, now time.Time) (*Driver, error) {
	return s.mutate(ctx, id, func(d *Driver) error { return applyProfile(d, p, now) })
}

func (s *FirestoreStore) SetStatus(ctx context.Context, id types.ID, st Status, now time.Time) (*Driver, error) {
	return s.mutate(ctx, id, func(d *Driver) error {
		d.Status, d.UpdatedAt = st, now
		return nil
	})
}

func (s *FirestoreStore) SetLocation(ctx context.Context, id types.ID, p types.Point, st *Status, now time.Time) (*Driver, error) {
	return s.mutate(ctx, id, func(d *Driver) error {
		applyLocation(d, p, st, now)
		return nil
	})
}

func applyProfile(d *Driver, p Profile, now time.Time) error {
	if d.Registered() {
		return ErrConflict
	}
	d.Name = p.Name
	d.LicenseNumber = p.LicenseNumber
	d.VehicleModel = p.VehicleModel
	d.VehiclePlate = p.VehiclePlate
	d.VehicleColor = p.VehicleColor
	if p.Email != "" {
		d.Email = p.Email
	}
	d.UpdatedAt = now
	return nil
}

func applyLocation(d *Driver, p types.Point, st *Status, now time.Time) {
	loc := types.Point{Lat: p.Lat, Lng: p.Lng}
	d.Location = &loc
	d.Geohash = location.Geohash(loc)
	d.LocationUpdatedAt = &now
	if st != nil {
		d.Status = *st
	}
	d.UpdatedAt = now
}
