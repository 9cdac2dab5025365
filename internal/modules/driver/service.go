// README: Driver service manages profiles, availability and location, mirroring them into the GEO index.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"londa/internal/logging"
	"londa/internal/modules/location"
	"londa/internal/types"
)

// PositionIndex is a GEO index that must be told where online drivers are.
type PositionIndex interface {
	Upsert(ctx context.Context, driverID types.ID, p types.Point) error
	Remove(ctx context.Context, driverID types.ID) error
}

type Service struct {
	store Repository
	index PositionIndex
	now   func() time.Time
}

// NewService builds the driver service. index may be nil when nearby queries
// read Firestore directly.
func NewService(store Repository, index PositionIndex) *Service {
	return &Service{store: store, index: index, now: time.Now}
}

// EnsureProfile returns the driver document, creating an empty offline one on first login.
func (s *Service) EnsureProfile(ctx context.Context, id types.ID, phone string) (*Driver, error) {
	d, err := s.store.Get(ctx, id)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	now := s.now().UTC()
	d = &Driver{ID: id, PhoneNumber: phone, Status: StatusOffline, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Create(ctx, d); err != nil {
		if errors.Is(err, ErrConflict) {
			return s.store.Get(ctx, id)
		}
		return nil, fmt.Errorf("create driver: %w", err)
	}
	slog.InfoContext(ctx, "driver profile created", "driver_id", id, "phone", logging.MaskPhone(phone))
	return d, nil
}

func (cmd CreateAccountCommand) validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"name", cmd.Name, 100},
		{"license_number", cmd.LicenseNumber, 50},
		{"vehicle_model", cmd.VehicleModel, 100},
		{"vehicle_plate", cmd.VehiclePlate, 20},
		{"vehicle_color", cmd.VehicleColor, 50},
	}
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" || len(v) > f.max {
			return fmt.Errorf("%w: %s must be 1-%d characters", ErrBadRequest, f.name, f.max)
		}
	}
	if cmd.Email != "" && !strings.Contains(cmd.Email, "@") {
		return fmt.Errorf("%w: invalid email", ErrBadRequest)
	}
	return nil
}

// CreateAccount completes registration. A second call fails with ErrConflict.
func (s *Service) CreateAccount(ctx context.Context, cmd CreateAccountCommand) (*Driver, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	return s.store.Register(ctx, cmd.DriverID, cmd.Profile, s.now().UTC())
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) UpdateStatus(ctx context.Context, id types.ID, st Status) (*Driver, error) {
	if !st.Valid() {
		return nil, fmt.Errorf("%w: status must be online, offline or busy", ErrBadRequest)
	}
	d, err := s.store.SetStatus(ctx, id, st, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.syncIndex(ctx, d)
	return d, nil
}

func (s *Service) UpdateLocation(ctx context.Context, cmd UpdateLocationCommand) (*Driver, error) {
	if err := location.ValidatePoint(cmd.Location); err != nil {
		return nil, err
	}
	if cmd.Status != nil && !cmd.Status.Valid() {
		return nil, fmt.Errorf("%w: status must be online, offline or busy", ErrBadRequest)
	}
	d, err := s.store.SetLocation(ctx, cmd.DriverID, cmd.Location, cmd.Status, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.syncIndex(ctx, d)
	return d, nil
}

// syncIndex keeps only online drivers with a location in the GEO index.
// Failures are logged: Firestore stays the source of truth.
func (s *Service) syncIndex(ctx context.Context, d *Driver) {
	if s.index == nil {
		return
	}
	var err error
	if d.Status == StatusOnline && d.Location != nil {
		err = s.index.Upsert(ctx, d.ID, *d.Location)
	} else {
		err = s.index.Remove(ctx, d.ID)
	}
	if err != nil {
		slog.WarnContext(ctx, "geo index sync failed", "driver_id", d.ID, "err", err)
	}
}

// DisplayInfo returns the name and vehicle shown to a rider.
func (s *Service) DisplayInfo(ctx context.Context, id types.ID) (string, string, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	vehicle := strings.TrimSpace(d.VehicleColor + " " + d.VehicleModel)
	if d.VehiclePlate != "" {
		vehicle = strings.TrimSpace(vehicle + " (" + d.VehiclePlate + ")")
	}
	return d.Name, vehicle, nil
}
