// README: User service for rider profiles.
package user

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

// RoleSetter records a user's type as an identity-provider claim.
type RoleSetter interface {
	SetRole(ctx context.Context, uid types.ID, role string) error
}

type Service struct {
	store Repository
	roles RoleSetter
	now   func() time.Time
}

func NewService(store Repository, roles RoleSetter) *Service {
	return &Service{store: store, roles: roles, now: time.Now}
}

// EnsureProfile returns the user document, creating a bare one on first login.
func (s *Service) EnsureProfile(ctx context.Context, id types.ID, phone string) (*User, error) {
	u, err := s.store.Get(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	now := s.now().UTC()
	u = &User{ID: id, PhoneNumber: phone, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrConflict) {
			return s.store.Get(ctx, id)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "user profile created", "user_id", id, "phone", logging.MaskPhone(phone))
	return u, nil
}

func validName(name string) bool {
	n := strings.TrimSpace(name)
	return n != "" && len(n) <= 100
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

func (s *Service) CreateAccount(ctx context.Context, cmd CreateAccountCommand) (*User, error) {
	if !validName(cmd.Name) {
		return nil, fmt.Errorf("%w: name must be 1-100 characters", ErrBadRequest)
	}
	if !cmd.UserType.Valid() {
		return nil, fmt.Errorf("%w: userType must be student, worker or parent", ErrBadRequest)
	}
	if cmd.Email != "" && !validEmail(cmd.Email) {
		return nil, fmt.Errorf("%w: invalid email", ErrBadRequest)
	}
	now := s.now().UTC()
	u, err := s.store.Update(ctx, cmd.UserID, func(u *User) error {
		if u.Registered() {
			return ErrConflict
		}
		u.Name = strings.TrimSpace(cmd.Name)
		u.UserType = cmd.UserType
		if cmd.Email != "" {
			u.Email = cmd.Email
		}
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.roles != nil {
		if err := s.roles.SetRole(ctx, u.ID, string(u.UserType)); err != nil {
			slog.WarnContext(ctx, "set user_type claim failed", "user_id", u.ID, "err", err)
		}
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*User, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (*User, error) {
	if cmd.Name == nil && cmd.Email == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrBadRequest)
	}
	if cmd.Name != nil && !validName(*cmd.Name) {
		return nil, fmt.Errorf("%w: name must be 1-100 characters", ErrBadRequest)
	}
	if cmd.Email != nil && !validEmail(*cmd.Email) {
		return nil, fmt.Errorf("%w: invalid email", ErrBadRequest)
	}
	now := s.now().UTC()
	return s.store.Update(ctx, cmd.UserID, func(u *User) error {
		if cmd.Name != nil {
			u.Name = strings.TrimSpace(*cmd.Name)
		}
		if cmd.Email != nil {
			u.Email = *cmd.Email
		}
		u.UpdatedAt = now
		return nil
	})
}

func (s *Service) UpdateLocation(ctx context.Context, id types.ID, p types.Point) (*User, error) {
	if err := location.ValidatePoint(p); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return s.store.Update(ctx, id, func(u *User) error {
		loc := types.Point{Lat: p.Lat, Lng: p.Lng}
		u.Location = &loc
		u.LocationUpdatedAt = &now
		u.UpdatedAt = now
		return nil
	})
}
