// README: Bridges identity to the user and driver profile services.
package identity

import (
	"context"
	"errors"

	"londa/internal/modules/driver"
	"londa/internal/modules/user"
	"londa/internal/types"
)

type Profiles interface {
	EnsureRider(ctx context.Context, uid types.ID, phone string) (any, error)
	EnsureDriver(ctx context.Context, uid types.ID, phone string) (any, error)
	// RoleOf returns the role implied by stored profiles, or "" if none says.
	RoleOf(ctx context.Context, uid types.ID) (string, error)
	Profile(ctx context.Context, uid types.ID, role string) (any, error)
}

type ProfileDirectory struct {
	Users   *user.Service
	Drivers *driver.Service
}

func (p ProfileDirectory) EnsureRider(ctx context.Context, uid types.ID, phone string) (any, error) {
	return p.Users.EnsureProfile(ctx, uid, phone)
}

func (p ProfileDirectory) EnsureDriver(ctx context.Context, uid types.ID, phone string) (any, error) {
	return p.Drivers.EnsureProfile(ctx, uid, phone)
}

func (p ProfileDirectory) RoleOf(ctx context.Context, uid types.ID) (string, error) {
	u, err := p.Users.Get(ctx, uid)
	switch {
	case err == nil && u.UserType != "":
		return string(u.UserType), nil
	case err != nil && !errors.Is(err, user.ErrNotFound):
		return "", err
	}
	_, err = p.Drivers.Get(ctx, uid)
	switch {
	case err == nil:
		return RoleDriver, nil
	case errors.Is(err, driver.ErrNotFound):
		return "", nil
	}
	return "", err
}

func (p ProfileDirectory) Profile(ctx context.Context, uid types.ID, role string) (any, error) {
	if role == RoleDriver {
		return p.Drivers.Get(ctx, uid)
	}
	return p.Users.Get(ctx, uid)
}
