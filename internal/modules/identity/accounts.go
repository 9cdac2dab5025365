// README: Firebase Auth adapter: phone users, role claims and custom tokens.
package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"londa/internal/types"
)

type Accounts interface {
	UserByPhone(ctx context.Context, phone string) (types.ID, error)
	CreateUser(ctx context.Context, phone string) (types.ID, error)
	// Claims returns the user's custom claims, or ErrUserNotFound.
	Claims(ctx context.Context, uid types.ID) (map[string]any, error)
	SetRole(ctx context.Context, uid types.ID, role string) error
	CustomToken(ctx context.Context, uid types.ID, role string) (string, error)
}

type FirebaseAccounts struct {
	client *auth.Client
}

func NewFirebaseAccounts(client *auth.Client) *FirebaseAccounts {
	return &FirebaseAccounts{client: client}
}

func (a *FirebaseAccounts) UserByPhone(ctx context.Context, phone string) (types.ID, error) {
	u, err := a.client.GetUserByPhoneNumber(ctx, phone)
	if auth.IsUserNotFound(err) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup user by phone: %w", err)
	}
	return types.ID(u.UID), nil
}

func (a *FirebaseAccounts) CreateUser(ctx context.Context, phone string) (types.ID, error) {
	u, err := a.client.CreateUser(ctx, (&auth.UserToCreate{}).PhoneNumber(phone))
	if err != nil {
		return "", fmt.Errorf("create firebase user: %w", err)
	}
	return types.ID(u.UID), nil
}

func (a *FirebaseAccounts) Claims(ctx context.Context, uid types.ID) (map[string]any, error) {
	u, err := a.client.GetUser(ctx, string(uid))
	if auth.IsUserNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get firebase user: %w", err)
	}
	if u.CustomClaims == nil {
		return map[string]any{}, nil
	}
	return u.CustomClaims, nil
}

func (a *FirebaseAccounts) SetRole(ctx context.Context, uid types.ID, role string) error {
	return a.client.SetCustomUserClaims(ctx, string(uid), map[string]interface{}{ClaimUserType: role})
}

func (a *FirebaseAccounts) CustomToken(ctx context.Context, uid types.ID, role string) (string, error) {
	return a.client.CustomTokenWithClaims(ctx, string(uid), map[string]interface{}{ClaimUserType: role})
}
