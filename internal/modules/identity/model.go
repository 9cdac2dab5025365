// README: Phone OTP sessions and the login result handed back to clients.
package identity

import (
	"errors"
	"time"

	"londa/internal/types"
)

const (
	RoleUser   = "user"
	RoleDriver = "driver"
	// ClaimUserType is the custom claim carrying the caller's role.
	ClaimUserType = "user_type"

	codeDigits  = 6
	maxAttempts = 5
)

var (
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidSession = errors.New("invalid or expired OTP session")
	ErrInvalidCode    = errors.New("invalid OTP code")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUserNotFound   = errors.New("identity user not found")
)

// Session is one pending OTP challenge.
type Session struct {
	Phone    string
	Role     string
	CodeHash []byte
	Attempts int
}

type Challenge struct {
	SessionInfo string        `json:"sessionInfo"`
	ExpiresIn   time.Duration `json:"-"`
}

// Login is what a successful OTP verification or token refresh returns.
type Login struct {
	AccessToken string   `json:"accessToken"`
	UserID      types.ID `json:"userId"`
	Role        string   `json:"userType"`
	Profile     any      `json:"user"`
}
