// README: Signature-checked decoding of expired Firebase ID tokens for the refresh flow.
package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc"
	jwtv4 "github.com/golang-jwt/jwt/v4"
)

const (
	secureTokenJWKS   = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	secureTokenIssuer = "https://securetoken.google.com/"

	// RefreshWindow is how long after expiry an ID token can still be traded in.
	RefreshWindow = 30 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// ExpiredTokenVerifier checks a Firebase ID token's signature, issuer and
// audience but not its expiry, so that a client holding a lapsed token can
// get a new one. Custom tokens are rejected.
type ExpiredTokenVerifier struct {
	projectID string
	keys      jwtv4.Keyfunc
	now       func() time.Time
}

func NewExpiredTokenVerifier(projectID string, keys jwtv4.Keyfunc) *ExpiredTokenVerifier {
	return &ExpiredTokenVerifier{projectID: projectID, keys: keys, now: time.Now}
}

// NewSecureTokenKeys loads Google's securetoken signing keys and keeps them
// fresh in the background until ctx ends.
func NewSecureTokenKeys(ctx context.Context) (*keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(secureTokenJWKS, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			slog.Warn("refresh securetoken keys failed", "err", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load securetoken keys: %w", err)
	}
	return jwks, nil
}

func (v *ExpiredTokenVerifier) VerifyExpired(_ context.Context, raw string) (*FirebaseToken, error) {
	claims := jwtv4.MapClaims{}
	parser := jwtv4.NewParser(jwtv4.WithValidMethods([]string{"RS256"}), jwtv4.WithoutClaimsValidation())
	tok, err := parser.ParseWithClaims(raw, claims, v.keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("%w: signature not valid", ErrInvalidToken)
	}
	if claims.VerifyAudience(customTokenAudience, true) {
		return nil, fmt.Errorf("%w: custom tokens cannot be refreshed", ErrInvalidToken)
	}
	if !claims.VerifyAudience(v.projectID, true) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if !claims.VerifyIssuer(secureTokenIssuer+v.projectID, true) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: no expiry", ErrInvalidToken)
	}
	if v.now().Sub(time.Unix(int64(exp), 0)) > RefreshWindow {
		return nil, fmt.Errorf("%w: expired too long ago", ErrInvalidToken)
	}
	uid, _ := claims["sub"].(string)
	if uid == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	out := &FirebaseToken{UID: uid, Claims: make(map[string]interface{}, len(claims))}
	for k, val := range claims {
		out.Claims[k] = val
	}
	return out, nil
}
