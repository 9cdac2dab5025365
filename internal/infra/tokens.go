// README: Unverified JWT decoding for development custom tokens.
package infra

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const customTokenAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"

// DecodedToken is the subset of an unverified token the API cares about.
type DecodedToken struct {
	UID    string
	Claims map[string]interface{}
	// Custom is true for tokens minted by auth.Client.CustomToken.
	Custom bool
}

// DecodeUnverified parses a Firebase ID token or custom token without checking
// its signature or expiry. Only the development custom-token verifier uses it.
func DecodeUnverified(raw string) (*DecodedToken, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	out := &DecodedToken{Claims: map[string]interface{}{}}
	aud, _ := claims.GetAudience()
	for _, a := range aud {
		if a == customTokenAudience {
			out.Custom = true
		}
	}

	if out.Custom {
		out.UID, _ = claims["uid"].(string)
		if nested, ok := claims["claims"].(map[string]interface{}); ok {
			out.Claims = nested
		}
	} else {
		out.UID, _ = claims["user_id"].(string)
		if out.UID == "" {
			out.UID, _ = claims.GetSubject()
		}
		for k, v := range claims {
			out.Claims[k] = v
		}
	}
	if out.UID == "" {
		return nil, fmt.Errorf("%w: no uid", ErrMalformedToken)
	}
	return out, nil
}
