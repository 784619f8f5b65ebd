package token

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-social-client/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims are the access token fields the client reads. The client cannot
// verify signatures (it never holds the key), so these are hints only: the
// backend remains the authority on validity.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwtlib.RegisteredClaims
}

// Pair is a freshly issued credential set as returned by login, OTP
// verification and refresh. RefreshToken and Profile may be empty.
type Pair struct {
	AccessToken  string
	RefreshToken string
	Profile      *users.Profile
}

// ParseUnverified decodes the claims of a JWT access token without checking
// its signature. Opaque (non-JWT) tokens return an error.
func ParseUnverified(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// Expiry returns the exp claim, or the zero time when it is absent or the
// token is opaque.
func Expiry(raw string) time.Time {
	claims, err := ParseUnverified(raw)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// ExpiresWithin reports whether the token's exp claim falls within d of now.
// Tokens without a readable exp are never reported as expiring.
func ExpiresWithin(raw string, d time.Duration) bool {
	exp := Expiry(raw)
	if exp.IsZero() {
		return false
	}
	return !NowTimeFunc().Add(d).Before(exp)
}

// Subject returns the sub claim, or "" when unavailable.
func Subject(raw string) string {
	claims, err := ParseUnverified(raw)
	if err != nil {
		return ""
	}
	return claims.Subject
}
