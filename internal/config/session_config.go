package config

import "time"

type SessionConfig interface {
	GetRevokeTimeout() time.Duration
	GetRefreshSkew() time.Duration
}

type Session struct {
	src source
}

var _ SessionConfig = Session{}

// GetRevokeTimeout bounds the server-side revoke call made during logout.
func (s Session) GetRevokeTimeout() time.Duration {
	return s.src.duration("REVOKE_TIMEOUT", 3*time.Second)
}

// GetRefreshSkew is how close to expiry an access token may get before it is
// refreshed ahead of use.
func (s Session) GetRefreshSkew() time.Duration {
	return s.src.duration("REFRESH_SKEW", 30*time.Second)
}
