package auth

import "github.com/jrsteele09/go-social-client/users"

// Status is the position of the session in its check lifecycle.
type Status int

const (
	StatusUnchecked Status = iota
	StatusChecking
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnchecked:
		return "unchecked"
	case StatusChecking:
		return "checking"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// State is what the rest of the client sees of the session.
type State struct {
	Status          Status
	IsAuthenticated bool
	IsLoading       bool
	LoginAttempted  bool          // a check or interactive login has completed at least once
	User            *users.Profile
}
