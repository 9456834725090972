package authclient

import (
	"context"
	"time"

	"github.com/kdktj/authclient/session"
)

// User is the identity record of the signed-in account.
type User = session.User

// Status is the session state machine's current state.
type Status uint8

const (
	// StatusIdle is the state before the first StartupCheck.
	StatusIdle Status = iota
	// StatusVerifying means a token is held but its user is not confirmed yet.
	StatusVerifying
	// StatusAuthenticated means token and user are both present and confirmed.
	StatusAuthenticated
	// StatusUnauthenticated means no session is held.
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusVerifying:
		return "verifying"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the session. Mutating it has no effect on
// the Manager.
type Snapshot struct {
	Status Status
	Token  string
	User   *User

	// Optimistic is set while a cached user is shown before the backend has
	// confirmed it.
	Optimistic bool
	LastError  string
	InstanceID string
	UpdatedAt  time.Time
}

// Identity returns the user a UI should render: the confirmed user, or the
// cached one while Optimistic. It returns nil otherwise.
func (s Snapshot) Identity() *User {
	switch {
	case s.Status == StatusAuthenticated:
		return s.User
	case s.Status == StatusVerifying && s.Optimistic:
		return s.User
	default:
		return nil
	}
}

// Credentials are what Login sends.
type Credentials struct {
	Email    string
	Password string
}

// Profile is what Register sends.
type Profile struct {
	Email    string
	Username string
	FullName string
	Password string
}

// LoginResponse is a backend reply to login or register. User is optional.
type LoginResponse struct {
	Token string
	User  *User
}

// RefreshResponse is a backend reply to a token refresh.
type RefreshResponse struct {
	Token string
}

// AuthResult is returned by Login and Register.
//
// UserPending is set when the token was accepted but the user record could
// not be fetched; User is nil until RefreshUser or StartupCheck backfills it.
type AuthResult struct {
	Token       string
	User        *User
	UserPending bool
}

// SessionClient is the backend boundary the Manager depends on.
//
// CurrentUser must fail with an error satisfying apierr.IsUnauthorized when
// the current token is rejected.
type SessionClient interface {
	Login(ctx context.Context, creds Credentials) (LoginResponse, error)
	Register(ctx context.Context, profile Profile) (LoginResponse, error)
	CurrentUser(ctx context.Context) (*User, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (RefreshResponse, error)
}
