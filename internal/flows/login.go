package flows

import (
	"context"
	"errors"

	"github.com/kdktj/authclient/session"
)

// LoginFailureKind classifies login and register failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureExchange
	LoginFailureNoToken
	LoginFailurePersist
)

// Exchange trades credentials for a token and, when the backend embeds one,
// the user it belongs to.
type Exchange func(ctx context.Context) (token string, user *session.User, err error)

// LoginDeps captures login and register dependencies.
type LoginDeps struct {
	Exchange Exchange
	// Fallback runs when Exchange succeeded without a token. Registration uses
	// it to sign in with the new credentials.
	Fallback  Exchange
	FetchUser func(ctx context.Context) (*session.User, error)
	Store     PairStore
	// Previous is restored when the flow fails after writing to Store.
	Previous   Pair
	ErrNoToken error
	Warn       func(string, ...any)
}

// LoginResult is the outcome of RunLogin. On success User may be nil when
// the user fetch failed; UserErr then holds the reason.
type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	Token     string
	User      *session.User
	UserErr   error
	FetchedBy string
}

// Success reports whether a token was obtained and persisted.
func (r LoginResult) Success() bool {
	return r.Failure == LoginFailureNone
}

// RunLogin obtains a token, persists it before anything else, then resolves
// the user from the response or from FetchUser. Any failure after the first
// write restores deps.Previous.
func RunLogin(ctx context.Context, deps LoginDeps) LoginResult {
	token, user, err := deps.Exchange(ctx)
	if err != nil {
		return LoginResult{Failure: LoginFailureExchange, Err: err}
	}
	fetchedBy := "response"
	if token == "" && deps.Fallback != nil {
		token, user, err = deps.Fallback(ctx)
		if err != nil {
			return LoginResult{Failure: LoginFailureExchange, Err: err}
		}
		fetchedBy = "fallback"
	}
	if token == "" {
		return LoginResult{Failure: LoginFailureNoToken, Err: deps.ErrNoToken}
	}

	// The token goes in first so FetchUser can authenticate with it. Save
	// with a nil user also drops any stale user of the previous session.
	if err := deps.Store.Save(ctx, token, nil); err != nil {
		return rollback(ctx, deps, LoginResult{Failure: LoginFailurePersist, Err: err})
	}

	var userErr error
	if !user.Valid() {
		user = nil
		if deps.FetchUser != nil {
			fetched, ferr := deps.FetchUser(ctx)
			switch {
			case ferr != nil:
				userErr = ferr
			case !fetched.Valid():
				userErr = ErrEmptyUser
			default:
				user = fetched
				fetchedBy = "fetch"
			}
		}
	}

	if user != nil {
		if err := deps.Store.SetUser(ctx, user); err != nil {
			return rollback(ctx, deps, LoginResult{Failure: LoginFailurePersist, Err: err})
		}
	}

	return LoginResult{
		Token:     token,
		User:      user,
		UserErr:   userErr,
		FetchedBy: fetchedBy,
	}
}

func rollback(ctx context.Context, deps LoginDeps, res LoginResult) LoginResult {
	if err := restore(ctx, deps.Store, deps.Previous); err != nil {
		if deps.Warn != nil {
			deps.Warn("authclient: rollback after failed login did not complete", "error", err)
		}
		res.Err = errors.Join(res.Err, err)
	}
	return res
}
