package flows

import (
	"context"
	"errors"
	"time"

	"github.com/kdktj/authclient/session"
)

// ErrEmptyUser is returned when the backend answers a user fetch without a
// usable record.
var ErrEmptyUser = errors.New("backend returned an empty user")

// VerifyDeps captures startup verification dependencies.
type VerifyDeps struct {
	FetchUser func(ctx context.Context) (*session.User, error)
	Timeout   time.Duration
	Now       func() time.Time
}

// VerifyResult carries the confirmed user or the reason it could not be
// confirmed.
type VerifyResult struct {
	User    *session.User
	Err     error
	Elapsed time.Duration
}

// RunVerify confirms the current token by fetching its user. Every failure,
// including a network failure, is reported the same way.
func RunVerify(ctx context.Context, deps VerifyDeps) VerifyResult {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.Timeout)
		defer cancel()
	}

	start := now()
	user, err := deps.FetchUser(ctx)
	elapsed := now().Sub(start)
	if err != nil {
		return VerifyResult{Err: err, Elapsed: elapsed}
	}
	if !user.Valid() {
		return VerifyResult{Err: ErrEmptyUser, Elapsed: elapsed}
	}
	return VerifyResult{User: user, Elapsed: elapsed}
}
