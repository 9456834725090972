package flows

import (
	"context"

	"github.com/kdktj/authclient/session"
)

// PairStore is the persistence a flow needs. session.Store satisfies it.
type PairStore interface {
	Save(ctx context.Context, token string, user *session.User) error
	SetUser(ctx context.Context, user *session.User) error
	Clear(ctx context.Context) error
}

// Pair is a token and the user it belongs to. User is nil while pending.
type Pair struct {
	Token string
	User  *session.User
}

// Empty reports whether p holds no session.
func (p Pair) Empty() bool {
	return p.Token == ""
}

// restore writes prev back to store, or clears store when prev is empty or
// has no user.
func restore(ctx context.Context, store PairStore, prev Pair) error {
	if prev.Token != "" && prev.User.Valid() {
		return store.Save(ctx, prev.Token, prev.User)
	}
	return store.Clear(ctx)
}
