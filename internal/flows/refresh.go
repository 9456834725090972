package flows

import (
	"context"

	"github.com/kdktj/authclient/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureExchange
	RefreshFailureNoToken
	RefreshFailurePersist
)

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Refresh    func(ctx context.Context) (string, error)
	Store      PairStore
	Current    Pair
	ErrNoToken error
}

// RefreshResult carries the replacement token or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Token   string
	User    *session.User
}

// RunRefresh swaps the token of deps.Current and keeps its user. The caller
// tears the session down on any failure.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	token, err := deps.Refresh(ctx)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureExchange, Err: err}
	}
	if token == "" {
		return RefreshResult{Failure: RefreshFailureNoToken, Err: deps.ErrNoToken}
	}
	if err := deps.Store.Save(ctx, token, deps.Current.User); err != nil {
		return RefreshResult{Failure: RefreshFailurePersist, Err: err}
	}
	return RefreshResult{Token: token, User: deps.Current.User}
}
