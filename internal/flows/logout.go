package flows

import "context"

// LogoutDeps captures logout and teardown dependencies.
type LogoutDeps struct {
	// ServerLogout is optional. Its error never stops the local teardown.
	ServerLogout func(ctx context.Context) error
	// Teardown clears in-memory state. It runs before the store is touched.
	Teardown func()
	Store    PairStore
}

// LogoutResult reports what failed, if anything. The session is gone from
// memory either way.
type LogoutResult struct {
	ServerErr error
	StoreErr  error
}

// RunLogout notifies the backend while the token is still available to the
// transport, then clears memory, then clears the user and token.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	var res LogoutResult
	if deps.ServerLogout != nil {
		res.ServerErr = deps.ServerLogout(ctx)
	}
	if deps.Teardown != nil {
		deps.Teardown()
	}
	if deps.Store != nil {
		res.StoreErr = deps.Store.Clear(ctx)
	}
	return res
}
