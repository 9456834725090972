package authclient

import (
	"context"
	"errors"

	"github.com/kdktj/authclient/apierr"
	"github.com/kdktj/authclient/internal/flows"
)

const (
	opRefresh     = "refresh"
	opRefreshUser = "refresh_user"
)

// teardown clears memory, then the persisted user and token. serverLogout,
// when set, runs first and its error is only reported. torn is false when
// another operation had already replaced the session.
func (m *Manager) teardown(ctx context.Context, c *claim, lastError string, serverLogout func(context.Context) error) (torn bool, serverErr error) {
	var snap Snapshot
	res := flows.RunLogout(ctx, flows.LogoutDeps{
		ServerLogout: serverLogout,
		Teardown: func() {
			m.persist.Lock()
			defer m.persist.Unlock()
			snap, torn = m.mutate(c, func(st *state) {
				st.status = StatusUnauthenticated
				st.token = ""
				st.user = nil
				st.optimistic = false
				st.lastError = lastError
			})
		},
		Store: claimStore{c: c},
	})
	if res.StoreErr != nil && !errors.Is(res.StoreErr, ErrSessionReplaced) {
		m.logger.Warn("authclient: could not clear persisted session", "error", res.StoreErr)
	}
	if torn {
		m.notify(snap)
	}
	return torn, res.ServerErr
}

// Logout describes the logout operation and its observable behavior.
//
// Logout tells the backend first, while the token is still available to the
// transport, and ignores its answer. The local session is always cleared.
// Logout returns an error only after Close.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.usable(); err != nil {
		return err
	}
	c := m.take()
	defer c.release()

	m.mu.RLock()
	hadToken := m.st.token != ""
	userID := m.st.user.IDString()
	m.mu.RUnlock()

	torn, serverErr := m.teardown(ctx, c, "", func(ctx context.Context) error {
		if !hadToken {
			return nil
		}
		return m.client.Logout(ctx)
	})
	if serverErr != nil {
		m.metrics.Inc(MetricLogoutServerFailure)
		m.logger.Warn("authclient: server logout failed, cleared local session anyway", "error", serverErr)
	}
	if !torn {
		return nil
	}

	m.metrics.Inc(MetricLogout)
	errText := ""
	if serverErr != nil {
		errText = serverErr.Error()
	}
	m.emitAudit(ctx, auditEventLogout, true, userID, errText, nil)
	return nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh replaces the token and keeps the user. Any failure, including a
// reply without a token, ends the session as Logout would and returns an
// *OperationError. The backend logout is still attempted and its answer
// ignored. A refresh that lands during StartupCheck confirms the cached
// user. Without a session it returns
// ErrNotAuthenticated.
func (m *Manager) Refresh(ctx context.Context) error {
	if err := m.usable(); err != nil {
		return err
	}
	c := m.observe()
	defer c.release()

	m.mu.RLock()
	current := flows.Pair{Token: m.st.token, User: m.st.user.Clone()}
	m.mu.RUnlock()
	if current.Empty() {
		return ErrNotAuthenticated
	}

	res := flows.RunRefresh(ctx, flows.RefreshDeps{
		Refresh: func(ctx context.Context) (string, error) {
			resp, err := m.client.Refresh(ctx)
			return resp.Token, err
		},
		Store:      claimStore{c: c},
		Current:    current,
		ErrNoToken: ErrNoToken,
	})

	if res.Failure != flows.RefreshFailureNone {
		opErr := m.fail(opRefresh, res.Err, m.config.Messages.RefreshFailed)
		if errors.Is(res.Err, ErrSessionReplaced) {
			return opErr
		}
		m.metrics.Inc(MetricRefreshFailure)
		_, serverErr := m.teardown(ctx, c, opErr.Message, func(ctx context.Context) error {
			if !c.current() {
				return nil
			}
			return m.client.Logout(ctx)
		})
		if serverErr != nil {
			m.logger.Debug("authclient: server logout after failed refresh", "error", serverErr)
		}
		m.emitAudit(ctx, auditEventRefreshFailure, false, current.User.IDString(), opErr.Message, nil)
		return opErr
	}

	snap, ok := m.mutate(c, func(st *state) {
		st.token = res.Token
		st.lastError = ""
		// A refresh supersedes a startup check in flight. The backend just
		// accepted the session, so a cached user is confirmed with it.
		if st.status == StatusVerifying && st.user.Valid() {
			st.status = StatusAuthenticated
			st.optimistic = false
		}
	})
	if ok {
		m.notify(snap)
	}
	m.metrics.Inc(MetricRefreshSuccess)
	m.emitAudit(ctx, auditEventRefreshSuccess, true, current.User.IDString(), "", nil)
	return nil
}

// RefreshUser describes the refreshuser operation and its observable behavior.
//
// RefreshUser re-fetches the current user and replaces the cached one. A
// rejected token ends the session; other failures are returned and leave it
// intact. It also completes a login whose user fetch failed.
func (m *Manager) RefreshUser(ctx context.Context) (*User, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	c := m.observe()
	defer c.release()

	token := m.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := m.client.CurrentUser(ctx)
	if err == nil && !user.Valid() {
		err = flows.ErrEmptyUser
	}
	if err != nil {
		opErr := m.fail(opRefreshUser, err, m.config.Messages.ProfileFailed)
		m.metrics.Inc(MetricUserRefreshFailure)
		if apierr.IsUnauthorized(err) {
			m.teardown(ctx, c, opErr.Message, nil)
			m.emitAudit(ctx, auditEventInvalidated, false, "", opErr.Message, func() map[string]string {
				return map[string]string{"reason": "user fetch rejected"}
			})
		} else {
			m.setLastError(c, opErr.Message)
		}
		return nil, opErr
	}

	if err := (claimStore{c: c}).Save(ctx, token, user); err != nil {
		if errors.Is(err, ErrSessionReplaced) {
			return nil, m.fail(opRefreshUser, err, m.config.Messages.ProfileFailed)
		}
		m.logger.Warn("authclient: could not persist refreshed user", "error", err)
	}

	snap, ok := m.mutate(c, func(st *state) {
		st.user = user.Clone()
		st.status = StatusAuthenticated
		st.optimistic = false
		st.lastError = ""
	})
	if !ok {
		return nil, m.fail(opRefreshUser, ErrSessionReplaced, m.config.Messages.ProfileFailed)
	}
	m.notify(snap)
	m.metrics.Inc(MetricUserRefreshed)
	m.emitAudit(ctx, auditEventUserRefreshed, true, user.IDString(), "", nil)
	return user.Clone(), nil
}

// Invalidate ends the session locally without calling the backend. An
// outbound transport calls it when the backend rejects the token. reason is
// recorded in the audit event.
func (m *Manager) Invalidate(ctx context.Context, reason string) error {
	if err := m.usable(); err != nil {
		return err
	}
	c := m.observe()
	defer c.release()

	m.mu.RLock()
	empty := m.st.token == "" && m.st.user == nil
	userID := m.st.user.IDString()
	m.mu.RUnlock()
	if empty {
		return nil
	}

	if torn, _ := m.teardown(ctx, c, "", nil); !torn {
		return nil
	}
	m.metrics.Inc(MetricSessionInvalidated)
	m.emitAudit(ctx, auditEventInvalidated, true, userID, "", func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return nil
}
