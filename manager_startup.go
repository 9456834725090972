package authclient

import (
	"context"
	"errors"

	"github.com/kdktj/authclient/internal/flows"
)

// StartupCheck describes the startupcheck operation and its observable behavior.
//
// StartupCheck confirms a persisted session with the backend. While one
// check is in flight further calls return nil at once without a second
// backend request.
//
// A cached token and user are published as StatusVerifying with
// Optimistic set, then confirmed with a user fetch. Success stores the fresh
// user and moves to StatusAuthenticated. Any failure, network failures
// included, clears memory and store and moves to StatusUnauthenticated
// without surfacing an error. A token left by a login whose user fetch
// failed, in memory or persisted, is verified the same way without an
// optimistic identity, and success backfills the user.
//
// The result is dropped when another operation replaced the session while
// the fetch was in flight. StartupCheck returns an error only after Close.
func (m *Manager) StartupCheck(ctx context.Context) error {
	if err := m.usable(); err != nil {
		return err
	}
	if !m.verifying.CompareAndSwap(false, true) {
		m.metrics.Inc(MetricStartupDeduplicated)
		return nil
	}
	defer m.verifying.Store(false)

	c := m.observe()
	defer c.release()

	pair, ok := m.startupPair(ctx, c)
	if !ok {
		return nil
	}
	if pair.Empty() {
		m.publishUnauthenticated(c)
		return nil
	}

	if m.config.Token.RejectExpiredOnStartup && m.codec.IsExpired(pair.Token, m.config.Token.ExpirySkew) {
		m.downgrade(ctx, c, pair, "token expired")
		return nil
	}

	snap, ok := m.mutate(c, func(st *state) {
		st.status = StatusVerifying
		st.token = pair.Token
		st.user = pair.User.Clone()
		st.optimistic = pair.User != nil
	})
	if !ok {
		return nil
	}
	m.notify(snap)

	res := flows.RunVerify(ctx, flows.VerifyDeps{
		FetchUser: m.client.CurrentUser,
		Timeout:   m.config.Verify.Timeout,
		Now:       m.now,
	})
	m.metrics.Observe(MetricVerifyLatency, res.Elapsed)

	if res.Err != nil {
		if !c.current() {
			return nil
		}
		m.logger.Info("authclient: stored session rejected, signing out", "error", res.Err)
		m.downgrade(ctx, c, pair, "verification failed")
		return nil
	}

	if err := (claimStore{c: c}).Save(ctx, pair.Token, res.User); err != nil {
		if errors.Is(err, ErrSessionReplaced) {
			return nil
		}
		m.logger.Warn("authclient: could not persist confirmed user", "error", err)
	}

	snap, ok = m.mutate(c, func(st *state) {
		st.status = StatusAuthenticated
		st.user = res.User.Clone()
		st.optimistic = false
	})
	if !ok {
		return nil
	}
	m.notify(snap)
	m.metrics.Inc(MetricStartupConfirmed)
	m.emitAudit(ctx, auditEventStartupConfirmed, true, res.User.IDString(), "", func() map[string]string {
		return map[string]string{"duration_ms": formatMillis(res.Elapsed)}
	})
	return nil
}

// startupPair returns the session to verify: the one in memory if a login
// left one there, the persisted one otherwise. ok is false when another
// operation is establishing a session and there is nothing to check.
func (m *Manager) startupPair(ctx context.Context, c *claim) (flows.Pair, bool) {
	m.persist.Lock()
	defer m.persist.Unlock()

	m.mu.RLock()
	token, user, writers, current := m.st.token, m.st.user.Clone(), m.st.writers, m.st.gen == c.gen
	m.mu.RUnlock()

	if !current || writers > 0 {
		return flows.Pair{}, false
	}
	if token != "" {
		return flows.Pair{Token: token, User: user}, true
	}

	res, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("authclient: session store read failed, starting signed out", "error", err)
		return flows.Pair{}, true
	}
	if res.Repaired {
		m.metrics.Inc(MetricStoreCorruptionCleared)
	}
	return flows.Pair{Token: res.Token, User: res.User}, true
}

func (m *Manager) publishUnauthenticated(c *claim) {
	snap, ok := m.mutate(c, func(st *state) {
		st.status = StatusUnauthenticated
		st.token = ""
		st.user = nil
		st.optimistic = false
	})
	if ok {
		m.notify(snap)
	}
}

func (m *Manager) downgrade(ctx context.Context, c *claim, pair flows.Pair, reason string) {
	if torn, _ := m.teardown(ctx, c, "", nil); !torn {
		return
	}
	m.metrics.Inc(MetricStartupDowngraded)
	userID := ""
	if pair.User != nil {
		userID = pair.User.IDString()
	}
	m.emitAudit(ctx, auditEventStartupDowngraded, false, userID, reason, nil)
}
