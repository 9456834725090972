package authclient

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kdktj/authclient/apierr"
	internalaudit "github.com/kdktj/authclient/internal/audit"
	internalmetrics "github.com/kdktj/authclient/internal/metrics"
	"github.com/kdktj/authclient/jwt"
	"github.com/kdktj/authclient/permission"
	"github.com/kdktj/authclient/session"
)

// Manager is the session state machine. It is the only writer of the
// persisted token and user, and every method is safe for concurrent use.
//
// The mutex guarding in-memory state is never held across a backend call.
// Operations that overlap are ordered by a generation counter: the first
// write of an operation takes the session over, and writes from an
// operation that lost the session are dropped.
type Manager struct {
	config     Config
	client     SessionClient
	store      *session.Store
	memoryOnly bool
	codec      jwt.Codec
	policy     *permission.Policy
	normalizer apierr.Normalizer
	audit      *internalaudit.Dispatcher
	metrics    *internalmetrics.Metrics
	logger     *slog.Logger
	instanceID string
	now        func() time.Time

	// persist serializes store writes with the generation check that
	// guards them.
	persist sync.Mutex

	mu        sync.RWMutex
	st        state
	listeners []listener
	nextID    uint64

	verifying atomic.Bool
	closed    atomic.Bool
}

type state struct {
	status     Status
	token      string
	user       *User
	optimistic bool
	lastError  string
	updatedAt  time.Time

	gen uint64
	// writers counts operations that own the session and have not finished.
	writers int
}

type listener struct {
	id uint64
	fn func(Snapshot)
}

// claim is one operation's handle on the session generation it started
// from.
type claim struct {
	m     *Manager
	gen   uint64
	owned bool
}

func (m *Manager) observe() *claim {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &claim{m: m, gen: m.st.gen}
}

// take returns a claim that already owns the session, superseding any
// operation in flight.
func (m *Manager) take() *claim {
	m.persist.Lock()
	defer m.persist.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &claim{m: m, gen: m.st.gen}
	c.ownLocked()
	return c
}

// own takes the session for c unless another operation already did.
// Callers hold m.persist.
func (c *claim) own() bool {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	return c.ownLocked()
}

func (c *claim) ownLocked() bool {
	if c.m.st.gen != c.gen {
		return false
	}
	if !c.owned {
		c.m.st.gen++
		c.gen = c.m.st.gen
		c.m.st.writers++
		c.owned = true
	}
	return true
}

func (c *claim) current() bool {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	return c.m.st.gen == c.gen
}

func (c *claim) release() {
	if !c.owned {
		return
	}
	c.m.mu.Lock()
	c.m.st.writers--
	c.m.mu.Unlock()
	c.owned = false
}

// mutate applies fn to the state if c still owns, or can take, the session.
// The returned snapshot must be passed to notify once all locks are
// released.
func (m *Manager) mutate(c *claim, fn func(*state)) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !c.ownLocked() {
		return Snapshot{}, false
	}
	fn(&m.st)
	m.st.updatedAt = m.now()
	return m.snapshotLocked(), true
}

// setLastError records msg without taking the session.
func (m *Manager) setLastError(c *claim, msg string) {
	m.mu.Lock()
	if m.st.gen != c.gen || m.st.lastError == msg {
		m.mu.Unlock()
		return
	}
	m.st.lastError = msg
	m.st.updatedAt = m.now()
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Status:     m.st.status,
		Token:      m.st.token,
		User:       m.st.user.Clone(),
		Optimistic: m.st.optimistic,
		LastError:  m.st.lastError,
		InstanceID: m.instanceID,
		UpdatedAt:  m.st.updatedAt,
	}
}

func (m *Manager) notify(snap Snapshot) {
	m.mu.RLock()
	fns := make([]func(Snapshot), 0, len(m.listeners))
	for _, l := range m.listeners {
		fns = append(fns, l.fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		s := snap
		s.User = snap.User.Clone()
		fn(s)
	}
}

// claimStore routes flow writes through the generation check of c.
type claimStore struct {
	c *claim
}

func (s claimStore) Save(ctx context.Context, token string, user *User) error {
	s.c.m.persist.Lock()
	defer s.c.m.persist.Unlock()
	if !s.c.own() {
		return ErrSessionReplaced
	}
	return s.c.m.store.Save(ctx, token, user)
}

func (s claimStore) SetUser(ctx context.Context, user *User) error {
	s.c.m.persist.Lock()
	defer s.c.m.persist.Unlock()
	if !s.c.own() {
		return ErrSessionReplaced
	}
	return s.c.m.store.SetUser(ctx, user)
}

func (s claimStore) Clear(ctx context.Context) error {
	s.c.m.persist.Lock()
	defer s.c.m.persist.Unlock()
	if !s.c.own() {
		return ErrSessionReplaced
	}
	return s.c.m.store.Clear(ctx)
}

// Snapshot returns a copy of the current session; the user is deep-copied.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Subscribe registers fn to receive a Snapshot after every state change.
// Listeners run on the goroutine that made the change, outside any lock, in
// registration order. The returned func unregisters fn.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, l := range m.listeners {
				if l.id == id {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// IsAuthenticated is computed from the current token, user and status on
// every call. It is false while a cached session is still being verified.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.status == StatusAuthenticated && m.st.token != "" && m.st.user.Valid()
}

// HasPermission reports whether the user to render holds name, either
// directly, through a role grant, or by having the admin role. The answer is
// for display only.
func (m *Manager) HasPermission(name string) bool {
	u := m.identity()
	if u == nil {
		return false
	}
	return m.policy.Allows(u.Role, u.Permissions, name)
}

// IsAdmin reports whether the user to render has the admin role.
func (m *Manager) IsAdmin() bool {
	u := m.identity()
	return u != nil && m.policy.IsAdmin(u.Role)
}

func (m *Manager) identity() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.st.status == StatusAuthenticated:
		return m.st.user
	case m.st.status == StatusVerifying && m.st.optimistic:
		return m.st.user
	default:
		return nil
	}
}

// Token returns the bearer token held in memory, or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.token
}

// AccessToken returns the token held in memory. A Manager can serve as the
// token source of an outbound transport.
func (m *Manager) AccessToken(context.Context) (string, error) {
	return m.Token(), nil
}

// TokenExpired reports whether the held token is missing, undecodable, or
// within Config.Token.ExpirySkew of its expiry.
func (m *Manager) TokenExpired() bool {
	return m.codec.IsExpired(m.Token(), m.config.Token.ExpirySkew)
}

// ExpiresAt returns the expiry claim of the held token, if it has one.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	return m.codec.ExpiresAt(m.Token())
}

// ClearError clears Snapshot.LastError.
func (m *Manager) ClearError() {
	m.mu.Lock()
	if m.st.lastError == "" {
		m.mu.Unlock()
		return
	}
	m.st.lastError = ""
	m.st.updatedAt = m.now()
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

// Store returns the Store the Manager persists to. After a failed probe in
// Build its backend is in memory.
func (m *Manager) Store() *session.Store {
	return m.store
}

// MemoryOnly reports whether Build fell back to in-memory persistence.
func (m *Manager) MemoryOnly() bool {
	return m.memoryOnly
}

// InstanceID identifies this Manager in audit events and snapshots.
func (m *Manager) InstanceID() string {
	return m.instanceID
}

// Close describes the close operation and its observable behavior.
//
// Close drains pending audit events. Identity operations called afterwards
// return ErrManagerClosed; read accessors keep working.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

// AuditDropped reports events lost to a full audit queue.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot copies the counters. A Manager built without metrics
// returns empty maps.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) usable() error {
	if m == nil || m.closed.Load() {
		return ErrManagerClosed
	}
	return nil
}

func (m *Manager) fail(op string, err error, fallback string) *OperationError {
	return &OperationError{
		Op:      op,
		Message: m.normalizer.Normalize(err, fallback),
		Err:     err,
	}
}
