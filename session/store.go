package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrBackendUnavailable is returned when a Store has no usable backend.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Backend is a durable string key/value medium.
//
// Delete removes keys in argument order; missing keys are not an error.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// PairWriter is implemented by backends that can write the token and user
// entries as one step. The token must be written before the user.
type PairWriter interface {
	SetPair(ctx context.Context, tokenKey, token, userKey, user string) error
}

// Options configures key naming for a Store.
type Options struct {
	KeyPrefix string
	TokenKey  string
	UserKey   string
	Logger    *slog.Logger
}

// LoadResult is the outcome of Store.Load.
type LoadResult struct {
	Token string
	User  *User

	// Repaired is set when a half-present or unreadable pair was found and
	// cleared.
	Repaired bool

	// UserPending is set when a token was found without its user record.
	// Login leaves this shape behind when the user fetch fails; the token is
	// kept so the next verification can backfill the user.
	UserPending bool
}

// Store persists the bearer token and the serialized user record.
type Store struct {
	backend  Backend
	tokenKey string
	userKey  string
	logger   *slog.Logger
}

// NewStore wraps backend with the configured key layout.
func NewStore(backend Backend, opts Options) *Store {
	if opts.TokenKey == "" {
		opts.TokenKey = "token"
	}
	if opts.UserKey == "" {
		opts.UserKey = "user"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		backend:  backend,
		tokenKey: opts.KeyPrefix + opts.TokenKey,
		userKey:  opts.KeyPrefix + opts.UserKey,
		logger:   opts.Logger,
	}
}

// TokenKey returns the fully prefixed token key.
func (s *Store) TokenKey() string { return s.tokenKey }

// UserKey returns the fully prefixed user key.
func (s *Store) UserKey() string { return s.userKey }

// ReplaceBackend swaps the medium behind s and returns the previous one.
// It is meant for start-up, before s is shared between goroutines.
func (s *Store) ReplaceBackend(b Backend) Backend {
	prev := s.backend
	s.backend = b
	return prev
}

// IsAvailable probes the backend. Callers fall back to memory-only
// operation when it reports false.
func (s *Store) IsAvailable(ctx context.Context) bool {
	if s == nil || s.backend == nil {
		return false
	}
	return s.backend.Ping(ctx) == nil
}

// GetToken returns the persisted token, or "" when none is stored.
func (s *Store) GetToken(ctx context.Context) (string, error) {
	if s == nil || s.backend == nil {
		return "", ErrBackendUnavailable
	}
	v, ok, err := s.backend.Get(ctx, s.tokenKey)
	if err != nil || !ok {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// SetToken stores token. An empty token removes the entry.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if s == nil || s.backend == nil {
		return ErrBackendUnavailable
	}
	if token == "" {
		return s.backend.Delete(ctx, s.tokenKey)
	}
	return s.backend.Set(ctx, s.tokenKey, token)
}

// GetUser returns the persisted user, or nil when none is stored. A blob
// that cannot be decoded is logged, cleared, and reported as absent.
func (s *Store) GetUser(ctx context.Context) (*User, error) {
	if s == nil || s.backend == nil {
		return nil, ErrBackendUnavailable
	}
	raw, ok, err := s.backend.Get(ctx, s.userKey)
	if err != nil || !ok {
		return nil, err
	}

	u, version, err := DecodeUser(raw)
	if err != nil {
		s.logger.Warn("authclient: discarding malformed persisted user", "key", s.userKey, "error", err)
		if delErr := s.backend.Delete(ctx, s.userKey); delErr != nil {
			s.logger.Warn("authclient: clearing malformed persisted user failed", "key", s.userKey, "error", delErr)
		}
		return nil, nil
	}

	if version != CurrentSchemaVersion {
		if err := s.SetUser(ctx, u); err != nil {
			s.logger.Warn("authclient: user schema migration failed", "from", version, "error", err)
		}
	}
	return u, nil
}

// SetUser stores u. A nil user removes the entry.
func (s *Store) SetUser(ctx context.Context, u *User) error {
	if s == nil || s.backend == nil {
		return ErrBackendUnavailable
	}
	if u == nil {
		return s.backend.Delete(ctx, s.userKey)
	}
	blob, err := EncodeUser(u)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, s.userKey, blob)
}

// Load reads the token and user together. A user without a token is
// cleared and reported as Repaired. A token without a user is returned
// with UserPending set and left in place.
func (s *Store) Load(ctx context.Context) (LoadResult, error) {
	token, err := s.GetToken(ctx)
	if err != nil {
		return LoadResult{}, err
	}
	u, err := s.GetUser(ctx)
	if err != nil {
		return LoadResult{}, err
	}

	if token != "" && u == nil {
		s.logger.Debug("authclient: persisted token has no user record")
		return LoadResult{Token: token, UserPending: true}, nil
	}
	if token == "" && u != nil {
		s.logger.Warn("authclient: clearing user record without token")
		if err := s.Clear(ctx); err != nil {
			return LoadResult{}, err
		}
		return LoadResult{Repaired: true}, nil
	}
	return LoadResult{Token: token, User: u}, nil
}

// Save writes token then user. A nil user leaves only the token behind.
func (s *Store) Save(ctx context.Context, token string, u *User) error {
	if s == nil || s.backend == nil {
		return ErrBackendUnavailable
	}
	if token == "" {
		return s.Clear(ctx)
	}
	if u == nil {
		if err := s.backend.Set(ctx, s.tokenKey, token); err != nil {
			return err
		}
		return s.backend.Delete(ctx, s.userKey)
	}

	blob, err := EncodeUser(u)
	if err != nil {
		return err
	}
	if pw, ok := s.backend.(PairWriter); ok {
		return pw.SetPair(ctx, s.tokenKey, token, s.userKey, blob)
	}
	if err := s.backend.Set(ctx, s.tokenKey, token); err != nil {
		return err
	}
	return s.backend.Set(ctx, s.userKey, blob)
}

// Clear removes the user entry and then the token entry.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.backend == nil {
		return ErrBackendUnavailable
	}
	return s.backend.Delete(ctx, s.userKey, s.tokenKey)
}
