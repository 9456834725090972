package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kdktj/authclient/internal/rate"
)

// Session is the part of *authclient.Manager the transport uses.
type Session interface {
	AccessToken(ctx context.Context) (string, error)
	TokenExpired() bool
	Refresh(ctx context.Context) error
	Invalidate(ctx context.Context, reason string) error
}

// Config tunes refresh behavior. The zero value allows one refresh attempt
// per DefaultRefreshEvery.
type Config struct {
	// RefreshEvery is the refill interval of the refresh budget. Negative
	// disables the limit.
	RefreshEvery time.Duration
	// RefreshBurst is how many refreshes may run back to back.
	RefreshBurst int
	// DisableRefresh sends stale tokens as they are and leaves renewal to
	// the 401 path.
	DisableRefresh bool
	Logger         *slog.Logger
}

// DefaultRefreshEvery is the refresh budget refill interval used when
// Config.RefreshEvery is zero.
const DefaultRefreshEvery = 10 * time.Second

type skipBearerKey struct{}

// WithoutBearer marks requests made with ctx to be sent without the
// session bearer.
func WithoutBearer(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipBearerKey{}, true)
}

func bearerSkipped(ctx context.Context) bool {
	v, _ := ctx.Value(skipBearerKey{}).(bool)
	return v
}

// Transport is an http.RoundTripper bound to one Session.
type Transport struct {
	base    http.RoundTripper
	session Session
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
	group   singleflight.Group
}

// New wraps base, or http.DefaultTransport when base is nil.
func New(base http.RoundTripper, s Session, cfg Config) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	every := cfg.RefreshEvery
	if every == 0 {
		every = DefaultRefreshEvery
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		base:    base,
		session: s,
		cfg:     cfg,
		limiter: rate.New(rate.Config{Every: every, Burst: cfg.RefreshBurst}),
		logger:  logger,
	}
}

// Client returns an *http.Client that sends through t.
func (t *Transport) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

// RoundTrip implements http.RoundTripper. req is never modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if t.session == nil || bearerSkipped(ctx) || req.Header.Get("Authorization") != "" {
		return t.base.RoundTrip(req)
	}

	token, err := t.session.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("middleware: read session token: %w", err)
	}
	if token == "" {
		return t.base.RoundTrip(req)
	}

	if !t.cfg.DisableRefresh && t.session.TokenExpired() {
		token, err = t.refresh(ctx, token)
		if err != nil {
			return nil, err
		}
		if token == "" {
			return t.base.RoundTrip(req)
		}
	}

	out := req.Clone(ctx)
	out.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.invalidate(ctx, token, req)
	}
	return resp, nil
}

// refresh renews a stale token once for all requests waiting on it. A
// limited attempt keeps the stale token.
func (t *Transport) refresh(ctx context.Context, stale string) (string, error) {
	v, err, _ := t.group.Do("refresh", func() (any, error) {
		// Another request may already have renewed it.
		if current, err := t.session.AccessToken(ctx); err == nil && current != stale {
			return current, nil
		}
		if err := t.limiter.Allow(); err != nil {
			return stale, err
		}
		if err := t.session.Refresh(context.WithoutCancel(ctx)); err != nil {
			return "", err
		}
		return t.session.AccessToken(ctx)
	})
	if errors.Is(err, rate.ErrRateLimited) {
		t.logger.Debug("authclient: refresh skipped, budget exhausted")
		return stale, nil
	}
	if err != nil {
		return "", fmt.Errorf("middleware: refresh session: %w", err)
	}
	token, _ := v.(string)
	return token, nil
}

// invalidate ends the session when the rejected bearer is still the one the
// session holds. A newer token means the rejection is for an old session.
func (t *Transport) invalidate(ctx context.Context, sent string, req *http.Request) {
	current, err := t.session.AccessToken(ctx)
	if err != nil || current != sent {
		return
	}
	reason := "backend rejected bearer on " + req.Method + " " + req.URL.Path
	if err := t.session.Invalidate(context.WithoutCancel(ctx), reason); err != nil {
		t.logger.Warn("authclient: could not invalidate rejected session", "error", err)
	}
}
