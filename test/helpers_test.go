//go:build integration
// +build integration

package test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kdktj/authclient"
	"github.com/kdktj/authclient/httpclient"
	"github.com/kdktj/authclient/session"
)

// redisMode describes which Redis the suite runs against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns miniredis, plus a real Redis when REDIS_ADDR is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}
	return modes
}

const trackerUser = `{"id":1,"email":"ada@example.com","username":"ada","full_name":"Ada Lovelace","role":"user","created_at":"2024-05-01T09:30:00"}`

// tracker is an in-process task tracker backend. Revoke makes every
// presented token invalid until the next login.
type tracker struct {
	srv     *httptest.Server
	token   string
	revoked atomic.Bool
	me      atomic.Int32
	logouts atomic.Int32
	meDelay time.Duration
}

func newTracker(t *testing.T) *tracker {
	t.Helper()
	tr := &tracker{token: "tracker-token"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"correct-horse"`) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)
			return
		}
		tr.revoked.Store(false)
		_, _ = io.WriteString(w, `{"access_token":"`+tr.token+`","token_type":"bearer","user":`+trackerUser+`}`)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		tr.me.Add(1)
		if tr.meDelay > 0 {
			time.Sleep(tr.meDelay)
		}
		if !tr.valid(r) {
			tr.reject(w)
			return
		}
		_, _ = io.WriteString(w, trackerUser)
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		tr.logouts.Add(1)
		_, _ = io.WriteString(w, `{"message":"Successfully logged out"}`)
	})
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		if !tr.valid(r) {
			tr.reject(w)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})
	tr.srv = httptest.NewServer(mux)
	t.Cleanup(tr.srv.Close)
	return tr
}

func (tr *tracker) valid(r *http.Request) bool {
	return !tr.revoked.Load() && r.Header.Get("Authorization") == "Bearer "+tr.token
}

func (tr *tracker) reject(w http.ResponseWriter) {
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newManager wires a Manager to tr through a Redis-backed store namespaced
// by device.
func newManager(t *testing.T, tr *tracker, rdb redis.UniversalClient, device string) (*authclient.Manager, *session.Store) {
	t.Helper()
	store := session.NewStore(session.NewRedisBackend(rdb, device, time.Hour), session.Options{
		KeyPrefix: "tracker:",
		Logger:    quietLogger(),
	})
	client, err := httpclient.New(httpclient.Options{
		BaseURL: tr.srv.URL,
		Tokens:  store,
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("httpclient: %v", err)
	}
	cfg := authclient.DefaultConfig()
	cfg.Store.KeyPrefix = "tracker:"
	m, err := authclient.New().
		WithConfig(cfg).
		WithClient(client).
		WithStore(store).
		WithLogger(quietLogger()).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(m.Close)
	return m, store
}
