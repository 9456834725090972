//go:build integration
// +build integration

package test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kdktj/authclient"
	"github.com/kdktj/authclient/middleware"
)

func TestRestartRestoresPersistedSession(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()
			tr := newTracker(t)
			ctx := context.Background()

			first, _ := newManager(t, tr, rdb, "laptop")
			if _, err := first.Login(ctx, authclient.Credentials{Email: "ada@example.com", Password: "correct-horse"}); err != nil {
				t.Fatalf("login: %v", err)
			}
			first.Close()

			second, _ := newManager(t, tr, rdb, "laptop")
			var mu sync.Mutex
			var seen []authclient.Snapshot
			cancel := second.Subscribe(func(s authclient.Snapshot) {
				mu.Lock()
				seen = append(seen, s)
				mu.Unlock()
			})
			defer cancel()

			if err := second.StartupCheck(ctx); err != nil {
				t.Fatalf("startup check: %v", err)
			}
			snap := second.Snapshot()
			if snap.Status != authclient.StatusAuthenticated || snap.User == nil || snap.User.Email != "ada@example.com" {
				t.Fatalf("expected restored session, got %+v", snap)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(seen) != 2 || seen[0].Status != authclient.StatusVerifying || !seen[0].Optimistic {
				t.Fatalf("expected optimistic verifying then authenticated, got %+v", seen)
			}
		})
	}
}

func TestDevicesAreIsolated(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()
			tr := newTracker(t)
			ctx := context.Background()

			laptop, _ := newManager(t, tr, rdb, "laptop")
			if _, err := laptop.Login(ctx, authclient.Credentials{Email: "ada@example.com", Password: "correct-horse"}); err != nil {
				t.Fatalf("login: %v", err)
			}

			phone, phoneStore := newManager(t, tr, rdb, "phone")
			if err := phone.StartupCheck(ctx); err != nil {
				t.Fatalf("startup check: %v", err)
			}
			if phone.IsAuthenticated() {
				t.Fatal("a session on one device must not appear on another")
			}
			if tok, _ := phoneStore.GetToken(ctx); tok != "" {
				t.Fatalf("unexpected token %q", tok)
			}
		})
	}
}

func TestBackendRejectionThroughTransportClearsStore(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()
			tr := newTracker(t)
			ctx := context.Background()

			m, store := newManager(t, tr, rdb, "laptop")
			if _, err := m.Login(ctx, authclient.Credentials{Email: "ada@example.com", Password: "correct-horse"}); err != nil {
				t.Fatalf("login: %v", err)
			}

			api := middleware.New(nil, m, middleware.Config{Logger: quietLogger()}).Client(5 * time.Second)
			resp, err := api.Get(tr.srv.URL + "/api/tasks")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}

			tr.revoked.Store(true)
			resp, err = api.Get(tr.srv.URL + "/api/tasks")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			resp.Body.Close()

			if m.IsAuthenticated() {
				t.Fatal("a rejected bearer must end the session")
			}
			res, err := store.Load(ctx)
			if err != nil || res.Token != "" || res.User != nil {
				t.Fatalf("expected empty store, got %+v err=%v", res, err)
			}
			if tr.logouts.Load() != 0 {
				t.Fatal("invalidation must not call the logout route")
			}
		})
	}
}

func TestConcurrentStartupChecksShareOneVerification(t *testing.T) {
	rdb, cleanup := redisModes(t)[0].setup(t)
	defer cleanup()
	tr := newTracker(t)
	ctx := context.Background()

	seedManager, _ := newManager(t, tr, rdb, "laptop")
	if _, err := seedManager.Login(ctx, authclient.Credentials{Email: "ada@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	seedManager.Close()

	tr.me.Store(0)
	tr.meDelay = 50 * time.Millisecond
	m, _ := newManager(t, tr, rdb, "laptop")

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := m.StartupCheck(ctx); err != nil {
				t.Errorf("startup check: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if n := tr.me.Load(); n != 1 {
		t.Fatalf("expected one verification request, got %d", n)
	}
	if !m.IsAuthenticated() {
		t.Fatal("expected authenticated")
	}
	if got := m.MetricsSnapshot().Counters[authclient.MetricStartupDeduplicated]; got != 7 {
		t.Fatalf("expected 7 deduplicated checks, got %d", got)
	}
}

func TestUnreachableRedisFallsBackToMemory(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer rdb.Close()
	mr.Close()

	tr := newTracker(t)
	m, _ := newManager(t, tr, rdb, "laptop")
	if !m.MemoryOnly() {
		t.Fatal("expected memory-only manager")
	}
	if _, err := m.Login(context.Background(), authclient.Credentials{Email: "ada@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !m.IsAuthenticated() {
		t.Fatal("memory-only manager must still hold a session")
	}
}
