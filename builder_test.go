package authclient

import (
	"errors"
	"testing"
	"time"

	"github.com/kdktj/authclient/session"
)

func TestBuildRequiresClient(t *testing.T) {
	if _, err := New().Build(); !errors.Is(err, ErrClientRequired) {
		t.Fatalf("expected ErrClientRequired, got %v", err)
	}
}

func TestBuildOnce(t *testing.T) {
	b := New().WithClient(&fakeClient{}).WithLogger(quietLogger())
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.UserKey = cfg.Store.TokenKey
	if _, err := New().WithConfig(cfg).WithClient(&fakeClient{}).Build(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Roles.Grants = map[string][]string{"": {"tasks:read"}}
	if _, err := New().WithConfig(cfg).WithClient(&fakeClient{}).Build(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for empty grant role, got %v", err)
	}
}

func TestBuildAppliesKeyLayout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.KeyPrefix = "tracker:"
	cfg.Store.TokenKey = "access"

	m, err := New().WithConfig(cfg).WithClient(&fakeClient{}).WithBackend(session.NewMemoryBackend()).WithLogger(quietLogger()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	if m.Store().TokenKey() != "tracker:access" || m.Store().UserKey() != "tracker:user" {
		t.Fatalf("unexpected keys %q %q", m.Store().TokenKey(), m.Store().UserKey())
	}
	if m.MemoryOnly() {
		t.Fatal("memory backend answers its probe")
	}
}

func TestBuildInitialSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m, err := New().WithClient(&fakeClient{}).WithClock(func() time.Time { return now }).WithLogger(quietLogger()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	snap := m.Snapshot()
	if snap.Status != StatusIdle || !snap.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
	if snap.InstanceID == "" || snap.InstanceID != m.InstanceID() {
		t.Fatalf("expected instance id in snapshot, got %q", snap.InstanceID)
	}
	if len(m.MetricsSnapshot().Counters) != 0 {
		t.Fatal("metrics are disabled by default")
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusIdle:            "idle",
		StatusVerifying:       "verifying",
		StatusAuthenticated:   "authenticated",
		StatusUnauthenticated: "unauthenticated",
		Status(42):            "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Fatalf("status %d: expected %q, got %q", status, want, got)
		}
	}
}

func TestMessageHelper(t *testing.T) {
	if Message(nil) != "" {
		t.Fatal("nil error has no message")
	}
	wrapped := &OperationError{Op: "login", Message: "Login failed.", Err: errors.New("boom")}
	if Message(wrapped) != "Login failed." {
		t.Fatalf("unexpected message %q", Message(wrapped))
	}
	if Message(errors.New("plain")) != "plain" {
		t.Fatal("plain errors keep their text")
	}
}
