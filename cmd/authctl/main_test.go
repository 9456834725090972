package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

type fakeBackend struct {
	token   atomic.Value
	logouts atomic.Int32
}

func signed(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(ttl).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

const userJSON = `{"id":7,"email":"ada@example.com","username":"ada","full_name":"Ada L","role":"user"}`

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{}
	fb.token.Store(signed(t, "7", time.Hour))

	authed := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+fb.token.Load().(string)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"`+fb.token.Load().(string)+`","token_type":"bearer","user":`+userJSON+`}`)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
			return
		}
		_, _ = io.WriteString(w, userJSON)
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if authed(r) {
			fb.logouts.Add(1)
		}
		_, _ = io.WriteString(w, `{"message":"Successfully logged out"}`)
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next := signed(t, "7", 2*time.Hour)
		fb.token.Store(next)
		_, _ = io.WriteString(w, `{"access_token":"`+next+`","token_type":"bearer"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func setupEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("AUTHCTL_BASE_URL", baseURL)
	t.Setenv("AUTHCTL_STORE", "file")
	t.Setenv("AUTHCTL_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("AUTHCTL_LOG_LEVEL", "error")
	t.Setenv("AUTHCTL_PASSWORD", "")
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestSessionLifecycleAcrossInvocations(t *testing.T) {
	fb, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)

	code, out, errOut := runCmd(t, "login", "-email", "ada@example.com", "-password", "pw")
	if code != exitOK || !strings.Contains(out, "email=ada@example.com") {
		t.Fatalf("login: code=%d out=%q err=%q", code, out, errOut)
	}

	code, out, _ = runCmd(t, "status")
	if code != exitOK || !strings.Contains(out, "stored session") || !strings.Contains(out, "expires at") {
		t.Fatalf("status: code=%d out=%q", code, out)
	}

	code, out, _ = runCmd(t, "whoami")
	if code != exitOK || !strings.Contains(out, "id=7") {
		t.Fatalf("whoami: code=%d out=%q", code, out)
	}

	code, out, errOut = runCmd(t, "refresh")
	if code != exitOK || !strings.Contains(out, "token refreshed") {
		t.Fatalf("refresh: code=%d out=%q err=%q", code, out, errOut)
	}

	code, out, _ = runCmd(t, "token")
	if code != exitOK || !strings.Contains(out, "expires at") {
		t.Fatalf("token: code=%d out=%q", code, out)
	}

	code, out, _ = runCmd(t, "logout")
	if code != exitOK || !strings.Contains(out, "signed out") {
		t.Fatalf("logout: code=%d out=%q", code, out)
	}
	if fb.logouts.Load() != 1 {
		t.Fatalf("expected the server logout to carry the refreshed bearer, got %d", fb.logouts.Load())
	}

	code, out, _ = runCmd(t, "status")
	if code != exitOK || !strings.Contains(out, "signed out") {
		t.Fatalf("status after logout: code=%d out=%q", code, out)
	}

	code, _, errOut = runCmd(t, "whoami")
	if code != exitError || !strings.Contains(errOut, "not authenticated") {
		t.Fatalf("whoami after logout: code=%d err=%q", code, errOut)
	}
}

func TestLoginFailurePrintsServerMessage(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)

	code, _, errOut := runCmd(t, "login", "-email", "ada@example.com", "-password", "wrong")
	if code != exitError {
		t.Fatalf("expected exit %d, got %d", exitError, code)
	}
	if strings.TrimSpace(errOut) != "Incorrect email or password" {
		t.Fatalf("unexpected stderr %q", errOut)
	}
}

func TestBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	setupEnv(t, url)

	code, _, errOut := runCmd(t, "login", "-email", "ada@example.com", "-password", "pw")
	if code != exitError || !strings.Contains(errOut, "Cannot connect to server") {
		t.Fatalf("code=%d err=%q", code, errOut)
	}
}

func TestUsageErrors(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command"},
		{name: "unknown command", args: []string{"frobnicate"}},
		{name: "login without flags", args: []string{"login"}},
		{name: "bad flag", args: []string{"-nope", "status"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code, _, _ := runCmd(t, tc.args...); code != exitUsage {
				t.Fatalf("expected exit %d, got %d", exitUsage, code)
			}
		})
	}
}

func TestUnknownStoreFails(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)
	t.Setenv("AUTHCTL_STORE", "floppy")

	code, _, errOut := runCmd(t, "status")
	if code != exitError || !strings.Contains(errOut, "unknown store") {
		t.Fatalf("code=%d err=%q", code, errOut)
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "info", "json").Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected json output, got %q", buf.String())
	}
	buf.Reset()
	NewLogger(&buf, "error", "text").Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at error level, got %q", buf.String())
	}
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("AUTHCTL_TEST_DURATION", "soon")
	t.Setenv("AUTHCTL_TEST_BOOL", "yes please")
	if got := EnvDuration("AUTHCTL_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("expected default duration, got %v", got)
	}
	if got := EnvBool("AUTHCTL_TEST_BOOL", true); !got {
		t.Fatal("expected default bool")
	}
	t.Setenv("AUTHCTL_TEST_DURATION", "3s")
	if got := EnvDuration("AUTHCTL_TEST_DURATION", time.Second); got != 3*time.Second {
		t.Fatalf("expected 3s, got %v", got)
	}
}
