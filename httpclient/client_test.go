package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kdktj/authclient"
	"github.com/kdktj/authclient/apierr"
	"github.com/kdktj/authclient/session"
)

func newTestClient(t *testing.T, handler http.Handler, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Options{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Tokens:     tokens,
		UserAgent:  "authclient-test",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func staticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) { return token, nil })
}

func TestNewValidatesOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "missing base", opts: Options{Tokens: staticToken("")}},
		{name: "bad scheme", opts: Options{BaseURL: "ftp://example.com", Tokens: staticToken("")}},
		{name: "missing tokens", opts: Options{BaseURL: "https://example.com"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoginSendsCredentialsAndDecodesToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not carry a bearer")
		}
		if r.Header.Get("User-Agent") != "authclient-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		var body loginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Email != "ada@example.com" || body.Password != "pw" {
			t.Errorf("unexpected body %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"t2","token_type":"bearer","user":{"id":2,"email":"ada@example.com","username":"ada","full_name":"Ada L","role":"admin","created_at":"2024-05-01T09:30:00.123456"}}`)
	})
	c := newTestClient(t, mux, staticToken("old"))

	resp, err := c.Login(context.Background(), authclient.Credentials{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "t2" || resp.User == nil || resp.User.ID != 2 || resp.User.Role != "admin" {
		t.Fatalf("unexpected response %+v", resp)
	}
	want := time.Date(2024, 5, 1, 9, 30, 0, 123456000, time.UTC)
	if !resp.User.CreatedAt.Equal(want) {
		t.Fatalf("expected naive timestamp parsed as UTC, got %v", resp.User.CreatedAt)
	}
}

func TestLoginWithoutTokenField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}), staticToken(""))

	resp, err := c.Login(context.Background(), authclient.Credentials{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "" || resp.User != nil {
		t.Fatalf("expected empty response, got %+v", resp)
	}
}

func TestLoginRejectsForeignTokenType(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":"t","token_type":"mac"}`)
	}), staticToken(""))

	if _, err := c.Login(context.Background(), authclient.Credentials{}); err == nil {
		t.Fatal("expected error for non-bearer token type")
	}
}

func TestRegisterAcceptsBareUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body registerRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.FullName != "Grace H" || body.Username != "grace" {
			t.Errorf("unexpected body %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":3,"email":"g@example.com","username":"grace","full_name":"Grace H","role":"user","created_at":"2024-05-01T09:30:00Z"}`)
	})
	c := newTestClient(t, mux, staticToken(""))

	resp, err := c.Register(context.Background(), authclient.Profile{Email: "g@example.com", Username: "grace", FullName: "Grace H", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.Token != "" || resp.User == nil || resp.User.ID != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCurrentUserReadsBearerFromStore(t *testing.T) {
	store := session.NewStore(session.NewMemoryBackend(), session.Options{})
	if err := store.SetToken(context.Background(), "stored-token"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer stored-token" {
			t.Errorf("unexpected authorization %q", got)
		}
		_, _ = io.WriteString(w, `{"id":4,"email":"x@example.com","role":"user","permissions":["tasks:read"]}`)
	})
	c := newTestClient(t, mux, store)

	u, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if u.ID != 4 || len(u.Permissions) != 1 || !u.CreatedAt.IsZero() {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestCurrentUserUnauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	}), staticToken("expired"))

	_, err := c.CurrentUser(context.Background())
	if !apierr.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if got := apierr.Normalize(err, "fallback"); got != "Could not validate credentials" {
		t.Fatalf("unexpected normalized message %q", got)
	}
}

func TestValidationErrorBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"loc":["body","email"],"msg":"bad email","type":"value_error"},{"loc":["body","password"],"msg":"too short"}]}`)
	}), staticToken(""))

	_, err := c.Login(context.Background(), authclient.Credentials{Email: "x"})
	var re *apierr.ResponseError
	if !errors.As(err, &re) || re.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected ResponseError, got %v", err)
	}
	if got := apierr.Normalize(err, "fallback"); got != "bad email, too short" {
		t.Fatalf("unexpected normalized message %q", got)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url, Tokens: staticToken("")})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Login(context.Background(), authclient.Credentials{})
	if !apierr.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if got := apierr.Normalize(err, "fallback"); got != apierr.DefaultUnreachableMessage {
		t.Fatalf("unexpected normalized message %q", got)
	}
}

func TestCancelledContextIsNotNetworkError(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-block }), staticToken(""))
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Login(ctx, authclient.Credentials{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if apierr.IsNetwork(err) {
		t.Fatal("cancellation must not be reported as unreachable")
	}
}

func TestLogoutAndRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t5" {
			t.Errorf("logout must carry the bearer")
		}
		_, _ = io.WriteString(w, `{"message":"Successfully logged out"}`)
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":" t5b "}`)
	})
	c := newTestClient(t, mux, staticToken("t5"))

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	resp, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if resp.Token != "t5b" {
		t.Fatalf("unexpected token %q", resp.Token)
	}
}

func TestCustomPathsAndBasePath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/session/whoami", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id":6}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL + "/v2/", Tokens: staticToken("t"), Paths: Paths{Me: "session/whoami"}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	u, err := c.CurrentUser(context.Background())
	if err != nil || u.ID != 6 {
		t.Fatalf("unexpected result %+v err=%v", u, err)
	}
	if c.paths.Login != "/api/auth/login" {
		t.Fatalf("unset paths keep defaults, got %q", c.paths.Login)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "2024-01-02T03:04:05Z", want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2024-01-02T03:04:05+02:00", want: time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC)},
		{in: "2024-01-02T03:04:05", want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2024-01-02 03:04:05.5", want: time.Date(2024, 1, 2, 3, 4, 5, 500000000, time.UTC)},
		{in: "yesterday", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseTimestamp(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil || !got.Equal(tc.want) {
			t.Fatalf("%q: got %v err=%v", tc.in, got, err)
		}
	}
}
