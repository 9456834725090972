package httpclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/kdktj/authclient"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// wireUser is the backend's user representation. created_at is kept as a
// string because the backend emits naive timestamps without a zone.
type wireUser struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	FullName    string   `json:"full_name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	CreatedAt   string   `json:"created_at"`
}

// tokenResponse covers both reply shapes of login and register: a token with
// a nested user, or the bare user object.
type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        *wireUser `json:"user"`
	wireUser
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (w wireUser) user() (*authclient.User, error) {
	created, err := parseTimestamp(w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("decode user %d: %w", w.ID, err)
	}
	return &authclient.User{
		ID:          w.ID,
		Email:       w.Email,
		Username:    w.Username,
		FullName:    w.FullName,
		Role:        w.Role,
		Permissions: w.Permissions,
		CreatedAt:   created,
	}, nil
}

func (r tokenResponse) loginResponse() (authclient.LoginResponse, error) {
	if t := strings.TrimSpace(r.TokenType); t != "" && !strings.EqualFold(t, "bearer") {
		return authclient.LoginResponse{}, fmt.Errorf("unsupported token type %q", t)
	}

	out := authclient.LoginResponse{Token: strings.TrimSpace(r.AccessToken)}
	src := r.User
	if src == nil && r.ID != 0 {
		src = &r.wireUser
	}
	if src != nil {
		// An embedded user that does not decode is dropped; the caller
		// fetches the user separately.
		if u, err := src.user(); err == nil {
			out.User = u
		}
	}
	return out, nil
}
