package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kdktj/authclient"
	"github.com/kdktj/authclient/apierr"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// TokenSource supplies the bearer for authenticated calls. *session.Store
// satisfies it; wrap Manager.AccessToken in a TokenSourceFunc to read the
// in-memory token instead.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) GetToken(ctx context.Context) (string, error) { return f(ctx) }

// Paths are the endpoint paths relative to the base URL.
type Paths struct {
	Login    string
	Register string
	Me       string
	Logout   string
	Refresh  string
}

// DefaultPaths returns the task tracker's auth routes.
func DefaultPaths() Paths {
	return Paths{
		Login:    "/api/auth/login",
		Register: "/api/auth/register",
		Me:       "/api/auth/me",
		Logout:   "/api/auth/logout",
		Refresh:  "/api/auth/refresh",
	}
}

// Options configures a Client. BaseURL and Tokens are required.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Paths      Paths
	UserAgent  string
	Logger     *slog.Logger
}

// Client is the REST implementation of authclient.SessionClient.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	paths  Paths
	agent  string
	logger *slog.Logger
}

var _ authclient.SessionClient = (*Client)(nil)

// New validates opts and returns a Client. Empty paths take their
// DefaultPaths value.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("httpclient: base url required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpclient: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("httpclient: unsupported scheme %q", base.Scheme)
	}
	if opts.Tokens == nil {
		return nil, errors.New("httpclient: token source required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:   base,
		http:   hc,
		tokens: opts.Tokens,
		paths:  withDefaults(opts.Paths),
		agent:  opts.UserAgent,
		logger: logger,
	}, nil
}

func withDefaults(p Paths) Paths {
	d := DefaultPaths()
	if p.Login == "" {
		p.Login = d.Login
	}
	if p.Register == "" {
		p.Register = d.Register
	}
	if p.Me == "" {
		p.Me = d.Me
	}
	if p.Logout == "" {
		p.Logout = d.Logout
	}
	if p.Refresh == "" {
		p.Refresh = d.Refresh
	}
	return p
}

// Login posts the credentials as JSON.
func (c *Client) Login(ctx context.Context, creds authclient.Credentials) (authclient.LoginResponse, error) {
	var out tokenResponse
	err := c.do(ctx, "login", http.MethodPost, c.paths.Login, false, loginRequest{
		Email:    creds.Email,
		Password: creds.Password,
	}, &out)
	if err != nil {
		return authclient.LoginResponse{}, err
	}
	return out.loginResponse()
}

// Register posts the profile. The reply may be a token response or the bare
// created user.
func (c *Client) Register(ctx context.Context, profile authclient.Profile) (authclient.LoginResponse, error) {
	var out tokenResponse
	err := c.do(ctx, "register", http.MethodPost, c.paths.Register, false, registerRequest{
		Email:    profile.Email,
		Username: profile.Username,
		FullName: profile.FullName,
		Password: profile.Password,
	}, &out)
	if err != nil {
		return authclient.LoginResponse{}, err
	}
	return out.loginResponse()
}

// CurrentUser fetches the user the bearer belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*authclient.User, error) {
	var out wireUser
	if err := c.do(ctx, "me", http.MethodGet, c.paths.Me, true, nil, &out); err != nil {
		return nil, err
	}
	return out.user()
}

// Logout asks the backend to end the session. The reply body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, c.paths.Logout, true, nil, nil)
}

// Refresh trades the current bearer for a new one.
func (c *Client) Refresh(ctx context.Context) (authclient.RefreshResponse, error) {
	var out tokenResponse
	if err := c.do(ctx, "refresh", http.MethodPost, c.paths.Refresh, true, nil, &out); err != nil {
		return authclient.RefreshResponse{}, err
	}
	return authclient.RefreshResponse{Token: strings.TrimSpace(out.AccessToken)}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, path string, authed bool, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.agent != "" {
		req.Header.Set("User-Agent", c.agent)
	}
	if authed {
		token, err := c.tokens.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("%s: read token: %w", op, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apierr.WrapTransport(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apierr.WrapTransport(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("authclient: backend rejected request", "op", op, "status", resp.StatusCode)
		return apierr.NewResponseError(op, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
