package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kdktj/authclient"
	"github.com/kdktj/authclient/httpclient"
	"github.com/kdktj/authclient/jwt"
	"github.com/kdktj/authclient/session"
)

type app struct {
	manager *authclient.Manager
	store   *session.Store
	out     io.Writer
	release func()
}

func newApp(ctx context.Context, cfg EnvConfig, logger *slog.Logger, out io.Writer) (*app, error) {
	backend, release, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	acfg := authclient.DefaultConfig()
	acfg.Token.RejectExpiredOnStartup = cfg.RejectExpired
	acfg.Register.LoginAfterRegister = true

	store := session.NewStore(backend, session.Options{
		KeyPrefix: acfg.Store.KeyPrefix,
		TokenKey:  acfg.Store.TokenKey,
		UserKey:   acfg.Store.UserKey,
		Logger:    logger,
	})

	client, err := httpclient.New(httpclient.Options{
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Tokens:     store,
		UserAgent:  "authctl",
		Logger:     logger,
	})
	if err != nil {
		release()
		return nil, err
	}

	m, err := authclient.New().
		WithConfig(acfg).
		WithClient(client).
		WithStore(store).
		WithLogger(logger).
		Build()
	if err != nil {
		release()
		return nil, err
	}
	return &app{manager: m, store: store, out: out, release: release}, nil
}

func (a *app) close() {
	a.manager.Close()
	a.release()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) printUser(u *authclient.User) {
	a.printf("id=%d email=%s username=%s name=%q role=%s\n", u.ID, u.Email, u.Username, u.FullName, u.Role)
}

func (a *app) printExpiry(token string, now time.Time) {
	exp, ok := jwt.ExpiresAt(token)
	if !ok {
		a.printf("expiry unknown (token carries no exp claim)\n")
		return
	}
	left := exp.Sub(now).Round(time.Second)
	if left <= 0 {
		a.printf("expired at %s\n", exp.UTC().Format(time.RFC3339))
		return
	}
	a.printf("expires at %s (in %s)\n", exp.UTC().Format(time.RFC3339), left)
}

func errorText(err error) string {
	return authclient.Message(err)
}
