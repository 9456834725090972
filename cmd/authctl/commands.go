package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/kdktj/authclient"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":    cmdLogin,
	"register": cmdRegister,
	"logout":   cmdLogout,
	"whoami":   cmdWhoami,
	"status":   cmdStatus,
	"refresh":  cmdRefresh,
	"token":    cmdToken,
}

const source = "authctl"

func subFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := subFlags("login")
	email := fs.String("email", EnvString("AUTHCTL_EMAIL", ""), "account email")
	password := fs.String("password", EnvString("AUTHCTL_PASSWORD", ""), "account password")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("%w: -email and -password are required", errUsage)
	}

	res, err := a.manager.Login(authclient.WithRequestSource(ctx, source), authclient.Credentials{
		Email:    *email,
		Password: *password,
	})
	if err != nil {
		return err
	}
	a.reportAuth(res)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := subFlags("register")
	email := fs.String("email", "", "account email")
	username := fs.String("username", "", "user name")
	name := fs.String("name", "", "full name")
	password := fs.String("password", EnvString("AUTHCTL_PASSWORD", ""), "account password")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("%w: -email and -password are required", errUsage)
	}

	res, err := a.manager.Register(authclient.WithRequestSource(ctx, source), authclient.Profile{
		Email:    *email,
		Username: *username,
		FullName: *name,
		Password: *password,
	})
	if err != nil {
		return err
	}
	a.reportAuth(res)
	return nil
}

func (a *app) reportAuth(res authclient.AuthResult) {
	if res.UserPending {
		a.printf("signed in; user details unavailable, run whoami to retry\n")
		return
	}
	a.printf("signed in\n")
	a.printUser(res.User)
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	ctx = authclient.WithRequestSource(ctx, source)
	if err := a.manager.StartupCheck(ctx); err != nil {
		return err
	}
	if err := a.manager.Logout(ctx); err != nil {
		return err
	}
	a.printf("signed out\n")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	if err := a.manager.StartupCheck(authclient.WithRequestSource(ctx, source)); err != nil {
		return err
	}
	u := a.manager.Snapshot().Identity()
	if u == nil {
		return authclient.ErrNotAuthenticated
	}
	a.printUser(u)
	return nil
}

func cmdStatus(ctx context.Context, a *app, _ []string) error {
	if a.manager.MemoryOnly() {
		a.printf("store unavailable; nothing persisted\n")
		return nil
	}
	res, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	if res.Token == "" {
		a.printf("signed out\n")
		return nil
	}
	if res.UserPending {
		a.printf("stored token without user details (not verified)\n")
	} else {
		a.printf("stored session (not verified)\n")
		a.printUser(res.User)
	}
	a.printExpiry(res.Token, time.Now())
	return nil
}

func cmdRefresh(ctx context.Context, a *app, _ []string) error {
	ctx = authclient.WithRequestSource(ctx, source)
	if err := a.manager.StartupCheck(ctx); err != nil {
		return err
	}
	if err := a.manager.Refresh(ctx); err != nil {
		return err
	}
	a.printf("token refreshed\n")
	a.printExpiry(a.manager.Token(), time.Now())
	return nil
}

func cmdToken(ctx context.Context, a *app, _ []string) error {
	token, err := a.store.GetToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return authclient.ErrNotAuthenticated
	}
	a.printExpiry(token, time.Now())
	return nil
}
