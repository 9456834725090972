// Command authctl drives an authclient session from the shell.
//
//	authctl [flags] login -email a@b.c -password secret
//	authctl whoami
//	authctl logout
//
// The session is persisted in the configured store, so consecutive
// invocations share it. See LoadEnvConfig for the AUTHCTL_* variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: authctl [flags] <command> [args]

commands:
  login     -email E -password P
  register  -email E -username U -name N -password P
  logout    end the session here and on the server
  whoami    verify the stored session and print the user
  status    print the stored session without contacting the server
  refresh   exchange the stored token for a new one
  token     print the stored token's expiry hints

flags:
`

// exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// errUsage marks errors that should print usage and exit 2.
var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := LoadEnvConfig()

	fs := flag.NewFlagSet("authctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "backend base URL")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "session store: file, redis, postgres or memory")
	fs.StringVar(&cfg.FilePath, "file", cfg.FilePath, "session file for the file store")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "authctl: unknown command %q\n", name)
		fs.Usage()
		return exitUsage
	}

	logger := NewLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	a, err := newApp(ctx, cfg, logger, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "authctl: %v\n", err)
		return exitError
	}
	defer a.close()

	if err := cmd(ctx, a, rest); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "authctl %s: %v\n", name, err)
			return exitUsage
		}
		fmt.Fprintln(stderr, errorText(err))
		return exitError
	}
	return exitOK
}
