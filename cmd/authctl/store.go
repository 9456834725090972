package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kdktj/authclient/session"
)

// openBackend returns the configured session backend and a func releasing
// its connections. An unreachable server is not an error here; Build probes
// the store and falls back to memory.
func openBackend(ctx context.Context, cfg EnvConfig, logger *slog.Logger) (session.Backend, func(), error) {
	switch cfg.Store {
	case "file":
		return session.NewFileBackend(cfg.FilePath), func() {}, nil
	case "memory":
		return session.NewMemoryBackend(), func() {}, nil
	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{cfg.RedisAddr},
		})
		return session.NewRedisBackend(client, cfg.Namespace, cfg.RedisTTL), func() { _ = client.Close() }, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("AUTHCTL_DATABASE_URL is required for the postgres store")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres pool: %w", err)
		}
		backend, err := session.NewPostgresBackend(pool, cfg.Namespace, session.WithPostgresSchema(cfg.PostgresSchema))
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := backend.EnsureSchema(ctx); err != nil {
			logger.Warn("authctl: could not prepare postgres schema", "error", err)
		}
		return backend, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want file, redis, postgres or memory)", cfg.Store)
	}
}
