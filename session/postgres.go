package session

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidBackendConfig is returned for unusable backend construction
// parameters.
var ErrInvalidBackendConfig = errors.New("invalid session backend configuration")

// PostgresBackend keeps entries in a key/value table, scoped by namespace so
// several clients (kiosks, desktop profiles) can share one database.
type PostgresBackend struct {
	pool      *pgxpool.Pool
	schema    string
	table     string
	namespace string
}

// PostgresOption configures PostgresBackend.
type PostgresOption func(*PostgresBackend) error

// WithPostgresSchema sets the schema holding the table (default "public").
func WithPostgresSchema(schema string) PostgresOption {
	return func(p *PostgresBackend) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrInvalidBackendConfig
		}
		p.schema = schema
		return nil
	}
}

// WithPostgresTable sets the table name (default "authclient_kv").
func WithPostgresTable(table string) PostgresOption {
	return func(p *PostgresBackend) error {
		table = strings.TrimSpace(table)
		if table == "" {
			return ErrInvalidBackendConfig
		}
		p.table = table
		return nil
	}
}

// NewPostgresBackend constructs a backend for namespace on pool.
func NewPostgresBackend(pool *pgxpool.Pool, namespace string, opts ...PostgresOption) (*PostgresBackend, error) {
	p := &PostgresBackend{
		pool:      pool,
		schema:    "public",
		table:     "authclient_kv",
		namespace: strings.TrimSpace(namespace),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.pool == nil || p.namespace == "" {
		return nil, ErrInvalidBackendConfig
	}
	return p, nil
}

func (p *PostgresBackend) ident() string {
	return pgx.Identifier{p.schema, p.table}.Sanitize()
}

// EnsureSchema creates the backing table when it does not exist.
func (p *PostgresBackend) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+p.ident()+` (
		namespace  text        NOT NULL,
		key        text        NOT NULL,
		value      text        NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (namespace, key)
	)`)
	return err
}

func (p *PostgresBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM `+p.ident()+` WHERE namespace = $1 AND key = $2`,
		p.namespace, key,
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (p *PostgresBackend) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, p.upsertSQL(), p.namespace, key, value)
	return err
}

// SetPair writes token then user inside one transaction.
func (p *PostgresBackend) SetPair(ctx context.Context, tokenKey, token, userKey, user string) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, p.upsertSQL(), p.namespace, tokenKey, token); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, p.upsertSQL(), p.namespace, userKey, user)
		return err
	})
}

func (p *PostgresBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := p.pool.Exec(ctx,
		`DELETE FROM `+p.ident()+` WHERE namespace = $1 AND key = ANY($2)`,
		p.namespace, keys,
	)
	return err
}

func (p *PostgresBackend) Ping(ctx context.Context) error {
	if p.pool == nil {
		return ErrInvalidBackendConfig
	}
	return p.pool.Ping(ctx)
}

func (p *PostgresBackend) upsertSQL() string {
	return `INSERT INTO ` + p.ident() + ` (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
}
