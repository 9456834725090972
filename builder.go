package authclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kdktj/authclient/apierr"
	internalaudit "github.com/kdktj/authclient/internal/audit"
	internalmetrics "github.com/kdktj/authclient/internal/metrics"
	"github.com/kdktj/authclient/jwt"
	"github.com/kdktj/authclient/permission"
	"github.com/kdktj/authclient/session"
)

const storeProbeTimeout = 3 * time.Second

// Builder assembles a Manager. Each Builder builds once.
type Builder struct {
	config  Config
	client  SessionClient
	store   *session.Store
	backend session.Backend
	logger  *slog.Logger
	sink    AuditSink
	now     func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the config. cfg is copied, so later changes to it do
// not reach the Builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithClient sets the backend the Manager talks to. Required.
func (b *Builder) WithClient(client SessionClient) *Builder {
	b.client = client
	return b
}

// WithStore sets a ready Store. Its key layout wins over Config.Store.
// Pass the same Store to an httpclient so both see the same token.
func (b *Builder) WithStore(store *session.Store) *Builder {
	b.store = store
	return b
}

// WithBackend sets the medium for a Store built from Config.Store. Ignored
// when WithStore is used.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go. The sink only receives events
// when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records verify and login latency. It has no effect
// without metrics.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock replaces time.Now for expiry checks and timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the config and probes the store. A store that does not
// answer is swapped for an in-memory backend and a warning is logged; the
// Manager then works for the life of the process only.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.client == nil {
		return nil, ErrClientRequired
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	policy, err := permission.NewPolicy(cfg.Roles.AdminRole, cfg.Roles.Grants)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	store := b.store
	if store == nil {
		backend := b.backend
		if backend == nil {
			backend = session.NewMemoryBackend()
		}
		store = session.NewStore(backend, session.Options{
			KeyPrefix: cfg.Store.KeyPrefix,
			TokenKey:  cfg.Store.TokenKey,
			UserKey:   cfg.Store.UserKey,
			Logger:    logger,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeProbeTimeout)
	available := store.IsAvailable(ctx)
	cancel()

	memoryOnly := false
	if !available {
		logger.Warn("authclient: session store unavailable, continuing in memory-only mode")
		store.ReplaceBackend(session.NewMemoryBackend())
		memoryOnly = true
	}

	m := &Manager{
		config:     cfg,
		client:     b.client,
		store:      store,
		memoryOnly: memoryOnly,
		codec:      jwt.Codec{Now: now},
		policy:     policy,
		normalizer: apierr.Normalizer{Unreachable: cfg.Messages.Unreachable},
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.sink),
		metrics: internalmetrics.New(internalmetrics.Config{
			Enabled:                 cfg.Metrics.Enabled,
			EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		}),
		logger:     logger,
		instanceID: uuid.NewString(),
		now:        now,
	}
	m.st.status = StatusIdle
	m.st.updatedAt = now()

	b.built = true
	return m, nil
}
