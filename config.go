package authclient

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kdktj/authclient/apierr"
	"github.com/kdktj/authclient/jwt"
	"github.com/kdktj/authclient/permission"
)

const maxExpirySkew = 10 * time.Minute

// Config controls the session manager. Start from DefaultConfig.
type Config struct {
	Token    TokenConfig
	Store    StoreConfig
	Roles    RolesConfig
	Register RegisterConfig
	Messages MessagesConfig
	Verify   VerifyConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines how token expiry hints are read.
type TokenConfig struct {
	// ExpirySkew is the margin before nominal expiry at which a token already
	// counts as expired.
	ExpirySkew time.Duration
	// RejectExpiredOnStartup clears a persisted token the codec reports
	// expired without asking the backend. Leave it off for opaque tokens.
	RejectExpiredOnStartup bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines persisted key names.
type StoreConfig struct {
	KeyPrefix string
	TokenKey  string
	UserKey   string
}

/*
====================================
ROLES CONFIG
====================================
*/

// RolesConfig drives HasPermission.
type RolesConfig struct {
	AdminRole string
	// Grants adds permissions to every holder of a role.
	Grants map[string][]string
}

/*
====================================
REGISTER CONFIG
====================================
*/

// RegisterConfig defines registration behavior.
type RegisterConfig struct {
	// LoginAfterRegister signs in with the registration credentials when the
	// register reply carries no token.
	LoginAfterRegister bool
}

/*
====================================
MESSAGES CONFIG
====================================
*/

// MessagesConfig holds the user-facing texts used when nothing more
// specific is available.
type MessagesConfig struct {
	Unreachable    string
	LoginFailed    string
	RegisterFailed string
	RefreshFailed  string
	ProfileFailed  string
}

/*
====================================
VERIFY CONFIG
====================================
*/

// VerifyConfig bounds startup verification.
type VerifyConfig struct {
	// Timeout applies to the StartupCheck user fetch. Zero means the
	// caller's context and the transport decide.
	Timeout time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls async audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration New starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			ExpirySkew: jwt.DefaultSkew,
		},
		Store: StoreConfig{
			TokenKey: "token",
			UserKey:  "user",
		},
		Roles: RolesConfig{
			AdminRole: permission.DefaultAdminRole,
		},
		Messages: MessagesConfig{
			Unreachable:    apierr.DefaultUnreachableMessage,
			LoginFailed:    "Login failed.",
			RegisterFailed: "Registration failed.",
			RefreshFailed:  "Your session could not be renewed. Please sign in again.",
			ProfileFailed:  "Could not load your profile.",
		},
		Verify: VerifyConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Roles.Grants != nil {
		out.Roles.Grants = make(map[string][]string, len(cfg.Roles.Grants))
		for role, perms := range cfg.Roles.Grants {
			out.Roles.Grants[role] = slices.Clone(perms)
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field. Every error wraps
// ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// Token
	if c.Token.ExpirySkew < 0 {
		return errors.New("Token ExpirySkew must be >= 0")
	}
	if c.Token.ExpirySkew > maxExpirySkew {
		return errors.New("Token ExpirySkew must be <= 10m")
	}

	// Store
	tokenKey := strings.TrimSpace(c.Store.TokenKey)
	userKey := strings.TrimSpace(c.Store.UserKey)
	if tokenKey == "" || userKey == "" {
		return errors.New("Store TokenKey and UserKey must be non-empty")
	}
	if tokenKey == userKey {
		return errors.New("Store TokenKey and UserKey must differ")
	}

	// Roles
	if strings.TrimSpace(c.Roles.AdminRole) == "" {
		return errors.New("Roles AdminRole must be non-empty")
	}

	// Messages
	if strings.TrimSpace(c.Messages.Unreachable) == "" {
		return errors.New("Messages Unreachable must be non-empty")
	}

	// Verify
	if c.Verify.Timeout < 0 {
		return errors.New("Verify Timeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Enabled is true")
	}
	return nil
}
