package goOTP

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goOTP/internal"
	"github.com/MrEthical07/goOTP/internal/keylock"
)

// Config is the full engine configuration. Obtain defaults from
// [DefaultConfig], adjust, and pass to [Builder.WithConfig].
type Config struct {
	Policy  PolicyConfig  `yaml:"policy"`
	Janitor JanitorConfig `yaml:"janitor"`
	Store   StoreConfig   `yaml:"store"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

/*
====================================
POLICY CONFIG
====================================
*/

// PolicyConfig controls code shape and lockout.
type PolicyConfig struct {
	// StandardDigits is the code length for every category except
	// ADMIN_OPERATION.
	StandardDigits int `yaml:"standard_digits"`
	// ElevatedDigits is the code length for ADMIN_OPERATION.
	ElevatedDigits int `yaml:"elevated_digits"`
	// StandardTTL applies to every category except SENSITIVE_OPERATION.
	StandardTTL time.Duration `yaml:"standard_ttl"`
	// ExtendedTTL applies to SENSITIVE_OPERATION.
	ExtendedTTL time.Duration `yaml:"extended_ttl"`

	MaxFailedAttempts int           `yaml:"max_failed_attempts"`
	LockoutWindow     time.Duration `yaml:"lockout_window"`

	// CountCategoryMismatch records a failed attempt when a verification
	// asserts a category different from the stored one. When false the
	// attempt is rejected without counting and the entry is kept.
	CountCategoryMismatch bool `yaml:"count_category_mismatch"`
}

/*
====================================
JANITOR CONFIG
====================================
*/

type JanitorConfig struct {
	Enabled              bool          `yaml:"enabled"`
	EntrySweepInterval   time.Duration `yaml:"entry_sweep_interval"`
	AttemptSweepInterval time.Duration `yaml:"attempt_sweep_interval"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreBackend selects where entries and attempt records live.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreRedis  StoreBackend = "redis"
)

type StoreConfig struct {
	Backend     StoreBackend `yaml:"backend"`
	RedisPrefix string       `yaml:"redis_prefix"`
	// LockStripes is the number of per-identity lock stripes.
	LockStripes int `yaml:"lock_stripes"`
}

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the reference policy: 6-digit codes (8 for admin
// operations), 5 minute TTL (10 for sensitive operations), lockout after 3
// failures within 15 minutes, in-memory storage and a janitor sweeping
// entries every 2 minutes and attempts every 5.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Policy: PolicyConfig{
			StandardDigits:        6,
			ElevatedDigits:        8,
			StandardTTL:           5 * time.Minute,
			ExtendedTTL:           10 * time.Minute,
			MaxFailedAttempts:     3,
			LockoutWindow:         15 * time.Minute,
			CountCategoryMismatch: false,
		},
		Janitor: JanitorConfig{
			Enabled:              true,
			EntrySweepInterval:   2 * time.Minute,
			AttemptSweepInterval: 5 * time.Minute,
		},
		Store: StoreConfig{
			Backend:     StoreMemory,
			RedisPrefix: "otp",
			LockStripes: keylock.DefaultStripes,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	// Policy
	if c.Policy.StandardDigits < internal.MinCodeDigits || c.Policy.StandardDigits > internal.MaxCodeDigits {
		return errors.New("Policy StandardDigits must be between 4 and 10")
	}
	if c.Policy.ElevatedDigits < internal.MinCodeDigits || c.Policy.ElevatedDigits > internal.MaxCodeDigits {
		return errors.New("Policy ElevatedDigits must be between 4 and 10")
	}
	if c.Policy.ElevatedDigits < c.Policy.StandardDigits {
		return errors.New("Policy ElevatedDigits must be >= StandardDigits")
	}
	if c.Policy.StandardTTL <= 0 {
		return errors.New("Policy StandardTTL must be > 0")
	}
	if c.Policy.ExtendedTTL <= 0 {
		return errors.New("Policy ExtendedTTL must be > 0")
	}
	if c.Policy.MaxFailedAttempts <= 0 {
		return errors.New("Policy MaxFailedAttempts must be > 0")
	}
	if c.Policy.LockoutWindow <= 0 {
		return errors.New("Policy LockoutWindow must be > 0")
	}

	// Janitor
	if c.Janitor.Enabled {
		if c.Janitor.EntrySweepInterval <= 0 {
			return errors.New("Janitor EntrySweepInterval must be > 0")
		}
		if c.Janitor.AttemptSweepInterval <= 0 {
			return errors.New("Janitor AttemptSweepInterval must be > 0")
		}
	}

	// Store
	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(c.Store.RedisPrefix) == "" {
			return errors.New("Store RedisPrefix must not be empty for redis backend")
		}
		if strings.ContainsAny(c.Store.RedisPrefix, " \t\r\n") {
			return errors.New("Store RedisPrefix must not contain whitespace")
		}
	default:
		return errors.New("Store Backend must be memory or redis")
	}
	if c.Store.LockStripes <= 0 {
		return errors.New("Store LockStripes must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
