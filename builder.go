package goOTP

import (
	"errors"
	"io"
	"log/slog"

	"github.com/MrEthical07/goOTP/internal"
	"github.com/MrEthical07/goOTP/internal/flows"
	"github.com/MrEthical07/goOTP/internal/janitor"
	"github.com/MrEthical07/goOTP/internal/keylock"
	"github.com/MrEthical07/goOTP/internal/limiters"
	"github.com/MrEthical07/goOTP/internal/stores"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	clock     Clock
	random    io.Reader
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New returns a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores entries and attempt records in Redis instead of process
// memory. The engine never closes the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	if client != nil {
		b.config.Store.Backend = StoreRedis
	}
	return b
}

// WithClock replaces the wall clock. Tests use it to simulate elapsed time.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithRandom replaces crypto/rand as the code source.
func (b *Builder) WithRandom(r io.Reader) *Builder {
	b.random = r
	return b
}

// WithLogger sets the structured logger. Without one the engine logs nothing.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination and enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithJanitor toggles the background sweeper.
func (b *Builder) WithJanitor(enabled bool) *Builder {
	b.config.Janitor.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores and starts the
// janitor when enabled.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store.Backend == StoreRedis && b.redis == nil {
		return nil, errors.New("redis store backend requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}

	// -------- STORES --------
	lockout := limiters.LockoutConfig{
		Threshold: cfg.Policy.MaxFailedAttempts,
		Window:    cfg.Policy.LockoutWindow,
	}

	var (
		entries  stores.EntryStore
		attempts limiters.AttemptTracker
	)
	switch cfg.Store.Backend {
	case StoreRedis:
		entries = stores.NewRedisEntryStore(b.redis, cfg.Store.RedisPrefix)
		attempts = limiters.NewRedisLockoutTracker(b.redis, cfg.Store.RedisPrefix, lockout)
	default:
		entries = stores.NewMemoryEntryStore()
		attempts = limiters.NewLockoutTracker(lockout)
	}

	engine := &Engine{
		config:   cfg,
		clock:    clock,
		random:   b.random,
		logger:   logger,
		locks:    keylock.New(cfg.Store.LockStripes),
		entries:  entries,
		attempts: attempts,
		metrics:  NewMetrics(cfg.Metrics),
	}

	// -------- FLOWS --------
	state := flows.StateDeps{
		Now:      clock.Now,
		Lock:     engine.locks.Lock,
		Entries:  entries,
		Attempts: attempts,
	}
	engine.flows = flows.New(flows.Deps{
		Issue: flows.IssueDeps{
			StateDeps: state,
			Spec: func(category uint8) (flows.CodeSpec, bool) {
				return cfg.Policy.codeSpec(Category(category))
			},
			Generate: func(digits int) (string, error) {
				return internal.NewCode(engine.random, digits)
			},
			Hash: internal.HashCode,
			Errors: flows.IssueErrors{
				EngineNotReady:  ErrEngineNotReady,
				InvalidIdentity: ErrInvalidIdentity,
				InvalidCategory: ErrInvalidCategory,
				LockedOut:       ErrLockedOut,
				Unavailable:     ErrBackendUnavailable,
				Generation:      ErrCodeGeneration,
			},
		},
		Verify: flows.VerifyDeps{
			StateDeps:             state,
			Hash:                  internal.HashCode,
			CountCategoryMismatch: cfg.Policy.CountCategoryMismatch,
		},
		Invalidate: flows.InvalidateDeps{
			StateDeps: state,
			Errors: flows.InvalidateErrors{
				EngineNotReady:  ErrEngineNotReady,
				InvalidIdentity: ErrInvalidIdentity,
				Unavailable:     ErrBackendUnavailable,
			},
		},
	})

	// -------- JANITOR --------
	if cfg.Janitor.Enabled {
		j, err := janitor.New(logger.With("component", "otp-janitor"),
			janitor.Task{
				Name:     sweepTaskEntries,
				Interval: cfg.Janitor.EntrySweepInterval,
				Run:      engine.sweepEntries,
				Observe:  engine.observeJanitorSweep,
			},
			janitor.Task{
				Name:     sweepTaskAttempts,
				Interval: cfg.Janitor.AttemptSweepInterval,
				Run:      engine.sweepAttempts,
				Observe:  engine.observeJanitorSweep,
			},
		)
		if err != nil {
			return nil, err
		}
		engine.janitor = j
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.janitor.Start()

	logger.Info("otp engine started",
		"backend", string(cfg.Store.Backend),
		"janitor", cfg.Janitor.Enabled,
		"max_failed_attempts", cfg.Policy.MaxFailedAttempts,
		"lockout_window", cfg.Policy.LockoutWindow,
	)
	if ws := cfg.Lint(); len(ws) > 0 {
		logger.Debug("otp config lint", "codes", ws.Codes())
	}

	b.built = true

	return engine, nil
}
