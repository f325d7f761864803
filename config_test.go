package goOTP

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigMatchesReferencePolicy(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	p := cfg.Policy
	if p.CodeLength(CategoryStandard) != 6 || p.CodeLength(CategoryAdminOperation) != 8 {
		t.Fatalf("unexpected code lengths: %d/%d", p.CodeLength(CategoryStandard), p.CodeLength(CategoryAdminOperation))
	}
	if p.TTL(CategoryFarmingOperation) != 5*time.Minute || p.TTL(CategorySensitiveOperation) != 10*time.Minute {
		t.Fatalf("unexpected ttls: %s/%s", p.TTL(CategoryFarmingOperation), p.TTL(CategorySensitiveOperation))
	}
	if p.MaxFailedAttempts != 3 || p.LockoutWindow != 15*time.Minute || p.CountCategoryMismatch {
		t.Fatalf("unexpected lockout policy: %+v", p)
	}
	if cfg.Janitor.EntrySweepInterval != 2*time.Minute || cfg.Janitor.AttemptSweepInterval != 5*time.Minute {
		t.Fatalf("unexpected janitor intervals: %+v", cfg.Janitor)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "standard digits too short",
			mutate: func(c *Config) {
				c.Policy.StandardDigits = 3
			},
			wantValid: false,
		},
		{
			name: "elevated digits too long",
			mutate: func(c *Config) {
				c.Policy.ElevatedDigits = 11
			},
			wantValid: false,
		},
		{
			name: "elevated shorter than standard",
			mutate: func(c *Config) {
				c.Policy.StandardDigits = 8
				c.Policy.ElevatedDigits = 6
			},
			wantValid: false,
		},
		{
			name: "zero ttl",
			mutate: func(c *Config) {
				c.Policy.StandardTTL = 0
			},
			wantValid: false,
		},
		{
			name: "zero extended ttl",
			mutate: func(c *Config) {
				c.Policy.ExtendedTTL = 0
			},
			wantValid: false,
		},
		{
			name: "zero threshold",
			mutate: func(c *Config) {
				c.Policy.MaxFailedAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "negative window",
			mutate: func(c *Config) {
				c.Policy.LockoutWindow = -time.Minute
			},
			wantValid: false,
		},
		{
			name: "janitor interval zero",
			mutate: func(c *Config) {
				c.Janitor.EntrySweepInterval = 0
			},
			wantValid: false,
		},
		{
			name: "janitor disabled ignores intervals",
			mutate: func(c *Config) {
				c.Janitor.Enabled = false
				c.Janitor.AttemptSweepInterval = 0
			},
			wantValid: true,
		},
		{
			name: "unknown backend",
			mutate: func(c *Config) {
				c.Store.Backend = "etcd"
			},
			wantValid: false,
		},
		{
			name: "redis blank prefix",
			mutate: func(c *Config) {
				c.Store.Backend = StoreRedis
				c.Store.RedisPrefix = "  "
			},
			wantValid: false,
		},
		{
			name: "zero stripes",
			mutate: func(c *Config) {
				c.Store.LockStripes = 0
			},
			wantValid: false,
		},
		{
			name: "audit zero buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "latency without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MaxFailedAttempts = -1
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected Build to reject invalid config")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithJanitor(false)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	doc := `
policy:
  elevated_digits: 10
  extended_ttl: 20m
  count_category_mismatch: true
janitor:
  entry_sweep_interval: 30s
store:
  backend: redis
  redis_prefix: agri-otp
metrics:
  enabled: true
`
	cfg, err := LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Policy.ElevatedDigits != 10 || cfg.Policy.ExtendedTTL != 20*time.Minute || !cfg.Policy.CountCategoryMismatch {
		t.Fatalf("policy overlay not applied: %+v", cfg.Policy)
	}
	if cfg.Policy.StandardDigits != 6 || cfg.Policy.StandardTTL != 5*time.Minute {
		t.Fatalf("defaults lost: %+v", cfg.Policy)
	}
	if cfg.Janitor.EntrySweepInterval != 30*time.Second || cfg.Janitor.AttemptSweepInterval != 5*time.Minute || !cfg.Janitor.Enabled {
		t.Fatalf("janitor overlay wrong: %+v", cfg.Janitor)
	}
	if cfg.Store.Backend != StoreRedis || cfg.Store.RedisPrefix != "agri-otp" {
		t.Fatalf("store overlay wrong: %+v", cfg.Store)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("metrics overlay not applied")
	}
}

func TestLoadConfigEmptyDocumentUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigRejectsUnknownAndInvalid(t *testing.T) {
	if _, err := LoadConfig(strings.NewReader("policy:\n  max_attempts: 5\n")); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
	if _, err := LoadConfig(strings.NewReader("policy:\n  standard_ttl: soon\n")); err == nil {
		t.Fatal("expected malformed duration to be rejected")
	}
	if _, err := LoadConfig(strings.NewReader("policy:\n  max_failed_attempts: 0\n")); err == nil {
		t.Fatal("expected invalid policy to be rejected")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otp.yaml")
	if err := os.WriteFile(path, []byte("policy:\n  lockout_window: 30m\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.Policy.LockoutWindow != 30*time.Minute {
		t.Fatalf("expected 30m window, got %s", cfg.Policy.LockoutWindow)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
}

func containsCode(codes []string, want string) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func TestLintDefaultConfig(t *testing.T) {
	codes := DefaultConfig().Lint().Codes()
	for _, unwanted := range []string{"short_codes", "ttl_long", "lockout_threshold_high", "lockout_shorter_than_ttl", "janitor_disabled"} {
		if containsCode(codes, unwanted) {
			t.Errorf("default config should not produce %q", unwanted)
		}
	}
}

func TestLintWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.StandardDigits = 4
	cfg.Policy.StandardTTL = 30 * time.Minute
	cfg.Policy.MaxFailedAttempts = 20
	cfg.Janitor.Enabled = false

	ws := cfg.Lint()
	for _, want := range []string{"short_codes", "ttl_long", "extended_ttl_shorter", "lockout_threshold_high", "lockout_shorter_than_ttl", "janitor_disabled"} {
		if !containsCode(ws.Codes(), want) {
			t.Errorf("expected %q warning, got %v", want, ws.Codes())
		}
	}
	for _, w := range ws {
		if w.Message == "" {
			t.Errorf("warning %q has no message", w.Code)
		}
	}
}
