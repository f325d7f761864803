package goOTP

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig overlays a YAML document onto [DefaultConfig] and validates the
// result. Unknown keys are rejected. Durations use Go syntax ("5m", "90s").
func LoadConfig(r io.Reader) (Config, error) {
	cfg := defaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode otp config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate otp config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration from path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open otp config: %w", err)
	}
	defer f.Close()

	return LoadConfig(f)
}
