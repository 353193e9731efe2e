package vkgc

import (
	"bytes"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slog"
)

// Config tunes the controller. The zero value is not usable, start from DefaultConfig.
type Config struct {
	// MaxSetsPerDescriptorPool caps how many uniform sets share one descriptor pool.
	MaxSetsPerDescriptorPool uint32 `toml:"max_sets_per_descriptor_pool"`
	// ExtraFrames is added to the swapchain image count to size the frame ring.
	ExtraFrames int    `toml:"extra_frames"`
	LogLevel    string `toml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		MaxSetsPerDescriptorPool: 64,
		ExtraFrames:              1,
		LogLevel:                 "info",
	}
}

// LoadConfig reads a TOML file, keys that are not present keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MaxSetsPerDescriptorPool == 0 {
		return errors.New("max_sets_per_descriptor_pool must be at least 1")
	}
	if c.ExtraFrames < 1 {
		return errors.Newf("extra_frames must be at least 1, got %d", c.ExtraFrames)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel to a slog level, unknown names fall back to info.
func (c Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Newf("unknown log level %q", name)
}
