package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. AFZ_ENABLEANTIFREEZE=false.
const EnvPrefix = "AFZ"

// Store owns the process-wide configuration instance.
// It loads lazily on first Get and keeps retrying until a load succeeds.
// Not safe for concurrent use: all calls happen on the frame loop.
type Store struct {
	path    string
	ceiling CeilingFunc

	cfg    *Config
	loaded bool
	resets int
}

// NewStore creates a store for the document at path. ceiling may be nil,
// in which case corpses inherit a zero-second ceiling.
func NewStore(path string, ceiling CeilingFunc) *Store {
	return &Store{
		path:    path,
		ceiling: ceiling,
	}
}

// PathIn returns the document path inside a profile directory.
func PathIn(profileDir string) string {
	return filepath.Join(profileDir, FileName)
}

// Get returns the shared configuration, loading it if no load has succeeded yet.
func (s *Store) Get() *Config {
	if s.cfg == nil {
		s.cfg = Default()
	}

	if !s.loaded {
		s.load()
	}

	return s.cfg
}

// Reset drops the instance; the next Get reloads and re-validates the document.
func (s *Store) Reset() {
	s.cfg = nil
	s.loaded = false
	s.resets++
	slog.Info("antifreeze configuration reset", "path", s.path)
}

// Loaded reports whether the last load attempt succeeded.
func (s *Store) Loaded() bool {
	return s.loaded
}

// Resets returns how many times the store has been reset.
func (s *Store) Resets() int {
	return s.resets
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// load reads the document, normalizes it and writes it back if new or upgraded.
// Environment overrides apply to the in-memory copy only and never reach the file.
func (s *Store) load() {
	ceiling := s.ceilingValue()

	cfg, err := readDocument(s.path)
	switch {
	case err == nil:
		cfg.Normalize(ceiling)
		s.cfg = s.withEnv(cfg, ceiling)
		s.setLoaded()

		if cfg.Version == Version {
			return
		}

		// Structure changed: keep loaded values, bump the marker and rewrite.
		from := cfg.Version
		cfg.Version = Version
		s.cfg.Version = Version
		if err := writeDocument(s.path, cfg); err != nil {
			slog.Error("rewrite antifreeze config failed", "path", s.path, "error", err)
			return
		}
		slog.Info("upgraded antifreeze config file", "path", s.path, "from", from, "to", Version)

	case errors.Is(err, os.ErrNotExist):
		cfg := Default()
		cfg.CleanupBodiesTTL = ceiling
		cfg.Normalize(ceiling)
		s.cfg = s.withEnv(cfg, ceiling)

		if err := writeDocument(s.path, cfg); err != nil {
			slog.Error("save antifreeze config failed", "path", s.path, "error", err)
			return
		}
		slog.Info("saved new antifreeze config file", "path", s.path)
		s.setLoaded()

	default:
		slog.Error("load antifreeze config failed", "path", s.path, "error", err)
		s.cfg.Normalize(ceiling)
	}
}

// withEnv returns a normalized copy of cfg with environment overrides applied.
// A bad override is logged and the file values are kept.
func (s *Store) withEnv(cfg *Config, ceiling int) *Config {
	out := cfg.Clone()
	if err := applyEnv(out); err != nil {
		slog.Warn("ignoring antifreeze environment overrides", "prefix", EnvPrefix, "error", err)
		out = cfg.Clone()
	}
	out.Normalize(ceiling)
	return out
}

func (s *Store) setLoaded() {
	s.loaded = true
	slog.Info("antifreeze config loaded", "path", s.path, "version", s.cfg.Version)
}

func (s *Store) ceilingValue() int {
	if s.ceiling == nil {
		return 0
	}
	return s.ceiling()
}

// readDocument decodes the document over a copy of the defaults, so keys
// missing from the file keep their shipped values.
func readDocument(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays AFZ_* variables onto cfg. The current values seed viper
// so that every key is known to the environment lookup.
func applyEnv(cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("seed config: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode environment: %w", err)
	}
	return nil
}

// writeDocument replaces the document atomically.
func writeDocument(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config file: %w", err)
	}

	return nil
}
