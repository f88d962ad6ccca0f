// Package config loads optional per-peer overrides from a TOML file.
// Every field defaults sensibly; the file, if present, only overrides the
// fields it actually defines.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the tunables a peer may override. All are optional.
type Config struct {
	// RegistryPath overrides the default ~/.neverliie/registry.json.
	RegistryPath string

	// SocketDir overrides the default runtime-dir-derived socket directory.
	SocketDir string

	// PingTimeout bounds a liveness probe against another peer.
	PingTimeout time.Duration

	// WakePollInterval is how often CallOrWake re-probes a woken peer
	// while waiting for its listener to come up.
	WakePollInterval time.Duration

	// WakeTimeout bounds the whole wait for a woken peer to come up.
	WakeTimeout time.Duration
}

// Default returns the configuration a peer uses when no file overrides it.
func Default() Config {
	return Config{
		PingTimeout:      2 * time.Second,
		WakePollInterval: 100 * time.Millisecond,
		WakeTimeout:      5 * time.Second,
	}
}

type fileConfig struct {
	RegistryPath       string `toml:"registry_path"`
	SocketDir          string `toml:"socket_dir"`
	PingTimeout        string `toml:"ping_timeout"`
	WakePollIntervalMS int64  `toml:"wake_poll_interval_ms"`
	WakeTimeout        string `toml:"wake_timeout"`
}

// Load reads path, if it exists, layering only the fields it defines on top
// of Default(). A missing file is not an error; it simply yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	if meta.IsDefined("registry_path") {
		cfg.RegistryPath = strings.TrimSpace(raw.RegistryPath)
	}
	if meta.IsDefined("socket_dir") {
		cfg.SocketDir = strings.TrimSpace(raw.SocketDir)
	}
	if meta.IsDefined("ping_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PingTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("config: parse ping_timeout: %w", err)
		}
		cfg.PingTimeout = d
	}
	if meta.IsDefined("wake_poll_interval_ms") {
		cfg.WakePollInterval = time.Duration(raw.WakePollIntervalMS) * time.Millisecond
	}
	if meta.IsDefined("wake_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WakeTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("config: parse wake_timeout: %w", err)
		}
		cfg.WakeTimeout = d
	}

	return cfg, nil
}
