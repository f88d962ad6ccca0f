package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(missing) = %+v, want %+v", cfg, Default())
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(\"\") = %+v, want %+v", cfg, Default())
	}
}

func TestLoadOverridesOnlyDefinedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peer.toml")
	doc := "ping_timeout = \"500ms\"\nwake_poll_interval_ms = 50\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PingTimeout != 500*time.Millisecond {
		t.Errorf("PingTimeout = %v, want 500ms", cfg.PingTimeout)
	}
	if cfg.WakePollInterval != 50*time.Millisecond {
		t.Errorf("WakePollInterval = %v, want 50ms", cfg.WakePollInterval)
	}
	// Fields the file doesn't mention keep their Default() value.
	if cfg.WakeTimeout != Default().WakeTimeout {
		t.Errorf("WakeTimeout = %v, want default %v", cfg.WakeTimeout, Default().WakeTimeout)
	}
	if cfg.RegistryPath != "" {
		t.Errorf("RegistryPath = %q, want empty", cfg.RegistryPath)
	}
}

func TestLoadSocketDirOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peer.toml")
	if err := os.WriteFile(path, []byte("socket_dir = \"/tmp/custom-sockets\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SocketDir != "/tmp/custom-sockets" {
		t.Errorf("SocketDir = %q, want %q", cfg.SocketDir, "/tmp/custom-sockets")
	}
}

func TestLoadMalformedDurationIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peer.toml")
	if err := os.WriteFile(path, []byte("ping_timeout = \"not-a-duration\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load with a malformed duration returned nil error")
	}
}
