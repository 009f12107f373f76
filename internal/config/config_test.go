package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if got := cfg.DriverName(); got != DefaultDriver {
		t.Errorf("expected default driver, got %q", got)
	}
	if got := cfg.DSNValue(); got != DefaultDSN {
		t.Errorf("expected default dsn, got %q", got)
	}
	if got := cfg.Lock.TTL.Or(DefaultLockTTL); got != DefaultLockTTL {
		t.Errorf("expected default lock ttl, got %v", got)
	}
	if got := cfg.Review.StaleClaim.Or(DefaultStaleClaim); got != DefaultStaleClaim {
		t.Errorf("expected default stale claim, got %v", got)
	}
}

func TestLoad_ProjectConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "mapmend.toml"), `
[database]
driver = "postgres"
dsn = "host=localhost dbname=mapmend"

[lock]
ttl = "30m"

[review]
stale-claim = "48h"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if got := cfg.DriverName(); got != "postgres" {
		t.Errorf("expected postgres driver, got %q", got)
	}
	if got := cfg.DSNValue(); got != "host=localhost dbname=mapmend" {
		t.Errorf("expected configured dsn, got %q", got)
	}
	if got := cfg.Lock.TTL.Or(DefaultLockTTL); got != 30*time.Minute {
		t.Errorf("expected 30m lock ttl, got %v", got)
	}
	if got := cfg.Review.StaleClaim.Or(DefaultStaleClaim); got != 48*time.Hour {
		t.Errorf("expected 48h stale claim, got %v", got)
	}
}

func TestLoad_ProjectOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, filepath.Join(home, ".config", "mapmend", "config.toml"), `
[database]
driver = "postgres"
dsn = "host=global"

[lock]
ttl = "2h"
`)

	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "mapmend.toml"), `
[database]
dsn = "host=project"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// The project sets only the dsn; the driver and ttl fall through to
	// the global file.
	if got := cfg.DriverName(); got != "postgres" {
		t.Errorf("expected global driver, got %q", got)
	}
	if got := cfg.DSNValue(); got != "host=project" {
		t.Errorf("expected project dsn, got %q", got)
	}
	if got := cfg.Lock.TTL.Or(DefaultLockTTL); got != 2*time.Hour {
		t.Errorf("expected global lock ttl, got %v", got)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "mapmend.toml"), `
[lock]
ttl = "soon"
`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestDuration_Or(t *testing.T) {
	var unset Duration
	if got := unset.Or(time.Hour); got != time.Hour {
		t.Errorf("expected fallback for unset duration, got %v", got)
	}

	var d Duration
	if err := d.UnmarshalText([]byte("45m")); err != nil {
		t.Fatalf("failed to parse duration: %v", err)
	}
	if got := d.Or(time.Hour); got != 45*time.Minute {
		t.Errorf("expected parsed duration, got %v", got)
	}
}
