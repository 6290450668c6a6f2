package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Daemon.HTTPAddr != ":8080" {
		t.Errorf("unexpected default http addr: %s", cfg.Daemon.HTTPAddr)
	}
	if cfg.Defaults.MaxDeliveryAttempts != 5 {
		t.Errorf("unexpected default max delivery attempts: %d", cfg.Defaults.MaxDeliveryAttempts)
	}
	if !cfg.Janitor.Enabled || cfg.Janitor.Interval != 30*time.Second {
		t.Errorf("unexpected janitor defaults: %+v", cfg.Janitor)
	}
}

func TestLoadFromFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kestrel.yaml")
	manifest := `
postgres:
  dsn: "postgres://example/db"
defaults:
  max_delivery_attempts: 10
seed:
  - id: orders
    subscriptions:
      - id: billing
        max_delivery_attempts: 3
`
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Postgres.DSN != "postgres://example/db" {
		t.Errorf("unexpected dsn: %s", cfg.Postgres.DSN)
	}
	if cfg.Defaults.MaxDeliveryAttempts != 10 {
		t.Errorf("expected manifest override, got %d", cfg.Defaults.MaxDeliveryAttempts)
	}
	if cfg.Daemon.HTTPAddr != ":8080" {
		t.Errorf("expected untouched fields to keep their default, got %s", cfg.Daemon.HTTPAddr)
	}
	if len(cfg.Seed) != 1 || len(cfg.Seed[0].Subscriptions) != 1 {
		t.Fatalf("expected one seeded topic with one subscription, got %+v", cfg.Seed)
	}
	if cfg.Seed[0].Subscriptions[0].ID != "billing" {
		t.Errorf("unexpected seeded subscription id: %s", cfg.Seed[0].Subscriptions[0].ID)
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("KESTREL_PG_DSN", "postgres://env/db")
	t.Setenv("KESTREL_JANITOR_ENABLED", "false")
	t.Setenv("KESTREL_DEFAULT_MAX_DELIVERY_ATTEMPTS", "7")

	LoadFromEnv(cfg)

	if cfg.Postgres.DSN != "postgres://env/db" {
		t.Errorf("expected env dsn override, got %s", cfg.Postgres.DSN)
	}
	if cfg.Janitor.Enabled {
		t.Error("expected env override to disable the janitor")
	}
	if cfg.Defaults.MaxDeliveryAttempts != 7 {
		t.Errorf("expected env override of max delivery attempts, got %d", cfg.Defaults.MaxDeliveryAttempts)
	}
}
