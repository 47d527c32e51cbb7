package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	for _, key := range []string{"PORT", "DATABASE_DRIVER", "DATABASE_URL", "REDIS_DB", "UPSTREAM_BASE_URL", "UPSTREAM_RETRIES", "JWT_SIGNING_KEY", "CONFIG_PATH"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":8080"
  allowed_origins: ["http://localhost:5173"]
database:
  driver: pgx
  url: postgres://roomfinder@localhost/roomfinder
upstream:
  base_url: https://api.example.com
  timeout: 5s
auth:
  signing_key: secret
search:
  debounce: 150ms
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("unexpected address %q", cfg.Server.Address)
	}
	if cfg.Database.Driver != "pgx" {
		t.Errorf("unexpected driver %q", cfg.Database.Driver)
	}
	if cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("unexpected upstream timeout %v", cfg.Upstream.Timeout)
	}
	if cfg.Search.Debounce != 150*time.Millisecond {
		t.Errorf("unexpected debounce %v", cfg.Search.Debounce)
	}
	if cfg.Bookings.DedupWindow != 10*time.Minute {
		t.Errorf("expected default dedup window, got %v", cfg.Bookings.DedupWindow)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if cfg.UpstreamRetries() != 2 {
		t.Errorf("expected default retries, got %d", cfg.UpstreamRetries())
	}
	if cfg.Upstream.HonorsIdempotencyKey {
		t.Error("keyed retries must be off by default")
	}
}

func TestLoadConfigRetriesCanBeDisabled(t *testing.T) {
	path := writeConfig(t, `
database:
  url: user:pass@/roomfinder
upstream:
  base_url: https://api.example.com
  retries: 0
auth:
  signing_key: secret
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.UpstreamRetries() != 0 {
		t.Fatalf("retries: 0 must disable retries, got %d", cfg.UpstreamRetries())
	}

	t.Setenv("UPSTREAM_RETRIES", "4")
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.UpstreamRetries() != 4 {
		t.Fatalf("expected env retries 4, got %d", cfg.UpstreamRetries())
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  url: user:pass@/roomfinder?parseTime=true
upstream:
  base_url: https://api.example.com
auth:
  signing_key: from-file
`)
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SIGNING_KEY", "from-env")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("expected :9000, got %q", cfg.Server.Address)
	}
	if cfg.Auth.SigningKey != "from-env" {
		t.Errorf("expected env signing key, got %q", cfg.Auth.SigningKey)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.Redis.DB)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("expected default mysql driver, got %q", cfg.Database.Driver)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	path := writeConfig(t, "server:\n  address: \":1\"\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for missing settings")
	}
	for _, key := range []string{"database.url", "upstream.base_url", "auth.signing_key"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("expected %s in error %q", key, err)
		}
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  url: file.db
upstream:
  base_url: https://api.example.com
auth:
  signing_key: k
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
