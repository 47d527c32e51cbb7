package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Server struct {
		Address        string        `yaml:"address"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Upstream struct {
		BaseURL      string        `yaml:"base_url"`
		Timeout      time.Duration `yaml:"timeout"`
		// nil means the default; 0 turns retries off.
		Retries      *int          `yaml:"retries"`
		RetryBackoff time.Duration `yaml:"retry_backoff"`

		// The marketplace deduplicates POSTs carrying Idempotency-Key.
		HonorsIdempotencyKey bool `yaml:"honors_idempotency_key"`
	} `yaml:"upstream"`
	Auth struct {
		SigningKey string        `yaml:"signing_key"`
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"auth"`
	Storage struct {
		Endpoint      string `yaml:"endpoint"`
		Region        string `yaml:"region"`
		Bucket        string `yaml:"bucket"`
		AccessKey     string `yaml:"access_key"`
		SecretKey     string `yaml:"secret_key"`
		PublicBaseURL string `yaml:"public_base_url"`
		Prefix        string `yaml:"prefix"`
		MaxImageBytes int64  `yaml:"max_image_bytes"`
	} `yaml:"storage"`
	Firebase struct {
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"firebase"`
	Bookings struct {
		DedupWindow  time.Duration `yaml:"dedup_window"`
		RoomCacheTTL time.Duration `yaml:"room_cache_ttl"`
	} `yaml:"bookings"`
	Drafts struct {
		TTL             time.Duration `yaml:"ttl"`
		CleanupInterval time.Duration `yaml:"cleanup_interval"`
	} `yaml:"drafts"`
	Search struct {
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"search"`
	Nearby struct {
		DefaultRadiusKm float64       `yaml:"default_radius_km"`
		IndexTTL        time.Duration `yaml:"index_ttl"`
	} `yaml:"nearby"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
		Color bool   `yaml:"color"`
	} `yaml:"log"`
}

// LoadConfig reads the YAML file at path, then applies environment
// overrides and defaults. A missing file is not an error when the
// environment supplies everything required.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Address = port
	}
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	if v, ok := readIntEnv("REDIS_DB"); ok {
		cfg.Redis.DB = v
	}
	setString(&cfg.Upstream.BaseURL, "UPSTREAM_BASE_URL")
	if v, ok := readIntEnv("UPSTREAM_RETRIES"); ok {
		cfg.Upstream.Retries = &v
	}
	setString(&cfg.Auth.SigningKey, "JWT_SIGNING_KEY")
	setString(&cfg.Storage.Bucket, "S3_BUCKET")
	setString(&cfg.Storage.AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "S3_SECRET_KEY")
	setString(&cfg.Firebase.CredentialsFile, "FIREBASE_CREDENTIALS_FILE")
	setString(&cfg.Log.Level, "LOG_LEVEL")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":4001"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 5 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 20 * time.Second
	}
	if cfg.Upstream.Retries == nil {
		retries := 2
		cfg.Upstream.Retries = &retries
	}
	if cfg.Upstream.RetryBackoff == 0 {
		cfg.Upstream.RetryBackoff = 300 * time.Millisecond
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 24 * time.Hour
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "drafts"
	}
	if cfg.Storage.MaxImageBytes == 0 {
		cfg.Storage.MaxImageBytes = 10 << 20
	}
	if cfg.Bookings.DedupWindow == 0 {
		cfg.Bookings.DedupWindow = 10 * time.Minute
	}
	if cfg.Bookings.RoomCacheTTL == 0 {
		cfg.Bookings.RoomCacheTTL = 30 * time.Second
	}
	if cfg.Drafts.TTL == 0 {
		cfg.Drafts.TTL = 7 * 24 * time.Hour
	}
	if cfg.Drafts.CleanupInterval == 0 {
		cfg.Drafts.CleanupInterval = time.Hour
	}
	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = 300 * time.Millisecond
	}
	if cfg.Nearby.DefaultRadiusKm == 0 {
		cfg.Nearby.DefaultRadiusKm = 5
	}
	if cfg.Nearby.IndexTTL == 0 {
		cfg.Nearby.IndexTTL = 2 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks the settings the gateway cannot start without.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Database.URL) == "" {
		missing = append(missing, "database.url")
	}
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		missing = append(missing, "upstream.base_url")
	}
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		missing = append(missing, "auth.signing_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	switch c.Database.Driver {
	case "mysql", "pgx":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// UpstreamRetries is the number of extra attempts for retryable upstream
// calls.
func (c Config) UpstreamRetries() int {
	if c.Upstream.Retries == nil || *c.Upstream.Retries < 0 {
		return 0
	}
	return *c.Upstream.Retries
}

// StorageEnabled reports whether image staging has a bucket to write to.
func (c Config) StorageEnabled() bool {
	return c.Storage.Bucket != "" && c.Storage.AccessKey != "" && c.Storage.SecretKey != ""
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func readIntEnv(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
