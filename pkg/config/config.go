package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	BackendB2     = "b2"
	BackendGridFS = "gridfs"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Mongo       MongoConfig       `yaml:"mongo"`
	Storage     StorageConfig     `yaml:"storage"`
	Auth        AuthConfig        `yaml:"auth"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Submissions SubmissionsConfig `yaml:"submissions"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	PublicURL      string   `yaml:"public_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type StorageConfig struct {
	Backend string   `yaml:"backend"`
	B2      B2Config `yaml:"b2"`
}

type B2Config struct {
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	KeyID          string `yaml:"key_id"`
	ApplicationKey string `yaml:"application_key"`
	Bucket         string `yaml:"bucket"`
}

type AuthConfig struct {
	Secret       string        `yaml:"secret"`
	AdminEmail   string        `yaml:"admin_email"`
	PasswordHash string        `yaml:"password_hash"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type CatalogConfig struct {
	Watch    []string      `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
	MaxWait  time.Duration `yaml:"max_wait"`
}

type SubmissionsConfig struct {
	PerMinute float64 `yaml:"per_minute"`
	Burst     int     `yaml:"burst"`
	// Proxies (IPs or CIDRs) whose X-Forwarded-For is believed.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8002,
			PublicURL:      "http://localhost:8002",
			AllowedOrigins: []string{"*"},
		},
		Mongo: MongoConfig{
			Database: "label",
		},
		Storage: StorageConfig{
			Backend: BackendB2,
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
		Catalog: CatalogConfig{
			Watch:    []string{"artists", "tracks", "releases"},
			Debounce: 250 * time.Millisecond,
			MaxWait:  2 * time.Second,
		},
		Submissions: SubmissionsConfig{
			PerMinute: 5,
			Burst:     3,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			FileMaxSizeMB:  100,
			FileMaxFiles:   3,
			FileMaxAgeDays: 30,
		},
	}
}

// Load reads defaults, then the YAML file at path (if any), then a .env file
// (if any), then LABEL_* environment variables. Later sources win.
func Load(path string, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("loading env file: %w", err)
			}
			logrus.WithField("file", envFile).Debug("No env file found, using environment variables")
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	var errs []error

	if v := os.Getenv("LABEL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LABEL_PORT: %w", err))
		}
		c.Server.Port = port
	}
	setString(&c.Server.PublicURL, "LABEL_PUBLIC_URL")
	if v := os.Getenv("LABEL_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}

	// MONGO_URI is still honoured for existing deployments.
	setString(&c.Mongo.URI, "MONGO_URI")
	setString(&c.Mongo.URI, "LABEL_MONGO_URI")
	setString(&c.Mongo.Database, "LABEL_MONGO_DATABASE")

	setString(&c.Storage.Backend, "LABEL_STORAGE_BACKEND")
	setString(&c.Storage.B2.Endpoint, "LABEL_B2_ENDPOINT")
	setString(&c.Storage.B2.Region, "LABEL_B2_REGION")
	setString(&c.Storage.B2.KeyID, "LABEL_B2_KEY_ID")
	setString(&c.Storage.B2.ApplicationKey, "LABEL_B2_APPLICATION_KEY")
	setString(&c.Storage.B2.Bucket, "LABEL_B2_BUCKET")

	setString(&c.Auth.Secret, "LABEL_AUTH_SECRET")
	setString(&c.Auth.AdminEmail, "LABEL_ADMIN_EMAIL")
	setString(&c.Auth.PasswordHash, "LABEL_ADMIN_PASSWORD_HASH")
	if err := setDuration(&c.Auth.TokenTTL, "LABEL_TOKEN_TTL"); err != nil {
		errs = append(errs, err)
	}

	if v := os.Getenv("LABEL_CATALOG_WATCH"); v != "" {
		c.Catalog.Watch = splitList(v)
	}
	if err := setDuration(&c.Catalog.Debounce, "LABEL_CATALOG_DEBOUNCE"); err != nil {
		errs = append(errs, err)
	}
	if err := setDuration(&c.Catalog.MaxWait, "LABEL_CATALOG_MAX_WAIT"); err != nil {
		errs = append(errs, err)
	}

	if v := os.Getenv("LABEL_SUBMISSIONS_PER_MINUTE"); v != "" {
		perMinute, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LABEL_SUBMISSIONS_PER_MINUTE: %w", err))
		}
		c.Submissions.PerMinute = perMinute
	}
	if v := os.Getenv("LABEL_SUBMISSIONS_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LABEL_SUBMISSIONS_BURST: %w", err))
		}
		c.Submissions.Burst = burst
	}
	if v := os.Getenv("LABEL_TRUSTED_PROXIES"); v != "" {
		c.Submissions.TrustedProxies = splitList(v)
	}

	setString(&c.Logging.Level, "LABEL_LOG_LEVEL")
	setString(&c.Logging.Format, "LABEL_LOG_FORMAT")
	setString(&c.Logging.FilePath, "LABEL_LOG_FILE")

	return errors.Join(errs...)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")

	switch c.Storage.Backend {
	case BackendB2, BackendGridFS:
	default:
		return fmt.Errorf("storage backend must be %q or %q, got %q", BackendB2, BackendGridFS, c.Storage.Backend)
	}

	for _, collection := range c.Catalog.Watch {
		switch collection {
		case "artists", "tracks", "releases":
		default:
			return fmt.Errorf("catalog can only watch artists, tracks and releases, got %q", collection)
		}
	}
	if c.Catalog.Debounce < 0 || c.Catalog.MaxWait < 0 {
		return fmt.Errorf("catalog debounce and max wait cannot be negative")
	}

	if c.Submissions.PerMinute <= 0 || c.Submissions.Burst < 1 {
		return fmt.Errorf("submission rate limit must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
