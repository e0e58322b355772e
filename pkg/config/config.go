package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all daemon configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Identity   IdentityConfig   `yaml:"identity"`
	FileAuth   FileAuthConfig   `yaml:"file_auth"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	LogLevel   string           `yaml:"log_level"`
}

// ServerConfig holds the operational HTTP server settings. The server
// exposes health probes and metrics.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds the catalog database settings.
type DatabaseConfig struct {
	URL      string        `yaml:"url"`
	MaxConns int           `yaml:"max_conns"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CacheConfig holds the record cache settings.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	L1Size        int           `yaml:"l1_size"`
	TTL           time.Duration `yaml:"ttl"`
}

// IdentityConfig holds the identity provider client settings.
type IdentityConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// FileAuthConfig holds the external file-authorization client and
// propagation settings.
type FileAuthConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	SharedPrefixes []string      `yaml:"shared_prefixes"`
	Concurrency    int           `yaml:"concurrency"`
}

// ReconcilerConfig holds the periodic propagation sweep settings.
type ReconcilerConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Schedule     string `yaml:"schedule"`
	ServiceToken string `yaml:"service_token"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns: 25,
			Timeout:  5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			L1Size:  1024,
			TTL:     30 * time.Second,
		},
		Identity: IdentityConfig{
			Timeout: 10 * time.Second,
		},
		FileAuth: FileAuthConfig{
			Timeout:     30 * time.Second,
			Concurrency: 16,
		},
		Reconciler: ReconcilerConfig{
			Enabled:  false,
			Schedule: "0 3 * * *",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CORAL_CONFIG_FILE when set, and finally CORAL_* environment variable
// overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CORAL_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays values from a YAML file.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays values from the environment.
func (c *Config) loadEnv() {
	c.Server.Host = getEnv("CORAL_HOST", c.Server.Host)
	c.Server.Port = getEnv("CORAL_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("CORAL_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("CORAL_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("CORAL_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("CORAL_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.URL = getEnv("CORAL_POSTGRES_URL", c.Database.URL)
	c.Database.MaxConns = getEnvInt("CORAL_POSTGRES_MAX_CONNS", c.Database.MaxConns)
	c.Database.Timeout = getEnvDuration("CORAL_POSTGRES_TIMEOUT", c.Database.Timeout)

	c.Cache.Enabled = getEnvBool("CORAL_CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.RedisAddr = getEnv("CORAL_REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getEnv("CORAL_REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.L1Size = getEnvInt("CORAL_L1_CACHE_SIZE", c.Cache.L1Size)
	c.Cache.TTL = getEnvDuration("CORAL_CACHE_TTL", c.Cache.TTL)

	c.Identity.BaseURL = getEnv("CORAL_IDENTITY_URL", c.Identity.BaseURL)
	c.Identity.Timeout = getEnvDuration("CORAL_IDENTITY_TIMEOUT", c.Identity.Timeout)

	c.FileAuth.BaseURL = getEnv("CORAL_FILEAUTH_URL", c.FileAuth.BaseURL)
	c.FileAuth.Timeout = getEnvDuration("CORAL_FILEAUTH_TIMEOUT", c.FileAuth.Timeout)
	c.FileAuth.Concurrency = getEnvInt("CORAL_FILEAUTH_CONCURRENCY", c.FileAuth.Concurrency)
	if prefixes := os.Getenv("CORAL_SHARED_PREFIXES"); prefixes != "" {
		c.FileAuth.SharedPrefixes = splitAndTrim(prefixes)
	}

	c.Reconciler.Enabled = getEnvBool("CORAL_RECONCILER_ENABLED", c.Reconciler.Enabled)
	c.Reconciler.Schedule = getEnv("CORAL_RECONCILER_SCHEDULE", c.Reconciler.Schedule)
	c.Reconciler.ServiceToken = getEnv("CORAL_RECONCILER_TOKEN", c.Reconciler.ServiceToken)

	c.LogLevel = getEnv("CORAL_LOG_LEVEL", c.LogLevel)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("postgres max conns must be positive")
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("redis address is required when the cache is enabled")
	}
	if c.FileAuth.BaseURL == "" {
		return fmt.Errorf("file authorization URL is required")
	}
	if c.FileAuth.Concurrency <= 0 {
		return fmt.Errorf("file authorization concurrency must be positive")
	}
	if c.Identity.BaseURL == "" {
		return fmt.Errorf("identity provider URL is required")
	}
	if c.Reconciler.Enabled {
		if c.Reconciler.Schedule == "" {
			return fmt.Errorf("reconciler schedule is required when the reconciler is enabled")
		}
		if c.Reconciler.ServiceToken == "" {
			return fmt.Errorf("reconciler service token is required when the reconciler is enabled")
		}
	}
	return nil
}

// splitAndTrim splits a comma-separated list, dropping empty entries.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
