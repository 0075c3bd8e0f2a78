package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the provisioner service configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Metabase    MetabaseConfig    `mapstructure:"metabase"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig represents the PostgreSQL mapping store configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig represents the distributed lock store configuration. When
// Enabled is false the service falls back to an in-process locker, which is
// only safe for single-instance deployments.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// MetabaseConfig represents the remote Metabase instance configuration
type MetabaseConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	TemplateGroupID  int64         `mapstructure:"template_group_id"`
	AllUsersGroupID  int64         `mapstructure:"all_users_group_id"`
	RootCollectionID int64         `mapstructure:"root_collection_id"`
	CollectionColor  string        `mapstructure:"collection_color"`
	// ReclonePermissions re-applies the template permission graph and
	// sandboxing rules to a tenant group every time it is resolved, not just
	// on creation, so manual drift in Metabase heals on the next request.
	ReclonePermissions bool `mapstructure:"reclone_permissions"`
	// CascadeDelete removes the tenant's remote group and archives its
	// collection when the local mapping is deleted.
	CascadeDelete bool `mapstructure:"cascade_delete"`
	// Modules maps a module name to its template dashboard id.
	Modules map[string]int64 `mapstructure:"modules"`
}

// AuthConfig represents embed token signing configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// CacheConfig represents the in-memory mapping cache configuration
type CacheConfig struct {
	MappingTTL time.Duration `mapstructure:"mapping_ttl"`
	MaxSize    int           `mapstructure:"max_size"`
}

// RateLimiterConfig represents rate limiter configuration
type RateLimiterConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Database == "" {
		return errors.New("database.database is required")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return errors.New("redis.host is required when redis is enabled")
	}
	if c.Metabase.BaseURL == "" {
		return errors.New("metabase.base_url is required")
	}
	if c.Metabase.APIKey == "" {
		return errors.New("metabase.api_key is required")
	}
	if c.Metabase.TemplateGroupID <= 0 {
		return errors.New("metabase.template_group_id is required")
	}
	if c.Metabase.RootCollectionID <= 0 {
		return errors.New("metabase.root_collection_id is required")
	}
	if len(c.Metabase.Modules) == 0 {
		return errors.New("metabase.modules requires at least one module")
	}
	for name, templateID := range c.Metabase.Modules {
		if templateID <= 0 {
			return fmt.Errorf("metabase.modules[%s] must reference a valid template dashboard id", name)
		}
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "provisioner_metadata",
			User:            "provisioner",
			Password:        "",
			MaxConnections:  20,
			MinConnections:  2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    6379,
			DB:      0,
			LockTTL: 30 * time.Second,
		},
		Metabase: MetabaseConfig{
			Timeout:            30 * time.Second,
			AllUsersGroupID:    1,
			CollectionColor:    "#509EE3",
			ReclonePermissions: true,
			CascadeDelete:      false,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Cache: CacheConfig{
			MappingTTL: 5 * time.Minute,
			MaxSize:    10000,
		},
		RateLimiter: RateLimiterConfig{
			Enabled:           false,
			RequestsPerSecond: 50,
			BurstSize:         100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
