package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabasesConfig   `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Consent     ConsentConfig     `mapstructure:"consent"`
	Export      ExportConfig      `mapstructure:"export"`
	Restriction RestrictionConfig `mapstructure:"restriction"`
	Tasks       TasksConfig       `mapstructure:"tasks"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname     string        `mapstructure:"hostname"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabasesConfig holds all database configurations
type DatabasesConfig struct {
	Gdpr DatabaseConfig `mapstructure:"gdpr"`
}

// DatabaseConfig holds individual database configuration
type DatabaseConfig struct {
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds the redis connection used by the cache and task queue
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig holds consent status cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConsentTypeConfig defines a single entry of the consent type catalog
type ConsentTypeConfig struct {
	Slug         string `mapstructure:"slug"`
	Category     string `mapstructure:"category"`
	LegalBasis   string `mapstructure:"legal_basis"`
	Required     bool   `mapstructure:"required"`
	DefaultValue bool   `mapstructure:"default_value"`
	CanWithdraw  bool   `mapstructure:"can_withdraw"`
	Description  string `mapstructure:"description"`
}

// ConsentConfig holds the consent type catalog and policy version settings
type ConsentConfig struct {
	PolicyVersion string              `mapstructure:"policy_version"`
	Types         []ConsentTypeConfig `mapstructure:"types"`
}

// ExportCategoryConfig describes one exportable data category
type ExportCategoryConfig struct {
	Slug        string `mapstructure:"slug"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// ExportConfig holds data export pipeline configuration
type ExportConfig struct {
	RetentionDays int                    `mapstructure:"retention_days"`
	MaxSizeBytes  int64                  `mapstructure:"max_size_bytes"`
	StorageDir    string                 `mapstructure:"storage_dir"`
	Formats       []string               `mapstructure:"formats"`
	Categories    []ExportCategoryConfig `mapstructure:"categories"`
}

// RestrictionConfig holds processing restriction configuration
type RestrictionConfig struct {
	MaxActive      int `mapstructure:"max_active"`
	AutoExpiryDays int `mapstructure:"auto_expiry_days"`
}

// TasksConfig holds the async worker and scheduler configuration
type TasksConfig struct {
	Concurrency         int    `mapstructure:"concurrency"`
	PurgeSchedule       string `mapstructure:"purge_schedule"`
	RestrictionSchedule string `mapstructure:"restriction_schedule"`
}

var globalConfig *Config

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("GDPR")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	globalConfig = &config
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.hostname", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("export.retention_days", 30)
	v.SetDefault("export.max_size_bytes", int64(52428800))
	v.SetDefault("export.storage_dir", "storage/exports")
	v.SetDefault("export.formats", []string{"json", "csv", "pdf"})
	v.SetDefault("restriction.max_active", 5)
	v.SetDefault("restriction.auto_expiry_days", 0)
	v.SetDefault("tasks.concurrency", 10)
	v.SetDefault("tasks.purge_schedule", "@every 1h")
	v.SetDefault("tasks.restriction_schedule", "@every 1h")
	v.SetDefault("consent.policy_version", "1.0")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Gdpr.Hostname == "" {
		return fmt.Errorf("database hostname is required")
	}

	if config.Database.Gdpr.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if config.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if config.Export.RetentionDays <= 0 {
		return fmt.Errorf("export retention days must be positive")
	}

	if config.Restriction.MaxActive <= 0 {
		return fmt.Errorf("restriction max_active must be positive")
	}

	seen := make(map[string]bool, len(config.Consent.Types))
	for _, ct := range config.Consent.Types {
		if ct.Slug == "" {
			return fmt.Errorf("consent type slug is required")
		}
		if seen[ct.Slug] {
			return fmt.Errorf("duplicate consent type slug: %s", ct.Slug)
		}
		seen[ct.Slug] = true
	}

	return nil
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// SetGlobal sets the global configuration (for testing purposes)
func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

// GetDSN returns the database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		d.User,
		d.Password,
		d.Hostname,
		d.Port,
		d.Database,
	)
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// IsFormatSupported checks whether an export format is configured
func (e *ExportConfig) IsFormatSupported(format string) bool {
	for _, f := range e.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// CategorySlugs returns the configured export category slugs in declaration order
func (e *ExportConfig) CategorySlugs() []string {
	slugs := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		slugs = append(slugs, c.Slug)
	}
	return slugs
}

// IsCategoryKnown checks whether an export category is configured
func (e *ExportConfig) IsCategoryKnown(slug string) bool {
	for _, c := range e.Categories {
		if c.Slug == slug {
			return true
		}
	}
	return false
}

// AutoExpiryEnabled reports whether restrictions expire automatically
func (r *RestrictionConfig) AutoExpiryEnabled() bool {
	return r.AutoExpiryDays > 0
}
