package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers understood by the persistence factory
const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
	StorageDriverS3       = "s3"
)

// DefaultSlotKey is the storage slot that holds the cart snapshot
const DefaultSlotKey = "@RocketShoes:cart"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Catalog   CatalogConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	S3        S3Config
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// CatalogConfig holds settings for the remote product and stock service
type CatalogConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// StorageConfig selects where the cart snapshot lives
type StorageConfig struct {
	Driver              string
	SlotKey             string
	AllowMemoryFallback bool
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	SQLitePath string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	// LogLevel sets gorm's SQL logging: silent, error, warn or info
	LogLevel   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration // zero keeps the snapshot forever
}

// S3Config holds settings for S3-compatible object storage
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	UseSSL       bool
	Prefix       string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	MetricsEnabled    bool
	TracingEnabled    bool
	LogsEnabled       bool
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	SamplingRatio     float64
	ExportInterval    time.Duration

	// DBTracingEnabled adds spans for sqlite and postgres cart storage queries
	DBTracingEnabled   bool
	SlowQueryThreshold time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CART_ prefix (e.g., CART_STORAGE_DRIVER)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/storefront-cart")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Catalog: CatalogConfig{
			BaseURL:          v.GetString("catalog.base_url"),
			Timeout:          v.GetDuration("catalog.timeout"),
			MaxResponseBytes: v.GetInt64("catalog.max_response_bytes"),
		},
		Storage: StorageConfig{
			Driver:              strings.ToLower(v.GetString("storage.driver")),
			SlotKey:             v.GetString("storage.slot_key"),
			AllowMemoryFallback: v.GetBool("storage.allow_memory_fallback"),
		},
		Database: DatabaseConfig{
			SQLitePath: v.GetString("database.sqlite_path"),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DBName:     v.GetString("database.dbname"),
			SSLMode:    v.GetString("database.sslmode"),
			LogLevel:   v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
			TTL:       v.GetDuration("redis.ttl"),
		},
		S3: S3Config{
			Endpoint:     v.GetString("s3.endpoint"),
			Region:       v.GetString("s3.region"),
			Bucket:       v.GetString("s3.bucket"),
			AccessKey:    v.GetString("s3.access_key"),
			SecretKey:    v.GetString("s3.secret_key"),
			UsePathStyle: v.GetBool("s3.use_path_style"),
			UseSSL:       v.GetBool("s3.use_ssl"),
			Prefix:       v.GetString("s3.prefix"),
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled:     v.GetBool("telemetry.metrics_enabled"),
			TracingEnabled:     v.GetBool("telemetry.tracing_enabled"),
			LogsEnabled:        v.GetBool("telemetry.logs_enabled"),
			CollectorEndpoint:  v.GetString("telemetry.collector_endpoint"),
			Insecure:           v.GetBool("telemetry.insecure"),
			ServiceName:        v.GetString("telemetry.service_name"),
			SamplingRatio:      v.GetFloat64("telemetry.sampling_ratio"),
			ExportInterval:     v.GetDuration("telemetry.export_interval"),
			DBTracingEnabled:   v.GetBool("telemetry.db_tracing_enabled"),
			SlowQueryThreshold: v.GetDuration("telemetry.slow_query_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-cart"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = "http://localhost:3333"
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 10 * time.Second
	}
	if cfg.Catalog.MaxResponseBytes == 0 {
		cfg.Catalog.MaxResponseBytes = 1 << 20 // 1MB
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageDriverSQLite
	}
	if cfg.Storage.SlotKey == "" {
		cfg.Storage.SlotKey = DefaultSlotKey
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "cart.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storefront"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "storefront:"
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
	if cfg.S3.Prefix == "" {
		cfg.S3.Prefix = "carts/"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "storefront-cart"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.SlowQueryThreshold == 0 {
		cfg.Telemetry.SlowQueryThreshold = 200 * time.Millisecond
	}
}

// IsStorageDriver reports whether driver names a supported storage backend
func IsStorageDriver(driver string) bool {
	return slices.Contains(storageDrivers, driver)
}

var storageDrivers = []string{
	StorageDriverMemory,
	StorageDriverSQLite,
	StorageDriverPostgres,
	StorageDriverRedis,
	StorageDriverS3,
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if !IsStorageDriver(c.Storage.Driver) {
		return fmt.Errorf("storage.driver must be one of %v, got %q", storageDrivers, c.Storage.Driver)
	}

	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.base_url must be an absolute URL, got %q", c.Catalog.BaseURL)
	}
	if c.Catalog.Timeout < 0 {
		return fmt.Errorf("catalog.timeout must be positive")
	}
	if c.Catalog.MaxResponseBytes < 0 {
		return fmt.Errorf("catalog.max_response_bytes cannot be negative")
	}

	if c.Storage.Driver == StorageDriverS3 && c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage.driver is s3")
	}

	if c.App.Env == "production" {
		if c.Storage.Driver == StorageDriverPostgres && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Storage.Driver == StorageDriverMemory {
			return fmt.Errorf("storage.driver=memory does not persist the cart and is not allowed in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port pair for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
