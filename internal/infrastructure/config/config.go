package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RCV_DATABASE_PASSWORD.
const EnvPrefix = "RCV"

// Config holds all application configuration.
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Telemetry  TelemetryConfig
	Profiling  ProfilingConfig
	Storage    StorageConfig
	Jobs       JobsConfig
	Allocation AllocationConfig
}

// AppConfig holds application-specific settings.
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs in production.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
	SlowThreshold   time.Duration
	// AutoMigrate runs the embedded migrations on startup.
	AutoMigrate bool
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
	SecurityHeaders   bool
}

// TelemetryConfig holds OpenTelemetry settings. One collector endpoint serves
// traces, metrics and logs.
type TelemetryConfig struct {
	Enabled               bool
	CollectorEndpoint     string
	Insecure              bool
	ServiceName           string
	SamplingRatio         float64
	MetricsEnabled        bool
	MetricsExportInterval time.Duration
	LogsEnabled           bool
	LogsLevel             string
	DBTraceEnabled        bool
	DBTraceVariables      bool
	DBSlowQueryThreshold  time.Duration
}

// ProfilingConfig holds Pyroscope settings.
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string
	SpanProfiles      bool
}

// StorageConfig holds the S3-compatible receipt archive settings. When
// disabled receipts are kept in memory.
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	CreateBucket    bool
	PresignExpiry   time.Duration
}

// JobsConfig holds the asynq worker settings. Jobs need Redis.
type JobsConfig struct {
	Enabled     bool
	Concurrency int
	Queue       string
	MaxRetry    int
	Timeout     time.Duration
}

// AllocationConfig holds tenant-independent allocation defaults.
type AllocationConfig struct {
	DefaultCurrency     string
	DefaultLocale       string
	AutoAllocate        bool
	IdempotencyTTL      time.Duration
	ReceiptSyncFallback bool
}

// Load reads configuration.
//
// Priority (highest to lowest):
//  1. Environment variables with the RCV_ prefix
//  2. config.toml found in paths (default: ".", "/app")
//  3. Built-in defaults
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if len(paths) == 0 {
		paths = []string{".", "/app"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			SecurityHeaders:   v.GetBool("http.security_headers"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			Insecure:              v.GetBool("telemetry.insecure"),
			ServiceName:           v.GetString("telemetry.service_name"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			MetricsEnabled:        v.GetBool("telemetry.metrics_enabled"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
			LogsLevel:             v.GetString("telemetry.logs_level"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
			DBTraceVariables:      v.GetBool("telemetry.db_trace_variables"),
			DBSlowQueryThreshold:  v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			ApplicationName:   v.GetString("profiling.application_name"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			ProfileTypes:      v.GetStringSlice("profiling.profile_types"),
			SpanProfiles:      v.GetBool("profiling.span_profiles"),
		},
		Storage: StorageConfig{
			Enabled:         v.GetBool("storage.enabled"),
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			CreateBucket:    v.GetBool("storage.create_bucket"),
			PresignExpiry:   v.GetDuration("storage.presign_expiry"),
		},
		Jobs: JobsConfig{
			Enabled:     v.GetBool("jobs.enabled"),
			Concurrency: v.GetInt("jobs.concurrency"),
			Queue:       v.GetString("jobs.queue"),
			MaxRetry:    v.GetInt("jobs.max_retry"),
			Timeout:     v.GetDuration("jobs.timeout"),
		},
		Allocation: AllocationConfig{
			DefaultCurrency:     strings.ToUpper(v.GetString("allocation.default_currency")),
			DefaultLocale:       v.GetString("allocation.default_locale"),
			AutoAllocate:        v.GetBool("allocation.auto_allocate"),
			IdempotencyTTL:      v.GetDuration("allocation.idempotency_ttl"),
			ReceiptSyncFallback: v.GetBool("allocation.receipt_sync_fallback"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults registers built-in defaults. Registering every key also lets
// AutomaticEnv resolve keys absent from config.toml.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "receivables")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "receivables")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "file::memory:?cache=shared")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 20*time.Second)
	v.SetDefault("http.max_body_size", 1<<20)
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("http.rate_limit_requests", 100)
	v.SetDefault("http.rate_limit_window", time.Minute)
	v.SetDefault("http.cors_allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("http.cors_allow_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	v.SetDefault("http.cors_allow_headers", []string{"Origin", "Content-Type", "Authorization", "X-Tenant-ID", "X-Request-ID", "Idempotency-Key"})
	v.SetDefault("http.trusted_proxies", []string{})
	v.SetDefault("http.security_headers", true)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "receivables")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.metrics_enabled", false)
	v.SetDefault("telemetry.metrics_export_interval", 60*time.Second)
	v.SetDefault("telemetry.logs_enabled", false)
	v.SetDefault("telemetry.logs_level", "info")
	v.SetDefault("telemetry.db_trace_enabled", false)
	v.SetDefault("telemetry.db_trace_variables", false)
	v.SetDefault("telemetry.db_slow_query_threshold", 200*time.Millisecond)

	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.server_address", "http://localhost:4040")
	v.SetDefault("profiling.application_name", "receivables")
	v.SetDefault("profiling.basic_auth_user", "")
	v.SetDefault("profiling.basic_auth_password", "")
	v.SetDefault("profiling.profile_types", []string{"cpu", "alloc_space", "inuse_space"})
	v.SetDefault("profiling.span_profiles", false)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "receipts")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.use_path_style", true)
	v.SetDefault("storage.create_bucket", false)
	v.SetDefault("storage.presign_expiry", 15*time.Minute)

	v.SetDefault("jobs.enabled", false)
	v.SetDefault("jobs.concurrency", 5)
	v.SetDefault("jobs.queue", "receipts")
	v.SetDefault("jobs.max_retry", 5)
	v.SetDefault("jobs.timeout", 30*time.Second)

	v.SetDefault("allocation.default_currency", "INR")
	v.SetDefault("allocation.default_locale", "en-IN")
	v.SetDefault("allocation.auto_allocate", true)
	v.SetDefault("allocation.idempotency_ttl", 24*time.Hour)
	v.SetDefault("allocation.receipt_sync_fallback", true)
}

// validate performs cross-field checks.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be positive")
		}
		if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return fmt.Errorf("database.max_idle_conns (%d) must be between 0 and database.max_open_conns (%d)",
				c.Database.MaxIdleConns, c.Database.MaxOpenConns)
		}
	case "sqlite":
		if c.App.IsProduction() {
			return fmt.Errorf("database.driver sqlite is not allowed in production")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Jobs.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("jobs.enabled requires redis.enabled")
	}
	if c.Jobs.Enabled && c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("jobs.concurrency must be positive")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if len(c.Allocation.DefaultCurrency) != 3 {
		return fmt.Errorf("allocation.default_currency must be a 3-letter ISO code, got %q", c.Allocation.DefaultCurrency)
	}
	if c.Allocation.IdempotencyTTL <= 0 {
		return fmt.Errorf("allocation.idempotency_ttl must be positive")
	}

	if c.App.IsProduction() {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
			}
		}
		if c.Telemetry.DBTraceVariables {
			return fmt.Errorf("telemetry.db_trace_variables must be false in production")
		}
	}
	return nil
}

// DSN returns the postgres connection URL with escaped credentials.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
