package config

import (
	"fmt"
	"time"

	"github.com/motorplace/ugc-service/internal/governance"
	pkgconfig "github.com/motorplace/ugc-service/pkg/config"
	"github.com/motorplace/ugc-service/pkg/database"
	"github.com/motorplace/ugc-service/pkg/tracing"
)

const defaultJWTSecret = "dev-secret-change-me"

// Config holds all configuration for the UGC service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"UGC_HTTP_PORT" envDefault:"4001"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"ugc"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"ugc_secret"`
	PostgresDB   string `env:"UGC_DB_NAME" envDefault:"ugc"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT verification (issuance lives in the users service)
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	// External directories
	UsersServiceURL  string `env:"USERS_SERVICE_URL" envDefault:"http://localhost:4002"`
	OffersServiceURL string `env:"OFFERS_SERVICE_URL" envDefault:"http://localhost:4003"`

	// Query governance
	MaxQueryDepth             int  `env:"MAX_QUERY_DEPTH" envDefault:"10"`
	MaxQueryComplexity        int  `env:"MAX_QUERY_COMPLEXITY" envDefault:"1000"`
	DefaultFieldComplexity    int  `env:"DEFAULT_FIELD_COMPLEXITY" envDefault:"1"`
	RateLimitPerMinute        int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	CostBasedRateLimit        bool `env:"COST_BASED_RATE_LIMIT" envDefault:"true"`
	EnableIntrospectionLimits bool `env:"ENABLE_INTROSPECTION_LIMITS" envDefault:"false"`

	// Transport-level per-IP rate limit
	HTTPRateLimitRPS   int `env:"HTTP_RATE_LIMIT_RPS" envDefault:"50"`
	HTTPRateLimitBurst int `env:"HTTP_RATE_LIMIT_BURST" envDefault:"100"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load ugc config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.PostgresHost == "" {
		return nil, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Environment != "development" && cfg.JWTSecret == defaultJWTSecret {
		return nil, fmt.Errorf("JWT_SECRET must be explicitly set outside development")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
	}
	if cfg.MaxQueryDepth < 1 {
		return nil, fmt.Errorf("MAX_QUERY_DEPTH must be positive, got %d", cfg.MaxQueryDepth)
	}
	if cfg.MaxQueryComplexity < 1 {
		return nil, fmt.Errorf("MAX_QUERY_COMPLEXITY must be positive, got %d", cfg.MaxQueryComplexity)
	}
	if cfg.OTELSampleRate < 0 || cfg.OTELSampleRate > 1.0 {
		return nil, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", cfg.OTELSampleRate)
	}
	return cfg, nil
}

// Postgres returns the pool configuration for pkg/database.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the cache store configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// QueryLimits returns the governance configuration, keeping the standard
// field cost table.
func (c *Config) QueryLimits() governance.Config {
	limits := governance.DefaultConfig()
	limits.MaxDepth = c.MaxQueryDepth
	limits.MaxComplexity = c.MaxQueryComplexity
	limits.DefaultFieldComplexity = c.DefaultFieldComplexity
	limits.DefaultRateLimitPerMinute = c.RateLimitPerMinute
	limits.CostBasedRateLimit = c.CostBasedRateLimit
	limits.EnableIntrospectionLimits = c.EnableIntrospectionLimits
	return limits
}

// Tracing returns the OpenTelemetry configuration.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:    "ugc-service",
		ServiceVersion: "0.1.0",
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}
