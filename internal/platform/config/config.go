package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	LogFormat     string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminAPIToken string

	Storage   StorageConfig
	Redis     RedisConfig
	Query     QueryConfig
	RateLimit RateLimitConfig
}

// StorageConfig selects and configures the blob store holding flight partitions.
type StorageConfig struct {
	Type     string // memory, fs, s3 or gcs
	DataDir  string
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (MinIO, LocalStack)
	Prefix   string
}

// RedisConfig configures the optional token revocation list backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// QueryConfig tunes the flight reader.
type QueryConfig struct {
	DefaultLimit     int
	FetchConcurrency int
}

// RateLimitConfig bounds appends per caller.
type RateLimitConfig struct {
	AppendRPS   float64
	AppendBurst int
}

// DefaultJWTSigningKey is only suitable for local development.
const DefaultJWTSigningKey = "dev-secret-key-change-in-production"

// bindings maps config keys to the environment variables that set them.
var bindings = map[string]string{
	"addr":                    "FLIGHT_ADDR",
	"log.level":               "LOG_LEVEL",
	"log.format":              "LOG_FORMAT",
	"jwt.signing_key":         "JWT_SIGNING_KEY",
	"jwt.issuer":              "JWT_ISSUER",
	"jwt.audience":            "JWT_AUDIENCE",
	"admin.token":             "ADMIN_API_TOKEN",
	"storage.type":            "STORAGE_TYPE",
	"storage.data_dir":        "DATA_DIR",
	"storage.bucket":          "STORAGE_BUCKET",
	"storage.region":          "STORAGE_REGION",
	"storage.endpoint":        "STORAGE_ENDPOINT",
	"storage.prefix":          "STORAGE_PREFIX",
	"redis.url":               "REDIS_URL",
	"redis.pool_size":         "REDIS_POOL_SIZE",
	"redis.min_idle_conns":    "REDIS_MIN_IDLE_CONNS",
	"redis.dial_timeout":      "REDIS_DIAL_TIMEOUT",
	"redis.read_timeout":      "REDIS_READ_TIMEOUT",
	"redis.write_timeout":     "REDIS_WRITE_TIMEOUT",
	"query.default_limit":     "QUERY_DEFAULT_LIMIT",
	"query.fetch_concurrency": "QUERY_FETCH_CONCURRENCY",
	"ratelimit.append_rps":    "APPEND_RATE_LIMIT_RPS",
	"ratelimit.append_burst":  "APPEND_RATE_LIMIT_BURST",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("jwt.signing_key", DefaultJWTSigningKey)
	v.SetDefault("jwt.issuer", "flight-tracker")
	v.SetDefault("jwt.audience", "flight-tracker-api")
	v.SetDefault("storage.type", "fs")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("query.default_limit", 100)
	v.SetDefault("query.fetch_concurrency", 8)
	v.SetDefault("ratelimit.append_rps", 10.0)
	v.SetDefault("ratelimit.append_burst", 20)
}

// NewViper returns a viper instance with defaults and environment bindings
// applied. Command-line flags may be bound on top before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load builds a Server config from v and validates it.
func Load(v *viper.Viper) (Server, error) {
	cfg := Server{
		Addr:          v.GetString("addr"),
		LogLevel:      strings.ToLower(v.GetString("log.level")),
		LogFormat:     strings.ToLower(v.GetString("log.format")),
		JWTSigningKey: v.GetString("jwt.signing_key"),
		JWTIssuer:     v.GetString("jwt.issuer"),
		JWTAudience:   v.GetString("jwt.audience"),
		AdminAPIToken: v.GetString("admin.token"),
		Storage: StorageConfig{
			Type:     strings.ToLower(v.GetString("storage.type")),
			DataDir:  v.GetString("storage.data_dir"),
			Bucket:   v.GetString("storage.bucket"),
			Region:   v.GetString("storage.region"),
			Endpoint: v.GetString("storage.endpoint"),
			Prefix:   v.GetString("storage.prefix"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Query: QueryConfig{
			DefaultLimit:     v.GetInt("query.default_limit"),
			FetchConcurrency: v.GetInt("query.fetch_concurrency"),
		},
		RateLimit: RateLimitConfig{
			AppendRPS:   v.GetFloat64("ratelimit.append_rps"),
			AppendBurst: v.GetInt("ratelimit.append_burst"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	return Load(NewViper())
}

// Validate rejects configurations the server cannot start with.
func (c Server) Validate() error {
	switch c.Storage.Type {
	case "memory", "fs":
	case "s3", "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("STORAGE_BUCKET is required for %s storage", c.Storage.Type)
		}
	default:
		return fmt.Errorf("unsupported storage type: %q", c.Storage.Type)
	}
	if c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY must not be empty")
	}
	if c.Query.DefaultLimit < 0 || c.Query.FetchConcurrency < 0 {
		return fmt.Errorf("query limits must not be negative")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %q", c.LogFormat)
	}
	return nil
}

// UsesDefaultSigningKey reports whether the development JWT key is in effect.
func (c Server) UsesDefaultSigningKey() bool {
	return c.JWTSigningKey == DefaultJWTSigningKey
}
