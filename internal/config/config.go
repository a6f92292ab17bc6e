// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	Identity     IdentityConfig     `koanf:"identity"`
	Provisioning ProvisioningConfig `koanf:"provisioning"`
	Scoped       ScopedConfig       `koanf:"scoped"`
	Ops          OpsConfig          `koanf:"ops"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	CORS         CORSConfig         `koanf:"cors"`
	Log          LogConfig          `koanf:"log"`
	Otel         OtelConfig         `koanf:"otel"`
	Metrics      MetricsConfig      `koanf:"metrics"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `koanf:"driver"`
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// RedisConfig is optional: with an empty URL the service runs with
// in-process caches and local rate limiting.
type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// IdentityConfig points at the external identity provider.
type IdentityConfig struct {
	Issuer         string        `koanf:"issuer"`
	Audience       string        `koanf:"audience"`
	JWKSURL        string        `koanf:"jwks_url"`
	JWKSPath       string        `koanf:"jwks_path"`
	APIURL         string        `koanf:"api_url"`
	SecretKey      string        `koanf:"secret_key"`
	MetadataKey    string        `koanf:"metadata_key"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	Offline        bool          `koanf:"offline"`
}

type ProvisioningConfig struct {
	Currency           string        `koanf:"currency"`
	OverdueDays        int           `koanf:"overdue_days"`
	ReconcileInterval  time.Duration `koanf:"reconcile_interval"`
	ReconcileBatchSize int           `koanf:"reconcile_batch_size"`
	// ReconcileBackoff doubles per failed attempt up to ReconcileMaxBackoff.
	// A link is parked after ReconcileMaxAttempts failures; zero never parks.
	ReconcileBackoff     time.Duration `koanf:"reconcile_backoff"`
	ReconcileMaxBackoff  time.Duration `koanf:"reconcile_max_backoff"`
	ReconcileMaxAttempts int           `koanf:"reconcile_max_attempts"`
}

// ScopedConfig decides how tenant-scoped entities treat soft-deleted rows.
type ScopedConfig struct {
	Recreate string `koanf:"recreate"`
	Redelete string `koanf:"redelete"`
}

type OpsConfig struct {
	APIKey string `koanf:"api_key"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Load reads defaults, then the YAML file at configPath (if any), then
// environment variables, and validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "POS Admin",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.driver":             "pgx",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       false,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"identity.metadata_key":    "tenantId",
		"identity.request_timeout": "5s",
		"identity.cache_ttl":       "5m",
		"identity.offline":         false,

		"provisioning.currency":               "COP",
		"provisioning.overdue_days":           30,
		"provisioning.reconcile_interval":     "1m",
		"provisioning.reconcile_batch_size":   50,
		"provisioning.reconcile_backoff":      "30s",
		"provisioning.reconcile_max_backoff":  "1h",
		"provisioning.reconcile_max_attempts": 20,

		"scoped.recreate": "duplicate",
		"scoped.redelete": "restamp",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "pos-backend",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_DRIVER":             "database.driver",
	"DATABASE_URL":                "database.url",
	"DATABASE_AUTO_MIGRATE":       "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"IDENTITY_ISSUER":             "identity.issuer",
	"IDENTITY_AUDIENCE":           "identity.audience",
	"IDENTITY_JWKS_URL":           "identity.jwks_url",
	"IDENTITY_JWKS_PATH":          "identity.jwks_path",
	"IDENTITY_API_URL":            "identity.api_url",
	"IDENTITY_SECRET_KEY":         "identity.secret_key",
	"IDENTITY_OFFLINE":            "identity.offline",
	"PROVISIONING_CURRENCY":       "provisioning.currency",
	"PROVISIONING_OVERDUE_DAYS":   "provisioning.overdue_days",
	"RECONCILE_INTERVAL":          "provisioning.reconcile_interval",
	"RECONCILE_MAX_ATTEMPTS":      "provisioning.reconcile_max_attempts",
	"SCOPED_RECREATE":             "scoped.recreate",
	"SCOPED_REDELETE":             "scoped.redelete",
	"OPS_API_KEY":                 "ops.api_key",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"METRICS_ENABLED":             "metrics.enabled",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Database.Driver {
	case "pgx", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be pgx or sqlite3, got %q", c.Database.Driver)
	}

	if !c.Identity.Offline {
		if c.Identity.Issuer == "" {
			return fmt.Errorf("IDENTITY_ISSUER is required")
		}
		if c.Identity.JWKSURL == "" && c.Identity.JWKSPath == "" {
			return fmt.Errorf("one of IDENTITY_JWKS_URL or IDENTITY_JWKS_PATH is required")
		}
		if c.Identity.APIURL == "" || c.Identity.SecretKey == "" {
			return fmt.Errorf("IDENTITY_API_URL and IDENTITY_SECRET_KEY are required")
		}
	} else if c.IsProduction() {
		return fmt.Errorf("identity.offline cannot be enabled in production")
	}

	if c.Identity.MetadataKey == "" {
		return fmt.Errorf("identity.metadata_key must not be empty")
	}

	switch c.Scoped.Recreate {
	case "duplicate", "reject", "restore":
	default:
		return fmt.Errorf("scoped.recreate must be duplicate, reject or restore, got %q", c.Scoped.Recreate)
	}

	switch c.Scoped.Redelete {
	case "restamp", "reject":
	default:
		return fmt.Errorf("scoped.redelete must be restamp or reject, got %q", c.Scoped.Redelete)
	}

	if c.Provisioning.ReconcileInterval <= 0 {
		return fmt.Errorf("provisioning.reconcile_interval must be positive")
	}

	if c.Provisioning.ReconcileBatchSize <= 0 {
		return fmt.Errorf("provisioning.reconcile_batch_size must be positive")
	}

	if c.Provisioning.ReconcileBackoff <= 0 ||
		c.Provisioning.ReconcileMaxBackoff < c.Provisioning.ReconcileBackoff {
		return fmt.Errorf("provisioning.reconcile_max_backoff must be at least reconcile_backoff, which must be positive")
	}

	if c.Provisioning.ReconcileMaxAttempts < 0 {
		return fmt.Errorf("provisioning.reconcile_max_attempts must not be negative")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
