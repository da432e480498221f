package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Security configuration (login keys, cross-server tokens)
	Security SecurityConfig

	// Store configuration (accounts, registry backend)
	Store StoreConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string
}

// SecurityConfig holds the security properties consumed by the SSO
// coordinators. The External* values and the token duration are defaults;
// per-tenant overrides are applied through SetTenantOverride.
type SecurityConfig struct {
	// JWTSecret is the base64-encoded shared signing secret for
	// cross-server tokens. It must be injected at deploy time; startup
	// fails when it is absent.
	JWTSecret string

	// SessionCookie is the name of the session cookie.
	SessionCookie string

	// ApplicationName identifies the webapp this server runs; it is the
	// expected subject of inbound cross-server tokens.
	ApplicationName string

	// DefaultTenant is the tenant assumed for requests that carry no
	// tenant selector.
	DefaultTenant string

	// UseExternalServer gates cross-server SSO participation.
	UseExternalServer bool

	// ExternalServerName is the DNS name (host:port) of the trusted
	// peer server.
	ExternalServerName string

	// ExternalServerQuery is the path prefix of the peer's controller.
	ExternalServerQuery string

	// TokenDuration bounds the validity of issued cross-server tokens.
	TokenDuration time.Duration

	tenants map[string]TenantSecurity
}

// TenantSecurity overrides the cross-server defaults for one tenant.
// Nil/zero fields fall back to the shared defaults.
type TenantSecurity struct {
	UseExternalServer   *bool
	ExternalServerName  string
	ExternalServerQuery string
	TokenDuration       time.Duration
}

// StoreConfig holds backing-store configuration
type StoreConfig struct {
	// PostgresURL enables the PostgreSQL account store when set;
	// otherwise an in-memory store is used.
	PostgresURL string

	// RedisURL enables the Redis-backed login key registry when set;
	// otherwise the in-process registry is used.
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("GATEHOUSE_HOST", "0.0.0.0"),
			Port:            getEnv("GATEHOUSE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("GATEHOUSE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("GATEHOUSE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("GATEHOUSE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("GATEHOUSE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("GATEHOUSE_HEALTH_PORT", "9090"),
		},
		Security: SecurityConfig{
			JWTSecret:           getEnv("GATEHOUSE_JWT_SECRET", ""),
			SessionCookie:       getEnv("GATEHOUSE_SESSION_COOKIE", "GATEHOUSE_SESSION"),
			ApplicationName:     getEnv("GATEHOUSE_APPLICATION_NAME", "gatehouse"),
			DefaultTenant:       getEnv("GATEHOUSE_DEFAULT_TENANT", "default"),
			UseExternalServer:   getEnvBool("GATEHOUSE_USE_EXTERNAL_SERVER", true),
			ExternalServerName:  getEnv("GATEHOUSE_EXTERNAL_SERVER_NAME", "localhost:8443"),
			ExternalServerQuery: getEnv("GATEHOUSE_EXTERNAL_SERVER_QUERY", "/catalog/control/"),
			TokenDuration:       getEnvDuration("GATEHOUSE_TOKEN_DURATION", 30*time.Second),
		},
		Store: StoreConfig{
			PostgresURL:   getEnv("GATEHOUSE_POSTGRES_URL", ""),
			RedisURL:      getEnv("GATEHOUSE_REDIS_URL", ""),
			RedisPassword: getEnv("GATEHOUSE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("GATEHOUSE_REDIS_DB", 0),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("GATEHOUSE_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("GATEHOUSE_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("GATEHOUSE_JWT_SECRET is required and must not be embedded in the binary")
	}
	if c.Security.TokenDuration <= 0 {
		return fmt.Errorf("token duration must be positive")
	}
	return nil
}

// SetTenantOverride registers per-tenant security properties
func (s *SecurityConfig) SetTenantOverride(tenant string, o TenantSecurity) {
	if s.tenants == nil {
		s.tenants = make(map[string]TenantSecurity)
	}
	s.tenants[tenant] = o
}

// ExternalServerURL returns the canonical identity of the trusted peer
// server for the given tenant: "https://{name}{query}". It returns "" when
// cross-server SSO is disabled for that tenant.
func (s *SecurityConfig) ExternalServerURL(tenant string) string {
	use := s.UseExternalServer
	name := s.ExternalServerName
	query := s.ExternalServerQuery
	if o, ok := s.tenants[tenant]; ok {
		if o.UseExternalServer != nil {
			use = *o.UseExternalServer
		}
		if o.ExternalServerName != "" {
			name = o.ExternalServerName
		}
		if o.ExternalServerQuery != "" {
			query = o.ExternalServerQuery
		}
	}
	if !use {
		return ""
	}
	return "https://" + name + query
}

// TokenTTL returns the cross-server token lifetime for the given tenant
func (s *SecurityConfig) TokenTTL(tenant string) time.Duration {
	if o, ok := s.tenants[tenant]; ok && o.TokenDuration > 0 {
		return o.TokenDuration
	}
	return s.TokenDuration
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1" || strings.EqualFold(value, "y")
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
// Plain integers are interpreted as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
