package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const minJWTSecretLength = 32

var knownRoles = []string{"USER", "ADMIN", "MANAGER", "FINANCE"}

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Registration  RegistrationConfig  `mapstructure:"registration"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret            string        `mapstructure:"jwt_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	BCryptCost           int           `mapstructure:"bcrypt_cost"`
}

// RegistrationConfig controls which roles a caller may pick for themselves at sign-up.
type RegistrationConfig struct {
	SelfRegistrableRoles []string `mapstructure:"self_registrable_roles"`
	AdminOnlyRoles       []string `mapstructure:"admin_only_roles"`
}

type CacheConfig struct {
	// PermissionCacheSize is the number of role permission sets kept in memory; 0 disables caching.
	PermissionCacheSize int `mapstructure:"permission_cache_size"`
}

type ObservabilityConfig struct {
	Metrics      MetricsConfig `mapstructure:"metrics"`
	Logging      LoggingConfig `mapstructure:"logging"`
	AuditLogSize int           `mapstructure:"audit_log_size"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig mirrors the defaults registered with viper.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:              8080,
			BaseURL:           "http://localhost:8080",
			AllowedOrigins:    "http://localhost:3000",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Security: SecurityConfig{
			AccessTokenDuration:  24 * time.Hour,
			RefreshTokenDuration: 7 * 24 * time.Hour,
			BCryptCost:           10,
		},
		Registration: RegistrationConfig{
			SelfRegistrableRoles: []string{"USER", "MANAGER"},
			AdminOnlyRoles:       []string{"ADMIN", "FINANCE"},
		},
		Cache: CacheConfig{PermissionCacheSize: 64},
		Observability: ObservabilityConfig{
			Metrics:      MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "spine"},
			Logging:      LoggingConfig{Level: "info", Format: "text"},
			AuditLogSize: 500,
		},
	}
}

// LoadConfigFromEnv builds the configuration purely from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	d := DefaultConfig()
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", d.Server.Port),
			BaseURL:           getEnv("BASE_URL", d.Server.BaseURL),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", d.Server.AllowedOrigins),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", d.Server.ReadHeaderTimeout),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", d.Server.ReadTimeout),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", d.Server.IdleTimeout),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", d.Server.WriteTimeout),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", d.Database.ConnMaxLifetime),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", d.Database.ConnMaxIdleTime),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			JWTSecret:            getEnv("JWT_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", d.Security.AccessTokenDuration),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", d.Security.RefreshTokenDuration),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", d.Security.BCryptCost),
		},
		Registration: RegistrationConfig{
			SelfRegistrableRoles: getEnvAsList("SELF_REGISTRABLE_ROLES", d.Registration.SelfRegistrableRoles),
			AdminOnlyRoles:       getEnvAsList("ADMIN_ONLY_ROLES", d.Registration.AdminOnlyRoles),
		},
		Cache: CacheConfig{
			PermissionCacheSize: getEnvAsInt("PERMISSION_CACHE_SIZE", d.Cache.PermissionCacheSize),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled:   getEnvAsBool("METRICS_ENABLED", d.Observability.Metrics.Enabled),
				Path:      getEnv("METRICS_PATH", d.Observability.Metrics.Path),
				Namespace: getEnv("METRICS_NAMESPACE", d.Observability.Metrics.Namespace),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", "json"),
			},
			AuditLogSize: getEnvAsInt("AUDIT_LOG_SIZE", d.Observability.AuditLogSize),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Registration.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("registration config: %v", err))
	}

	if c.Cache.PermissionCacheSize < 0 {
		errs = append(errs, "cache config: permission_cache_size cannot be negative")
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins splits AllowedOrigins into trimmed entries.
func (c *ServerConfig) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d characters", minJWTSecretLength)
	}
	if c.AccessTokenDuration <= 0 {
		return errors.New("access_token_duration must be positive")
	}
	if c.RefreshTokenDuration < c.AccessTokenDuration {
		return errors.New("refresh_token_duration must be >= access_token_duration")
	}
	// bcrypt accepts 4..31
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return errors.New("bcrypt_cost must be between 4 and 31")
	}
	return nil
}

func (c *RegistrationConfig) Validate() error {
	adminOnly := make(map[string]bool, len(c.AdminOnlyRoles))
	for _, role := range c.AdminOnlyRoles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if !isKnownRole(role) {
			return fmt.Errorf("unknown admin-only role %q", role)
		}
		adminOnly[role] = true
	}
	for _, role := range c.SelfRegistrableRoles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if !isKnownRole(role) {
			return fmt.Errorf("unknown self-registrable role %q", role)
		}
		if adminOnly[role] {
			return fmt.Errorf("role %q cannot be both self-registrable and admin-only", role)
		}
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	return nil
}

func isKnownRole(role string) bool {
	for _, known := range knownRoles {
		if known == role {
			return true
		}
	}
	return false
}
