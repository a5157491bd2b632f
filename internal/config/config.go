package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	BackendBaseURL      string        `mapstructure:"BACKEND_BASE_URL"`
	BackendTimeout      time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	BreakerFailures     int           `mapstructure:"BACKEND_BREAKER_FAILURES"`
	BreakerCooldown     time.Duration `mapstructure:"BACKEND_BREAKER_COOLDOWN"`
	AuthSigningKey      string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience        string        `mapstructure:"AUTH_AUDIENCE"`
	SessionTTL          time.Duration `mapstructure:"SESSION_TTL"`
	SessionCookieSecure bool          `mapstructure:"SESSION_COOKIE_SECURE"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	TimeZone            string        `mapstructure:"TIMEZONE"`
	ReflectionDays      int           `mapstructure:"REFLECTION_DELAY_DAYS"`
	ReflectionEnforced  bool          `mapstructure:"REFLECTION_DELAY_ENFORCED"`
	ActSpacingDays      int           `mapstructure:"ACT_SPACING_DAYS"`
	GranularSignatures  bool          `mapstructure:"GRANULAR_SIGNATURES"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"BACKEND_BASE_URL", "BACKEND_TIMEOUT", "BACKEND_BREAKER_FAILURES", "BACKEND_BREAKER_COOLDOWN",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"SESSION_TTL", "SESSION_COOKIE_SECURE", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "TIMEZONE",
	"REFLECTION_DELAY_DAYS", "REFLECTION_DELAY_ENFORCED", "ACT_SPACING_DAYS", "GRANULAR_SIGNATURES",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("BACKEND_BREAKER_FAILURES", 5)
	v.SetDefault("BACKEND_BREAKER_COOLDOWN", "30s")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_COOKIE_SECURE", true)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("TIMEZONE", "Europe/Paris")
	v.SetDefault("REFLECTION_DELAY_DAYS", 15)
	v.SetDefault("REFLECTION_DELAY_ENFORCED", true)
	v.SetDefault("ACT_SPACING_DAYS", 14)
	v.SetDefault("GRANULAR_SIGNATURES", true)

	// Unmarshal only sees env vars that were bound explicitly.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.IsDev() {
		log.Println("WARNING: portal-server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: tokens are accepted without signature verification and sessions live in memory.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesMemorySessions reports whether portal sessions are kept in process memory
// instead of PostgreSQL. Only allowed in development.
func (c *Config) UsesMemorySessions() bool {
	return c.IsDev() && c.DatabaseURL == ""
}

// Location resolves TIMEZONE, the zone in which reflection-delay calendar days
// are counted.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	u, err := url.Parse(c.BackendBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute URL, got %q", c.BackendBaseURL)
	}
	if c.DatabaseURL == "" && !c.IsDev() {
		return fmt.Errorf("DATABASE_URL is required outside development")
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.ReflectionDays < 0 {
		return fmt.Errorf("REFLECTION_DELAY_DAYS must not be negative, got %d", c.ReflectionDays)
	}
	if c.ActSpacingDays < 0 {
		return fmt.Errorf("ACT_SPACING_DAYS must not be negative, got %d", c.ActSpacingDays)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
