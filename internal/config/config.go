package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	UpstreamURL     string        `mapstructure:"UPSTREAM_URL"`
	UpstreamTimeout time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int           `mapstructure:"DB_MAX_CONNS"`
	DBIdleConns     int           `mapstructure:"DB_IDLE_CONNS"`
	MigrationsDir   string        `mapstructure:"MIGRATIONS_DIR"`

	StaffCookieName   string        `mapstructure:"STAFF_COOKIE_NAME"`
	PatientCookieName string        `mapstructure:"PATIENT_COOKIE_NAME"`
	StaffSessionTTL   time.Duration `mapstructure:"STAFF_SESSION_TTL"`
	PatientSessionTTL time.Duration `mapstructure:"PATIENT_SESSION_TTL"`
	CookieSecure      bool          `mapstructure:"COOKIE_SECURE"`

	LoginPath  string `mapstructure:"LOGIN_PATH"`
	PortalPath string `mapstructure:"PORTAL_PATH"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS        float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int     `mapstructure:"RATE_LIMIT_BURST"`
	LoginRateLimitRPS   float64 `mapstructure:"LOGIN_RATE_LIMIT_RPS"`
	LoginRateLimitBurst int     `mapstructure:"LOGIN_RATE_LIMIT_BURST"`

	BodyLimit       string `mapstructure:"BODY_LIMIT"`
	UploadBodyLimit string `mapstructure:"UPLOAD_BODY_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_IDLE_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("STAFF_COOKIE_NAME", "cimef_session")
	v.SetDefault("PATIENT_COOKIE_NAME", "cimef_portal")
	v.SetDefault("STAFF_SESSION_TTL", "720h") // 30 days, bounded by refresh-token life
	v.SetDefault("PATIENT_SESSION_TTL", "30m")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("LOGIN_PATH", "/login")
	v.SetDefault("PORTAL_PATH", "/patient")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("LOGIN_RATE_LIMIT_RPS", 1)
	v.SetDefault("LOGIN_RATE_LIMIT_BURST", 5)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("UPLOAD_BODY_LIMIT", "20M")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("UPSTREAM_URL")
	v.BindEnv("UPSTREAM_TIMEOUT")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_IDLE_CONNS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("STAFF_COOKIE_NAME")
	v.BindEnv("PATIENT_COOKIE_NAME")
	v.BindEnv("STAFF_SESSION_TTL")
	v.BindEnv("PATIENT_SESSION_TTL")
	v.BindEnv("COOKIE_SECURE")
	v.BindEnv("LOGIN_PATH")
	v.BindEnv("PORTAL_PATH")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("LOGIN_RATE_LIMIT_RPS")
	v.BindEnv("LOGIN_RATE_LIMIT_BURST")
	v.BindEnv("BODY_LIMIT")
	v.BindEnv("UPLOAD_BODY_LIMIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
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

// Validate checks that the configuration is safe to run: the gateway cannot
// start without the clinic backend and its own session database, and
// production must not downgrade cookie security.
func (c *Config) Validate() error {
	if c.UpstreamURL == "" {
		return fmt.Errorf("UPSTREAM_URL is required")
	}
	u, err := url.Parse(c.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("UPSTREAM_URL %q must be an absolute URL", c.UpstreamURL)
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.IsProduction() && !c.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must not be disabled in production")
	}
	if c.IsProduction() && u.Scheme != "https" {
		return fmt.Errorf("UPSTREAM_URL must use https in production, got %q", u.Scheme)
	}

	if c.StaffSessionTTL <= 0 {
		return fmt.Errorf("STAFF_SESSION_TTL must be positive, got %s", c.StaffSessionTTL)
	}
	if c.PatientSessionTTL <= 0 {
		return fmt.Errorf("PATIENT_SESSION_TTL must be positive, got %s", c.PatientSessionTTL)
	}

	return nil
}
