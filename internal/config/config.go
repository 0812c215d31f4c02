// internal/config/config.go
//
// Process configuration.
// Sources, highest priority first:
//   1. Environment variables.
//   2. A .env file in the working directory (godotenv; never overrides env).
//   3. An optional config.{yaml,json,toml} in the working directory.
//   4. Defaults below.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret is used when JWT_SECRET is unset. Fine locally, never in production.
const DevJWTSecret = "dev_secret_change_me"

// Config holds every setting the server reads at startup.
type Config struct {
	Port               string `mapstructure:"port"`
	LogLevel           string `mapstructure:"log_level"`
	DatabaseURL        string `mapstructure:"database_url"`
	JWTSecret          string `mapstructure:"jwt_secret"`
	JWTExpiresDays     int    `mapstructure:"jwt_expires_days"`
	ClientOrigin       string `mapstructure:"client_origin"`
	WordsAnswersFile   string `mapstructure:"words_answers_file"`
	WordsAllowedFile   string `mapstructure:"words_allowed_file"`
	SeedWords          bool   `mapstructure:"seed_words"`
	PasswordIterations int    `mapstructure:"password_iterations"`
	NodeEnv            string `mapstructure:"node_env"`
	CookieSecure       bool   `mapstructure:"cookie_secure"`
}

var defaults = map[string]any{
	"port":                "5175",
	"log_level":           "info",
	"database_url":        "data/notwordle.db",
	"jwt_secret":          DevJWTSecret,
	"jwt_expires_days":    14,
	"client_origin":       "http://localhost:5173",
	"words_answers_file":  "",
	"words_allowed_file":  "",
	"seed_words":          true,
	"password_iterations": 260000,
	"node_env":            "development",
	"cookie_secure":       false,
}

// Load reads .env (if present) and then resolves the configuration.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, def := range defaults {
		v.SetDefault(k, def)
		// AutomaticEnv only covers keys viper already knows; bind explicitly so
		// Unmarshal sees env values too.
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("config: PORT is required")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	if c.JWTExpiresDays <= 0 {
		return fmt.Errorf("config: JWT_EXPIRES_DAYS must be positive, got %d", c.JWTExpiresDays)
	}
	if c.PasswordIterations <= 0 {
		return fmt.Errorf("config: PASSWORD_ITERATIONS must be positive, got %d", c.PasswordIterations)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }

// TokenTTL is the session token lifetime.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}

// SecureCookies reports whether the session cookie gets the Secure flag:
// set explicitly with COOKIE_SECURE, or implied by NODE_ENV=production.
func (c Config) SecureCookies() bool {
	return c.CookieSecure || strings.EqualFold(strings.TrimSpace(c.NodeEnv), "production")
}

// Backend names the store selected by DatabaseURL.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Backend classifies DatabaseURL: "memory", a postgres:// or postgresql://
// URL, or anything else as a SQLite file path.
func (c Config) Backend() Backend {
	u := strings.TrimSpace(c.DatabaseURL)
	switch {
	case u == "memory" || u == ":memory:":
		return BackendMemory
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return BackendPostgres
	default:
		return BackendSQLite
	}
}
