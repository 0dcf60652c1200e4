// Package config loads wordmine settings from an optional config file,
// a .env file and WORDMINE_* environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/abhisek/wordmine/internal/llm"
	"github.com/abhisek/wordmine/internal/mastery"
	"github.com/abhisek/wordmine/internal/matcher"
	"github.com/abhisek/wordmine/internal/reminder"
	"github.com/abhisek/wordmine/internal/session"
	"github.com/abhisek/wordmine/internal/store"
)

// EnvPrefix prefixes every environment override, e.g.
// WORDMINE_DATABASE_DSN for database.dsn.
const EnvPrefix = "WORDMINE"

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Ingest    session.Config  `mapstructure:"ingest"`
	Ledger    mastery.Config  `mapstructure:"ledger"`
	Matcher   matcher.Config  `mapstructure:"matcher"`
	LLM       llm.Config      `mapstructure:"llm"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Reminder  reminder.Config `mapstructure:"reminder"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the SQL backend. An empty DSN with the sqlite
// driver means the per-user default database file.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Identity modes.
const (
	AuthModeHeader = "header"
	AuthModeJWT    = "jwt"
)

// AuthConfig selects how the calling student is identified.
type AuthConfig struct {
	Mode      string `mapstructure:"mode"`
	Header    string `mapstructure:"header"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// RateLimitConfig is the per-student token bucket on session submission.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Load reads configuration. path may be empty, in which case
// ./wordmine.yaml and $XDG_CONFIG_HOME/wordmine/config.yaml are tried.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindProviderKeys(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wordmine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "wordmine"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", store.DriverSQLite)
	v.SetDefault("database.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	ingest := session.DefaultConfig()
	v.SetDefault("ingest.primary_timeout", ingest.PrimaryTimeout)
	v.SetDefault("ingest.side_effect_timeout", ingest.SideEffectTimeout)

	ledger := mastery.DefaultConfig()
	v.SetDefault("ledger.max_retries", ledger.MaxRetries)
	v.SetDefault("ledger.backoff.initial_wait", ledger.Backoff.InitialWait)
	v.SetDefault("ledger.backoff.max_wait", ledger.Backoff.MaxWait)
	v.SetDefault("ledger.backoff.multiplier", ledger.Backoff.Multiplier)

	m := matcher.DefaultConfig()
	v.SetDefault("matcher.strategy", m.Strategy)
	v.SetDefault("matcher.max_candidates", m.MaxCandidates)

	l := llm.DefaultConfig()
	v.SetDefault("llm.provider", l.Provider)
	v.SetDefault("llm.timeout", l.Timeout)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", l.Anthropic.Model)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", l.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", l.Gemini.Model)
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", l.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")
	v.SetDefault("llm.retry.max_attempts", l.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", l.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", l.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", l.Retry.Multiplier)

	v.SetDefault("auth.mode", AuthModeHeader)
	v.SetDefault("auth.header", "X-Student-ID")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("ratelimit.rps", 10.0)
	v.SetDefault("ratelimit.burst", 20)

	r := reminder.DefaultConfig()
	v.SetDefault("reminder.enabled", r.Enabled)
	v.SetDefault("reminder.interval", r.Interval)
	v.SetDefault("reminder.limit", r.Limit)
}

// bindProviderKeys lets the vendors' conventional variable names stand in
// for the prefixed ones.
func bindProviderKeys(v *viper.Viper) {
	keys := map[string]string{
		"llm.anthropic.api_key":  "ANTHROPIC_API_KEY",
		"llm.openai.api_key":     "OPENAI_API_KEY",
		"llm.gemini.api_key":     "GEMINI_API_KEY",
		"llm.openrouter.api_key": "OPENROUTER_API_KEY",
	}
	for key, vendor := range keys {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, vendor)
	}
}

// Validate rejects settings that would only fail later at runtime.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	switch c.Database.Driver {
	case store.DriverSQLite:
	case store.DriverPostgres, store.DriverPGX:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the %s driver", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Auth.Mode {
	case AuthModeHeader:
		if c.Auth.Header == "" {
			return fmt.Errorf("auth.header is required in header mode")
		}
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required in jwt mode")
		}
	default:
		return fmt.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}

	switch c.Matcher.Strategy {
	case matcher.StrategySubstring, matcher.StrategyExact:
	case matcher.StrategyLLM:
		if err := c.LLM.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown matcher.strategy %q", c.Matcher.Strategy)
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be positive")
	}
	if c.Ledger.MaxRetries < 0 {
		return fmt.Errorf("ledger.max_retries must not be negative")
	}
	return nil
}

// DatabaseDSN resolves the DSN, falling back to the default SQLite file.
func (c *Config) DatabaseDSN() (string, error) {
	if c.Database.DSN != "" || c.Database.Driver != store.DriverSQLite {
		return c.Database.DSN, nil
	}
	return store.DefaultDBPath()
}
