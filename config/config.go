// Package config loads the server and CLI configuration.
//
// Values come from an optional YAML file and are overridden by BANCO_*
// environment variables; anything unset falls back to env-default.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env string `yaml:"env" env:"BANCO_ENV" env-default:"local"`

	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Bank    Bank    `yaml:"bank"`
	Log     Log     `yaml:"log"`
}

type Server struct {
	Port            int           `yaml:"port" env:"BANCO_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"BANCO_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"BANCO_WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"BANCO_SHUTDOWN_TIMEOUT" env-default:"30s"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"BANCO_CORS_ORIGINS" env-default:"http://localhost:5173,http://localhost:8080"`

	// Scenarios exposes the demo seed endpoints.
	Scenarios bool `yaml:"scenarios" env:"BANCO_SCENARIOS" env-default:"false"`
}

type Storage struct {
	// Path is the SQLite file; ":memory:" keeps everything in RAM.
	Path       string `yaml:"path" env:"BANCO_DB" env-default:"banco.db"`
	UserSheet  string `yaml:"user_sheet" env:"BANCO_USER_SHEET" env-default:"Usuarios"`
	EntrySheet string `yaml:"entry_sheet" env:"BANCO_ENTRY_SHEET" env-default:"Lancamentos"`
}

type Auth struct {
	JWTSecret    string        `yaml:"jwt_secret" env:"BANCO_JWT_SECRET"`
	SessionTTL   time.Duration `yaml:"session_ttl" env:"BANCO_SESSION_TTL" env-default:"12h"`
	CookieSecure bool          `yaml:"cookie_secure" env:"BANCO_COOKIE_SECURE" env-default:"false"`
	BcryptCost   int           `yaml:"bcrypt_cost" env:"BANCO_BCRYPT_COST" env-default:"10"`
}

type Bank struct {
	// RulesFile is a JSON rule set; empty means the built-in defaults.
	RulesFile string `yaml:"rules_file" env:"BANCO_RULES_FILE"`
	ResetMode string `yaml:"reset_mode" env:"BANCO_RESET_MODE" env-default:"watermark"`
}

type Log struct {
	Level  string `yaml:"level" env:"BANCO_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"BANCO_LOG_FORMAT" env-default:"json"`

	// File enables a rotated log file in addition to stderr.
	File       string `yaml:"file" env:"BANCO_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"BANCO_LOG_MAX_SIZE_MB" env-default:"10"`
	MaxBackups int    `yaml:"max_backups" env:"BANCO_LOG_MAX_BACKUPS" env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env:"BANCO_LOG_MAX_AGE_DAYS" env-default:"28"`
}

// LoadConfig reads path if it exists, then the environment. A missing file
// is not an error: the environment alone is a valid configuration.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return &cfg, cfg.validate()
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Bank.ResetMode {
	case "watermark", "purge":
	default:
		return fmt.Errorf("bank.reset_mode must be watermark or purge, got %q", c.Bank.ResetMode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Env != "local" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required outside local")
	}
	return nil
}

// Usage describes every environment variable, for -help output.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
