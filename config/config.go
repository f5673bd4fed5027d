// Package config loads the signaller configuration: a JSON document, then
// .env and process environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const DefaultPath = "conf.json"

type Config struct {
	Port           int      `json:"Port" env:"SIGNALLER_PORT"`
	TLS            bool     `json:"TLS" env:"SIGNALLER_TLS"`
	Cert           string   `json:"Cert" env:"SIGNALLER_CERT"`
	Key            string   `json:"Key" env:"SIGNALLER_KEY"`
	Prefix         string   `json:"Prefix" env:"SIGNALLER_PREFIX"`
	AllowedOrigins []string `json:"AllowedOrigins" env:"SIGNALLER_ALLOWED_ORIGINS" envSeparator:","`
	LogLevel       string   `json:"LogLevel" env:"LOG_LEVEL"`
	DebugLog       string   `json:"DebugLog" env:"SIGNALLER_DEBUG_LOG"`
}

func Default() Config {
	return Config{
		Port:     8080,
		Prefix:   "/echo",
		LogLevel: "info",
	}
}

// Load reads path (a missing file means defaults) and applies environment
// overrides on top. Callers run Validate once every override is in.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Warn("no config file found, using defaults", "path", path)
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TLS && (c.Cert == "" || c.Key == "") {
		return errors.New("TLS requires Cert and Key")
	}
	if !strings.HasPrefix(c.Prefix, "/") {
		return fmt.Errorf("prefix %q must start with /", c.Prefix)
	}
	return nil
}

// Addr binds all interfaces.
func (c Config) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}
