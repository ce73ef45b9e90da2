package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, built once at startup and passed
// by reference to the components that need it.
type Config struct {
	Port     string `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	BaseURL  string `yaml:"base_url"`
	LogLevel string `yaml:"log_level"`

	Mail MailConfig `yaml:"mail"`
}

// MailConfig holds the outbound email settings. An empty server token leaves
// the mail capability unconfigured; sends are then skipped and logged.
type MailConfig struct {
	ServerToken string `yaml:"server_token"`
	FromEmail   string `yaml:"from_email"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Port:     "8080",
		DBPath:   "eventsys.db",
		BaseURL:  "http://localhost:8080",
		LogLevel: "info",
	}
}

// Load reads configuration from the YAML file at path (if it exists) and then
// applies environment-variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setIfPresent(&c.Port, "EVENTSYS_PORT")
	setIfPresent(&c.DBPath, "EVENTSYS_DB_PATH")
	setIfPresent(&c.BaseURL, "EVENTSYS_BASE_URL")
	setIfPresent(&c.LogLevel, "EVENTSYS_LOG_LEVEL")
	setIfPresent(&c.Mail.ServerToken, "EVENTSYS_MAIL_TOKEN")
	setIfPresent(&c.Mail.FromEmail, "EVENTSYS_MAIL_FROM")
}

func setIfPresent(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
