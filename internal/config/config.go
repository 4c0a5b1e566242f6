// Package config loads and manages collegebot configuration.
// Configuration source priority (highest to lowest):
// 1. Environment variables (COLLEGEBOT_API_URL, COLLEGEBOT_ENV, ...)
// 2. A .env file in the working directory
// 3. Config file path specified via --config flag
// 4. ~/.config/collegebot/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvDevelopment runs against a workstation backend.
	EnvDevelopment = "development"
	// EnvProduction runs against a deployed backend over TLS.
	EnvProduction = "production"

	// devFallbackURL is used in development when no address is supplied.
	devFallbackURL = "http://127.0.0.1:8000"
	// deployedFallbackURL is the last-known-good deployed address, used in
	// production when no address is supplied.
	deployedFallbackURL = "https://rag-chatbot-cocl.onrender.com"
)

// Config is the complete configuration structure for collegebot.
type Config struct {
	// APIURL is the backend base address. Empty selects the per-environment
	// fallback.
	APIURL string `yaml:"api_url"`

	// Env is "development" or "production"; it controls the fallback
	// address and the insecure-scheme upgrade rule.
	Env string `yaml:"env"`

	// LogFile overrides the default log location
	// (~/.local/share/collegebot/collegebot.log).
	LogFile string `yaml:"log_file"`

	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{Env: EnvDevelopment}
}

// Load reads the config file and merges .env plus environment variable
// overrides. A missing config file is not an error; defaults apply.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".config", "collegebot", "config.yaml")
		}
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Env != EnvProduction {
		cfg.Env = EnvDevelopment
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COLLEGEBOT_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("COLLEGEBOT_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("COLLEGEBOT_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if os.Getenv("COLLEGEBOT_DEBUG") != "" {
		cfg.Debug = true
	}
}

// ResolveBaseURL computes the single base address used for all backend
// calls. It is resolved once at startup.
//
// In production an explicitly supplied http:// address is rewritten to
// https:// (host and path untouched) so requests are not blocked as mixed
// content behind a TLS frontend. When no address is supplied the
// per-environment fallback applies; the warning flags the production
// fallback as a configuration gap, not a failure.
func (c *Config) ResolveBaseURL() (url string, warning string) {
	if c.APIURL != "" {
		url = c.APIURL
		if c.Env == EnvProduction && strings.HasPrefix(url, "http:") {
			url = "https:" + strings.TrimPrefix(url, "http:")
			warning = fmt.Sprintf("insecure api_url upgraded to %s", url)
		}
		return url, warning
	}

	if c.Env == EnvProduction {
		return deployedFallbackURL, fmt.Sprintf(
			"COLLEGEBOT_API_URL is not set; falling back to %s", deployedFallbackURL)
	}
	return devFallbackURL, ""
}

// DefaultLogPath returns the log file location, honoring the LogFile
// override.
func (c *Config) DefaultLogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "collegebot.log"
	}
	return filepath.Join(home, ".local", "share", "collegebot", "collegebot.log")
}
