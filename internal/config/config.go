// Package config manages credshift configuration. Settings come from
// config.json in the data directory, an optional credshift.env dotenv
// file next to it, and CREDSHIFT_* environment variables, in that order
// of increasing precedence.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	AppDirName      = "credshift"
	ConfigFileName  = "config.json"
	EnvFileName     = "credshift.env"
	DefaultLogLevel = "info"
	DefaultListen   = "127.0.0.1:50551"

	envPrefix = "CREDSHIFT_"
)

// Config holds user-level configuration for the credshift CLI and
// server.
type Config struct {
	LogLevel string `json:"log_level"`
	DataDir  string `json:"data_dir"`
	Listen   string `json:"listen"`
	Socket   string `json:"socket"`
	Watch    bool   `json:"watch"`
}

// DefaultDataDir returns the platform config location for credshift
// state, typically ~/.config/credshift on Linux.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppDirName)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		DataDir:  DefaultDataDir(),
		Listen:   DefaultListen,
	}
}

// Load assembles the effective configuration. CREDSHIFT_DATA_DIR is
// honored before reading files so an override relocates everything,
// including the config file itself.
func Load() (Config, error) {
	cfg := DefaultConfig()
	if v := os.Getenv(envPrefix + "DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	path := filepath.Join(cfg.DataDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	envFile := filepath.Join(cfg.DataDir, EnvFileName)
	if _, err := os.Stat(envFile); err == nil {
		// godotenv never overrides variables the process already has,
		// so real environment beats the dotenv file.
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(envPrefix + "LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv(envPrefix + "SOCKET"); v != "" {
		cfg.Socket = v
	}
	if v := os.Getenv(envPrefix + "WATCH"); v != "" {
		cfg.Watch = v == "1" || v == "true"
	}
}

// Save persists the config to the data directory.
func Save(cfg Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(cfg.DataDir, ConfigFileName), data, 0600)
}
