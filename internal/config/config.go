// Package config provides configuration loading for go-locomotion commands.
//
// Settings come from an optional YAML file and are then overridden by
// environment variables:
//
//	LOCOMOTION_MODEL_URL   model server base URL
//	LOCOMOTION_MODEL_NAME  model name on the server
//	LOCOMOTION_PORT        HTTP server port
//	LOCOMOTION_LOG_LEVEL   debug, info, warn or error
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-locomotion/pkg/locomotion"
)

// Environment variables read by Load.
const (
	EnvModelURL  = "LOCOMOTION_MODEL_URL"
	EnvModelName = "LOCOMOTION_MODEL_NAME"
	EnvPort      = "LOCOMOTION_PORT"
	EnvLogLevel  = "LOCOMOTION_LOG_LEVEL"
)

// Defaults.
const (
	DefaultModelURL  = "http://localhost:8080"
	DefaultModelName = "locomotion"
	DefaultPort      = 8181
	DefaultLogLevel  = "info"
)

// File is the on-disk configuration.
type File struct {
	Controller locomotion.Config `yaml:"controller"`
	Model      Model             `yaml:"model"`
	Server     Server            `yaml:"server"`
	Log        Log               `yaml:"log"`
}

// Model configures the model server connection.
type Model struct {
	URL        string        `yaml:"url"`
	Name       string        `yaml:"name"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Fallbacks are tried in order when the primary server fails.
	Fallbacks []string `yaml:"fallbacks"`

	// Stats is an optional normalization statistics file.
	Stats string `yaml:"stats"`
}

// Server configures the HTTP server.
type Server struct {
	Port int `yaml:"port"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		Controller: locomotion.DefaultConfig(),
		Model: Model{
			URL:        DefaultModelURL,
			Name:       DefaultModelName,
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			RetryDelay: 50 * time.Millisecond,
		},
		Server: Server{Port: DefaultPort},
		Log:    Log{Level: DefaultLogLevel},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (File, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (f *File) applyEnv() error {
	if v := os.Getenv(EnvModelURL); v != "" {
		f.Model.URL = v
	}
	if v := os.Getenv(EnvModelName); v != "" {
		f.Model.Name = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		f.Log.Level = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		f.Server.Port = port
	}
	return nil
}

// Validate checks every section.
func (f *File) Validate() error {
	if err := f.Controller.Validate(); err != nil {
		return err
	}
	if f.Model.URL == "" {
		return fmt.Errorf("model url is required")
	}
	if f.Model.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if f.Model.Timeout <= 0 {
		return fmt.Errorf("model timeout must be positive, got %s", f.Model.Timeout)
	}
	if f.Server.Port <= 0 || f.Server.Port > 65535 {
		return fmt.Errorf("server port must be in 1-65535, got %d", f.Server.Port)
	}
	switch f.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got '%s'", f.Log.Level)
	}
	return nil
}
