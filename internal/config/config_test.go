package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-locomotion/pkg/locomotion"
)

func writeFile(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locomotion.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.URL != DefaultModelURL || cfg.Server.Port != DefaultPort {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.Controller != locomotion.DefaultConfig() {
		t.Errorf("Controller = %+v, want defaults", cfg.Controller)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
controller:
  tau_translation: 0.2
  network_phase_bias: 0.9
model:
  url: http://gpu-box:9000
  timeout: 3s
  fallbacks: [http://cpu-box:9000]
server:
  port: 9090
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Controller.TauTranslation != 0.2 || cfg.Controller.NetworkPhaseBias != 0.9 {
		t.Errorf("Controller = %+v", cfg.Controller)
	}
	// Unset keys keep their defaults.
	if cfg.Controller.FrameRate != 60 || cfg.Controller.TauRotation != 0.5 {
		t.Errorf("defaults lost: %+v", cfg.Controller)
	}
	if cfg.Model.URL != "http://gpu-box:9000" || cfg.Model.Timeout != 3*time.Second {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if len(cfg.Model.Fallbacks) != 1 || cfg.Model.Name != DefaultModelName {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if cfg.Server.Port != 9090 || cfg.Log.Level != "debug" {
		t.Errorf("Server/Log = %+v %+v", cfg.Server, cfg.Log)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvModelURL, "http://override:1")
	t.Setenv(EnvModelName, "gnn")
	t.Setenv(EnvPort, "7000")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(writeFile(t, "model:\n  url: http://file:2\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.URL != "http://override:1" || cfg.Model.Name != "gnn" {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if cfg.Server.Port != 7000 || cfg.Log.Level != "warn" {
		t.Errorf("Server/Log = %+v %+v", cfg.Server, cfg.Log)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "controller: [1, 2"},
		{"weight out of range", "controller:\n  root_rotation_weight: 2\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"bad port", "server:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.data)); err == nil {
				t.Error("Expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}

	t.Setenv(EnvPort, "eighty")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for non-numeric port")
	}
}
