package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Device != "cpu" {
		t.Errorf("expected Device cpu, got %q", cfg.Device)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel info, got %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("expected LogFormat console, got %q", cfg.LogFormat)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %q", cfg.MetricsAddr)
	}
	if !cfg.IsCPU() {
		t.Error("default config should report IsCPU")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Device:       "cuda",
		DeviceIndex:  0,
		ManifestPath: "model.json",
		PayloadPath:  "constants.bin",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"sim device", func(c *Config) { c.Device = "sim" }, false},
		{"uppercase device", func(c *Config) { c.Device = "CUDA" }, false},
		{"unknown device", func(c *Config) { c.Device = "tpu" }, true},
		{"empty device", func(c *Config) { c.Device = "" }, true},
		{"negative device index", func(c *Config) { c.DeviceIndex = -1 }, true},
		{"missing manifest", func(c *Config) { c.ManifestPath = "" }, true},
		{"missing payload", func(c *Config) { c.PayloadPath = "" }, true},
		{"console log format", func(c *Config) { c.LogFormat = "console" }, false},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bodkin.yaml")
	body := `
device: sim
device_index: 1
manifest: /models/net.json
payload: /models/net.bin
map_payload: true
log_level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Device != "sim" || cfg.DeviceIndex != 1 {
		t.Errorf("device = %q/%d", cfg.Device, cfg.DeviceIndex)
	}
	if cfg.ManifestPath != "/models/net.json" || cfg.PayloadPath != "/models/net.bin" {
		t.Errorf("paths = %q, %q", cfg.ManifestPath, cfg.PayloadPath)
	}
	if !cfg.MapPayload {
		t.Error("MapPayload should be true")
	}
	// Values absent from the file keep their defaults.
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q, want default", cfg.MetricsAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/bodkin.yaml"); err == nil {
		t.Error("LoadFile on missing path should fail")
	}
}
