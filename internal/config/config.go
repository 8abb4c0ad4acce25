package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config carries runtime settings for a model instance and the surrounding
// tooling. Zero values are filled in by Default.
type Config struct {
	// Device is "cpu", "cuda" or "sim".
	Device      string `yaml:"device"`
	DeviceIndex int    `yaml:"device_index"`

	ManifestPath string `yaml:"manifest"`
	PayloadPath  string `yaml:"payload"`

	// MapPayload memory-maps the payload file instead of reading it.
	MapPayload bool `yaml:"map_payload"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MetricsAddr string `yaml:"metrics_addr"`
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Device) {
	case "cpu", "cuda", "sim":
	default:
		return fmt.Errorf("invalid device: %q (must be cpu, cuda or sim)", c.Device)
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("invalid device_index: %d (must be non-negative)", c.DeviceIndex)
	}
	if c.ManifestPath == "" {
		return fmt.Errorf("manifest path is required")
	}
	if c.PayloadPath == "" {
		return fmt.Errorf("payload path is required")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log_format: %q (must be json or console)", c.LogFormat)
	}
	return nil
}

func (c *Config) IsCPU() bool {
	return strings.ToLower(c.Device) == "cpu"
}

func Default() Config {
	return Config{
		Device:      "cpu",
		DeviceIndex: 0,
		LogLevel:    "info",
		LogFormat:   "console",
		MetricsAddr: ":9090",
	}
}

// LoadFile reads a YAML config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
