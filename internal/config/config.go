// Package config loads the daemon configuration from a TOML file and fills
// in defaults so the daemon runs with an empty or missing file.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full daemon configuration.
type Config struct {
	Listen string       `toml:"listen"`
	Log    LogConfig    `toml:"log"`
	HAL    HALConfig    `toml:"hal"`
	Stream StreamConfig `toml:"stream"`
	Device DeviceConfig `toml:"device"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// HALConfig selects and configures the motor driver.
type HALConfig struct {
	Driver   string `toml:"driver"`   // "visca" or "sim"
	Address  string `toml:"address"`  // host:port, visca only
	Protocol string `toml:"protocol"` // "udp" or "tcp", visca only
}

// StreamConfig points at the onboard encoder's RTSP stream. Empty URL
// disables the video preview on the maintenance channel.
type StreamConfig struct {
	URL string `toml:"url"`
}

// DeviceConfig is the static identification reported over ONVIF.
type DeviceConfig struct {
	Manufacturer    string `toml:"manufacturer"`
	Model           string `toml:"model"`
	FirmwareVersion string `toml:"firmware_version"`
	SerialNumber    string `toml:"serial_number"`
	HardwareID      string `toml:"hardware_id"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen: ":8080",
		Log:    LogConfig{Level: "info"},
		HAL:    HALConfig{Driver: "sim", Protocol: "udp"},
		Device: DeviceConfig{
			Manufacturer:    "Generic",
			Model:           "PTZ Camera",
			FirmwareVersion: "1.0.0",
			SerialNumber:    "000000",
			HardwareID:      "ptz-head",
		},
	}
}

// Load reads a TOML file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects combinations the daemon cannot start with.
func (c Config) Validate() error {
	switch c.HAL.Driver {
	case "sim":
	case "visca":
		if c.HAL.Address == "" {
			return fmt.Errorf("config: hal.driver visca requires hal.address")
		}
		if c.HAL.Protocol != "udp" && c.HAL.Protocol != "tcp" {
			return fmt.Errorf("config: hal.protocol must be udp or tcp, got %q", c.HAL.Protocol)
		}
	default:
		return fmt.Errorf("config: unknown hal.driver %q", c.HAL.Driver)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}

	return nil
}
