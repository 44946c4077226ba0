package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultMSPTCPAddress    = ":5760"
	DefaultSerialBaud       = 115200
	DefaultSettingsSize     = 4096
	DefaultTelemetryAddress = ":14550"
)

// MSPConfig describes the MSP endpoints exposed by the daemon. The TCP
// listener is always available for configurators; the serial endpoint is
// optional and meant for radio links.
type MSPConfig struct {
	TCPAddress string `json:"tcp_address"`
	SerialPort string `json:"serial_port"`
	SerialBaud int    `json:"serial_baud"`
}

// StorageConfig locates the settings blob and the diagnostics journal.
// Empty paths are resolved against the user data directory at startup.
type StorageConfig struct {
	SettingsPath string `json:"settings_path"`
	SettingsSize int    `json:"settings_size"`
	JournalPath  string `json:"journal_path"`
}

// TargetConfig points at an optional board definition file. When empty the
// built-in simulator target is used.
type TargetConfig struct {
	DefinitionPath string `json:"definition_path"`
}

// TelemetryConfig controls the MAVLink telemetry exporter.
type TelemetryConfig struct {
	Enabled    bool   `json:"enabled"`
	UDPAddress string `json:"udp_address"`
}

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	LogToFile bool   `json:"log_to_file"`
}

// DaemonConfig is the root persisted daemon configuration.
type DaemonConfig struct {
	MSP       MSPConfig       `json:"msp"`
	Storage   StorageConfig   `json:"storage"`
	Target    TargetConfig    `json:"target"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Logging   LoggingConfig   `json:"logging"`
}

func Default() DaemonConfig {
	return DaemonConfig{
		MSP: MSPConfig{
			TCPAddress: DefaultMSPTCPAddress,
			SerialPort: "",
			SerialBaud: DefaultSerialBaud,
		},
		Storage: StorageConfig{
			SettingsPath: "",
			SettingsSize: DefaultSettingsSize,
			JournalPath:  "",
		},
		Target: TargetConfig{
			DefinitionPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:    false,
			UDPAddress: DefaultTelemetryAddress,
		},
		Logging: LoggingConfig{
			Level:     "info",
			LogToFile: false,
		},
	}
}

func Load(path string) (DaemonConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return DaemonConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return DaemonConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *DaemonConfig) FillMissingDefaults() {
	if c.MSP.SerialBaud <= 0 {
		c.MSP.SerialBaud = DefaultSerialBaud
	}
	if c.Storage.SettingsSize <= 0 {
		c.Storage.SettingsSize = DefaultSettingsSize
	}
	if c.Telemetry.UDPAddress == "" {
		c.Telemetry.UDPAddress = DefaultTelemetryAddress
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c DaemonConfig) Validate() error {
	if strings.TrimSpace(c.MSP.TCPAddress) == "" && strings.TrimSpace(c.MSP.SerialPort) == "" {
		return errors.New("at least one msp endpoint is required")
	}
	if strings.TrimSpace(c.MSP.SerialPort) != "" && c.MSP.SerialBaud <= 0 {
		return errors.New("serial baud must be positive")
	}
	if c.Storage.SettingsSize <= 0 {
		return errors.New("settings size must be positive")
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.UDPAddress) == "" {
		return errors.New("telemetry udp address is required")
	}

	return nil
}

func Save(path string, cfg DaemonConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
