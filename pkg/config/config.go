// Package config loads and validates the runtime settings of a radio driver
// instance, and dumps or restores the chip's register file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/herlein/ccrf/pkg/profiles"
)

// MaxPacketLen is the largest payload the radio accepts in variable length mode
const MaxPacketLen = 127

// Config holds the driver settings resolved at startup
type Config struct {
	Band     string `yaml:"band"`
	PowerDBm int    `yaml:"power_dbm"`

	// Radio warm-up between power-on and the first CCA sample of a transmit
	SettleTime time.Duration `yaml:"settle_time"`
	// Upper bound on every hardware spin-wait
	SpinTimeout time.Duration `yaml:"spin_timeout"`

	MaxPacketLen   int    `yaml:"max_packet_len"`
	StagingAddr    uint16 `yaml:"staging_addr"`
	DescriptorAddr uint16 `yaml:"descriptor_addr"`

	PollInterval time.Duration `yaml:"poll_interval"`
	LogLevel     string        `yaml:"log_level"`
}

// Default returns the settings of a CC1110 on the 868 MHz band
func Default() Config {
	return Config{
		Band:           profiles.Band868,
		PowerDBm:       -5,
		SettleTime:     320 * time.Microsecond,
		SpinTimeout:    20 * time.Millisecond,
		MaxPacketLen:   MaxPacketLen,
		StagingAddr:    0xF000,
		DescriptorAddr: 0xF100,
		PollInterval:   5 * time.Millisecond,
		LogLevel:       "info",
	}
}

// StagingSize is the number of bytes the receive DMA may write: the length
// byte, the payload and the two appended status bytes.
func (c Config) StagingSize() int {
	return c.MaxPacketLen + 3
}

// Validate checks the settings for consistency
func (c Config) Validate() error {
	if _, err := c.Profile(); err != nil {
		return err
	}
	if c.MaxPacketLen < 1 || c.MaxPacketLen > MaxPacketLen {
		return fmt.Errorf("max_packet_len %d out of range [1, %d]", c.MaxPacketLen, MaxPacketLen)
	}
	if c.SettleTime < 0 {
		return fmt.Errorf("settle_time must not be negative")
	}
	if c.SpinTimeout <= 0 {
		return fmt.Errorf("spin_timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	stagingEnd := int(c.StagingAddr) + c.StagingSize()
	descEnd := int(c.DescriptorAddr) + 8
	if stagingEnd > 0xDF00 && int(c.StagingAddr) < 0xE000 {
		return fmt.Errorf("staging buffer 0x%04X overlaps the register file", c.StagingAddr)
	}
	if stagingEnd > 0x10000 || descEnd > 0x10000 {
		return fmt.Errorf("staging buffer or descriptor runs past the end of XDATA")
	}
	if int(c.DescriptorAddr) < stagingEnd && descEnd > int(c.StagingAddr) {
		return fmt.Errorf("DMA descriptor at 0x%04X overlaps the staging buffer", c.DescriptorAddr)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Profile resolves the band and power to a radio profile
func (c Config) Profile() (*profiles.Profile, error) {
	p, err := profiles.ForBand(c.Band)
	if err != nil {
		return nil, err
	}
	return p.WithPower(c.PowerDBm)
}

// Level returns the configured log level, Info if it does not parse
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Load reads a YAML config file over the defaults and validates the result
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("failed to read file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return c, nil
}

// Save writes the config as YAML, creating the parent directory
func (c Config) Save(path string) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
