// Package config loads the broadcast configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host

	yaml "go.yaml.in/yaml/v3"
)

// DefaultPath is used when BROADCAST_CONFIG is unset.
const DefaultPath = "config/default.yaml"

// DefaultTimezone is the zone send timestamps are produced in.
const DefaultTimezone = "Asia/Hong_Kong"

// DeviceEntry is one device of the broadcast roster.
type DeviceEntry struct {
	Barcode string `yaml:"barcode"`
}

// Config is the broadcast configuration.
type Config struct {
	// Devices is the fixed roster a broadcast may target.
	Devices []DeviceEntry `yaml:"devices"`

	// MinBatteryLevel excludes devices reporting less battery.
	MinBatteryLevel int `yaml:"min_battery_lvl"`

	// MessageContent maps locale to a template with a {{date}} placeholder.
	MessageContent map[string]string `yaml:"message_content"`

	// SendMessage is the cron expression driving send cycles.
	SendMessage string `yaml:"send_message"`

	// MessageUser is stored as the initiating user of each message. Required.
	MessageUser int64 `yaml:"message_user"`

	// Timezone names the location send timestamps and the schedule use.
	// Default: Asia/Hong_Kong
	Timezone string `yaml:"timezone"`

	// RunOnStart runs one cycle immediately at startup.
	// Default: true
	RunOnStart *bool `yaml:"run_on_start"`

	// DefaultLocale is stored when MessageContent is empty.
	// Default: en_US
	DefaultLocale string `yaml:"default_locale"`

	Category string `yaml:"category"`
	Expiry   int    `yaml:"expiry"`
	ZoneID   int    `yaml:"zone_id"`
}

// PathFromEnv returns the config path from BROADCAST_CONFIG or DefaultPath.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv("BROADCAST_CONFIG")); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads, parses and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, rejecting unknown keys, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml decode: %w", err)
	}

	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.RunOnStart == nil {
		on := true
		cfg.RunOnStart = &on
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if len(c.Devices) == 0 {
		return errors.New("devices: at least one device required")
	}
	for i, d := range c.Devices {
		if strings.TrimSpace(d.Barcode) == "" {
			return fmt.Errorf("devices[%d]: barcode required", i)
		}
	}
	if c.MinBatteryLevel < 0 {
		return fmt.Errorf("min_battery_lvl: must be >= 0, got %d", c.MinBatteryLevel)
	}
	if c.MessageUser <= 0 {
		return fmt.Errorf("message_user: must be > 0, got %d", c.MessageUser)
	}
	if strings.TrimSpace(c.SendMessage) == "" {
		return errors.New("send_message: cron expression required")
	}
	if c.Expiry < 0 {
		return fmt.Errorf("expiry: must be >= 0, got %d", c.Expiry)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// Barcodes returns the roster identifiers in configuration order.
func (c *Config) Barcodes() []string {
	out := make([]string, 0, len(c.Devices))
	for _, d := range c.Devices {
		out = append(out, strings.TrimSpace(d.Barcode))
	}
	return out
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	return time.LoadLocation(tz)
}

// ShouldRunOnStart reports whether a cycle runs before the first tick.
func (c *Config) ShouldRunOnStart() bool {
	return c.RunOnStart == nil || *c.RunOnStart
}
