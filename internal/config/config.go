// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"roapctl/internal/roap"
)

// Config is the roapctl configuration file.
type Config struct {
	Devices []DeviceConfig `yaml:"devices" toml:"devices"`
	MQTT    MQTTConfig     `yaml:"mqtt" toml:"mqtt"`
	Metrics MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// DeviceConfig describes one TV.
type DeviceConfig struct {
	ID         string            `yaml:"id" toml:"id"`
	Host       string            `yaml:"host" toml:"host"`
	Port       int               `yaml:"port,omitempty" toml:"port,omitempty"`
	PairingKey string            `yaml:"pairing_key,omitempty" toml:"pairing_key,omitempty"`
	Timeout    string            `yaml:"timeout,omitempty" toml:"timeout,omitempty"` // Go duration, e.g. "10s"
	Endpoints  map[string]string `yaml:"endpoints,omitempty" toml:"endpoints,omitempty"`
}

// MQTTConfig contains broker connection settings for the bridge
type MQTTConfig struct {
	Broker      string `yaml:"broker" toml:"broker"`
	Port        int    `yaml:"port" toml:"port"`
	Username    string `yaml:"username,omitempty" toml:"username,omitempty"`
	Password    string `yaml:"password,omitempty" toml:"password,omitempty"`
	ClientID    string `yaml:"client_id,omitempty" toml:"client_id,omitempty"`
	TopicPrefix string `yaml:"topic_prefix" toml:"topic_prefix"`
}

// MetricsConfig controls the Prometheus endpoint served by the bridge
type MetricsConfig struct {
	Listen string `yaml:"listen" toml:"listen"`
	Path   string `yaml:"path" toml:"path"`
}

// Defaults
const (
	DefaultMQTTPort       = 1883
	DefaultTopicPrefix    = "roap"
	DefaultMetricsListen  = ":9110"
	DefaultMetricsPath    = "/metrics"
	DefaultClientIDPrefix = "roapctl-"
)

// NewDefaultConfig creates a configuration with no devices.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in unset MQTT and metrics settings.
func (c *Config) ApplyDefaults() {
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "localhost"
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = DefaultMQTTPort
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientIDPrefix + uuid.NewString()
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = DefaultMetricsListen
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Format is the on-disk encoding of a configuration file.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

// FormatFor picks the encoding from the file extension. Anything other
// than .toml is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// LoadConfig loads configuration from a YAML or TOML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Parse decodes data and applies defaults without validating.
func Parse(data []byte, format Format) (*Config, error) {
	var config Config
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	config.ApplyDefaults()
	return &config, nil
}

// Marshal encodes the configuration.
func (c *Config) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := yaml.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return data, nil
	}
}

// SaveConfig saves configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := config.Marshal(FormatFor(path))
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// pairing keys live in here
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Devices))
	for i, device := range c.Devices {
		if err := device.Validate(); err != nil {
			return fmt.Errorf("device %d: %w", i, err)
		}
		if seen[device.ID] {
			return fmt.Errorf("duplicate device ID: %s", device.ID)
		}
		seen[device.ID] = true
	}

	if c.MQTT.Port < 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("mqtt.port %d is out of range", c.MQTT.Port)
	}
	if strings.ContainsAny(c.MQTT.TopicPrefix, "+#") {
		return fmt.Errorf("mqtt.topic_prefix must not contain wildcards")
	}
	if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// Validate checks a single device entry.
func (d DeviceConfig) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.ContainsAny(d.ID, "/+#") {
		return fmt.Errorf("id %q must not contain '/', '+' or '#'", d.ID)
	}
	if strings.TrimSpace(d.Host) == "" {
		return fmt.Errorf("device %s: host is required", d.ID)
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("device %s: port %d is out of range", d.ID, d.Port)
	}
	if _, err := d.TimeoutDuration(); err != nil {
		return fmt.Errorf("device %s: %w", d.ID, err)
	}
	for group, path := range d.Endpoints {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("device %s: endpoint %s must start with /", d.ID, group)
		}
	}
	return nil
}

// TimeoutDuration parses Timeout. Zero means the client default.
func (d DeviceConfig) TimeoutDuration() (time.Duration, error) {
	if d.Timeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(d.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", d.Timeout, err)
	}
	if timeout < 0 {
		return 0, fmt.Errorf("timeout %q must not be negative", d.Timeout)
	}
	return timeout, nil
}

// ClientOptions converts the entry into protocol client options. An
// endpoints map replaces the default table as a whole.
func (d DeviceConfig) ClientOptions() ([]roap.Option, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var opts []roap.Option
	if d.Port != 0 {
		opts = append(opts, roap.WithPort(d.Port))
	}
	if d.PairingKey != "" {
		opts = append(opts, roap.WithPairingKey(d.PairingKey))
	}
	if timeout, _ := d.TimeoutDuration(); timeout > 0 {
		opts = append(opts, roap.WithTimeout(timeout))
	}
	if len(d.Endpoints) > 0 {
		paths := make(map[roap.Group]string, len(d.Endpoints))
		for group, path := range d.Endpoints {
			paths[roap.Group(group)] = path
		}
		opts = append(opts, roap.WithEndpoints(roap.NewEndpoints(paths)))
	}
	return opts, nil
}

// NewClient builds a protocol client for the entry.
func (d DeviceConfig) NewClient(extra ...roap.Option) (*roap.Client, error) {
	opts, err := d.ClientOptions()
	if err != nil {
		return nil, err
	}
	return roap.New(d.Host, append(opts, extra...)...)
}
