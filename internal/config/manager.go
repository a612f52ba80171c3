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
	"errors"
	"fmt"
	"os"
)

// ErrDeviceNotFound is returned when a device ID is not in the file.
var ErrDeviceNotFound = errors.New("device not found")

// Manager handles configuration file operations
type Manager struct {
	configPath string
}

// NewManager creates a new config manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// Load loads the configuration. A missing file yields the defaults and
// is not created until the first Save.
func (m *Manager) Load() (*Config, error) {
	if _, err := os.Stat(m.configPath); errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}

	config, err := LoadConfig(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return config, nil
}

// Save validates and writes the configuration
func (m *Manager) Save(config *Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := SaveConfig(config, m.configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// AddDevice adds a new device to the configuration
func (m *Manager) AddDevice(device DeviceConfig) error {
	config, err := m.Load()
	if err != nil {
		return err
	}

	for _, existing := range config.Devices {
		if existing.ID == device.ID {
			return fmt.Errorf("device with ID '%s' already exists", device.ID)
		}
	}

	config.Devices = append(config.Devices, device)

	return m.Save(config)
}

// UpdateDevice replaces an existing device, keeping its ID
func (m *Manager) UpdateDevice(deviceID string, updated DeviceConfig) error {
	config, err := m.Load()
	if err != nil {
		return err
	}

	for i, device := range config.Devices {
		if device.ID == deviceID {
			updated.ID = deviceID
			config.Devices[i] = updated
			return m.Save(config)
		}
	}

	return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}

// RemoveDevice removes a device from the configuration
func (m *Manager) RemoveDevice(deviceID string) error {
	config, err := m.Load()
	if err != nil {
		return err
	}

	for i, device := range config.Devices {
		if device.ID == deviceID {
			config.Devices = append(config.Devices[:i], config.Devices[i+1:]...)
			return m.Save(config)
		}
	}

	return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}

// GetDevice gets a specific device from the configuration
func (m *Manager) GetDevice(deviceID string) (*DeviceConfig, error) {
	config, err := m.Load()
	if err != nil {
		return nil, err
	}
	return config.Device(deviceID)
}

// ListDevices returns all devices from the configuration
func (m *Manager) ListDevices() ([]DeviceConfig, error) {
	config, err := m.Load()
	if err != nil {
		return nil, err
	}
	return config.Devices, nil
}

// Device looks up a device by ID.
func (c *Config) Device(deviceID string) (*DeviceConfig, error) {
	for i := range c.Devices {
		if c.Devices[i].ID == deviceID {
			device := c.Devices[i]
			return &device, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}
