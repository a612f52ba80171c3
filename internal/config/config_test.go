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

package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roapctl/internal/config"
	"roapctl/internal/roap"
	"roapctl/internal/roap/roaptest"
)

const yamlConfig = `
devices:
  - id: living-room
    host: 192.168.1.20
    port: 8080
    pairing_key: "123456"
    timeout: 5s
  - id: bedroom
    host: 192.168.1.21
    endpoints:
      auth: /udap/api/auth
      command: /udap/api/command
      data: /udap/api/data
mqtt:
  broker: broker.local
  client_id: roapctl-test
metrics:
  listen: ":9200"
`

const tomlConfig = `
[[devices]]
id = "living-room"
host = "192.168.1.20"
pairing_key = "123456"
timeout = "5s"

[mqtt]
broker = "broker.local"
port = 8883
topic_prefix = "home/tv"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := config.LoadConfig(writeFile(t, "roapctl.yaml", yamlConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, "living-room", cfg.Devices[0].ID)
	assert.Equal(t, "123456", cfg.Devices[0].PairingKey)
	assert.Equal(t, "/udap/api/command", cfg.Devices[1].Endpoints["command"])

	assert.Equal(t, "broker.local", cfg.MQTT.Broker)
	assert.Equal(t, config.DefaultMQTTPort, cfg.MQTT.Port)
	assert.Equal(t, "roapctl-test", cfg.MQTT.ClientID)
	assert.Equal(t, config.DefaultTopicPrefix, cfg.MQTT.TopicPrefix)
	assert.Equal(t, ":9200", cfg.Metrics.Listen)
	assert.Equal(t, config.DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoadConfigTOML(t *testing.T) {
	cfg, err := config.LoadConfig(writeFile(t, "roapctl.toml", tomlConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Devices, 1)
	assert.Equal(t, "192.168.1.20", cfg.Devices[0].Host)
	assert.Equal(t, 8883, cfg.MQTT.Port)
	assert.Equal(t, "home/tv", cfg.MQTT.TopicPrefix)
	assert.True(t, strings.HasPrefix(cfg.MQTT.ClientID, config.DefaultClientIDPrefix))
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := config.LoadConfig(writeFile(t, "bad.yaml", "devices: [\n"))
		assert.Error(t, err)
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := config.LoadConfig(writeFile(t, "bad.toml", "[[devices]\n"))
		assert.Error(t, err)
	})

	t.Run("invalid content", func(t *testing.T) {
		_, err := config.LoadConfig(writeFile(t, "invalid.yaml", "devices:\n  - id: tv\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "host is required")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		cfg := config.NewDefaultConfig()
		cfg.Devices = []config.DeviceConfig{{ID: "tv", Host: "10.0.0.2"}}
		return cfg
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(*config.Config){
		"missing id":        func(c *config.Config) { c.Devices[0].ID = "" },
		"id with wildcard":  func(c *config.Config) { c.Devices[0].ID = "tv/+" },
		"missing host":      func(c *config.Config) { c.Devices[0].Host = " " },
		"port out of range": func(c *config.Config) { c.Devices[0].Port = 70000 },
		"bad timeout":       func(c *config.Config) { c.Devices[0].Timeout = "soon" },
		"negative timeout":  func(c *config.Config) { c.Devices[0].Timeout = "-1s" },
		"relative endpoint": func(c *config.Config) { c.Devices[0].Endpoints = map[string]string{"auth": "api/auth"} },
		"duplicate ids": func(c *config.Config) {
			c.Devices = append(c.Devices, config.DeviceConfig{ID: "tv", Host: "10.0.0.3"})
		},
		"wildcard prefix":  func(c *config.Config) { c.MQTT.TopicPrefix = "roap/#" },
		"relative metrics": func(c *config.Config) { c.Metrics.Path = "metrics" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"roapctl.yaml", "roapctl.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := config.NewDefaultConfig()
			cfg.Devices = []config.DeviceConfig{{
				ID:         "tv",
				Host:       "10.0.0.2",
				Port:       9090,
				PairingKey: "123456",
				Timeout:    "2s",
				Endpoints:  map[string]string{"data": "/custom/data"},
			}}

			require.NoError(t, config.SaveConfig(cfg, path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			loaded, err := config.LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Devices, loaded.Devices)
			assert.Equal(t, cfg.MQTT, loaded.MQTT)
			assert.Equal(t, cfg.Metrics, loaded.Metrics)
		})
	}
}

func TestClientOptions(t *testing.T) {
	srv := roaptest.NewServerWithEndpoints(roap.DefaultEndpoints().With(roap.GroupData, "/custom/data"))
	defer srv.Close()
	srv.PairingKey = "123456"

	device := config.DeviceConfig{
		ID:         "tv",
		Host:       srv.Host(),
		Port:       srv.Port(),
		PairingKey: "123456",
		Timeout:    "2s",
		Endpoints: map[string]string{
			"auth":    roap.AuthEndpoint,
			"command": roap.CommandEndpoint,
			"data":    "/custom/data",
		},
	}

	client, err := device.NewClient()
	require.NoError(t, err)
	assert.Equal(t, srv.URL, client.BaseURL())

	_, err = client.Auth.AuthReq(context.Background(), "").Result()
	require.NoError(t, err, "configured pairing key should be used")

	_, err = client.Data.Caps(context.Background()).Result()
	require.NoError(t, err)
	req, _ := srv.LastRequest()
	assert.Equal(t, "/custom/data", req.Path)

	timeout, err := device.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, timeout)

	t.Run("invalid device", func(t *testing.T) {
		_, err := config.DeviceConfig{ID: "tv"}.ClientOptions()
		assert.Error(t, err)
	})
}

func TestManager(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roapctl.yaml")
	m := config.NewManager(path)
	assert.Equal(t, path, m.Path())

	t.Run("missing file loads defaults", func(t *testing.T) {
		cfg, err := m.Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.Devices)
		assert.Equal(t, config.DefaultTopicPrefix, cfg.MQTT.TopicPrefix)

		_, err = os.Stat(path)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("add", func(t *testing.T) {
		require.NoError(t, m.AddDevice(config.DeviceConfig{ID: "living-room", Host: "10.0.0.2"}))
		require.NoError(t, m.AddDevice(config.DeviceConfig{ID: "bedroom", Host: "10.0.0.3"}))

		devices, err := m.ListDevices()
		require.NoError(t, err)
		assert.Len(t, devices, 2)
	})

	t.Run("add duplicate", func(t *testing.T) {
		assert.Error(t, m.AddDevice(config.DeviceConfig{ID: "bedroom", Host: "10.0.0.9"}))
	})

	t.Run("add invalid", func(t *testing.T) {
		assert.Error(t, m.AddDevice(config.DeviceConfig{ID: "kitchen"}))
	})

	t.Run("update keeps id", func(t *testing.T) {
		require.NoError(t, m.UpdateDevice("bedroom", config.DeviceConfig{ID: "ignored", Host: "10.0.0.30", PairingKey: "42"}))

		device, err := m.GetDevice("bedroom")
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.30", device.Host)
		assert.Equal(t, "42", device.PairingKey)

		_, err = m.GetDevice("ignored")
		assert.True(t, errors.Is(err, config.ErrDeviceNotFound))
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, m.RemoveDevice("living-room"))

		devices, err := m.ListDevices()
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, "bedroom", devices[0].ID)
	})

	t.Run("missing device", func(t *testing.T) {
		assert.True(t, errors.Is(m.RemoveDevice("garage"), config.ErrDeviceNotFound))
		assert.True(t, errors.Is(m.UpdateDevice("garage", config.DeviceConfig{Host: "x"}), config.ErrDeviceNotFound))
	})

	t.Run("client id is stable once saved", func(t *testing.T) {
		first, err := m.Load()
		require.NoError(t, err)
		second, err := m.Load()
		require.NoError(t, err)
		assert.Equal(t, first.MQTT.ClientID, second.MQTT.ClientID)
	})
}
