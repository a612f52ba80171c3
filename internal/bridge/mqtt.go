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

package bridge

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"roapctl/internal/config"
	"roapctl/internal/logger"
)

// QoS used for both subscriptions and results.
const QoS = 1

// Transport is the subset of an MQTT connection the bridge needs.
type Transport interface {
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	Publish(topic string, payload []byte) error
}

// Client wraps a paho MQTT connection. Subscriptions are replayed on every
// reconnect since the broker drops them with the clean session.
type Client struct {
	client mqtt.Client
	config config.MQTTConfig
	logger zerolog.Logger

	mu            sync.Mutex
	subscriptions map[string]mqtt.MessageHandler
}

// NewClient creates an MQTT client. Call Connect before use.
func NewClient(cfg config.MQTTConfig) *Client {
	c := newClient(cfg)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetPingTimeout(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn().Err(err).Msg("MQTT connection lost")
	})
	opts.SetOnConnectHandler(c.onConnect)

	c.client = mqtt.NewClient(opts)
	return c
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{
		config:        cfg,
		logger:        logger.New().With().Str("component", "mqtt").Logger(),
		subscriptions: make(map[string]mqtt.MessageHandler),
	}
}

// onConnect runs after the first connect and after every automatic
// reconnect, and restores the recorded subscriptions.
func (c *Client) onConnect(client mqtt.Client) {
	c.logger.Info().Msg("MQTT connected")

	c.mu.Lock()
	subscriptions := make(map[string]mqtt.MessageHandler, len(c.subscriptions))
	for topic, handler := range c.subscriptions {
		subscriptions[topic] = handler
	}
	c.mu.Unlock()

	for topic, handler := range subscriptions {
		token := client.Subscribe(topic, QoS, handler)
		if token.Wait() && token.Error() != nil {
			c.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to resubscribe to MQTT topic")
			continue
		}
		c.logger.Info().Str("topic", topic).Msg("Resubscribed to MQTT topic")
	}
}

// Connect establishes connection to the MQTT broker
func (c *Client) Connect() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	c.logger.Info().
		Str("broker", c.config.Broker).
		Int("port", c.config.Port).
		Msg("Connected to MQTT broker")
	return nil
}

// Disconnect closes the connection to the MQTT broker
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// Subscribe registers handler for topic. The subscription is restored
// whenever the connection is re-established.
func (c *Client) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	callback := func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	}

	token := c.client.Subscribe(topic, QoS, callback)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}

	c.mu.Lock()
	c.subscriptions[topic] = callback
	c.mu.Unlock()

	c.logger.Info().Str("topic", topic).Msg("Subscribed to MQTT topic")
	return nil
}

// Publish sends payload to topic and waits for the broker to accept it.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, QoS, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}
