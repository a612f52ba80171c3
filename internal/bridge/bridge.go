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

// Package bridge exposes configured TVs over MQTT. An action published to
// <prefix>/<device>/action is run against the device and its
// device.ActionResponse is published to <prefix>/<device>/result.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"roapctl/internal/device"
	"roapctl/internal/logger"
)

// Topic suffixes
const (
	ActionSuffix = "action"
	ResultSuffix = "result"
)

// DefaultActionTimeout bounds a single action.
const DefaultActionTimeout = 30 * time.Second

type message struct {
	topic   string
	payload []byte
}

// Bridge routes MQTT actions to devices.
type Bridge struct {
	prefix    string
	devices   map[string]device.Device
	transport Transport
	cache     *ResponseCache
	timeout   time.Duration
	queue     chan message
	logger    zerolog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithCache replaces the duplicate-delivery cache.
func WithCache(cache *ResponseCache) Option {
	return func(b *Bridge) {
		if cache != nil {
			b.cache = cache
		}
	}
}

// WithActionTimeout bounds each action.
func WithActionTimeout(timeout time.Duration) Option {
	return func(b *Bridge) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// New creates a bridge for devices, keyed by their DeviceInfo ID.
func New(prefix string, transport Transport, devices []device.Device, opts ...Option) *Bridge {
	b := &Bridge{
		prefix:    strings.Trim(prefix, "/"),
		devices:   make(map[string]device.Device, len(devices)),
		transport: transport,
		cache:     NewResponseCache(DefaultCacheSize, DefaultCacheExpiration),
		timeout:   DefaultActionTimeout,
		queue:     make(chan message, 100),
		logger:    logger.New().With().Str("component", "bridge").Logger(),
	}
	for _, d := range devices {
		b.devices[d.GetDeviceInfo().ID] = d
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ActionTopic returns the subscription filter for all devices.
func (b *Bridge) ActionTopic() string {
	return b.prefix + "/+/" + ActionSuffix
}

// ResultTopic returns the topic results for deviceID are published to.
func (b *Bridge) ResultTopic(deviceID string) string {
	return b.prefix + "/" + deviceID + "/" + ResultSuffix
}

// Run subscribes to the action topic and processes messages until ctx is
// done. Messages are handled one at a time in arrival order.
func (b *Bridge) Run(ctx context.Context) error {
	err := b.transport.Subscribe(b.ActionTopic(), func(topic string, payload []byte) {
		select {
		case b.queue <- message{topic: topic, payload: payload}:
		default:
			b.logger.Warn().Str("topic", topic).Msg("Action queue full, dropping message")
		}
	})
	if err != nil {
		return err
	}

	b.logger.Info().
		Str("topic", b.ActionTopic()).
		Int("devices", len(b.devices)).
		Msg("Bridge started")

	for {
		select {
		case msg := <-b.queue:
			if err := b.HandleMessage(ctx, msg.topic, msg.payload); err != nil {
				b.logger.Error().Err(err).Str("topic", msg.topic).Msg("Failed to handle action")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// HandleMessage runs one action message and publishes its result. The
// returned error reports only failures to publish or to parse the topic;
// action failures are published as unsuccessful responses.
func (b *Bridge) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	deviceID, err := b.deviceID(topic)
	if err != nil {
		return err
	}

	requestID := peekRequestID(payload)
	log := b.logger.With().Str("device", deviceID).Str("request_id", requestID).Logger()

	if cached, ok := b.cache.Lookup(deviceID, requestID); ok {
		log.Debug().Msg("Duplicate action, republishing cached result")
		return b.publish(deviceID, cached)
	}

	dev, ok := b.devices[deviceID]
	if !ok {
		log.Warn().Msg("Action for unknown device")
		return b.publish(deviceID, device.Failure(requestID, "unknown device: %s", deviceID))
	}

	actionCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	response, err := dev.Process(actionCtx, payload)
	if err != nil {
		response = device.Failure(requestID, "%v", err)
	}
	if response.ID == "" {
		response.ID = requestID
	}

	if response.Success {
		log.Info().Msg("Action completed")
	} else {
		log.Warn().Str("error", response.Error).Msg("Action failed")
	}

	b.cache.Store(deviceID, requestID, response)
	return b.publish(deviceID, response)
}

func (b *Bridge) publish(deviceID string, response *device.ActionResponse) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	return b.transport.Publish(b.ResultTopic(deviceID), payload)
}

func (b *Bridge) deviceID(topic string) (string, error) {
	rest, ok := strings.CutPrefix(topic, b.prefix+"/")
	if !ok {
		return "", fmt.Errorf("invalid action topic format: %s", topic)
	}
	id, ok := strings.CutSuffix(rest, "/"+ActionSuffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid action topic format: %s", topic)
	}
	return id, nil
}

// peekRequestID reads the optional id field without validating the rest.
func peekRequestID(payload []byte) string {
	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ""
	}
	return envelope.ID
}
