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
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roapctl/internal/config"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type subscribeCall struct {
	topic    string
	qos      byte
	callback mqtt.MessageHandler
}

// brokerStub records subscriptions. Methods the client does not use panic
// through the nil embedded interface.
type brokerStub struct {
	mqtt.Client

	mu           sync.Mutex
	calls        []subscribeCall
	subscribeErr error
}

func (b *brokerStub) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, subscribeCall{topic: topic, qos: qos, callback: callback})
	return doneToken{err: b.subscribeErr}
}

func (b *brokerStub) subscribed() []subscribeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]subscribeCall(nil), b.calls...)
}

type stubMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m stubMessage) Topic() string   { return m.topic }
func (m stubMessage) Payload() []byte { return m.payload }

func newStubClient() (*Client, *brokerStub) {
	broker := &brokerStub{}
	c := newClient(config.MQTTConfig{Broker: "localhost", Port: config.DefaultMQTTPort})
	c.client = broker
	return c, broker
}

func TestClientResubscribesOnReconnect(t *testing.T) {
	c, broker := newStubClient()

	var got []string
	require.NoError(t, c.Subscribe("roap/+/action", func(topic string, payload []byte) {
		got = append(got, topic+" "+string(payload))
	}))
	require.Len(t, broker.subscribed(), 1)

	c.onConnect(broker)

	calls := broker.subscribed()
	require.Len(t, calls, 2)
	assert.Equal(t, "roap/+/action", calls[1].topic)
	assert.Equal(t, byte(QoS), calls[1].qos)

	calls[1].callback(broker, stubMessage{topic: "roap/tv/action", payload: []byte(`{"type":"remote"}`)})
	assert.Equal(t, []string{`roap/tv/action {"type":"remote"}`}, got)
}

func TestClientFirstConnectHasNothingToRestore(t *testing.T) {
	c, broker := newStubClient()

	c.onConnect(broker)

	assert.Empty(t, broker.subscribed())
}

func TestClientFailedSubscribeIsNotRestored(t *testing.T) {
	c, broker := newStubClient()
	broker.subscribeErr = errors.New("not authorized")

	err := c.Subscribe("roap/+/action", func(string, []byte) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to subscribe to roap/+/action")

	broker.subscribeErr = nil
	c.onConnect(broker)

	assert.Len(t, broker.subscribed(), 1)
}
