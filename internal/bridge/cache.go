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
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"roapctl/internal/device"
)

// Cache defaults
const (
	DefaultCacheSize       = 50
	DefaultCacheExpiration = 10 * time.Minute
)

type cachedResponse struct {
	response *device.ActionResponse
	stored   time.Time
}

// ResponseCache remembers the response to each request id per device so a
// redelivered MQTT message is answered without running the action again.
type ResponseCache struct {
	mu         sync.Mutex
	devices    map[string]*lru.Cache[string, cachedResponse]
	maxSize    int
	expiration time.Duration
	now        func() time.Time
}

// NewResponseCache creates a cache holding up to maxSize ids per device.
func NewResponseCache(maxSize int, expiration time.Duration) *ResponseCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	if expiration <= 0 {
		expiration = DefaultCacheExpiration
	}
	return &ResponseCache{
		devices:    make(map[string]*lru.Cache[string, cachedResponse]),
		maxSize:    maxSize,
		expiration: expiration,
		now:        time.Now,
	}
}

func (c *ResponseCache) deviceCache(deviceID string) *lru.Cache[string, cachedResponse] {
	c.mu.Lock()
	defer c.mu.Unlock()

	cache, ok := c.devices[deviceID]
	if !ok {
		// only fails for a non-positive size
		cache, _ = lru.New[string, cachedResponse](c.maxSize)
		c.devices[deviceID] = cache
	}
	return cache
}

// Lookup returns the stored response for id, if it has not expired.
func (c *ResponseCache) Lookup(deviceID, id string) (*device.ActionResponse, bool) {
	if id == "" {
		return nil, false
	}

	cache := c.deviceCache(deviceID)
	entry, ok := cache.Get(id)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.stored) > c.expiration {
		cache.Remove(id)
		return nil, false
	}
	return entry.response, true
}

// Store records the response for id. Requests without an id are not cached.
func (c *ResponseCache) Store(deviceID, id string, response *device.ActionResponse) {
	if id == "" {
		return
	}
	c.deviceCache(deviceID).Add(id, cachedResponse{response: response, stored: c.now()})
}

// Len returns the number of ids held for deviceID.
func (c *ResponseCache) Len(deviceID string) int {
	c.mu.Lock()
	cache, ok := c.devices[deviceID]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return cache.Len()
}
