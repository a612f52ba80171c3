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

package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"roapctl/internal/roap"
)

const (
	namespace = "roap"
)

// Collector records protocol round trips per device and exposes them to
// Prometheus.
type Collector struct {
	mu           sync.RWMutex
	requestCount map[requestKey]float64
	lastDuration map[endpointKey]float64
	lastRequest  time.Time

	// Prometheus metric descriptors
	requestTotalDesc        *prometheus.Desc
	requestDurationDesc     *prometheus.Desc
	lastRequestTimestampDsc *prometheus.Desc
}

type endpointKey struct {
	device string
	method string
	path   string
}

type requestKey struct {
	endpointKey
	status string
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		requestCount: make(map[requestKey]float64),
		lastDuration: make(map[endpointKey]float64),

		requestTotalDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "requests_total"),
			"Total number of ROAP requests",
			[]string{"device", "method", "path", "status"}, nil,
		),
		requestDurationDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "request_duration_seconds"),
			"Duration of the most recent ROAP request in seconds",
			[]string{"device", "method", "path"}, nil,
		),
		lastRequestTimestampDsc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "last_request_timestamp"),
			"Timestamp of the last ROAP request",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requestTotalDesc
	ch <- c.requestDurationDesc
	ch <- c.lastRequestTimestampDsc
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for key, count := range c.requestCount {
		ch <- prometheus.MustNewConstMetric(
			c.requestTotalDesc,
			prometheus.CounterValue,
			count,
			key.device,
			key.method,
			key.path,
			key.status,
		)
	}

	for key, seconds := range c.lastDuration {
		ch <- prometheus.MustNewConstMetric(
			c.requestDurationDesc,
			prometheus.GaugeValue,
			seconds,
			key.device,
			key.method,
			key.path,
		)
	}

	var last float64
	if !c.lastRequest.IsZero() {
		last = float64(c.lastRequest.Unix())
	}
	ch <- prometheus.MustNewConstMetric(
		c.lastRequestTimestampDsc,
		prometheus.GaugeValue,
		last,
	)
}

// Record adds one round trip for device.
func (c *Collector) Record(device string, rt roap.RoundTrip) {
	c.mu.Lock()
	defer c.mu.Unlock()

	endpoint := endpointKey{device: device, method: rt.Method, path: rt.Path}
	c.requestCount[requestKey{endpointKey: endpoint, status: statusLabel(rt)}]++
	c.lastDuration[endpoint] = rt.Duration.Seconds()
	c.lastRequest = time.Now()
}

// ForDevice returns an Observer that records round trips under device.
func (c *Collector) ForDevice(device string) roap.Observer {
	return deviceObserver{collector: c, device: device}
}

type deviceObserver struct {
	collector *Collector
	device    string
}

func (o deviceObserver) ObserveRoundTrip(rt roap.RoundTrip) {
	o.collector.Record(o.device, rt)
}

// no response at all (refused, timeout) is reported as "error"
func statusLabel(rt roap.RoundTrip) string {
	if rt.StatusCode == 0 {
		return "error"
	}
	return strconv.Itoa(rt.StatusCode)
}

// Handler serves the collector from its own registry.
func Handler(c *Collector) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(c); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
