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

package metrics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roapctl/internal/metrics"
	"roapctl/internal/roap"
	"roapctl/internal/roap/roaptest"
)

func scrape(t *testing.T, c *metrics.Collector) string {
	t.Helper()
	handler, err := metrics.Handler(c)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestCollectorRecord(t *testing.T) {
	c := metrics.NewCollector()

	c.Record("tv", roap.RoundTrip{Method: "POST", Path: "/roap/api/command", StatusCode: 200, Duration: 250 * time.Millisecond})
	c.Record("tv", roap.RoundTrip{Method: "POST", Path: "/roap/api/command", StatusCode: 200, Duration: 500 * time.Millisecond})
	c.Record("tv", roap.RoundTrip{Method: "GET", Path: "/roap/api/data", Err: errors.New("refused")})

	body := scrape(t, c)

	assert.Contains(t, body, `roap_requests_total{device="tv",method="POST",path="/roap/api/command",status="200"} 2`)
	assert.Contains(t, body, `roap_requests_total{device="tv",method="GET",path="/roap/api/data",status="error"} 1`)
	assert.Contains(t, body, `roap_request_duration_seconds{device="tv",method="POST",path="/roap/api/command"} 0.5`)
	assert.Contains(t, body, "roap_last_request_timestamp")
}

func TestCollectorEmpty(t *testing.T) {
	c := metrics.NewCollector()

	assert.Equal(t, 1, testutil.CollectAndCount(c))
	assert.NotContains(t, scrape(t, c), "roap_requests_total{")
}

func TestCollectorAsObserver(t *testing.T) {
	srv := roaptest.NewServer()
	defer srv.Close()

	c := metrics.NewCollector()
	client := srv.Client(roap.WithObserver(c.ForDevice("living-room")))

	_, err := client.Command.HandleKeyInput(context.Background(), roap.KeyMute).Result()
	require.NoError(t, err)
	_, err = client.Data.Caps(context.Background()).Result()
	require.NoError(t, err)

	body := scrape(t, c)
	assert.Contains(t, body, `roap_requests_total{device="living-room",method="POST",path="/roap/api/command",status="200"} 1`)
	assert.Contains(t, body, `roap_requests_total{device="living-room",method="GET",path="/roap/api/data",status="200"} 1`)
}

func TestCollectorRegistersOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := metrics.NewCollector()

	require.NoError(t, registry.Register(c))
	assert.Error(t, registry.Register(c))
}
