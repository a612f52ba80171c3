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

package roap_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roapctl/internal/roap"
)

// Test helper to create mock HTTP server
func createMockServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

// Test helper to create test client
func createTestClient(t *testing.T, serverURL string, opts ...roap.Option) *roap.Client {
	t.Helper()
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(serverURL, "http://"))
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := roap.New(host, append([]roap.Option{roap.WithPort(port)}, opts...)...)
	require.NoError(t, err)
	return client
}

type recordingObserver struct {
	mu    sync.Mutex
	trips []roap.RoundTrip
}

func (o *recordingObserver) ObserveRoundTrip(rt roap.RoundTrip) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.trips = append(o.trips, rt)
}

func (o *recordingObserver) all() []roap.RoundTrip {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]roap.RoundTrip(nil), o.trips...)
}

func TestNew(t *testing.T) {
	t.Run("uses the default port", func(t *testing.T) {
		client, err := roap.New("192.168.1.100")

		require.NoError(t, err)
		assert.Equal(t, "http://192.168.1.100:8080", client.BaseURL())
	})

	t.Run("honours a custom port", func(t *testing.T) {
		client, err := roap.New("tv.local", roap.WithPort(9090))

		require.NoError(t, err)
		assert.Equal(t, "http://tv.local:9090", client.BaseURL())
	})

	t.Run("brackets IPv6 hosts", func(t *testing.T) {
		client, err := roap.New("fe80::1")

		require.NoError(t, err)
		assert.Equal(t, "http://[fe80::1]:8080", client.BaseURL())
	})

	t.Run("requires a host", func(t *testing.T) {
		_, err := roap.New("  ")

		require.Error(t, err)
		assert.True(t, errors.Is(err, roap.ErrConfiguration))
	})

	t.Run("rejects an invalid port", func(t *testing.T) {
		_, err := roap.New("tv.local", roap.WithPort(70000))

		require.Error(t, err)
		assert.True(t, errors.Is(err, roap.ErrConfiguration))
	})

	t.Run("uses the default endpoint table", func(t *testing.T) {
		client, err := roap.New("tv.local")
		require.NoError(t, err)

		path, err := client.Endpoints().Path(roap.GroupData)
		require.NoError(t, err)
		assert.Equal(t, "/roap/api/data", path)
	})
}

func TestPost(t *testing.T) {
	t.Run("sends an XML envelope with keep-alive", func(t *testing.T) {
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/roap/api/command", r.URL.Path)
			assert.Equal(t, "application/atom+xml", r.Header.Get("Content-Type"))
			assert.False(t, r.Close)

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, `<?xml version="1.0" encoding="utf-8"?><command><name>HandleKeyInput</name><value>1</value></command>`, string(body))

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`<envelope><ROAPError>200</ROAPError></envelope>`))
		})
		defer server.Close()

		client := createTestClient(t, server.URL)
		body := `<?xml version="1.0" encoding="utf-8"?><command><name>HandleKeyInput</name><value>1</value></command>`

		doc, err := client.Post(context.Background(), roap.CommandEndpoint, body).Await(context.Background())

		require.NoError(t, err)
		assert.Equal(t, roap.Document{"ROAPError": "200"}, doc)
	})

	t.Run("non-2xx status is a transport error", func(t *testing.T) {
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`<envelope><ROAPError>401</ROAPError></envelope>`))
		})
		defer server.Close()

		client := createTestClient(t, server.URL)
		_, err := client.Post(context.Background(), roap.AuthEndpoint, "").Result()

		require.Error(t, err)
		assert.True(t, errors.Is(err, roap.ErrTransport))

		var statusErr *roap.StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
		assert.Contains(t, err.Error(), "request failed with status 401")
	})

	t.Run("malformed response is a protocol error", func(t *testing.T) {
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`<envelope><ROAPError>200</envelope>`))
		})
		defer server.Close()

		client := createTestClient(t, server.URL)
		doc, err := client.Post(context.Background(), roap.CommandEndpoint, "").Result()

		require.Error(t, err)
		assert.True(t, errors.Is(err, roap.ErrProtocol))
		assert.Nil(t, doc)
	})

	t.Run("empty response decodes to an empty document", func(t *testing.T) {
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		defer server.Close()

		client := createTestClient(t, server.URL)
		doc, err := client.Post(context.Background(), roap.CommandEndpoint, "").Result()

		require.NoError(t, err)
		assert.Empty(t, doc)
	})
}

func TestGet(t *testing.T) {
	t.Run("appends ordered query and closes the connection", func(t *testing.T) {
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/roap/api/data", r.URL.Path)
			assert.Equal(t, "target=applist_get&type=2&index=0&number=100", r.URL.RawQuery)
			assert.True(t, r.Close)

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`<envelope><data><auid>1</auid></data></envelope>`))
		})
		defer server.Close()

		client := createTestClient(t, server.URL)
		params := roap.Params{
			{Key: "target", Value: "applist_get"},
			{Key: "type", Value: 2},
			{Key: "index", Value: 0},
			{Key: "number", Value: 100},
		}

		doc, err := client.Get(context.Background(), roap.DataEndpoint, params).Result()

		require.NoError(t, err)
		assert.Equal(t, roap.Document{"data": roap.Document{"auid": "1"}}, doc)
	})

	t.Run("percent-encodes keys and values", func(t *testing.T) {
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "target=a%20b&q%26x=1%3D2", r.URL.RawQuery)
			assert.Equal(t, "a b", r.URL.Query().Get("target"))
			w.WriteHeader(http.StatusOK)
		})
		defer server.Close()

		client := createTestClient(t, server.URL)
		_, err := client.Get(context.Background(), roap.DataEndpoint, roap.Params{
			{Key: "target", Value: "a b"},
			{Key: "q&x", Value: "1=2"},
		}).Result()

		require.NoError(t, err)
	})

	t.Run("raw responses are returned undecoded", func(t *testing.T) {
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`not xml`))
		})
		defer server.Close()

		client := createTestClient(t, server.URL)
		raw, err := client.GetRaw(context.Background(), roap.DataEndpoint, roap.Params{{Key: "target", Value: "caps"}}).Result()

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, raw.StatusCode)
		assert.Equal(t, "text/plain", raw.Header.Get("Content-Type"))
		assert.Equal(t, "not xml", string(raw.Body))
	})

	t.Run("non-scalar query value fails before sending", func(t *testing.T) {
		called := false
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})
		defer server.Close()

		client := createTestClient(t, server.URL)
		_, err := client.Get(context.Background(), roap.DataEndpoint, roap.Params{{Key: "target", Value: []string{"a"}}}).Result()

		require.Error(t, err)
		assert.True(t, errors.Is(err, roap.ErrEncoding))
		assert.False(t, called)
	})
}

func TestTransportErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {})
		url := server.URL
		server.Close()

		client := createTestClient(t, url)
		_, err := client.Post(context.Background(), roap.AuthEndpoint, "").Result()

		require.Error(t, err)
		assert.True(t, errors.Is(err, roap.ErrTransport))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			<-release
		})
		defer server.Close()
		defer close(release)

		client := createTestClient(t, server.URL, roap.WithTimeout(50*time.Millisecond))
		_, err := client.Get(context.Background(), roap.DataEndpoint, nil).Result()

		require.Error(t, err)
		assert.True(t, errors.Is(err, roap.ErrTransport))
	})

	t.Run("cancelled context", func(t *testing.T) {
		release := make(chan struct{})
		server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
			<-release
		})
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		client := createTestClient(t, server.URL)
		future := client.Get(ctx, roap.DataEndpoint, nil)
		cancel()

		_, err := future.Result()
		require.Error(t, err)
		assert.True(t, errors.Is(err, roap.ErrTransport))
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestObserver(t *testing.T) {
	server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	observer := &recordingObserver{}
	client := createTestClient(t, server.URL, roap.WithObserver(observer))

	_, err := client.Post(context.Background(), roap.CommandEndpoint, "").Result()
	require.NoError(t, err)
	_, err = client.Get(context.Background(), roap.DataEndpoint, nil).Result()
	require.Error(t, err)

	trips := observer.all()
	require.Len(t, trips, 2)
	assert.Equal(t, http.MethodPost, trips[0].Method)
	assert.Equal(t, roap.CommandEndpoint, trips[0].Path)
	assert.Equal(t, http.StatusOK, trips[0].StatusCode)
	assert.NoError(t, trips[0].Err)
	assert.Equal(t, http.MethodGet, trips[1].Method)
	assert.Equal(t, http.StatusInternalServerError, trips[1].StatusCode)
	assert.Error(t, trips[1].Err)
}

func TestConcurrentCalls(t *testing.T) {
	server := createMockServer(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`<envelope><echo>` + strconv.Itoa(len(body)) + `</echo></envelope>`))
	})
	defer server.Close()

	client := createTestClient(t, server.URL)

	futures := make([]*roap.Future[roap.Document], 0, 20)
	bodies := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		body := strings.Repeat("x", i)
		bodies = append(bodies, body)
		futures = append(futures, client.Post(context.Background(), roap.CommandEndpoint, body))
	}

	for i, f := range futures {
		doc, err := f.Result()
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(len(bodies[i])), doc["echo"])
	}
}
