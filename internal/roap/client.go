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

package roap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"roapctl/internal/logger"
)

const (
	// DefaultPort is the ROAP HTTP port used when none is configured.
	DefaultPort = 8080

	// DefaultTimeout bounds a single round trip on the default HTTP client.
	DefaultTimeout = 30 * time.Second

	// ContentTypeXML is sent with every envelope.
	ContentTypeXML = "application/atom+xml"
)

// RawResponse is an undecoded response body.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RoundTrip describes one completed HTTP exchange for an Observer.
type RoundTrip struct {
	Method     string
	Path       string
	StatusCode int // 0 when no response was received
	Duration   time.Duration
	Err        error
}

// Observer is notified after every round trip.
type Observer interface {
	ObserveRoundTrip(rt RoundTrip)
}

// Client talks to a single TV. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	host       string
	port       int
	baseURL    string
	endpoints  Endpoints
	encode     Encoder
	decoder    Decoder
	pairingKey string
	logger     zerolog.Logger
	observer   Observer

	// Operation groups
	Auth    *AuthService
	Command *CommandService
	Data    *DataService
}

// Option configures a Client.
type Option func(*Client)

// WithPort sets the TV's ROAP port. The default is 8080.
func WithPort(port int) Option {
	return func(c *Client) {
		c.port = port
	}
}

// WithEndpoints replaces the whole endpoint table.
func WithEndpoints(endpoints Endpoints) Option {
	return func(c *Client) {
		c.endpoints = endpoints
	}
}

// WithEncoder replaces the envelope encoder.
func WithEncoder(encode Encoder) Option {
	return func(c *Client) {
		if encode != nil {
			c.encode = encode
		}
	}
}

// WithDecoder replaces the response decoder.
func WithDecoder(decoder Decoder) Option {
	return func(c *Client) {
		c.decoder = decoder
	}
}

// WithPairingKey stores a default pairing key for Auth.AuthReq.
func WithPairingKey(key string) Option {
	return func(c *Client) {
		c.pairingKey = key
	}
}

// WithHTTPClient replaces the HTTP transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithLogger replaces the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithObserver registers an Observer for round trip notifications.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client for the TV at host.
func New(host string, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		host:      strings.TrimSpace(host),
		port:      DefaultPort,
		endpoints: DefaultEndpoints(),
		encode:    Encode,
		logger:    logger.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.host == "" {
		return nil, configurationError("new client", errors.New("host is required"))
	}
	if c.port <= 0 || c.port > 65535 {
		return nil, configurationError("new client", fmt.Errorf("invalid port %d", c.port))
	}

	c.baseURL = "http://" + net.JoinHostPort(c.host, strconv.Itoa(c.port))
	c.logger = c.logger.With().Str("tv", c.baseURL).Logger()

	c.Auth = &AuthService{client: c}
	c.Command = &CommandService{client: c}
	c.Data = &DataService{client: c}

	return c, nil
}

// BaseURL returns the scheme, host and port requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoints returns the endpoint table in use.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// Post sends body to path and decodes the response.
func (c *Client) Post(ctx context.Context, path, body string) *Future[Document] {
	return Go(func() (Document, error) {
		raw, err := c.roundTrip(ctx, http.MethodPost, path, body, nil)
		if err != nil {
			return nil, err
		}
		return c.decoder.Decode(raw.Body).Result()
	})
}

// Get queries path with params as the query string and decodes the response.
func (c *Client) Get(ctx context.Context, path string, params Params) *Future[Document] {
	return Go(func() (Document, error) {
		raw, err := c.roundTrip(ctx, http.MethodGet, path, "", params)
		if err != nil {
			return nil, err
		}
		return c.decoder.Decode(raw.Body).Result()
	})
}

// GetRaw is like Get but returns the response undecoded.
func (c *Client) GetRaw(ctx context.Context, path string, params Params) *Future[*RawResponse] {
	return Go(func() (*RawResponse, error) {
		return c.roundTrip(ctx, http.MethodGet, path, "", params)
	})
}

// send encodes params into a group envelope and posts it to the group endpoint.
func (c *Client) send(ctx context.Context, group Group, params Params) *Future[Document] {
	path, err := c.endpoints.Path(group)
	if err != nil {
		return Rejected[Document](err)
	}

	body, err := c.encode(string(group), params)
	if err != nil {
		var roapErr *Error
		if !errors.As(err, &roapErr) {
			err = encodingError("encode", err)
		}
		return Rejected[Document](err)
	}

	return c.Post(ctx, path, body)
}

// query sends params as a GET query to the group endpoint.
func (c *Client) query(ctx context.Context, group Group, params Params) *Future[Document] {
	path, err := c.endpoints.Path(group)
	if err != nil {
		return Rejected[Document](err)
	}
	if _, err := EncodeQuery(params); err != nil {
		return Rejected[Document](err)
	}
	return c.Get(ctx, path, params)
}

func (c *Client) roundTrip(ctx context.Context, method, path, body string, params Params) (*RawResponse, error) {
	op := strings.ToLower(method) + " " + path

	target := c.baseURL + path
	if len(params) > 0 {
		q, err := EncodeQuery(params)
		if err != nil {
			return nil, err
		}
		target += "?" + q
	}

	var reqBody io.Reader
	if method == http.MethodPost {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, configurationError(op, fmt.Errorf("failed to create request: %w", err))
	}

	if method == http.MethodPost {
		req.Header.Set("Content-Type", ContentTypeXML)
		req.Header.Set("Connection", "Keep-Alive")
	} else {
		req.Close = true
	}

	requestID := uuid.NewString()
	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("url", target).
		Int("bytes", len(body)).
		Msg("Sending ROAP request")

	start := time.Now()
	raw, err := c.exchange(req, op)
	elapsed := time.Since(start)

	status := 0
	if raw != nil {
		status = raw.StatusCode
	}
	if c.observer != nil {
		c.observer.ObserveRoundTrip(RoundTrip{
			Method:     method,
			Path:       path,
			StatusCode: status,
			Duration:   elapsed,
			Err:        err,
		})
	}

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("request_id", requestID).
			Int("status", status).
			Msg("ROAP request failed")
		return nil, err
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Int("status", status).
		Dur("duration", elapsed).
		Str("body", string(raw.Body)).
		Msg("ROAP request completed")

	return raw, nil
}

func (c *Client) exchange(req *http.Request, op string) (*RawResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	raw := &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}
	if err != nil {
		return raw, transportError(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, transportError(op, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}

	return raw, nil
}

// EncodeQuery renders params as a query string in order. Keys and values are
// percent-encoded, with spaces as %20.
func EncodeQuery(params Params) (string, error) {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		v, err := FormatScalar(p.Value)
		if err != nil {
			return "", encodingError("encode query", fmt.Errorf("parameter %q: %w", p.Key, err))
		}
		parts = append(parts, escapeComponent(p.Key)+"="+escapeComponent(v))
	}
	return strings.Join(parts, "&"), nil
}

func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
