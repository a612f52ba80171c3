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

// Package roaptest provides a fake ROAP television for tests.
package roaptest

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"roapctl/internal/roap"
)

// OKBody is the envelope returned for successful commands.
const OKBody = `<?xml version="1.0" encoding="utf-8"?><envelope><ROAPError>200</ROAPError><ROAPErrorDetail>OK</ROAPErrorDetail></envelope>`

// Session is the session id handed out for a successful AuthReq.
const Session = "1234567890"

// Request is a request received by the fake TV.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Query    url.Values
	Header   http.Header
	Close    bool
	Body     string
	Envelope roap.Document // decoded body for POST requests
}

// Response is a canned reply.
type Response struct {
	Status int
	Body   string
}

// Server is a fake TV backed by httptest.Server.
type Server struct {
	*httptest.Server

	// PairingKey, when set, is the only key AuthReq accepts.
	PairingKey string

	mu        sync.Mutex
	requests  []Request
	paths     map[string]Response
	targets   map[string]Response
	endpoints roap.Endpoints
}

// NewServer starts a fake TV serving the default endpoints.
func NewServer() *Server {
	return NewServerWithEndpoints(roap.DefaultEndpoints())
}

// NewServerWithEndpoints starts a fake TV serving custom endpoint paths.
func NewServerWithEndpoints(endpoints roap.Endpoints) *Server {
	s := &Server{
		paths:     make(map[string]Response),
		targets:   make(map[string]Response),
		endpoints: endpoints,
	}

	router := mux.NewRouter()
	if p, err := endpoints.Path(roap.GroupAuth); err == nil {
		router.HandleFunc(p, s.handleAuth).Methods(http.MethodPost)
	}
	if p, err := endpoints.Path(roap.GroupCommand); err == nil {
		router.HandleFunc(p, s.handleCommand).Methods(http.MethodPost)
	}
	if p, err := endpoints.Path(roap.GroupData); err == nil {
		router.HandleFunc(p, s.handleData).Methods(http.MethodGet)
	}
	router.NotFoundHandler = http.HandlerFunc(s.handleUnknown)
	router.MethodNotAllowedHandler = http.HandlerFunc(s.handleUnknown)

	s.Server = httptest.NewServer(router)
	return s
}

// Host returns the host the server listens on.
func (s *Server) Host() string {
	host, _ := s.hostPort()
	return host
}

// Port returns the port the server listens on.
func (s *Server) Port() int {
	_, port := s.hostPort()
	return port
}

func (s *Server) hostPort() (string, int) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", 0
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// Client returns a protocol client pointed at the server.
func (s *Server) Client(opts ...roap.Option) *roap.Client {
	all := append([]roap.Option{roap.WithPort(s.Port()), roap.WithEndpoints(s.endpoints)}, opts...)
	c, err := roap.New(s.Host(), all...)
	if err != nil {
		panic(fmt.Sprintf("roaptest: %v", err))
	}
	return c
}

// Respond overrides the reply for every request to path.
func (s *Server) Respond(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = Response{Status: status, Body: body}
}

// RespondTarget sets the reply for a data query target.
func (s *Server) RespondTarget(target string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[target] = Response{Status: status, Body: body}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) record(r *http.Request) Request {
	body, _ := io.ReadAll(r.Body)
	req := Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Query:    r.URL.Query(),
		Header:   r.Header.Clone(),
		Close:    r.Close,
		Body:     string(body),
	}
	if r.Method == http.MethodPost {
		if doc, err := (roap.Decoder{}).Parse(body); err == nil {
			req.Envelope = doc
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return req
}

func (s *Server) override(path string) (Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.paths[path]
	return resp, ok
}

func write(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	req := s.record(r)
	if resp, ok := s.override(req.Path); ok {
		write(w, resp)
		return
	}

	kind, _ := req.Envelope.String("type")
	switch kind {
	case roap.AuthKeyReq, roap.CancelAuthKeyReq:
		write(w, Response{Status: http.StatusOK, Body: OKBody})
	case roap.AuthReq:
		value, _ := req.Envelope.String("value")
		if s.PairingKey != "" && value != s.PairingKey {
			write(w, Response{Status: http.StatusUnauthorized, Body: errorBody(401, "Unauthorized")})
			return
		}
		write(w, Response{Status: http.StatusOK, Body: fmt.Sprintf(
			`<?xml version="1.0" encoding="utf-8"?><envelope><ROAPError>200</ROAPError><ROAPErrorDetail>OK</ROAPErrorDetail><session>%s</session></envelope>`,
			Session)})
	default:
		write(w, Response{Status: http.StatusBadRequest, Body: errorBody(400, "Bad Request")})
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	req := s.record(r)
	if resp, ok := s.override(req.Path); ok {
		write(w, resp)
		return
	}
	if _, ok := req.Envelope.String("name"); !ok {
		write(w, Response{Status: http.StatusBadRequest, Body: errorBody(400, "Bad Request")})
		return
	}
	write(w, Response{Status: http.StatusOK, Body: OKBody})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	req := s.record(r)
	if resp, ok := s.override(req.Path); ok {
		write(w, resp)
		return
	}

	s.mu.Lock()
	resp, ok := s.targets[req.Query.Get("target")]
	s.mu.Unlock()
	if !ok {
		resp = Response{Status: http.StatusOK, Body: OKBody}
	}
	write(w, resp)
}

func (s *Server) handleUnknown(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	write(w, Response{Status: http.StatusNotFound, Body: errorBody(404, "Not Found")})
}

func errorBody(code int, detail string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?><envelope><ROAPError>%d</ROAPError><ROAPErrorDetail>%s</ROAPErrorDetail></envelope>`, code, detail)
}
