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
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind. Use errors.Is to classify a failure.
var (
	// ErrTransport covers connection failures, timeouts and non-2xx responses.
	ErrTransport = errors.New("transport error")

	// ErrProtocol covers response bodies that are not well-formed XML.
	ErrProtocol = errors.New("protocol error")

	// ErrConfiguration covers missing caller-supplied values such as a pairing key
	// or an endpoint group absent from the registry.
	ErrConfiguration = errors.New("configuration error")

	// ErrEncoding covers parameters that cannot be written into an envelope.
	ErrEncoding = errors.New("encoding error")
)

// ErrorKind categorizes protocol client failures.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindProtocol
	KindConfiguration
	KindEncoding
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindProtocol:
		return ErrProtocol
	case KindConfiguration:
		return ErrConfiguration
	case KindEncoding:
		return ErrEncoding
	default:
		return nil
	}
}

// String returns the kind name as it appears in error messages.
func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Error is the error type returned by every client operation.
type Error struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "post /roap/api/auth"
	Err  error  // underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// StatusError is the cause of a TransportError raised for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

func transportError(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func protocolError(op string, err error) error {
	return &Error{Kind: KindProtocol, Op: op, Err: err}
}

func configurationError(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

func encodingError(op string, err error) error {
	return &Error{Kind: KindEncoding, Op: op, Err: err}
}
