// Copyright 2026 The Z6 Authors.
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

// Package transport defines the minimal, non-blocking duplex-byte-stream
// abstraction the HTTP/1.1 and HTTP/2 protocol engines depend on
// (spec.md §5: "the only operations that can block are transport
// reads/writes, which must be performed non-blocking"). It is the same
// shape as the teacher's own RedisEvaler/KafkaProducer interfaces in
// internal/ratelimiter/persistence: the smallest surface a concrete
// client must satisfy, so engines can be driven against a real socket in
// production and a deterministic in-memory fake in tests.
package transport

import (
	"errors"
	"time"
)

// Transport is a single connection's byte-stream handle.
type Transport interface {
	// Read behaves like io.Reader but must never block past its
	// deadline: no data currently available is reported as
	// (0, ErrWouldBlock), which engines treat as a legal no-op per
	// spec.md §5.
	Read(p []byte) (n int, err error)
	// Write is expected to accept the full buffer in one call at this
	// scale; if it cannot, Send fails (the h1 engine also marks the
	// connection Closing).
	Write(p []byte) (n int, err error)
	SetDeadline(t time.Time) error
	Close() error
}

// ErrWouldBlock is returned by Read when no data is currently available
// (for a TCP transport: none arrived before its short read deadline).
var ErrWouldBlock = errors.New("transport: would block")

// Dialer opens a Transport to host:port. ProtocolEngines depend on this
// rather than net.Dial directly so tests can substitute FakeDialer.
type Dialer interface {
	Dial(host string, port uint16) (Transport, error)
}
