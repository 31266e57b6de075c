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

package h1

import (
	"fmt"

	"z6/internal/kernel"
	"z6/internal/transport"
	"z6/internal/zerr"
)

const (
	maxConnections        = 10_000
	maxRequestsPerConnection = 100
)

// ConnState is one of the five connection states from spec.md §4.3.
type ConnState uint8

const (
	ConnIdle ConnState = iota
	ConnConnecting
	ConnActive
	ConnClosing
	ConnClosed
)

// Connection is a pooled HTTP/1.1 connection, indexed by opaque id in
// the Engine's arena rather than referenced by pointer.
type Connection struct {
	ID           uint32
	State        ConnState
	Host         string
	Port         uint16
	Transport    transport.Transport
	RequestsSent int
	KeepAlive    bool
	LastUsedTick kernel.Tick
	readBuf      []byte
}

// Target identifies where to connect.
type Target struct {
	Host string
	Port uint16
}

// Request is what a VU hands to the engine.
type Request struct {
	Method  string
	Path    string
	Headers []Header
	Body    []byte
	Timeout kernel.Tick // ticks
}

// Completion is the engine's signal to the VU engine that a request has
// produced a response or an error (spec.md's Completion type).
type Completion struct {
	RequestID    uint64
	ConnectionID uint32
	Response     *Response
	Err          error
}

type pendingRequest struct {
	connectionID uint32
	sentAtTick   kernel.Tick
	timeoutTicks kernel.Tick
}

// Engine is the HTTP/1.1 protocol engine (spec.md §4.3 component H): a
// fixed-capacity connection pool plus a pending-request table, driven
// one poll at a time by the VU execution engine.
type Engine struct {
	dialer    transport.Dialer
	pool      *kernel.Arena[Connection]
	pending   map[uint64]pendingRequest
	timeoutQ  *kernel.PriorityQueue
	log       *kernel.EventLog
	tick      kernel.Tick
	nextReqID uint64
}

// NewEngine returns an Engine dialing connections with d and logging
// events to log.
func NewEngine(d transport.Dialer, log *kernel.EventLog) *Engine {
	return &Engine{
		dialer:   d,
		pool:     kernel.NewArena[Connection](maxConnections),
		pending:  make(map[uint64]pendingRequest),
		timeoutQ: kernel.NewPriorityQueue(),
		log:      log,
	}
}

// SetTick synchronizes the engine's notion of "now" with the scheduler
// before the next Poll call.
func (e *Engine) SetTick(t kernel.Tick) { e.tick = t }

// Connect reuses an Idle connection to (host, port) with fewer than
// maxRequestsPerConnection requests sent, or opens a new one. It fails
// with ConnectionPoolExhausted once the pool is full.
func (e *Engine) Connect(target Target) (uint32, error) {
	var reuse *uint32
	e.pool.ForEachInUse(func(idx int, c Connection) {
		if reuse != nil {
			return
		}
		if c.State == ConnIdle && c.Host == target.Host && c.Port == target.Port && c.RequestsSent < maxRequestsPerConnection {
			id := c.ID
			reuse = &id
		}
	})
	if reuse != nil {
		return *reuse, nil
	}

	idx, err := e.pool.Acquire()
	if err != nil {
		return 0, zerr.Wrap(zerr.KindResource, zerr.CodeConnectionPoolExhausted, "h1 connection pool exhausted", err)
	}
	tr, err := e.dialer.Dial(target.Host, target.Port)
	if err != nil {
		e.pool.Release(idx)
		return 0, zerr.Wrap(zerr.KindTransport, zerr.CodeTCP, fmt.Sprintf("dial %s:%d", target.Host, target.Port), err)
	}
	conn := Connection{
		ID:           uint32(idx) + 1,
		State:        ConnActive,
		Host:         target.Host,
		Port:         target.Port,
		Transport:    tr,
		KeepAlive:    true,
		LastUsedTick: e.tick,
	}
	e.pool.Set(idx, conn)
	e.emitConn(conn.ID, kernel.EventTypeConnEstablished, target)
	return conn.ID, nil
}

// Send serializes req onto connID and records it as pending.
func (e *Engine) Send(connID uint32, req Request) (uint64, error) {
	idx := int(connID) - 1
	if idx < 0 || idx >= e.pool.Cap() || !e.pool.InUseSlot(idx) {
		return 0, zerr.New(zerr.KindResource, zerr.CodeConnectionPoolExhausted, "unknown connection id")
	}
	conn := e.pool.Get(idx)

	buf := serializeRequest(conn.Host, req)
	n, err := conn.Transport.Write(buf)
	if err != nil || n < len(buf) {
		conn.State = ConnClosing
		e.pool.Set(idx, conn)
		return 0, zerr.Wrap(zerr.KindTransport, zerr.CodeTCP, "short or failed write", err)
	}

	e.nextReqID++
	reqID := e.nextReqID
	e.pending[reqID] = pendingRequest{connectionID: connID, sentAtTick: e.tick, timeoutTicks: req.Timeout}
	// Fires once tick has advanced strictly past sentAtTick+timeoutTicks,
	// matching the e.tick-pr.sentAtTick > pr.timeoutTicks test Poll used
	// to apply with a linear scan.
	e.timeoutQ.Push(e.tick+req.Timeout+1, reqID)

	conn.RequestsSent++
	conn.State = ConnActive
	conn.LastUsedTick = e.tick
	e.pool.Set(idx, conn)

	e.log.Append(kernel.Event{
		Tick: e.tick,
		Type: kernel.EventTypeRequestIssued,
		Payload: kernel.RequestIssuedPayload{
			RequestID:    reqID,
			ConnectionID: connID,
			TimeoutTicks: uint64(req.Timeout),
			Method:       uint8(methodTag(req.Method)),
		}.Encode(),
	})
	return reqID, nil
}

// Poll advances request timeouts and attempts one non-blocking read per
// Active connection, appending Completions for everything that resolved
// this tick.
func (e *Engine) Poll(completions *[]Completion) {
	for _, qi := range e.timeoutQ.PopUpTo(e.tick) {
		reqID := qi.Work.(uint64)
		pr, ok := e.pending[reqID]
		if !ok {
			continue // resolved by a read before its deadline came up
		}
		delete(e.pending, reqID)
		e.log.Append(kernel.Event{
			Tick: e.tick,
			Type: kernel.EventTypeRequestTimeout,
			Payload: kernel.ErrorPayload{RequestID: reqID, ConnectionID: pr.connectionID, Code: codeField(zerr.CodeTimeout)}.Encode(),
		})
		*completions = append(*completions, Completion{RequestID: reqID, ConnectionID: pr.connectionID, Err: zerr.New(zerr.KindTransport, zerr.CodeTimeout, "request timed out")})
	}

	e.pool.ForEachInUse(func(idx int, conn Connection) {
		if conn.State != ConnActive {
			return
		}
		tmp := make([]byte, 64*1024)
		n, err := conn.Transport.Read(tmp)
		if err == transport.ErrWouldBlock {
			return
		}
		if err != nil {
			conn.State = ConnClosed
			e.pool.Set(idx, conn)
			e.emitConnError(conn.ID)
			e.failPendingOnConnection(conn.ID, completions, zerr.New(zerr.KindTransport, zerr.CodeTCP, "read failed"))
			return
		}
		conn.readBuf = append(conn.readBuf, tmp[:n]...)
		resp, perr := Parse(conn.readBuf)
		if perr != nil {
			if pe, ok := perr.(*ParseError); ok && pe.Code == errIncompleteSentinel {
				e.pool.Set(idx, conn)
				return // need more bytes
			}
			conn.State = ConnClosing
			e.pool.Set(idx, conn)
			e.emitResponseError(conn.ID, perr)
			e.failOldestPendingOnConnection(conn.ID, completions, perr)
			return
		}
		conn.readBuf = conn.readBuf[resp.BytesConsumed:]
		if resp.KeepAlive {
			conn.State = ConnIdle
		} else {
			conn.State = ConnClosing
		}
		e.pool.Set(idx, conn)
		e.completeOldestPendingOnConnection(conn.ID, resp, completions)
	})
}

// Close closes connID's transport and marks it Closed.
func (e *Engine) Close(connID uint32) error {
	idx := int(connID) - 1
	if idx < 0 || idx >= e.pool.Cap() || !e.pool.InUseSlot(idx) {
		return nil
	}
	conn := e.pool.Get(idx)
	var err error
	if conn.Transport != nil {
		err = conn.Transport.Close()
	}
	conn.State = ConnClosed
	e.pool.Set(idx, conn)
	e.log.Append(kernel.Event{Tick: e.tick, Type: kernel.EventTypeConnClosed, Payload: kernel.ConnEstablishedPayload{ConnectionID: connID}.Encode()})
	return err
}

func (e *Engine) failPendingOnConnection(connID uint32, completions *[]Completion, cause error) {
	for reqID, pr := range e.pending {
		if pr.connectionID == connID {
			delete(e.pending, reqID)
			*completions = append(*completions, Completion{RequestID: reqID, ConnectionID: connID, Err: cause})
		}
	}
}

func (e *Engine) failOldestPendingOnConnection(connID uint32, completions *[]Completion, cause error) {
	reqID, ok := e.oldestPendingOn(connID)
	if !ok {
		return
	}
	delete(e.pending, reqID)
	*completions = append(*completions, Completion{RequestID: reqID, ConnectionID: connID, Err: cause})
}

func (e *Engine) completeOldestPendingOnConnection(connID uint32, resp *Response, completions *[]Completion) {
	reqID, ok := e.oldestPendingOn(connID)
	if !ok {
		return
	}
	pr := e.pending[reqID]
	delete(e.pending, reqID)
	e.log.Append(kernel.Event{
		Tick: e.tick,
		Type: kernel.EventTypeResponseReceived,
		Payload: kernel.ResponseReceivedPayload{
			RequestID:    reqID,
			ConnectionID: connID,
			StatusCode:   uint16(resp.StatusCode),
			LatencyTicks: uint64(e.tick - pr.sentAtTick),
			BodyLength:   uint32(len(resp.Body)),
		}.Encode(),
	})
	*completions = append(*completions, Completion{RequestID: reqID, ConnectionID: connID, Response: resp})
}

func (e *Engine) oldestPendingOn(connID uint32) (uint64, bool) {
	var best uint64
	var bestTick kernel.Tick
	found := false
	for reqID, pr := range e.pending {
		if pr.connectionID != connID {
			continue
		}
		if !found || pr.sentAtTick < bestTick || (pr.sentAtTick == bestTick && reqID < best) {
			best, bestTick, found = reqID, pr.sentAtTick, true
		}
	}
	return best, found
}

func (e *Engine) emitConn(connID uint32, t kernel.EventType, target Target) {
	e.log.Append(kernel.Event{
		Tick: e.tick,
		Type: t,
		Payload: kernel.ConnEstablishedPayload{
			ConnectionID: connID,
			Port:         target.Port,
			HTTPVersion:  1,
			Host:         kernel.EncodeHost(target.Host),
		}.Encode(),
	})
}

func (e *Engine) emitConnError(connID uint32) {
	e.log.Append(kernel.Event{Tick: e.tick, Type: kernel.EventTypeConnError, Payload: kernel.ErrorPayload{ConnectionID: connID, Code: codeField(zerr.CodeTCP)}.Encode()})
}

func (e *Engine) emitResponseError(connID uint32, err error) {
	code := zerr.CodeInvalidHeader
	if pe, ok := err.(*ParseError); ok {
		code = pe.Code
	}
	e.log.Append(kernel.Event{Tick: e.tick, Type: kernel.EventTypeResponseError, Payload: kernel.ErrorPayload{ConnectionID: connID, Code: codeField(code)}.Encode()})
}

func codeField(s string) [32]byte {
	var out [32]byte
	copy(out[:], s)
	return out
}

func methodTag(m string) kernel.MethodTag {
	switch m {
	case "GET":
		return kernel.MethodGet
	case "POST":
		return kernel.MethodPost
	case "PUT":
		return kernel.MethodPut
	case "DELETE":
		return kernel.MethodDelete
	case "PATCH":
		return kernel.MethodPatch
	case "HEAD":
		return kernel.MethodHead
	case "OPTIONS":
		return kernel.MethodOptions
	default:
		return kernel.MethodUnknown
	}
}

func serializeRequest(host string, req Request) []byte {
	var out []byte
	out = append(out, []byte(fmt.Sprintf("%s %s HTTP/1.1\r\n", req.Method, req.Path))...)
	out = append(out, []byte(fmt.Sprintf("Host: %s\r\n", host))...)
	hasContentLength := false
	for _, h := range req.Headers {
		if lowerASCII(string(h.Name)) == "content-length" {
			hasContentLength = true
		}
		out = append(out, h.Name...)
		out = append(out, ':', ' ')
		out = append(out, h.Value...)
		out = append(out, '\r', '\n')
	}
	if req.Body != nil && !hasContentLength {
		out = append(out, []byte(fmt.Sprintf("Content-Length: %d\r\n", len(req.Body)))...)
	}
	out = append(out, '\r', '\n')
	out = append(out, req.Body...)
	return out
}
