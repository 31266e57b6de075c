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

package h2

import (
	"encoding/binary"
	"fmt"

	"z6/internal/h2/hpack"
	"z6/internal/kernel"
	"z6/internal/transport"
	"z6/internal/zerr"
)

const (
	maxConnections    = 10_000
	maxStreamsPerConn = 10 // spec.md §8 property 7: concurrent streams ≤ 10 per HTTP/2 connection
	maxBodyBytes      = 16 * 1024
	initialWindow     = 65_535
)

// Header is a single request header supplied by a caller.
type Header struct {
	Name  string
	Value string
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
	Timeout kernel.Tick
}

// Response is a fully reassembled HTTP/2 response.
type Response struct {
	StatusCode int
	Headers    []Header
	Body       []byte
}

// Completion mirrors h1.Completion so the VU engine can treat both
// protocol engines uniformly.
type Completion struct {
	RequestID    uint64
	ConnectionID uint32
	Response     *Response
	Err          error
}

type streamState uint8

const (
	streamIdle streamState = iota
	streamOpen
	streamHalfClosedLocal
	streamClosed
)

type stream struct {
	id           uint32
	requestID    uint64
	state        streamState
	sentAtTick   kernel.Tick
	timeoutTicks kernel.Tick
	sendWindow   int64
	headerBuf    []byte
	headersDone  bool
	status       int
	body         []byte
}

// Connection is a pooled HTTP/2 connection multiplexing up to
// maxStreamsPerConn concurrent streams over one transport.
type Connection struct {
	ID             uint32
	Host           string
	Port           uint16
	Transport      transport.Transport
	Established    bool
	PrefaceSent    bool
	SettingsAcked  bool
	NextStreamID   uint32
	OpenStreams    int
	SendWindow     int64
	readBuf        []byte
	streams        map[uint32]*stream
	timeoutQ       *kernel.PriorityQueue // stream ids ordered by deadline tick
}

// Engine is the HTTP/2 protocol engine (spec.md §4.5 component K): it
// multiplexes requests to a (host, port) over one connection until that
// connection holds maxStreamsPerConn open streams, then opens another,
// driven one poll at a time.
type Engine struct {
	dialer    transport.Dialer
	pool      *kernel.Arena[*Connection]
	log       *kernel.EventLog
	tick      kernel.Tick
	nextReqID uint64
	byStream  map[uint64]uint32 // requestID -> connectionID, for timeout bookkeeping
}

// NewEngine returns an Engine dialing connections with d and logging
// events to log.
func NewEngine(d transport.Dialer, log *kernel.EventLog) *Engine {
	return &Engine{
		dialer:   d,
		pool:     kernel.NewArena[*Connection](maxConnections),
		log:      log,
		byStream: make(map[uint64]uint32),
	}
}

// SetTick synchronizes the engine's notion of "now" with the scheduler.
func (e *Engine) SetTick(t kernel.Tick) { e.tick = t }

// Connect reuses an established connection to (host, port) with spare
// stream capacity, or opens a new one and sends the connection preface
// plus an initial empty SETTINGS frame.
func (e *Engine) Connect(target Target) (uint32, error) {
	var reuse *uint32
	e.pool.ForEachInUse(func(idx int, c *Connection) {
		if reuse != nil {
			return
		}
		if c.Host == target.Host && c.Port == target.Port && c.OpenStreams < maxStreamsPerConn {
			id := c.ID
			reuse = &id
		}
	})
	if reuse != nil {
		return *reuse, nil
	}

	idx, err := e.pool.Acquire()
	if err != nil {
		return 0, zerr.Wrap(zerr.KindResource, zerr.CodeConnectionPoolExhausted, "h2 connection pool exhausted", err)
	}
	tr, err := e.dialer.Dial(target.Host, target.Port)
	if err != nil {
		e.pool.Release(idx)
		return 0, zerr.Wrap(zerr.KindTransport, zerr.CodeTCP, fmt.Sprintf("dial %s:%d", target.Host, target.Port), err)
	}
	conn := &Connection{
		ID:           uint32(idx) + 1,
		Host:         target.Host,
		Port:         target.Port,
		Transport:    tr,
		NextStreamID: 1,
		SendWindow:   initialWindow,
		streams:      make(map[uint32]*stream),
		timeoutQ:     kernel.NewPriorityQueue(),
	}
	out := append([]byte(nil), Preface...)
	out = append(out, Serialize(Frame{Type: FrameSettings, StreamID: 0, Payload: nil})...)
	if _, err := tr.Write(out); err != nil {
		e.pool.Release(idx)
		return 0, zerr.Wrap(zerr.KindTransport, zerr.CodeTCP, "preface write failed", err)
	}
	conn.PrefaceSent = true
	e.pool.Set(idx, conn)
	e.log.Append(kernel.Event{
		Tick: e.tick,
		Type: kernel.EventTypeConnEstablished,
		Payload: kernel.ConnEstablishedPayload{
			ConnectionID: conn.ID,
			Port:         target.Port,
			HTTPVersion:  2,
			Host:         kernel.EncodeHost(target.Host),
		}.Encode(),
	})
	return conn.ID, nil
}

// Send opens a new stream on connID and writes a HEADERS frame with
// END_HEADERS set and a dynamic-table-free HPACK block. When req.Body is
// empty the HEADERS frame also carries END_STREAM; otherwise a DATA
// frame with END_STREAM follows it.
func (e *Engine) Send(connID uint32, req Request) (uint64, error) {
	idx := int(connID) - 1
	if idx < 0 || idx >= e.pool.Cap() || !e.pool.InUseSlot(idx) {
		return 0, zerr.New(zerr.KindResource, zerr.CodeConnectionPoolExhausted, "unknown connection id")
	}
	conn := e.pool.Get(idx)
	if conn.OpenStreams >= maxStreamsPerConn {
		return 0, zerr.New(zerr.KindResource, zerr.CodeStreamLimitExceeded, "connection already has the maximum concurrent streams")
	}

	streamID := conn.NextStreamID
	conn.NextStreamID += 2

	fields := []hpack.HeaderField{
		{Name: ":method", Value: req.Method},
		{Name: ":scheme", Value: "http"},
		{Name: ":authority", Value: conn.Host},
		{Name: ":path", Value: req.Path},
	}
	for _, h := range req.Headers {
		fields = append(fields, hpack.HeaderField{Name: h.Name, Value: h.Value})
	}
	block := hpack.Encode(fields)

	flags := FlagEndHeaders
	if len(req.Body) == 0 {
		flags |= FlagEndStream
	}
	buf := Serialize(Frame{Type: FrameHeaders, Flags: flags, StreamID: streamID, Payload: block})
	if len(req.Body) > 0 {
		buf = append(buf, Serialize(Frame{Type: FrameData, Flags: FlagEndStream, StreamID: streamID, Payload: req.Body})...)
	}

	n, err := conn.Transport.Write(buf)
	if err != nil || n < len(buf) {
		return 0, zerr.Wrap(zerr.KindTransport, zerr.CodeTCP, "short or failed write", err)
	}

	e.nextReqID++
	reqID := e.nextReqID
	conn.streams[streamID] = &stream{
		id:           streamID,
		requestID:    reqID,
		state:        streamOpen,
		sentAtTick:   e.tick,
		timeoutTicks: req.Timeout,
		sendWindow:   conn.SendWindow,
	}
	conn.OpenStreams++
	e.byStream[reqID] = connID
	// Fires once tick has advanced strictly past sentAtTick+timeoutTicks,
	// matching Poll's former e.tick-st.sentAtTick > st.timeoutTicks scan.
	conn.timeoutQ.Push(e.tick+req.Timeout+1, streamID)
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

// Poll reads and dispatches all buffered frames on every connection,
// times out stale streams, and reports Completions for anything that
// resolved this tick.
func (e *Engine) Poll(completions *[]Completion) {
	e.pool.ForEachInUse(func(idx int, conn *Connection) {
		for _, qi := range conn.timeoutQ.PopUpTo(e.tick) {
			st, ok := conn.streams[qi.Work.(uint32)]
			if !ok || st.state == streamClosed {
				continue // resolved normally before its deadline came up
			}
			e.timeoutStream(conn, st, completions)
		}

		tmp := make([]byte, 64*1024)
		n, err := conn.Transport.Read(tmp)
		if err == transport.ErrWouldBlock {
			e.pool.Set(idx, conn)
			return
		}
		if err != nil {
			e.failConnection(conn, completions, zerr.New(zerr.KindTransport, zerr.CodeTCP, "read failed"))
			e.pool.Set(idx, conn)
			return
		}
		conn.readBuf = append(conn.readBuf, tmp[:n]...)

		for {
			f, consumed, ferr := ParseFrame(conn.readBuf)
			if ferr != nil {
				e.failConnection(conn, completions, ferr)
				conn.readBuf = nil
				break
			}
			if f == nil {
				break
			}
			conn.readBuf = conn.readBuf[consumed:]
			e.handleFrame(conn, f, completions)
		}
		e.pool.Set(idx, conn)
	})
}

func (e *Engine) handleFrame(conn *Connection, f *Frame, completions *[]Completion) {
	switch f.Type {
	case FrameSettings:
		if f.Flags&FlagACK == 0 {
			ack := Serialize(Frame{Type: FrameSettings, Flags: FlagACK, StreamID: 0})
			_, _ = conn.Transport.Write(ack)
		} else {
			conn.SettingsAcked = true
		}
	case FramePing:
		if f.Flags&FlagACK == 0 {
			pong := Serialize(Frame{Type: FramePing, Flags: FlagACK, StreamID: 0, Payload: f.Payload})
			_, _ = conn.Transport.Write(pong)
		}
	case FrameWindowUpdate:
		e.applyWindowUpdate(conn, f)
	case FrameHeaders:
		e.handleHeaders(conn, f, completions)
	case FrameContinuation:
		e.handleContinuation(conn, f, completions)
	case FrameData:
		e.handleData(conn, f, completions)
	case FrameRSTStream:
		if st, ok := conn.streams[f.StreamID]; ok {
			e.failStream(conn, st, completions, zerr.New(zerr.KindProtocolH2, zerr.CodeStreamReset, "stream reset by peer"))
		}
	case FrameGoAway:
		e.failConnection(conn, completions, zerr.New(zerr.KindProtocolH2, zerr.CodeProtocolError, "connection received GOAWAY"))
	case FramePriority:
		// priority hints are ignored
	case FramePushPromise:
		e.refusePush(conn, f)
	}
}

// refusePush rejects a PUSH_PROMISE by sending RST_STREAM(CANCEL) on
// the promised stream id, per spec.md's server-push non-goal: pushed
// streams are refused, not silently dropped.
func (e *Engine) refusePush(conn *Connection, f *Frame) {
	payload, err := StripPadding(f.Payload, f.Flags)
	if err != nil || len(payload) < 4 {
		return
	}
	promisedID := binary.BigEndian.Uint32(payload[0:4]) & 0x7FFFFFFF
	rst := Serialize(Frame{Type: FrameRSTStream, StreamID: promisedID, Payload: []byte{0, 0, 0, 0x8}}) // CANCEL
	_, _ = conn.Transport.Write(rst)
}

func (e *Engine) applyWindowUpdate(conn *Connection, f *Frame) {
	incr := int64(f.Payload[0]&0x7F)<<24 | int64(f.Payload[1])<<16 | int64(f.Payload[2])<<8 | int64(f.Payload[3])
	if f.StreamID == 0 {
		conn.SendWindow += incr
		return
	}
	if st, ok := conn.streams[f.StreamID]; ok {
		st.sendWindow += incr
	}
}

func (e *Engine) handleHeaders(conn *Connection, f *Frame, completions *[]Completion) {
	st, ok := conn.streams[f.StreamID]
	if !ok {
		return
	}
	payload, err := StripPadding(f.Payload, f.Flags)
	if err == nil {
		payload, err = StripPriority(payload, f.Flags)
	}
	if err != nil {
		e.failStream(conn, st, completions, err)
		return
	}
	st.headerBuf = append(st.headerBuf, payload...)
	if f.Flags&FlagEndHeaders != 0 {
		e.finishHeaders(conn, st, completions)
	}
	if f.Flags&FlagEndStream != 0 {
		e.maybeComplete(conn, st, completions)
	}
}

func (e *Engine) handleContinuation(conn *Connection, f *Frame, completions *[]Completion) {
	st, ok := conn.streams[f.StreamID]
	if !ok {
		return
	}
	st.headerBuf = append(st.headerBuf, f.Payload...)
	if f.Flags&FlagEndHeaders != 0 {
		e.finishHeaders(conn, st, completions)
	}
}

func (e *Engine) finishHeaders(conn *Connection, st *stream, completions *[]Completion) {
	fields, err := hpack.Decode(st.headerBuf)
	if err != nil {
		e.failStream(conn, st, completions, err)
		return
	}
	for _, f := range fields {
		if f.Name == ":status" {
			fmt.Sscanf(f.Value, "%d", &st.status)
		}
	}
	st.headersDone = true
}

func (e *Engine) handleData(conn *Connection, f *Frame, completions *[]Completion) {
	st, ok := conn.streams[f.StreamID]
	if !ok {
		return
	}
	payload, err := StripPadding(f.Payload, f.Flags)
	if err != nil {
		e.failStream(conn, st, completions, err)
		return
	}
	if len(st.body)+len(payload) > maxBodyBytes {
		e.failStream(conn, st, completions, zerr.New(zerr.KindProtocolH2, zerr.CodeBodyTooLarge, "response body exceeds 16KiB"))
		return
	}
	st.body = append(st.body, payload...)
	if f.Flags&FlagEndStream != 0 {
		e.maybeComplete(conn, st, completions)
	}
}

func (e *Engine) maybeComplete(conn *Connection, st *stream, completions *[]Completion) {
	if !st.headersDone {
		return
	}
	st.state = streamClosed
	conn.OpenStreams--
	delete(e.byStream, st.requestID)
	e.log.Append(kernel.Event{
		Tick: e.tick,
		Type: kernel.EventTypeResponseReceived,
		Payload: kernel.ResponseReceivedPayload{
			RequestID:    st.requestID,
			ConnectionID: conn.ID,
			StatusCode:   uint16(st.status),
			LatencyTicks: uint64(e.tick - st.sentAtTick),
			BodyLength:   uint32(len(st.body)),
		}.Encode(),
	})
	*completions = append(*completions, Completion{
		RequestID:    st.requestID,
		ConnectionID: conn.ID,
		Response:     &Response{StatusCode: st.status, Body: st.body},
	})
	delete(conn.streams, st.id)
}

func (e *Engine) timeoutStream(conn *Connection, st *stream, completions *[]Completion) {
	st.state = streamClosed
	conn.OpenStreams--
	delete(e.byStream, st.requestID)
	delete(conn.streams, st.id)
	rst := Serialize(Frame{Type: FrameRSTStream, StreamID: st.id, Payload: []byte{0, 0, 0, 0x8}}) // CANCEL
	_, _ = conn.Transport.Write(rst)
	e.log.Append(kernel.Event{
		Tick: e.tick,
		Type: kernel.EventTypeRequestTimeout,
		Payload: kernel.ErrorPayload{RequestID: st.requestID, ConnectionID: conn.ID, Code: codeField(zerr.CodeTimeout)}.Encode(),
	})
	*completions = append(*completions, Completion{RequestID: st.requestID, ConnectionID: conn.ID, Err: zerr.New(zerr.KindTransport, zerr.CodeTimeout, "request timed out")})
}

func (e *Engine) failStream(conn *Connection, st *stream, completions *[]Completion, cause error) {
	st.state = streamClosed
	conn.OpenStreams--
	delete(e.byStream, st.requestID)
	delete(conn.streams, st.id)
	code := zerr.CodeProtocolError
	if ze, ok := cause.(*zerr.Error); ok {
		code = ze.Code
	}
	e.log.Append(kernel.Event{
		Tick: e.tick,
		Type: kernel.EventTypeResponseError,
		Payload: kernel.ErrorPayload{RequestID: st.requestID, ConnectionID: conn.ID, Code: codeField(code)}.Encode(),
	})
	*completions = append(*completions, Completion{RequestID: st.requestID, ConnectionID: conn.ID, Err: cause})
}

func (e *Engine) failConnection(conn *Connection, completions *[]Completion, cause error) {
	e.log.Append(kernel.Event{Tick: e.tick, Type: kernel.EventTypeConnError, Payload: kernel.ErrorPayload{ConnectionID: conn.ID, Code: codeField(zerr.CodeTCP)}.Encode()})
	for _, st := range conn.streams {
		if st.state == streamClosed {
			continue
		}
		delete(e.byStream, st.requestID)
		*completions = append(*completions, Completion{RequestID: st.requestID, ConnectionID: conn.ID, Err: cause})
	}
	conn.streams = make(map[uint32]*stream)
	conn.OpenStreams = 0
}

// Close closes connID's transport.
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
	e.log.Append(kernel.Event{Tick: e.tick, Type: kernel.EventTypeConnClosed, Payload: kernel.ConnEstablishedPayload{ConnectionID: connID}.Encode()})
	return err
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
