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

package kernel

import "encoding/binary"

// RequestIssuedPayload is the typed view of a request_issued event's
// 240-byte payload: the request id, the connection it was sent on, a
// small fixed-width method tag, and the scenario request's index.
type RequestIssuedPayload struct {
	RequestID    uint64
	ConnectionID uint32
	RequestIndex uint32
	TimeoutTicks uint64
	Method       uint8 // see MethodTag
}

// MethodTag compactly identifies an HTTP method for payload encoding.
type MethodTag uint8

const (
	MethodUnknown MethodTag = iota
	MethodGet
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
	MethodHead
	MethodOptions
)

func (p RequestIssuedPayload) Encode() [PayloadSize]byte {
	var buf [PayloadSize]byte
	binary.BigEndian.PutUint64(buf[0:], p.RequestID)
	binary.BigEndian.PutUint32(buf[8:], p.ConnectionID)
	binary.BigEndian.PutUint32(buf[12:], p.RequestIndex)
	binary.BigEndian.PutUint64(buf[16:], p.TimeoutTicks)
	buf[24] = p.Method
	return buf
}

func DecodeRequestIssuedPayload(buf [PayloadSize]byte) RequestIssuedPayload {
	return RequestIssuedPayload{
		RequestID:    binary.BigEndian.Uint64(buf[0:]),
		ConnectionID: binary.BigEndian.Uint32(buf[8:]),
		RequestIndex: binary.BigEndian.Uint32(buf[12:]),
		TimeoutTicks: binary.BigEndian.Uint64(buf[16:]),
		Method:       buf[24],
	}
}

// ResponseReceivedPayload is the typed view of a response_received
// event's payload.
type ResponseReceivedPayload struct {
	RequestID    uint64
	ConnectionID uint32
	StatusCode   uint16
	LatencyTicks uint64
	BodyLength   uint32
}

func (p ResponseReceivedPayload) Encode() [PayloadSize]byte {
	var buf [PayloadSize]byte
	binary.BigEndian.PutUint64(buf[0:], p.RequestID)
	binary.BigEndian.PutUint32(buf[8:], p.ConnectionID)
	binary.BigEndian.PutUint16(buf[12:], p.StatusCode)
	binary.BigEndian.PutUint64(buf[16:], p.LatencyTicks)
	binary.BigEndian.PutUint32(buf[24:], p.BodyLength)
	return buf
}

func DecodeResponseReceivedPayload(buf [PayloadSize]byte) ResponseReceivedPayload {
	return ResponseReceivedPayload{
		RequestID:    binary.BigEndian.Uint64(buf[0:]),
		ConnectionID: binary.BigEndian.Uint32(buf[8:]),
		StatusCode:   binary.BigEndian.Uint16(buf[12:]),
		LatencyTicks: binary.BigEndian.Uint64(buf[16:]),
		BodyLength:   binary.BigEndian.Uint32(buf[24:]),
	}
}

// ConnEstablishedPayload is the typed view of a conn_established event's
// payload.
type ConnEstablishedPayload struct {
	ConnectionID uint32
	Port         uint16
	HTTPVersion  uint8 // 1 = HTTP/1.1, 2 = HTTP/2
	Host         [225]byte // zero-padded, truncated if longer
}

func (p ConnEstablishedPayload) Encode() [PayloadSize]byte {
	var buf [PayloadSize]byte
	binary.BigEndian.PutUint32(buf[0:], p.ConnectionID)
	binary.BigEndian.PutUint16(buf[4:], p.Port)
	buf[6] = p.HTTPVersion
	copy(buf[7:], p.Host[:])
	return buf
}

func DecodeConnEstablishedPayload(buf [PayloadSize]byte) ConnEstablishedPayload {
	var p ConnEstablishedPayload
	p.ConnectionID = binary.BigEndian.Uint32(buf[0:])
	p.Port = binary.BigEndian.Uint16(buf[4:])
	p.HTTPVersion = buf[6]
	copy(p.Host[:], buf[7:7+len(p.Host)])
	return p
}

// EncodeHost truncates/pads s into a fixed 225-byte field.
func EncodeHost(s string) [225]byte {
	var out [225]byte
	copy(out[:], s)
	return out
}

// DecodeHostString trims trailing zero bytes from a fixed host field.
func DecodeHostString(b [225]byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// ErrorPayload is the typed view for the seven error_* event types: a
// short fixed-width error code plus the id (request or connection) the
// error pertains to.
type ErrorPayload struct {
	RequestID    uint64
	ConnectionID uint32
	Code         [32]byte // zero-padded ASCII error code, e.g. "timeout"
}

func (p ErrorPayload) Encode() [PayloadSize]byte {
	var buf [PayloadSize]byte
	binary.BigEndian.PutUint64(buf[0:], p.RequestID)
	binary.BigEndian.PutUint32(buf[8:], p.ConnectionID)
	copy(buf[12:], p.Code[:])
	return buf
}

func DecodeErrorPayload(buf [PayloadSize]byte) ErrorPayload {
	var p ErrorPayload
	p.RequestID = binary.BigEndian.Uint64(buf[0:])
	p.ConnectionID = binary.BigEndian.Uint32(buf[8:])
	copy(p.Code[:], buf[12:12+len(p.Code)])
	return p
}
