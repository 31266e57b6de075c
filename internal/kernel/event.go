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

import (
	"encoding/binary"
	"hash/crc64"
)

// Event layout sizes, per spec.md §3. These are invariants, not tuning
// knobs: EventSize must stay 272 for every record ever written to an
// EventLog, on disk or in memory.
const (
	HeaderSize   = 24
	PayloadSize  = 240
	ChecksumSize = 8
	EventSize    = HeaderSize + PayloadSize + ChecksumSize // 272

	headerOffset   = 0
	payloadOffset  = HeaderSize
	checksumOffset = HeaderSize + PayloadSize
)

// EventType enumerates the 22 variants from spec.md §3. Zero is a
// reserved/unspecified sentinel so a zero-filled record is detectably
// not a real event, leaving 21 meaningful variants.
type EventType uint16

const (
	EventTypeUnspecified EventType = iota

	EventTypeVUSpawned
	EventTypeVUReady
	EventTypeVUComplete

	EventTypeRequestIssued
	EventTypeRequestTimeout
	EventTypeRequestCancelled

	EventTypeResponseReceived
	EventTypeResponseError

	EventTypeConnEstablished
	EventTypeConnClosed
	EventTypeConnError

	EventTypeSchedulerTick

	EventTypeAssertionPassed
	EventTypeAssertionFailed

	EventTypeErrorDNS
	EventTypeErrorTCP
	EventTypeErrorTLS
	EventTypeErrorHTTP
	EventTypeErrorTimeout
	EventTypeErrorProtocolViolation
	EventTypeErrorResourceExhausted
)

var eventTypeNames = map[EventType]string{
	EventTypeUnspecified:            "unspecified",
	EventTypeVUSpawned:              "vu_spawned",
	EventTypeVUReady:                "vu_ready",
	EventTypeVUComplete:             "vu_complete",
	EventTypeRequestIssued:          "request_issued",
	EventTypeRequestTimeout:         "request_timeout",
	EventTypeRequestCancelled:       "request_cancelled",
	EventTypeResponseReceived:       "response_received",
	EventTypeResponseError:          "response_error",
	EventTypeConnEstablished:        "conn_established",
	EventTypeConnClosed:             "conn_closed",
	EventTypeConnError:              "conn_error",
	EventTypeSchedulerTick:          "scheduler_tick",
	EventTypeAssertionPassed:        "assertion_passed",
	EventTypeAssertionFailed:        "assertion_failed",
	EventTypeErrorDNS:               "error_dns",
	EventTypeErrorTCP:               "error_tcp",
	EventTypeErrorTLS:               "error_tls",
	EventTypeErrorHTTP:              "error_http",
	EventTypeErrorTimeout:           "error_timeout",
	EventTypeErrorProtocolViolation: "error_protocol_violation",
	EventTypeErrorResourceExhausted: "error_resource_exhausted",
}

func (t EventType) String() string {
	if s, ok := eventTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// crcTable is the CRC-64 (ECMA) table used for per-event integrity.
var crcTable = crc64.MakeTable(crc64.ECMA)

// Event is the 272-byte fixed record described in spec.md §3: a 24-byte
// header, a 240-byte event-type-specific payload, and an 8-byte CRC-64
// checksum over the preceding 264 bytes.
type Event struct {
	Tick      Tick
	VUID      uint32
	Type      EventType
	// Payload holds the raw 240-byte event-specific body. Use the
	// RequestIssuedPayload / ResponseReceivedPayload / ConnEstablishedPayload
	// helpers to encode/decode typed views; unknown payload bytes are
	// always zero-filled per spec.md §3.
	Payload [PayloadSize]byte
}

// Marshal serializes e into the exact 272-byte on-the-wire form,
// including a freshly computed checksum. The header's reserved 8 bytes
// are always zero.
func (e *Event) Marshal() [EventSize]byte {
	var buf [EventSize]byte
	binary.BigEndian.PutUint64(buf[headerOffset:], uint64(e.Tick))
	binary.BigEndian.PutUint32(buf[headerOffset+8:], e.VUID)
	binary.BigEndian.PutUint16(buf[headerOffset+12:], uint16(e.Type))
	// bytes [14:16) pad, [16:24) reserved: left zero.
	copy(buf[payloadOffset:checksumOffset], e.Payload[:])
	sum := crc64.Checksum(buf[:checksumOffset], crcTable)
	binary.BigEndian.PutUint64(buf[checksumOffset:], sum)
	return buf
}

// Unmarshal populates e from a 272-byte record produced by Marshal. It
// does not validate the checksum; call ValidateChecksum for that.
func (e *Event) Unmarshal(buf [EventSize]byte) {
	e.Tick = Tick(binary.BigEndian.Uint64(buf[headerOffset:]))
	e.VUID = binary.BigEndian.Uint32(buf[headerOffset+8:])
	e.Type = EventType(binary.BigEndian.Uint16(buf[headerOffset+12:]))
	copy(e.Payload[:], buf[payloadOffset:checksumOffset])
}

// Checksum returns the CRC-64 over the header+payload of e, as it would
// appear in the serialized checksum field.
func (e *Event) Checksum() uint64 {
	buf := e.Marshal()
	return binary.BigEndian.Uint64(buf[checksumOffset:])
}

// ValidateChecksum reports whether the checksum embedded in buf matches
// the CRC-64 of the 264 bytes preceding it.
func ValidateChecksum(buf [EventSize]byte) bool {
	want := binary.BigEndian.Uint64(buf[checksumOffset:])
	got := crc64.Checksum(buf[:checksumOffset], crcTable)
	return want == got
}

// Equal reports whether e and other would serialize identically.
func (e *Event) Equal(other *Event) bool {
	return e.Marshal() == other.Marshal()
}
