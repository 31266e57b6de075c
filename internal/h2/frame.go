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

// Package h2 implements the HTTP/2 frame codec (spec.md §4.4 component
// I), a static-table-only HPACK codec (component J, in the hpack
// subpackage), and the stream-multiplexing protocol engine built on
// both (component K). Dynamic HPACK tables, Huffman-coded string
// decoding, and server push are explicit Non-goals per spec.md §1.
package h2

import (
	"encoding/binary"
	"fmt"

	"z6/internal/zerr"
)

// FrameType is one of the ten frame types RFC 7540 defines and
// spec.md §4.4 enumerates.
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameRSTStream    FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9
)

// Frame flags, named per-type by RFC 7540 §6.
const (
	FlagEndStream  uint8 = 0x1
	FlagEndHeaders uint8 = 0x4
	FlagPadded     uint8 = 0x8
	FlagPriority   uint8 = 0x20
	FlagACK        uint8 = 0x1
)

const (
	frameHeaderSize    = 9
	defaultMaxFrame    = 16 * 1024
	maxFramePayload    = 16*1024*1024 - 1
)

// Preface is the 24-byte connection preface a client must send first.
var Preface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// Frame is a decoded HTTP/2 frame.
type Frame struct {
	Type     FrameType
	Flags    uint8
	StreamID uint32 // 31 bits; top bit always masked to 0
	Payload  []byte
}

func protoErr(format string, args ...any) *zerr.Error {
	return zerr.New(zerr.KindProtocolH2, zerr.CodeProtocolError, fmt.Sprintf(format, args...))
}

func flowErr(format string, args ...any) *zerr.Error {
	return zerr.New(zerr.KindProtocolH2, zerr.CodeFlowControlError, fmt.Sprintf(format, args...))
}

// ParseFrame decodes a single frame from the front of buf, returning the
// number of bytes consumed. It returns (nil, 0, nil) if buf does not yet
// hold a complete frame (not an error — the caller should read more).
func ParseFrame(buf []byte) (*Frame, int, error) {
	if len(buf) < frameHeaderSize {
		return nil, 0, nil
	}
	length := int(buf[0])<<16 | int(buf[1])<<8 | int(buf[2])
	if length > maxFramePayload {
		return nil, 0, zerr.New(zerr.KindProtocolH2, zerr.CodeFrameTooLarge, "frame payload exceeds 16MiB-1")
	}
	total := frameHeaderSize + length
	if len(buf) < total {
		return nil, 0, nil
	}
	f := &Frame{
		Type:     FrameType(buf[3]),
		Flags:    buf[4],
		StreamID: binary.BigEndian.Uint32(buf[5:9]) & 0x7FFFFFFF,
		Payload:  append([]byte(nil), buf[frameHeaderSize:total]...),
	}
	if err := validateFrame(f); err != nil {
		return nil, 0, err
	}
	return f, total, nil
}

func validateFrame(f *Frame) error {
	switch f.Type {
	case FrameSettings:
		if f.StreamID != 0 {
			return protoErr("SETTINGS must have stream id 0")
		}
		if f.Flags&FlagACK != 0 {
			if len(f.Payload) != 0 {
				return protoErr("SETTINGS ACK must have empty payload")
			}
		} else if len(f.Payload)%6 != 0 {
			return protoErr("SETTINGS payload must be a multiple of 6 bytes")
		}
	case FrameData:
		if f.StreamID == 0 {
			return protoErr("DATA requires a nonzero stream id")
		}
	case FramePing:
		if f.StreamID != 0 {
			return protoErr("PING must have stream id 0")
		}
		if len(f.Payload) != 8 {
			return zerr.New(zerr.KindProtocolH2, zerr.CodeFrameTooShort, "PING payload must be 8 bytes")
		}
	case FramePriority:
		if f.StreamID == 0 {
			return protoErr("PRIORITY requires a nonzero stream id")
		}
		if len(f.Payload) != 5 {
			return zerr.New(zerr.KindProtocolH2, zerr.CodeFrameTooShort, "PRIORITY payload must be 5 bytes")
		}
	case FrameRSTStream:
		if f.StreamID == 0 {
			return protoErr("RST_STREAM requires a nonzero stream id")
		}
		if len(f.Payload) != 4 {
			return zerr.New(zerr.KindProtocolH2, zerr.CodeFrameTooShort, "RST_STREAM payload must be 4 bytes")
		}
	case FrameGoAway:
		if f.StreamID != 0 {
			return protoErr("GOAWAY must have stream id 0")
		}
		if len(f.Payload) < 8 {
			return zerr.New(zerr.KindProtocolH2, zerr.CodeFrameTooShort, "GOAWAY payload must be >= 8 bytes")
		}
	case FrameWindowUpdate:
		if len(f.Payload) != 4 {
			return zerr.New(zerr.KindProtocolH2, zerr.CodeFrameTooShort, "WINDOW_UPDATE payload must be 4 bytes")
		}
		if binary.BigEndian.Uint32(f.Payload)&0x7FFFFFFF == 0 {
			return flowErr("WINDOW_UPDATE increment must be nonzero")
		}
	case FrameHeaders:
		if f.StreamID == 0 {
			return protoErr("HEADERS requires a nonzero stream id")
		}
	case FrameContinuation:
		if f.StreamID == 0 {
			return protoErr("CONTINUATION requires a nonzero stream id")
		}
	case FramePushPromise:
		if f.StreamID == 0 {
			return protoErr("PUSH_PROMISE requires a nonzero stream id")
		}
	default:
		// unknown frame types are ignored per spec.md §4.4
	}
	return nil
}

// SettingsParam is a single (id, value) pair from a SETTINGS frame.
type SettingsParam struct {
	ID    uint16
	Value uint32
}

// ParseSettings decodes a non-ACK SETTINGS payload into its parameters.
func ParseSettings(payload []byte) []SettingsParam {
	params := make([]SettingsParam, 0, len(payload)/6)
	for i := 0; i+6 <= len(payload); i += 6 {
		params = append(params, SettingsParam{
			ID:    binary.BigEndian.Uint16(payload[i:]),
			Value: binary.BigEndian.Uint32(payload[i+2:]),
		})
	}
	return params
}

// EncodeSettings serializes SETTINGS parameters into a frame payload.
func EncodeSettings(params []SettingsParam) []byte {
	out := make([]byte, 0, len(params)*6)
	for _, p := range params {
		var b [6]byte
		binary.BigEndian.PutUint16(b[0:], p.ID)
		binary.BigEndian.PutUint32(b[2:], p.Value)
		out = append(out, b[:]...)
	}
	return out
}

// StripPadding removes HEADERS/DATA padding when FlagPadded is set,
// returning the unpadded payload (pad length byte + trailing padding
// removed).
func StripPadding(payload []byte, flags uint8) ([]byte, error) {
	if flags&FlagPadded == 0 {
		return payload, nil
	}
	if len(payload) < 1 {
		return nil, zerr.New(zerr.KindProtocolH2, zerr.CodeFrameTooShort, "PADDED frame missing pad length byte")
	}
	padLen := int(payload[0])
	rest := payload[1:]
	if padLen > len(rest) {
		return nil, protoErr("pad length exceeds remaining payload")
	}
	return rest[:len(rest)-padLen], nil
}

// StripPriority removes the 5-byte priority prefix from a HEADERS
// payload when FlagPriority is set.
func StripPriority(payload []byte, flags uint8) ([]byte, error) {
	if flags&FlagPriority == 0 {
		return payload, nil
	}
	if len(payload) < 5 {
		return nil, zerr.New(zerr.KindProtocolH2, zerr.CodeFrameTooShort, "PRIORITY-flagged HEADERS too short")
	}
	return payload[5:], nil
}

// Serialize encodes f into its 9-byte-header wire form.
func Serialize(f Frame) []byte {
	out := make([]byte, frameHeaderSize+len(f.Payload))
	length := len(f.Payload)
	out[0] = byte(length >> 16)
	out[1] = byte(length >> 8)
	out[2] = byte(length)
	out[3] = byte(f.Type)
	out[4] = f.Flags
	binary.BigEndian.PutUint32(out[5:9], f.StreamID&0x7FFFFFFF)
	copy(out[frameHeaderSize:], f.Payload)
	return out
}
