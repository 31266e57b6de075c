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

// Package zerr implements the error taxonomy from spec.md §7: a small
// Kind enum crossed with a stable string Code, wrapping an underlying
// cause with the standard %w idiom so callers can still errors.As into
// *zerr.Error or errors.Is against a cause.
package zerr

import "fmt"

// Kind is the axis of spec.md §7's taxonomy distinguishing where an
// error originated.
type Kind string

const (
	KindTransport Kind = "transport"
	KindProtocolH1 Kind = "protocol_h1"
	KindProtocolH2 Kind = "protocol_h2"
	KindHPACK      Kind = "hpack"
	KindResource   Kind = "resource"
	KindScenario   Kind = "scenario"
)

// Well-known codes. Event payloads and CLI messages reference these
// stable strings rather than Go type names, so the on-disk event log
// format does not depend on internal type layout.
const (
	CodeDNS                  = "dns"
	CodeTCP                  = "tcp"
	CodeTLS                  = "tls"
	CodeTimeout               = "timeout"
	CodeConnectionReset       = "connection_reset"
	CodeInvalidStatusLine     = "invalid_status_line"
	CodeInvalidHeader         = "invalid_header"
	CodeTooManyHeaders        = "too_many_headers"
	CodeHeaderTooLarge        = "header_too_large"
	CodeBodyTooLarge          = "body_too_large"
	CodeMalformedChunkedBody  = "malformed_chunked_body"
	CodeIncompleteResponse    = "incomplete_response"
	CodeUnsupportedTransferEncoding = "unsupported_transfer_encoding"
	CodeInvalidChunkSize      = "invalid_chunk_size"
	CodeFrameTooShort         = "frame_too_short"
	CodeFrameTooLarge         = "frame_too_large"
	CodeInvalidFrameType      = "invalid_frame_type"
	CodeProtocolError         = "protocol_error"
	CodeFlowControlError      = "flow_control_error"
	CodeStreamLimitExceeded   = "stream_limit_exceeded"
	CodeStreamReset           = "stream_reset"
	CodeBufferTooSmall        = "buffer_too_small"
	CodeInvalidIndex          = "invalid_index"
	CodeInvalidEncoding       = "invalid_encoding"
	CodeConnectionPoolExhausted = "connection_pool_exhausted"
	CodeLogFull               = "log_full"
	CodeOutOfMemory           = "out_of_memory"
	CodeMissingRequiredField  = "missing_required_field"
	CodeInvalidValue          = "invalid_value"
	CodeFileTooLarge          = "file_too_large"
	CodeTooManyRequests       = "too_many_requests"
)

// Error is the concrete error type produced throughout Z6. Kind and Code
// classify it; Cause, if non-nil, is the underlying error it wraps.
type Error struct {
	Kind  Kind
	Code  string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Kind, e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Wrap constructs an *Error wrapping cause.
func Wrap(kind Kind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg, Cause: cause}
}
