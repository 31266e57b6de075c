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

package hpack

import (
	"reflect"
	"testing"
)

// TestRoundTrip covers testable property #9 from spec.md §8: encode
// then decode returns the original fields.
func TestRoundTrip(t *testing.T) {
	fields := []HeaderField{
		{":method", "GET"},
		{":path", "/widgets"},
		{":scheme", "https"},
		{":authority", "example.test"},
		{"user-agent", "z6/1.0"},
		{"x-custom-header", "some-value"},
	}
	encoded := Encode(fields)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fields, decoded) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, fields)
	}
}

func TestEncodeUsesFullStaticMatch(t *testing.T) {
	out := Encode([]HeaderField{{":method", "GET"}})
	if len(out) != 1 || out[0] != (0x80|2) {
		t.Fatalf("expected single-byte fully-indexed reference to static index 2, got %v", out)
	}
}

func TestEncodeUsesNameOnlyStaticMatch(t *testing.T) {
	out := Encode([]HeaderField{{":path", "/widgets"}})
	decoded, err := Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].Name != ":path" || decoded[0].Value != "/widgets" {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestDecodeRejectsHuffman(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x81, 0xff})
	if err == nil {
		t.Fatal("expected an error for huffman-coded string literal")
	}
}

func TestDecodeAcceptsIncrementalIndexingLiteral(t *testing.T) {
	// 0x40: literal with incremental indexing, new name ("a"), new value ("b").
	// No dynamic table backs the field, but the wire form itself is legal
	// and must decode rather than error.
	decoded, err := Decode([]byte{0x40, 0x01, 'a', 0x01, 'b'})
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].Name != "a" || decoded[0].Value != "b" {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestDecodeAcceptsIncrementalIndexingWithStaticName(t *testing.T) {
	// 0x40 | 2: literal with incremental indexing, name from static index 2
	// (":method"), new value ("PATCH").
	decoded, err := Decode([]byte{0x42, 0x05, 'P', 'A', 'T', 'C', 'H'})
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].Name != ":method" || decoded[0].Value != "PATCH" {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestDecodeIgnoresDynamicTableSizeUpdate(t *testing.T) {
	// 0x20 | 16: dynamic table size update to 16, followed by a fully
	// indexed static reference to ":method: GET". The update must be
	// skipped with no field emitted for it.
	decoded, err := Decode([]byte{0x30, 0x80 | 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].Name != ":method" || decoded[0].Value != "GET" {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestDecodeRejectsUnknownStaticIndex(t *testing.T) {
	_, err := Decode([]byte{0xFF, 0x00})
	if err == nil {
		t.Fatal("expected an error for an out-of-range static index")
	}
}
