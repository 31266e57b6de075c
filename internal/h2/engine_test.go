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
	"testing"

	"z6/internal/h2/hpack"
	"z6/internal/kernel"
	"z6/internal/transport"
)

// TestEngineSendAndReceive covers scenario E4 from spec.md §8: a single
// HTTP/2 GET completing over one stream.
func TestEngineSendAndReceive(t *testing.T) {
	dialer := transport.NewFakeDialer()
	log := kernel.NewEventLog(0)
	eng := NewEngine(dialer, log)

	connID, err := eng.Connect(Target{Host: "example.test", Port: 443})
	if err != nil {
		t.Fatal(err)
	}
	reqID, err := eng.Send(connID, Request{Method: "GET", Path: "/", Timeout: 1000})
	if err != nil {
		t.Fatal(err)
	}

	fake := dialer.Last("example.test", 443)

	settingsAck := Serialize(Frame{Type: FrameSettings, Flags: FlagACK})
	headerBlock := hpack.Encode([]hpack.HeaderField{{Name: ":status", Value: "200"}})
	headers := Serialize(Frame{Type: FrameHeaders, Flags: FlagEndHeaders, StreamID: 1, Payload: headerBlock})
	data := Serialize(Frame{Type: FrameData, Flags: FlagEndStream, StreamID: 1, Payload: []byte("hello")})
	fake.Feed(append(append(settingsAck, headers...), data...))

	var completions []Completion
	eng.Poll(&completions)
	if len(completions) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(completions))
	}
	c := completions[0]
	if c.RequestID != reqID || c.Err != nil {
		t.Fatalf("unexpected completion: %+v", c)
	}
	if c.Response.StatusCode != 200 || string(c.Response.Body) != "hello" {
		t.Fatalf("unexpected response: %+v", c.Response)
	}
}

func TestEngineTimeout(t *testing.T) {
	dialer := transport.NewFakeDialer()
	log := kernel.NewEventLog(0)
	eng := NewEngine(dialer, log)

	connID, err := eng.Connect(Target{Host: "example.test", Port: 443})
	if err != nil {
		t.Fatal(err)
	}
	reqID, err := eng.Send(connID, Request{Method: "GET", Path: "/", Timeout: 5})
	if err != nil {
		t.Fatal(err)
	}

	eng.SetTick(10)
	var completions []Completion
	eng.Poll(&completions)
	if len(completions) != 1 || completions[0].RequestID != reqID || completions[0].Err == nil {
		t.Fatalf("expected a timeout completion, got %+v", completions)
	}
}

func TestEngineMultiplexesStreamsOnOneConnection(t *testing.T) {
	dialer := transport.NewFakeDialer()
	log := kernel.NewEventLog(0)
	eng := NewEngine(dialer, log)

	connID, _ := eng.Connect(Target{Host: "a", Port: 443})
	id1, _ := eng.Send(connID, Request{Method: "GET", Path: "/1", Timeout: 100})
	connID2, _ := eng.Connect(Target{Host: "a", Port: 443})
	if connID != connID2 {
		t.Fatalf("expected the second Send to reuse connection %d, got %d", connID, connID2)
	}
	id2, _ := eng.Send(connID2, Request{Method: "GET", Path: "/2", Timeout: 100})
	if id1 == id2 {
		t.Fatal("expected distinct request ids for distinct streams")
	}

	fake := dialer.Last("a", 443)
	block1 := hpack.Encode([]hpack.HeaderField{{Name: ":status", Value: "200"}})
	block2 := hpack.Encode([]hpack.HeaderField{{Name: ":status", Value: "404"}})
	var wire []byte
	wire = append(wire, Serialize(Frame{Type: FrameHeaders, Flags: FlagEndHeaders | FlagEndStream, StreamID: 1, Payload: block1})...)
	wire = append(wire, Serialize(Frame{Type: FrameHeaders, Flags: FlagEndHeaders | FlagEndStream, StreamID: 3, Payload: block2})...)
	fake.Feed(wire)

	var completions []Completion
	eng.Poll(&completions)
	if len(completions) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(completions))
	}
}

func TestEngineRSTStreamFailsOnlyThatStream(t *testing.T) {
	dialer := transport.NewFakeDialer()
	log := kernel.NewEventLog(0)
	eng := NewEngine(dialer, log)

	connID, _ := eng.Connect(Target{Host: "a", Port: 443})
	_, _ = eng.Send(connID, Request{Method: "GET", Path: "/", Timeout: 100})

	fake := dialer.Last("a", 443)
	rst := Serialize(Frame{Type: FrameRSTStream, StreamID: 1, Payload: []byte{0, 0, 0, 8}})
	fake.Feed(rst)

	var completions []Completion
	eng.Poll(&completions)
	if len(completions) != 1 || completions[0].Err == nil {
		t.Fatalf("expected a failed completion from RST_STREAM, got %+v", completions)
	}
}
