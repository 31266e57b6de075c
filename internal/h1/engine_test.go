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
	"testing"

	"z6/internal/kernel"
	"z6/internal/transport"
)

func TestEngineSendAndReceive(t *testing.T) {
	dialer := transport.NewFakeDialer()
	log := kernel.NewEventLog(0)
	eng := NewEngine(dialer, log)

	connID, err := eng.Connect(Target{Host: "example.test", Port: 80})
	if err != nil {
		t.Fatal(err)
	}
	reqID, err := eng.Send(connID, Request{Method: "GET", Path: "/", Timeout: 1000})
	if err != nil {
		t.Fatal(err)
	}

	fake := dialer.Last("example.test", 80)
	fake.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))

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

	connID, err := eng.Connect(Target{Host: "example.test", Port: 80})
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

func TestEnginePoolExhaustion(t *testing.T) {
	dialer := transport.NewFakeDialer()
	log := kernel.NewEventLog(0)
	eng := NewEngine(dialer, log)
	eng.pool = kernel.NewArena[Connection](1)

	if _, err := eng.Connect(Target{Host: "a", Port: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Connect(Target{Host: "b", Port: 2}); err == nil {
		t.Fatal("expected pool exhaustion for a different target")
	}
}

func TestEngineReusesIdleConnection(t *testing.T) {
	dialer := transport.NewFakeDialer()
	log := kernel.NewEventLog(0)
	eng := NewEngine(dialer, log)

	id1, _ := eng.Connect(Target{Host: "a", Port: 1})
	_, _ = eng.Send(id1, Request{Method: "GET", Path: "/", Timeout: 100})
	fake := dialer.Last("a", 1)
	fake.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	var completions []Completion
	eng.Poll(&completions)

	id2, err := eng.Connect(Target{Host: "a", Port: 1})
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("expected idle connection reuse, got new id %d != %d", id2, id1)
	}
}
