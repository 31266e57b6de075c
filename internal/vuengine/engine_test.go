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

package vuengine

import (
	"testing"

	"z6/internal/h1"
	"z6/internal/kernel"
	"z6/internal/scenario"
	"z6/internal/transport"
)

const cannedResponse = "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: keep-alive\r\n\r\nOK"

func buildTestScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Runtime: scenario.Runtime{DurationSeconds: 1, VUs: 1},
		Target:  scenario.Target{Host: "example.test", Port: 80, HTTPVersion: scenario.HTTP1_1},
		Requests: []scenario.Request{
			{Name: "home", Method: "GET", Path: "/", TimeoutMS: 5000, Weight: 1},
		},
		Schedule: scenario.Schedule{Kind: scenario.ScheduleConstant},
	}
}

// TestEngineDrivesSingleVUToCompletion runs a one-VU, one-request
// scenario end to end over a fake transport, feeding a canned response
// each time the engine writes a new request, until the VU reaches
// Complete.
func TestEngineDrivesSingleVUToCompletion(t *testing.T) {
	s := buildTestScenario()
	log := kernel.NewEventLog(4096)
	sched := kernel.NewScheduler(int(s.Runtime.VUs), kernel.NewPRNG(1), log)
	dialer := transport.NewFakeDialer()
	proto := NewH1Adapter(h1.NewEngine(dialer, log))
	e := New(s, sched, proto)

	var lastSent int
	iterations := 0
	for !e.Done() {
		iterations++
		if iterations > 5000 {
			t.Fatal("engine never reached Done")
		}
		if err := e.Step(sched.Tick()); err != nil {
			t.Fatalf("Step: %v", err)
		}
		fake := dialer.Last("example.test", 80)
		if fake != nil && fake.Sent.Len() > lastSent {
			fake.Feed([]byte(cannedResponse))
			lastSent = fake.Sent.Len()
		}
	}

	v := sched.Find(1)
	if v == nil || v.State != kernel.VUComplete {
		t.Fatalf("expected VU 1 to be Complete, got %+v", v)
	}

	issued := countEvents(log, kernel.EventTypeRequestIssued)
	if issued == 0 {
		t.Fatal("expected at least one request_issued event")
	}
	responses := countEvents(log, kernel.EventTypeResponseReceived)
	if responses != issued {
		t.Fatalf("issued %d requests but received %d responses", issued, responses)
	}
}

// TestEngineNeverHangsOnUnansweredRequest covers a VU whose request is
// never answered: the request's own timeout, or failing that the
// engine's duration_ticks+1000 safety bound, must still bring the run
// to a stop.
func TestEngineNeverHangsOnUnansweredRequest(t *testing.T) {
	s := buildTestScenario()
	log := kernel.NewEventLog(4096)
	sched := kernel.NewScheduler(int(s.Runtime.VUs), kernel.NewPRNG(1), log)
	dialer := transport.NewFakeDialer()
	proto := NewH1Adapter(h1.NewEngine(dialer, log))
	e := New(s, sched, proto)

	iterations := 0
	for !e.Done() {
		iterations++
		if iterations > 5000 {
			t.Fatal("engine never reached Done despite safety bound")
		}
		if err := e.Step(sched.Tick()); err != nil {
			t.Fatalf("Step: %v", err)
		}
		// Never feed a response: the request times out instead.
	}

	if sched.Tick() < s.Runtime.DurationSeconds*kernel.TicksPerSecond {
		t.Fatalf("expected the run to reach at least duration_ticks, got tick %d", sched.Tick())
	}
}

func countEvents(log *kernel.EventLog, want kernel.EventType) int {
	n := 0
	for i := 0; i < log.Len(); i++ {
		if log.At(i).Type == want {
			n++
		}
	}
	return n
}
