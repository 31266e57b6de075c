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

// Package e2e drives full scenario-to-metrics runs through
// internal/vuengine and internal/reducer against internal/transport's
// fake dialer, covering the six end-to-end scenarios (E1-E6) from
// spec.md §8 at the whole-pipeline level rather than per-component, the
// way the teacher's test/e2e launches the whole server binary instead
// of unit-testing individual handlers.
package e2e

import (
	"testing"

	"z6/internal/h1"
	"z6/internal/h2"
	"z6/internal/h2/hpack"
	"z6/internal/kernel"
	"z6/internal/reducer"
	"z6/internal/scenario"
	"z6/internal/transport"
	"z6/internal/vuengine"
)

func seedUint64(v uint64) *uint64 { return &v }

func oneRequestScenario(version scenario.HTTPVersion, timeoutMS uint64) *scenario.Scenario {
	return &scenario.Scenario{
		Runtime: scenario.Runtime{DurationSeconds: 1, VUs: 1, PRNGSeed: seedUint64(42)},
		Target:  scenario.Target{Host: "example.test", Port: 80, HTTPVersion: version},
		Requests: []scenario.Request{
			{Name: "home", Method: "GET", Path: "/", TimeoutMS: timeoutMS, Weight: 1},
		},
		Schedule: scenario.Schedule{Kind: scenario.ScheduleConstant},
	}
}

// runToCompletion drives e until Done, calling poll after every Step so
// callers can script responses as soon as the engine's writes land.
func runToCompletion(t *testing.T, e *vuengine.Engine, sched *kernel.Scheduler, poll func()) {
	t.Helper()
	iterations := 0
	for !e.Done() {
		iterations++
		if iterations > 10_000 {
			t.Fatal("engine never reached Done")
		}
		if err := e.Step(sched.Tick()); err != nil {
			t.Fatalf("Step: %v", err)
		}
		poll()
	}
}

// TestE1OneVUOneRequestClosedBody covers E1: a single VU, single
// request, Content-Length-terminated 200 response.
func TestE1OneVUOneRequestClosedBody(t *testing.T) {
	s := oneRequestScenario(scenario.HTTP1_1, 1000)
	log := kernel.NewEventLog(4096)
	sched := kernel.NewScheduler(int(s.Runtime.VUs), kernel.NewPRNG(*s.Runtime.PRNGSeed), log)
	dialer := transport.NewFakeDialer()
	engine := vuengine.New(s, sched, vuengine.NewH1Adapter(h1.NewEngine(dialer, log)))

	var lastSent int
	runToCompletion(t, engine, sched, func() {
		fake := dialer.Last("example.test", 80)
		if fake != nil && fake.Sent.Len() > lastSent {
			fake.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
			lastSent = fake.Sent.Len()
		}
	})

	m := reducer.Reduce(log)
	if m.Requests.Total != 1 || m.Requests.Success != 1 {
		t.Fatalf("requests = %+v, want total=1 success=1", m.Requests)
	}
	if m.Requests.ByStatusClass["2xx"] != 1 {
		t.Fatalf("by_status_class[2xx] = %d, want 1", m.Requests.ByStatusClass["2xx"])
	}
	if m.Requests.ByMethod["GET"] != 1 {
		t.Fatalf("by_method[GET] = %d, want 1", m.Requests.ByMethod["GET"])
	}
	if m.Errors.Total != 0 {
		t.Fatalf("errors.total = %d, want 0", m.Errors.Total)
	}
	if m.Latency.P50 <= 0 {
		t.Fatalf("latency.p50 = %d, want > 0", m.Latency.P50)
	}
}

// TestE2ChunkedBody covers E2: a chunked-encoded response body.
func TestE2ChunkedBody(t *testing.T) {
	s := oneRequestScenario(scenario.HTTP1_1, 1000)
	log := kernel.NewEventLog(4096)
	sched := kernel.NewScheduler(int(s.Runtime.VUs), kernel.NewPRNG(*s.Runtime.PRNGSeed), log)
	dialer := transport.NewFakeDialer()
	engine := vuengine.New(s, sched, vuengine.NewH1Adapter(h1.NewEngine(dialer, log)))

	var lastSent int
	runToCompletion(t, engine, sched, func() {
		fake := dialer.Last("example.test", 80)
		if fake != nil && fake.Sent.Len() > lastSent {
			fake.Feed([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"))
			lastSent = fake.Sent.Len()
		}
	})

	m := reducer.Reduce(log)
	if m.Requests.SuccessRate != 1.0 {
		t.Fatalf("success_rate = %v, want 1.0", m.Requests.SuccessRate)
	}
	if m.Errors.Total != 0 {
		t.Fatalf("errors.total = %d, want 0", m.Errors.Total)
	}
}

// TestE3Timeout covers E3: a silent server, so every request times out.
func TestE3Timeout(t *testing.T) {
	s := oneRequestScenario(scenario.HTTP1_1, 10)
	log := kernel.NewEventLog(4096)
	sched := kernel.NewScheduler(int(s.Runtime.VUs), kernel.NewPRNG(*s.Runtime.PRNGSeed), log)
	dialer := transport.NewFakeDialer()
	engine := vuengine.New(s, sched, vuengine.NewH1Adapter(h1.NewEngine(dialer, log)))

	runToCompletion(t, engine, sched, func() {})

	m := reducer.Reduce(log)
	if m.Errors.Timeout != m.Requests.Total {
		t.Fatalf("errors.timeout = %d, requests.total = %d, want equal", m.Errors.Timeout, m.Requests.Total)
	}
	if m.Requests.SuccessRate != 0 {
		t.Fatalf("success_rate = %v, want 0", m.Requests.SuccessRate)
	}
}

// TestE4HTTP2Get covers E4: a single HTTP/2 GET over one stream.
func TestE4HTTP2Get(t *testing.T) {
	s := oneRequestScenario(scenario.HTTP2, 1000)
	log := kernel.NewEventLog(4096)
	sched := kernel.NewScheduler(int(s.Runtime.VUs), kernel.NewPRNG(*s.Runtime.PRNGSeed), log)
	dialer := transport.NewFakeDialer()
	engine := vuengine.New(s, sched, vuengine.NewH2Adapter(h2.NewEngine(dialer, log)))

	var fed bool
	runToCompletion(t, engine, sched, func() {
		if fed {
			return
		}
		fake := dialer.Last("example.test", 80)
		if fake == nil || fake.Sent.Len() == 0 {
			return
		}
		headerBlock := hpack.Encode([]hpack.HeaderField{{Name: ":status", Value: "200"}})
		settingsAck := h2.Serialize(h2.Frame{Type: h2.FrameSettings, Flags: h2.FlagACK})
		headers := h2.Serialize(h2.Frame{Type: h2.FrameHeaders, Flags: h2.FlagEndHeaders | h2.FlagEndStream, StreamID: 1, Payload: headerBlock})
		fake.Feed(append(settingsAck, headers...))
		fed = true
	})

	m := reducer.Reduce(log)
	if m.Requests.ByStatusClass["2xx"] != 1 {
		t.Fatalf("by_status_class[2xx] = %d, want 1", m.Requests.ByStatusClass["2xx"])
	}
}

// TestE5Determinism covers E5: the same scenario and seed produce
// byte-identical event logs.
func TestE5Determinism(t *testing.T) {
	run := func() *kernel.EventLog {
		s := oneRequestScenario(scenario.HTTP1_1, 1000)
		log := kernel.NewEventLog(4096)
		sched := kernel.NewScheduler(int(s.Runtime.VUs), kernel.NewPRNG(*s.Runtime.PRNGSeed), log)
		dialer := transport.NewFakeDialer()
		engine := vuengine.New(s, sched, vuengine.NewH1Adapter(h1.NewEngine(dialer, log)))

		var lastSent int
		runToCompletion(t, engine, sched, func() {
			fake := dialer.Last("example.test", 80)
			if fake != nil && fake.Sent.Len() > lastSent {
				fake.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
				lastSent = fake.Sent.Len()
			}
		})
		return log
	}

	a := run()
	b := run()
	if a.Len() != b.Len() {
		t.Fatalf("log lengths differ: %d vs %d", a.Len(), b.Len())
	}
	for i := 0; i < a.Len(); i++ {
		if a.At(i) != b.At(i) {
			t.Fatalf("event %d differs between runs", i)
		}
	}
}

// TestE6WeightedSelection covers E6: over many draws, a two-request
// scenario weighted 0.75/0.25 selects each request in roughly that
// ratio.
func TestE6WeightedSelection(t *testing.T) {
	s := &scenario.Scenario{
		Runtime: scenario.Runtime{DurationSeconds: 60, VUs: 1, PRNGSeed: seedUint64(7)},
		Target:  scenario.Target{Host: "example.test", Port: 80, HTTPVersion: scenario.HTTP1_1},
		Requests: []scenario.Request{
			{Name: "heavy", Method: "GET", Path: "/heavy", TimeoutMS: 500, Weight: 0.75},
			{Name: "light", Method: "GET", Path: "/light", TimeoutMS: 500, Weight: 0.25},
		},
		Schedule: scenario.Schedule{Kind: scenario.ScheduleConstant},
	}
	log := kernel.NewEventLog(1 << 16)
	sched := kernel.NewScheduler(int(s.Runtime.VUs), kernel.NewPRNG(*s.Runtime.PRNGSeed), log)
	dialer := transport.NewFakeDialer()
	engine := vuengine.New(s, sched, vuengine.NewH1Adapter(h1.NewEngine(dialer, log)))

	var lastSent int
	runToCompletion(t, engine, sched, func() {
		fake := dialer.Last("example.test", 80)
		if fake != nil && fake.Sent.Len() > lastSent {
			fake.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: keep-alive\r\n\r\nOK"))
			lastSent = fake.Sent.Len()
		}
	})

	var heavy, light int
	for i := 0; i < log.Len(); i++ {
		ev := log.At(i)
		if ev.Type != kernel.EventTypeRequestIssued {
			continue
		}
		p := kernel.DecodeRequestIssuedPayload(ev.Payload)
		switch p.RequestIndex {
		case 0:
			heavy++
		case 1:
			light++
		}
	}
	total := heavy + light
	if total == 0 {
		t.Fatal("no requests observed")
	}
	ratio := float64(heavy) / float64(total)
	if ratio < 0.70 || ratio > 0.80 {
		t.Fatalf("heavy ratio = %.4f, want within [0.70, 0.80] of 0.75", ratio)
	}
}
