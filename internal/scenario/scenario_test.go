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

package scenario

import "testing"

const validTOML = `
[runtime]
duration_seconds = 30
vus = 10

[target]
host = "example.test"
port = 8080
http_version = "h1_1"

[[requests]]
name = "home"
method = "GET"
path = "/"
timeout_ms = 1000
weight = 1.0

[[requests]]
name = "create"
method = "POST"
path = "/widgets"
timeout_ms = 2000
weight = 0.5

[schedule]
kind = "constant"
vus = 10

[assertions]
p99_latency_ms = 500.0
error_rate_max = 0.01
`

func TestParseValidScenario(t *testing.T) {
	s, err := Parse([]byte(validTOML))
	if err != nil {
		t.Fatal(err)
	}
	if s.Runtime.VUs != 10 || len(s.Requests) != 2 {
		t.Fatalf("unexpected scenario: %+v", s)
	}
	if s.TotalWeight() != 1.5 {
		t.Fatalf("total weight = %v, want 1.5", s.TotalWeight())
	}
}

func TestValidateRejectsZeroVUs(t *testing.T) {
	s := &Scenario{
		Runtime:  Runtime{DurationSeconds: 1, VUs: 0},
		Target:   Target{Host: "a", HTTPVersion: HTTP1_1},
		Requests: []Request{{Method: "GET", Path: "/", Weight: 1}},
	}
	if err := Validate(s); err == nil {
		t.Fatal("expected an error for vus = 0")
	}
}

func TestValidateRejectsTooManyVUs(t *testing.T) {
	s := &Scenario{
		Runtime:  Runtime{DurationSeconds: 1, VUs: 10_001},
		Target:   Target{Host: "a", HTTPVersion: HTTP1_1},
		Requests: []Request{{Method: "GET", Path: "/", Weight: 1}},
	}
	if err := Validate(s); err == nil {
		t.Fatal("expected an error for vus > 10000")
	}
}

func TestValidateRejectsZeroWeight(t *testing.T) {
	s := &Scenario{
		Runtime:  Runtime{DurationSeconds: 1, VUs: 1},
		Target:   Target{Host: "a", HTTPVersion: HTTP1_1},
		Requests: []Request{{Method: "GET", Path: "/", Weight: 0}},
	}
	if err := Validate(s); err == nil {
		t.Fatal("expected an error for weight <= 0")
	}
}

func TestValidateRejectsTLS(t *testing.T) {
	s := &Scenario{
		Runtime:  Runtime{DurationSeconds: 1, VUs: 1},
		Target:   Target{Host: "a", HTTPVersion: HTTP1_1, TLS: true},
		Requests: []Request{{Method: "GET", Path: "/", Weight: 1}},
	}
	if err := Validate(s); err == nil {
		t.Fatal("expected an error for target.tls = true")
	}
}

func TestValidateRejectsBadHTTPVersion(t *testing.T) {
	s := &Scenario{
		Runtime:  Runtime{DurationSeconds: 1, VUs: 1},
		Target:   Target{Host: "a", HTTPVersion: "h3"},
		Requests: []Request{{Method: "GET", Path: "/", Weight: 1}},
	}
	if err := Validate(s); err == nil {
		t.Fatal("expected an error for an unknown http_version")
	}
}

func TestValidateRejectsStepsScheduleWithoutSteps(t *testing.T) {
	s := &Scenario{
		Runtime:  Runtime{DurationSeconds: 1, VUs: 1},
		Target:   Target{Host: "a", HTTPVersion: HTTP1_1},
		Requests: []Request{{Method: "GET", Path: "/", Weight: 1}},
		Schedule: Schedule{Kind: ScheduleSteps},
	}
	if err := Validate(s); err == nil {
		t.Fatal("expected an error for an empty steps schedule")
	}
}

func TestHashIsDeterministic(t *testing.T) {
	s, err := Parse([]byte(validTOML))
	if err != nil {
		t.Fatal(err)
	}
	h1, _ := s.Hash()
	h2, _ := s.Hash()
	if h1 != h2 {
		t.Fatal("expected Hash to be deterministic for an unchanged scenario")
	}
}
