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

// Package scenario decodes and validates the TOML scenario file
// spec.md §3 and §6 describe: the external, read-only input to the
// simulation core.
package scenario

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"z6/internal/zerr"
)

// HTTPVersion selects the protocol engine a target is driven through.
type HTTPVersion string

const (
	HTTP1_1 HTTPVersion = "h1_1"
	HTTP2   HTTPVersion = "h2"
)

// ScheduleKind is one of the four VU spawn-rate shapes named in
// spec.md §3 but given semantics only by SUPPLEMENTED FEATURES (see
// internal/vuengine/schedule.go).
type ScheduleKind string

const (
	ScheduleConstant ScheduleKind = "constant"
	ScheduleRamp     ScheduleKind = "ramp"
	ScheduleSpike    ScheduleKind = "spike"
	ScheduleSteps    ScheduleKind = "steps"
)

// Runtime holds the run's overall duration, VU count, and optional
// deterministic seed.
type Runtime struct {
	DurationSeconds uint64  `toml:"duration_seconds"`
	VUs             uint32  `toml:"vus"`
	PRNGSeed        *uint64 `toml:"prng_seed"`
}

// Target identifies the single (host, port) every request in the run
// is issued against.
type Target struct {
	Host        string      `toml:"host"`
	Port        uint16      `toml:"port"`
	TLS         bool        `toml:"tls"`
	HTTPVersion HTTPVersion `toml:"http_version"`
}

// Header is a single request header literal.
type Header struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// Request is one weighted request definition a VU may select.
type Request struct {
	Name      string   `toml:"name"`
	Method    string   `toml:"method"`
	Path      string   `toml:"path"`
	TimeoutMS uint64   `toml:"timeout_ms"`
	Headers   []Header `toml:"headers"`
	Body      string   `toml:"body"`
	Weight    float32  `toml:"weight"`
}

// Schedule controls the rate at which VUs are spawned over the run.
type Schedule struct {
	Kind ScheduleKind `toml:"kind"`
	VUs  uint32       `toml:"vus"`
	// Steps is consulted only when Kind == ScheduleSteps: a sequence of
	// (tick, target VU count) waypoints in ascending tick order.
	Steps []ScheduleStep `toml:"steps"`
}

// ScheduleStep is a single waypoint of a "steps" schedule.
type ScheduleStep struct {
	AtTick  uint64 `toml:"at_tick"`
	VUCount uint32 `toml:"vu_count"`
}

// Assertions are pass/fail thresholds evaluated against the computed
// Metrics after a run, per SUPPLEMENTED FEATURES item 4.
type Assertions struct {
	P99LatencyMS    *float64 `toml:"p99_latency_ms"`
	ErrorRateMax    *float64 `toml:"error_rate_max"`
	SuccessRateMin  *float64 `toml:"success_rate_min"`
}

// Scenario is the full, validated external input to a run.
type Scenario struct {
	Runtime    Runtime    `toml:"runtime"`
	Target     Target     `toml:"target"`
	Requests   []Request  `toml:"requests"`
	Schedule   Schedule   `toml:"schedule"`
	Assertions Assertions `toml:"assertions"`
}

func scenarioErr(code, msg string) error {
	return zerr.New(zerr.KindScenario, code, msg)
}

// Load reads and decodes the TOML scenario file at path, then
// validates it per spec.md §6.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.Wrap(zerr.KindScenario, zerr.CodeMissingRequiredField, "read scenario file", err)
	}
	return Parse(data)
}

// Parse decodes and validates scenario TOML already in memory.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if _, err := toml.Decode(string(data), &s); err != nil {
		return nil, zerr.Wrap(zerr.KindScenario, zerr.CodeInvalidValue, "decode scenario TOML", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate enforces spec.md §6's bounds: vus ∈ [1, 10000],
// requests.len ∈ [1, 1000], weight > 0, http_version ∈ {h1_1, h2}, and
// rejects target.tls (Open Question (c): TLS support is out of scope,
// so a scenario that asks for it fails validation rather than being
// silently downgraded to plaintext).
func Validate(s *Scenario) error {
	if s.Runtime.VUs < 1 || s.Runtime.VUs > 10_000 {
		return scenarioErr(zerr.CodeInvalidValue, fmt.Sprintf("runtime.vus = %d, want [1, 10000]", s.Runtime.VUs))
	}
	if s.Runtime.DurationSeconds == 0 {
		return scenarioErr(zerr.CodeMissingRequiredField, "runtime.duration_seconds must be nonzero")
	}
	if len(s.Requests) < 1 || len(s.Requests) > 1000 {
		return scenarioErr(zerr.CodeInvalidValue, fmt.Sprintf("requests has %d entries, want [1, 1000]", len(s.Requests)))
	}
	for i, r := range s.Requests {
		if r.Weight <= 0 {
			return scenarioErr(zerr.CodeInvalidValue, fmt.Sprintf("requests[%d].weight = %v, want > 0", i, r.Weight))
		}
		if r.Method == "" {
			return scenarioErr(zerr.CodeMissingRequiredField, fmt.Sprintf("requests[%d].method is required", i))
		}
		if r.Path == "" {
			return scenarioErr(zerr.CodeMissingRequiredField, fmt.Sprintf("requests[%d].path is required", i))
		}
	}
	switch s.Target.HTTPVersion {
	case HTTP1_1, HTTP2:
	default:
		return scenarioErr(zerr.CodeInvalidValue, fmt.Sprintf("target.http_version = %q, want h1_1 or h2", s.Target.HTTPVersion))
	}
	if s.Target.TLS {
		return scenarioErr(zerr.CodeInvalidValue, "target.tls is unsupported; TLS is an explicit non-goal")
	}
	if s.Target.Host == "" {
		return scenarioErr(zerr.CodeMissingRequiredField, "target.host is required")
	}
	switch s.Schedule.Kind {
	case ScheduleConstant, ScheduleRamp, ScheduleSpike, ScheduleSteps, "":
	default:
		return scenarioErr(zerr.CodeInvalidValue, fmt.Sprintf("schedule.kind = %q is not one of constant, ramp, spike, steps", s.Schedule.Kind))
	}
	if s.Schedule.Kind == ScheduleSteps && len(s.Schedule.Steps) == 0 {
		return scenarioErr(zerr.CodeMissingRequiredField, "schedule.steps must be non-empty when kind = steps")
	}
	return nil
}

// TotalWeight sums every request's weight, the denominator used by the
// VU engine's weighted selection draw.
func (s *Scenario) TotalWeight() float32 {
	var total float32
	for _, r := range s.Requests {
		total += r.Weight
	}
	return total
}

// Hash returns the SHA-256 of a canonical text dump of the scenario
// (duration, vus, target host/port/http_version, each request's method,
// path, name and weight, and schedule kind/vus), stored in the event log
// header as scenario_hash so a replay can detect it was run against a
// different scenario. Seed, timeouts, headers, bodies, schedule steps
// and assertions are not part of the hash.
func (s *Scenario) Hash() ([32]byte, error) {
	var buf []byte
	enc := func(format string, args ...any) {
		buf = append(buf, []byte(fmt.Sprintf(format, args...))...)
	}
	enc("duration_seconds=%d\n", s.Runtime.DurationSeconds)
	enc("vus=%d\n", s.Runtime.VUs)
	enc("host=%s\n", s.Target.Host)
	enc("port=%d\n", s.Target.Port)
	enc("http_version=%s\n", s.Target.HTTPVersion)
	for _, r := range s.Requests {
		enc("request=%s %s %s w=%v\n", r.Method, r.Path, r.Name, r.Weight)
	}
	enc("schedule=%s vus=%d\n", s.Schedule.Kind, s.Schedule.VUs)
	return sha256.Sum256(buf), nil
}
