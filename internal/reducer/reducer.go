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

// Package reducer implements the single-pass metrics aggregator from
// spec.md §4.6 (component M): it replays a kernel.EventLog once and
// produces a Metrics value, never mutating the log it reads.
package reducer

import (
	"bytes"

	"z6/internal/hist"
	"z6/internal/kernel"
	"z6/internal/scenario"
	"z6/internal/zerr"
)

// RequestCounts breaks request accounting down per spec.md §6.
type RequestCounts struct {
	Total         uint64            `json:"total"`
	Success       uint64            `json:"success"`
	Failed        uint64            `json:"failed"`
	SuccessRate   float64           `json:"success_rate"`
	ByMethod      map[string]uint64 `json:"by_method"`
	ByStatusClass map[string]uint64 `json:"by_status_class"`
}

// Latency summarizes the nanosecond latency histogram.
type Latency struct {
	MinNS       int64   `json:"min_ns"`
	MaxNS       int64   `json:"max_ns"`
	MeanNS      float64 `json:"mean_ns"`
	P50         int64   `json:"p50"`
	P90         int64   `json:"p90"`
	P95         int64   `json:"p95"`
	P99         int64   `json:"p99"`
	P999        int64   `json:"p999"`
	SampleCount int64   `json:"sample_count"`
}

// Throughput summarizes request rate over the observed tick window.
type Throughput struct {
	TotalDurationTicks uint64  `json:"total_duration_ticks"`
	RequestsPerTick    float64 `json:"requests_per_tick"`
	ResponseCount      uint64  `json:"response_count"`
}

// Connections summarizes connection lifecycle accounting.
type Connections struct {
	Total       uint64  `json:"total"`
	Errors      uint64  `json:"errors"`
	AvgTimeNS   float64 `json:"avg_time_ns"`
	TotalTimeNS uint64  `json:"total_time_ns"`
}

// Errors breaks down the seven error taxonomy counters plus a total.
type Errors struct {
	Total     uint64  `json:"total"`
	DNS       uint64  `json:"dns"`
	TCP       uint64  `json:"tcp"`
	TLS       uint64  `json:"tls"`
	HTTP      uint64  `json:"http"`
	Timeout   uint64  `json:"timeout"`
	Protocol  uint64  `json:"protocol"`
	Resource  uint64  `json:"resource"`
	ErrorRate float64 `json:"error_rate"`
}

// Metrics is the reducer's output value type, matching spec.md §6
// exactly plus the start/end tick window.
type Metrics struct {
	Requests    RequestCounts `json:"requests"`
	Latency     Latency       `json:"latency"`
	Throughput  Throughput    `json:"throughput"`
	Connections Connections   `json:"connections"`
	Errors      Errors        `json:"errors"`
	StartTick   kernel.Tick   `json:"start_tick"`
	EndTick     kernel.Tick   `json:"end_tick"`
}

var methodNames = [...]string{"OTHER", "GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

func statusClass(code uint16) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}

// errorBucket classifies a zerr.Code string into one of the seven
// error_* taxonomy counters from spec.md §6/§7.
var errorBucket = map[string]func(*Errors){
	zerr.CodeDNS:     func(e *Errors) { e.DNS++ },
	zerr.CodeTCP:     func(e *Errors) { e.TCP++ },
	zerr.CodeConnectionReset: func(e *Errors) { e.TCP++ },
	zerr.CodeTLS:     func(e *Errors) { e.TLS++ },
	zerr.CodeTimeout: func(e *Errors) { e.Timeout++ },

	zerr.CodeInvalidStatusLine:            func(e *Errors) { e.HTTP++ },
	zerr.CodeInvalidHeader:                func(e *Errors) { e.HTTP++ },
	zerr.CodeTooManyHeaders:                func(e *Errors) { e.HTTP++ },
	zerr.CodeHeaderTooLarge:                func(e *Errors) { e.HTTP++ },
	zerr.CodeBodyTooLarge:                  func(e *Errors) { e.HTTP++ },
	zerr.CodeMalformedChunkedBody:          func(e *Errors) { e.HTTP++ },
	zerr.CodeIncompleteResponse:            func(e *Errors) { e.HTTP++ },
	zerr.CodeUnsupportedTransferEncoding:   func(e *Errors) { e.HTTP++ },
	zerr.CodeInvalidChunkSize:              func(e *Errors) { e.HTTP++ },

	zerr.CodeFrameTooShort:    func(e *Errors) { e.Protocol++ },
	zerr.CodeFrameTooLarge:    func(e *Errors) { e.Protocol++ },
	zerr.CodeInvalidFrameType: func(e *Errors) { e.Protocol++ },
	zerr.CodeProtocolError:    func(e *Errors) { e.Protocol++ },
	zerr.CodeFlowControlError: func(e *Errors) { e.Protocol++ },
	zerr.CodeStreamReset:      func(e *Errors) { e.Protocol++ },
	zerr.CodeInvalidIndex:     func(e *Errors) { e.Protocol++ },
	zerr.CodeInvalidEncoding:  func(e *Errors) { e.Protocol++ },

	zerr.CodeConnectionPoolExhausted: func(e *Errors) { e.Resource++ },
	zerr.CodeStreamLimitExceeded:     func(e *Errors) { e.Resource++ },
	zerr.CodeLogFull:                 func(e *Errors) { e.Resource++ },
	zerr.CodeOutOfMemory:             func(e *Errors) { e.Resource++ },
}

// bumpErrorBucket classifies a zero-padded ASCII code (as carried by
// kernel.ErrorPayload) and increments the matching Errors field. An
// unrecognized code is folded into Protocol rather than dropped, since
// every response_error/conn_error/request_timeout event is a protocol-
// or transport-level failure of some kind.
func bumpErrorBucket(e *Errors, code [32]byte) {
	s := string(bytes.TrimRight(code[:], "\x00"))
	if f, ok := errorBucket[s]; ok {
		f(e)
		return
	}
	e.Protocol++
}

// Reduce performs a single O(N) pass over log, producing a Metrics
// value. It never mutates log.
func Reduce(log *kernel.EventLog) Metrics {
	h := hist.NewLatency()

	var m Metrics
	m.Requests.ByMethod = make(map[string]uint64, len(methodNames))
	m.Requests.ByStatusClass = make(map[string]uint64, 6)

	connOpenTick := make(map[uint32]kernel.Tick)
	requestSentTick := make(map[uint64]kernel.Tick)
	var totalConnTimeNS uint64
	var closedConns uint64

	first := true
	observe := func(t kernel.Tick) {
		if first || t < m.StartTick {
			m.StartTick = t
		}
		if first || t > m.EndTick {
			m.EndTick = t
		}
		first = false
	}

	n := log.Len()
	for i := 0; i < n; i++ {
		ev := log.At(i)
		observe(ev.Tick)

		switch ev.Type {
		case kernel.EventTypeRequestIssued:
			p := kernel.DecodeRequestIssuedPayload(ev.Payload)
			requestSentTick[p.RequestID] = ev.Tick
			m.Requests.Total++
			idx := int(p.Method)
			if idx < 0 || idx >= len(methodNames) {
				idx = 0
			}
			m.Requests.ByMethod[methodNames[idx]]++

		case kernel.EventTypeResponseReceived:
			p := kernel.DecodeResponseReceivedPayload(ev.Payload)
			m.Requests.Success += boolToU64(p.StatusCode < 400)
			m.Requests.Failed += boolToU64(p.StatusCode >= 400)
			m.Requests.ByStatusClass[statusClass(p.StatusCode)]++
			m.Throughput.ResponseCount++
			_ = h.RecordValue(nsPerTick(p.LatencyTicks))

		case kernel.EventTypeRequestTimeout:
			m.Requests.Failed++
			bumpErrorBucket(&m.Errors, kernel.DecodeErrorPayload(ev.Payload).Code)

		case kernel.EventTypeResponseError:
			m.Requests.Failed++
			bumpErrorBucket(&m.Errors, kernel.DecodeErrorPayload(ev.Payload).Code)

		case kernel.EventTypeRequestCancelled:
			m.Requests.Failed++

		case kernel.EventTypeConnEstablished:
			p := kernel.DecodeConnEstablishedPayload(ev.Payload)
			connOpenTick[p.ConnectionID] = ev.Tick
			m.Connections.Total++

		case kernel.EventTypeConnClosed:
			p := kernel.DecodeConnEstablishedPayload(ev.Payload)
			if opened, ok := connOpenTick[p.ConnectionID]; ok {
				totalConnTimeNS += uint64(nsPerTick(ev.Tick - opened))
				closedConns++
				delete(connOpenTick, p.ConnectionID)
			}

		case kernel.EventTypeConnError:
			m.Connections.Errors++
			bumpErrorBucket(&m.Errors, kernel.DecodeErrorPayload(ev.Payload).Code)

		case kernel.EventTypeErrorDNS:
			m.Errors.DNS++
		case kernel.EventTypeErrorTCP:
			m.Errors.TCP++
		case kernel.EventTypeErrorTLS:
			m.Errors.TLS++
		case kernel.EventTypeErrorHTTP:
			m.Errors.HTTP++
		case kernel.EventTypeErrorTimeout:
			m.Errors.Timeout++
		case kernel.EventTypeErrorProtocolViolation:
			m.Errors.Protocol++
		case kernel.EventTypeErrorResourceExhausted:
			m.Errors.Resource++
		}
	}

	m.Errors.Total = m.Errors.DNS + m.Errors.TCP + m.Errors.TLS + m.Errors.HTTP +
		m.Errors.Timeout + m.Errors.Protocol + m.Errors.Resource
	if m.Requests.Total > 0 {
		m.Requests.SuccessRate = float64(m.Requests.Success) / float64(m.Requests.Total)
		m.Errors.ErrorRate = float64(m.Errors.Total) / float64(m.Requests.Total)
	}

	m.Latency.MinNS = zeroIfEmpty(h, h.Min())
	m.Latency.MaxNS = zeroIfEmpty(h, h.Max())
	m.Latency.MeanNS = h.Mean()
	m.Latency.P50 = h.ValueAtPercentile(50)
	m.Latency.P90 = h.ValueAtPercentile(90)
	m.Latency.P95 = h.ValueAtPercentile(95)
	m.Latency.P99 = h.ValueAtPercentile(99)
	m.Latency.P999 = h.ValueAtPercentile(99.9)
	m.Latency.SampleCount = h.TotalCount()

	m.Throughput.TotalDurationTicks = uint64(m.EndTick - m.StartTick)
	if m.Throughput.TotalDurationTicks > 0 {
		m.Throughput.RequestsPerTick = float64(m.Throughput.ResponseCount) / float64(m.Throughput.TotalDurationTicks)
	}

	m.Connections.TotalTimeNS = totalConnTimeNS
	if closedConns > 0 {
		m.Connections.AvgTimeNS = float64(totalConnTimeNS) / float64(closedConns)
	}

	return m
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func zeroIfEmpty(h *hist.Histogram, v int64) int64 {
	if h.TotalCount() == 0 {
		return 0
	}
	return v
}

// nsPerTick converts a tick duration to nanoseconds using the fixed
// kernel.TicksPerSecond rate.
func nsPerTick(ticks kernel.Tick) int64 {
	return int64(ticks) * (1_000_000_000 / int64(kernel.TicksPerSecond))
}

// AssertionResult is the pass/fail outcome of one scenario assertion.
type AssertionResult struct {
	Name    string
	Passed  bool
	Actual  float64
	Limit   float64
}

// EvaluateAssertions checks m against s.Assertions, per SUPPLEMENTED
// FEATURES item 4. An assertion with a nil threshold in the scenario is
// skipped.
func EvaluateAssertions(m Metrics, s *scenario.Scenario) []AssertionResult {
	var results []AssertionResult
	a := s.Assertions
	if a.P99LatencyMS != nil {
		actual := float64(m.Latency.P99) / 1e6
		results = append(results, AssertionResult{Name: "p99_latency_ms", Passed: actual <= *a.P99LatencyMS, Actual: actual, Limit: *a.P99LatencyMS})
	}
	if a.ErrorRateMax != nil {
		results = append(results, AssertionResult{Name: "error_rate_max", Passed: m.Errors.ErrorRate <= *a.ErrorRateMax, Actual: m.Errors.ErrorRate, Limit: *a.ErrorRateMax})
	}
	if a.SuccessRateMin != nil {
		results = append(results, AssertionResult{Name: "success_rate_min", Passed: m.Requests.SuccessRate >= *a.SuccessRateMin, Actual: m.Requests.SuccessRate, Limit: *a.SuccessRateMin})
	}
	return results
}

// AllPassed reports whether every assertion in results passed.
func AllPassed(results []AssertionResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
