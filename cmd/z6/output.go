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

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"z6/internal/reducer"
)

// printMetrics renders m to w in the format named by outputFormat.
func printMetrics(w io.Writer, m reducer.Metrics) error {
	switch outputFormat {
	case "json":
		return printMetricsJSON(w, m)
	case "csv":
		return printMetricsCSV(w, m)
	case "summary", "":
		printMetricsSummary(w, m)
		return nil
	default:
		return configError("unknown --format %q, want summary, json, or csv", outputFormat)
	}
}

func printMetricsSummary(w io.Writer, m reducer.Metrics) {
	fmt.Fprintf(w, "requests:    total=%d success=%d failed=%d success_rate=%.4f\n",
		m.Requests.Total, m.Requests.Success, m.Requests.Failed, m.Requests.SuccessRate)
	fmt.Fprintf(w, "latency:     p50=%dns p90=%dns p95=%dns p99=%dns p999=%dns mean=%.0fns\n",
		m.Latency.P50, m.Latency.P90, m.Latency.P95, m.Latency.P99, m.Latency.P999, m.Latency.MeanNS)
	fmt.Fprintf(w, "throughput:  requests_per_tick=%.4f response_count=%d duration_ticks=%d\n",
		m.Throughput.RequestsPerTick, m.Throughput.ResponseCount, m.Throughput.TotalDurationTicks)
	fmt.Fprintf(w, "connections: total=%d errors=%d avg_time_ns=%.0f\n",
		m.Connections.Total, m.Connections.Errors, m.Connections.AvgTimeNS)
	fmt.Fprintf(w, "errors:      total=%d error_rate=%.4f dns=%d tcp=%d tls=%d http=%d timeout=%d protocol=%d resource=%d\n",
		m.Errors.Total, m.Errors.ErrorRate, m.Errors.DNS, m.Errors.TCP, m.Errors.TLS,
		m.Errors.HTTP, m.Errors.Timeout, m.Errors.Protocol, m.Errors.Resource)
}

func printMetricsJSON(w io.Writer, m reducer.Metrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// printMetricsCSV flattens m to a single two-row table: a header row
// of field names and one data row of Metrics' scalar fields. The
// by_method and by_status_class maps, latency min/max/sample count and
// connections total time are not included.
func printMetricsCSV(w io.Writer, m reducer.Metrics) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"requests_total", "requests_success", "requests_failed", "requests_success_rate",
		"latency_p50", "latency_p90", "latency_p95", "latency_p99", "latency_p999", "latency_mean_ns",
		"throughput_requests_per_tick", "throughput_response_count", "throughput_duration_ticks",
		"connections_total", "connections_errors", "connections_avg_time_ns",
		"errors_total", "errors_rate", "errors_dns", "errors_tcp", "errors_tls",
		"errors_http", "errors_timeout", "errors_protocol", "errors_resource",
		"start_tick", "end_tick",
	}
	row := []string{
		u64(m.Requests.Total), u64(m.Requests.Success), u64(m.Requests.Failed), f64(m.Requests.SuccessRate),
		i64(m.Latency.P50), i64(m.Latency.P90), i64(m.Latency.P95), i64(m.Latency.P99), i64(m.Latency.P999), f64(m.Latency.MeanNS),
		f64(m.Throughput.RequestsPerTick), u64(m.Throughput.ResponseCount), u64(m.Throughput.TotalDurationTicks),
		u64(m.Connections.Total), u64(m.Connections.Errors), f64(m.Connections.AvgTimeNS),
		u64(m.Errors.Total), f64(m.Errors.ErrorRate), u64(m.Errors.DNS), u64(m.Errors.TCP), u64(m.Errors.TLS),
		u64(m.Errors.HTTP), u64(m.Errors.Timeout), u64(m.Errors.Protocol), u64(m.Errors.Resource),
		u64(uint64(m.StartTick)), u64(uint64(m.EndTick)),
	}
	if err := cw.Write(header); err != nil {
		return runtimeError("write csv header: %v", err)
	}
	if err := cw.Write(row); err != nil {
		return runtimeError("write csv row: %v", err)
	}
	return nil
}

func u64(v uint64) string  { return strconv.FormatUint(v, 10) }
func i64(v int64) string   { return strconv.FormatInt(v, 10) }
func f64(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
