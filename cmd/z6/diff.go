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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"z6/internal/eventlog"
	"z6/internal/kernel"
	"z6/internal/reducer"
)

// newDiffCmd compares two recorded runs: a structural diff of their
// reduced Metrics values plus a per-event-type count diff of their
// raw event logs, per SUPPLEMENTED FEATURES item 1. There is no
// notion of a "failing" diff, so diff never returns exitAssertionFailed
// — only exitRuntimeError on a read failure.
func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <log1> <log2>",
		Short: "Compare two recorded event logs' metrics and lifecycle event counts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args[0], args[1])
		},
	}
}

func runDiff(path1, path2 string) error {
	_, log1, err := eventlog.ReadFile(path1)
	if err != nil {
		return runtimeError("read %s: %v", path1, err)
	}
	_, log2, err := eventlog.ReadFile(path2)
	if err != nil {
		return runtimeError("read %s: %v", path2, err)
	}

	m1 := reducer.Reduce(log1)
	m2 := reducer.Reduce(log2)

	w := os.Stdout
	fmt.Fprintf(w, "%-28s %16s %16s %16s\n", "metric", path1, path2, "delta")
	printRow(w, "requests.total", float64(m1.Requests.Total), float64(m2.Requests.Total))
	printRow(w, "requests.success_rate", m1.Requests.SuccessRate, m2.Requests.SuccessRate)
	printRow(w, "latency.p50_ns", float64(m1.Latency.P50), float64(m2.Latency.P50))
	printRow(w, "latency.p99_ns", float64(m1.Latency.P99), float64(m2.Latency.P99))
	printRow(w, "latency.p999_ns", float64(m1.Latency.P999), float64(m2.Latency.P999))
	printRow(w, "errors.total", float64(m1.Errors.Total), float64(m2.Errors.Total))
	printRow(w, "errors.error_rate", m1.Errors.ErrorRate, m2.Errors.ErrorRate)
	printRow(w, "connections.total", float64(m1.Connections.Total), float64(m2.Connections.Total))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-28s %16s %16s %16s\n", "lifecycle event", path1, path2, "delta")
	for _, t := range lifecycleEventTypes {
		c1 := countEventType(log1, t)
		c2 := countEventType(log2, t)
		fmt.Fprintf(w, "%-28s %16d %16d %16d\n", t, c1, c2, int64(c2)-int64(c1))
	}
	return nil
}

var lifecycleEventTypes = []kernel.EventType{
	kernel.EventTypeVUReady,
	kernel.EventTypeVUComplete,
	kernel.EventTypeRequestIssued,
	kernel.EventTypeResponseReceived,
	kernel.EventTypeConnEstablished,
	kernel.EventTypeConnClosed,
}

func countEventType(log *kernel.EventLog, want kernel.EventType) int {
	n := 0
	for i := 0; i < log.Len(); i++ {
		if log.At(i).Type == want {
			n++
		}
	}
	return n
}

func printRow(w *os.File, name string, a, b float64) {
	fmt.Fprintf(w, "%-28s %16.4f %16.4f %16.4f\n", name, a, b, b-a)
}
