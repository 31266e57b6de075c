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
	"os"

	"github.com/spf13/cobra"

	"z6/internal/eventlog"
	"z6/internal/reducer"
)

// newAnalyzeCmd is the single-log variant of replay: it loads an event
// log, reduces it to Metrics, and prints the result without
// re-executing any scenario.
func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <log>",
		Short: "Reduce an event log to metrics without re-running its scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := eventlog.ReadFile(args[0])
			if err != nil {
				return runtimeError("read event log: %v", err)
			}
			m := reducer.Reduce(log)
			return printMetrics(os.Stdout, m)
		},
	}
}
