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

	"github.com/spf13/cobra"
)

// Exit codes, per spec.md §6.
const (
	exitSuccess         = 0
	exitAssertionFailed = 1
	exitConfigError     = 2
	exitRuntimeError    = 3
)

// exitError carries the exit code a command wants main to return,
// alongside the message main prints to stderr (empty for a silent
// exit).
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func configError(format string, args ...any) error {
	return &exitError{code: exitConfigError, msg: fmt.Sprintf(format, args...)}
}

func runtimeError(format string, args ...any) error {
	return &exitError{code: exitRuntimeError, msg: fmt.Sprintf(format, args...)}
}

func assertionFailure(msg string) error {
	return &exitError{code: exitAssertionFailed, msg: msg}
}

// outputFormat is the shared --format flag value across run/replay/
// analyze/diff, one of "summary", "json", "csv".
var outputFormat string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "z6",
		Short:         "Z6 — a deterministic HTTP load-testing engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&outputFormat, "format", "summary", "output format: summary, json, or csv")
	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newDiffCmd())
	return root
}
