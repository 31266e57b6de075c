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

// Package z6log provides the structured logging used by the CLI driver
// for its run milestones (scenario loaded, run started/finished, event
// log written, metrics server errors). It is a thin wrapper over
// github.com/rs/zerolog so call sites read like the teacher's own
// milestone prints ("Starting background worker...") but emit
// structured, leveled records instead of bare fmt.Println calls.
//
// The deterministic core itself never logs — only the thin CLI driver
// and the opt-in metrics/telemetry layer do, so logging never perturbs
// the byte-for-byte reproducibility of an event log.
package z6log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package's handle type. The zero value is not usable;
// construct one with New.
type Logger struct {
	z zerolog.Logger
}

// Option configures a Logger at construction time.
type Option func(*zerolog.Logger)

// WithWriter overrides the destination; defaults to a console writer on
// os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(z *zerolog.Logger) {
		*z = z.Output(w)
	}
}

// New returns a Logger writing human-readable console output to stderr
// by default, matching the CLI's "summary" output register.
func New(opts ...Option) Logger {
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	z := zerolog.New(cw).With().Timestamp().Logger()
	for _, opt := range opts {
		opt(&z)
	}
	return Logger{z: z}
}

// NewJSON returns a Logger writing newline-delimited JSON, for use when
// the CLI's --format=json output must not be interleaved with
// human-readable log lines.
func NewJSON(w io.Writer) Logger {
	return Logger{z: zerolog.New(w).With().Timestamp().Logger()}
}

func (l Logger) Info(msg string) { l.z.Info().Msg(msg) }

func (l Logger) Warn(msg string) { l.z.Warn().Msg(msg) }

func (l Logger) Error(msg string, err error) { l.z.Error().Err(err).Msg(msg) }

// Event starts a structured info-level record the caller can attach
// fields to before calling Msg, e.g.:
//
//	log.Event().Str("target", host).Uint32("conn_id", id).Msg("conn_established")
func (l Logger) Event() *zerolog.Event { return l.z.Info() }

// With returns a child Logger with the given key/value attached to
// every subsequent record, for tagging a whole run with its scenario
// name and seed.
func (l Logger) With(key string, value any) Logger {
	return Logger{z: l.z.With().Interface(key, value).Logger()}
}
