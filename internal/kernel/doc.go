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

// Package kernel implements the deterministic microkernel at the heart
// of Z6: a seeded PRNG, a fixed-capacity arena allocator, a 272-byte
// fixed-record event log, a (tick, insertion-sequence) priority queue,
// the virtual-user state machine, and the logical-tick scheduler that
// drives them. Nothing in this package consults wall-clock time; the
// Tick counter is the sole time base.
package kernel

// TicksPerSecond is the fixed conversion rate between a scenario's
// wall-clock duration_seconds and the scheduler's logical tick counter.
// It is the single named constant for this conversion; no other package
// hardcodes it.
const TicksPerSecond = 100

// Tick is the 64-bit monotonic logical counter described in spec.md §3.
// It is never derived from time.Now; the scheduler is the only writer.
type Tick uint64
