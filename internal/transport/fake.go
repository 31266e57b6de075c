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

package transport

import (
	"bytes"
	"sync"
	"time"
)

// Fake is a deterministic, allocation-light in-memory Transport used by
// engine, VU-engine and end-to-end tests to script server responses
// without opening real sockets — the same "keep load generation
// dependency-free" instinct the teacher applies in tools/http-loadgen,
// turned around to apply to the read side.
//
// Writes (what the engine under test sends) accumulate in Sent. Reads
// are served from Inbox, which the test fills via Feed; once Inbox is
// drained, Read returns ErrWouldBlock rather than blocking, matching
// the non-blocking contract every real Transport must honor.
type Fake struct {
	mu     sync.Mutex
	Sent   bytes.Buffer
	inbox  bytes.Buffer
	closed bool
}

func NewFake() *Fake { return &Fake{} }

// Feed appends bytes a server would have sent, available to the next
// Read calls.
func (f *Fake) Feed(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox.Write(p)
}

func (f *Fake) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inbox.Len() == 0 {
		return 0, ErrWouldBlock
	}
	return f.inbox.Read(p)
}

func (f *Fake) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Sent.Write(p)
}

func (f *Fake) SetDeadline(_ time.Time) error { return nil }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
