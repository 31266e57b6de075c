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

package vuengine

import "z6/internal/kernel"

// Header is a single request header, protocol-agnostic.
type Header struct {
	Name  string
	Value string
}

// Request is what the VU engine hands to a ProtocolEngine, independent
// of whether the target speaks HTTP/1.1 or HTTP/2.
type Request struct {
	Method  string
	Path    string
	Headers []Header
	Body    []byte
	Timeout kernel.Tick
}

// Completion mirrors h1.Completion/h2.Completion, flattened to the
// fields the VU engine actually needs: it does not care about response
// headers or bodies, only whether the request resolved and how.
type Completion struct {
	RequestID    uint64
	ConnectionID uint32
	StatusCode   int
	BodyLength   int
	Err          error
}

// ProtocolEngine is the common surface the VU engine drives h1.Engine
// and h2.Engine through. scenario.Target.HTTPVersion selects which
// concrete adapter backs it, the same way the teacher's
// persistence.BuildPersister selects an adapter by a string discriminator.
type ProtocolEngine interface {
	SetTick(kernel.Tick)
	Connect(host string, port uint16) (uint32, error)
	Send(connID uint32, req Request) (uint64, error)
	Poll(completions *[]Completion)
	Close(connID uint32) error
}
