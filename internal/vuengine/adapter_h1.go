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

import (
	"z6/internal/h1"
	"z6/internal/kernel"
)

// h1Adapter adapts h1.Engine to ProtocolEngine. h1.Header carries its
// name/value as []byte where the VU engine's Header uses string, so the
// adapter's job is entirely that conversion.
type h1Adapter struct {
	e *h1.Engine
}

// NewH1Adapter wraps an h1.Engine as a ProtocolEngine.
func NewH1Adapter(e *h1.Engine) ProtocolEngine {
	return &h1Adapter{e: e}
}

func (a *h1Adapter) SetTick(t kernel.Tick) { a.e.SetTick(t) }

func (a *h1Adapter) Connect(host string, port uint16) (uint32, error) {
	return a.e.Connect(h1.Target{Host: host, Port: port})
}

func (a *h1Adapter) Send(connID uint32, req Request) (uint64, error) {
	return a.e.Send(connID, h1.Request{
		Method:  req.Method,
		Path:    req.Path,
		Headers: toH1Headers(req.Headers),
		Body:    req.Body,
		Timeout: req.Timeout,
	})
}

func (a *h1Adapter) Poll(out *[]Completion) {
	var raw []h1.Completion
	a.e.Poll(&raw)
	for _, c := range raw {
		*out = append(*out, fromH1Completion(c))
	}
}

func (a *h1Adapter) Close(connID uint32) error { return a.e.Close(connID) }

func toH1Headers(hs []Header) []h1.Header {
	out := make([]h1.Header, len(hs))
	for i, h := range hs {
		out[i] = h1.Header{Name: []byte(h.Name), Value: []byte(h.Value)}
	}
	return out
}

func fromH1Completion(c h1.Completion) Completion {
	out := Completion{RequestID: c.RequestID, ConnectionID: c.ConnectionID, Err: c.Err}
	if c.Response != nil {
		out.StatusCode = c.Response.StatusCode
		out.BodyLength = len(c.Response.Body)
	}
	return out
}
