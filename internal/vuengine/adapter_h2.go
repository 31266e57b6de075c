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
	"z6/internal/h2"
	"z6/internal/kernel"
)

// h2Adapter adapts h2.Engine to ProtocolEngine. h2.Header already uses
// string fields, so this adapter is a thin field-for-field reshape.
type h2Adapter struct {
	e *h2.Engine
}

// NewH2Adapter wraps an h2.Engine as a ProtocolEngine.
func NewH2Adapter(e *h2.Engine) ProtocolEngine {
	return &h2Adapter{e: e}
}

func (a *h2Adapter) SetTick(t kernel.Tick) { a.e.SetTick(t) }

func (a *h2Adapter) Connect(host string, port uint16) (uint32, error) {
	return a.e.Connect(h2.Target{Host: host, Port: port})
}

func (a *h2Adapter) Send(connID uint32, req Request) (uint64, error) {
	return a.e.Send(connID, h2.Request{
		Method:  req.Method,
		Path:    req.Path,
		Headers: toH2Headers(req.Headers),
		Body:    req.Body,
		Timeout: req.Timeout,
	})
}

func (a *h2Adapter) Poll(out *[]Completion) {
	var raw []h2.Completion
	a.e.Poll(&raw)
	for _, c := range raw {
		*out = append(*out, fromH2Completion(c))
	}
}

func (a *h2Adapter) Close(connID uint32) error { return a.e.Close(connID) }

func toH2Headers(hs []Header) []h2.Header {
	out := make([]h2.Header, len(hs))
	for i, h := range hs {
		out[i] = h2.Header{Name: h.Name, Value: h.Value}
	}
	return out
}

func fromH2Completion(c h2.Completion) Completion {
	out := Completion{RequestID: c.RequestID, ConnectionID: c.ConnectionID, Err: c.Err}
	if c.Response != nil {
		out.StatusCode = c.Response.StatusCode
		out.BodyLength = len(c.Response.Body)
	}
	return out
}
