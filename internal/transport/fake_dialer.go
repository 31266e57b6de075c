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

import "fmt"

// FakeDialer hands out Fake transports, recording each by "host:port" so
// tests can reach back in and Feed server bytes after the engine under
// test has called Connect.
type FakeDialer struct {
	Dialed map[string]*Fake
}

func NewFakeDialer() *FakeDialer {
	return &FakeDialer{Dialed: make(map[string]*Fake)}
}

func (d *FakeDialer) Dial(host string, port uint16) (Transport, error) {
	f := NewFake()
	d.Dialed[fmt.Sprintf("%s:%d", host, port)] = f
	return f, nil
}

// Last returns the most recently dialed Fake for host:port.
func (d *FakeDialer) Last(host string, port uint16) *Fake {
	return d.Dialed[fmt.Sprintf("%s:%d", host, port)]
}
