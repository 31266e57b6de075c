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
	"fmt"
	"net"
	"os"
	"time"
)

// shortDeadline is the read deadline used for each non-blocking poll
// attempt against a real socket.
const shortDeadline = 200 * time.Microsecond

// TCPDialer opens real plaintext TCP connections. TLS is out of scope
// per spec.md §1's Non-goals; a Scenario requesting TLS is rejected at
// validation time rather than silently downgraded here.
type TCPDialer struct{}

func (TCPDialer) Dial(host string, port uint16) (Transport, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &tcpTransport{conn: conn}, nil
}

type tcpTransport struct {
	conn net.Conn
}

func (t *tcpTransport) Read(p []byte) (int, error) {
	_ = t.conn.SetReadDeadline(time.Now().Add(shortDeadline))
	n, err := t.conn.Read(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, ErrWouldBlock
		}
		if os.IsTimeout(err) {
			return 0, ErrWouldBlock
		}
	}
	return n, err
}

func (t *tcpTransport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *tcpTransport) SetDeadline(tm time.Time) error {
	return t.conn.SetDeadline(tm)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}
