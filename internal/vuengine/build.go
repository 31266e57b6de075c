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
	"fmt"

	"z6/internal/h1"
	"z6/internal/h2"
	"z6/internal/kernel"
	"z6/internal/scenario"
	"z6/internal/transport"
)

// BuildProtocolEngine constructs the ProtocolEngine a target's
// http_version selects: h1_1 -> h1.Engine, h2 -> h2.Engine. Scenario
// validation already rejects any other value, so the default case here
// can never fire against a validated Scenario.
func BuildProtocolEngine(version scenario.HTTPVersion, d transport.Dialer, log *kernel.EventLog) (ProtocolEngine, error) {
	switch version {
	case scenario.HTTP1_1:
		return NewH1Adapter(h1.NewEngine(d, log)), nil
	case scenario.HTTP2:
		return NewH2Adapter(h2.NewEngine(d, log)), nil
	default:
		return nil, fmt.Errorf("vuengine: unknown http_version %q", version)
	}
}
