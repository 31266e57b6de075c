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

package kernel

// VUState is one of the five states in the VU lifecycle (spec.md §4.2).
// Complete is terminal: once reached a VU never leaves it.
type VUState uint8

const (
	VUSpawned VUState = iota
	VUReady
	VUExecuting
	VUWaiting
	VUComplete
)

func (s VUState) String() string {
	switch s {
	case VUSpawned:
		return "spawned"
	case VUReady:
		return "ready"
	case VUExecuting:
		return "executing"
	case VUWaiting:
		return "waiting"
	case VUComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// validTransitions enumerates the legal state-machine edges from
// spec.md §4.2. CanTransition consults this table so every engine that
// moves a VU goes through the same gate.
var validTransitions = map[VUState]map[VUState]bool{
	VUSpawned:   {VUReady: true},
	VUReady:     {VUExecuting: true},
	VUExecuting: {VUWaiting: true},
	VUWaiting:   {VUReady: true, VUComplete: true},
}

// CanTransition reports whether moving from -> to is a legal edge in the
// VU lifecycle.
func CanTransition(from, to VUState) bool {
	return validTransitions[from][to]
}

// VU is a single virtual user, per spec.md §3. last_transition_tick is
// monotone non-decreasing; a VU may have at most one outstanding
// request at a time, tracked by PendingRequestID.
type VU struct {
	ID                 uint32
	State              VUState
	ScenarioStep       uint32
	SpawnTick          Tick
	LastTransitionTick Tick
	PendingRequestID   uint64
	HasPendingRequest  bool
	TimeoutTick        Tick
}

// Transition moves v to the given state at the given tick. It reports
// false and leaves v unchanged if the edge is not legal or if tick would
// move LastTransitionTick backwards.
func (v *VU) Transition(to VUState, tick Tick) bool {
	if v.State == VUComplete {
		return false
	}
	if !CanTransition(v.State, to) {
		return false
	}
	if tick < v.LastTransitionTick {
		return false
	}
	v.State = to
	v.LastTransitionTick = tick
	return true
}
