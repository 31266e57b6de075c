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

// Package kernel's scheduler is the single cooperative loop described in
// spec.md §5: advance one tick, then let each engine poll once. It never
// spawns goroutines and never reads wall-clock time.
package kernel

import "errors"

// ErrTooManyVUs is returned by SpawnVU once the scheduler's maxVUs
// virtual users are registered.
var ErrTooManyVUs = errors.New("kernel: too many VUs")

// Scheduler owns the VU registry, the current tick, and a single PRNG
// shared by every component that needs determinism (the VU engine's
// weighted request selection draws from this one instance).
type Scheduler struct {
	tick   Tick
	vus    []VU
	maxVUs int
	prng   *PRNG
	log    *EventLog
	nextID uint32
}

// NewScheduler returns a Scheduler bounded to maxVUs virtual users,
// logging lifecycle events to log and drawing randomness from prng.
func NewScheduler(maxVUs int, prng *PRNG, log *EventLog) *Scheduler {
	return &Scheduler{
		maxVUs: maxVUs,
		prng:   prng,
		log:    log,
		vus:    make([]VU, 0, maxVUs),
	}
}

// Tick returns the current logical tick.
func (s *Scheduler) Tick() Tick { return s.tick }

// PRNG returns the scheduler's single shared PRNG instance.
func (s *Scheduler) PRNG() *PRNG { return s.prng }

// VUs returns the live VU registry. Callers may mutate entries in place
// (e.g. to drive state transitions) but must not resize the slice.
func (s *Scheduler) VUs() []VU { return s.vus }

// SpawnVU registers a new VU in the Spawned state at the current tick
// and emits a vu_spawned event. It fails with ErrTooManyVUs once maxVUs
// VUs are already registered.
func (s *Scheduler) SpawnVU() (uint32, error) {
	if len(s.vus) >= s.maxVUs {
		return 0, ErrTooManyVUs
	}
	s.nextID++
	id := s.nextID
	s.vus = append(s.vus, VU{
		ID:                 id,
		State:              VUSpawned,
		SpawnTick:          s.tick,
		LastTransitionTick: s.tick,
	})
	s.emit(id, EventTypeVUSpawned)
	return id, nil
}

// AdvanceTick increments the logical tick by exactly one and emits a
// scheduler_tick event. It must be the only mutator of the tick counter
// so strict monotonicity (spec.md §5) holds.
func (s *Scheduler) AdvanceTick() Tick {
	s.tick++
	s.emit(0, EventTypeSchedulerTick)
	return s.tick
}

// Find returns a pointer to the VU with the given id, or nil.
func (s *Scheduler) Find(id uint32) *VU {
	for i := range s.vus {
		if s.vus[i].ID == id {
			return &s.vus[i]
		}
	}
	return nil
}

// AllComplete reports whether every registered VU has reached the
// terminal Complete state.
func (s *Scheduler) AllComplete() bool {
	for i := range s.vus {
		if s.vus[i].State != VUComplete {
			return false
		}
	}
	return true
}

// EmitVUReady transitions id to Ready and emits vu_ready. It is a no-op
// if the transition is illegal.
func (s *Scheduler) EmitVUReady(id uint32) bool {
	v := s.Find(id)
	if v == nil || !v.Transition(VUReady, s.tick) {
		return false
	}
	s.emit(id, EventTypeVUReady)
	return true
}

// EmitVUComplete transitions id to Complete and emits vu_complete. It is
// a no-op if the transition is illegal.
func (s *Scheduler) EmitVUComplete(id uint32) bool {
	v := s.Find(id)
	if v == nil || !v.Transition(VUComplete, s.tick) {
		return false
	}
	s.emit(id, EventTypeVUComplete)
	return true
}

// emit appends a bare lifecycle/scheduler event (zero payload) to the
// log. Failures (a full log) are silently dropped at this layer; callers
// that need to observe log exhaustion should check s.log.Len() against
// the capacity the log was created with.
func (s *Scheduler) emit(vuID uint32, t EventType) {
	if s.log == nil {
		return
	}
	_, _ = s.log.Append(Event{Tick: s.tick, VUID: vuID, Type: t})
}

// Log returns the scheduler's underlying event log, for engines that
// need to append their own request/response/connection events at the
// current tick.
func (s *Scheduler) Log() *EventLog { return s.log }
