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

// Package vuengine implements the VU execution engine from spec.md §4.5
// (component L): it binds a Scenario and a Scheduler to whichever
// ProtocolEngine the scenario's target selects, driving every VU
// through its Spawned/Ready/Executing/Waiting/Complete lifecycle one
// tick at a time.
//
// request_issued and response_received events are emitted by the
// protocol engine itself (components H and K), not here — this engine
// only drives VU state transitions and request selection.
package vuengine

import (
	"z6/internal/kernel"
	"z6/internal/scenario"
	"z6/internal/zerr"
)

// defaultThinkTicks is the think-time gate between a VU's requests when
// the scenario does not override it (spec.md §4.5).
const defaultThinkTicks kernel.Tick = 10

// safetyMarginTicks bounds the run past duration_ticks in case some VUs
// never resolve their outstanding request (spec.md §4.5).
const safetyMarginTicks kernel.Tick = 1000

// vuContext is the per-VU execution state the engine tracks alongside
// the kernel's own VU record.
type vuContext struct {
	requestCount    uint64
	lastRequestTick kernel.Tick
	connID          uint32
	hasConn         bool
}

// Engine is the VU execution engine. It owns no protocol state itself;
// it only orchestrates a Scheduler and a ProtocolEngine against a
// read-only Scenario.
type Engine struct {
	scenario      *scenario.Scenario
	sched         *kernel.Scheduler
	proto         ProtocolEngine
	durationTicks kernel.Tick
	totalWeight   float32
	thinkTicks    kernel.Tick

	ctx        map[uint32]*vuContext
	pendingVU  map[uint64]uint32 // request id -> vu id
}

// New returns an Engine binding s and sched to proto. durationTicks is
// derived from s.Runtime.DurationSeconds at construction.
func New(s *scenario.Scenario, sched *kernel.Scheduler, proto ProtocolEngine) *Engine {
	return &Engine{
		scenario:      s,
		sched:         sched,
		proto:         proto,
		durationTicks: kernel.Tick(s.Runtime.DurationSeconds * kernel.TicksPerSecond),
		totalWeight:   s.TotalWeight(),
		thinkTicks:    defaultThinkTicks,
		ctx:           make(map[uint32]*vuContext),
		pendingVU:     make(map[uint64]uint32),
	}
}

// Run drives the scheduler and protocol engine until every VU reaches
// Complete or the safety bound (duration_ticks + 1000) is reached.
func (e *Engine) Run() error {
	bound := e.durationTicks + safetyMarginTicks
	for {
		tick := e.sched.Tick()
		if tick >= bound || e.allSpawnedAndComplete() {
			return nil
		}
		if err := e.Step(tick); err != nil {
			return err
		}
	}
}

// Step performs one tick's worth of work: spawn, poll, dispatch
// completions, advance VU state, then advance the scheduler's tick.
// Exposed separately from Run so tests can interleave transport
// scripting between ticks.
func (e *Engine) Step(tick kernel.Tick) error {
	if err := e.spawnForTick(tick); err != nil {
		return err
	}

	e.proto.SetTick(tick)
	var completions []Completion
	e.proto.Poll(&completions)
	e.dispatchCompletions(tick, completions)
	if err := e.stepVUs(tick); err != nil {
		return err
	}

	e.sched.AdvanceTick()
	return nil
}

// Done reports whether the run has finished: either every VU in the
// full runtime.vus population has reached Complete, or the safety
// bound has been passed.
func (e *Engine) Done() bool {
	bound := e.durationTicks + safetyMarginTicks
	return e.sched.Tick() >= bound || e.allSpawnedAndComplete()
}

// allSpawnedAndComplete reports whether the full runtime.vus population
// has been spawned and every spawned VU has reached Complete.
func (e *Engine) allSpawnedAndComplete() bool {
	if uint32(len(e.sched.VUs())) < e.scenario.Runtime.VUs {
		return false
	}
	return e.sched.AllComplete()
}

// spawnForTick spawns VUs until the schedule's target count for this
// tick is met, bounded by runtime.vus.
func (e *Engine) spawnForTick(tick kernel.Tick) error {
	target := targetVUs(e.scenario.Schedule, e.durationTicks, tick, e.scenario.Runtime.VUs)
	if target > e.scenario.Runtime.VUs {
		target = e.scenario.Runtime.VUs
	}
	for uint32(len(e.sched.VUs())) < target {
		id, err := e.sched.SpawnVU()
		if err != nil {
			return err
		}
		e.ctx[id] = &vuContext{}
	}
	return nil
}

// stepVUs advances every non-terminal VU's state machine by one tick,
// per spec.md §4.5.
func (e *Engine) stepVUs(tick kernel.Tick) error {
	vus := e.sched.VUs()
	for i := range vus {
		v := &vus[i]
		switch v.State {
		case kernel.VUSpawned:
			e.sched.EmitVUReady(v.ID)

		case kernel.VUReady:
			if err := e.maybeIssueRequest(v, tick); err != nil {
				return err
			}

		case kernel.VUExecuting, kernel.VUWaiting, kernel.VUComplete:
			// Executing is transient (handed off within
			// maybeIssueRequest); Waiting resolves via
			// dispatchCompletions; Complete is terminal.
		}
	}
	return nil
}

// maybeIssueRequest selects and dispatches a request for v if this is
// its first request or the think-time gate has elapsed, per spec.md
// §4.5's weighted-selection algorithm.
func (e *Engine) maybeIssueRequest(v *kernel.VU, tick kernel.Tick) error {
	ctx := e.ctx[v.ID]
	first := ctx.requestCount == 0
	if !first && tick-ctx.lastRequestTick < e.thinkTicks {
		return nil
	}

	req := e.selectRequest()
	if !v.Transition(kernel.VUExecuting, tick) {
		return nil
	}

	if !ctx.hasConn {
		connID, err := e.proto.Connect(e.scenario.Target.Host, e.scenario.Target.Port)
		if err != nil {
			// Resource exhaustion (pool full, stream cap hit): emit
			// error_resource_exhausted and return the VU to Ready so a
			// later tick may retry, per spec.md §7.
			e.emitResourceExhausted(v.ID, 0, err)
			v.Transition(kernel.VUWaiting, tick)
			v.Transition(kernel.VUReady, tick)
			return nil
		}
		ctx.connID = connID
		ctx.hasConn = true
	}

	reqID, err := e.proto.Send(ctx.connID, toEngineRequest(req))
	if err != nil {
		e.emitResourceExhausted(v.ID, ctx.connID, err)
		v.Transition(kernel.VUWaiting, tick)
		v.Transition(kernel.VUReady, tick)
		return nil
	}

	ctx.requestCount++
	e.pendingVU[reqID] = v.ID
	// The handover to the protocol engine is instantaneous from the
	// scheduler's point of view: the VU waits for the engine's Poll to
	// resolve it, not for Executing to be observed on another tick.
	v.Transition(kernel.VUWaiting, tick)
	return nil
}

// emitResourceExhausted appends an error_resource_exhausted event for a
// VU whose Connect or Send call failed, per spec.md §7. connID is 0
// when the failure happened before a connection existed.
func (e *Engine) emitResourceExhausted(vuID, connID uint32, cause error) {
	code := zerr.CodeConnectionPoolExhausted
	if ze, ok := cause.(*zerr.Error); ok {
		code = ze.Code
	}
	var codeField [32]byte
	copy(codeField[:], code)
	e.sched.Log().Append(kernel.Event{
		Tick: e.sched.Tick(),
		VUID: vuID,
		Type: kernel.EventTypeErrorResourceExhausted,
		Payload: kernel.ErrorPayload{ConnectionID: connID, Code: codeField}.Encode(),
	})
}

// selectRequest draws u = prng.Float() * total_weight and walks the
// request list accumulating weights, picking the first entry whose
// accumulated weight exceeds u.
func (e *Engine) selectRequest() scenario.Request {
	requests := e.scenario.Requests
	if len(requests) == 1 {
		return requests[0]
	}
	u := float32(e.sched.PRNG().Float()) * e.totalWeight
	var acc float32
	for _, r := range requests {
		acc += r.Weight
		if acc > u {
			return r
		}
	}
	return requests[len(requests)-1]
}

// dispatchCompletions resolves every completion against its owning VU,
// per spec.md §4.5's Waiting-state handling.
func (e *Engine) dispatchCompletions(tick kernel.Tick, completions []Completion) {
	for _, c := range completions {
		vuID, ok := e.pendingVU[c.RequestID]
		if !ok {
			continue
		}
		delete(e.pendingVU, c.RequestID)
		ctx := e.ctx[vuID]
		ctx.lastRequestTick = tick

		v := e.sched.Find(vuID)
		if v == nil {
			continue
		}
		if tick >= e.durationTicks {
			e.sched.EmitVUComplete(vuID)
		} else {
			v.Transition(kernel.VUReady, tick)
		}
	}
}

func toEngineRequest(r scenario.Request) Request {
	headers := make([]Header, len(r.Headers))
	for i, h := range r.Headers {
		headers[i] = Header{Name: h.Name, Value: h.Value}
	}
	return Request{
		Method:  r.Method,
		Path:    r.Path,
		Headers: headers,
		Body:    []byte(r.Body),
		Timeout: kernel.Tick(r.TimeoutMS) * kernel.TicksPerSecond / 1000,
	}
}
