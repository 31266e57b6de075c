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
	"z6/internal/kernel"
	"z6/internal/scenario"
)

// rampSpan is the fraction of the run's duration a "ramp" schedule takes
// to go from zero to its target VU count.
const rampSpan = 1.0

// spikeFraction is the point in the run, as a fraction of duration_ticks,
// at which a "spike" schedule jumps from its baseline to full load.
const spikeFraction = 0.5

// spikeBaselineDivisor sets the "spike" schedule's idle baseline as a
// fraction of its target VU count (1/10th, floored at 1).
const spikeBaselineDivisor = 10

// targetVUs returns how many VUs should be registered by tick, per the
// schedule kind named in scenario.Schedule but given semantics only
// here (SUPPLEMENTED FEATURES item 3). Each branch is a pure function of
// (tick, duration, cap) — it reads no engine state and has no side
// effects, in the style of the teacher's own threshold checks that
// decide policy from observed state without mutating it.
func targetVUs(sch scenario.Schedule, durationTicks, tick kernel.Tick, runtimeVUs uint32) uint32 {
	vuCap := sch.VUs
	if vuCap == 0 {
		vuCap = runtimeVUs
	}
	if vuCap == 0 {
		return 0
	}

	switch sch.Kind {
	case scenario.ScheduleRamp:
		return rampTarget(vuCap, durationTicks, tick)
	case scenario.ScheduleSpike:
		return spikeTarget(vuCap, durationTicks, tick)
	case scenario.ScheduleSteps:
		return stepsTarget(vuCap, sch.Steps, tick)
	case scenario.ScheduleConstant, "":
		return vuCap
	default:
		return vuCap
	}
}

// rampTarget scales linearly from 1 VU at tick 0 to cap VUs by
// rampSpan·duration_ticks, holding at cap thereafter.
func rampTarget(vuCap uint32, durationTicks, tick kernel.Tick) uint32 {
	span := kernel.Tick(float64(durationTicks) * rampSpan)
	if span == 0 {
		return vuCap
	}
	if tick >= span {
		return vuCap
	}
	frac := float64(tick) / float64(span)
	v := uint32(float64(vuCap) * frac)
	if v < 1 {
		v = 1
	}
	return v
}

// spikeTarget holds a low baseline until the midpoint of the run, then
// jumps straight to cap.
func spikeTarget(vuCap uint32, durationTicks, tick kernel.Tick) uint32 {
	threshold := kernel.Tick(float64(durationTicks) * spikeFraction)
	if tick >= threshold {
		return vuCap
	}
	baseline := vuCap / spikeBaselineDivisor
	if baseline < 1 {
		baseline = 1
	}
	return baseline
}

// stepsTarget returns the VU count of the last waypoint whose at_tick
// has passed, or 0 before the first waypoint. Steps is validated
// non-empty by scenario.Validate whenever Kind == steps.
func stepsTarget(vuCap uint32, steps []scenario.ScheduleStep, tick kernel.Tick) uint32 {
	var target uint32
	for _, st := range steps {
		if kernel.Tick(st.AtTick) > tick {
			break
		}
		target = st.VUCount
	}
	if target > vuCap {
		target = vuCap
	}
	return target
}
