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
	"testing"

	"z6/internal/kernel"
	"z6/internal/scenario"
)

func TestTargetVUsConstant(t *testing.T) {
	sch := scenario.Schedule{Kind: scenario.ScheduleConstant, VUs: 5}
	for _, tick := range []kernel.Tick{0, 50, 1000} {
		if got := targetVUs(sch, 100, tick, 10); got != 5 {
			t.Fatalf("constant at tick %d = %d, want 5", tick, got)
		}
	}
}

func TestTargetVUsRampReachesCapAtDuration(t *testing.T) {
	sch := scenario.Schedule{Kind: scenario.ScheduleRamp, VUs: 100}
	if got := targetVUs(sch, 100, 0, 0); got != 1 {
		t.Fatalf("ramp at tick 0 = %d, want 1 (floored)", got)
	}
	if got := targetVUs(sch, 100, 50, 0); got != 50 {
		t.Fatalf("ramp at tick 50 = %d, want 50", got)
	}
	if got := targetVUs(sch, 100, 100, 0); got != 100 {
		t.Fatalf("ramp at tick 100 = %d, want 100", got)
	}
	if got := targetVUs(sch, 100, 500, 0); got != 100 {
		t.Fatalf("ramp past duration = %d, want capped at 100", got)
	}
}

func TestTargetVUsSpikeJumpsAtMidpoint(t *testing.T) {
	sch := scenario.Schedule{Kind: scenario.ScheduleSpike, VUs: 100}
	if got := targetVUs(sch, 100, 10, 0); got != 10 {
		t.Fatalf("spike baseline at tick 10 = %d, want 10", got)
	}
	if got := targetVUs(sch, 100, 50, 0); got != 100 {
		t.Fatalf("spike at midpoint = %d, want 100", got)
	}
	if got := targetVUs(sch, 100, 99, 0); got != 100 {
		t.Fatalf("spike after midpoint = %d, want 100", got)
	}
}

func TestTargetVUsSteps(t *testing.T) {
	sch := scenario.Schedule{
		Kind: scenario.ScheduleSteps,
		VUs:  20,
		Steps: []scenario.ScheduleStep{
			{AtTick: 0, VUCount: 5},
			{AtTick: 10, VUCount: 15},
			{AtTick: 20, VUCount: 20},
		},
	}
	cases := []struct {
		tick kernel.Tick
		want uint32
	}{
		{0, 5}, {5, 5}, {10, 15}, {15, 15}, {20, 20}, {100, 20},
	}
	for _, c := range cases {
		if got := targetVUs(sch, 100, c.tick, 0); got != c.want {
			t.Fatalf("steps at tick %d = %d, want %d", c.tick, got, c.want)
		}
	}
}

func TestTargetVUsStepsBeforeFirstWaypointIsZero(t *testing.T) {
	sch := scenario.Schedule{
		Kind:  scenario.ScheduleSteps,
		VUs:   20,
		Steps: []scenario.ScheduleStep{{AtTick: 10, VUCount: 10}},
	}
	if got := targetVUs(sch, 100, 5, 0); got != 0 {
		t.Fatalf("steps before first waypoint = %d, want 0", got)
	}
}

func TestTargetVUsFallsBackToRuntimeVUsWhenScheduleVUsIsZero(t *testing.T) {
	sch := scenario.Schedule{Kind: scenario.ScheduleConstant}
	if got := targetVUs(sch, 100, 0, 7); got != 7 {
		t.Fatalf("fallback to runtime.vus = %d, want 7", got)
	}
}
