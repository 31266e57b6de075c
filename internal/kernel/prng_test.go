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

import "testing"

func TestPRNGDeterministicSequence(t *testing.T) {
	a := NewPRNG(42)
	b := NewPRNG(42)
	for i := 0; i < 1000; i++ {
		if av, bv := a.NextU64(), b.NextU64(); av != bv {
			t.Fatalf("sequence diverged at step %d: %d != %d", i, av, bv)
		}
	}
}

func TestPRNGZeroSeedRemapped(t *testing.T) {
	p := NewPRNG(0)
	if p.state == 0 {
		t.Fatal("zero seed must be remapped to a nonzero constant")
	}
	if p.NextU64() == 0 {
		// not an invariant per se, but a state of zero-forever would be a bug
	}
}

func TestPRNGStateNeverZero(t *testing.T) {
	p := NewPRNG(1)
	for i := 0; i < 100_000; i++ {
		p.NextU64()
		if p.state == 0 {
			t.Fatalf("state became zero at iteration %d", i)
		}
	}
}

func TestPRNGRangeBounds(t *testing.T) {
	p := NewPRNG(7)
	for i := 0; i < 10_000; i++ {
		v := p.Range(17)
		if v >= 17 {
			t.Fatalf("Range(17) returned out-of-bounds value %d", v)
		}
	}
}

func TestPRNGFloatBounds(t *testing.T) {
	p := NewPRNG(7)
	for i := 0; i < 10_000; i++ {
		v := p.Float()
		if v < 0 || v >= 1 {
			t.Fatalf("Float() out of [0,1): %v", v)
		}
	}
}

func TestPRNGShuffleIsPermutation(t *testing.T) {
	p := NewPRNG(99)
	data := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	p.Shuffle(len(data), func(i, j int) { data[i], data[j] = data[j], data[i] })
	seen := make(map[int]bool)
	for _, v := range data {
		seen[v] = true
	}
	if len(seen) != 10 {
		t.Fatalf("shuffle lost elements: %v", data)
	}
}

func TestPRNGShuffleDeterministic(t *testing.T) {
	run := func(seed uint64) []int {
		p := NewPRNG(seed)
		data := make([]int, 20)
		for i := range data {
			data[i] = i
		}
		p.Shuffle(len(data), func(i, j int) { data[i], data[j] = data[j], data[i] })
		return data
	}
	a := run(123)
	b := run(123)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("shuffle not deterministic at index %d: %d != %d", i, a[i], b[i])
		}
	}
}
