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

import "errors"

// ErrArenaExhausted is returned by Arena.Acquire once every slot is in
// use.
var ErrArenaExhausted = errors.New("kernel: arena exhausted")

// Arena is a fixed-capacity object pool over values of type T, indexed
// by opaque integer handles rather than pointers — the same
// arena-plus-index shape the connection pool, stream table, and
// pending-request table all build on. Acquire/Release are O(1): free
// slot indices are kept on a separate stack.
type Arena[T any] struct {
	slots []T
	used  []bool
	free  []int
}

// NewArena returns an Arena with room for exactly capacity values.
func NewArena[T any](capacity int) *Arena[T] {
	a := &Arena[T]{
		slots: make([]T, capacity),
		used:  make([]bool, capacity),
		free:  make([]int, capacity),
	}
	for i := range a.free {
		a.free[i] = capacity - 1 - i // pop from the end acquires index 0 first
	}
	return a
}

// Cap returns the arena's total capacity.
func (a *Arena[T]) Cap() int { return len(a.slots) }

// InUse returns the number of currently acquired slots.
func (a *Arena[T]) InUse() int { return len(a.slots) - len(a.free) }

// Acquire reserves a free slot, returning its index. The slot's value is
// the zero value of T until the caller sets it with Set.
func (a *Arena[T]) Acquire() (int, error) {
	if len(a.free) == 0 {
		return -1, ErrArenaExhausted
	}
	idx := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.used[idx] = true
	return idx, nil
}

// Set stores v at idx. idx must currently be acquired.
func (a *Arena[T]) Set(idx int, v T) { a.slots[idx] = v }

// Get returns the value at idx.
func (a *Arena[T]) Get(idx int) T { return a.slots[idx] }

// Release returns idx to the free list, so a future Acquire may reuse
// it. The slot's value is reset to the zero value of T.
func (a *Arena[T]) Release(idx int) {
	if !a.used[idx] {
		return
	}
	var zero T
	a.slots[idx] = zero
	a.used[idx] = false
	a.free = append(a.free, idx)
}

// InUseSlot reports whether idx is currently acquired.
func (a *Arena[T]) InUseSlot(idx int) bool { return a.used[idx] }

// ForEachInUse calls f for every currently-acquired slot, in index
// order. f must not call Acquire/Release on a.
func (a *Arena[T]) ForEachInUse(f func(idx int, v T)) {
	for i, inUse := range a.used {
		if inUse {
			f(i, a.slots[i])
		}
	}
}
