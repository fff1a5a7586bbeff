// Copyright 2025 OpenMediaKit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pool

// FreeList is a bounded last-in-first-out free list for recyclable objects.
//
// The depth is a soft bound: Push reports false when the list is full and the
// caller destroys the object instead, so an oversized pool degrades to direct
// allocation transparently. FreeList is not thread-safe; it is owned by
// whichever thread currently holds the owning manager's allocation or free
// call.
type FreeList[T any] struct {
	depth int
	items []T
}

func New[T any](depth int) *FreeList[T] {
	if depth < 0 {
		depth = 0
	}
	return &FreeList[T]{
		depth: depth,
		items: make([]T, 0, depth),
	}
}

// Pop removes and returns the most recently pushed object. The second return
// value is false when the list is empty and the caller must allocate fresh.
func (l *FreeList[T]) Pop() (T, bool) {
	var zero T
	n := len(l.items)
	if n == 0 {
		return zero, false
	}
	v := l.items[n-1]
	l.items[n-1] = zero
	l.items = l.items[:n-1]
	return v, true
}

// Push retains an object for later reuse. It reports false when the list is
// at capacity; the object is then not retained and the caller must destroy it.
func (l *FreeList[T]) Push(v T) bool {
	if len(l.items) >= l.depth {
		return false
	}
	l.items = append(l.items, v)
	return true
}

// Drain empties the list, calling destroy on every pooled object. Live
// (unreturned) objects are unaffected.
func (l *FreeList[T]) Drain(destroy func(T)) {
	var zero T
	for i := len(l.items) - 1; i >= 0; i-- {
		v := l.items[i]
		l.items[i] = zero
		if destroy != nil {
			destroy(v)
		}
	}
	l.items = l.items[:0]
}

func (l *FreeList[T]) Len() int {
	return len(l.items)
}

func (l *FreeList[T]) Cap() int {
	return l.depth
}
