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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFreeListLIFO(t *testing.T) {
	l := New[int](4)
	require.True(t, l.Push(1))
	require.True(t, l.Push(2))
	require.True(t, l.Push(3))

	v, ok := l.Pop()
	require.True(t, ok)
	require.Equal(t, 3, v)
	v, ok = l.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)
	v, ok = l.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = l.Pop()
	require.False(t, ok)
}

func TestFreeListBound(t *testing.T) {
	const depth = 3
	const released = 8

	l := New[int](depth)
	destroyed := 0
	for i := 0; i < released; i++ {
		if !l.Push(i) {
			destroyed++
		}
	}
	require.Equal(t, depth, l.Len())
	require.Equal(t, released-depth, destroyed)
}

func TestFreeListDrain(t *testing.T) {
	l := New[*int](8)
	for i := 0; i < 5; i++ {
		v := i
		require.True(t, l.Push(&v))
	}

	var drained []int
	l.Drain(func(v *int) {
		drained = append(drained, *v)
	})
	require.Equal(t, 0, l.Len())
	// LIFO drain order
	require.Equal(t, []int{4, 3, 2, 1, 0}, drained)

	// drained list is still usable
	v := 42
	require.True(t, l.Push(&v))
	require.Equal(t, 1, l.Len())
}

func TestFreeListZeroDepth(t *testing.T) {
	l := New[int](0)
	require.False(t, l.Push(1))
	_, ok := l.Pop()
	require.False(t, ok)
	require.Equal(t, 0, l.Cap())
}
