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

package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmediakit/membuf/pkg/buffer"
	"github.com/openmediakit/membuf/pkg/common/mberr"
	"github.com/openmediakit/membuf/pkg/common/mem"
)

func TestMain(m *testing.M) {
	buffer.EnableAsserts()
	m.Run()
}

// countingAllocator records every allocation and free so tests can check
// storage is released exactly once, at the last handle free.
type countingAllocator struct {
	upstream mem.Allocator
	allocs   int
	frees    int
}

func (c *countingAllocator) Alloc(size int) ([]byte, error) {
	c.allocs++
	return c.upstream.Alloc(size)
}

func (c *countingAllocator) Free(data []byte) {
	c.frees++
	c.upstream.Free(data)
}

// fill writes sequential bytes starting at seed over the whole sequence.
func fill(t *testing.T, b *Buffer, seed byte) {
	t.Helper()
	for offset := 0; offset < b.Size(); {
		window, err := b.MapWrite(offset, b.Size()-offset)
		require.NoError(t, err)
		for i := range window {
			window[i] = seed + byte(offset+i)
		}
		offset += len(window)
		b.Unmap()
	}
}

// chain builds a logical sequence of the given segment sizes, filled with
// sequential bytes.
func chain(t *testing.T, m *Manager, segSizes ...int) *Buffer {
	t.Helper()
	var head *Buffer
	total := 0
	for _, size := range segSizes {
		seg, err := m.AllocBlock(size)
		require.NoError(t, err)
		for offset := 0; offset < size; {
			window, err := seg.MapWrite(offset, size-offset)
			require.NoError(t, err)
			for i := range window {
				window[i] = byte(total + offset + i)
			}
			offset += len(window)
			seg.Unmap()
		}
		if head == nil {
			head = seg
		} else {
			require.NoError(t, head.Append(seg))
		}
		total += size
	}
	return head
}

func TestAllocAndReadAll(t *testing.T) {
	m := NewManager(4, 4, mem.New())
	defer m.Release()

	b, err := m.AllocBlock(16)
	require.NoError(t, err)
	require.Equal(t, 16, b.Size())

	fill(t, b, 0)
	got, err := b.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 16)
	for i, v := range got {
		require.Equal(t, byte(i), v)
	}
	b.Free()
}

func TestAllocRejectsBadSize(t *testing.T) {
	m := NewManager(4, 4, mem.New())
	defer m.Release()

	_, err := m.AllocBlock(0)
	require.Error(t, err)
	_, err = m.AllocBlock(-3)
	require.Error(t, err)
}

func TestAllocWrongShape(t *testing.T) {
	m := NewManager(4, 4, mem.New())
	defer m.Release()

	_, err := m.Alloc(buffer.Picture, buffer.AllocParams{HSize: 4, VSize: 4})
	require.True(t, mberr.IsNotSupported(err))

	b, err := m.Alloc(buffer.Block, buffer.AllocParams{Size: 8})
	require.NoError(t, err)
	b.Free()
}

func TestStorageFreedExactlyOnce(t *testing.T) {
	alloc := &countingAllocator{upstream: mem.New()}
	m := NewManager(4, 4, alloc)
	defer m.Release()

	b, err := m.AllocBlock(32)
	require.NoError(t, err)
	require.Equal(t, 1, alloc.allocs)

	d1, err := b.DupBlock()
	require.NoError(t, err)
	d2, err := b.DupBlock()
	require.NoError(t, err)

	b.Free()
	require.Equal(t, 0, alloc.frees)
	d1.Free()
	require.Equal(t, 0, alloc.frees)
	d2.Free()
	require.Equal(t, 1, alloc.frees)
}

func TestCopyOnWriteGate(t *testing.T) {
	m := NewManager(4, 4, mem.New())
	defer m.Release()

	b, err := m.AllocBlock(8)
	require.NoError(t, err)

	// exclusive, write allowed
	w, err := b.MapWrite(0, 8)
	require.NoError(t, err)
	w[0] = 1
	b.Unmap()

	d, err := b.DupBlock()
	require.NoError(t, err)

	// shared, write denied on both handles
	_, err = b.MapWrite(0, 8)
	require.True(t, mberr.IsBufferShared(err))
	_, err = d.MapWrite(0, 8)
	require.True(t, mberr.IsBufferShared(err))

	// reads still fine
	r, err := d.MapRead(0, 8)
	require.NoError(t, err)
	require.Equal(t, byte(1), r[0])
	d.Unmap()

	d.Free()

	// exclusive again
	w, err = b.MapWrite(0, 8)
	require.NoError(t, err)
	w[1] = 2
	b.Unmap()
	b.Free()
}

func TestDupIsIndependent(t *testing.T) {
	m := NewManager(8, 8, mem.New())
	defer m.Release()

	b := chain(t, m, 5, 7, 3)
	want, err := b.ReadAll()
	require.NoError(t, err)

	d, err := b.DupBlock()
	require.NoError(t, err)
	b.Free()

	// the duplicate survives the source
	got, err := d.ReadAll()
	require.NoError(t, err)
	require.Equal(t, want, got)
	d.Free()
}

func TestSpliceFullExtent(t *testing.T) {
	m := NewManager(8, 8, mem.New())
	defer m.Release()

	b := chain(t, m, 4, 4, 4)
	want, err := b.ReadAll()
	require.NoError(t, err)

	s, err := b.Splice(0, b.Size())
	require.NoError(t, err)
	got, err := s.ReadAll()
	require.NoError(t, err)
	require.Equal(t, want, got)

	s.Free()
	// source unaffected
	got, err = b.ReadAll()
	require.NoError(t, err)
	require.Equal(t, want, got)
	b.Free()
}

func TestSpliceAllWindows(t *testing.T) {
	m := NewManager(16, 16, mem.New())
	defer m.Release()

	// segment sizes chosen so windows cross one and two boundaries
	b := chain(t, m, 5, 3, 6)
	want, err := b.ReadAll()
	require.NoError(t, err)
	total := b.Size()

	for k := 0; k < 5; k++ { // offset must stay in the first segment
		for n := 1; k+n <= total; n++ {
			s, err := b.Splice(k, n)
			require.NoError(t, err, "splice(%d, %d)", k, n)
			require.Equal(t, n, s.Size())
			got, err := s.ReadAll()
			require.NoError(t, err)
			require.Equal(t, want[k:k+n], got, "splice(%d, %d)", k, n)
			s.Free()
		}
	}
	b.Free()
}

func TestSplicePreconditions(t *testing.T) {
	m := NewManager(8, 8, mem.New())
	defer m.Release()

	b := chain(t, m, 4, 4)

	// offset beyond the first segment
	_, err := b.Splice(4, 1)
	require.True(t, mberr.IsOutOfRange(err))

	// more bytes than the sequence holds
	_, err = b.Splice(2, 7)
	require.True(t, mberr.IsOutOfRange(err))

	_, err = b.Splice(-1, 2)
	require.Error(t, err)
	_, err = b.Splice(0, 0)
	require.Error(t, err)

	b.Free()
}

func TestSpliceSharesStorage(t *testing.T) {
	m := NewManager(8, 8, mem.New())
	defer m.Release()

	b, err := m.AllocBlock(8)
	require.NoError(t, err)
	fill(t, b, 0)

	s, err := b.Splice(2, 4)
	require.NoError(t, err)

	// storage now shared, writes denied through either handle
	_, err = b.MapWrite(0, 8)
	require.True(t, mberr.IsBufferShared(err))
	_, err = s.MapWrite(0, 4)
	require.True(t, mberr.IsBufferShared(err))

	got, err := s.ReadAll()
	require.NoError(t, err)
	require.Equal(t, []byte{2, 3, 4, 5}, got)

	s.Free()
	b.Free()
}

func TestAppendExtendsSequence(t *testing.T) {
	m := NewManager(8, 8, mem.New())
	defer m.Release()

	a, err := m.AllocBlock(3)
	require.NoError(t, err)
	fill(t, a, 0)
	b, err := m.AllocBlock(2)
	require.NoError(t, err)
	fill(t, b, 3)

	require.NoError(t, a.Append(b))
	require.Equal(t, 5, a.Size())
	got, err := a.ReadAll()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2, 3, 4}, got)
	a.Free()
}

func TestAppendRejectsCycle(t *testing.T) {
	m := NewManager(8, 8, mem.New())
	defer m.Release()

	b, err := m.AllocBlock(4)
	require.NoError(t, err)
	defer b.Free()

	require.Error(t, b.Append(b))

	tail, err := m.AllocBlock(4)
	require.NoError(t, err)
	require.NoError(t, b.Append(tail))

	// a segment already in the chain is rejected and the size is untouched
	require.Error(t, b.Append(tail))
	require.Equal(t, 8, b.Size())
	got, err := b.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 8)
}

func TestResizeWindow(t *testing.T) {
	m := NewManager(8, 8, mem.New())
	defer m.Release()

	b := chain(t, m, 4, 4, 4)
	require.NoError(t, b.Resize(2, 6))
	require.Equal(t, 6, b.Size())
	got, err := b.ReadAll()
	require.NoError(t, err)
	require.Equal(t, []byte{2, 3, 4, 5, 6, 7}, got)

	// cannot grow back
	err = b.Resize(0, 8)
	require.True(t, mberr.IsResizeBudget(err))
	b.Free()
}

func TestResizeTruncatesWithinFirstSegment(t *testing.T) {
	m := NewManager(8, 8, mem.New())
	defer m.Release()

	b := chain(t, m, 4, 4)
	require.NoError(t, b.Resize(1, 2))
	require.Equal(t, 2, b.Size())
	got, err := b.ReadAll()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, got)
	b.Free()
}

func TestControlDispatch(t *testing.T) {
	m := NewManager(4, 4, mem.New())
	defer m.Release()

	b, err := m.AllocBlock(8)
	require.NoError(t, err)

	size, err := b.Control(buffer.CmdSize, nil)
	require.NoError(t, err)
	require.Equal(t, 8, size)

	res, err := b.Control(buffer.CmdMapWrite, buffer.BlockMapArgs{Offset: 0, Size: 8})
	require.NoError(t, err)
	window := res.([]byte)
	window[3] = 9
	_, err = b.Control(buffer.CmdUnmap, nil)
	require.NoError(t, err)

	res, err = b.Control(buffer.CmdMapRead, buffer.BlockMapArgs{Offset: 3, Size: 1})
	require.NoError(t, err)
	require.Equal(t, byte(9), res.([]byte)[0])
	_, err = b.Control(buffer.CmdUnmap, nil)
	require.NoError(t, err)

	dup, err := b.Control(buffer.CmdDup, nil)
	require.NoError(t, err)
	dup.(buffer.Buffer).Free()

	// picture commands are foreign to a block buffer
	_, err = b.Control(buffer.CmdPlaneSize, "y8")
	require.True(t, mberr.IsNotSupported(err))
	_, err = b.Control(buffer.CmdIteratePlane, buffer.IteratePlaneArgs{})
	require.True(t, mberr.IsNotSupported(err))

	// wrong argument type
	_, err = b.Control(buffer.CmdMapRead, "nope")
	require.Error(t, err)

	b.Free()
}

func TestHandleRecycling(t *testing.T) {
	m := NewManager(4, 4, mem.New())
	defer m.Release()

	b, err := m.AllocBlock(8)
	require.NoError(t, err)
	b.Free()

	// the freed handle comes back from the pool
	again, err := m.AllocBlock(16)
	require.NoError(t, err)
	require.Same(t, b, again)
	again.Free()

	// vacuum destroys pooled handles, the next alloc is fresh
	m.Vacuum()
	fresh, err := m.AllocBlock(8)
	require.NoError(t, err)
	require.NotSame(t, b, fresh)
	fresh.Free()
}

func TestVacuumLeavesLiveHandlesAlone(t *testing.T) {
	m := NewManager(4, 4, mem.New())
	defer m.Release()

	b, err := m.AllocBlock(8)
	require.NoError(t, err)
	fill(t, b, 0)

	m.Vacuum()

	got, err := b.ReadAll()
	require.NoError(t, err)
	require.Equal(t, byte(7), got[7])
	b.Free()
}

func TestAllocFailureRollsBack(t *testing.T) {
	m := NewManager(4, 4, mem.NewLimitAllocator(mem.New(), 64))
	defer m.Release()

	b, err := m.AllocBlock(48)
	require.NoError(t, err)

	_, err = m.AllocBlock(32)
	require.True(t, mberr.IsOOM(err))

	b.Free()

	// pool state rolled back, the next alloc succeeds and reuses the handle
	c, err := m.AllocBlock(32)
	require.NoError(t, err)
	c.Free()
}

func TestFreeWithOutstandingMapPanics(t *testing.T) {
	m := NewManager(4, 4, mem.New())
	defer m.Release()

	b, err := m.AllocBlock(8)
	require.NoError(t, err)
	_, err = b.MapRead(0, 8)
	require.NoError(t, err)

	require.Panics(t, func() {
		b.Free()
	})
	b.Unmap()
	b.Free()
}

func TestSeekCacheForwardScan(t *testing.T) {
	m := NewManager(8, 8, mem.New())
	defer m.Release()

	b := chain(t, m, 4, 4, 4)

	// forward scan hits every segment through the cache, then a backward
	// read restarts from the head
	for _, offset := range []int{0, 5, 10, 2, 11, 0} {
		window, err := b.MapRead(offset, 1)
		require.NoError(t, err)
		require.Equal(t, byte(offset), window[0])
		b.Unmap()
	}
	b.Free()
}
