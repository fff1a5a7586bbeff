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
	"context"
	"sync/atomic"

	"github.com/openmediakit/membuf/pkg/buffer"
	"github.com/openmediakit/membuf/pkg/common/mberr"
	"github.com/openmediakit/membuf/pkg/util/metric"
)

// Buffer is a byte-oriented handle over a window (offset, size) of shared
// storage. A chain of handles linked by next models one logical byte
// sequence; totalSize is the sequence length from this segment on.
//
// cachedBuf/cachedOffset remember the segment resolved by the last map call
// so repeated local reads do not re-walk the chain from the head.
type Buffer struct {
	mgr    *Manager
	shared *buffer.Shared

	offset    int
	size      int
	totalSize int
	next      *Buffer

	cachedBuf    *Buffer
	cachedOffset int

	// outstanding map count, checked at free time
	maps atomic.Int32
}

var _ buffer.Buffer = new(Buffer)

// Manager implements buffer.Buffer.
func (b *Buffer) Manager() buffer.Manager {
	return b.mgr
}

// Size returns the length of the logical byte sequence from this handle on.
func (b *Buffer) Size() int {
	return b.totalSize
}

// Dup implements buffer.Buffer: it creates an independent chain of handles
// sharing the same underlying storages, without copying bytes. Write access
// through either handle is denied until the other is freed.
func (b *Buffer) Dup() (buffer.Buffer, error) {
	return b.DupBlock()
}

// DupBlock is Dup with a concrete return type.
func (b *Buffer) DupBlock() (*Buffer, error) {
	nb := b.mgr.allocHandle()
	b.mgr.Retain()
	nb.shared = b.shared
	nb.shared.Retain()
	nb.offset = b.offset
	nb.size = b.size
	nb.totalSize = b.totalSize
	if b.next != nil {
		next, err := b.next.DupBlock()
		if err != nil {
			nb.Free()
			return nil, err
		}
		nb.next = next
	}
	nb.cachedBuf = nb
	nb.cachedOffset = 0
	metric.BlockDupCounter.Inc()
	return nb, nil
}

// Splice returns a new handle representing [offset, offset+size) of the
// logical sequence, sharing storage with the source. The offset must fall
// inside the first segment; the span may cross any number of chain
// boundaries. The result is independent of the source.
func (b *Buffer) Splice(offset, size int) (*Buffer, error) {
	ctx := context.Background()
	if offset < 0 || size <= 0 {
		return nil, mberr.NewInvalidArg(ctx, "splice", []int{offset, size})
	}
	if offset >= b.size {
		return nil, mberr.NewOutOfRange(ctx, offset, b.size)
	}
	if offset+size > b.totalSize {
		return nil, mberr.NewOutOfRange(ctx, offset+size, b.totalSize)
	}

	nb := b.mgr.allocHandle()
	b.mgr.Retain()
	nb.shared = b.shared
	nb.shared.Retain()
	nb.offset = b.offset + offset
	nb.size = b.size - offset
	if nb.size > size {
		nb.size = size
	}
	nb.totalSize = size

	if residual := size - nb.size; residual > 0 {
		// checked against totalSize above, the chain continues
		next, err := b.next.Splice(0, residual)
		if err != nil {
			nb.Free()
			return nil, err
		}
		nb.next = next
	}
	nb.cachedBuf = nb
	nb.cachedOffset = 0
	return nb, nil
}

// Append links other as the tail of b's chain, extending the logical
// sequence. Ownership of other transfers to the chain; the caller must not
// free it separately.
func (b *Buffer) Append(other *Buffer) error {
	if other == nil {
		return mberr.NewInvalidArg(context.Background(), "other", nil)
	}
	// linking a segment of the chain to itself would form a cycle
	for cur := b; cur != nil; cur = cur.next {
		if cur == other {
			return mberr.NewInvalidArg(context.Background(), "other", "already chained")
		}
	}
	cur := b
	for {
		cur.totalSize += other.totalSize
		if cur.next == nil {
			break
		}
		cur = cur.next
	}
	cur.next = other
	b.cachedBuf = b
	b.cachedOffset = 0
	return nil
}

// seek resolves the segment holding the logical offset, returning it and the
// chain offset of its first byte. The cursor cache makes forward scans cheap.
func (b *Buffer) seek(offset int) (*Buffer, int, error) {
	cur, curOff := b.cachedBuf, b.cachedOffset
	if cur == nil || offset < curOff {
		cur, curOff = b, 0
	}
	for offset >= curOff+cur.size {
		if cur.next == nil {
			return nil, 0, mberr.NewOutOfRange(context.Background(), offset, b.totalSize)
		}
		curOff += cur.size
		cur = cur.next
	}
	b.cachedBuf = cur
	b.cachedOffset = curOff
	return cur, curOff, nil
}

// MapRead maps up to size bytes starting at the logical offset for reading.
// The returned window never crosses a segment boundary, so it may be shorter
// than requested; callers iterate. Every successful map must be paired with
// one Unmap.
func (b *Buffer) MapRead(offset, size int) ([]byte, error) {
	ctx := context.Background()
	if offset < 0 || size <= 0 {
		return nil, mberr.NewInvalidArg(ctx, "map", []int{offset, size})
	}
	if offset+size > b.totalSize {
		return nil, mberr.NewOutOfRange(ctx, offset+size, b.totalSize)
	}
	seg, segOff, err := b.seek(offset)
	if err != nil {
		return nil, err
	}
	local := offset - segOff
	n := seg.size - local
	if n > size {
		n = size
	}
	b.maps.Add(1)
	data := seg.shared.Data()
	return data[seg.offset+local : seg.offset+local+n], nil
}

// MapWrite is MapRead with mutation rights. It is granted only while the
// mapped segment's storage has a single reference; otherwise the caller must
// copy into storage it exclusively owns.
func (b *Buffer) MapWrite(offset, size int) ([]byte, error) {
	ctx := context.Background()
	if offset < 0 || size <= 0 {
		return nil, mberr.NewInvalidArg(ctx, "map", []int{offset, size})
	}
	if offset+size > b.totalSize {
		return nil, mberr.NewOutOfRange(ctx, offset+size, b.totalSize)
	}
	seg, segOff, err := b.seek(offset)
	if err != nil {
		return nil, err
	}
	if !seg.shared.Single() {
		return nil, mberr.NewBufferShared(ctx)
	}
	local := offset - segOff
	n := seg.size - local
	if n > size {
		n = size
	}
	b.maps.Add(1)
	data := seg.shared.Data()
	return data[seg.offset+local : seg.offset+local+n], nil
}

// Unmap pairs with one previous successful MapRead or MapWrite.
func (b *Buffer) Unmap() {
	maps := b.maps.Add(-1)
	buffer.Assert(maps >= 0, "block buffer unmapped more times than mapped")
}

// ReadAll copies the whole logical sequence into a fresh slice. Diagnostic
// and test surface; the hot path maps windows instead.
func (b *Buffer) ReadAll() ([]byte, error) {
	out := make([]byte, 0, b.totalSize)
	for offset := 0; offset < b.totalSize; {
		window, err := b.MapRead(offset, b.totalSize-offset)
		if err != nil {
			return nil, err
		}
		out = append(out, window...)
		offset += len(window)
		b.Unmap()
	}
	return out, nil
}

// Resize moves the visible window: skip bytes are dropped from the front
// (staying within the first segment) and the sequence is truncated to
// newSize. Segments that fall entirely outside the window are freed; the
// window can never grow past the bytes the chain already holds.
func (b *Buffer) Resize(skip, newSize int) error {
	ctx := context.Background()
	if skip < 0 || newSize <= 0 {
		return mberr.NewInvalidArg(ctx, "resize", []int{skip, newSize})
	}
	if skip >= b.size {
		return mberr.NewOutOfRange(ctx, skip, b.size)
	}
	if skip+newSize > b.totalSize {
		return mberr.NewResizeBudget(ctx,
			"window [%d, %d) exceeds sequence of %d bytes", skip, skip+newSize, b.totalSize)
	}

	b.offset += skip
	b.size -= skip
	b.totalSize = newSize

	cur := b
	residual := newSize
	for cur.size < residual {
		residual -= cur.size
		cur = cur.next
		cur.totalSize = residual
	}
	cur.size = residual
	if cur.next != nil {
		cur.next.Free()
		cur.next = nil
	}

	b.cachedBuf = b
	b.cachedOffset = 0
	return nil
}

// Control implements buffer.Buffer for the block command subset.
func (b *Buffer) Control(cmd buffer.Command, args any) (any, error) {
	ctx := context.Background()
	switch cmd {
	case buffer.CmdDup:
		return b.Dup()
	case buffer.CmdSize:
		return b.Size(), nil
	case buffer.CmdMapRead:
		a, ok := args.(buffer.BlockMapArgs)
		if !ok {
			return nil, mberr.NewInvalidArg(ctx, "args", args)
		}
		return b.MapRead(a.Offset, a.Size)
	case buffer.CmdMapWrite:
		a, ok := args.(buffer.BlockMapArgs)
		if !ok {
			return nil, mberr.NewInvalidArg(ctx, "args", args)
		}
		return b.MapWrite(a.Offset, a.Size)
	case buffer.CmdUnmap:
		b.Unmap()
		return nil, nil
	case buffer.CmdResize:
		a, ok := args.(buffer.BlockResizeArgs)
		if !ok {
			return nil, mberr.NewInvalidArg(ctx, "args", args)
		}
		return nil, b.Resize(a.Skip, a.NewSize)
	default:
		return nil, mberr.NewNotSupported(ctx, "command %s on shape block", cmd)
	}
}

// Free implements buffer.Buffer: it releases every segment of the chain.
// A segment whose storage reference count reaches zero returns the bytes to
// the allocator; handle and shared objects go back to the manager pools.
func (b *Buffer) Free() {
	for cur := b; cur != nil; {
		next := cur.next
		mgr := cur.mgr

		buffer.Assert(cur.maps.Load() == 0,
			"block buffer freed with outstanding maps")

		if cur.shared != nil && cur.shared.Release() {
			mgr.allocator.Free(cur.shared.Data())
			cur.shared.Clear()
			mgr.recycleShared(cur.shared)
		}
		mgr.recycleHandle(cur)
		mgr.Release()
		metric.BlockFreeCounter.Inc()

		cur = next
	}
}
