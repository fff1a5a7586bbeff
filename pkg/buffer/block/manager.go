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

// Package block implements byte-oriented buffers over shared storage.
// Handles may be chained into one logical byte sequence spanning several
// physically independent allocations, and spliced into sub-range views
// without copying.
package block

import (
	"context"
	"sync/atomic"

	"github.com/openmediakit/membuf/pkg/buffer"
	"github.com/openmediakit/membuf/pkg/common/mberr"
	"github.com/openmediakit/membuf/pkg/common/mem"
	"github.com/openmediakit/membuf/pkg/common/pool"
	"github.com/openmediakit/membuf/pkg/util/metric"
)

// Manager allocates and recycles block buffers. It is owned by one thread at
// a time (the expected deployment is one manager per pipeline stage); only
// its reference count may be shared.
type Manager struct {
	allocator  mem.Allocator
	handlePool *pool.FreeList[*Buffer]
	sharedPool *pool.FreeList[*buffer.Shared]
	refs       atomic.Int32
}

var _ buffer.Manager = new(Manager)

// NewManager returns a block buffer manager with the given free-list depths,
// drawing storage from allocator. The caller holds the initial manager
// reference.
func NewManager(handlePoolDepth, sharedPoolDepth int, allocator mem.Allocator) *Manager {
	m := &Manager{
		allocator:  allocator,
		handlePool: pool.New[*Buffer](handlePoolDepth),
		sharedPool: pool.New[*buffer.Shared](sharedPoolDepth),
	}
	m.refs.Store(1)
	return m
}

// Alloc implements buffer.Manager. Only the Block shape is supported.
func (m *Manager) Alloc(shape buffer.Shape, p buffer.AllocParams) (buffer.Buffer, error) {
	if shape != buffer.Block {
		return nil, mberr.NewNotSupported(context.Background(),
			"shape %s on a block manager", shape)
	}
	return m.AllocBlock(p.Size)
}

// AllocBlock returns a fresh block buffer of size bytes, recycling a handle
// and a shared-storage object from the pools when available. On allocation
// failure everything popped from a pool is pushed back before returning.
func (m *Manager) AllocBlock(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, mberr.NewInvalidArg(context.Background(), "size", size)
	}

	b := m.allocHandle()
	shared, pooled := m.sharedPool.Pop()
	if pooled {
		metric.BlockSharedPoolHitCounter.Inc()
	} else {
		metric.BlockSharedPoolMissCounter.Inc()
		shared = new(buffer.Shared)
	}

	data, err := m.allocator.Alloc(size)
	if err != nil {
		m.recycleShared(shared)
		m.recycleHandle(b)
		return nil, err
	}
	shared.Reset(data)

	b.shared = shared
	b.offset = 0
	b.size = size
	b.totalSize = size
	b.cachedBuf = b
	b.cachedOffset = 0

	m.Retain()
	metric.BlockAllocCounter.Inc()
	return b, nil
}

// allocHandle pulls a handle from the pool or allocates fresh. The handle
// comes back with no storage attached.
func (m *Manager) allocHandle() *Buffer {
	b, pooled := m.handlePool.Pop()
	if pooled {
		metric.BlockHandlePoolHitCounter.Inc()
	} else {
		metric.BlockHandlePoolMissCounter.Inc()
		b = new(Buffer)
	}
	b.mgr = m
	b.shared = nil
	b.next = nil
	b.maps.Store(0)
	return b
}

func (m *Manager) recycleHandle(b *Buffer) {
	b.shared = nil
	b.next = nil
	b.cachedBuf = nil
	b.cachedOffset = 0
	if !m.handlePool.Push(b) {
		metric.BlockHandlePoolDropCounter.Inc()
	}
}

func (m *Manager) recycleShared(s *buffer.Shared) {
	if !m.sharedPool.Push(s) {
		metric.BlockSharedPoolDropCounter.Inc()
	}
}

// Vacuum implements buffer.Manager: it destroys everything currently pooled.
// Live handles are unaffected.
func (m *Manager) Vacuum() {
	m.handlePool.Drain(nil)
	m.sharedPool.Drain(nil)
	metric.BlockManagerVacuumCounter.Inc()
}

// Retain implements buffer.Manager.
func (m *Manager) Retain() {
	m.refs.Add(1)
}

// Release implements buffer.Manager. The last release empties the pools.
func (m *Manager) Release() {
	refs := m.refs.Add(-1)
	buffer.Assert(refs >= 0, "block manager released more times than retained")
	if refs == 0 {
		m.Vacuum()
	}
}
