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

// Package pic implements multi-plane picture buffers: one frame of possibly
// sub-sampled pixel data laid out as contiguous planes inside a single
// shared storage allocation, with caller-configurable padding margins and
// alignment.
package pic

import (
	"context"
	"sync/atomic"

	"github.com/openmediakit/membuf/pkg/buffer"
	"github.com/openmediakit/membuf/pkg/common/mberr"
	"github.com/openmediakit/membuf/pkg/common/mem"
	"github.com/openmediakit/membuf/pkg/common/pool"
	"github.com/openmediakit/membuf/pkg/util/metric"
)

// Default extra pixels before and after lines, extra lines before and after
// the buffer, when the caller passes -1.
const (
	defaultHPrepend = 8
	defaultHAppend  = 8
	defaultVPrepend = 2
	defaultVAppend  = 2
	defaultAlign    = 0
)

// Plane describes one plane of the picture shape: its chroma tag, the factor
// by which its resolution is reduced per axis, and the size in octets of one
// macropixel of the plane.
type Plane struct {
	Chroma         string
	HSub           int
	VSub           int
	MacropixelSize int
}

// ManagerOptions carries the construction parameters of a picture manager.
// Padding fields take -1 for sensible defaults; horizontal padding is in
// pixels and must be a multiple of the macropixel.
type ManagerOptions struct {
	HandlePoolDepth int
	SharedPoolDepth int
	// Macropixel is the number of pixels in a macropixel, typically 1.
	Macropixel int
	HPrepend   int
	HAppend    int
	VPrepend   int
	VAppend    int
	// Align, in octets, shifts each plane base so that the macropixel
	// column designated by AlignHmOffset lands on an Align boundary.
	// Zero disables alignment.
	Align         int
	AlignHmOffset int
}

// Manager allocates and recycles picture buffers of one fixed plane layout.
// The plane list is registered with AddPlane and sealed by the first
// allocation.
type Manager struct {
	macropixel int
	planes     []Plane
	sealed     bool

	// margins in macropixels (horizontal) and lines (vertical)
	hmprepend int
	hmappend  int
	vprepend  int
	vappend   int

	align         int
	alignHmOffset int

	allocator  mem.Allocator
	handlePool *pool.FreeList[*Buffer]
	sharedPool *pool.FreeList[*buffer.Shared]
	refs       atomic.Int32
}

var _ buffer.Manager = new(Manager)

// NewManager returns a picture buffer manager. Planes must be added with
// AddPlane before the first allocation.
func NewManager(opts ManagerOptions, allocator mem.Allocator) (*Manager, error) {
	ctx := context.Background()
	if opts.Macropixel <= 0 {
		return nil, mberr.NewInvalidArg(ctx, "macropixel", opts.Macropixel)
	}
	if opts.HPrepend > 0 && opts.HPrepend%opts.Macropixel != 0 {
		return nil, mberr.NewInvalidArg(ctx, "hprepend", opts.HPrepend)
	}
	if opts.HAppend > 0 && opts.HAppend%opts.Macropixel != 0 {
		return nil, mberr.NewInvalidArg(ctx, "happend", opts.HAppend)
	}

	m := &Manager{
		macropixel:    opts.Macropixel,
		align:         opts.Align,
		alignHmOffset: opts.AlignHmOffset,
		allocator:     allocator,
		handlePool:    pool.New[*Buffer](opts.HandlePoolDepth),
		sharedPool:    pool.New[*buffer.Shared](opts.SharedPoolDepth),
	}
	if m.align < 0 {
		m.align = defaultAlign
	}
	m.hmprepend = pick(opts.HPrepend, defaultHPrepend) / opts.Macropixel
	m.hmappend = pick(opts.HAppend, defaultHAppend) / opts.Macropixel
	m.vprepend = pick(opts.VPrepend, defaultVPrepend)
	m.vappend = pick(opts.VAppend, defaultVAppend)
	m.refs.Store(1)
	return m, nil
}

func pick(v, def int) int {
	if v >= 0 {
		return v
	}
	return def
}

// AddPlane registers one plane of the picture shape. It may only be called
// before the first allocation; the plane list is shared read-only by every
// buffer of the manager afterwards.
func (m *Manager) AddPlane(chroma string, hsub, vsub, macropixelSize int) error {
	ctx := context.Background()
	if m.sealed {
		return mberr.NewBufferSealed(ctx)
	}
	if chroma == "" {
		return mberr.NewInvalidArg(ctx, "chroma", chroma)
	}
	if hsub <= 0 || vsub <= 0 || macropixelSize <= 0 {
		return mberr.NewInvalidArg(ctx, "plane", []int{hsub, vsub, macropixelSize})
	}
	for _, p := range m.planes {
		if p.Chroma == chroma {
			return mberr.NewInvalidArg(ctx, "chroma", chroma)
		}
	}
	m.planes = append(m.planes, Plane{
		Chroma:         chroma,
		HSub:           hsub,
		VSub:           vsub,
		MacropixelSize: macropixelSize,
	})
	return nil
}

// Alloc implements buffer.Manager. Only the Picture shape is supported.
func (m *Manager) Alloc(shape buffer.Shape, p buffer.AllocParams) (buffer.Buffer, error) {
	if shape != buffer.Picture {
		return nil, mberr.NewNotSupported(context.Background(),
			"shape %s on a picture manager", shape)
	}
	return m.AllocPic(p.HSize, p.VSize)
}

// checkSize validates a requested visible size against the macropixel and
// every plane's sub-sampling.
func (m *Manager) checkSize(hsize, vsize int) error {
	ctx := context.Background()
	if hsize <= 0 || vsize <= 0 {
		return mberr.NewInvalidArg(ctx, "size", []int{hsize, vsize})
	}
	if hsize%m.macropixel != 0 {
		return mberr.NewInvalidArg(ctx, "hsize", hsize)
	}
	hmsize := hsize / m.macropixel
	for _, p := range m.planes {
		if (hmsize+m.hmprepend+m.hmappend)%p.HSub != 0 {
			return mberr.NewInvalidArg(ctx, "hsize", hsize)
		}
		if (vsize+m.vprepend+m.vappend)%p.VSub != 0 {
			return mberr.NewInvalidArg(ctx, "vsize", vsize)
		}
	}
	return nil
}

// AllocPic returns a fresh picture buffer of hsize x vsize visible pixels.
// Plane strides and bases are computed from the manager's plane list,
// margins and alignment; all planes live contiguously inside one shared
// storage allocation. On allocation failure everything popped from a pool is
// pushed back before returning.
func (m *Manager) AllocPic(hsize, vsize int) (*Buffer, error) {
	if len(m.planes) == 0 {
		return nil, mberr.NewInvalidArg(context.Background(), "planes", 0)
	}
	if err := m.checkSize(hsize, vsize); err != nil {
		return nil, err
	}

	b := m.allocHandle()
	shared, pooled := m.sharedPool.Pop()
	if pooled {
		metric.PicSharedPoolHitCounter.Inc()
	} else {
		metric.PicSharedPoolMissCounter.Inc()
		shared = new(buffer.Shared)
	}

	hmsize := hsize / m.macropixel
	bufferSize := 0
	strides := make([]int, len(m.planes))
	planeSizes := make([]int, len(m.planes))
	for i, p := range m.planes {
		strides[i] = (hmsize+m.hmprepend+m.hmappend)/p.HSub*p.MacropixelSize + m.align
		planeSizes[i] = (vsize + m.vprepend + m.vappend) / p.VSub * strides[i]
		bufferSize += planeSizes[i]
	}

	data, err := m.allocator.Alloc(bufferSize)
	if err != nil {
		m.recycleShared(shared)
		m.recycleHandle(b)
		return nil, err
	}
	shared.Reset(data)

	b.shared = shared
	b.hmsize = hmsize
	b.vsize = vsize
	b.hmprepend = m.hmprepend
	b.hmappend = m.hmappend
	b.vprepend = m.vprepend
	b.vappend = m.vappend

	base := 0
	b.planes = b.planes[:0]
	for i, p := range m.planes {
		planeBase := base + m.align
		if m.align > 0 {
			planeBase -= (planeBase +
				(m.alignHmOffset+m.hmprepend)/p.HSub*p.MacropixelSize) % m.align
		}
		b.planes = append(b.planes, planeGeom{base: planeBase, stride: strides[i]})
		base += planeSizes[i]
	}

	m.sealed = true
	m.Retain()
	metric.PicAllocCounter.Inc()
	return b, nil
}

func (m *Manager) allocHandle() *Buffer {
	b, pooled := m.handlePool.Pop()
	if pooled {
		metric.PicHandlePoolHitCounter.Inc()
	} else {
		metric.PicHandlePoolMissCounter.Inc()
		b = new(Buffer)
	}
	b.mgr = m
	b.shared = nil
	b.maps.Store(0)
	return b
}

func (m *Manager) recycleHandle(b *Buffer) {
	b.shared = nil
	if !m.handlePool.Push(b) {
		metric.PicHandlePoolDropCounter.Inc()
	}
}

func (m *Manager) recycleShared(s *buffer.Shared) {
	if !m.sharedPool.Push(s) {
		metric.PicSharedPoolDropCounter.Inc()
	}
}

// Vacuum implements buffer.Manager: it destroys everything currently pooled,
// leaving live handles alone.
func (m *Manager) Vacuum() {
	m.handlePool.Drain(nil)
	m.sharedPool.Drain(nil)
	metric.PicManagerVacuumCounter.Inc()
}

// Retain implements buffer.Manager.
func (m *Manager) Retain() {
	m.refs.Add(1)
}

// Release implements buffer.Manager. The last release empties the pools.
func (m *Manager) Release() {
	refs := m.refs.Add(-1)
	buffer.Assert(refs >= 0, "picture manager released more times than retained")
	if refs == 0 {
		m.Vacuum()
	}
}
