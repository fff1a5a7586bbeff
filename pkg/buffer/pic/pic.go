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

package pic

import (
	"context"
	"sync/atomic"

	"github.com/openmediakit/membuf/pkg/buffer"
	"github.com/openmediakit/membuf/pkg/common/mberr"
	"github.com/openmediakit/membuf/pkg/util/metric"
)

// planeGeom pins one plane inside the shared storage: the index of its
// margin-inclusive first octet and the length in octets of one line.
type planeGeom struct {
	base   int
	stride int
}

// Buffer is one picture handle. Several handles may reference the same
// shared storage after Dup; the visible window fields below are per-handle
// and move independently under Resize.
type Buffer struct {
	mgr    *Manager
	shared *buffer.Shared

	planes []planeGeom

	// visible window, in macropixels horizontally and lines vertically
	hmsize    int
	vsize     int
	hmprepend int
	hmappend  int
	vprepend  int
	vappend   int

	// debug counter of outstanding plane maps
	maps atomic.Int32
}

var _ buffer.Buffer = new(Buffer)

// Manager implements buffer.Buffer.
func (b *Buffer) Manager() buffer.Manager { return b.mgr }

// Size returns the visible dimensions in pixels and the macropixel of the
// picture.
func (b *Buffer) Size() buffer.PicSizeResult {
	return buffer.PicSizeResult{
		HSize:      b.hmsize * b.mgr.macropixel,
		VSize:      b.vsize,
		Macropixel: b.mgr.macropixel,
	}
}

func (b *Buffer) findPlane(chroma string) (int, error) {
	for i, p := range b.mgr.planes {
		if p.Chroma == chroma {
			return i, nil
		}
	}
	return 0, mberr.NewNoSuchPlane(context.Background(), chroma)
}

// IteratePlane walks the plane list: pass "" to get the first chroma, then
// feed each result back to get the next. The empty string marks the end.
func (b *Buffer) IteratePlane(prev string) (string, error) {
	if prev == "" {
		if len(b.mgr.planes) == 0 {
			return "", nil
		}
		return b.mgr.planes[0].Chroma, nil
	}
	i, err := b.findPlane(prev)
	if err != nil {
		return "", err
	}
	if i+1 >= len(b.mgr.planes) {
		return "", nil
	}
	return b.mgr.planes[i+1].Chroma, nil
}

// PlaneSize returns the stride and geometry parameters of one plane.
func (b *Buffer) PlaneSize(chroma string) (buffer.PlaneSizeResult, error) {
	i, err := b.findPlane(chroma)
	if err != nil {
		return buffer.PlaneSizeResult{}, err
	}
	p := b.mgr.planes[i]
	return buffer.PlaneSizeResult{
		Stride:         b.planes[i].stride,
		HSub:           p.HSub,
		VSub:           p.VSub,
		MacropixelSize: p.MacropixelSize,
	}, nil
}

// windowStart converts a pixel rectangle on one plane into an octet range of
// the shared storage. Offsets and sizes must be aligned on the plane's
// effective sub-sampled macropixel grid.
func (b *Buffer) windowStart(i, hoff, voff, hsize, vsize int) (start, length int, err error) {
	ctx := context.Background()
	p := b.mgr.planes[i]
	hgrid := b.mgr.macropixel * p.HSub
	if hoff < 0 || voff < 0 || hsize <= 0 || vsize <= 0 {
		return 0, 0, mberr.NewInvalidArg(ctx, "window", []int{hoff, voff, hsize, vsize})
	}
	if hoff%hgrid != 0 || hsize%hgrid != 0 || voff%p.VSub != 0 || vsize%p.VSub != 0 {
		return 0, 0, mberr.NewInvalidArg(ctx, "window", []int{hoff, voff, hsize, vsize})
	}
	if hoff+hsize > b.hmsize*b.mgr.macropixel || voff+vsize > b.vsize {
		return 0, 0, mberr.NewOutOfRange(ctx, hoff+hsize, b.hmsize*b.mgr.macropixel)
	}

	g := b.planes[i]
	start = g.base +
		(b.vprepend+voff)/p.VSub*g.stride +
		(b.hmprepend+hoff/b.mgr.macropixel)/p.HSub*p.MacropixelSize
	rows := vsize / p.VSub
	rowLen := hsize / hgrid * p.MacropixelSize
	length = (rows-1)*g.stride + rowLen
	return start, length, nil
}

// MapRead exposes a read-only view of a pixel rectangle on one plane. The
// returned slice starts at the rectangle's first octet; consecutive lines are
// stride octets apart (see PlaneSize). Unmap must be called when done.
func (b *Buffer) MapRead(chroma string, hoff, voff, hsize, vsize int) ([]byte, error) {
	i, err := b.findPlane(chroma)
	if err != nil {
		return nil, err
	}
	start, length, err := b.windowStart(i, hoff, voff, hsize, vsize)
	if err != nil {
		return nil, err
	}
	b.maps.Add(1)
	return b.shared.Data()[start : start+length], nil
}

// MapWrite is MapRead with write intent: it fails with ErrBufferShared
// unless this handle is the sole referent of the storage.
func (b *Buffer) MapWrite(chroma string, hoff, voff, hsize, vsize int) ([]byte, error) {
	if !b.shared.Single() {
		return nil, mberr.NewBufferShared(context.Background())
	}
	return b.MapRead(chroma, hoff, voff, hsize, vsize)
}

// Unmap balances one MapRead or MapWrite.
func (b *Buffer) Unmap(chroma string) error {
	if _, err := b.findPlane(chroma); err != nil {
		return err
	}
	maps := b.maps.Add(-1)
	buffer.Assert(maps >= 0, "picture unmapped more times than mapped")
	return nil
}

// Resize moves the visible window within the allocated margins. hskip and
// vskip shift the top-left corner (negative values grow into the prepended
// margin); the new size must fit in the storage laid out at allocation time.
// Resizing never touches pixels and is allowed on shared storage.
func (b *Buffer) Resize(hskip, vskip, newHSize, newVSize int) error {
	ctx := context.Background()
	if newHSize <= 0 || newVSize <= 0 || newHSize%b.mgr.macropixel != 0 {
		return mberr.NewInvalidArg(ctx, "size", []int{newHSize, newVSize})
	}
	if hskip%b.mgr.macropixel != 0 {
		return mberr.NewInvalidArg(ctx, "hskip", hskip)
	}

	hmskip := hskip / b.mgr.macropixel
	newHmsize := newHSize / b.mgr.macropixel
	totalHm := b.hmprepend + b.hmsize + b.hmappend
	totalV := b.vprepend + b.vsize + b.vappend

	hmprepend := b.hmprepend + hmskip
	vprepend := b.vprepend + vskip
	if hmprepend < 0 || hmprepend+newHmsize > totalHm {
		return mberr.NewResizeBudget(ctx,
			"horizontal window [%d, %d) outside [0, %d)", hmprepend, hmprepend+newHmsize, totalHm)
	}
	if vprepend < 0 || vprepend+newVSize > totalV {
		return mberr.NewResizeBudget(ctx,
			"vertical window [%d, %d) outside [0, %d)", vprepend, vprepend+newVSize, totalV)
	}

	b.hmprepend = hmprepend
	b.hmappend = totalHm - hmprepend - newHmsize
	b.hmsize = newHmsize
	b.vprepend = vprepend
	b.vappend = totalV - vprepend - newVSize
	b.vsize = newVSize
	return nil
}

// DupPic returns a second handle on the same pixels. Storage is shared, not
// copied; the new handle starts with the same visible window and no
// outstanding maps.
func (b *Buffer) DupPic() (*Buffer, error) {
	nb := b.mgr.allocHandle()
	b.mgr.Retain()
	b.shared.Retain()
	nb.shared = b.shared
	nb.planes = append(nb.planes[:0], b.planes...)
	nb.hmsize = b.hmsize
	nb.vsize = b.vsize
	nb.hmprepend = b.hmprepend
	nb.hmappend = b.hmappend
	nb.vprepend = b.vprepend
	nb.vappend = b.vappend
	metric.PicDupCounter.Inc()
	return nb, nil
}

// Dup implements buffer.Buffer.
func (b *Buffer) Dup() (buffer.Buffer, error) {
	return b.DupPic()
}

// Control implements buffer.Buffer using the typed methods above.
func (b *Buffer) Control(cmd buffer.Command, args any) (any, error) {
	ctx := context.Background()
	switch cmd {
	case buffer.CmdDup:
		return b.DupPic()
	case buffer.CmdSize:
		return b.Size(), nil
	case buffer.CmdIteratePlane:
		a, ok := args.(buffer.IteratePlaneArgs)
		if !ok {
			return nil, mberr.NewInvalidArg(ctx, "args", args)
		}
		return b.IteratePlane(a.Prev)
	case buffer.CmdPlaneSize:
		chroma, ok := args.(string)
		if !ok {
			return nil, mberr.NewInvalidArg(ctx, "args", args)
		}
		return b.PlaneSize(chroma)
	case buffer.CmdMapRead:
		a, ok := args.(buffer.PicMapArgs)
		if !ok {
			return nil, mberr.NewInvalidArg(ctx, "args", args)
		}
		return b.MapRead(a.Chroma, a.HOffset, a.VOffset, a.HSize, a.VSize)
	case buffer.CmdMapWrite:
		a, ok := args.(buffer.PicMapArgs)
		if !ok {
			return nil, mberr.NewInvalidArg(ctx, "args", args)
		}
		return b.MapWrite(a.Chroma, a.HOffset, a.VOffset, a.HSize, a.VSize)
	case buffer.CmdUnmap:
		chroma, ok := args.(string)
		if !ok {
			return nil, mberr.NewInvalidArg(ctx, "args", args)
		}
		return nil, b.Unmap(chroma)
	case buffer.CmdResize:
		a, ok := args.(buffer.PicResizeArgs)
		if !ok {
			return nil, mberr.NewInvalidArg(ctx, "args", args)
		}
		return nil, b.Resize(a.HSkip, a.VSkip, a.NewHSize, a.NewVSize)
	default:
		return nil, mberr.NewNotSupported(ctx, "command %s on shape picture", cmd)
	}
}

// Free implements buffer.Buffer. The handle goes back to its manager's pool;
// the shared storage is returned to the allocator when the last handle
// referencing it is freed.
func (b *Buffer) Free() {
	buffer.Assert(b.maps.Load() == 0, "picture freed with outstanding maps")
	mgr := b.mgr
	if b.shared.Release() {
		mgr.allocator.Free(b.shared.Data())
		b.shared.Clear()
		mgr.recycleShared(b.shared)
	}
	mgr.recycleHandle(b)
	mgr.Release()
	metric.PicFreeCounter.Inc()
}
