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

package buffer

// Command identifies a polymorphic buffer operation routed through
// Buffer.Control.
type Command int

const (
	// CmdDup duplicates the handle. No args; result is a Buffer.
	CmdDup Command = iota
	// CmdSize queries the extent. No args; block result is an int (total
	// size in bytes), picture result is a PicSizeResult.
	CmdSize
	// CmdMapRead maps a window for reading. Block args BlockMapArgs,
	// picture args PicMapArgs; result is a []byte.
	CmdMapRead
	// CmdMapWrite maps a window for writing. Same args as CmdMapRead; fails
	// while the storage is shared.
	CmdMapWrite
	// CmdUnmap unpairs one previous successful map. Block takes no args,
	// picture args are the chroma string; no result.
	CmdUnmap
	// CmdResize changes the visible window. Block args BlockResizeArgs,
	// picture args PicResizeArgs; no result.
	CmdResize
	// CmdIteratePlane iterates plane chromas. Args IteratePlaneArgs; result
	// is the next chroma string, "" after the last plane.
	CmdIteratePlane
	// CmdPlaneSize queries one plane's geometry. Args are the chroma string;
	// result is a PlaneSizeResult.
	CmdPlaneSize
)

func (c Command) String() string {
	switch c {
	case CmdDup:
		return "dup"
	case CmdSize:
		return "size"
	case CmdMapRead:
		return "map-read"
	case CmdMapWrite:
		return "map-write"
	case CmdUnmap:
		return "unmap"
	case CmdResize:
		return "resize"
	case CmdIteratePlane:
		return "iterate-plane"
	case CmdPlaneSize:
		return "plane-size"
	}
	return "unknown"
}

// BlockMapArgs addresses a byte window of a block buffer's logical sequence.
type BlockMapArgs struct {
	Offset int
	Size   int
}

// BlockResizeArgs moves the visible window of a block buffer: Skip bytes are
// dropped from the front and the window is truncated to NewSize.
type BlockResizeArgs struct {
	Skip    int
	NewSize int
}

// PicSizeResult is the CmdSize result for picture buffers.
type PicSizeResult struct {
	HSize      int
	VSize      int
	Macropixel int
}

// PicMapArgs addresses a rectangle of one plane, in pixels relative to the
// visible window.
type PicMapArgs struct {
	Chroma  string
	HOffset int
	VOffset int
	HSize   int
	VSize   int
}

// PicResizeArgs adjusts a picture's visible window inside the reserved
// margins. HSkip/VSkip may be negative to grow into the prepend margins.
type PicResizeArgs struct {
	HSkip    int
	VSkip    int
	NewHSize int
	NewVSize int
}

// IteratePlaneArgs iterates plane chromas: pass "" to get the first chroma,
// then the previous result to get the next.
type IteratePlaneArgs struct {
	Prev string
}

// PlaneSizeResult is the CmdPlaneSize result.
type PlaneSizeResult struct {
	Stride         int
	HSub           int
	VSub           int
	MacropixelSize int
}
