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

// Package buffer defines the handle and manager contract of the zero-copy
// buffer engine. A Buffer is an opaque handle over reference-counted shared
// storage; writing requires exclusive ownership of that storage, so fan-out
// to several consumers never copies bytes until one of them needs to mutate.
//
// Concrete managers live in the block and pic subpackages. A handle is owned
// by one thread at a time; only manager and shared-storage reference counts
// may be touched concurrently.
package buffer

// Shape discriminates the buffer kinds a manager can allocate.
type Shape int

const (
	// Block is a byte-oriented buffer, possibly chained into a multi-segment
	// logical sequence.
	Block Shape = iota
	// Picture is a multi-plane pixel buffer with sub-sampled chroma planes.
	Picture
)

func (s Shape) String() string {
	switch s {
	case Block:
		return "block"
	case Picture:
		return "picture"
	}
	return "unknown"
}

// AllocParams carries the shape-specific allocation parameters: Size for
// block buffers, HSize/VSize in pixels for picture buffers.
type AllocParams struct {
	Size  int
	HSize int
	VSize int
}

// Manager is the polymorphism boundary of the engine: every buffer kind is
// reached through this operation set, and a new storage kind (memory-mapped,
// GPU-backed) becomes usable by implementing it.
//
// Handles keep their manager alive: every successful Alloc takes a manager
// reference which Buffer.Free returns.
type Manager interface {
	// Alloc returns a new buffer of the given shape, drawing the handle and
	// its storage from the manager pools when possible. Managers of the
	// wrong shape fail with a not-supported error.
	Alloc(shape Shape, p AllocParams) (Buffer, error)
	// Vacuum drains the manager free lists, destroying everything pooled.
	// It never touches live handles and is safe to call at any time.
	Vacuum()
	Retain()
	Release()
}

// Buffer is the caller-visible reference to a byte or pixel region.
type Buffer interface {
	Manager() Manager
	// Dup creates a second handle sharing the same storage without copying
	// bytes. The duplicate is an independent value; freeing one handle never
	// invalidates the other.
	Dup() (Buffer, error)
	// Control runs a polymorphic command. Variants implement the subset
	// meaningful to their shape and fail with a not-supported error
	// otherwise.
	Control(cmd Command, args any) (any, error)
	// Free releases the handle. The storage is released when its last
	// handle goes; handle and storage are then recycled through the manager
	// pools.
	Free()
}
