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

// Package mem provides the raw-memory allocators that buffer managers draw
// their shared storage from. Allocators compose: a class allocator recycles
// small same-size-class buffers, an mmap allocator maps large ones, and
// wrappers add byte caps and metrics.
package mem

// Allocator hands out byte slices. Free must be called with the exact slice
// returned by Alloc, at most once.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(data []byte)
}

type goAllocator struct{}

// New returns the plain allocator backed by the Go runtime.
func New() Allocator {
	return goAllocator{}
}

func (goAllocator) Alloc(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (goAllocator) Free(data []byte) {
}
