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

//go:build linux || darwin

package mem

import "golang.org/x/sys/unix"

const mmapThreshold = 1 << 20

// mmapAllocator maps requests of mmapThreshold bytes and above anonymously,
// returning the pages to the kernel on Free. Smaller requests delegate to the
// upstream allocator.
type mmapAllocator struct {
	upstream Allocator
}

// NewMmapAllocator returns an allocator backing large buffers with anonymous
// memory mappings.
func NewMmapAllocator(upstream Allocator) Allocator {
	return &mmapAllocator{upstream: upstream}
}

func (m *mmapAllocator) Alloc(size int) ([]byte, error) {
	if size < mmapThreshold {
		return m.upstream.Alloc(size)
	}
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (m *mmapAllocator) Free(data []byte) {
	if cap(data) < mmapThreshold {
		m.upstream.Free(data)
		return
	}
	if err := unix.Munmap(data[:cap(data)]); err != nil {
		panic(err)
	}
}
