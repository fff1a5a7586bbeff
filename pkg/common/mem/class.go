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

package mem

import (
	"github.com/openmediakit/membuf/pkg/logutil"
	"go.uber.org/zap"
)

const (
	minClassSize    = 128
	maxClassSize    = 1 << 20
	classSizeFactor = 1.5
	objectsPerClass = 64
)

var classSizes = func() (ret []int) {
	for size := minClassSize; size <= maxClassSize; size = int(float64(size) * classSizeFactor) {
		ret = append(ret, size)
	}
	return
}()

// classAllocator recycles buffers through bounded per-size-class pools.
// A full pool drops to the garbage collector, an empty one allocates fresh.
// Requests above the largest class delegate to the upstream allocator.
type classAllocator struct {
	upstream Allocator
	pools    []chan []byte
}

// NewClassAllocator returns an allocator recycling same-size-class buffers,
// delegating oversize requests to upstream.
func NewClassAllocator(upstream Allocator) Allocator {
	c := &classAllocator{
		upstream: upstream,
		pools:    make([]chan []byte, len(classSizes)),
	}
	for i := range c.pools {
		c.pools[i] = make(chan []byte, objectsPerClass)
	}
	logutil.Info("mem: class allocator",
		zap.Int("classes", len(classSizes)),
		zap.Int("min class size", minClassSize),
		zap.Int("max class size", maxClassSize),
		zap.Int("buffered objects per class", objectsPerClass),
	)
	return c
}

func requestSizeToClass(size int) int {
	for class, classSize := range classSizes {
		if classSize >= size {
			return class
		}
	}
	return -1
}

func (c *classAllocator) Alloc(size int) ([]byte, error) {
	class := requestSizeToClass(size)
	if class < 0 {
		return c.upstream.Alloc(size)
	}
	select {
	case data := <-c.pools[class]:
		clear(data)
		return data[:size], nil
	default:
		data := make([]byte, size, classSizes[class])
		return data, nil
	}
}

func (c *classAllocator) Free(data []byte) {
	class := capToClass(cap(data))
	if class < 0 {
		c.upstream.Free(data)
		return
	}
	select {
	case c.pools[class] <- data[:cap(data)]:
	default:
		// pool full, let the GC take it
	}
}

func capToClass(c int) int {
	for class, classSize := range classSizes {
		if classSize == c {
			return class
		}
	}
	return -1
}
