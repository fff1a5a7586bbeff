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
	"context"
	"sync/atomic"

	"github.com/openmediakit/membuf/pkg/common/mberr"
)

// limitAllocator caps the total bytes outstanding from an upstream
// allocator. Alloc past the cap fails with an OOM error and leaves the
// accounting untouched.
type limitAllocator struct {
	upstream Allocator
	cap      int64
	inuse    atomic.Int64
}

// NewLimitAllocator wraps upstream with a byte cap.
func NewLimitAllocator(upstream Allocator, capBytes int64) Allocator {
	return &limitAllocator{
		upstream: upstream,
		cap:      capBytes,
	}
}

func (l *limitAllocator) Alloc(size int) ([]byte, error) {
	if l.inuse.Add(int64(size)) > l.cap {
		l.inuse.Add(-int64(size))
		return nil, mberr.NewOOM(context.Background())
	}
	data, err := l.upstream.Alloc(size)
	if err != nil {
		l.inuse.Add(-int64(size))
		return nil, err
	}
	return data, nil
}

func (l *limitAllocator) Free(data []byte) {
	l.inuse.Add(-int64(len(data)))
	l.upstream.Free(data)
}
