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

import "github.com/prometheus/client_golang/prometheus"

// metricsAllocator counts bytes flowing through an upstream allocator.
type metricsAllocator struct {
	upstream  Allocator
	allocated prometheus.Counter
	inuse     prometheus.Gauge
}

// NewMetricsAllocator wraps upstream, adding every allocation to the
// allocated counter and tracking outstanding bytes in the inuse gauge. The
// collectors of pkg/util/metric carry one pre-bound pair per allocator layer.
func NewMetricsAllocator(upstream Allocator, allocated prometheus.Counter, inuse prometheus.Gauge) Allocator {
	return &metricsAllocator{
		upstream:  upstream,
		allocated: allocated,
		inuse:     inuse,
	}
}

func (m *metricsAllocator) Alloc(size int) ([]byte, error) {
	data, err := m.upstream.Alloc(size)
	if err != nil {
		return nil, err
	}
	m.allocated.Add(float64(size))
	m.inuse.Add(float64(size))
	return data, nil
}

func (m *metricsAllocator) Free(data []byte) {
	m.inuse.Sub(float64(len(data)))
	m.upstream.Free(data)
}
