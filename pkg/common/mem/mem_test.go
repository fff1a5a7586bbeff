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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/openmediakit/membuf/pkg/common/mberr"
)

func TestClassSizes(t *testing.T) {
	require.NotEmpty(t, classSizes)
	require.Equal(t, minClassSize, classSizes[0])
	for i := 1; i < len(classSizes); i++ {
		require.Greater(t, classSizes[i], classSizes[i-1])
	}
	require.LessOrEqual(t, classSizes[len(classSizes)-1], maxClassSize)
}

func TestClassAllocatorRecycles(t *testing.T) {
	a := NewClassAllocator(New())

	data, err := a.Alloc(100)
	require.NoError(t, err)
	require.Equal(t, 100, len(data))
	require.Equal(t, minClassSize, cap(data))

	data[0] = 0xff
	a.Free(data)

	// recycled memory comes back zeroed
	again, err := a.Alloc(64)
	require.NoError(t, err)
	require.Equal(t, 64, len(again))
	require.Equal(t, byte(0), again[0])
}

func TestClassAllocatorOversize(t *testing.T) {
	a := NewClassAllocator(New())
	data, err := a.Alloc(maxClassSize * 2)
	require.NoError(t, err)
	require.Equal(t, maxClassSize*2, len(data))
	a.Free(data)
}

func TestMetricsAllocator(t *testing.T) {
	allocated := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_allocated"})
	inuse := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_inuse"})
	a := NewMetricsAllocator(New(), allocated, inuse)

	data, err := a.Alloc(256)
	require.NoError(t, err)
	require.Equal(t, 256.0, testutil.ToFloat64(allocated))
	require.Equal(t, 256.0, testutil.ToFloat64(inuse))

	a.Free(data)
	require.Equal(t, 256.0, testutil.ToFloat64(allocated))
	require.Equal(t, 0.0, testutil.ToFloat64(inuse))
}

func TestLimitAllocator(t *testing.T) {
	a := NewLimitAllocator(New(), 1024)

	data, err := a.Alloc(512)
	require.NoError(t, err)

	_, err = a.Alloc(1024)
	require.Error(t, err)
	require.True(t, mberr.IsOOM(err))

	// failed alloc must not leak accounting
	more, err := a.Alloc(512)
	require.NoError(t, err)

	a.Free(data)
	a.Free(more)

	// everything returned, full cap is available again
	data, err = a.Alloc(1024)
	require.NoError(t, err)
	a.Free(data)
}
