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

package metric

import "github.com/prometheus/client_golang/prometheus"

var (
	memAllocatedBytesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membuf",
			Subsystem: "mem",
			Name:      "allocated_bytes_total",
			Help:      "Total bytes handed out by the raw-memory allocator.",
		}, []string{"allocator"})

	MemClassAllocatedBytesCounter = memAllocatedBytesCounter.WithLabelValues("class")
	MemMmapAllocatedBytesCounter  = memAllocatedBytesCounter.WithLabelValues("mmap")

	memInuseBytesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "membuf",
			Subsystem: "mem",
			Name:      "inuse_bytes",
			Help:      "Bytes currently held by live allocations.",
		}, []string{"allocator"})

	MemClassInuseBytesGauge = memInuseBytesGauge.WithLabelValues("class")
	MemMmapInuseBytesGauge  = memInuseBytesGauge.WithLabelValues("mmap")
)

var (
	poolOpCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membuf",
			Subsystem: "pool",
			Name:      "op_total",
			Help:      "Free-list pool operations by pool and outcome.",
		}, []string{"pool", "op"})

	BlockHandlePoolHitCounter  = poolOpCounter.WithLabelValues("block_handle", "hit")
	BlockHandlePoolMissCounter = poolOpCounter.WithLabelValues("block_handle", "miss")
	BlockHandlePoolDropCounter = poolOpCounter.WithLabelValues("block_handle", "drop")
	BlockSharedPoolHitCounter  = poolOpCounter.WithLabelValues("block_shared", "hit")
	BlockSharedPoolMissCounter = poolOpCounter.WithLabelValues("block_shared", "miss")
	BlockSharedPoolDropCounter = poolOpCounter.WithLabelValues("block_shared", "drop")
	PicHandlePoolHitCounter    = poolOpCounter.WithLabelValues("pic_handle", "hit")
	PicHandlePoolMissCounter   = poolOpCounter.WithLabelValues("pic_handle", "miss")
	PicHandlePoolDropCounter   = poolOpCounter.WithLabelValues("pic_handle", "drop")
	PicSharedPoolHitCounter    = poolOpCounter.WithLabelValues("pic_shared", "hit")
	PicSharedPoolMissCounter   = poolOpCounter.WithLabelValues("pic_shared", "miss")
	PicSharedPoolDropCounter   = poolOpCounter.WithLabelValues("pic_shared", "drop")
	BlockManagerVacuumCounter  = poolOpCounter.WithLabelValues("block_handle", "vacuum")
	PicManagerVacuumCounter    = poolOpCounter.WithLabelValues("pic_handle", "vacuum")
)

var (
	bufferOpCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membuf",
			Subsystem: "buffer",
			Name:      "op_total",
			Help:      "Buffer handle operations by shape.",
		}, []string{"shape", "op"})

	BlockAllocCounter = bufferOpCounter.WithLabelValues("block", "alloc")
	BlockDupCounter   = bufferOpCounter.WithLabelValues("block", "dup")
	BlockFreeCounter  = bufferOpCounter.WithLabelValues("block", "free")
	PicAllocCounter   = bufferOpCounter.WithLabelValues("pic", "alloc")
	PicDupCounter     = bufferOpCounter.WithLabelValues("pic", "dup")
	PicFreeCounter    = bufferOpCounter.WithLabelValues("pic", "free")
)

// Register registers every collector of this package with r.
func Register(r prometheus.Registerer) {
	r.MustRegister(
		memAllocatedBytesCounter,
		memInuseBytesGauge,
		poolOpCounter,
		bufferOpCounter,
	)
}
