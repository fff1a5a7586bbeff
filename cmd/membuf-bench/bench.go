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

package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/openmediakit/membuf/pkg/buffer/block"
	"github.com/openmediakit/membuf/pkg/buffer/pic"
	"github.com/openmediakit/membuf/pkg/common/mem"
	"github.com/openmediakit/membuf/pkg/logutil"
	"github.com/openmediakit/membuf/pkg/util/metric"
)

type benchStats struct {
	blockOps atomic.Int64
	picOps   atomic.Int64
	errors   atomic.Int64
}

// runBench churns block and picture buffers on cfg.Workers goroutines until
// ctx is done. Each worker owns its managers outright; the only state crossing
// workers is the stats counters.
func runBench(ctx context.Context, cfg *BenchConfig) error {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	stats := &benchStats{}
	stopReport := startReporter(cfg, stats)
	defer stopReport()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		worker := i
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := runWorker(ctx, cfg, stats); err != nil {
				logutil.Error("worker failed",
					zap.Int("worker", worker), zap.Error(err))
				stats.errors.Add(1)
			}
		}); err != nil {
			wg.Done()
			return err
		}
	}
	wg.Wait()

	logutil.Info("bench finished",
		zap.Int64("block_ops", stats.blockOps.Load()),
		zap.Int64("pic_ops", stats.picOps.Load()),
		zap.Int64("errors", stats.errors.Load()))
	return nil
}

func startReporter(cfg *BenchConfig, stats *benchStats) (stop func()) {
	if cfg.reportInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.reportInterval)
		defer ticker.Stop()
		lastBlock, lastPic := int64(0), int64(0)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				blockOps := stats.blockOps.Load()
				picOps := stats.picOps.Load()
				logutil.Info("throughput",
					zap.Int64("block_ops", blockOps-lastBlock),
					zap.Int64("pic_ops", picOps-lastPic))
				lastBlock, lastPic = blockOps, picOps
			}
		}
	}()
	return func() { close(done) }
}

func newAllocator(cfg *BenchConfig) mem.Allocator {
	base := mem.NewMetricsAllocator(mem.NewMmapAllocator(mem.New()),
		metric.MemMmapAllocatedBytesCounter, metric.MemMmapInuseBytesGauge)
	allocator := mem.NewMetricsAllocator(mem.NewClassAllocator(base),
		metric.MemClassAllocatedBytesCounter, metric.MemClassInuseBytesGauge)
	if cfg.MemLimit > 0 {
		allocator = mem.NewLimitAllocator(allocator, cfg.MemLimit)
	}
	return allocator
}

func runWorker(ctx context.Context, cfg *BenchConfig, stats *benchStats) error {
	blockMgr := block.NewManager(cfg.PoolDepth, cfg.PoolDepth, newAllocator(cfg))
	defer blockMgr.Release()

	picMgr, err := pic.NewManagerFromFormat(cfg.PicFormat, pic.ManagerOptions{
		HandlePoolDepth: cfg.PoolDepth,
		SharedPoolDepth: cfg.PoolDepth,
		HPrepend:        -1, HAppend: -1,
		VPrepend: -1, VAppend: -1,
		Align: -1,
	}, newAllocator(cfg))
	if err != nil {
		return err
	}
	defer picMgr.Release()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := blockRound(blockMgr, cfg.BlockSize, i); err != nil {
			return err
		}
		stats.blockOps.Add(1)
		if err := picRound(picMgr, cfg.HSize, cfg.VSize, i); err != nil {
			return err
		}
		stats.picOps.Add(1)
	}
}

// blockRound exercises one alloc / write / append / dup / splice / read
// cycle.
func blockRound(mgr *block.Manager, size, round int) error {
	b, err := mgr.AllocBlock(size)
	if err != nil {
		return err
	}
	defer b.Free()

	window, err := b.MapWrite(0, size)
	if err != nil {
		return err
	}
	for i := range window {
		window[i] = byte(round + i)
	}
	b.Unmap()

	tail, err := mgr.AllocBlock(size)
	if err != nil {
		return err
	}
	if err := b.Append(tail); err != nil {
		tail.Free()
		return err
	}

	d, err := b.DupBlock()
	if err != nil {
		return err
	}
	defer d.Free()

	// a window straddling the segment boundary
	s, err := d.Splice(size/2, size)
	if err != nil {
		return err
	}
	defer s.Free()

	_, err = s.ReadAll()
	return err
}

// picRound exercises one alloc / plane write / dup / crop cycle.
func picRound(mgr *pic.Manager, hsize, vsize, round int) error {
	b, err := mgr.AllocPic(hsize, vsize)
	if err != nil {
		return err
	}
	defer b.Free()

	chroma, err := b.IteratePlane("")
	if err != nil {
		return err
	}
	window, err := b.MapWrite(chroma, 0, 0, hsize, vsize)
	if err != nil {
		return err
	}
	window[0] = byte(round)
	window[len(window)-1] = byte(round)
	if err := b.Unmap(chroma); err != nil {
		return err
	}

	d, err := b.DupPic()
	if err != nil {
		return err
	}
	defer d.Free()

	// shift the duplicate's window into the prepended margins
	return d.Resize(-2, -2, hsize+2, vsize+2)
}
