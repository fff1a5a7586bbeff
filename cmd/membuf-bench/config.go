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
	"runtime"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/openmediakit/membuf/pkg/buffer/pic"
	"github.com/openmediakit/membuf/pkg/logutil"
)

// Config is the toml configuration of membuf-bench.
type Config struct {
	// Log is the [log] section, see logutil.LogConfig.
	Log logutil.LogConfig `toml:"log"`
	// Metrics is the [metrics] section.
	Metrics MetricsConfig `toml:"metrics"`
	// Bench is the [bench] section.
	Bench BenchConfig `toml:"bench"`
}

// MetricsConfig configures the prometheus scrape endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// BenchConfig shapes the allocation churn workload. Every worker owns its own
// managers; only the shared-storage and manager reference counts cross
// goroutines.
type BenchConfig struct {
	// Workers is the number of concurrent workers, default NumCPU.
	Workers int `toml:"workers"`
	// Duration bounds the run, default 10s. Zero runs until a signal.
	Duration string `toml:"duration"`
	// ReportInterval is the period of throughput log lines, default 1s.
	// Nonpositive disables the reporter.
	ReportInterval string `toml:"report-interval"`
	// BlockSize is the byte size of allocated block buffers, default 4096.
	BlockSize int `toml:"block-size"`
	// PoolDepth bounds the handle and storage free lists, default 128.
	PoolDepth int `toml:"pool-depth"`
	// PicFormat names the picture format to churn, default I420.
	PicFormat string `toml:"pic-format"`
	// HSize and VSize are the picture dimensions, default 1920x1080.
	HSize int `toml:"hsize"`
	VSize int `toml:"vsize"`
	// MemLimit caps bytes in flight per worker, 0 for no cap.
	MemLimit int64 `toml:"mem-limit"`

	duration       time.Duration
	reportInterval time.Duration
}

func parseConfigFromFile(file string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(file, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Bench.Workers <= 0 {
		c.Bench.Workers = runtime.NumCPU()
	}
	if c.Bench.BlockSize <= 0 {
		c.Bench.BlockSize = 4096
	}
	if c.Bench.PoolDepth <= 0 {
		c.Bench.PoolDepth = 128
	}
	if c.Bench.PicFormat == "" {
		c.Bench.PicFormat = "I420"
	}
	if _, err := pic.LookupFormat(c.Bench.PicFormat); err != nil {
		return err
	}
	if c.Bench.HSize <= 0 {
		c.Bench.HSize = 1920
	}
	if c.Bench.VSize <= 0 {
		c.Bench.VSize = 1080
	}

	c.Bench.duration = 10 * time.Second
	if c.Bench.Duration != "" {
		d, err := time.ParseDuration(c.Bench.Duration)
		if err != nil {
			return err
		}
		c.Bench.duration = d
	}
	c.Bench.reportInterval = time.Second
	if c.Bench.ReportInterval != "" {
		d, err := time.ParseDuration(c.Bench.ReportInterval)
		if err != nil {
			return err
		}
		c.Bench.reportInterval = d
	}
	return nil
}
