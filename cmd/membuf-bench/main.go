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

// membuf-bench drives allocation churn through the buffer managers and
// reports throughput, for profiling pool depths and allocator settings.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openmediakit/membuf/pkg/logutil"
	"github.com/openmediakit/membuf/pkg/util/metric"
)

var (
	configFile = flag.String("cfg", "./membuf.toml", "toml configuration used to start membuf-bench")
	version    = flag.Bool("version", false, "print version information")
)

func main() {
	flag.Parse()
	maybePrintVersion()

	cfg, err := parseConfigFromFile(*configFile)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config from %s, error: %s", *configFile, err.Error()))
	}

	logutil.Setup(&cfg.Log)
	startMetricsServer(&cfg.Metrics)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	if cfg.Bench.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Bench.duration)
		defer cancel()
	}

	logutil.Info("starting bench",
		zap.Int("workers", cfg.Bench.Workers),
		zap.Duration("duration", cfg.Bench.duration),
		zap.Int("block_size", cfg.Bench.BlockSize),
		zap.String("pic_format", cfg.Bench.PicFormat))
	if err := runBench(ctx, &cfg.Bench); err != nil {
		logutil.Fatal("bench failed", zap.Error(err))
	}
}

func startMetricsServer(cfg *MetricsConfig) {
	if cfg.Addr == "" {
		return
	}
	registry := prometheus.NewRegistry()
	metric.Register(registry)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
			logutil.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

func maybePrintVersion() {
	if !*version {
		return
	}
	fmt.Println("membuf-bench", versionString)
	os.Exit(0)
}
