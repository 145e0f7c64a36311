// Package main runs a batch of jobs on a fixedpool.WorkerPool.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/damnever/fixedpool"
)

func main() {
	var (
		configFile = flag.String("config", "", "config file path (YAML/JSON)")
		workers    = flag.Int("workers", 4, "number of workers, overrides the config file")
		jobs       = flag.Int("jobs", 100, "number of jobs to run")
		jobTime    = flag.Duration("job-time", 10*time.Millisecond, "time spent by each job")
		metrics    = flag.Bool("metrics", false, "enable Prometheus metrics")
		addr       = flag.String("addr", "", "serve /metrics on this address, e.g. :9090")
		linger     = flag.Duration("linger", 0, "keep serving /metrics after the batch")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `fixedpool-demo - run a batch of jobs on a fixed-size worker pool

Usage:
  fixedpool-demo [options]

Options:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := fixedpool.Config{Workers: *workers}
	if *configFile != "" {
		loaded, err := fixedpool.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workers
		case "metrics":
			cfg.Metrics.Enabled = *metrics
		}
	})

	if err := run(cfg, *jobs, *jobTime, *addr, *linger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg fixedpool.Config, njobs int, jobTime time.Duration, addr string, linger time.Duration) error {
	reg := prometheus.NewRegistry()
	pool, err := fixedpool.NewFromConfig(cfg, reg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer server.Close()
	}

	var done atomic.Int64
	start := time.Now()
	for i := 0; i < njobs; i++ {
		if err := pool.Execute(func() {
			time.Sleep(jobTime)
			done.Add(1)
		}); err != nil {
			return err
		}
	}
	if err := pool.Close(); err != nil {
		return err
	}

	stats := pool.Stats()
	fmt.Printf("workers=%d jobs=%d completed=%d panicked=%d elapsed=%s\n",
		pool.Size(), done.Load(), stats.CompletedJobs, stats.PanickedJobs, time.Since(start).Round(time.Millisecond))

	if addr != "" && linger > 0 {
		time.Sleep(linger)
	}
	return nil
}
