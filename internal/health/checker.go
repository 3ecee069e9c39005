// Package health probes the application's dependencies and reports a
// point-in-time health snapshot: graph database reachability, metrics
// database reachability and process memory figures.
package health

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"callqa/pkg/logger"
)

// GraphPinger is the connectivity probe of the graph client.
type GraphPinger interface {
	Ping(ctx context.Context) error
}

// StorePinger is the connectivity probe of the metrics store.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Probe is the outcome of one dependency check.
type Probe struct {
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

// MemoryStats is a trimmed view of the Go runtime's memory figures.
type MemoryStats struct {
	AllocMB    float64 `json:"alloc_mb"`
	SysMB      float64 `json:"sys_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
}

// Report is one health snapshot. Healthy is true only when every
// dependency probe succeeded.
type Report struct {
	Timestamp time.Time   `json:"timestamp"`
	Healthy   bool        `json:"healthy"`
	Graph     Probe       `json:"graph"`
	MetricsDB Probe       `json:"metrics_db"`
	Memory    MemoryStats `json:"memory"`
}

// Checker runs the dependency probes.
type Checker struct {
	graph  GraphPinger
	store  StorePinger
	logger *zap.Logger
}

// NewChecker creates a health checker over the given probes.
func NewChecker(graph GraphPinger, store StorePinger) *Checker {
	return &Checker{graph: graph, store: store, logger: logger.Get()}
}

// Check probes every dependency and returns the snapshot. The probes run
// concurrently and each one reports rather than aborts: a failed probe
// never cancels its siblings.
func (c *Checker) Check(ctx context.Context) *Report {
	report := &Report{Timestamp: time.Now().UTC()}

	var g errgroup.Group
	g.Go(func() error {
		report.Graph = runProbe(ctx, c.graph.Ping)
		return nil
	})
	g.Go(func() error {
		report.MetricsDB = runProbe(ctx, c.store.Ping)
		return nil
	})
	_ = g.Wait()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	report.Memory = MemoryStats{
		AllocMB:    float64(mem.Alloc) / (1 << 20),
		SysMB:      float64(mem.Sys) / (1 << 20),
		NumGC:      mem.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	report.Healthy = report.Graph.OK && report.MetricsDB.OK
	if !report.Healthy {
		c.logger.Warn("health check failed",
			zap.Bool("graph_ok", report.Graph.OK),
			zap.Bool("metrics_db_ok", report.MetricsDB.OK),
		)
	}
	return report
}

func runProbe(ctx context.Context, ping func(context.Context) error) Probe {
	start := time.Now()
	err := ping(ctx)
	probe := Probe{OK: err == nil, Latency: time.Since(start)}
	if err != nil {
		probe.Error = err.Error()
	}
	return probe
}
