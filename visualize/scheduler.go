// Package visualize runs visualizers against a store once per frame.
package visualize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plus3/cellquery/ecs"
	"github.com/plus3/cellquery/store"
)

// Visualizer reads from the stores of a frame, typically through resolvers and
// archetype views. Writes go through frame.Commands and are applied after
// every visualizer ran.
type Visualizer interface {
	Name() string
	Execute(ctx context.Context, frame *Frame) error
}

// Frame is the input of one scheduler pass.
type Frame struct {
	Time      ecs.TimeInt
	Store     *store.Store
	Blueprint *store.Store
	Commands  *store.Commands
}

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	VisualizerCount int
	TotalExecutions int64
	Visualizers     []VisualizerStats
}

// VisualizerStats provides execution statistics for a single visualizer.
type VisualizerStats struct {
	Name           string
	ExecutionCount int64
	ErrorCount     int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type visualizerStatsInternal struct {
	name           string
	executionCount int64
	errorCount     int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// Scheduler manages and executes visualizers in order.
type Scheduler struct {
	store       *store.Store
	blueprint   *store.Store
	visualizers []Visualizer
	stats       []*visualizerStatsInternal
	logger      *slog.Logger
}

// NewScheduler creates a scheduler reading from data and blueprint stores.
func NewScheduler(data, blueprint *store.Store) *Scheduler {
	return &Scheduler{
		store:     data,
		blueprint: blueprint,
		logger:    ecs.Logger(),
	}
}

// Register adds a visualizer to the scheduler.
func (s *Scheduler) Register(v Visualizer) {
	s.visualizers = append(s.visualizers, v)
	s.stats = append(s.stats, &visualizerStatsInternal{
		name:        v.Name(),
		minDuration: time.Duration(1<<63 - 1),
	})
}

// Once executes all registered visualizers at time t, then flushes the
// commands they queued. A failing visualizer is logged and does not stop the
// others; all failures are returned joined.
func (s *Scheduler) Once(ctx context.Context, t ecs.TimeInt) error {
	frame := &Frame{
		Time:      t,
		Store:     s.store,
		Blueprint: s.blueprint,
		Commands:  store.NewCommands(),
	}

	var errs []error
	for i, v := range s.visualizers {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := v.Execute(ctx, frame)
		duration := time.Since(start)

		stats := s.stats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration
		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}

		if err != nil {
			stats.errorCount++
			s.logger.Warn("visualizer failed", "visualizer", v.Name(), "time", t, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", v.Name(), err))
		}
	}

	if err := frame.Commands.Flush(s.store); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run executes all visualizers repeatedly at the given interval until the
// context is cancelled. The frame time advances by step on every tick.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, start, step ecs.TimeInt) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t := start
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Once(ctx, t)
			t += step
		}
	}
}

// Stats returns statistics about visualizer execution.
func (s *Scheduler) Stats() *SchedulerStats {
	stats := &SchedulerStats{
		VisualizerCount: len(s.visualizers),
		Visualizers:     make([]VisualizerStats, len(s.stats)),
	}

	var totalExecs int64
	for i, internal := range s.stats {
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Visualizers[i] = VisualizerStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			ErrorCount:     internal.errorCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
