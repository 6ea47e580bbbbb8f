package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/plus3/cellquery/ecs"
	"github.com/plus3/cellquery/ecs/archetypes"
	"github.com/plus3/cellquery/ecs/components"
	"github.com/plus3/cellquery/internal/config"
	"github.com/plus3/cellquery/store"
	"github.com/plus3/cellquery/visualize"
)

var (
	runConfigPath     string
	runDuration       time.Duration
	runWorkers        int
	runSeed           int64
	runIngestInterval time.Duration
	runGCPauseMetrics bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Populate a store and run concurrent query workers",
	Long: `Populate an in-memory store with generated points and scalars, then run
one visualizer scheduler per worker until the duration elapses. Each frame
resolves the latest points and a bootstrapped scalar window of every entity,
merging blueprint overrides and defaults. A background writer keeps logging
scalar rows so cached queries are invalidated while the workers read.

Flags override the values of the configuration file.`,
	RunE: runStress,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to a YAML configuration file")
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "Total run duration")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Number of concurrent schedulers")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Random seed for generated data")
	runCmd.Flags().DurationVar(&runIngestInterval, "ingest-interval", time.Millisecond, "Interval between background writes (0 disables them)")
	runCmd.Flags().BoolVar(&runGCPauseMetrics, "gc-pause-metrics", false, "Enable detailed GC pause metrics in the report")
	rootCmd.AddCommand(runCmd)
}

func loadConfig(cmd *cobra.Command) (*config.StressConfig, error) {
	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.Load(runConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("duration") {
		cfg.Duration = runDuration
	}
	if flags.Changed("workers") {
		cfg.Workers = runWorkers
	}
	if flags.Changed("seed") {
		cfg.Data.Seed = runSeed
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// workerResult is what one scheduler worker reports back.
type workerResult struct {
	frames  []time.Duration
	errors  int64
	sched   *visualize.SchedulerStats
	points  int64
	colored int64
	samples int64
	hits    int64
	misses  int64
}

func runStress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := ecs.Logger()

	seed := cfg.Data.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>32))

	registry := ecs.NewComponentRegistry()
	components.Register(registry)
	data := store.New(registry)
	blueprint := store.New(registry)
	d := newDataset(cfg)

	logger.Info("populating store", "points", cfg.Data.Points, "scalars", cfg.Data.Scalars,
		"times", cfg.Data.Times, "seed", seed)
	if err := populate(data, d, cfg, rng); err != nil {
		return fmt.Errorf("populate store: %w", err)
	}
	if err := populateBlueprint(blueprint, d, cfg, rng); err != nil {
		return fmt.Errorf("populate blueprint: %w", err)
	}

	report := &Report{
		Duration:       cfg.Duration,
		Workers:        cfg.Workers,
		Points:         cfg.Data.Points,
		Scalars:        cfg.Data.Scalars,
		Instances:      cfg.Data.Instances,
		Times:          cfg.Data.Times,
		Window:         cfg.Query.Window,
		Blueprint:      blueprint.Stats(),
		GCPauseMetrics: runGCPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info("running workers", "workers", cfg.Workers, "duration", cfg.Duration)
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Duration)
	defer cancel()

	var (
		mu       sync.Mutex
		results  []workerResult
		ingested atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	for range cfg.Workers {
		g.Go(func() error {
			res, err := runWorker(gctx, data, blueprint, d, cfg)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return err
		})
	}
	if runIngestInterval > 0 && len(d.scalars) > 0 {
		g.Go(func() error {
			return ingest(gctx, data, d, cfg, runIngestInterval, &ingested)
		})
	}

	startTime := time.Now()
	if err := g.Wait(); err != nil {
		return err
	}
	report.TotalTime = time.Since(startTime)
	runtime.ReadMemStats(&report.MemStatsEnd)

	var schedStats []*visualize.SchedulerStats
	for _, res := range results {
		report.TotalFrames += int64(len(res.frames))
		report.FrameErrors += res.errors
		report.FrameTime.Samples = append(report.FrameTime.Samples, res.frames...)
		report.ResolvedPoints += res.points
		report.ColoredPoints += res.colored
		report.ScalarSamples += res.samples
		report.CacheHits += res.hits
		report.CacheMisses += res.misses
		schedStats = append(schedStats, res.sched)
	}
	report.FrameTime.Finalize()
	report.Visualizers = mergeVisualizerStats(schedStats)
	report.Ingested = ingested.Load()
	report.Data = data.Stats()

	logger.Info("run finished", "frames", report.TotalFrames)
	return report.Generate(os.Stdout)
}

// runWorker drives one scheduler over the frame times of the dataset until ctx
// is done. Visualizer failures are counted; only cancellation stops a worker.
func runWorker(ctx context.Context, data, blueprint *store.Store, d *dataset, cfg *config.StressConfig) (workerResult, error) {
	points := &visualize.PointsVisualizer{Entities: d.points}
	scalars := &visualize.ScalarsVisualizer{Entities: d.scalars, Window: ecs.TimeInt(cfg.Query.Window)}

	sched := visualize.NewScheduler(data, blueprint)
	sched.Register(points)
	sched.Register(scalars)

	var res workerResult
	first := ecs.TimeInt(0)
	last := ecs.TimeInt(cfg.Data.Times - 1)
	t := first
	for ctx.Err() == nil {
		start := time.Now()
		err := sched.Once(ctx, t)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		res.frames = append(res.frames, time.Since(start))
		if err != nil {
			res.errors++
		}
		res.points += int64(points.Points)
		res.colored += int64(points.Colored)
		res.samples += int64(scalars.Samples)

		t += ecs.TimeInt(cfg.Query.Step)
		if t > last {
			t = first
		}
	}

	res.sched = sched.Stats()
	ph, pm := points.CacheStats()
	sh, sm := scalars.CacheStats()
	res.hits, res.misses = ph+sh, pm+sm
	return res, nil
}

// ingest logs extra scalar rows at already populated times through a command
// buffer, one entity at a time, until ctx is done. Every write changes the
// query results of the frames covering its time.
func ingest(ctx context.Context, data *store.Store, d *dataset, cfg *config.StressConfig, interval time.Duration, count *atomic.Int64) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cmds := store.NewCommands()
	i := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			entity := d.scalars[i%len(d.scalars)]
			t := ecs.TimeInt(i % cfg.Data.Times)
			cmds.Log(entity, t, archetypes.Scalars{Values: []components.Scalar{components.Scalar(float64(i))}})
			cmds.Defer(func() { count.Add(1) })
			if err := cmds.Flush(data); err != nil {
				return fmt.Errorf("ingest %s: %w", entity, err)
			}
			i++
		}
	}
}
