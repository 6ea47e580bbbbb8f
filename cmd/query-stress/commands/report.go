package commands

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/plus3/cellquery/store"
	"github.com/plus3/cellquery/visualize"
)

type Report struct {
	// Configuration
	Duration  time.Duration
	Workers   int
	Points    int
	Scalars   int
	Instances int
	Times     int
	Window    int64

	// Store content
	Data      store.Stats
	Blueprint store.Stats

	// Results
	TotalFrames    int64
	FrameErrors    int64
	Ingested       int64
	TotalTime      time.Duration
	FrameTime      Stats
	Visualizers    []visualize.VisualizerStats
	ResolvedPoints int64
	ColoredPoints  int64
	ScalarSamples  int64
	CacheHits      int64
	CacheMisses    int64

	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	P99     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))

	sorted := slices.Clone(s.Samples)
	slices.Sort(sorted)
	s.P99 = sorted[len(sorted)*99/100]
}

// mergeVisualizerStats folds the per-worker scheduler stats by visualizer name.
func mergeVisualizerStats(all []*visualize.SchedulerStats) []visualize.VisualizerStats {
	var merged []visualize.VisualizerStats
	index := make(map[string]int)
	for _, stats := range all {
		for _, v := range stats.Visualizers {
			i, ok := index[v.Name]
			if !ok {
				index[v.Name] = len(merged)
				merged = append(merged, v)
				continue
			}
			m := &merged[i]
			m.ExecutionCount += v.ExecutionCount
			m.ErrorCount += v.ErrorCount
			m.TotalDuration += v.TotalDuration
			m.MinDuration = min(m.MinDuration, v.MinDuration)
			m.MaxDuration = max(m.MaxDuration, v.MaxDuration)
		}
	}
	for i := range merged {
		if merged[i].ExecutionCount > 0 {
			merged[i].AvgDuration = merged[i].TotalDuration / time.Duration(merged[i].ExecutionCount)
		}
	}
	return merged
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Query Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Workers:** {{.Workers}}
- **Points Entities:** {{.Points}} ({{.Instances}} instances per row)
- **Scalar Entities:** {{.Scalars}}
- **Rows per Entity:** {{.Times}}
- **Range Window:** {{.Window}}

## Store
- **Entities:** {{.Data.Entities}} data, {{.Blueprint.Entities}} blueprint
- **Rows:** {{.Data.Rows}} data, {{.Blueprint.Rows}} blueprint
- **Cell Bytes:** {{mb .Data.SizeBytes}} MB

## Performance Results
- **Total Frames:** {{.TotalFrames}} ({{.FrameErrors}} with errors)
- **Rows Ingested During Run:** {{.Ingested}}
- **Total Test Time:** {{.TotalTime}}
- **Frame Time:**
  - **Avg:** {{.FrameTime.Avg}}
  - **Min:** {{.FrameTime.Min}}
  - **Max:** {{.FrameTime.Max}}
  - **P99:** {{.FrameTime.P99}}
- **Resolved Points:** {{.ResolvedPoints}} ({{.ColoredPoints}} colored)
- **Scalar Samples:** {{.ScalarSamples}}
- **Query Cache:** {{.CacheHits}} hits, {{.CacheMisses}} misses

## Visualizers
{{range .Visualizers}}- **{{.Name}}:** {{.ExecutionCount}} runs, {{.ErrorCount}} errors, avg {{.AvgDuration}}, max {{.MaxDuration}}
{{end}}
## Memory Usage (Raw Bytes)
- Heap Alloc:     {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Sys Memory:     {{.MemStatsStart.Sys}} (start) -> {{.MemStatsEnd.Sys}} (end) -> delta: {{bsub .MemStatsEnd.Sys .MemStatsStart.Sys}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"mb": func(v any) string {
			switch val := v.(type) {
			case uint64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case int64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			default:
				return "N/A"
			}
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
