package buildpipeline

import (
	"fmt"
	"sync/atomic"
)

// buildMetrics tracks scheduler behaviour with atomics so workers never
// contend on a lock for bookkeeping.
type buildMetrics struct {
	parseRuns   atomic.Int64
	parseHits   atomic.Int64
	checkRuns   atomic.Int64
	checkHits   atomic.Int64
	codegenRuns atomic.Int64
	codegenHits atomic.Int64

	modulesFailed  atomic.Int64
	modulesBlocked atomic.Int64

	waveCount     atomic.Int64
	waveSizeTotal atomic.Int64
	waveSizeMax   atomic.Int64
}

func (m *buildMetrics) noteWave(size int) {
	m.waveCount.Add(1)
	m.waveSizeTotal.Add(int64(size))
	for {
		cur := m.waveSizeMax.Load()
		if int64(size) <= cur || m.waveSizeMax.CompareAndSwap(cur, int64(size)) {
			return
		}
	}
}

// MetricsSnapshot is the read-only view handed out after the build. Runs
// count actual stage executions; hits count cache re-hydrations. A fully warm
// build has zero runs for every stage.
type MetricsSnapshot struct {
	ParseRuns   int64
	ParseHits   int64
	CheckRuns   int64
	CheckHits   int64
	CodegenRuns int64
	CodegenHits int64

	ModulesFailed  int64
	ModulesBlocked int64

	Waves       int64
	WaveSizeAvg float64
	WaveSizeMax int64
}

func (m *buildMetrics) snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		ParseRuns:      m.parseRuns.Load(),
		ParseHits:      m.parseHits.Load(),
		CheckRuns:      m.checkRuns.Load(),
		CheckHits:      m.checkHits.Load(),
		CodegenRuns:    m.codegenRuns.Load(),
		CodegenHits:    m.codegenHits.Load(),
		ModulesFailed:  m.modulesFailed.Load(),
		ModulesBlocked: m.modulesBlocked.Load(),
		Waves:          m.waveCount.Load(),
		WaveSizeMax:    m.waveSizeMax.Load(),
	}
	if s.Waves > 0 {
		s.WaveSizeAvg = float64(m.waveSizeTotal.Load()) / float64(s.Waves)
	}
	return s
}

func (s MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"parse: %d run, %d cached | check: %d run, %d cached | codegen: %d run, %d cached | "+
			"modules: %d failed, %d blocked | waves: %d (avg=%.1f, max=%d)",
		s.ParseRuns, s.ParseHits,
		s.CheckRuns, s.CheckHits,
		s.CodegenRuns, s.CodegenHits,
		s.ModulesFailed, s.ModulesBlocked,
		s.Waves, s.WaveSizeAvg, s.WaveSizeMax,
	)
}

// StageExecutions returns the total number of stage functions actually run,
// cache hits excluded.
func (s MetricsSnapshot) StageExecutions() int64 {
	return s.ParseRuns + s.CheckRuns + s.CodegenRuns
}
