package buildpipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Timings aggregates wall-clock time per stage. Per-module durations are
// summed, so with parallel workers the stage totals exceed the build total.
type Timings struct {
	mu sync.Mutex

	Discover time.Duration
	Link     time.Duration
	Total    time.Duration

	stages map[Stage]*stageTiming
}

type stageTiming struct {
	count int
	total time.Duration
	max   time.Duration
}

func newTimings() *Timings {
	return &Timings{stages: make(map[Stage]*stageTiming)}
}

func (t *Timings) add(stage Stage, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.stages[stage]
	if st == nil {
		st = &stageTiming{}
		t.stages[stage] = st
	}
	st.count++
	st.total += d
	if d > st.max {
		st.max = d
	}
}

// Stage returns the accumulated totals for one stage.
func (t *Timings) Stage(stage Stage) (count int, total, max time.Duration) {
	if t == nil {
		return 0, 0, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.stages[stage]
	if st == nil {
		return 0, 0, 0
	}
	return st.count, st.total, st.max
}

func (t *Timings) String() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "total %s (discover %s, link %s)", t.Total.Round(time.Microsecond),
		t.Discover.Round(time.Microsecond), t.Link.Round(time.Microsecond))
	for _, stage := range []Stage{StageParse, StageCheck, StageCodegen} {
		count, total, maxDur := t.Stage(stage)
		if count == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%-7s %3d modules, sum %s, max %s", stage, count,
			total.Round(time.Microsecond), maxDur.Round(time.Microsecond))
	}
	return b.String()
}
