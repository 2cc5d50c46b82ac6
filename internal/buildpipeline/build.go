package buildpipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"flint/internal/cache"
	"flint/internal/diag"
	"flint/internal/lang"
	"flint/internal/project/dag"
	"flint/internal/source"
	"flint/internal/version"
)

const defaultMaxDiagnostics = 256

// Request configures one build.
type Request struct {
	EntryPath string
	BaseDir   string // корень проекта; по умолчанию директория entry

	Jobs           int // <=0 means GOMAXPROCS
	MaxDiagnostics int

	NoCache   bool
	CacheDir  string
	Toolchain string // по умолчанию version.Semver

	// Store overrides the artifact cache; used by tests. When nil, a disk
	// store is opened at CacheDir (or Nop with NoCache).
	Store cache.Store

	// Stages overrides the stage set; nil means the flint compiler.
	Stages *Stages

	Progress       ProgressSink
	CollectTimings bool
}

// Summary counts module outcomes.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Blocked   int
}

// Result is everything a build produced. Bag holds the merged diagnostics in
// deterministic order; Binary is non-nil only when every module succeeded.
type Result struct {
	FileSet *source.FileSet
	Bag     *diag.Bag

	Units  []*lang.CodeUnit
	Binary []byte

	Summary Summary
	Metrics MetricsSnapshot
	Timings *Timings

	// Cycle is set when the import graph is cyclic; no stage ran.
	Cycle *dag.CycleError
}

// Failed reports whether the build produced fatal diagnostics.
func (r *Result) Failed() bool {
	return r.Cycle != nil || r.Bag.HasErrors()
}

func (req *Request) normalize() error {
	if req.EntryPath == "" {
		return fmt.Errorf("no entry file given")
	}
	if req.Jobs <= 0 {
		req.Jobs = runtime.GOMAXPROCS(0)
	}
	if req.MaxDiagnostics <= 0 {
		req.MaxDiagnostics = defaultMaxDiagnostics
	}
	if req.Toolchain == "" {
		req.Toolchain = version.Semver
	}
	if req.Stages == nil {
		req.Stages = DefaultStages()
	}
	return nil
}

func (req *Request) openStore() (cache.Store, error) {
	if req.Store != nil {
		return req.Store, nil
	}
	if req.NoCache {
		return cache.Nop{}, nil
	}
	return cache.Open(req.CacheDir, req.Toolchain)
}

// Build runs the whole pipeline: discovery, graph, waves, link. The returned
// error is reserved for internal faults (worker panic, cache setup,
// cancellation); source-level problems land in Result.Bag.
func Build(ctx context.Context, req Request) (*Result, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	store, err := req.openStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact cache: %w", err)
	}

	var timings *Timings
	if req.CollectTimings {
		timings = newTimings()
	}
	buildStart := time.Now()

	plan, err := Prepare(req)
	if err != nil {
		return nil, err
	}
	if timings != nil {
		timings.Discover = time.Since(buildStart)
	}

	if plan.Cycle != nil {
		res := &Result{FileSet: plan.FileSet, Cycle: plan.Cycle, Timings: timings}
		res.Bag = plan.MergedBag(req.MaxDiagnostics)
		res.Summary = Summary{Total: presentCount(plan)}
		return res, nil
	}

	sched := newScheduler(plan, req, store, timings)
	if err := sched.runParse(ctx); err != nil {
		return nil, err
	}
	if err := sched.runCheckAndCodegen(ctx); err != nil {
		return nil, err
	}

	res := &Result{
		FileSet: plan.FileSet,
		Metrics: sched.metrics.snapshot(),
		Timings: timings,
	}
	for _, st := range sched.states {
		if st == nil {
			continue
		}
		res.Summary.Total++
		switch {
		case st.blocked:
			res.Summary.Blocked++
		case st.failed || st.codegenFailed:
			res.Summary.Failed++
		default:
			res.Summary.Succeeded++
		}
	}

	res.Bag = plan.MergedBag(req.MaxDiagnostics)
	res.Units = sched.sortedUnits()
	if !res.Bag.HasErrors() {
		linkStart := time.Now()
		binary, err := req.Stages.Link(res.Units)
		if timings != nil {
			timings.Link = time.Since(linkStart)
		}
		if err != nil {
			res.Bag.Add(diag.Diagnostic{
				Severity: diag.SevError,
				Code:     diag.LinkFailed,
				Message:  fmt.Sprintf("link failed: %v", err),
			})
		} else {
			res.Binary = binary
		}
	}
	if timings != nil {
		timings.Total = time.Since(buildStart)
	}
	return res, nil
}

func presentCount(plan *Plan) int {
	n := 0
	for i := range plan.Slots {
		if plan.Slots[i].Present {
			n++
		}
	}
	return n
}
