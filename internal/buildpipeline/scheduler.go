package buildpipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"flint/internal/cache"
	"flint/internal/diag"
	"flint/internal/lang"
	"flint/internal/project/dag"
	"flint/internal/symbols"
)

// WorkerFault is a panic escaping a stage worker: an internal compiler fault,
// reported separately from source diagnostics.
type WorkerFault struct {
	Module string
	Stage  Stage
	Panic  any
	Stack  []byte
}

func (e *WorkerFault) Error() string {
	return fmt.Sprintf("internal fault in %s of module %q: %v", e.Stage, e.Module, e.Panic)
}

type scheduler struct {
	plan   *Plan
	states []*moduleState
	stages *Stages

	store     cache.Store
	toolchain string
	jobs      int

	space    *exportSpace
	progress ProgressSink
	metrics  *buildMetrics
	timings  *Timings
}

func newScheduler(plan *Plan, req Request, store cache.Store, timings *Timings) *scheduler {
	present := make([]string, 0, len(plan.Slots))
	for i := range plan.Slots {
		if plan.Slots[i].Present {
			present = append(present, plan.Slots[i].Meta.Path)
		}
	}
	progress := req.Progress
	if progress == nil {
		progress = NopSink{}
	}
	return &scheduler{
		plan:      plan,
		states:    buildStates(plan),
		stages:    req.Stages,
		store:     store,
		toolchain: req.Toolchain,
		jobs:      req.Jobs,
		space:     newExportSpace(present),
		progress:  progress,
		metrics:   &buildMetrics{},
		timings:   timings,
	}
}

// guard converts a worker panic into a WorkerFault error.
func guard(module string, stage Stage, err *error) {
	if r := recover(); r != nil {
		*err = &WorkerFault{Module: module, Stage: stage, Panic: r, Stack: debug.Stack()}
	}
}

func (s *scheduler) emit(st *moduleState, stage Stage, status Status, elapsed time.Duration) {
	s.progress.Publish(Event{Module: st.meta.Path, Stage: stage, Status: status, Elapsed: elapsed})
}

// runParse parses every present module. Порядок не важен: стадия не зависит
// от других модулей, воркеры просто разбирают очередь.
func (s *scheduler) runParse(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)
	for _, st := range s.states {
		if st == nil {
			continue
		}
		g.Go(func() (err error) {
			defer guard(st.meta.Path, StageParse, &err)
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			s.parseModule(st)
			return nil
		})
	}
	return g.Wait()
}

func (s *scheduler) parseModule(st *moduleState) {
	start := time.Now()
	s.emit(st, StageParse, StatusWorking, 0)

	if st.loadErr != nil || st.file == nil {
		st.bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.IOLoadFileError,
			Message:  fmt.Sprintf("failed to read %s: %v", st.meta.File, st.loadErr),
		})
		st.failed = true
		s.metrics.modulesFailed.Add(1)
		s.emit(st, StageParse, StatusFailed, time.Since(start))
		return
	}

	key := cache.EntryKey(st.meta.ContentHash, st.meta.Path, string(StageParse), s.toolchain)
	var cached lang.AST
	if s.store.Get(string(StageParse), key, &cached) {
		cached.Rebind(st.file.ID)
		st.ast = &cached
		s.metrics.parseHits.Add(1)
		s.emit(st, StageParse, StatusCached, time.Since(start))
		return
	}

	stageBag := diag.NewBag(int(st.bag.Cap()))
	ast := s.stages.Parse(st.file, st.meta.Path, stageBag)
	s.metrics.parseRuns.Add(1)
	s.timings.add(StageParse, time.Since(start))
	failed := stageBag.HasErrors()
	st.bag.Merge(stageBag)

	if failed {
		st.failed = true
		s.metrics.modulesFailed.Add(1)
		s.emit(st, StageParse, StatusFailed, time.Since(start))
		return
	}
	st.ast = ast
	// кешируются только успешные разборы: ошибки дёшево воспроизвести
	_ = s.store.Put(string(StageParse), key, ast)
	s.emit(st, StageParse, StatusDone, time.Since(start))
}

// runCheckAndCodegen walks the waves in order. Type-check of a module starts
// only in its own wave, after every dependency has either published exports
// or failed; codegen is dispatched the moment the module's own check
// succeeds and runs concurrently with later waves.
func (s *scheduler) runCheckAndCodegen(ctx context.Context) error {
	cg, cgctx := errgroup.WithContext(ctx)
	cg.SetLimit(s.jobs)

	for _, batch := range s.plan.Topo.Batches {
		s.metrics.noteWave(len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(s.jobs, len(batch)))
		for _, id := range batch {
			st := s.states[int(id)]
			if st == nil {
				continue
			}
			g.Go(func() (err error) {
				defer guard(st.meta.Path, StageCheck, &err)
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				if s.checkModule(gctx, st) {
					cg.Go(func() (err error) {
						defer guard(st.meta.Path, StageCodegen, &err)
						select {
						case <-cgctx.Done():
							return cgctx.Err()
						default:
						}
						s.codegenModule(st)
						return nil
					})
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			_ = cg.Wait()
			return err
		}
	}
	return cg.Wait()
}

// checkModule runs type-check for one module and reports whether codegen
// should follow.
func (s *scheduler) checkModule(ctx context.Context, st *moduleState) bool {
	if st.failed {
		return false
	}
	// ошибки уровня графа (пропавший импорт, дубликат) фатальны для модуля
	if st.bag.HasErrors() {
		st.failed = true
		s.metrics.modulesFailed.Add(1)
		s.emit(st, StageCheck, StatusFailed, 0)
		return false
	}

	start := time.Now()

	deps := make(map[string]*symbols.ModuleExports, len(s.plan.Graph.Edges[int(st.id)]))
	for _, depID := range s.plan.Graph.Edges[int(st.id)] {
		dep := s.states[int(depID)]
		if dep == nil {
			continue
		}
		if dep.failed || dep.blocked {
			s.markBlocked(st, dep)
			return false
		}
		exports, ok := s.space.Get(dep.meta.Path)
		if !ok {
			// запасной путь: волновой барьер обязан был дождаться публикации
			var err error
			if exports, err = s.space.Wait(ctx, dep.meta.Path); err != nil {
				return false
			}
		}
		deps[dep.meta.Path] = exports
	}

	s.emit(st, StageCheck, StatusWorking, 0)

	key := cache.EntryKey(st.meta.ModuleHash, st.meta.Path, string(StageCheck), s.toolchain)
	var cached checkArtifact
	if s.store.Get(string(StageCheck), key, &cached) && cached.Exports != nil {
		cached.rebind(st.file.ID)
		for _, d := range cached.Diags {
			st.bag.Add(d)
		}
		st.exports = cached.Exports
		s.space.Publish(st.meta.Path, cached.Exports)
		s.metrics.checkHits.Add(1)
		s.emit(st, StageCheck, StatusCached, time.Since(start))
		return true
	}

	stageBag := diag.NewBag(int(st.bag.Cap()))
	exports := s.stages.TypeCheck(st.ast, deps, stageBag)
	s.metrics.checkRuns.Add(1)
	s.timings.add(StageCheck, time.Since(start))
	failed := stageBag.HasErrors()
	diags := append([]diag.Diagnostic(nil), stageBag.Items()...)
	st.bag.Merge(stageBag)

	if failed {
		st.failed = true
		s.metrics.modulesFailed.Add(1)
		s.emit(st, StageCheck, StatusFailed, time.Since(start))
		return false
	}
	st.exports = exports
	s.space.Publish(st.meta.Path, exports)
	_ = s.store.Put(string(StageCheck), key, &checkArtifact{Exports: exports, Diags: diags})
	s.emit(st, StageCheck, StatusDone, time.Since(start))
	return true
}

func (s *scheduler) markBlocked(st *moduleState, dep *moduleState) {
	st.blocked = true
	s.metrics.modulesBlocked.Add(1)

	span := st.meta.Span
	for _, imp := range st.meta.Imports {
		if imp.Path == dep.meta.Path {
			span = imp.Span
			break
		}
	}
	reason := "failed"
	if dep.blocked {
		reason = "was not built"
	}
	st.bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.ProjDependencyFailed,
		Message:  fmt.Sprintf("module %q was not built: dependency %q %s", st.meta.Path, dep.meta.Path, reason),
		Primary:  span,
	})
	s.emit(st, StageCheck, StatusBlocked, 0)
}

func (s *scheduler) codegenModule(st *moduleState) {
	start := time.Now()
	s.emit(st, StageCodegen, StatusWorking, 0)

	key := cache.EntryKey(st.meta.ModuleHash, st.meta.Path, string(StageCodegen), s.toolchain)
	var cached lang.CodeUnit
	if s.store.Get(string(StageCodegen), key, &cached) {
		st.unit = &cached
		s.metrics.codegenHits.Add(1)
		s.emit(st, StageCodegen, StatusCached, time.Since(start))
		return
	}

	unit, err := s.stages.CodeGen(st.ast)
	s.metrics.codegenRuns.Add(1)
	s.timings.add(StageCodegen, time.Since(start))
	if err != nil {
		st.bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.GenEmitFailed,
			Message:  fmt.Sprintf("code generation for module %q failed: %v", st.meta.Path, err),
			Primary:  st.meta.Span,
		})
		st.codegenFailed = true
		s.metrics.modulesFailed.Add(1)
		s.emit(st, StageCodegen, StatusFailed, time.Since(start))
		return
	}
	st.unit = unit
	_ = s.store.Put(string(StageCodegen), key, unit)
	s.emit(st, StageCodegen, StatusDone, time.Since(start))
}

// sortedUnits returns the produced code units in module path order. Failed
// and blocked modules have no unit; everything that compiled is included, so
// partial results of a failed build remain observable.
func (s *scheduler) sortedUnits() []*lang.CodeUnit {
	units := make([]*lang.CodeUnit, 0, len(s.states))
	for _, id := range sortedPresentIDs(s.plan) {
		if st := s.states[int(id)]; st.unit != nil {
			units = append(units, st.unit)
		}
	}
	return units
}

func sortedPresentIDs(plan *Plan) []dag.ModuleID {
	// индекс строится по отсортированным путям, ID идут в нужном порядке
	out := make([]dag.ModuleID, 0, len(plan.Slots))
	for i := range plan.Slots {
		if plan.Slots[i].Present {
			out = append(out, dag.ModuleID(i))
		}
	}
	return out
}
