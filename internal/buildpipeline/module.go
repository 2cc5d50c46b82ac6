package buildpipeline

import (
	"flint/internal/diag"
	"flint/internal/lang"
	"flint/internal/project"
	"flint/internal/project/dag"
	"flint/internal/source"
	"flint/internal/symbols"
)

// moduleState carries one module through the stages. Fields are written only
// by that module's own worker; cross-wave reads are ordered by the per-wave
// barrier, cross-module export reads go through the exportSpace.
type moduleState struct {
	id   dag.ModuleID
	meta project.ModuleMeta
	file *source.File
	bag  *diag.Bag

	ast     *lang.AST
	exports *symbols.ModuleExports
	unit    *lang.CodeUnit

	failed  bool // parse или check завершились ошибкой
	blocked bool // не запускался из-за упавшей зависимости

	// codegenFailed живёт отдельно от failed: кодогенерация идёт параллельно
	// с проверкой следующих волн, а failed читают воркеры этих волн.
	codegenFailed bool

	loadErr error
}

// buildStates materializes a state per present module of the plan.
func buildStates(plan *Plan) []*moduleState {
	states := make([]*moduleState, len(plan.Slots))
	for i := range plan.Slots {
		slot := &plan.Slots[i]
		if !slot.Present {
			continue
		}
		st := &moduleState{
			id:      dag.ModuleID(i),
			meta:    slot.Meta,
			bag:     plan.Bags[i],
			loadErr: plan.loadErrs[slot.Meta.Path],
		}
		if file, ok := plan.FileSet.GetByPath(slot.Meta.File); ok {
			st.file = file
		}
		states[i] = st
	}
	return states
}
