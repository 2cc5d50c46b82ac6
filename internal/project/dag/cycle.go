package dag

import (
	"fmt"
	"strings"

	"flint/internal/diag"
)

// CycleError is the fatal pre-scheduling error for an import cycle.
// Modules holds the cycle sequence; the last element closes back on the first.
type CycleError struct {
	Modules []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle: %s -> %s", strings.Join(e.Modules, " -> "), e.Modules[0])
}

// FindCycle extracts one concrete cycle path from a cyclic graph via DFS over
// the import edges. Returns nil when the graph is acyclic.
func FindCycle(g Graph) []ModuleID {
	const (
		white = 0 // не посещён
		grey  = 1 // в активном стеке DFS
		black = 2
	)
	color := make([]uint8, len(g.Edges))
	stack := make([]ModuleID, 0, len(g.Edges))

	var walk func(id ModuleID) []ModuleID
	walk = func(id ModuleID) []ModuleID {
		color[id] = grey
		stack = append(stack, id)
		for _, to := range g.Edges[int(id)] {
			if !g.Present[int(to)] {
				continue
			}
			switch color[to] {
			case grey:
				// нашли цикл: вырезаем его из активного стека
				for i, v := range stack {
					if v == to {
						cycle := make([]ModuleID, len(stack)-i)
						copy(cycle, stack[i:])
						return cycle
					}
				}
			case white:
				if cycle := walk(to); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for i := range g.Edges {
		if !g.Present[i] || color[i] != white {
			continue
		}
		if cycle := walk(ModuleID(i)); cycle != nil {
			return cycle
		}
	}
	return nil
}

// NewCycleError resolves a cycle path into module names.
func NewCycleError(idx ModuleIndex, cycle []ModuleID) *CycleError {
	names := make([]string, 0, len(cycle))
	for _, id := range cycle {
		names = append(names, idx.IDToName[int(id)])
	}
	return &CycleError{Modules: names}
}

// ReportCycles emits a diagnostic on every module that participates in the
// cycle, each naming the full sequence.
func ReportCycles(idx ModuleIndex, slots []ModuleSlot, cycle []ModuleID) {
	if len(cycle) == 0 {
		return
	}
	names := make([]string, 0, len(cycle))
	for _, id := range cycle {
		names = append(names, idx.IDToName[int(id)])
	}
	summary := strings.Join(names, " -> ")

	for _, id := range cycle {
		slot := slots[int(id)]
		if !slot.Present || slot.Reporter == nil {
			continue
		}
		msg := fmt.Sprintf("module %q participates in an import cycle: %s", slot.Meta.Path, summary)
		slot.Reporter.Report(diag.ProjImportCycle, diag.SevError, slot.Meta.Span, msg, nil)
	}
}
