package dag

import (
	"fmt"
	"slices"

	"flint/internal/diag"
	"flint/internal/project"
	"flint/internal/source"
)

type Graph struct {
	Edges   [][]ModuleID // Edges[from] = []to, "from imports to"
	Rev     [][]ModuleID // Rev[to] = []from, кто импортирует to
	Indeg   []int        // число присутствующих импортов модуля (для Kahn)
	Present []bool       // признак, что модуль реально существует (а не только импортируется)
}

type ModuleNode struct {
	Meta     project.ModuleMeta
	Reporter diag.Reporter
}

type ModuleSlot struct {
	Meta     project.ModuleMeta
	Reporter diag.Reporter
	Present  bool
}

// BuildGraph constructs the import graph over the indexed modules. Imports of
// unknown or absent modules and self imports are reported through the node's
// Reporter and skipped as edges where they cannot be satisfied.
func BuildGraph(idx ModuleIndex, nodes []ModuleNode) (Graph, []ModuleSlot) {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]ModuleID, nodeCount),
		Rev:     make([][]ModuleID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	slots := make([]ModuleSlot, nodeCount)
	for i, name := range idx.IDToName {
		slots[i].Meta.Path = name
	}

	for _, node := range nodes {
		meta := node.Meta
		if meta.Path == "" {
			continue
		}
		id, ok := idx.NameToID[meta.Path]
		if !ok {
			// не должно происходить, индекс строится на тех же метаданных
			continue
		}
		slot := &slots[int(id)]
		if slot.Present {
			if node.Reporter != nil {
				notes := make([]diag.Note, 0, 1)
				if slot.Meta.Span != (source.Span{}) {
					notes = append(notes, diag.Note{
						Span: slot.Meta.Span,
						Msg:  fmt.Sprintf("previous declaration of %q", slot.Meta.Path),
					})
				}
				node.Reporter.Report(
					diag.ProjDuplicateModule,
					diag.SevError,
					meta.Span,
					fmt.Sprintf("duplicate module %q", meta.Path),
					notes,
				)
			}
			continue
		}
		slot.Meta = meta
		slot.Reporter = node.Reporter
		slot.Present = true
		g.Present[int(id)] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present || len(slot.Meta.Imports) == 0 {
			continue
		}
		seen := make(map[ModuleID]struct{}, len(slot.Meta.Imports))
		for _, dep := range slot.Meta.Imports {
			if dep.Path == "" {
				continue
			}
			toID, ok := idx.NameToID[dep.Path]
			if !ok {
				if slot.Reporter != nil {
					slot.Reporter.Report(
						diag.ProjMissingModule,
						diag.SevError,
						dep.Span,
						fmt.Sprintf("module %q imports unknown module %q", slot.Meta.Path, dep.Path),
						nil,
					)
				}
				continue
			}
			if ModuleID(from) == toID {
				if slot.Reporter != nil {
					slot.Reporter.Report(
						diag.ProjSelfImport,
						diag.SevError,
						dep.Span,
						fmt.Sprintf("module %q imports itself", slot.Meta.Path),
						nil,
					)
				}
				continue
			}
			if _, dup := seen[toID]; dup {
				continue
			}
			seen[toID] = struct{}{}

			g.Edges[from] = append(g.Edges[from], toID)
			if g.Present[int(toID)] {
				g.Rev[int(toID)] = append(g.Rev[int(toID)], ModuleID(from))
				g.Indeg[from]++
			} else if slot.Reporter != nil {
				slot.Reporter.Report(
					diag.ProjMissingModule,
					diag.SevError,
					dep.Span,
					fmt.Sprintf("module %q imports missing module %q", slot.Meta.Path, idx.IDToName[int(toID)]),
					nil,
				)
			}
		}
		if len(g.Edges[from]) > 1 {
			slices.Sort(g.Edges[from])
		}
	}

	return g, slots
}
