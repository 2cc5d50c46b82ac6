package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type Topo struct {
	Order   []ModuleID   // линейный порядок, зависимости раньше зависимых
	Batches [][]ModuleID // волны: волна i зависит только от волн < i
	Cyclic  bool
	Cycles  []ModuleID // узлы, оставшиеся в цикле
}

// ToposortKahn layers the graph into waves. Wave i holds exactly the modules
// whose present imports all landed in waves < i, so wave 0 is the leaves.
// Modules left with a positive import count at the end participate in a cycle.
func ToposortKahn(g Graph) *Topo {
	nodeCount := len(g.Edges)
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	topo := &Topo{
		Order:   make([]ModuleID, 0, nodeCount),
		Batches: make([][]ModuleID, 0),
	}

	active := 0
	for i := range nodeCount {
		if g.Present[i] {
			active++
		}
	}

	current := make([]ModuleID, 0, nodeCount)
	for i := range nodeCount {
		if !g.Present[i] {
			continue
		}
		if indeg[i] == 0 {
			mID, err := safecast.Conv[ModuleID](i)
			if err != nil {
				panic(fmt.Errorf("module id overflow: %w", err))
			}
			current = append(current, mID)
		}
	}
	slices.Sort(current)

	visited := 0
	for len(current) > 0 {
		batch := make([]ModuleID, len(current))
		copy(batch, current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]ModuleID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, importer := range g.Rev[int(id)] {
				if !g.Present[int(importer)] {
					continue
				}
				indeg[int(importer)]--
				if indeg[int(importer)] == 0 {
					next = append(next, importer)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		for i := range nodeCount {
			if !g.Present[i] {
				continue
			}
			if indeg[i] > 0 {
				mID, err := safecast.Conv[ModuleID](i)
				if err != nil {
					panic(fmt.Errorf("module id overflow: %w", err))
				}
				topo.Cycles = append(topo.Cycles, mID)
			}
		}
		slices.Sort(topo.Cycles)
	}

	return topo
}
