package dag

import (
	"flint/internal/project"
)

// ComputeModuleHashes вычисляет ModuleHash в порядке топосортировки:
// зависимости идут раньше, их хеши уже готовы.
// Для циклического графа намеренно ничего не делает (оставляет нули).
func ComputeModuleHashes(g Graph, slots []ModuleSlot, topo *Topo) {
	if topo == nil || topo.Cyclic {
		return
	}
	for _, id := range topo.Order {
		slot := &slots[int(id)]
		if !slot.Present {
			continue
		}
		deps := make([]project.Digest, 0, len(g.Edges[int(id)]))
		for _, to := range g.Edges[int(id)] {
			if !g.Present[int(to)] {
				continue
			}
			deps = append(deps, slots[int(to)].Meta.ModuleHash)
		}
		slot.Meta.ModuleHash = project.Combine(slot.Meta.ContentHash, deps...)
	}
}
