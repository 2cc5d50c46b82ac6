package lang

import (
	"fmt"
	"sort"
	"strings"
)

// Link joins the generated units into one image. Units are ordered by module
// path so the result does not depend on completion order of the codegen
// stage.
func Link(units []*CodeUnit) ([]byte, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("nothing to link")
	}
	sorted := make([]*CodeUnit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Module < sorted[j].Module
	})

	var b strings.Builder
	fmt.Fprintf(&b, ".flint image units=%d\n", len(sorted))
	prev := ""
	for _, unit := range sorted {
		if unit.Module == prev {
			return nil, fmt.Errorf("duplicate code unit for module %q", unit.Module)
		}
		prev = unit.Module
		b.Write(unit.Code)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}
