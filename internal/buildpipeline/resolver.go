package buildpipeline

import (
	"context"
	"fmt"
	"sync"

	"flint/internal/symbols"
)

// exportSpace is the cross-module resolution point: a write-once cell per
// module, filled exactly once when the module's type-check succeeds (fresh or
// from cache) and read by every importer. Publication uses the same path in
// both cases, so importers cannot tell a cached dependency from a fresh one.
type exportSpace struct {
	mu    sync.Mutex
	cells map[string]*exportCell
}

type exportCell struct {
	done    chan struct{}
	exports *symbols.ModuleExports
}

func newExportSpace(modules []string) *exportSpace {
	s := &exportSpace{cells: make(map[string]*exportCell, len(modules))}
	for _, m := range modules {
		s.cells[m] = &exportCell{done: make(chan struct{})}
	}
	return s
}

func (s *exportSpace) cell(module string) *exportCell {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cells[module]
	if !ok {
		c = &exportCell{done: make(chan struct{})}
		s.cells[module] = c
	}
	return c
}

// Publish fills the module's cell and wakes all waiters. A second publish for
// the same module is a scheduler bug, not a recoverable condition.
func (s *exportSpace) Publish(module string, exports *symbols.ModuleExports) {
	c := s.cell(module)
	select {
	case <-c.done:
		panic(fmt.Sprintf("exports of module %q published twice", module))
	default:
	}
	c.exports = exports
	close(c.done)
}

// Wait blocks until the module's exports are published or ctx is cancelled.
// Это единственная точка ожидания между модулями.
func (s *exportSpace) Wait(ctx context.Context, module string) (*symbols.ModuleExports, error) {
	c := s.cell(module)
	select {
	case <-c.done:
		return c.exports, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the exports if already published, without blocking.
func (s *exportSpace) Get(module string) (*symbols.ModuleExports, bool) {
	c := s.cell(module)
	select {
	case <-c.done:
		return c.exports, true
	default:
		return nil, false
	}
}
