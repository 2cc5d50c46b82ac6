package dag

import (
	"strings"
	"testing"

	"flint/internal/diag"
	"flint/internal/project"
	"flint/internal/source"
)

func meta(path string, imports ...string) project.ModuleMeta {
	m := project.ModuleMeta{Path: path, ContentHash: project.Combine(project.Digest{}, hashOf(path))}
	for _, imp := range imports {
		m.Imports = append(m.Imports, project.ImportMeta{Path: imp})
	}
	return m
}

func hashOf(s string) project.Digest {
	var d project.Digest
	copy(d[:], s)
	return d
}

func buildAll(t *testing.T, metas []project.ModuleMeta) (ModuleIndex, Graph, []ModuleSlot, []*diag.Bag) {
	t.Helper()
	idx := BuildIndex(metas)
	bags := make([]*diag.Bag, len(idx.IDToName))
	for i := range bags {
		bags[i] = diag.NewBag(16)
	}
	nodes := make([]ModuleNode, 0, len(metas))
	for _, m := range metas {
		nodes = append(nodes, ModuleNode{
			Meta:     m,
			Reporter: diag.BagReporter{Bag: bags[idx.NameToID[m.Path]]},
		})
	}
	g, slots := BuildGraph(idx, nodes)
	return idx, g, slots, bags
}

func TestBuildIndexSorted(t *testing.T) {
	idx := BuildIndex([]project.ModuleMeta{meta("b"), meta("a", "z/x")})
	want := []string{"a", "b", "z/x"}
	if len(idx.IDToName) != len(want) {
		t.Fatalf("index size = %d, want %d", len(idx.IDToName), len(want))
	}
	for i, name := range want {
		if idx.IDToName[i] != name {
			t.Errorf("IDToName[%d] = %q, want %q", i, idx.IDToName[i], name)
		}
		if idx.NameToID[name] != ModuleID(i) {
			t.Errorf("NameToID[%q] = %d, want %d", name, idx.NameToID[name], i)
		}
	}
}

func TestWavesLeavesFirst(t *testing.T) {
	// c -> b -> a, d independent
	_, g, _, _ := buildAll(t, []project.ModuleMeta{
		meta("a"),
		meta("b", "a"),
		meta("c", "b"),
		meta("d"),
	})
	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatalf("unexpected cycle")
	}
	if len(topo.Batches) != 3 {
		t.Fatalf("waves = %d, want 3", len(topo.Batches))
	}
	if len(topo.Batches[0]) != 2 {
		t.Fatalf("wave 0 size = %d, want 2 (a and d)", len(topo.Batches[0]))
	}
	if len(topo.Order) != 4 {
		t.Fatalf("order covers %d modules, want 4", len(topo.Order))
	}
}

func TestMissingAndSelfImport(t *testing.T) {
	idx, g, _, bags := buildAll(t, []project.ModuleMeta{
		meta("a", "ghost", "a"),
	})
	bag := bags[idx.NameToID["a"]]
	codes := map[diag.Code]bool{}
	for _, d := range bag.Items() {
		codes[d.Code] = true
	}
	if !codes[diag.ProjMissingModule] {
		t.Errorf("expected ProjMissingModule")
	}
	if !codes[diag.ProjSelfImport] {
		t.Errorf("expected ProjSelfImport")
	}
	// ни ghost, ни self не должны давать рёбра для Kahn
	if g.Indeg[int(idx.NameToID["a"])] != 0 {
		t.Errorf("broken imports must not count into Indeg")
	}
}

func TestDuplicateModule(t *testing.T) {
	m := meta("a")
	m2 := meta("a")
	m2.Span = source.Span{File: 1, Start: 0, End: 3}

	idx := BuildIndex([]project.ModuleMeta{m, m2})
	bag := diag.NewBag(16)
	nodes := []ModuleNode{
		{Meta: m, Reporter: diag.BagReporter{Bag: bag}},
		{Meta: m2, Reporter: diag.BagReporter{Bag: bag}},
	}
	_, slots := BuildGraph(idx, nodes)
	if got := bag.Len(); got != 1 {
		t.Fatalf("diagnostics = %d, want 1", got)
	}
	if bag.Items()[0].Code != diag.ProjDuplicateModule {
		t.Fatalf("code = %s, want ProjDuplicateModule", bag.Items()[0].Code)
	}
	// первый слот побеждает
	if !slots[0].Present {
		t.Fatalf("first declaration must stay present")
	}
}

func TestCycleDetectionNamesModules(t *testing.T) {
	idx, g, slots, bags := buildAll(t, []project.ModuleMeta{
		meta("x", "y"),
		meta("y", "x"),
		meta("z"),
	})
	topo := ToposortKahn(g)
	if !topo.Cyclic {
		t.Fatalf("expected cycle")
	}
	if len(topo.Cycles) != 2 {
		t.Fatalf("cycle members = %d, want 2", len(topo.Cycles))
	}

	cycle := FindCycle(g)
	if len(cycle) != 2 {
		t.Fatalf("FindCycle gave %d modules, want 2", len(cycle))
	}
	cerr := NewCycleError(idx, cycle)
	msg := cerr.Error()
	if !strings.Contains(msg, "x") || !strings.Contains(msg, "y") {
		t.Errorf("cycle error must name both modules: %q", msg)
	}
	if !strings.HasPrefix(msg, "import cycle: ") {
		t.Errorf("unexpected message: %q", msg)
	}

	ReportCycles(idx, slots, cycle)
	for _, name := range []string{"x", "y"} {
		bag := bags[idx.NameToID[name]]
		if bag.Len() == 0 || bag.Items()[0].Code != diag.ProjImportCycle {
			t.Errorf("module %s must carry ProjImportCycle", name)
		}
	}
	if bags[idx.NameToID["z"]].Len() != 0 {
		t.Errorf("module outside the cycle must stay clean")
	}
}

func TestModuleHashesPropagate(t *testing.T) {
	build := func(leafContent string) [3]project.Digest {
		metas := []project.ModuleMeta{
			meta("b", "a"),
			meta("c", "b"),
		}
		leaf := project.ModuleMeta{Path: "a", ContentHash: hashOf(leafContent)}
		metas = append(metas, leaf)

		idx := BuildIndex(metas)
		nodes := make([]ModuleNode, 0, len(metas))
		for _, m := range metas {
			nodes = append(nodes, ModuleNode{Meta: m})
		}
		g, slots := BuildGraph(idx, nodes)
		topo := ToposortKahn(g)
		ComputeModuleHashes(g, slots, topo)
		return [3]project.Digest{
			slots[idx.NameToID["a"]].Meta.ModuleHash,
			slots[idx.NameToID["b"]].Meta.ModuleHash,
			slots[idx.NameToID["c"]].Meta.ModuleHash,
		}
	}

	first := build("one")
	second := build("one")
	if first != second {
		t.Fatalf("hashes must be reproducible")
	}
	for i, h := range first {
		if h.IsZero() {
			t.Fatalf("hash %d is zero", i)
		}
	}

	changed := build("two")
	for i := range first {
		if first[i] == changed[i] {
			t.Errorf("hash %d must change when the leaf content changes", i)
		}
	}
}
