package buildpipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"flint/internal/diag"
	"flint/internal/lang"
	"flint/internal/project"
	"flint/internal/project/dag"
	"flint/internal/source"
)

// Plan is the scheduled shape of a build before any stage runs: the file set,
// the import graph over discovered modules, and the wave layering. A cyclic
// plan is returned with Cycle set and must not be dispatched.
type Plan struct {
	FileSet *source.FileSet
	Index   dag.ModuleIndex
	Graph   dag.Graph
	Slots   []dag.ModuleSlot
	Topo    *dag.Topo

	// Bags[id] — диагностики модуля id; для отсутствующих модулей пустой.
	Bags []*diag.Bag

	EntryModule string
	Cycle       *dag.CycleError

	loadErrs map[string]error // module path -> read failure (кроме ENOENT)
}

// moduleFile maps a module path to its source file under root.
func moduleFile(root, modulePath string) string {
	return filepath.Join(root, filepath.FromSlash(modulePath)+project.SourceExt)
}

// firstLineSpan covers the first line of the file; module-level diagnostics
// point here.
func firstLineSpan(file *source.File) source.Span {
	end := uint32(len(file.Content))
	for i, b := range file.Content {
		if b == '\n' {
			end = uint32(i)
			break
		}
	}
	return source.Span{File: file.ID, Start: 0, End: end}
}

// Waves returns the wave layering as module names, for display.
func (p *Plan) Waves() [][]string {
	if p.Topo == nil {
		return nil
	}
	out := make([][]string, 0, len(p.Topo.Batches))
	for _, batch := range p.Topo.Batches {
		names := make([]string, 0, len(batch))
		for _, id := range batch {
			names = append(names, p.Index.IDToName[int(id)])
		}
		out = append(out, names)
	}
	return out
}

// MergedBag собирает диагностики всех модулей в один Bag в детерминированном
// порядке: модули идут по отсортированным путям, внутри — по позиции.
func (p *Plan) MergedBag(maxDiags int) *diag.Bag {
	out := diag.NewBag(maxDiags)
	for _, bag := range p.Bags {
		if bag == nil {
			continue
		}
		for _, d := range bag.Items() {
			out.Add(d)
		}
	}
	out.Sort()
	return out
}

// ModuleHash returns the aggregate hash of a present module, zero for
// unknown modules or a cyclic plan.
func (p *Plan) ModuleHash(module string) project.Digest {
	id, ok := p.Index.NameToID[module]
	if !ok {
		return project.Digest{}
	}
	return p.Slots[int(id)].Meta.ModuleHash
}

// Imports returns the direct imports of a present module, for display.
func (p *Plan) Imports(module string) []string {
	id, ok := p.Index.NameToID[module]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(p.Graph.Edges[int(id)]))
	for _, to := range p.Graph.Edges[int(id)] {
		out = append(out, p.Index.IDToName[int(to)])
	}
	return out
}

// Prepare discovers the module closure of the entry file and builds the
// import graph over it. Discovery walks imports breadth-first with a cheap
// import scan; files are then registered in the FileSet in sorted path order
// so file IDs, and therefore diagnostic order, do not depend on traversal
// order.
func Prepare(req Request) (*Plan, error) {
	entryAbs, err := filepath.Abs(req.EntryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entry path: %w", err)
	}
	root := req.BaseDir
	if root == "" {
		root = filepath.Dir(entryAbs)
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	entryRel, err := filepath.Rel(root, entryAbs)
	if err != nil || entryRel == ".." || (len(entryRel) > 2 && entryRel[:3] == ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("entry file %s is outside the project root %s", entryAbs, root)
	}
	entryModule, err := project.NormalizeModulePath(filepath.ToSlash(entryRel))
	if err != nil {
		return nil, fmt.Errorf("entry file %s does not form a valid module path", entryAbs)
	}

	// BFS по импортам: только выясняем, какие модули существуют. Содержимое
	// перечитает FileSet.Load в отсортированном порядке.
	// discovered[path] — существует ли файл; loadErrs хранит ошибки чтения
	// кроме ENOENT.
	discovered := map[string]bool{}
	loadErrs := map[string]error{}
	queue := []string{entryModule}
	for len(queue) > 0 {
		modPath := queue[0]
		queue = queue[1:]
		if _, seen := discovered[modPath]; seen {
			continue
		}
		// #nosec G304 -- paths are derived from the project root
		content, err := os.ReadFile(moduleFile(root, modPath))
		switch {
		case err == nil:
			discovered[modPath] = true
			queue = append(queue, lang.ScanImports(content)...)
		case errors.Is(err, fs.ErrNotExist):
			// отсутствующий модуль: импортёр получит диагностику от графа
			discovered[modPath] = false
		default:
			if modPath == entryModule {
				return nil, fmt.Errorf("failed to read entry file: %w", err)
			}
			discovered[modPath] = true
			loadErrs[modPath] = err
		}
	}
	if !discovered[entryModule] && loadErrs[entryModule] == nil {
		return nil, fmt.Errorf("entry file %s does not exist", moduleFile(root, entryModule))
	}

	present := make([]string, 0, len(discovered))
	for path, exists := range discovered {
		if exists {
			present = append(present, path)
		}
	}
	sort.Strings(present)

	fileSet := source.NewFileSetWithBase(root)
	maxDiags := req.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = defaultMaxDiagnostics
	}

	bagByPath := make(map[string]*diag.Bag, len(present))
	metas := make([]project.ModuleMeta, 0, len(present))
	for _, modPath := range present {
		bag := diag.NewBag(maxDiags)
		bagByPath[modPath] = bag

		filePath := moduleFile(root, modPath)
		meta := project.ModuleMeta{
			Name: source.BaseName(filePath),
			Path: modPath,
			File: filePath,
		}
		if loadErrs[modPath] == nil {
			fileID, err := fileSet.Load(filePath)
			if err != nil {
				loadErrs[modPath] = err
			} else {
				file := fileSet.Get(fileID)
				meta.Span = firstLineSpan(file)
				meta.ContentHash = project.Digest(file.Hash)
				for _, imp := range lang.ScanImportDecls(file) {
					meta.Imports = append(meta.Imports, project.ImportMeta{Path: imp.Path, Span: imp.Span})
				}
			}
		}
		metas = append(metas, meta)
	}

	idx := dag.BuildIndex(metas)
	nodes := make([]dag.ModuleNode, 0, len(metas))
	for _, meta := range metas {
		nodes = append(nodes, dag.ModuleNode{
			Meta:     meta,
			Reporter: diag.BagReporter{Bag: bagByPath[meta.Path]},
		})
	}
	graph, slots := dag.BuildGraph(idx, nodes)

	bags := make([]*diag.Bag, len(idx.IDToName))
	for i, name := range idx.IDToName {
		if bag, ok := bagByPath[name]; ok {
			bags[i] = bag
		} else {
			bags[i] = diag.NewBag(maxDiags)
		}
	}

	plan := &Plan{
		FileSet:     fileSet,
		Index:       idx,
		Graph:       graph,
		Slots:       slots,
		Topo:        dag.ToposortKahn(graph),
		Bags:        bags,
		EntryModule: entryModule,
		loadErrs:    loadErrs,
	}

	if plan.Topo.Cyclic {
		cycle := dag.FindCycle(graph)
		dag.ReportCycles(idx, slots, cycle)
		plan.Cycle = dag.NewCycleError(idx, cycle)
		return plan, nil
	}

	dag.ComputeModuleHashes(graph, slots, plan.Topo)
	return plan, nil
}
