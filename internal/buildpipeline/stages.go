package buildpipeline

import (
	"flint/internal/diag"
	"flint/internal/lang"
	"flint/internal/source"
	"flint/internal/symbols"
)

// Stages bundles the stage implementations the scheduler drives. The defaults
// run the flint compiler; tests substitute instrumented or failing stages to
// exercise scheduling behaviour without touching the language layer.
type Stages struct {
	Parse     func(file *source.File, modulePath string, bag *diag.Bag) *lang.AST
	TypeCheck func(ast *lang.AST, deps map[string]*symbols.ModuleExports, bag *diag.Bag) *symbols.ModuleExports
	CodeGen   func(ast *lang.AST) (*lang.CodeUnit, error)
	Link      func(units []*lang.CodeUnit) ([]byte, error)
}

// DefaultStages returns the built-in flint stage set.
func DefaultStages() *Stages {
	return &Stages{
		Parse:     lang.Parse,
		TypeCheck: lang.TypeCheck,
		CodeGen:   lang.CodeGen,
		Link:      lang.Link,
	}
}

// checkArtifact is the cached result of a successful type-check: the export
// table plus the stage's own diagnostics (warnings), replayed on every hit so
// a cached build prints the same output as a cold one.
type checkArtifact struct {
	Exports *symbols.ModuleExports
	Diags   []diag.Diagnostic
}

// rebind переносит спаны диагностик на файл текущей сборки. Смещения
// корректны: ключ кеша покрывает точное содержимое файла.
func (a *checkArtifact) rebind(fileID source.FileID) {
	for i := range a.Diags {
		a.Diags[i].Primary.File = fileID
		for j := range a.Diags[i].Notes {
			a.Diags[i].Notes[j].Span.File = fileID
		}
	}
}
