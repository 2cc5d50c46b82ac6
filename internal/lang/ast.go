// Package lang implements the built-in stage collaborators for flint source
// files: a line-oriented parser, an export-resolving type checker, and a
// deterministic code generator. The build orchestrator treats these as opaque
// stage functions; nothing here knows about scheduling or caching.
package lang

import (
	"flint/internal/source"
	"flint/internal/symbols"
)

// Import is a declared dependency on another module.
type Import struct {
	Path string
	Span source.Span
}

// Decl is a top-level declaration. Exported (pub) declarations form the
// module's symbol table.
type Decl struct {
	Name string
	Kind symbols.Kind
	Pub  bool
	Span source.Span
}

// Use is a reference to a symbol of an imported module.
type Use struct {
	Module string
	Symbol string
	Span   source.Span
}

// AST is the parse artifact of one module. When re-hydrated from cache the
// span offsets are still valid (the cache key covers the exact file content),
// but the file IDs belong to the build that produced the artifact; Rebind
// remaps them before the AST is handed to later stages.
type AST struct {
	Module  string
	Imports []Import
	Decls   []Decl
	Uses    []Use
}

// Rebind points every span at the given file of the current build.
func (a *AST) Rebind(fileID source.FileID) {
	for i := range a.Imports {
		a.Imports[i].Span.File = fileID
	}
	for i := range a.Decls {
		a.Decls[i].Span.File = fileID
	}
	for i := range a.Uses {
		a.Uses[i].Span.File = fileID
	}
}

// ImportPaths returns the declared import paths in declaration order.
func (a *AST) ImportPaths() []string {
	out := make([]string, 0, len(a.Imports))
	for _, imp := range a.Imports {
		out = append(out, imp.Path)
	}
	return out
}
