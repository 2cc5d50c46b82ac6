package lang

import (
	"fmt"

	"flint/internal/diag"
	"flint/internal/symbols"
)

// TypeCheck resolves every use against the published exports of the imported
// modules and produces this module's own export table. deps must contain an
// entry for each declared import; the orchestrator guarantees that by gating
// type-check on dependency publication.
func TypeCheck(ast *AST, deps map[string]*symbols.ModuleExports, bag *diag.Bag) *symbols.ModuleExports {
	imported := make(map[string]bool, len(ast.Imports))
	for _, imp := range ast.Imports {
		imported[imp.Path] = false
	}

	for _, use := range ast.Uses {
		if _, declared := imported[use.Module]; !declared {
			bag.Add(diag.Diagnostic{
				Severity: diag.SevError,
				Code:     diag.SemaUnknownModule,
				Message:  fmt.Sprintf("use of module %q without importing it", use.Module),
				Primary:  use.Span,
			})
			continue
		}
		imported[use.Module] = true
		exports := deps[use.Module]
		if !exports.Has(use.Symbol) {
			bag.Add(diag.Diagnostic{
				Severity: diag.SevError,
				Code:     diag.SemaUnknownSymbol,
				Message:  fmt.Sprintf("module %q does not export %q", use.Module, use.Symbol),
				Primary:  use.Span,
			})
		}
	}

	for _, imp := range ast.Imports {
		if !imported[imp.Path] {
			bag.Add(diag.Diagnostic{
				Severity: diag.SevWarning,
				Code:     diag.SemaImportUnused,
				Message:  fmt.Sprintf("imported module %q is never used", imp.Path),
				Primary:  imp.Span,
			})
		}
	}

	exports := &symbols.ModuleExports{Module: ast.Module}
	for _, decl := range ast.Decls {
		if !decl.Pub {
			continue
		}
		exports.Symbols = append(exports.Symbols, symbols.Symbol{Name: decl.Name, Kind: decl.Kind})
	}
	return exports
}
