package lang

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"flint/internal/project"
)

// CodeUnit is the code-generation artifact of one module. Hash is the content
// hash of Code, used to compare outputs across builds.
type CodeUnit struct {
	Module string
	Code   []byte
	Hash   project.Digest
}

// CodeGen lowers a type-checked AST to the flint text unit format. The output
// depends only on the AST, so identical inputs always produce byte-identical
// units regardless of build order.
func CodeGen(ast *AST) (*CodeUnit, error) {
	if ast == nil {
		return nil, fmt.Errorf("missing AST")
	}

	var b strings.Builder
	fmt.Fprintf(&b, ".unit %s\n", ast.Module)
	for _, imp := range ast.Imports {
		fmt.Fprintf(&b, ".need %s\n", imp.Path)
	}
	for _, decl := range ast.Decls {
		vis := "local"
		if decl.Pub {
			vis = "global"
		}
		fmt.Fprintf(&b, "%s %s %s:\n", vis, decl.Kind, decl.Name)
		fmt.Fprintf(&b, "\tframe\n\tret\n")
	}
	// Внешние символы адресуются по объявлению, не по коду чужого модуля.
	for _, use := range ast.Uses {
		fmt.Fprintf(&b, "extern %s.%s\n", use.Module, use.Symbol)
	}

	code := []byte(b.String())
	return &CodeUnit{
		Module: ast.Module,
		Code:   code,
		Hash:   sha256.Sum256(code),
	}, nil
}
