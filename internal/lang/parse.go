package lang

import (
	"fmt"
	"strings"

	"flint/internal/diag"
	"flint/internal/project"
	"flint/internal/source"
	"flint/internal/symbols"
)

// Parse разбирает файл модуля. Всегда возвращает AST; ошибки уходят в bag,
// разбор продолжается со следующей строки (восстановление — построчное).
func Parse(file *source.File, modulePath string, bag *diag.Bag) *AST {
	ast := &AST{Module: modulePath}
	seenDecls := make(map[string]source.Span)

	var offset uint32
	for _, rawLine := range strings.Split(string(file.Content), "\n") {
		lineStart := offset
		offset += uint32(len(rawLine)) + 1

		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		indent := uint32(len(rawLine) - len(strings.TrimLeft(rawLine, " \t")))
		span := source.Span{
			File:  file.ID,
			Start: lineStart + indent,
			End:   lineStart + uint32(len(strings.TrimRight(rawLine, " \t\r"))),
		}

		fields := strings.Fields(line)
		keyword := fields[0]
		pub := false
		if keyword == "pub" {
			if len(fields) < 2 {
				bag.Add(diag.Diagnostic{
					Severity: diag.SevError,
					Code:     diag.SynUnexpectedTopLevel,
					Message:  "expected declaration after 'pub'",
					Primary:  span,
				})
				continue
			}
			pub = true
			fields = fields[1:]
			keyword = fields[0]
		}

		switch keyword {
		case "import":
			parseImport(ast, fields, span, pub, bag)
		case "fn":
			parseDecl(ast, seenDecls, fields, span, symbols.KindFunc, pub, bag)
		case "let":
			parseDecl(ast, seenDecls, fields, span, symbols.KindValue, pub, bag)
		case "use":
			parseUse(ast, fields, span, pub, bag)
		default:
			bag.Add(diag.Diagnostic{
				Severity: diag.SevError,
				Code:     diag.SynUnexpectedTopLevel,
				Message:  fmt.Sprintf("unexpected top-level keyword %q", keyword),
				Primary:  span,
			})
		}
	}
	return ast
}

func parseImport(ast *AST, fields []string, span source.Span, pub bool, bag *diag.Bag) {
	if pub {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.SynUnexpectedTopLevel,
			Message:  "'pub' is not allowed on imports",
			Primary:  span,
		})
		return
	}
	if len(fields) != 2 {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.SynExpectModulePath,
			Message:  "expected module path after 'import'",
			Primary:  span,
		})
		return
	}
	path, err := project.NormalizeModulePath(fields[1])
	if err != nil {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.SynExpectModulePath,
			Message:  fmt.Sprintf("invalid module path %q", fields[1]),
			Primary:  span,
		})
		return
	}
	for _, imp := range ast.Imports {
		if imp.Path == path {
			return // повторный импорт молча схлопываем
		}
	}
	ast.Imports = append(ast.Imports, Import{Path: path, Span: span})
}

func parseDecl(ast *AST, seen map[string]source.Span, fields []string, span source.Span, kind symbols.Kind, pub bool, bag *diag.Bag) {
	if len(fields) < 2 || !project.IsValidModuleIdent(fields[1]) {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.SynExpectName,
			Message:  fmt.Sprintf("expected name after %q", fields[0]),
			Primary:  span,
		})
		return
	}
	name := fields[1]
	if prev, dup := seen[name]; dup {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.SynDuplicateDecl,
			Message:  fmt.Sprintf("duplicate declaration of %q", name),
			Primary:  span,
			Notes:    []diag.Note{{Span: prev, Msg: fmt.Sprintf("previous declaration of %q", name)}},
		})
		return
	}
	seen[name] = span
	ast.Decls = append(ast.Decls, Decl{Name: name, Kind: kind, Pub: pub, Span: span})
}

func parseUse(ast *AST, fields []string, span source.Span, pub bool, bag *diag.Bag) {
	if pub {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.SynUnexpectedTopLevel,
			Message:  "'pub' is not allowed on use",
			Primary:  span,
		})
		return
	}
	bad := func() {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.SynExpectSymbol,
			Message:  "expected 'use <module>.<Symbol>'",
			Primary:  span,
		})
	}
	if len(fields) != 2 {
		bad()
		return
	}
	dot := strings.LastIndexByte(fields[1], '.')
	if dot <= 0 || dot == len(fields[1])-1 {
		bad()
		return
	}
	modRaw, sym := fields[1][:dot], fields[1][dot+1:]
	mod, err := project.NormalizeModulePath(modRaw)
	if err != nil || !project.IsValidModuleIdent(sym) {
		bad()
		return
	}
	ast.Uses = append(ast.Uses, Use{Module: mod, Symbol: sym, Span: span})
}
