package lang

import (
	"bytes"
	"strings"

	"flint/internal/project"
	"flint/internal/source"
)

// ScanImports извлекает пути импортов без полного парсинга — этого достаточно,
// чтобы построить граф модулей до запуска стадий. Непарсящиеся строки молча
// пропускаются: полный разбор выдаст по ним диагностики на стадии parse.
func ScanImports(content []byte) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, line := range bytes.Split(content, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		rest, ok := bytes.CutPrefix(line, []byte("import"))
		if !ok || (len(rest) > 0 && rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		raw := string(bytes.TrimSpace(rest))
		if raw == "" {
			continue
		}
		path, err := project.NormalizeModulePath(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}

// ScanImportDecls is the span-carrying variant used to build module metadata
// once the file is registered in a FileSet.
func ScanImportDecls(file *source.File) []Import {
	var out []Import
	seen := make(map[string]struct{})
	var offset uint32
	for _, rawLine := range strings.Split(string(file.Content), "\n") {
		lineStart := offset
		offset += uint32(len(rawLine)) + 1

		line := strings.TrimSpace(rawLine)
		rest, ok := strings.CutPrefix(line, "import")
		if !ok || rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		raw := strings.TrimSpace(rest)
		if raw == "" {
			continue
		}
		path, err := project.NormalizeModulePath(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		indent := uint32(len(rawLine) - len(strings.TrimLeft(rawLine, " \t")))
		out = append(out, Import{
			Path: path,
			Span: source.Span{
				File:  file.ID,
				Start: lineStart + indent,
				End:   lineStart + uint32(len(strings.TrimRight(rawLine, " \t\r"))),
			},
		})
	}
	return out
}
