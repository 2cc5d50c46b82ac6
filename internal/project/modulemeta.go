package project

import (
	"errors"
	"unicode"

	"flint/internal/source"
)

type ImportMeta struct {
	Path string
	Span source.Span
}

// ModuleMeta describes one compilation module (one .fl file).
type ModuleMeta struct {
	Name        string
	Path        string // нормализованный путь модуля: "a/b"
	File        string // путь к исходному файлу на диске
	Span        source.Span
	Imports     []ImportMeta // нормализованные пути импортов с их спанами
	ContentHash Digest       // хеш содержимого файла (из FileSet)
	ModuleHash  Digest       // агрегированный хеш с учётом зависимостей
}

func IsValidModuleIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// SourceExt is the file extension of flint modules.
const SourceExt = ".fl"

// NormalizeModulePath приводит путь модуля (импорт/сам файл) к каноническому
// виду "a/b". Удаляет расширение .fl, переводит слэши к '/', запрещает пустые
// сегменты, "." и "..".
func NormalizeModulePath(path string) (string, error) {
	if len(path) >= len(SourceExt) && path[len(path)-len(SourceExt):] == SourceExt {
		path = path[:len(path)-len(SourceExt)]
	}
	for path != "" && (path[0] == '/' || path[0] == '\\') {
		path = path[1:]
	}
	cleaned := []string{}
	curr := ""
	for _, r := range path {
		if r == '\\' || r == '/' {
			if curr != "" {
				cleaned = append(cleaned, curr)
				curr = ""
			} else {
				// пустой сегмент, например "a//b"
				return "", errors.New("invalid module path")
			}
		} else {
			curr += string(r)
		}
	}
	if curr != "" {
		cleaned = append(cleaned, curr)
	}
	if len(cleaned) == 0 {
		return "", errors.New("invalid module path")
	}
	for _, seg := range cleaned {
		if seg == "" || seg == "." || seg == ".." {
			return "", errors.New("invalid module path")
		}
	}
	out := ""
	for i, seg := range cleaned {
		if i != 0 {
			out += "/"
		}
		out += seg
	}
	return out, nil
}
