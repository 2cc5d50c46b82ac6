// Package symbols defines the exported symbol table a module publishes after
// type-check, consumed by every direct importer.
package symbols

// Kind classifies an exported declaration.
type Kind uint8

const (
	KindFunc Kind = iota
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindFunc:
		return "fn"
	case KindValue:
		return "let"
	}
	return "?"
}

// Symbol is one exported declaration.
type Symbol struct {
	Name string
	Kind Kind
}

// ModuleExports is the write-once symbol table of a module. Populated exactly
// once after type-check succeeds (fresh or re-hydrated from cache), then only
// read.
type ModuleExports struct {
	Module  string
	Symbols []Symbol
}

// Has reports whether name is exported by the module.
func (e *ModuleExports) Has(name string) bool {
	if e == nil {
		return false
	}
	for i := range e.Symbols {
		if e.Symbols[i].Name == name {
			return true
		}
	}
	return false
}
