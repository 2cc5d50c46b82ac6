package lang

import (
	"bytes"
	"testing"

	"flint/internal/diag"
	"flint/internal/source"
	"flint/internal/symbols"
)

func parseVirtual(t *testing.T, module, content string) (*AST, *diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual(module+".fl", []byte(content))
	bag := diag.NewBag(32)
	ast := Parse(fs.Get(id), module, bag)
	return ast, bag, fs
}

func TestScanImports(t *testing.T) {
	content := []byte("# header\nimport util/math\nimport util/math\nimport io\nimportx nope\nlet a\n")
	got := ScanImports(content)
	want := []string{"util/math", "io"}
	if len(got) != len(want) {
		t.Fatalf("imports = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("imports[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScanImportDeclsSpans(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.fl", []byte("import a\n  import b/c.fl\n"))
	decls := ScanImportDecls(fs.Get(id))
	if len(decls) != 2 {
		t.Fatalf("decls = %d, want 2", len(decls))
	}
	if decls[0].Path != "a" || decls[1].Path != "b/c" {
		t.Fatalf("paths = %q, %q", decls[0].Path, decls[1].Path)
	}
	start, _ := fs.Resolve(decls[1].Span)
	if start.Line != 2 || start.Col != 3 {
		t.Errorf("second import span starts at %d:%d, want 2:3", start.Line, start.Col)
	}
}

func TestParseDeclarations(t *testing.T) {
	ast, bag, _ := parseVirtual(t, "m", `# module m
import util/math

pub fn Add
fn helper
pub let Limit
let state
use util/math.Sqrt
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if len(ast.Imports) != 1 || ast.Imports[0].Path != "util/math" {
		t.Fatalf("imports = %+v", ast.Imports)
	}
	if len(ast.Decls) != 4 {
		t.Fatalf("decls = %d, want 4", len(ast.Decls))
	}
	if !ast.Decls[0].Pub || ast.Decls[0].Kind != symbols.KindFunc || ast.Decls[0].Name != "Add" {
		t.Errorf("decl[0] = %+v", ast.Decls[0])
	}
	if ast.Decls[3].Pub || ast.Decls[3].Kind != symbols.KindValue {
		t.Errorf("decl[3] = %+v", ast.Decls[3])
	}
	if len(ast.Uses) != 1 || ast.Uses[0].Module != "util/math" || ast.Uses[0].Symbol != "Sqrt" {
		t.Fatalf("uses = %+v", ast.Uses)
	}
}

func TestParseRecoversPerLine(t *testing.T) {
	ast, bag, _ := parseVirtual(t, "m", "wat nonsense\nfn ok\nfn ok\n")
	codes := map[diag.Code]int{}
	for _, d := range bag.Items() {
		codes[d.Code]++
	}
	if codes[diag.SynUnexpectedTopLevel] != 1 {
		t.Errorf("expected one SynUnexpectedTopLevel, got %d", codes[diag.SynUnexpectedTopLevel])
	}
	if codes[diag.SynDuplicateDecl] != 1 {
		t.Errorf("expected one SynDuplicateDecl, got %d", codes[diag.SynDuplicateDecl])
	}
	// первый fn ok всё же попадает в AST
	if len(ast.Decls) != 1 {
		t.Errorf("decls = %d, want 1", len(ast.Decls))
	}
}

func TestTypeCheckResolvesAgainstDeps(t *testing.T) {
	ast, bag, _ := parseVirtual(t, "app", "import lib\nuse lib.Public\nuse lib.Missing\nuse unknown.X\npub fn Main\n")
	if bag.HasErrors() {
		t.Fatalf("parse errors: %v", bag.Items())
	}
	deps := map[string]*symbols.ModuleExports{
		"lib": {Module: "lib", Symbols: []symbols.Symbol{{Name: "Public", Kind: symbols.KindFunc}}},
	}
	checkBag := diag.NewBag(32)
	exports := TypeCheck(ast, deps, checkBag)

	codes := map[diag.Code]int{}
	for _, d := range checkBag.Items() {
		codes[d.Code]++
	}
	if codes[diag.SemaUnknownSymbol] != 1 {
		t.Errorf("SemaUnknownSymbol = %d, want 1", codes[diag.SemaUnknownSymbol])
	}
	if codes[diag.SemaUnknownModule] != 1 {
		t.Errorf("SemaUnknownModule = %d, want 1", codes[diag.SemaUnknownModule])
	}
	if !exports.Has("Main") {
		t.Errorf("exports must contain Main")
	}
}

func TestTypeCheckUnusedImportWarning(t *testing.T) {
	ast, _, _ := parseVirtual(t, "app", "import lib\npub fn Main\n")
	checkBag := diag.NewBag(32)
	TypeCheck(ast, map[string]*symbols.ModuleExports{"lib": {Module: "lib"}}, checkBag)
	if checkBag.HasErrors() {
		t.Fatalf("an unused import is a warning, not an error: %v", checkBag.Items())
	}
	if checkBag.Len() != 1 || checkBag.Items()[0].Code != diag.SemaImportUnused {
		t.Fatalf("items = %v", checkBag.Items())
	}
}

func TestCodeGenDeterministic(t *testing.T) {
	ast, bag, _ := parseVirtual(t, "m", "import lib\npub fn A\nlet b\nuse lib.X\n")
	if bag.HasErrors() {
		t.Fatalf("parse errors: %v", bag.Items())
	}
	first, err := CodeGen(ast)
	if err != nil {
		t.Fatalf("CodeGen: %v", err)
	}
	second, err := CodeGen(ast)
	if err != nil {
		t.Fatalf("CodeGen: %v", err)
	}
	if first.Hash != second.Hash {
		t.Fatalf("codegen must be deterministic")
	}
	for _, want := range []string{".unit m\n", ".need lib\n", "global fn A:\n", "local let b:\n", "extern lib.X\n"} {
		if !bytes.Contains(first.Code, []byte(want)) {
			t.Errorf("unit misses %q:\n%s", want, first.Code)
		}
	}
}

func TestLinkOrdersByModule(t *testing.T) {
	mk := func(module string) *CodeUnit {
		ast := &AST{Module: module, Decls: []Decl{{Name: "F", Kind: symbols.KindFunc, Pub: true}}}
		unit, err := CodeGen(ast)
		if err != nil {
			t.Fatalf("CodeGen: %v", err)
		}
		return unit
	}
	a, b, c := mk("a"), mk("b"), mk("c")

	img1, err := Link([]*CodeUnit{c, a, b})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	img2, err := Link([]*CodeUnit{a, b, c})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if !bytes.Equal(img1, img2) {
		t.Fatalf("link output must not depend on completion order")
	}

	if _, err := Link([]*CodeUnit{a, a}); err == nil {
		t.Fatalf("duplicate units must fail the link")
	}
	if _, err := Link(nil); err == nil {
		t.Fatalf("empty link must fail")
	}
}

func TestRebindRemapsSpans(t *testing.T) {
	ast, bag, _ := parseVirtual(t, "m", "import lib\nfn f\nuse lib.X\n")
	if bag.HasErrors() {
		t.Fatalf("parse errors: %v", bag.Items())
	}
	ast.Rebind(source.FileID(7))
	for _, imp := range ast.Imports {
		if imp.Span.File != 7 {
			t.Errorf("import span not rebound: %+v", imp.Span)
		}
	}
	for _, d := range ast.Decls {
		if d.Span.File != 7 {
			t.Errorf("decl span not rebound: %+v", d.Span)
		}
	}
	for _, u := range ast.Uses {
		if u.Span.File != 7 {
			t.Errorf("use span not rebound: %+v", u.Span)
		}
	}
}
