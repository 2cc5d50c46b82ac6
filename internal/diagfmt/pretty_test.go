package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"flint/internal/diag"
	"flint/internal/source"
)

func sampleBag() (*diag.Bag, *source.FileSet) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("app/main.fl", []byte("import ghost\npub fn Main\n"))
	bag := diag.NewBag(8)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.ProjMissingModule,
		Message:  `module "app/main" imports unknown module "ghost"`,
		Primary:  source.Span{File: id, Start: 0, End: 12},
		Notes:    []diag.Note{{Span: source.Span{File: id, Start: 13, End: 24}, Msg: "declared here"}},
	})
	return bag, fs
}

func TestPrettyFormat(t *testing.T) {
	bag, fs := sampleBag()
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true, ShowPreview: true})
	out := buf.String()

	if !strings.Contains(out, "app/main.fl:1:1: ERROR F0200:") {
		t.Errorf("missing header line:\n%s", out)
	}
	if !strings.Contains(out, "import ghost") {
		t.Errorf("missing preview line:\n%s", out)
	}
	if !strings.Contains(out, "^~~~~~~~~~~") {
		t.Errorf("missing underline:\n%s", out)
	}
	if !strings.Contains(out, "note:") || !strings.Contains(out, "declared here") {
		t.Errorf("missing note:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("color disabled but ANSI present:\n%s", out)
	}
}

func TestPrettySpanlessDiagnostic(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(4)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.LinkFailed,
		Message:  "link failed: nothing to link",
	})
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	out := buf.String()
	if !strings.Contains(out, "ERROR F0501: link failed: nothing to link") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Contains(out, ":0:") {
		t.Errorf("spanless diagnostic must not fake a location: %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	bag, fs := sampleBag()
	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d, diags = %d", out.Count, len(out.Diagnostics))
	}
	d := out.Diagnostics[0]
	if d.Code != "F0200" || d.Severity != "ERROR" {
		t.Errorf("diag = %+v", d)
	}
	if d.Location.StartLine != 1 || d.Location.StartCol != 1 {
		t.Errorf("location = %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Message != "declared here" {
		t.Errorf("notes = %+v", d.Notes)
	}
}

func TestJSONMaxTruncatesListNotCount(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("x.fl", []byte("a\nb\nc\n"))
	bag := diag.NewBag(8)
	for i := uint32(0); i < 3; i++ {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevWarning,
			Code:     diag.SemaImportUnused,
			Message:  "unused",
			Primary:  source.Span{File: id, Start: i, End: i + 1},
		})
	}
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{Max: 2}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Diagnostics) != 2 || out.Count != 3 {
		t.Fatalf("diags = %d, count = %d", len(out.Diagnostics), out.Count)
	}
}

func TestSummary(t *testing.T) {
	fs := source.NewFileSet()
	_ = fs
	bag := diag.NewBag(8)
	if got := Summary(bag); got != "no diagnostics" {
		t.Errorf("Summary = %q", got)
	}
	bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.LinkFailed, Message: "x"})
	bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.LinkFailed, Message: "y"})
	bag.Add(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.SemaImportUnused, Message: "z"})
	if got := Summary(bag); got != "2 errors, 1 warning" {
		t.Errorf("Summary = %q", got)
	}
}
