package diag

import (
	"math"
	"testing"

	"flint/internal/source"
)

func mk(code Code, sev Severity, file source.FileID, start, end uint32) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  code.String(),
		Primary:  source.Span{File: file, Start: start, End: end},
	}
}

func TestBagCap(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(mk(SynExpectName, SevError, 0, 0, 1)) {
		t.Fatalf("first Add rejected")
	}
	if !bag.Add(mk(SynExpectName, SevError, 0, 1, 2)) {
		t.Fatalf("second Add rejected")
	}
	if bag.Add(mk(SynExpectName, SevError, 0, 2, 3)) {
		t.Fatalf("Add above cap must be rejected")
	}
	if bag.Len() != 2 {
		t.Fatalf("Len = %d, want 2", bag.Len())
	}
}

func TestBagCapSaturates(t *testing.T) {
	bag := NewBag(1 << 20)
	if bag.Cap() != math.MaxUint16 {
		t.Fatalf("Cap = %d, want %d", bag.Cap(), math.MaxUint16)
	}
}

func TestHasErrorsAndCount(t *testing.T) {
	bag := NewBag(8)
	bag.Add(mk(SemaImportUnused, SevWarning, 0, 0, 1))
	if bag.HasErrors() {
		t.Fatalf("warnings are not errors")
	}
	bag.Add(mk(SemaUnknownSymbol, SevError, 0, 1, 2))
	bag.Add(mk(SemaUnknownModule, SevError, 0, 2, 3))
	if !bag.HasErrors() {
		t.Fatalf("expected errors")
	}
	if got := bag.ErrorCount(); got != 2 {
		t.Fatalf("ErrorCount = %d, want 2", got)
	}
	if first, ok := bag.FirstError(); !ok || first.Code != SemaUnknownSymbol {
		t.Fatalf("FirstError = %v, %v", first, ok)
	}
}

func TestSortOrder(t *testing.T) {
	bag := NewBag(8)
	bag.Add(mk(SynExpectName, SevError, 1, 0, 1))
	bag.Add(mk(SemaImportUnused, SevWarning, 0, 5, 6))
	bag.Add(mk(SemaUnknownSymbol, SevError, 0, 5, 6))
	bag.Add(mk(SynUnexpectedTopLevel, SevError, 0, 0, 1))
	bag.Sort()

	items := bag.Items()
	wantCodes := []Code{SynUnexpectedTopLevel, SemaUnknownSymbol, SemaImportUnused, SynExpectName}
	for i, want := range wantCodes {
		if items[i].Code != want {
			t.Errorf("items[%d].Code = %s, want %s", i, items[i].Code, want)
		}
	}
}

func TestDedup(t *testing.T) {
	bag := NewBag(8)
	d := mk(SemaUnknownSymbol, SevError, 0, 3, 7)
	bag.Add(d)
	bag.Add(d)
	bag.Add(mk(SemaUnknownSymbol, SevError, 0, 8, 9))
	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("Len after Dedup = %d, want 2", bag.Len())
	}
}

func TestMergeGrowsCap(t *testing.T) {
	a := NewBag(1)
	a.Add(mk(SynExpectName, SevError, 0, 0, 1))
	b := NewBag(2)
	b.Add(mk(SemaUnknownSymbol, SevError, 0, 1, 2))
	b.Add(mk(SemaUnknownModule, SevError, 0, 2, 3))

	a.Merge(b)
	if a.Len() != 3 {
		t.Fatalf("Len after Merge = %d, want 3", a.Len())
	}
}

func TestBagReporter(t *testing.T) {
	bag := NewBag(4)
	var r Reporter = BagReporter{Bag: bag}
	r.Report(ProjMissingModule, SevError, source.Span{File: 0, Start: 1, End: 4}, "missing", nil)
	if bag.Len() != 1 {
		t.Fatalf("Len = %d, want 1", bag.Len())
	}
	if bag.Items()[0].Code != ProjMissingModule {
		t.Fatalf("code = %s", bag.Items()[0].Code)
	}
}
