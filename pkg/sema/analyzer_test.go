package sema

import (
	"testing"

	"penguin/pkg/diagnostics"
	"penguin/pkg/lexer"
	"penguin/pkg/parser"
)

func analyze(t *testing.T, src string) (*Result, *diagnostics.Sink) {
	t.Helper()
	sink := diagnostics.NewSink()
	toks := lexer.Lex([]byte(src), sink)
	prog := parser.Parse(toks, []byte(src), sink)
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %s", sink.Format())
	}
	res := Analyze(prog, sink)
	return res, sink
}

func requireKind(t *testing.T, sink *diagnostics.Sink, kind diagnostics.Kind) {
	t.Helper()
	for _, d := range sink.All() {
		if d.Kind == kind {
			return
		}
	}
	t.Fatalf("expected a %s diagnostic, got: %s", kind, sink.Format())
}

func requireClean(t *testing.T, sink *diagnostics.Sink) {
	t.Helper()
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %s", sink.Format())
	}
}

func TestAnalyzeValidProgram(t *testing.T) {
	_, sink := analyze(t, "int a = 5; int b = a + 3;")
	requireClean(t, sink)
}

func TestAnalyzeRedeclarationSameScope(t *testing.T) {
	_, sink := analyze(t, "int a = 1; int a = 2;")
	requireKind(t, sink, diagnostics.Redeclaration)
}

func TestAnalyzeShadowingInNestedScopeIsAllowed(t *testing.T) {
	_, sink := analyze(t, `
		int a = 1;
		procedure foo() {
			int a = 2;
		}`)
	requireClean(t, sink)
}

func TestAnalyzeUnknownName(t *testing.T) {
	_, sink := analyze(t, "int b = a + 3;")
	requireKind(t, sink, diagnostics.UnknownName)
}

func TestAnalyzeTypeMismatchStringIntoInt(t *testing.T) {
	_, sink := analyze(t, `int x = "hello";`)
	requireKind(t, sink, diagnostics.TypeMismatch)
}

func TestAnalyzeArityMismatch(t *testing.T) {
	_, sink := analyze(t, `
		procedure foo(int a) { return a; }
		foo();`)
	requireKind(t, sink, diagnostics.ArityMismatch)
}

func TestAnalyzeOutOfRangeLiteral(t *testing.T) {
	_, sink := analyze(t, "int x = 65536;")
	requireKind(t, sink, diagnostics.TypeMismatch)
}

func TestAnalyzeInRangeLiteralAccepted(t *testing.T) {
	_, sink := analyze(t, "int x = 65535;")
	requireClean(t, sink)
}

func TestAnalyzeReservedRootRedeclaration(t *testing.T) {
	_, sink := analyze(t, "int display = 1;")
	requireKind(t, sink, diagnostics.Redeclaration)
}

func TestAnalyzeReturnOutsideProcedure(t *testing.T) {
	_, sink := analyze(t, "return 1;")
	requireKind(t, sink, diagnostics.ReturnOutsideProc)
}

func TestAnalyzeReturnTypeMismatch(t *testing.T) {
	_, sink := analyze(t, `procedure foo() { return 1; }`)
	requireKind(t, sink, diagnostics.ReturnTypeMismatch)
}

func TestAnalyzeNotAssignableProcedure(t *testing.T) {
	_, sink := analyze(t, `
		procedure foo() { return; }
		procedure bar() {
			foo = 1;
		}`)
	requireKind(t, sink, diagnostics.NotAssignable)
}

func TestAnalyzeLoopIntConditionAccepted(t *testing.T) {
	_, sink := analyze(t, `loop (1) { int x = 1; }`)
	requireClean(t, sink)
}

func TestAnalyzeOAMFieldAssignment(t *testing.T) {
	res, sink := analyze(t, "display.oam[0].x = 16;")
	requireClean(t, sink)
	found := false
	for _, b := range res.Builtins {
		if b.Kind == BuiltinOAMField && b.Field == "x" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a resolved OAM field access, got %+v", res.Builtins)
	}
}

func TestAnalyzeOAMOutOfRangeSlot(t *testing.T) {
	_, sink := analyze(t, "display.oam[40].x = 1;")
	requireKind(t, sink, diagnostics.TypeMismatch)
}

func TestAnalyzeInputFlagIsReadOnly(t *testing.T) {
	_, sink := analyze(t, "input.Right = 1;")
	requireKind(t, sink, diagnostics.NotAssignable)
}

func TestAnalyzeInputFlagReadable(t *testing.T) {
	_, sink := analyze(t, "int x = input.Right;")
	requireClean(t, sink)
}

func TestAnalyzeControlCallResolved(t *testing.T) {
	res, sink := analyze(t, "control.LCDon();")
	requireClean(t, sink)
	found := false
	for _, b := range res.Builtins {
		if b.Kind == BuiltinControlCall && b.Field == "LCDon" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a resolved control call, got %+v", res.Builtins)
	}
}

func TestAnalyzeControlCallArityMismatch(t *testing.T) {
	_, sink := analyze(t, "control.LCDon(1);")
	requireKind(t, sink, diagnostics.ArityMismatch)
}

func TestAnalyzeDisplayTilesetAssignment(t *testing.T) {
	_, sink := analyze(t, `sprite s = "player.png"; display.tileset0 = s;`)
	requireKind(t, sink, diagnostics.TypeMismatch) // s is Sprite, tileset0 wants Tileset
}

func TestAnalyzeSpriteInitializerMustBeStringLiteral(t *testing.T) {
	_, sink := analyze(t, `int n = 1; sprite s = n;`)
	requireKind(t, sink, diagnostics.TypeMismatch)
}

func TestAnalyzeListAccessAndElementType(t *testing.T) {
	_, sink := analyze(t, `
		list xs = [1, 2, 3];
		int y = xs[1];`)
	requireClean(t, sink)
}

func TestAnalyzeListHeterogeneousElementsRejected(t *testing.T) {
	_, sink := analyze(t, `sprite s = "a.png"; list xs = [1, s];`)
	requireKind(t, sink, diagnostics.TypeMismatch)
}

func TestAnalyzeForwardReferenceToProcedure(t *testing.T) {
	_, sink := analyze(t, `
		int r = sq(7);
		procedure int sq(int x) { return x * x; }`)
	requireClean(t, sink)
}

func TestAnalyzeErrorCascadeSuppressed(t *testing.T) {
	// A single unknown name shouldn't fan out into a type-mismatch on top.
	_, sink := analyze(t, "int b = a + a;")
	var count int
	for _, d := range sink.All() {
		if d.Kind == diagnostics.UnknownName {
			count++
		}
	}
	if count != 2 {
		t.Errorf("want 2 unknown-name diagnostics (one per use of a), got %d: %s", count, sink.Format())
	}
	for _, d := range sink.All() {
		if d.Kind == diagnostics.TypeMismatch {
			t.Errorf("expected no cascading type-mismatch, got %s", sink.Format())
		}
	}
}
