package compiler

import (
	"strings"
	"testing"

	"penguin/pkg/diagnostics"
)

func TestCompile_ArithmeticScenario(t *testing.T) {
	src := "int a = 5; int b = a + 3;"
	res := Compile([]byte(src), "prog.penguin")

	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if !strings.Contains(res.Assembly, "add hl, de") {
		t.Errorf("expected an add hl, de for a + 3, got:\n%s", res.Assembly)
	}
	if !strings.Contains(res.Assembly, "call __entry") {
		t.Errorf("expected the startup stub to call __entry")
	}
}

func TestCompile_LoopScenario(t *testing.T) {
	src := "int n = 0; loop (n < 4) { n = n + 1; }"
	res := Compile([]byte(src), "prog.penguin")

	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if !strings.Contains(res.Assembly, "jp z,") {
		t.Errorf("expected a BranchIfZero-derived conditional jump in the loop head")
	}
	if !strings.Contains(res.Assembly, "jp Lhead") {
		t.Errorf("expected a back-edge jump to the loop head, got:\n%s", res.Assembly)
	}
}

func TestCompile_MultiplicationCallsMulHelper(t *testing.T) {
	src := `procedure int sq(int x) { return x * x; } int r = sq(7);`
	res := Compile([]byte(src), "prog.penguin")

	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if !strings.Contains(res.Assembly, "call __mul_u16") {
		t.Errorf("expected sq's body to reference __mul_u16, got:\n%s", res.Assembly)
	}
	if !strings.Contains(res.Assembly, `SECTION "proc_sq", ROM0`) {
		t.Errorf("expected a dedicated section for procedure sq")
	}
}

func TestCompile_OAMFieldStoreWithoutPriorTileAssignment(t *testing.T) {
	src := `display.oam[0].x = 16;`
	res := Compile([]byte(src), "prog.penguin")

	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if !strings.Contains(res.Assembly, "ld [$FE01], a") {
		t.Errorf("expected a single byte-store to OAM slot 0's x field ($FE00 + 1), got:\n%s", res.Assembly)
	}
	if strings.Contains(res.Assembly, "$FE02") {
		t.Errorf("a byte-store to .x must not also touch .tile ($FE02), got:\n%s", res.Assembly)
	}
}

func TestCompile_StringLiteralForIntIsTypeMismatch(t *testing.T) {
	src := `int x = "hello";`
	res := Compile([]byte(src), "prog.penguin")

	if res.Assembly != "" {
		t.Errorf("expected no assembly output on a type-mismatch error")
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Kind == diagnostics.TypeMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a type-mismatch diagnostic, got %v", res.Diagnostics)
	}
}

func TestCompile_ArityMismatchOnCall(t *testing.T) {
	src := `procedure foo(int a) { return a; } foo();`
	res := Compile([]byte(src), "prog.penguin")

	if res.Assembly != "" {
		t.Errorf("expected no assembly output on an arity-mismatch error")
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Kind == diagnostics.ArityMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an arity-mismatch diagnostic, got %v", res.Diagnostics)
	}
}

func TestCompile_MissingAssetFileReportsAssetNotFound(t *testing.T) {
	src := `sprite hero = "does_not_exist.2bpp";`
	res := Compile([]byte(src), "prog.penguin")

	if res.Assembly != "" {
		t.Errorf("expected no assembly output when an asset file is missing")
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Kind == diagnostics.AssetNotFound {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an asset-not-found diagnostic, got %v", res.Diagnostics)
	}
}

func TestCompile_EmptyProgramIsParseError(t *testing.T) {
	res := Compile([]byte(""), "prog.penguin")

	if res.Assembly != "" {
		t.Errorf("expected no assembly output for an empty program")
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Kind == diagnostics.ParseError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a parse-error diagnostic for an empty program, got %v", res.Diagnostics)
	}
}
