package ir

import (
	"strings"
	"testing"

	"penguin/pkg/diagnostics"
	"penguin/pkg/lexer"
	"penguin/pkg/parser"
	"penguin/pkg/sema"
)

func lowerSource(t *testing.T, src string) *Program {
	t.Helper()
	sink := diagnostics.NewSink()
	tokens := lexer.Lex([]byte(src), sink)
	astProg := parser.Parse(tokens, []byte(src), sink)
	res := sema.Analyze(astProg, sink)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics lowering %q: %v", src, sink.All())
	}
	return Lower(res)
}

func allInstrs(p *Procedure) []Instr {
	var out []Instr
	for _, b := range p.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

func countKind(instrs []Instr, k Kind) int {
	n := 0
	for _, i := range instrs {
		if i.Kind == k {
			n++
		}
	}
	return n
}

func TestLower_ArithmeticScenario(t *testing.T) {
	prog := lowerSource(t, "int a = 5; int b = a + 3;")

	instrs := allInstrs(prog.Entry)
	if countKind(instrs, Const) < 2 {
		t.Errorf("expected at least two Const instrs (5 and 3), got %v", instrs)
	}
	foundAdd := false
	for _, i := range instrs {
		if i.Kind == BinOpInstr && i.Op == OpAdd {
			foundAdd = true
		}
	}
	if !foundAdd {
		t.Errorf("expected a BinOpInstr OpAdd for a + 3, got %v", instrs)
	}
	// Every block ends in exactly one terminator.
	for _, b := range prog.Entry.Blocks {
		last := b.Instrs[len(b.Instrs)-1]
		if !last.Terminator() {
			t.Errorf("block %s does not end in a terminator: %v", b.Label, last)
		}
	}
}

func TestLower_LoopScenarioProducesBranchAndBackEdge(t *testing.T) {
	prog := lowerSource(t, "int n = 0; loop (n < 4) { n = n + 1; }")

	if len(prog.Entry.Blocks) < 3 {
		t.Fatalf("expected at least a pre-header, head, and exit block, got %d blocks", len(prog.Entry.Blocks))
	}

	var head *Block
	for _, b := range prog.Entry.Blocks {
		if strings.HasPrefix(b.Label, "Lhead") {
			head = b
		}
	}
	if head == nil {
		t.Fatalf("expected a loop head block, got blocks %v", blockLabels(prog.Entry))
	}

	foundBranch := false
	foundBackEdge := false
	for _, i := range head.Instrs {
		if i.Kind == BranchIfZero {
			foundBranch = true
		}
	}
	for _, i := range prog.Entry.Blocks[len(prog.Entry.Blocks)-2].Instrs {
		if i.Kind == Jump && i.Target == head.Label {
			foundBackEdge = true
		}
	}
	if !foundBranch {
		t.Errorf("expected the loop head to end in a BranchIfZero, got %v", head.Instrs)
	}
	if !foundBackEdge {
		t.Errorf("expected a Jump back to %s somewhere in the loop body", head.Label)
	}
}

func blockLabels(p *Procedure) []string {
	var labels []string
	for _, b := range p.Blocks {
		labels = append(labels, b.Label)
	}
	return labels
}

func TestLower_MultiplicationCallsMulHelper(t *testing.T) {
	prog := lowerSource(t, `procedure int sq(int x) { return x * x; } int r = sq(7);`)

	if len(prog.Procedures) != 1 {
		t.Fatalf("expected one lowered procedure, got %d", len(prog.Procedures))
	}
	sq := prog.Procedures[0]
	if sq.Label != "proc_sq" {
		t.Errorf("expected sq's label to be proc_sq, got %q", sq.Label)
	}
	if len(sq.ParamAddrs) != 1 {
		t.Fatalf("expected sq to have one parameter address, got %v", sq.ParamAddrs)
	}
	if !sq.HasReturn || sq.ReturnAddr == 0 {
		t.Errorf("expected sq to be marked HasReturn with a nonzero ReturnAddr")
	}

	foundMulCall := false
	for _, i := range allInstrs(sq) {
		if i.Kind == Call && i.Target == MulHelperLabel {
			foundMulCall = true
		}
	}
	if !foundMulCall {
		t.Errorf("expected sq's body to call %s for x * x, got %v", MulHelperLabel, allInstrs(sq))
	}

	foundUserCall := false
	for _, i := range allInstrs(prog.Entry) {
		if i.Kind == Call && i.Target == sq.Label && len(i.Args) == 1 {
			foundUserCall = true
		}
	}
	if !foundUserCall {
		t.Errorf("expected the entry procedure to call %s with one argument", sq.Label)
	}
}

func TestLower_OAMFieldStoreWithConstantIndexFoldsToFixedAddress(t *testing.T) {
	prog := lowerSource(t, `display.oam[0].x = 16;`)

	foundStore := false
	for _, i := range allInstrs(prog.Entry) {
		if i.Kind == Store && !i.HasBase {
			foundStore = true
		}
	}
	if !foundStore {
		t.Errorf("expected a fixed-address Store for a constant-index OAM field write, got %v", allInstrs(prog.Entry))
	}
}

func TestLower_OAMFieldStoreWithVariableIndexComputesBase(t *testing.T) {
	prog := lowerSource(t, `int i = 0; display.oam[i].x = 16;`)

	foundComputed := false
	for _, ins := range allInstrs(prog.Entry) {
		if ins.Kind == Store && ins.HasBase {
			foundComputed = true
		}
	}
	if !foundComputed {
		t.Errorf("expected a computed-base Store for a variable-index OAM field write, got %v", allInstrs(prog.Entry))
	}
}

func TestLower_TilesetAssignmentProducesAssetBinding(t *testing.T) {
	prog := lowerSource(t, `tileset town = "town.2bpp"; display.tileset0 = town;`)

	if len(prog.AssetBindings) != 1 {
		t.Fatalf("expected one asset binding for the tileset0 assignment, got %v", prog.AssetBindings)
	}
	if prog.AssetBindings[0].Label != "asset_town" {
		t.Errorf("expected binding label asset_town, got %q", prog.AssetBindings[0].Label)
	}
}

func TestLower_SpriteDeclarationAutoBindsWithoutAssignment(t *testing.T) {
	prog := lowerSource(t, `sprite hero = "hero.2bpp";`)

	if len(prog.AssetBindings) != 1 {
		t.Fatalf("expected the declared sprite to auto-bind into tile data, got %v", prog.AssetBindings)
	}
	if prog.AssetBindings[0].Label != "asset_hero" {
		t.Errorf("expected binding label asset_hero, got %q", prog.AssetBindings[0].Label)
	}
}

func TestLower_IfStatementBranchesToElseAndJoins(t *testing.T) {
	prog := lowerSource(t, `int a = 1; if (a < 2) { a = 3; } else { a = 4; }`)

	instrs := allInstrs(prog.Entry)
	if countKind(instrs, BranchIfZero) != 1 {
		t.Errorf("expected exactly one BranchIfZero for the if condition, got %v", instrs)
	}
	if countKind(instrs, Jump) < 2 {
		t.Errorf("expected a then-branch jump to the join point and an else-fallthrough jump, got %v", instrs)
	}
}

func TestLower_ListIndexingUsesIndirectAddressing(t *testing.T) {
	prog := lowerSource(t, `list xs = [1, 2, 3]; int y = xs[1];`)

	foundLoadIndirect := false
	for _, i := range allInstrs(prog.Entry) {
		if i.Kind == LoadIndirect && i.Stride == 2 {
			foundLoadIndirect = true
		}
	}
	if !foundLoadIndirect {
		t.Errorf("expected a stride-2 LoadIndirect for xs[1], got %v", allInstrs(prog.Entry))
	}
}

func TestLower_InputFlagReadsMirrorByteNotHardwareRegister(t *testing.T) {
	prog := lowerSource(t, `int r = input.Right; int start = input.Start;`)

	instrs := allInstrs(prog.Entry)
	loadsFromMirror := 0
	for _, i := range instrs {
		if i.Kind == Load && !i.HasBase && i.Addr == prog.InputMirrorAddr {
			loadsFromMirror++
		}
	}
	if loadsFromMirror != 2 {
		t.Errorf("expected input.Right and input.Start to each load the single mirror byte at $%04X, got %v", prog.InputMirrorAddr, instrs)
	}

	foundAndWithBit := false
	for _, i := range instrs {
		if i.Kind == BinOpInstr && i.Op == OpBitAnd {
			foundAndWithBit = true
		}
	}
	if !foundAndWithBit {
		t.Errorf("expected a BitAnd against the flag's bit mask, got %v", instrs)
	}
}

func TestLower_OAMFieldStoreAndLoadAreByteSized(t *testing.T) {
	prog := lowerSource(t, `display.oam[0].x = 16; int v = display.oam[0].x;`)

	foundByteStore := false
	foundByteLoad := false
	for _, i := range allInstrs(prog.Entry) {
		if i.Kind == Store && i.Byte {
			foundByteStore = true
		}
		if i.Kind == Load && i.Byte {
			foundByteLoad = true
		}
	}
	if !foundByteStore {
		t.Errorf("expected a byte-sized Store for an OAM field write, got %v", allInstrs(prog.Entry))
	}
	if !foundByteLoad {
		t.Errorf("expected a byte-sized Load for an OAM field read, got %v", allInstrs(prog.Entry))
	}
}

func TestLower_TilemapCellStoreAndLoadAreByteSized(t *testing.T) {
	prog := lowerSource(t, `display.tilemap0[1][2] = 5; int v = display.tilemap0[1][2];`)

	foundByteStore := false
	foundByteLoad := false
	for _, i := range allInstrs(prog.Entry) {
		if i.Kind == Store && i.Byte {
			foundByteStore = true
		}
		if i.Kind == Load && i.Byte {
			foundByteLoad = true
		}
	}
	if !foundByteStore {
		t.Errorf("expected a byte-sized Store for a tilemap cell write, got %v", allInstrs(prog.Entry))
	}
	if !foundByteLoad {
		t.Errorf("expected a byte-sized Load for a tilemap cell read, got %v", allInstrs(prog.Entry))
	}
}

// assertNoDeadCodeAfterUnconditionalTerminator fails if any block contains a
// Return or Jump (unconditional terminators) that isn't its final
// instruction. BranchIfZero is not checked here; lowering always starts a
// new fall-through block right after one.
func assertNoDeadCodeAfterUnconditionalTerminator(t *testing.T, p *Procedure) {
	t.Helper()
	for _, blk := range p.Blocks {
		for idx, instr := range blk.Instrs {
			if instr.Kind != Return && instr.Kind != Jump {
				continue
			}
			if idx != len(blk.Instrs)-1 {
				t.Errorf("procedure %s block %s: %v at position %d is followed by dead code: %v", p.Name, blk.Label, instr, idx, blk.Instrs)
			}
		}
	}
}

func TestLower_IfWithReturnInThenArmDoesNotDoubleTerminate(t *testing.T) {
	prog := lowerSource(t, `procedure int pick(int c) { if (c) { return 1; } return 0; }`)

	if len(prog.Procedures) != 1 {
		t.Fatalf("expected one lowered procedure, got %d", len(prog.Procedures))
	}
	assertNoDeadCodeAfterUnconditionalTerminator(t, prog.Procedures[0])
}

func TestLower_LoopWithReturnInBodyDoesNotDoubleTerminate(t *testing.T) {
	prog := lowerSource(t, `procedure spin(int c) { loop (c) { if (c) { return; } } }`)

	if len(prog.Procedures) != 1 {
		t.Fatalf("expected one lowered procedure, got %d", len(prog.Procedures))
	}
	assertNoDeadCodeAfterUnconditionalTerminator(t, prog.Procedures[0])
}

func TestLower_EveryProcedureEndsInExactlyOneTerminatorPerBlock(t *testing.T) {
	prog := lowerSource(t, `procedure tick() { return; } procedure int id(int x) { return x; }`)

	for _, p := range append([]*Procedure{prog.Entry}, prog.Procedures...) {
		for _, b := range p.Blocks {
			if len(b.Instrs) == 0 {
				t.Errorf("procedure %s block %s has no instructions", p.Name, b.Label)
				continue
			}
			last := b.Instrs[len(b.Instrs)-1]
			if !last.Terminator() {
				t.Errorf("procedure %s block %s does not end in a terminator: %v", p.Name, b.Label, last)
			}
		}
	}
}
