package codegen

import (
	"strings"
	"testing"

	"penguin/pkg/ir"
	"penguin/pkg/symtable"
)

func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("expected generated code to contain %q, but it didn't.\ncode:\n%s", expected, code)
	}
}

// entryBlock returns a minimal __entry procedure that just returns.
func entryBlock() *ir.Procedure {
	return &ir.Procedure{
		Name:  "__entry",
		Label: "__entry",
		Blocks: []*ir.Block{
			{Label: "__entry", Instrs: []ir.Instr{{Kind: ir.Return}}},
		},
	}
}

func TestGenerate_HeaderAndStartup(t *testing.T) {
	table := symtable.NewTable()
	prog := &ir.Program{Entry: entryBlock()}

	code := Generate(prog, table, nil)

	assertContains(t, code, `INCLUDE "hardware.inc"`)
	assertContains(t, code, `SECTION "Header", ROM0[$100]`)
	assertContains(t, code, "jp EntryPoint")
	assertContains(t, code, "ds $150 - @, 0")
	assertContains(t, code, "EntryPoint:")
	assertContains(t, code, "ld sp, $DFFF")
	assertContains(t, code, "call __entry")
	assertContains(t, code, "halt")
}

func TestGenerate_RuntimeHelpers(t *testing.T) {
	table := symtable.NewTable()
	prog := &ir.Program{Entry: entryBlock()}

	code := Generate(prog, table, nil)

	assertContains(t, code, "PenguinMemCopy:")
	assertContains(t, code, "__mul_u16:")
	assertContains(t, code, "waitVBlank:")
	assertContains(t, code, "LCDon:")
	assertContains(t, code, "LCDoff:")
	assertContains(t, code, "updateInput:")
}

func TestGenerate_ConstAndReturn(t *testing.T) {
	table := symtable.NewTable()
	prog := &ir.Program{
		Entry: &ir.Procedure{
			Name:  "__entry",
			Label: "__entry",
			NumRegs: 1,
			Blocks: []*ir.Block{{
				Label: "__entry",
				Instrs: []ir.Instr{
					{Kind: ir.Const, Dst: 0, Imm: 42},
					{Kind: ir.Return},
				},
			}},
		},
	}

	code := Generate(prog, table, nil)

	assertContains(t, code, "ld hl, 42")
}

func TestGenerate_ProcedureCallWithReturn(t *testing.T) {
	table := symtable.NewTable()
	sq := &ir.Procedure{
		Name:       "sq",
		Label:      "proc_sq",
		ParamAddrs: []int{0xC100},
		ReturnAddr: 0xC102,
		HasReturn:  true,
		NumRegs:    1,
		Blocks: []*ir.Block{{
			Label: "proc_sq",
			Instrs: []ir.Instr{
				{Kind: ir.Load, Dst: 0, Addr: 0xC100},
				{Kind: ir.Return, HasDst: true, Src: 0},
			},
		}},
	}
	entry := &ir.Procedure{
		Name:    "__entry",
		Label:   "__entry",
		NumRegs: 2,
		Blocks: []*ir.Block{{
			Label: "__entry",
			Instrs: []ir.Instr{
				{Kind: ir.Const, Dst: 0, Imm: 7},
				{Kind: ir.Call, HasDst: true, Dst: 1, Target: "proc_sq", Args: []ir.Reg{0}},
				{Kind: ir.Return},
			},
		}},
	}
	prog := &ir.Program{Entry: entry, Procedures: []*ir.Procedure{sq}}

	code := Generate(prog, table, nil)

	assertContains(t, code, `SECTION "proc_sq", ROM0`)
	assertContains(t, code, "ld [$C100], a") // arg store into the callee's param slot
	assertContains(t, code, "call proc_sq")
	assertContains(t, code, "ld a, [$C102]") // load from ReturnAddr after call
}

func TestGenerate_MulHelperCall(t *testing.T) {
	table := symtable.NewTable()
	entry := &ir.Procedure{
		Name:    "__entry",
		Label:   "__entry",
		NumRegs: 3,
		Blocks: []*ir.Block{{
			Label: "__entry",
			Instrs: []ir.Instr{
				{Kind: ir.Const, Dst: 0, Imm: 6},
				{Kind: ir.Const, Dst: 1, Imm: 7},
				{Kind: ir.Call, HasDst: true, Dst: 2, Target: ir.MulHelperLabel, Args: []ir.Reg{0, 1}},
				{Kind: ir.Return},
			},
		}},
	}
	prog := &ir.Program{Entry: entry}

	code := Generate(prog, table, nil)

	assertContains(t, code, "call __mul_u16")
}

func TestGenerate_BranchIfZeroAndJump(t *testing.T) {
	table := symtable.NewTable()
	entry := &ir.Procedure{
		Name:    "__entry",
		Label:   "__entry",
		NumRegs: 1,
		Blocks: []*ir.Block{
			{Label: "__entry", Instrs: []ir.Instr{
				{Kind: ir.Const, Dst: 0, Imm: 0},
				{Kind: ir.BranchIfZero, Src: 0, Target: "loop_end"},
				{Kind: ir.Jump, Target: "loop_top"},
			}},
			{Label: "loop_top", Instrs: []ir.Instr{{Kind: ir.Jump, Target: "loop_end"}}},
			{Label: "loop_end", Instrs: []ir.Instr{{Kind: ir.Return}}},
		},
	}
	prog := &ir.Program{Entry: entry}

	code := Generate(prog, table, nil)

	assertContains(t, code, "jp z, loop_end")
	assertContains(t, code, "jp loop_top")
	assertContains(t, code, "loop_top:")
	assertContains(t, code, "loop_end:")
}

func TestGenerate_AssetBindingCopiesWithLCDOff(t *testing.T) {
	table := symtable.NewTable()
	entry := entryBlock()
	prog := &ir.Program{
		Entry: entry,
		AssetBindings: []ir.AssetBinding{
			{Label: "asset_hero", TargetAddr: 0x8000},
		},
	}

	code := Generate(prog, table, []AssetInfo{{Label: "asset_hero", Path: "hero.2bpp"}})

	assertContains(t, code, "call LCDoff")
	assertContains(t, code, "ld hl, $8000")
	assertContains(t, code, "ld bc, asset_hero_End - asset_hero")
	assertContains(t, code, `SECTION "Assets", ROMX`)
	assertContains(t, code, "asset_hero:")
	assertContains(t, code, `INCBIN "hero.2bpp"`)
	assertContains(t, code, "asset_hero_End:")
}

func TestGenerate_NoAssetsOmitsAssetsSection(t *testing.T) {
	table := symtable.NewTable()
	prog := &ir.Program{Entry: entryBlock()}

	code := Generate(prog, table, nil)

	if strings.Contains(code, `SECTION "Assets"`) {
		t.Errorf("expected no Assets section when no assets are bound")
	}
	if strings.Contains(code, "call LCDoff") {
		t.Errorf("expected no LCDoff call in the startup stub when no assets are bound")
	}
}

func TestGenerate_UpdateInputSelectsButtonsBeforeDpad(t *testing.T) {
	table := symtable.NewTable()
	prog := &ir.Program{Entry: entryBlock()}

	code := Generate(prog, table, nil)

	start := strings.Index(code, "updateInput:")
	if start < 0 {
		t.Fatalf("expected an updateInput helper, got:\n%s", code)
	}
	update := code[start:]
	buttonsIdx := strings.Index(update, "ld a, 16") // 0x10: select buttons (P1 bit 5 = 0)
	dpadIdx := strings.Index(update, "ld a, 32")    // 0x20: select d-pad (P1 bit 4 = 0)
	if buttonsIdx < 0 || dpadIdx < 0 {
		t.Fatalf("expected both select constants in updateInput, got:\n%s", code)
	}
	if buttonsIdx > dpadIdx {
		t.Errorf("expected the button select (0x10) to precede the d-pad select (0x20) so the mirror byte ends up buttons-high/d-pad-low, got:\n%s", code)
	}
}

func TestGenerate_ByteLoadAndStoreTouchOnlyOneByte(t *testing.T) {
	table := symtable.NewTable()
	entry := &ir.Procedure{
		Name:    "__entry",
		Label:   "__entry",
		NumRegs: 1,
		Blocks: []*ir.Block{{
			Label: "__entry",
			Instrs: []ir.Instr{
				{Kind: ir.Load, Dst: 0, Addr: 0xFE01, Byte: true},
				{Kind: ir.Store, Src: 0, Addr: 0xFE01, Byte: true},
				{Kind: ir.Return},
			},
		}},
	}
	prog := &ir.Program{Entry: entry}

	code := Generate(prog, table, nil)

	assertContains(t, code, "ld a, [$FE01]")
	assertContains(t, code, "ld [$FE01], a")
	start := strings.Index(code, `SECTION "__entry"`)
	if start < 0 {
		t.Fatalf("expected an __entry section, got:\n%s", code)
	}
	entrySection := code[start:]
	if strings.Contains(entrySection, "ld [hl+], a") || strings.Contains(entrySection, "$FE02") {
		t.Errorf("a byte Store must write only $FE01, not a word store's second byte or its [hl+] auto-increment idiom, got:\n%s", entrySection)
	}
}

func TestGenerate_RelationalOpsProduceCompareIdiom(t *testing.T) {
	table := symtable.NewTable()
	entry := &ir.Procedure{
		Name:    "__entry",
		Label:   "__entry",
		NumRegs: 3,
		Blocks: []*ir.Block{{
			Label: "__entry",
			Instrs: []ir.Instr{
				{Kind: ir.Const, Dst: 0, Imm: 1},
				{Kind: ir.Const, Dst: 1, Imm: 2},
				{Kind: ir.BinOpInstr, Dst: 2, Lhs: 0, Rhs: 1, Op: ir.OpLt},
				{Kind: ir.Return},
			},
		}},
	}
	prog := &ir.Program{Entry: entry}

	code := Generate(prog, table, nil)

	assertContains(t, code, "cp d")
	assertContains(t, code, "jp c,")
}
