// Package codegen consumes a lowered ir.Program and emits RGBDS-style
// SM83/DMG assembly text (spec.md §4.5). Every virtual register lives at a
// fixed WRAM address for its procedure's lifetime; A, BC, DE, HL are used
// only as scratch for a single instruction's translation — no register
// allocation beyond that fixed scratch set is attempted.
package codegen

import (
	"fmt"
	"strings"

	"penguin/pkg/ir"
	"penguin/pkg/symtable"
	"penguin/pkg/target"
)

// AssetInfo is one INCBIN-able asset symbol: its emitted label and the
// on-disk path resolved by pkg/assets. Codegen never touches the
// filesystem itself.
type AssetInfo struct {
	Label string
	Path  string
}

// CodeGen accumulates emitted assembly text. Grounded on the teacher's
// CodeGen struct (pkg/compiler/codegen.go): a strings.Builder plus
// line/comment/newLabel helpers.
type CodeGen struct {
	out       strings.Builder
	nextLabel int

	regBase     int // WRAM base address of the virtual-register scratch file
	mulArg0     int
	mulArg1     int
	mulResult   int
	inputMirror int // WRAM byte control.updateInput() packs the eight input.* flags into
	wramUsed    int // bytes of $C000-$DFFF to zero-fill at startup

	procByLabel map[string]*ir.Procedure

	curReturnAddr int
	curHasReturn  bool
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("; "+format, args...)
}

func (cg *CodeGen) newLabel(prefix string) string {
	cg.nextLabel++
	return fmt.Sprintf(".%s%d", prefix, cg.nextLabel)
}

func (cg *CodeGen) regAddr(r ir.Reg) int {
	return cg.regBase + int(r)*2
}

// Generate returns the full assembly source for prog. table is the same
// symbol table analysis built; codegen reserves its own virtual-register
// scratch file and runtime-helper argument slots from it after every user
// symbol has already been allocated (spec.md §4.5, §5).
func Generate(prog *ir.Program, table *symtable.Table, assets []AssetInfo) string {
	cg := &CodeGen{}

	maxRegs := prog.Entry.NumRegs
	for _, p := range prog.Procedures {
		if p.NumRegs > maxRegs {
			maxRegs = p.NumRegs
		}
	}
	cg.regBase = table.Reserve(maxRegs * 2)
	cg.mulArg0 = table.Reserve(2)
	cg.mulArg1 = table.Reserve(2)
	cg.mulResult = table.Reserve(2)
	cg.inputMirror = prog.InputMirrorAddr
	cg.wramUsed = table.WRAMUsed()

	cg.procByLabel = make(map[string]*ir.Procedure, len(prog.Procedures))
	for _, p := range prog.Procedures {
		cg.procByLabel[p.Label] = p
	}

	cg.genHeader()
	cg.genStartupStub(prog)
	cg.genRuntimeHelpers()

	cg.genProcedure(prog.Entry)
	for _, p := range prog.Procedures {
		cg.out.WriteByte('\n')
		cg.genProcedure(p)
	}

	cg.genAssets(assets)

	return cg.out.String()
}

func (cg *CodeGen) genHeader() {
	cg.line(`INCLUDE "hardware.inc"`)
	cg.line("")
	cg.line(`SECTION "Header", ROM0[$100]`)
	cg.line("    jp EntryPoint")
	cg.comment("Nintendo logo, title, cartridge type, ROM/RAM size, and header")
	cg.comment("checksum are left zeroed; rgbfix finalizes them downstream.")
	cg.line("    ds $150 - @, 0")
	cg.line("")
}

// genStartupStub emits EntryPoint: disable interrupts, init the stack,
// zero the WRAM this program uses, copy every bound asset to VRAM with the
// LCD off, call __entry, then halt forever (spec.md §4.5 point 2, §5).
func (cg *CodeGen) genStartupStub(prog *ir.Program) {
	cg.line(`SECTION "Startup", ROM0`)
	cg.line("EntryPoint:")
	cg.line("    di")
	cg.line("    ld sp, $%04X", target.StackInit)

	cg.comment("zero every WRAM cell this program's variables and registers use")
	cg.line("    ld hl, $%04X", target.WRAMStart)
	cg.line("    ld bc, %d", cg.wramUsed)
	zeroLoop := cg.newLabel("zeroWRAM")
	cg.line("%s:", zeroLoop)
	cg.line("    ld a, 0")
	cg.line("    ld [hl+], a")
	cg.line("    dec bc")
	cg.line("    ld a, b")
	cg.line("    or c")
	cg.line("    jp nz, %s", zeroLoop)

	if len(prog.AssetBindings) > 0 {
		cg.comment("copy bound assets to VRAM; OAM/VRAM writes outside vblank")
		cg.comment("must happen with the LCD off (spec.md §5)")
		cg.line("    call LCDoff")
		for _, ab := range prog.AssetBindings {
			cg.line("    ld de, %s", ab.Label)
			cg.line("    ld hl, $%04X", ab.TargetAddr)
			cg.line("    ld bc, %s_End - %s", ab.Label, ab.Label)
			cg.line("    call PenguinMemCopy")
		}
	}

	cg.line("    call __entry")
	cg.line("    halt")
	hang := cg.newLabel("hang")
	cg.line("%s:", hang)
	cg.line("    jp %s", hang)
	cg.line("")
}

// genRuntimeHelpers emits the hand-written helpers every generated program
// references: PenguinMemCopy, PenguinPush, PenguinPop, __mul_u16,
// waitVBlank, LCDon, LCDoff (spec.md §4.5 point 3).
func (cg *CodeGen) genRuntimeHelpers() {
	cg.line(`SECTION "PenguinRuntime", ROM0`)

	cg.comment("PenguinMemCopy: de=src, hl=dst, bc=count")
	cg.line("PenguinMemCopy:")
	cg.line("    ld a, b")
	cg.line("    or c")
	cg.line("    ret z")
	cg.line("    ld a, [de]")
	cg.line("    ld [hl+], a")
	cg.line("    inc de")
	cg.line("    dec bc")
	cg.line("    jp PenguinMemCopy")
	cg.line("")

	cg.comment("PenguinPush: push hl onto the runtime stack")
	cg.line("PenguinPush:")
	cg.line("    push hl")
	cg.line("    ret")
	cg.line("")

	cg.comment("PenguinPop: pop the runtime stack into hl")
	cg.line("PenguinPop:")
	cg.line("    pop hl")
	cg.line("    ret")
	cg.line("")

	cg.comment("__mul_u16: unsigned 16-bit multiply via shift-and-add")
	cg.comment("(spec.md §4.4, §9, §13 — the target has no multiply instruction)")
	cg.line("__mul_u16:")
	cg.loadWord(cg.mulArg0) // multiplicand -> hl
	cg.line("    ld d, h")
	cg.line("    ld e, l")
	cg.loadWord(cg.mulArg1) // multiplier -> hl
	cg.line("    ld b, h")
	cg.line("    ld c, l")
	cg.line("    ld hl, 0")
	cg.line("    ld a, 16")
	mulLoop := cg.newLabel("mulLoop")
	mulSkip := cg.newLabel("mulSkip")
	cg.line("%s:", mulLoop)
	cg.line("    srl b")
	cg.line("    rr c")
	cg.line("    jp nc, %s", mulSkip)
	cg.line("    add hl, de")
	cg.line("%s:", mulSkip)
	cg.line("    sla e")
	cg.line("    rl d")
	cg.line("    dec a")
	cg.line("    jp nz, %s", mulLoop)
	cg.storeWord(cg.mulResult) // hl -> result
	cg.line("    ret")
	cg.line("")

	cg.comment("waitVBlank: spin until LY reaches the vblank scanline")
	cg.line("waitVBlank:")
	waitLoop := cg.newLabel("waitLoop")
	cg.line("%s:", waitLoop)
	cg.line("    ld a, [rLY]")
	cg.line("    cp 144")
	cg.line("    jp c, %s", waitLoop)
	cg.line("    ret")
	cg.line("")

	cg.comment("LCDon/LCDoff: toggle the LCDC display-enable bit")
	cg.line("LCDon:")
	cg.line("    ld a, [rLCDC]")
	cg.line("    set 7, a")
	cg.line("    ld [rLCDC], a")
	cg.line("    ret")
	cg.line("LCDoff:")
	cg.line("    call waitVBlank")
	cg.line("    ld a, [rLCDC]")
	cg.line("    res 7, a")
	cg.line("    ld [rLCDC], a")
	cg.line("    ret")
	cg.line("")

	cg.comment("updateInput: mirror the joypad into a single WRAM byte —")
	cg.comment("low nibble the d-pad, high nibble the buttons (spec.md §6)")
	cg.line("updateInput:")
	cg.line("    ld a, %d", 0x10) // select button keys (P1 bit 5 = 0)
	cg.line("    ld [rP1], a")
	cg.line("    ld a, [rP1]")
	cg.line("    ld a, [rP1]")
	cg.line("    cpl")
	cg.line("    and $0F")
	cg.line("    swap a")
	cg.line("    ld b, a")
	cg.line("    ld a, %d", 0x20) // select d-pad keys (P1 bit 4 = 0)
	cg.line("    ld [rP1], a")
	cg.line("    ld a, [rP1]")
	cg.line("    ld a, [rP1]")
	cg.line("    cpl")
	cg.line("    and $0F")
	cg.line("    or b")
	cg.line("    ld [$%04X], a", cg.inputMirror)
	cg.line("    ld a, $30")
	cg.line("    ld [rP1], a")
	cg.line("    ret")
	cg.line("")
}

func (cg *CodeGen) genAssets(assets []AssetInfo) {
	if len(assets) == 0 {
		return
	}
	cg.line(`SECTION "Assets", ROMX`)
	for _, a := range assets {
		cg.line("%s:", a.Label)
		cg.line("    INCBIN %q", a.Path)
		cg.line("%s_End:", a.Label)
	}
}
