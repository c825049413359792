package codegen

import (
	"fmt"

	"penguin/pkg/ir"
)

// loadWord loads the 16-bit little-endian value at addr into HL.
func (cg *CodeGen) loadWord(addr int) {
	cg.line("    ld a, [$%04X]", addr)
	cg.line("    ld l, a")
	cg.line("    ld a, [$%04X]", addr+1)
	cg.line("    ld h, a")
}

// storeWord stores HL to addr, little-endian.
func (cg *CodeGen) storeWord(addr int) {
	cg.line("    ld a, l")
	cg.line("    ld [$%04X], a", addr)
	cg.line("    ld a, h")
	cg.line("    ld [$%04X], a", addr+1)
}

// loadWordDE loads the 16-bit value at addr into DE, without touching HL.
func (cg *CodeGen) loadWordDE(addr int) {
	cg.line("    ld a, [$%04X]", addr)
	cg.line("    ld e, a")
	cg.line("    ld a, [$%04X]", addr+1)
	cg.line("    ld d, a")
}

func (cg *CodeGen) loadReg(r ir.Reg)   { cg.loadWord(cg.regAddr(r)) }
func (cg *CodeGen) storeReg(r ir.Reg)  { cg.storeWord(cg.regAddr(r)) }
func (cg *CodeGen) loadRegDE(r ir.Reg) { cg.loadWordDE(cg.regAddr(r)) }

func (cg *CodeGen) storeDEToReg(r ir.Reg) {
	addr := cg.regAddr(r)
	cg.line("    ld a, e")
	cg.line("    ld [$%04X], a", addr)
	cg.line("    ld a, d")
	cg.line("    ld [$%04X], a", addr+1)
}

// genProcedure emits one SECTION per compiled procedure (spec.md §4.5
// point 4): its entry label equals its first block's label.
func (cg *CodeGen) genProcedure(p *ir.Procedure) {
	cg.curReturnAddr = p.ReturnAddr
	cg.curHasReturn = p.HasReturn
	cg.comment("%s", p.Name)
	cg.line(`SECTION "%s", ROM0`, p.Label)
	for _, blk := range p.Blocks {
		cg.line("%s:", blk.Label)
		for _, instr := range blk.Instrs {
			cg.genInstr(instr)
		}
	}
}

func (cg *CodeGen) genInstr(i ir.Instr) {
	switch i.Kind {
	case ir.Const:
		cg.line("    ld hl, %d", i.Imm)
		cg.storeReg(i.Dst)
	case ir.Load:
		if i.Byte {
			// Hardware byte-mapped field (OAM, tilemap cell): a single
			// byte read, zero-extended into the register's word cell.
			if i.HasBase {
				cg.loadReg(i.Base) // hl = computed address
				cg.line("    ld a, [hl]")
			} else {
				cg.line("    ld a, [$%04X]", i.Addr)
			}
			cg.line("    ld l, a")
			cg.line("    ld h, 0")
			cg.storeReg(i.Dst)
		} else if i.HasBase {
			cg.loadReg(i.Base) // hl = computed address
			cg.line("    ld a, [hl]")
			cg.line("    ld e, a")
			cg.line("    inc hl")
			cg.line("    ld a, [hl]")
			cg.line("    ld d, a")
			cg.storeDEToReg(i.Dst)
		} else {
			cg.loadWord(i.Addr)
			cg.storeReg(i.Dst)
		}
	case ir.Store:
		if i.Byte {
			// Hardware byte-mapped field: write only the register's low
			// byte, leaving the neighboring hardware byte untouched.
			if i.HasBase {
				cg.loadReg(i.Base) // hl = computed address
				cg.loadRegDE(i.Src)
				cg.line("    ld a, e")
				cg.line("    ld [hl], a")
			} else {
				cg.loadReg(i.Src)
				cg.line("    ld a, l")
				cg.line("    ld [$%04X], a", i.Addr)
			}
		} else if i.HasBase {
			cg.loadReg(i.Base) // hl = computed address
			cg.loadRegDE(i.Src)
			cg.line("    ld a, e")
			cg.line("    ld [hl+], a")
			cg.line("    ld a, d")
			cg.line("    ld [hl], a")
		} else {
			cg.loadReg(i.Src)
			cg.storeWord(i.Addr)
		}
	case ir.Move:
		cg.loadReg(i.Src)
		cg.storeReg(i.Dst)
	case ir.BinOpInstr:
		cg.loadReg(i.Lhs)   // hl = lhs
		cg.loadRegDE(i.Rhs) // de = rhs
		cg.genBinOp(i.Op)
		cg.storeReg(i.Dst)
	case ir.UnOpInstr:
		cg.loadReg(i.Src)
		cg.genUnOp(i.Op)
		cg.storeReg(i.Dst)
	case ir.LoadIndirect:
		cg.computeIndirectAddr(i.Base, i.Index, i.Stride)
		cg.line("    ld a, [hl]")
		cg.line("    ld e, a")
		cg.line("    inc hl")
		cg.line("    ld a, [hl]")
		cg.line("    ld d, a")
		cg.storeDEToReg(i.Dst)
	case ir.StoreIndirect:
		cg.computeIndirectAddr(i.Base, i.Index, i.Stride)
		cg.line("    push hl")
		cg.loadRegDE(i.Src)
		cg.line("    pop hl")
		cg.line("    ld a, e")
		cg.line("    ld [hl+], a")
		cg.line("    ld a, d")
		cg.line("    ld [hl], a")
	case ir.Call:
		cg.genCall(i)
	case ir.Return:
		if i.HasDst {
			cg.loadReg(i.Src)
			cg.storeWord(cg.curReturnAddr)
		}
		cg.line("    ret")
	case ir.BranchIfZero:
		cg.loadReg(i.Src)
		cg.line("    ld a, h")
		cg.line("    or l")
		cg.line("    jp z, %s", i.Target)
	case ir.Jump:
		cg.line("    jp %s", i.Target)
	case ir.LabelInstr:
		cg.line("%s:", i.Label)
	default:
		panic(fmt.Sprintf("ice: codegen: unhandled instruction kind %v", i.Kind))
	}
}

// computeIndirectAddr leaves the effective address Base+Index*Stride in
// HL. Stride is always 2 (word elements) in this compiler's lowering.
func (cg *CodeGen) computeIndirectAddr(base, index ir.Reg, stride int) {
	if stride != 2 {
		panic(fmt.Sprintf("ice: codegen: unsupported indirect stride %d", stride))
	}
	cg.loadReg(base) // hl = base
	cg.line("    push hl")
	cg.loadRegDE(index) // de = index
	cg.line("    sla e")
	cg.line("    rl d") // de = index * 2
	cg.line("    pop hl")
	cg.line("    add hl, de") // hl = base + index*2
}

// genCall handles three shapes: the __mul_u16 runtime helper (fixed
// argument/result WRAM slots), a zero-argument control.* helper, and a
// user procedure (arguments stored to the callee's fixed ParamAddrs, no
// stack-based calling convention, spec.md §4.5).
func (cg *CodeGen) genCall(i ir.Instr) {
	switch i.Target {
	case ir.MulHelperLabel:
		cg.loadReg(i.Args[0])
		cg.storeWord(cg.mulArg0)
		cg.loadReg(i.Args[1])
		cg.storeWord(cg.mulArg1)
		cg.line("    call %s", i.Target)
		cg.loadWord(cg.mulResult)
		cg.storeReg(i.Dst)
		return
	case "LCDon", "LCDoff", "waitVBlank", "updateInput":
		cg.line("    call %s", i.Target)
		return
	}
	callee, ok := cg.procByLabel[i.Target]
	if !ok {
		panic("ice: codegen: call to undefined procedure label " + i.Target)
	}
	for argIdx, arg := range i.Args {
		cg.loadReg(arg)
		cg.storeWord(callee.ParamAddrs[argIdx])
	}
	cg.line("    call %s", i.Target)
	if i.HasDst {
		cg.loadWord(callee.ReturnAddr)
		cg.storeReg(i.Dst)
	}
}

func (cg *CodeGen) swapHLDE() {
	cg.line("    ld a, h")
	cg.line("    ld b, l")
	cg.line("    ld h, d")
	cg.line("    ld l, e")
	cg.line("    ld d, a")
	cg.line("    ld e, b")
}

// genBinOp consumes lhs in HL, rhs in DE and leaves the result in HL.
func (cg *CodeGen) genBinOp(op ir.Op) {
	switch op {
	case ir.OpAdd:
		cg.line("    add hl, de")
	case ir.OpSub:
		cg.line("    ld a, l")
		cg.line("    sub e")
		cg.line("    ld l, a")
		cg.line("    ld a, h")
		cg.line("    sbc a, d")
		cg.line("    ld h, a")
	case ir.OpBitAnd:
		cg.line("    ld a, l")
		cg.line("    and e")
		cg.line("    ld l, a")
		cg.line("    ld a, h")
		cg.line("    and d")
		cg.line("    ld h, a")
	case ir.OpBitOr:
		cg.line("    ld a, l")
		cg.line("    or e")
		cg.line("    ld l, a")
		cg.line("    ld a, h")
		cg.line("    or d")
		cg.line("    ld h, a")
	case ir.OpBitXor:
		cg.line("    ld a, l")
		cg.line("    xor e")
		cg.line("    ld l, a")
		cg.line("    ld a, h")
		cg.line("    xor d")
		cg.line("    ld h, a")
	case ir.OpShl:
		cg.genShift(true)
	case ir.OpShr:
		cg.genShift(false)
	case ir.OpEq:
		cg.genCompareEq(false)
	case ir.OpNeq:
		cg.genCompareEq(true)
	case ir.OpLt:
		cg.genCompareLt(false)
	case ir.OpGe:
		cg.genCompareLt(true)
	case ir.OpGt:
		cg.swapHLDE()
		cg.genCompareLt(false)
	case ir.OpLe:
		cg.swapHLDE()
		cg.genCompareLt(true)
	default:
		panic(fmt.Sprintf("ice: codegen: unhandled binary op %s", op))
	}
}

// genShift shifts HL by the count in E (assumed < 16): left for `<<`,
// logical right for `>>` (ints are unsigned by convention, spec.md §3).
func (cg *CodeGen) genShift(left bool) {
	loop := cg.newLabel("shift")
	done := cg.newLabel("shiftDone")
	cg.line("    ld a, e")
	cg.line("    or a")
	cg.line("    jp z, %s", done)
	cg.line("%s:", loop)
	if left {
		cg.line("    add hl, hl")
	} else {
		cg.line("    srl h")
		cg.line("    rr l")
	}
	cg.line("    dec a")
	cg.line("    jp nz, %s", loop)
	cg.line("%s:", done)
}

// genCompareLt emits the standard unsigned 16-bit comparison idiom (cp the
// high bytes, falling through to the low bytes on equality) and leaves
// 0/1 in HL for hl < de, or its negation if invert.
func (cg *CodeGen) genCompareLt(invert bool) {
	hiEq := cg.newLabel("cmpHi")
	trueL := cg.newLabel("cmpTrue")
	doneL := cg.newLabel("cmpDone")
	falseVal, trueVal := 0, 1
	if invert {
		falseVal, trueVal = 1, 0
	}
	cg.line("    ld a, h")
	cg.line("    cp d")
	cg.line("    jp nz, %s", hiEq)
	cg.line("    ld a, l")
	cg.line("    cp e")
	cg.line("%s:", hiEq)
	cg.line("    jp c, %s", trueL)
	cg.line("    ld hl, %d", falseVal)
	cg.line("    jp %s", doneL)
	cg.line("%s:", trueL)
	cg.line("    ld hl, %d", trueVal)
	cg.line("%s:", doneL)
}

// genCompareEq leaves 0/1 in HL for hl == de, or its negation if invert.
func (cg *CodeGen) genCompareEq(invert bool) {
	falseL := cg.newLabel("eqFalse")
	doneL := cg.newLabel("eqDone")
	trueVal, falseVal := 1, 0
	if invert {
		trueVal, falseVal = 0, 1
	}
	cg.line("    ld a, h")
	cg.line("    cp d")
	cg.line("    jp nz, %s", falseL)
	cg.line("    ld a, l")
	cg.line("    cp e")
	cg.line("    jp nz, %s", falseL)
	cg.line("    ld hl, %d", trueVal)
	cg.line("    jp %s", doneL)
	cg.line("%s:", falseL)
	cg.line("    ld hl, %d", falseVal)
	cg.line("%s:", doneL)
}

func (cg *CodeGen) genUnOp(op ir.Op) {
	switch op {
	case ir.OpNeg:
		cg.line("    xor a")
		cg.line("    sub l")
		cg.line("    ld l, a")
		cg.line("    ld a, 0")
		cg.line("    sbc a, h")
		cg.line("    ld h, a")
	case ir.OpBitNot:
		cg.line("    ld a, l")
		cg.line("    cpl")
		cg.line("    ld l, a")
		cg.line("    ld a, h")
		cg.line("    cpl")
		cg.line("    ld h, a")
	case ir.OpLogicalNot:
		cg.genTruthy()
		cg.line("    ld a, l")
		cg.line("    xor 1")
		cg.line("    ld l, a")
	case ir.OpTruthy:
		cg.genTruthy()
	default:
		panic(fmt.Sprintf("ice: codegen: unhandled unary op %s", op))
	}
}

// genTruthy normalizes HL to 0 or 1 (spec.md §4.4, §9: v != 0).
func (cg *CodeGen) genTruthy() {
	zero := cg.newLabel("truthyZero")
	done := cg.newLabel("truthyDone")
	cg.line("    ld a, h")
	cg.line("    or l")
	cg.line("    jp z, %s", zero)
	cg.line("    ld hl, 1")
	cg.line("    jp %s", done)
	cg.line("%s:", zero)
	cg.line("    ld hl, 0")
	cg.line("%s:", done)
}
