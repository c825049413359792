package ir

import (
	"fmt"

	"penguin/pkg/ast"
	"penguin/pkg/sema"
	"penguin/pkg/symtable"
	"penguin/pkg/target"
	"penguin/pkg/token"
	"penguin/pkg/types"
)

// MulHelperLabel is the runtime helper codegen must emit and lowering calls
// into for every '*' (the target has no multiply instruction, spec.md §4.4,
// §9).
const MulHelperLabel = "__mul_u16"

// builder accumulates the blocks of a single procedure being lowered.
type builder struct {
	res  *sema.Result
	prog *Program // shared across every procedure, for cross-procedure AssetBindings

	regs    int
	blocks  []*Block
	cur     *Block
	labelNo int
}

func (b *builder) newReg() Reg {
	r := Reg(b.regs)
	b.regs++
	return r
}

func (b *builder) newLabel(prefix string) string {
	b.labelNo++
	return fmt.Sprintf("%s%d", prefix, b.labelNo)
}

func (b *builder) startBlock(label string) {
	b.cur = &Block{Label: label}
	b.blocks = append(b.blocks, b.cur)
}

func (b *builder) emit(i Instr) {
	b.cur.Instrs = append(b.cur.Instrs, i)
	if i.Kind == BranchIfZero {
		// A BranchIfZero ends its block; the fall-through path gets its own.
		b.startBlock(b.newLabel("Lfall"))
	}
}

// Lower turns a fully analyzed program into an ir.Program: one Procedure
// per ast.ProcDecl plus the implicit __entry procedure for top-level
// statements (spec.md §4.4, §9 "Main program statements").
func Lower(res *sema.Result) *Program {
	prog := &Program{}
	prog.InputMirrorAddr = res.Table.Reserve(1)
	for _, sym := range res.Assets {
		if sym.Type.Kind() != types.KindSprite {
			continue
		}
		// Sprites have no source-level copy-to-VRAM assignment (unlike
		// display.tileset0/tilemap0); the startup stub preloads every
		// declared sprite into tile data at its assigned TileIndex slot,
		// 16 bytes (one 2bpp 8x8 tile) per index.
		prog.AssetBindings = append(prog.AssetBindings, AssetBinding{
			Label:      sym.Label,
			TargetAddr: target.TileData0Addr + sym.TileIndex*16,
		})
	}
	prog.Entry = lowerProcedureBody("__entry", "__entry", false, 0, nil, res.Entry, res, prog)
	for _, sym := range res.Table.Root().Names() {
		if decl, ok := res.Procedures[sym.Name]; ok && sym.Kind == symtable.KindProcedure {
			prog.Procedures = append(prog.Procedures, lowerProcDecl(decl, res, prog))
		}
	}
	return prog
}

func lowerProcDecl(p *ast.ProcDecl, res *sema.Result, prog *Program) *Procedure {
	sym, _ := res.Table.Root().Lookup(p.Name)
	hasReturn := sym != nil && sym.ReturnAddr != 0
	label := "proc_" + p.Name
	if sym != nil {
		label = sym.Label
	}
	returnAddr := 0
	if sym != nil {
		returnAddr = sym.ReturnAddr
	}
	paramAddrs := make([]int, len(p.Params))
	for i, param := range p.Params {
		if psym := res.ParamSymbols[p.Name][param.Name]; psym != nil {
			paramAddrs[i] = psym.WRAMAddr
		}
	}
	return lowerProcedureBody(p.Name, label, hasReturn, returnAddr, paramAddrs, p.Body.Statements, res, prog)
}

func lowerProcedureBody(name, label string, hasReturn bool, returnAddr int, paramAddrs []int, stmts []ast.Stmt, res *sema.Result, prog *Program) *Procedure {
	b := &builder{res: res, prog: prog}
	b.startBlock(label)
	for _, st := range stmts {
		b.lowerStmt(st)
	}
	// Every block must end in a terminator; a body that falls off the end
	// returns with no value (valid for void procedures; a procedure
	// declared with a return type falling through without a return is a
	// program that sema should already have accepted only when every path
	// returns — penguin has no flow-sensitive return-coverage check, so a
	// bare Return here is the documented fallback for a body that ends
	// without an explicit return).
	if len(b.cur.Instrs) == 0 || !b.cur.Instrs[len(b.cur.Instrs)-1].Terminator() {
		b.emit(Instr{Kind: Return})
	}
	return &Procedure{
		Name: name, Label: label, ParamAddrs: paramAddrs, NumRegs: b.regs,
		ReturnAddr: returnAddr, HasReturn: hasReturn, Blocks: b.blocks,
	}
}

func (b *builder) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Declaration:
		// No initializer: storage already exists (sema allocated it); WRAM
		// starts at whatever the startup stub's zero-fill left it as.
	case *ast.Initialization:
		sym := b.res.DeclSymbols[s]
		if sym == nil {
			return
		}
		if sym.Kind == symtable.KindAsset {
			return // asset binding only; no IR code (spec.md §4.4)
		}
		v := b.lowerExpr(s.Init)
		b.emit(Instr{Kind: Store, Addr: sym.WRAMAddr, Src: v})
	case *ast.ListInit:
		sym := b.res.DeclSymbols[s]
		if sym == nil {
			return
		}
		for idx, el := range s.Elements {
			v := b.lowerExpr(el)
			b.emit(Instr{Kind: Store, Addr: sym.WRAMAddr + idx*2, Src: v})
		}
	case *ast.Assignment:
		b.lowerAssignment(s)
	case *ast.If:
		b.lowerIf(s)
	case *ast.Loop:
		b.lowerLoop(s)
	case *ast.Block:
		for _, st := range s.Statements {
			b.lowerStmt(st)
		}
	case *ast.Return:
		b.lowerReturn(s)
	case *ast.ProcCallStmt:
		b.lowerExpr(s.Call)
	case *ast.ProcDecl:
		// Nested/local procedure declarations aren't part of this
		// language (procedures are always top-level); nothing to lower.
	default:
		panic(fmt.Sprintf("ice: ir: unhandled statement %T", stmt))
	}
}

func (b *builder) lowerReturn(r *ast.Return) {
	if r.Value == nil {
		b.emit(Instr{Kind: Return})
		return
	}
	v := b.lowerExpr(r.Value)
	b.emit(Instr{Kind: Return, HasDst: true, Src: v})
}

func (b *builder) lowerAssignment(asg *ast.Assignment) {
	if bi, ok := b.res.BuiltinOf(asg.Target); ok && (bi.Kind == sema.BuiltinTileset0 || bi.Kind == sema.BuiltinTilemap0) {
		// Whole-asset bind: the value is always a Tileset/Tilemap asset
		// Name (sema requires it), never a runtime-computed Int. It binds
		// the startup stub's copy-to-VRAM, not a per-statement Store
		// (spec.md §6, §8 scenario 4).
		b.bindAsset(bi, asg.Value)
		return
	}
	if bi, ok := b.res.BuiltinOf(asg.Target); ok && bi.Kind == sema.BuiltinOAMField && bi.Field == "tile" {
		if name, ok := asg.Value.(*ast.Name); ok {
			if sym := b.res.Symbols[name]; sym != nil && sym.Kind == symtable.KindAsset {
				// Sprite symbol: lowers to its compile-time tile index,
				// never a Load of the (nonexistent) asset's WRAM slot.
				b.storeOAMField(bi, b.emitConst(sym.TileIndex))
				return
			}
		}
	}
	v := b.lowerExpr(asg.Value)
	b.storeTo(asg.Target, v)
}

// bindAsset records a whole-sheet asset binding to TargetAddr for the
// startup stub to INCBIN-copy into VRAM with the LCD off.
func (b *builder) bindAsset(bi *sema.BuiltinAccess, value ast.Expr) {
	name, ok := value.(*ast.Name)
	if !ok {
		return
	}
	sym := b.res.Symbols[name]
	if sym == nil || sym.Kind != symtable.KindAsset {
		return
	}
	addr := target.TileData0Addr
	if bi.Kind == sema.BuiltinTilemap0 {
		addr = target.Tilemap0Addr
	}
	b.prog.AssetBindings = append(b.prog.AssetBindings, AssetBinding{Label: sym.Label, TargetAddr: addr})
}

// storeTo lowers a write to an lvalue: a plain Name (variable/param/list
// element base), a ListAccess (user list or display.oam[i].field's index
// chain), or a builtin AttrAccess (display.tileset0/tilemap0/oam field).
func (b *builder) storeTo(target ast.Expr, v Reg) {
	if bi, ok := b.res.BuiltinOf(target); ok {
		b.storeBuiltin(bi, v)
		return
	}
	switch t := target.(type) {
	case *ast.Name:
		sym := b.res.Symbols[t]
		b.emit(Instr{Kind: Store, Addr: sym.WRAMAddr, Src: v})
	case *ast.ListAccess:
		sym := b.res.Symbols[t.Base.(*ast.Name)]
		base := b.emitConst(sym.WRAMAddr)
		idx := b.lowerExpr(t.Indices[0])
		b.emit(Instr{Kind: StoreIndirect, Base: base, Index: idx, Stride: 2, Src: v})
	default:
		panic(fmt.Sprintf("ice: ir: unhandled assignment target %T", target))
	}
}

// storeBuiltin lowers a write into the display namespace to its fixed
// target address (spec.md §4.4: "Assignments to display.oam[i].field,
// display.tilemap0[x][y], and display.tileset0 lower to Store to fixed
// target addresses derived from the builtin table").
func (b *builder) storeBuiltin(bi *sema.BuiltinAccess, v Reg) {
	switch bi.Kind {
	case sema.BuiltinOAMField:
		b.storeOAMField(bi, v)
	case sema.BuiltinTilemapCell:
		b.storeTilemapCell(bi, v)
	default:
		// BuiltinTileset0/BuiltinTilemap0 are handled by lowerAssignment's
		// whole-asset-bind special case before storeTo is ever reached.
		panic(fmt.Sprintf("ice: ir: builtin kind %v is not assignable", bi.Kind))
	}
}

// tilemapCellAddr computes the address of a background-map cell: the GB
// 32x32 tilemap is row-major with a fixed 32-column stride.
func (b *builder) tilemapCellAddr(bi *sema.BuiltinAccess) Reg {
	x := b.lowerExpr(bi.X)
	y := b.lowerExpr(bi.Y)
	rowOffset := b.mul(y, b.emitConst(32))
	offset := b.newReg()
	b.emit(Instr{Kind: BinOpInstr, Dst: offset, Op: OpAdd, Lhs: rowOffset, Rhs: x})
	addr := b.newReg()
	b.emit(Instr{Kind: BinOpInstr, Dst: addr, Op: OpAdd, Lhs: b.emitConst(target.Tilemap0Addr), Rhs: offset})
	return addr
}

func (b *builder) storeTilemapCell(bi *sema.BuiltinAccess, v Reg) {
	addr := b.tilemapCellAddr(bi)
	b.emit(Instr{Kind: Store, HasBase: true, Byte: true, Src: v, Base: addr})
}

func oamFieldOffset(field string) int {
	switch field {
	case "y":
		return target.OAMFieldY
	case "x":
		return target.OAMFieldX
	case "tile":
		return target.OAMFieldTile
	case "attr":
		return target.OAMFieldAttr
	}
	panic("ice: ir: unknown oam field " + field)
}

func (b *builder) storeOAMField(bi *sema.BuiltinAccess, v Reg) {
	offset := oamFieldOffset(bi.Field)
	if lit, ok := bi.Index.(*ast.Literal); ok {
		// Constant slot index: fold to a single fixed-address Store,
		// matching §8 scenario 4's "emits a single byte-store".
		addr := target.OAMAddr(int(lit.Value), offset)
		b.emit(Instr{Kind: Store, Addr: addr, Byte: true, Src: v})
		return
	}
	idx := b.lowerExpr(bi.Index)
	stride := b.emitConst(target.OAMSlotSize)
	slotBase := b.newReg()
	b.emit(Instr{Kind: BinOpInstr, Dst: slotBase, Op: OpAdd, Lhs: b.emitConst(target.OAMStart + offset), Rhs: b.mul(idx, stride)})
	b.emit(Instr{Kind: Store, HasBase: true, Byte: true, Src: v, Base: slotBase})
}

// mul multiplies two registers via the runtime __mul_u16 helper — the
// target has no multiply instruction (spec.md §4.4, §9).
func (b *builder) mul(l, r Reg) Reg {
	dst := b.newReg()
	b.emit(Instr{Kind: Call, HasDst: true, Dst: dst, Target: MulHelperLabel, Args: []Reg{l, r}})
	return dst
}

func (b *builder) emitConst(v int) Reg {
	dst := b.newReg()
	b.emit(Instr{Kind: Const, Dst: dst, Imm: v})
	return dst
}

// maybeJump emits an unconditional Jump to target unless the current block
// already ends in a terminator (its last lowered statement was itself a
// return, so falling through to target is unreachable and would leave two
// terminators in one block).
func (b *builder) maybeJump(target string) {
	if len(b.cur.Instrs) > 0 && b.cur.Instrs[len(b.cur.Instrs)-1].Terminator() {
		return
	}
	b.emit(Instr{Kind: Jump, Target: target})
}

func (b *builder) lowerIf(s *ast.If) {
	cond := b.lowerExpr(s.Cond)
	elseLabel := b.newLabel("Lelse")
	endLabel := b.newLabel("Lend")
	b.emit(Instr{Kind: BranchIfZero, Src: cond, Target: elseLabel})
	b.lowerStmt(s.Then)
	b.maybeJump(endLabel)
	b.startBlock(elseLabel)
	if s.Else != nil {
		b.lowerStmt(s.Else)
	}
	b.maybeJump(endLabel)
	b.startBlock(endLabel)
}

func (b *builder) lowerLoop(s *ast.Loop) {
	headLabel := b.newLabel("Lhead")
	exitLabel := b.newLabel("Lexit")
	b.emit(Instr{Kind: Jump, Target: headLabel})
	b.startBlock(headLabel)
	cond := b.lowerExpr(s.Cond)
	b.emit(Instr{Kind: BranchIfZero, Src: cond, Target: exitLabel})
	b.lowerStmt(s.Body)
	b.maybeJump(headLabel)
	b.startBlock(exitLabel)
}

// ----- Expressions -----

func (b *builder) lowerExpr(expr ast.Expr) Reg {
	if bi, ok := b.res.BuiltinOf(expr); ok {
		return b.lowerBuiltinRead(bi)
	}
	switch e := expr.(type) {
	case *ast.Literal:
		return b.emitConst(int(e.Value))
	case *ast.StringLiteral:
		panic("ice: ir: string literal reached expression lowering")
	case *ast.Name:
		return b.lowerName(e)
	case *ast.ListAccess:
		return b.lowerListAccess(e)
	case *ast.AttrAccess:
		// display.oam[i].field already handled by the BuiltinOf check
		// above; any other AttrAccess shape is an analyzer bug.
		panic(fmt.Sprintf("ice: ir: unresolved builtin attr access %s", e))
	case *ast.ProcCall:
		return b.lowerCall(e)
	case *ast.Unary:
		return b.lowerUnary(e)
	case *ast.Binary:
		return b.lowerBinary(e)
	case *ast.Paren:
		return b.lowerExpr(e.X)
	default:
		panic(fmt.Sprintf("ice: ir: unhandled expression %T", expr))
	}
}

func (b *builder) lowerName(n *ast.Name) Reg {
	sym := b.res.Symbols[n]
	dst := b.newReg()
	b.emit(Instr{Kind: Load, Dst: dst, Addr: sym.WRAMAddr})
	return dst
}

func (b *builder) lowerListAccess(la *ast.ListAccess) Reg {
	sym := b.res.Symbols[la.Base.(*ast.Name)]
	baseAddr := b.emitConst(sym.WRAMAddr)
	idx := b.lowerExpr(la.Indices[0])
	cur := baseAddr
	for i := 1; i < len(la.Indices); i++ {
		// Chained indexing of list-of-list: each level dereferences the
		// previous result as the new base (spec.md §4.3).
		dst := b.newReg()
		b.emit(Instr{Kind: LoadIndirect, Dst: dst, Base: cur, Index: idx, Stride: 2})
		cur = b.emitConst(0)
		b.emit(Instr{Kind: Move, Dst: cur, Src: dst})
		idx = b.lowerExpr(la.Indices[i])
	}
	dst := b.newReg()
	b.emit(Instr{Kind: LoadIndirect, Dst: dst, Base: cur, Index: idx, Stride: 2})
	return dst
}

func (b *builder) lowerBuiltinRead(bi *sema.BuiltinAccess) Reg {
	switch bi.Kind {
	case sema.BuiltinTileset0:
		dst := b.newReg()
		b.emit(Instr{Kind: Load, Dst: dst, Addr: target.TileData0Addr})
		return dst
	case sema.BuiltinTilemap0:
		dst := b.newReg()
		b.emit(Instr{Kind: Load, Dst: dst, Addr: target.Tilemap0Addr})
		return dst
	case sema.BuiltinInputFlag:
		byteVal := b.newReg()
		b.emit(Instr{Kind: Load, Dst: byteVal, Addr: b.prog.InputMirrorAddr})
		masked := b.newReg()
		b.emit(Instr{Kind: BinOpInstr, Dst: masked, Op: OpBitAnd, Lhs: byteVal, Rhs: b.emitConst(1 << inputFlagBit(bi.Field))})
		dst := b.newReg()
		b.emit(Instr{Kind: UnOpInstr, Dst: dst, Op: OpTruthy, Src: masked})
		return dst
	case sema.BuiltinOAMField:
		return b.loadOAMField(bi)
	case sema.BuiltinTilemapCell:
		addr := b.tilemapCellAddr(bi)
		dst := b.newReg()
		b.emit(Instr{Kind: Load, HasBase: true, Byte: true, Dst: dst, Base: addr})
		return dst
	default:
		panic(fmt.Sprintf("ice: ir: builtin kind %v is not readable", bi.Kind))
	}
}

// inputFlagBit maps an input.* member to its bit position in the single
// updateInput-mirrored WRAM byte; order matches target.Input*.
func inputFlagBit(field string) int {
	switch field {
	case "Right":
		return target.InputRight
	case "Left":
		return target.InputLeft
	case "Up":
		return target.InputUp
	case "Down":
		return target.InputDown
	case "A":
		return target.InputA
	case "B":
		return target.InputB
	case "Start":
		return target.InputStart
	case "Select":
		return target.InputSelect
	}
	panic("ice: ir: unknown input flag " + field)
}

func (b *builder) loadOAMField(bi *sema.BuiltinAccess) Reg {
	offset := oamFieldOffset(bi.Field)
	if lit, ok := bi.Index.(*ast.Literal); ok {
		addr := target.OAMAddr(int(lit.Value), offset)
		dst := b.newReg()
		b.emit(Instr{Kind: Load, Addr: addr, Byte: true, Dst: dst})
		return dst
	}
	idx := b.lowerExpr(bi.Index)
	stride := b.emitConst(target.OAMSlotSize)
	slotBase := b.newReg()
	b.emit(Instr{Kind: BinOpInstr, Dst: slotBase, Op: OpAdd, Lhs: b.emitConst(target.OAMStart + offset), Rhs: b.mul(idx, stride)})
	dst := b.newReg()
	b.emit(Instr{Kind: Load, HasBase: true, Byte: true, Dst: dst, Base: slotBase})
	return dst
}

func (b *builder) lowerCall(call *ast.ProcCall) Reg {
	if bi, ok := b.res.BuiltinOf(call); ok {
		b.emit(Instr{Kind: Call, Target: controlHelperLabel(bi.Field)})
		return b.emitConst(0) // Unit: callers of a Unit-typed call never use the result
	}
	sym := b.res.Symbols[call]
	// Arguments are written into the callee's fixed parameter WRAM slots
	// (no stack-based calling convention, spec.md §4.5); codegen emits the
	// per-argument Store immediately before the Call from Args, in order.
	args := make([]Reg, len(call.Args))
	for i, arg := range call.Args {
		args[i] = b.lowerExpr(arg)
	}
	if sym.ReturnAddr != 0 {
		dst := b.newReg()
		b.emit(Instr{Kind: Call, HasDst: true, Dst: dst, Target: sym.Label, Args: args})
		return dst
	}
	b.emit(Instr{Kind: Call, Target: sym.Label, Args: args})
	return b.emitConst(0)
}

func controlHelperLabel(member string) string {
	switch member {
	case "LCDon":
		return "LCDon"
	case "LCDoff":
		return "LCDoff"
	case "waitVBlank":
		return "waitVBlank"
	case "updateInput":
		return "updateInput"
	}
	panic("ice: ir: unknown control procedure " + member)
}

func (b *builder) lowerUnary(u *ast.Unary) Reg {
	x := b.lowerExpr(u.X)
	dst := b.newReg()
	switch u.Op {
	case token.MINUS:
		b.emit(Instr{Kind: UnOpInstr, Dst: dst, Op: OpNeg, Src: x})
	case token.PLUS:
		return x // unary + is a no-op (spec.md §9)
	case token.TILDE:
		b.emit(Instr{Kind: UnOpInstr, Dst: dst, Op: OpBitNot, Src: x})
	case token.NOT:
		b.emit(Instr{Kind: UnOpInstr, Dst: dst, Op: OpLogicalNot, Src: x})
	default:
		panic(fmt.Sprintf("ice: ir: unhandled unary operator %s", u.Op))
	}
	return dst
}

// normalize maps a register's value to 0 or 1 (v != 0), the truthiness
// encoding and/or/xor operate on (spec.md §4.4, §9).
func (b *builder) normalize(r Reg) Reg {
	dst := b.newReg()
	b.emit(Instr{Kind: UnOpInstr, Dst: dst, Op: OpTruthy, Src: r})
	return dst
}

func (b *builder) lowerBinary(bin *ast.Binary) Reg {
	switch bin.Op {
	case token.STAR:
		l := b.lowerExpr(bin.Left)
		r := b.lowerExpr(bin.Right)
		return b.mul(l, r)
	case token.AND, token.OR, token.XOR:
		l := b.normalize(b.lowerExpr(bin.Left))
		r := b.normalize(b.lowerExpr(bin.Right))
		dst := b.newReg()
		b.emit(Instr{Kind: BinOpInstr, Dst: dst, Op: logicalBitOp(bin.Op), Lhs: l, Rhs: r})
		return dst
	}
	l := b.lowerExpr(bin.Left)
	r := b.lowerExpr(bin.Right)
	dst := b.newReg()
	b.emit(Instr{Kind: BinOpInstr, Dst: dst, Op: binOp(bin.Op), Lhs: l, Rhs: r})
	return dst
}

func logicalBitOp(tt token.Type) Op {
	switch tt {
	case token.AND:
		return OpBitAnd
	case token.OR:
		return OpBitOr
	case token.XOR:
		return OpBitXor
	}
	panic(fmt.Sprintf("ice: ir: %s is not a logical operator", tt))
}

func binOp(tt token.Type) Op {
	switch tt {
	case token.PLUS:
		return OpAdd
	case token.MINUS:
		return OpSub
	case token.AMP:
		return OpBitAnd
	case token.PIPE:
		return OpBitOr
	case token.CARET:
		return OpBitXor
	case token.SHL:
		return OpShl
	case token.SHR:
		return OpShr
	case token.EQ:
		return OpEq
	case token.NEQ:
		return OpNeq
	case token.LT:
		return OpLt
	case token.GT:
		return OpGt
	case token.LE:
		return OpLe
	case token.GE:
		return OpGe
	}
	panic(fmt.Sprintf("ice: ir: unhandled binary operator %s", tt))
}
