// Package ir defines penguin's three-address intermediate representation:
// virtual registers, labeled basic blocks terminated exactly once, and the
// fixed instruction set of spec.md §3/§4.4.
package ir

import "fmt"

// Reg is a virtual register: a fresh one is allocated for every
// intermediate result within a single procedure's lowering. Codegen maps
// each Reg to its own WRAM scratch address.
type Reg int

// Op identifies the operation a BinOp or UnOp instruction performs. The
// surface operator set maps directly except: '*' never appears here (it
// lowers to a Call into __mul_u16) and and/or/xor lower to OpBitAnd/
// OpBitOr/OpBitXor over operands already normalized to 0/1 by a preceding
// OpTruthy UnOp (spec.md §4.4, §9 — logical ops are bitwise-on-normalized).
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLe
	OpGe

	OpNeg       // unary -
	OpBitNot    // unary ~
	OpLogicalNot // logical not: normalize then invert the 0/1 result
	OpTruthy    // normalize: dst = (src != 0) ? 1 : 0
)

func (o Op) String() string {
	names := [...]string{
		"add", "sub", "and", "or", "xor", "shl", "shr",
		"eq", "neq", "lt", "gt", "le", "ge",
		"neg", "not", "lnot", "truthy",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Instr is one three-address IR instruction. Only the fields relevant to
// Kind are populated; the rest are zero.
type Instr struct {
	Kind Kind

	Dst    Reg
	HasDst bool

	Imm int // Const

	Addr    int  // Load/Store: fixed memory address, used when HasBase is false
	HasBase bool // Load/Store: true when the address is Base instead of Addr
	Byte    bool // Load/Store: access a single byte instead of a word (hardware byte-mapped fields: OAM, tilemap cells)

	Src, Lhs, Rhs Reg
	Op            Op // BinOpInstr/UnOpInstr

	Base, Index Reg
	Stride      int // LoadIndirect/StoreIndirect, or Load/Store when HasBase

	Target string // Call target label, or Jump/BranchIfZero target label
	Args   []Reg  // Call argument registers, in order

	Label string // LabelInstr
}

// Kind identifies which of the fixed IR opcodes an Instr carries.
type Kind int

const (
	Const Kind = iota
	Load
	Store
	Move
	BinOpInstr
	UnOpInstr
	LoadIndirect
	StoreIndirect
	Call
	Return
	BranchIfZero
	Jump
	LabelInstr
)

func (k Kind) String() string {
	names := [...]string{
		"Const", "Load", "Store", "Move", "BinOp", "UnOp",
		"LoadIndirect", "StoreIndirect", "Call", "Return",
		"BranchIfZero", "Jump", "Label",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (i Instr) String() string {
	switch i.Kind {
	case Const:
		return fmt.Sprintf("r%d = const %d", i.Dst, i.Imm)
	case Load:
		if i.HasBase {
			return fmt.Sprintf("r%d = load [r%d]", i.Dst, i.Base)
		}
		return fmt.Sprintf("r%d = load [$%04X]", i.Dst, i.Addr)
	case Store:
		if i.HasBase {
			return fmt.Sprintf("store [r%d], r%d", i.Base, i.Src)
		}
		return fmt.Sprintf("store [$%04X], r%d", i.Addr, i.Src)
	case Move:
		return fmt.Sprintf("r%d = r%d", i.Dst, i.Src)
	case BinOpInstr:
		return fmt.Sprintf("r%d = r%d %s r%d", i.Dst, i.Lhs, i.Op, i.Rhs)
	case UnOpInstr:
		return fmt.Sprintf("r%d = %s r%d", i.Dst, i.Op, i.Src)
	case LoadIndirect:
		return fmt.Sprintf("r%d = [r%d + r%d*%d]", i.Dst, i.Base, i.Index, i.Stride)
	case StoreIndirect:
		return fmt.Sprintf("[r%d + r%d*%d] = r%d", i.Base, i.Index, i.Stride, i.Src)
	case Call:
		if i.HasDst {
			return fmt.Sprintf("r%d = call %s", i.Dst, i.Target)
		}
		return fmt.Sprintf("call %s", i.Target)
	case Return:
		if i.HasDst {
			return fmt.Sprintf("return r%d", i.Src)
		}
		return "return"
	case BranchIfZero:
		return fmt.Sprintf("branch_if_zero r%d, %s", i.Src, i.Target)
	case Jump:
		return fmt.Sprintf("jump %s", i.Target)
	case LabelInstr:
		return i.Label + ":"
	default:
		return fmt.Sprintf("<unknown instr %v>", i.Kind)
	}
}

// Terminator reports whether i ends a basic block: every block ends in
// exactly one of Return, Jump, or BranchIfZero (spec.md §3).
func (i Instr) Terminator() bool {
	switch i.Kind {
	case Return, Jump, BranchIfZero:
		return true
	}
	return false
}

// Block is a straight-line run of non-terminator instructions followed by
// exactly one terminator.
type Block struct {
	Label string
	Instrs []Instr // last element is always a terminator
}

// Procedure is one compiled procedure: its WRAM-resident parameters
// (already addressed by the symbol table), its virtual-register count, and
// its labeled basic blocks in emission order.
type Procedure struct {
	Name       string
	Label      string
	ParamAddrs []int // fixed WRAM address a caller's Call Args[i] is stored to
	NumRegs    int
	ReturnAddr int // 0 if the procedure has no declared return type
	HasReturn  bool
	Blocks     []*Block
}

// AssetBinding is a whole-asset VRAM bind produced by `display.tileset0 =`
// or `display.tilemap0 =` (spec.md §6, §8 scenario 4), and by Lower once per
// declared sprite at its tile-data slot: it carries no
// runtime IR of its own and instead tells codegen's startup stub to copy
// Label's INCBIN data to TargetAddr with the LCD off.
type AssetBinding struct {
	Label     string
	TargetAddr int
}

// Program is the whole lowered unit: the implicit entry procedure plus
// every user-declared procedure, in declaration order.
type Program struct {
	Entry        *Procedure
	Procedures   []*Procedure
	AssetBindings []AssetBinding

	// InputMirrorAddr is the single WRAM byte control.updateInput() packs
	// all eight input.* flags into (spec.md §6: "read via the joypad
	// register and mirrored to WRAM by updateInput"). Reserved once per
	// program, not per flag.
	InputMirrorAddr int
}
