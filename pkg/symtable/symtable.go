// Package symtable implements penguin's scope stack, symbol table, and the
// monotonically increasing WRAM address allocator (spec.md §3, §5).
package symtable

import (
	"fmt"
	"sort"

	"penguin/pkg/diagnostics"
	"penguin/pkg/target"
	"penguin/pkg/types"
)

// Kind classifies what a Symbol names.
type Kind int

const (
	KindVariable Kind = iota
	KindParam
	KindProcedure
	KindList
	KindAsset
	KindBuiltin  // a builtin attribute member, e.g. input.Right
	KindReserved // a reserved root namespace: display, input, control
)

// Symbol is an entry in a Scope: a name, its kind, its type, and where it
// lives at runtime.
type Symbol struct {
	Name string
	Kind Kind
	Type types.Type

	// Storage, populated according to Kind:
	WRAMAddr int    // KindVariable / KindList / KindParam: address in $C000-$DFFF
	Label    string // KindProcedure: emitted label; KindAsset: INCBIN label
	AssetPath string // KindAsset: on-disk path the label refers to
	DeclSpan diagnostics.Span // KindAsset: initializer span, for asset-not-found diagnostics

	// TileIndex is the sequential hardware tile slot a KindAsset Sprite is
	// preloaded into at boot, in declaration order. Unused for non-sprite
	// assets: Tileset/Tilemap assets bind a whole sheet rather than one
	// tile (spec.md §6, §8 scenario 4).
	TileIndex int

	ListLen int // KindList: fixed element count, recorded here only

	// ReturnAddr is the fixed WRAM word a KindProcedure with a declared
	// return type writes its result to before returning; callers load
	// their result from it. Zero (and unused) for void procedures —
	// there is no stack-based calling convention (spec.md §4.5).
	ReturnAddr int
}

// Scope is an ordered identifier→Symbol mapping with a parent pointer.
// A child scope never mutates its parent; lookup walks upward.
type Scope struct {
	parent  *Scope
	names   map[string]*Symbol
	order   []string
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: make(map[string]*Symbol)}
}

// Declare binds name to sym in this scope. It reports ok=false if name is
// already bound in THIS scope (redeclaration); shadowing an outer scope's
// binding is always permitted.
func (s *Scope) Declare(name string, sym *Symbol) (ok bool) {
	if _, exists := s.names[name]; exists {
		return false
	}
	s.names[name] = sym
	s.order = append(s.order, name)
	return true
}

// Lookup searches this scope, then walks up through parents.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.names[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal searches only this scope, without walking to parents — used
// to detect same-scope redeclaration before calling Declare.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.names[name]
	return sym, ok
}

// Names returns the symbols declared directly in this scope, in
// declaration order.
func (s *Scope) Names() []*Symbol {
	out := make([]*Symbol, len(s.order))
	for i, n := range s.order {
		out[i] = s.names[n]
	}
	return out
}

// Table owns the scope stack and the WRAM allocator. The root scope is
// pre-populated with the reserved builtin namespace roots.
type Table struct {
	root    *Scope
	current *Scope

	// wramCursor is the next free, word-aligned WRAM address. It is
	// monotonically increasing; the analyzer allocates user storage from
	// it, and IR lowering and codegen take further space only via Reserve.
	wramCursor int
}

// ReservedRoots are the hardware-attribute namespace roots: they can never
// be redeclared, rebound, or passed as values (spec.md §9).
var ReservedRoots = []string{"display", "input", "control"}

// NewTable returns a Table whose root scope is pre-populated with the
// reserved roots and whose WRAM cursor starts at target.WRAMStart.
func NewTable() *Table {
	root := newScope(nil)
	for _, name := range ReservedRoots {
		root.Declare(name, &Symbol{Name: name, Kind: KindReserved, Type: types.Unit})
	}
	return &Table{root: root, current: root, wramCursor: target.WRAMStart}
}

// Root returns the root (global) scope.
func (t *Table) Root() *Scope { return t.root }

// Current returns the innermost active scope.
func (t *Table) Current() *Scope { return t.current }

// PushScope enters a new child scope (procedure entry or statement block).
func (t *Table) PushScope() {
	t.current = newScope(t.current)
}

// PopScope exits the current scope, returning to its parent. Popping the
// root scope is a compiler bug.
func (t *Table) PopScope() {
	if t.current.parent == nil {
		panic("ice: PopScope called on root scope")
	}
	t.current = t.current.parent
}

// wordsFor returns the WRAM byte footprint of a variable (2 bytes) or a
// list of the given length (2 bytes/element, spec.md §9 — no stored
// length header).
func wordsFor(count int) int {
	if count <= 0 {
		count = 1
	}
	return count * 2
}

// AllocVariable declares name as an int variable in the current scope and
// assigns it the next free WRAM address. ok is false on same-scope
// redeclaration.
func (t *Table) AllocVariable(name string, typ types.Type) (sym *Symbol, ok bool) {
	if _, exists := t.current.LookupLocal(name); exists {
		return nil, false
	}
	addr := t.reserveWRAM(wordsFor(1))
	sym = &Symbol{Name: name, Kind: KindVariable, Type: typ, WRAMAddr: addr}
	t.current.Declare(name, sym)
	return sym, true
}

// AllocList declares name as a List<Elem> of length elemCount.
func (t *Table) AllocList(name string, elem types.Type, elemCount int) (sym *Symbol, ok bool) {
	if _, exists := t.current.LookupLocal(name); exists {
		return nil, false
	}
	addr := t.reserveWRAM(wordsFor(elemCount))
	sym = &Symbol{
		Name: name, Kind: KindList, Type: &types.List{Elem: elem},
		WRAMAddr: addr, ListLen: elemCount,
	}
	t.current.Declare(name, sym)
	return sym, true
}

// AllocParam declares name as a procedure parameter in the current
// (procedure-body) scope.
func (t *Table) AllocParam(name string, typ types.Type) (sym *Symbol, ok bool) {
	if _, exists := t.current.LookupLocal(name); exists {
		return nil, false
	}
	addr := t.reserveWRAM(wordsFor(1))
	sym = &Symbol{Name: name, Kind: KindParam, Type: typ, WRAMAddr: addr}
	t.current.Declare(name, sym)
	return sym, true
}

// DeclareProcedure declares name as a procedure in the current scope (the
// collection pass runs this against the root scope so forward references
// resolve). The procedure itself gets an emitted label, not a WRAM address;
// a procedure with a declared return type additionally gets one reserved
// WRAM word its body writes the result to and its callers read from, since
// there is no stack-based calling convention.
func (t *Table) DeclareProcedure(name string, sig *types.Procedure, label string) (sym *Symbol, ok bool) {
	if _, exists := t.current.LookupLocal(name); exists {
		return nil, false
	}
	sym = &Symbol{Name: name, Kind: KindProcedure, Type: sig, Label: label}
	if sig.Return != nil {
		sym.ReturnAddr = t.reserveWRAM(wordsFor(1))
	}
	t.current.Declare(name, sym)
	return sym, true
}

// DeclareAsset declares name as an asset binding (Sprite/Tileset/Tilemap)
// backed by the given on-disk path.
func (t *Table) DeclareAsset(name string, typ types.Type, label, path string, sp diagnostics.Span) (sym *Symbol, ok bool) {
	if _, exists := t.current.LookupLocal(name); exists {
		return nil, false
	}
	sym = &Symbol{Name: name, Kind: KindAsset, Type: typ, Label: label, AssetPath: path, DeclSpan: sp}
	t.current.Declare(name, sym)
	return sym, true
}

// reserveWRAM bumps the cursor by n bytes, word-aligned, and returns the
// address reserved for the caller. WRAM exhaustion is checked afterwards via
// WRAMExhausted and reported as an ice diagnostic by the compiler driver:
// running out of the fixed WRAM range is a hard
// target limit, not a recoverable user-level error category in spec.md §7.
func (t *Table) reserveWRAM(n int) int {
	if n%2 != 0 {
		n++
	}
	addr := t.wramCursor
	t.wramCursor += n
	return addr
}

// Reserve allocates n bytes of WRAM for the compiler's own use (IR
// lowering's input mirror byte, codegen's virtual-register scratch file and
// helper slots), after analysis has finished handing out all user storage.
func (t *Table) Reserve(n int) int {
	return t.reserveWRAM(n)
}

// WRAMUsed reports how many bytes of $C000-$DFFF have been committed.
func (t *Table) WRAMUsed() int {
	return t.wramCursor - target.WRAMStart
}

// WRAMExhausted reports whether the allocator has run past $DFFF.
func (t *Table) WRAMExhausted() bool {
	return t.wramCursor-1 > target.WRAMEnd
}

// String returns a deterministically ordered dump of the root scope, for
// debugging and golden-file tests.
func (t *Table) String() string {
	names := make([]string, 0, len(t.root.names))
	for n := range t.root.names {
		names = append(names, n)
	}
	sort.Strings(names)
	out := ""
	for _, n := range names {
		sym := t.root.names[n]
		out += fmt.Sprintf("%-16s kind=%d type=%s addr=0x%04X label=%s\n", n, sym.Kind, sym.Type, sym.WRAMAddr, sym.Label)
	}
	return out
}
