// Package sema implements penguin's two-pass semantic analyzer: symbol
// resolution, type checking over the fixed type universe, and validation of
// the display/input/control builtin namespace (spec.md §4.3).
package sema

import (
	"fmt"

	"penguin/pkg/ast"
	"penguin/pkg/diagnostics"
	"penguin/pkg/symtable"
	"penguin/pkg/types"
)

// Result is everything IR lowering needs that the AST alone doesn't carry:
// the fully populated symbol table, a type for every expression node, the
// symbol each Name/ProcCall resolved to, and the builtin
// descriptor for every display/input/control access.
type Result struct {
	Table      *symtable.Table
	Types      map[ast.Expr]types.Type
	Symbols    map[ast.Expr]*symtable.Symbol
	Procedures map[string]*ast.ProcDecl
	Entry      []ast.Stmt // top-level statements outside any ProcDecl, in order

	Builtins map[ast.Expr]*BuiltinAccess

	// DeclSymbols resolves the symbol a Declaration/Initialization/ListInit
	// statement binds. It's separate from Symbols because those three
	// nodes are Stmt, not Expr, and never appear as a Symbols key.
	DeclSymbols map[ast.Stmt]*symtable.Symbol

	// Assets lists every Sprite/Tileset/Tilemap asset symbol in
	// declaration order, regardless of whether it is ever bound with
	// display.tileset0/tilemap0. IR lowering uses it to auto-bind every
	// declared sprite's tile data into VRAM at its TileIndex slot
	// (spec.md is silent on how sprite pixel data reaches VRAM since
	// sprites have no source-level copy-to-VRAM assignment of their
	// own); asset resolution (pkg/assets) uses it to emit one INCBIN per
	// symbol regardless of binding.
	Assets []*symtable.Symbol

	// ParamSymbols resolves a procedure's parameter symbols by procedure
	// name then parameter name. Parameters live in a procedure's body
	// scope, which is popped and discarded at the end of checkProcDecl, so
	// IR lowering (which runs after Analyze returns and only ever sees the
	// AST) has no other way to recover their WRAM addresses.
	ParamSymbols map[string]map[string]*symtable.Symbol
}

func (r *Result) BuiltinOf(e ast.Expr) (*BuiltinAccess, bool) {
	b, ok := r.Builtins[e]
	return b, ok
}

// Analyzer holds the mutable state of a single analysis pass.
type Analyzer struct {
	sink  *diagnostics.Sink
	table *symtable.Table

	types        map[ast.Expr]types.Type
	symbols      map[ast.Expr]*symtable.Symbol
	declSymbols  map[ast.Stmt]*symtable.Symbol
	paramSymbols map[string]map[string]*symtable.Symbol
	builtins     map[ast.Expr]*BuiltinAccess
	procedures   map[string]*ast.ProcDecl

	// currentReturn is the enclosing procedure's declared return type while
	// walking its body; nil outside any procedure (Return there is an
	// error) and "no return type" is represented by returnVoid below.
	currentReturn   types.Type
	returnVoid      bool
	inProcedureBody bool

	// nextSpriteTile assigns each sprite asset its hardware tile slot in
	// declaration order as its initializer is checked.
	nextSpriteTile int
	assets         []*symtable.Symbol
}

// New returns an Analyzer with a fresh symbol table seeded with the
// reserved display/input/control roots.
func New(sink *diagnostics.Sink) *Analyzer {
	return &Analyzer{
		sink:       sink,
		table:      symtable.NewTable(),
		types:        make(map[ast.Expr]types.Type),
		symbols:      make(map[ast.Expr]*symtable.Symbol),
		declSymbols:  make(map[ast.Stmt]*symtable.Symbol),
		paramSymbols: make(map[string]map[string]*symtable.Symbol),
		builtins:     make(map[ast.Expr]*BuiltinAccess),
		procedures:   make(map[string]*ast.ProcDecl),
	}
}

// Analyze runs both passes over prog and returns the accumulated Result.
// Errors are reported to the sink; the caller decides whether to proceed to
// IR lowering based on sink.HasErrors().
func Analyze(prog *ast.Program, sink *diagnostics.Sink) *Result {
	a := New(sink)
	a.collect(prog)
	a.check(prog)
	var entry []ast.Stmt
	for _, s := range prog.Statements {
		if _, ok := s.(*ast.ProcDecl); !ok {
			entry = append(entry, s)
		}
	}
	return &Result{
		Table: a.table, Types: a.types, Symbols: a.symbols,
		Procedures: a.procedures, Entry: entry, Builtins: a.builtins,
		DeclSymbols:  a.declSymbols,
		ParamSymbols: a.paramSymbols,
		Assets:       a.assets,
	}
}

func typeFromName(name string) (types.Type, bool) {
	switch name {
	case "int":
		return types.Int, true
	case "sprite":
		return types.Sprite, true
	case "tileset":
		return types.Tileset, true
	case "tilemap":
		return types.Tilemap, true
	}
	return nil, false
}

func isReservedRoot(name string) bool {
	for _, r := range symtable.ReservedRoots {
		if r == name {
			return true
		}
	}
	return false
}

// ----- Collection pass -----

// collect registers every top-level procedure and global declaration in the
// root scope so forward references resolve regardless of source order.
func (a *Analyzer) collect(prog *ast.Program) {
	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case *ast.ProcDecl:
			a.collectProc(s)
		case *ast.Declaration:
			a.collectGlobalDecl(s.TypeName, s.Name, s.Sp)
		case *ast.Initialization:
			a.collectGlobalDecl(s.TypeName, s.Name, s.Sp)
		case *ast.ListInit:
			a.collectGlobalList(s.Name, len(s.Elements), s.Sp)
		}
	}
}

func (a *Analyzer) collectProc(p *ast.ProcDecl) {
	if isReservedRoot(p.Name) {
		a.sink.Errorf(diagnostics.Redeclaration, p.Sp, "%q is a reserved builtin namespace and cannot be declared", p.Name)
		return
	}
	paramTypes := make([]types.Type, len(p.Params))
	for i, param := range p.Params {
		t, ok := typeFromName(param.TypeName)
		if !ok {
			a.sink.Errorf(diagnostics.ParseError, p.Sp, "unknown parameter type %q", param.TypeName)
			t = types.ErrorType
		}
		paramTypes[i] = t
	}
	var ret types.Type
	if p.ReturnType != "" {
		t, ok := typeFromName(p.ReturnType)
		if !ok {
			a.sink.Errorf(diagnostics.ParseError, p.Sp, "unknown return type %q", p.ReturnType)
			t = types.ErrorType
		}
		ret = t
	}
	sig := &types.Procedure{Params: paramTypes, Return: ret}
	label := "proc_" + p.Name
	if _, ok := a.table.DeclareProcedure(p.Name, sig, label); !ok {
		a.sink.Errorf(diagnostics.Redeclaration, p.Sp, "%q is already declared in this scope", p.Name)
		return
	}
	a.procedures[p.Name] = p
}

// isAssetType reports whether t is a type that only ever binds to a file on
// disk (Sprite/Tileset/Tilemap) rather than occupying WRAM.
func isAssetType(t types.Type) bool {
	switch t.Kind() {
	case types.KindSprite, types.KindTileset, types.KindTilemap:
		return true
	}
	return false
}

func (a *Analyzer) collectGlobalDecl(typeName, name string, sp diagnostics.Span) {
	if isReservedRoot(name) {
		a.sink.Errorf(diagnostics.Redeclaration, sp, "%q is a reserved builtin namespace and cannot be declared", name)
		return
	}
	t, ok := typeFromName(typeName)
	if !ok {
		a.sink.Errorf(diagnostics.ParseError, sp, "unknown type %q", typeName)
		t = types.ErrorType
	}
	if isAssetType(t) {
		// Label and on-disk path aren't known until the check pass reads
		// the string-literal initializer; reserve the binding now with
		// placeholders so forward references still resolve.
		if _, ok := a.table.DeclareAsset(name, t, "", "", sp); !ok {
			a.sink.Errorf(diagnostics.Redeclaration, sp, "%q is already declared in this scope", name)
		}
		return
	}
	if _, ok := a.table.AllocVariable(name, t); !ok {
		a.sink.Errorf(diagnostics.Redeclaration, sp, "%q is already declared in this scope", name)
	}
}

func (a *Analyzer) collectGlobalList(name string, elemCount int, sp diagnostics.Span) {
	if isReservedRoot(name) {
		a.sink.Errorf(diagnostics.Redeclaration, sp, "%q is a reserved builtin namespace and cannot be declared", name)
		return
	}
	// Element type is resolved from the initializer's own elements during
	// the check pass; the collection pass only needs to reserve WRAM, so a
	// placeholder Int element type is replaced once the check pass sees the
	// first element (lists are homogeneous; spec.md is silent on mixed
	// lists, so the check pass treats the first element's type as
	// authoritative and reports type-mismatch against the rest).
	if _, ok := a.table.AllocList(name, types.Int, elemCount); !ok {
		a.sink.Errorf(diagnostics.Redeclaration, sp, "%q is already declared in this scope", name)
	}
}

// ----- Check pass -----

func (a *Analyzer) check(prog *ast.Program) {
	for _, stmt := range prog.Statements {
		a.checkStmt(stmt)
	}
}

func (a *Analyzer) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Declaration:
		a.checkDeclaration(s)
	case *ast.Initialization:
		a.checkInitialization(s)
	case *ast.ListInit:
		a.checkListInit(s)
	case *ast.Assignment:
		a.checkAssignment(s)
	case *ast.If:
		a.checkIf(s)
	case *ast.Loop:
		a.checkLoop(s)
	case *ast.Block:
		a.table.PushScope()
		for _, st := range s.Statements {
			a.checkStmt(st)
		}
		a.table.PopScope()
	case *ast.ProcDecl:
		a.checkProcDecl(s)
	case *ast.Return:
		a.checkReturn(s)
	case *ast.ProcCallStmt:
		a.checkExpr(s.Call)
	default:
		panic(fmt.Sprintf("ice: sema: unhandled statement %T", stmt))
	}
}

// atRootScope handles the fact that the collection pass
// already allocated root-scope symbols for top-level declarations: at the
// root scope, checkDeclaration/checkInitialization must not re-Declare (it
// would self-collide), while inside a nested scope they always allocate
// fresh storage and the collection-pass symbol is irrelevant.
func (a *Analyzer) atRootScope() bool { return a.table.Current() == a.table.Root() }

func (a *Analyzer) checkDeclaration(d *ast.Declaration) {
	if isReservedRoot(d.Name) {
		if !a.atRootScope() {
			a.sink.Errorf(diagnostics.Redeclaration, d.Sp, "%q is a reserved builtin namespace and cannot be declared", d.Name)
		}
		return // a root-scope declaration was already reported by collect
	}
	t, ok := typeFromName(d.TypeName)
	if !ok {
		t = types.ErrorType
	}
	if isAssetType(t) {
		a.sink.Errorf(diagnostics.TypeMismatch, d.Sp, "%s must be initialized from a string literal naming an asset file", d.TypeName)
	}
	if a.atRootScope() {
		if sym, ok := a.table.Root().Lookup(d.Name); ok {
			a.declSymbols[d] = sym
		}
		return
	}
	if sym, ok := a.table.AllocVariable(d.Name, t); ok {
		a.declSymbols[d] = sym
	} else {
		a.sink.Errorf(diagnostics.Redeclaration, d.Sp, "%q is already declared in this scope", d.Name)
	}
}

func (a *Analyzer) checkInitialization(init *ast.Initialization) {
	t, ok := typeFromName(init.TypeName)
	if !ok {
		t = types.ErrorType
	}
	var initType types.Type
	if _, isStr := init.Init.(*ast.StringLiteral); isStr && isAssetType(t) {
		// The one legal use of a string literal: an asset's file path.
		initType = t
		a.types[init.Init] = t
	} else {
		initType = a.checkExpr(init.Init)
	}
	a.requireAssetOrConform(init.TypeName, t, initType, init.Init, init.Sp)

	if isReservedRoot(init.Name) {
		return
	}
	assetPath, isAsset := "", isAssetType(t)
	if lit, ok := init.Init.(*ast.StringLiteral); isAsset && ok {
		assetPath = lit.Value
	}
	if a.atRootScope() {
		sym, ok := a.table.Root().Lookup(init.Name)
		if !ok {
			return
		}
		if isAsset {
			sym.Label = "asset_" + init.Name
			sym.AssetPath = assetPath
			sym.DeclSpan = init.Sp
			if t.Kind() == types.KindSprite {
				sym.TileIndex = a.nextSpriteTile
				a.nextSpriteTile++
			}
			a.assets = append(a.assets, sym)
		}
		a.declSymbols[init] = sym
		return
	}
	if isAsset {
		if sym, ok := a.table.DeclareAsset(init.Name, t, "asset_"+init.Name, assetPath, init.Sp); ok {
			if t.Kind() == types.KindSprite {
				sym.TileIndex = a.nextSpriteTile
				a.nextSpriteTile++
			}
			a.assets = append(a.assets, sym)
			a.declSymbols[init] = sym
		} else {
			a.sink.Errorf(diagnostics.Redeclaration, init.Sp, "%q is already declared in this scope", init.Name)
		}
		return
	}
	if sym, ok := a.table.AllocVariable(init.Name, t); ok {
		a.declSymbols[init] = sym
	} else {
		a.sink.Errorf(diagnostics.Redeclaration, init.Sp, "%q is already declared in this scope", init.Name)
	}
}

// requireAssetOrConform type-checks an initializer against its declared
// type. Sprite/Tileset/Tilemap initialize only from a string literal
// (spec.md §3); Int initializes from any Int-typed expression.
func (a *Analyzer) requireAssetOrConform(typeName string, declared, actual types.Type, initExpr ast.Expr, sp diagnostics.Span) {
	if types.IsError(declared) || types.IsError(actual) {
		return
	}
	switch declared.Kind() {
	case types.KindSprite, types.KindTileset, types.KindTilemap:
		if _, ok := initExpr.(*ast.StringLiteral); !ok {
			a.sink.Errorf(diagnostics.TypeMismatch, sp, "%s must be initialized from a string literal naming an asset file", typeName)
		}
	default:
		if lit, ok := initExpr.(*ast.Literal); ok && declared.Kind() == types.KindInt {
			if lit.Value > 65535 {
				a.sink.Errorf(diagnostics.TypeMismatch, lit.Sp, "integer literal %d is out of range for a 16-bit int", lit.Value)
			}
		}
		if !declared.Equal(actual) {
			a.sink.Errorf(diagnostics.TypeMismatch, sp, "cannot initialize %s with a value of type %s", declared, actual)
		}
	}
}

func (a *Analyzer) checkListInit(li *ast.ListInit) {
	var elem types.Type
	for _, e := range li.Elements {
		et := a.checkExpr(e)
		if types.IsError(et) {
			continue
		}
		if lit, ok := e.(*ast.Literal); ok && lit.Value > 65535 {
			a.sink.Errorf(diagnostics.TypeMismatch, lit.Sp, "integer literal %d is out of range for a 16-bit int", lit.Value)
			continue
		}
		if elem == nil {
			elem = et
		} else if !elem.Equal(et) {
			a.sink.Errorf(diagnostics.TypeMismatch, e.Span(), "list elements must share a single type; first element was %s, this one is %s", elem, et)
		}
	}
	if elem == nil {
		elem = types.Int
	}
	if isReservedRoot(li.Name) {
		return
	}
	if a.atRootScope() {
		if sym, ok := a.table.Root().Lookup(li.Name); ok {
			sym.Type = &types.List{Elem: elem}
			a.declSymbols[li] = sym
		}
		return
	}
	if sym, ok := a.table.AllocList(li.Name, elem, len(li.Elements)); ok {
		a.declSymbols[li] = sym
	} else {
		a.sink.Errorf(diagnostics.Redeclaration, li.Sp, "%q is already declared in this scope", li.Name)
	}
}

func (a *Analyzer) checkAssignment(asg *ast.Assignment) {
	targetType, assignable := a.checkLvalue(asg.Target)
	valueType := a.checkExpr(asg.Value)
	if !assignable {
		return // specific diagnostic already reported by checkLvalue
	}
	if types.IsError(targetType) || types.IsError(valueType) {
		return
	}
	if a.isOAMTileField(asg.Target) && valueType.Kind() == types.KindSprite {
		return // display.oam[i].tile accepts a Sprite symbol, lowered to its tile index
	}
	if lit, ok := asg.Value.(*ast.Literal); ok && targetType.Kind() == types.KindInt && lit.Value > 65535 {
		a.sink.Errorf(diagnostics.TypeMismatch, lit.Sp, "integer literal %d is out of range for a 16-bit int", lit.Value)
		return
	}
	if !targetType.Equal(valueType) {
		a.sink.Errorf(diagnostics.TypeMismatch, asg.Sp, "cannot assign a value of type %s to a target of type %s", valueType, targetType)
	}
}

// isOAMTileField reports whether target is display.oam[i].tile, the one
// field that also accepts a Sprite symbol (spec.md §6).
func (a *Analyzer) isOAMTileField(target ast.Expr) bool {
	bi, ok := a.builtins[target]
	return ok && bi.Kind == BuiltinOAMField && bi.Field == "tile"
}

// checkLvalue resolves an assignment target, returning its type and whether
// it is assignable at all (a procedure or asset symbol is not).
func (a *Analyzer) checkLvalue(target ast.Expr) (types.Type, bool) {
	switch t := target.(type) {
	case *ast.Name:
		sym, ok := a.table.Current().Lookup(t.Ident)
		if !ok {
			a.sink.Errorf(diagnostics.UnknownName, t.Sp, "undeclared name %q", t.Ident)
			return types.ErrorType, false
		}
		a.symbols[t] = sym
		if sym.Kind == symtable.KindProcedure || sym.Kind == symtable.KindAsset || sym.Kind == symtable.KindReserved {
			a.sink.Errorf(diagnostics.NotAssignable, t.Sp, "%q is not assignable", t.Ident)
			return sym.Type, false
		}
		a.types[t] = sym.Type
		return sym.Type, true
	case *ast.ListAccess:
		return a.checkListAccess(t, true)
	case *ast.AttrAccess:
		return a.checkAttrAccess(t, true)
	default:
		a.sink.Errorf(diagnostics.NotAssignable, target.Span(), "this expression is not assignable")
		a.checkExpr(target)
		return types.ErrorType, false
	}
}

func (a *Analyzer) checkIf(s *ast.If) {
	condType := a.checkExpr(s.Cond)
	a.requireInt(condType, s.Cond.Span())
	a.checkStmt(s.Then)
	if s.Else != nil {
		a.checkStmt(s.Else)
	}
}

func (a *Analyzer) checkLoop(s *ast.Loop) {
	condType := a.checkExpr(s.Cond)
	a.requireInt(condType, s.Cond.Span())
	a.checkStmt(s.Body)
}

func (a *Analyzer) requireInt(t types.Type, sp diagnostics.Span) {
	if types.IsError(t) {
		return
	}
	if t.Kind() != types.KindInt {
		a.sink.Errorf(diagnostics.TypeMismatch, sp, "condition must be int, got %s", t)
	}
}

func (a *Analyzer) checkProcDecl(p *ast.ProcDecl) {
	sym, ok := a.table.Root().Lookup(p.Name)
	if !ok {
		return // collection already reported this
	}
	sig, ok := sym.Type.(*types.Procedure)
	if !ok {
		return
	}
	a.table.PushScope()
	prevRet, prevVoid, prevIn := a.currentReturn, a.returnVoid, a.inProcedureBody
	a.currentReturn, a.returnVoid, a.inProcedureBody = sig.Return, sig.Return == nil, true

	for i, param := range p.Params {
		t, ok := typeFromName(param.TypeName)
		if !ok {
			t = types.ErrorType
		}
		if i < len(sig.Params) {
			t = sig.Params[i]
		}
		psym, _ := a.table.AllocParam(param.Name, t)
		if a.paramSymbols[p.Name] == nil {
			a.paramSymbols[p.Name] = make(map[string]*symtable.Symbol)
		}
		a.paramSymbols[p.Name][param.Name] = psym
	}
	for _, st := range p.Body.Statements {
		a.checkStmt(st)
	}

	a.currentReturn, a.returnVoid, a.inProcedureBody = prevRet, prevVoid, prevIn
	a.table.PopScope()
}

func (a *Analyzer) checkReturn(r *ast.Return) {
	if !a.inProcedureBody {
		a.sink.Errorf(diagnostics.ReturnOutsideProc, r.Sp, "return outside of a procedure body")
		if r.Value != nil {
			a.checkExpr(r.Value)
		}
		return
	}
	if r.Value == nil {
		if !a.returnVoid {
			a.sink.Errorf(diagnostics.ReturnTypeMismatch, r.Sp, "missing return value; declared return type is %s", a.currentReturn)
		}
		return
	}
	valType := a.checkExpr(r.Value)
	if a.returnVoid {
		a.sink.Errorf(diagnostics.ReturnTypeMismatch, r.Sp, "procedure has no declared return type but returns a value")
		return
	}
	if types.IsError(valType) || types.IsError(a.currentReturn) {
		return
	}
	if !a.currentReturn.Equal(valType) {
		a.sink.Errorf(diagnostics.ReturnTypeMismatch, r.Sp, "cannot return %s from a procedure declared to return %s", valType, a.currentReturn)
	}
}

// ----- Expressions -----

func (a *Analyzer) checkExpr(expr ast.Expr) types.Type {
	var t types.Type
	switch e := expr.(type) {
	case *ast.Literal:
		t = types.Int
	case *ast.StringLiteral:
		t = types.ErrorType // a bare string is only meaningful as an asset initializer; any other use is a type error at the use site
		a.sink.Errorf(diagnostics.TypeMismatch, e.Sp, "a string literal may only initialize a sprite, tileset, or tilemap")
	case *ast.Name:
		t = a.checkName(e)
	case *ast.ListAccess:
		t, _ = a.checkListAccess(e, false)
	case *ast.AttrAccess:
		t, _ = a.checkAttrAccess(e, false)
	case *ast.ProcCall:
		t = a.checkProcCall(e)
	case *ast.Unary:
		t = a.checkUnary(e)
	case *ast.Binary:
		t = a.checkBinary(e)
	case *ast.Paren:
		t = a.checkExpr(e.X)
	default:
		panic(fmt.Sprintf("ice: sema: unhandled expression %T", expr))
	}
	a.types[expr] = t
	return t
}

func (a *Analyzer) checkName(n *ast.Name) types.Type {
	if isReservedRoot(n.Ident) {
		a.sink.Errorf(diagnostics.NotAssignable, n.Sp, "%q is a namespace, not a value", n.Ident)
		return types.ErrorType
	}
	sym, ok := a.table.Current().Lookup(n.Ident)
	if !ok {
		a.sink.Errorf(diagnostics.UnknownName, n.Sp, "undeclared name %q", n.Ident)
		return types.ErrorType
	}
	if sym.Kind == symtable.KindProcedure {
		a.sink.Errorf(diagnostics.NotAssignable, n.Sp, "%q is a procedure; call it instead of using it as a value", n.Ident)
		return types.ErrorType
	}
	a.symbols[n] = sym
	return sym.Type
}

// checkListAccess resolves base[i1][i2]... Builtin display.oam[i] is
// special-cased: oam is not itself a user List<T> symbol, so the
// resolution for its base short-circuits before any symbol lookup.
func (a *Analyzer) checkListAccess(la *ast.ListAccess, wantAssignable bool) (types.Type, bool) {
	if attr, ok := la.Base.(*ast.AttrAccess); ok {
		if root, ok := attr.Base.(*ast.Name); ok && root.Ident == "display" {
			switch attr.Attr {
			case "oam":
				a.checkOAMIndex(la)
				a.sink.Errorf(diagnostics.TypeMismatch, la.Sp, "display.oam[i] must be followed by a field: .x, .y, .tile, or .attr")
				return types.ErrorType, true
			case "tilemap0":
				return a.checkTilemapCell(la), true
			}
		}
	}
	baseType := a.checkExpr(la.Base)
	for _, ix := range la.Indices {
		ixType := a.checkExpr(ix)
		a.requireInt(ixType, ix.Span())
	}
	if types.IsError(baseType) {
		return types.ErrorType, true
	}
	list, ok := baseType.(*types.List)
	if !ok {
		a.sink.Errorf(diagnostics.TypeMismatch, la.Sp, "cannot index a value of type %s", baseType)
		return types.ErrorType, true
	}
	result := list.Elem
	for range la.Indices[1:] {
		inner, ok := result.(*types.List)
		if !ok {
			a.sink.Errorf(diagnostics.TypeMismatch, la.Sp, "too many index dimensions for %s", baseType)
			return types.ErrorType, true
		}
		result = inner.Elem
	}
	return result, true
}

// checkOAMIndex validates the slot-index expression of display.oam[i]. It
// never returns a type of its own: the only legal use of oam[i] is as the
// base of a .field AttrAccess, which checkAttrAccess handles directly.
func (a *Analyzer) checkOAMIndex(la *ast.ListAccess) {
	if len(la.Indices) != 1 {
		a.sink.Errorf(diagnostics.TypeMismatch, la.Sp, "display.oam is indexed by exactly one slot number")
		return
	}
	ixType := a.checkExpr(la.Indices[0])
	a.requireInt(ixType, la.Indices[0].Span())
	if lit, ok := la.Indices[0].(*ast.Literal); ok && lit.Value >= 40 {
		a.sink.Errorf(diagnostics.TypeMismatch, lit.Sp, "display.oam slot index must be 0-39, got %d", lit.Value)
	}
}

// checkTilemapCell validates display.tilemap0[x][y]: exactly two Int
// indices, column then row, each within the 32x32 background map (spec.md
// §6, §8 scenario 4's field-offset table extended to the 2D tilemap).
func (a *Analyzer) checkTilemapCell(la *ast.ListAccess) types.Type {
	if len(la.Indices) != 2 {
		a.sink.Errorf(diagnostics.TypeMismatch, la.Sp, "display.tilemap0 is indexed by exactly two coordinates: [x][y]")
		for _, ix := range la.Indices {
			a.checkExpr(ix)
		}
		return types.ErrorType
	}
	x, y := la.Indices[0], la.Indices[1]
	a.requireInt(a.checkExpr(x), x.Span())
	a.requireInt(a.checkExpr(y), y.Span())
	for _, ix := range la.Indices {
		if lit, ok := ix.(*ast.Literal); ok && lit.Value >= 32 {
			a.sink.Errorf(diagnostics.TypeMismatch, lit.Sp, "display.tilemap0 coordinate must be 0-31, got %d", lit.Value)
		}
	}
	a.builtins[la] = &BuiltinAccess{Kind: BuiltinTilemapCell, X: x, Y: y}
	return types.Int
}

func (a *Analyzer) checkAttrAccess(aa *ast.AttrAccess, wantAssignable bool) (types.Type, bool) {
	// display.oam[i].field
	if la, ok := aa.Base.(*ast.ListAccess); ok {
		if attr, ok := la.Base.(*ast.AttrAccess); ok {
			if root, ok := attr.Base.(*ast.Name); ok && root.Ident == "display" && attr.Attr == "oam" {
				a.checkOAMIndex(la)
				ft, ok := oamFields[aa.Attr]
				if !ok {
					a.sink.Errorf(diagnostics.UnknownName, aa.Sp, "display.oam has no field %q", aa.Attr)
					return types.ErrorType, true
				}
				a.builtins[aa] = &BuiltinAccess{Kind: BuiltinOAMField, Field: aa.Attr, Index: la.Indices[0]}
				return ft, true
			}
		}
	}
	root, ok := aa.Base.(*ast.Name)
	if !ok {
		// A chained attribute on a non-builtin base has no meaning in this
		// language (no user-defined records); report and recover.
		a.checkExpr(aa.Base)
		a.sink.Errorf(diagnostics.UnknownName, aa.Sp, "unknown attribute %q", aa.Attr)
		return types.ErrorType, true
	}
	switch root.Ident {
	case "display":
		switch aa.Attr {
		case "tileset0":
			a.builtins[aa] = &BuiltinAccess{Kind: BuiltinTileset0}
			return types.Tileset, true
		case "tilemap0":
			a.builtins[aa] = &BuiltinAccess{Kind: BuiltinTilemap0}
			return types.Tilemap, true
		case "oam":
			a.sink.Errorf(diagnostics.TypeMismatch, aa.Sp, "display.oam must be indexed: display.oam[i].field")
			return types.ErrorType, true
		}
		a.sink.Errorf(diagnostics.UnknownName, aa.Sp, "display has no member %q", aa.Attr)
		return types.ErrorType, true
	case "input":
		if !inputFlags[aa.Attr] {
			a.sink.Errorf(diagnostics.UnknownName, aa.Sp, "input has no member %q", aa.Attr)
			return types.ErrorType, true
		}
		if wantAssignable {
			a.sink.Errorf(diagnostics.NotAssignable, aa.Sp, "input.%s is read-only", aa.Attr)
			return types.Int, false
		}
		a.builtins[aa] = &BuiltinAccess{Kind: BuiltinInputFlag, Field: aa.Attr}
		return types.Int, true
	case "control":
		if !controlCalls[aa.Attr] {
			a.sink.Errorf(diagnostics.UnknownName, aa.Sp, "control has no member %q", aa.Attr)
			return types.ErrorType, true
		}
		a.sink.Errorf(diagnostics.NotAssignable, aa.Sp, "control.%s is a procedure; call it with ()", aa.Attr)
		return types.ErrorType, true
	default:
		// Not a reserved root: only reserved roots carry attributes in
		// this language.
		baseType := a.checkExpr(aa.Base)
		if !types.IsError(baseType) {
			a.sink.Errorf(diagnostics.UnknownName, aa.Sp, "%s has no attribute %q", baseType, aa.Attr)
		}
		return types.ErrorType, true
	}
}

func (a *Analyzer) checkProcCall(call *ast.ProcCall) types.Type {
	if bi, ok := a.resolveBuiltinCall(call); ok {
		return bi
	}
	sym, ok := a.table.Current().Lookup(call.Name)
	if !ok {
		a.sink.Errorf(diagnostics.UnknownName, call.Sp, "undeclared procedure %q", call.Name)
		for _, arg := range call.Args {
			a.checkExpr(arg)
		}
		return types.ErrorType
	}
	sig, ok := sym.Type.(*types.Procedure)
	if !ok {
		a.sink.Errorf(diagnostics.NotAssignable, call.Sp, "%q is not callable", call.Name)
		for _, arg := range call.Args {
			a.checkExpr(arg)
		}
		return types.ErrorType
	}
	a.symbols[call] = sym
	if len(call.Args) != len(sig.Params) {
		a.sink.Errorf(diagnostics.ArityMismatch, call.Sp, "%q expects %d argument(s), got %d", call.Name, len(sig.Params), len(call.Args))
	}
	for i, arg := range call.Args {
		argType := a.checkExpr(arg)
		if i >= len(sig.Params) || types.IsError(argType) {
			continue
		}
		if !sig.Params[i].Equal(argType) {
			a.sink.Errorf(diagnostics.TypeMismatch, arg.Span(), "argument %d of %q: expected %s, got %s", i+1, call.Name, sig.Params[i], argType)
		}
	}
	if sig.Return != nil {
		return sig.Return
	}
	return types.Unit
}

// resolveBuiltinCall handles control.LCDon() and friends: call.Name already
// carries the flattened "control.LCDon" path from the parser.
func (a *Analyzer) resolveBuiltinCall(call *ast.ProcCall) (types.Type, bool) {
	const prefix = "control."
	if len(call.Name) <= len(prefix) || call.Name[:len(prefix)] != prefix {
		return nil, false
	}
	member := call.Name[len(prefix):]
	if !controlCalls[member] {
		a.sink.Errorf(diagnostics.UnknownName, call.Sp, "control has no procedure %q", member)
		return types.ErrorType, true
	}
	if len(call.Args) != 0 {
		a.sink.Errorf(diagnostics.ArityMismatch, call.Sp, "control.%s expects 0 arguments, got %d", member, len(call.Args))
	}
	for _, arg := range call.Args {
		a.checkExpr(arg)
	}
	a.builtins[call] = &BuiltinAccess{Kind: BuiltinControlCall, Field: member}
	return types.Unit, true
}

func (a *Analyzer) checkUnary(u *ast.Unary) types.Type {
	xt := a.checkExpr(u.X)
	if types.IsError(xt) {
		return types.ErrorType
	}
	if xt.Kind() != types.KindInt {
		a.sink.Errorf(diagnostics.TypeMismatch, u.Sp, "operator %s requires int, got %s", u.Op, xt)
		return types.ErrorType
	}
	return types.Int
}

func (a *Analyzer) checkBinary(b *ast.Binary) types.Type {
	lt := a.checkExpr(b.Left)
	rt := a.checkExpr(b.Right)
	if types.IsError(lt) || types.IsError(rt) {
		return types.ErrorType
	}
	if lt.Kind() != types.KindInt || rt.Kind() != types.KindInt {
		a.sink.Errorf(diagnostics.TypeMismatch, b.Sp, "operator %s requires int operands, got %s and %s", b.Op, lt, rt)
		return types.ErrorType
	}
	return types.Int
}
