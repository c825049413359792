package sema

import (
	"penguin/pkg/ast"
	"penguin/pkg/types"
)

// BuiltinKind classifies a resolved access into the display/input/
// control namespace (spec.md §6) so IR lowering can pick the right Load/
// Store/Call shape without re-walking the builtin table itself.
type BuiltinKind int

const (
	BuiltinTileset0     BuiltinKind = iota // display.tileset0 (whole-asset bind)
	BuiltinTilemap0                        // display.tilemap0 (whole-asset bind)
	BuiltinTilemapCell                     // display.tilemap0[x][y]
	BuiltinOAMField                        // display.oam[i].{x,y,tile,attr}
	BuiltinInputFlag                       // input.{Right,...}
	BuiltinControlCall                     // control.{LCDon,...}()
)

// BuiltinAccess is the resolved descriptor attached to every AST node that
// reaches into the display/input/control namespace. IR lowering reads this
// instead of re-deriving it from the AST shape.
type BuiltinAccess struct {
	Kind  BuiltinKind
	Field string   // member name: oam field, input flag, or control procedure
	Index ast.Expr // oam slot index expression, set for BuiltinOAMField

	X, Y ast.Expr // column/row index expressions, set only for BuiltinTilemapCell
}

// inputFlags is the fixed set of input.* members; all are
// read-only Int.
var inputFlags = map[string]bool{
	"Right": true, "Left": true, "Up": true, "Down": true,
	"A": true, "B": true, "Start": true, "Select": true,
}

// controlCalls is the fixed set of control.*() members; all are Unit,
// zero-argument, and callable only (never read as a value).
var controlCalls = map[string]bool{
	"LCDon": true, "LCDoff": true, "waitVBlank": true, "updateInput": true,
}

// oamFields is the fixed set of display.oam[i].field members and their
// type. tile, x, and y are documented assignable in spec.md §6; attr is
// carried for completeness (the field-offset table in §8 scenario 4 lists
// it alongside y/x/tile) and is likewise assignable Int.
var oamFields = map[string]types.Type{
	"y": types.Int, "x": types.Int, "tile": types.Int, "attr": types.Int,
}
