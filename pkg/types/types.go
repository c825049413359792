// Package types defines penguin's closed type universe (spec.md §3).
package types

import "fmt"

// Kind enumerates the closed set of type constructors.
type Kind int

const (
	KindInt Kind = iota
	KindSprite
	KindTileset
	KindTilemap
	KindList
	KindProcedure
	KindUnit  // statement positions have no value
	KindError // post-error continuation; suppresses cascade diagnostics
)

// Type is implemented by every member of the type universe.
type Type interface {
	Kind() Kind
	String() string
	Equal(Type) bool
}

type intType struct{}

func (intType) Kind() Kind        { return KindInt }
func (intType) String() string    { return "int" }
func (intType) Equal(o Type) bool { _, ok := o.(intType); return ok }

// Int is the sole scalar type: 16-bit, arithmetic wraps modulo 2^16.
var Int Type = intType{}

type spriteType struct{}

func (spriteType) Kind() Kind        { return KindSprite }
func (spriteType) String() string    { return "sprite" }
func (spriteType) Equal(o Type) bool { _, ok := o.(spriteType); return ok }

// Sprite is initialized only from a string literal naming an asset file.
var Sprite Type = spriteType{}

type tilesetType struct{}

func (tilesetType) Kind() Kind        { return KindTileset }
func (tilesetType) String() string    { return "tileset" }
func (tilesetType) Equal(o Type) bool { _, ok := o.(tilesetType); return ok }

var Tileset Type = tilesetType{}

type tilemapType struct{}

func (tilemapType) Kind() Kind        { return KindTilemap }
func (tilemapType) String() string    { return "tilemap" }
func (tilemapType) Equal(o Type) bool { _, ok := o.(tilemapType); return ok }

var Tilemap Type = tilemapType{}

// List is List<Elem>.
type List struct {
	Elem Type
}

func (*List) Kind() Kind     { return KindList }
func (l *List) String() string { return fmt.Sprintf("list<%s>", l.Elem) }
func (l *List) Equal(o Type) bool {
	ol, ok := o.(*List)
	return ok && l.Elem.Equal(ol.Elem)
}

// Procedure is a callable signature: parameter types plus an optional
// return type (nil return means the procedure was declared without one).
type Procedure struct {
	Params []Type
	Return Type // nil if declared without a return type
}

func (*Procedure) Kind() Kind { return KindProcedure }
func (p *Procedure) String() string {
	ret := "void"
	if p.Return != nil {
		ret = p.Return.String()
	}
	s := "procedure("
	for i, pt := range p.Params {
		if i > 0 {
			s += ", "
		}
		s += pt.String()
	}
	return s + ") " + ret
}
func (p *Procedure) Equal(o Type) bool {
	op, ok := o.(*Procedure)
	if !ok || len(p.Params) != len(op.Params) {
		return false
	}
	for i := range p.Params {
		if !p.Params[i].Equal(op.Params[i]) {
			return false
		}
	}
	if (p.Return == nil) != (op.Return == nil) {
		return false
	}
	if p.Return != nil && !p.Return.Equal(op.Return) {
		return false
	}
	return true
}

type unitType struct{}

func (unitType) Kind() Kind        { return KindUnit }
func (unitType) String() string    { return "unit" }
func (unitType) Equal(o Type) bool { _, ok := o.(unitType); return ok }

// Unit marks a position (a statement) that carries no value.
var Unit Type = unitType{}

type errorType struct{}

func (errorType) Kind() Kind     { return KindError }
func (errorType) String() string { return "<error>" }

// Equal reports true against anything, so a subtree already marked Error
// never produces a second, cascading diagnostic against it.
func (errorType) Equal(Type) bool { return true }

// ErrorType marks a subtree that already failed to type-check.
var ErrorType Type = errorType{}

// IsError reports whether t is the error-continuation type.
func IsError(t Type) bool {
	_, ok := t.(errorType)
	return ok
}
