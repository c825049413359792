// Package ast defines the penguin abstract syntax tree: a closed family of
// statement and expression variants, each carrying its source Span. Nodes
// are created by the parser and never mutated afterward.
package ast

import (
	"fmt"
	"strings"

	"penguin/pkg/diagnostics"
	"penguin/pkg/token"
)

// Program is the root node: an ordered sequence of top-level statements.
type Program struct {
	Statements []Stmt
}

// Expr is implemented by every node that produces a value.
type Expr interface {
	exprNode()
	Span() diagnostics.Span
	String() string
}

// Stmt is implemented by every node that does not itself produce a value.
type Stmt interface {
	stmtNode()
	Span() diagnostics.Span
	String() string
}

//  Expressions

// Literal is a compile-time integer constant, written decimal, 0x, or 0b.
// Value is parsed as a 64-bit magnitude specifically so values that overflow
// uint16 (or even uint32) still parse cleanly and become a type-mismatch
// diagnostic in sema rather than a parse-time panic.
type Literal struct {
	Value uint64
	Sp    diagnostics.Span
}

func (*Literal) exprNode()                  {}
func (l *Literal) Span() diagnostics.Span   { return l.Sp }
func (l *Literal) String() string           { return fmt.Sprintf("%d", l.Value) }

// StringLiteral is a "..." literal; it appears only as an asset path.
type StringLiteral struct {
	Value string
	Sp    diagnostics.Span
}

func (*StringLiteral) exprNode() {}
func (s *StringLiteral) Span() diagnostics.Span { return s.Sp }
func (s *StringLiteral) String() string         { return fmt.Sprintf("%q", s.Value) }

// Name is a reference to a plain identifier (variable, procedure, list, or
// asset). `input.Right`-style references are AttrAccess, not Name.
type Name struct {
	Ident string
	Sp    diagnostics.Span
}

func (*Name) exprNode()                  {}
func (n *Name) Span() diagnostics.Span   { return n.Sp }
func (n *Name) String() string           { return n.Ident }

// ListAccess is base[i][j]... — one or more chained index operations on a
// base expression. Base is usually a Name (a user-declared list) but is an
// AttrAccess for builtin-namespace lists such as display.oam.
type ListAccess struct {
	Base    Expr
	Indices []Expr
	Sp      diagnostics.Span
}

func (*ListAccess) exprNode() {}
func (l *ListAccess) Span() diagnostics.Span { return l.Sp }
func (l *ListAccess) String() string {
	var sb strings.Builder
	sb.WriteString(l.Base.String())
	for _, ix := range l.Indices {
		fmt.Fprintf(&sb, "[%s]", ix)
	}
	return sb.String()
}

// AttrAccess is root.attr, e.g. display.tileset0, input.Right, or a chained
// member such as display.oam[i].x (Base is a ListAccess in that case).
type AttrAccess struct {
	Base Expr
	Attr string
	Sp   diagnostics.Span
}

func (*AttrAccess) exprNode() {}
func (a *AttrAccess) Span() diagnostics.Span { return a.Sp }
func (a *AttrAccess) String() string         { return fmt.Sprintf("%s.%s", a.Base, a.Attr) }

// ProcCall is name(args).
type ProcCall struct {
	Name string
	Args []Expr
	Sp   diagnostics.Span
}

func (*ProcCall) exprNode() {}
func (c *ProcCall) Span() diagnostics.Span { return c.Sp }
func (c *ProcCall) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// Unary is a prefix operator: ~, not, unary +, unary -.
type Unary struct {
	Op   token.Type
	X    Expr
	Sp   diagnostics.Span
}

func (*Unary) exprNode() {}
func (u *Unary) Span() diagnostics.Span { return u.Sp }
func (u *Unary) String() string         { return fmt.Sprintf("(%s %s)", u.Op, u.X) }

// Binary is a left-associative infix operator.
type Binary struct {
	Op    token.Type
	Left  Expr
	Right Expr
	Sp    diagnostics.Span
}

func (*Binary) exprNode() {}
func (b *Binary) Span() diagnostics.Span { return b.Sp }
func (b *Binary) String() string         { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

// Paren is a parenthesized expression, kept as its own node so the
// pretty-printer round-trips (§8's parse→print→parse property).
type Paren struct {
	X  Expr
	Sp diagnostics.Span
}

func (*Paren) exprNode() {}
func (p *Paren) Span() diagnostics.Span { return p.Sp }
func (p *Paren) String() string {
	switch p.X.(type) {
	case *Binary, *Unary, *Paren:
		// These already print their own enclosing parentheses.
		return p.X.String()
	}
	return fmt.Sprintf("(%s)", p.X)
}

//  Statements

// Declaration is `T name;` with no initializer.
type Declaration struct {
	TypeName string
	Name     string
	Sp       diagnostics.Span
}

func (*Declaration) stmtNode() {}
func (d *Declaration) Span() diagnostics.Span { return d.Sp }
func (d *Declaration) String() string         { return fmt.Sprintf("%s %s;", d.TypeName, d.Name) }

// Initialization is `T name = expr;`.
type Initialization struct {
	TypeName string
	Name     string
	Init     Expr
	Sp       diagnostics.Span
}

func (*Initialization) stmtNode() {}
func (i *Initialization) Span() diagnostics.Span { return i.Sp }
func (i *Initialization) String() string {
	return fmt.Sprintf("%s %s = %s;", i.TypeName, i.Name, i.Init)
}

// ListInit is `list name = [ expr, ... ];`.
type ListInit struct {
	Name     string
	Elements []Expr
	Sp       diagnostics.Span
}

func (*ListInit) stmtNode() {}
func (l *ListInit) Span() diagnostics.Span { return l.Sp }
func (l *ListInit) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.String()
	}
	return fmt.Sprintf("list %s = [%s];", l.Name, strings.Join(parts, ", "))
}

// Assignment is `lvalue = expr;`.
type Assignment struct {
	Target Expr
	Value  Expr
	Sp     diagnostics.Span
}

func (*Assignment) stmtNode() {}
func (a *Assignment) Span() diagnostics.Span { return a.Sp }
func (a *Assignment) String() string         { return fmt.Sprintf("%s = %s;", a.Target, a.Value) }

// If is `if (cond) { ... } [else { ... }]`.
type If struct {
	Cond Expr
	Then *Block
	Else *Block // nil when absent
	Sp   diagnostics.Span
}

func (*If) stmtNode() {}
func (i *If) Span() diagnostics.Span { return i.Sp }
func (i *If) String() string {
	if i.Else != nil {
		return fmt.Sprintf("if (%s) %s else %s", i.Cond, i.Then, i.Else)
	}
	return fmt.Sprintf("if (%s) %s", i.Cond, i.Then)
}

// Loop is `loop (cond) { ... }`.
type Loop struct {
	Cond Expr
	Body *Block
	Sp   diagnostics.Span
}

func (*Loop) stmtNode() {}
func (l *Loop) Span() diagnostics.Span { return l.Sp }
func (l *Loop) String() string         { return fmt.Sprintf("loop (%s) %s", l.Cond, l.Body) }

// Block is a brace-delimited statement sequence; it introduces a new scope.
type Block struct {
	Statements []Stmt
	Sp         diagnostics.Span
}

func (*Block) stmtNode() {}
func (b *Block) Span() diagnostics.Span { return b.Sp }
func (b *Block) String() string         { return fmt.Sprintf("{ %d stmts }", len(b.Statements)) }

// Param is one parameter of a ProcDecl.
type Param struct {
	TypeName string
	Name     string
}

// ProcDecl is `procedure [T] name ( [T p, ...] ) { ... }`.
type ProcDecl struct {
	ReturnType string // "" when the procedure declares no return type
	Name       string
	Params     []Param
	Body       *Block
	Sp         diagnostics.Span
}

func (*ProcDecl) stmtNode() {}
func (p *ProcDecl) Span() diagnostics.Span { return p.Sp }
func (p *ProcDecl) String() string {
	parts := make([]string, len(p.Params))
	for i, pr := range p.Params {
		parts[i] = fmt.Sprintf("%s %s", pr.TypeName, pr.Name)
	}
	ret := p.ReturnType
	if ret == "" {
		ret = "void"
	}
	return fmt.Sprintf("procedure %s %s(%s) %s", ret, p.Name, strings.Join(parts, ", "), p.Body)
}

// Return is `return expr;` or a bare `return;`.
type Return struct {
	Value Expr // nil for a bare return
	Sp    diagnostics.Span
}

func (*Return) stmtNode() {}
func (r *Return) Span() diagnostics.Span { return r.Sp }
func (r *Return) String() string {
	if r.Value == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", r.Value)
}

// ProcCallStmt is a procedure call used as a statement: `call;`.
type ProcCallStmt struct {
	Call *ProcCall
	Sp   diagnostics.Span
}

func (*ProcCallStmt) stmtNode() {}
func (c *ProcCallStmt) Span() diagnostics.Span { return c.Sp }
func (c *ProcCallStmt) String() string         { return fmt.Sprintf("%s;", c.Call) }
