// Package diagnostics defines the penguin compiler's diagnostic types and
// the accumulating sink threaded through every compilation phase.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies how a Diagnostic should affect compilation.
type Severity int

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Kind identifies the category of a Diagnostic, per spec.md §7.
type Kind string

const (
	LexError           Kind = "lex-error"
	ParseError         Kind = "parse-error"
	Redeclaration      Kind = "redeclaration"
	UnknownName        Kind = "unknown-name"
	TypeMismatch       Kind = "type-mismatch"
	ArityMismatch      Kind = "arity-mismatch"
	NotAssignable      Kind = "not-assignable"
	ReturnOutsideProc  Kind = "return-outside-procedure"
	ReturnTypeMismatch Kind = "return-type-mismatch"
	AssetNotFound      Kind = "asset-not-found"
	ICE                Kind = "ice"
)

// Span is a byte-offset and line/column range in a single source file.
type Span struct {
	StartLine, StartCol int
	EndLine, EndCol      int
	StartOffset, EndOffset int
}

func (s Span) String() string {
	if s.StartLine == s.EndLine {
		return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
	}
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// Diagnostic is one accumulated compiler message.
type Diagnostic struct {
	Severity  Severity
	Kind      Kind
	Message   string
	Primary   Span
	Secondary *Span // optional
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s] %s at %s", d.Severity, d.Kind, d.Message, d.Primary)
	if d.Secondary != nil {
		fmt.Fprintf(&sb, " (see also %s)", d.Secondary)
	}
	return sb.String()
}

// Sink is an append-only, single-writer accumulator shared across phases.
// It is never read until the driver flushes it at a phase boundary.
type Sink struct {
	diags []Diagnostic
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Add appends a Diagnostic of the given severity.
func (s *Sink) Add(sev Severity, kind Kind, primary Span, format string, args ...any) {
	s.diags = append(s.diags, Diagnostic{
		Severity: sev,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Primary:  primary,
	})
}

// AddWithSecondary appends a Diagnostic carrying a secondary span (e.g. the
// original declaration site of a redeclared name).
func (s *Sink) AddWithSecondary(sev Severity, kind Kind, primary, secondary Span, format string, args ...any) {
	d := Diagnostic{
		Severity:  sev,
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Primary:   primary,
		Secondary: &secondary,
	}
	s.diags = append(s.diags, d)
}

// Errorf is shorthand for Add(Error, ...).
func (s *Sink) Errorf(kind Kind, primary Span, format string, args ...any) {
	s.Add(Error, kind, primary, format, args...)
}

// All returns every accumulated diagnostic in insertion order.
func (s *Sink) All() []Diagnostic {
	return s.diags
}

// HasErrors reports whether any accumulated diagnostic has Error severity.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Format renders every diagnostic, one per line, sorted by source position
// so output is stable regardless of the order phases happened to add them.
func (s *Sink) Format() string {
	sorted := make([]Diagnostic, len(s.diags))
	copy(sorted, s.diags)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Primary, sorted[j].Primary
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})
	parts := make([]string, len(sorted))
	for i, d := range sorted {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}
