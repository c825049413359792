// Package compiler drives the whole penguin pipeline: lex, parse,
// analyze, lower, resolve assets, generate. Grounded on the teacher's
// pkg/compiler/compile.go Compile function (Preprocess -> Lex -> Parse ->
// Generate -> Assemble chain with early-return on error), generalized to
// halt strictly between phases (spec.md §7) rather than on the first
// internal error, since this compiler accumulates diagnostics instead of
// stopping at the first one within a phase.
package compiler

import (
	"path/filepath"

	"penguin/pkg/assets"
	"penguin/pkg/codegen"
	"penguin/pkg/diagnostics"
	"penguin/pkg/ir"
	"penguin/pkg/lexer"
	"penguin/pkg/parser"
	"penguin/pkg/sema"
)

// Result is the outcome of compiling one source file.
type Result struct {
	Assembly    string
	Diagnostics []diagnostics.Diagnostic
}

// Compile runs every phase against src, whose file lives at path (used to
// resolve asset paths relative to the source directory). It halts at the
// first phase boundary where the sink holds an Error-severity diagnostic;
// Result.Assembly is empty in that case. A panic inside any phase (an
// internal invariant violation) and a program that needs more WRAM than
// $C000-$DFFF provides are both reported as ice diagnostics.
func Compile(src []byte, path string) (res Result) {
	sink := diagnostics.NewSink()
	defer func() {
		if r := recover(); r != nil {
			sink.Errorf(diagnostics.ICE, diagnostics.Span{}, "internal compiler error: %v", r)
			res = Result{Diagnostics: sink.All()}
		}
	}()

	tokens := lexer.Lex(src, sink)
	if sink.HasErrors() {
		return Result{Diagnostics: sink.All()}
	}

	astProg := parser.Parse(tokens, src, sink)
	if sink.HasErrors() {
		return Result{Diagnostics: sink.All()}
	}

	result := sema.Analyze(astProg, sink)
	if sink.HasErrors() {
		return Result{Diagnostics: sink.All()}
	}

	assetInfos := assets.Resolve(result.Assets, filepath.Dir(path), sink)
	if sink.HasErrors() {
		return Result{Diagnostics: sink.All()}
	}

	prog := ir.Lower(result)

	asm := codegen.Generate(prog, result.Table, assetInfos)
	if result.Table.WRAMExhausted() {
		sink.Errorf(diagnostics.ICE, diagnostics.Span{}, "program needs more WRAM than $C000-$DFFF provides")
		return Result{Diagnostics: sink.All()}
	}

	return Result{Assembly: asm, Diagnostics: sink.All()}
}
