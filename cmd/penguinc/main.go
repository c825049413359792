// Command penguinc compiles a penguin source file to SM83 assembly.
// Grounded on the teacher's root main.go (flag.String, explicit os.Exit
// codes per outcome) and cmd/ccompiler/main.go (phase-by-phase stderr
// reporting), re-targeted to the single-pipeline Compile driver and the
// exit-code contract of spec.md §6: 0 success, 1 user-visible compile
// error, 2 invocation error, 70 internal compiler error.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"penguin/pkg/compiler"
	"penguin/pkg/diagnostics"
)

func main() {
	outPath := flag.String("o", "", "output assembly path (default: input basename with .asm extension)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: penguinc [-o PATH] <input.penguin>")
		os.Exit(2)
	}
	inPath := flag.Arg(0)

	src, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "penguinc: %v\n", err)
		os.Exit(2)
	}

	os.Exit(run(src, inPath, *outPath))
}

func run(src []byte, inPath, outPath string) int {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "penguinc: internal compiler error: %v\n", r)
			os.Exit(70)
		}
	}()

	result := compiler.Compile(src, inPath)

	for _, d := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, d.String())
	}

	hasError := false
	hasICE := false
	for _, d := range result.Diagnostics {
		if d.Severity == diagnostics.Error {
			hasError = true
			if d.Kind == diagnostics.ICE {
				hasICE = true
			}
		}
	}
	if hasICE {
		return 70
	}
	if hasError {
		return 1
	}

	if outPath == "" {
		outPath = defaultOutputPath(inPath)
	}
	if err := os.WriteFile(outPath, []byte(result.Assembly), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "penguinc: failed to write %q: %v\n", outPath, err)
		return 1
	}
	fmt.Printf("wrote %s\n", outPath)
	return 0
}

func defaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	base := strings.TrimSuffix(inPath, ext)
	return base + ".asm"
}
