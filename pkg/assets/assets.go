// Package assets resolves the on-disk files a program's Sprite/Tileset/
// Tilemap symbols name into absolute paths, reporting asset-not-found
// diagnostics for anything missing, and produces the AssetInfo list the
// code generator's INCBIN section is built from (spec.md §4.5 point 5).
// Packaging the binary asset formats themselves is out of scope (spec.md
// §1) — this package only checks that the named file exists and resolves
// its path, the same way the teacher's GetPathInfo resolves include paths.
package assets

import (
	"os"
	"path/filepath"

	"penguin/pkg/codegen"
	"penguin/pkg/diagnostics"
	"penguin/pkg/symtable"
)

// Resolve turns every asset symbol's source-relative path into an absolute
// one rooted at sourceDir (the directory containing the compiled source
// file, matching how the teacher's GetPathInfo resolves relative paths
// against the caller's working directory). Symbols whose file does not
// exist are reported via sink and omitted from the returned list so a
// later phase never emits an INCBIN for a file that isn't there.
func Resolve(syms []*symtable.Symbol, sourceDir string, sink *diagnostics.Sink) []codegen.AssetInfo {
	infos := make([]codegen.AssetInfo, 0, len(syms))
	for _, sym := range syms {
		full := sym.AssetPath
		if !filepath.IsAbs(full) {
			full = filepath.Join(sourceDir, full)
		}
		full = filepath.Clean(full)

		if info, err := os.Stat(full); err != nil || info.IsDir() {
			sink.Errorf(diagnostics.AssetNotFound, sym.DeclSpan,
				"asset file %q for %q not found", sym.AssetPath, sym.Name)
			continue
		}
		infos = append(infos, codegen.AssetInfo{Label: sym.Label, Path: full})
	}
	return infos
}
