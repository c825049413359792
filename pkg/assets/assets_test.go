package assets

import (
	"os"
	"path/filepath"
	"testing"

	"penguin/pkg/diagnostics"
	"penguin/pkg/symtable"
	"penguin/pkg/types"
)

func TestResolve_ExistingFileRelativeToSourceDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hero.2bpp"), []byte{0x00, 0xFF}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	sym := &symtable.Symbol{
		Name: "hero", Kind: symtable.KindAsset, Type: types.Sprite,
		Label: "asset_hero", AssetPath: "hero.2bpp",
	}
	sink := diagnostics.NewSink()

	infos := Resolve([]*symtable.Symbol{sym}, dir, sink)

	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", sink.Format())
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 resolved asset, got %d", len(infos))
	}
	if infos[0].Label != "asset_hero" {
		t.Errorf("Label = %q, want asset_hero", infos[0].Label)
	}
	want := filepath.Join(dir, "hero.2bpp")
	if infos[0].Path != want {
		t.Errorf("Path = %q, want %q", infos[0].Path, want)
	}
}

func TestResolve_MissingFileReportsAssetNotFound(t *testing.T) {
	dir := t.TempDir()
	sym := &symtable.Symbol{
		Name: "hero", Kind: symtable.KindAsset, Type: types.Sprite,
		Label: "asset_hero", AssetPath: "missing.2bpp",
	}
	sink := diagnostics.NewSink()

	infos := Resolve([]*symtable.Symbol{sym}, dir, sink)

	if len(infos) != 0 {
		t.Fatalf("expected no resolved assets, got %d", len(infos))
	}
	if !sink.HasErrors() {
		t.Fatalf("expected an asset-not-found diagnostic")
	}
	found := false
	for _, d := range sink.All() {
		if d.Kind == diagnostics.AssetNotFound {
			found = true
		}
	}
	if !found {
		t.Errorf("expected diagnostics.AssetNotFound kind, got %s", sink.Format())
	}
}

func TestResolve_AbsolutePathUsedAsIs(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "tiles.2bpp")
	if err := os.WriteFile(abs, []byte{0x01}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	sym := &symtable.Symbol{
		Name: "tiles", Kind: symtable.KindAsset, Type: types.Tileset,
		Label: "asset_tiles", AssetPath: abs,
	}
	sink := diagnostics.NewSink()

	infos := Resolve([]*symtable.Symbol{sym}, "/some/unrelated/dir", sink)

	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", sink.Format())
	}
	if len(infos) != 1 || infos[0].Path != abs {
		t.Fatalf("expected resolved path %q, got %+v", abs, infos)
	}
}
