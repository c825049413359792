// Command penguin-preview is a developer-facing asset previewer: it
// compiles a penguin source file far enough to resolve every bound
// Sprite/Tileset asset's file, decodes each one's 2bpp pixel data, and
// lets you flip through them in a window. It never assembles, links, or
// emulates the compiled program — spec.md places emulator execution out
// of scope, but a tile-based-game DSL plausibly ships a tool like this one
// for checking art assets without a full ROM run. Tilemap assets hold
// tile indices rather than pixel data, so they have nothing to render
// here and are skipped.
//
// Grounded on the teacher's cmd/desktop/main.go Game struct: an
// ebiten.Game with Update/Draw/Layout and a drawBitmap-style scaled blit.
package main

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"penguin/internal/gbtile"
	"penguin/pkg/assets"
	"penguin/pkg/diagnostics"
	"penguin/pkg/lexer"
	"penguin/pkg/parser"
	"penguin/pkg/sema"
	"penguin/pkg/symtable"
	"penguin/pkg/types"
)

const (
	canvasW, canvasH = 256, 256
	upscaleFactor    = 8
	tilesetRowTiles  = 16
)

// previewAsset is one bound Sprite/Tileset asset, decoded and ready to draw.
type previewAsset struct {
	name string
	img  *ebiten.Image
}

// decodeAsset dispatches on asset kind: a Sprite is a single 8x8 tile, a
// Tileset is a sheet of tiles wrapped every tilesetRowTiles across
// (spec.md GLOSSARY: "a binary blob of 8x8 pixel tiles").
func decodeAsset(data []byte, kind types.Kind) (*image.RGBA, error) {
	switch kind {
	case types.KindSprite:
		return gbtile.DecodeTile(data)
	case types.KindTileset:
		return gbtile.DecodeSheet(data, tilesetRowTiles)
	default:
		return nil, nil
	}
}

func loadAssets(path string) ([]previewAsset, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sink := diagnostics.NewSink()
	tokens := lexer.Lex(src, sink)
	astProg := parser.Parse(tokens, src, sink)
	result := sema.Analyze(astProg, sink)
	if sink.HasErrors() {
		return nil, fmt.Errorf("cannot preview: %s", sink.Format())
	}

	resolved := assets.Resolve(result.Assets, filepath.Dir(path), sink)
	if sink.HasErrors() {
		return nil, fmt.Errorf("cannot preview: %s", sink.Format())
	}

	bySymbolLabel := make(map[string]*symtable.Symbol, len(result.Assets))
	for _, sym := range result.Assets {
		bySymbolLabel[sym.Label] = sym
	}

	var previews []previewAsset
	for _, info := range resolved {
		sym, ok := bySymbolLabel[info.Label]
		if !ok || sym.Type.Kind() == types.KindTilemap {
			continue
		}
		data, err := os.ReadFile(info.Path)
		if err != nil {
			return nil, err
		}
		decoded, err := decodeAsset(data, sym.Type.Kind())
		if err != nil {
			return nil, fmt.Errorf("decoding %q: %w", sym.Name, err)
		}
		if decoded == nil {
			continue
		}

		scaled := gbtile.Upscale(decoded, upscaleFactor)
		img := ebiten.NewImage(scaled.Bounds().Dx(), scaled.Bounds().Dy())
		img.WritePixels(scaled.Pix)
		previews = append(previews, previewAsset{name: sym.Name, img: img})
	}
	return previews, nil
}

type Game struct {
	assets  []previewAsset
	current int
}

func (g *Game) Update() error {
	if len(g.assets) == 0 {
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
		g.current = (g.current + 1) % len(g.assets)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
		g.current = (g.current - 1 + len(g.assets)) % len(g.assets)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if len(g.assets) == 0 {
		ebitenutil.DebugPrintAt(screen, "no previewable assets bound", 8, 8)
		return
	}
	a := g.assets[g.current]
	screen.DrawImage(a.img, &ebiten.DrawImageOptions{})
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s (%d/%d) - arrows to cycle", a.name, g.current+1, len(g.assets)), 8, canvasH-16)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return canvasW, canvasH
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: penguin-preview <input.penguin>")
		os.Exit(2)
	}

	previews, err := loadAssets(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	ebiten.SetWindowSize(canvasW, canvasH)
	ebiten.SetWindowTitle("penguin asset preview")
	if err := ebiten.RunGame(&Game{assets: previews}); err != nil {
		log.Fatal(err)
	}
}
