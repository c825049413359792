// Package gbtile decodes the Game Boy's 2bpp planar tile format into
// *image.RGBA for the asset previewer (spec.md: "a tile-based-game DSL
// plausibly ships a developer-facing asset previewer"). Grounded on the
// teacher's pkg/cpu/video.go GetFramebufferRGBA/GetFramebufferImage
// technique — iterate a fixed-size byte bank, expand each unit into an
// RGBA pixel — re-expressed for 2bpp planar tiles instead of RGB565 banks.
package gbtile

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// TileSize is the byte footprint of one 8x8 2bpp tile: 8 rows, 2 bytes
// (a low and a high bit-plane) per row.
const TileSize = 16

// TileDim is a tile's width and height in pixels.
const TileDim = 8

// Palette is the classic DMG four-shade monochrome-green ramp, indexed by
// the 2-bit color id each pixel decodes to (0 = lightest, 3 = darkest).
var Palette = [4][4]byte{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

// DecodeTile decodes one 16-byte 2bpp tile into an 8x8 *image.RGBA.
func DecodeTile(data []byte) (*image.RGBA, error) {
	if len(data) < TileSize {
		return nil, fmt.Errorf("gbtile: tile data is %d bytes, want at least %d", len(data), TileSize)
	}
	img := image.NewRGBA(image.Rect(0, 0, TileDim, TileDim))
	for row := 0; row < TileDim; row++ {
		lo := data[row*2]
		hi := data[row*2+1]
		for col := 0; col < TileDim; col++ {
			bit := uint(7 - col)
			colorIdx := ((hi>>bit)&1)<<1 | (lo>>bit)&1
			c := Palette[colorIdx]
			off := img.PixOffset(col, row)
			copy(img.Pix[off:off+4], c[:])
		}
	}
	return img, nil
}

// DecodeSheet decodes a contiguous run of 2bpp tiles, wrapping every
// tilesPerRow tiles onto a new row, into one *image.RGBA — the shape
// Tileset assets are stored in (spec.md §6 GLOSSARY).
func DecodeSheet(data []byte, tilesPerRow int) (*image.RGBA, error) {
	if tilesPerRow <= 0 {
		return nil, fmt.Errorf("gbtile: tilesPerRow must be positive, got %d", tilesPerRow)
	}
	n := len(data) / TileSize
	if n == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0)), nil
	}
	rows := (n + tilesPerRow - 1) / tilesPerRow
	sheet := image.NewRGBA(image.Rect(0, 0, tilesPerRow*TileDim, rows*TileDim))
	for i := 0; i < n; i++ {
		tile, err := DecodeTile(data[i*TileSize : (i+1)*TileSize])
		if err != nil {
			return nil, err
		}
		tx := (i % tilesPerRow) * TileDim
		ty := (i / tilesPerRow) * TileDim
		dstRect := image.Rect(tx, ty, tx+TileDim, ty+TileDim)
		draw.Draw(sheet, dstRect, tile, image.Point{}, draw.Src)
	}
	return sheet, nil
}

// Upscale returns src scaled up by an integer factor with nearest-neighbor
// sampling, so individual Game Boy pixels stay crisp blocks rather than
// blurring — the previewer always wants this, never smooth interpolation.
func Upscale(src *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
