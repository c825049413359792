package gbtile

import "testing"

// solidTile builds a 16-byte 2bpp tile where every pixel decodes to the
// same color id: id 0-3 packed into both bit-planes.
func solidTile(id byte) []byte {
	lo := id & 1
	hi := (id >> 1) & 1
	var loByte, hiByte byte
	if lo == 1 {
		loByte = 0xFF
	}
	if hi == 1 {
		hiByte = 0xFF
	}
	data := make([]byte, TileSize)
	for row := 0; row < 8; row++ {
		data[row*2] = loByte
		data[row*2+1] = hiByte
	}
	return data
}

func TestDecodeTile_SolidColor(t *testing.T) {
	for id := byte(0); id < 4; id++ {
		img, err := DecodeTile(solidTile(id))
		if err != nil {
			t.Fatalf("DecodeTile(id=%d): %v", id, err)
		}
		if img.Bounds().Dx() != TileDim || img.Bounds().Dy() != TileDim {
			t.Fatalf("expected %dx%d image, got %v", TileDim, TileDim, img.Bounds())
		}
		want := Palette[id]
		got := img.RGBAAt(3, 3)
		if got.R != want[0] || got.G != want[1] || got.B != want[2] || got.A != want[3] {
			t.Errorf("id=%d: pixel = %+v, want %v", id, got, want)
		}
	}
}

func TestDecodeTile_ShortDataErrors(t *testing.T) {
	if _, err := DecodeTile(make([]byte, 4)); err == nil {
		t.Error("expected an error for truncated tile data")
	}
}

func TestDecodeSheet_WrapsTilesPerRow(t *testing.T) {
	data := append(solidTile(0), solidTile(3)...)
	data = append(data, solidTile(1)...)

	sheet, err := DecodeSheet(data, 2)
	if err != nil {
		t.Fatalf("DecodeSheet: %v", err)
	}
	// 3 tiles at 2 per row -> 2 wide, 2 rows tall.
	if sheet.Bounds().Dx() != 2*TileDim || sheet.Bounds().Dy() != 2*TileDim {
		t.Fatalf("unexpected sheet bounds: %v", sheet.Bounds())
	}

	// Tile 0 (id 0) top-left, tile 1 (id 3) top-right, tile 2 (id 1)
	// wraps to the second row's left column.
	if c := sheet.RGBAAt(3, 3); c.R != Palette[0][0] {
		t.Errorf("top-left tile: got R=%d, want %d", c.R, Palette[0][0])
	}
	if c := sheet.RGBAAt(TileDim+3, 3); c.R != Palette[3][0] {
		t.Errorf("top-right tile: got R=%d, want %d", c.R, Palette[3][0])
	}
	if c := sheet.RGBAAt(3, TileDim+3); c.R != Palette[1][0] {
		t.Errorf("second-row tile: got R=%d, want %d", c.R, Palette[1][0])
	}
}

func TestUpscale_ScalesDimensions(t *testing.T) {
	img, err := DecodeTile(solidTile(2))
	if err != nil {
		t.Fatalf("DecodeTile: %v", err)
	}
	scaled := Upscale(img, 4)
	if scaled.Bounds().Dx() != TileDim*4 || scaled.Bounds().Dy() != TileDim*4 {
		t.Fatalf("unexpected scaled bounds: %v", scaled.Bounds())
	}
}

func TestUpscale_FactorOneReturnsSameImage(t *testing.T) {
	img, _ := DecodeTile(solidTile(0))
	if Upscale(img, 1) != img {
		t.Error("expected Upscale with factor 1 to return the same image")
	}
}
