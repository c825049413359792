package main

import (
	"testing"

	"penguin/pkg/types"
)

func solidSpriteTile() []byte {
	data := make([]byte, 16)
	for row := 0; row < 8; row++ {
		data[row*2] = 0xFF
	}
	return data
}

func TestDecodeAsset_Sprite(t *testing.T) {
	img, err := decodeAsset(solidSpriteTile(), types.KindSprite)
	if err != nil {
		t.Fatalf("decodeAsset(sprite): %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("expected an 8x8 image, got %v", img.Bounds())
	}
}

func TestDecodeAsset_Tileset(t *testing.T) {
	data := append(solidSpriteTile(), solidSpriteTile()...)
	img, err := decodeAsset(data, types.KindTileset)
	if err != nil {
		t.Fatalf("decodeAsset(tileset): %v", err)
	}
	if img.Bounds().Dx() != tilesetRowTiles*8 {
		t.Errorf("expected a sheet %d tiles wide, got %v", tilesetRowTiles, img.Bounds())
	}
}

func TestDecodeAsset_TilemapHasNoPixelData(t *testing.T) {
	img, err := decodeAsset([]byte{0x01, 0x02}, types.KindTilemap)
	if err != nil {
		t.Fatalf("decodeAsset(tilemap): %v", err)
	}
	if img != nil {
		t.Errorf("expected no image for a tilemap asset")
	}
}
