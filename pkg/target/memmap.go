// Package target fixes the SM83/DMG memory map and register-file
// abstraction the code generator emits against (spec.md §3, §4.5).
package target

// Fixed address ranges of the memory map. Every generated address is
// derived from these constants — there is no relocation or linking model
// beyond what RGBDS performs downstream.
const (
	ROMStart = 0x0000
	ROMEnd   = 0x7FFF

	VRAMStart       = 0x8000
	VRAMEnd         = 0x9FFF
	TileData0Addr   = 0x8000
	TileData1Addr   = 0x8800
	Tilemap0Addr    = 0x9800
	Tilemap1Addr    = 0x9C00

	WRAMStart = 0xC000
	WRAMEnd   = 0xDFFF

	OAMStart    = 0xFE00
	OAMEnd      = 0xFE9F
	OAMSlots    = 40
	OAMSlotSize = 4

	IOStart       = 0xFF00
	JoypadAddr    = 0xFF00
	LCDCAddr      = 0xFF40

	StackInit = 0xDFFF

	HeaderEntryAddr = 0x0100
)

// OAM per-slot field byte offsets, per spec.md §8 scenario 4:
// y=+0, x=+1, tile=+2, attr=+3.
const (
	OAMFieldY    = 0
	OAMFieldX    = 1
	OAMFieldTile = 2
	OAMFieldAttr = 3
)

// OAMAddr returns the absolute OAM address of slot i's field.
func OAMAddr(slot int, fieldOffset int) int {
	return OAMStart + slot*OAMSlotSize + fieldOffset
}

// Joypad button bit positions within the mirrored input byte produced by
// control.updateInput(): the low nibble is the d-pad, read directly off
// P10-P13 in d-pad select mode; the high nibble is the buttons, read off
// P10-P13 in button select mode (A, B, Select, Start) and shifted up by
// swap a. This fixes the bit each input.* flag is tested against.
const (
	InputRight = iota
	InputLeft
	InputUp
	InputDown
	InputA
	InputB
	InputSelect
	InputStart
)

// Scratch registers available to the code generator for a single
// instruction's lifetime; virtual registers otherwise live in WRAM.
const (
	RegA  = "a"
	RegB  = "b"
	RegHL = "hl"
	RegDE = "de"
	RegBC = "bc"
)
