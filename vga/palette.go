package vga

import "image/color"

// VGA text-mode palette, XRGB8888. Attribute nibbles index it: the low
// nibble of the high byte picks the foreground, the next three bits the
// background. The top bit is blink, which a still image cannot show.
var Palette = [16]uint32{
	0x00000000, // black
	0x000000AA, // blue
	0x0000AA00, // green
	0x0000AAAA, // cyan
	0x00AA0000, // red
	0x00AA00AA, // magenta
	0x00AA5500, // brown
	0x00AAAAAA, // light grey
	0x00555555, // dark grey
	0x005555FF, // light blue
	0x0055FF55, // light green
	0x0055FFFF, // light cyan
	0x00FF5555, // light red
	0x00FF55FF, // light magenta
	0x00FFFF55, // yellow
	0x00FFFFFF, // white
}

// Attribute builds the high byte of a cell from palette indices.
func Attribute(fg, bg uint8) uint16 {
	return uint16(bg&0x07)<<12 | uint16(fg&0x0f)<<8
}

// Colors returns the foreground and background of cell.
func Colors(cell uint16) (fg, bg color.RGBA) {
	return rgb(Palette[cell>>8&0x0f]), rgb(Palette[cell>>12&0x07])
}

func rgb(xrgb uint32) color.RGBA {
	return color.RGBA{R: uint8(xrgb >> 16), G: uint8(xrgb >> 8), B: uint8(xrgb), A: 0xff}
}
