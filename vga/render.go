package vga

import (
	"fmt"
	"image"

	gg "github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Glyph cell size of the render font.
const (
	GlyphWidth  = 7
	GlyphHeight = 13
)

// Render draws a text page to an image, one 7x13 glyph per cell. Bytes
// outside printable ASCII draw as blanks, except that 0x80 and up draw as
// '?' since the font has no code page 437 glyphs.
func Render(cells []uint16, cols, rows int) (image.Image, error) {
	if cols <= 0 || rows <= 0 || len(cells) < cols*rows {
		return nil, fmt.Errorf("vga: %d cells do not fill %dx%d", len(cells), cols, rows)
	}
	face := basicfont.Face7x13
	dc := gg.NewContext(cols*GlyphWidth, rows*GlyphHeight)
	dc.SetFontFace(face)

	for y := range rows {
		for x := range cols {
			cell := cells[y*cols+x]
			fg, bg := Colors(cell)
			px, py := float64(x*GlyphWidth), float64(y*GlyphHeight)

			dc.SetColor(bg)
			dc.DrawRectangle(px, py, GlyphWidth, GlyphHeight)
			dc.Fill()

			ch := byte(cell)
			switch {
			case ch > 0x20 && ch < 0x7f:
			case ch >= 0x80:
				ch = '?'
			default:
				continue
			}
			dc.SetColor(fg)
			dc.DrawString(string(rune(ch)), px, py+float64(face.Ascent))
		}
	}
	return dc.Image(), nil
}

// SavePNG renders the console's current page to a PNG file.
func (c *Console) SavePNG(path string) error {
	img, err := Render(c.Snapshot(), c.cols, c.rows)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}
