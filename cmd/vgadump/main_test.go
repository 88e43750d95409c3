package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndah4x0r/magnetite-os/internal/dumpfile"
	"github.com/johndah4x0r/magnetite-os/vga"
)

func writeDump(t *testing.T, path string, lines ...string) string {
	t.Helper()
	const cols = 16
	cells := make([]uint16, cols*len(lines))
	for y, l := range lines {
		for x := range cols {
			ch := uint16(' ')
			if x < len(l) {
				ch = uint16(l[x])
			}
			cells[y*cols+x] = vga.DefaultAttr | ch
		}
	}
	f, err := dumpfile.Create(path)
	require.NoError(t, err)
	require.NoError(t, vga.WriteDump(f, cells, cols, len(lines)))
	require.NoError(t, f.Close())
	return path
}

func TestConvert(t *testing.T) {
	for _, name := range []string{"page.bin", "page.bin" + dumpfile.Ext} {
		dir := t.TempDir()
		in := writeDump(t, filepath.Join(dir, name), "Hello world!", "", "fox")
		out := filepath.Join(dir, "page.png")

		var text bytes.Buffer
		cols, rows, err := convert(in, out, &text)
		require.NoError(t, err, name)
		assert.Equal(t, 16, cols)
		assert.Equal(t, 3, rows)
		assert.Equal(t, []string{"Hello world!", "", "fox", ""}, strings.Split(text.String(), "\n"))

		f, err := os.Open(out)
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		t.Logf("%s rendered %v", name, img.Bounds())
		assert.Equal(t, 16*vga.GlyphWidth, img.Bounds().Dx())
		assert.Equal(t, 3*vga.GlyphHeight, img.Bounds().Dy())
	}
}

func TestConvertRejectsBadDump(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "short.bin")
	require.NoError(t, os.WriteFile(in, []byte{80, 0, 0, 0, 25, 0, 0, 0, 1, 2}, 0o644))

	_, _, err := convert(in, filepath.Join(dir, "out.png"), nil)
	assert.ErrorIs(t, err, vga.ErrDump)

	_, _, err = convert(filepath.Join(dir, "missing.bin"), filepath.Join(dir, "out.png"), nil)
	assert.Error(t, err)
}
