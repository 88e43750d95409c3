// Package vga drives the VGA text-mode buffer: a grid of 16-bit cells, each
// a character in the low byte and its colour attribute in the high byte.
//
// The console behaves like a typewriter. Output starts on the bottom row and
// the page scrolls up as lines are finished.
package vga

import (
	"github.com/johndah4x0r/magnetite-os/mem"
	"github.com/johndah4x0r/magnetite-os/volatile"
)

// Mode 3 defaults.
const (
	DefaultAddr uintptr = 0xb8000
	DefaultCols         = 80
	DefaultRows         = 25
	DefaultAttr uint16  = 0x0700 // light grey on black
	Space       uint16  = 0x0020
	CellSize            = 2
)

// Console is a cursor over one text page. It does no locking; callers
// serialize access the way the boot stage does, by owning it.
type Console struct {
	addr  uintptr
	cols  int
	rows  int
	page  int
	x, y  int
	attr  uint16
	trunc bool
}

// New returns a console over the cols by rows buffer at addr. The cursor
// starts at the left of the last row and truncation is on.
func New(addr uintptr, cols, rows int) *Console {
	if cols <= 0 || rows <= 0 {
		panic("vga: console needs at least one row and column")
	}
	return &Console{
		addr:  addr,
		cols:  cols,
		rows:  rows,
		y:     rows - 1,
		attr:  DefaultAttr,
		trunc: true,
	}
}

// Defaults returns the console over the mode 3 buffer at 0xb8000.
func Defaults() *Console {
	return New(DefaultAddr, DefaultCols, DefaultRows)
}

func (c *Console) Addr() uintptr { return c.addr }

func (c *Console) Size() (cols, rows int) { return c.cols, c.rows }

// Bytes is the size of one page in bytes.
func (c *Console) Bytes() uintptr {
	return uintptr(c.cols * c.rows * CellSize)
}

func (c *Console) Cursor() (x, y int) { return c.x, c.y }

// SetCursor moves the cursor, clamping to the page.
func (c *Console) SetCursor(x, y int) {
	c.x = clamp(x, c.cols-1)
	c.y = clamp(y, c.rows-1)
}

func (c *Console) Attr() uint16 { return c.attr }

// SetAttr sets the attribute for subsequent output. Only the high byte is
// used.
func (c *Console) SetAttr(attr uint16) {
	c.attr = attr & 0xff00
}

func (c *Console) Truncate() bool { return c.trunc }

// SetTruncate decides whether writes longer than a page keep only their
// last page worth of bytes. Turning it off gives faithful terminal output
// at the cost of scrolling through everything.
func (c *Console) SetTruncate(t bool) { c.trunc = t }

func clamp(v, hi int) int {
	return max(0, min(v, hi))
}

// lineAddr returns the address of row y of the current page, y clamped.
func (c *Console) lineAddr(y int) uintptr {
	y = clamp(y, c.rows-1)
	return c.addr + uintptr(c.page*c.cols*c.rows+y*c.cols)*CellSize
}

func (c *Console) cellAddr(x, y int) uintptr {
	return c.lineAddr(y) + uintptr(clamp(x, c.cols-1))*CellSize
}

// Cell returns the raw cell at (x, y).
func (c *Console) Cell(x, y int) uint16 {
	return volatile.Read16(c.cellAddr(x, y))
}

// Line returns row y as text, trailing spaces included.
func (c *Console) Line(y int) string {
	b := make([]byte, c.cols)
	for x := range b {
		b[x] = byte(c.Cell(x, y))
	}
	return string(b)
}

// Snapshot copies the current page out of the buffer.
func (c *Console) Snapshot() []uint16 {
	cells := make([]uint16, c.cols*c.rows)
	for i := range cells {
		cells[i] = volatile.Read16(c.lineAddr(0) + uintptr(i)*CellSize)
	}
	return cells
}

// Scroll moves the page up n lines and blanks the lines freed at the
// bottom. n is clamped to rows-1.
func (c *Console) Scroll(n int) {
	m := clamp(n, c.rows-1)
	if m == 0 {
		return
	}
	lineBytes := uintptr(c.cols) * CellSize
	// lines m apart never overlap
	for r := 0; r < c.rows-m; r++ {
		mem.MoveUnchecked(c.lineAddr(r), c.lineAddr(r+m), lineBytes)
	}
	c.blank(c.rows-m, c.rows)
}

// Clear blanks the page without moving the cursor.
func (c *Console) Clear() {
	c.blank(0, c.rows)
}

func (c *Console) blank(from, to int) {
	cell := c.attr | Space
	for r := from; r < to; r++ {
		for x := 0; x < c.cols; x++ {
			volatile.Write16(c.cellAddr(x, r), cell)
		}
	}
}

func (c *Console) newLine() {
	if c.y < c.rows-1 {
		c.y++
	} else {
		c.Scroll(1)
	}
	c.x = 0
}

func (c *Console) put(ch byte) {
	switch ch {
	case '\n':
		c.newLine()
		return
	case '\r':
		c.x = 0
		return
	}
	volatile.Write16(c.cellAddr(c.x, c.y), c.attr|uint16(ch))
	c.x++
	if c.x >= c.cols {
		c.newLine()
	}
}

// WriteBytes puts buf on the page and returns how many bytes of it were
// processed. With truncation on, only the last page worth is.
func (c *Console) WriteBytes(buf []byte) int {
	if page := c.cols * c.rows; c.trunc && len(buf) > page {
		buf = buf[len(buf)-page:]
	}
	for _, ch := range buf {
		c.put(ch)
	}
	return len(buf)
}

func (c *Console) WriteString(s string) int {
	return c.WriteBytes([]byte(s))
}

// Write implements io.Writer. Truncated bytes count as written.
func (c *Console) Write(p []byte) (int, error) {
	c.WriteBytes(p)
	return len(p), nil
}
