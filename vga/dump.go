package vga

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// A dump is a raw page: little-endian uint32 cols and rows, then the cells
// as little-endian uint16 in row order.

// maxDumpCells bounds what ReadDump will allocate.
const maxDumpCells = 1 << 20

var ErrDump = errors.New("vga: malformed dump")

// Dump writes the console's current page to w.
func (c *Console) Dump(w io.Writer) error {
	return WriteDump(w, c.Snapshot(), c.cols, c.rows)
}

func WriteDump(w io.Writer, cells []uint16, cols, rows int) error {
	if len(cells) != cols*rows {
		return fmt.Errorf("%w: %d cells for %dx%d", ErrDump, len(cells), cols, rows)
	}
	hdr := [2]uint32{uint32(cols), uint32(rows)}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, cells)
}

// ReadDump parses a dump written by WriteDump.
func ReadDump(r io.Reader) (cells []uint16, cols, rows int, err error) {
	var hdr [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: header: %w", ErrDump, err)
	}
	if hdr[0] == 0 || hdr[1] == 0 || uint64(hdr[0])*uint64(hdr[1]) > maxDumpCells {
		return nil, 0, 0, fmt.Errorf("%w: size %dx%d", ErrDump, hdr[0], hdr[1])
	}
	cols, rows = int(hdr[0]), int(hdr[1])
	cells = make([]uint16, cols*rows)
	if err := binary.Read(r, binary.LittleEndian, cells); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: cells: %w", ErrDump, err)
	}
	return cells, cols, rows, nil
}
