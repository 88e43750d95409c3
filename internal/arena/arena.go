// Package arena hands out raw memory that lives outside the Go heap, so
// tables, text buffers and descriptor maps can be addressed as plain integers
// and copied around as images.
package arena

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/johndah4x0r/magnetite-os/mem"
)

const PageSize = 4096

var (
	ErrExhausted = errors.New("arena: out of space")
	ErrClosed    = errors.New("arena: closed")
)

// Arena is a bump allocator over one page-aligned mapping.
type Arena struct {
	mem   []byte
	next  uintptr
	unmap func([]byte) error
}

// New maps size bytes, rounded up to whole pages.
func New(size int) (*Arena, error) {
	if size <= 0 {
		return nil, fmt.Errorf("arena: invalid size %d", size)
	}
	size = (size + PageSize - 1) &^ (PageSize - 1)
	b, unmap, err := osMapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("arena: map %d bytes: %w", size, err)
	}
	return &Arena{mem: b, unmap: unmap}, nil
}

// Base returns the address of the first byte of the mapping.
func (a *Arena) Base() uintptr {
	if a.mem == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(&a.mem[0]))
}

// Size returns the mapping length.
func (a *Arena) Size() uintptr {
	return uintptr(len(a.mem))
}

// Bytes exposes the whole mapping.
func (a *Arena) Bytes() []byte {
	return a.mem
}

// Contains reports whether addr falls inside the mapping.
func (a *Arena) Contains(addr uintptr) bool {
	return a.mem != nil && addr >= a.Base() && addr < a.Base()+a.Size()
}

// Alloc reserves size bytes aligned to align (a power of two) and returns
// their address. The memory is zero on first use.
func (a *Arena) Alloc(size, align uintptr) (uintptr, error) {
	if a.mem == nil {
		return 0, ErrClosed
	}
	if align == 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("arena: alignment %d is not a power of two", align)
	}
	start := (a.Base() + a.next + align - 1) &^ (align - 1)
	end := start + size
	if end > a.Base()+a.Size() || end < start {
		return 0, fmt.Errorf("%w: want %d bytes, %d free", ErrExhausted, size, a.Size()-a.next)
	}
	a.next = end - a.Base()
	return start, nil
}

// Used returns how many bytes have been handed out, including padding.
func (a *Arena) Used() uintptr {
	return a.next
}

// Close unmaps the arena. Addresses handed out become invalid.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}
	b := a.mem
	a.mem = nil
	a.next = 0
	return a.unmap(b)
}

// Relocate copies the used part of src into dst at the same offset, the way
// a loader re-bases an image, and returns the uniform shift between the two.
func Relocate(dst, src *Arena) (int64, error) {
	return RelocateAt(dst, src, 0)
}

// RelocateAt is Relocate with the image landing off bytes into dst. off
// must keep word alignment. Whatever dst held before is cleared, so the
// bytes ahead of the image read as zero.
func RelocateAt(dst, src *Arena, off uintptr) (int64, error) {
	if dst.mem == nil || src.mem == nil {
		return 0, ErrClosed
	}
	if dst == src {
		return 0, errors.New("arena: cannot relocate an arena onto itself")
	}
	if off%unsafe.Sizeof(uintptr(0)) != 0 {
		return 0, fmt.Errorf("arena: relocation offset %#x is not word aligned", off)
	}
	if dst.Size() < src.next || dst.Size()-src.next < off {
		return 0, fmt.Errorf("%w: image is %d bytes at offset %d, target holds %d", ErrExhausted, src.next, off, dst.Size())
	}
	if dst.next > 0 {
		mem.Zero(dst.Base(), dst.next)
	}
	if src.next > 0 {
		if _, err := mem.Move(dst.Base()+off, src.Base(), src.next); err != nil {
			return 0, fmt.Errorf("arena: relocate: %w", err)
		}
	}
	dst.next = off + src.next
	return int64(dst.Base()+off) - int64(src.Base()), nil
}
