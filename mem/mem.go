// Package mem moves bytes between regions that must not overlap. It is the
// bulk copy the whole runtime uses; nothing here falls back to a general
// purpose memmove.
//
// The mover copies with plain word stores and does no write barriers, so it
// is only for memory that holds no Go pointers: device buffers, arena images,
// descriptor records.
package mem

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// WordSize is the machine word in bytes.
const WordSize = unsafe.Sizeof(uintptr(0))

// ErrOverlap is matched by every *OverlapError.
var ErrOverlap = errors.New("mem: regions overlap")

// OverlapError reports a checked move whose source and destination overlap.
// No byte was copied.
type OverlapError struct {
	Dest uintptr
	Src  uintptr
	Len  uintptr
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("mem: move of %d bytes from %#x to %#x overlaps", e.Len, e.Src, e.Dest)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// wide selects two-word transfers when the CPU has 128-bit vector moves.
var wide = cpu.X86.HasSSE2 || cpu.ARM64.HasASIMD

// Overlaps reports whether [dest, dest+n) and [src, src+n) share a byte.
// Identical starts overlap for any n > 0.
//
//go:nosplit
func Overlaps(dest, src, n uintptr) bool {
	if n == 0 {
		return false
	}
	lo, hi := min(dest, src), max(dest, src)
	return hi-lo < n
}

// Move copies n bytes from src to dest after checking that the regions are
// disjoint, and returns dest. On overlap it copies nothing and returns an
// *OverlapError.
func Move(dest, src, n uintptr) (uintptr, error) {
	if n == 0 {
		return dest, nil
	}
	if Overlaps(dest, src, n) {
		return 0, &OverlapError{Dest: dest, Src: src, Len: n}
	}
	move(unsafe.Pointer(dest), unsafe.Pointer(src), n)
	return dest, nil
}

// MoveUnchecked copies n bytes from src to dest and returns dest. The caller
// guarantees the regions are disjoint.
//
//go:nosplit
func MoveUnchecked(dest, src, n uintptr) uintptr {
	move(unsafe.Pointer(dest), unsafe.Pointer(src), n)
	return dest
}

// Memcpy follows the conventional (dest, src, length) bulk-copy contract:
// regions must not overlap, and dest is returned.
//
//go:nosplit
func Memcpy(dest, src, n uintptr) uintptr {
	return MoveUnchecked(dest, src, n)
}

// Copy is the checked mover over slices. It copies min(len(dst), len(src))
// bytes and returns the count.
func Copy(dst, src []byte) (int, error) {
	n := min(len(dst), len(src))
	if n == 0 {
		return 0, nil
	}
	d, s := unsafe.Pointer(unsafe.SliceData(dst)), unsafe.Pointer(unsafe.SliceData(src))
	if Overlaps(uintptr(d), uintptr(s), uintptr(n)) {
		return 0, &OverlapError{Dest: uintptr(d), Src: uintptr(s), Len: uintptr(n)}
	}
	move(d, s, uintptr(n))
	return n, nil
}

// CopyNonOverlapping is Copy without the overlap check.
func CopyNonOverlapping(dst, src []byte) int {
	n := min(len(dst), len(src))
	if n > 0 {
		move(unsafe.Pointer(unsafe.SliceData(dst)), unsafe.Pointer(unsafe.SliceData(src)), uintptr(n))
	}
	return n
}

// Zero clears n bytes at addr.
//
//go:nosplit
func Zero(addr, n uintptr) {
	p := unsafe.Pointer(addr)
	for i := uintptr(0); i < n; i++ {
		*(*byte)(unsafe.Add(p, i)) = 0
	}
}

// move is the alignment-aware copy. Short spans, and spans whose start or end
// sit at different offsets within a word, go byte by byte. Everything else is
// an unaligned head, a run of whole words, and an unaligned tail.
//
//go:nosplit
func move(d, s unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	da, sa := uintptr(d), uintptr(s)
	if n <= 2*WordSize ||
		da%WordSize != sa%WordSize ||
		(da+n)%WordSize != (sa+n)%WordSize {
		copyBytes(d, s, n)
		return
	}

	head := (WordSize - da%WordSize) % WordSize
	copyBytes(d, s, head)

	words := (n - head) / WordSize
	copyWords(unsafe.Add(d, head), unsafe.Add(s, head), words)

	done := head + words*WordSize
	copyBytes(unsafe.Add(d, done), unsafe.Add(s, done), n-done)
}

//go:nosplit
func copyBytes(d, s unsafe.Pointer, n uintptr) {
	for i := uintptr(0); i < n; i++ {
		*(*byte)(unsafe.Add(d, i)) = *(*byte)(unsafe.Add(s, i))
	}
}

// copyWords copies n aligned words.
//
//go:nosplit
func copyWords(d, s unsafe.Pointer, n uintptr) {
	i := uintptr(0)
	if wide {
		for ; i+2 <= n; i += 2 {
			off := i * WordSize
			w0 := *(*uintptr)(unsafe.Add(s, off))
			w1 := *(*uintptr)(unsafe.Add(s, off+WordSize))
			*(*uintptr)(unsafe.Add(d, off)) = w0
			*(*uintptr)(unsafe.Add(d, off+WordSize)) = w1
		}
	}
	for ; i < n; i++ {
		off := i * WordSize
		*(*uintptr)(unsafe.Add(d, off)) = *(*uintptr)(unsafe.Add(s, off))
	}
}
