//go:build !unix

package arena

import "unsafe"

// Without anonymous mappings the arena falls back to a page-aligned slice of
// the Go heap. Heap objects do not move, and nothing placed in an arena holds
// Go pointers, so the collector never needs to look inside.
func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	raw := make([]byte, size+PageSize)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) % PageSize); rem != 0 {
		off = PageSize - rem
	}
	return raw[off : off+size : off+size], func([]byte) error { return nil }, nil
}
