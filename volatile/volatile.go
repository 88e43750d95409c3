// Package volatile wraps memory that something other than the compiler may
// change: device registers, text buffers, and table words shared between
// stages. Every access is a raw read or write bracketed by fences.
package volatile

import (
	"unsafe"

	"github.com/johndah4x0r/magnetite-os/internal/atomic"
)

// Slot holds one fixed-size value. T must be trivially copyable: plain
// integers, addresses, and structs of those. A Slot does no locking of its
// own; whoever calls Store must already own the memory.
type Slot[T any] struct {
	v T
}

// New returns a Slot holding v.
func New[T any](v T) Slot[T] {
	return Slot[T]{v: v}
}

// At overlays a Slot on the raw address addr.
//
//go:nosplit
func At[T any](addr uintptr) *Slot[T] {
	return (*Slot[T])(unsafe.Pointer(addr))
}

// Load performs an acquire-fenced read and returns a copy of the value.
//
//go:nosplit
func (s *Slot[T]) Load() T {
	atomic.Fence()
	v := *(*T)(unsafe.Pointer(&s.v))
	atomic.Fence()
	return v
}

// Store performs a release-fenced write of v.
//
//go:nosplit
func (s *Slot[T]) Store(v T) {
	atomic.Fence()
	*(*T)(unsafe.Pointer(&s.v)) = v
	atomic.Fence()
}

// Addr returns the address of the wrapped value.
//
//go:nosplit
func (s *Slot[T]) Addr() uintptr {
	return uintptr(unsafe.Pointer(&s.v))
}
