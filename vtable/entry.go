package vtable

import (
	"unsafe"

	"github.com/johndah4x0r/magnetite-os/volatile"
)

// Entry is the client view of one table slot: it can only be read.
type Entry[V Vector] struct {
	cell volatile.Slot[V]
}

// NewEntry returns an Entry preloaded with v.
func NewEntry[V Vector](v V) Entry[V] {
	return Entry[V]{cell: volatile.New(v)}
}

// Load returns the vector currently held, with acquire ordering.
//
//go:nosplit
func (e *Entry[V]) Load() V {
	return e.cell.Load()
}

// Writer is the internal view of a slot. It has the same layout as Entry and
// is only handed out while the table's write lease is held.
type Writer[V Vector] struct {
	cell volatile.Slot[V]
}

//go:nosplit
func (w *Writer[V]) Load() V {
	return w.cell.Load()
}

// Store replaces the vector with release ordering.
//
//go:nosplit
func (w *Writer[V]) Store(v V) {
	w.cell.Store(v)
}

//go:nosplit
func (e *Entry[V]) writer() *Writer[V] {
	return (*Writer[V])(unsafe.Pointer(e))
}
