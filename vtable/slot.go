package vtable

import (
	"fmt"
	"unsafe"
)

// SlotID enumerates the slots of one table definition.
type SlotID uint8

// Slot selects one entry of a table whose entry set is E. Slots are only
// made by DefineSlot, which proves at package init that the entry lies
// inside E, so a defined Slot can never reach outside its table.
type Slot[E any, V Vector] struct {
	id    SlotID
	name  string
	off   uintptr
	valid bool
}

// DefineSlot builds the selector for the entry that field returns. field is
// run once against a scratch E to find the entry's offset; it must return a
// pointer into its argument.
func DefineSlot[E any, V Vector](id SlotID, name string, field func(*E) *Entry[V]) Slot[E, V] {
	var probe E
	lo := uintptr(unsafe.Pointer(&probe))
	p := uintptr(unsafe.Pointer(field(&probe)))

	var e Entry[V]
	size, align := unsafe.Sizeof(e), unsafe.Alignof(e)
	if p < lo || p+size > lo+unsafe.Sizeof(probe) || (p-lo)%align != 0 {
		panic(fmt.Sprintf("vtable: slot %q (%d) is not an entry of its table", name, id))
	}
	return Slot[E, V]{id: id, name: name, off: p - lo, valid: true}
}

// ID returns the slot's enumerated identifier.
func (s Slot[E, V]) ID() SlotID { return s.id }

// Name returns the slot name given at definition.
func (s Slot[E, V]) Name() string { return s.name }

// Valid reports whether s came from DefineSlot.
func (s Slot[E, V]) Valid() bool { return s.valid }

func (s Slot[E, V]) String() string {
	return fmt.Sprintf("%s(%d)", s.name, s.id)
}

//go:nosplit
func (s Slot[E, V]) entry(set *E) *Entry[V] {
	return (*Entry[V])(unsafe.Add(unsafe.Pointer(set), s.off))
}
