// Package vtable implements access-controlled vector tables: static sets of
// swappable I/O vectors that stay callable after the image holding them has
// been copied to a new load address.
//
// A table records its own address the first time it is used. Every dispatch
// compares that recorded base with the address the table sits at now and
// re-bases the stored vector by the difference before handing it out.
// Readers share the table, a writer has it alone, and both wait by spinning.
package vtable

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/johndah4x0r/magnetite-os/internal/atomic"
	"github.com/johndah4x0r/magnetite-os/reloc"
)

var (
	// ErrUndefinedSlot is returned for a zero Slot that DefineSlot never made.
	ErrUndefinedSlot = errors.New("vtable: undefined slot")
	// ErrPlacement is returned when raw memory cannot hold a table.
	ErrPlacement = errors.New("vtable: bad placement address")
)

// Table is one vector table instance. Its binary layout is, in order: the
// recorded base, the lease counter, then the entry set E. Every unit that
// references a table definition must agree on E's field order.
//
// A Table holds no Go pointers. It lives either in a package variable or in
// raw memory placed with Place; it is never copied as a value once in use.
type Table[E any] struct {
	base  uintptr
	lease lease
	slots E
}

// New returns a table image holding the default entries. Assign it to the
// package variable that becomes the instance; base and lease start at zero.
func New[E any](defaults E) Table[E] {
	return Table[E]{slots: defaults}
}

// Place writes a fresh table image with the given defaults at addr and
// returns it.
func Place[E any](addr uintptr, defaults E) (*Table[E], error) {
	if addr == 0 || addr%unsafe.Alignof(Table[E]{}) != 0 {
		return nil, fmt.Errorf("%w: %#x", ErrPlacement, addr)
	}
	t := At[E](addr)
	*t = Table[E]{slots: defaults}
	return t, nil
}

// At views the table image at addr, typically one that was copied there.
//
//go:nosplit
func At[E any](addr uintptr) *Table[E] {
	return (*Table[E])(unsafe.Pointer(addr))
}

// Size returns the byte size of a table image with entry set E.
func Size[E any]() uintptr {
	return unsafe.Sizeof(Table[E]{})
}

// Addr returns where the table currently sits.
//
//go:nosplit
func (t *Table[E]) Addr() uintptr {
	return uintptr(unsafe.Pointer(t))
}

// Base returns the recorded base, or 0 if none has been recorded.
//
//go:nosplit
func (t *Table[E]) Base() uintptr {
	return atomic.LoadAcquintptr(&t.base)
}

// Readers returns the raw lease counter: the number of active readers, or -1
// while a writer holds the table.
func (t *Table[E]) Readers() int32 {
	return t.lease.count()
}

// Initialize records the table's current address as its base. The first
// call wins and returns (base, true); later calls return the base recorded
// earlier and false. No lease is taken.
func (t *Table[E]) Initialize() (uintptr, bool) {
	self := t.Addr()
	if atomic.Casuintptr(&t.base, 0, self) {
		return self, true
	}
	return atomic.LoadAcquintptr(&t.base), false
}

// recordedBase returns the base, recording it first if this is the table's
// first use.
func (t *Table[E]) recordedBase() uintptr {
	if b := atomic.LoadAcquintptr(&t.base); b != 0 {
		return b
	}
	b, _ := t.Initialize()
	return b
}

// Dispatch runs act with the vector held in slot s, re-based to where the
// table sits now. The read lease is held for the whole of act, so a Modify
// that starts meanwhile waits until act returns. If the vector cannot be
// re-based, act is not run and the translation error is returned.
func Dispatch[E any, V Vector, R any](t *Table[E], s Slot[E, V], act func(V) R) (R, error) {
	var zero R
	if !s.valid {
		return zero, ErrUndefinedSlot
	}
	base, self := t.recordedBase(), t.Addr()

	t.lease.acquireRead()
	defer t.lease.releaseRead()

	v, err := reloc.TranslateAs(base, self, s.entry(&t.slots).Load())
	if err != nil {
		return zero, fmt.Errorf("vtable: dispatch %v: %w", s, err)
	}
	return act(v), nil
}

// Modify replaces the vector in slot s while holding the write lease. v is
// an address valid where the table sits now; it is stored relative to the
// recorded base so later dispatches re-base it back to the same place.
func Modify[E any, V Vector](t *Table[E], s Slot[E, V], v V) error {
	if !s.valid {
		return ErrUndefinedSlot
	}
	base, self := t.recordedBase(), t.Addr()
	stored, err := reloc.TranslateAs(self, base, v)
	if err != nil {
		return fmt.Errorf("vtable: modify %v: %w", s, err)
	}

	t.lease.acquireWrite()
	defer t.lease.releaseWrite()

	s.entry(&t.slots).writer().Store(stored)
	return nil
}

// Peek returns the raw stored vector of slot s under a read lease, without
// re-basing. It exists for diagnostics.
func Peek[E any, V Vector](t *Table[E], s Slot[E, V]) (V, error) {
	var zero V
	if !s.valid {
		return zero, ErrUndefinedSlot
	}
	t.lease.acquireRead()
	defer t.lease.releaseRead()
	return s.entry(&t.slots).Load(), nil
}
