// Package atomic provides the fenced primitives shared words are accessed
// through. Names follow the runtime's internal/atomic so low-level code reads
// the same whether it is built for the board or for the host.
package atomic

import (
	stdatomic "sync/atomic"
)

// fenceWord is only ever touched by Fence.
var fenceWord uint32

//go:nosplit
func Cas(ptr *uint32, old, new uint32) bool {
	return stdatomic.CompareAndSwapUint32(ptr, old, new)
}

//go:nosplit
func Casint32(ptr *int32, old, new int32) bool {
	return stdatomic.CompareAndSwapInt32(ptr, old, new)
}

//go:nosplit
func Casuintptr(ptr *uintptr, old, new uintptr) bool {
	return stdatomic.CompareAndSwapUintptr(ptr, old, new)
}

//go:nosplit
func Load(ptr *uint32) uint32 {
	return stdatomic.LoadUint32(ptr)
}

//go:nosplit
func Loadint32(ptr *int32) int32 {
	return stdatomic.LoadInt32(ptr)
}

// LoadAcquintptr is an acquire load. sync/atomic loads are sequentially
// consistent, which is at least as strong.
//
//go:nosplit
func LoadAcquintptr(ptr *uintptr) uintptr {
	return stdatomic.LoadUintptr(ptr)
}

//go:nosplit
func Store(ptr *uint32, val uint32) {
	stdatomic.StoreUint32(ptr, val)
}

//go:nosplit
func Storeint32(ptr *int32, val int32) {
	stdatomic.StoreInt32(ptr, val)
}

// Xaddint32 adds delta to *ptr and returns the new value.
//
//go:nosplit
func Xaddint32(ptr *int32, delta int32) int32 {
	return stdatomic.AddInt32(ptr, delta)
}

// Fence orders every memory access before it against every access after it.
// It is a locked read-modify-write on a private word: a full barrier on the
// hardware, and a point the compiler cannot move loads or stores across.
//
//go:nosplit
func Fence() {
	stdatomic.AddUint32(&fenceWord, 0)
}

// Procyield burns roughly cycles iterations without yielding the processor.
// It is the spin-loop hint used by every busy-wait in the tree.
//
//go:nosplit
func Procyield(cycles uint32) {
	for i := uint32(0); i < cycles; i++ {
	}
}
