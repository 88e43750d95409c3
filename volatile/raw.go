package volatile

// Raw address access. These hide the unsafe.Pointer conversion so register
// code reads as plain loads and stores.

//go:nosplit
func Read8(addr uintptr) uint8 {
	return At[uint8](addr).Load()
}

//go:nosplit
func Read16(addr uintptr) uint16 {
	return At[uint16](addr).Load()
}

//go:nosplit
func Read32(addr uintptr) uint32 {
	return At[uint32](addr).Load()
}

//go:nosplit
func Read64(addr uintptr) uint64 {
	return At[uint64](addr).Load()
}

//go:nosplit
func Write8(addr uintptr, v uint8) {
	At[uint8](addr).Store(v)
}

//go:nosplit
func Write16(addr uintptr, v uint16) {
	At[uint16](addr).Store(v)
}

//go:nosplit
func Write32(addr uintptr, v uint32) {
	At[uint32](addr).Store(v)
}

//go:nosplit
func Write64(addr uintptr, v uint64) {
	At[uint64](addr).Store(v)
}
