// Package portbus simulates the x86 I/O port space for hosted builds. The
// port I/O vector table points at this bus by default, so drivers run
// unchanged against emulated devices.
package portbus

import (
	"errors"
	"fmt"

	"github.com/johndah4x0r/magnetite-os/spin"
)

// Float is what a read from an unclaimed port returns.
const Float = 0xff

var (
	ErrConflict = errors.New("portbus: port range already claimed")
	ErrSpan     = errors.New("portbus: bad port range")
)

// Device is a byte-wide peripheral. off is relative to the base the device
// was attached at.
type Device interface {
	ReadPort(off uint16) uint8
	WritePort(off uint16, v uint8)
}

type claim struct {
	base, span uint16
	dev        Device
}

func (c claim) holds(port uint16) bool {
	return port >= c.base && port-c.base < c.span
}

// Bus routes port accesses to attached devices. Wider accesses are split
// into consecutive byte accesses, low byte first.
type Bus struct {
	mu     spin.Mutex
	claims []claim
}

// Default is the bus behind the hal defaults.
var Default = New()

func New() *Bus {
	return &Bus{}
}

// Attach claims ports base through base+span-1 for d.
func (b *Bus) Attach(base, span uint16, d Device) error {
	if span == 0 || uint32(base)+uint32(span) > 0x10000 {
		return fmt.Errorf("%w: %#x+%d", ErrSpan, base, span)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.claims {
		lo, hi := uint32(base), uint32(base)+uint32(span)
		if lo < uint32(c.base)+uint32(c.span) && uint32(c.base) < hi {
			return fmt.Errorf("%w: %#x+%d overlaps %#x+%d", ErrConflict, base, span, c.base, c.span)
		}
	}
	b.claims = append(b.claims, claim{base: base, span: span, dev: d})
	return nil
}

// Detach releases the range attached at base. It reports whether one was.
func (b *Bus) Detach(base uint16) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.claims {
		if c.base == base {
			b.claims = append(b.claims[:i], b.claims[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Bus) lookup(port uint16) (Device, uint16, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.claims {
		if c.holds(port) {
			return c.dev, port - c.base, true
		}
	}
	return nil, 0, false
}

func (b *Bus) In8(port uint16) uint8 {
	d, off, ok := b.lookup(port)
	if !ok {
		return Float
	}
	return d.ReadPort(off)
}

func (b *Bus) In16(port uint16) uint16 {
	return uint16(b.In8(port)) | uint16(b.In8(port+1))<<8
}

func (b *Bus) In32(port uint16) uint32 {
	return uint32(b.In16(port)) | uint32(b.In16(port+2))<<16
}

// Out8 writes v to port. Writes to unclaimed ports are dropped.
func (b *Bus) Out8(port uint16, v uint8) {
	if d, off, ok := b.lookup(port); ok {
		d.WritePort(off, v)
	}
}

func (b *Bus) Out16(port uint16, v uint16) {
	b.Out8(port, uint8(v))
	b.Out8(port+1, uint8(v>>8))
}

func (b *Bus) Out32(port uint16, v uint32) {
	b.Out16(port, uint16(v))
	b.Out16(port+2, uint16(v>>16))
}
