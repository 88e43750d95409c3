// Package hal is the hardware access layer: the port I/O vector table and
// the routines behind its default vectors.
//
// Drivers never issue port I/O directly. They call InB, OutB and friends,
// which dispatch through the PortIO table, so a stage can swap the
// implementation at run time with SetInB and the rest.
package hal

//go:generate go run ../cmd/vtgen -in portio.vt.toml -out portio_vt.go

import "github.com/johndah4x0r/magnetite-os/internal/portbus"

// The default vectors go to the simulated bus.

func softInB(port uint16) uint8 { return portbus.Default.In8(port) }

func softInW(port uint16) uint16 { return portbus.Default.In16(port) }

func softInD(port uint16) uint32 { return portbus.Default.In32(port) }

func softOutB(port uint16, v uint8) { portbus.Default.Out8(port, v) }

func softOutW(port uint16, v uint16) { portbus.Default.Out16(port, v) }

func softOutD(port uint16, v uint32) { portbus.Default.Out32(port, v) }

// Reset puts every PortIO vector back to its default.
func Reset() error {
	d := DefaultPortIOSlots()
	for _, err := range []error{
		SetInB(d.InB.Load().Func()),
		SetInW(d.InW.Load().Func()),
		SetInD(d.InD.Load().Func()),
		SetOutB(d.OutB.Load().Func()),
		SetOutW(d.OutW.Load().Func()),
		SetOutD(d.OutD.Load().Func()),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}
