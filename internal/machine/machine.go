// Package machine assembles the hosted stand-in for a PC at boot: an image
// arena holding what the real-mode loader would leave behind (parameter
// block, memory map, its descriptor, the text buffer) and a UART on the
// port bus.
package machine

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/johndah4x0r/magnetite-os/bios"
	"github.com/johndah4x0r/magnetite-os/boot"
	"github.com/johndah4x0r/magnetite-os/config"
	"github.com/johndah4x0r/magnetite-os/internal/arena"
	"github.com/johndah4x0r/magnetite-os/internal/portbus"
	"github.com/johndah4x0r/magnetite-os/serial"
	"github.com/johndah4x0r/magnetite-os/vga"
	"github.com/johndah4x0r/magnetite-os/vtable"
)

// BootDrive is the BIOS drive number of the first hard disk.
const BootDrive = 0x80

// MemoryMap is what a 128 MiB PC reports through E820.
var MemoryMap = []bios.LongE820{
	{Base: 0x00000000, Size: 0x0009fc00, Type: bios.AreaUsable, ACPI: 1},
	{Base: 0x0009fc00, Size: 0x00000400, Type: bios.AreaReserved, ACPI: 1},
	{Base: 0x000f0000, Size: 0x00010000, Type: bios.AreaReserved, ACPI: 1},
	{Base: 0x00100000, Size: 0x07ee0000, Type: bios.AreaUsable, ACPI: 1},
	{Base: 0x07fe0000, Size: 0x00020000, Type: bios.AreaReserved, ACPI: 1},
	{Base: 0xfffc0000, Size: 0x00040000, Type: bios.AreaReserved, ACPI: 1},
}

// BPB is the parameter block of the simulated boot volume.
var BPB = bios.BiosPB{
	OEMLabel:          [8]byte{'M', 'A', 'G', 'N', 'E', 'T', 'I', 'T'},
	BytesPerSector:    512,
	SectorsPerCluster: 1,
	ReservedSectors:   1,
	FATCount:          2,
	RootDirEntries:    224,
	Sectors:           2880,
	MediumType:        0xf0,
	SectorsPerFAT:     9,
	Heads:             2,
	DriveNumber:       BootDrive,
	Signature:         0x29,
	VolumeID:          0x4d41474e,
	VolumeLabel:       [11]byte{'M', 'A', 'G', 'N', 'E', 'T', 'I', 'T', 'E', ' ', ' '},
	Filesystem:        [8]byte{'F', 'A', 'T', '1', '2', ' ', ' ', ' '},
}

// Machine is one simulated PC.
type Machine struct {
	Image   *arena.Arena
	BPB     uintptr
	E820    uintptr
	Console *vga.Console
	UART    *portbus.UART16550
	Port    *serial.Port

	cfg    config.Config
	com    uint16
	old    []*arena.Arena
	closed bool
}

// New builds the machine cfg describes. The UART is attached to
// portbus.Default, which is where the default port I/O vectors go; Close
// detaches it.
func New(cfg *config.Config) (*Machine, error) {
	img, err := arena.New(cfg.Memory.ArenaSize)
	if err != nil {
		return nil, err
	}
	m := &Machine{Image: img, cfg: *cfg, com: serial.Ports[cfg.Serial.Port]}
	if err := m.load(); err != nil {
		img.Close()
		return nil, err
	}

	m.UART, err = portbus.AttachUART(portbus.Default, m.com)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("machine: %w", err)
	}
	var opts []serial.Option
	if !cfg.Serial.LoopbackCheck {
		opts = append(opts, serial.WithoutLoopbackCheck())
	}
	m.Port, err = serial.New(cfg.Serial.Port, opts...)
	if err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// load lays out the image the way the loader leaves it: text buffer, then
// parameter block, then the map and its descriptor.
func (m *Machine) load() error {
	const word = unsafe.Sizeof(uintptr(0))
	c := m.cfg.Console

	text, err := m.Image.Alloc(uintptr(c.Cols*c.Rows)*vga.CellSize, 16)
	if err != nil {
		return fmt.Errorf("machine: text buffer: %w", err)
	}
	m.Console = vga.New(text, c.Cols, c.Rows)
	m.Console.SetAttr(c.Attr)
	m.Console.SetTruncate(c.Truncate)

	if m.BPB, err = m.Image.Alloc(bios.BPBSize, 1); err != nil {
		return fmt.Errorf("machine: parameter block: %w", err)
	}
	copy(m.bytesAt(m.BPB, bios.BPBSize), BPB.Encode())

	mapAt, err := m.Image.Alloc(uintptr(len(MemoryMap))*bios.LongE820Size, word)
	if err != nil {
		return fmt.Errorf("machine: memory map: %w", err)
	}
	desc := bios.ArrayLike[bios.LongE820]{Data: mapAt, Size: uintptr(len(MemoryMap))}
	records, err := desc.Slice()
	if err != nil {
		return err
	}
	copy(records, MemoryMap)

	if m.E820, err = m.Image.Alloc(unsafe.Sizeof(desc), word); err != nil {
		return fmt.Errorf("machine: map descriptor: %w", err)
	}
	*bios.DescriptorAt[bios.LongE820](m.E820) = desc
	return nil
}

func (m *Machine) bytesAt(addr, n uintptr) []byte {
	off := addr - m.Image.Base()
	return m.Image.Bytes()[off : off+n]
}

// BootEnv returns the environment the boot stage runs in.
func (m *Machine) BootEnv(log *slog.Logger) *boot.Env {
	return &boot.Env{
		BPB:     m.BPB,
		BootDev: BootDrive,
		E820:    m.E820,
		Console: m.Console,
		Serial:  m.Port,
		Baud:    m.cfg.Serial.Baud,
		Image:   m.Image,
		Log:     log,
		Level:   m.cfg.LogLevel(),
	}
}

// Relocate copies the image into a fresh mapping, memory.relocate_shift
// bytes in, and makes that the current image. The console follows it. The
// old mapping stays readable until Close. It returns the shift.
func (m *Machine) Relocate() (int64, error) {
	shift := uintptr(m.cfg.Memory.RelocateShift)
	dst, err := arena.New(int(m.Image.Size() + shift))
	if err != nil {
		return 0, err
	}
	d, err := arena.RelocateAt(dst, m.Image, shift)
	if err != nil {
		dst.Close()
		return 0, err
	}
	m.old = append(m.old, m.Image)
	m.Image = dst
	m.BPB = Moved(m.BPB, d)
	m.E820 = Moved(m.E820, d)

	cols, rows := m.Console.Size()
	x, y := m.Console.Cursor()
	con := vga.New(Moved(m.Console.Addr(), d), cols, rows)
	con.SetAttr(m.Console.Attr())
	con.SetTruncate(m.Console.Truncate())
	con.SetCursor(x, y)
	m.Console = con
	return d, nil
}

// Moved returns addr shifted by d.
func Moved(addr uintptr, d int64) uintptr {
	return uintptr(int64(addr) + d)
}

// Handoff views the handoff table that was at addr before a move by d.
func Handoff(addr uintptr, d int64) *boot.HandoffTable {
	return vtable.At[boot.HandoffSlots](Moved(addr, d))
}

// Close detaches the UART and unmaps every image the machine has had.
func (m *Machine) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.UART != nil {
		portbus.Default.Detach(m.com)
	}
	errs := []error{m.Image.Close()}
	for _, a := range m.old {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}
