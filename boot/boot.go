// Package boot is the first stage that runs in protected mode. It takes
// what the real-mode loader found (the boot volume's parameter block and the
// firmware memory map), greets on the console, brings up the debug UART and
// leaves a handoff table for the kernel inside its own image.
package boot

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/johndah4x0r/magnetite-os/bios"
	"github.com/johndah4x0r/magnetite-os/klog"
	"github.com/johndah4x0r/magnetite-os/serial"
	"github.com/johndah4x0r/magnetite-os/vga"
	"github.com/johndah4x0r/magnetite-os/vtable"
)

//go:generate go run ../cmd/vtgen -in handoff.vt.toml -out handoff_vt.go

// Greeting is written to the freshly cleared console.
const Greeting = "Hello world!\nThis is a test!\nThe quick brown fox jumps over the lazy dog"

var ErrEnv = errors.New("boot: incomplete environment")

// Allocator hands out memory inside the boot image.
type Allocator interface {
	Alloc(size, align uintptr) (uintptr, error)
}

// Env is what the loader passes to Main.
type Env struct {
	// BPB is the address of the boot volume's parameter block, or 0.
	BPB     uintptr
	BootDev uint64
	// E820 is the address of the memory map descriptor.
	E820 uintptr

	Console *vga.Console
	// Serial is brought up at Baud and then carries the log. Nil leaves
	// the line alone.
	Serial *serial.Port
	Baud   int
	// Image is where the handoff table and the copied memory map go.
	Image Allocator

	Log   *slog.Logger
	Level slog.Leveler
}

// Main runs the boot stage and returns the handoff table it placed.
func Main(env *Env) (*HandoffTable, error) {
	if env.Console == nil || env.Image == nil || env.E820 == 0 {
		return nil, ErrEnv
	}
	con := env.Console
	con.Clear()
	con.WriteString(Greeting)

	log := env.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if env.Serial != nil {
		if err := env.Serial.Init(env.Baud); err != nil {
			log.Warn("serial line unavailable", "err", err)
		} else {
			log = slog.New(klog.Tee(log.Handler(), klog.Serial(env.Serial, env.Level)))
		}
	}
	log = log.With("stage", "boot")

	if env.BPB != 0 {
		pb, err := bios.ReadBPB(env.BPB)
		if err != nil {
			return nil, fmt.Errorf("boot: %w", err)
		}
		log.Info("boot volume",
			"oem", pb.OEM(),
			"label", pb.Volume(),
			"fs", pb.FSType(),
			"sectors", pb.TotalSectors(),
			"bootdev", fmt.Sprintf("%#x", env.BootDev))
	}

	desc := *bios.DescriptorAt[bios.LongE820](env.E820)
	records, err := desc.Slice()
	if err != nil {
		return nil, fmt.Errorf("boot: memory map: %w", err)
	}
	for _, r := range records {
		log.Debug("e820", "area", r)
	}
	log.Info("memory map", "records", len(records), "usable", bios.UsableBytes(records))

	h, err := placeHandoff(env.Image, desc, con)
	if err != nil {
		return nil, err
	}
	log.Info("handoff placed", "table", fmt.Sprintf("%#x", h.Addr()))
	return h, nil
}

// placeHandoff copies the memory map into the image and records it, with
// the console buffer, in a new handoff table.
func placeHandoff(img Allocator, desc bios.ArrayLike[bios.LongE820], con *vga.Console) (*HandoffTable, error) {
	const word = unsafe.Sizeof(uintptr(0))

	at, err := img.Alloc(vtable.Size[HandoffSlots](), word)
	if err != nil {
		return nil, fmt.Errorf("boot: handoff table: %w", err)
	}
	h, err := PlaceHandoff(at)
	if err != nil {
		return nil, fmt.Errorf("boot: handoff table: %w", err)
	}

	mapAt, err := img.Alloc(max(desc.Bytes(), 1), word)
	if err != nil {
		return nil, fmt.Errorf("boot: memory map copy: %w", err)
	}
	dst, err := bios.ArrayLike[bios.LongE820]{Data: mapAt, Size: desc.Size}.Slice()
	if err != nil {
		return nil, fmt.Errorf("boot: memory map copy: %w", err)
	}
	n, err := bios.CopyE820(dst, desc)
	if err != nil {
		return nil, fmt.Errorf("boot: memory map copy: %w", err)
	}

	end := mapAt + uintptr(n)*bios.LongE820Size
	if err := SetMemoryMapOn(h, vtable.Addr(mapAt)); err != nil {
		return nil, err
	}
	if err := SetMemoryMapEndOn(h, vtable.Addr(end)); err != nil {
		return nil, err
	}
	if err := SetTextBufferOn(h, vtable.Addr(con.Addr())); err != nil {
		return nil, err
	}
	return h, nil
}

// MemoryMap returns the memory map recorded in h, wherever h now sits.
func MemoryMap(h *HandoffTable) (bios.ArrayLike[bios.LongE820], error) {
	start, err := MemoryMapOn(h)
	if err != nil {
		return bios.ArrayLike[bios.LongE820]{}, err
	}
	end, err := MemoryMapEndOn(h)
	if err != nil {
		return bios.ArrayLike[bios.LongE820]{}, err
	}
	if end < start || (end-start)%bios.LongE820Size != 0 {
		return bios.ArrayLike[bios.LongE820]{}, fmt.Errorf("%w: map spans %#x to %#x", bios.ErrDescriptor, start, end)
	}
	return bios.ArrayLike[bios.LongE820]{Data: uintptr(start), Size: uintptr(end-start) / bios.LongE820Size}, nil
}
