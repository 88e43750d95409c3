// Package kern is the kernel entry. It owns nothing the boot stage set up
// except the handoff table, which it reaches wherever the image was moved.
package kern

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/johndah4x0r/magnetite-os/bios"
	"github.com/johndah4x0r/magnetite-os/boot"
	"github.com/johndah4x0r/magnetite-os/vga"
)

var (
	ErrNoHandoff = errors.New("kern: no handoff table")
	ErrNoMemory  = errors.New("kern: no usable memory")
)

// Env is what the boot stage passes on.
type Env struct {
	Handoff *boot.HandoffTable
	// Console geometry; the buffer address comes from the handoff table.
	Cols, Rows int
	Log        *slog.Logger
}

// Memory summarizes the memory map the kernel received.
type Memory struct {
	Records int
	Usable  uint64
}

// Main reads the handoff table, reports usable memory on the console and
// in the log, and returns the summary.
func Main(env *Env) (Memory, error) {
	if env.Handoff == nil {
		return Memory{}, ErrNoHandoff
	}
	log := env.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("stage", "kern")

	base, first := env.Handoff.Initialize()
	log.Debug("handoff table", "at", fmt.Sprintf("%#x", env.Handoff.Addr()), "base", fmt.Sprintf("%#x", base), "first use", first)

	desc, err := boot.MemoryMap(env.Handoff)
	if err != nil {
		return Memory{}, fmt.Errorf("kern: %w", err)
	}
	records, err := desc.Slice()
	if err != nil {
		return Memory{}, fmt.Errorf("kern: memory map: %w", err)
	}
	m := Memory{Records: len(records), Usable: bios.UsableBytes(records)}
	log.Info("memory", "records", m.Records, "usable", m.Usable)

	text, err := boot.TextBufferOn(env.Handoff)
	if err != nil {
		return m, fmt.Errorf("kern: %w", err)
	}
	if text != 0 && env.Cols > 0 && env.Rows > 0 {
		con := vga.New(uintptr(text), env.Cols, env.Rows)
		fmt.Fprintf(con, "\nkernel: %d KiB usable in %d areas", m.Usable>>10, m.Records)
	}

	if m.Usable == 0 {
		return m, ErrNoMemory
	}
	return m, nil
}
