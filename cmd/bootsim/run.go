package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/johndah4x0r/magnetite-os/boot"
	"github.com/johndah4x0r/magnetite-os/config"
	"github.com/johndah4x0r/magnetite-os/hal"
	"github.com/johndah4x0r/magnetite-os/internal/atomic"
	"github.com/johndah4x0r/magnetite-os/internal/dumpfile"
	"github.com/johndah4x0r/magnetite-os/internal/machine"
	"github.com/johndah4x0r/magnetite-os/internal/portbus"
	"github.com/johndah4x0r/magnetite-os/kern"
	"github.com/johndah4x0r/magnetite-os/serial"
)

type options struct {
	screenshot string
	dump       string
	serial     bool
	pace       bool
	readers    int
	rounds     int
	stdout     io.Writer
}

// result is what a run observed.
type result struct {
	shift   int64
	memory  kern.Memory
	race    race
	console []uint16
}

func run(cfg *config.Config, opts *options, log *slog.Logger) (*result, error) {
	m, err := machine.New(cfg)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	h, err := boot.Main(m.BootEnv(log))
	if err != nil {
		return nil, err
	}

	shift, err := m.Relocate()
	if err != nil {
		return nil, fmt.Errorf("relocate image: %w", err)
	}
	log.Info("image relocated", "shift", fmt.Sprintf("%#x", shift), "base", fmt.Sprintf("%#x", m.Image.Base()))

	mem, err := kern.Main(&kern.Env{
		Handoff: machine.Handoff(h.Addr(), shift),
		Cols:    cfg.Console.Cols,
		Rows:    cfg.Console.Rows,
		Log:     log,
	})
	if err != nil {
		return nil, err
	}

	r, err := dispatchRace(m.Port.Base(), opts.readers, opts.rounds)
	if err != nil {
		return nil, err
	}
	log.Info("dispatch race", "readers", opts.readers, "dispatches", r.total, "traced", r.traced, "swaps", r.swaps)

	if opts.serial && opts.stdout != nil {
		w := opts.stdout
		if opts.pace {
			w = newLineRate(w, cfg.Serial.Baud)
		}
		if _, err := w.Write(m.UART.Transmitted()); err != nil {
			return nil, err
		}
	}
	if opts.screenshot != "" {
		if err := m.Console.SavePNG(opts.screenshot); err != nil {
			return nil, err
		}
		log.Info("screenshot written", "path", opts.screenshot)
	}
	if opts.dump != "" {
		if err := writeDump(m, opts.dump); err != nil {
			return nil, err
		}
		log.Info("dump written", "path", opts.dump)
	}
	return &result{shift: shift, memory: mem, race: r, console: m.Console.Snapshot()}, nil
}

func writeDump(m *machine.Machine, path string) error {
	f, err := dumpfile.Create(path)
	if err != nil {
		return err
	}
	if err := m.Console.Dump(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type race struct {
	total  int
	traced int32
	swaps  int
}

var tracedReads int32

// tracedInB is the vector the writer swaps in. It counts its calls and
// otherwise behaves like the default.
func tracedInB(port uint16) uint8 {
	atomic.Xaddint32(&tracedReads, 1)
	return portbus.Default.In8(port)
}

// dispatchRace has readers poll the line status of the UART at base through
// the static port I/O table while one writer keeps swapping the inb vector
// between tracedInB and the default. Every read must see a sane status
// whichever vector served it.
func dispatchRace(base uint16, readers, rounds int) (race, error) {
	atomic.Storeint32(&tracedReads, 0)
	defer hal.Reset()

	var g errgroup.Group
	done := make(chan struct{})
	var swaps int

	g.Go(func() error {
		for {
			select {
			case <-done:
				return nil
			default:
			}
			if err := hal.SetInB(tracedInB); err != nil {
				return err
			}
			if err := hal.Reset(); err != nil {
				return err
			}
			swaps++
		}
	})

	var readersDone errgroup.Group
	for range readers {
		readersDone.Go(func() error {
			for range rounds {
				lsr, err := hal.InB(base + serial.LineStatus)
				if err != nil {
					return err
				}
				if lsr&serial.THREmpty == 0 {
					return fmt.Errorf("line status %#02x: transmitter never empties", lsr)
				}
			}
			return nil
		})
	}
	rerr := readersDone.Wait()
	close(done)
	werr := g.Wait()
	if err := errors.Join(rerr, werr); err != nil {
		return race{}, err
	}
	return race{total: readers * rounds, traced: atomic.Loadint32(&tracedReads), swaps: swaps}, nil
}

// lineRate passes bytes on no faster than a serial line at the given baud
// rate would carry them: ten bit times per byte with 8N1 framing.
type lineRate struct {
	w   io.Writer
	lim *rate.Limiter
}

func newLineRate(w io.Writer, baud int) *lineRate {
	bps := max(baud/10, 1)
	return &lineRate{w: w, lim: rate.NewLimiter(rate.Limit(bps), min(bps, 64))}
}

func (l *lineRate) Write(p []byte) (int, error) {
	n := 0
	for len(p) > 0 {
		chunk := p[:min(len(p), l.lim.Burst())]
		if err := l.lim.WaitN(context.Background(), len(chunk)); err != nil {
			return n, err
		}
		m, err := l.w.Write(chunk)
		n += m
		if err != nil {
			return n, err
		}
		p = p[len(chunk):]
	}
	return n, nil
}
