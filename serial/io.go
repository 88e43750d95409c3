package serial

import (
	"github.com/johndah4x0r/magnetite-os/internal/atomic"
	"github.com/johndah4x0r/magnetite-os/spin"
)

const pollCycles = 30

// Mode controls how a transfer waits on the line.
type Mode uint8

const (
	// Wait polls for readiness before each byte once the transfer has
	// started.
	Wait Mode = 1 << iota
	// Fill keeps going until the buffer is done, even when the line is
	// not ready yet. A read with Fill blocks until len(buf) bytes arrive.
	Fill
)

// Guard is exclusive access to an initialized port. Release it when done.
type Guard struct {
	g spin.Guard[regs]
}

// Lock spins until the port is free and returns its guard. It fails if the
// port has not been initialized.
func (p *Port) Lock() (*Guard, error) {
	if !p.Initialized() {
		return nil, ErrNotInitialized
	}
	return &Guard{g: p.regs.Acquire()}, nil
}

// TryLock is Lock without the wait: it fails with ErrBusy if someone else
// holds the port.
func (p *Port) TryLock() (*Guard, error) {
	if !p.Initialized() {
		return nil, ErrNotInitialized
	}
	g, ok := p.regs.TryAcquire()
	if !ok {
		return nil, ErrBusy
	}
	return &Guard{g: g}, nil
}

// Busy reports whether a transfer or Init holds the port.
func (p *Port) Busy() bool {
	return p.regs.Locked()
}

func (g *Guard) Release() {
	g.g.Release()
}

func (g *Guard) status() (uint8, error) {
	return g.g.Data().in(LineStatus)
}

// lineFault returns a *LineError if any error bit is up.
func lineFault(lsr uint8) error {
	if lsr&errBits != 0 {
		return &LineError{Status: lsr}
	}
	return nil
}

// await polls LSR until bit is set.
func (g *Guard) await(bit uint8) error {
	for {
		lsr, err := g.status()
		if err != nil {
			return err
		}
		if lsr&bit != 0 {
			return nil
		}
		atomic.Procyield(pollCycles)
	}
}

// ReadBytes receives into buf. Without Fill it stops as soon as no byte is
// waiting. It always stops when buf is full or the line reports an error,
// and returns how many bytes were stored either way.
func (g *Guard) ReadBytes(buf []byte, mode Mode) (int, error) {
	n := 0
	for n < len(buf) {
		lsr, err := g.status()
		if err != nil {
			return n, err
		}
		if err := lineFault(lsr); err != nil {
			return n, err
		}
		if lsr&DataReady == 0 && mode&Fill == 0 {
			break
		}
		if mode&(Wait|Fill) != 0 {
			if err := g.await(DataReady); err != nil {
				return n, err
			}
		}
		c, err := g.g.Data().in(RxBuf)
		if err != nil {
			return n, err
		}
		buf[n] = c
		n++
	}
	return n, nil
}

// WriteBytes sends buf. Without Fill it stops as soon as the transmitter
// holding register is busy. It always stops at the end of buf or on a line
// error, and returns how many bytes went out either way.
func (g *Guard) WriteBytes(buf []byte, mode Mode) (int, error) {
	n := 0
	for n < len(buf) {
		lsr, err := g.status()
		if err != nil {
			return n, err
		}
		if err := lineFault(lsr); err != nil {
			return n, err
		}
		if lsr&THREmpty == 0 && mode&Fill == 0 {
			break
		}
		if mode&(Wait|Fill) != 0 {
			if err := g.await(THREmpty); err != nil {
				return n, err
			}
		}
		if err := g.g.Data().out(TxBuf, buf[n]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Read receives whatever is waiting, without blocking.
func (p *Port) Read(buf []byte) (int, error) {
	g, err := p.Lock()
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return g.ReadBytes(buf, 0)
}

// Write sends all of buf, waiting on the transmitter as needed. It makes
// Port an io.Writer, which is how the kernel log reaches the line.
func (p *Port) Write(buf []byte) (int, error) {
	g, err := p.Lock()
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return g.WriteBytes(buf, Fill)
}

func (p *Port) WriteString(s string) (int, error) {
	return p.Write([]byte(s))
}
