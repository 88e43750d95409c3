// Package serial is a polling driver for 16550-compatible UARTs on the
// standard PC COM ports. All register access goes through the hal port I/O
// table; nothing here takes an interrupt.
package serial

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/johndah4x0r/magnetite-os/hal"
	"github.com/johndah4x0r/magnetite-os/internal/atomic"
	"github.com/johndah4x0r/magnetite-os/spin"
)

// BaudRate is the UART input clock divided by 16. Every supported rate
// divides it exactly.
const BaudRate = 115200

// Default COM port bases.
const (
	COM1 uint16 = 0x3f8
	COM2 uint16 = 0x2f8
	COM3 uint16 = 0x3e8
	COM4 uint16 = 0x2e8
)

// Ports lists the COM port bases, counted from zero.
var Ports = [4]uint16{COM1, COM2, COM3, COM4}

// Register offsets from the port base. Several share an offset and are told
// apart by direction or by DLAB.
const (
	RxBuf       = 0
	TxBuf       = 0
	DivisorLow  = 0
	IntEnable   = 1
	DivisorHigh = 1
	IntID       = 2
	FIFOCtl     = 2
	LineCtl     = 3
	ModemCtl    = 4
	LineStatus  = 5
	ModemStatus = 6
	Scratch     = 7
)

// Line status bits.
const (
	DataReady    = 1 << 0
	OverrunErr   = 1 << 1
	ParityErr    = 1 << 2
	FramingErr   = 1 << 3
	BreakInd     = 1 << 4
	THREmpty     = 1 << 5
	TxEmpty      = 1 << 6
	ImpendingErr = 1 << 7

	errBits = OverrunErr | ParityErr | FramingErr | ImpendingErr
)

// loopbackProbe is sent during Init and must come straight back.
const loopbackProbe = 0xae

var (
	ErrRate           = errors.New("serial: baud rate must divide 115200")
	ErrLoopback       = errors.New("serial: loopback self test failed")
	ErrNotInitialized = errors.New("serial: port not initialized")
	ErrLineStatus     = errors.New("serial: line error")
	ErrPort           = errors.New("serial: no such port")
	ErrBusy           = errors.New("serial: port in use")
)

// InitError reports why a port could not be brought up.
type InitError struct {
	Port uint16
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("serial: init port %#x: %v", e.Port, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// LineError reports the line status that stopped a transfer.
type LineError struct {
	Status uint8
}

func (e *LineError) Error() string {
	return fmt.Sprintf("serial: line status %#02x", e.Status)
}

func (e *LineError) Unwrap() error { return ErrLineStatus }

// Port is one UART. It starts uninitialized; transfers are refused until
// Init succeeds.
type Port struct {
	id    int
	base  uint16
	log   *slog.Logger
	ready uint32
	regs  spin.Lock[regs]

	io        *hal.PortIOTable
	skipProbe bool
}

// regs is the register window of one UART. It is only reached through the
// port's lock.
type regs struct {
	base uint16
	io   *hal.PortIOTable
}

func (r *regs) in(off uint16) (uint8, error) {
	return hal.InBOn(r.io, r.base+off)
}

func (r *regs) out(off uint16, v uint8) error {
	return hal.OutBOn(r.io, r.base+off, v)
}

// Option configures a Port.
type Option func(*Port)

// WithTable sends the port's I/O through t instead of the static table.
func WithTable(t *hal.PortIOTable) Option {
	return func(p *Port) { p.io = t }
}

// WithLogger logs port lifecycle events to l.
func WithLogger(l *slog.Logger) Option {
	return func(p *Port) { p.log = l }
}

// WithoutLoopbackCheck makes Init drain the probe byte without checking
// it, for UARTs whose loopback mode is broken.
func WithoutLoopbackCheck() Option {
	return func(p *Port) { p.skipProbe = true }
}

// New returns the uninitialized driver for COM port id (0 to 3).
func New(id int, opts ...Option) (*Port, error) {
	if id < 0 || id >= len(Ports) {
		return nil, fmt.Errorf("%w: COM%d", ErrPort, id+1)
	}
	p := NewAt(Ports[id], opts...)
	p.id = id
	return p, nil
}

// NewAt returns the uninitialized driver for a UART at base.
func NewAt(base uint16, opts ...Option) *Port {
	p := &Port{id: -1, base: base, io: &hal.PortIO}
	for _, o := range opts {
		o(p)
	}
	p.regs = spin.NewLock(regs{base: base, io: p.io})
	return p
}

func (p *Port) Base() uint16 { return p.base }

// ID returns the COM index, or -1 for a port made with NewAt.
func (p *Port) ID() int { return p.id }

func (p *Port) Initialized() bool {
	return atomic.Load(&p.ready) != 0
}

// Init programs the port for rate baud, 8 data bits, no parity, one stop
// bit, with FIFOs on, and checks it by looping a byte back. rate must
// divide BaudRate.
func (p *Port) Init(rate int) error {
	if rate <= 0 || BaudRate%rate != 0 {
		return &InitError{Port: p.base, Err: fmt.Errorf("%w: %d", ErrRate, rate)}
	}
	divisor := uint16(BaudRate / rate)

	g := p.regs.Acquire()
	defer g.Release()
	r := g.Data()
	atomic.Store(&p.ready, 0)

	steps := []struct {
		off uint16
		v   uint8
	}{
		{IntEnable, 0x00},                  // interrupts off
		{LineCtl, 0x80},                    // DLAB on
		{DivisorLow, uint8(divisor)},       // divisor, low byte first
		{DivisorHigh, uint8(divisor >> 8)}, // then high byte
		{LineCtl, 0x03},                    // 8N1, DLAB off
		{FIFOCtl, 0xc7},                    // enable and clear FIFOs, 14-byte threshold
		{ModemCtl, 0x03},                   // DTR, RTS
		{ModemCtl, 0x1e},                   // loopback
		{TxBuf, loopbackProbe},             // probe byte
	}
	for _, s := range steps {
		if err := r.out(s.off, s.v); err != nil {
			return &InitError{Port: p.base, Err: err}
		}
	}

	echo, err := r.in(RxBuf)
	if err != nil {
		return &InitError{Port: p.base, Err: err}
	}
	if echo != loopbackProbe && !p.skipProbe {
		return &InitError{Port: p.base, Err: fmt.Errorf("%w: sent %#02x, got %#02x", ErrLoopback, loopbackProbe, echo)}
	}

	// normal operation: loopback off, OUT1 and OUT2 on
	if err := r.out(ModemCtl, 0x0f); err != nil {
		return &InitError{Port: p.base, Err: err}
	}
	atomic.Store(&p.ready, 1)

	if p.log != nil {
		p.log.Info("serial port ready", "port", fmt.Sprintf("%#x", p.base), "baud", rate, "divisor", divisor)
	}
	return nil
}
