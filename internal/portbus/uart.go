package portbus

import "github.com/johndah4x0r/magnetite-os/spin"

// 16550 register offsets and bits the model cares about.
const (
	regData   = 0
	regIER    = 1
	regFIFO   = 2
	regLCR    = 3
	regMCR    = 4
	regLSR    = 5
	regMSR    = 6
	regScr    = 7
	uartSpan  = 8
	lcrDLAB   = 0x80
	mcrLoop   = 0x10
	fcrEnable = 0x01
	fcrClrRX  = 0x02
	lsrDR     = 0x01
	lsrTHRE   = 0x20
	lsrTEMT   = 0x40
)

// UART16550 models the register file of a 16550 closely enough for a
// polling driver: divisor latch, line and modem control, loopback, the
// receive FIFO and line status. Transmitted bytes are captured.
//
// Line error bits raised with SetLineError stay up until ClearLineError.
// Real parts clear them when LSR is read.
type UART16550 struct {
	mu spin.Mutex

	dll, dlm uint8
	ier, fcr uint8
	lcr, mcr uint8
	scr      uint8
	lineErr  uint8

	rx []byte
	tx []byte

	// NoEcho makes loopback swallow bytes, which fails a driver's
	// loopback self test.
	NoEcho bool
}

// AttachUART puts a fresh UART at base on b and returns it.
func AttachUART(b *Bus, base uint16) (*UART16550, error) {
	u := &UART16550{}
	if err := b.Attach(base, uartSpan, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *UART16550) ReadPort(off uint16) uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()
	dlab := u.lcr&lcrDLAB != 0
	switch off {
	case regData:
		if dlab {
			return u.dll
		}
		if len(u.rx) == 0 {
			return 0
		}
		c := u.rx[0]
		u.rx = u.rx[1:]
		return c
	case regIER:
		if dlab {
			return u.dlm
		}
		return u.ier
	case regFIFO:
		// no interrupt pending; FIFOs reported when enabled
		if u.fcr&fcrEnable != 0 {
			return 0xc1
		}
		return 0x01
	case regLCR:
		return u.lcr
	case regMCR:
		return u.mcr
	case regLSR:
		lsr := uint8(lsrTHRE|lsrTEMT) | u.lineErr
		if len(u.rx) > 0 {
			lsr |= lsrDR
		}
		return lsr
	case regMSR:
		return 0
	case regScr:
		return u.scr
	}
	return Float
}

func (u *UART16550) WritePort(off uint16, v uint8) {
	u.mu.Lock()
	defer u.mu.Unlock()
	dlab := u.lcr&lcrDLAB != 0
	switch off {
	case regData:
		switch {
		case dlab:
			u.dll = v
		case u.mcr&mcrLoop != 0:
			if !u.NoEcho {
				u.rx = append(u.rx, v)
			}
		default:
			u.tx = append(u.tx, v)
		}
	case regIER:
		if dlab {
			u.dlm = v
		} else {
			u.ier = v & 0x0f
		}
	case regFIFO:
		u.fcr = v
		if v&fcrClrRX != 0 {
			u.rx = u.rx[:0]
		}
	case regLCR:
		u.lcr = v
	case regMCR:
		u.mcr = v & 0x1f
	case regScr:
		u.scr = v
	}
}

// Inject queues bytes as if they had arrived on the line.
func (u *UART16550) Inject(p ...byte) {
	u.mu.Lock()
	u.rx = append(u.rx, p...)
	u.mu.Unlock()
}

// Transmitted returns and clears the bytes sent on the line so far.
func (u *UART16550) Transmitted() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := append([]byte(nil), u.tx...)
	u.tx = u.tx[:0]
	return out
}

// Divisor returns the programmed baud divisor.
func (u *UART16550) Divisor() uint16 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return uint16(u.dlm)<<8 | uint16(u.dll)
}

// Registers returns LCR, MCR, FCR and IER as last written.
func (u *UART16550) Registers() (lcr, mcr, fcr, ier uint8) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lcr, u.mcr, u.fcr, u.ier
}

func (u *UART16550) SetLineError(bits uint8) {
	u.mu.Lock()
	u.lineErr |= bits & 0x9e
	u.mu.Unlock()
}

func (u *UART16550) ClearLineError() {
	u.mu.Lock()
	u.lineErr = 0
	u.mu.Unlock()
}
