package portbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// regs is a device with eight plain byte registers.
type regs [8]uint8

func (r *regs) ReadPort(off uint16) uint8     { return r[off] }
func (r *regs) WritePort(off uint16, v uint8) { r[off] = v }

func TestBusRouting(t *testing.T) {
	b := New()
	var r regs
	require.NoError(t, b.Attach(0x60, 8, &r))

	b.Out8(0x61, 0xaa)
	assert.Equal(t, uint8(0xaa), r[1])
	assert.Equal(t, uint8(0xaa), b.In8(0x61))
	assert.Equal(t, uint8(Float), b.In8(0x68), "unclaimed port floats high")
	b.Out8(0x70, 1) // dropped

	b.Out32(0x62, 0x44332211)
	assert.Equal(t, regs{0, 0xaa, 0x11, 0x22, 0x33, 0x44, 0, 0}, r)
	assert.Equal(t, uint16(0x2211), b.In16(0x62))
	assert.Equal(t, uint32(0x44332211), b.In32(0x62))
	assert.Equal(t, uint16(0xff00), b.In16(0x67), "straddling read mixes device and float")
}

func TestBusAttachRules(t *testing.T) {
	tests := []struct {
		name       string
		base, span uint16
		err        error
	}{
		{"overlap low", 0x3f0, 9, ErrConflict},
		{"overlap inside", 0x3fa, 1, ErrConflict},
		{"zero span", 0x100, 0, ErrSpan},
		{"past top", 0xfffc, 8, ErrSpan},
		{"adjacent", 0x400, 8, nil},
		{"top", 0xfff8, 8, nil},
	}
	b := New()
	require.NoError(t, b.Attach(0x3f8, 8, new(regs)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Attach(tt.base, tt.span, new(regs))
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.True(t, b.Detach(0x3f8))
	assert.False(t, b.Detach(0x3f8))
	assert.NoError(t, b.Attach(0x3f0, 9, new(regs)))
}

func TestUARTModel(t *testing.T) {
	b := New()
	u, err := AttachUART(b, 0x3f8)
	require.NoError(t, err)

	b.Out8(0x3f8+regLCR, lcrDLAB)
	b.Out8(0x3f8+regData, 0x03)
	b.Out8(0x3f8+regIER, 0x00)
	b.Out8(0x3f8+regLCR, 0x03)
	assert.Equal(t, uint16(3), u.Divisor())

	assert.Equal(t, uint8(lsrTHRE|lsrTEMT), b.In8(0x3f8+regLSR))
	b.Out8(0x3f8, 'h')
	b.Out8(0x3f8, 'i')
	assert.Equal(t, []byte("hi"), u.Transmitted())
	assert.Empty(t, u.Transmitted())

	u.Inject('o', 'k')
	assert.Equal(t, uint8(lsrDR), b.In8(0x3f8+regLSR)&lsrDR)
	assert.Equal(t, uint8('o'), b.In8(0x3f8))
	assert.Equal(t, uint8('k'), b.In8(0x3f8))
	assert.Zero(t, b.In8(0x3f8+regLSR)&lsrDR)

	b.Out8(0x3f8+regMCR, 0x1e)
	b.Out8(0x3f8, 0xae)
	assert.Equal(t, uint8(0xae), b.In8(0x3f8), "loopback echoes")
	assert.Empty(t, u.Transmitted())

	u.SetLineError(0x02)
	assert.Equal(t, uint8(0x02), b.In8(0x3f8+regLSR)&0x02)
	u.ClearLineError()
	assert.Zero(t, b.In8(0x3f8+regLSR)&0x02)

	b.Out8(0x3f8+regFIFO, 0xc7)
	assert.Equal(t, uint8(0xc1), b.In8(0x3f8+regFIFO))
	lcr, mcr, fcr, ier := u.Registers()
	t.Logf("lcr=%#x mcr=%#x fcr=%#x ier=%#x", lcr, mcr, fcr, ier)
	assert.Equal(t, uint8(0x03), lcr)
	assert.Equal(t, uint8(0x1e), mcr)
}
