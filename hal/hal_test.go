package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndah4x0r/magnetite-os/internal/arena"
	"github.com/johndah4x0r/magnetite-os/internal/portbus"
	"github.com/johndah4x0r/magnetite-os/vtable"
)

type scratch [4]uint8

func (s *scratch) ReadPort(off uint16) uint8     { return s[off] }
func (s *scratch) WritePort(off uint16, v uint8) { s[off] = v }

func lowBytePlusThree(port uint16) uint8 { return uint8(port&0xff) + 3 }

func TestDefaultsReachBus(t *testing.T) {
	var dev scratch
	require.NoError(t, portbus.Default.Attach(0x80, 4, &dev))
	t.Cleanup(func() { portbus.Default.Detach(0x80) })

	require.NoError(t, OutD(0x80, 0x04030201))
	assert.Equal(t, scratch{1, 2, 3, 4}, dev)

	b, err := InB(0x83)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), b)

	w, err := InW(0x81)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0302), w)

	require.NoError(t, OutW(0x80, 0xbeef))
	require.NoError(t, OutB(0x82, 0x7f))
	d, err := InD(0x80)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x047fbeef), d)

	b, err = InB(0x90)
	require.NoError(t, err)
	assert.Equal(t, uint8(portbus.Float), b)
}

func TestSwapInB(t *testing.T) {
	t.Cleanup(func() { require.NoError(t, Reset()) })

	require.NoError(t, SetInB(lowBytePlusThree))
	got, err := InB(0x3f8)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xfb), got)

	require.NoError(t, Reset())
	got, err = InB(0x3f8)
	require.NoError(t, err)
	assert.Equal(t, uint8(portbus.Float), got, "reset restores the bus default")
}

func TestPlacedPortIO(t *testing.T) {
	a, err := arena.New(arena.PageSize)
	require.NoError(t, err)
	defer a.Close()

	addr, err := a.Alloc(vtable.Size[PortIOSlots](), 8)
	require.NoError(t, err)
	tbl, err := PlacePortIO(addr)
	require.NoError(t, err)

	require.NoError(t, SetInBOn(tbl, lowBytePlusThree))
	got, err := InBOn(tbl, 0x3f8)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xfb), got)
	assert.Equal(t, addr, tbl.Base())

	// the static table is untouched
	raw, err := vtable.Peek(&PortIO, PortIOInB)
	require.NoError(t, err)
	assert.Equal(t, vtable.FnOf[InBFn](softInB), raw)
}

func TestSlotIDs(t *testing.T) {
	ids := []vtable.SlotID{
		PortIOInB.ID(), PortIOInW.ID(), PortIOInD.ID(),
		PortIOOutB.ID(), PortIOOutW.ID(), PortIOOutD.ID(),
	}
	for i, id := range ids {
		assert.Equal(t, vtable.SlotID(i), id)
	}
	assert.Equal(t, "outd", PortIOOutD.Name())
}
