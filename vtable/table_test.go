package vtable_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/johndah4x0r/magnetite-os/internal/arena"
	"github.com/johndah4x0r/magnetite-os/volatile"
	"github.com/johndah4x0r/magnetite-os/vtable"
)

type inbFn = func(port uint16) uint8

type portSet struct {
	InB  vtable.Entry[vtable.Fn[inbFn]]
	Data vtable.Entry[vtable.Addr]
}

var (
	slotInB  = vtable.DefineSlot(0, "inb", func(s *portSet) *vtable.Entry[vtable.Fn[inbFn]] { return &s.InB })
	slotData = vtable.DefineSlot(1, "data", func(s *portSet) *vtable.Entry[vtable.Addr] { return &s.Data })
)

func inbPlusThree(port uint16) uint8 { return uint8(port&0xff) + 3 }
func inbConstant(uint16) uint8      { return 0x42 }

func newPortTable() *vtable.Table[portSet] {
	t := vtable.New(portSet{InB: vtable.NewEntry(vtable.FnOf[inbFn](inbPlusThree))})
	return &t
}

func callInB(t *vtable.Table[portSet], port uint16) (uint8, error) {
	return vtable.Dispatch(t, slotInB, func(f vtable.Fn[inbFn]) uint8 {
		return f.Func()(port)
	})
}

func TestDispatchDefault(t *testing.T) {
	tbl := newPortTable()

	got, err := callInB(tbl, 0x3f8)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xfb), got)
	assert.Equal(t, tbl.Addr(), tbl.Base(), "first dispatch records the base")
	assert.Equal(t, int32(0), tbl.Readers())
}

func TestModifyThenDispatch(t *testing.T) {
	tbl := newPortTable()

	require.NoError(t, vtable.Modify(tbl, slotInB, vtable.FnOf[inbFn](inbConstant)))
	got, err := callInB(tbl, 0x3f8)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x42), got)

	require.NoError(t, vtable.Modify(tbl, slotInB, vtable.FnOf[inbFn](inbPlusThree)))
	got, err = callInB(tbl, 0x10)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x13), got)
}

func TestSequentialUseDoesNotDeadlock(t *testing.T) {
	tbl := newPortTable()
	for i := range 1000 {
		if i%10 == 0 {
			f := vtable.FnOf[inbFn](inbPlusThree)
			if i%20 == 0 {
				f = vtable.FnOf[inbFn](inbConstant)
			}
			require.NoError(t, vtable.Modify(tbl, slotInB, f))
		}
		_, err := callInB(tbl, uint16(i))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(0), tbl.Readers())
}

func TestModifyWaitsForReader(t *testing.T) {
	tbl := newPortTable()

	entered := make(chan struct{})
	release := make(chan struct{})
	result := make(chan uint8, 1)
	go func() {
		v, _ := vtable.Dispatch(tbl, slotInB, func(f vtable.Fn[inbFn]) uint8 {
			close(entered)
			<-release
			return f.Func()(0x3f8)
		})
		result <- v
	}()
	<-entered
	assert.Equal(t, int32(1), tbl.Readers())

	var modified atomic.Bool
	done := make(chan struct{})
	go func() {
		_ = vtable.Modify(tbl, slotInB, vtable.FnOf[inbFn](inbConstant))
		modified.Store(true)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, modified.Load(), "writer got in while a reader held the table")

	close(release)
	assert.Equal(t, uint8(0xfb), <-result, "in-flight dispatch keeps the vector it started with")
	<-done

	got, err := callInB(tbl, 0x3f8)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x42), got)
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	tbl := newPortTable()
	const rounds = 2000

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for i := range rounds {
				got, err := callInB(tbl, 0x3f8)
				if err != nil {
					return err
				}
				if got != 0xfb && got != 0x42 {
					t.Errorf("round %d: torn vector, got %#x", i, got)
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		fns := []vtable.Fn[inbFn]{vtable.FnOf[inbFn](inbConstant), vtable.FnOf[inbFn](inbPlusThree)}
		for i := range rounds / 4 {
			if err := vtable.Modify(tbl, slotInB, fns[i%2]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(0), tbl.Readers())
}

func TestInitialize(t *testing.T) {
	tbl := newPortTable()
	assert.Zero(t, tbl.Base())

	base, recorded := tbl.Initialize()
	assert.True(t, recorded)
	assert.Equal(t, tbl.Addr(), base)

	base, recorded = tbl.Initialize()
	assert.False(t, recorded)
	assert.Equal(t, tbl.Addr(), base)
}

func TestUndefinedSlot(t *testing.T) {
	tbl := newPortTable()
	var bogus vtable.Slot[portSet, vtable.Fn[inbFn]]
	assert.False(t, bogus.Valid())

	_, err := vtable.Dispatch(tbl, bogus, func(vtable.Fn[inbFn]) uint8 { return 0 })
	assert.ErrorIs(t, err, vtable.ErrUndefinedSlot)
	assert.ErrorIs(t, vtable.Modify(tbl, bogus, 0), vtable.ErrUndefinedSlot)
}

func TestDefineSlotRejectsForeignEntry(t *testing.T) {
	var stray vtable.Entry[vtable.Addr]
	assert.Panics(t, func() {
		vtable.DefineSlot(9, "stray", func(*portSet) *vtable.Entry[vtable.Addr] { return &stray })
	})
	assert.Equal(t, "data(1)", slotData.String())
	assert.Equal(t, vtable.SlotID(0), slotInB.ID())
	assert.Equal(t, "inb", slotInB.Name())
}

func TestPlaceRejectsBadAddress(t *testing.T) {
	_, err := vtable.Place(0, portSet{})
	assert.ErrorIs(t, err, vtable.ErrPlacement)
	_, err = vtable.Place(1, portSet{})
	assert.ErrorIs(t, err, vtable.ErrPlacement)
}

// An image holding a table and a buffer the table points at is copied to a
// second arena. Dispatch through the copy must land in the copied buffer.
func TestDispatchAfterRelocation(t *testing.T) {
	src, err := arena.New(arena.PageSize)
	require.NoError(t, err)
	defer src.Close()
	dst, err := arena.New(arena.PageSize)
	require.NoError(t, err)
	defer dst.Close()

	at, err := src.Alloc(vtable.Size[portSet](), 8)
	require.NoError(t, err)
	buf, err := src.Alloc(64, 8)
	require.NoError(t, err)

	tbl, err := vtable.Place(at, portSet{})
	require.NoError(t, err)
	_, recorded := tbl.Initialize()
	require.True(t, recorded)
	require.NoError(t, vtable.Modify(tbl, slotData, vtable.Addr(buf)))
	volatile.Write32(buf, 0xcafef00d)

	shift, err := arena.Relocate(dst, src)
	require.NoError(t, err)
	t.Logf("image moved by %#x", shift)

	moved := vtable.At[portSet](uintptr(int64(at) + shift))
	assert.Equal(t, at, moved.Base(), "recorded base travels with the image")

	got, err := vtable.Dispatch(moved, slotData, func(a vtable.Addr) vtable.Addr { return a })
	require.NoError(t, err)
	assert.Equal(t, vtable.Addr(int64(buf)+shift), got)
	assert.True(t, dst.Contains(uintptr(got)))
	assert.Equal(t, uint32(0xcafef00d), volatile.Read32(uintptr(got)))

	// A vector stored through the moved table is re-based back on dispatch.
	other, err := dst.Alloc(16, 8)
	require.NoError(t, err)
	require.NoError(t, vtable.Modify(moved, slotData, vtable.Addr(other)))
	got, err = vtable.Dispatch(moved, slotData, func(a vtable.Addr) vtable.Addr { return a })
	require.NoError(t, err)
	assert.Equal(t, vtable.Addr(other), got)

	raw, err := vtable.Peek(moved, slotData)
	require.NoError(t, err)
	assert.Equal(t, vtable.Addr(int64(other)-shift), raw)

	base, recorded := moved.Initialize()
	assert.False(t, recorded)
	assert.Equal(t, at, base)
}

type offsetPort struct{ off uint8 }

func (p offsetPort) inb(port uint16) uint8 { return uint8(port) + p.off }

func TestFnOfRejectsHeapFuncs(t *testing.T) {
	off := uint8(5)
	capture := func(port uint16) uint8 { return uint8(port) + off }
	p := offsetPort{off: 9}

	tests := []struct {
		name string
		f    inbFn
		ok   bool
	}{
		{"top-level", inbConstant, true},
		{"literal", func(uint16) uint8 { return 0 }, false},
		{"closure", capture, false},
		{"method value", p.inb, false},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		if !tt.ok {
			assert.Panics(t, func() { vtable.FnOf(tt.f) }, tt.name)
			continue
		}
		var v vtable.Fn[inbFn]
		assert.NotPanics(t, func() { v = vtable.FnOf(tt.f) }, tt.name)
		t.Logf("%s: %#x", tt.name, uintptr(v))
	}

	tbl := newPortTable()
	assert.Panics(t, func() { _ = vtable.Modify(tbl, slotInB, vtable.FnOf[inbFn](capture)) })
	got, err := callInB(tbl, 0x3f8)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xfb), got, "a rejected closure leaves the default in place")
}
