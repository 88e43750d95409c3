package boot_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndah4x0r/magnetite-os/bios"
	"github.com/johndah4x0r/magnetite-os/boot"
	"github.com/johndah4x0r/magnetite-os/config"
	"github.com/johndah4x0r/magnetite-os/internal/arena"
	"github.com/johndah4x0r/magnetite-os/internal/machine"
	"github.com/johndah4x0r/magnetite-os/klog"
	"github.com/johndah4x0r/magnetite-os/vtable"
)

func newMachine(t *testing.T, cfg config.Config) *machine.Machine {
	t.Helper()
	m, err := machine.New(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func hostLog(buf *bytes.Buffer) *slog.Logger {
	return slog.New(klog.NewHandler(buf, &klog.Options{Level: slog.LevelDebug}))
}

func TestMainGreets(t *testing.T) {
	cfg := config.Default()
	m := newMachine(t, cfg)
	var host bytes.Buffer

	h, err := boot.Main(m.BootEnv(hostLog(&host)))
	require.NoError(t, err)

	rows := cfg.Console.Rows
	for i, want := range strings.Split(boot.Greeting, "\n") {
		line := m.Console.Line(rows - 3 + i)
		t.Logf("row %d: %q", rows-3+i, strings.TrimRight(line, " "))
		assert.Equal(t, want, strings.TrimRight(line, " "))
	}
	assert.Equal(t, strings.Repeat(" ", cfg.Console.Cols), m.Console.Line(0))

	line := string(m.UART.Transmitted())
	t.Logf("serial:\n%s", line)
	assert.Contains(t, line, "boot volume stage=boot oem=MAGNETIT label=MAGNETITE fs=FAT12 sectors=2880 bootdev=0x80\r\n")
	assert.Contains(t, line, "memory map stage=boot records=6 usable=133692416\r\n")
	assert.NotContains(t, line, "e820", "debug records stay off the line at info")
	assert.Contains(t, host.String(), "e820 stage=boot area=")

	assert.True(t, m.Image.Contains(h.Addr()))
}

func TestHandoffTable(t *testing.T) {
	m := newMachine(t, config.Default())
	h, err := boot.Main(m.BootEnv(nil))
	require.NoError(t, err)

	desc, err := boot.MemoryMap(h)
	require.NoError(t, err)
	orig := *bios.DescriptorAt[bios.LongE820](m.E820)
	assert.NotEqual(t, orig.Data, desc.Data, "the map is copied into the image")
	assert.Equal(t, orig.Size, desc.Size)

	records, err := desc.Slice()
	require.NoError(t, err)
	assert.Equal(t, machine.MemoryMap, records)

	text, err := boot.TextBufferOn(h)
	require.NoError(t, err)
	assert.Equal(t, vtable.Addr(m.Console.Addr()), text)

	base, first := h.Initialize()
	assert.False(t, first, "Set*On recorded the base")
	assert.Equal(t, h.Addr(), base)
}

func TestMainIncompleteEnv(t *testing.T) {
	_, err := boot.Main(&boot.Env{})
	assert.ErrorIs(t, err, boot.ErrEnv)
}

func TestMainWithoutSerial(t *testing.T) {
	m := newMachine(t, config.Default())
	m.UART.NoEcho = true
	var host bytes.Buffer

	_, err := boot.Main(m.BootEnv(hostLog(&host)))
	require.NoError(t, err, "a dead UART does not stop the boot")
	t.Logf("host log:\n%s", host.String())
	assert.Contains(t, host.String(), "serial line unavailable")
	assert.Contains(t, host.String(), "memory map stage=boot records=6")
	assert.False(t, m.Port.Initialized())
}

func TestMainSkipsLoopbackCheck(t *testing.T) {
	cfg := config.Default()
	cfg.Serial.LoopbackCheck = false
	m := newMachine(t, cfg)
	m.UART.NoEcho = true

	_, err := boot.Main(m.BootEnv(nil))
	require.NoError(t, err)
	assert.True(t, m.Port.Initialized())
	assert.Contains(t, string(m.UART.Transmitted()), "memory map")
}

func TestMemoryMapRejectsBadSpan(t *testing.T) {
	a, err := arena.New(arena.PageSize)
	require.NoError(t, err)
	defer a.Close()
	at, err := a.Alloc(vtable.Size[boot.HandoffSlots](), unsafe.Alignof(uintptr(0)))
	require.NoError(t, err)
	h, err := boot.PlaceHandoff(at)
	require.NoError(t, err)

	tests := []struct {
		name       string
		start, end uintptr
	}{
		{"reversed", 0x2000, 0x1000},
		{"partial record", 0x1000, 0x1000 + bios.LongE820Size + 1},
	}
	for _, tt := range tests {
		require.NoError(t, boot.SetMemoryMapOn(h, vtable.Addr(tt.start)))
		require.NoError(t, boot.SetMemoryMapEndOn(h, vtable.Addr(tt.end)))
		_, err := boot.MemoryMap(h)
		assert.ErrorIs(t, err, bios.ErrDescriptor, tt.name)
	}
}
