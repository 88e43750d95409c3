package bios

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndah4x0r/magnetite-os/internal/arena"
	"github.com/johndah4x0r/magnetite-os/mem"
)

func sampleBPB() BiosPB {
	pb := BiosPB{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		FATCount:          2,
		RootDirEntries:    224,
		Sectors:           2880,
		MediumType:        0xf0,
		SectorsPerFAT:     9,
		Heads:             2,
		DriveNumber:       0x80,
		Signature:         0x29,
		VolumeID:          0xdeadbeef,
	}
	copy(pb.OEMLabel[:], "MAGNETIT")
	copy(pb.VolumeLabel[:], "BOOT       ")
	copy(pb.Filesystem[:], "FAT12   ")
	return pb
}

func TestBPBLayout(t *testing.T) {
	assert.Equal(t, BPBSize, binary.Size(BiosPB{}))

	pb := sampleBPB()
	raw := pb.Encode()
	require.Len(t, raw, BPBSize)
	t.Logf("packed BPB: % x", raw)

	// spot-check packed offsets
	assert.Equal(t, uint16(512), binary.LittleEndian.Uint16(raw[8:]))
	assert.Equal(t, byte(2), raw[13], "FAT count follows reserved sectors")
	assert.Equal(t, uint32(0xdeadbeef), binary.LittleEndian.Uint32(raw[33:]))
	assert.Equal(t, "FAT12   ", string(raw[48:56]))

	back, err := DecodeBPB(raw)
	require.NoError(t, err)
	assert.Equal(t, pb, back)
	assert.Equal(t, "MAGNETIT", back.OEM())
	assert.Equal(t, "BOOT", back.Volume())
	assert.Equal(t, "FAT12", back.FSType())
	assert.Equal(t, uint32(2880), back.TotalSectors())

	back.Sectors, back.LargeSectors = 0, 1<<20
	assert.Equal(t, uint32(1<<20), back.TotalSectors())

	_, err = DecodeBPB(raw[:40])
	assert.Error(t, err)
}

func TestReadBPBFromMemory(t *testing.T) {
	a, err := arena.New(arena.PageSize)
	require.NoError(t, err)
	defer a.Close()

	addr, err := a.Alloc(BPBSize, 1)
	require.NoError(t, err)
	pb := sampleBPB()
	copy(a.Bytes()[addr-a.Base():], pb.Encode())

	got, err := ReadBPB(addr)
	require.NoError(t, err)
	assert.Equal(t, pb, got)

	_, err = ReadBPB(0)
	assert.Error(t, err)
}

func TestE820Records(t *testing.T) {
	assert.Equal(t, uintptr(LongE820Size), unsafe.Sizeof(LongE820{}))

	raw := make([]byte, ShortE820Size)
	binary.LittleEndian.PutUint64(raw[0:], 0x100000)
	binary.LittleEndian.PutUint64(raw[8:], 0x7ee0000)
	binary.LittleEndian.PutUint32(raw[16:], uint32(AreaUsable))
	short, err := DecodeShortE820(raw)
	require.NoError(t, err)
	long := short.Long()
	assert.Equal(t, LongE820{Base: 0x100000, Size: 0x7ee0000, Type: AreaUsable, ACPI: 1}, long)
	assert.True(t, long.Attr().Enabled)
	assert.Equal(t, uint64(0x7fe0000), long.End())
	t.Logf("record: %v", long)

	_, err = DecodeShortE820(raw[:19])
	assert.Error(t, err)

	assert.Equal(t, "acpi-nvs", AreaACPINVS.String())
	assert.Equal(t, "type-9", AreaType(9).String())
}

func TestACPIAttr(t *testing.T) {
	tests := []struct {
		attr ACPIAttr
		word uint32
	}{
		{ACPIAttr{}, 0},
		{ACPIAttr{Enabled: true}, 1},
		{ACPIAttr{NonVolatile: true}, 2},
		{ACPIAttr{Enabled: true, NonVolatile: true, Reserved: 1}, 7},
	}
	for _, tt := range tests {
		word, err := tt.attr.Pack()
		require.NoError(t, err)
		assert.Equal(t, tt.word, word)
		assert.Equal(t, tt.attr, LongE820{ACPI: tt.word}.Attr())
	}
}

func TestUsableBytes(t *testing.T) {
	m := []LongE820{
		{Base: 0, Size: 0x9fc00, Type: AreaUsable, ACPI: 1},
		{Base: 0x9fc00, Size: 0x400, Type: AreaReserved, ACPI: 1},
		{Base: 0x100000, Size: 0x100000, Type: AreaUsable, ACPI: 1},
		{Base: 0x200000, Size: 0x100000, Type: AreaUsable, ACPI: 0}, // ignored
	}
	assert.Equal(t, uint64(0x9fc00+0x100000), UsableBytes(m))
	assert.Zero(t, UsableBytes(nil))
}

func TestArrayLike(t *testing.T) {
	a, err := arena.New(arena.PageSize)
	require.NoError(t, err)
	defer a.Close()

	data, err := a.Alloc(3*LongE820Size, 8)
	require.NoError(t, err)
	desc := ArrayLike[LongE820]{Data: data, Size: 3}
	recs, err := desc.Slice()
	require.NoError(t, err)
	for i := range recs {
		recs[i] = LongE820{Base: uint64(i) << 20, Size: 1 << 20, Type: AreaUsable, ACPI: 1}
	}
	assert.Equal(t, uintptr(72), desc.Bytes())

	// the descriptor itself lives in raw memory too
	at, err := a.Alloc(unsafe.Sizeof(desc), 8)
	require.NoError(t, err)
	*DescriptorAt[LongE820](at) = desc
	again, err := DescriptorAt[LongE820](at).Slice()
	require.NoError(t, err)
	assert.Equal(t, recs, again)

	_, err = ArrayLike[LongE820]{}.Slice()
	assert.ErrorIs(t, err, ErrDescriptor)
	_, err = ArrayLike[LongE820]{Data: data + 1, Size: 1}.Slice()
	assert.ErrorIs(t, err, ErrDescriptor)

	assert.Equal(t, ArrayLike[int]{}, Describe[int](nil))
}

func TestCopyE820(t *testing.T) {
	a, err := arena.New(arena.PageSize)
	require.NoError(t, err)
	defer a.Close()

	data, err := a.Alloc(4*LongE820Size, 8)
	require.NoError(t, err)
	desc := ArrayLike[LongE820]{Data: data, Size: 4}
	src, err := desc.Slice()
	require.NoError(t, err)
	for i := range src {
		src[i] = LongE820{Base: uint64(i) * 0x1000, Size: 0x1000, Type: AreaType(i + 1), ACPI: 1}
	}

	dst := make([]LongE820, 2)
	n, err := CopyE820(dst, desc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, src[:2], dst)

	dst = make([]LongE820, 8)
	n, err = CopyE820(dst, desc)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, src, dst[:4])

	// copying a map onto itself overlaps
	n, err = CopyE820(src[1:], desc)
	assert.ErrorIs(t, err, mem.ErrOverlap)
	assert.Zero(t, n)

	_, err = CopyE820(dst, ArrayLike[LongE820]{})
	assert.ErrorIs(t, err, ErrDescriptor)
}
