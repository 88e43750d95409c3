// Package bios holds the structures the PC BIOS and the first-stage loader
// hand to later stages: the BIOS parameter block, the E820 memory map, and
// the array descriptors used to pass both across the stage boundary.
package bios

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unsafe"
)

// BPBSize is the packed size of a BiosPB.
const BPBSize = 56

// BiosPB is the BIOS parameter block as the loader keeps it. On the wire
// it is packed and little-endian; decode it with DecodeBPB.
type BiosPB struct {
	OEMLabel          [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	FATCount          uint8
	RootDirEntries    uint16
	Sectors           uint16
	MediumType        uint8
	SectorsPerFAT     uint16
	Heads             uint8
	HiddenSectors     uint32
	LargeSectors      uint32
	DriveNumber       uint16
	Signature         uint8
	VolumeID          uint32
	VolumeLabel       [11]byte
	Filesystem        [8]byte
}

// DecodeBPB decodes the first BPBSize bytes of b.
func DecodeBPB(b []byte) (BiosPB, error) {
	var pb BiosPB
	if len(b) < BPBSize {
		return pb, fmt.Errorf("bios: parameter block needs %d bytes, have %d", BPBSize, len(b))
	}
	if _, err := binary.Decode(b[:BPBSize], binary.LittleEndian, &pb); err != nil {
		return pb, fmt.Errorf("bios: decode parameter block: %w", err)
	}
	return pb, nil
}

// ReadBPB decodes the parameter block at addr.
func ReadBPB(addr uintptr) (BiosPB, error) {
	if addr == 0 {
		return BiosPB{}, fmt.Errorf("bios: parameter block at null address")
	}
	return DecodeBPB(unsafe.Slice((*byte)(unsafe.Pointer(addr)), BPBSize))
}

// Encode returns the packed form of pb.
func (pb *BiosPB) Encode() []byte {
	b, err := binary.Append(make([]byte, 0, BPBSize), binary.LittleEndian, pb)
	if err != nil {
		panic(err) // fixed-size struct
	}
	return b
}

func (pb *BiosPB) OEM() string { return label(pb.OEMLabel[:]) }
func (pb *BiosPB) Volume() string { return label(pb.VolumeLabel[:]) }
func (pb *BiosPB) FSType() string { return label(pb.Filesystem[:]) }

// TotalSectors returns Sectors, or LargeSectors when the small count is 0.
func (pb *BiosPB) TotalSectors() uint32 {
	if pb.Sectors != 0 {
		return uint32(pb.Sectors)
	}
	return pb.LargeSectors
}

func label(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}
