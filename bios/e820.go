package bios

import (
	"encoding/binary"
	"fmt"

	"github.com/johndah4x0r/magnetite-os/bitfield"
)

// Record sizes as returned by INT 15h, EAX=E820h.
const (
	ShortE820Size = 20
	LongE820Size  = 24
)

// AreaType classifies an E820 range.
type AreaType uint32

const (
	AreaUsable          AreaType = 1
	AreaReserved        AreaType = 2
	AreaACPIReclaimable AreaType = 3
	AreaACPINVS         AreaType = 4
	AreaBad             AreaType = 5
)

func (t AreaType) String() string {
	switch t {
	case AreaUsable:
		return "usable"
	case AreaReserved:
		return "reserved"
	case AreaACPIReclaimable:
		return "acpi-reclaimable"
	case AreaACPINVS:
		return "acpi-nvs"
	case AreaBad:
		return "bad"
	}
	return fmt.Sprintf("type-%d", uint32(t))
}

// ACPIAttr is the extended attribute word of a 24-byte record.
type ACPIAttr struct {
	// Enabled clear means the record should be ignored.
	Enabled     bool   `bitfield:",1"`
	NonVolatile bool   `bitfield:",1"`
	Reserved    uint32 `bitfield:",30"`
}

var attrConfig = &bitfield.Config{NumBits: 32}

// Pack returns the attribute word.
func (a ACPIAttr) Pack() (uint32, error) {
	v, err := bitfield.Pack(a, attrConfig)
	return uint32(v), err
}

// ShortE820 is a 20-byte record, from firmware that predates ACPI 3.0.
type ShortE820 struct {
	Base uint64
	Size uint64
	Type AreaType
}

// LongE820 is a 24-byte record. Its Go layout matches the packed one, so
// a record array in memory can be used in place.
type LongE820 struct {
	Base uint64
	Size uint64
	Type AreaType
	ACPI uint32
}

// DecodeShortE820 decodes a packed 20-byte record.
func DecodeShortE820(b []byte) (ShortE820, error) {
	var e ShortE820
	if len(b) < ShortE820Size {
		return e, fmt.Errorf("bios: short E820 record needs %d bytes, have %d", ShortE820Size, len(b))
	}
	_, err := binary.Decode(b[:ShortE820Size], binary.LittleEndian, &e)
	return e, err
}

// Long widens a short record. Short records carry no attributes, so the
// result is marked enabled.
func (e ShortE820) Long() LongE820 {
	return LongE820{Base: e.Base, Size: e.Size, Type: e.Type, ACPI: 1}
}

func (e LongE820) End() uint64 { return e.Base + e.Size }

// Attr unpacks the attribute word.
func (e LongE820) Attr() ACPIAttr {
	var a ACPIAttr
	if err := bitfield.Unpack(uint64(e.ACPI), &a, attrConfig); err != nil {
		panic(err) // ACPIAttr is a fixed layout
	}
	return a
}

func (e LongE820) String() string {
	return fmt.Sprintf("[%#012x-%#012x) %s", e.Base, e.End(), e.Type)
}

// UsableBytes sums the usable ranges of a map, skipping records whose
// enabled bit is clear.
func UsableBytes(entries []LongE820) uint64 {
	var total uint64
	for _, e := range entries {
		if e.Type == AreaUsable && e.Attr().Enabled {
			total += e.Size
		}
	}
	return total
}
