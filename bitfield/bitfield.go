// Package bitfield packs tagged struct fields into an integer and back.
//
// A field takes part when it carries a tag of the form `bitfield:",N"` (or
// `bitfield:"name,N"`, the name being ignored). Fields are laid out from
// bit 0 upward in declaration order, N bits each. Untagged fields are
// skipped. Supported kinds are bool and the integer kinds.
package bitfield

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Config bounds the packed representation.
type Config struct {
	// NumBits is the width of the target integer. Zero means 64.
	NumBits uint
}

func (c *Config) width() uint {
	if c == nil || c.NumBits == 0 {
		return 64
	}
	return c.NumBits
}

type field struct {
	index  int
	name   string
	offset uint
	bits   uint
}

// layout walks the tagged fields of t and assigns their bit offsets.
func layout(t reflect.Type, c *Config) ([]field, error) {
	var (
		fields []field
		offset uint
	)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("bitfield")
		if !ok {
			continue
		}
		_, width, found := strings.Cut(tag, ",")
		if !found {
			return nil, fmt.Errorf("bitfield: tag %q on %s has no width", tag, f.Name)
		}
		bits, err := strconv.ParseUint(width, 10, 8)
		if err != nil || bits > 64 {
			return nil, fmt.Errorf("bitfield: bad width %q on %s", width, f.Name)
		}
		if bits == 0 {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Bool:
			if bits != 1 {
				return nil, fmt.Errorf("bitfield: bool %s must be 1 bit, not %d", f.Name, bits)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		default:
			return nil, fmt.Errorf("bitfield: unsupported kind %v for %s", f.Type.Kind(), f.Name)
		}
		fields = append(fields, field{index: i, name: f.Name, offset: offset, bits: uint(bits)})
		offset += uint(bits)
	}
	if w := c.width(); offset > w {
		return nil, fmt.Errorf("bitfield: %s needs %d bits, only %d available", t, offset, w)
	}
	return fields, nil
}

func mask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}

func structValue(x any) (reflect.Value, error) {
	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("bitfield: expected struct, got %v", v.Kind())
	}
	return v, nil
}

// Pack packs the tagged fields of x, a struct or pointer to one. A value
// too wide for its field, or a negative signed value, is an error.
func Pack(x any, c *Config) (uint64, error) {
	v, err := structValue(x)
	if err != nil {
		return 0, err
	}
	fields, err := layout(v.Type(), c)
	if err != nil {
		return 0, err
	}

	var packed uint64
	for _, f := range fields {
		fv := v.Field(f.index)
		var bits uint64
		switch fv.Kind() {
		case reflect.Bool:
			if fv.Bool() {
				bits = 1
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n := fv.Int()
			if n < 0 {
				return 0, fmt.Errorf("bitfield: negative value %d for %s", n, f.name)
			}
			bits = uint64(n)
		default:
			bits = fv.Uint()
		}
		if bits&^mask(f.bits) != 0 {
			return 0, fmt.Errorf("bitfield: value %#x for %s exceeds %d bits", bits, f.name, f.bits)
		}
		packed |= bits << f.offset
	}
	return packed, nil
}

// Unpack stores the fields packed in packed into *x. Bits above the last
// field are ignored.
func Unpack(packed uint64, x any, c *Config) error {
	v := reflect.ValueOf(x)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bitfield: Unpack needs a non-nil struct pointer, got %T", x)
	}
	v = v.Elem()
	fields, err := layout(v.Type(), c)
	if err != nil {
		return err
	}
	for _, f := range fields {
		bits := packed >> f.offset & mask(f.bits)
		fv := v.Field(f.index)
		switch fv.Kind() {
		case reflect.Bool:
			fv.SetBool(bits != 0)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(int64(bits))
		default:
			fv.SetUint(bits)
		}
	}
	return nil
}
