package bios

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/johndah4x0r/magnetite-os/mem"
)

var ErrDescriptor = errors.New("bios: invalid array descriptor")

// ArrayLike describes Size elements of T starting at Data. It is how one
// stage passes an array to the next: two machine words with a fixed
// layout, and no Go pointer.
type ArrayLike[T any] struct {
	Data uintptr
	Size uintptr
}

// Describe returns a descriptor for s. s must not be on the Go heap if the
// descriptor outlives it.
func Describe[T any](s []T) ArrayLike[T] {
	if len(s) == 0 {
		return ArrayLike[T]{}
	}
	return ArrayLike[T]{Data: uintptr(unsafe.Pointer(unsafe.SliceData(s))), Size: uintptr(len(s))}
}

// DescriptorAt views a descriptor stored at addr.
func DescriptorAt[T any](addr uintptr) *ArrayLike[T] {
	return (*ArrayLike[T])(unsafe.Pointer(addr))
}

func (a ArrayLike[T]) check() error {
	var zero T
	if a.Data == 0 {
		return fmt.Errorf("%w: null data", ErrDescriptor)
	}
	if a.Data%unsafe.Alignof(zero) != 0 {
		return fmt.Errorf("%w: data %#x not aligned to %d", ErrDescriptor, a.Data, unsafe.Alignof(zero))
	}
	return nil
}

// Slice returns the described elements in place. It fails on a null or
// misaligned data address; the length is trusted.
func (a ArrayLike[T]) Slice() ([]T, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(a.Data)), a.Size), nil
}

// Bytes is the size of the described array.
func (a ArrayLike[T]) Bytes() uintptr {
	var zero T
	return a.Size * unsafe.Sizeof(zero)
}

// CopyE820 copies as many records as fit from the map described by desc
// into dst, and returns how many it copied. The two must not overlap.
func CopyE820(dst []LongE820, desc ArrayLike[LongE820]) (int, error) {
	if err := desc.check(); err != nil {
		return 0, err
	}
	n := min(uintptr(len(dst)), desc.Size)
	if n == 0 {
		return 0, nil
	}
	size := n * LongE820Size
	d := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(dst))), size)
	src := unsafe.Slice((*byte)(unsafe.Pointer(desc.Data)), size)
	if _, err := mem.Copy(d, src); err != nil {
		return 0, fmt.Errorf("bios: copy E820 map: %w", err)
	}
	return int(n), nil
}
