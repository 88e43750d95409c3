package vtable

import (
	"reflect"
	"runtime"
	"strings"
	"unsafe"
)

// Vector is what a table entry holds: an address-shaped word. Function
// vectors and plain address vectors both satisfy it, and both are re-based
// the same way when the image they point into moves.
type Vector interface {
	~uintptr
}

// Addr is a vector that is a plain data address.
type Addr uintptr

// Fn is a function vector of type F. Its value is the address of the
// function's static closure descriptor, so it can be stored in raw memory,
// compared, and re-based like any other address.
//
// Only top-level functions and method expressions have static descriptors.
// Closures and method values live on the heap, where a word in raw memory
// does not keep them alive.
type Fn[F any] uintptr

// FnOf returns the vector for f. It panics if F is not a func type, or if f
// is a function literal or a method value. A nil f gives the zero vector.
func FnOf[F any](f F) Fn[F] {
	if reflect.TypeFor[F]().Kind() != reflect.Func {
		panic("vtable: FnOf needs a func value")
	}
	fv := *(*unsafe.Pointer)(unsafe.Pointer(&f))
	if fv == nil {
		return 0
	}
	if name, ok := static(*(*uintptr)(fv)); !ok {
		panic("vtable: FnOf needs a top-level function, got " + name)
	}
	return Fn[F](uintptr(fv))
}

// static reports whether the code at pc belongs to a function whose
// descriptor the linker emits: anything but a func literal, a go/defer
// wrapper, or a method value.
func static(pc uintptr) (string, bool) {
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "unknown function", false
	}
	name := f.Name()
	if strings.HasSuffix(name, "-fm") {
		return name, false
	}
	// literals are named outer.func1, outer.func1.2 or outer.gowrap1
	for _, part := range strings.Split(name[strings.LastIndexByte(name, '/')+1:], ".") {
		for _, p := range []string{"func", "gowrap"} {
			if n, ok := strings.CutPrefix(part, p); ok && n != "" && strings.Trim(n, "0123456789") == "" {
				return name, false
			}
		}
	}
	return name, true
}

// Func returns a callable F entering through v.
//
//go:nosplit
func (v Fn[F]) Func() F {
	return *(*F)(unsafe.Pointer(&v))
}
