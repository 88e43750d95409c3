// Package reloc re-bases addresses recorded against one load address onto
// another. An image that is copied whole to a new base keeps every internal
// address valid once each is shifted by the same amount; this package is the
// single place that shift is computed.
package reloc

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnsetBase means there is no old base to measure from.
	ErrUnsetBase = errors.New("reloc: old base is unset")
	// ErrOffsetRange means the distance from the old base does not fit a
	// signed machine word.
	ErrOffsetRange = errors.New("reloc: offset not representable")
	// ErrOverflow means the shifted address falls outside the address space.
	ErrOverflow = errors.New("reloc: translated address overflows")
)

// TranslationError carries the inputs of a failed translation.
type TranslationError struct {
	OldBase uintptr
	NewBase uintptr
	Ptr     uintptr
	cause   error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("%v (ptr %#x, base %#x -> %#x)", e.cause, e.Ptr, e.OldBase, e.NewBase)
}

func (e *TranslationError) Unwrap() error { return e.cause }

// Offset returns ptr - base as a signed machine word.
func Offset(base, ptr uintptr) (int, error) {
	if ptr >= base {
		d := ptr - base
		if d > math.MaxInt {
			return 0, ErrOffsetRange
		}
		return int(d), nil
	}
	d := base - ptr
	if d > math.MaxInt {
		return 0, ErrOffsetRange
	}
	return -int(d), nil
}

// Translate maps ptr, recorded relative to oldBase, to the same position
// relative to newBase.
//
// Equal bases return ptr untouched, whatever its value. Otherwise oldBase
// must be set (non-zero), the offset must fit a signed word, and the result
// must not leave the address space.
func Translate(oldBase, newBase, ptr uintptr) (uintptr, error) {
	if newBase == oldBase {
		return ptr, nil
	}
	if oldBase == 0 {
		return 0, &TranslationError{OldBase: oldBase, NewBase: newBase, Ptr: ptr, cause: ErrUnsetBase}
	}

	off, err := Offset(oldBase, ptr)
	if err != nil {
		return 0, &TranslationError{OldBase: oldBase, NewBase: newBase, Ptr: ptr, cause: err}
	}

	out, ok := addSigned(newBase, off)
	if !ok {
		return 0, &TranslationError{OldBase: oldBase, NewBase: newBase, Ptr: ptr, cause: ErrOverflow}
	}
	return out, nil
}

// TranslateAs is Translate over any address-shaped type.
func TranslateAs[P ~uintptr](oldBase, newBase uintptr, p P) (P, error) {
	out, err := Translate(oldBase, newBase, uintptr(p))
	return P(out), err
}

func addSigned(base uintptr, off int) (uintptr, bool) {
	if off >= 0 {
		out := base + uintptr(off)
		return out, out >= base
	}
	mag := uintptr(-off)
	if mag > base {
		return 0, false
	}
	return base - mag, true
}
