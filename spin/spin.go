// Package spin provides a single-holder busy-wait lock for code that cannot
// block: the polling drivers and the port bus they talk to.
//
// The lock is unfair and burns cycles while it waits. Use it only where
// there is nothing to yield to.
package spin

import "github.com/johndah4x0r/magnetite-os/internal/atomic"

const spinCycles = 30

// Mutex is a spin lock. The zero value is unlocked. It satisfies
// sync.Locker.
type Mutex struct {
	state uint32
}

// Lock spins until the lock is held.
//
//go:nosplit
func (m *Mutex) Lock() {
	for !atomic.Cas(&m.state, 0, 1) {
		atomic.Procyield(spinCycles)
	}
}

// TryLock takes the lock only if it is free right now.
//
//go:nosplit
func (m *Mutex) TryLock() bool {
	return atomic.Cas(&m.state, 0, 1)
}

// Unlock releases the lock. It does not check who holds it, so it doubles
// as the forced release used when a holder has gone away.
//
//go:nosplit
func (m *Mutex) Unlock() {
	atomic.Store(&m.state, 0)
}

// Locked reports whether someone holds the lock.
func (m *Mutex) Locked() bool {
	return atomic.Load(&m.state) != 0
}

// Lock guards one value of type T. The value is only reachable through a
// Guard, and a Guard only exists while the lock is held.
type Lock[T any] struct {
	mu   Mutex
	data T
}

// NewLock returns an unlocked Lock holding v.
func NewLock[T any](v T) Lock[T] {
	return Lock[T]{data: v}
}

// Guard is proof of holding a Lock. Release it exactly once.
type Guard[T any] struct {
	l *Lock[T]
}

// Acquire spins until the lock is held and returns its guard.
func (l *Lock[T]) Acquire() Guard[T] {
	l.mu.Lock()
	return Guard[T]{l: l}
}

// TryAcquire returns a guard only if the lock was free.
func (l *Lock[T]) TryAcquire() (Guard[T], bool) {
	if !l.mu.TryLock() {
		return Guard[T]{}, false
	}
	return Guard[T]{l: l}, true
}

// Locked reports whether the lock is held.
func (l *Lock[T]) Locked() bool {
	return l.mu.Locked()
}

// Data returns the guarded value. The pointer must not outlive the guard.
func (g Guard[T]) Data() *T {
	return &g.l.data
}

// Release gives the lock back.
func (g Guard[T]) Release() {
	g.l.mu.Unlock()
}
