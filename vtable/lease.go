package vtable

import "github.com/johndah4x0r/magnetite-os/internal/atomic"

// spinCycles is how long a contended acquire waits between retries.
const spinCycles = 30

// lease is the reader/writer counter. n >= 0 is that many readers and no
// writer; n == -1 is exactly one writer. The writer only ever enters from 0
// through a single compare-and-swap.
//
// There is no fairness: a steady stream of readers keeps a writer out, and a
// writer that never releases stalls everyone. Waiting is pure spinning.
type lease struct {
	n int32
}

//go:nosplit
func (l *lease) acquireRead() {
	for {
		c := atomic.Loadint32(&l.n)
		if c >= 0 && atomic.Casint32(&l.n, c, c+1) {
			return
		}
		atomic.Procyield(spinCycles)
	}
}

//go:nosplit
func (l *lease) releaseRead() {
	atomic.Xaddint32(&l.n, -1)
}

//go:nosplit
func (l *lease) acquireWrite() {
	for !atomic.Casint32(&l.n, 0, -1) {
		atomic.Procyield(spinCycles)
	}
}

//go:nosplit
func (l *lease) releaseWrite() {
	atomic.Storeint32(&l.n, 0)
}

//go:nosplit
func (l *lease) count() int32 {
	return atomic.Loadint32(&l.n)
}
