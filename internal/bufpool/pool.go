// Package bufpool provides rent/return byte-buffer pools and a generic
// object pool with prepare/release hooks, used by the transport and
// HTTP state machine to avoid per-request allocation.
package bufpool

import "sync"

// sizeClasses are the buffer sizes a Pool shards by. A Rent for n bytes
// is rounded up to the smallest class that fits; anything larger than
// the top class is allocated fresh and never pooled.
var sizeClasses = []int{512, 4096, 16384, 65536}

// Pool rents and returns byte slices, sharded by size class. It never
// blocks: on exhaustion (or for a request bigger than the largest
// class) it allocates a fresh slice.
type Pool struct {
	shards [len(sizeClasses)]sync.Pool
	zero   bool
}

// New creates a Pool. When zeroOnRent is true, rented buffers are
// zeroed before being handed out (costs a memset; off by default since
// the state machine overwrites the buffer before reading it).
func New(zeroOnRent bool) *Pool {
	p := &Pool{zero: zeroOnRent}
	for i, sz := range sizeClasses {
		sz := sz
		p.shards[i].New = func() any {
			return make([]byte, sz)
		}
	}
	return p
}

func classFor(n int) int {
	for i, sz := range sizeClasses {
		if n <= sz {
			return i
		}
	}
	return -1
}

// Rent returns a buffer with length n (capacity may exceed n). The
// returned slice must not be retained past the matching Return call.
func (p *Pool) Rent(n int) []byte {
	idx := classFor(n)
	var buf []byte
	if idx < 0 {
		buf = make([]byte, n)
	} else {
		buf = p.shards[idx].Get().([]byte)[:n]
	}
	if p.zero {
		for i := range buf {
			buf[i] = 0
		}
	}
	return buf
}

// Return gives a buffer back to the pool. The caller must not access
// buf after calling Return. Buffers whose capacity doesn't match an
// exact size class are dropped rather than pooled under the wrong
// class.
func (p *Pool) Return(buf []byte) {
	c := cap(buf)
	for i, sz := range sizeClasses {
		if c == sz {
			p.shards[i].Put(buf[:sz])
			return
		}
	}
	// not a pooled size class (oversized rent); let GC reclaim it.
}

// Preparer is implemented by objects managed through an ObjectPool.
type Preparer interface {
	// Prepare is invoked when the object is rented, before it is
	// handed to the caller.
	Prepare()
}

// Releaser is implemented by objects managed through an ObjectPool.
type Releaser interface {
	// Release is invoked when the object is returned. A false result
	// tells the pool to discard the instance instead of recycling it
	// (e.g. the object observed itself in a state it can't safely
	// reuse from).
	Release() bool
}

// ObjectPool pools arbitrary reusable objects that implement Preparer
// and Releaser, such as per-connection state. It never blocks: on
// exhaustion it constructs a fresh instance via New.
type ObjectPool[T interface {
	Preparer
	Releaser
}] struct {
	pool sync.Pool
	New  func() T
}

// NewObjectPool creates an ObjectPool backed by the given constructor.
func NewObjectPool[T interface {
	Preparer
	Releaser
}](newFn func() T) *ObjectPool[T] {
	op := &ObjectPool[T]{New: newFn}
	op.pool.New = func() any { return newFn() }
	return op
}

// Rent fetches an instance (fresh or reused) and calls Prepare on it.
func (op *ObjectPool[T]) Rent() T {
	v := op.pool.Get().(T)
	v.Prepare()
	return v
}

// Return calls Release on v; the instance is recycled only if Release
// reports true.
func (op *ObjectPool[T]) Return(v T) {
	if v.Release() {
		op.pool.Put(v)
	}
}
