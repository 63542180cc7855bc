package codegen

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// MaxKernels caps the number of kernel ids one process may allocate. The cap
// is a safety valve against a runaway code path regenerating kernels inside a
// hot loop, not a real resource limit.
const MaxKernels = 10000

// ErrIdentityExhausted indicates the per-process kernel id ceiling was hit.
var ErrIdentityExhausted = errors.New("kernel identity space exhausted")

// Allocator hands out strictly increasing kernel ids starting at 0. It is
// safe for concurrent use; construct one per process and pass it to every
// generator instead of relying on hidden global state.
type Allocator struct {
	next atomic.Int64
}

// NewAllocator returns an allocator with no ids handed out yet.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Allocate returns the next kernel id. Once MaxKernels ids were handed out
// every further call fails.
func (a *Allocator) Allocate() (int, error) {
	id := a.next.Add(1) - 1
	if id >= MaxKernels {
		return 0, fmt.Errorf("%w: %d kernels already allocated", ErrIdentityExhausted, MaxKernels)
	}
	return int(id), nil
}

// Allocated returns how many ids were handed out so far.
func (a *Allocator) Allocated() int {
	n := a.next.Load()
	if n > MaxKernels {
		n = MaxKernels
	}
	return int(n)
}
