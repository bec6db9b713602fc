package vector

import (
	"errors"
	"fmt"

	"go.uber.org/atomic"
)

// ErrOutOfMemory is returned when a reservation would take an Allocator past
// its limit.
var ErrOutOfMemory = errors.New("out of memory")

// Allocator accounts the bytes held by columns. A nil Allocator, or one with a
// limit <= 0, never refuses a reservation.
type Allocator struct {
	limit int64
	used  atomic.Int64
	peak  atomic.Int64
}

func NewAllocator(limit int64) *Allocator {
	return &Allocator{limit: limit}
}

// Reserve claims n bytes or fails with ErrOutOfMemory leaving the accounting
// untouched.
func (a *Allocator) Reserve(n int64) error {
	if a == nil || n <= 0 {
		return nil
	}
	for {
		cur := a.used.Load()
		next := cur + n
		if a.limit > 0 && next > a.limit {
			return fmt.Errorf("reserve %d bytes with %d of %d in use: %w", n, cur, a.limit, ErrOutOfMemory)
		}
		if a.used.CompareAndSwap(cur, next) {
			a.notePeak(next)
			return nil
		}
	}
}

// force claims n bytes regardless of the limit. Used for growth past what was
// reserved up front.
func (a *Allocator) force(n int64) {
	if a == nil || n <= 0 {
		return
	}
	a.notePeak(a.used.Add(n))
}

func (a *Allocator) Release(n int64) {
	if a == nil || n <= 0 {
		return
	}
	a.used.Sub(n)
}

func (a *Allocator) Allocated() int64 {
	if a == nil {
		return 0
	}
	return a.used.Load()
}

func (a *Allocator) Peak() int64 {
	if a == nil {
		return 0
	}
	return a.peak.Load()
}

func (a *Allocator) Limit() int64 {
	if a == nil {
		return 0
	}
	return a.limit
}

func (a *Allocator) notePeak(v int64) {
	for {
		p := a.peak.Load()
		if v <= p || a.peak.CompareAndSwap(p, v) {
			return
		}
	}
}
