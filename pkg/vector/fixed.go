package vector

import (
	"unsafe"

	"github.com/grafana/colscan/pkg/types"
)

type fixedValue interface {
	~bool | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

var _ SingularColumn = (*Fixed[int64])(nil)

// Fixed is a column of fixed width values. Optional columns track nulls in a
// validity bitmap; required columns never report a null.
type Fixed[T fixedValue] struct {
	field types.Field
	alloc *Allocator

	values   []T
	valid    validity
	count    int
	reserved int64
}

func NewFixed[T fixedValue](field types.Field, alloc *Allocator) *Fixed[T] {
	return &Fixed[T]{field: field, alloc: alloc}
}

func (c *Fixed[T]) Field() types.Field { return c.field }
func (c *Fixed[T]) ValueCount() int    { return c.count }

func (c *Fixed[T]) width() int64 {
	var zero T
	return int64(unsafe.Sizeof(zero))
}

func (c *Fixed[T]) nullable() bool {
	return c.field.Type.Mode == types.ModeOptional
}

func (c *Fixed[T]) footprint(n int) int64 {
	b := int64(n) * c.width()
	if c.nullable() {
		b += int64((n+63)/64) * 8
	}
	return b
}

func (c *Fixed[T]) Allocate(n int) error {
	c.count = 0
	c.valid.reset()
	if need := c.footprint(n) - c.reserved; need > 0 {
		if err := c.alloc.Reserve(need); err != nil {
			return err
		}
		c.reserved += need
	}
	c.ensure(n)
	return nil
}

// ensure grows storage to hold n values, charging anything past the
// reservation to the allocator.
func (c *Fixed[T]) ensure(n int) {
	if n <= len(c.values) {
		return
	}
	size := len(c.values) * 2
	if size < n {
		size = n
	}
	grown := make([]T, size)
	copy(grown, c.values)
	c.values = grown
	if c.nullable() {
		c.valid.grow(size)
	}
	if extra := c.footprint(size) - c.reserved; extra > 0 {
		c.alloc.force(extra)
		c.reserved += extra
	}
}

func (c *Fixed[T]) SetValueCount(n int) {
	c.ensure(n)
	c.count = n
}

// Set stores v at i. Writing past the current length extends it.
func (c *Fixed[T]) Set(i int, v T) {
	c.ensure(i + 1)
	c.values[i] = v
	if c.nullable() {
		c.valid.set(i)
	}
	if i >= c.count {
		c.count = i + 1
	}
}

// SetNull marks i as null. On a required column the slot is zeroed instead.
func (c *Fixed[T]) SetNull(i int) {
	c.ensure(i + 1)
	var zero T
	c.values[i] = zero
	if c.nullable() {
		c.valid.unset(i)
	}
	if i >= c.count {
		c.count = i + 1
	}
}

func (c *Fixed[T]) Get(i int) T {
	return c.values[i]
}

func (c *Fixed[T]) IsNull(i int) bool {
	if !c.nullable() {
		return false
	}
	return !c.valid.isSet(i)
}

func (c *Fixed[T]) Object(i int) any {
	if c.IsNull(i) {
		return nil
	}
	return c.values[i]
}

// Values returns the live slice of the current batch.
func (c *Fixed[T]) Values() []T {
	return c.values[:c.count]
}

func (c *Fixed[T]) Reader(i int) SingularReader {
	return singularReader{col: c, idx: i}
}

func (c *Fixed[T]) AllocatedBytes() int64 { return c.reserved }

func (c *Fixed[T]) Clear() {
	c.alloc.Release(c.reserved)
	c.reserved = 0
	c.values = nil
	c.valid = validity{}
	c.count = 0
}
