package vector

import "github.com/grafana/colscan/pkg/types"

// initial per value estimate used when pre-sizing the data arena
const defaultValueWidth = 8

var _ SingularColumn = (*VarWidth)(nil)

// VarWidth is a column of byte strings. Values are copied into one arena and
// indexed by start/end offsets.
type VarWidth struct {
	field types.Field
	alloc *Allocator

	arena    []byte
	starts   []int32
	ends     []int32
	valid    validity
	count    int
	reserved int64
}

func NewVarWidth(field types.Field, alloc *Allocator) *VarWidth {
	return &VarWidth{field: field, alloc: alloc}
}

func (c *VarWidth) Field() types.Field { return c.field }
func (c *VarWidth) ValueCount() int    { return c.count }

func (c *VarWidth) nullable() bool {
	return c.field.Type.Mode != types.ModeRequired
}

func (c *VarWidth) footprint() int64 {
	return int64(cap(c.arena)) + int64(len(c.starts))*8 + c.valid.bytes()
}

func (c *VarWidth) charge(limit bool) error {
	extra := c.footprint() - c.reserved
	if extra <= 0 {
		return nil
	}
	if limit {
		if err := c.alloc.Reserve(extra); err != nil {
			return err
		}
	} else {
		c.alloc.force(extra)
	}
	c.reserved += extra
	return nil
}

func (c *VarWidth) Allocate(n int) error {
	need := int64(n)*(8+defaultValueWidth) + int64((n+63)/64)*8 - c.reserved
	if need > 0 {
		if err := c.alloc.Reserve(need); err != nil {
			return err
		}
		c.reserved += need
	}
	c.count = 0
	c.arena = c.arena[:0]
	c.valid.reset()
	c.ensure(n)
	if cap(c.arena) < n*defaultValueWidth {
		c.arena = make([]byte, 0, n*defaultValueWidth)
	}
	_ = c.charge(false)
	return nil
}

func (c *VarWidth) ensure(n int) {
	if n <= len(c.starts) {
		return
	}
	size := len(c.starts) * 2
	if size < n {
		size = n
	}
	c.starts = append(c.starts, make([]int32, size-len(c.starts))...)
	c.ends = append(c.ends, make([]int32, size-len(c.ends))...)
	c.valid.grow(size)
	_ = c.charge(false)
}

func (c *VarWidth) SetValueCount(n int) {
	c.ensure(n)
	c.count = n
}

// Set copies b into the arena and points slot i at it.
func (c *VarWidth) Set(i int, b []byte) {
	c.ensure(i + 1)
	before := cap(c.arena)
	start := len(c.arena)
	c.arena = append(c.arena, b...)
	c.starts[i] = int32(start)
	c.ends[i] = int32(len(c.arena))
	c.valid.set(i)
	if i >= c.count {
		c.count = i + 1
	}
	if cap(c.arena) != before {
		_ = c.charge(false)
	}
}

func (c *VarWidth) SetString(i int, s string) {
	c.Set(i, []byte(s))
}

func (c *VarWidth) SetNull(i int) {
	c.ensure(i + 1)
	c.starts[i], c.ends[i] = 0, 0
	c.valid.unset(i)
	if i >= c.count {
		c.count = i + 1
	}
}

// Get returns a view into the arena, valid until the next Allocate.
func (c *VarWidth) Get(i int) []byte {
	return c.arena[c.starts[i]:c.ends[i]]
}

func (c *VarWidth) IsNull(i int) bool {
	if !c.nullable() {
		return false
	}
	return !c.valid.isSet(i)
}

func (c *VarWidth) Object(i int) any {
	if c.IsNull(i) {
		return nil
	}
	if c.field.Type.Minor == types.MinorVarChar {
		return string(c.Get(i))
	}
	return append([]byte(nil), c.Get(i)...)
}

func (c *VarWidth) Reader(i int) SingularReader {
	return singularReader{col: c, idx: i}
}

func (c *VarWidth) AllocatedBytes() int64 { return c.reserved }

func (c *VarWidth) Clear() {
	c.alloc.Release(c.reserved)
	c.reserved = 0
	c.arena = nil
	c.starts = nil
	c.ends = nil
	c.valid = validity{}
	c.count = 0
}
