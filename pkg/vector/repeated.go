package vector

import "github.com/grafana/colscan/pkg/types"

var _ RepeatedColumn = (*Repeated)(nil)

// Repeated stores a list per row as offsets into a required element column.
// Rows must be written in order starting at zero.
type Repeated struct {
	field    types.Field
	alloc    *Allocator
	elements SingularColumn

	offsets  []int32
	count    int
	reserved int64
}

func newRepeated(field types.Field, elements SingularColumn, alloc *Allocator) *Repeated {
	return &Repeated{field: field, alloc: alloc, elements: elements, offsets: []int32{0}}
}

func (c *Repeated) Field() types.Field       { return c.field }
func (c *Repeated) ValueCount() int          { return c.count }
func (c *Repeated) Elements() SingularColumn { return c.elements }

func (c *Repeated) Allocate(n int) error {
	need := int64(n+1)*4 - c.reserved
	if need > 0 {
		if err := c.alloc.Reserve(need); err != nil {
			return err
		}
		c.reserved += need
	}
	if err := c.elements.Allocate(n); err != nil {
		return err
	}
	c.count = 0
	c.offsets = c.offsets[:1]
	c.offsets[0] = 0
	return nil
}

// SetRow reserves n elements for row and returns the index of the first one in
// Elements. Rows skipped since the last call become empty lists.
func (c *Repeated) SetRow(row, n int) int {
	c.SetValueCount(row)
	start := int(c.offsets[row])
	c.offsets = append(c.offsets[:row+1], int32(start+n))
	c.count = row + 1
	c.elements.SetValueCount(start + n)
	c.track()
	return start
}

func (c *Repeated) SetValueCount(n int) {
	for len(c.offsets) < n+1 {
		c.offsets = append(c.offsets, c.offsets[len(c.offsets)-1])
	}
	c.offsets = c.offsets[:n+1]
	c.count = n
	c.elements.SetValueCount(int(c.offsets[n]))
	c.track()
}

func (c *Repeated) track() {
	if extra := int64(cap(c.offsets))*4 - c.reserved; extra > 0 {
		c.alloc.force(extra)
		c.reserved += extra
	}
}

// Len is the number of elements in row.
func (c *Repeated) Len(row int) int {
	return int(c.offsets[row+1] - c.offsets[row])
}

func (c *Repeated) IsNull(int) bool { return false }

func (c *Repeated) Object(row int) any {
	start, end := int(c.offsets[row]), int(c.offsets[row+1])
	out := make([]any, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, c.elements.Object(i))
	}
	return out
}

func (c *Repeated) Reader(row int) RepeatedReader {
	r := &repeatedReader{col: c}
	r.SetPosition(row)
	return r
}

func (c *Repeated) AllocatedBytes() int64 {
	return c.reserved + c.elements.AllocatedBytes()
}

func (c *Repeated) Clear() {
	c.alloc.Release(c.reserved)
	c.reserved = 0
	c.offsets = []int32{0}
	c.count = 0
	c.elements.Clear()
}
