package vector

import (
	"fmt"

	"github.com/grafana/colscan/pkg/types"
)

// Column is a named, typed buffer holding one batch worth of values. Columns
// are reused across batches: Allocate starts a new batch and SetValueCount
// fixes its logical length.
type Column interface {
	Field() types.Field
	ValueCount() int
	// SetValueCount sets the logical length, growing storage when needed.
	SetValueCount(n int)
	// Allocate resets the column and pre-sizes it for n values. It fails with
	// ErrOutOfMemory when the allocator refuses the reservation.
	Allocate(n int) error
	// Clear releases the backing storage.
	Clear()
	IsNull(i int) bool
	Object(i int) any
	AllocatedBytes() int64
}

// SingularColumn holds at most one value per row.
type SingularColumn interface {
	Column
	Reader(i int) SingularReader
}

// RepeatedColumn holds a list of values per row.
type RepeatedColumn interface {
	Column
	Reader(row int) RepeatedReader
	Elements() SingularColumn
}

type (
	BitVector       = Fixed[bool]
	Int32Vector     = Fixed[int32]
	UInt32Vector    = Fixed[uint32]
	Int64Vector     = Fixed[int64]
	UInt64Vector    = Fixed[uint64]
	Float32Vector   = Fixed[float32]
	Float64Vector   = Fixed[float64]
	VarBinaryVector = VarWidth
)

// New creates an empty column for field. Storage is chosen from the minor type
// and cardinality.
func New(field types.Field, alloc *Allocator) (Column, error) {
	if field.Type.Mode == types.ModeRepeated {
		elem, err := newSingular(types.NewField(field.Name, field.Type.WithMode(types.ModeRequired)), alloc)
		if err != nil {
			return nil, err
		}
		return newRepeated(field, elem, alloc), nil
	}
	return newSingular(field, alloc)
}

func newSingular(field types.Field, alloc *Allocator) (SingularColumn, error) {
	switch field.Type.Minor {
	case types.MinorBit:
		return NewFixed[bool](field, alloc), nil
	case types.MinorInt, types.MinorTime, types.MinorDecimal9:
		return NewFixed[int32](field, alloc), nil
	case types.MinorUInt4:
		return NewFixed[uint32](field, alloc), nil
	case types.MinorBigInt, types.MinorDate, types.MinorTimestamp, types.MinorDecimal18:
		return NewFixed[int64](field, alloc), nil
	case types.MinorUInt8:
		return NewFixed[uint64](field, alloc), nil
	case types.MinorFloat4:
		return NewFixed[float32](field, alloc), nil
	case types.MinorFloat8:
		return NewFixed[float64](field, alloc), nil
	case types.MinorVarChar, types.MinorVarBinary, types.MinorDecimal28Sparse, types.MinorDecimal38Sparse, types.MinorNull:
		return NewVarWidth(field, alloc), nil
	}
	return nil, fmt.Errorf("no column storage for type %s", field.Type)
}
