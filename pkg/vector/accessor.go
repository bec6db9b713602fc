package vector

import "github.com/grafana/colscan/pkg/types"

// SingularReader reads the value of one row of a non-repeated column.
type SingularReader interface {
	Type() types.MajorType
	IsSet() bool
	ReadObject() any
}

// RepeatedReader walks the elements of one row of a repeated column.
type RepeatedReader interface {
	Type() types.MajorType
	Size() int
	// Next advances to the next element and reports whether there is one.
	Next() bool
	ReadObject() any
	SetPosition(row int)
}

type singularReader struct {
	col SingularColumn
	idx int
}

func (r singularReader) Type() types.MajorType { return r.col.Field().Type }
func (r singularReader) IsSet() bool           { return !r.col.IsNull(r.idx) }
func (r singularReader) ReadObject() any       { return r.col.Object(r.idx) }

type repeatedReader struct {
	col        *Repeated
	start, end int
	pos        int
}

func (r *repeatedReader) Type() types.MajorType { return r.col.Field().Type }
func (r *repeatedReader) Size() int             { return r.end - r.start }

func (r *repeatedReader) SetPosition(row int) {
	r.start = int(r.col.offsets[row])
	r.end = int(r.col.offsets[row+1])
	r.pos = r.start - 1
}

func (r *repeatedReader) Next() bool {
	if r.pos+1 >= r.end {
		return false
	}
	r.pos++
	return true
}

func (r *repeatedReader) ReadObject() any {
	if r.pos < r.start || r.pos >= r.end {
		return nil
	}
	return r.col.elements.Object(r.pos)
}
