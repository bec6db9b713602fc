package scan

import (
	"bytes"
	"fmt"

	"github.com/grafana/colscan/pkg/types"
	"github.com/grafana/colscan/pkg/vector"
)

var _ OutputMutator = (*Mutator)(nil)

// Mutator owns the columns of a scan and tracks whether their set or types
// changed since the last inquiry.
type Mutator struct {
	fields   *types.CaseInsensitiveMap[vector.Column]
	alloc    *vector.Allocator
	callback *vector.SchemaChangeCallBack
	buf      *bytes.Buffer

	// dirty is set by adding, replacing or removing a column
	dirty bool
}

func NewMutator(alloc *vector.Allocator) *Mutator {
	return &Mutator{
		fields:   types.NewCaseInsensitiveMap[vector.Column](),
		alloc:    alloc,
		callback: &vector.SchemaChangeCallBack{},
		buf:      &bytes.Buffer{},
		dirty:    true,
	}
}

func (m *Mutator) AddField(field types.Field) (vector.Column, error) {
	return m.addField(field, nil)
}

// AddTypedField is AddField for readers that write through a concrete column
// type. It fails with a *SchemaChangeError when field does not map to T, and
// leaves the existing columns untouched in that case.
func AddTypedField[T vector.Column](m *Mutator, field types.Field) (T, error) {
	var zero T
	col, err := m.addField(field, func(c vector.Column) error {
		if _, ok := c.(T); !ok {
			return &SchemaChangeError{Field: field.Name, Expected: fmt.Sprintf("%T", zero), Actual: fmt.Sprintf("%T", c)}
		}
		return nil
	})
	if err != nil {
		return zero, err
	}
	return col.(T), nil
}

func (m *Mutator) addField(field types.Field, check func(vector.Column) error) (vector.Column, error) {
	if existing, ok := m.fields.Get(field.Name); ok && existing.Field().Type == field.Type {
		if check != nil {
			if err := check(existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	col, err := vector.New(field, m.alloc)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(col); err != nil {
			return nil, err
		}
	}

	if old, ok := m.fields.Get(field.Name); ok {
		old.Clear()
	}
	m.fields.Put(field.Name, col)
	m.dirty = true
	return col, nil
}

// RemoveField releases and forgets the column of name.
func (m *Mutator) RemoveField(name string) {
	if old, ok := m.fields.Delete(name); ok {
		old.Clear()
		m.dirty = true
	}
}

func (m *Mutator) Column(name string) (vector.Column, bool) {
	return m.fields.Get(name)
}

// Fields is the live column map in schema order.
func (m *Mutator) Fields() *types.CaseInsensitiveMap[vector.Column] {
	return m.fields
}

func (m *Mutator) ManagedBuffer() *bytes.Buffer {
	return m.buf
}

func (m *Mutator) Callback() *vector.SchemaChangeCallBack {
	return m.callback
}

// IsNewSchema reports whether the schema changed since the last call and
// resets the tracking.
func (m *Mutator) IsNewSchema() bool {
	// the callback has to be reset on every call
	nested := m.callback.GetSchemaChangedAndReset()
	changed := m.dirty || nested
	m.dirty = false
	return changed
}

// Allocate pre-sizes every column for n records.
func (m *Mutator) Allocate(n int) error {
	var err error
	m.fields.Range(func(_ string, c vector.Column) bool {
		err = c.Allocate(n)
		return err == nil
	})
	return err
}

func (m *Mutator) setValueCount(n int) {
	m.fields.Range(func(_ string, c vector.Column) bool {
		c.SetValueCount(n)
		return true
	})
}

// release frees the storage of every column but keeps the columns.
func (m *Mutator) release() {
	m.fields.Range(func(_ string, c vector.Column) bool {
		c.Clear()
		return true
	})
}

// Clear releases and forgets every column and resets the schema tracking.
func (m *Mutator) Clear() {
	m.release()
	m.fields.Clear()
	m.dirty = false
}

func (m *Mutator) Schema() types.BatchSchema {
	fields := make([]types.Field, 0, m.fields.Len())
	m.fields.Range(func(_ string, c vector.Column) bool {
		fields = append(fields, c.Field())
		return true
	})
	return types.BatchSchema{Fields: fields}
}
