// Package values provides a reader over rows held in memory.
package values

import (
	"context"
	"fmt"

	"github.com/grafana/colscan/pkg/scan"
	"github.com/grafana/colscan/pkg/types"
	"github.com/grafana/colscan/pkg/vector"
)

var _ scan.RecordReader = (*Reader)(nil)

// Batch is the rows of one batch, each a value per field.
type Batch [][]any

// Reader returns its batches in order, one per Next.
type Reader struct {
	name    string
	fields  []types.Field
	batches []Batch

	pos     int
	columns []vector.Column
	closes  int
}

func NewReader(name string, fields []types.Field, batches ...Batch) *Reader {
	return &Reader{name: name, fields: fields, batches: batches}
}

func (r *Reader) String() string { return r.name }

func (r *Reader) Setup(_ context.Context, out scan.OutputMutator) error {
	r.columns = r.columns[:0]
	for _, f := range r.fields {
		col, err := out.AddField(f)
		if err != nil {
			return err
		}
		r.columns = append(r.columns, col)
	}
	return nil
}

func (r *Reader) Allocate(*types.CaseInsensitiveMap[vector.Column]) error {
	n := 0
	if r.pos < len(r.batches) {
		n = len(r.batches[r.pos])
	}
	for _, col := range r.columns {
		if err := col.Allocate(n); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) Next(context.Context) (int, error) {
	if r.pos >= len(r.batches) {
		return 0, nil
	}
	b := r.batches[r.pos]
	r.pos++

	for i, row := range b {
		if len(row) != len(r.columns) {
			return 0, fmt.Errorf("row %d has %d values for %d fields", i, len(row), len(r.columns))
		}
		for j, v := range row {
			if err := vector.SetObject(r.columns[j], i, v); err != nil {
				return 0, err
			}
		}
	}
	return len(b), nil
}

func (r *Reader) Close() error {
	r.closes++
	return nil
}

// Closes counts calls to Close.
func (r *Reader) Closes() int { return r.closes }

// Rows is the number of rows over all batches.
func (r *Reader) Rows() int {
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}
