package parquetscan

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/parquet-go/parquet-go"

	"github.com/grafana/colscan/pkg/pruning"
	"github.com/grafana/colscan/pkg/scan"
	"github.com/grafana/colscan/pkg/types"
	util_log "github.com/grafana/colscan/pkg/util/log"
	"github.com/grafana/colscan/pkg/vector"
)

var (
	_ scan.RecordReader = (*RowGroupReader)(nil)
	_ scan.Pather       = (*RowGroupReader)(nil)
)

// missingColumnType is the type of projected columns a file does not have.
var missingColumnType = types.Optional(types.MinorInt)

type ReaderOptions struct {
	// Columns to read by case-insensitive path. Empty reads every leaf.
	Columns   []string
	BatchSize int
	Pruning   pruning.Options
	Logger    log.Logger
}

type projected struct {
	field    types.Field
	col      vector.Column
	convert  converter
	repeated bool
	maxDef   int
	// leaf is -1 for a column the file lacks
	leaf int

	list []any
}

// RowGroupReader reads one row group of a parquet file.
type RowGroupReader struct {
	file     *File
	rowGroup int
	opts     ReaderOptions
	logger   log.Logger

	columns []*projected
	byLeaf  map[int]*projected
	rows    parquet.Rows
	buf     []parquet.Row
	read    int64
	done    bool
}

func NewRowGroupReader(file *File, rowGroup int, opts ReaderOptions) *RowGroupReader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4096
	}
	opts.Pruning = opts.Pruning.ForFile(file.Meta)
	return &RowGroupReader{
		file:     file,
		rowGroup: rowGroup,
		opts:     opts,
		logger:   log.With(util_log.OrGlobal(opts.Logger), "file", file.Name, "rowGroup", rowGroup),
	}
}

func (r *RowGroupReader) String() string {
	return fmt.Sprintf("%s#%d", r.file.Name, r.rowGroup)
}

func (r *RowGroupReader) Path() string { return r.file.Name }

func (r *RowGroupReader) Setup(_ context.Context, out scan.OutputMutator) error {
	if r.rowGroup < 0 || r.rowGroup >= len(r.file.Parquet.RowGroups()) {
		return fmt.Errorf("row group %d out of range", r.rowGroup)
	}

	names := r.opts.Columns
	if len(names) == 0 {
		for _, c := range r.file.Meta.Schema.Columns() {
			names = append(names, c.Path)
		}
	}

	r.columns = r.columns[:0]
	r.byLeaf = make(map[int]*projected, len(names))
	for _, name := range names {
		p, err := r.project(name)
		if err != nil {
			return err
		}
		if p.col, err = out.AddField(p.field); err != nil {
			return err
		}
		r.columns = append(r.columns, p)
		if p.leaf >= 0 {
			r.byLeaf[p.leaf] = p
		}
	}

	r.rows = r.file.Parquet.RowGroups()[r.rowGroup].Rows()
	r.buf = make([]parquet.Row, r.opts.BatchSize)
	level.Debug(r.logger).Log("msg", "row group reader set up", "columns", len(r.columns))
	return nil
}

func (r *RowGroupReader) project(name string) (*projected, error) {
	c, ok := r.file.Meta.Schema.Column(name)
	if !ok {
		return &projected{field: types.NewField(name, missingColumnType), leaf: -1}, nil
	}
	t, err := pruning.MajorTypeOf(c, r.opts.Pruning.Int96AsTimestamp)
	if err != nil {
		return nil, err
	}
	convert, err := newConverter(c, t, r.opts.Pruning)
	if err != nil {
		return nil, err
	}
	leaf, ok := r.file.Meta.LeafIndex(c.Path)
	if !ok {
		return nil, fmt.Errorf("column %s has no leaf index", c.Path)
	}
	return &projected{
		field:    types.NewField(c.Path, t),
		convert:  convert,
		repeated: t.Mode == types.ModeRepeated,
		maxDef:   c.MaxDefinitionLevel,
		leaf:     leaf,
	}, nil
}

func (r *RowGroupReader) Allocate(*types.CaseInsensitiveMap[vector.Column]) error {
	n := r.opts.BatchSize
	if left := int(r.rowsLeft()); left < n {
		n = left
	}
	for _, p := range r.columns {
		if err := p.col.Allocate(n); err != nil {
			return err
		}
	}
	return nil
}

func (r *RowGroupReader) rowsLeft() int64 {
	if r.done || r.rows == nil {
		return 0
	}
	return r.file.Parquet.RowGroups()[r.rowGroup].NumRows() - r.read
}

func (r *RowGroupReader) Next(ctx context.Context) (int, error) {
	if r.done {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := r.rows.ReadRows(r.buf)
	if errors.Is(err, io.EOF) || (err == nil && n == 0) {
		r.done = true
	} else if err != nil {
		return 0, fmt.Errorf("reading rows: %w", err)
	}

	for i := 0; i < n; i++ {
		if err := r.writeRow(i, r.buf[i]); err != nil {
			return 0, err
		}
	}
	r.read += int64(n)
	return n, nil
}

func (r *RowGroupReader) writeRow(i int, row parquet.Row) error {
	for _, p := range r.columns {
		p.list = p.list[:0]
	}
	for _, v := range row {
		p, ok := r.byLeaf[v.Column()]
		if !ok {
			continue
		}
		if p.repeated {
			// lower definition levels are empty or null lists
			if v.DefinitionLevel() == p.maxDef {
				x, err := p.convert(v)
				if err != nil {
					return err
				}
				p.list = append(p.list, x)
			}
			continue
		}
		if v.IsNull() {
			if err := vector.SetObject(p.col, i, nil); err != nil {
				return err
			}
			continue
		}
		x, err := p.convert(v)
		if err != nil {
			return err
		}
		if err := vector.SetObject(p.col, i, x); err != nil {
			return err
		}
	}
	for _, p := range r.columns {
		switch {
		case p.leaf < 0:
			if err := vector.SetObject(p.col, i, nil); err != nil {
				return err
			}
		case p.repeated:
			if err := vector.SetObject(p.col, i, p.list); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *RowGroupReader) Close() error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	return err
}
