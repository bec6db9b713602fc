package scan

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/colscan/pkg/types"
	"github.com/grafana/colscan/pkg/vector"
)

// RecordReader produces batches into the columns it registers on an
// OutputMutator. Setup is called once before the first Next and Close once
// after the last.
type RecordReader interface {
	Setup(ctx context.Context, out OutputMutator) error
	// Allocate sizes the columns for the upcoming batch.
	Allocate(columns *types.CaseInsensitiveMap[vector.Column]) error
	// Next fills the next batch and returns its record count. 0 means the
	// reader is exhausted.
	Next(ctx context.Context) (int, error)
	Close() error
}

// OutputMutator is the sink a reader registers its columns with.
type OutputMutator interface {
	// AddField returns the column for field, creating it when the name is new
	// or the type changed.
	AddField(field types.Field) (vector.Column, error)
	// ManagedBuffer is a scratch buffer that lives as long as the scan.
	ManagedBuffer() *bytes.Buffer
	IsNewSchema() bool
	// Callback is raised by readers that change a nested schema.
	Callback() *vector.SchemaChangeCallBack
	Allocate(n int) error
}

// Pather is implemented by readers that read a file.
type Pather interface {
	Path() string
}

func readerName(r RecordReader) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", r)
}

func readerPath(r RecordReader) string {
	if p, ok := r.(Pather); ok {
		return p.Path()
	}
	return ""
}

// guardedReader closes its reader at most once.
type guardedReader struct {
	RecordReader
	name   string
	path   string
	closed bool
}

func guard(r RecordReader) *guardedReader {
	return &guardedReader{RecordReader: r, name: readerName(r), path: readerPath(r)}
}

func (g *guardedReader) close(logger log.Logger) {
	if g == nil || g.closed {
		return
	}
	g.closed = true
	if err := g.Close(); err != nil {
		level.Error(logger).Log("msg", "failed to close reader", "reader", g.name, "err", err)
	}
}
