package parquetscan

import (
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	colscan_io "github.com/grafana/colscan/pkg/io"
	"github.com/grafana/colscan/pkg/pruning"
	"github.com/grafana/colscan/pkg/storage/backend"
)

var tracer = otel.Tracer("pkg/parquetscan")

// File is an opened parquet file with the metadata pruning works on.
type File struct {
	Name    string
	Size    int64
	Parquet *parquet.File
	Meta    *pruning.FileMetadata
}

// OpenFile reads the footer and page index of name from r. Row group reads
// made later through the file also use ctx.
func OpenFile(ctx context.Context, r backend.Reader, name string, cfg Config) (*File, error) {
	return openFile(ctx, ctx, r, name, cfg)
}

// openFile is OpenFile with the lookup and footer work bound to ctx and every
// read through the returned file bound to readCtx, which must outlive it.
func openFile(ctx, readCtx context.Context, r backend.Reader, name string, cfg Config) (*File, error) {
	ctx, span := tracer.Start(ctx, "parquetscan.OpenFile", trace.WithAttributes(attribute.String("file", name)))
	defer span.End()

	size, err := r.Size(ctx, name)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	rr := backend.NewReaderAt(readCtx, r, name, size)
	span.SetAttributes(attribute.Int64("size", rr.Size()))
	br := colscan_io.NewBufferedReaderAt(rr, rr.Size(), cfg.ReadBufferSize, cfg.ReadBufferCount)

	pf, err := parquet.OpenFile(br, rr.Size(), parquet.SkipBloomFilters(true))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reading parquet footer of %s: %w", name, err)
	}

	meta, err := pruning.ReadParquetMetadata(pf)
	if err != nil {
		return nil, fmt.Errorf("reading metadata of %s: %w", name, err)
	}
	span.SetAttributes(attribute.Int("rowGroups", len(meta.RowGroups)))

	return &File{Name: name, Size: rr.Size(), Parquet: pf, Meta: meta}, nil
}
