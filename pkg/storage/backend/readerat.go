package backend

import (
	"context"
	"io"
)

var _ io.ReaderAt = (*ReaderAt)(nil)

// ReaderAt is a shim that allows a backend.Reader to be used as an io.ReaderAt
type ReaderAt struct {
	ctx  context.Context
	name string
	size int64
	r    Reader
}

// NewReaderAt creates a ReaderAt for name. Reads are issued with ctx.
func NewReaderAt(ctx context.Context, r Reader, name string, size int64) *ReaderAt {
	return &ReaderAt{
		ctx:  ctx,
		name: name,
		size: size,
		r:    r,
	}
}

// OpenReaderAt looks the size of name up and returns a ReaderAt over it.
func OpenReaderAt(ctx context.Context, r Reader, name string) (*ReaderAt, error) {
	size, err := r.Size(ctx, name)
	if err != nil {
		return nil, err
	}
	return NewReaderAt(ctx, r, name, size), nil
}

// ReadAt implements io.ReaderAt. Reads past the end are shortened and return
// io.EOF.
func (b *ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	var eof error
	if rest := b.size - off; int64(len(p)) > rest {
		p = p[:rest]
		eof = io.EOF
	}
	if err := b.r.ReadRange(b.ctx, b.name, off, p); err != nil {
		return 0, err
	}
	return len(p), eof
}

func (b *ReaderAt) Size() int64 { return b.size }

func (b *ReaderAt) Name() string { return b.name }
