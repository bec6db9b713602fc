package backend

import (
	"context"
	"errors"
)

var ErrDoesNotExist = errors.New("does not exist")

// Reader reads the files a scan covers from an object store or a local
// directory. Names are slash separated and relative to the store's root.
type Reader interface {
	// List returns the names of all objects below prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Size returns the length of name in bytes.
	Size(ctx context.Context, name string) (int64, error)
	// ReadRange fills buffer from name starting at offset.
	ReadRange(ctx context.Context, name string, offset int64, buffer []byte) error

	Shutdown()
}
