package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grafana/colscan/pkg/storage/backend"
)

type Backend struct {
	cfg *Config
}

var _ backend.Reader = (*Backend)(nil)

// New gets the local backend
func New(cfg *Config) (*Backend, error) {
	if cfg.Path == "" {
		return nil, errors.New("local backend path must be set")
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening local backend: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local backend path %s is not a directory", cfg.Path)
	}
	return &Backend{cfg: cfg}, nil
}

// List implements backend.Reader
func (rw *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(rw.cfg.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(rw.cfg.Path, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Size implements backend.Reader
func (rw *Backend) Size(_ context.Context, name string) (int64, error) {
	info, err := os.Stat(rw.path(name))
	if err != nil {
		return 0, readError(err)
	}
	return info.Size(), nil
}

// ReadRange implements backend.Reader
func (rw *Backend) ReadRange(_ context.Context, name string, offset int64, buffer []byte) error {
	f, err := os.OpenFile(rw.path(name), os.O_RDONLY, 0o644)
	if err != nil {
		return readError(err)
	}
	defer f.Close()

	_, err = f.ReadAt(buffer, offset)
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Shutdown implements backend.Reader
func (rw *Backend) Shutdown() {
}

func (rw *Backend) path(name string) string {
	return filepath.Join(rw.cfg.Path, filepath.FromSlash(name))
}

func readError(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return backend.ErrDoesNotExist
	}
	return err
}
