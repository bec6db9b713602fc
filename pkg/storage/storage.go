// Package storage opens the backend a scan reads its files from.
package storage

import (
	"fmt"

	"github.com/grafana/colscan/pkg/storage/backend"
	"github.com/grafana/colscan/pkg/storage/backend/gcs"
	"github.com/grafana/colscan/pkg/storage/backend/local"
	"github.com/grafana/colscan/pkg/storage/backend/s3"
)

// NewReader opens the configured backend. Remote backends are checked for
// reachability unless confirm is false.
func NewReader(cfg *Config, confirm bool) (backend.Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		r   backend.Reader
		err error
	)
	switch cfg.Backend {
	case Local:
		r, err = local.New(&cfg.Local)
	case S3:
		if confirm {
			r, err = s3.New(&cfg.S3)
		} else {
			r, err = s3.NewNoConfirm(&cfg.S3)
		}
	case GCS:
		if confirm {
			r, err = gcs.New(&cfg.GCS)
		} else {
			r, err = gcs.NewNoConfirm(&cfg.GCS)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", cfg.Backend, err)
	}
	return r, nil
}
