package storage

import (
	"flag"
	"fmt"

	"github.com/grafana/colscan/pkg/storage/backend/gcs"
	"github.com/grafana/colscan/pkg/storage/backend/local"
	"github.com/grafana/colscan/pkg/storage/backend/s3"
	"github.com/grafana/colscan/pkg/util"
)

const (
	Local = "local"
	S3    = "s3"
	GCS   = "gcs"
)

// Config selects the store scanned files are read from.
type Config struct {
	Backend string       `yaml:"backend"`
	Local   local.Config `yaml:"local"`
	S3      s3.Config    `yaml:"s3"`
	GCS     gcs.Config   `yaml:"gcs"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Backend, util.PrefixConfig(prefix, "backend"), Local, "Storage backend, one of local, s3 or gcs.")
	cfg.Local.RegisterFlagsAndApplyDefaults(prefix, f)
	cfg.S3.RegisterFlagsAndApplyDefaults(prefix, f)
	cfg.GCS.RegisterFlagsAndApplyDefaults(prefix, f)
}

func (cfg *Config) Validate() error {
	switch cfg.Backend {
	case Local:
		if cfg.Local.Path == "" {
			return fmt.Errorf("local backend requires a path")
		}
	case S3:
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("s3 backend requires a bucket")
		}
	case GCS:
		if cfg.GCS.BucketName == "" {
			return fmt.Errorf("gcs backend requires a bucket name")
		}
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return nil
}
