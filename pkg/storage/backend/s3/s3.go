package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	gkLog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/grafana/colscan/pkg/storage/backend"
	"github.com/grafana/colscan/pkg/storage/backend/instrumentation"
	"github.com/grafana/colscan/pkg/util/log"
)

var tracer = otel.Tracer("storage/backend/s3")

const errCodeNoSuchKey = "NoSuchKey"

// readerWriter can read from an s3 backend
type readerWriter struct {
	logger     gkLog.Logger
	cfg        *Config
	core       *minio.Core
	hedgedCore *minio.Core
}

var _ backend.Reader = (*readerWriter)(nil)

// NewNoConfirm gets the S3 backend without testing it
func NewNoConfirm(cfg *Config) (backend.Reader, error) {
	return internalNew(cfg, false)
}

// New gets the S3 backend and checks that its bucket can be listed
func New(cfg *Config) (backend.Reader, error) {
	return internalNew(cfg, true)
}

func internalNew(cfg *Config, confirm bool) (*readerWriter, error) {
	core, err := createCore(cfg, false)
	if err != nil {
		return nil, fmt.Errorf("unexpected error creating core: %w", err)
	}

	hedgedCore, err := createCore(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("unexpected error creating hedgedCore: %w", err)
	}

	if confirm {
		if _, err = core.ListObjects(cfg.Bucket, cfg.Prefix, "", "/", 1); err != nil {
			return nil, fmt.Errorf("unexpected error from ListObjects on %s: %w", cfg.Bucket, err)
		}
	}

	return &readerWriter{
		logger:     log.Logger,
		cfg:        cfg,
		core:       core,
		hedgedCore: hedgedCore,
	}, nil
}

// List implements backend.Reader
func (rw *readerWriter) List(ctx context.Context, prefix string) ([]string, error) {
	full := rw.objectName(prefix)
	var names []string
	for obj := range rw.core.Client.ListObjects(ctx, rw.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    full,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrapf(obj.Err, "error listing objects in s3 bucket, bucket: %s", rw.cfg.Bucket)
		}
		names = append(names, strings.TrimPrefix(strings.TrimPrefix(obj.Key, rw.cfg.Prefix), "/"))
	}
	level.Debug(rw.logger).Log("msg", "listing objects", "prefix", full, "found", len(names))

	sort.Strings(names)
	return names, nil
}

// Size implements backend.Reader
func (rw *readerWriter) Size(ctx context.Context, name string) (int64, error) {
	info, err := rw.core.Client.StatObject(ctx, rw.cfg.Bucket, rw.objectName(name), minio.StatObjectOptions{})
	if err != nil {
		return 0, readError(err)
	}
	return info.Size, nil
}

// ReadRange implements backend.Reader
func (rw *readerWriter) ReadRange(ctx context.Context, name string, offset int64, buffer []byte) error {
	derivedCtx, span := tracer.Start(ctx, "s3.ReadRange", trace.WithAttributes(
		attribute.Int("len", len(buffer)),
		attribute.Int64("offset", offset),
	))
	defer span.End()

	if len(buffer) == 0 {
		return nil
	}
	return readError(rw.readRange(derivedCtx, rw.objectName(name), offset, buffer))
}

// Shutdown implements backend.Reader
func (rw *readerWriter) Shutdown() {
}

func (rw *readerWriter) objectName(name string) string {
	if rw.cfg.Prefix == "" {
		return name
	}
	return strings.TrimSuffix(rw.cfg.Prefix, "/") + "/" + strings.TrimPrefix(name, "/")
}

func (rw *readerWriter) readRange(ctx context.Context, objName string, offset int64, buffer []byte) error {
	options := minio.GetObjectOptions{}
	err := options.SetRange(offset, offset+int64(len(buffer))-1)
	if err != nil {
		return errors.Wrap(err, "error setting headers for range read in s3")
	}
	reader, _, _, err := rw.hedgedCore.GetObject(ctx, rw.cfg.Bucket, objName, options)
	if err != nil {
		// do not wrap, readError inspects it
		return err
	}
	defer reader.Close()

	if _, err := io.ReadFull(reader, buffer); err != nil {
		return errors.Wrapf(err, "error in range read from s3 backend, bucket: %s, objName: %s", rw.cfg.Bucket, objName)
	}
	return nil
}

func createCore(cfg *Config, hedge bool) (*minio.Core, error) {
	creds := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.Static{
			Value: credentials.Value{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey.String(),
				SessionToken:    cfg.SessionToken.String(),
			},
		},
		&credentials.EnvMinio{},
		&credentials.FileAWSCredentials{},
		&credentials.FileMinioClient{},
		&credentials.IAM{
			Client: &http.Client{
				Transport: http.DefaultTransport,
			},
		},
	})

	customTransport, err := minio.DefaultTransport(!cfg.Insecure)
	if err != nil {
		return nil, errors.Wrap(err, "create minio.DefaultTransport")
	}

	transport := instrumentation.NewTransport(customTransport)
	if hedge {
		transport, err = instrumentation.Hedge(transport, cfg.HedgeRequestsAt, cfg.HedgeRequestsUpTo)
		if err != nil {
			return nil, err
		}
	}

	opts := &minio.Options{
		Region:    cfg.Region,
		Secure:    !cfg.Insecure,
		Creds:     creds,
		Transport: transport,
	}
	if cfg.ForcePathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}

	return minio.NewCore(cfg.Endpoint, opts)
}

func readError(err error) error {
	if err != nil && minio.ToErrorResponse(err).Code == errCodeNoSuchKey {
		return backend.ErrDoesNotExist
	}
	return err
}
