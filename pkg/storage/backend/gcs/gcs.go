package gcs

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	google_http "google.golang.org/api/transport/http"

	"github.com/grafana/colscan/pkg/storage/backend"
	"github.com/grafana/colscan/pkg/storage/backend/instrumentation"
)

var tracer = otel.Tracer("storage/backend/gcs")

type readerWriter struct {
	cfg          *Config
	bucket       *storage.BucketHandle
	hedgedBucket *storage.BucketHandle
}

var _ backend.Reader = (*readerWriter)(nil)

// NewNoConfirm gets the GCS backend without testing it
func NewNoConfirm(cfg *Config) (backend.Reader, error) {
	return internalNew(cfg, false)
}

// New gets the GCS backend and checks that its bucket exists
func New(cfg *Config) (backend.Reader, error) {
	return internalNew(cfg, true)
}

func internalNew(cfg *Config, confirm bool) (*readerWriter, error) {
	ctx := context.Background()

	bucket, err := createBucket(ctx, cfg, false)
	if err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	hedgedBucket, err := createBucket(ctx, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("creating hedged bucket: %w", err)
	}

	if confirm {
		if _, err = bucket.Attrs(ctx); err != nil {
			return nil, fmt.Errorf("getting bucket attrs: %w", err)
		}
	}

	return &readerWriter{
		cfg:          cfg,
		bucket:       bucket,
		hedgedBucket: hedgedBucket,
	}, nil
}

// List implements backend.Reader
func (rw *readerWriter) List(ctx context.Context, prefix string) ([]string, error) {
	iter := rw.bucket.Objects(ctx, &storage.Query{
		Prefix:   rw.objectName(prefix),
		Versions: false,
	})

	var names []string
	for {
		attrs, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating objects: %w", err)
		}
		names = append(names, strings.TrimPrefix(strings.TrimPrefix(attrs.Name, rw.cfg.Prefix), "/"))
	}

	sort.Strings(names)
	return names, nil
}

// Size implements backend.Reader
func (rw *readerWriter) Size(ctx context.Context, name string) (int64, error) {
	attrs, err := rw.bucket.Object(rw.objectName(name)).Attrs(ctx)
	if err != nil {
		return 0, readError(err)
	}
	return attrs.Size, nil
}

// ReadRange implements backend.Reader
func (rw *readerWriter) ReadRange(ctx context.Context, name string, offset int64, buffer []byte) error {
	derivedCtx, span := tracer.Start(ctx, "gcs.ReadRange", trace.WithAttributes(
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

func (rw *readerWriter) readRange(ctx context.Context, name string, offset int64, buffer []byte) error {
	r, err := rw.hedgedBucket.Object(name).NewRangeReader(ctx, offset, int64(len(buffer)))
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.ReadFull(r, buffer)
	return err
}

func createBucket(ctx context.Context, cfg *Config, hedge bool) (*storage.BucketHandle, error) {
	// start with default transport
	customTransport := http.DefaultTransport.(*http.Transport).Clone()

	// add google auth
	transportOptions := []option.ClientOption{
		option.WithScopes(storage.ScopeReadOnly),
	}
	if cfg.Insecure {
		transportOptions = append(transportOptions, option.WithoutAuthentication())
		customTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	transport, err := google_http.NewTransport(ctx, customTransport, transportOptions...)
	if err != nil {
		return nil, fmt.Errorf("creating google http transport: %w", err)
	}

	transport = instrumentation.NewTransport(transport)
	if hedge {
		transport, err = instrumentation.Hedge(transport, cfg.HedgeRequestsAt, cfg.HedgeRequestsUpTo)
		if err != nil {
			return nil, err
		}
	}

	storageClientOptions := []option.ClientOption{
		option.WithHTTPClient(&http.Client{
			Transport: transport,
		}),
		option.WithScopes(storage.ScopeReadOnly),
	}
	if cfg.Endpoint != "" {
		storageClientOptions = append(storageClientOptions, option.WithEndpoint(cfg.Endpoint))
		storageClientOptions = append(storageClientOptions, storage.WithJSONReads())
	}
	client, err := storage.NewClient(ctx, storageClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return client.Bucket(cfg.BucketName), nil
}

func readError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return backend.ErrDoesNotExist
	}
	return err
}
