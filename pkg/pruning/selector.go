package pruning

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/grafana/colscan/pkg/expr"
	"github.com/grafana/colscan/pkg/pool"
	util_log "github.com/grafana/colscan/pkg/util/log"
)

var tracer = otel.Tracer("pkg/pruning")

// Selector decides which row groups of a file a scan has to read.
type Selector struct {
	cfg    Config
	pool   *pool.Pool
	cache  *Cache
	logger log.Logger
}

// NewSelector evaluates row groups on p. A nil pool evaluates them in the
// calling goroutine.
func NewSelector(cfg Config, p *pool.Pool, logger log.Logger) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cache, err := NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Selector{
		cfg:    cfg,
		pool:   p,
		cache:  cache,
		logger: util_log.OrGlobal(logger),
	}, nil
}

// Select returns the ascending indexes of the row groups of file that may
// hold rows matching filter. A nil filter keeps every row group.
func (s *Selector) Select(ctx context.Context, file string, meta *FileMetadata, filter expr.Expression) ([]int, error) {
	ctx, span := tracer.Start(ctx, "pruning.Selector.Select",
		trace.WithAttributes(
			attribute.String("file", file),
			attribute.Int("rowGroups", len(meta.RowGroups)),
		))
	defer span.End()

	start := time.Now()
	defer func() { metricSelectDuration.Observe(time.Since(start).Seconds()) }()

	all := make([]int, len(meta.RowGroups))
	for i := range all {
		all[i] = i
	}
	if filter == nil || !s.cfg.Enabled {
		metricRowGroups.WithLabelValues(outcomeKept).Add(float64(len(all)))
		return all, nil
	}

	opts := s.cfg.Options().ForFile(meta)
	opts.Logger = s.logger
	decide := func(_ context.Context, rg int) (bool, error) {
		if meta.RowGroups[rg].NumRows == 0 {
			return true, nil
		}
		key := cacheKey(file, meta, rg, filter, opts)
		if canDrop, ok := s.cache.Get(key); ok {
			return canDrop, nil
		}
		canDrop := CanDrop(filter, meta.Schema, meta.RowGroups[rg].Statistics, opts)
		s.cache.Add(key, canDrop)
		return canDrop, nil
	}

	var drops []bool
	if s.pool == nil {
		drops = make([]bool, len(all))
		for i, rg := range all {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			drops[i], _ = decide(ctx, rg)
		}
	} else {
		var err error
		drops, err = pool.RunJobs(ctx, s.pool, all, decide)
		if err != nil {
			return nil, err
		}
	}

	kept := make([]int, 0, len(all))
	for i, drop := range drops {
		if !drop {
			kept = append(kept, all[i])
		}
	}
	metricRowGroups.WithLabelValues(outcomeKept).Add(float64(len(kept)))
	metricRowGroups.WithLabelValues(outcomeDropped).Add(float64(len(all) - len(kept)))
	span.SetAttributes(attribute.Int("kept", len(kept)))
	level.Debug(s.logger).Log("msg", "selected row groups", "file", file, "filter", filter, "total", len(all), "kept", len(kept))
	return kept, nil
}
