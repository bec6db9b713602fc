package parquetscan

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/colscan/pkg/expr"
	"github.com/grafana/colscan/pkg/pruning"
	"github.com/grafana/colscan/pkg/scan"
	"github.com/grafana/colscan/pkg/storage/backend"
	util_log "github.com/grafana/colscan/pkg/util/log"
)

var errNoFiles = errors.New("no files to scan")

// Creator turns a list of files and a filter into the readers of one scan.
type Creator struct {
	cfg       Config
	batchSize int
	reader    backend.Reader
	selector  *pruning.Selector
	pruning   pruning.Options
	logger    log.Logger
}

// NewCreator reads files from r. A nil selector reads every row group.
func NewCreator(cfg Config, batchSize int, r backend.Reader, selector *pruning.Selector, opts pruning.Options, logger log.Logger) (*Creator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Creator{
		cfg:       cfg,
		batchSize: batchSize,
		reader:    r,
		selector:  selector,
		pruning:   opts,
		logger:    util_log.OrGlobal(logger),
	}, nil
}

// Input is what a scan needs to start: one reader per kept row group and the
// implicit columns of each, in file and row group order.
type Input struct {
	Readers  []scan.RecordReader
	Implicit [][]scan.ImplicitColumn
	Files    []*File

	RowGroups int
	Pruned    int
}

// Close closes every reader. Only needed when the input never reaches a scan.
func (in *Input) Close() error {
	var err error
	for _, r := range in.Readers {
		err = multierr.Append(err, r.Close())
	}
	return err
}

// Open opens files concurrently and prunes their row groups against filter.
func (c *Creator) Open(ctx context.Context, files []string, filter expr.Expression) (*Input, error) {
	if len(files) == 0 {
		return nil, errNoFiles
	}

	opened := make([]*File, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.OpenConcurrency)
	for i, name := range files {
		g.Go(func() error {
			// the files are read long after the group is done, so only the
			// lookup is cancelled with it
			f, err := openFile(gctx, ctx, c.reader, name, c.cfg)
			if err != nil {
				return err
			}
			opened[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	depth := 0
	for _, name := range files {
		depth = max(depth, len(scan.PartitionDirs(name, c.cfg.SelectionRoot)))
	}

	in := &Input{Files: opened}
	remaining := c.cfg.Limit
	for _, f := range opened {
		kept, err := c.selectRowGroups(ctx, f, filter)
		if err != nil {
			return nil, err
		}
		in.RowGroups += len(f.Meta.RowGroups)
		in.Pruned += len(f.Meta.RowGroups) - len(kept)

		implicit := scan.FileImplicitColumns(f.Name, c.cfg.SelectionRoot, depth)
		for _, rg := range kept {
			if c.cfg.Limit > 0 && remaining <= 0 {
				break
			}
			var r scan.RecordReader = NewRowGroupReader(f, rg, c.readerOptions())
			if c.cfg.Limit > 0 {
				rows := f.Meta.RowGroups[rg].NumRows
				if rows > remaining {
					r = NewFirstN(r, int(remaining))
				}
				remaining -= rows
			}
			in.Readers = append(in.Readers, r)
			in.Implicit = append(in.Implicit, implicit)
		}
	}

	if len(in.Readers) == 0 {
		// keep the schema of the first file visible when nothing is left
		f := opened[0]
		if len(f.Meta.RowGroups) == 0 {
			return nil, fmt.Errorf("%s has no row groups", f.Name)
		}
		in.Readers = append(in.Readers, NewFirstN(NewRowGroupReader(f, 0, c.readerOptions()), 0))
		in.Implicit = append(in.Implicit, scan.FileImplicitColumns(f.Name, c.cfg.SelectionRoot, depth))
	}

	level.Info(c.logger).Log("msg", "scan input ready", "files", len(files), "rowGroups", in.RowGroups, "pruned", in.Pruned, "readers", len(in.Readers))
	return in, nil
}

func (c *Creator) selectRowGroups(ctx context.Context, f *File, filter expr.Expression) ([]int, error) {
	if c.selector == nil {
		all := make([]int, len(f.Meta.RowGroups))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	return c.selector.Select(ctx, f.Name, f.Meta, filter)
}

func (c *Creator) readerOptions() ReaderOptions {
	return ReaderOptions{
		Columns:   c.cfg.Columns,
		BatchSize: c.batchSize,
		Pruning:   c.pruning,
		Logger:    c.logger,
	}
}
