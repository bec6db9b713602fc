package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/grafana/colscan/pkg/types"
	util_log "github.com/grafana/colscan/pkg/util/log"
	"github.com/grafana/colscan/pkg/vector"
)

var tracer = otel.Tracer("pkg/scan")

type Option func(*ScanBatch)

func WithLogger(l log.Logger) Option {
	return func(s *ScanBatch) {
		s.logger = l
	}
}

// WithAllocator accounts the scan's columns on a. The default allocator has
// no limit.
func WithAllocator(a *vector.Allocator) Option {
	return func(s *ScanBatch) {
		s.alloc = a
	}
}

// ScanBatch drives a sequence of readers and exposes their output as a stream
// of batches. It is not safe for concurrent use, except that Kill may be
// serialized against Next by the caller.
type ScanBatch struct {
	id     uuid.UUID
	logger log.Logger
	alloc  *vector.Allocator

	readers  []RecordReader
	implicit [][]ImplicitColumn
	next     int

	current         *guardedReader
	currentImplicit []ImplicitColumn

	mutator  *Mutator
	injector implicitColumns

	state       state
	closed      bool
	schema      types.BatchSchema
	recordCount int
	stats       Stats
}

// NewScanBatch sets up the first reader. implicit holds the implicit columns
// of each reader by position; readers past its end have none.
func NewScanBatch(ctx context.Context, readers []RecordReader, implicit [][]ImplicitColumn, opts ...Option) (*ScanBatch, error) {
	if len(readers) == 0 {
		return nil, &SetupError{Err: errNoReaders}
	}

	s := &ScanBatch{
		id:       uuid.New(),
		readers:  readers,
		implicit: implicit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.With(util_log.OrGlobal(s.logger), "scan", s.id.String())
	s.mutator = NewMutator(s.alloc)

	start := time.Now()
	defer s.stats.processing(start)

	if err := s.advance(ctx); err != nil {
		return nil, err
	}
	// later readers get theirs once they produce rows or fields
	if err := s.injector.apply(s.mutator, s.currentImplicit); err != nil {
		s.current.close(s.logger)
		return nil, &SetupError{Reader: s.current.name, Err: fmt.Errorf("failed to add implicit columns: %w", err)}
	}
	s.state = stateActive
	return s, nil
}

func (s *ScanBatch) ID() uuid.UUID { return s.id }

func (s *ScanBatch) hasNextReader() bool {
	return s.next < len(s.readers)
}

// advance makes the next reader current and sets it up.
func (s *ScanBatch) advance(ctx context.Context) error {
	r := guard(s.readers[s.next])
	var implicit []ImplicitColumn
	if s.next < len(s.implicit) {
		implicit = s.implicit[s.next]
	}
	s.next++
	s.current, s.currentImplicit = r, implicit

	_, span := tracer.Start(ctx, "scan.ScanBatch.setupReader",
		trace.WithAttributes(
			attribute.String("reader", r.name),
			attribute.String("path", r.path),
		))
	defer span.End()

	if err := r.Setup(ctx, s.mutator); err != nil {
		span.RecordError(err)
		r.close(s.logger)
		return &SetupError{Reader: r.name, Err: err}
	}
	s.stats.readerStarted()
	level.Debug(s.logger).Log("msg", "reader set up", "reader", r.name, "path", r.path)
	return nil
}

// Next produces the next batch. After OutcomeNone, and after any error, the
// scan is done.
func (s *ScanBatch) Next(ctx context.Context) (IterOutcome, error) {
	if s.state == stateDone || s.closed {
		return OutcomeNone, nil
	}

	start := time.Now()
	defer s.stats.processing(start)

	for {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}

		if err := s.current.Allocate(s.mutator.Fields()); err != nil {
			return s.fail(err)
		}

		n, err := s.current.Next(ctx)
		if err != nil {
			return s.fail(err)
		}
		if n < 0 {
			return s.fail(fmt.Errorf("reader returned a negative record count %d", n))
		}
		s.recordCount = n

		newRegular := s.mutator.IsNewSchema()
		// implicit columns follow readers that produced rows or fields
		if n > 0 || newRegular {
			if err := s.injector.apply(s.mutator, s.currentImplicit); err != nil {
				return s.fail(err)
			}
			if err := s.injector.fill(n); err != nil {
				return s.fail(err)
			}
		}
		newImplicit := s.mutator.IsNewSchema()
		s.mutator.setValueCount(n)

		newSchema := newRegular || newImplicit
		s.stats.batchReceived(n, newSchema)

		if n > 0 {
			if newSchema {
				s.schema = s.mutator.Schema()
				return OutcomeOKNewSchema, nil
			}
			return OutcomeOK, nil
		}

		s.current.close(s.logger)
		if newSchema {
			// a reader may find fields without rows
			s.schema = s.mutator.Schema()
			if s.hasNextReader() {
				if err := s.advance(ctx); err != nil {
					s.state = stateDone
					return OutcomeNone, err
				}
			} else {
				s.state = stateDone
			}
			return OutcomeOKNewSchema, nil
		}
		if !s.hasNextReader() {
			s.mutator.release()
			s.state = stateDone
			return OutcomeNone, nil
		}
		if err := s.advance(ctx); err != nil {
			s.state = stateDone
			return OutcomeNone, err
		}
	}
}

// fail ends the scan on err. Allocation failures release the columns and are
// reported as *OutOfMemoryError, everything else as *SystemError.
func (s *ScanBatch) fail(err error) (IterOutcome, error) {
	s.state = stateDone
	r := s.current

	if errors.Is(err, vector.ErrOutOfMemory) {
		s.mutator.release()
		level.Warn(s.logger).Log("msg", "scan ran out of memory", "reader", r.name, "allocated", s.alloc.Allocated(), "limit", s.alloc.Limit())
		return OutcomeNone, &OutOfMemoryError{Reader: r.name, Err: err}
	}

	r.close(s.logger)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeNone, err
	}
	level.Error(s.logger).Log("msg", "reader failed", "reader", r.name, "path", r.path, "err", err)
	return OutcomeNone, &SystemError{Reader: r.name, Path: r.path, Err: err}
}

// Kill stops the scan. With propagate the columns stay as they are and the
// next poll returns OutcomeNone; without it their storage is released.
func (s *ScanBatch) Kill(propagate bool) {
	if propagate {
		s.state = stateDone
		return
	}
	s.mutator.release()
}

// Close releases every column and closes the active reader. Calls after the
// first do nothing.
func (s *ScanBatch) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.state = stateDone

	s.injector.clear()
	s.mutator.Clear()
	s.current.close(s.logger)
	level.Debug(s.logger).Log("msg", "scan closed", "records", s.stats.Records, "batches", s.stats.Batches, "readers", s.stats.Readers)
}

// Schema is the schema of the last batch.
func (s *ScanBatch) Schema() types.BatchSchema { return s.schema }

func (s *ScanBatch) RecordCount() int { return s.recordCount }

// Columns returns the columns of the last batch in schema order. They are
// reused by the next poll.
func (s *ScanBatch) Columns() []vector.Column { return s.mutator.Fields().Values() }

func (s *ScanBatch) Column(name string) (vector.Column, bool) { return s.mutator.Column(name) }

func (s *ScanBatch) Stats() Stats { return s.stats }
