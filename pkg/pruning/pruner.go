package pruning

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/colscan/pkg/expr"
	"github.com/grafana/colscan/pkg/types"
	util_log "github.com/grafana/colscan/pkg/util/log"
)

// Options tune how statistics are read.
type Options struct {
	DateCorrection   DateCorrection
	Int96AsTimestamp bool
	Logger           log.Logger
}

// CanDrop reports whether no row of a storage unit with the given schema and
// statistics can satisfy filter. Whenever that cannot be proven, including
// any failure along the way, it returns false. Neither filter nor the
// statistics are modified.
func CanDrop(filter expr.Expression, schema *PhysicalSchema, stats *ColumnStatistics, opts Options) (canDrop bool) {
	logger := util_log.OrGlobal(opts.Logger)
	defer func() {
		if r := recover(); r != nil {
			level.Warn(logger).Log("msg", "row group filter evaluation failed", "filter", filter, "err", fmt.Sprint(r))
			canDrop = false
		}
	}()

	result, err := Evaluate(filter, schema, stats, opts)
	if err != nil {
		level.Debug(logger).Log("msg", "cannot prune row group", "filter", filter, "reason", err)
		return false
	}
	level.Debug(logger).Log("msg", "evaluated row group filter", "filter", filter, "result", result)
	return result == ResultFalse
}

// errIndeterminate marks reasons that only mean there is not enough
// information, as opposed to a broken filter.
type errIndeterminate struct {
	reason string
}

func (e errIndeterminate) Error() string { return e.reason }

// Evaluate runs the filter over the statistics and returns its three valued
// result. An error means the result is unknown.
func Evaluate(filter expr.Expression, schema *PhysicalSchema, stats *ColumnStatistics, opts Options) (Result, error) {
	logger := util_log.OrGlobal(opts.Logger)

	paths := expr.CollectFields(filter)
	columns := map[string]types.MajorType{}
	adapted := NewColumnStatistics()
	for _, p := range paths {
		col, ok := schema.Column(p)
		if !ok {
			return ResultUnknown, errIndeterminate{fmt.Sprintf("column %s is not in the schema", p)}
		}
		if err := prunable(col); err != nil {
			return ResultUnknown, errIndeterminate{err.Error()}
		}
		st, ok := stats.Get(p)
		if !ok {
			return ResultUnknown, errIndeterminate{fmt.Sprintf("no statistics for column %s", p)}
		}
		t, err := MajorTypeOf(col, opts.Int96AsTimestamp)
		if err != nil {
			return ResultUnknown, err
		}
		st, err = adaptStatistics(col, t, st, opts)
		if err != nil {
			return ResultUnknown, err
		}
		columns[pathKeyOf(p)] = t
		adapted.Put(p, st)
	}

	ec := &expr.ErrorCollector{}
	materialized := expr.Materialize(filter, func(path string) (types.MajorType, bool) {
		t, ok := columns[pathKeyOf(path)]
		return t, ok
	}, ec)
	if ec.HasErrors() {
		level.Error(logger).Log("msg", "failed to materialize row group filter", "filter", filter, "errors", ec.ErrorCount(), "err", ec.Err())
		return ResultUnknown, ec.Err()
	}
	level.Debug(logger).Log("msg", "materialized row group filter", "filter", materialized)

	r := &rangeEvaluator{
		stats:     adapted,
		constants: expr.ConstantExpressions(materialized),
	}
	return r.evalBool(materialized).result(), nil
}
