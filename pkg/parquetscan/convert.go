package parquetscan

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/grafana/colscan/pkg/pruning"
	"github.com/grafana/colscan/pkg/types"
	"github.com/grafana/colscan/pkg/vector"
)

const (
	millisPerDay    = 24 * 60 * 60 * 1000
	julianUnixEpoch = 2440588
)

// converter turns a stored parquet value of c into what vector.SetObject
// expects for a column of type t.
type converter func(v parquet.Value) (any, error)

func newConverter(c pruning.ColumnMetadata, t types.MajorType, opts pruning.Options) (converter, error) {
	switch t.Minor {
	case types.MinorBit:
		return func(v parquet.Value) (any, error) { return v.Boolean(), nil }, nil
	case types.MinorInt, types.MinorBigInt, types.MinorDecimal9, types.MinorDecimal18:
		return integer(c), nil
	case types.MinorUInt4:
		return func(v parquet.Value) (any, error) { return v.Uint32(), nil }, nil
	case types.MinorUInt8:
		return func(v parquet.Value) (any, error) { return v.Uint64(), nil }, nil
	case types.MinorFloat4:
		return func(v parquet.Value) (any, error) { return v.Float(), nil }, nil
	case types.MinorFloat8:
		return func(v parquet.Value) (any, error) { return v.Double(), nil }, nil
	case types.MinorDate:
		return func(v parquet.Value) (any, error) {
			return pruning.CorrectDays(int64(v.Int32()), opts.DateCorrection) * millisPerDay, nil
		}, nil
	case types.MinorTime:
		return temporal(c, func(ms int64) any { return int32(ms) }), nil
	case types.MinorTimestamp:
		if c.Physical == pruning.PhysicalInt96 {
			return func(v parquet.Value) (any, error) {
				i := v.Int96()
				nanos := int64(uint64(i[0]) | uint64(i[1])<<32)
				return (int64(i[2])-julianUnixEpoch)*millisPerDay + nanos/1e6, nil
			}, nil
		}
		return temporal(c, func(ms int64) any { return ms }), nil
	case types.MinorVarChar, types.MinorVarBinary, types.MinorDecimal28Sparse, types.MinorDecimal38Sparse:
		if c.Physical == pruning.PhysicalInt96 {
			return func(v parquet.Value) (any, error) { return v.Bytes(), nil }, nil
		}
		return func(v parquet.Value) (any, error) { return v.ByteArray(), nil }, nil
	}
	return nil, fmt.Errorf("cannot read column %s as %s", c.Path, t)
}

// integer reads ints and int backed decimals. Decimals stored as bytes hold
// the big endian unscaled value.
func integer(c pruning.ColumnMetadata) converter {
	switch c.Physical {
	case pruning.PhysicalInt32:
		return func(v parquet.Value) (any, error) { return v.Int32(), nil }
	case pruning.PhysicalInt64:
		return func(v parquet.Value) (any, error) { return v.Int64(), nil }
	}
	return func(v parquet.Value) (any, error) {
		u := vector.UnscaledFromBytes(v.ByteArray())
		if !u.IsInt64() {
			return nil, fmt.Errorf("column %s: decimal %s out of range", c.Path, u)
		}
		return u, nil
	}
}

func temporal(c pruning.ColumnMetadata, out func(int64) any) converter {
	return func(v parquet.Value) (any, error) {
		n := v.Int64()
		if c.Physical == pruning.PhysicalInt32 {
			n = int64(v.Int32())
		}
		ms, ok := pruning.ToMillis(n, c.Logical.Unit)
		if !ok {
			return nil, fmt.Errorf("column %s has an unknown time unit", c.Path)
		}
		return out(ms), nil
	}
}
