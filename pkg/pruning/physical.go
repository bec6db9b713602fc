package pruning

import (
	"fmt"
	"strings"

	"github.com/grafana/colscan/pkg/types"
)

// PhysicalType is the primitive a column is encoded as on disk.
type PhysicalType int

const (
	PhysicalBoolean PhysicalType = iota
	PhysicalInt32
	PhysicalInt64
	PhysicalInt96
	PhysicalFloat
	PhysicalDouble
	PhysicalByteArray
	PhysicalFixedLenByteArray
)

func (p PhysicalType) String() string {
	switch p {
	case PhysicalBoolean:
		return "BOOLEAN"
	case PhysicalInt32:
		return "INT32"
	case PhysicalInt64:
		return "INT64"
	case PhysicalInt96:
		return "INT96"
	case PhysicalFloat:
		return "FLOAT"
	case PhysicalDouble:
		return "DOUBLE"
	case PhysicalByteArray:
		return "BYTE_ARRAY"
	case PhysicalFixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	}
	return fmt.Sprintf("PhysicalType(%d)", int(p))
}

type LogicalKind int

const (
	LogicalNone LogicalKind = iota
	LogicalString
	LogicalEnum
	LogicalJSON
	LogicalUUID
	LogicalDate
	LogicalTime
	LogicalTimestamp
	LogicalDecimal
	LogicalInteger
)

type TimeUnit int

const (
	UnitMillis TimeUnit = iota
	UnitMicros
	UnitNanos
)

// LogicalType annotates a physical type with its meaning.
type LogicalType struct {
	Kind      LogicalKind
	Precision int32
	Scale     int32
	Unit      TimeUnit
	BitWidth  int
	Signed    bool
}

// ColumnMetadata describes one leaf column of a storage unit.
type ColumnMetadata struct {
	Path               string
	Physical           PhysicalType
	Logical            LogicalType
	TypeLength         int
	MaxRepetitionLevel int
	MaxDefinitionLevel int
}

func (c ColumnMetadata) Mode() types.DataMode {
	return types.ModeFromLevels(c.MaxRepetitionLevel, c.MaxDefinitionLevel)
}

// PhysicalSchema is the set of leaf columns of a storage unit keyed by
// case-insensitive path.
type PhysicalSchema struct {
	columns *types.CaseInsensitiveMap[ColumnMetadata]
}

func NewPhysicalSchema(cols ...ColumnMetadata) *PhysicalSchema {
	s := &PhysicalSchema{columns: types.NewCaseInsensitiveMap[ColumnMetadata]()}
	for _, c := range cols {
		s.columns.Put(c.Path, c)
	}
	return s
}

func (s *PhysicalSchema) Column(path string) (ColumnMetadata, bool) {
	return s.columns.Get(path)
}

func (s *PhysicalSchema) Columns() []ColumnMetadata {
	return s.columns.Values()
}

// MajorTypeOf maps a stored column to the type the engine reads it as.
func MajorTypeOf(c ColumnMetadata, int96AsTimestamp bool) (types.MajorType, error) {
	mode := c.Mode()
	l := c.Logical
	minor := func(m types.MinorType) (types.MajorType, error) {
		return types.MajorType{Minor: m, Mode: mode}, nil
	}

	switch c.Physical {
	case PhysicalBoolean:
		return minor(types.MinorBit)
	case PhysicalInt32:
		switch l.Kind {
		case LogicalDate:
			return minor(types.MinorDate)
		case LogicalTime:
			return minor(types.MinorTime)
		case LogicalDecimal:
			return types.Decimal(mode, l.Precision, l.Scale), nil
		case LogicalInteger:
			if !l.Signed {
				return minor(types.MinorUInt4)
			}
		}
		return minor(types.MinorInt)
	case PhysicalInt64:
		switch l.Kind {
		case LogicalTimestamp:
			return minor(types.MinorTimestamp)
		case LogicalTime:
			return minor(types.MinorTime)
		case LogicalDecimal:
			return types.Decimal(mode, l.Precision, l.Scale), nil
		case LogicalInteger:
			if !l.Signed {
				return minor(types.MinorUInt8)
			}
		}
		return minor(types.MinorBigInt)
	case PhysicalInt96:
		if int96AsTimestamp {
			return minor(types.MinorTimestamp)
		}
		return minor(types.MinorVarBinary)
	case PhysicalFloat:
		return minor(types.MinorFloat4)
	case PhysicalDouble:
		return minor(types.MinorFloat8)
	case PhysicalByteArray, PhysicalFixedLenByteArray:
		switch l.Kind {
		case LogicalString, LogicalEnum, LogicalJSON:
			return minor(types.MinorVarChar)
		case LogicalDecimal:
			return types.Decimal(mode, l.Precision, l.Scale), nil
		}
		return minor(types.MinorVarBinary)
	}
	return types.MajorType{}, fmt.Errorf("column %s has unknown physical type %s", c.Path, c.Physical)
}

// prunable reports why filters on c can never be decided from statistics.
func prunable(c ColumnMetadata) error {
	if c.Mode() == types.ModeRepeated {
		return fmt.Errorf("column %s is repeated", c.Path)
	}
	if c.Logical.Kind == LogicalDecimal && (c.Physical == PhysicalByteArray || c.Physical == PhysicalFixedLenByteArray) {
		return fmt.Errorf("column %s stores decimals as %s", c.Path, c.Physical)
	}
	return nil
}

func pathKeyOf(p string) string {
	return strings.ToLower(p)
}
