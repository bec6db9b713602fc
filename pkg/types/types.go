package types

import (
	"fmt"
	"strings"
)

type MinorType int

const (
	MinorNull MinorType = iota
	MinorBit
	MinorInt
	MinorBigInt
	MinorUInt4
	MinorUInt8
	MinorFloat4
	MinorFloat8
	MinorDecimal9
	MinorDecimal18
	MinorDecimal28Sparse
	MinorDecimal38Sparse
	MinorVarChar
	MinorVarBinary
	MinorDate
	MinorTime
	MinorTimestamp
)

var minorNames = map[MinorType]string{
	MinorNull:            "NULL",
	MinorBit:             "BIT",
	MinorInt:             "INT",
	MinorBigInt:          "BIGINT",
	MinorUInt4:           "UINT4",
	MinorUInt8:           "UINT8",
	MinorFloat4:          "FLOAT4",
	MinorFloat8:          "FLOAT8",
	MinorDecimal9:        "DECIMAL9",
	MinorDecimal18:       "DECIMAL18",
	MinorDecimal28Sparse: "DECIMAL28SPARSE",
	MinorDecimal38Sparse: "DECIMAL38SPARSE",
	MinorVarChar:         "VARCHAR",
	MinorVarBinary:       "VARBINARY",
	MinorDate:            "DATE",
	MinorTime:            "TIME",
	MinorTimestamp:       "TIMESTAMP",
}

func (t MinorType) String() string {
	if s, ok := minorNames[t]; ok {
		return s
	}
	return fmt.Sprintf("MinorType(%d)", int(t))
}

// ParseMinorType is the inverse of MinorType.String.
func ParseMinorType(s string) (MinorType, error) {
	for t, name := range minorNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return MinorNull, fmt.Errorf("unknown minor type %q", s)
}

func (t MinorType) IsIntegral() bool {
	switch t {
	case MinorInt, MinorBigInt, MinorUInt4, MinorUInt8:
		return true
	}
	return false
}

func (t MinorType) IsDecimal() bool {
	switch t {
	case MinorDecimal9, MinorDecimal18, MinorDecimal28Sparse, MinorDecimal38Sparse:
		return true
	}
	return false
}

func (t MinorType) IsFloat() bool {
	return t == MinorFloat4 || t == MinorFloat8
}

func (t MinorType) IsNumeric() bool {
	return t.IsIntegral() || t.IsDecimal() || t.IsFloat()
}

// IsTemporal covers the types stored as milliseconds.
func (t MinorType) IsTemporal() bool {
	return t == MinorDate || t == MinorTime || t == MinorTimestamp
}

func (t MinorType) IsBytes() bool {
	return t == MinorVarChar || t == MinorVarBinary
}

type DataMode int

const (
	ModeRequired DataMode = iota
	ModeOptional
	ModeRepeated
)

func (m DataMode) String() string {
	switch m {
	case ModeRequired:
		return "REQUIRED"
	case ModeOptional:
		return "OPTIONAL"
	case ModeRepeated:
		return "REPEATED"
	}
	return fmt.Sprintf("DataMode(%d)", int(m))
}

// ModeFromLevels derives the cardinality of a parquet leaf from its maximum
// repetition and definition levels.
func ModeFromLevels(maxRepetition, maxDefinition int) DataMode {
	switch {
	case maxRepetition > 0:
		return ModeRepeated
	case maxDefinition == 0:
		return ModeRequired
	default:
		return ModeOptional
	}
}

// MajorType is a minor type with its cardinality. Precision and scale are only
// meaningful for decimals.
type MajorType struct {
	Minor     MinorType `json:"minor"`
	Mode      DataMode  `json:"mode"`
	Precision int32     `json:"precision,omitempty"`
	Scale     int32     `json:"scale,omitempty"`
}

func Required(t MinorType) MajorType { return MajorType{Minor: t, Mode: ModeRequired} }
func Optional(t MinorType) MajorType { return MajorType{Minor: t, Mode: ModeOptional} }
func Repeated(t MinorType) MajorType { return MajorType{Minor: t, Mode: ModeRepeated} }

func Decimal(mode DataMode, precision, scale int32) MajorType {
	minor := MinorDecimal38Sparse
	switch {
	case precision <= 9:
		minor = MinorDecimal9
	case precision <= 18:
		minor = MinorDecimal18
	case precision <= 28:
		minor = MinorDecimal28Sparse
	}
	return MajorType{Minor: minor, Mode: mode, Precision: precision, Scale: scale}
}

// WithMode returns t with its cardinality replaced.
func (t MajorType) WithMode(m DataMode) MajorType {
	t.Mode = m
	return t
}

func (t MajorType) String() string {
	s := t.Minor.String()
	if t.Minor.IsDecimal() {
		s = fmt.Sprintf("%s(%d,%d)", s, t.Precision, t.Scale)
	}
	return s + ":" + t.Mode.String()
}

// Field is a named column type.
type Field struct {
	Name string    `json:"name"`
	Type MajorType `json:"type"`
}

func NewField(name string, t MajorType) Field {
	return Field{Name: name, Type: t}
}

func (f Field) String() string {
	return "`" + f.Name + "` (" + f.Type.String() + ")"
}

// BatchSchema is the ordered field list of a batch.
type BatchSchema struct {
	Fields []Field
}

func (s BatchSchema) Len() int { return len(s.Fields) }

// Field looks a field up by case-insensitive name.
func (s BatchSchema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

func (s BatchSchema) Equal(other BatchSchema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i := range s.Fields {
		if !strings.EqualFold(s.Fields[i].Name, other.Fields[i].Name) || s.Fields[i].Type != other.Fields[i].Type {
			return false
		}
	}
	return true
}

func (s BatchSchema) String() string {
	parts := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		parts = append(parts, f.String())
	}
	return "BatchSchema [" + strings.Join(parts, ", ") + "]"
}
