package expr

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/grafana/colscan/pkg/types"
)

const (
	millisPerDay = int64(24 * time.Hour / time.Millisecond)

	dateLayout      = "2006-01-02"
	timeLayout      = "15:04:05.999"
	timestampLayout = "2006-01-02 15:04:05.999"
)

// Static is a literal value. The type decides which field holds the value:
// N for signed integers, temporal millis and unscaled decimals up to 18
// digits, U for unsigned integers, D for wider decimals, F for floats, S for
// strings and binary, B for booleans.
type Static struct {
	T types.MajorType

	N    int64
	U    uint64
	D    *big.Int
	F    float64
	S    string
	B    bool
	Null bool
}

func NewStaticNull() *Static {
	return &Static{T: types.Optional(types.MinorNull), Null: true}
}

func NewStaticBool(b bool) *Static {
	return &Static{T: types.Required(types.MinorBit), B: b}
}

func NewStaticInt32(n int32) *Static {
	return &Static{T: types.Required(types.MinorInt), N: int64(n)}
}

func NewStaticInt(n int64) *Static {
	return &Static{T: types.Required(types.MinorBigInt), N: n}
}

func NewStaticUInt32(n uint32) *Static {
	return &Static{T: types.Required(types.MinorUInt4), U: uint64(n)}
}

func NewStaticUInt(n uint64) *Static {
	return &Static{T: types.Required(types.MinorUInt8), U: n}
}

func NewStaticFloat32(f float32) *Static {
	return &Static{T: types.Required(types.MinorFloat4), F: float64(f)}
}

func NewStaticFloat(f float64) *Static {
	return &Static{T: types.Required(types.MinorFloat8), F: f}
}

// NewStaticDecimal builds a decimal from its unscaled value.
func NewStaticDecimal(unscaled *big.Int, precision, scale int32) *Static {
	t := types.Decimal(types.ModeRequired, precision, scale)
	s := &Static{T: t}
	if unscaled.IsInt64() && t.Minor != types.MinorDecimal28Sparse && t.Minor != types.MinorDecimal38Sparse {
		s.N = unscaled.Int64()
	} else {
		s.D = new(big.Int).Set(unscaled)
	}
	return s
}

func NewStaticString(s string) *Static {
	return &Static{T: types.Required(types.MinorVarChar), S: s}
}

func NewStaticBinary(b []byte) *Static {
	return &Static{T: types.Required(types.MinorVarBinary), S: string(b)}
}

func NewStaticDate(millis int64) *Static {
	return &Static{T: types.Required(types.MinorDate), N: millis}
}

// NewStaticDateDays builds a date from days since the unix epoch.
func NewStaticDateDays(days int64) *Static {
	return NewStaticDate(days * millisPerDay)
}

func NewStaticTime(millis int64) *Static {
	return &Static{T: types.Required(types.MinorTime), N: millis}
}

func NewStaticTimestamp(millis int64) *Static {
	return &Static{T: types.Required(types.MinorTimestamp), N: millis}
}

// nolint: revive
func (*Static) __expression() {}

func (s *Static) Type() types.MajorType { return s.T }

func (s *Static) IsNull() bool { return s.Null }

// Unscaled returns the unscaled integer of a decimal.
func (s *Static) Unscaled() *big.Int {
	if s.D != nil {
		return new(big.Int).Set(s.D)
	}
	return big.NewInt(s.N)
}

// Rat returns the exact numeric value of s. Booleans map to 0 and 1 and
// temporal values to their millis. It reports false for nulls, strings,
// binary and non-finite floats.
func (s *Static) Rat() (*big.Rat, bool) {
	if s.Null {
		return nil, false
	}
	m := s.T.Minor
	switch {
	case m == types.MinorBit:
		if s.B {
			return big.NewRat(1, 1), true
		}
		return new(big.Rat), true
	case m == types.MinorUInt4 || m == types.MinorUInt8:
		return new(big.Rat).SetInt(new(big.Int).SetUint64(s.U)), true
	case m == types.MinorInt || m == types.MinorBigInt || m.IsTemporal():
		return big.NewRat(s.N, 1), true
	case m.IsDecimal():
		r := new(big.Rat).SetInt(s.Unscaled())
		return r.Quo(r, pow10(s.T.Scale)), true
	case m.IsFloat():
		if math.IsNaN(s.F) || math.IsInf(s.F, 0) {
			return nil, false
		}
		return new(big.Rat).SetFloat64(s.F), true
	}
	return nil, false
}

// Bytes returns the value of a string or binary literal.
func (s *Static) Bytes() ([]byte, bool) {
	if s.Null || !s.T.Minor.IsBytes() {
		return nil, false
	}
	return []byte(s.S), true
}

// Compare orders two non-null literals of comparable kinds exactly. Numeric,
// temporal and boolean values compare by value, strings and binary bytewise.
func (s *Static) Compare(o *Static) (int, error) {
	if s.Null || o.Null {
		return 0, fmt.Errorf("cannot compare null")
	}
	if a, ok := s.Bytes(); ok {
		b, ok := o.Bytes()
		if !ok {
			return 0, fmt.Errorf("cannot compare %s with %s", s.T, o.T)
		}
		return bytes.Compare(a, b), nil
	}
	a, ok := s.Rat()
	if !ok {
		return 0, fmt.Errorf("cannot compare %s", s)
	}
	b, ok := o.Rat()
	if !ok {
		return 0, fmt.Errorf("cannot compare %s", o)
	}
	return a.Cmp(b), nil
}

func (s *Static) Equals(o *Static) bool {
	if s.Null || o.Null {
		return s.Null == o.Null
	}
	c, err := s.Compare(o)
	return err == nil && c == 0
}

func (s *Static) String() string {
	if s.Null {
		return "null"
	}
	switch m := s.T.Minor; {
	case m == types.MinorBit:
		return strconv.FormatBool(s.B)
	case m == types.MinorUInt4 || m == types.MinorUInt8:
		return strconv.FormatUint(s.U, 10)
	case m == types.MinorInt || m == types.MinorBigInt:
		return strconv.FormatInt(s.N, 10)
	case m.IsDecimal():
		r, _ := s.Rat()
		return r.FloatString(int(s.T.Scale))
	case m.IsFloat():
		return strconv.FormatFloat(s.F, 'g', -1, 64)
	case m == types.MinorVarChar:
		return "'" + strings.ReplaceAll(s.S, "'", "''") + "'"
	case m == types.MinorVarBinary:
		return fmt.Sprintf("X'%x'", s.S)
	case m == types.MinorDate:
		return "DATE '" + time.UnixMilli(s.N).UTC().Format(dateLayout) + "'"
	case m == types.MinorTime:
		return "TIME '" + time.UnixMilli(s.N).UTC().Format(timeLayout) + "'"
	case m == types.MinorTimestamp:
		return "TIMESTAMP '" + time.UnixMilli(s.N).UTC().Format(timestampLayout) + "'"
	}
	return fmt.Sprintf("static(%s)", s.T)
}

// text is the literal as written in the json codec, without quoting.
func (s *Static) text() string {
	switch s.T.Minor {
	case types.MinorVarChar:
		return s.S
	case types.MinorVarBinary:
		return fmt.Sprintf("%x", s.S)
	case types.MinorDate:
		return time.UnixMilli(s.N).UTC().Format(dateLayout)
	case types.MinorTime:
		return time.UnixMilli(s.N).UTC().Format(timeLayout)
	case types.MinorTimestamp:
		return time.UnixMilli(s.N).UTC().Format(timestampLayout)
	}
	return s.String()
}

// ParseStatic reads text as a literal of type t.
func ParseStatic(t types.MajorType, text string) (*Static, error) {
	switch m := t.Minor; {
	case m == types.MinorNull:
		return NewStaticNull(), nil
	case m == types.MinorBit:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, err
		}
		return NewStaticBool(b), nil
	case m == types.MinorInt:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, err
		}
		return NewStaticInt32(int32(n)), nil
	case m == types.MinorBigInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, err
		}
		return NewStaticInt(n), nil
	case m == types.MinorUInt4:
		n, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return nil, err
		}
		return NewStaticUInt32(uint32(n)), nil
	case m == types.MinorUInt8:
		n, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, err
		}
		return NewStaticUInt(n), nil
	case m == types.MinorFloat4:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, err
		}
		return NewStaticFloat32(float32(f)), nil
	case m == types.MinorFloat8:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, err
		}
		return NewStaticFloat(f), nil
	case m.IsDecimal():
		r, ok := new(big.Rat).SetString(text)
		if !ok {
			return nil, fmt.Errorf("invalid decimal %q", text)
		}
		scaled := new(big.Rat).Mul(r, pow10(t.Scale))
		if !scaled.IsInt() {
			return nil, fmt.Errorf("decimal %q has more than %d fractional digits", text, t.Scale)
		}
		precision := t.Precision
		if precision == 0 {
			precision = 38
		}
		return NewStaticDecimal(scaled.Num(), precision, t.Scale), nil
	case m == types.MinorVarChar:
		return NewStaticString(text), nil
	case m == types.MinorVarBinary:
		b, err := hex.DecodeString(text)
		if err != nil {
			return nil, err
		}
		return NewStaticBinary(b), nil
	case m == types.MinorDate:
		ts, err := time.Parse(dateLayout, text)
		if err != nil {
			return nil, err
		}
		return NewStaticDate(ts.UnixMilli()), nil
	case m == types.MinorTime:
		ts, err := time.Parse(timeLayout, text)
		if err != nil {
			return nil, err
		}
		midnight := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		return NewStaticTime(ts.Sub(midnight).Milliseconds()), nil
	case m == types.MinorTimestamp:
		ts, err := time.Parse(timestampLayout, text)
		if err != nil {
			if ts, err = time.Parse(time.RFC3339Nano, text); err != nil {
				return nil, err
			}
		}
		return NewStaticTimestamp(ts.UnixMilli()), nil
	}
	return nil, fmt.Errorf("cannot parse literal of type %s", t)
}

func pow10(scale int32) *big.Rat {
	return new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil))
}
