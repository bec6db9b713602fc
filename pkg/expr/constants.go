package expr

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/grafana/colscan/pkg/types"
)

var errNotConstant = errors.New("expression is not constant")

// ConstantExpressions returns every node of e that references no column and
// can therefore be evaluated without statistics.
func ConstantExpressions(e Expression) map[Expression]struct{} {
	set := map[Expression]struct{}{}
	markConstants(e, set)
	return set
}

func markConstants(e Expression, set map[Expression]struct{}) bool {
	constant := true
	switch e.(type) {
	case *Field, *TypedField, *FunctionCall:
		constant = false
	}
	for _, c := range Children(e) {
		if !markConstants(c, set) {
			constant = false
		}
	}
	if constant {
		set[e] = struct{}{}
	}
	return constant
}

// EvaluateConstant computes the value of a column free expression exactly.
// Comparisons and arithmetic follow SQL null semantics.
func EvaluateConstant(e Expression) (*Static, error) {
	switch n := e.(type) {
	case *Static:
		return n, nil
	case *Cast:
		v, err := EvaluateConstant(n.Expression)
		if err != nil {
			return nil, err
		}
		return CastStatic(v, n.Target)
	case *UnaryOperation:
		v, err := EvaluateConstant(n.Expression)
		if err != nil {
			return nil, err
		}
		return evalUnary(n.Op, v)
	case *BinaryOperation:
		l, err := EvaluateConstant(n.LHS)
		if err != nil {
			return nil, err
		}
		r, err := EvaluateConstant(n.RHS)
		if err != nil {
			return nil, err
		}
		return evalBinary(n.Op, l, r, n.Type())
	}
	return nil, fmt.Errorf("%s: %w", e, errNotConstant)
}

func evalUnary(op Operator, v *Static) (*Static, error) {
	switch op {
	case OpIsNull:
		return NewStaticBool(v.Null), nil
	case OpIsNotNull:
		return NewStaticBool(!v.Null), nil
	}
	if v.Null {
		return NewStaticNull(), nil
	}
	switch op {
	case OpNot:
		if v.T.Minor != types.MinorBit {
			return nil, fmt.Errorf("not of %s", v.T)
		}
		return NewStaticBool(!v.B), nil
	case OpNegate:
		r, ok := v.Rat()
		if !ok {
			return nil, fmt.Errorf("negate of %s", v)
		}
		return StaticFromRat(v.T, r.Neg(r))
	}
	return nil, fmt.Errorf("unsupported unary operator %s", op)
}

func evalBinary(op Operator, l, r *Static, t types.MajorType) (*Static, error) {
	switch op {
	case OpAnd:
		return and3(l, r)
	case OpOr:
		return or3(l, r)
	}
	if l.Null || r.Null {
		return NewStaticNull(), nil
	}

	if op.isComparison() {
		c, err := l.Compare(r)
		if err != nil {
			return nil, err
		}
		return NewStaticBool(compareHolds(op, c)), nil
	}

	a, ok := l.Rat()
	if !ok {
		return nil, fmt.Errorf("%s is not numeric", l)
	}
	b, ok := r.Rat()
	if !ok {
		return nil, fmt.Errorf("%s is not numeric", r)
	}
	out := new(big.Rat)
	switch op {
	case OpAdd:
		out.Add(a, b)
	case OpSub:
		out.Sub(a, b)
	case OpMult:
		out.Mul(a, b)
		if t.Minor.IsDecimal() {
			t = types.Decimal(types.ModeRequired, 38, min(l.T.Scale+r.T.Scale, 38))
		}
	case OpMod:
		if !a.IsInt() || !b.IsInt() || b.Sign() == 0 {
			return nil, fmt.Errorf("mod of %s and %s", l, r)
		}
		out.SetInt(new(big.Int).Rem(a.Num(), b.Num()))
	default:
		return nil, fmt.Errorf("%s cannot be folded", op)
	}
	return StaticFromRat(t, out)
}

func compareHolds(op Operator, c int) bool {
	switch op {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	}
	return false
}

func and3(l, r *Static) (*Static, error) {
	if (!l.Null && !l.B) || (!r.Null && !r.B) {
		return NewStaticBool(false), nil
	}
	if l.Null || r.Null {
		return NewStaticNull(), nil
	}
	return NewStaticBool(true), nil
}

func or3(l, r *Static) (*Static, error) {
	if (!l.Null && l.B) || (!r.Null && r.B) {
		return NewStaticBool(true), nil
	}
	if l.Null || r.Null {
		return NewStaticNull(), nil
	}
	return NewStaticBool(false), nil
}

// CastStatic converts v to type t. Narrowing numeric casts truncate toward
// zero.
func CastStatic(v *Static, t types.MajorType) (*Static, error) {
	if v.Null {
		return NewStaticNull(), nil
	}
	t = t.WithMode(types.ModeRequired)
	from := v.T.Minor
	switch {
	case from == types.MinorVarChar && t.Minor != types.MinorVarChar:
		return ParseStatic(t, v.S)
	case from.IsBytes() && t.Minor.IsBytes():
		return &Static{T: t, S: v.S}, nil
	case from == types.MinorDate && t.Minor == types.MinorTimestamp:
		return NewStaticTimestamp(v.N), nil
	case from == types.MinorBit && t.Minor == types.MinorBit:
		return v, nil
	case from.IsTemporal() && from == t.Minor:
		return v, nil
	case from.IsNumeric() && t.Minor.IsNumeric():
		if from.IsFloat() && t.Minor.IsFloat() {
			if t.Minor == types.MinorFloat4 {
				return NewStaticFloat32(float32(v.F)), nil
			}
			return NewStaticFloat(v.F), nil
		}
		r, ok := v.Rat()
		if !ok {
			return nil, fmt.Errorf("cannot cast %s to %s", v, t)
		}
		return StaticFromRat(t, r)
	}
	return nil, fmt.Errorf("cannot cast %s to %s", v, t)
}

// StaticFromRat builds a literal of type t holding r.
func StaticFromRat(t types.MajorType, r *big.Rat) (*Static, error) {
	t = t.WithMode(types.ModeRequired)
	truncated := new(big.Int).Quo(r.Num(), r.Denom())
	switch m := t.Minor; {
	case m == types.MinorBit:
		return NewStaticBool(r.Sign() != 0), nil
	case m == types.MinorInt || m == types.MinorBigInt || m.IsTemporal():
		if !truncated.IsInt64() {
			return nil, fmt.Errorf("%s overflows %s", r.RatString(), t)
		}
		return &Static{T: t, N: truncated.Int64()}, nil
	case m == types.MinorUInt4 || m == types.MinorUInt8:
		if truncated.Sign() < 0 || !truncated.IsUint64() {
			return nil, fmt.Errorf("%s overflows %s", r.RatString(), t)
		}
		return &Static{T: t, U: truncated.Uint64()}, nil
	case m.IsDecimal():
		scaled := new(big.Rat).Mul(r, pow10(t.Scale))
		unscaled := new(big.Int).Quo(scaled.Num(), scaled.Denom())
		precision := t.Precision
		if precision == 0 {
			precision = 38
		}
		return NewStaticDecimal(unscaled, precision, t.Scale), nil
	case m == types.MinorFloat4:
		f, _ := r.Float32()
		return NewStaticFloat32(f), nil
	case m == types.MinorFloat8:
		f, _ := r.Float64()
		return NewStaticFloat(f), nil
	}
	return nil, fmt.Errorf("no numeric representation for %s", t)
}
