package expr

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/grafana/colscan/pkg/types"
)

// ErrorCollector accumulates problems found while materializing a tree so all
// of them can be reported at once.
type ErrorCollector struct {
	errs []error
}

func (c *ErrorCollector) Add(err error) {
	c.errs = append(c.errs, err)
}

func (c *ErrorCollector) Addf(format string, args ...any) {
	c.Add(fmt.Errorf(format, args...))
}

func (c *ErrorCollector) HasErrors() bool { return len(c.errs) > 0 }
func (c *ErrorCollector) ErrorCount() int { return len(c.errs) }

// Err combines everything collected, nil when nothing was.
func (c *ErrorCollector) Err() error {
	return multierr.Combine(c.errs...)
}

// TypeLookup resolves a column path to the type it is stored as.
type TypeLookup func(path string) (types.MajorType, bool)

// Materialize binds every column reference in e to its stored type, resolves
// function calls to operators and inserts the casts needed for operands of
// different types to be compared. Problems are reported to ec and the returned
// tree is only meaningful when ec has no errors.
func Materialize(e Expression, lookup TypeLookup, ec *ErrorCollector) Expression {
	m := materializer{lookup: lookup, ec: ec}
	return m.visit(e)
}

type materializer struct {
	lookup TypeLookup
	ec     *ErrorCollector
}

func (m materializer) visit(e Expression) Expression {
	switch n := e.(type) {
	case *Field:
		t, ok := m.lookup(n.Path)
		if !ok {
			m.ec.Addf("column %s not found", n)
			return n
		}
		return NewTypedField(n.Path, t)
	case *TypedField, *Static:
		return n
	case *Cast:
		child := m.visit(n.Expression)
		if !castable(child, n.Target) {
			m.ec.Addf("cannot cast %s from %s to %s", child, child.Type(), n.Target)
		}
		return NewCast(child, n.Target)
	case *FunctionCall:
		return m.visitFunction(n)
	case *UnaryOperation:
		return m.visitUnary(n.Op, m.visit(n.Expression))
	case *BinaryOperation:
		return m.visitBinary(n.Op, m.visit(n.LHS), m.visit(n.RHS))
	}
	m.ec.Addf("unsupported expression %T", e)
	return e
}

func (m materializer) visitFunction(f *FunctionCall) Expression {
	op, ok := functionOperators[strings.ToLower(f.Name)]
	if !ok {
		m.ec.Addf("no function named %s", f.Name)
		return f
	}
	if op.isUnary() {
		if len(f.Args) != 1 {
			m.ec.Addf("function %s takes 1 argument, got %d", f.Name, len(f.Args))
			return f
		}
		return m.visitUnary(op, m.visit(f.Args[0]))
	}
	// boolean functions are variadic
	if (op == OpAnd || op == OpOr) && len(f.Args) >= 2 {
		args := make([]Expression, 0, len(f.Args))
		for _, a := range f.Args {
			args = append(args, m.visit(a))
		}
		out := args[0]
		for _, a := range args[1:] {
			out = m.visitBinary(op, out, a)
		}
		return out
	}
	if len(f.Args) != 2 {
		m.ec.Addf("function %s takes 2 arguments, got %d", f.Name, len(f.Args))
		return f
	}
	return m.visitBinary(op, m.visit(f.Args[0]), m.visit(f.Args[1]))
}

func (m materializer) visitUnary(op Operator, child Expression) Expression {
	t := child.Type().Minor
	switch op {
	case OpNot:
		if t != types.MinorBit && t != types.MinorNull {
			m.ec.Addf("not requires a boolean operand, got %s", child.Type())
		}
	case OpNegate:
		if !t.IsNumeric() && t != types.MinorNull {
			m.ec.Addf("negate requires a numeric operand, got %s", child.Type())
		}
	case OpIsNull, OpIsNotNull:
	default:
		m.ec.Addf("%s is not a unary operator", op)
	}
	return NewUnaryOperation(op, child)
}

func (m materializer) visitBinary(op Operator, lhs, rhs Expression) Expression {
	lt, rt := lhs.Type().Minor, rhs.Type().Minor
	switch {
	case op == OpAnd || op == OpOr:
		for _, t := range []types.MajorType{lhs.Type(), rhs.Type()} {
			if t.Minor != types.MinorBit && t.Minor != types.MinorNull {
				m.ec.Addf("%s requires boolean operands, got %s", op, t)
			}
		}
		return NewBinaryOperation(op, lhs, rhs)
	case op == OpLike:
		if (!lt.IsBytes() && lt != types.MinorNull) || (!rt.IsBytes() && rt != types.MinorNull) {
			m.ec.Addf("like requires string operands, got %s and %s", lhs.Type(), rhs.Type())
		}
		return NewBinaryOperation(op, lhs, rhs)
	case op.isArithmetic():
		if (!lt.IsNumeric() && lt != types.MinorNull) || (!rt.IsNumeric() && rt != types.MinorNull) {
			m.ec.Addf("%s requires numeric operands, got %s and %s", op, lhs.Type(), rhs.Type())
			return NewBinaryOperation(op, lhs, rhs)
		}
	case op.isComparison():
	default:
		m.ec.Addf("%s is not a binary operator", op)
		return NewBinaryOperation(op, lhs, rhs)
	}

	common, err := commonType(lhs, rhs)
	if err != nil {
		m.ec.Add(err)
		return NewBinaryOperation(op, lhs, rhs)
	}
	return NewBinaryOperation(op, castTo(lhs, common), castTo(rhs, common))
}

// castTo wraps e in a cast to t unless it already has that type.
func castTo(e Expression, t types.MajorType) Expression {
	cur := e.Type()
	if cur.Minor == types.MinorNull || (cur.Minor == t.Minor && cur.Precision == t.Precision && cur.Scale == t.Scale) {
		return e
	}
	return NewCast(e, t.WithMode(types.ModeRequired))
}

func isStringLiteral(e Expression) bool {
	s, ok := e.(*Static)
	return ok && !s.Null && s.T.Minor == types.MinorVarChar
}

// commonType is the type both operands of a comparison or arithmetic
// operator are cast to.
func commonType(lhs, rhs Expression) (types.MajorType, error) {
	a, b := lhs.Type(), rhs.Type()
	switch {
	case a.Minor == types.MinorNull:
		return b, nil
	case b.Minor == types.MinorNull:
		return a, nil
	case a.Minor.IsDecimal() && b.Minor.IsDecimal():
		return widenDecimal(a, b), nil
	case a.Minor == b.Minor:
		return a, nil
	case a.Minor.IsNumeric() && b.Minor.IsNumeric():
		return numericCommon(a, b), nil
	case isDateOrTimestamp(a.Minor) && isDateOrTimestamp(b.Minor):
		return types.Required(types.MinorTimestamp), nil
	case isStringLiteral(lhs) && parsesFromString(b.Minor):
		return b, nil
	case isStringLiteral(rhs) && parsesFromString(a.Minor):
		return a, nil
	case a.Minor.IsBytes() && b.Minor.IsBytes():
		return types.Required(types.MinorVarBinary), nil
	}
	return types.MajorType{}, fmt.Errorf("cannot compare %s of type %s with %s of type %s", lhs, a, rhs, b)
}

func isDateOrTimestamp(m types.MinorType) bool {
	return m == types.MinorDate || m == types.MinorTimestamp
}

func parsesFromString(m types.MinorType) bool {
	return m.IsTemporal() || m.IsNumeric() || m == types.MinorBit
}

// integer digits needed to hold every value of an integral type
func integerDigits(t types.MajorType) int32 {
	switch t.Minor {
	case types.MinorInt, types.MinorUInt4:
		return 10
	case types.MinorBigInt:
		return 19
	case types.MinorUInt8:
		return 20
	}
	return t.Precision - t.Scale
}

func widenDecimal(a, b types.MajorType) types.MajorType {
	scale := max(a.Scale, b.Scale)
	digits := max(integerDigits(a), integerDigits(b))
	return types.Decimal(types.ModeRequired, min(digits+scale, 38), scale)
}

func numericCommon(a, b types.MajorType) types.MajorType {
	switch {
	case a.Minor.IsFloat() || b.Minor.IsFloat():
		return types.Required(types.MinorFloat8)
	case a.Minor.IsDecimal() || b.Minor.IsDecimal():
		return widenDecimal(a, b)
	}

	unsigned := func(m types.MinorType) bool { return m == types.MinorUInt4 || m == types.MinorUInt8 }
	switch {
	case unsigned(a.Minor) == unsigned(b.Minor):
		if integerDigits(a) >= integerDigits(b) {
			return a
		}
		return b
	case a.Minor == types.MinorUInt8 || b.Minor == types.MinorUInt8:
		return types.Decimal(types.ModeRequired, 20, 0)
	}
	return types.Required(types.MinorBigInt)
}

func castable(e Expression, to types.MajorType) bool {
	from := e.Type().Minor
	switch {
	case from == types.MinorNull || from == to.Minor:
		return true
	case from.IsNumeric() && to.Minor.IsNumeric():
		return true
	case from == types.MinorDate && to.Minor == types.MinorTimestamp:
		return true
	case from == types.MinorVarChar && (parsesFromString(to.Minor) || to.Minor == types.MinorVarBinary):
		return true
	}
	return false
}
