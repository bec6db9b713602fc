package expr

import "strings"

func (f *Field) String() string {
	return "`" + f.Path + "`"
}

func (f *TypedField) String() string {
	return "`" + f.Path + "`"
}

func (o *BinaryOperation) String() string {
	return binaryOp(o.Op, o.LHS, o.RHS)
}

func (o *UnaryOperation) String() string {
	switch o.Op {
	case OpIsNull, OpIsNotNull:
		return "(" + o.Expression.String() + " " + o.Op.String() + ")"
	case OpNegate:
		return "-" + wrap(o.Expression)
	}
	return o.Op.String() + " " + wrap(o.Expression)
}

func (c *FunctionCall) String() string {
	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		args = append(args, a.String())
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

func (c *Cast) String() string {
	return "cast(" + c.Expression.String() + " as " + c.Target.Minor.String() + ")"
}

func binaryOp(op Operator, lhs, rhs Expression) string {
	return wrap(lhs) + " " + op.String() + " " + wrap(rhs)
}

func wrap(e Expression) string {
	switch e.(type) {
	case *BinaryOperation:
		return "(" + e.String() + ")"
	}
	return e.String()
}
