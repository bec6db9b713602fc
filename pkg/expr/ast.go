package expr

import (
	"fmt"
	"strings"

	"github.com/grafana/colscan/pkg/types"
)

// Expression is a node of a filter tree. Trees are never mutated once built;
// passes like Materialize return new trees.
type Expression interface {
	fmt.Stringer
	// Type is the type the node evaluates to. Unbound nodes report a NULL minor type.
	Type() types.MajorType
	__expression()
}

var (
	_ Expression = (*Field)(nil)
	_ Expression = (*TypedField)(nil)
	_ Expression = (*Static)(nil)
	_ Expression = (*BinaryOperation)(nil)
	_ Expression = (*UnaryOperation)(nil)
	_ Expression = (*FunctionCall)(nil)
	_ Expression = (*Cast)(nil)
)

var unbound = types.Optional(types.MinorNull)

// Field references a column by path before its type is known. Paths are
// dotted names and compare case-insensitively.
type Field struct {
	Path string
}

func NewField(path string) *Field {
	return &Field{Path: path}
}

// nolint: revive
func (*Field) __expression() {}

func (*Field) Type() types.MajorType { return unbound }

// TypedField is a column reference bound to the column's stored type.
type TypedField struct {
	Path      string
	FieldType types.MajorType
}

func NewTypedField(path string, t types.MajorType) *TypedField {
	return &TypedField{Path: path, FieldType: t}
}

// nolint: revive
func (*TypedField) __expression() {}

func (f *TypedField) Type() types.MajorType { return f.FieldType }

type BinaryOperation struct {
	Op  Operator
	LHS Expression
	RHS Expression
}

func NewBinaryOperation(op Operator, lhs, rhs Expression) *BinaryOperation {
	return &BinaryOperation{Op: op, LHS: lhs, RHS: rhs}
}

// And folds args left to right into a tree of OpAnd nodes.
func And(args ...Expression) Expression {
	return fold(OpAnd, args)
}

// Or folds args left to right into a tree of OpOr nodes.
func Or(args ...Expression) Expression {
	return fold(OpOr, args)
}

func fold(op Operator, args []Expression) Expression {
	if len(args) == 0 {
		return NewStaticBool(op == OpAnd)
	}
	e := args[0]
	for _, a := range args[1:] {
		e = NewBinaryOperation(op, e, a)
	}
	return e
}

// nolint: revive
func (*BinaryOperation) __expression() {}

func (o *BinaryOperation) Type() types.MajorType {
	mode := mergeMode(o.LHS.Type(), o.RHS.Type())
	if o.Op.isBoolean() {
		return types.MajorType{Minor: types.MinorBit, Mode: mode}
	}

	t := o.LHS.Type()
	if t.Minor == types.MinorNull {
		t = o.RHS.Type()
	}
	return t.WithMode(mode)
}

type UnaryOperation struct {
	Op         Operator
	Expression Expression
}

func NewUnaryOperation(op Operator, e Expression) *UnaryOperation {
	return &UnaryOperation{Op: op, Expression: e}
}

func Not(e Expression) *UnaryOperation { return NewUnaryOperation(OpNot, e) }

// nolint: revive
func (*UnaryOperation) __expression() {}

func (o *UnaryOperation) Type() types.MajorType {
	switch o.Op {
	case OpIsNull, OpIsNotNull:
		return types.Required(types.MinorBit)
	case OpNot:
		return types.MajorType{Minor: types.MinorBit, Mode: o.Expression.Type().Mode}
	}
	return o.Expression.Type()
}

// FunctionCall is a call by name, resolved to an operator during
// materialization.
type FunctionCall struct {
	Name string
	Args []Expression
}

func NewFunctionCall(name string, args ...Expression) *FunctionCall {
	return &FunctionCall{Name: name, Args: args}
}

// nolint: revive
func (*FunctionCall) __expression() {}

func (*FunctionCall) Type() types.MajorType { return unbound }

// Cast converts its operand to Target. The cardinality follows the operand.
type Cast struct {
	Expression Expression
	Target     types.MajorType
}

func NewCast(e Expression, target types.MajorType) *Cast {
	return &Cast{Expression: e, Target: target}
}

// nolint: revive
func (*Cast) __expression() {}

func (c *Cast) Type() types.MajorType {
	return c.Target.WithMode(c.Expression.Type().Mode)
}

func mergeMode(a, b types.MajorType) types.DataMode {
	if a.Mode == types.ModeRequired && b.Mode == types.ModeRequired {
		return types.ModeRequired
	}
	return types.ModeOptional
}

// Children returns the direct operands of e.
func Children(e Expression) []Expression {
	switch n := e.(type) {
	case *BinaryOperation:
		return []Expression{n.LHS, n.RHS}
	case *UnaryOperation:
		return []Expression{n.Expression}
	case *FunctionCall:
		return n.Args
	case *Cast:
		return []Expression{n.Expression}
	}
	return nil
}

// Walk visits e and its descendants depth first. Returning false from fn
// skips the node's children.
func Walk(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

func pathKey(p string) string {
	return strings.ToLower(p)
}
