package expr

import "fmt"

type Operator int

const (
	OpNone Operator = iota
	OpAdd
	OpSub
	OpMult
	OpDiv
	OpMod
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAnd
	OpOr
	OpLike

	// unary
	OpNot
	OpNegate
	OpIsNull
	OpIsNotNull
)

func (op Operator) isBoolean() bool {
	return op == OpAnd || op == OpOr || op == OpNot || op.isComparison() ||
		op == OpIsNull || op == OpIsNotNull || op == OpLike
}

func (op Operator) isComparison() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

func (op Operator) isArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMult, OpDiv, OpMod:
		return true
	}
	return false
}

func (op Operator) isUnary() bool {
	return op == OpNot || op == OpNegate || op == OpIsNull || op == OpIsNotNull
}

// IsBoolean reports whether op produces a boolean.
func (op Operator) IsBoolean() bool { return op.isBoolean() }

// IsComparison reports whether op is one of = != < <= > >=.
func (op Operator) IsComparison() bool { return op.isComparison() }

// Flip returns the operator that gives the same result with its operands
// swapped.
func (op Operator) Flip() Operator {
	switch op {
	case OpLess:
		return OpGreater
	case OpLessEqual:
		return OpGreaterEqual
	case OpGreater:
		return OpLess
	case OpGreaterEqual:
		return OpLessEqual
	}
	return op
}

func (op Operator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMult:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpLike:
		return "like"
	case OpNot:
		return "not"
	case OpNegate:
		return "negate"
	case OpIsNull:
		return "is null"
	case OpIsNotNull:
		return "is not null"
	}
	return fmt.Sprintf("operator(%d)", op)
}

var operatorsByName = func() map[string]Operator {
	m := map[string]Operator{}
	for op := OpAdd; op <= OpIsNotNull; op++ {
		m[op.String()] = op
	}
	return m
}()

// ParseOperator maps an operator's String form back to it.
func ParseOperator(s string) (Operator, error) {
	if op, ok := operatorsByName[s]; ok {
		return op, nil
	}
	return OpNone, fmt.Errorf("unknown operator %q", s)
}

// functions resolvable by name to an operator
var functionOperators = map[string]Operator{
	"add":                      OpAdd,
	"subtract":                 OpSub,
	"multiply":                 OpMult,
	"divide":                   OpDiv,
	"mod":                      OpMod,
	"equal":                    OpEqual,
	"not_equal":                OpNotEqual,
	"less_than":                OpLess,
	"less_than_or_equal_to":    OpLessEqual,
	"greater_than":             OpGreater,
	"greater_than_or_equal_to": OpGreaterEqual,
	"booleanand":               OpAnd,
	"booleanor":                OpOr,
	"like":                     OpLike,
	"not":                      OpNot,
	"negative":                 OpNegate,
	"isnull":                   OpIsNull,
	"isnotnull":                OpIsNotNull,
}
