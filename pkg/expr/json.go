package expr

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/grafana/colscan/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonNode is the wire form of an expression. Exactly one of field, literal,
// op, function or cast is set.
type jsonNode struct {
	Field    string       `json:"field,omitempty"`
	Typed    *jsonType    `json:"typed,omitempty"`
	Literal  *jsonLiteral `json:"literal,omitempty"`
	Op       string       `json:"op,omitempty"`
	LHS      *jsonNode    `json:"lhs,omitempty"`
	RHS      *jsonNode    `json:"rhs,omitempty"`
	Arg      *jsonNode    `json:"arg,omitempty"`
	Function string       `json:"function,omitempty"`
	Args     []*jsonNode  `json:"args,omitempty"`
	Cast     *jsonNode    `json:"cast,omitempty"`
	As       *jsonType    `json:"as,omitempty"`
}

type jsonType struct {
	Minor     string `json:"type"`
	Mode      string `json:"mode,omitempty"`
	Precision int32  `json:"precision,omitempty"`
	Scale     int32  `json:"scale,omitempty"`
}

type jsonLiteral struct {
	jsonType
	Value string `json:"value,omitempty"`
}

// Marshal encodes e as json.
func Marshal(e Expression) ([]byte, error) {
	n, err := toJSON(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

// Unmarshal decodes an expression written by Marshal. Literal values are
// strings so decimals round trip exactly, e.g.
//
//	{"op":">","lhs":{"field":"amount"},"rhs":{"literal":{"type":"BIGINT","value":"10"}}}
func Unmarshal(b []byte) (Expression, error) {
	var n jsonNode
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("decoding expression: %w", err)
	}
	return fromJSON(&n)
}

func typeToJSON(t types.MajorType) *jsonType {
	jt := &jsonType{Minor: t.Minor.String(), Precision: t.Precision, Scale: t.Scale}
	if t.Mode != types.ModeRequired {
		jt.Mode = t.Mode.String()
	}
	return jt
}

func typeFromJSON(jt *jsonType) (types.MajorType, error) {
	minor, err := types.ParseMinorType(jt.Minor)
	if err != nil {
		return types.MajorType{}, err
	}
	t := types.MajorType{Minor: minor, Precision: jt.Precision, Scale: jt.Scale}
	switch jt.Mode {
	case "", "REQUIRED":
	case "OPTIONAL":
		t.Mode = types.ModeOptional
	case "REPEATED":
		t.Mode = types.ModeRepeated
	default:
		return t, fmt.Errorf("unknown mode %q", jt.Mode)
	}
	return t, nil
}

func toJSON(e Expression) (*jsonNode, error) {
	switch n := e.(type) {
	case *Field:
		return &jsonNode{Field: n.Path}, nil
	case *TypedField:
		return &jsonNode{Field: n.Path, Typed: typeToJSON(n.FieldType)}, nil
	case *Static:
		lit := &jsonLiteral{jsonType: *typeToJSON(n.T)}
		if !n.Null {
			lit.Value = n.text()
		}
		return &jsonNode{Literal: lit}, nil
	case *UnaryOperation:
		arg, err := toJSON(n.Expression)
		if err != nil {
			return nil, err
		}
		return &jsonNode{Op: n.Op.String(), Arg: arg}, nil
	case *BinaryOperation:
		lhs, err := toJSON(n.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := toJSON(n.RHS)
		if err != nil {
			return nil, err
		}
		return &jsonNode{Op: n.Op.String(), LHS: lhs, RHS: rhs}, nil
	case *FunctionCall:
		out := &jsonNode{Function: n.Name, Args: []*jsonNode{}}
		for _, a := range n.Args {
			arg, err := toJSON(a)
			if err != nil {
				return nil, err
			}
			out.Args = append(out.Args, arg)
		}
		return out, nil
	case *Cast:
		child, err := toJSON(n.Expression)
		if err != nil {
			return nil, err
		}
		return &jsonNode{Cast: child, As: typeToJSON(n.Target)}, nil
	}
	return nil, fmt.Errorf("cannot encode %T", e)
}

func fromJSON(n *jsonNode) (Expression, error) {
	switch {
	case n.Field != "":
		if n.Typed != nil {
			t, err := typeFromJSON(n.Typed)
			if err != nil {
				return nil, err
			}
			return NewTypedField(n.Field, t), nil
		}
		return NewField(n.Field), nil
	case n.Literal != nil:
		t, err := typeFromJSON(&n.Literal.jsonType)
		if err != nil {
			return nil, err
		}
		return ParseStatic(t, n.Literal.Value)
	case n.Function != "":
		args := make([]Expression, 0, len(n.Args))
		for _, a := range n.Args {
			arg, err := fromJSON(a)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return NewFunctionCall(n.Function, args...), nil
	case n.Cast != nil:
		if n.As == nil {
			return nil, fmt.Errorf("cast without a target type")
		}
		child, err := fromJSON(n.Cast)
		if err != nil {
			return nil, err
		}
		t, err := typeFromJSON(n.As)
		if err != nil {
			return nil, err
		}
		return NewCast(child, t), nil
	case n.Op != "":
		op, err := ParseOperator(n.Op)
		if err != nil {
			return nil, err
		}
		if op.isUnary() {
			if n.Arg == nil {
				return nil, fmt.Errorf("operator %s needs an arg", op)
			}
			arg, err := fromJSON(n.Arg)
			if err != nil {
				return nil, err
			}
			return NewUnaryOperation(op, arg), nil
		}
		if n.LHS == nil || n.RHS == nil {
			return nil, fmt.Errorf("operator %s needs lhs and rhs", op)
		}
		lhs, err := fromJSON(n.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := fromJSON(n.RHS)
		if err != nil {
			return nil, err
		}
		return NewBinaryOperation(op, lhs, rhs), nil
	}
	return nil, fmt.Errorf("empty expression node")
}
