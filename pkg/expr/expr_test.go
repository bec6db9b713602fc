package expr

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/colscan/pkg/types"
)

func TestCollectFields(t *testing.T) {
	e := And(
		NewBinaryOperation(OpGreater, NewField("a"), NewStaticInt(1)),
		Or(
			NewBinaryOperation(OpEqual, NewField("B"), NewField("A")),
			NewFunctionCall("isnull", NewTypedField("c", types.Optional(types.MinorInt))),
		),
	)

	assert.Equal(t, []string{"a", "B", "c"}, CollectFields(e))
	assert.Empty(t, CollectFields(NewStaticBool(true)))
	assert.True(t, HasFields(e))
	assert.False(t, HasFields(NewBinaryOperation(OpAdd, NewStaticInt(1), NewStaticInt(2))))
}

func TestString(t *testing.T) {
	tcs := []struct {
		e        Expression
		expected string
	}{
		{NewBinaryOperation(OpGreater, NewField("a"), NewStaticInt(1)), "`a` > 1"},
		{And(NewBinaryOperation(OpEqual, NewField("s"), NewStaticString("it's")), Not(NewField("b"))), "(`s` = 'it''s') and not `b`"},
		{NewUnaryOperation(OpIsNull, NewField("a")), "(`a` is null)"},
		{NewFunctionCall("equal", NewField("a"), NewStaticDateDays(1)), "equal(`a`, DATE '1970-01-02')"},
		{NewCast(NewField("a"), types.Required(types.MinorFloat8)), "cast(`a` as FLOAT8)"},
		{NewUnaryOperation(OpNegate, NewBinaryOperation(OpAdd, NewField("a"), NewStaticInt(2))), "-(`a` + 2)"},
	}
	for _, tc := range tcs {
		assert.Equal(t, tc.expected, tc.e.String())
	}
}

func TestStaticCompareIsExact(t *testing.T) {
	dec := NewStaticDecimal(big.NewInt(1050), 9, 2) // 10.50

	c, err := dec.Compare(NewStaticFloat(10.5))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = dec.Compare(NewStaticInt(10))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	// 2^53+1 is not representable as a float64
	big53 := NewStaticInt(1<<53 + 1)
	c, err = big53.Compare(NewStaticFloat(float64(1 << 53)))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = NewStaticUInt(^uint64(0)).Compare(NewStaticInt(-1))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = NewStaticString("abc").Compare(NewStaticString("abd"))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = NewStaticString("abc").Compare(NewStaticInt(1))
	assert.Error(t, err)
	_, err = NewStaticNull().Compare(NewStaticInt(1))
	assert.Error(t, err)

	assert.True(t, NewStaticNull().Equals(NewStaticNull()))
	assert.False(t, NewStaticNull().Equals(NewStaticInt(0)))
}

func TestParseStatic(t *testing.T) {
	s, err := ParseStatic(types.Decimal(types.ModeRequired, 38, 3), "123456789012345678901234.125")
	require.NoError(t, err)
	assert.Equal(t, types.MinorDecimal38Sparse, s.T.Minor)
	assert.Equal(t, "123456789012345678901234.125", s.String())

	_, err = ParseStatic(types.Decimal(types.ModeRequired, 9, 1), "1.25")
	assert.Error(t, err)

	s, err = ParseStatic(types.Required(types.MinorDate), "2020-03-01")
	require.NoError(t, err)
	assert.Equal(t, "DATE '2020-03-01'", s.String())

	s, err = ParseStatic(types.Required(types.MinorTime), "01:00:00")
	require.NoError(t, err)
	assert.Equal(t, int64(3600000), s.N)

	s, err = ParseStatic(types.Required(types.MinorTimestamp), "2020-03-01 10:00:00.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1583056800500), s.N)

	s, err = ParseStatic(types.Required(types.MinorVarBinary), "0aff")
	require.NoError(t, err)
	assert.Equal(t, "X'0aff'", s.String())
}

func lookupOf(cols map[string]types.MajorType) TypeLookup {
	return func(path string) (types.MajorType, bool) {
		t, ok := cols[path]
		return t, ok
	}
}

func TestMaterialize(t *testing.T) {
	lookup := lookupOf(map[string]types.MajorType{
		"i":  types.Optional(types.MinorInt),
		"l":  types.Required(types.MinorBigInt),
		"f":  types.Optional(types.MinorFloat8),
		"d":  types.Optional(types.MinorDate),
		"s":  types.Optional(types.MinorVarChar),
		"m":  types.Decimal(types.ModeOptional, 9, 2),
		"ok": types.Optional(types.MinorBit),
	})

	tcs := []struct {
		name     string
		e        Expression
		expected string
	}{
		{"same type", NewBinaryOperation(OpLess, NewField("l"), NewStaticInt(5)), "`l` < 5"},
		{"int widened", NewBinaryOperation(OpLess, NewField("i"), NewStaticInt(5)), "cast(`i` as BIGINT) < 5"},
		{"float wins", NewBinaryOperation(OpEqual, NewField("l"), NewField("f")), "cast(`l` as FLOAT8) = `f`"},
		{"decimal and int", NewBinaryOperation(OpGreater, NewField("m"), NewStaticInt32(1)), "cast(`m` as DECIMAL18) > cast(1 as DECIMAL18)"},
		{"date literal", NewBinaryOperation(OpGreaterEqual, NewField("d"), NewStaticString("2020-01-01")), "`d` >= cast('2020-01-01' as DATE)"},
		{"date timestamp", NewBinaryOperation(OpLess, NewField("d"), NewStaticTimestamp(0)), "cast(`d` as TIMESTAMP) < TIMESTAMP '1970-01-01 00:00:00'"},
		{"function", NewFunctionCall("booleanAnd", NewField("ok"), NewFunctionCall("isnull", NewField("s")), NewStaticBool(true)), "(`ok` and (`s` is null)) and true"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			ec := &ErrorCollector{}
			out := Materialize(tc.e, lookup, ec)
			require.NoError(t, ec.Err())
			assert.Equal(t, tc.expected, out.String())
		})
	}

	// the input tree is left alone
	in := NewBinaryOperation(OpLess, NewField("i"), NewStaticInt(5))
	_ = Materialize(in, lookup, &ErrorCollector{})
	assert.IsType(t, &Field{}, in.LHS)
}

func TestMaterializeErrors(t *testing.T) {
	lookup := lookupOf(map[string]types.MajorType{
		"i": types.Optional(types.MinorInt),
		"s": types.Optional(types.MinorVarChar),
	})

	tcs := []struct {
		name   string
		e      Expression
		errors int
	}{
		{"missing column", NewBinaryOperation(OpLess, NewField("x"), NewStaticInt(5)), 1},
		{"two missing", And(NewField("x"), NewField("y")), 2},
		{"string vs int column", NewBinaryOperation(OpEqual, NewField("s"), NewField("i")), 1},
		{"unknown function", NewFunctionCall("sqrt", NewField("i")), 1},
		{"arity", NewFunctionCall("equal", NewField("i")), 1},
		{"not of int", Not(NewField("i")), 1},
		{"and of int", And(NewField("i"), NewStaticBool(true)), 1},
		{"bad cast", NewCast(NewField("i"), types.Required(types.MinorDate)), 1},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			ec := &ErrorCollector{}
			_ = Materialize(tc.e, lookup, ec)
			assert.True(t, ec.HasErrors())
			assert.Equal(t, tc.errors, ec.ErrorCount())
			assert.Error(t, ec.Err())
		})
	}
}

func TestConstantExpressions(t *testing.T) {
	sum := NewBinaryOperation(OpAdd, NewStaticInt(1), NewStaticInt(2))
	cmp := NewBinaryOperation(OpGreater, NewField("a"), sum)
	e := And(cmp, NewStaticBool(true))

	set := ConstantExpressions(e)
	assert.Contains(t, set, Expression(sum))
	assert.Contains(t, set, sum.LHS)
	assert.NotContains(t, set, Expression(cmp))
	assert.NotContains(t, set, e)
	assert.Len(t, set, 4)
}

func TestEvaluateConstant(t *testing.T) {
	tcs := []struct {
		name     string
		e        Expression
		expected *Static
	}{
		{"add", NewBinaryOperation(OpAdd, NewStaticInt(1), NewStaticInt(2)), NewStaticInt(3)},
		{"mult decimal keeps scale", NewBinaryOperation(OpMult, NewStaticDecimal(big.NewInt(15), 9, 1), NewStaticDecimal(big.NewInt(15), 9, 1)), NewStaticDecimal(big.NewInt(225), 38, 2)},
		{"mod", NewBinaryOperation(OpMod, NewStaticInt(7), NewStaticInt(3)), NewStaticInt(1)},
		{"negate", NewUnaryOperation(OpNegate, NewStaticInt(4)), NewStaticInt(-4)},
		{"compare", NewBinaryOperation(OpLess, NewStaticInt(1), NewStaticFloat(1.5)), NewStaticBool(true)},
		{"null compare", NewBinaryOperation(OpEqual, NewStaticNull(), NewStaticInt(1)), NewStaticNull()},
		{"false and null", And(NewStaticBool(false), NewStaticNull()), NewStaticBool(false)},
		{"true and null", And(NewStaticBool(true), NewStaticNull()), NewStaticNull()},
		{"true or null", Or(NewStaticNull(), NewStaticBool(true)), NewStaticBool(true)},
		{"not null", Not(NewStaticNull()), NewStaticNull()},
		{"is null", NewUnaryOperation(OpIsNull, NewStaticNull()), NewStaticBool(true)},
		{"cast date", NewCast(NewStaticString("1970-01-03"), types.Required(types.MinorDate)), NewStaticDateDays(2)},
		{"cast to timestamp", NewCast(NewStaticDateDays(1), types.Required(types.MinorTimestamp)), NewStaticTimestamp(86400000)},
		{"truncating cast", NewCast(NewStaticFloat(-2.7), types.Required(types.MinorBigInt)), NewStaticInt(-2)},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateConstant(tc.e)
			require.NoError(t, err)
			assert.True(t, tc.expected.Equals(got), "expected %s got %s", tc.expected, got)
			assert.Equal(t, tc.expected.Null, got.Null)
		})
	}

	_, err := EvaluateConstant(NewField("a"))
	assert.ErrorIs(t, err, errNotConstant)
	_, err = EvaluateConstant(NewBinaryOperation(OpDiv, NewStaticInt(1), NewStaticInt(3)))
	assert.Error(t, err)
	_, err = EvaluateConstant(NewBinaryOperation(OpMod, NewStaticInt(1), NewStaticInt(0)))
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	e := And(
		NewBinaryOperation(OpGreater, NewField("amount"), NewStaticDecimal(big.NewInt(1050), 9, 2)),
		Or(
			NewUnaryOperation(OpIsNotNull, NewTypedField("d", types.Optional(types.MinorDate))),
			NewFunctionCall("equal", NewField("s"), NewStaticString("x")),
		),
		NewCast(NewStaticNull(), types.Required(types.MinorBit)),
	)

	b, err := Marshal(e)
	require.NoError(t, err)
	decoded, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, e.String(), decoded.String())

	decoded, err = Unmarshal([]byte(`{"op":">","lhs":{"field":"amount"},"rhs":{"literal":{"type":"BIGINT","value":"10"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "`amount` > 10", decoded.String())

	for _, bad := range []string{`{}`, `{"op":"~"}`, `{"op":">","lhs":{"field":"a"}}`, `{"literal":{"type":"INT","value":"x"}}`, `{"cast":{"field":"a"}}`, `[`} {
		_, err := Unmarshal([]byte(bad))
		assert.Error(t, err, bad)
	}
}
