package pruning

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/colscan/pkg/expr"
	"github.com/grafana/colscan/pkg/types"
	"github.com/grafana/colscan/pkg/util/test"
)

func intStat(lo, hi int64, nulls, values int64) Statistics {
	return Statistics{Min: expr.NewStaticInt(lo), Max: expr.NewStaticInt(hi), NullCount: nulls, HasNullCount: true, NumValues: values}
}

func int32Stat(lo, hi int32, nulls, values int64) Statistics {
	return Statistics{Min: expr.NewStaticInt32(lo), Max: expr.NewStaticInt32(hi), NullCount: nulls, HasNullCount: true, NumValues: values}
}

func testSchema() (*PhysicalSchema, *ColumnStatistics) {
	schema := NewPhysicalSchema(
		ColumnMetadata{Path: "a", Physical: PhysicalInt32, MaxDefinitionLevel: 1},
		ColumnMetadata{Path: "b", Physical: PhysicalInt64},
		ColumnMetadata{Path: "s", Physical: PhysicalByteArray, Logical: LogicalType{Kind: LogicalString}, MaxDefinitionLevel: 1},
		ColumnMetadata{Path: "d", Physical: PhysicalInt32, Logical: LogicalType{Kind: LogicalDate}},
		ColumnMetadata{Path: "f", Physical: PhysicalDouble},
		ColumnMetadata{Path: "r", Physical: PhysicalInt32, MaxRepetitionLevel: 1, MaxDefinitionLevel: 1},
		ColumnMetadata{Path: "flba", Physical: PhysicalFixedLenByteArray, TypeLength: 16, Logical: LogicalType{Kind: LogicalDecimal, Precision: 20, Scale: 2}},
		ColumnMetadata{Path: "dec", Physical: PhysicalInt64, Logical: LogicalType{Kind: LogicalDecimal, Precision: 10, Scale: 2}},
		ColumnMetadata{Path: "n", Physical: PhysicalInt32, MaxDefinitionLevel: 1},
		ColumnMetadata{Path: "m", Physical: PhysicalInt32, MaxDefinitionLevel: 1},
		ColumnMetadata{Path: "ts", Physical: PhysicalInt64, Logical: LogicalType{Kind: LogicalTimestamp, Unit: UnitMicros}},
		ColumnMetadata{Path: "u", Physical: PhysicalInt32, Logical: LogicalType{Kind: LogicalInteger, BitWidth: 32}},
		ColumnMetadata{Path: "t96", Physical: PhysicalInt96},
	)

	stats := NewColumnStatistics()
	stats.Put("a", int32Stat(10, 20, 0, 100))
	stats.Put("b", intStat(100, 200, 0, 100))
	stats.Put("s", Statistics{Min: expr.NewStaticBinary([]byte("apple")), Max: expr.NewStaticBinary([]byte("melon")), HasNullCount: true, NumValues: 100})
	stats.Put("d", int32Stat(18000, 18100, 0, 100))
	stats.Put("f", Statistics{Min: expr.NewStaticFloat(1.5), Max: expr.NewStaticFloat(1.5), HasNullCount: true, NumValues: 100})
	stats.Put("r", int32Stat(1, 2, 0, 100))
	stats.Put("flba", Statistics{Min: expr.NewStaticBinary(make([]byte, 16)), Max: expr.NewStaticBinary(make([]byte, 16)), HasNullCount: true, NumValues: 100})
	stats.Put("dec", intStat(1000, 2000, 0, 100))
	stats.Put("n", Statistics{NullCount: 100, HasNullCount: true, NumValues: 100})
	stats.Put("m", Statistics{NumValues: 100})
	stats.Put("ts", intStat(1500, 2500, 0, 100))
	stats.Put("u", int32Stat(1, -1, 0, 100))
	stats.Put("t96", Statistics{Min: expr.NewStaticBinary(make([]byte, 12)), Max: expr.NewStaticBinary(make([]byte, 12)), HasNullCount: true, NumValues: 100})
	return schema, stats
}

func cmp(op expr.Operator, path string, v expr.Expression) expr.Expression {
	return expr.NewBinaryOperation(op, expr.NewField(path), v)
}

func TestCanDrop(t *testing.T) {
	i32 := func(n int32) expr.Expression { return expr.NewStaticInt32(n) }

	tcs := []struct {
		name   string
		filter expr.Expression
		drop   bool
	}{
		{"above max", cmp(expr.OpGreater, "a", i32(20)), true},
		{"at max", cmp(expr.OpGreaterEqual, "a", i32(20)), false},
		{"below min", cmp(expr.OpLess, "a", i32(10)), true},
		{"equal inside", cmp(expr.OpEqual, "a", i32(15)), false},
		{"equal outside", cmp(expr.OpEqual, "a", i32(25)), true},
		{"bigint literal casts column", cmp(expr.OpGreater, "a", expr.NewStaticInt(1<<40)), true},
		{"flipped operands", expr.NewBinaryOperation(expr.OpLess, i32(20), expr.NewField("a")), true},
		{"arithmetic", expr.NewBinaryOperation(expr.OpGreater, expr.NewBinaryOperation(expr.OpAdd, expr.NewField("a"), i32(5)), i32(25)), true},
		{"arithmetic reaches", expr.NewBinaryOperation(expr.OpGreater, expr.NewBinaryOperation(expr.OpAdd, expr.NewField("a"), i32(5)), i32(24)), false},
		{"negate", expr.NewBinaryOperation(expr.OpGreater, expr.NewUnaryOperation(expr.OpNegate, expr.NewField("a")), i32(-10)), true},
		{"and one side false", expr.And(cmp(expr.OpGreater, "a", i32(5)), cmp(expr.OpLess, "b", expr.NewStaticInt(100))), true},
		{"or one side possible", expr.Or(cmp(expr.OpGreater, "a", i32(25)), cmp(expr.OpGreater, "b", expr.NewStaticInt(150))), false},
		{"or both false", expr.Or(cmp(expr.OpGreater, "a", i32(25)), cmp(expr.OpGreater, "b", expr.NewStaticInt(250))), true},
		{"not of always true", expr.Not(cmp(expr.OpGreater, "a", i32(5))), true},
		{"not of maybe", expr.Not(cmp(expr.OpGreater, "a", i32(15))), false},
		{"is null without nulls", expr.NewUnaryOperation(expr.OpIsNull, expr.NewField("a")), true},
		{"is not null", expr.NewUnaryOperation(expr.OpIsNotNull, expr.NewField("a")), false},
		{"string above max", cmp(expr.OpGreater, "s", expr.NewStaticString("zebra")), true},
		{"string inside", cmp(expr.OpEqual, "s", expr.NewStaticString("banana")), false},
		{"date before min", cmp(expr.OpLess, "d", expr.NewStaticDateDays(17000)), true},
		{"date inside", cmp(expr.OpGreater, "d", expr.NewStaticDateDays(18050)), false},
		{"date against timestamp", cmp(expr.OpGreater, "d", expr.NewStaticTimestamp(18200*86400000)), true},
		{"date string literal", cmp(expr.OpLess, "d", expr.NewStaticString("1990-01-01")), true},
		{"float above max", cmp(expr.OpGreater, "f", expr.NewStaticFloat(5)), true},
		{"float not equal may be NaN", cmp(expr.OpNotEqual, "f", expr.NewStaticFloat(1.5)), false},
		{"float equal may be NaN", cmp(expr.OpEqual, "f", expr.NewStaticFloat(1.5)), false},
		{"cast to float", expr.NewBinaryOperation(expr.OpGreater, expr.NewCast(expr.NewField("a"), types.Required(types.MinorFloat8)), expr.NewStaticFloat(20.5)), true},
		{"decimal above max", cmp(expr.OpGreater, "dec", expr.NewStaticDecimal(big.NewInt(2001), 10, 2)), true},
		{"decimal near max", cmp(expr.OpGreater, "dec", expr.NewStaticDecimal(big.NewInt(1999), 10, 2)), false},
		{"decimal against int", cmp(expr.OpGreater, "dec", i32(20)), true},
		{"all null column", cmp(expr.OpEqual, "n", i32(1)), true},
		{"all null is null", expr.NewUnaryOperation(expr.OpIsNull, expr.NewField("n")), false},
		{"all null is not null", expr.NewUnaryOperation(expr.OpIsNotNull, expr.NewField("n")), true},
		{"no min max", cmp(expr.OpGreater, "m", i32(1)), false},
		{"timestamp micros above", cmp(expr.OpGreater, "ts", expr.NewStaticTimestamp(3)), true},
		{"timestamp micros ceil", cmp(expr.OpGreaterEqual, "ts", expr.NewStaticTimestamp(3)), false},
		{"timestamp micros below", cmp(expr.OpLess, "ts", expr.NewStaticTimestamp(1)), true},
		{"timestamp micros floor", cmp(expr.OpLessEqual, "ts", expr.NewStaticTimestamp(1)), false},
		{"unsigned max", cmp(expr.OpGreater, "u", expr.NewStaticUInt(math.MaxUint32)), true},
		{"unsigned large", cmp(expr.OpGreater, "u", expr.NewStaticUInt(4000000000)), false},
		{"constant false", expr.NewStaticBool(false), true},
		{"constant comparison", expr.And(expr.NewBinaryOperation(expr.OpGreater, i32(1), i32(2)), cmp(expr.OpGreater, "a", i32(0))), true},
		{"function call", expr.NewFunctionCall("greater_than", expr.NewField("a"), i32(20)), true},
		{"variadic function", expr.NewFunctionCall("booleanAnd", cmp(expr.OpGreater, "a", i32(0)), cmp(expr.OpGreater, "b", expr.NewStaticInt(0)), cmp(expr.OpGreater, "a", i32(20))), true},

		// cannot decide
		{"repeated column", cmp(expr.OpGreater, "r", i32(100)), false},
		{"binary decimal", cmp(expr.OpGreater, "flba", expr.NewStaticDecimal(big.NewInt(1), 20, 2)), false},
		{"missing column", cmp(expr.OpGreater, "z", i32(1)), false},
		{"missing column in or", expr.Or(cmp(expr.OpGreater, "a", i32(100)), cmp(expr.OpGreater, "z", i32(1))), false},
		{"unknown function", expr.NewFunctionCall("sqrt", expr.NewField("a")), false},
		{"division", expr.NewBinaryOperation(expr.OpGreater, expr.NewBinaryOperation(expr.OpDiv, expr.NewField("a"), i32(2)), i32(100)), false},
		{"like", expr.NewBinaryOperation(expr.OpLike, expr.NewField("s"), expr.NewStaticString("z%")), false},
		{"unparseable literal", cmp(expr.OpGreater, "a", expr.NewStaticString("x")), false},
		{"type mismatch", cmp(expr.OpGreater, "s", i32(1)), false},
		{"int96", cmp(expr.OpGreater, "t96", expr.NewStaticTimestamp(0)), false},
	}

	schema, stats := testSchema()
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			opts := Options{Int96AsTimestamp: true, Logger: test.NewTestingLogger(t)}
			assert.Equal(t, tc.drop, CanDrop(tc.filter, schema, stats, opts), tc.filter.String())
		})
	}
}

func TestCanDropDoesNotModifyInputs(t *testing.T) {
	schema, stats := testSchema()
	filter := cmp(expr.OpGreater, "d", expr.NewStaticDateDays(18200))
	before := filter.String()

	require.True(t, CanDrop(filter, schema, stats, Options{}))
	assert.Equal(t, before, filter.String())

	st, ok := stats.Get("d")
	require.True(t, ok)
	assert.Equal(t, int64(18000), st.Min.N)
	assert.IsType(t, &expr.Field{}, filter.(*expr.BinaryOperation).LHS)
}

func TestCanDropLogsMaterializationErrors(t *testing.T) {
	schema, stats := testSchema()
	logger := test.NewTestingLogger(t)

	assert.False(t, CanDrop(expr.NewFunctionCall("sqrt", expr.NewField("a")), schema, stats, Options{Logger: logger}))
	assert.True(t, logger.Contains("failed to materialize row group filter"))
}

func TestEvaluate(t *testing.T) {
	schema, stats := testSchema()

	r, err := Evaluate(cmp(expr.OpGreater, "a", expr.NewStaticInt32(5)), schema, stats, Options{})
	require.NoError(t, err)
	assert.Equal(t, ResultTrue, r)

	r, err = Evaluate(cmp(expr.OpGreater, "a", expr.NewStaticInt32(15)), schema, stats, Options{})
	require.NoError(t, err)
	assert.Equal(t, ResultUnknown, r)

	_, err = Evaluate(cmp(expr.OpGreater, "z", expr.NewStaticInt32(15)), schema, stats, Options{})
	require.Error(t, err)
	assert.IsType(t, errIndeterminate{}, err)
}

func TestCorruptDates(t *testing.T) {
	schema := NewPhysicalSchema(ColumnMetadata{Path: "d", Physical: PhysicalInt32, Logical: LogicalType{Kind: LogicalDate}})
	stats := NewColumnStatistics()
	stats.Put("d", int32Stat(18000+corruptDateShift, 18100+corruptDateShift, 0, 10))
	filter := cmp(expr.OpGreater, "d", expr.NewStaticDateDays(18200))

	assert.False(t, CanDrop(filter, schema, stats, Options{DateCorrection: DateCorrectionNone}))
	assert.True(t, CanDrop(filter, schema, stats, Options{DateCorrection: DateCorrectionAuto}))
	assert.True(t, CanDrop(filter, schema, stats, Options{DateCorrection: DateCorrectionAlways}))

	// genuine dates are left alone in auto mode
	stats.Put("d", int32Stat(18000, 18100, 0, 10))
	before := cmp(expr.OpLess, "d", expr.NewStaticDateDays(17000))
	assert.True(t, CanDrop(before, schema, stats, Options{DateCorrection: DateCorrectionAuto}))
	assert.False(t, CanDrop(before, schema, stats, Options{DateCorrection: DateCorrectionAlways}))

	// bounds on either side of the threshold are not shifted one at a time
	stats.Put("d", int32Stat(18000, 18100+corruptDateShift, 0, 10))
	assert.False(t, CanDrop(filter, schema, stats, Options{DateCorrection: DateCorrectionAuto}))
	assert.False(t, CanDrop(before, schema, stats, Options{DateCorrection: DateCorrectionAuto}))
}

func TestToMillis(t *testing.T) {
	tcs := []struct {
		n     int64
		unit  TimeUnit
		upper bool
		exp   int64
	}{
		{1500, UnitMicros, false, 1},
		{1500, UnitMicros, true, 2},
		{-1500, UnitMicros, false, -2},
		{-1500, UnitMicros, true, -1},
		{2000000, UnitNanos, true, 2},
		{7, UnitMillis, true, 7},
	}
	for _, tc := range tcs {
		got, ok := toMillis(tc.n, tc.unit, tc.upper)
		require.True(t, ok)
		assert.Equal(t, tc.exp, got, "%d %v upper=%v", tc.n, tc.unit, tc.upper)
	}
}

func TestTruth(t *testing.T) {
	tt := truth{mayTrue: true}
	ff := truth{mayFalse: true}
	nn := truth{mayNull: true}

	assert.Equal(t, ResultFalse, tt.and(ff).result())
	assert.Equal(t, ResultFalse, nn.and(ff).result())
	assert.Equal(t, ResultFalse, nn.and(tt).result())
	assert.Equal(t, ResultTrue, tt.or(nn).result())
	assert.Equal(t, ResultFalse, ff.or(nn).result())
	assert.Equal(t, ResultFalse, nn.not().result())
	assert.Equal(t, ResultFalse, tt.not().result())
	assert.Equal(t, ResultTrue, ff.not().result())
}

// rows holds the values of one column, nil for null.
type rows []*int32

func statsOf(values rows) Statistics {
	st := Statistics{HasNullCount: true, NumValues: int64(len(values))}
	for _, v := range values {
		if v == nil {
			st.NullCount++
			continue
		}
		if st.Min == nil || int64(*v) < st.Min.N {
			st.Min = expr.NewStaticInt32(*v)
		}
		if st.Max == nil || int64(*v) > st.Max.N {
			st.Max = expr.NewStaticInt32(*v)
		}
	}
	return st
}

func randomFilter(r *rand.Rand, depth int) expr.Expression {
	leaf := func() expr.Expression {
		col := []string{"a", "b"}[r.Intn(2)]
		var lhs expr.Expression = expr.NewField(col)
		switch r.Intn(4) {
		case 0:
			lhs = expr.NewBinaryOperation(expr.OpAdd, lhs, expr.NewStaticInt32(int32(r.Intn(11)-5)))
		case 1:
			lhs = expr.NewUnaryOperation(expr.OpNegate, lhs)
		case 2:
			lhs = expr.NewBinaryOperation(expr.OpSub, lhs, expr.NewField([]string{"a", "b"}[r.Intn(2)]))
		}
		if r.Intn(8) == 0 {
			return expr.NewUnaryOperation([]expr.Operator{expr.OpIsNull, expr.OpIsNotNull}[r.Intn(2)], lhs)
		}
		ops := []expr.Operator{expr.OpEqual, expr.OpNotEqual, expr.OpLess, expr.OpLessEqual, expr.OpGreater, expr.OpGreaterEqual}
		var lit expr.Expression = expr.NewStaticInt32(int32(r.Intn(61) - 30))
		if r.Intn(3) == 0 {
			lit = expr.NewStaticInt(int64(r.Intn(61) - 30))
		}
		return expr.NewBinaryOperation(ops[r.Intn(len(ops))], lhs, lit)
	}
	if depth == 0 || r.Intn(3) == 0 {
		return leaf()
	}
	switch r.Intn(3) {
	case 0:
		return expr.And(randomFilter(r, depth-1), randomFilter(r, depth-1))
	case 1:
		return expr.Or(randomFilter(r, depth-1), randomFilter(r, depth-1))
	}
	return expr.Not(randomFilter(r, depth-1))
}

// bind replaces column references with the values of one row.
func bind(e expr.Expression, row map[string]*expr.Static) expr.Expression {
	switch n := e.(type) {
	case *expr.TypedField:
		return row[n.Path]
	case *expr.Cast:
		return expr.NewCast(bind(n.Expression, row), n.Target)
	case *expr.UnaryOperation:
		return expr.NewUnaryOperation(n.Op, bind(n.Expression, row))
	case *expr.BinaryOperation:
		return expr.NewBinaryOperation(n.Op, bind(n.LHS, row), bind(n.RHS, row))
	}
	return e
}

func TestCanDropIsSound(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	schema := NewPhysicalSchema(
		ColumnMetadata{Path: "a", Physical: PhysicalInt32, MaxDefinitionLevel: 1},
		ColumnMetadata{Path: "b", Physical: PhysicalInt32, MaxDefinitionLevel: 1},
	)
	lookup := func(string) (types.MajorType, bool) { return types.Optional(types.MinorInt), true }

	dropped := 0
	for trial := 0; trial < 2000; trial++ {
		n := 1 + r.Intn(8)
		cols := map[string]rows{}
		for _, c := range []string{"a", "b"} {
			lo := int32(r.Intn(41) - 20)
			width := int32(r.Intn(10))
			nullRate := r.Intn(3) // 0: none, 1: some, 2: all
			vals := make(rows, n)
			for i := range vals {
				if nullRate == 2 || (nullRate == 1 && r.Intn(3) == 0) {
					continue
				}
				v := lo + int32(r.Intn(int(width)+1))
				vals[i] = &v
			}
			cols[c] = vals
		}
		stats := NewColumnStatistics()
		stats.Put("a", statsOf(cols["a"]))
		stats.Put("b", statsOf(cols["b"]))

		filter := randomFilter(r, 3)
		if !CanDrop(filter, schema, stats, Options{}) {
			continue
		}
		dropped++

		ec := &expr.ErrorCollector{}
		materialized := expr.Materialize(filter, lookup, ec)
		require.False(t, ec.HasErrors(), ec.Err())
		for i := 0; i < n; i++ {
			row := map[string]*expr.Static{}
			for c, vals := range cols {
				if vals[i] == nil {
					row[c] = expr.NewStaticNull()
				} else {
					row[c] = expr.NewStaticInt32(*vals[i])
				}
			}
			got, err := expr.EvaluateConstant(bind(materialized, row))
			require.NoError(t, err, filter.String())
			assert.True(t, got.IsNull() || !got.B, "row %d of trial %d satisfies dropped filter %s", i, trial, filter)
		}
	}
	// the generator has to exercise the dropping path
	assert.Greater(t, dropped, 100)
}

// typedColumn generates values of one column in both the stored form the
// statistics are kept in and the form rows are evaluated in.
type typedColumn struct {
	meta  ColumnMetadata
	value func(r *rand.Rand, edge bool) (stored, read *expr.Static)
	leaf  func(r *rand.Rand) expr.Expression
}

func randomComparison(r *rand.Rand, lhs, lit expr.Expression) expr.Expression {
	ops := []expr.Operator{expr.OpEqual, expr.OpNotEqual, expr.OpLess, expr.OpLessEqual, expr.OpGreater, expr.OpGreaterEqual}
	if r.Intn(2) == 0 {
		return expr.NewBinaryOperation(ops[r.Intn(len(ops))], lit, lhs)
	}
	return expr.NewBinaryOperation(ops[r.Intn(len(ops))], lhs, lit)
}

func typedColumns() []typedColumn {
	pick := func(r *rand.Rand, vals ...float64) float64 { return vals[r.Intn(len(vals))] }
	strs := []string{"", "a", "ab", "abc", "b", "ba", "c", "zz"}

	return []typedColumn{
		{
			meta: ColumnMetadata{Path: "i", Physical: PhysicalInt32, MaxDefinitionLevel: 1},
			value: func(r *rand.Rand, edge bool) (*expr.Static, *expr.Static) {
				v := int32(r.Intn(41) - 20)
				if edge {
					v = math.MaxInt32 - int32(r.Intn(20))
					if r.Intn(2) == 0 {
						v = math.MinInt32 + int32(r.Intn(20))
					}
				}
				return expr.NewStaticInt32(v), expr.NewStaticInt32(v)
			},
			leaf: func(r *rand.Rand) expr.Expression {
				var lhs expr.Expression = expr.NewField("i")
				switch r.Intn(4) {
				case 0:
					lhs = expr.NewBinaryOperation(expr.OpAdd, lhs, expr.NewStaticInt32(int32(r.Intn(41)-20)))
				case 1:
					lhs = expr.NewUnaryOperation(expr.OpNegate, lhs)
				case 2:
					return randomComparison(r, expr.NewCast(lhs, types.Required(types.MinorFloat8)), expr.NewStaticFloat(r.Float64()*60-30))
				}
				lits := []int64{int64(r.Intn(61) - 30), math.MaxInt32 - int64(r.Intn(30)), math.MinInt32 + int64(r.Intn(30))}
				lit := lits[r.Intn(len(lits))]
				if r.Intn(2) == 0 {
					return randomComparison(r, lhs, expr.NewStaticInt(lit))
				}
				return randomComparison(r, lhs, expr.NewStaticInt32(int32(lit)))
			},
		},
		{
			meta: ColumnMetadata{Path: "f", Physical: PhysicalDouble, MaxDefinitionLevel: 1},
			value: func(r *rand.Rand, edge bool) (*expr.Static, *expr.Static) {
				v := pick(r, -1.5, 0, 0.5, 2, 3.25)
				if edge && r.Intn(2) == 0 {
					v = math.NaN()
				}
				return expr.NewStaticFloat(v), expr.NewStaticFloat(v)
			},
			leaf: func(r *rand.Rand) expr.Expression {
				switch r.Intn(6) {
				case 0:
					return randomComparison(r, expr.NewField("f"), expr.NewStaticFloat(math.NaN()))
				case 1:
					return randomComparison(r, expr.NewField("f"), expr.NewStaticInt32(int32(r.Intn(7)-3)))
				}
				return randomComparison(r, expr.NewField("f"), expr.NewStaticFloat(pick(r, -2, -1.5, 0, 0.25, 0.5, 2, 3.25, 4)))
			},
		},
		{
			meta: ColumnMetadata{Path: "dec", Physical: PhysicalInt64, Logical: LogicalType{Kind: LogicalDecimal, Precision: 10, Scale: 2}, MaxDefinitionLevel: 1},
			value: func(r *rand.Rand, _ bool) (*expr.Static, *expr.Static) {
				v := int64(r.Intn(1001) - 500)
				return expr.NewStaticInt(v), expr.NewStaticDecimal(big.NewInt(v), 10, 2)
			},
			leaf: func(r *rand.Rand) expr.Expression {
				var lhs expr.Expression = expr.NewField("dec")
				if r.Intn(3) == 0 {
					lhs = expr.NewBinaryOperation(expr.OpAdd, lhs, expr.NewStaticDecimal(big.NewInt(int64(r.Intn(21)-10)), 5, 1))
				}
				switch r.Intn(3) {
				case 0:
					return randomComparison(r, lhs, expr.NewStaticInt32(int32(r.Intn(13)-6)))
				case 1:
					return randomComparison(r, lhs, expr.NewStaticFloat(r.Float64()*12-6))
				}
				return randomComparison(r, lhs, expr.NewStaticDecimal(big.NewInt(int64(r.Intn(121)-60)), 5, 1))
			},
		},
		{
			meta: ColumnMetadata{Path: "d", Physical: PhysicalInt32, Logical: LogicalType{Kind: LogicalDate}, MaxDefinitionLevel: 1},
			value: func(r *rand.Rand, _ bool) (*expr.Static, *expr.Static) {
				days := int32(18000 + r.Intn(60))
				return expr.NewStaticInt32(days), expr.NewStaticDateDays(int64(days))
			},
			leaf: func(r *rand.Rand) expr.Expression {
				days := int64(18000 + r.Intn(80) - 10)
				if r.Intn(2) == 0 {
					return randomComparison(r, expr.NewField("d"), expr.NewStaticDateDays(days))
				}
				return randomComparison(r, expr.NewField("d"), expr.NewStaticTimestamp(days*86400000+r.Int63n(86400000)))
			},
		},
		{
			meta: ColumnMetadata{Path: "s", Physical: PhysicalByteArray, Logical: LogicalType{Kind: LogicalString}, MaxDefinitionLevel: 1},
			value: func(r *rand.Rand, _ bool) (*expr.Static, *expr.Static) {
				v := strs[r.Intn(len(strs))]
				return expr.NewStaticBinary([]byte(v)), expr.NewStaticString(v)
			},
			leaf: func(r *rand.Rand) expr.Expression {
				lits := append([]string{"aa", "bb", "abd"}, strs...)
				return randomComparison(r, expr.NewField("s"), expr.NewStaticString(lits[r.Intn(len(lits))]))
			},
		},
	}
}

// typedStatsOf is what a writer records for stored values: NaN stays out of
// min and max.
func typedStatsOf(values []*expr.Static) Statistics {
	st := Statistics{HasNullCount: true, NumValues: int64(len(values))}
	for _, v := range values {
		if v == nil {
			st.NullCount++
			continue
		}
		if v.T.Minor.IsFloat() && math.IsNaN(v.F) {
			continue
		}
		if st.Min == nil {
			st.Min, st.Max = v, v
			continue
		}
		if c, _ := v.Compare(st.Min); c < 0 {
			st.Min = v
		}
		if c, _ := v.Compare(st.Max); c > 0 {
			st.Max = v
		}
	}
	return st
}

func isNaN(s *expr.Static) bool {
	return !s.IsNull() && s.T.Minor.IsFloat() && math.IsNaN(s.F)
}

// evalRow evaluates a bound filter with the semantics rows have: 32 bit
// integer arithmetic wraps around and NaN only satisfies !=.
func evalRow(e expr.Expression) (*expr.Static, error) {
	wrap := func(s *expr.Static, err error) (*expr.Static, error) {
		if err == nil && !s.IsNull() && s.T.Minor == types.MinorInt {
			s = expr.NewStaticInt32(int32(s.N))
		}
		return s, err
	}
	switch n := e.(type) {
	case *expr.Cast:
		v, err := evalRow(n.Expression)
		if err != nil {
			return nil, err
		}
		return expr.CastStatic(v, n.Target)
	case *expr.UnaryOperation:
		v, err := evalRow(n.Expression)
		if err != nil {
			return nil, err
		}
		return wrap(expr.EvaluateConstant(expr.NewUnaryOperation(n.Op, v)))
	case *expr.BinaryOperation:
		l, err := evalRow(n.LHS)
		if err != nil {
			return nil, err
		}
		r, err := evalRow(n.RHS)
		if err != nil {
			return nil, err
		}
		if n.Op.IsComparison() && (isNaN(l) || isNaN(r)) && !l.IsNull() && !r.IsNull() {
			return expr.NewStaticBool(n.Op == expr.OpNotEqual), nil
		}
		return wrap(expr.EvaluateConstant(expr.NewBinaryOperation(n.Op, l, r)))
	}
	return expr.EvaluateConstant(e)
}

func TestCanDropIsSoundAcrossTypes(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	cols := typedColumns()

	var metas []ColumnMetadata
	lookup := map[string]types.MajorType{}
	for _, c := range cols {
		metas = append(metas, c.meta)
		mt, err := MajorTypeOf(c.meta, false)
		require.NoError(t, err)
		lookup[c.meta.Path] = mt
	}
	schema := NewPhysicalSchema(metas...)

	var randomTypedFilter func(depth int) expr.Expression
	randomTypedFilter = func(depth int) expr.Expression {
		if depth == 0 || r.Intn(3) == 0 {
			c := cols[r.Intn(len(cols))]
			if r.Intn(10) == 0 {
				return expr.NewUnaryOperation([]expr.Operator{expr.OpIsNull, expr.OpIsNotNull}[r.Intn(2)], expr.NewField(c.meta.Path))
			}
			return c.leaf(r)
		}
		switch r.Intn(3) {
		case 0:
			return expr.And(randomTypedFilter(depth-1), randomTypedFilter(depth-1))
		case 1:
			return expr.Or(randomTypedFilter(depth-1), randomTypedFilter(depth-1))
		}
		return expr.Not(randomTypedFilter(depth - 1))
	}

	dropped := 0
	for trial := 0; trial < 3000; trial++ {
		n := 1 + r.Intn(8)
		stats := NewColumnStatistics()
		read := map[string][]*expr.Static{}
		for _, c := range cols {
			edge := r.Intn(4) == 0
			nullRate := r.Intn(3) // 0: none, 1: some, 2: all
			stored := make([]*expr.Static, n)
			read[c.meta.Path] = make([]*expr.Static, n)
			for i := 0; i < n; i++ {
				if nullRate == 2 || (nullRate == 1 && r.Intn(3) == 0) {
					continue
				}
				stored[i], read[c.meta.Path][i] = c.value(r, edge)
			}
			stats.Put(c.meta.Path, typedStatsOf(stored))
		}

		filter := randomTypedFilter(3)
		if !CanDrop(filter, schema, stats, Options{}) {
			continue
		}
		dropped++

		ec := &expr.ErrorCollector{}
		materialized := expr.Materialize(filter, func(p string) (types.MajorType, bool) {
			mt, ok := lookup[p]
			return mt, ok
		}, ec)
		require.False(t, ec.HasErrors(), ec.Err())
		for i := 0; i < n; i++ {
			row := map[string]*expr.Static{}
			for p, vals := range read {
				row[p] = vals[i]
				if row[p] == nil {
					row[p] = expr.NewStaticNull()
				}
			}
			got, err := evalRow(bind(materialized, row))
			require.NoError(t, err, filter.String())
			assert.True(t, got.IsNull() || !got.B, "row %d of trial %d satisfies dropped filter %s", i, trial, filter)
		}
	}
	assert.Greater(t, dropped, 50)
}

func TestMajorTypeOf(t *testing.T) {
	tcs := []struct {
		col ColumnMetadata
		exp types.MajorType
	}{
		{ColumnMetadata{Physical: PhysicalInt32}, types.Required(types.MinorInt)},
		{ColumnMetadata{Physical: PhysicalInt32, MaxDefinitionLevel: 1}, types.Optional(types.MinorInt)},
		{ColumnMetadata{Physical: PhysicalInt32, MaxRepetitionLevel: 1, MaxDefinitionLevel: 1}, types.Repeated(types.MinorInt)},
		{ColumnMetadata{Physical: PhysicalInt32, Logical: LogicalType{Kind: LogicalDate}}, types.Required(types.MinorDate)},
		{ColumnMetadata{Physical: PhysicalInt64, Logical: LogicalType{Kind: LogicalTimestamp, Unit: UnitNanos}}, types.Required(types.MinorTimestamp)},
		{ColumnMetadata{Physical: PhysicalInt64, Logical: LogicalType{Kind: LogicalDecimal, Precision: 12, Scale: 3}}, types.Decimal(types.ModeRequired, 12, 3)},
		{ColumnMetadata{Physical: PhysicalInt64, Logical: LogicalType{Kind: LogicalInteger, BitWidth: 64}}, types.Required(types.MinorUInt8)},
		{ColumnMetadata{Physical: PhysicalByteArray, Logical: LogicalType{Kind: LogicalString}}, types.Required(types.MinorVarChar)},
		{ColumnMetadata{Physical: PhysicalByteArray}, types.Required(types.MinorVarBinary)},
		{ColumnMetadata{Physical: PhysicalFloat}, types.Required(types.MinorFloat4)},
		{ColumnMetadata{Physical: PhysicalBoolean}, types.Required(types.MinorBit)},
	}
	for _, tc := range tcs {
		got, err := MajorTypeOf(tc.col, false)
		require.NoError(t, err)
		assert.Equal(t, tc.exp, got, tc.col.Physical.String())
	}
}
