package pruning

import (
	"bytes"
	"math"
	"math/big"

	"github.com/grafana/colscan/pkg/expr"
	"github.com/grafana/colscan/pkg/types"
)

// Result summarises a predicate over every row of a storage unit.
type Result int

const (
	ResultUnknown Result = iota
	// ResultTrue means every row satisfies the predicate.
	ResultTrue
	// ResultFalse means no row satisfies the predicate; each is false or null.
	ResultFalse
)

func (r Result) String() string {
	switch r {
	case ResultTrue:
		return "true"
	case ResultFalse:
		return "false"
	}
	return "unknown"
}

// truth is the set of values a predicate may take across the rows.
type truth struct {
	mayTrue, mayFalse, mayNull bool
}

var anyTruth = truth{mayTrue: true, mayFalse: true, mayNull: true}

func (t truth) result() Result {
	switch {
	case !t.mayTrue:
		return ResultFalse
	case !t.mayFalse && !t.mayNull:
		return ResultTrue
	}
	return ResultUnknown
}

func (t truth) not() truth {
	return truth{mayTrue: t.mayFalse, mayFalse: t.mayTrue, mayNull: t.mayNull}
}

func (t truth) and(o truth) truth {
	return truth{
		mayTrue:  t.mayTrue && o.mayTrue,
		mayFalse: t.mayFalse || o.mayFalse,
		mayNull:  (t.mayNull && (o.mayTrue || o.mayNull)) || (o.mayNull && (t.mayTrue || t.mayNull)),
	}
}

func (t truth) or(o truth) truth {
	return truth{
		mayTrue:  t.mayTrue || o.mayTrue,
		mayFalse: t.mayFalse && o.mayFalse,
		mayNull:  (t.mayNull && (o.mayFalse || o.mayNull)) || (o.mayNull && (t.mayFalse || t.mayNull)),
	}
}

// bound is one end of an interval, numeric or bytes.
type bound struct {
	num *big.Rat
	str []byte
}

func compareBounds(a, b bound) (int, bool) {
	switch {
	case a.num != nil && b.num != nil:
		return a.num.Cmp(b.num), true
	case a.str != nil && b.str != nil:
		return bytes.Compare(a.str, b.str), true
	}
	return 0, false
}

// interval is the set of values an expression may take across the rows.
type interval struct {
	known   bool // lo and hi hold
	lo, hi  bound
	mayNull bool
	allNull bool
	// floating point rows may hold NaN, which statistics leave out
	mayNaN bool
}

func unknownInterval() interval {
	return interval{mayNull: true}
}

func nullInterval() interval {
	return interval{mayNull: true, allNull: true}
}

func pointInterval(s *expr.Static) interval {
	if s.IsNull() {
		return nullInterval()
	}
	if b, ok := s.Bytes(); ok {
		if b == nil {
			b = []byte{}
		}
		return interval{known: true, lo: bound{str: b}, hi: bound{str: b}}
	}
	if r, ok := s.Rat(); ok {
		return interval{known: true, lo: bound{num: r}, hi: bound{num: r}}
	}
	return interval{mayNaN: s.T.Minor.IsFloat()}
}

type rangeEvaluator struct {
	stats     *ColumnStatistics
	constants map[expr.Expression]struct{}
}

func (r *rangeEvaluator) isConstant(e expr.Expression) bool {
	_, ok := r.constants[e]
	return ok
}

// evalBool evaluates a predicate.
func (r *rangeEvaluator) evalBool(e expr.Expression) truth {
	if r.isConstant(e) {
		s, err := expr.EvaluateConstant(e)
		switch {
		case err != nil:
			return anyTruth
		case s.IsNull():
			return truth{mayNull: true}
		case s.T.Minor == types.MinorBit:
			return truth{mayTrue: s.B, mayFalse: !s.B}
		}
		return anyTruth
	}

	switch n := e.(type) {
	case *expr.BinaryOperation:
		switch {
		case n.Op == expr.OpAnd:
			return r.evalBool(n.LHS).and(r.evalBool(n.RHS))
		case n.Op == expr.OpOr:
			return r.evalBool(n.LHS).or(r.evalBool(n.RHS))
		case n.Op.IsComparison():
			return compare(n.Op, r.evalValue(n.LHS), r.evalValue(n.RHS))
		}
		return anyTruth
	case *expr.UnaryOperation:
		switch n.Op {
		case expr.OpNot:
			return r.evalBool(n.Expression).not()
		case expr.OpIsNull:
			return r.nullness(n.Expression)
		case expr.OpIsNotNull:
			t := r.nullness(n.Expression)
			return truth{mayTrue: t.mayFalse, mayFalse: t.mayTrue}
		}
		return anyTruth
	case *expr.TypedField, *expr.Cast:
		if e.Type().Minor == types.MinorBit {
			return truthOf(r.evalValue(e))
		}
	}
	return anyTruth
}

// nullness evaluates e IS NULL.
func (r *rangeEvaluator) nullness(e expr.Expression) truth {
	if isPredicate(e) {
		t := r.evalBool(e)
		return truth{mayTrue: t.mayNull, mayFalse: t.mayTrue || t.mayFalse}
	}
	i := r.evalValue(e)
	return truth{mayTrue: i.mayNull, mayFalse: !i.allNull}
}

func isPredicate(e expr.Expression) bool {
	switch n := e.(type) {
	case *expr.BinaryOperation:
		return n.Op.IsBoolean()
	case *expr.UnaryOperation:
		return n.Op.IsBoolean()
	}
	return false
}

// truthOf reads a boolean valued interval, with false as 0 and true as 1.
func truthOf(i interval) truth {
	if i.allNull {
		return truth{mayNull: true}
	}
	if !i.known || i.lo.num == nil || i.hi.num == nil {
		return truth{mayTrue: true, mayFalse: true, mayNull: i.mayNull}
	}
	return truth{
		mayTrue:  i.hi.num.Sign() > 0,
		mayFalse: i.lo.num.Sign() == 0,
		mayNull:  i.mayNull,
	}
}

func intervalOf(t truth) interval {
	if !t.mayTrue && !t.mayFalse {
		return nullInterval()
	}
	lo, hi := big.NewRat(0, 1), big.NewRat(1, 1)
	if !t.mayFalse {
		lo = big.NewRat(1, 1)
	}
	if !t.mayTrue {
		hi = big.NewRat(0, 1)
	}
	return interval{known: true, lo: bound{num: lo}, hi: bound{num: hi}, mayNull: t.mayNull}
}

// evalValue evaluates a value producing expression.
func (r *rangeEvaluator) evalValue(e expr.Expression) interval {
	if r.isConstant(e) {
		s, err := expr.EvaluateConstant(e)
		if err != nil {
			return unknownInterval()
		}
		return pointInterval(s)
	}

	switch n := e.(type) {
	case *expr.TypedField:
		return r.field(n)
	case *expr.Cast:
		return castInterval(r.evalValue(n.Expression), n.Expression.Type(), n.Target)
	case *expr.BinaryOperation:
		if n.Op.IsBoolean() {
			return intervalOf(r.evalBool(n))
		}
		return arithmetic(n.Op, r.evalValue(n.LHS), r.evalValue(n.RHS), n.Type())
	case *expr.UnaryOperation:
		if n.Op.IsBoolean() {
			return intervalOf(r.evalBool(n))
		}
		if n.Op == expr.OpNegate {
			i := r.evalValue(n.Expression)
			if i.known && i.lo.num != nil {
				i.lo, i.hi = bound{num: new(big.Rat).Neg(i.hi.num)}, bound{num: new(big.Rat).Neg(i.lo.num)}
				return checkRange(i, n.Type())
			}
			i.known = false
			return i
		}
	}
	return unknownInterval()
}

func (r *rangeEvaluator) field(f *expr.TypedField) interval {
	s, ok := r.stats.Get(f.Path)
	if !ok {
		return unknownInterval()
	}
	i := interval{
		mayNull: !s.HasNullCount || s.NullCount > 0,
		allNull: s.HasNullCount && s.NullCount >= s.NumValues,
		mayNaN:  f.FieldType.Minor.IsFloat(),
	}
	if i.allNull || !s.HasMinMax() {
		return i
	}
	lo, hi := pointInterval(s.Min), pointInterval(s.Max)
	if !lo.known || !hi.known {
		return i
	}
	i.known, i.lo, i.hi = true, lo.lo, hi.hi
	return i
}

// compare evaluates lhs op rhs for every pair of values from the intervals.
func compare(op expr.Operator, l, r interval) truth {
	if l.allNull || r.allNull {
		return truth{mayNull: true}
	}
	t := truth{mayTrue: true, mayFalse: true, mayNull: l.mayNull || r.mayNull}
	if !l.known || !r.known {
		return t
	}

	loHi, ok1 := compareBounds(l.lo, r.hi) // l.lo vs r.hi
	hiLo, ok2 := compareBounds(l.hi, r.lo) // l.hi vs r.lo
	if !ok1 || !ok2 {
		return t
	}
	point := false
	if c1, ok := compareBounds(l.lo, l.hi); ok && c1 == 0 {
		if c2, ok := compareBounds(r.lo, r.hi); ok && c2 == 0 && loHi == 0 {
			point = true
		}
	}
	overlap := loHi <= 0 && hiLo >= 0

	switch op {
	case expr.OpLess:
		t.mayTrue, t.mayFalse = loHi < 0, hiLo >= 0
	case expr.OpLessEqual:
		t.mayTrue, t.mayFalse = loHi <= 0, hiLo > 0
	case expr.OpGreater:
		t.mayTrue, t.mayFalse = hiLo > 0, loHi <= 0
	case expr.OpGreaterEqual:
		t.mayTrue, t.mayFalse = hiLo >= 0, loHi < 0
	case expr.OpEqual:
		t.mayTrue, t.mayFalse = overlap, !point
	case expr.OpNotEqual:
		t.mayTrue, t.mayFalse = !point, overlap
	default:
		return anyTruth
	}

	// NaN compares false against everything, so != holds
	if l.mayNaN || r.mayNaN {
		t.mayFalse = true
		if op == expr.OpNotEqual {
			t.mayTrue = true
		}
	}
	return t
}

func arithmetic(op expr.Operator, l, r interval, t types.MajorType) interval {
	out := interval{
		mayNull: l.mayNull || r.mayNull,
		allNull: l.allNull || r.allNull,
		mayNaN:  l.mayNaN || r.mayNaN,
	}
	if out.allNull || !l.known || !r.known || l.lo.num == nil || r.lo.num == nil {
		return out
	}

	var lo, hi *big.Rat
	switch op {
	case expr.OpAdd:
		lo = new(big.Rat).Add(l.lo.num, r.lo.num)
		hi = new(big.Rat).Add(l.hi.num, r.hi.num)
	case expr.OpSub:
		lo = new(big.Rat).Sub(l.lo.num, r.hi.num)
		hi = new(big.Rat).Sub(l.hi.num, r.lo.num)
	case expr.OpMult:
		products := []*big.Rat{
			new(big.Rat).Mul(l.lo.num, r.lo.num),
			new(big.Rat).Mul(l.lo.num, r.hi.num),
			new(big.Rat).Mul(l.hi.num, r.lo.num),
			new(big.Rat).Mul(l.hi.num, r.hi.num),
		}
		lo, hi = products[0], products[0]
		for _, p := range products[1:] {
			if p.Cmp(lo) < 0 {
				lo = p
			}
			if p.Cmp(hi) > 0 {
				hi = p
			}
		}
	default:
		return out
	}
	out.known, out.lo, out.hi = true, bound{num: lo}, bound{num: hi}
	return checkRange(out, t)
}

// checkRange forgets the bounds of an intermediate result the engine could
// overflow on, since the row level result would wrap.
func checkRange(i interval, t types.MajorType) interval {
	var min, max *big.Rat
	switch t.Minor {
	case types.MinorInt:
		min, max = big.NewRat(math.MinInt32, 1), big.NewRat(math.MaxInt32, 1)
	case types.MinorBigInt, types.MinorDate, types.MinorTime, types.MinorTimestamp:
		min, max = big.NewRat(math.MinInt64, 1), big.NewRat(math.MaxInt64, 1)
	case types.MinorUInt4:
		min, max = new(big.Rat), big.NewRat(math.MaxUint32, 1)
	case types.MinorUInt8:
		min, max = new(big.Rat), new(big.Rat).SetInt(new(big.Int).SetUint64(math.MaxUint64))
	case types.MinorDecimal9, types.MinorDecimal18, types.MinorDecimal28Sparse, types.MinorDecimal38Sparse:
		digits := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Precision-t.Scale)), nil)
		max = new(big.Rat).SetInt(digits)
		min = new(big.Rat).Neg(max)
	default:
		return i
	}
	if i.lo.num.Cmp(min) < 0 || i.hi.num.Cmp(max) > 0 {
		i.known = false
	}
	return i
}

// castInterval maps the bounds through a cast. Every supported cast is
// monotonic, so the image of [lo, hi] is [cast(lo), cast(hi)].
func castInterval(i interval, from, to types.MajorType) interval {
	if !i.known || i.allNull {
		return i
	}
	switch {
	case from.Minor == types.MinorNull || from.Minor == to.Minor && from.Scale == to.Scale:
		return i
	case from.Minor == types.MinorDate && to.Minor == types.MinorTimestamp:
		return i
	case from.Minor.IsNumeric() && to.Minor.IsNumeric():
		if i.lo.num == nil {
			i.known = false
			return i
		}
		i.lo = bound{num: castRat(i.lo.num, to)}
		i.hi = bound{num: castRat(i.hi.num, to)}
		if to.Minor.IsFloat() {
			return i
		}
		return checkRange(i, to)
	case from.Minor.IsBytes() && to.Minor.IsBytes():
		return i
	}
	i.known = false
	return i
}

func castRat(r *big.Rat, to types.MajorType) *big.Rat {
	switch to.Minor {
	case types.MinorFloat8:
		f, _ := r.Float64()
		if math.IsInf(f, 0) {
			return new(big.Rat).Set(r)
		}
		return new(big.Rat).SetFloat64(f)
	case types.MinorFloat4:
		f, _ := r.Float32()
		if math.IsInf(float64(f), 0) {
			return new(big.Rat).Set(r)
		}
		return new(big.Rat).SetFloat64(float64(f))
	}
	if to.Minor.IsDecimal() {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(to.Scale)), nil)
		scaled := new(big.Int).Quo(new(big.Int).Mul(r.Num(), scale), r.Denom())
		return new(big.Rat).SetFrac(scaled, scale)
	}
	return new(big.Rat).SetInt(new(big.Int).Quo(r.Num(), r.Denom()))
}
