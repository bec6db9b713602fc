package pruning

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"time"

	"github.com/grafana/colscan/pkg/expr"
	"github.com/grafana/colscan/pkg/types"
)

// Statistics are what a storage unit recorded for one column. Min and Max are
// in the column's physical domain and nil when nothing was recorded, which is
// different from a zero width interval.
type Statistics struct {
	Min, Max     *expr.Static
	NullCount    int64
	HasNullCount bool
	NumValues    int64
}

func (s Statistics) HasMinMax() bool {
	return s.Min != nil && s.Max != nil
}

// ColumnStatistics holds the statistics of a storage unit keyed by
// case-insensitive column path.
type ColumnStatistics struct {
	cols *types.CaseInsensitiveMap[Statistics]
}

func NewColumnStatistics() *ColumnStatistics {
	return &ColumnStatistics{cols: types.NewCaseInsensitiveMap[Statistics]()}
}

func (c *ColumnStatistics) Put(path string, s Statistics) {
	c.cols.Put(path, s)
}

func (c *ColumnStatistics) Get(path string) (Statistics, bool) {
	if c == nil {
		return Statistics{}, false
	}
	return c.cols.Get(path)
}

func (c *ColumnStatistics) Range(f func(path string, s Statistics) bool) {
	c.cols.Range(f)
}

// DateCorrection selects how DATE statistics written by writers that shifted
// dates by two julian epochs are treated.
type DateCorrection string

const (
	DateCorrectionNone   DateCorrection = "none"
	DateCorrectionAlways DateCorrection = "always"
	// DateCorrectionAuto corrects values too far in the future to be genuine.
	DateCorrectionAuto DateCorrection = "auto"
)

const (
	julianDayOfEpoch = 2440588
	// corruptDateShift is the offset, in days, of dates written by the broken writers.
	corruptDateShift = 2 * julianDayOfEpoch
)

// days from the epoch to 5000-01-01; later dates are taken to be corrupt
var dateCorruptionThreshold = time.Date(5000, 1, 1, 0, 0, 0, 0, time.UTC).Unix() / 86400

// writers known to store genuine days since the epoch
var genuineDateWriters = regexp.MustCompile(`^(github\.com/parquet-go/parquet-go|parquet-cpp|parquet-rs|impala)\b|^parquet-mr version \d+\.\d+\.\d+ \(`)

// ForFile resolves automatic date correction once for the file described by
// m, so that both bounds of a column are always treated alike. Files from
// writers known to store genuine dates need no correction. Otherwise the DATE
// statistics of the whole file decide, and a file whose bounds disagree stays
// automatic.
func (o Options) ForFile(m *FileMetadata) Options {
	if o.DateCorrection == DateCorrectionAuto && m != nil {
		o.DateCorrection = m.dateCorrection()
	}
	return o
}

func (m *FileMetadata) dateCorrection() DateCorrection {
	if genuineDateWriters.MatchString(m.CreatedBy) {
		return DateCorrectionNone
	}
	var shifted, genuine bool
	for _, c := range m.Schema.Columns() {
		if c.Logical.Kind != LogicalDate || c.Physical != PhysicalInt32 {
			continue
		}
		for _, rg := range m.RowGroups {
			st, ok := rg.Statistics.Get(c.Path)
			if !ok || !st.HasMinMax() {
				continue
			}
			for _, v := range []*expr.Static{st.Min, st.Max} {
				if v.N > dateCorruptionThreshold {
					shifted = true
				} else {
					genuine = true
				}
			}
		}
	}
	switch {
	case shifted && !genuine:
		return DateCorrectionAlways
	case genuine && !shifted:
		return DateCorrectionNone
	}
	return DateCorrectionAuto
}

// CorrectDays applies mode to a date stored as days since the unix epoch.
func CorrectDays(days int64, mode DateCorrection) int64 {
	return correctDays(days, mode)
}

func correctDays(days int64, mode DateCorrection) int64 {
	switch mode {
	case DateCorrectionAlways:
		return days - corruptDateShift
	case DateCorrectionAuto:
		if days > dateCorruptionThreshold {
			return days - corruptDateShift
		}
	}
	return days
}

// adaptStatistics converts the physical min/max of c into the domain of t.
// Statistics that cannot be converted soundly lose their min/max.
func adaptStatistics(c ColumnMetadata, t types.MajorType, s Statistics, opts Options) (Statistics, error) {
	if !s.HasMinMax() {
		s.Min, s.Max = nil, nil
		return s, nil
	}

	if t.Minor == types.MinorDate && opts.DateCorrection == DateCorrectionAuto {
		lo, hi := s.Min.N > dateCorruptionThreshold, s.Max.N > dateCorruptionThreshold
		switch {
		case lo && hi:
			opts.DateCorrection = DateCorrectionAlways
		case !lo && !hi:
			opts.DateCorrection = DateCorrectionNone
		default:
			s.Min, s.Max = nil, nil
			return s, nil
		}
	}

	lo, err := adaptValue(c, t, s.Min, opts, false)
	if err != nil {
		return s, err
	}
	hi, err := adaptValue(c, t, s.Max, opts, true)
	if err != nil {
		return s, err
	}
	s.Min, s.Max = lo, hi
	if lo == nil || hi == nil {
		s.Min, s.Max = nil, nil
		return s, nil
	}

	if cmp, err := lo.Compare(hi); err != nil || cmp > 0 {
		s.Min, s.Max = nil, nil
	}
	return s, nil
}

// adaptValue converts one bound. upper selects rounding away from the
// interval when a conversion loses precision. A nil result means the bound is
// unusable.
func adaptValue(c ColumnMetadata, t types.MajorType, v *expr.Static, opts Options, upper bool) (*expr.Static, error) {
	raw := v.T.Minor
	switch t.Minor {
	case types.MinorDate:
		return expr.NewStaticDateDays(correctDays(v.N, opts.DateCorrection)), nil
	case types.MinorTime:
		millis, ok := toMillis(v.N, c.Logical.Unit, upper)
		if !ok {
			return nil, nil
		}
		return expr.NewStaticTime(millis), nil
	case types.MinorTimestamp:
		if c.Physical == PhysicalInt96 {
			return nil, nil
		}
		millis, ok := toMillis(v.N, c.Logical.Unit, upper)
		if !ok {
			return nil, nil
		}
		return expr.NewStaticTimestamp(millis), nil
	case types.MinorDecimal9, types.MinorDecimal18:
		if raw != types.MinorInt && raw != types.MinorBigInt {
			return nil, fmt.Errorf("decimal column %s has %s statistics", c.Path, v.T)
		}
		return expr.NewStaticDecimal(big.NewInt(v.N), t.Precision, t.Scale), nil
	case types.MinorUInt4:
		return expr.NewStaticUInt32(uint32(int32(v.N))), nil
	case types.MinorUInt8:
		return expr.NewStaticUInt(uint64(v.N)), nil
	case types.MinorInt:
		return expr.NewStaticInt32(int32(v.N)), nil
	case types.MinorBigInt:
		return expr.NewStaticInt(v.N), nil
	case types.MinorFloat4, types.MinorFloat8:
		if math.IsNaN(v.F) {
			return nil, nil
		}
		return v, nil
	case types.MinorVarChar:
		return expr.NewStaticString(v.S), nil
	case types.MinorVarBinary, types.MinorBit:
		return v, nil
	}
	return nil, fmt.Errorf("no statistics conversion for column %s of type %s", c.Path, t)
}

// ToMillis converts a time or timestamp stored in unit to milliseconds,
// rounding down.
func ToMillis(n int64, unit TimeUnit) (int64, bool) {
	return toMillis(n, unit, false)
}

func toMillis(n int64, unit TimeUnit, upper bool) (int64, bool) {
	var div int64
	switch unit {
	case UnitMillis:
		return n, true
	case UnitMicros:
		div = 1000
	case UnitNanos:
		div = 1000000
	default:
		return 0, false
	}
	q := n / div
	if r := n % div; r != 0 {
		// go truncates toward zero
		if upper && r > 0 {
			q++
		}
		if !upper && r < 0 {
			q--
		}
	}
	return q, true
}
