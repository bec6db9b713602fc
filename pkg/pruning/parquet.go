package pruning

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/grafana/colscan/pkg/expr"
)

// byte array bounds in a column index are truncated to this many bytes, so a
// max that long may not be an upper bound
const columnIndexTruncateLength = 16

// FileMetadata is what pruning needs to know of a parquet file.
type FileMetadata struct {
	Schema    *PhysicalSchema
	RowGroups []RowGroupMetadata
	CreatedBy string
	// key value metadata of the footer
	KeyValue map[string]string
	// leaf column index of each schema path
	leaves map[string]int
}

type RowGroupMetadata struct {
	Index      int
	NumRows    int64
	Statistics *ColumnStatistics
}

// LeafIndex returns the position of path among the file's leaf columns.
func (m *FileMetadata) LeafIndex(path string) (int, bool) {
	i, ok := m.leaves[pathKeyOf(path)]
	return i, ok
}

// ReadParquetMetadata collects the schema and per row group statistics of pf.
// Statistics come from the page index where the file has one and from the
// footer otherwise.
func ReadParquetMetadata(pf *parquet.File) (*FileMetadata, error) {
	md := pf.Metadata()
	meta := &FileMetadata{
		Schema:    NewPhysicalSchema(),
		CreatedBy: md.CreatedBy,
		KeyValue:  map[string]string{},
		leaves:    map[string]int{},
	}
	for _, kv := range md.KeyValueMetadata {
		meta.KeyValue[kv.Key] = kv.Value
	}

	var leaves []*parquet.Column
	var walk func(c *parquet.Column)
	walk = func(c *parquet.Column) {
		if c.Leaf() {
			leaves = append(leaves, c)
			return
		}
		for _, child := range c.Columns() {
			walk(child)
		}
	}
	walk(pf.Root())

	cols := make([]ColumnMetadata, 0, len(leaves))
	for _, leaf := range leaves {
		c, err := columnMetadata(leaf)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
		meta.Schema.columns.Put(c.Path, c)
		meta.leaves[pathKeyOf(c.Path)] = leaf.Index()
	}

	// the page index is laid out row group by row group
	indexes := pf.ColumnIndexes()
	numColumns := 0
	if len(md.RowGroups) > 0 {
		numColumns = len(md.RowGroups[0].Columns)
	}
	if len(indexes) != len(md.RowGroups)*numColumns {
		indexes = nil
	}

	for i, rg := range md.RowGroups {
		rgm := RowGroupMetadata{Index: i, NumRows: rg.NumRows, Statistics: NewColumnStatistics()}
		for j, leaf := range leaves {
			idx := leaf.Index()
			if idx >= len(rg.Columns) {
				return nil, fmt.Errorf("row group %d has no chunk for column %s", i, cols[j].Path)
			}
			var index *format.ColumnIndex
			if indexes != nil && rg.Columns[idx].ColumnIndexOffset > 0 {
				index = &indexes[i*numColumns+idx]
			}
			st := chunkStatistics(leaf.Type(), &rg.Columns[idx].MetaData, index, cols[j], rg.NumRows)
			rgm.Statistics.Put(cols[j].Path, st)
		}
		meta.RowGroups = append(meta.RowGroups, rgm)
	}
	return meta, nil
}

func columnMetadata(leaf *parquet.Column) (ColumnMetadata, error) {
	t := leaf.Type()
	c := ColumnMetadata{
		Path:               strings.Join(leaf.Path(), "."),
		TypeLength:         t.Length(),
		MaxRepetitionLevel: leaf.MaxRepetitionLevel(),
		MaxDefinitionLevel: leaf.MaxDefinitionLevel(),
		Logical:            logicalType(t.LogicalType()),
	}
	switch t.Kind() {
	case parquet.Boolean:
		c.Physical = PhysicalBoolean
	case parquet.Int32:
		c.Physical = PhysicalInt32
	case parquet.Int64:
		c.Physical = PhysicalInt64
	case parquet.Int96:
		c.Physical = PhysicalInt96
	case parquet.Float:
		c.Physical = PhysicalFloat
	case parquet.Double:
		c.Physical = PhysicalDouble
	case parquet.ByteArray:
		c.Physical = PhysicalByteArray
	case parquet.FixedLenByteArray:
		c.Physical = PhysicalFixedLenByteArray
	default:
		return c, fmt.Errorf("column %s has unsupported kind %s", c.Path, t.Kind())
	}
	return c, nil
}

func logicalType(lt *format.LogicalType) LogicalType {
	if lt == nil {
		return LogicalType{}
	}
	switch {
	case lt.UTF8 != nil:
		return LogicalType{Kind: LogicalString}
	case lt.Enum != nil:
		return LogicalType{Kind: LogicalEnum}
	case lt.Json != nil:
		return LogicalType{Kind: LogicalJSON}
	case lt.UUID != nil:
		return LogicalType{Kind: LogicalUUID}
	case lt.Date != nil:
		return LogicalType{Kind: LogicalDate}
	case lt.Time != nil:
		return LogicalType{Kind: LogicalTime, Unit: timeUnit(lt.Time.Unit)}
	case lt.Timestamp != nil:
		return LogicalType{Kind: LogicalTimestamp, Unit: timeUnit(lt.Timestamp.Unit)}
	case lt.Decimal != nil:
		return LogicalType{Kind: LogicalDecimal, Precision: lt.Decimal.Precision, Scale: lt.Decimal.Scale}
	case lt.Integer != nil:
		return LogicalType{Kind: LogicalInteger, BitWidth: int(lt.Integer.BitWidth), Signed: lt.Integer.IsSigned}
	}
	return LogicalType{}
}

func timeUnit(u format.TimeUnit) TimeUnit {
	switch {
	case u.Micros != nil:
		return UnitMicros
	case u.Nanos != nil:
		return UnitNanos
	}
	return UnitMillis
}

// chunkStatistics folds the page index of a column chunk into one set of
// statistics and takes what the index lacks from the footer. Null pages carry
// no bounds and are skipped. Either source may be nil.
func chunkStatistics(typ parquet.Type, footer *format.ColumnMetaData, index *format.ColumnIndex, c ColumnMetadata, numRows int64) Statistics {
	st := Statistics{NumValues: numRows}
	if c.MaxRepetitionLevel > 0 && footer != nil {
		st.NumValues = footer.NumValues
	}
	if c.MaxDefinitionLevel == 0 {
		st.HasNullCount = true
	}

	if index != nil && len(index.NullPages) > 0 {
		if !st.HasNullCount && len(index.NullCounts) == len(index.NullPages) {
			for _, n := range index.NullCounts {
				st.NullCount += n
			}
			st.HasNullCount = true
		}
		if lo, hi, ok := indexBounds(typ, index); ok && !truncatedMax(c, hi) {
			st.Min, st.Max = rawStatic(lo), rawStatic(hi)
		}
	}

	if footer != nil {
		fs := &footer.Statistics
		if !st.HasNullCount && footerHasStatistics(fs) {
			st.NullCount, st.HasNullCount = fs.NullCount, true
		}
		if st.Min == nil || st.Max == nil {
			st.Min, st.Max = footerBounds(typ, c, fs)
		}
	}

	if st.Min == nil || st.Max == nil {
		st.Min, st.Max = nil, nil
	}
	return st
}

// indexBounds returns the smallest min and largest max over the non null
// pages of index.
func indexBounds(typ parquet.Type, index *format.ColumnIndex) (lo, hi parquet.Value, ok bool) {
	n := len(index.NullPages)
	if len(index.MinValues) != n || len(index.MaxValues) != n {
		return lo, hi, false
	}
	kind := typ.Kind()
	for p := 0; p < n; p++ {
		if index.NullPages[p] {
			continue
		}
		mn, okMin := plainValue(kind, index.MinValues[p])
		mx, okMax := plainValue(kind, index.MaxValues[p])
		if !okMin || !okMax {
			return lo, hi, false
		}
		if !ok {
			lo, hi, ok = mn, mx, true
			continue
		}
		if typ.Compare(mn, lo) < 0 {
			lo = mn
		}
		if typ.Compare(mx, hi) > 0 {
			hi = mx
		}
	}
	return lo, hi, ok
}

// truncatedMax reports whether a page index max may have been cut short by
// the writer, in which case it is not an upper bound.
func truncatedMax(c ColumnMetadata, hi parquet.Value) bool {
	switch c.Physical {
	case PhysicalByteArray:
		return len(hi.ByteArray()) >= columnIndexTruncateLength
	case PhysicalFixedLenByteArray:
		return len(hi.ByteArray()) < c.TypeLength
	}
	return false
}

// footerHasStatistics reports whether the writer recorded statistics at all.
// An absent null count reads as zero, so a zero count is only believed next
// to recorded bounds.
func footerHasStatistics(fs *format.Statistics) bool {
	return fs.NullCount > 0 || fs.MinValue != nil || fs.MaxValue != nil || fs.Min != nil || fs.Max != nil
}

// footerBounds reads the chunk bounds of the footer. The legacy min and max
// fields were compared as signed values, which only matches the column order
// of signed numeric columns.
func footerBounds(typ parquet.Type, c ColumnMetadata, fs *format.Statistics) (*expr.Static, *expr.Static) {
	mn, mx := fs.MinValue, fs.MaxValue
	if mn == nil || mx == nil {
		if !legacyOrderIsColumnOrder(c) {
			return nil, nil
		}
		mn, mx = fs.Min, fs.Max
	}
	if mn == nil || mx == nil {
		return nil, nil
	}
	lo, okMin := plainValue(typ.Kind(), mn)
	hi, okMax := plainValue(typ.Kind(), mx)
	if !okMin || !okMax {
		return nil, nil
	}
	if c.Physical == PhysicalFixedLenByteArray && truncatedMax(c, hi) {
		return nil, nil
	}
	return rawStatic(lo), rawStatic(hi)
}

func legacyOrderIsColumnOrder(c ColumnMetadata) bool {
	switch c.Physical {
	case PhysicalBoolean, PhysicalInt32, PhysicalInt64, PhysicalFloat, PhysicalDouble:
		return c.Logical.Kind != LogicalInteger || c.Logical.Signed
	}
	return false
}

// plainValue decodes one plain encoded value. Byte arrays alias b.
func plainValue(kind parquet.Kind, b []byte) (parquet.Value, bool) {
	size := -1
	switch kind {
	case parquet.Boolean:
		size = 1
	case parquet.Int32, parquet.Float:
		size = 4
	case parquet.Int64, parquet.Double:
		size = 8
	case parquet.Int96:
		size = 12
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return kind.Value(b), true
	}
	if len(b) != size {
		return parquet.Value{}, false
	}
	return kind.Value(b), true
}

// rawStatic reads a parquet value as a literal of its physical type.
func rawStatic(v parquet.Value) *expr.Static {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return expr.NewStaticBool(v.Boolean())
	case parquet.Int32:
		return expr.NewStaticInt32(v.Int32())
	case parquet.Int64:
		return expr.NewStaticInt(v.Int64())
	case parquet.Float:
		return expr.NewStaticFloat32(v.Float())
	case parquet.Double:
		return expr.NewStaticFloat(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return expr.NewStaticBinary(v.ByteArray())
	}
	return nil
}
