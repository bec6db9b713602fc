package vector

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/grafana/colscan/pkg/types"
)

// Format renders row i of col for display.
func Format(col Column, i int) string {
	if col.IsNull(i) {
		return "null"
	}
	if r, ok := col.(RepeatedColumn); ok {
		rd := r.Reader(i)
		parts := make([]string, 0, rd.Size())
		for rd.Next() {
			parts = append(parts, formatValue(r.Elements().Field().Type, rd.ReadObject()))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return formatValue(col.Field().Type, col.Object(i))
}

func formatValue(t types.MajorType, v any) string {
	if v == nil {
		return "null"
	}
	switch t.Minor {
	case types.MinorDate:
		return time.UnixMilli(v.(int64)).UTC().Format("2006-01-02")
	case types.MinorTime:
		return time.UnixMilli(int64(v.(int32))).UTC().Format("15:04:05.000")
	case types.MinorTimestamp:
		return time.UnixMilli(v.(int64)).UTC().Format("2006-01-02 15:04:05.000")
	case types.MinorDecimal9:
		return new(big.Rat).Quo(big.NewRat(int64(v.(int32)), 1), pow10(t.Scale)).FloatString(int(t.Scale))
	case types.MinorDecimal18:
		return new(big.Rat).Quo(big.NewRat(v.(int64), 1), pow10(t.Scale)).FloatString(int(t.Scale))
	case types.MinorDecimal28Sparse, types.MinorDecimal38Sparse:
		return new(big.Rat).Quo(new(big.Rat).SetInt(UnscaledFromBytes(v.([]byte))), pow10(t.Scale)).FloatString(int(t.Scale))
	case types.MinorVarBinary:
		return hex.EncodeToString(v.([]byte))
	}
	return fmt.Sprint(v)
}

func pow10(scale int32) *big.Rat {
	return new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil))
}

// UnscaledFromBytes decodes a big endian two's complement decimal.
func UnscaledFromBytes(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}
