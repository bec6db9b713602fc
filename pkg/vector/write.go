package vector

import (
	"fmt"
	"math/big"
)

// SetObject writes a Go value at i, converting between numeric widths. nil
// writes a null, or an empty list on a repeated column. Decimals take the
// unscaled value, as an integer up to 18 digits and as big endian two's
// complement bytes beyond.
func SetObject(col Column, i int, v any) error {
	switch c := col.(type) {
	case *Repeated:
		if v == nil {
			c.SetRow(i, 0)
			return nil
		}
		list, ok := v.([]any)
		if !ok {
			return fmt.Errorf("column %s: want a list, got %T", c.field.Name, v)
		}
		start := c.SetRow(i, len(list))
		for j, e := range list {
			if err := SetObject(c.elements, start+j, e); err != nil {
				return err
			}
		}
		return nil
	case *VarWidth:
		switch x := v.(type) {
		case nil:
			c.SetNull(i)
		case string:
			c.SetString(i, x)
		case []byte:
			c.Set(i, x)
		default:
			return fmt.Errorf("column %s: cannot write %T", c.field.Name, v)
		}
		return nil
	case *Fixed[bool]:
		if v == nil {
			c.SetNull(i)
			return nil
		}
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("column %s: cannot write %T", c.field.Name, v)
		}
		c.Set(i, b)
		return nil
	case *Fixed[int32]:
		return setNumber(c, i, v, func(n int64) int32 { return int32(n) })
	case *Fixed[uint32]:
		return setNumber(c, i, v, func(n int64) uint32 { return uint32(n) })
	case *Fixed[int64]:
		return setNumber(c, i, v, func(n int64) int64 { return n })
	case *Fixed[uint64]:
		if u, ok := v.(uint64); ok {
			c.Set(i, u)
			return nil
		}
		return setNumber(c, i, v, func(n int64) uint64 { return uint64(n) })
	case *Fixed[float32]:
		return setFloat(c, i, v, func(f float64) float32 { return float32(f) })
	case *Fixed[float64]:
		return setFloat(c, i, v, func(f float64) float64 { return f })
	}
	return fmt.Errorf("cannot write to column %T", col)
}

func setNumber[T fixedValue](c *Fixed[T], i int, v any, conv func(int64) T) error {
	var n int64
	switch x := v.(type) {
	case nil:
		c.SetNull(i)
		return nil
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint32:
		n = int64(x)
	case *big.Int:
		n = x.Int64()
	default:
		return fmt.Errorf("column %s: cannot write %T", c.field.Name, v)
	}
	c.Set(i, conv(n))
	return nil
}

func setFloat[T fixedValue](c *Fixed[T], i int, v any, conv func(float64) T) error {
	var f float64
	switch x := v.(type) {
	case nil:
		c.SetNull(i)
		return nil
	case float32:
		f = float64(x)
	case float64:
		f = x
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	default:
		return fmt.Errorf("column %s: cannot write %T", c.field.Name, v)
	}
	c.Set(i, conv(f))
	return nil
}
