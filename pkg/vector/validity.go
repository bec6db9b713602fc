package vector

// validity is a bitmap with one bit per slot. A set bit marks a non-null value.
type validity struct {
	bits []uint64
}

func (v *validity) grow(n int) {
	words := (n + 63) / 64
	if words > len(v.bits) {
		v.bits = append(v.bits, make([]uint64, words-len(v.bits))...)
	}
}

func (v *validity) set(pos int) {
	v.grow(pos + 1)
	v.bits[pos/64] |= 1 << (pos % 64)
}

func (v *validity) unset(pos int) {
	v.grow(pos + 1)
	v.bits[pos/64] &^= 1 << (pos % 64)
}

func (v *validity) isSet(pos int) bool {
	if pos/64 >= len(v.bits) {
		return false
	}
	return v.bits[pos/64]&(1<<(pos%64)) != 0
}

func (v *validity) reset() {
	for i := range v.bits {
		v.bits[i] = 0
	}
}

func (v *validity) bytes() int64 {
	return int64(len(v.bits)) * 8
}
