package types

import "strings"

// CaseInsensitiveMap is an insertion ordered map whose keys are folded to lower
// case once on the way in. Lookups fold the probe key the same way.
type CaseInsensitiveMap[V any] struct {
	index map[string]int
	keys  []string
	vals  []V
}

func NewCaseInsensitiveMap[V any]() *CaseInsensitiveMap[V] {
	return &CaseInsensitiveMap[V]{index: map[string]int{}}
}

func canonical(key string) string {
	return strings.ToLower(key)
}

func (m *CaseInsensitiveMap[V]) Get(key string) (V, bool) {
	i, ok := m.index[canonical(key)]
	if !ok {
		var zero V
		return zero, false
	}
	return m.vals[i], true
}

// Put inserts or replaces key. A replaced value keeps its position and the key
// keeps its original spelling.
func (m *CaseInsensitiveMap[V]) Put(key string, v V) {
	k := canonical(key)
	if i, ok := m.index[k]; ok {
		m.vals[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, v)
}

func (m *CaseInsensitiveMap[V]) Delete(key string) (V, bool) {
	k := canonical(key)
	i, ok := m.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	v := m.vals[i]
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	delete(m.index, k)
	for j := i; j < len(m.keys); j++ {
		m.index[canonical(m.keys[j])] = j
	}
	return v, true
}

func (m *CaseInsensitiveMap[V]) Len() int { return len(m.keys) }

// Range visits entries in insertion order until f returns false.
func (m *CaseInsensitiveMap[V]) Range(f func(key string, v V) bool) {
	for i, k := range m.keys {
		if !f(k, m.vals[i]) {
			return
		}
	}
}

func (m *CaseInsensitiveMap[V]) Values() []V {
	return append([]V(nil), m.vals...)
}

func (m *CaseInsensitiveMap[V]) Clear() {
	m.index = map[string]int{}
	m.keys = nil
	m.vals = nil
}
