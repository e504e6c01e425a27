package codec

import "math"

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   Value
	Value Value
}

// Map is an ordered associative container. Entries iterate in insertion
// order; keys are compared structurally with Equal.
//
// A nil *Map behaves as an empty map for reads.
type Map struct {
	entries []MapEntry
	// index maps scalar keys to the position of their first entry.
	index map[any]int
}

// float64Key keeps Float64 keys apart from other kinds and compares them
// bit for bit, as Equal does.
type float64Key uint64

// scalarKey returns the hashable form of key, or false for array, list and
// map keys.
func scalarKey(key Value) (any, bool) {
	switch k := key.(type) {
	case Null, Bool, Int32, Int64, String:
		return k, true
	case Float64:
		return float64Key(math.Float64bits(float64(k))), true
	}
	return nil, false
}

// NewMap creates an empty map with room for n entries.
func NewMap(n int) *Map {
	return &Map{entries: make([]MapEntry, 0, n)}
}

// MapOf builds a map from alternating key, value arguments.
func MapOf(kv ...Value) *Map {
	m := NewMap(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i], kv[i+1])
	}
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

func (m *Map) find(key Value) int {
	if k, ok := scalarKey(key); ok {
		if i, ok := m.index[k]; ok {
			return i
		}
		return -1
	}
	for i, e := range m.entries {
		if Equal(e.Key, key) {
			return i
		}
	}
	return -1
}

// Set inserts or replaces the value for key. Replacing keeps the entry's
// original position.
func (m *Map) Set(key, value Value) {
	key, value = orNull(key), orNull(value)
	if i := m.find(key); i >= 0 {
		m.entries[i].Value = value
		return
	}
	m.appendEntry(key, value)
}

// appendEntry adds an entry without looking for an existing key. Decoders
// use it to keep the wire's entry list as is, duplicates included; lookups
// then see the first of the duplicates.
func (m *Map) appendEntry(key, value Value) {
	key, value = orNull(key), orNull(value)
	if k, ok := scalarKey(key); ok {
		if m.index == nil {
			m.index = make(map[any]int)
		}
		if _, dup := m.index[k]; !dup {
			m.index[k] = len(m.entries)
		}
	}
	m.entries = append(m.entries, MapEntry{Key: key, Value: value})
}

func (m *Map) reindex() {
	m.index = nil
	for i, e := range m.entries {
		k, ok := scalarKey(e.Key)
		if !ok {
			continue
		}
		if m.index == nil {
			m.index = make(map[any]int)
		}
		if _, dup := m.index[k]; !dup {
			m.index[k] = i
		}
	}
}

// Get returns the value stored for key.
func (m *Map) Get(key Value) (Value, bool) {
	if m == nil {
		return nil, false
	}
	i := m.find(orNull(key))
	if i < 0 {
		return nil, false
	}
	return m.entries[i].Value, true
}

// GetString is Get with a String key.
func (m *Map) GetString(key string) (Value, bool) {
	return m.Get(String(key))
}

// Delete removes key, preserving the order of the remaining entries.
func (m *Map) Delete(key Value) bool {
	if m == nil {
		return false
	}
	i := m.find(orNull(key))
	if i < 0 {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	m.reindex()
	return true
}

// Entries returns the entries in insertion order. The slice must not be
// modified.
func (m *Map) Entries() []MapEntry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Each calls fn for every entry in insertion order until fn returns false.
func (m *Map) Each(fn func(key, value Value) bool) {
	if m == nil {
		return
	}
	for _, e := range m.entries {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}
