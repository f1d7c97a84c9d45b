// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package remap

import (
	"encoding"
	"fmt"
	"iter"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
)

// Mapping is an ordered table of keys to replacement strings.
// Keys keep the position of their first insertion
// and the value of their last insertion.
// The zero value is an empty mapping.
// A nil *Mapping is treated like an empty mapping,
// but any attempts to add to it will panic.
type Mapping struct {
	keys   []string
	values map[string]string
}

// NewMapping returns a mapping built from alternating key/value arguments,
// like [strings.NewReplacer].
// NewMapping panics if given an odd number of arguments.
func NewMapping(oldnew ...string) *Mapping {
	if len(oldnew)%2 == 1 {
		panic("remap.NewMapping: odd argument count")
	}
	m := new(Mapping)
	for i := 0; i < len(oldnew); i += 2 {
		m.SetString(oldnew[i], oldnew[i+1])
	}
	return m
}

// Collect returns a new mapping with the key/value pairs from seq
// converted with [Stringify].
func Collect[K, V any](seq iter.Seq2[K, V]) *Mapping {
	m := new(Mapping)
	for k, v := range seq {
		m.Set(k, v)
	}
	return m
}

// Set adds a mapping from key to value
// after converting both with [Stringify].
func (m *Mapping) Set(key, value any) {
	m.SetString(Stringify(key), Stringify(value))
}

// SetString adds a mapping from key to value.
// If the key is already present, its value is replaced
// but it retains its position.
func (m *Mapping) SetString(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the replacement string for the key.
func (m *Mapping) Get(key string) (value string, ok bool) {
	if m == nil {
		return "", false
	}
	value, ok = m.values[key]
	return value, ok
}

// Delete removes the key from the mapping if present.
func (m *Mapping) Delete(key string) {
	if m == nil {
		return
	}
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Len returns the number of distinct keys in the mapping.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns an iterator over the mapping's keys in insertion order.
func (m *Mapping) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k) {
				return
			}
		}
	}
}

// All returns an iterator over the mapping's entries in insertion order.
func (m *Mapping) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Clone returns a copy of m.
func (m *Mapping) Clone() *Mapping {
	m2 := new(Mapping)
	if m.Len() == 0 {
		return m2
	}
	m2.keys = slices.Clone(m.keys)
	m2.values = maps.Clone(m.values)
	return m2
}

// Merge adds the entries of other to m in other's order.
func (m *Mapping) Merge(other *Mapping) {
	for k, v := range other.All() {
		m.SetString(k, v)
	}
}

// Stringify returns the canonical string form of a mapping key or value.
// Strings are returned as-is. Booleans are "true" or "false".
// Integers are formatted in base 10.
// Floating-point numbers use the shortest representation
// that round-trips, using exponent form only for very large or very small magnitudes.
// Values implementing [fmt.Stringer] or [encoding.TextMarshaler] use those methods.
// nil is the empty string.
// Other values are formatted with [fmt.Sprint].
func Stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ""
	}
	switch v := v.(type) {
	case fmt.Stringer:
		return v.String()
	case encoding.TextMarshaler:
		if text, err := v.MarshalText(); err == nil {
			return string(text)
		}
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64, bitSize int) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, bitSize)
	}
	if mag := math.Abs(f); mag != 0 && (mag < 1e-6 || mag >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, bitSize)
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}
