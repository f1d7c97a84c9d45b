// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package remap

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"remap.256lights.llc/pkg/internal/keyfinder"
)

//go:generate go tool stringer -type=Order -linecomment -output=order_string.go

// Order is a policy that determines which key wins
// when occurrences of two keys overlap.
// Keys earlier in the order claim their occurrences first.
// The zero value is [DictionaryOrder].
type Order int8

// Ordering policies.
const (
	// DictionaryOrder keeps keys in the order they were added to the mapping.
	DictionaryOrder Order = iota // dictionary
	// LongestFirstOrder sorts keys in descending order of length.
	// Keys of equal length keep their relative mapping order.
	LongestFirstOrder // longest-first
	// EarliestOccurrenceOrder sorts keys in ascending order
	// of their first occurrence in the text,
	// breaking ties with the longer key first.
	// Keys that do not occur sort last in mapping order.
	EarliestOccurrenceOrder // earliest-occurrence
)

var orderNames = []Order{
	DictionaryOrder,
	LongestFirstOrder,
	EarliestOccurrenceOrder,
}

// ParseOrder parses the name of an ordering policy
// as returned by [Order.String].
// Underscores are accepted in place of hyphens.
func ParseOrder(s string) (Order, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, o := range orderNames {
		if norm == o.String() {
			return o, nil
		}
	}
	return 0, fmt.Errorf("parse order %q: unknown ordering (must be one of %s)", s, orderList())
}

func orderList() string {
	sb := new(strings.Builder)
	for i, o := range orderNames {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(o.String())
	}
	return sb.String()
}

// IsValid reports whether o is one of the known ordering policies.
func (o Order) IsValid() bool {
	return DictionaryOrder <= o && o <= EarliestOccurrenceOrder
}

// MarshalText returns the name of the ordering policy.
func (o Order) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("marshal order: invalid value %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText parses the name of an ordering policy.
func (o *Order) UnmarshalText(text []byte) error {
	var err error
	*o, err = ParseOrder(string(text))
	return err
}

// Keys returns a new slice with the keys
// in the order they should claim occurrences in text.
// Keys must not contain duplicates.
// Keys never filters its input: the result is a permutation of keys.
func (o Order) Keys(keys []string, text string) []string {
	var firstIndex map[string]int
	if o == EarliestOccurrenceOrder {
		firstIndex = keyfinder.FirstIndexes(slices.Values(keys), text)
	}
	return o.sortKeys(keys, text, firstIndex)
}

// sortKeys implements [Order.Keys]
// given the offset of the first occurrence of each key present in text.
// firstIndex is only consulted for [EarliestOccurrenceOrder].
func (o Order) sortKeys(keys []string, text string, firstIndex map[string]int) []string {
	keys = slices.Clone(keys)
	switch o {
	case LongestFirstOrder:
		slices.SortStableFunc(keys, func(a, b string) int {
			return keyLength(b) - keyLength(a)
		})
	case EarliestOccurrenceOrder:
		sortIndex := make(map[string]int, len(keys))
		for i, k := range keys {
			idx, ok := firstIndex[k]
			if !ok {
				// Past any real occurrence and distinct per key.
				idx = len(text) + i
			}
			sortIndex[k] = idx
		}
		slices.SortStableFunc(keys, func(a, b string) int {
			if c := sortIndex[a] - sortIndex[b]; c != 0 {
				return c
			}
			return keyLength(b) - keyLength(a)
		})
	}
	return keys
}

// keyLength returns the length of the key in characters.
func keyLength(k string) int {
	return utf8.RuneCountInString(k)
}
