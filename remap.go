// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

// Package remap replaces many substrings of a text at once.
//
// A [Mapping] associates literal keys with replacement strings.
// Occurrences of different keys may overlap (for example "ab" and "b" in "cab"),
// so an [Order] decides which keys claim their occurrences first.
// Once an index of the text has been claimed,
// later keys cannot replace any occurrence covering it.
// Replacements are computed against the original text only:
// replacement strings are never searched for keys.
package remap

import (
	"slices"
	"strings"

	"remap.256lights.llc/pkg/internal/intervalset"
	"remap.256lights.llc/pkg/internal/keyfinder"
)

// Match is an occurrence of a mapping key in a text
// chosen for replacement.
type Match struct {
	// Start is the byte offset of the first byte of the occurrence.
	Start int `json:"start"`
	// End is the byte offset just past the last byte of the occurrence.
	End         int    `json:"end"`
	Key         string `json:"key"`
	Replacement string `json:"replacement"`
}

// Replacer applies a mapping to texts.
// It is safe to call methods on a Replacer from multiple goroutines concurrently.
type Replacer struct {
	keys   []string
	values map[string]string
	order  Order
}

// NewReplacer returns a [Replacer] for a snapshot of m
// that resolves overlapping occurrences using the given order.
// Empty keys never match.
// Later modifications to m do not affect the returned Replacer.
func NewReplacer(m *Mapping, order Order) *Replacer {
	r := &Replacer{
		order:  order,
		values: make(map[string]string, m.Len()),
	}
	for k, v := range m.All() {
		if k == "" {
			continue
		}
		r.keys = append(r.keys, k)
		r.values[k] = v
	}
	return r
}

// Order returns the ordering policy used by the replacer.
func (r *Replacer) Order() Order {
	return r.order
}

// Replace returns a copy of text with all the replacements performed.
func (r *Replacer) Replace(text string) string {
	if len(r.keys) == 0 || text == "" {
		return text
	}
	accepted := r.accept(text)
	if accepted.Len() == 0 {
		return text
	}

	n := len(text)
	for iv, m := range accepted.All() {
		n += len(m.Replacement) - iv.Len()
	}
	sb := new(strings.Builder)
	sb.Grow(n)
	prev := 0
	for iv, m := range accepted.All() {
		sb.WriteString(text[prev:iv.Start])
		sb.WriteString(m.Replacement)
		prev = iv.End
	}
	sb.WriteString(text[prev:])
	return sb.String()
}

// Matches returns the occurrences in text that [Replacer.Replace] would replace
// in ascending order of position.
// No two matches overlap.
func (r *Replacer) Matches(text string) []Match {
	accepted := r.accept(text)
	if accepted.Len() == 0 {
		return nil
	}
	matches := make([]Match, 0, accepted.Len())
	for _, m := range accepted.All() {
		matches = append(matches, *m)
	}
	return matches
}

// accept finds the occurrences of each key in priority order
// and claims those that do not intersect a previously claimed occurrence.
func (r *Replacer) accept(text string) *intervalset.Set[*Match] {
	accepted := new(intervalset.Set[*Match])
	if text == "" {
		return accepted
	}
	firstIndex := keyfinder.FirstIndexes(slices.Values(r.keys), text)
	if len(firstIndex) == 0 {
		return accepted
	}
	for _, k := range r.order.sortKeys(r.keys, text, firstIndex) {
		start, found := firstIndex[k]
		if !found {
			continue
		}
		replacement := r.values[k]
		// Occurrences are found left to right without overlapping each other,
		// resuming after each occurrence whether or not it was claimed.
		for offset := start; offset <= len(text)-len(k); {
			i := strings.Index(text[offset:], k)
			if i < 0 {
				break
			}
			iv := intervalset.Interval{
				Start: offset + i,
				End:   offset + i + len(k),
			}
			accepted.Add(iv, &Match{
				Start:       iv.Start,
				End:         iv.End,
				Key:         k,
				Replacement: replacement,
			})
			offset = iv.End
		}
	}
	return accepted
}

// Replace returns a copy of text with the mapping's keys replaced.
// Where occurrences of keys overlap, order determines which key is replaced.
// Replace is equivalent to NewReplacer(m, order).Replace(text).
func Replace(text string, m *Mapping, order Order) string {
	return NewReplacer(m, order).Replace(text)
}

// ReplaceDictionaryOrder replaces the mapping's keys in text
// giving precedence to keys added to the mapping earlier.
func ReplaceDictionaryOrder(text string, m *Mapping) string {
	return Replace(text, m, DictionaryOrder)
}

// ReplaceLongestFirst replaces the mapping's keys in text
// giving precedence to longer keys.
func ReplaceLongestFirst(text string, m *Mapping) string {
	return Replace(text, m, LongestFirstOrder)
}

// ReplaceEarliestOccurrence replaces the mapping's keys in text
// giving precedence to keys that first occur earlier in text.
func ReplaceEarliestOccurrence(text string, m *Mapping) string {
	return Replace(text, m, EarliestOccurrenceOrder)
}
