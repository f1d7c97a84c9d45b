// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

// Package intervalset provides a set of non-overlapping half-open intervals
// implemented as a sorted list.
package intervalset

import (
	"fmt"
	"iter"
	"slices"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the interval.
func (iv Interval) Len() int {
	return max(iv.End-iv.Start, 0)
}

// IsEmpty reports whether the interval covers no indices.
func (iv Interval) IsEmpty() bool {
	return iv.End <= iv.Start
}

// Intersects reports whether the two intervals share at least one index.
func (iv Interval) Intersects(other Interval) bool {
	return !iv.IsEmpty() && !other.IsEmpty() &&
		iv.Start < other.End && other.Start < iv.End
}

// String formats the interval as "[start,end)".
func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)", iv.Start, iv.End)
}

// Set is a sorted list of non-overlapping intervals,
// each associated with a value.
// The zero value is an empty set.
// nil is treated like an empty set, but any attempts to add to it will panic.
type Set[V any] struct {
	elems []entry[V]
}

type entry[V any] struct {
	iv    Interval
	value V
}

// Add adds iv to the set with the associated value
// and reports whether it was added.
// Add does not add empty intervals
// or intervals that intersect an interval already in the set.
func (s *Set[V]) Add(iv Interval, value V) bool {
	if iv.IsEmpty() {
		return false
	}
	i := s.search(iv.Start)
	if s.intersectsAt(i, iv) {
		return false
	}
	s.elems = slices.Insert(s.elems, i, entry[V]{iv, value})
	return true
}

// search returns the index of the first element that starts at or after start.
func (s *Set[V]) search(start int) int {
	i, _ := slices.BinarySearchFunc(s.elems, start, func(e entry[V], start int) int {
		return e.iv.Start - start
	})
	return i
}

// intersectsAt reports whether iv intersects one of the neighbors
// of its insertion point i.
// Elements do not overlap, so they are sorted by end as well as start:
// only s.elems[i-1] and s.elems[i] can intersect iv.
func (s *Set[V]) intersectsAt(i int, iv Interval) bool {
	if i > 0 && s.elems[i-1].iv.Intersects(iv) {
		return true
	}
	return i < len(s.elems) && s.elems[i].iv.Intersects(iv)
}

// Len returns the number of intervals in the set.
func (s *Set[V]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.elems)
}

// All returns an iterator over the intervals in ascending order.
func (s *Set[V]) All() iter.Seq2[Interval, V] {
	return func(yield func(Interval, V) bool) {
		if s == nil {
			return
		}
		for _, e := range s.elems {
			if !yield(e.iv, e.value) {
				return
			}
		}
	}
}
