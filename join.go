// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package remap

import (
	"iter"
	"slices"
	"strings"
)

// Join converts each item with [Stringify]
// and concatenates them with sep placed between elements.
func Join(items []any, sep string) string {
	return JoinSeq(slices.Values(items), sep)
}

// JoinSeq is like [Join] but takes an iterator.
func JoinSeq[T any](seq iter.Seq[T], sep string) string {
	sb := new(strings.Builder)
	first := true
	for x := range seq {
		if first {
			first = false
		} else {
			sb.WriteString(sep)
		}
		sb.WriteString(Stringify(x))
	}
	return sb.String()
}
