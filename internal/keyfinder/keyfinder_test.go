// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package keyfinder

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var firstIndexGoldens = []struct {
	s    string
	keys []string
	want map[string]int
}{
	{"", nil, map[string]int{}},
	{"", []string{""}, map[string]int{"": 0}},
	{"foo", []string{""}, map[string]int{"": 0}},
	{"foo", []string{"f"}, map[string]int{"f": 0}},
	{"foo", []string{"o"}, map[string]int{"o": 1}},

	{"foo", []string{"foo"}, map[string]int{"foo": 0}},
	{"xfoo", []string{"foo"}, map[string]int{"foo": 1}},
	{"fooy", []string{"foo"}, map[string]int{"foo": 0}},
	{"xfooy", []string{"foo"}, map[string]int{"foo": 1}},
	{"bar", []string{"foo"}, map[string]int{}},

	{"foo", []string{"f", "foo"}, map[string]int{"f": 0, "foo": 0}},
	{"foo", []string{"o", "foo"}, map[string]int{"o": 1, "foo": 0}},
	{"aaab", []string{"aab", "ab"}, map[string]int{"aab": 1, "ab": 2}},

	{"foo", []string{"foo", "bar"}, map[string]int{"foo": 0}},
	{"bar", []string{"foo", "bar"}, map[string]int{"bar": 0}},
	{"barfoo bar", []string{"foo", "bar"}, map[string]int{"foo": 3, "bar": 0}},
	{"héllo", []string{"llo", "é"}, map[string]int{"llo": 3, "é": 1}},
}

func TestFirstIndexes(t *testing.T) {
	for _, test := range firstIndexGoldens {
		got := FirstIndexes(slices.Values(test.keys), test.s)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("FirstIndexes(%q, %q) (-want +got):\n%s", test.keys, test.s, diff)
		}
	}
}

func TestFinderSplitWrites(t *testing.T) {
	f := newFinder(slices.Values([]string{"needle", "haystack", "absent"}))
	for _, chunk := range []string{"hay", "stack with a nee", "dle"} {
		f.writeString(chunk)
	}
	want := map[string]int{"haystack": 0, "needle": 16}
	if diff := cmp.Diff(want, f.first); diff != "" {
		t.Errorf("first indexes (-want +got):\n%s", diff)
	}
}

func FuzzFirstIndexes(f *testing.F) {
	const sep = "\x1f"
	for _, test := range firstIndexGoldens {
		f.Add(test.s, strings.Join(test.keys, sep))
	}

	f.Fuzz(func(t *testing.T, s string, keysJoined string) {
		keys := strings.Split(keysJoined, sep)
		want := firstIndexOracle(s, keys)

		got := FirstIndexes(slices.Values(keys), s)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("FirstIndexes(%q, %q) (-want +got):\n%s", keys, s, diff)
		}

		// Writing one byte at a time must find the same occurrences.
		kf := newFinder(slices.Values(keys))
		for i := range len(s) {
			kf.writeString(s[i : i+1])
		}
		if diff := cmp.Diff(want, kf.first); diff != "" {
			t.Errorf("byte-at-a-time writes of %q for %q (-want +got):\n%s", s, keys, diff)
		}
	})
}

func firstIndexOracle(s string, keys []string) map[string]int {
	result := make(map[string]int)
	for _, k := range keys {
		if i := strings.Index(s, k); i >= 0 {
			result[k] = i
		}
	}
	return result
}
