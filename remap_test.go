// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package remap

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var allOrders = []Order{
	DictionaryOrder,
	LongestFirstOrder,
	EarliestOccurrenceOrder,
}

func TestReplace(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		mapping *Mapping
		order   Order
		want    string
	}{
		{
			name:    "Dictionary",
			text:    "A-B-A",
			mapping: NewMapping("A", "X", "B", "Y"),
			order:   DictionaryOrder,
			want:    "X-Y-X",
		},
		{
			name:    "LongestFirst",
			text:    "ab",
			mapping: NewMapping("a", "1", "ab", "2"),
			order:   LongestFirstOrder,
			want:    "2",
		},
		{
			name:    "DictionaryShorterKeyFirst",
			text:    "ab",
			mapping: NewMapping("a", "1", "ab", "2"),
			order:   DictionaryOrder,
			want:    "1b",
		},
		{
			name:    "EarliestOccurrence",
			text:    "xaybz",
			mapping: NewMapping("b", "2", "a", "1"),
			order:   EarliestOccurrenceOrder,
			want:    "x1y2z",
		},
		{
			name:    "EarliestOccurrenceTieLongerFirst",
			text:    "abc",
			mapping: NewMapping("a", "1", "ab", "2"),
			order:   EarliestOccurrenceOrder,
			want:    "2c",
		},
		{
			name:    "EarliestOccurrenceClaimsOverlap",
			text:    "xbca",
			mapping: NewMapping("ca", "1", "bc", "2"),
			order:   EarliestOccurrenceOrder,
			want:    "x2a",
		},
		{
			// "😀b" is longer in bytes and ties in UTF-16 units,
			// but "bcd" has more characters.
			name:    "LongestFirstCountsCharacters",
			text:    "😀bcd",
			mapping: NewMapping("😀b", "Y", "bcd", "X"),
			order:   LongestFirstOrder,
			want:    "😀X",
		},
		{
			name:    "SelfOverlap",
			text:    "aaa",
			mapping: NewMapping("aa", "Z"),
			order:   DictionaryOrder,
			want:    "Za",
		},
		{
			name:    "RepeatedKey",
			text:    "aaaa",
			mapping: NewMapping("aa", "Z"),
			order:   DictionaryOrder,
			want:    "ZZ",
		},
		{
			name:    "ScanResumesAfterRejectedOccurrence",
			text:    "xaaa",
			mapping: NewMapping("xa", "1", "aa", "2"),
			order:   DictionaryOrder,
			want:    "1aa",
		},
		{
			name:    "EnclosingKeyRejected",
			text:    "abc",
			mapping: NewMapping("b", "X", "abc", "Y"),
			order:   DictionaryOrder,
			want:    "aXc",
		},
		{
			name:    "NoRescan",
			text:    "ab",
			mapping: NewMapping("a", "b", "b", "c"),
			order:   DictionaryOrder,
			want:    "bc",
		},
		{
			name:    "Metacharacters",
			text:    "1+1=2 (a.*b)",
			mapping: NewMapping("1+1", "two", ".*", "ANY", "(", "[", ")", "]"),
			order:   DictionaryOrder,
			want:    "two=2 [aANYb]",
		},
		{
			name:    "GrowAndShrink",
			text:    "the cat sat on the mat",
			mapping: NewMapping("the", "a", "cat", "tiger", "on", ""),
			order:   LongestFirstOrder,
			want:    "a tiger sat  a mat",
		},
		{
			name:    "Unicode",
			text:    "héllo wörld",
			mapping: NewMapping("é", "e", "ö", "o"),
			order:   DictionaryOrder,
			want:    "hello world",
		},
		{
			name:    "AbsentKey",
			text:    "hello",
			mapping: NewMapping("xyz", "abc"),
			order:   EarliestOccurrenceOrder,
			want:    "hello",
		},
		{
			name:    "EmptyKey",
			text:    "hello",
			mapping: NewMapping("", "X", "l", "L"),
			order:   DictionaryOrder,
			want:    "heLLo",
		},
		{
			name:    "EmptyText",
			text:    "",
			mapping: NewMapping("a", "b"),
			order:   DictionaryOrder,
			want:    "",
		},
		{
			name:    "NilMapping",
			text:    "hello",
			mapping: nil,
			order:   LongestFirstOrder,
			want:    "hello",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Replace(test.text, test.mapping, test.order); got != test.want {
				t.Errorf("Replace(%q, %v, %v) = %q; want %q",
					test.text, test.mapping, test.order, got, test.want)
			}
		})
	}
}

func TestReplaceWrappers(t *testing.T) {
	m := NewMapping("a", "1", "ab", "2", "b", "3")
	const text = "cab"
	tests := []struct {
		name string
		f    func(string, *Mapping) string
		want string
	}{
		{"ReplaceDictionaryOrder", ReplaceDictionaryOrder, "c13"},
		{"ReplaceLongestFirst", ReplaceLongestFirst, "c2"},
		{"ReplaceEarliestOccurrence", ReplaceEarliestOccurrence, "c2"},
	}
	for _, test := range tests {
		if got := test.f(text, m); got != test.want {
			t.Errorf("%s(%q, %v) = %q; want %q", test.name, text, m, got, test.want)
		}
	}
}

func TestMappingStringify(t *testing.T) {
	m := new(Mapping)
	m.Set(1, true)
	m.Set(2.5, false)
	m.Set("x", nil)
	const text = "1 + 2.5 = x"
	const want = "true + false = "
	if got := ReplaceDictionaryOrder(text, m); got != want {
		t.Errorf("ReplaceDictionaryOrder(%q, %v) = %q; want %q", text, m, got, want)
	}
}

func TestMappingDuplicateKeys(t *testing.T) {
	m := NewMapping("a", "1", "b", "2", "a", "3")
	got := make(map[string]string)
	var keys []string
	for k, v := range m.All() {
		keys = append(keys, k)
		got[k] = v
	}
	if diff := cmp.Diff([]string{"a", "b"}, keys); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"a": "3", "b": "2"}, got); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}

	// "a" keeps its first position, so it still wins in dictionary order.
	if got, want := ReplaceDictionaryOrder("ab", NewMapping("a", "1", "ab", "2", "a", "3")), "3b"; got != want {
		t.Errorf("ReplaceDictionaryOrder(...) = %q; want %q", got, want)
	}
}

func TestReplacerMatches(t *testing.T) {
	r := NewReplacer(NewMapping("ab", "X", "b", "Y", "c", "Z"), DictionaryOrder)
	got := r.Matches("abcb")
	want := []Match{
		{Start: 0, End: 2, Key: "ab", Replacement: "X"},
		{Start: 2, End: 3, Key: "c", Replacement: "Z"},
		{Start: 3, End: 4, Key: "b", Replacement: "Y"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Matches(\"abcb\") (-want +got):\n%s", diff)
	}
	if got := r.Matches("xyz"); len(got) != 0 {
		t.Errorf("Matches(\"xyz\") = %v; want []", got)
	}
}

func TestReplacerSnapshot(t *testing.T) {
	m := NewMapping("a", "1")
	r := NewReplacer(m, DictionaryOrder)
	m.SetString("a", "2")
	m.SetString("b", "3")
	if got, want := r.Replace("ab"), "1b"; got != want {
		t.Errorf("r.Replace(\"ab\") = %q; want %q", got, want)
	}
}

func TestEmptyMappingIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 100 {
		text := randomText(rng, "abc ", 20)
		for _, order := range allOrders {
			if got := Replace(text, new(Mapping), order); got != text {
				t.Errorf("Replace(%q, {}, %v) = %q; want %q", text, order, got, text)
			}
			absent := NewMapping("x", "1", "yz", "2")
			if got := Replace(text, absent, order); got != text {
				t.Errorf("Replace(%q, %v, %v) = %q; want %q", text, absent, order, got, text)
			}
		}
	}
}

func TestReplaceProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 500 {
		text := randomText(rng, "abc", 30)
		m := new(Mapping)
		for range 1 + rng.IntN(4) {
			m.SetString(randomText(rng, "abc", 3), randomText(rng, "XYZ", 4))
		}
		for _, order := range allOrders {
			r := NewReplacer(m, order)
			matches := r.Matches(text)

			// Matches are sorted, do not overlap, and locate their keys.
			for i, match := range matches {
				if text[match.Start:match.End] != match.Key {
					t.Fatalf("Matches(%q) with %v, %v: match %d = %+v does not locate key", text, m, order, i, match)
				}
				if i > 0 && matches[i-1].End > match.Start {
					t.Fatalf("Matches(%q) with %v, %v: %+v overlaps %+v", text, m, order, matches[i-1], match)
				}
			}

			got := r.Replace(text)
			wantLen := len(text)
			for _, match := range matches {
				wantLen += len(match.Replacement) - (match.End - match.Start)
			}
			if len(got) != wantLen {
				t.Errorf("len(Replace(%q, %v, %v)) = %d; want %d", text, m, order, len(got), wantLen)
			}
			if want := applyDescending(text, matches); got != want {
				t.Errorf("Replace(%q, %v, %v) = %q; want %q", text, m, order, got, want)
			}
		}
	}
}

func TestReplaceTwice(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		mapping    *Mapping
		idempotent bool
	}{
		{
			name:       "DisjointReplacements",
			text:       "the cat sat on the mat",
			mapping:    NewMapping("cat", "DOG", "mat", "RUG"),
			idempotent: true,
		},
		{
			name:       "ReplacementContainsKey",
			text:       "a",
			mapping:    NewMapping("a", "aa"),
			idempotent: false,
		},
		{
			name:       "ReplacementCompletesKey",
			text:       "xb",
			mapping:    NewMapping("x", "a", "ab", "!"),
			idempotent: false,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for _, order := range allOrders {
				once := Replace(test.text, test.mapping, order)
				twice := Replace(once, test.mapping, order)
				if got := once == twice; got != test.idempotent {
					t.Errorf("%v: %q -> %q -> %q; idempotent = %t, want %t",
						order, test.text, once, twice, got, test.idempotent)
				}
			}
		})
	}
}

func TestOrderKeys(t *testing.T) {
	tests := []struct {
		order Order
		keys  []string
		text  string
		want  []string
	}{
		{
			order: DictionaryOrder,
			keys:  []string{"b", "aaa", "cc"},
			text:  "cc aaa b",
			want:  []string{"b", "aaa", "cc"},
		},
		{
			order: LongestFirstOrder,
			keys:  []string{"a", "bbb", "cc", "dd"},
			want:  []string{"bbb", "cc", "dd", "a"},
		},
		{
			order: LongestFirstOrder,
			keys:  []string{"ééé", "abcd"},
			want:  []string{"abcd", "ééé"},
		},
		{
			order: LongestFirstOrder,
			keys:  []string{"😀", "ab"},
			want:  []string{"ab", "😀"},
		},
		{
			order: EarliestOccurrenceOrder,
			keys:  []string{"zz", "a", "yy", "b"},
			text:  "ba",
			want:  []string{"b", "a", "zz", "yy"},
		},
		{
			order: EarliestOccurrenceOrder,
			keys:  []string{"a", "ab", "abc", "c"},
			text:  "abc",
			want:  []string{"abc", "ab", "a", "c"},
		},
	}
	for _, test := range tests {
		input := append([]string(nil), test.keys...)
		got := test.order.Keys(input, test.text)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%v.Keys(%q, %q) (-want +got):\n%s", test.order, test.keys, test.text, diff)
		}
		if diff := cmp.Diff(test.keys, input); diff != "" {
			t.Errorf("%v.Keys modified its input (-want +got):\n%s", test.order, diff)
		}
	}
}

func TestOrderKeysPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for range 200 {
		m := new(Mapping)
		for range rng.IntN(6) {
			m.SetString(randomText(rng, "ab", 4), "")
		}
		keys := make([]string, 0, m.Len())
		for k := range m.Keys() {
			keys = append(keys, k)
		}
		text := randomText(rng, "ab", 10)
		for _, order := range allOrders {
			got := order.Keys(keys, text)
			if diff := cmp.Diff(keys, got, cmpopts.SortSlices(func(a, b string) bool { return a < b }), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("%v.Keys(%q, %q) is not a permutation (-want +got):\n%s", order, keys, text, diff)
			}
		}
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		s       string
		want    Order
		wantErr bool
	}{
		{s: "dictionary", want: DictionaryOrder},
		{s: "longest-first", want: LongestFirstOrder},
		{s: "Longest_First", want: LongestFirstOrder},
		{s: " earliest-occurrence\n", want: EarliestOccurrenceOrder},
		{s: "", wantErr: true},
		{s: "alphabetical", wantErr: true},
	}
	for _, test := range tests {
		got, err := ParseOrder(test.s)
		if err != nil {
			if !test.wantErr {
				t.Errorf("ParseOrder(%q): %v", test.s, err)
			}
			continue
		}
		if test.wantErr {
			t.Errorf("ParseOrder(%q) = %v, <nil>; want error", test.s, got)
			continue
		}
		if got != test.want {
			t.Errorf("ParseOrder(%q) = %v; want %v", test.s, got, test.want)
		}
	}

	for _, order := range allOrders {
		text, err := order.MarshalText()
		if err != nil {
			t.Errorf("%v.MarshalText(): %v", order, err)
			continue
		}
		var got Order
		if err := got.UnmarshalText(text); err != nil {
			t.Errorf("UnmarshalText(%q): %v", text, err)
		} else if got != order {
			t.Errorf("UnmarshalText(%q) = %v; want %v", text, got, order)
		}
	}
	if _, err := Order(42).MarshalText(); err == nil {
		t.Error("Order(42).MarshalText() did not return an error")
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{[]byte("xyz"), "xyz"},
		{true, "true"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint8(255), "255"},
		{3.0, "3"},
		{0.1, "0.1"},
		{float32(0.1), "0.1"},
		{1e21, "1e+21"},
		{LongestFirstOrder, "longest-first"},
		{(*Mapping)(nil), ""},
	}
	for _, test := range tests {
		if got := Stringify(test.v); got != test.want {
			t.Errorf("Stringify(%#v) = %q; want %q", test.v, got, test.want)
		}
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		items []any
		sep   string
		want  string
	}{
		{nil, ",", ""},
		{[]any{"a"}, ",", "a"},
		{[]any{"a", 1, true, 2.5}, ", ", "a, 1, true, 2.5"},
		{[]any{"", ""}, "-", "-"},
	}
	for _, test := range tests {
		if got := Join(test.items, test.sep); got != test.want {
			t.Errorf("Join(%v, %q) = %q; want %q", test.items, test.sep, got, test.want)
		}
	}
}

func randomText(rng *rand.Rand, alphabet string, maxLen int) string {
	n := 1 + rng.IntN(maxLen)
	sb := new(strings.Builder)
	for range n {
		sb.WriteByte(alphabet[rng.IntN(len(alphabet))])
	}
	return sb.String()
}

// applyDescending substitutes matches in descending order of end offset,
// which leaves the offsets of earlier matches valid.
func applyDescending(text string, matches []Match) string {
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		text = text[:m.Start] + m.Replacement + text[m.End:]
	}
	return text
}
