// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package uuid8

import (
	"testing"

	"github.com/google/uuid"
)

func TestFromBytes(t *testing.T) {
	tests := []struct {
		b    []byte
		want string
	}{
		{nil, "00000000-0000-8000-8000-000000000000"},
		{[]byte{0xff}, "ff000000-0000-8000-8000-000000000000"},
		{
			[]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef},
			"01234567-89ab-8cde-bc00-000000000000",
		},
	}
	for _, test := range tests {
		got := FromBytes(test.b)
		if got.String() != test.want {
			t.Errorf("FromBytes(%#v) = %v; want %s", test.b, got, test.want)
		}
	}
}

func TestSum(t *testing.T) {
	a1 := Sum([]byte("hello"))
	a2 := Sum([]byte("hello"))
	b := Sum([]byte("world"))
	if a1 != a2 {
		t.Errorf("Sum(\"hello\") = %v, then %v; want equal", a1, a2)
	}
	if a1 == b {
		t.Errorf("Sum(\"hello\") = Sum(\"world\") = %v", a1)
	}
	if got := a1.Version(); got != 8 {
		t.Errorf("Sum(\"hello\").Version() = %d; want 8", got)
	}
	if got := a1.Variant(); got != uuid.RFC4122 {
		t.Errorf("Sum(\"hello\").Variant() = %v; want %v", got, uuid.RFC4122)
	}
}
