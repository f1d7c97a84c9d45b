// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"remap.256lights.llc/pkg"
)

// orderFlag is the implementation of [github.com/spf13/pflag.Value]
// for a [remap.Order].
type orderFlag remap.Order

func (f *orderFlag) Type() string  { return "order" }
func (f orderFlag) String() string { return remap.Order(f).String() }
func (f orderFlag) Get() any       { return remap.Order(f) }

func (f *orderFlag) Set(s string) error {
	order, err := remap.ParseOrder(s)
	if err != nil {
		return err
	}
	*f = orderFlag(order)
	return nil
}

// keyValueFlag is the implementation of [github.com/spf13/pflag.Value]
// and [github.com/spf13/pflag.SliceValue]
// that adds KEY=VALUE arguments to a mapping in the order they are given.
// Keys may not contain '=', but values may.
type keyValueFlag struct {
	m *remap.Mapping
}

func (f keyValueFlag) Type() string { return "stringArray" }
func (f keyValueFlag) Get() any     { return f.m }

func (f keyValueFlag) String() string {
	sb := new(strings.Builder)
	sb.WriteString("[")
	first := true
	for k, v := range f.m.All() {
		if first {
			first = false
		} else {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(v)
	}
	sb.WriteString("]")
	return sb.String()
}

func (f keyValueFlag) GetSlice() []string {
	var result []string
	for k, v := range f.m.All() {
		result = append(result, k+"="+v)
	}
	return result
}

func (f keyValueFlag) Set(s string) error {
	return f.Append(s)
}

func (f keyValueFlag) Append(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("%q is not in the form KEY=VALUE", s)
	}
	if k == "" {
		return fmt.Errorf("%q has an empty key", s)
	}
	f.m.SetString(k, v)
	return nil
}

func (f keyValueFlag) Replace(val []string) error {
	*f.m = remap.Mapping{}
	for _, s := range val {
		if err := f.Append(s); err != nil {
			return err
		}
	}
	return nil
}
