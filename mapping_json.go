// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package remap

import (
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
)

// MarshalJSONTo writes the mapping as a JSON object
// with members in the mapping's order.
func (m *Mapping) MarshalJSONTo(out *jsontext.Encoder) error {
	if err := out.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	for k, v := range m.All() {
		if err := out.WriteToken(jsontext.String(k)); err != nil {
			return err
		}
		if err := out.WriteToken(jsontext.String(v)); err != nil {
			return err
		}
	}
	return out.WriteToken(jsontext.EndObject)
}

// UnmarshalJSONFrom replaces the contents of the mapping
// with the JSON value read from the decoder.
// The value may be an object of keys to replacements,
// a list of [key, replacement] pairs, or null for an empty mapping.
// Keys (in the pair form) and replacements may be strings, numbers, or booleans:
// numbers keep their literal spelling.
// Members are added in the order they appear,
// so a duplicated key keeps its first position and its last value.
// Duplicate object member names are only accepted
// if the decoder was created with [jsontext.AllowDuplicateNames].
func (m *Mapping) UnmarshalJSONFrom(in *jsontext.Decoder) error {
	tok, err := in.ReadToken()
	if err != nil {
		return err
	}
	*m = Mapping{}
	switch kind := tok.Kind(); kind {
	case 'n':
		return nil
	case '{':
		for {
			keyToken, err := in.ReadToken()
			if err != nil {
				return err
			}
			if keyToken.Kind() == '}' {
				return nil
			}
			key := keyToken.String()
			value, err := readScalar(in)
			if err != nil {
				return fmt.Errorf("unmarshal mapping: value for %q: %w", key, err)
			}
			m.SetString(key, value)
		}
	case '[':
		for i := 0; ; i++ {
			if in.PeekKind() == ']' {
				_, err := in.ReadToken()
				return err
			}
			if err := m.readPair(in); err != nil {
				return fmt.Errorf("unmarshal mapping: pair %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unmarshal mapping: must be an object or array, not %v", kind)
	}
}

func (m *Mapping) readPair(in *jsontext.Decoder) error {
	tok, err := in.ReadToken()
	if err != nil {
		return err
	}
	if got := tok.Kind(); got != '[' {
		return fmt.Errorf("must be a [key, value] array, not %v", got)
	}
	key, err := readScalar(in)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	value, err := readScalar(in)
	if err != nil {
		return fmt.Errorf("value for %q: %w", key, err)
	}
	tok, err = in.ReadToken()
	if err != nil {
		return err
	}
	if got := tok.Kind(); got != ']' {
		return fmt.Errorf("extra elements after value for %q", key)
	}
	m.SetString(key, value)
	return nil
}

// readScalar reads a JSON string, number, or boolean
// and returns its canonical string form.
func readScalar(in *jsontext.Decoder) (string, error) {
	switch kind := in.PeekKind(); kind {
	case '"', '0', 't', 'f':
		tok, err := in.ReadToken()
		if err != nil {
			return "", err
		}
		return tok.String(), nil
	case 0:
		// Let ReadToken report the syntax error or EOF.
		_, err := in.ReadToken()
		return "", err
	case ']', '}':
		return "", fmt.Errorf("missing element")
	default:
		if err := in.SkipValue(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%v is not a string, number, or boolean", kind)
	}
}
