// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

// Package uuid8 provides functions to generate version 8 UUIDs
// as specified in [RFC 9562].
//
// [RFC 9562]: https://datatracker.ietf.org/doc/html/rfc9562#section-5.8
package uuid8

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// FromBytes returns a Version 8 UUID constructed from the given bytes.
// If b contains more than 122 bits, then the bits are cyclically XORed together
// to form the final UUID.
// If b contains less than 122 bits, then the bits are zero-extended from the end
// to fill the UUID.
func FromBytes(b []byte) uuid.UUID {
	var result uuid.UUID
	result[6] = 0x80        // Version 8
	result[8] = 0b10_000000 // RFC 9562 variant

	bits := bitReader{buf: b}
	for i := 0; !bits.done(); i = (i + 1) % len(result) {
		switch i {
		case 6:
			result[i] ^= bits.read(4)
		case 8:
			result[i] ^= bits.read(6)
		default:
			result[i] ^= bits.read(8)
		}
	}
	return result
}

// Sum returns a Version 8 UUID built from the SHA-256 hash of data.
// Equal data always produces equal UUIDs.
func Sum(data []byte) uuid.UUID {
	h := sha256.Sum256(data)
	return FromBytes(h[:])
}

// bitReader reads big-endian bit fields from a byte slice.
type bitReader struct {
	buf []byte
	pos uint8 // bits already read from buf[0]
}

func (r *bitReader) done() bool {
	return len(r.buf) == 0
}

// read returns the next n bits (n <= 8) right-aligned in a byte.
// Missing bits past the end of the buffer are zero.
func (r *bitReader) read(n uint8) byte {
	if n > 8 {
		panic("too many bits in one call")
	}
	var b byte
	for range n {
		b <<= 1
		if len(r.buf) == 0 {
			continue
		}
		b |= (r.buf[0] >> (7 - r.pos)) & 1
		r.pos++
		if r.pos == 8 {
			r.pos = 0
			r.buf = r.buf[1:]
		}
	}
	return b
}
