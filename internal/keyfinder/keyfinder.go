// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

// Package keyfinder locates many search strings in a single pass over a text.
package keyfinder

import (
	"cmp"
	"iter"
	"slices"
)

// FirstIndexes returns a map of each key that occurs in text
// to the byte offset of its first occurrence.
// Keys that do not occur in text are not present in the map.
// The empty key occurs at offset 0.
func FirstIndexes(keys iter.Seq[string], text string) map[string]int {
	f := newFinder(keys)
	f.writeString(text)
	return f.first
}

// A finder records the byte offset of the first occurrence
// of each of a set of keys in a byte stream.
type finder struct {
	root    *node
	threads []*node
	pos     int
	first   map[string]int
}

func newFinder(keys iter.Seq[string]) *finder {
	f := &finder{
		root:  new(node),
		first: make(map[string]int),
	}
	for k := range keys {
		if k == "" {
			f.first[""] = 0
			continue
		}
		f.root.add(k)
	}
	return f
}

// writeString evaluates the next bytes of the stream.
// Occurrences may span multiple calls to writeString.
func (f *finder) writeString(s string) {
	for _, b := range []byte(s) { // Go compiler elides allocation.
		f.write(b)
	}
}

// write evaluates the next byte of the stream.
// A finder maintains a set of "threads",
// which are pointers into the trie of keys built by [newFinder].
// write advances each of these threads
// and starts a new one at the root for an occurrence beginning at b.
func (f *finder) write(b byte) {
	f.threads = append(f.threads, f.root)

	n := 0
	for _, curr := range f.threads {
		i, ok := curr.find(b)
		if !ok {
			continue
		}
		next := curr.children[i]
		if next.match != "" {
			if _, seen := f.first[next.match]; !seen {
				f.first[next.match] = f.pos + 1 - len(next.match)
			}
		}
		if len(next.children) > 0 {
			f.threads[n] = next
			n++
		}
	}
	clear(f.threads[n:])
	f.threads = f.threads[:n]
	f.pos++
}

type node struct {
	b        byte
	match    string
	children []*node
}

func (nd *node) find(b byte) (i int, ok bool) {
	return slices.BinarySearchFunc(nd.children, b, func(child *node, b byte) int {
		return cmp.Compare(child.b, b)
	})
}

func (nd *node) add(s string) {
	for _, b := range []byte(s) {
		if i, ok := nd.find(b); ok {
			nd = nd.children[i]
		} else {
			newNode := &node{b: b}
			nd.children = slices.Insert(nd.children, i, newNode)
			nd = newNode
		}
	}
	nd.match = s
}
