// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

//go:build unix

package main

import (
	"iter"
	"os/signal"
	"path/filepath"

	"go4.org/xdgdir"
	"golang.org/x/sys/unix"
)

func dataDir() string {
	return xdgdir.Data.Path()
}

// systemConfigDirs returns a sequence of configuration directory paths
// in increasing order of preference (i.e. later entries should override earlier entries).
func systemConfigDirs() iter.Seq[string] {
	return func(yield func(string) bool) {
		dirs := xdgdir.Config.SearchPaths()
		for i := len(dirs) - 1; i >= 0; i-- {
			if !filepath.IsAbs(dirs[i]) {
				continue
			}
			if !yield(dirs[i]) {
				return
			}
		}
	}
}

// ignoreSIGPIPE turns writes to a closed pipe into EPIPE errors
// so that output truncated by a pager is reported instead of killing the process.
func ignoreSIGPIPE() {
	signal.Ignore(unix.SIGPIPE)
}
