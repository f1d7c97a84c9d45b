// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// remapVersion is the version string filled in by the linker (e.g. "1.2.3").
var remapVersion string

func newVersionCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "version",
		Short:                 "show version information",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runVersion(cmd.OutOrStdout(), g)
	}
	return c
}

func runVersion(w io.Writer, g *globalConfig) error {
	firstLine := "remap"
	switch {
	case remapVersion != "":
		firstLine += " version " + remapVersion
	default:
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			firstLine += " version " + info.Main.Version
		} else {
			firstLine += " (version unknown)"
		}
	}
	_, err := fmt.Fprintf(w, "%s\nGo:           %s\nSystem:       %s/%s\nCPUs:         %d\nDatabase:     %s\n",
		firstLine, runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), g.DB)
	return err
}
