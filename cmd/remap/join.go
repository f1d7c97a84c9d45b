// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"remap.256lights.llc/pkg"
)

type joinOptions struct {
	separator string
	items     []string
}

func newJoinCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "join [options] [ITEM [...]]",
		Short:                 "concatenate items with a separator",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ArbitraryArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(joinOptions)
	c.Flags().StringVarP(&opts.separator, "separator", "s", "", "`string` to place between items")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.items = args
		return runJoin(cmd.OutOrStdout(), opts)
	}
	return c
}

func runJoin(w io.Writer, opts *joinOptions) error {
	_, err := fmt.Fprintln(w, remap.JoinSeq(slices.Values(opts.items), opts.separator))
	return err
}
