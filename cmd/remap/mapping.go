// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"
	"remap.256lights.llc/pkg"
	"remap.256lights.llc/pkg/internal/mappingstore"
	"zombiezen.com/go/log"
)

func newMappingCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "mapping COMMAND",
		Short:                 "manage stored mappings",
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.AddCommand(
		newMappingSaveCommand(g),
		newMappingShowCommand(g),
		newMappingListCommand(g),
		newMappingDeleteCommand(g),
	)
	return c
}

type mappingSaveOptions struct {
	name     string
	file     string
	order    remap.Order
	orderSet bool
}

func newMappingSaveCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "save [options] NAME FILE",
		Short:                 "store a mapping read from a JSON file",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(2),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(mappingSaveOptions)
	c.Flags().Var((*orderFlag)(&opts.order), "order", "key priority `order` to store with the mapping")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.name = args[0]
		opts.file = args[1]
		opts.orderSet = cmd.Flags().Changed("order")
		return runMappingSave(cmd.Context(), g, cmd.OutOrStdout(), opts)
	}
	return c
}

func runMappingSave(ctx context.Context, g *globalConfig, w io.Writer, opts *mappingSaveOptions) error {
	if err := mappingstore.ValidateName(opts.name); err != nil {
		return err
	}
	m, err := readMappingFile(opts.file)
	if err != nil {
		return err
	}
	order := g.DefaultOrder
	if opts.orderSet {
		order = opts.order
	}

	store, err := g.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()
	entry, err := store.Put(ctx, opts.name, m, order)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s %v\n", entry.Name, entry.Revision)
	return err
}

func newMappingShowCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "show NAME",
		Short:                 "print a stored mapping as JSON",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runMappingShow(cmd.Context(), g, cmd.OutOrStdout(), args[0])
	}
	return c
}

// storedMapping is the JSON form of a [mappingstore.Entry].
type storedMapping struct {
	Name     string         `json:"name"`
	Order    remap.Order    `json:"order"`
	Revision string         `json:"revision"`
	Updated  time.Time      `json:"updated"`
	Mapping  *remap.Mapping `json:"mapping"`
}

func newStoredMapping(entry *mappingstore.Entry) *storedMapping {
	return &storedMapping{
		Name:     entry.Name,
		Order:    entry.Order,
		Revision: entry.Revision.String(),
		Updated:  entry.Updated,
		Mapping:  entry.Mapping,
	}
}

func runMappingShow(ctx context.Context, g *globalConfig, w io.Writer, name string) error {
	store, err := g.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()
	entry, err := store.Get(ctx, name)
	if err != nil {
		return err
	}
	return jsonv2.MarshalEncode(jsontext.NewEncoder(w, jsontext.Multiline(true)), newStoredMapping(entry))
}

func newMappingListCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "list",
		Short:                 "list stored mappings",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runMappingList(cmd.Context(), g, cmd.OutOrStdout())
	}
	return c
}

func runMappingList(ctx context.Context, g *globalConfig, w io.Writer) error {
	store, err := g.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()
	summaries, err := store.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKEYS\tORDER\tUPDATED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%v\t%s\n", s.Name, s.Len, s.Order, s.Updated.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func newMappingDeleteCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "delete NAME [...]",
		Short:                 "remove stored mappings",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MinimumNArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runMappingDelete(cmd.Context(), g, args)
	}
	return c
}

func runMappingDelete(ctx context.Context, g *globalConfig, names []string) error {
	store, err := g.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()
	for _, name := range names {
		if err := store.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
		log.Debugf(ctx, "Deleted mapping %s", name)
	}
	return nil
}
