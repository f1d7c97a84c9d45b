// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"github.com/tailscale/hujson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"remap.256lights.llc/pkg"
	"zombiezen.com/go/log"
	"zombiezen.com/go/xcontext"
)

type replaceOptions struct {
	mappingFile string
	set         *remap.Mapping
	name        string
	order       remap.Order
	orderSet    bool
	inPlace     bool
	diff        bool
	explain     bool
	jobs        int
	files       []string

	stdin  io.Reader
	stdout io.Writer
}

func newReplaceCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:   "replace [options] [FILE [...]]",
		Short: "replace keys with values in text",
		Long: "Replace every occurrence of the mapping's keys with their values.\n" +
			"Replacement text is never searched again,\n" +
			"and a region of the input is replaced by at most one key.\n" +
			"With no FILE, read standard input.",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ArbitraryArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := &replaceOptions{
		set: new(remap.Mapping),
	}
	c.Flags().StringVar(&opts.mappingFile, "mapping", "", "read mapping from JSON `file`")
	c.Flags().Var(keyValueFlag{opts.set}, "set", "add a `KEY=VALUE` replacement (can be passed multiple times)")
	c.Flags().StringVar(&opts.name, "name", "", "use the stored mapping called `name`")
	c.Flags().Var((*orderFlag)(&opts.order), "order", "key priority `order` (dictionary, longest-first, or earliest-occurrence)")
	c.Flags().BoolVarP(&opts.inPlace, "in-place", "i", false, "rewrite files instead of printing them")
	c.Flags().BoolVar(&opts.diff, "diff", false, "print the changes that would be made")
	c.Flags().BoolVar(&opts.explain, "explain", false, "print each replacement made as a line of JSON")
	c.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "`number` of files to process concurrently (defaults to configuration)")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.files = args
		opts.orderSet = cmd.Flags().Changed("order")
		opts.stdin = cmd.InOrStdin()
		opts.stdout = cmd.OutOrStdout()
		if opts.jobs <= 0 {
			opts.jobs = g.Jobs
		}
		return runReplace(cmd.Context(), g, opts)
	}
	return c
}

func runReplace(ctx context.Context, g *globalConfig, opts *replaceOptions) error {
	modes := 0
	for _, b := range []bool{opts.inPlace, opts.diff, opts.explain} {
		if b {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("can specify at most one of --in-place, --diff, or --explain")
	}
	if opts.inPlace && len(opts.files) == 0 {
		return fmt.Errorf("--in-place requires at least one file")
	}

	r, err := loadReplacer(ctx, g, opts)
	if err != nil {
		return err
	}
	color := isTerminal(opts.stdout)

	if len(opts.files) == 0 {
		if f, ok := opts.stdin.(*os.File); ok {
			// Unblock the read if interrupted.
			closer := xcontext.CloseWhenDone(ctx, f)
			defer closer.Close()
		}
		input, err := io.ReadAll(opts.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %v", err)
		}
		buf := new(bytes.Buffer)
		if err := opts.replaceText(buf, "-", r, string(input), color); err != nil {
			return err
		}
		_, err = opts.stdout.Write(buf.Bytes())
		return err
	}

	outputs := make([]bytes.Buffer, len(opts.files))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.jobs)
	for i, path := range opts.files {
		if grpCtx.Err() != nil {
			break
		}
		grp.Go(func() error {
			return opts.replaceFile(grpCtx, &outputs[i], path, r, color)
		})
	}
	err = grp.Wait()
	for i := range outputs {
		if _, werr := opts.stdout.Write(outputs[i].Bytes()); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// loadReplacer builds the replacer from the stored mapping,
// then the mapping file, then the --set flags,
// with later sources overriding earlier ones.
func loadReplacer(ctx context.Context, g *globalConfig, opts *replaceOptions) (*remap.Replacer, error) {
	m := new(remap.Mapping)
	order := g.DefaultOrder
	if opts.name != "" {
		store, err := g.openStore()
		if err != nil {
			return nil, err
		}
		entry, err := store.Get(ctx, opts.name)
		if closeErr := store.Close(); closeErr != nil {
			log.Warnf(ctx, "%v", closeErr)
		}
		if err != nil {
			return nil, err
		}
		log.Debugf(ctx, "Using mapping %s (revision %v)", entry.Name, entry.Revision)
		m.Merge(entry.Mapping)
		order = entry.Order
	}
	if opts.mappingFile != "" {
		fileMapping, err := readMappingFile(opts.mappingFile)
		if err != nil {
			return nil, err
		}
		m.Merge(fileMapping)
	}
	m.Merge(opts.set)
	if opts.orderSet {
		order = opts.order
	}
	if m.Len() == 0 {
		log.Warnf(ctx, "No replacements given; output will match input")
	}
	log.Debugf(ctx, "Replacing %d key(s) in %v order", m.Len(), order)
	return remap.NewReplacer(m, order), nil
}

// readMappingFile reads a mapping from a JSON file.
// Comments and trailing commas are permitted.
func readMappingFile(path string) (*remap.Mapping, error) {
	huJSONData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jsonData, err := hujson.Standardize(huJSONData)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v", path, err)
	}
	m := new(remap.Mapping)
	if err := jsonv2.Unmarshal(jsonData, m, jsontext.AllowDuplicateNames(true)); err != nil {
		return nil, fmt.Errorf("read %s: %v", path, err)
	}
	return m, nil
}

func (opts *replaceOptions) replaceFile(ctx context.Context, w io.Writer, path string, r *remap.Replacer, color bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	input, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !opts.inPlace {
		return opts.replaceText(w, path, r, string(input), color)
	}

	output := r.Replace(string(input))
	if output == string(input) {
		log.Debugf(ctx, "%s: no changes", path)
		return nil
	}
	if err := os.WriteFile(path, []byte(output), info.Mode().Perm()); err != nil {
		return err
	}
	log.Infof(ctx, "Rewrote %s", path)
	return nil
}

// replaceText writes the result of replacing text to w
// in the form requested by opts.
func (opts *replaceOptions) replaceText(w io.Writer, name string, r *remap.Replacer, text string, color bool) error {
	switch {
	case opts.explain:
		return writeExplanation(w, name, r.Matches(text))
	case opts.diff:
		return writeDiff(w, name, text, r.Replace(text), color)
	default:
		_, err := io.WriteString(w, r.Replace(text))
		return err
	}
}

// explainedMatch is a line of --explain output.
type explainedMatch struct {
	File        string `json:"file"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Key         string `json:"key"`
	Replacement string `json:"replacement"`
}

func writeExplanation(w io.Writer, name string, matches []remap.Match) error {
	enc := jsontext.NewEncoder(w)
	for _, m := range matches {
		err := jsonv2.MarshalEncode(enc, &explainedMatch{
			File:        name,
			Start:       m.Start,
			End:         m.End,
			Key:         m.Key,
			Replacement: m.Replacement,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// writeDiff writes the changes between oldText and newText.
// If color is true, the changes are shown inline with terminal colors.
// Otherwise, a patch in the diff-match-patch text format is written.
func writeDiff(w io.Writer, name, oldText, newText string, color bool) error {
	if oldText == newText {
		return nil
	}
	if _, err := fmt.Fprintf(w, "--- %s\n+++ %s\n", name, name); err != nil {
		return err
	}
	dmp := diffmatchpatch.New()
	var s string
	if color {
		diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldText, newText, false))
		s = dmp.DiffPrettyText(diffs)
		if len(s) > 0 && s[len(s)-1] != '\n' {
			s += "\n"
		}
	} else {
		s = dmp.PatchToText(dmp.PatchMake(oldText, newText))
	}
	_, err := io.WriteString(w, s)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
