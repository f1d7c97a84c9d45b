// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"iter"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"zombiezen.com/go/bass/sigterm"
	"zombiezen.com/go/log"
)

func main() {
	rootCommand := &cobra.Command{
		Use:           "remap",
		Short:         "replace many strings at once without rewriting replacements",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	g := defaultGlobalConfig()
	configPath := rootCommand.PersistentFlags().String("config", "", "read configuration from `path` instead of the default locations")
	dbPath := rootCommand.PersistentFlags().String("db", "", "`path` to mapping database")
	showDebug := rootCommand.PersistentFlags().Bool("debug", false, "show debugging output")
	rootCommand.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		paths := systemConfigFiles()
		if *configPath != "" {
			if _, err := os.Stat(*configPath); err != nil {
				initLogging(*showDebug)
				return err
			}
			paths = func(yield func(string) bool) { yield(*configPath) }
		}
		if err := g.mergeFiles(paths); err != nil {
			initLogging(*showDebug)
			return err
		}
		if err := g.mergeEnvironment(); err != nil {
			initLogging(*showDebug)
			return err
		}
		if cmd.Flags().Changed("debug") {
			g.Debug = *showDebug
		}
		if *dbPath != "" {
			g.DB = *dbPath
		}
		initLogging(g.Debug)
		return g.validate()
	}

	rootCommand.AddCommand(
		newReplaceCommand(g),
		newJoinCommand(g),
		newMappingCommand(g),
		newServeCommand(g),
		newVersionCommand(g),
	)

	ignoreSIGPIPE()
	ctx, cancel := signal.NotifyContext(context.Background(), sigterm.Signals()...)
	err := rootCommand.ExecuteContext(ctx)
	cancel()
	if err != nil {
		initLogging(*showDebug)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

// systemConfigFiles returns the paths of the configuration files to read
// in increasing order of preference.
func systemConfigFiles() iter.Seq[string] {
	return func(yield func(string) bool) {
		for dir := range systemConfigDirs() {
			if !yield(filepath.Join(dir, "remap", "config.jwcc")) {
				return
			}
		}
	}
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "remap: ", log.StdFlags, nil),
		})
	})
}
