package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "transmute",
		Short: "Project source code into visual blocks",
		Long: `transmute extracts a structural tree from source text and projects it
into Blockly block markup at one of three abstraction levels:

  1  architecture: functions and classes, bodies collapsed
  2  logic: adds if/for/while control flow
  3  raw: every line`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newProjectCmd(), newTreeCmd(), newCatalogCmd(), newWatchCmd())
	return root
}

// logger writes text logs to the command's error stream.
func logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
