package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/workspace"
)

func newWatchCmd() *cobra.Command {
	opts := projectOptions{}
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-print block markup whenever a file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := codetree.ParseLevel(opts.level)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			ws, err := workspace.Open(filepath.Dir(abs), workspace.Config{})
			if err != nil {
				return err
			}
			log := logger(cmd)
			w, err := workspace.NewWatcher(ws, log)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchFile(ctx, cmd, w, ws, filepath.Base(abs), level, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.level, "level", "l", 3, "abstraction level (1 arch, 2 logic, 3 raw)")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "language hint, overriding the file extension")
	cmd.Flags().BoolVarP(&opts.preview, "preview", "p", false, "print the generated preview text instead of markup")
	return cmd
}

func watchFile(ctx context.Context, cmd *cobra.Command, w *workspace.Watcher, ws *workspace.Workspace, name string, level codetree.Level, opts projectOptions) error {
	out := cmd.OutOrStdout()
	render := func() error {
		data, err := ws.ReadFile(name)
		if err != nil {
			return err
		}
		return writeProjection(out, sourceTrees(name, data, opts.lang), level, opts.preview)
	}
	changes, err := w.Start(ctx)
	if err != nil {
		return err
	}
	if err := render(); err != nil {
		return err
	}
	log := logger(cmd)
	for c := range changes {
		if c.Path != name {
			continue
		}
		log.Debug("change", "path", c.Path, "op", c.Op)
		if c.Op == workspace.OpRemove || c.Op == workspace.OpRename {
			fmt.Fprintf(out, "-- %s %s\n", name, c.Op)
			continue
		}
		fmt.Fprintf(out, "-- %s changed\n", name)
		if err := render(); err != nil {
			log.Warn("render failed", "path", name, "error", err)
		}
	}
	return nil
}
