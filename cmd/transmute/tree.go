package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/workspace"
)

type treeOptions struct {
	demo      bool
	structure bool
	include   []string
	exclude   []string
}

func newTreeCmd() *cobra.Command {
	opts := treeOptions{}
	cmd := &cobra.Command{
		Use:   "tree [DIR]",
		Short: "List the source files of a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := workspace.Config{Include: opts.include, Exclude: opts.exclude}
			var ws *workspace.Workspace
			var err error
			switch {
			case opts.demo:
				ws, err = workspace.Demo(cfg)
			case len(args) == 1:
				ws, err = workspace.Open(args[0], cfg)
			default:
				ws, err = workspace.Open(".", cfg)
			}
			if err != nil {
				return err
			}

			root, err := ws.Tree(cmd.Context())
			if err != nil {
				return err
			}
			var cache *workspace.TreeCache
			if opts.structure {
				if cache, err = workspace.NewTreeCache(0); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, root.Name+"/")
			printFiles(out, ws, cache, root.Children, 1, logger(cmd).Warn)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "list the built-in demo project")
	cmd.Flags().BoolVarP(&opts.structure, "structure", "s", false, "show the extracted outline of each file")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "glob patterns of files to show")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "glob patterns to hide")
	return cmd
}

func printFiles(w io.Writer, ws *workspace.Workspace, cache *workspace.TreeCache, nodes []*workspace.FileNode, depth int, warn func(string, ...any)) {
	pad := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if n.Kind == workspace.KindDirectory {
			fmt.Fprintf(w, "%s%s/\n", pad, n.Name)
			printFiles(w, ws, cache, n.Children, depth+1, warn)
			continue
		}
		fmt.Fprintf(w, "%s%s\n", pad, n.Name)
		if cache == nil {
			continue
		}
		data, err := ws.ReadFile(n.Path)
		if err != nil {
			warn("skipping file", "path", n.Path, "error", err)
			continue
		}
		for _, t := range cache.Trees(n.Path, data) {
			printOutline(w, t.Root, pad+"  ")
		}
	}
}

// printOutline lists the container nodes of a tree with their source lines.
func printOutline(w io.Writer, root *codetree.Node, pad string) {
	codetree.Walk(root, func(n *codetree.Node, depth int) bool {
		if depth == 0 || !n.Kind.IsContainer() {
			return true
		}
		label := n.Label
		if label == "" {
			label = n.Content
		}
		fmt.Fprintf(w, "%s%s· %s %s :%d\n", pad, strings.Repeat("  ", depth-1), n.Kind, label, n.SourceLine+1)
		return true
	})
}
