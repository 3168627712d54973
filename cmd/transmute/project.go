package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/extractor"
	"github.com/dgallion1/codetransmute/internal/preview"
	"github.com/dgallion1/codetransmute/internal/projector"
)

type projectOptions struct {
	level   int
	lang    string
	preview bool
}

func newProjectCmd() *cobra.Command {
	opts := projectOptions{}
	cmd := &cobra.Command{
		Use:   "project FILE",
		Short: "Print block markup for a file (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := codetree.ParseLevel(opts.level)
			if err != nil {
				return err
			}
			name := args[0]
			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			trees := sourceTrees(name, data, opts.lang)
			logger(cmd).Debug("extracted", "path", name, "sources", len(trees))
			return writeProjection(cmd.OutOrStdout(), trees, level, opts.preview)
		},
	}
	cmd.Flags().IntVarP(&opts.level, "level", "l", 3, "abstraction level (1 arch, 2 logic, 3 raw)")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "language hint, overriding the file extension")
	cmd.Flags().BoolVarP(&opts.preview, "preview", "p", false, "print the generated preview text instead of markup")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

// sourceTrees extracts a file. An explicit language treats the whole input
// as a single source of that language.
func sourceTrees(name string, data []byte, lang string) []extractor.Tree {
	if lang == "" {
		return extractor.ExtractFile(filepath.Base(name), data)
	}
	l := codetree.ParseLanguage(lang)
	return []extractor.Tree{{
		Source: extractor.Source{Name: filepath.Base(name), Language: l},
		Root:   extractor.Extract(string(data), l),
	}}
}

func writeProjection(w io.Writer, trees []extractor.Tree, level codetree.Level, asPreview bool) error {
	for i, t := range trees {
		markup, err := projector.Project(t.Root, level)
		if err != nil {
			return err
		}
		if len(trees) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "## %s (%s, line %d)\n", t.Name, t.Language, t.LineOffset+1)
		}
		if !asPreview {
			fmt.Fprintln(w, markup)
			continue
		}
		code, err := preview.Generate(markup)
		if err != nil {
			return fmt.Errorf("preview %s: %w", t.Name, err)
		}
		fmt.Fprintln(w, code)
	}
	return nil
}
