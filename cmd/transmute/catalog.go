package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/codetransmute/internal/blocks"
)

func newCatalogCmd() *cobra.Command {
	var locale string
	var list bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the block toolbox for a locale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := blocks.LoadCatalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if list {
				fmt.Fprintln(out, strings.Join(cat.LocaleNames(), "\n"))
				return nil
			}
			if _, ok := cat.Labels(locale); !ok {
				return fmt.Errorf("unknown locale %q (have %s)", locale, strings.Join(cat.LocaleNames(), ", "))
			}
			fmt.Fprintln(out, cat.Toolbox(locale))
			return nil
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "en", "label locale")
	cmd.Flags().BoolVar(&list, "list", false, "list available locales")
	return cmd
}
