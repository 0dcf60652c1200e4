package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/wordmine/internal/catalog"
)

var matchCmd = &cobra.Command{
	Use:   "match <text>",
	Short: "Show which vocabulary items the configured matcher finds in text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pair, _ := cmd.Flags().GetString("language-pair")
		text := strings.Join(args, " ")

		cfg, logger, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		lookup := catalog.NewSQL(st.Catalog())
		m, err := buildMatcher(cmd.Context(), cfg, lookup, st, logger)
		if err != nil {
			return err
		}

		ids, err := m.Match(cmd.Context(), text, pair)
		if err != nil {
			return fmt.Errorf("match: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No matching vocabulary items.")
			return nil
		}
		fmt.Fprintf(out, "%-36s  %-24s  %s\n", "ID", "Term", "Translation")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, id := range ids {
			item, err := lookup.Item(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(out, "%-36s  %s\n", id, "?")
				continue
			}
			fmt.Fprintf(out, "%-36s  %-24s  %s\n", item.ID, truncate(item.Term, 24), item.Translation)
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().StringP("language-pair", "l", "", "Language pair to search, e.g. es-en")
	_ = matchCmd.MarkFlagRequired("language-pair")
}
