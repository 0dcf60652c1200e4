package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/wordmine/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the vocabulary catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import vocabulary items from an Excel or CSV file",
	Example: `  wordmine catalog import --file words.xlsx --language-pair es-en
  wordmine catalog import --file words.csv --language-pair fr-en --id-col "" --term-col A --translation-col B --difficulty-col ""`,
	RunE: func(cmd *cobra.Command, args []string) error {
		icfg := catalog.DefaultImportConfig()
		icfg.FilePath, _ = cmd.Flags().GetString("file")
		icfg.LanguagePair, _ = cmd.Flags().GetString("language-pair")
		icfg.SheetName, _ = cmd.Flags().GetString("sheet")
		icfg.StartRow, _ = cmd.Flags().GetInt("start-row")
		icfg.IDColumn, _ = cmd.Flags().GetString("id-col")
		icfg.TermColumn, _ = cmd.Flags().GetString("term-col")
		icfg.TranslationColumn, _ = cmd.Flags().GetString("translation-col")
		icfg.DifficultyColumn, _ = cmd.Flags().GetString("difficulty-col")

		_, logger, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := catalog.ImportVocabulary(cmd.Context(), st.Catalog(), icfg)
		if err != nil {
			return fmt.Errorf("import vocabulary: %w", err)
		}
		printImportResult(cmd, res)
		logger.WithField("file", icfg.FilePath).Debug("vocabulary import finished")
		return nil
	},
}

var catalogOptionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Import segment answer options from an Excel or CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ocfg := catalog.DefaultOptionsConfig()
		ocfg.FilePath, _ = cmd.Flags().GetString("file")
		ocfg.SheetName, _ = cmd.Flags().GetString("sheet")
		ocfg.StartRow, _ = cmd.Flags().GetInt("start-row")

		_, _, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := catalog.ImportOptions(cmd.Context(), st.Catalog(), ocfg)
		if err != nil {
			return fmt.Errorf("import options: %w", err)
		}
		printImportResult(cmd, res)
		return nil
	},
}

func printImportResult(cmd *cobra.Command, res *catalog.ImportResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed: %d\n", res.TotalProcessed)
	fmt.Fprintf(out, "Created:   %d\n", res.Created)
	fmt.Fprintf(out, "Updated:   %d\n", res.Updated)
	fmt.Fprintf(out, "Skipped:   %d\n", res.Skipped)
	if len(res.Errors) > 0 {
		fmt.Fprintf(out, "Errors:    %d\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  %s\n", e)
		}
	}
}

func init() {
	defaults := catalog.DefaultImportConfig()
	f := catalogImportCmd.Flags()
	f.String("file", "", "Path to .xlsx or .csv file")
	f.String("language-pair", "", "Language pair of the imported items, e.g. es-en")
	f.String("sheet", defaults.SheetName, "Excel sheet name")
	f.Int("start-row", defaults.StartRow, "First data row (1-based)")
	f.String("id-col", defaults.IDColumn, "Column holding the item id; empty derives ids from the term")
	f.String("term-col", defaults.TermColumn, "Column holding the term")
	f.String("translation-col", defaults.TranslationColumn, "Column holding the translation")
	f.String("difficulty-col", defaults.DifficultyColumn, "Column holding the difficulty rating; empty defaults to 1")
	_ = catalogImportCmd.MarkFlagRequired("file")
	_ = catalogImportCmd.MarkFlagRequired("language-pair")

	optDefaults := catalog.DefaultOptionsConfig()
	of := catalogOptionsCmd.Flags()
	of.String("file", "", "Path to .xlsx or .csv file")
	of.String("sheet", optDefaults.SheetName, "Excel sheet name")
	of.Int("start-row", optDefaults.StartRow, "First data row (1-based)")
	_ = catalogOptionsCmd.MarkFlagRequired("file")

	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogOptionsCmd)
}
