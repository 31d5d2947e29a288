package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/shelfkeeper/internal/core/catalog"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import books.json",
		Short: "Load a JSON array of books into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := readBooks(args[0])
			if err != nil {
				return err
			}

			database, queries, err := a.openDB(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := catalog.New(queries).Insert(cmd.Context(), books...); err != nil {
				return err
			}
			a.logger.Info("books imported", zap.Int("count", len(books)))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d book(s)\n", len(books))
			return nil
		},
	}
}
