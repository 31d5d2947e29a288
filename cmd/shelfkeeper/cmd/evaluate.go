package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/shelfkeeper/internal/core/catalog"
	"github.com/solatis/shelfkeeper/internal/core/db"
	"github.com/solatis/shelfkeeper/internal/rules"
	"github.com/solatis/shelfkeeper/internal/types"
)

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		booksFile string
		printIDs  bool
		check     bool
	)

	evaluateCmd := &cobra.Command{
		Use:   "evaluate --books books.json [tree.json|-]",
		Short: "Count the books a rule tree matches, in memory",
		Long: `Evaluates a rule tree against a JSON array of books and prints the number
of matches. With --check the books are also loaded into an in-memory SQLite
catalog and the compiled SQL must select exactly the same books.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := readBooks(booksFile)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, argOrStdin(args))
			if err != nil {
				return err
			}
			group, err := a.engine().Parse(data)
			if err != nil {
				// A broken tree matches nothing.
				a.logger.Warn("filter does not parse", zap.Error(err))
				fmt.Fprintln(cmd.OutOrStdout(), 0)
				return err
			}

			matched := rules.Filter(books, group)
			ids := make([]int64, len(matched))
			for i, b := range matched {
				ids[i] = b.ID
			}

			if check {
				if err := checkAgainstSQL(cmd, books, group, ids); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if printIDs {
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			}
			fmt.Fprintln(out, len(ids))
			return nil
		},
	}

	evaluateCmd.Flags().StringVar(&booksFile, "books", "", "JSON array of books")
	evaluateCmd.Flags().BoolVar(&printIDs, "ids", false, "print matching book IDs instead of a count")
	evaluateCmd.Flags().BoolVar(&check, "check", false, "verify the compiled SQL selects the same books")
	_ = evaluateCmd.MarkFlagRequired("books")
	return evaluateCmd
}

func readBooks(path string) ([]types.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var books []types.Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("failed to decode books: %w", err)
	}
	return books, nil
}

// checkAgainstSQL runs the compiled tree over an in-memory copy of books and
// compares the selected IDs with the evaluator's.
func checkAgainstSQL(cmd *cobra.Command, books []types.Book, group *rules.Group, want []int64) error {
	ctx := cmd.Context()
	conn, err := db.Open(ctx, db.MemoryURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := db.MigrateUp(ctx, conn); err != nil {
		return err
	}
	queries, err := db.LoadQueries(conn)
	if err != nil {
		return err
	}
	repo := catalog.New(queries)
	if err := repo.Insert(ctx, books...); err != nil {
		return err
	}
	got, err := repo.MatchingIDs(ctx, group)
	if err != nil {
		return err
	}

	sorted := slices.Clone(want)
	slices.Sort(sorted)
	if !slices.Equal(sorted, got) {
		return fmt.Errorf("SQL selects %v but evaluation selects %v (sql: %s)", got, sorted, rules.CompileSQL(group))
	}
	return nil
}
