package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/shelfkeeper/internal/core/catalog"
	"github.com/solatis/shelfkeeper/internal/core/db"
	"github.com/solatis/shelfkeeper/internal/core/shelves"
	"github.com/solatis/shelfkeeper/internal/types"
)

func newShelfCmd(a *app) *cobra.Command {
	shelfCmd := &cobra.Command{
		Use:   "shelf",
		Short: "Manage saved shelves",
	}

	// withStore opens the database for the duration of one subcommand.
	withStore := func(cmd *cobra.Command, fn func(*shelves.Store, *db.Queries) error) error {
		database, queries, err := a.openDB(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer database.Close()
		return fn(shelves.New(queries), queries)
	}

	parseID := func(arg string) (types.ShelfID, error) {
		id, err := types.ParseShelfID(arg)
		if err != nil {
			return "", fmt.Errorf("invalid shelf id %q: %w", arg, err)
		}
		return id, nil
	}

	var name string
	saveCmd := &cobra.Command{
		Use:   "save --name NAME [tree.json|-]",
		Short: "Save a rule tree as a named shelf",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, argOrStdin(args))
			if err != nil {
				return err
			}
			return withStore(cmd, func(store *shelves.Store, _ *db.Queries) error {
				id, err := store.Save(cmd.Context(), name, data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	saveCmd.Flags().StringVar(&name, "name", "", "shelf name")
	_ = saveCmd.MarkFlagRequired("name")

	loadCmd := &cobra.Command{
		Use:   "load ID",
		Short: "Print a shelf's rule tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(store *shelves.Store, _ *db.Queries) error {
				filter, err := store.Load(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(filter))
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved shelves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *shelves.Store, _ *db.Queries) error {
				all, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range all {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.ID, s.CreatedAt.Format(time.RFC3339), s.Name)
				}
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(store *shelves.Store, _ *db.Queries) error {
				return store.Delete(cmd.Context(), id)
			})
		},
	}

	countCmd := &cobra.Command{
		Use:   "count ID",
		Short: "Count catalog books on a shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(store *shelves.Store, queries *db.Queries) error {
				filter, err := store.Load(cmd.Context(), id)
				if err != nil {
					return err
				}
				group, err := a.engine().Parse(filter)
				if err != nil {
					a.logger.Warn("stored filter does not parse", zap.String("shelf_id", string(id)), zap.Error(err))
					fmt.Fprintln(cmd.OutOrStdout(), 0)
					return err
				}
				n, err := catalog.New(queries).Count(cmd.Context(), group)
				if errors.Is(err, types.ErrInvalidFilter) {
					fmt.Fprintln(cmd.OutOrStdout(), 0)
					return err
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}

	shelfCmd.AddCommand(saveCmd, loadCmd, listCmd, deleteCmd, countCmd)
	return shelfCmd
}
