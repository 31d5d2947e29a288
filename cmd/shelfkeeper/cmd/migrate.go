package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/shelfkeeper/internal/core/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, _, err := a.openDB(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer database.Close()

			applied, err := db.MigrateUp(cmd.Context(), database)
			if err != nil {
				return err
			}
			for _, id := range applied {
				a.logger.Info("migration applied", zap.String("migration_id", id))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			return nil
		},
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, _, err := a.openDB(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer database.Close()

			statuses, err := db.MigrateStatus(cmd.Context(), database)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range statuses {
				if !s.Applied {
					fmt.Fprintf(out, "%s\tpending\n", s.ID)
					continue
				}
				appliedAt := "-"
				if s.AppliedAt != nil {
					appliedAt = s.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%s\tapplied\t%s\t%dms\n", s.ID, appliedAt, s.ExecutionMs)
			}
			return nil
		},
	})
	return migrateCmd
}
