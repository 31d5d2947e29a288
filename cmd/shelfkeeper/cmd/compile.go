package cmd

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/solatis/shelfkeeper/internal/rules"
)

func newCompileCmd(a *app) *cobra.Command {
	var (
		strict  bool
		dialect string
	)

	compileCmd := &cobra.Command{
		Use:   "compile [tree.json|-]",
		Short: "Compile a rule tree to a SQL WHERE fragment",
		Long: `Reads a rule tree as JSON from a file or stdin and prints the SQL fragment
selecting the books it matches. An empty line means every book matches.
--dialect picks the SQL flavour: sqlite (default) or postgres.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, argOrStdin(args))
			if err != nil {
				return err
			}
			d, err := rules.ParseDialect(dialect)
			if err != nil {
				return err
			}
			engine := a.engine(rules.WithDialect(d))
			group, err := engine.Parse(data)
			if err != nil {
				return err
			}

			if verr := engine.Validate(group); verr != nil {
				var merr *multierror.Error
				if errors.As(verr, &merr) {
					for _, e := range merr.Errors {
						fmt.Fprintln(cmd.ErrOrStderr(), "warning:", e)
					}
				}
				if strict {
					return verr
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), engine.Compile(group))
			return nil
		},
	}

	compileCmd.Flags().BoolVar(&strict, "strict", false, "fail when the tree has rules that cannot be evaluated")
	compileCmd.Flags().StringVar(&dialect, "dialect", "sqlite", "SQL dialect: sqlite or postgres")
	return compileCmd
}
