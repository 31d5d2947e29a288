package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/solatis/shelfkeeper/internal/core/config"
	"github.com/solatis/shelfkeeper/internal/core/db"
	"github.com/solatis/shelfkeeper/internal/core/logging"
	"github.com/solatis/shelfkeeper/internal/rules"
)

const Version = "0.1.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "shelfkeeper",
		Short:         "Magic Shelf rule engine",
		Long:          `shelfkeeper compiles Magic Shelf rule trees to SQL, evaluates them against books and serves saved shelves over gRPC.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file path")
	flags.String("db-url", "", "database connection URL (sqlite://path or postgres://...)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, text)")
	_ = a.v.BindPFlag("database.url", flags.Lookup("db-url"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newImportCmd(a),
		newCompileCmd(a),
		newEvaluateCmd(a),
		newShelfCmd(a),
	)
	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

// load resolves configuration (flags > env > file > defaults) and builds
// the logger.
func (a *app) load() error {
	cfg, err := config.LoadConfigWith(a.v, a.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) engine(opts ...rules.EngineOption) *rules.Engine {
	return rules.NewEngine(append([]rules.EngineOption{rules.WithMaxDepth(a.cfg.Engine.MaxDepth)}, opts...)...)
}

// openDB opens the configured database. With requireSchema set it refuses a
// database that still has pending migrations.
func (a *app) openDB(ctx context.Context, requireSchema bool) (*sqlx.DB, *db.Queries, error) {
	conn, err := db.Open(ctx, a.cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if requireSchema {
		statuses, err := db.MigrateStatus(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
		}
		for _, s := range statuses {
			if !s.Applied {
				conn.Close()
				return nil, nil, fmt.Errorf("migration %s not applied - run 'shelfkeeper migrate' first", s.ID)
			}
		}
	}

	queries, err := db.LoadQueries(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return conn, queries, nil
}

// readInput reads the named file, or stdin when the name is empty or "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
