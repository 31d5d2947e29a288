package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/shelfkeeper/internal/core/api"
	"github.com/solatis/shelfkeeper/internal/core/catalog"
	"github.com/solatis/shelfkeeper/internal/core/server"
	"github.com/solatis/shelfkeeper/internal/core/shelves"
	"github.com/solatis/shelfkeeper/internal/rules"
)

func newServeCmd(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start gRPC shelf service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}

	serveCmd.Flags().String("host", "", "gRPC server host")
	serveCmd.Flags().Int("port", 0, "gRPC server port")
	_ = a.v.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = a.v.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	return serveCmd
}

func (a *app) runServe(ctx context.Context) error {
	database, queries, err := a.openDB(ctx, true)
	if err != nil {
		return err
	}
	defer database.Close()

	repo := catalog.New(queries)
	service, err := api.NewShelfService(shelves.New(queries), repo, a.engine(rules.WithDialect(repo.Dialect())), a.logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(a.cfg.Server, service, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	a.logger.Info("starting shelfkeeper",
		zap.String("version", Version),
		zap.String("addr", a.cfg.Server.Addr()),
		zap.Int("max_depth", a.cfg.Engine.MaxDepth),
		zap.Stringer("dialect", repo.Dialect()),
	)
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		a.logger.Info("shutting down gracefully", zap.String("signal", sig.String()))
		return grpcServer.Shutdown(ctx)
	}
}
