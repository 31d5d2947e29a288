// Package api provides the gRPC ShelfService implementation.
package api

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/solatis/shelfkeeper/internal/core/catalog"
	"github.com/solatis/shelfkeeper/internal/core/shelves"
	"github.com/solatis/shelfkeeper/internal/rules"
)

// ShelfService implements ShelfServiceServer.
// Thin orchestration layer delegating to the shelf store, the catalog and
// the rules engine.
type ShelfService struct {
	shelves *shelves.Store
	catalog *catalog.Repository
	engine  *rules.Engine
	logger  *zap.Logger
}

var _ ShelfServiceServer = (*ShelfService)(nil)

// NewShelfService creates service instance with dependencies.
func NewShelfService(store *shelves.Store, repo *catalog.Repository, engine *rules.Engine, logger *zap.Logger) (*ShelfService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if repo == nil {
		return nil, fmt.Errorf("repo cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ShelfService{
		shelves: store,
		catalog: repo,
		engine:  engine,
		logger:  logger.Named("api"),
	}, nil
}
