package di

import (
	"fmt"

	"github.com/aristath/stockfolio/internal/config"
	"github.com/aristath/stockfolio/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens holdings.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	holdingsDB, err := database.New(database.Config{
		Path: cfg.HoldingsDBPath(),
		Name: "holdings",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize holdings database: %w", err)
	}

	if err := holdingsDB.Migrate(); err != nil {
		holdingsDB.Close()
		return nil, fmt.Errorf("failed to migrate holdings database: %w", err)
	}
	container.HoldingsDB = holdingsDB

	log.Info().Str("path", holdingsDB.Path()).Msg("Holdings database initialized")
	return container, nil
}
