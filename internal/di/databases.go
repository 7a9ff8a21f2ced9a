package di

import (
	"fmt"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the holdings database and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	db, err := database.New(database.Config{
		Path:   cfg.DatabasePath,
		Driver: cfg.DatabaseDriver,
		Name:   "folio",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize folio database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate folio database: %w", err)
	}
	container.DB = db

	log.Info().
		Str("path", db.Path()).
		Str("driver", db.Driver()).
		Msg("Database initialized")

	return container, nil
}
