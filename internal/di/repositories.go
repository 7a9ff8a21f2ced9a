package di

import (
	"fmt"

	"github.com/aristath/folio/internal/modules/holdings"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container database is not initialized")
	}

	container.HoldingsRepo = holdings.NewRepository(container.DB.Conn(), log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
