package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/rs/zerolog"
)

// walFramesThreshold is the WAL size, in frames, above which a TRUNCATE checkpoint is forced
const walFramesThreshold = 1000

// DatabaseMaintenanceJob checks database integrity and keeps the WAL file bounded
type DatabaseMaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDatabaseMaintenanceJob creates a new DatabaseMaintenanceJob
func NewDatabaseMaintenanceJob(db *database.DB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		db:  db,
		log: log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance job
func (j *DatabaseMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		return fmt.Errorf("failed to check WAL checkpoint: %w", err)
	}

	if frames > walFramesThreshold {
		j.log.Warn().
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, forcing truncate checkpoint")
		if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
			return err
		}
	}

	j.log.Debug().Int("wal_frames", frames).Msg("Database maintenance completed")
	return nil
}
