package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BackupJobName identifies the backup job in the scheduler
const BackupJobName = "database_backup"

// BackupJob runs BackupService on a schedule
type BackupJob struct {
	service *BackupService
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		timeout: 10 * time.Minute,
		log:     log.With().Str("job", BackupJobName).Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return BackupJobName
}

// Run executes one backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUpload(ctx); err != nil {
		j.log.Error().Err(err).Msg("Scheduled backup failed")
		return err
	}
	return nil
}
