package di

import (
	"fmt"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/modules/rebalancing"
	"github.com/aristath/folio/internal/modules/reconciliation"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/rs/zerolog"
)

// CreateJobs builds every background job from the container's services
func CreateJobs(container *Container, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.PriceFetcher == nil {
		return nil, fmt.Errorf("services are not initialized")
	}

	instances := &JobInstances{
		Reconciliation: reconciliation.NewJob(container.HoldingsRepo, container.PriceFetcher, container.EventBus, log),
		Rebalance:      rebalancing.NewJob(container.RebalancingService, container.EventBus, log),
		Maintenance:    scheduler.NewDatabaseMaintenanceJob(container.DB, log),
	}
	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, log)
	}

	return instances, nil
}

type scheduledJob struct {
	schedule string
	job      scheduler.Job
}

// RegisterJobs adds the jobs to the scheduler on their configured schedules
func RegisterJobs(sched *scheduler.Scheduler, jobs *JobInstances, cfg *config.Config, log zerolog.Logger) error {
	entries := []scheduledJob{
		{cfg.Schedules.Reconcile, jobs.Reconciliation},
		{cfg.Schedules.Rebalance, jobs.Rebalance},
		{cfg.Schedules.Maintenance, jobs.Maintenance},
	}
	if jobs.Backup != nil {
		entries = append(entries, scheduledJob{cfg.Schedules.Backup, jobs.Backup})
	}

	for _, e := range entries {
		if e.schedule == "" {
			log.Info().Str("job", e.job.Name()).Msg("No schedule configured, job disabled")
			continue
		}
		if err := sched.AddJob(e.schedule, e.job); err != nil {
			return fmt.Errorf("failed to register %s job: %w", e.job.Name(), err)
		}
	}

	return nil
}
