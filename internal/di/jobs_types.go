package di

import (
	"github.com/aristath/folio/internal/modules/rebalancing"
	"github.com/aristath/folio/internal/modules/reconciliation"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
)

// JobInstances holds job references for manual triggering via the API and CLI
type JobInstances struct {
	Reconciliation *reconciliation.Job
	Rebalance      *rebalancing.Job
	Maintenance    *scheduler.DatabaseMaintenanceJob
	Backup         *reliability.BackupJob // nil when backups are disabled
}
