package rebalancing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/folio/internal/events"
	"github.com/rs/zerolog"
)

// JobName identifies the weekly rebalance check in the scheduler
const JobName = "rebalance_check"

// DefaultRunTimeout bounds one scheduled check, AI summary included
const DefaultRunTimeout = 2 * time.Minute

// Publisher receives rebalance check events
type Publisher interface {
	Emit(module string, data events.EventData)
}

// Job runs the rebalance check across all portfolios
type Job struct {
	service    *Service
	publisher  Publisher
	lastReport *Report
	log        zerolog.Logger
	timeout    time.Duration
	mu         sync.RWMutex
}

// NewJob creates a new rebalance check job. publisher may be nil.
func NewJob(service *Service, publisher Publisher, log zerolog.Logger) *Job {
	return &Job{
		service:   service,
		publisher: publisher,
		log:       log.With().Str("job", JobName).Logger(),
		timeout:   DefaultRunTimeout,
	}
}

// Name returns the job name
func (j *Job) Name() string {
	return JobName
}

// Run executes one check over every portfolio
func (j *Job) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.service.CheckAll(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Rebalance check failed")
		return err
	}

	j.mu.Lock()
	j.lastReport = report
	j.mu.Unlock()

	if j.publisher != nil {
		j.publisher.Emit("rebalancing", &events.RebalanceCheckedData{
			PortfoliosAnalyzed:         report.PortfoliosAnalyzed,
			PortfoliosNeedingAttention: report.PortfoliosNeedingAttention,
		})
	}

	j.log.Info().
		Int("analyzed", report.PortfoliosAnalyzed).
		Int("needing_attention", report.PortfoliosNeedingAttention).
		Bool("ai_summary", report.AISummary != "").
		Msg("Weekly rebalance check complete")

	return nil
}

// LastReport returns the most recent completed check, or nil
func (j *Job) LastReport() *Report {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastReport
}
