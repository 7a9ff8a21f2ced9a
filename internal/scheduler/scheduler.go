// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus reports when a registered job runs next and how it last went
type JobStatus struct {
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run"`
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	LastError string    `json:"last_error,omitempty"`
}

type registration struct {
	job      Job
	schedule string
	lastRun  time.Time
	lastErr  error
	entryID  cron.EntryID
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	jobs []*registration
	log  zerolog.Logger
	mu   sync.Mutex
}

// New creates a new scheduler. Schedules use six fields, seconds first.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "0 0 9 * * MON"      - Mondays at 09:00
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	reg := &registration{job: job, schedule: schedule}

	id, err := s.cron.AddFunc(schedule, func() {
		s.execute(reg)
	})
	if err != nil {
		return err
	}
	reg.entryID = id

	s.mu.Lock()
	s.jobs = append(s.jobs, reg)
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// Status returns the registered jobs in registration order
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, reg := range s.jobs {
		status := JobStatus{
			Name:     reg.job.Name(),
			Schedule: reg.schedule,
			NextRun:  s.cron.Entry(reg.entryID).Next,
			LastRun:  reg.lastRun,
		}
		if reg.lastErr != nil {
			status.LastError = reg.lastErr.Error()
		}
		out = append(out, status)
	}
	return out
}

func (s *Scheduler) execute(reg *registration) {
	name := reg.job.Name()
	s.log.Debug().Str("job", name).Msg("Running job")

	start := time.Now()
	err := reg.job.Run()

	s.mu.Lock()
	reg.lastRun = start
	reg.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Dur("duration", time.Since(start)).
			Msg("Job failed")
		return
	}
	s.log.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("Job completed")
}
