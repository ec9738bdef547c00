package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// Scheduler runs the background jobs on a cron instance
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

func NewScheduler(loc *time.Location, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		logger: logger.WithComponent("scheduler"),
	}
}

// Every registers job to run at a fixed interval.
func (s *Scheduler) Every(name string, interval time.Duration, job func(ctx context.Context)) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval for %s must be positive", name)
	}
	return s.cron.Schedule(cron.Every(interval), s.wrap(name, job)), nil
}

// Cron registers job under a standard cron spec or descriptor such as "@daily".
func (s *Scheduler) Cron(name, spec string, job func(ctx context.Context)) (cron.EntryID, error) {
	id, err := s.cron.AddJob(spec, s.wrap(name, job))
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	return id, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infow("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) wrap(name string, job func(ctx context.Context)) cron.Job {
	return cron.FuncJob(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorw("Job panicked", "job", name, "panic", r)
			}
		}()
		job(context.Background())
	})
}

// TaskGauges receives the list counts computed by the overdue reporter
type TaskGauges interface {
	SetTaskCounts(total, completed, overdue int)
}

// Snapshotter supplies the list to report on
type Snapshotter interface {
	Snapshot() entities.TaskList
}

// OverdueReporter publishes how many tasks are overdue at the time it runs
type OverdueReporter struct {
	store  Snapshotter
	gauges TaskGauges
	now    func() time.Time
	logger *logger.Logger
}

func NewOverdueReporter(store Snapshotter, gauges TaskGauges, loc *time.Location, logger *logger.Logger) *OverdueReporter {
	return &OverdueReporter{
		store:  store,
		gauges: gauges,
		now:    func() time.Time { return time.Now().In(loc) },
		logger: logger.WithComponent("overdue_reporter"),
	}
}

// Run computes the counts once.
func (r *OverdueReporter) Run(ctx context.Context) {
	list := r.store.Snapshot()
	now := r.now()

	overdue := 0
	for _, task := range list.Tasks {
		if task.IsOverdue(now) {
			overdue++
		}
	}

	r.gauges.SetTaskCounts(len(list.Tasks), list.CompletedCount(), overdue)
	r.logger.Debugw("Task counts updated", "total", len(list.Tasks), "overdue", overdue)
}

// SessionCleaner deletes expired and revoked auth sessions
type SessionCleaner struct {
	repo      ports.AuthRepository
	retention time.Duration
	logger    *logger.Logger
}

// NewSessionCleaner keeps revoked sessions for retention before deleting them.
func NewSessionCleaner(repo ports.AuthRepository, retention time.Duration, logger *logger.Logger) *SessionCleaner {
	return &SessionCleaner{
		repo:      repo,
		retention: retention,
		logger:    logger.WithComponent("session_cleaner"),
	}
}

func (c *SessionCleaner) Run(ctx context.Context) {
	before := time.Now().Add(-c.retention)

	removed, err := c.repo.CleanupExpiredSessions(ctx, before)
	if err != nil {
		c.logger.Errorw("Failed to clean up auth sessions", "error", err)
		return
	}
	if removed > 0 {
		c.logger.Infow("Auth sessions cleaned up", "removed", removed)
	}
}
