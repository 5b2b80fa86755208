// Package maintenance runs periodic store upkeep on cron schedules.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/codesearch/codesearch/internal/logging"
)

const (
	JobOrphanCleanup = "orphan-cleanup"
	JobOptimize      = "optimize"
)

// Target is the store being maintained. *codesearch.Engine satisfies it.
type Target interface {
	CleanupOrphanedFiles(ctx context.Context, grace time.Duration) (int64, error)
	Optimize(ctx context.Context) error
}

// Config holds 5-field cron expressions; an empty expression disables
// that job.
type Config struct {
	OrphanCleanupCron string
	OrphanGrace       time.Duration
	OptimizeCron      string
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name     string
	Schedule string
	LastRun  time.Time
	NextRun  time.Time
}

type Scheduler struct {
	mu        sync.Mutex
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	schedules map[string]string
	target    Target
	cfg       Config
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(target Target, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	logger = logging.Default(logger).With("component", "maintenance")

	gs, err := gocron.NewScheduler(gocron.WithLogger(logger), gocron.WithStopTimeout(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("create cron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		scheduler: gs,
		jobs:      make(map[string]gocron.Job),
		schedules: make(map[string]string),
		target:    target,
		cfg:       cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	if cfg.OrphanCleanupCron != "" {
		if err := s.addJob(JobOrphanCleanup, cfg.OrphanCleanupCron, s.cleanupOrphans); err != nil {
			_ = s.Stop()
			return nil, err
		}
	}
	if cfg.OptimizeCron != "" {
		if err := s.addJob(JobOptimize, cfg.OptimizeCron, s.target.Optimize); err != nil {
			_ = s.Stop()
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) addJob(name, cronExpr string, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() { s.run(name, fn) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create scheduled job %s: %w", name, err)
	}

	s.jobs[name] = j
	s.schedules[name] = cronExpr
	s.logger.Info("scheduled job added", "name", name, "cron", cronExpr)
	return nil
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	start := time.Now()
	if err := fn(s.ctx); err != nil {
		s.logger.Error("maintenance job failed", "name", name, "error", err)
		return
	}
	s.logger.Info("maintenance job finished", "name", name, "elapsed", time.Since(start))
}

func (s *Scheduler) cleanupOrphans(ctx context.Context) error {
	n, err := s.target.CleanupOrphanedFiles(ctx, s.cfg.OrphanGrace)
	if err != nil {
		return err
	}
	s.logger.Info("orphaned files removed", "count", n)
	return nil
}

// RunNow triggers a registered job outside its schedule. The scheduler must
// be started.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return j.RunNow()
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, j := range s.jobs {
		info := JobInfo{Name: name, Schedule: s.schedules[name]}
		if lr, err := j.LastRun(); err == nil {
			info.LastRun = lr
		}
		if nr, err := j.NextRun(); err == nil {
			info.NextRun = nr
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(a, b int) bool { return infos[a].Name < infos[b].Name })
	return infos
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("scheduler started", "jobs", len(s.Jobs()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.scheduler.Shutdown()
}
