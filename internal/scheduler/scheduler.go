package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"lifesim/internal/logger"
)

type job struct {
	name string
	spec string
	fn   func(ctx context.Context) error
}

// Scheduler runs background jobs (daily usage report, session sweep) on cron specs (UTC).
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	jobs   []job
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob queues a job for registration by Start.
func (s *Scheduler) AddJob(name, spec string, f func(ctx context.Context) error) {
	s.jobs = append(s.jobs, job{name: name, spec: spec, fn: f})
}

// Start registers the queued jobs and starts the cron loop. Without jobs it does nothing.
func (s *Scheduler) Start() error {
	log := logger.Get()
	if len(s.jobs) == 0 {
		log.Warn("⚠️ no jobs registered, scheduler will not start")
		return nil
	}

	for _, j := range s.jobs {
		j := j
		_, err := s.cron.AddFunc(j.spec, func() {
			log.Debug("🕘 job triggered", zap.String("job", j.name), zap.String("spec", j.spec))
			if err := j.fn(s.ctx); err != nil {
				log.Error("❌ job failed", zap.String("job", j.name), zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", j.spec, j.name, err)
		}
	}

	s.cron.Start()
	log.Info("📅 scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	logger.Get().Info("📅 scheduler stopped")
}

// IsRunning reports whether any job is registered.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
