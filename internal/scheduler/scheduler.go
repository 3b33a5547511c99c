// Package scheduler runs periodic maintenance jobs inside the API process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/dreamforge/internal/clock"
	obsmetrics "github.com/smallbiznis/dreamforge/internal/observability/metrics"
	"github.com/smallbiznis/dreamforge/internal/ratelimit"
	reconciliationdomain "github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobReconcileBalances = "reconcile_balances"

var ErrInvalidConfig = errors.New("invalid scheduler config")

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Reconciler reconciliationdomain.Service
	Config     Config              `optional:"true"`
	Redis      *redis.Client       `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	reconciler reconciliationdomain.Service
	locker     *ratelimit.Locker
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Reconciler == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		reconciler: p.Reconciler,
		locker:     ratelimit.NewLocker(p.Redis),
		obsMetrics: p.ObsMetrics,
	}, nil
}

// runJob runs fn under the job deadline. With redis configured only one
// replica runs a given job at a time; the others skip it.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()
	log := s.log.With(zap.String("job", name))

	if s.locker != nil {
		key := "scheduler:job:" + name
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.JobTimeout)
		if err != nil {
			return fmt.Errorf("%s: lock: %w", name, err)
		}
		if !ok {
			log.Debug("job held by another instance")
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.Background(), key, token); err != nil {
				log.Warn("job lock release failed", zap.Error(err))
			}
		}()
	}

	start := s.clock.Now()
	log.Debug("job started")
	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)

	if err == nil {
		s.obsMetrics.RecordJobRun(parent, name, "ok", elapsed)
		log.Debug("job finished", zap.Duration("elapsed", elapsed))
		return nil
	}

	// deadline is a soft timeout; the next tick picks up where this one stopped
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.obsMetrics.RecordJobRun(parent, name, "timeout", elapsed)
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}

	s.obsMetrics.RecordJobRun(parent, name, "error", elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: JobReconcileBalances, run: s.ReconcileBalancesJob},
	}
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if s.isJobEnabled(j.name) {
			err = errors.Join(err, s.runJob(parent, j.name, j.run))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ReconcileBalancesJob records drift between cached balances and the ledger.
func (s *Scheduler) ReconcileBalancesJob(ctx context.Context) error {
	report, err := s.reconciler.Scan(ctx)
	if err != nil {
		return err
	}
	if len(report.Drift) > 0 {
		s.log.Warn("ledger drift detected",
			zap.Int("accounts", len(report.Drift)),
			zap.Int("new_anomalies", len(report.Recorded)),
		)
	}
	return nil
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
