package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/pkg/config"
	"github.com/noah-isme/care-reminder-api/pkg/jobs"
)

const sweepJobKind = "sweep"

type ownerLister interface {
	ListActiveOwnerIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

type ownerGenerationRunner interface {
	RunForOwner(ctx context.Context, ownerID string) (*models.GenerationReport, error)
}

type ownerAdjustmentRunner interface {
	Run(ctx context.Context, ownerID string) (*models.AdjustmentReport, error)
}

type missedSweeper interface {
	SweepMissed(ctx context.Context, now time.Time) (*models.SweepReport, error)
}

// CareScheduler fans periodic generation and adjustment passes out to a worker queue, one job per owner,
// and runs the global missed sweep on its own ticker.
type CareScheduler struct {
	owners     ownerLister
	generation ownerGenerationRunner
	adjuster   ownerAdjustmentRunner
	sweeper    missedSweeper
	queue      *jobs.Queue
	cfg        config.WorkerConfig
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	loops  sync.WaitGroup
}

// NewCareScheduler wires the scheduler and its queue.
func NewCareScheduler(owners ownerLister, generation ownerGenerationRunner, adjuster ownerAdjustmentRunner, sweeper missedSweeper, cfg config.WorkerConfig, metrics *MetricsService, logger *zap.Logger) *CareScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	s := &CareScheduler{
		owners:     owners,
		generation: generation,
		adjuster:   adjuster,
		sweeper:    sweeper,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("care", s.handle, jobs.QueueConfig{
		Workers:    cfg.Concurrency,
		BufferSize: cfg.BatchSize,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers and the periodic loops. Intervals <= 0 disable a loop.
func (s *CareScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.queue.Start(ctx)

	s.every(ctx, s.cfg.GenerationInterval, func(ctx context.Context) {
		if _, err := s.EnqueueAll(ctx, jobs.KindGenerate); err != nil {
			s.logger.Warn("generation fan-out failed", zap.Error(err))
		}
	})
	s.every(ctx, s.cfg.AdjustmentInterval, func(ctx context.Context) {
		if _, err := s.EnqueueAll(ctx, jobs.KindAdjust); err != nil {
			s.logger.Warn("adjustment fan-out failed", zap.Error(err))
		}
	})
	s.every(ctx, s.cfg.SweepInterval, func(ctx context.Context) {
		_, _ = s.Sweep(ctx)
	})
}

// Stop halts the loops and the queue workers.
func (s *CareScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.loops.Wait()
	s.queue.Stop()
}

func (s *CareScheduler) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// EnqueueAll pages through active owners and queues one job of kind per owner.
// Owners whose previous job is still outstanding are skipped.
func (s *CareScheduler) EnqueueAll(ctx context.Context, kind jobs.Kind) (int, error) {
	queued := 0
	after := ""
	for {
		ids, err := s.owners.ListActiveOwnerIDs(ctx, after, s.cfg.BatchSize)
		if err != nil {
			return queued, fmt.Errorf("list owners: %w", err)
		}
		for _, id := range ids {
			err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Kind: kind, OwnerID: id})
			switch {
			case err == nil:
				queued++
			case errors.Is(err, jobs.ErrDuplicate):
				s.logger.Debug("owner job already queued", zap.String("kind", string(kind)), zap.String("owner_id", id))
			default:
				return queued, err
			}
		}
		if len(ids) < s.cfg.BatchSize {
			return queued, nil
		}
		after = ids[len(ids)-1]
	}
}

// RunOnce queues a pass for every owner and waits for the queue to drain.
// When the queue is idle its workers run only for the duration of the call.
func (s *CareScheduler) RunOnce(ctx context.Context, kind jobs.Kind) (int, error) {
	if !s.queue.Running() {
		s.queue.Start(ctx)
		defer s.queue.Stop()
	}
	queued, err := s.EnqueueAll(ctx, kind)
	if err != nil {
		return queued, err
	}
	return queued, s.queue.Drain(ctx)
}

// Sweep runs the missed-event sweep immediately.
func (s *CareScheduler) Sweep(ctx context.Context) (*models.SweepReport, error) {
	report, err := s.sweeper.SweepMissed(ctx, s.now())
	s.metrics.RecordJob(sweepJobKind, err)
	if err != nil {
		s.logger.Error("missed sweep failed", zap.Error(err))
	}
	return report, err
}

// Queue exposes the underlying queue for lifecycle control by one-shot callers.
func (s *CareScheduler) Queue() *jobs.Queue {
	return s.queue
}

func (s *CareScheduler) handle(ctx context.Context, job jobs.Job) error {
	var err error
	switch job.Kind {
	case jobs.KindGenerate:
		_, err = s.generation.RunForOwner(ctx, job.OwnerID)
	case jobs.KindAdjust:
		_, err = s.adjuster.Run(ctx, job.OwnerID)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}
	s.metrics.RecordJob(string(job.Kind), err)
	return err
}
