package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"pds_backend/internal/logger"
	"pds_backend/pkg/metrics"
)

const defaultInterval = 24 * time.Hour

// ServiceParams configure the worker service.
type ServiceParams struct {
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service runs every registered job once at start and then on a fixed interval.
type Service struct {
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) *Service {
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	lock := params.Lock
	if lock == nil {
		lock = NoopLock{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		registry: registry,
		lock:     lock,
		metrics:  params.Metrics,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled. Cancellation is a clean stop and returns nil.
func (s *Service) Run(ctx context.Context) error {
	logger.Info("worker service started", "interval", s.interval.String(), "jobs", len(s.registry.Jobs()))
	if err := s.RunCycle(ctx); err != nil {
		logger.Error("scheduled run failed", "error", err.Error())
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker service stopped")
			return nil
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				logger.Error("scheduled run failed", "error", err.Error())
			}
		}
	}
}

// RunCycle executes every job once under the lock. A failing job does not stop
// the others; all failures are combined into the returned error.
func (s *Service) RunCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		logger.Info("another instance holds the worker lock; skipping cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			logger.Error("failed to release worker lock", "error", relErr.Error())
		}
	}()

	var errs error
	for _, job := range s.registry.Jobs() {
		if err := s.runJob(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return errs
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprint("panic: ", r))
		}
		duration := time.Since(start)
		s.metrics.ObserveDuration(job.Name(), duration)
		if err != nil {
			s.metrics.IncFailure(job.Name())
		} else {
			s.metrics.IncSuccess(job.Name())
		}
		logger.JobLog(job.Name(), duration, err)
	}()
	return job.Run(ctx)
}
