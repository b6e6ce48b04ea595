package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tech-arch1tect/votegate/services/logging"
	"go.uber.org/zap"
)

// Sweeper deletes PENDING records whose expiry window has passed.
type Sweeper struct {
	store    Store
	clock    Clock
	expiry   time.Duration
	schedule string
	observer Observer
	logger   *logging.Service
	cron     *cron.Cron
}

func NewSweeper(store Store, clock Clock, expiry time.Duration, schedule string, observer Observer, logger *logging.Service) *Sweeper {
	if clock == nil {
		clock = SystemClock()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Sweeper{
		store:    store,
		clock:    clock,
		expiry:   expiry,
		schedule: schedule,
		observer: observer,
		logger:   logger,
	}
}

func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteExpired(ctx, s.clock.Now().Add(-s.expiry))
	s.observer.ObserveSweep(deleted, err)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("otp sweep failed", zap.Error(err))
		}
		return 0, err
	}
	if deleted > 0 && s.logger != nil {
		s.logger.Info("otp sweep removed expired records", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func (s *Sweeper) Start() error {
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		_, _ = s.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c

	if s.logger != nil {
		s.logger.Info("otp sweeper started", zap.String("schedule", s.schedule))
	}
	return nil
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop().Done()
	s.cron = nil

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
