// Package expiry periodically closes appeal cases whose session lapsed
// without ever receiving the user's text.
package expiry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
)

type sweeper interface {
	ExpireStale(ctx context.Context, now time.Time) ([]model.Instruction, error)
}

// Dispatcher hands the sweep's notifications to the messaging layer.
type Dispatcher interface {
	Dispatch(ctx context.Context, instructions []model.Instruction) error
}

type Job struct {
	appeals    sweeper
	dispatcher Dispatcher
	interval   time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func New(appeals sweeper, dispatcher Dispatcher, interval time.Duration, logger *zap.Logger) *Job {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		appeals:    appeals,
		dispatcher: dispatcher,
		interval:   interval,
		now:        time.Now,
		logger:     logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.appeals == nil {
		return nil
	}

	instructions, err := j.appeals.ExpireStale(ctx, j.now())
	if err != nil {
		return fmt.Errorf("expire stale appeals: %w", err)
	}
	if len(instructions) == 0 {
		return nil
	}

	if j.dispatcher != nil {
		if err := j.dispatcher.Dispatch(ctx, instructions); err != nil {
			j.logger.Warn("failed to dispatch expiry notifications", zap.Error(err))
		}
	}

	j.logger.Info("appeal expiry sweep completed", zap.Int("expired", len(instructions)))
	return nil
}

// RunLoop sweeps once immediately, then on every tick until the context ends.
func (j *Job) RunLoop(ctx context.Context) error {
	if err := j.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				return err
			}
		}
	}
}
