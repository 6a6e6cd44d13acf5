package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Cycler runs one sync cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (*CycleResult, error)
}

// Poller repeats cycles at a fixed interval until its context is cancelled.
type Poller struct {
	cycler   Cycler
	interval time.Duration
	logger   *zerolog.Logger
}

func NewPoller(cycler Cycler, interval time.Duration, logger *zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Poller{cycler: cycler, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. Cancellation is only observed between
// cycles: a running cycle always completes.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info().Msg("Watching for booking updates... (Press Ctrl+C to stop)")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		if ctx.Err() != nil {
			p.logger.Info().Msg("Stopped watching.")
			return
		}

		if _, err := p.cycler.RunCycle(context.WithoutCancel(ctx)); err != nil {
			p.logger.Error().Err(err).Msg("sync cycle failed")
		}
		timer.Reset(p.interval)
	}
}
