package telemetry

import (
	"context"
	"time"
)

// Sampler is a thin, fixed-cadence stand-in for the real media-pipeline
// telemetry producer (out of scope per §1). It exists so local development
// and integration tests have a live frame source without a running OBS
// instance; it carries no correctness obligations of its own.
type Sampler struct {
	Cell     *Cell
	Interval time.Duration
	Next     func() Frame
}

// Run publishes frames on Interval until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Next != nil {
				s.Cell.Store(s.Next())
			}
		}
	}
}
