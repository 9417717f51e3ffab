package sequencer

import (
	"context"
	"time"
)

// Clock is the only source of time for a turn. Every suspension point of the
// controller goes through Sleep so tests can run turns on virtual time.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on wall time. Scale divides every sleep, so a scale of 4
// plays a turn four times faster; zero or negative means 1.
type RealClock struct {
	Scale float64
}

func (c RealClock) Now() time.Time {
	return time.Now()
}

func (c RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.Scale > 0 && c.Scale != 1 {
		d = time.Duration(float64(d) / c.Scale)
	}
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
