package core

import (
	"context"
	"time"
)

// Latency simulates the round trip of a remote API call.
type Latency interface {
	// Wait blocks for the simulated delay. It returns ctx.Err() if ctx is done first.
	Wait(ctx context.Context) error
}

// FixedLatency waits the same duration on every call.
type FixedLatency time.Duration

// NoLatency resolves immediately.
const NoLatency = FixedLatency(0)

var _ Latency = FixedLatency(0)

func (l FixedLatency) Wait(ctx context.Context) error {
	if l <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(l))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
