package sweep

import "context"

// Strategy encapsulates the command sequence and synchronization needed to
// acquire complete sweeps for one acquisition-bandwidth value. The engine is
// generic over the two variants: trigger-and-poll and continuous streaming.
//
// Setup runs once before the bandwidth loop, Teardown once after it.
// Acquire runs once per bandwidth value, after the engine has configured the
// instrument, and returns exactly count results on success.
type Strategy interface {
	Setup(ctx context.Context) error
	Acquire(ctx context.Context, count int) ([]Result, error)
	Teardown(ctx context.Context) error
}
