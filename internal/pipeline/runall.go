package pipeline

import (
	"context"
	"sync"
)

// CenterTarget pairs a center name with its input container id, as read
// from the centerMapping table.
type CenterTarget struct {
	Center      string
	ContainerID string
}

// RunAll runs every target's pipeline under limiter's concurrency cap,
// collecting each center's result independently — one center's fatal
// failure does not stop the others, per §7's "per-center failures never
// abort the run" propagation policy.
func RunAll(ctx context.Context, p *Pipeline, limiter *CenterLimiter, targets []CenterTarget, opts Options) []CenterOutcome {
	outcomes := make([]CenterOutcome, len(targets))
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target CenterTarget) {
			defer wg.Done()

			if err := limiter.Acquire(ctx); err != nil {
				outcomes[i] = CenterOutcome{Center: target.Center, Err: err}
				return
			}
			defer limiter.Release()

			result, err := p.RunCenter(ctx, target.Center, target.ContainerID, opts)
			outcomes[i] = CenterOutcome{Center: target.Center, Result: result, Err: err}
		}(i, target)
	}

	wg.Wait()
	return outcomes
}

// CenterOutcome is one center's result from a RunAll call.
type CenterOutcome struct {
	Center string
	Result CenterResult
	Err    error
}
