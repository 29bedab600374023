package enum

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runPass fans the entries out over a bounded worker pool and blocks until
// every outcome has been published. The pool size is the only backpressure
// mechanism: candidates not yet dispatched wait for a free slot. A failing
// probe never aborts the pool or its siblings.
func (e *Engine) runPass(ctx context.Context, cfg Config, entries []retryEntry) {
	var g errgroup.Group
	g.SetLimit(cfg.Workers)

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if e.limiter != nil {
				if err := e.limiter.Wait(ctx); err != nil {
					e.publish(Outcome{
						Username: entry.Username,
						Attempt:  entry.Attempt,
						Kind:     KindInfraFailure,
						Err:      err,
					})
					return nil
				}
			}
			e.publish(e.probe(ctx, cfg, entry.Username, entry.Attempt))
			return nil
		})
	}
	g.Wait()
}

// publish records one outcome under the state lock and then emits the
// progress event. Infrastructure failures on the first pass queue a single
// retry; on the retry pass they are permanent.
func (e *Engine) publish(out Outcome) {
	switch out.Kind {
	case KindValid:
		if e.state.addValid(out.Address) {
			e.log.Info().Str("user", out.Address).Int("attempt", out.Attempt).Msg("found valid user")
		}
	case KindAmbiguous:
		e.log.Warn().Str("user", out.Username).Str("response", out.Response).Msg("ambiguous response")
		e.state.addTrace("ambiguous response for " + out.Username + ": " + out.Response)
	case KindInfraFailure:
		e.log.Debug().Err(out.Err).Str("user", out.Username).Int("attempt", out.Attempt).Msg("probe failed")
		if out.Attempt == 0 {
			e.state.addRetry(out.Username, out.Attempt+1)
		} else {
			e.state.addFailed(out.Username)
		}
	case KindInvalid:
		e.log.Debug().Str("user", out.Username).Int("attempt", out.Attempt).Msg("user rejected")
	}

	if e.onProgress != nil {
		e.onProgress(ProgressEvent{Username: out.Username, Attempt: out.Attempt, Kind: out.Kind})
	}
}
