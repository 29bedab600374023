package enum

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ProgressEvent is delivered once per completed probe, from worker
// goroutines, after the outcome has been published to the shared state.
type ProgressEvent struct {
	Username string
	Attempt  int // 0 = first pass, 1 = retry
	Kind     OutcomeKind
}

// Report is the final, immutable result of a run.
type Report struct {
	RunID       string
	Target      string
	Method      Method
	ValidUsers  []string // insertion-ordered, deduplicated
	FailedUsers []string // still failing after the retry pass
	FailedCount int
	Probed      int // probes executed across both passes
	Retried     int
	Elapsed     time.Duration
}

// Options carries the optional collaborators of an Engine. The zero value
// means direct TCP, no logging and no progress reporting.
type Options struct {
	Dialer     ContextDialer
	Logger     *zerolog.Logger
	OnProgress func(ProgressEvent)
	OnRetry    func(count int) // called once before the retry pass starts
}

// Engine drives a full enumeration run: pass one over every candidate, then
// exactly one relaxed pass over the usernames that failed for infrastructure
// reasons.
type Engine struct {
	cfg        Config
	dialer     ContextDialer
	limiter    *rate.Limiter
	log        zerolog.Logger
	onProgress func(ProgressEvent)
	onRetry    func(int)
	state      *enumerationState
	runID      string
}

// New validates the configuration and builds an engine. A bad configuration
// is the only error surfaced here; everything that can go wrong per-probe is
// reported through Outcomes instead.
func New(cfg Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		dialer:     opts.Dialer,
		onProgress: opts.OnProgress,
		onRetry:    opts.OnRetry,
		state:      newEnumerationState(),
		runID:      uuid.New().String(),
	}
	if e.dialer == nil {
		e.dialer = &net.Dialer{}
	}
	if opts.Logger != nil {
		e.log = opts.Logger.With().Str("run_id", e.runID).Logger()
	} else {
		e.log = zerolog.Nop()
	}
	if cfg.Rate > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return e, nil
}

// RunID identifies this run in logs and in the optional result store.
func (e *Engine) RunID() string { return e.runID }

// ValidUsers returns a snapshot of the confirmed addresses found so far,
// safe to call while the run is in flight.
func (e *Engine) ValidUsers() []string { return e.state.snapshotValid() }

// FailedCount returns the number of usernames that have failed permanently.
func (e *Engine) FailedCount() int { return e.state.failedCount() }

// TraceLog returns the ordered protocol trace collected in debug mode.
func (e *Engine) TraceLog() []string { return e.state.snapshotTrace() }

// tracef records one protocol-step line when debug mode is on.
func (e *Engine) tracef(format string, args ...any) {
	if !e.cfg.Debug {
		return
	}
	line := fmt.Sprintf(format, args...)
	e.state.addTrace(line)
	e.log.Debug().Msg(line)
}

// Run executes both passes over the candidate usernames and returns the
// finalized report. The retry pass does not start until the first pass has
// fully drained, since its candidate list is derived from the first pass's
// complete outcome set.
func (e *Engine) Run(ctx context.Context, usernames []string) (Report, error) {
	start := time.Now()
	e.log.Info().
		Str("target", e.cfg.addr()).
		Str("method", string(e.cfg.Method)).
		Int("users", len(usernames)).
		Int("workers", e.cfg.Workers).
		Msg("starting enumeration")

	entries := make([]retryEntry, 0, len(usernames))
	for _, u := range usernames {
		entries = append(entries, retryEntry{Username: u})
	}
	e.runPass(ctx, e.cfg, entries)

	retries := e.state.takeRetries()
	if len(retries) > 0 {
		rcfg := e.cfg.retryConfig()
		e.log.Warn().
			Int("users", len(retries)).
			Int("workers", rcfg.Workers).
			Dur("timeout", rcfg.Timeout).
			Msg("retrying failed users with slower settings")
		if e.onRetry != nil {
			e.onRetry(len(retries))
		}
		e.runPass(ctx, rcfg, retries)
	}

	report := Report{
		RunID:       e.runID,
		Target:      e.cfg.addr(),
		Method:      e.cfg.Method,
		ValidUsers:  e.state.snapshotValid(),
		FailedUsers: e.state.snapshotFailed(),
		FailedCount: e.state.failedCount(),
		Probed:      len(usernames) + len(retries),
		Retried:     len(retries),
		Elapsed:     time.Since(start),
	}
	e.log.Info().
		Int("valid", len(report.ValidUsers)).
		Int("failed", report.FailedCount).
		Dur("elapsed", report.Elapsed).
		Msg("enumeration complete")
	return report, nil
}
