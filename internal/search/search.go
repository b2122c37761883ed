// Package search implements the adaptive crf search: it probes candidate crf
// values with a sample-encode prober and narrows the range using VMAF feedback
// until it finds the highest crf meeting the quality and size targets.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	coreerrors "github.com/five82/crfsearch/internal/errors"
	"github.com/five82/crfsearch/internal/logging"
	"github.com/five82/crfsearch/internal/reporter"
)

// Default tunables.
const (
	// DefaultToleranceStep is how far above MinVMAF a result may be, per run,
	// and still be accepted once the size target is met.
	DefaultToleranceStep = 0.2

	// DefaultPollInterval is how often probe progress is published.
	DefaultPollInterval = 100 * time.Millisecond
)

// Prober sample-encodes the input at one crf and predicts the full encode.
// Implementations may update progress while running.
type Prober interface {
	Probe(ctx context.Context, req ProbeRequest, progress *ProbeProgress) (ProbeResult, error)
}

// Controller runs one crf search. Exactly one probe is in flight at a time.
type Controller struct {
	cfg           Config
	prober        Prober
	rep           reporter.Reporter
	clock         clock.Clock
	pollInterval  time.Duration
	toleranceStep float64
	quickThirdRun bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock driving progress polling.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithPollInterval sets how often probe progress is published.
func WithPollInterval(d time.Duration) Option {
	return func(ctl *Controller) { ctl.pollInterval = d }
}

// WithToleranceStep sets the per-run VMAF tolerance of the convergence shortcut.
func WithToleranceStep(step float64) Option {
	return func(ctl *Controller) { ctl.toleranceStep = step }
}

// WithQuickThirdRun enables or disables one-sample third runs on a crf bound.
func WithQuickThirdRun(enabled bool) Option {
	return func(ctl *Controller) { ctl.quickThirdRun = enabled }
}

// NewController validates cfg and creates a controller.
// A nil reporter discards all updates.
func NewController(cfg Config, prober Prober, rep reporter.Reporter, opts ...Option) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if prober == nil {
		return nil, coreerrors.NewConfigError("no prober configured")
	}
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	ctl := &Controller{
		cfg:           cfg,
		prober:        prober,
		rep:           rep,
		clock:         clock.New(),
		pollInterval:  DefaultPollInterval,
		toleranceStep: DefaultToleranceStep,
		quickThirdRun: true,
	}
	for _, opt := range opts {
		opt(ctl)
	}
	return ctl, nil
}

// Config returns the search parameters.
func (c *Controller) Config() Config {
	return c.cfg
}

// Search probes crf values until one satisfies both targets, or until it is
// clear none can. Infeasible searches return an *InfeasibleError.
func (c *Controller) Search(ctx context.Context) (Attempt, error) {
	defer c.rep.ProgressFinished()

	var (
		attempts history
		progress ProbeProgress
		quick    bool
	)
	crf := midpoint(c.cfg.MinCRF, c.cfg.MaxCRF)

	for run := 1; ; run++ {
		if ctx.Err() != nil {
			return Attempt{}, coreerrors.NewCancelledError()
		}

		samples := c.cfg.Samples
		switch {
		case run <= 2:
			samples = 1
		case run == 3 && c.quickThirdRun && (crf == c.cfg.MinCRF || crf == c.cfg.MaxCRF):
			samples = 1
			quick = true
		}

		logging.Debug("Probing crf", "run", run, "crf", crf, "samples", samples)
		estimate := func() float64 { return EstimateProgress(run, progress.Fraction(), quick) }
		result, err := c.probe(ctx, ProbeRequest{CRF: crf, Samples: samples}, &progress, estimate)
		if err != nil {
			logging.Warn("Probe failed", "crf", crf, "error", err)
			return Attempt{}, err
		}

		attempt := Attempt{CRF: crf, Samples: samples, ProbeResult: result}
		attempts = append(attempts, attempt)
		c.rep.AttemptComplete(attempt.Summary(c.cfg))
		logging.Debug("Probe complete", "crf", crf, "vmaf", result.VMAF, "percent", result.EncodedPercent)

		next, accepted, err := c.next(attempts, attempt, run)
		if err != nil {
			return Attempt{}, err
		}
		if accepted != nil {
			logging.Info("Search converged", "crf", accepted.CRF, "vmaf", accepted.VMAF, "runs", run)
			return *accepted, nil
		}
		logging.Debug("Next candidate", "crf", next)
		crf = next
	}
}

// next decides what to do after attempt. It returns either the next crf to
// probe, an accepted attempt or an error.
func (c *Controller) next(attempts history, attempt Attempt, run int) (int, *Attempt, error) {
	cfg := c.cfg

	if attempt.VMAF >= cfg.MinVMAF {
		tolerance := float64(run) * c.toleranceStep
		if run > 2 && attempt.EncodedPercent < cfg.MaxEncodedPercent && attempt.VMAF < cfg.MinVMAF+tolerance {
			return 0, &attempt, nil
		}

		upper, ok := attempts.upperNeighbor(attempt.CRF)
		switch {
		case ok && upper.CRF == attempt.CRF+1:
			return 0, &attempt, nil
		case ok:
			return vmafLerpCRF(cfg.MinVMAF, upper, attempt), nil, nil
		case attempt.CRF == cfg.MaxCRF:
			return 0, &attempt, nil
		case run == 1 && attempt.CRF+1 < cfg.MaxCRF:
			return midpoint(attempt.CRF, cfg.MaxCRF), nil, nil
		default:
			return cfg.MaxCRF, nil, nil
		}
	}

	if attempt.EncodedPercent > cfg.MaxEncodedPercent || attempt.CRF == cfg.MinCRF {
		err := newInfeasibleError(cfg, attempt)
		logging.Info("Search infeasible", "reason", err.Reason)
		return 0, nil, err
	}

	lower, ok := attempts.lowerNeighbor(attempt.CRF)
	switch {
	case ok && lower.CRF+1 == attempt.CRF:
		return 0, &lower, nil
	case ok:
		return vmafLerpCRF(cfg.MinVMAF, attempt, lower), nil, nil
	case run == 1 && attempt.CRF > cfg.MinCRF+1:
		return midpoint(cfg.MinCRF, attempt.CRF), nil, nil
	default:
		return cfg.MinCRF, nil, nil
	}
}

type probeOutcome struct {
	result ProbeResult
	err    error
}

// Sample runs a single probe at crf with the configured sample count,
// reporting the probe's own progress.
func (c *Controller) Sample(ctx context.Context, crf int) (Attempt, error) {
	defer c.rep.ProgressFinished()

	if crf < 0 {
		return Attempt{}, coreerrors.NewConfigError(fmt.Sprintf("invalid crf %d", crf))
	}

	var progress ProbeProgress
	req := ProbeRequest{CRF: crf, Samples: c.cfg.Samples}
	result, err := c.probe(ctx, req, &progress, func() float64 {
		return progress.Fraction() * ProgressScale
	})
	if err != nil {
		return Attempt{}, err
	}

	attempt := Attempt{CRF: crf, Samples: req.Samples, ProbeResult: result}
	c.rep.AttemptComplete(attempt.Summary(c.cfg))
	return attempt, nil
}

// probe runs one probe in its own goroutine and publishes the position
// returned by estimate on every poll tick until the probe resolves.
func (c *Controller) probe(ctx context.Context, req ProbeRequest, progress *ProbeProgress, estimate func() float64) (ProbeResult, error) {
	progress.Reset()
	defer progress.Reset()

	ticker := c.clock.Ticker(c.pollInterval)
	defer ticker.Stop()

	done := make(chan probeOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- probeOutcome{err: coreerrors.NewTaskError(req.CRF, fmt.Errorf("probe panicked: %v", r))}
			}
		}()
		result, err := c.prober.Probe(ctx, req, progress)
		done <- probeOutcome{result: result, err: err}
	}()

	message := fmt.Sprintf("sampling crf %d", req.CRF)
	for {
		select {
		case out := <-done:
			switch {
			case out.err == nil:
				return out.result, nil
			case coreerrors.IsKind(out.err, coreerrors.KindTask):
				return ProbeResult{}, out.err
			case ctx.Err() != nil:
				return ProbeResult{}, coreerrors.NewCancelledError()
			default:
				return ProbeResult{}, coreerrors.NewProbeError(req.CRF, out.err)
			}
		case <-ctx.Done():
			return ProbeResult{}, coreerrors.NewCancelledError()
		case <-ticker.C:
			c.rep.SearchProgress(reporter.SearchProgress{
				Position: uint64(estimate()),
				Length:   reporter.ProgressLength,
				Message:  message,
			})
		}
	}
}
