// Package crfsearch finds the highest SVT-AV1 crf that still meets a VMAF
// target and a size budget, by encoding short samples instead of the whole
// input.
//
// Basic usage:
//
//	searcher, err := crfsearch.New(
//	    crfsearch.WithPreset(8),
//	    crfsearch.WithMinVMAF(95),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := searcher.Search(ctx, "input.mkv", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("crf %d VMAF %.2f (%.0f%%)\n",
//	    result.CRF, result.VMAF, result.EncodedPercent)
package crfsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/five82/crfsearch/internal/config"
	coreerrors "github.com/five82/crfsearch/internal/errors"
	"github.com/five82/crfsearch/internal/ffprobe"
	"github.com/five82/crfsearch/internal/logging"
	"github.com/five82/crfsearch/internal/reporter"
	"github.com/five82/crfsearch/internal/sample"
	"github.com/five82/crfsearch/internal/search"
)

// Reporter receives search events.
type Reporter = reporter.Reporter

// InfeasibleError is returned when no crf in range meets both targets.
type InfeasibleError = search.InfeasibleError

// Searcher runs crf searches with a fixed configuration.
type Searcher struct {
	config    *config.Config
	newProber func(input string, cfg *config.Config) prober
}

// prober is a search.Prober that can describe its input and owns
// temporary files.
type prober interface {
	search.Prober
	Info(ctx context.Context) (*ffprobe.InputInfo, error)
	Close() error
}

// Result is the prediction for the chosen crf.
type Result struct {
	InputFile      string
	Preset         uint8
	CRF            int
	Samples        int
	VMAF           float64
	PredictedSize  uint64
	EncodedPercent float64
	PredictedTime  time.Duration
}

// Option configures the searcher.
type Option func(*config.Config)

// New creates a new Searcher with the given options.
func New(opts ...Option) (*Searcher, error) {
	cfg := config.NewConfig("")
	for _, opt := range opts {
		opt(cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Searcher from a complete configuration.
func NewWithConfig(cfg *config.Config) (*Searcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Searcher{config: cfg, newProber: newSampler}, nil
}

func newSampler(input string, cfg *config.Config) prober {
	return sample.New(input, sample.Options{
		Preset:         cfg.SVTAV1Preset,
		PixelFormat:    cfg.PixelFormat,
		SvtParams:      cfg.SvtParams,
		SampleDuration: cfg.SampleDuration,
		TempDir:        cfg.TempDir,
		Keep:           cfg.KeepSamples,
		Responsive:     cfg.ResponsiveEncoding,
	})
}

// WithPreset sets the SVT-AV1 preset (0-13).
func WithPreset(preset uint8) Option {
	return func(c *config.Config) {
		c.SVTAV1Preset = preset
	}
}

// WithMinVMAF sets the minimum acceptable VMAF.
func WithMinVMAF(vmaf float64) Option {
	return func(c *config.Config) {
		c.MinVMAF = vmaf
	}
}

// WithMaxEncodedPercent sets the largest acceptable predicted size as a
// percentage of the input.
func WithMaxEncodedPercent(percent float64) Option {
	return func(c *config.Config) {
		c.MaxEncodedPercent = percent
	}
}

// WithCRFRange sets the inclusive crf range to search.
func WithCRFRange(minCRF, maxCRF uint8) Option {
	return func(c *config.Config) {
		c.MinCRF = minCRF
		c.MaxCRF = maxCRF
	}
}

// WithSamples sets the number of samples used by full probes.
func WithSamples(n int) Option {
	return func(c *config.Config) {
		c.Samples = n
	}
}

// WithSampleDuration sets the length of each sample.
func WithSampleDuration(d time.Duration) Option {
	return func(c *config.Config) {
		c.SampleDuration = d.Seconds()
	}
}

// WithSvtParams passes extra colon separated SVT-AV1 parameters to sample encodes.
func WithSvtParams(params string) Option {
	return func(c *config.Config) {
		c.SvtParams = params
	}
}

// WithTempDir sets where sample files are written.
func WithTempDir(dir string) Option {
	return func(c *config.Config) {
		c.TempDir = dir
	}
}

// WithResponsive runs ffmpeg at a lower priority.
func WithResponsive() Option {
	return func(c *config.Config) {
		c.ResponsiveEncoding = true
	}
}

// WithKeepSamples keeps the sample directory after the search.
func WithKeepSamples() Option {
	return func(c *config.Config) {
		c.KeepSamples = true
	}
}

// Search finds the best crf for input. Infeasible searches return an
// *InfeasibleError; rep may be nil.
func (s *Searcher) Search(ctx context.Context, input string, rep Reporter) (*Result, error) {
	cfg := *s.config
	cfg.InputFile = input
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	p := s.newProber(input, &cfg)
	defer closeProber(p)

	sc := cfg.SearchConfig()
	ctl, err := search.NewController(sc, p, rep)
	if err != nil {
		return nil, err
	}

	rep.SearchStarted(reporter.SearchStartInfo{
		InputFile:         input,
		Preset:            sc.Preset,
		MinVMAF:           sc.MinVMAF,
		MaxEncodedPercent: sc.MaxEncodedPercent,
		MinCRF:            sc.MinCRF,
		MaxCRF:            sc.MaxCRF,
		Samples:           sc.Samples,
	})
	logging.Info("Starting crf search", "input", input, "preset", sc.Preset,
		"min_vmaf", sc.MinVMAF, "max_encoded_percent", sc.MaxEncodedPercent,
		"crf_range", fmt.Sprintf("%d-%d", sc.MinCRF, sc.MaxCRF))

	if err := inspect(ctx, p, rep); err != nil {
		reportFailure(rep, sc, err)
		return nil, err
	}

	attempt, err := ctl.Search(ctx)
	if err != nil {
		reportFailure(rep, sc, err)
		return nil, err
	}

	result := newResult(input, sc.Preset, attempt)
	rep.SearchComplete(result.summary())
	return result, nil
}

// SampleEncode runs a single probe at crf and returns its prediction.
func (s *Searcher) SampleEncode(ctx context.Context, input string, crf uint8, rep Reporter) (*Result, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	if crf > config.MaxCRF {
		err := fmt.Errorf("%w: crf must be 0-%d, got %d", config.ErrInvalidCRF, config.MaxCRF, crf)
		rep.Error(reporter.ReporterError{Title: "Invalid crf", Message: err.Error(), Context: input})
		return nil, err
	}

	cfg := *s.config
	cfg.InputFile = input

	p := s.newProber(input, &cfg)
	defer closeProber(p)

	sc := cfg.SearchConfig()
	ctl, err := search.NewController(sc, p, rep)
	if err != nil {
		return nil, err
	}

	logging.Info("Sample encoding", "input", input, "crf", crf, "samples", sc.Samples)
	if err := inspect(ctx, p, rep); err != nil {
		reportFailure(rep, sc, err)
		return nil, err
	}

	attempt, err := ctl.Sample(ctx, int(crf))
	if err != nil {
		reportFailure(rep, sc, err)
		return nil, err
	}

	result := newResult(input, sc.Preset, attempt)
	rep.SampleComplete(result.summary())
	return result, nil
}

// inspect probes the input before any sample is cut.
func inspect(ctx context.Context, p prober, rep Reporter) error {
	info, err := p.Info(ctx)
	if err != nil {
		return err
	}
	rep.Verbose(info.Describe())
	if info.Video.HDRInfo.IsHDR {
		rep.Warning("Input is HDR; VMAF models are trained on SDR content so scores are approximate")
	}
	return nil
}

func newResult(input string, preset uint8, a search.Attempt) *Result {
	return &Result{
		InputFile:      input,
		Preset:         preset,
		CRF:            a.CRF,
		Samples:        a.Samples,
		VMAF:           a.VMAF,
		PredictedSize:  a.PredictedSize,
		EncodedPercent: a.EncodedPercent,
		PredictedTime:  a.PredictedTime,
	}
}

func (r *Result) summary() reporter.SearchResult {
	return reporter.SearchResult{
		InputFile:      r.InputFile,
		Preset:         r.Preset,
		CRF:            r.CRF,
		VMAF:           r.VMAF,
		PredictedSize:  r.PredictedSize,
		EncodedPercent: r.EncodedPercent,
		PredictedTime:  r.PredictedTime,
	}
}

func closeProber(p prober) {
	if err := p.Close(); err != nil {
		logging.Warn("Failed to clean up samples", "error", err)
	}
}

// reportFailure sends err to rep as a search failure or an error.
func reportFailure(rep Reporter, sc search.Config, err error) {
	var infeasible *search.InfeasibleError
	if errors.As(err, &infeasible) {
		last := infeasible.Attempt.Summary(sc)
		rep.SearchFailed(reporter.SearchFailure{Last: &last, Reason: infeasible.Reason})
		return
	}

	if coreerrors.IsCancelled(err) {
		rep.Warning("Search cancelled")
		return
	}

	rep.Error(reporter.ReporterError{
		Title:      "Search failed",
		Message:    err.Error(),
		Context:    sc.Input,
		Suggestion: suggestion(err),
	})
}

func suggestion(err error) string {
	switch {
	case hasKind(err, coreerrors.KindNoVideoStream):
		return "Check that the input contains a video stream"
	case hasKind(err, coreerrors.KindFFprobeParse):
		return "Check that the input is a readable media file"
	case hasKind(err, coreerrors.KindCommand), hasKind(err, coreerrors.KindFFmpeg):
		return "Check that ffmpeg is installed with libsvtav1 and libvmaf support"
	case hasKind(err, coreerrors.KindTask):
		return "This is a bug, please report it"
	default:
		return ""
	}
}

// hasKind reports whether any error in the chain has kind. Probe errors wrap
// the command error that caused them, so IsKind alone stops too early.
func hasKind(err error, kind coreerrors.ErrorKind) bool {
	return errors.Is(err, &coreerrors.CoreError{Kind: kind})
}
