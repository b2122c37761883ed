// Package sample implements the sample-encode measurement used by the crf
// search: short samples of the input are encoded with SVT-AV1 and scored
// with VMAF to predict the quality, size and duration of a full encode.
package sample

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	coreerrors "github.com/five82/crfsearch/internal/errors"
	"github.com/five82/crfsearch/internal/ffmpeg"
	"github.com/five82/crfsearch/internal/ffprobe"
	"github.com/five82/crfsearch/internal/logging"
	"github.com/five82/crfsearch/internal/search"
	"github.com/five82/crfsearch/internal/util"
	"golang.org/x/sync/errgroup"
)

// Default sampling settings.
const (
	DefaultSampleDuration = 20.0
	DefaultPixelFormat    = "yuv420p10le"

	// Each sample advances probe progress by passUnits for the encode and
	// passUnits for the VMAF pass.
	passUnits = 100

	// Inputs wider than this are scored with the 4k VMAF model.
	vmaf4kMinWidth = 2560
	vmaf4kModel    = "vmaf_4k_v0.6.1"
)

// Options configures a Sampler.
type Options struct {
	Preset         uint8
	PixelFormat    string
	SvtParams      string
	SampleDuration float64 // Seconds per sample
	TempDir        string  // Parent of the work directory, defaults to the system temp dir
	Keep           bool    // Keep the work directory on Close
	Responsive     bool    // Lower the priority of ffmpeg processes
	ExtractWorkers int     // Concurrent sample extractions, defaults to physical cores
	VMAFThreads    int     // libvmaf threads, defaults to logical cores
}

// Sample is an extracted section of the input's first video stream.
type Sample struct {
	Path string
	Span Span
	Size uint64
}

// fullPassKey caches the whole-stream copy. Requested counts start at 1.
const fullPassKey = 0

// Sampler probes one input. It implements search.Prober.
// Extracted samples are cached for the lifetime of the Sampler.
type Sampler struct {
	input string
	opts  Options

	mu        sync.Mutex
	info      *ffprobe.InputInfo
	workDir   string
	svtParams string
	cache     map[int][]Sample // keyed by requested sample count
}

var _ search.Prober = (*Sampler)(nil)

// New creates a Sampler for input.
func New(input string, opts Options) *Sampler {
	if opts.SampleDuration <= 0 {
		opts.SampleDuration = DefaultSampleDuration
	}
	if opts.PixelFormat == "" {
		opts.PixelFormat = DefaultPixelFormat
	}
	if opts.ExtractWorkers <= 0 {
		opts.ExtractWorkers = max(util.PhysicalCores(), 1)
	}
	if opts.VMAFThreads <= 0 {
		opts.VMAFThreads = util.LogicalCores()
	}
	return &Sampler{
		input: input,
		opts:  opts,
		cache: make(map[int][]Sample),
	}
}

// Info returns the probed input information, running ffprobe on first use.
func (s *Sampler) Info(ctx context.Context) (*ffprobe.InputInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked(ctx)
}

func (s *Sampler) infoLocked(ctx context.Context) (*ffprobe.InputInfo, error) {
	if s.info != nil {
		return s.info, nil
	}
	info, err := ffprobe.GetInputInfo(ctx, s.input)
	if err != nil {
		return nil, err
	}
	s.info = info
	return info, nil
}

// Probe encodes req.Samples samples at req.CRF and predicts the full encode.
func (s *Sampler) Probe(ctx context.Context, req search.ProbeRequest, progress *search.ProbeProgress) (search.ProbeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.infoLocked(ctx)
	if err != nil {
		return search.ProbeResult{}, err
	}

	svt, err := ffmpeg.NewSvtAv1ParamsBuilder().Parse(s.opts.SvtParams)
	if err != nil {
		return search.ProbeResult{}, coreerrors.NewConfigError(err.Error())
	}
	if !svt.IsEmpty() {
		s.svtParams = svt.Build()
	}

	samples, err := s.samplesLocked(ctx, info, req.Samples)
	if err != nil {
		return search.ProbeResult{}, err
	}

	if progress == nil {
		progress = &search.ProbeProgress{}
	}
	progress.SetLength(uint64(len(samples)) * 2 * passUnits)

	measurements := make([]measurement, 0, len(samples))
	for i, smp := range samples {
		base := uint64(i) * 2 * passUnits
		m, err := s.measure(ctx, info, smp, i, req.CRF, base, progress)
		if err != nil {
			return search.ProbeResult{}, err
		}
		measurements = append(measurements, m)
	}

	result := predict(info.Size, info.DurationSecs, measurements)
	logging.Debug("Sampled crf",
		"crf", req.CRF,
		"samples", len(samples),
		"vmaf", result.VMAF,
		"percent", result.EncodedPercent,
		"predicted_size", util.FormatBytes(result.PredictedSize),
		"predicted_time", util.FormatDuration(result.PredictedTime.Seconds()))
	return result, nil
}

// measure encodes and scores one sample.
func (s *Sampler) measure(ctx context.Context, info *ffprobe.InputInfo, smp Sample, idx, crf int, base uint64, progress *search.ProbeProgress) (measurement, error) {
	output := filepath.Join(s.workDir, fmt.Sprintf("sample%d.crf%d.p%d.mkv", idx+1, crf, s.opts.Preset))

	tracker := func(offset uint64) ffmpeg.ProgressCallback {
		return func(p ffmpeg.Progress) {
			progress.Set(base + offset + uint64(p.Fraction*passUnits))
		}
	}

	start := time.Now()
	_, err := ffmpeg.Run(ctx, ffmpeg.EncodeSampleArgs(ffmpeg.EncodeParams{
		Input:       smp.Path,
		Output:      output,
		CRF:         crf,
		Preset:      s.opts.Preset,
		PixelFormat: s.opts.PixelFormat,
		SvtParams:   s.svtParams,
	}), ffmpeg.RunOptions{
		Duration:    smp.Span.Duration,
		OnProgress:  tracker(0),
		LowPriority: s.opts.Responsive,
	})
	if err != nil {
		return measurement{}, err
	}
	encodeTime := time.Since(start)
	progress.Set(base + passUnits)

	encodedSize, err := util.GetFileSize(output)
	if err != nil {
		return measurement{}, coreerrors.NewIOError(fmt.Sprintf("failed to stat encoded sample %s", output), err)
	}

	vmafOpts := ffmpeg.VMAFOptions{
		PixelFormat: s.opts.PixelFormat,
		Threads:     s.opts.VMAFThreads,
	}
	if info.Video.Width > vmaf4kMinWidth {
		vmafOpts.Model = vmaf4kModel
	}
	stderr, err := ffmpeg.Run(ctx, ffmpeg.VMAFArgs(output, smp.Path, vmafOpts), ffmpeg.RunOptions{
		Duration:    smp.Span.Duration,
		OnProgress:  tracker(passUnits),
		LowPriority: s.opts.Responsive,
	})
	if err != nil {
		return measurement{}, err
	}
	vmaf, err := ffmpeg.ParseVMAFScore(stderr)
	if err != nil {
		return measurement{}, err
	}
	progress.Set(base + 2*passUnits)

	if !s.opts.Keep {
		if err := os.Remove(output); err != nil {
			logging.Warn("Failed to remove encoded sample", "path", output, "error", err)
		}
	}

	logging.Debug("Measured sample",
		"sample", idx+1,
		"crf", crf,
		"vmaf", vmaf,
		"size", util.FormatBytes(encodedSize),
		"encode_time", encodeTime)

	return measurement{
		SampleSize:     smp.Size,
		SampleDuration: smp.Span.Duration,
		EncodedSize:    encodedSize,
		EncodeTime:     encodeTime,
		VMAF:           vmaf,
	}, nil
}

// samplesLocked returns the samples for count, extracting them on first use.
func (s *Sampler) samplesLocked(ctx context.Context, info *ffprobe.InputInfo, count int) ([]Sample, error) {
	if cached, ok := s.cache[count]; ok {
		return cached, nil
	}

	if s.workDir == "" {
		dir, err := util.MakeWorkDir(s.opts.TempDir, s.input)
		if err != nil {
			return nil, coreerrors.NewIOError("failed to create work directory", err)
		}
		s.workDir = dir
		logging.Debug("Created work directory", "path", dir)
	}

	plan := planSamples(info.DurationSecs, count, s.opts.SampleDuration)
	if plan.FullPass {
		logging.Debug("Samples cover the whole input, using a full pass", "duration", util.FormatDuration(info.DurationSecs), "samples", count)
		samples, err := s.fullPassLocked(ctx, plan.Spans[0])
		if err != nil {
			return nil, err
		}
		s.cache[count] = samples
		return samples, nil
	}

	samples := make([]Sample, len(plan.Spans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ExtractWorkers)
	for i, span := range plan.Spans {
		i, span := i, span
		g.Go(func() error {
			path := filepath.Join(s.workDir, fmt.Sprintf("sample%d.of%d.mkv", i+1, len(plan.Spans)))
			args := ffmpeg.ExtractSampleArgs(s.input, span.Start, span.Duration, path)
			if _, err := ffmpeg.Run(gctx, args, ffmpeg.RunOptions{LowPriority: s.opts.Responsive}); err != nil {
				return err
			}
			size, err := util.GetFileSize(path)
			if err != nil {
				return coreerrors.NewIOError(fmt.Sprintf("failed to stat sample %s", path), err)
			}
			samples[i] = Sample{Path: path, Span: span, Size: size}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.cache[count] = samples
	return samples, nil
}

// fullPassLocked copies the whole video stream once so a full pass is measured
// against video bytes only, like extracted samples.
func (s *Sampler) fullPassLocked(ctx context.Context, span Span) ([]Sample, error) {
	if cached, ok := s.cache[fullPassKey]; ok {
		return cached, nil
	}

	path := filepath.Join(s.workDir, "video.mkv")
	if _, err := ffmpeg.Run(ctx, ffmpeg.ExtractVideoArgs(s.input, path), ffmpeg.RunOptions{LowPriority: s.opts.Responsive}); err != nil {
		return nil, err
	}
	size, err := util.GetFileSize(path)
	if err != nil {
		return nil, coreerrors.NewIOError(fmt.Sprintf("failed to stat %s", path), err)
	}

	samples := []Sample{{Path: path, Span: span, Size: size}}
	s.cache[fullPassKey] = samples
	return samples, nil
}

// Close removes the work directory unless samples are kept.
func (s *Sampler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workDir == "" {
		return nil
	}
	if s.opts.Keep {
		logging.Info("Keeping samples", "path", s.workDir)
		return nil
	}
	if err := os.RemoveAll(s.workDir); err != nil {
		return coreerrors.NewIOError(fmt.Sprintf("failed to remove %s", s.workDir), err)
	}
	s.workDir = ""
	s.cache = make(map[int][]Sample)
	return nil
}
