// Package main provides the CLI entry point for crfsearch.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/crfsearch"
	"github.com/five82/crfsearch/internal/config"
	"github.com/five82/crfsearch/internal/logging"
	"github.com/five82/crfsearch/internal/reporter"
	"github.com/five82/crfsearch/internal/util"
)

const (
	appName    = "crfsearch"
	appVersion = "0.1.0"
)

func main() {
	os.Exit(execute(newRootCmd(), os.Stderr))
}

// execute runs root and returns the exit code. Errors the reporter has not
// shown are printed to stderr.
func execute(root *cobra.Command, stderr io.Writer) int {
	if err := root.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// reportedError marks a failure the reporter has already shown.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Find the highest SVT-AV1 crf that meets a VMAF target",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSearchCmd(), newSampleCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
		},
	}
}

// commonFlags are shared by search and sample.
type commonFlags struct {
	input          string
	configFile     string
	logDir         string
	tempDir        string
	eventsFile     string
	svtParams      string
	pixFmt         string
	preset         uint8
	samples        int
	sampleDuration float64
	json           bool
	verbose        bool
	responsive     bool
	keep           bool
}

type searchFlags struct {
	commonFlags
	minVMAF    float64
	maxPercent float64
	minCRF     uint8
	maxCRF     uint8
}

type sampleFlags struct {
	commonFlags
	crf uint8
}

func (f *commonFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.input, "input", "i", "", "Input video file")
	fs.StringVar(&f.configFile, "config", "", "YAML file with default settings")
	fs.StringVarP(&f.logDir, "log-dir", "l", "", "Write a debug log to this directory")
	fs.StringVar(&f.tempDir, "temp-dir", "", "Directory for sample files (defaults to the system temp dir)")
	fs.StringVar(&f.eventsFile, "events", "", "Also write NDJSON events to this file")
	fs.StringVar(&f.svtParams, "svt", "", "Extra SVT-AV1 parameters (key=value:key=value)")
	fs.StringVar(&f.pixFmt, "pix-format", config.DefaultPixelFormat, "Pixel format for sample encodes")
	fs.Uint8Var(&f.preset, "preset", config.DefaultSVTAV1Preset, "SVT-AV1 encoder preset (0-13)")
	fs.IntVar(&f.samples, "samples", config.DefaultSamples, "Number of samples per full probe")
	fs.Float64Var(&f.sampleDuration, "sample-duration", config.DefaultSampleDuration, "Length of each sample in seconds")
	fs.BoolVar(&f.json, "json", false, "Print NDJSON events instead of terminal output")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose output")
	fs.BoolVar(&f.responsive, "responsive", false, "Run ffmpeg at a lower priority")
	fs.BoolVar(&f.keep, "keep", false, "Keep sample files after the run")
	_ = cmd.MarkFlagRequired("input")
}

// buildConfig layers defaults, the optional config file and explicitly set flags.
func (f *commonFlags) buildConfig(cmd *cobra.Command) (*config.Config, error) {
	input, err := filepath.Abs(f.input)
	if err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}
	if !util.FileExists(input) {
		return nil, fmt.Errorf("input file does not exist: %s", input)
	}

	cfg := config.NewConfig(input)
	if f.configFile != "" {
		if err := cfg.LoadFile(f.configFile); err != nil {
			return nil, err
		}
	}

	fs := cmd.Flags()
	if fs.Changed("log-dir") {
		cfg.LogDir = f.logDir
	}
	if fs.Changed("temp-dir") {
		cfg.TempDir = f.tempDir
	}
	if fs.Changed("svt") {
		cfg.SvtParams = f.svtParams
	}
	if fs.Changed("pix-format") {
		cfg.PixelFormat = f.pixFmt
	}
	if fs.Changed("preset") {
		cfg.SVTAV1Preset = f.preset
	}
	if fs.Changed("samples") {
		cfg.Samples = f.samples
	}
	if fs.Changed("sample-duration") {
		cfg.SampleDuration = f.sampleDuration
	}
	if fs.Changed("responsive") {
		cfg.ResponsiveEncoding = f.responsive
	}
	if fs.Changed("keep") {
		cfg.KeepSamples = f.keep
	}
	return cfg, nil
}

func newSearchCmd() *cobra.Command {
	return searchCommand(&searchFlags{})
}

func searchCommand(f *searchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for the highest crf meeting the VMAF and size targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.buildSearchConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd, &f.commonFlags, cfg, func(ctx context.Context, s *crfsearch.Searcher, rep reporter.Reporter) error {
				_, err := s.Search(ctx, cfg.InputFile, rep)
				return err
			})
		},
	}

	f.register(cmd)
	fs := cmd.Flags()
	fs.Float64Var(&f.minVMAF, "min-vmaf", config.DefaultMinVMAF, "Minimum acceptable VMAF")
	fs.Float64Var(&f.maxPercent, "max-encoded-percent", config.DefaultMaxEncodedPercent, "Maximum predicted size as a percentage of the input")
	fs.Uint8Var(&f.minCRF, "min-crf", config.DefaultMinCRF, "Lowest crf to try")
	fs.Uint8Var(&f.maxCRF, "max-crf", config.DefaultMaxCRF, "Highest crf to try")
	return cmd
}

func (f *searchFlags) buildSearchConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := f.buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("min-vmaf") {
		cfg.MinVMAF = f.minVMAF
	}
	if fs.Changed("max-encoded-percent") {
		cfg.MaxEncodedPercent = f.maxPercent
	}
	if fs.Changed("min-crf") {
		cfg.MinCRF = f.minCRF
	}
	if fs.Changed("max-crf") {
		cfg.MaxCRF = f.maxCRF
	}
	return cfg, cfg.Validate()
}

func newSampleCmd() *cobra.Command {
	return sampleCommand(&sampleFlags{})
}

func sampleCommand(f *sampleFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Encode samples at one crf and predict the full encode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.crf > config.MaxCRF {
				return fmt.Errorf("%w: crf must be 0-%d, got %d", config.ErrInvalidCRF, config.MaxCRF, f.crf)
			}
			cfg, err := f.buildConfig(cmd)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				return err
			}
			return run(cmd, &f.commonFlags, cfg, func(ctx context.Context, s *crfsearch.Searcher, rep reporter.Reporter) error {
				_, err := s.SampleEncode(ctx, cfg.InputFile, f.crf, rep)
				return err
			})
		},
	}

	f.register(cmd)
	cmd.Flags().Uint8Var(&f.crf, "crf", 0, "crf to sample (0-63)")
	_ = cmd.MarkFlagRequired("crf")
	return cmd
}

type action func(ctx context.Context, s *crfsearch.Searcher, rep reporter.Reporter) error

// run sets up logging, reporting and signal handling around a.
func run(cmd *cobra.Command, f *commonFlags, cfg *config.Config, a action) error {
	rep, closeEvents, err := newReporter(cmd, f)
	if err != nil {
		return err
	}
	defer closeEvents()

	if cfg.LogDir != "" {
		logger, err := logging.Setup(cfg.LogDir, f.verbose)
		if err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
		defer func() { _ = logger.Close() }()
		logging.SetGlobal(logger)
		rep.Verbose("Log file: " + logger.FilePath())
	}

	sys := util.GetSystemInfo()
	logging.Info("System",
		"host", sys.Hostname,
		"os", sys.OS,
		"arch", sys.Arch,
		"cpus", sys.NumCPU,
		"physical_cores", util.PhysicalCores())
	logging.Info("Configuration",
		"input", cfg.InputFile,
		"preset", cfg.SVTAV1Preset,
		"samples", cfg.Samples,
		"sample_duration", cfg.SampleDuration,
		"responsive", cfg.ResponsiveEncoding)

	if !util.IsVideoFile(cfg.InputFile) {
		rep.Warning(fmt.Sprintf("%s does not have a known video extension", filepath.Base(cfg.InputFile)))
	}

	searcher, err := crfsearch.NewWithConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a(ctx, searcher, rep); err != nil {
		return &reportedError{err: err}
	}
	return nil
}

func newReporter(cmd *cobra.Command, f *commonFlags) (reporter.Reporter, func(), error) {
	var rep reporter.Reporter
	if f.json {
		rep = reporter.NewJSONReporterWithWriter(cmd.OutOrStdout())
	} else {
		term := reporter.NewTerminalReporterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr())
		term.SetVerbose(f.verbose)
		rep = term
	}

	if f.eventsFile == "" {
		return rep, func() {}, nil
	}

	file, err := os.Create(f.eventsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create events file: %w", err)
	}
	events := reporter.NewJSONReporterWithWriter(file)
	return reporter.NewCompositeReporter(rep, events), func() { _ = file.Close() }, nil
}
