// Package config provides configuration types and defaults for crfsearch.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/five82/crfsearch/internal/ffmpeg"
	"github.com/five82/crfsearch/internal/search"
	"gopkg.in/yaml.v3"
)

// Default constants
const (
	// DefaultMinVMAF is the minimum acceptable mean sample VMAF.
	DefaultMinVMAF float64 = 95.0

	// DefaultMaxEncodedPercent is the largest acceptable predicted size as a percentage of the input.
	DefaultMaxEncodedPercent float64 = 80.0

	// DefaultMinCRF is the lowest (highest quality) crf the search will try.
	DefaultMinCRF uint8 = 10

	// DefaultMaxCRF is the highest (lowest quality) crf the search will try.
	DefaultMaxCRF uint8 = 55

	// DefaultSamples is the number of samples used by full probes.
	DefaultSamples = 3

	// DefaultSampleDuration is the length of each sample in seconds.
	DefaultSampleDuration float64 = 20

	// DefaultSVTAV1Preset is the SVT-AV1 preset (0-13, lower is slower/better).
	DefaultSVTAV1Preset uint8 = 8

	// DefaultPixelFormat is the pixel format used for sample encodes.
	DefaultPixelFormat = "yuv420p10le"

	// MaxSVTPreset is the maximum valid SVT-AV1 preset value.
	MaxSVTPreset uint8 = 13

	// MaxCRF is the maximum valid CRF value.
	MaxCRF uint8 = 63

	// MaxVMAF is the top of the VMAF scale.
	MaxVMAF float64 = 100
)

// Config holds all configuration for a crf search.
type Config struct {
	// Paths
	InputFile string `yaml:"-"`
	LogDir    string `yaml:"log_dir"`
	TempDir   string `yaml:"temp_dir"` // Optional, defaults to the system temp dir

	// Encoder
	SVTAV1Preset uint8  `yaml:"preset"`
	PixelFormat  string `yaml:"pix_fmt"`
	SvtParams    string `yaml:"svt_params"` // Extra key=value:key=value SVT-AV1 parameters

	// Targets
	MinVMAF           float64 `yaml:"min_vmaf"`
	MaxEncodedPercent float64 `yaml:"max_encoded_percent"`

	// Search range and sampling
	MinCRF         uint8   `yaml:"min_crf"`
	MaxCRF         uint8   `yaml:"max_crf"`
	Samples        int     `yaml:"samples"`
	SampleDuration float64 `yaml:"sample_duration"`

	// Processing options
	ResponsiveEncoding bool `yaml:"responsive"` // Lower the priority of probe encodes
	KeepSamples        bool `yaml:"keep"`       // Keep encoded samples after the run
}

// NewConfig creates a new Config with default values.
func NewConfig(inputFile string) *Config {
	return &Config{
		InputFile:         inputFile,
		SVTAV1Preset:      DefaultSVTAV1Preset,
		PixelFormat:       DefaultPixelFormat,
		MinVMAF:           DefaultMinVMAF,
		MaxEncodedPercent: DefaultMaxEncodedPercent,
		MinCRF:            DefaultMinCRF,
		MaxCRF:            DefaultMaxCRF,
		Samples:           DefaultSamples,
		SampleDuration:    DefaultSampleDuration,
	}
}

// LoadFile overlays values from a YAML file onto c.
// Keys absent from the file keep their current values; unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfigFile, path, err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SVTAV1Preset > MaxSVTPreset {
		return fmt.Errorf("%w: must be 0-%d, got %d", ErrInvalidPreset, MaxSVTPreset, c.SVTAV1Preset)
	}

	if c.MinCRF > MaxCRF {
		return fmt.Errorf("%w: min_crf must be 0-%d, got %d", ErrInvalidCRF, MaxCRF, c.MinCRF)
	}

	if c.MaxCRF > MaxCRF {
		return fmt.Errorf("%w: max_crf must be 0-%d, got %d", ErrInvalidCRF, MaxCRF, c.MaxCRF)
	}

	if c.MinCRF > c.MaxCRF {
		return fmt.Errorf("%w: min_crf %d is greater than max_crf %d", ErrInvalidCRFRange, c.MinCRF, c.MaxCRF)
	}

	if c.Samples < 1 {
		return fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidSamples, c.Samples)
	}

	if c.SampleDuration <= 0 {
		return fmt.Errorf("%w: sample duration must be positive, got %v", ErrInvalidSamples, c.SampleDuration)
	}

	if c.MinVMAF <= 0 || c.MinVMAF > MaxVMAF {
		return fmt.Errorf("%w: min_vmaf must be in (0, %.0f], got %v", ErrInvalidTarget, MaxVMAF, c.MinVMAF)
	}

	if c.MaxEncodedPercent <= 0 {
		return fmt.Errorf("%w: max_encoded_percent must be positive, got %v", ErrInvalidTarget, c.MaxEncodedPercent)
	}

	if _, err := ffmpeg.NewSvtAv1ParamsBuilder().Parse(c.SvtParams); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSvtParams, err)
	}

	return nil
}

// SearchConfig returns the immutable search parameters for this configuration.
func (c *Config) SearchConfig() search.Config {
	return search.Config{
		Input:             c.InputFile,
		Preset:            c.SVTAV1Preset,
		MinVMAF:           c.MinVMAF,
		MaxEncodedPercent: c.MaxEncodedPercent,
		MinCRF:            int(c.MinCRF),
		MaxCRF:            int(c.MaxCRF),
		Samples:           c.Samples,
	}
}
