package search

import (
	"fmt"

	coreerrors "github.com/five82/crfsearch/internal/errors"
)

// Config holds the immutable parameters of one crf search.
type Config struct {
	// Input identifies the video being searched. Only used for reporting.
	Input string

	// Preset is the SVT-AV1 preset passed through to the prober.
	Preset uint8

	// MinVMAF is the minimum acceptable mean sample VMAF.
	MinVMAF float64

	// MaxEncodedPercent is the largest acceptable predicted size
	// as a percentage of the input size.
	MaxEncodedPercent float64

	// MinCRF and MaxCRF are the inclusive crf bounds.
	MinCRF int
	MaxCRF int

	// Samples is the number of samples used by full probes.
	Samples int
}

func (c Config) validate() error {
	if c.MinCRF > c.MaxCRF {
		return coreerrors.NewConfigError(fmt.Sprintf("invalid crf range: min crf %d is greater than max crf %d", c.MinCRF, c.MaxCRF))
	}
	if c.MinCRF < 0 {
		return coreerrors.NewConfigError(fmt.Sprintf("invalid crf range: min crf %d is negative", c.MinCRF))
	}
	if c.Samples < 1 {
		return coreerrors.NewConfigError(fmt.Sprintf("samples must be at least 1, got %d", c.Samples))
	}
	return nil
}

// midpoint returns the integer midpoint of two crf values.
func midpoint(lo, hi int) int {
	return (lo + hi) / 2
}
