// Package config provides configuration types and defaults for crfsearch.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidPreset indicates an SVT-AV1 preset outside the valid 0-13 range.
	ErrInvalidPreset = errors.New("SVT-AV1 preset out of range")

	// ErrInvalidCRF indicates a CRF value outside the valid 0-63 range.
	ErrInvalidCRF = errors.New("CRF value out of range")

	// ErrInvalidCRFRange indicates min_crf is greater than max_crf.
	ErrInvalidCRFRange = errors.New("invalid crf range")

	// ErrInvalidSamples indicates an unusable sample count or duration.
	ErrInvalidSamples = errors.New("invalid sample settings")

	// ErrInvalidTarget indicates an unusable VMAF or size target.
	ErrInvalidTarget = errors.New("invalid quality target")

	// ErrInvalidSvtParams indicates svt_params that are not a key=value list.
	ErrInvalidSvtParams = errors.New("invalid svt-av1 parameters")

	// ErrInvalidConfigFile indicates a config file that could not be decoded.
	ErrInvalidConfigFile = errors.New("invalid config file")
)
