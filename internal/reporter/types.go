// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// ProgressLength is the fixed resolution of search progress positions.
const ProgressLength uint64 = 1000

// SearchStartInfo describes a search before the first probe.
type SearchStartInfo struct {
	InputFile         string
	Preset            uint8
	MinVMAF           float64
	MaxEncodedPercent float64
	MinCRF            int
	MaxCRF            int
	Samples           int
}

// SearchProgress is a periodic position update while a probe runs.
type SearchProgress struct {
	Position uint64
	Length   uint64
	Message  string
}

// AttemptSummary describes one completed probe together with the targets it was judged against.
type AttemptSummary struct {
	CRF               int
	Samples           int
	VMAF              float64
	EncodedPercent    float64
	MinVMAF           float64
	MaxEncodedPercent float64
}

// VMAFTooLow reports whether the attempt missed the quality target.
func (a AttemptSummary) VMAFTooLow() bool {
	return a.VMAF < a.MinVMAF
}

// TooLarge reports whether the attempt exceeded the size budget.
func (a AttemptSummary) TooLarge() bool {
	return a.EncodedPercent > a.MaxEncodedPercent
}

// SearchResult contains the prediction for a chosen crf.
type SearchResult struct {
	InputFile      string
	Preset         uint8
	CRF            int
	VMAF           float64
	PredictedSize  uint64
	EncodedPercent float64
	PredictedTime  time.Duration
}

// SearchFailure describes why a search ended without a result.
type SearchFailure struct {
	// Last is the last evaluated attempt, nil when the search failed before any probe finished.
	Last   *AttemptSummary
	Reason string
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}
