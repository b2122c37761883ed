package search

import (
	"time"

	"github.com/five82/crfsearch/internal/reporter"
)

// ProbeRequest asks a prober to sample-encode the input at one crf.
type ProbeRequest struct {
	CRF     int
	Samples int
}

// ProbeResult is what a prober predicts for a full encode.
type ProbeResult struct {
	// VMAF is the mean VMAF across the encoded samples.
	VMAF float64

	// PredictedSize is the predicted full encode size in bytes.
	PredictedSize uint64

	// EncodedPercent is the predicted size as a percentage of the input.
	EncodedPercent float64

	// PredictedTime is the predicted full encode duration.
	PredictedTime time.Duration
}

// Attempt records one completed probe.
type Attempt struct {
	CRF     int
	Samples int
	ProbeResult
}

// Summary converts the attempt into a reporter summary judged against cfg.
func (a Attempt) Summary(cfg Config) reporter.AttemptSummary {
	return reporter.AttemptSummary{
		CRF:               a.CRF,
		Samples:           a.Samples,
		VMAF:              a.VMAF,
		EncodedPercent:    a.EncodedPercent,
		MinVMAF:           cfg.MinVMAF,
		MaxEncodedPercent: cfg.MaxEncodedPercent,
	}
}

// history is the ordered list of attempts made by one search.
type history []Attempt

// upperNeighbor returns the attempt with the smallest crf strictly greater than crf.
func (h history) upperNeighbor(crf int) (Attempt, bool) {
	var best Attempt
	found := false
	for _, a := range h {
		if a.CRF > crf && (!found || a.CRF < best.CRF) {
			best = a
			found = true
		}
	}
	return best, found
}

// lowerNeighbor returns the attempt with the largest crf strictly less than crf.
func (h history) lowerNeighbor(crf int) (Attempt, bool) {
	var best Attempt
	found := false
	for _, a := range h {
		if a.CRF < crf && (!found || a.CRF > best.CRF) {
			best = a
			found = true
		}
	}
	return best, found
}
