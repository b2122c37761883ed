package search

import (
	"sync/atomic"

	"github.com/five82/crfsearch/internal/reporter"
)

// ProgressScale is the length of the overall search progress scale.
const ProgressScale = float64(reporter.ProgressLength)

// EstimateProgress guesses the overall search position on the ProgressScale
// given the current run and the fraction of the current probe completed.
//
// The first four runs are assumed to cost 1+1+3+3 sample units (1+1+1+3 when
// the third run was a quick one-sample run). Beyond that each run is assumed
// to be the last.
func EstimateProgress(run int, sampleProgress float64, quickThirdRun bool) float64 {
	p := min(max(sampleProgress, 0), 1)

	var total float64
	switch {
	case run <= 4 && quickThirdRun:
		total = 1 + 1 + 1 + 3
	case run <= 4:
		total = 1 + 1 + 3 + 3
	case quickThirdRun:
		total = 3 + float64(run-3)*3
	default:
		total = 2 + float64(run-2)*3
	}

	var done float64
	switch {
	case run <= 1:
		done = p
	case run == 2:
		done = 1 + p
	case run == 3 && quickThirdRun:
		done = 2 + p
	case quickThirdRun:
		done = 3 + float64(run-4)*3 + p*3
	default:
		done = 2 + float64(run-3)*3 + p*3
	}

	return min(max(done*ProgressScale/total, 0), ProgressScale)
}

// ProbeProgress is written by a running probe and read by the controller.
// The zero value is ready to use.
type ProbeProgress struct {
	position atomic.Uint64
	length   atomic.Uint64
}

// SetLength sets the total number of progress units of the probe.
func (p *ProbeProgress) SetLength(length uint64) {
	p.length.Store(length)
}

// Set stores the current position.
func (p *ProbeProgress) Set(position uint64) {
	p.position.Store(position)
}

// Load returns the current position and length.
func (p *ProbeProgress) Load() (position, length uint64) {
	return p.position.Load(), p.length.Load()
}

// Fraction returns position / max(length, 1), capped at 1.
func (p *ProbeProgress) Fraction() float64 {
	position, length := p.Load()
	return min(float64(position)/float64(max(length, 1)), 1)
}

// Reset zeroes the position and length.
func (p *ProbeProgress) Reset() {
	p.position.Store(0)
	p.length.Store(0)
}
