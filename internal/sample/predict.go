package sample

import (
	"time"

	"github.com/five82/crfsearch/internal/search"
	"github.com/five82/crfsearch/internal/util"
)

// measurement is the outcome of encoding and scoring one sample.
type measurement struct {
	SampleSize     uint64
	SampleDuration float64
	EncodedSize    uint64
	EncodeTime     time.Duration
	VMAF           float64
}

// predict extrapolates sample measurements to a full encode of an input of
// inputSize bytes lasting inputDuration seconds.
func predict(inputSize uint64, inputDuration float64, ms []measurement) search.ProbeResult {
	if len(ms) == 0 {
		return search.ProbeResult{}
	}

	var (
		vmafSum     float64
		sampleBytes uint64
		encBytes    uint64
		sampleSecs  float64
		encodeTime  time.Duration
	)
	for _, m := range ms {
		vmafSum += m.VMAF
		sampleBytes += m.SampleSize
		encBytes += m.EncodedSize
		sampleSecs += m.SampleDuration
		encodeTime += m.EncodeTime
	}

	percent := util.CalculatePercent(encBytes, sampleBytes)

	var predictedTime time.Duration
	if sampleSecs > 0 {
		predictedTime = time.Duration(float64(encodeTime) * inputDuration / sampleSecs)
	}

	return search.ProbeResult{
		VMAF:           vmafSum / float64(len(ms)),
		EncodedPercent: percent,
		PredictedSize:  uint64(float64(inputSize) * percent / 100),
		PredictedTime:  predictedTime,
	}
}
