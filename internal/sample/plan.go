package sample

// Span is a section of the input in seconds.
type Span struct {
	Start    float64
	Duration float64
}

// Plan lists the sections of the input that are sampled.
type Plan struct {
	Spans []Span

	// FullPass is set when the samples would cover the whole input,
	// in which case the whole video stream is the only sample.
	FullPass bool
}

// planSamples spreads samples evenly over duration. Sample i is centred on
// (i+1)/(samples+1) of the way through the input.
func planSamples(duration float64, samples int, sampleDuration float64) Plan {
	samples = max(samples, 1)

	if float64(samples)*sampleDuration >= duration {
		return Plan{
			Spans:    []Span{{Start: 0, Duration: duration}},
			FullPass: true,
		}
	}

	spans := make([]Span, samples)
	for i := range spans {
		start := float64(i+1)*duration/float64(samples+1) - sampleDuration/2
		spans[i] = Span{Start: max(start, 0), Duration: sampleDuration}
	}
	return Plan{Spans: spans}
}
