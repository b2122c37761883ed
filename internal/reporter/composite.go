package reporter

// CompositeReporter fans out events to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) SearchStarted(info SearchStartInfo) {
	for _, r := range c.reporters {
		r.SearchStarted(info)
	}
}

func (c *CompositeReporter) SearchProgress(update SearchProgress) {
	for _, r := range c.reporters {
		r.SearchProgress(update)
	}
}

func (c *CompositeReporter) AttemptComplete(attempt AttemptSummary) {
	for _, r := range c.reporters {
		r.AttemptComplete(attempt)
	}
}

func (c *CompositeReporter) ProgressFinished() {
	for _, r := range c.reporters {
		r.ProgressFinished()
	}
}

func (c *CompositeReporter) SearchComplete(result SearchResult) {
	for _, r := range c.reporters {
		r.SearchComplete(result)
	}
}

func (c *CompositeReporter) SampleComplete(result SearchResult) {
	for _, r := range c.reporters {
		r.SampleComplete(result)
	}
}

func (c *CompositeReporter) SearchFailed(failure SearchFailure) {
	for _, r := range c.reporters {
		r.SearchFailed(failure)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReporterError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
