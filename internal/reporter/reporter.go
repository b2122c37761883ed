package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	SearchStarted(info SearchStartInfo)
	SearchProgress(update SearchProgress)
	AttemptComplete(attempt AttemptSummary)
	ProgressFinished()
	SearchComplete(result SearchResult)
	SampleComplete(result SearchResult)
	SearchFailed(failure SearchFailure)
	Warning(message string)
	Error(err ReporterError)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) SearchStarted(SearchStartInfo)  {}
func (NullReporter) SearchProgress(SearchProgress)  {}
func (NullReporter) AttemptComplete(AttemptSummary) {}
func (NullReporter) ProgressFinished()              {}
func (NullReporter) SearchComplete(SearchResult)    {}
func (NullReporter) SampleComplete(SearchResult)    {}
func (NullReporter) SearchFailed(SearchFailure)     {}
func (NullReporter) Warning(string)                 {}
func (NullReporter) Error(ReporterError)            {}
func (NullReporter) Verbose(string)                 {}
