package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter outputs NDJSON events, one object per line.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
	now                func() time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
		now:                time.Now,
	}
}

func (r *JSONReporter) timestamp() int64 {
	return r.now().Unix()
}

func (r *JSONReporter) write(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func attemptFields(a AttemptSummary) map[string]interface{} {
	return map[string]interface{}{
		"crf":             a.CRF,
		"samples":         a.Samples,
		"vmaf":            a.VMAF,
		"encoded_percent": a.EncodedPercent,
		"vmaf_too_low":    a.VMAFTooLow(),
		"too_large":       a.TooLarge(),
	}
}

func (r *JSONReporter) SearchStarted(info SearchStartInfo) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":                "search_started",
		"input_file":          info.InputFile,
		"preset":              info.Preset,
		"min_vmaf":            info.MinVMAF,
		"max_encoded_percent": info.MaxEncodedPercent,
		"min_crf":             info.MinCRF,
		"max_crf":             info.MaxCRF,
		"samples":             info.Samples,
		"timestamp":           r.timestamp(),
	})
}

// SearchProgress emits at most one event per percent of progress, plus a heartbeat
// every few seconds while the bar stands still.
func (r *JSONReporter) SearchProgress(update SearchProgress) {
	const bucketSize = 10
	const minInterval = 5 * time.Second

	bucket := int(update.Position / bucketSize)
	now := r.now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	if bucket <= r.lastProgressBucket && !intervalElapsed {
		r.mu.Unlock()
		return
	}
	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	length := update.Length
	if length == 0 {
		length = ProgressLength
	}
	r.write(map[string]interface{}{
		"type":      "search_progress",
		"position":  update.Position,
		"length":    length,
		"percent":   float64(update.Position) / float64(length) * 100,
		"message":   update.Message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) AttemptComplete(attempt AttemptSummary) {
	event := attemptFields(attempt)
	event["type"] = "attempt"
	event["timestamp"] = r.timestamp()
	r.write(event)
}

func (r *JSONReporter) ProgressFinished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
}

func resultFields(kind string, result SearchResult, ts int64) map[string]interface{} {
	return map[string]interface{}{
		"type":                     kind,
		"input_file":               result.InputFile,
		"preset":                   result.Preset,
		"crf":                      result.CRF,
		"vmaf":                     result.VMAF,
		"predicted_encode_size":    result.PredictedSize,
		"encoded_percent":          result.EncodedPercent,
		"predicted_encode_seconds": int64(result.PredictedTime.Seconds()),
		"timestamp":                ts,
	}
}

func (r *JSONReporter) SearchComplete(result SearchResult) {
	r.write(resultFields("search_complete", result, r.timestamp()))
}

func (r *JSONReporter) SampleComplete(result SearchResult) {
	r.write(resultFields("sample_complete", result, r.timestamp()))
}

func (r *JSONReporter) SearchFailed(failure SearchFailure) {
	event := map[string]interface{}{
		"type":      "search_failed",
		"reason":    failure.Reason,
		"timestamp": r.timestamp(),
	}
	if failure.Last != nil {
		event["last_attempt"] = attemptFields(*failure.Last)
	}
	r.write(event)
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) Verbose(string) {}
