package reporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func decodeEvents(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var event map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}
	return events
}

func TestJSONReporterAttemptAndResult(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.AttemptComplete(AttemptSummary{CRF: 32, Samples: 1, VMAF: 94.5, EncodedPercent: 60, MinVMAF: 95, MaxEncodedPercent: 80})
	r.SearchComplete(SearchResult{InputFile: "in.mkv", Preset: 8, CRF: 30, VMAF: 95.2, PredictedSize: 1000, EncodedPercent: 45, PredictedTime: 90 * time.Second})

	events := decodeEvents(t, &buf)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	attempt := events[0]
	if attempt["type"] != "attempt" {
		t.Errorf("type = %v, want attempt", attempt["type"])
	}
	if attempt["crf"] != float64(32) {
		t.Errorf("crf = %v, want 32", attempt["crf"])
	}
	if attempt["vmaf_too_low"] != true {
		t.Errorf("vmaf_too_low = %v, want true", attempt["vmaf_too_low"])
	}
	if attempt["too_large"] != false {
		t.Errorf("too_large = %v, want false", attempt["too_large"])
	}

	result := events[1]
	if result["type"] != "search_complete" {
		t.Errorf("type = %v, want search_complete", result["type"])
	}
	if result["predicted_encode_seconds"] != float64(90) {
		t.Errorf("predicted_encode_seconds = %v, want 90", result["predicted_encode_seconds"])
	}
}

func TestJSONReporterProgressThrottling(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	now := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return now }

	r.SearchProgress(SearchProgress{Position: 5, Length: ProgressLength, Message: "sampling crf 32"})
	r.SearchProgress(SearchProgress{Position: 7, Length: ProgressLength, Message: "sampling crf 32"})  // same bucket
	r.SearchProgress(SearchProgress{Position: 25, Length: ProgressLength, Message: "sampling crf 32"}) // new bucket
	now = now.Add(6 * time.Second)
	r.SearchProgress(SearchProgress{Position: 26, Length: ProgressLength, Message: "sampling crf 32"}) // heartbeat

	events := decodeEvents(t, &buf)
	if len(events) != 3 {
		t.Fatalf("got %d progress events, want 3", len(events))
	}
	if events[1]["position"] != float64(25) {
		t.Errorf("second event position = %v, want 25", events[1]["position"])
	}
	if events[1]["percent"] != 2.5 {
		t.Errorf("percent = %v, want 2.5", events[1]["percent"])
	}
}

func TestJSONReporterProgressResetsAfterFinish(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	now := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return now }

	r.SearchProgress(SearchProgress{Position: 500})
	r.ProgressFinished()
	r.SearchProgress(SearchProgress{Position: 10})

	events := decodeEvents(t, &buf)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1]["length"] != float64(ProgressLength) {
		t.Errorf("length = %v, want default %d", events[1]["length"], ProgressLength)
	}
}

func TestJSONReporterSearchFailed(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.SearchFailed(SearchFailure{Reason: "probe failed"})
	last := AttemptSummary{CRF: 10, Samples: 1, VMAF: 90, EncodedPercent: 95, MinVMAF: 95, MaxEncodedPercent: 80}
	r.SearchFailed(SearchFailure{Last: &last, Reason: "too large"})

	events := decodeEvents(t, &buf)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if _, ok := events[0]["last_attempt"]; ok {
		t.Error("failure without attempt should not carry last_attempt")
	}
	nested, ok := events[1]["last_attempt"].(map[string]interface{})
	if !ok {
		t.Fatalf("last_attempt missing: %v", events[1])
	}
	if nested["too_large"] != true {
		t.Errorf("last_attempt.too_large = %v, want true", nested["too_large"])
	}
}
