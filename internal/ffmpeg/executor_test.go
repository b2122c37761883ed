package ffmpeg

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	coreerrors "github.com/five82/crfsearch/internal/errors"
)

func TestParseProgressLine(t *testing.T) {
	line := "frame=  240 fps= 48.5 q=35.0 size=    1024kB time=00:00:10.00 bitrate= 838.9kbits/s speed=1.94x"

	p := parseProgressLine(line, 20)
	if p == nil {
		t.Fatal("parseProgressLine() = nil")
	}
	if p.Frame != 240 {
		t.Errorf("Frame = %d, want 240", p.Frame)
	}
	if p.FPS != 48.5 {
		t.Errorf("FPS = %v, want 48.5", p.FPS)
	}
	if p.Speed != float32(1.94) {
		t.Errorf("Speed = %v, want 1.94", p.Speed)
	}
	if p.ElapsedSecs != 10 {
		t.Errorf("ElapsedSecs = %v, want 10", p.ElapsedSecs)
	}
	if p.Fraction != 0.5 {
		t.Errorf("Fraction = %v, want 0.5", p.Fraction)
	}
}

func TestParseProgressLineEdgeCases(t *testing.T) {
	if p := parseProgressLine("Stream mapping:", 20); p != nil {
		t.Errorf("line without time = %+v, want nil", p)
	}

	p := parseProgressLine("frame=10 time=00:00:30.00 speed=N/A", 20)
	if p == nil || p.Fraction != 1 {
		t.Errorf("time past duration = %+v, want Fraction 1", p)
	}

	p = parseProgressLine("time=00:00:05.00", 0)
	if p == nil || p.Fraction != 0 {
		t.Errorf("unknown duration = %+v, want Fraction 0", p)
	}
}

func TestParseProgress(t *testing.T) {
	stderr := "Input #0, matroska\r\n" +
		"frame=  100 fps=50 time=00:00:04.00 speed=2x\r" +
		"frame=  200 fps=50 time=00:00:08.00 speed=2x\r" +
		"[Parsed_libvmaf_0 @ 0x1] VMAF score: 96.1\n"

	var updates []Progress
	var captured strings.Builder
	parseProgress(strings.NewReader(stderr), &captured, 8, func(p Progress) {
		updates = append(updates, p)
	})

	if captured.String() != stderr {
		t.Error("stderr was not captured verbatim")
	}
	if len(updates) != 2 {
		t.Fatalf("len(updates) = %d, want 2", len(updates))
	}
	if updates[0].Fraction != 0.5 || updates[1].Fraction != 1 {
		t.Errorf("fractions = %v, %v, want 0.5, 1", updates[0].Fraction, updates[1].Fraction)
	}
}

func TestTail(t *testing.T) {
	if got := tail("a\nb\nc\nd\n", 2); got != "c\nd" {
		t.Errorf("tail() = %q, want %q", got, "c\nd")
	}
	if got := tail("only", 5); got != "only" {
		t.Errorf("tail() = %q, want %q", got, "only")
	}
}

// withBinary runs ffmpeg commands through sh for the duration of a test.
func withBinary(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not found")
	}
	old := Binary
	Binary = sh
	t.Cleanup(func() { Binary = old })
}

func TestRunReportsProgress(t *testing.T) {
	withBinary(t)

	script := `printf 'frame=1 time=00:00:01.00 speed=1x\r' >&2; printf 'VMAF score: 97.5\n' >&2`
	var last Progress
	stderr, err := Run(context.Background(), []string{"-c", script}, RunOptions{
		Duration:   2,
		OnProgress: func(p Progress) { last = p },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if last.Fraction != 0.5 {
		t.Errorf("last progress fraction = %v, want 0.5", last.Fraction)
	}
	if score, err := ParseVMAFScore(stderr); err != nil || score != 97.5 {
		t.Errorf("ParseVMAFScore() = %v, %v, want 97.5", score, err)
	}
}

func TestRunFailure(t *testing.T) {
	withBinary(t)

	_, err := Run(context.Background(), []string{"-c", "echo 'Unknown encoder' >&2; exit 3"}, RunOptions{})
	if !coreerrors.IsKind(err, coreerrors.KindCommand) {
		t.Fatalf("Run() error = %v, want command error", err)
	}
	if !strings.Contains(err.Error(), "Unknown encoder") {
		t.Errorf("error %q should include stderr", err)
	}
}

func TestRunCancelled(t *testing.T) {
	withBinary(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, []string{"-c", "sleep 5"}, RunOptions{})
	if !coreerrors.IsCancelled(err) {
		t.Errorf("Run() error = %v, want cancelled", err)
	}
}
