package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	coreerrors "github.com/five82/crfsearch/internal/errors"
	"github.com/five82/crfsearch/internal/logging"
	"github.com/five82/crfsearch/internal/util"
)

// Binary is the ffmpeg executable to run.
var Binary = "ffmpeg"

// responsiveNiceness is the niceness applied to de-prioritised processes.
const responsiveNiceness = 10

// stderrTailLines is how much stderr is kept in command errors.
const stderrTailLines = 20

// Progress represents ffmpeg progress information.
type Progress struct {
	Frame       uint64
	FPS         float32
	Speed       float32
	ElapsedSecs float64
	Fraction    float64 // ElapsedSecs / duration, 0 when the duration is unknown
}

// ProgressCallback is called with progress updates while ffmpeg runs.
type ProgressCallback func(Progress)

// RunOptions configures one ffmpeg invocation.
type RunOptions struct {
	// Duration of the media being processed in seconds, used for Progress.Fraction.
	Duration float64

	// OnProgress receives progress updates. Optional.
	OnProgress ProgressCallback

	// LowPriority lowers the scheduling priority of the process.
	LowPriority bool
}

var timeRegex = regexp.MustCompile(`time=\s*(\d{2}:\d{2}:\d{2}\.?\d*)`)

// Run executes ffmpeg with args and returns its stderr.
func Run(ctx context.Context, args []string, opts RunOptions) (string, error) {
	logging.Debug("Running ffmpeg", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, Binary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", coreerrors.NewCommandStartError(Binary, err)
	}

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return "", coreerrors.NewCancelledError()
		}
		return "", coreerrors.NewCommandStartError(Binary, err)
	}

	if opts.LowPriority {
		if err := util.LowerPriority(cmd.Process.Pid, responsiveNiceness); err != nil {
			logging.Warn("Failed to lower ffmpeg priority", "pid", cmd.Process.Pid, "error", err)
		}
	}

	var stderrBuilder strings.Builder
	parseProgress(stderr, &stderrBuilder, opts.Duration, opts.OnProgress)

	err = cmd.Wait()
	stderrStr := stderrBuilder.String()

	if err != nil {
		if ctx.Err() != nil {
			return stderrStr, coreerrors.NewCancelledError()
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return stderrStr, coreerrors.NewCommandWaitError(Binary, err)
		}
		return stderrStr, coreerrors.NewCommandFailedError(Binary, exitErr.ExitCode(), tail(stderrStr, stderrTailLines))
	}

	return stderrStr, nil
}

// parseProgress reads ffmpeg stderr and parses progress updates.
func parseProgress(stderr io.Reader, stderrBuilder *strings.Builder, duration float64, callback ProgressCallback) {
	reader := bufio.NewReader(stderr)
	var lineBuf strings.Builder

	for {
		b, err := reader.ReadByte()
		if err != nil {
			if err != io.EOF {
				logging.Debug("Error reading ffmpeg stderr", "error", err)
			}
			break
		}

		stderrBuilder.WriteByte(b)

		// Progress lines end with \r or \n
		if b == '\r' || b == '\n' {
			line := lineBuf.String()
			lineBuf.Reset()

			if callback != nil && strings.Contains(line, "time=") {
				if progress := parseProgressLine(line, duration); progress != nil {
					callback(*progress)
				}
			}
		} else {
			lineBuf.WriteByte(b)
		}
	}
}

// parseProgressLine extracts progress information from an ffmpeg progress line.
// Returns nil when the line carries no usable time.
func parseProgressLine(line string, duration float64) *Progress {
	matches := timeRegex.FindStringSubmatch(line)
	if len(matches) < 2 {
		return nil
	}
	elapsedSecs, ok := util.ParseFFmpegTime(matches[1])
	if !ok {
		return nil
	}

	progress := &Progress{ElapsedSecs: elapsedSecs}

	if v, ok := fieldValue(line, "frame="); ok {
		if f, err := strconv.ParseUint(v, 10, 64); err == nil {
			progress.Frame = f
		}
	}
	if v, ok := fieldValue(line, "fps="); ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			progress.FPS = float32(f)
		}
	}
	if v, ok := fieldValue(line, "speed="); ok {
		if s, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 32); err == nil {
			progress.Speed = float32(s)
		}
	}

	if duration > 0 {
		progress.Fraction = min(elapsedSecs/duration, 1)
	}

	return progress
}

// fieldValue returns the value following key, e.g. "frame=  120" gives "120".
func fieldValue(line, key string) (string, bool) {
	idx := strings.Index(line, key)
	if idx < 0 {
		return "", false
	}
	remaining := strings.TrimLeft(line[idx+len(key):], " ")
	if end := strings.IndexAny(remaining, " \t"); end >= 0 {
		remaining = remaining[:end]
	}
	return remaining, remaining != ""
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\r\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
