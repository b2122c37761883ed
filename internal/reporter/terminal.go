package reporter

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/five82/crfsearch/internal/util"
	"github.com/schollz/progressbar/v3"
)

// TerminalReporter outputs human-friendly text to the terminal.
// Progress and attempts go to stderr, the final result to stdout.
type TerminalReporter struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	progress *progressbar.ProgressBar
	maxPos   uint64
	cyan     *color.Color
	green    *color.Color
	yellow   *color.Color
	red      *color.Color
	redBold  *color.Color
	dim      *color.Color
	dimItal  *color.Color
	bold     *color.Color
	verbose  bool
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr)
}

// NewTerminalReporterWithWriters creates a terminal reporter with custom writers.
func NewTerminalReporterWithWriters(out, errOut io.Writer) *TerminalReporter {
	return &TerminalReporter{
		out:     out,
		errOut:  errOut,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen, color.Bold),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed),
		redBold: color.New(color.FgRed, color.Bold),
		dim:     color.New(color.Faint),
		dimItal: color.New(color.Faint, color.Italic),
		bold:    color.New(color.Bold),
	}
}

// SetVerbose enables printing of Verbose messages.
func (r *TerminalReporter) SetVerbose(verbose bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verbose = verbose
}

func (r *TerminalReporter) newProgress() *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		int64(ProgressLength),
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[cyan]#[reset]",
			SaucerHead:    "[cyan]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// printAbove writes a line while keeping the progress bar at the bottom.
// Caller must hold r.mu.
func (r *TerminalReporter) printAbove(line string) {
	if r.progress != nil {
		_ = r.progress.Clear()
	}
	_, _ = fmt.Fprintln(r.errOut, line)
	if r.progress != nil {
		_ = r.progress.RenderBlank()
	}
}

func (r *TerminalReporter) SearchStarted(info SearchStartInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = r.cyan.Fprintln(r.errOut, "CRF SEARCH")
	_, _ = fmt.Fprintf(r.errOut, "  %s %s\n", r.bold.Sprint("Input:  "), info.InputFile)
	_, _ = fmt.Fprintf(r.errOut, "  %s preset %d, VMAF >= %.2f, size <= %.0f%%, crf %d-%d, %d samples\n",
		r.bold.Sprint("Target: "), info.Preset, info.MinVMAF, info.MaxEncodedPercent,
		info.MinCRF, info.MaxCRF, info.Samples)

	r.progress = r.newProgress()
	r.maxPos = 0
}

func (r *TerminalReporter) SearchProgress(update SearchProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		r.progress = r.newProgress()
	}

	pos := min(update.Position, ProgressLength)
	// Guesses are revised forwards only; never move the bar back.
	if pos >= r.maxPos {
		r.maxPos = pos
		_ = r.progress.Set64(int64(pos))
	}
	r.progress.Describe(update.Message)
}

func (r *TerminalReporter) AttemptComplete(attempt AttemptSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printAbove(r.formatAttempt(attempt))
}

// formatAttempt renders "- crf 32 VMAF 97.12 (60%, 1 sample)" with failing values in red.
func (r *TerminalReporter) formatAttempt(a AttemptSummary) string {
	crf := fmt.Sprint(a.CRF)
	vmaf := fmt.Sprintf("%.2f", a.VMAF)
	percent := fmt.Sprintf("%.0f%%", a.EncodedPercent)

	if a.VMAFTooLow() {
		crf = r.red.Sprint(crf)
		vmaf = r.redBold.Sprint(vmaf)
	}
	if a.TooLarge() {
		crf = r.red.Sprint(a.CRF)
		percent = r.red.Sprint(percent)
	}

	samples := ""
	if a.Samples == 1 {
		samples = r.dim.Sprint(", 1 sample")
	}

	return fmt.Sprintf("%s %s %s %s %s%s%s%s",
		r.dim.Sprint("- crf"), crf, r.dim.Sprint("VMAF"), vmaf,
		r.dim.Sprint("("), percent, samples, r.dim.Sprint(")"))
}

func (r *TerminalReporter) ProgressFinished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPos = 0
}

func (r *TerminalReporter) SearchComplete(result SearchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hint := fmt.Sprintf("ffmpeg -i %q -c:v libsvtav1 -crf %d -preset %d", result.InputFile, result.CRF, result.Preset)
	_, _ = fmt.Fprintf(r.errOut, "\n%s %s\n\n", r.dim.Sprint("Encode with:"), r.dimItal.Sprint(hint))
	r.printResult(result)
}

func (r *TerminalReporter) SampleComplete(result SearchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printResult(result)
}

// printResult prints "crf N VMAF Q predicted full encode size S (P%) taking T".
func (r *TerminalReporter) printResult(result SearchResult) {
	_, _ = fmt.Fprintf(r.out, "crf %s VMAF %s predicted full encode size %s (%s) taking %s\n",
		r.green.Sprint(result.CRF),
		r.green.Sprintf("%.2f", result.VMAF),
		r.green.Sprint(util.HumanBytes(result.PredictedSize)),
		r.green.Sprintf("%.0f%%", math.Round(result.EncodedPercent)),
		r.bold.Sprint(util.HumanDuration(result.PredictedTime)))
}

func (r *TerminalReporter) SearchFailed(failure SearchFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.redBold.Fprintln(r.errOut, "Failed to find a suitable crf")
	if failure.Reason != "" {
		_, _ = fmt.Fprintf(r.errOut, "  %s\n", failure.Reason)
	}
}

func (r *TerminalReporter) Warning(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printAbove(r.yellow.Sprintf("WARN: %s", message))
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.redBold.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.verbose {
		return
	}
	r.printAbove(r.dim.Sprint(message))
}
