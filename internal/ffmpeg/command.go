package ffmpeg

import (
	"strconv"

	"github.com/five82/crfsearch/internal/util"
)

// EncodeParams describes one sample encode.
type EncodeParams struct {
	Input       string
	Output      string
	CRF         int
	Preset      uint8
	PixelFormat string
	SvtParams   string // Optional, passed as -svtav1-params
}

func formatSeconds(secs float64) string {
	return strconv.FormatFloat(secs, 'f', 3, 64)
}

// ExtractSampleArgs builds arguments copying duration seconds of the first
// video stream starting at start into output, without re-encoding.
func ExtractSampleArgs(input string, start, duration float64, output string) []string {
	return []string{
		"-y", "-hide_banner", "-nostdin",
		"-ss", util.FormatFFmpegTimestamp(start),
		"-t", formatSeconds(duration),
		"-i", input,
		"-map", "0:v:0",
		"-c:v", "copy",
		"-an", "-sn", "-dn",
		output,
	}
}

// ExtractVideoArgs builds arguments copying the whole first video stream of
// input into output, dropping audio, subtitles and data.
func ExtractVideoArgs(input, output string) []string {
	return []string{
		"-y", "-hide_banner", "-nostdin",
		"-i", input,
		"-map", "0:v:0",
		"-c:v", "copy",
		"-an", "-sn", "-dn",
		output,
	}
}

// EncodeSampleArgs builds arguments encoding a sample with libsvtav1.
func EncodeSampleArgs(p EncodeParams) []string {
	args := []string{
		"-y", "-hide_banner", "-nostdin",
		"-i", p.Input,
		"-map", "0:v:0",
		"-c:v", "libsvtav1",
		"-crf", strconv.Itoa(p.CRF),
		"-preset", strconv.Itoa(int(p.Preset)),
	}
	if p.PixelFormat != "" {
		args = append(args, "-pix_fmt", p.PixelFormat)
	}
	if p.SvtParams != "" {
		args = append(args, "-svtav1-params", p.SvtParams)
	}
	return append(args, "-an", "-sn", "-dn", p.Output)
}

// VMAFArgs builds arguments scoring distorted against reference with libvmaf.
// The score is printed to stderr.
func VMAFArgs(distorted, reference string, opts VMAFOptions) []string {
	return []string{
		"-hide_banner", "-nostdin",
		"-i", distorted,
		"-i", reference,
		"-lavfi", VMAFFilterGraph(opts),
		"-f", "null", "-",
	}
}
