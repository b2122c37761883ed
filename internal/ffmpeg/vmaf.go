package ffmpeg

import (
	"regexp"
	"strconv"

	coreerrors "github.com/five82/crfsearch/internal/errors"
)

var vmafScoreRegex = regexp.MustCompile(`VMAF score[:=]\s*([0-9]+(?:\.[0-9]+)?)`)

// ParseVMAFScore extracts the last pooled VMAF score libvmaf printed to stderr.
func ParseVMAFScore(stderr string) (float64, error) {
	matches := vmafScoreRegex.FindAllStringSubmatch(stderr, -1)
	if len(matches) == 0 {
		return 0, coreerrors.NewFFmpegError("no VMAF score in ffmpeg output")
	}

	score, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	if err != nil {
		return 0, coreerrors.NewFFmpegError("invalid VMAF score " + matches[len(matches)-1][1])
	}
	return score, nil
}
