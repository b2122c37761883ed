// Package ffprobe inspects input files using ffprobe.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	coreerrors "github.com/five82/crfsearch/internal/errors"
	"github.com/five82/crfsearch/internal/logging"
	"github.com/five82/crfsearch/internal/util"
)

// Binary is the ffprobe executable to run.
var Binary = "ffprobe"

// InputInfo describes an input file as far as a crf search needs to know it.
type InputInfo struct {
	Path         string
	DurationSecs float64
	Size         uint64
	BitRate      uint64
	Video        VideoProperties
}

// VideoProperties contains the properties of the first video stream.
type VideoProperties struct {
	CodecName   string
	Width       uint32
	Height      uint32
	PixFmt      string
	FrameRate   float64
	TotalFrames uint64
	HDRInfo     HDRInfo
}

// Describe renders the input as e.g.
// "h264 1920x1080 yuv420p 23.976 fps, 00:02:00, 150.00 MiB, SDR".
func (i *InputInfo) Describe() string {
	v := i.Video
	dynamicRange := "SDR"
	if v.HDRInfo.IsHDR {
		dynamicRange = "HDR"
	}
	return fmt.Sprintf("%s %dx%d %s %.3f fps, %s, %s, %s",
		v.CodecName, v.Width, v.Height, v.PixFmt, v.FrameRate,
		util.FormatDuration(i.DurationSecs), util.FormatBytes(i.Size), dynamicRange)
}

// HDRInfo contains HDR-related information.
type HDRInfo struct {
	IsHDR                   bool
	ColourPrimaries         string
	TransferCharacteristics string
	MatrixCoefficients      string
	BitDepth                *uint8
}

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType        string `json:"codec_type"`
	CodecName        string `json:"codec_name"`
	Width            int64  `json:"width"`
	Height           int64  `json:"height"`
	Channels         int    `json:"channels"`
	NbFrames         string `json:"nb_frames"`
	Duration         string `json:"duration"`
	RFrameRate       string `json:"r_frame_rate"`
	AvgFrameRate     string `json:"avg_frame_rate"`
	PixFmt           string `json:"pix_fmt"`
	ColorPrimaries   string `json:"color_primaries"`
	ColorTransfer    string `json:"color_transfer"`
	ColorSpace       string `json:"color_space"`
	BitsPerRawSample string `json:"bits_per_raw_sample"`
}

// runFFprobe executes ffprobe and returns its raw JSON output.
func runFFprobe(ctx context.Context, inputPath string) ([]byte, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}
	logging.Debug("Running ffprobe", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, coreerrors.NewCancelledError()
		}
		return nil, coreerrors.WrapExecError(Binary, err, stderr.String())
	}
	return output, nil
}

// parseFFprobeOutput decodes ffprobe JSON output.
func parseFFprobeOutput(data []byte) (*ffprobeOutput, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, coreerrors.NewFFprobeParseError("failed to parse ffprobe output", err)
	}
	return &result, nil
}

// GetInputInfo probes inputPath and returns its duration, size and video properties.
// Inputs without a video stream fail with KindNoVideoStream.
func GetInputInfo(ctx context.Context, inputPath string) (*InputInfo, error) {
	output, err := runFFprobe(ctx, inputPath)
	if err != nil {
		return nil, err
	}

	probe, err := parseFFprobeOutput(output)
	if err != nil {
		return nil, err
	}

	info, err := extractInputInfo(probe, inputPath)
	if err != nil {
		return nil, err
	}

	// Some containers do not report a size.
	if info.Size == 0 {
		size, err := util.GetFileSize(inputPath)
		if err != nil {
			return nil, coreerrors.NewIOError(fmt.Sprintf("failed to stat %s", inputPath), err)
		}
		info.Size = size
	}

	logging.Debug("Probed input",
		"path", inputPath,
		"duration", info.DurationSecs,
		"size", info.Size,
		"bit_rate", info.BitRate,
		"frames", info.Video.TotalFrames,
		"codec", info.Video.CodecName,
		"resolution", fmt.Sprintf("%dx%d", info.Video.Width, info.Video.Height),
		"hdr", info.Video.HDRInfo.IsHDR,
		"transfer", info.Video.HDRInfo.TransferCharacteristics)

	return info, nil
}

func extractInputInfo(probe *ffprobeOutput, inputPath string) (*InputInfo, error) {
	video, err := extractVideoProperties(probe, inputPath)
	if err != nil {
		return nil, err
	}

	duration, err := extractDuration(probe)
	if err != nil {
		return nil, err
	}

	info := &InputInfo{
		Path:         inputPath,
		DurationSecs: duration,
		Video:        *video,
	}
	if probe.Format.Size != "" {
		if size, err := strconv.ParseUint(probe.Format.Size, 10, 64); err == nil {
			info.Size = size
		}
	}
	if probe.Format.BitRate != "" {
		if rate, err := strconv.ParseUint(probe.Format.BitRate, 10, 64); err == nil {
			info.BitRate = rate
		}
	}

	return info, nil
}

// extractDuration prefers the container duration and falls back to the video stream.
func extractDuration(probe *ffprobeOutput) (float64, error) {
	candidates := []string{probe.Format.Duration}
	if stream := firstVideoStream(probe); stream != nil {
		candidates = append(candidates, stream.Duration)
	}

	for _, c := range candidates {
		if c == "" || c == "N/A" {
			continue
		}
		d, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return 0, coreerrors.NewFFprobeParseError(fmt.Sprintf("invalid duration %q", c), err)
		}
		if d > 0 {
			return d, nil
		}
	}
	return 0, coreerrors.NewFFprobeParseError("input has no duration", nil)
}

func firstVideoStream(probe *ffprobeOutput) *ffprobeStream {
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			return &probe.Streams[i]
		}
	}
	return nil
}

// extractVideoProperties returns the properties of the first video stream.
func extractVideoProperties(probe *ffprobeOutput, inputPath string) (*VideoProperties, error) {
	videoStream := firstVideoStream(probe)
	if videoStream == nil {
		return nil, coreerrors.NewNoVideoStreamError(inputPath)
	}

	if videoStream.Width <= 0 || videoStream.Height <= 0 {
		return nil, coreerrors.NewFFprobeParseError(
			fmt.Sprintf("invalid dimensions in %s: %dx%d", inputPath, videoStream.Width, videoStream.Height), nil)
	}

	// Parse bit depth
	var bitDepth *uint8
	if videoStream.BitsPerRawSample != "" {
		if bd, err := strconv.ParseUint(videoStream.BitsPerRawSample, 10, 8); err == nil {
			bdVal := uint8(bd)
			bitDepth = &bdVal
		}
	}

	var totalFrames uint64
	if videoStream.NbFrames != "" {
		if frames, err := strconv.ParseUint(videoStream.NbFrames, 10, 64); err == nil {
			totalFrames = frames
		}
	}

	frameRate := parseFrameRate(videoStream.AvgFrameRate)
	if frameRate == 0 {
		frameRate = parseFrameRate(videoStream.RFrameRate)
	}

	return &VideoProperties{
		CodecName:   videoStream.CodecName,
		Width:       uint32(videoStream.Width),
		Height:      uint32(videoStream.Height),
		PixFmt:      videoStream.PixFmt,
		FrameRate:   frameRate,
		TotalFrames: totalFrames,
		HDRInfo: HDRInfo{
			ColourPrimaries:         videoStream.ColorPrimaries,
			TransferCharacteristics: videoStream.ColorTransfer,
			MatrixCoefficients:      videoStream.ColorSpace,
			BitDepth:                bitDepth,
			IsHDR:                   detectHDR(videoStream.ColorPrimaries, videoStream.ColorTransfer, videoStream.ColorSpace),
		},
	}, nil
}

// parseFrameRate parses ffprobe rates such as "24000/1001" or "25".
// Returns 0 for unknown or invalid rates.
func parseFrameRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// detectHDR determines if content is HDR based on color metadata.
func detectHDR(primaries, transfer, matrix string) bool {
	// BT.2020 primaries
	if containsCI(primaries, "bt2020") || containsCI(primaries, "bt.2020") || containsCI(primaries, "bt2100") {
		return true
	}

	// PQ or HLG transfer
	if containsCI(transfer, "pq") || containsCI(transfer, "smpte2084") || containsCI(transfer, "hlg") || containsCI(transfer, "arib-std-b67") {
		return true
	}

	return containsCI(matrix, "bt2020") || containsCI(matrix, "bt.2020")
}

// containsCI performs a case-insensitive substring check.
func containsCI(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
