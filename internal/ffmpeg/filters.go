package ffmpeg

import (
	"fmt"
	"strings"
)

// VideoFilterChain builds one chain of a filter graph, optionally labelled
// with an input and output pad.
type VideoFilterChain struct {
	input   string
	output  string
	filters []string
}

// NewVideoFilterChain creates a new empty filter chain.
func NewVideoFilterChain() *VideoFilterChain {
	return &VideoFilterChain{}
}

// From sets the input pad label, e.g. "0:v".
func (c *VideoFilterChain) From(label string) *VideoFilterChain {
	c.input = label
	return c
}

// To sets the output pad label.
func (c *VideoFilterChain) To(label string) *VideoFilterChain {
	c.output = label
	return c
}

// AddFormat adds a pixel format conversion to the chain.
func (c *VideoFilterChain) AddFormat(pixFmt string) *VideoFilterChain {
	if pixFmt != "" {
		c.filters = append(c.filters, "format="+pixFmt)
	}
	return c
}

// AddFilter adds a custom filter to the chain.
func (c *VideoFilterChain) AddFilter(filter string) *VideoFilterChain {
	if filter != "" {
		c.filters = append(c.filters, filter)
	}
	return c
}

// Build builds the chain into a single filter string.
// An unlabelled empty chain builds to the empty string; a labelled one uses
// the null filter.
func (c *VideoFilterChain) Build() string {
	labelled := c.input != "" || c.output != ""
	if len(c.filters) == 0 && !labelled {
		return ""
	}

	body := strings.Join(c.filters, ",")
	if body == "" {
		body = "null"
	}

	var b strings.Builder
	if c.input != "" {
		fmt.Fprintf(&b, "[%s]", c.input)
	}
	b.WriteString(body)
	if c.output != "" {
		fmt.Fprintf(&b, "[%s]", c.output)
	}
	return b.String()
}

// IsEmpty returns true if no filters are present.
func (c *VideoFilterChain) IsEmpty() bool {
	return len(c.filters) == 0
}

// VMAFOptions configures the libvmaf filter.
type VMAFOptions struct {
	// PixelFormat both inputs are converted to before scoring.
	PixelFormat string

	// Threads passed to libvmaf as n_threads. Zero leaves the default.
	Threads int

	// Model is a libvmaf model version, e.g. "vmaf_4k_v0.6.1". Empty uses the default model.
	Model string
}

// VMAFFilterGraph builds the filter graph comparing input 0 (distorted)
// against input 1 (reference).
func VMAFFilterGraph(opts VMAFOptions) string {
	distorted := NewVideoFilterChain().From("0:v").
		AddFormat(opts.PixelFormat).
		AddFilter("setpts=PTS-STARTPTS").
		To("dis")
	reference := NewVideoFilterChain().From("1:v").
		AddFormat(opts.PixelFormat).
		AddFilter("setpts=PTS-STARTPTS").
		To("ref")

	var vmafOpts []string
	if opts.Threads > 0 {
		vmafOpts = append(vmafOpts, fmt.Sprintf("n_threads=%d", opts.Threads))
	}
	if opts.Model != "" {
		vmafOpts = append(vmafOpts, "model=version="+opts.Model)
	}
	vmaf := "libvmaf"
	if len(vmafOpts) > 0 {
		vmaf += "=" + strings.Join(vmafOpts, ":")
	}

	return strings.Join([]string{distorted.Build(), reference.Build(), "[dis][ref]" + vmaf}, ";")
}
