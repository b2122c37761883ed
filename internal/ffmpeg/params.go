// Package ffmpeg provides FFmpeg command building and execution.
package ffmpeg

import (
	"fmt"
	"strings"
)

// SvtAv1ParamsBuilder builds SVT-AV1 parameters with method chaining.
type SvtAv1ParamsBuilder struct {
	params []paramKV
}

type paramKV struct {
	key   string
	value string
}

// NewSvtAv1ParamsBuilder creates a new SVT-AV1 parameters builder.
func NewSvtAv1ParamsBuilder() *SvtAv1ParamsBuilder {
	return &SvtAv1ParamsBuilder{}
}

// AddParam adds a parameter, replacing an earlier value for the same key.
func (b *SvtAv1ParamsBuilder) AddParam(key, value string) *SvtAv1ParamsBuilder {
	for i := range b.params {
		if b.params[i].key == key {
			b.params[i].value = value
			return b
		}
	}
	b.params = append(b.params, paramKV{key, value})
	return b
}

// Parse adds every "key=value" pair of a colon separated list such as
// "tune=0:film-grain=8".
func (b *SvtAv1ParamsBuilder) Parse(s string) (*SvtAv1ParamsBuilder, error) {
	for _, part := range strings.Split(s, ":") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return b, fmt.Errorf("invalid svt-av1 parameter %q, expected key=value", part)
		}
		b.AddParam(key, value)
	}
	return b, nil
}

// IsEmpty returns true if no parameters have been added.
func (b *SvtAv1ParamsBuilder) IsEmpty() bool {
	return len(b.params) == 0
}

// Build builds the parameters into a colon-separated string.
func (b *SvtAv1ParamsBuilder) Build() string {
	var parts []string
	for _, p := range b.params {
		parts = append(parts, fmt.Sprintf("%s=%s", p.key, p.value))
	}
	return strings.Join(parts, ":")
}
