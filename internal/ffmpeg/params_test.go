package ffmpeg

import "testing"

func TestSvtAv1ParamsBuilder(t *testing.T) {
	tests := []struct {
		name  string
		build func() string
		want  string
	}{
		{
			name: "custom params",
			build: func() string {
				return NewSvtAv1ParamsBuilder().
					AddParam("keyint", "10s").
					AddParam("scd", "1").
					Build()
			},
			want: "keyint=10s:scd=1",
		},
		{
			name: "later value replaces earlier",
			build: func() string {
				return NewSvtAv1ParamsBuilder().
					AddParam("tune", "2").
					AddParam("scd", "1").
					AddParam("tune", "0").
					Build()
			},
			want: "tune=0:scd=1",
		},
		{
			name: "empty",
			build: func() string {
				return NewSvtAv1ParamsBuilder().Build()
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build(); got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSvtAv1ParamsBuilderParse(t *testing.T) {
	b, err := NewSvtAv1ParamsBuilder().AddParam("tune", "2").Parse("tune=0: film-grain=8 :")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := b.Build(); got != "tune=0:film-grain=8" {
		t.Errorf("Build() = %q, want %q", got, "tune=0:film-grain=8")
	}

	for _, bad := range []string{"tune", "=3", "scd=1:oops"} {
		if _, err := NewSvtAv1ParamsBuilder().Parse(bad); err == nil {
			t.Errorf("Parse(%q) expected error", bad)
		}
	}

	empty, err := NewSvtAv1ParamsBuilder().Parse("")
	if err != nil || !empty.IsEmpty() {
		t.Errorf("Parse(\"\") = %q, %v, want empty", empty.Build(), err)
	}
}

func TestVideoFilterChain(t *testing.T) {
	tests := []struct {
		name  string
		build func() string
		want  string
	}{
		{
			name: "empty chain",
			build: func() string {
				return NewVideoFilterChain().Build()
			},
			want: "",
		},
		{
			name: "single format",
			build: func() string {
				return NewVideoFilterChain().AddFormat("yuv420p10le").Build()
			},
			want: "format=yuv420p10le",
		},
		{
			name: "labelled chain",
			build: func() string {
				return NewVideoFilterChain().
					From("0:v").
					AddFormat("yuv420p").
					AddFilter("setpts=PTS-STARTPTS").
					To("dis").
					Build()
			},
			want: "[0:v]format=yuv420p,setpts=PTS-STARTPTS[dis]",
		},
		{
			name: "labelled empty chain uses null",
			build: func() string {
				return NewVideoFilterChain().From("1:v").To("ref").Build()
			},
			want: "[1:v]null[ref]",
		},
		{
			name: "empty filters ignored",
			build: func() string {
				return NewVideoFilterChain().
					AddFormat("").
					AddFilter("").
					AddFilter("scale=1920:1080").
					Build()
			},
			want: "scale=1920:1080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build()
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVMAFFilterGraph(t *testing.T) {
	tests := []struct {
		name string
		opts VMAFOptions
		want string
	}{
		{
			name: "defaults",
			opts: VMAFOptions{},
			want: "[0:v]setpts=PTS-STARTPTS[dis];[1:v]setpts=PTS-STARTPTS[ref];[dis][ref]libvmaf",
		},
		{
			name: "format threads and model",
			opts: VMAFOptions{PixelFormat: "yuv420p10le", Threads: 8, Model: "vmaf_4k_v0.6.1"},
			want: "[0:v]format=yuv420p10le,setpts=PTS-STARTPTS[dis];" +
				"[1:v]format=yuv420p10le,setpts=PTS-STARTPTS[ref];" +
				"[dis][ref]libvmaf=n_threads=8:model=version=vmaf_4k_v0.6.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VMAFFilterGraph(tt.opts); got != tt.want {
				t.Errorf("VMAFFilterGraph() = %q, want %q", got, tt.want)
			}
		})
	}
}
