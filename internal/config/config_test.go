package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/videos/movie.mkv")

	if cfg.InputFile != "/videos/movie.mkv" {
		t.Errorf("expected InputFile=/videos/movie.mkv, got %s", cfg.InputFile)
	}

	// Check defaults
	if cfg.MinVMAF != 95.0 {
		t.Errorf("expected MinVMAF=95, got %v", cfg.MinVMAF)
	}
	if cfg.MaxEncodedPercent != 80.0 {
		t.Errorf("expected MaxEncodedPercent=80, got %v", cfg.MaxEncodedPercent)
	}
	if cfg.MinCRF != 10 || cfg.MaxCRF != 55 {
		t.Errorf("expected crf range 10-55, got %d-%d", cfg.MinCRF, cfg.MaxCRF)
	}
	if cfg.Samples != 3 {
		t.Errorf("expected Samples=3, got %d", cfg.Samples)
	}
	if cfg.SVTAV1Preset != DefaultSVTAV1Preset {
		t.Errorf("expected SVTAV1Preset=%d, got %d", DefaultSVTAV1Preset, cfg.SVTAV1Preset)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(*Config)
		wantErr      bool
		wantSentinel error
	}{
		{
			name:    "default config is valid",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:         "preset 14 is invalid",
			modify:       func(c *Config) { c.SVTAV1Preset = 14 },
			wantErr:      true,
			wantSentinel: ErrInvalidPreset,
		},
		{
			name:    "preset 13 is valid",
			modify:  func(c *Config) { c.SVTAV1Preset = 13 },
			wantErr: false,
		},
		{
			name:         "max_crf 64 is invalid",
			modify:       func(c *Config) { c.MaxCRF = 64 },
			wantErr:      true,
			wantSentinel: ErrInvalidCRF,
		},
		{
			name:         "min_crf 64 is invalid",
			modify:       func(c *Config) { c.MinCRF = 64 },
			wantErr:      true,
			wantSentinel: ErrInvalidCRF,
		},
		{
			name:         "min_crf above max_crf is invalid",
			modify:       func(c *Config) { c.MinCRF, c.MaxCRF = 40, 30 },
			wantErr:      true,
			wantSentinel: ErrInvalidCRFRange,
		},
		{
			name:    "single crf range is valid",
			modify:  func(c *Config) { c.MinCRF, c.MaxCRF = 30, 30 },
			wantErr: false,
		},
		{
			name:         "zero samples is invalid",
			modify:       func(c *Config) { c.Samples = 0 },
			wantErr:      true,
			wantSentinel: ErrInvalidSamples,
		},
		{
			name:         "zero sample duration is invalid",
			modify:       func(c *Config) { c.SampleDuration = 0 },
			wantErr:      true,
			wantSentinel: ErrInvalidSamples,
		},
		{
			name:         "vmaf above 100 is invalid",
			modify:       func(c *Config) { c.MinVMAF = 101 },
			wantErr:      true,
			wantSentinel: ErrInvalidTarget,
		},
		{
			name:    "svt params list is valid",
			modify:  func(c *Config) { c.SvtParams = "tune=0:film-grain=8" },
			wantErr: false,
		},
		{
			name:         "svt params without value is invalid",
			modify:       func(c *Config) { c.SvtParams = "tune" },
			wantErr:      true,
			wantSentinel: ErrInvalidSvtParams,
		},
		{
			name:         "negative size budget is invalid",
			modify:       func(c *Config) { c.MaxEncodedPercent = -1 },
			wantErr:      true,
			wantSentinel: ErrInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("in.mkv")
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() error = nil, want error")
				}
				if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantSentinel)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crfsearch.yaml")
	content := []byte("min_vmaf: 93.5\nmax_crf: 45\nsamples: 5\nresponsive: true\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig("in.mkv")
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.MinVMAF != 93.5 {
		t.Errorf("MinVMAF = %v, want 93.5", cfg.MinVMAF)
	}
	if cfg.MaxCRF != 45 {
		t.Errorf("MaxCRF = %d, want 45", cfg.MaxCRF)
	}
	if cfg.Samples != 5 {
		t.Errorf("Samples = %d, want 5", cfg.Samples)
	}
	if !cfg.ResponsiveEncoding {
		t.Error("ResponsiveEncoding = false, want true")
	}
	// Untouched keys keep their defaults.
	if cfg.MinCRF != DefaultMinCRF {
		t.Errorf("MinCRF = %d, want default %d", cfg.MinCRF, DefaultMinCRF)
	}
	if cfg.InputFile != "in.mkv" {
		t.Errorf("InputFile = %q, want in.mkv", cfg.InputFile)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crfsearch.yaml")
	if err := os.WriteFile(path, []byte("min_vmafs: 93\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := NewConfig("in.mkv").LoadFile(path)
	if !errors.Is(err, ErrInvalidConfigFile) {
		t.Errorf("LoadFile() error = %v, want %v", err, ErrInvalidConfigFile)
	}
}

func TestLoadFileMissing(t *testing.T) {
	err := NewConfig("in.mkv").LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("LoadFile() on missing file should fail")
	}
}

func TestSearchConfig(t *testing.T) {
	cfg := NewConfig("in.mkv")
	cfg.SVTAV1Preset = 6

	sc := cfg.SearchConfig()
	if sc.Input != "in.mkv" || sc.Preset != 6 {
		t.Errorf("SearchConfig() input/preset = %q/%d", sc.Input, sc.Preset)
	}
	if sc.MinCRF != 10 || sc.MaxCRF != 55 || sc.Samples != 3 {
		t.Errorf("SearchConfig() range = %d-%d samples=%d", sc.MinCRF, sc.MaxCRF, sc.Samples)
	}
	if sc.MinVMAF != 95 || sc.MaxEncodedPercent != 80 {
		t.Errorf("SearchConfig() targets = %v/%v", sc.MinVMAF, sc.MaxEncodedPercent)
	}
}
