package search

import (
	"math"
	"testing"
)

func TestEstimateProgress(t *testing.T) {
	tests := []struct {
		run   int
		p     float64
		quick bool
		want  float64
	}{
		{1, 0, false, 0},
		{1, 1, false, 125},
		{2, 0.5, false, 187.5},
		{3, 0, false, 250},
		{3, 1, false, 625},
		{4, 1, false, 1000},
		{5, 0, false, 8000.0 / 11}, // 8 of 11 units
		{3, 1, true, 500},          // 3 of 6 units
		{4, 0.5, true, 750},        // 4.5 of 6 units
		{5, 0, true, 6000.0 / 9},   // 6 of 9 units
	}

	for _, tt := range tests {
		got := EstimateProgress(tt.run, tt.p, tt.quick)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("EstimateProgress(%d, %v, %v) = %v, want %v", tt.run, tt.p, tt.quick, got, tt.want)
		}
	}
}

func TestEstimateProgressBounds(t *testing.T) {
	for _, quick := range []bool{false, true} {
		for run := 1; run <= 20; run++ {
			prev := -1.0
			for i := 0; i <= 100; i++ {
				got := EstimateProgress(run, float64(i)/100, quick)
				if got < prev {
					t.Fatalf("run %d quick=%v: progress decreased from %v to %v", run, quick, prev, got)
				}
				if got < 0 || got > ProgressScale {
					t.Fatalf("run %d quick=%v: progress %v outside [0, %v]", run, quick, got, ProgressScale)
				}
				prev = got
			}
		}
	}
}

func TestEstimateProgressClampsSampleProgress(t *testing.T) {
	if got := EstimateProgress(1, -3, false); got != 0 {
		t.Errorf("EstimateProgress(1, -3) = %v, want 0", got)
	}
	if got := EstimateProgress(4, 7, false); got != ProgressScale {
		t.Errorf("EstimateProgress(4, 7) = %v, want %v", got, ProgressScale)
	}
}

func TestProbeProgress(t *testing.T) {
	var p ProbeProgress
	if got := p.Fraction(); got != 0 {
		t.Errorf("zero Fraction() = %v, want 0", got)
	}

	p.SetLength(600)
	p.Set(150)
	if got := p.Fraction(); got != 0.25 {
		t.Errorf("Fraction() = %v, want 0.25", got)
	}

	p.Set(900)
	if got := p.Fraction(); got != 1 {
		t.Errorf("Fraction() past length = %v, want 1", got)
	}

	p.Reset()
	if pos, length := p.Load(); pos != 0 || length != 0 {
		t.Errorf("Load() after Reset = %d/%d, want 0/0", pos, length)
	}

	// Position without a length divides by one.
	p.Set(0)
	if got := p.Fraction(); got != 0 {
		t.Errorf("Fraction() without length = %v, want 0", got)
	}
}
