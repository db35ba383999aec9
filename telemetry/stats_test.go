package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeSeriesStats(t *testing.T) {
	values := []float64{10, 2, 8, 4, 6}
	s := ComputeSeriesStats(values)

	if math.Abs(s.Mean-6) > 0.001 {
		t.Errorf("mean = %v, want 6", s.Mean)
	}
	// Population std of 2,4,6,8,10 is sqrt(8)
	if math.Abs(s.Std-math.Sqrt(8)) > 0.001 {
		t.Errorf("std = %v, want %v", s.Std, math.Sqrt(8))
	}
	if s.Max != 10 {
		t.Errorf("max = %v, want 10", s.Max)
	}
	if math.Abs(s.P50-6) > 0.001 {
		t.Errorf("p50 = %v, want 6", s.P50)
	}
	if math.Abs(s.P10-2.8) > 0.001 {
		t.Errorf("p10 = %v, want 2.8", s.P10)
	}

	// Input order is preserved
	if values[0] != 10 || values[1] != 2 {
		t.Errorf("input modified: %v", values)
	}
}

func TestComputeSeriesStatsEmpty(t *testing.T) {
	if s := ComputeSeriesStats(nil); s != (SeriesStats{}) {
		t.Errorf("empty series = %+v, want zero", s)
	}
}
