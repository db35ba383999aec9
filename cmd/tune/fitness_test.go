package main

import (
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/plexus/config"
)

func tuneConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	cfg.Tune.Warmup = 2
	cfg.Tune.Frames = 5
	cfg.Tune.TargetDegree = 1.5
	return cfg
}

func TestParamVectorNormalize(t *testing.T) {
	pv := NewParamVector()
	raw := []float64{150, 10}

	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-9 {
			t.Errorf("param %s: round trip %v, want %v", pv.Specs[i].Name, back[i], raw[i])
		}
	}
}

func TestApplyToConfig(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantDist float64
		wantMax  int
	}{
		{"in range", []float64{80, 7.6}, 80, 8},
		{"below min", []float64{-5, 0}, 0, 1},
		{"above max", []float64{1000, 99}, 300, 30},
	}

	pv := NewParamVector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tuneConfig(t)
			pv.ApplyToConfig(cfg, tt.values)
			if cfg.Engine.MinDistance != tt.wantDist {
				t.Errorf("MinDistance = %v, want %v", cfg.Engine.MinDistance, tt.wantDist)
			}
			if cfg.Engine.MaxConnections != tt.wantMax {
				t.Errorf("MaxConnections = %d, want %d", cfg.Engine.MaxConnections, tt.wantMax)
			}
		})
	}
}

func TestEvaluateZeroDistance(t *testing.T) {
	cfg := tuneConfig(t)
	fe := NewFitnessEvaluator(NewParamVector(), []int64{1, 2}, cfg)

	// No particle pair is ever closer than zero.
	got := fe.Evaluate([]float64{0, 10})
	want := cfg.Tune.TargetDegree * cfg.Tune.TargetDegree
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Evaluate = %v, want %v", got, want)
	}
	if fe.LastDegree() != 0 {
		t.Errorf("LastDegree = %v, want 0", fe.LastDegree())
	}
}

func TestEvaluateLeavesBaseConfig(t *testing.T) {
	cfg := tuneConfig(t)
	before := cfg.Engine
	fe := NewFitnessEvaluator(NewParamVector(), []int64{1}, cfg)

	fe.Evaluate([]float64{200, 3})
	if cfg.Engine != before {
		t.Errorf("base config engine changed: %+v", cfg.Engine)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	cfg := tuneConfig(t)
	fe := NewFitnessEvaluator(NewParamVector(), []int64{7, 8}, cfg)

	a := fe.Evaluate([]float64{120, 4})
	b := fe.Evaluate([]float64{120, 4})
	if a != b {
		t.Errorf("same inputs scored %v then %v", a, b)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{5, "0m05s"},
		{125, "2m05s"},
		{3725, "1h02m05s"},
	}
	for _, tt := range tests {
		if got := formatDuration(time.Duration(tt.secs) * time.Second); got != tt.want {
			t.Errorf("formatDuration(%ds) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
