package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/plexus/config"
	"github.com/pthm-cable/plexus/scene"
)

// FitnessEvaluator runs headless fields and scores how far their mean
// particle degree lands from the target.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []int64
	baseConfig *config.Config
	target     float64
	warmup     int
	frames     int

	mu         sync.Mutex
	lastDegree float64 // mean degree from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		seeds:      seeds,
		baseConfig: baseCfg,
		target:     baseCfg.Tune.TargetDegree,
		warmup:     baseCfg.Tune.Warmup,
		frames:     max(baseCfg.Tune.Frames, 1),
	}
}

// LastDegree returns the mean degree from the most recent evaluation.
func (fe *FitnessEvaluator) LastDegree() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastDegree
}

// Evaluate computes the error for raw parameter values (lower = better):
// the squared distance of mean degree from target, averaged over seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	degrees := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			degrees[idx] = fe.runField(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	errs := make([]float64, len(degrees))
	for i, d := range degrees {
		errs[i] = (d - fe.target) * (d - fe.target)
	}

	fe.mu.Lock()
	fe.lastDegree = stat.Mean(degrees, nil)
	fe.mu.Unlock()

	return stat.Mean(errs, nil)
}

// runField steps one seeded field and returns its mean degree after warmup.
// A field that fails to build scores as infinitely far from target.
func (fe *FitnessEvaluator) runField(cfg *config.Config, seed int64) float64 {
	s, err := scene.New(cfg, scene.Options{Seed: seed, Workers: 1})
	if err != nil {
		return math.Inf(1)
	}
	defer s.Close()

	for i := 0; i < fe.warmup; i++ {
		s.Step(nil)
	}

	var sum float64
	for i := 0; i < fe.frames; i++ {
		s.Step(nil)
		sum += s.LastStats().MeanDegree
	}
	return sum / float64(fe.frames)
}

// copyConfig returns a copy of the base config safe to mutate per evaluation.
// Only engine tunables are written, so slices may stay shared.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Engine.LimitConnections = true
	return &cfg
}
