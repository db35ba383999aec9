// Package scene runs the proximity field frame loop: particle updates,
// structural links, and per-window telemetry. It has no graphics dependency;
// the viewer drives it with a render callback and headless runs pass nil.
package scene

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/plexus/cluster"
	"github.com/pthm-cable/plexus/config"
	"github.com/pthm-cable/plexus/telemetry"
)

// Options configures a scene.
type Options struct {
	Seed      int64
	Workers   int // -1 = use config
	OutputDir string
	LogStats  bool
}

// Scene holds the complete run state.
type Scene struct {
	cfg   *config.Config
	field *cluster.Field

	tunables config.Tunables
	rngSeed  int64

	frame         int
	paused        bool
	pendingResize bool
	last          cluster.FrameStats

	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool

	statsCallback    func(telemetry.WindowStats)
	bookmarkCallback func(telemetry.Bookmark)
}

// New builds the field described by cfg and the telemetry around it.
func New(cfg *config.Config, opts Options) (*Scene, error) {
	fieldCfg := cfg.Field
	if opts.Workers >= 0 {
		fieldCfg.Workers = opts.Workers
	}

	field, err := cluster.New(fieldCfg, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return nil, fmt.Errorf("building field: %w", err)
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		field.Close()
		return nil, err
	}
	if err := om.WriteConfig(cfg); err != nil {
		field.Close()
		om.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	s := &Scene{
		cfg:              cfg,
		field:            field,
		tunables:         cfg.Engine,
		rngSeed:          opts.Seed,
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		outputManager:    om,
		logStats:         opts.LogStats,
	}

	slog.Info("scene ready",
		"seed", opts.Seed,
		"layout", cfg.Field.Layout,
		"clusters", field.Len(),
		"parallel", field.Parallel(),
		"output_dir", om.Dir(),
	)

	return s, nil
}

// Update advances one frame unless paused. render, if non-nil, runs inside
// the frame's render phase; it also runs while paused.
func (s *Scene) Update(render func()) {
	if s.paused {
		if render != nil {
			render()
		}
		return
	}
	s.Step(render)
}

// Step advances one frame regardless of pause state.
func (s *Scene) Step(render func()) {
	s.perfCollector.StartStep()

	s.perfCollector.StartPhase(telemetry.PhaseParticles)
	s.field.UpdateParticles(s.tunables)

	s.perfCollector.StartPhase(telemetry.PhaseLinks)
	rebuilt := s.field.SyncLinks(s.tunables.LinkThreshold)
	if s.pendingResize {
		rebuilt = true
		s.pendingResize = false
	}
	s.last = s.field.Stats(s.tunables, rebuilt)

	if render != nil {
		s.perfCollector.StartPhase(telemetry.PhaseRender)
		render()
	}

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.frame++
	s.collector.Record(s.last, s.tunables)
	s.flushTelemetry()

	s.perfCollector.EndStep()
}

// flushTelemetry emits a stats window and its bookmarks when one is complete.
func (s *Scene) flushTelemetry() {
	if !s.collector.ShouldFlush(s.frame) {
		return
	}

	stats := s.collector.Flush(s.frame)
	perfStats := s.perfCollector.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if s.outputManager != nil {
		if err := s.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := s.outputManager.WritePerf(perfStats, stats.WindowEnd); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range s.bookmarkDetector.Check(stats) {
		if s.bookmarkCallback != nil {
			s.bookmarkCallback(bm)
		}
		if s.logStats {
			bm.LogBookmark()
		}
		if err := s.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}

// Resize rebuilds the structural links at the current threshold.
func (s *Scene) Resize() {
	s.field.Resize()
	s.pendingResize = true
}

// SetStatsCallback registers fn to receive every flushed window.
func (s *Scene) SetStatsCallback(fn func(telemetry.WindowStats)) {
	s.statsCallback = fn
}

// SetBookmarkCallback registers fn to receive every bookmark.
func (s *Scene) SetBookmarkCallback(fn func(telemetry.Bookmark)) {
	s.bookmarkCallback = fn
}

// Tunables returns the live tunables. Edits apply from the next frame.
func (s *Scene) Tunables() *config.Tunables {
	return &s.tunables
}

// ResetTunables restores the configured defaults.
func (s *Scene) ResetTunables() {
	s.tunables = s.cfg.Engine
}

// Field returns the underlying field.
func (s *Scene) Field() *cluster.Field {
	return s.field
}

// Config returns the scene's configuration.
func (s *Scene) Config() *config.Config {
	return s.cfg
}

// Frame returns the number of frames stepped.
func (s *Scene) Frame() int {
	return s.frame
}

// Seed returns the RNG seed the field was built with.
func (s *Scene) Seed() int64 {
	return s.rngSeed
}

// LastStats returns the most recent frame's stats.
func (s *Scene) LastStats() cluster.FrameStats {
	return s.last
}

// Perf returns the frame timing collector.
func (s *Scene) Perf() *telemetry.PerfCollector {
	return s.perfCollector
}

// Paused reports whether the scene is paused.
func (s *Scene) Paused() bool {
	return s.paused
}

// TogglePause flips the pause state and returns the new value.
func (s *Scene) TogglePause() bool {
	s.paused = !s.paused
	return s.paused
}

// Close stops workers and closes output files.
func (s *Scene) Close() error {
	s.field.Close()
	return s.outputManager.Close()
}
