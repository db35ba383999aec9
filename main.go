package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plexus/config"
	"github.com/pthm-cable/plexus/scene"
	"github.com/pthm-cable/plexus/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in frames (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	workers := flag.Int("workers", -1, "Cluster update workers (0 = GOMAXPROCS, 1 = sequential, -1 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := scene.Options{
		Seed:      rngSeed,
		Workers:   *workers,
		OutputDir: *outputDir,
		LogStats:  *logStats,
	}

	if *headless {
		runHeadless(cfg, opts, *maxFrames)
		return
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Plexus")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	s, err := scene.New(cfg, opts)
	if err != nil {
		slog.Error("failed to build scene", "error", err)
		return
	}
	defer closeScene(s)

	v := viewer.New(s, "Plexus")
	for !rl.WindowShouldClose() {
		v.Update()

		if *maxFrames > 0 && s.Frame() >= *maxFrames {
			break
		}
	}
}

// runHeadless steps the field without a window.
func runHeadless(cfg *config.Config, opts scene.Options, maxFrames int) {
	s, err := scene.New(cfg, opts)
	if err != nil {
		slog.Error("failed to build scene", "error", err)
		os.Exit(1)
	}
	defer closeScene(s)

	slog.Info("starting headless run",
		"seed", opts.Seed,
		"stats_window", cfg.Telemetry.StatsWindow,
		"max_frames", maxFrames,
	)

	for maxFrames <= 0 || s.Frame() < maxFrames {
		s.Step(nil)
	}
	slog.Info("max frames reached", "frame", s.Frame())
}

func closeScene(s *scene.Scene) {
	if err := s.Close(); err != nil {
		slog.Error("failed to close scene", "error", err)
	}
}
