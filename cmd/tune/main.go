// Package main searches engine tunables for a target mean particle degree
// using Nelder-Mead over headless runs.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/plexus/config"
)

// evalRecord is one row of tune_log.csv.
type evalRecord struct {
	Eval           int     `csv:"eval"`
	Error          float64 `csv:"error"`
	MeanDegree     float64 `csv:"mean_degree"`
	MinDistance    float64 `csv:"min_distance"`
	MaxConnections float64 `csv:"max_connections"`
}

// formatDuration formats a duration as HhMMmSSs or MmSSs for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	seeds := flag.Int("seeds", 0, "Number of seeds per evaluation (0 = use config)")
	maxEvals := flag.Int("max-evals", 0, "Maximum number of evaluations (0 = use config)")
	target := flag.Float64("target", 0, "Target mean degree (0 = use config)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}

	// Scenes log at info on creation; keep evaluation output quiet.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()
	if *seeds > 0 {
		baseCfg.Tune.Seeds = *seeds
	}
	if *maxEvals > 0 {
		baseCfg.Tune.MaxEvals = *maxEvals
	}
	if *target > 0 {
		baseCfg.Tune.TargetDegree = *target
	}

	params := NewParamVector()

	evalSeeds := make([]int64, max(baseCfg.Tune.Seeds, 1))
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, evalSeeds, baseCfg)
	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(baseCfg)))

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	headerWritten := false
	bestErr := 1e18
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			degree := evaluator.LastDegree()
			evalCount++

			if fitness < bestErr {
				bestErr = fitness
				bestParams = clamped
			}

			rec := []evalRecord{{
				Eval:           evalCount,
				Error:          fitness,
				MeanDegree:     degree,
				MinDistance:    clamped[0],
				MaxConnections: clamped[1],
			}}
			if headerWritten {
				err = gocsv.MarshalWithoutHeaders(rec, logFile)
			} else {
				err = gocsv.Marshal(rec, logFile)
				headerWritten = true
			}
			if err != nil {
				log.Printf("failed to write log row: %v", err)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(max(baseCfg.Tune.MaxEvals-evalCount, 0)) * avgPerEval
			fmt.Printf("Eval %d/%d: degree=%.3f error=%.4f (best=%.4f) | elapsed: %s, ETA: %s\n",
				evalCount, baseCfg.Tune.MaxEvals, degree, fitness, bestErr,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: baseCfg.Tune.MaxEvals,
	}

	fmt.Printf("Starting Nelder-Mead search over %d parameters, target degree %.2f, max_evals=%d\n",
		params.Dim(), baseCfg.Tune.TargetDegree, baseCfg.Tune.MaxEvals)
	fmt.Printf("Seeds per evaluation: %d, frames per run: %d (+%d warmup)\n",
		len(evalSeeds), baseCfg.Tune.Frames, baseCfg.Tune.Warmup)

	result, err := optimize.Minimize(problem, initX, settings, &optimize.NelderMead{})
	if err != nil {
		log.Printf("search ended: %v", err)
	}

	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluations completed")
	}

	fmt.Printf("\nSearch complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best error: %.4f\n", bestErr)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.3f\n", spec.Path, bestParams[i])
	}

	bestCfg := *baseCfg
	bestCfg.Engine.LimitConnections = true
	params.ApplyToConfig(&bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
