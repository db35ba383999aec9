package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of frames.
type WindowStats struct {
	WindowStart int `csv:"-"`
	WindowEnd   int `csv:"window_end"`
	Frames      int `csv:"frames"`

	// Field size at window end
	Clusters  int `csv:"clusters"`
	Particles int `csv:"particles"`

	// Edges per frame across all clusters
	EdgesMean float64 `csv:"edges_mean"`
	EdgesMax  float64 `csv:"edges_max"`
	EdgesP10  float64 `csv:"edges_p10"`
	EdgesP50  float64 `csv:"edges_p50"`
	EdgesP90  float64 `csv:"edges_p90"`
	Fill      float64 `csv:"fill"` // mean edges over the n(n-1)/2 bound

	// Mean edges per particle, per frame
	DegreeMean float64 `csv:"degree_mean"`
	DegreeStd  float64 `csv:"degree_std"`

	SaturatedMean float64 `csv:"saturated_mean"`

	// Structural graph at window end
	Links      int `csv:"links"`
	LinkGroups int `csv:"link_groups"`
	Rebuilds   int `csv:"rebuilds"`

	// Tunables at window end
	MinDistance    float64 `csv:"min_distance"`
	MaxConnections int     `csv:"max_connections"`
	LinkThreshold  float64 `csv:"link_threshold"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SeriesStats summarizes a series of per-frame values.
type SeriesStats struct {
	Mean, Std, Max float64
	P10, P50, P90  float64
}

// ComputeSeriesStats calculates mean, population std, max and percentiles.
// values is not modified.
func ComputeSeriesStats(values []float64) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}

	mean, std := stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return SeriesStats{
		Mean: mean,
		Std:  std,
		Max:  floats.Max(values),
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStart),
		slog.Int("window_end", s.WindowEnd),
		slog.Int("frames", s.Frames),
		slog.Int("clusters", s.Clusters),
		slog.Int("particles", s.Particles),
		slog.Float64("edges_mean", s.EdgesMean),
		slog.Float64("edges_max", s.EdgesMax),
		slog.Float64("edges_p50", s.EdgesP50),
		slog.Float64("fill", s.Fill),
		slog.Float64("degree_mean", s.DegreeMean),
		slog.Float64("degree_std", s.DegreeStd),
		slog.Float64("saturated_mean", s.SaturatedMean),
		slog.Int("links", s.Links),
		slog.Int("link_groups", s.LinkGroups),
		slog.Int("rebuilds", s.Rebuilds),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEnd,
		"frames", s.Frames,
		"clusters", s.Clusters,
		"particles", s.Particles,
		"edges_mean", s.EdgesMean,
		"edges_max", s.EdgesMax,
		"edges_p10", s.EdgesP10,
		"edges_p50", s.EdgesP50,
		"edges_p90", s.EdgesP90,
		"fill", s.Fill,
		"degree_mean", s.DegreeMean,
		"degree_std", s.DegreeStd,
		"saturated_mean", s.SaturatedMean,
		"links", s.Links,
		"link_groups", s.LinkGroups,
		"rebuilds", s.Rebuilds,
		"min_distance", s.MinDistance,
		"max_connections", s.MaxConnections,
		"link_threshold", s.LinkThreshold,
	)
}
