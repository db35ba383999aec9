package telemetry

import (
	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/plexus/cluster"
	"github.com/pthm-cable/plexus/config"
)

// Collector accumulates per-frame field stats and produces WindowStats.
type Collector struct {
	windowFrames int

	// Current window tracking
	windowStart int
	edges       []float64
	degrees     []float64
	saturated   []float64
	maxEdges    int
	rebuilds    int

	last     cluster.FrameStats
	tunables config.Tunables
}

// NewCollector creates a collector that flushes every windowFrames frames.
func NewCollector(windowFrames int) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return &Collector{
		windowFrames: windowFrames,
		edges:        make([]float64, 0, windowFrames),
		degrees:      make([]float64, 0, windowFrames),
		saturated:    make([]float64, 0, windowFrames),
	}
}

// Record adds one frame.
func (c *Collector) Record(s cluster.FrameStats, t config.Tunables) {
	c.edges = append(c.edges, float64(s.ActiveEdges))
	c.degrees = append(c.degrees, s.MeanDegree)
	c.saturated = append(c.saturated, float64(s.Saturated))
	c.maxEdges += s.MaxEdges
	if s.Rebuilt {
		c.rebuilds++
	}
	c.last = s
	c.tunables = t
}

// ShouldFlush returns true if enough frames have passed to flush the window.
func (c *Collector) ShouldFlush(frame int) bool {
	return frame-c.windowStart >= c.windowFrames
}

// Flush produces a WindowStats and resets the window.
func (c *Collector) Flush(frame int) WindowStats {
	edges := ComputeSeriesStats(c.edges)
	degrees := ComputeSeriesStats(c.degrees)
	saturated := ComputeSeriesStats(c.saturated)

	var fill float64
	if c.maxEdges > 0 {
		fill = floats.Sum(c.edges) / float64(c.maxEdges)
	}

	stats := WindowStats{
		WindowStart: c.windowStart,
		WindowEnd:   frame,
		Frames:      len(c.edges),

		Clusters:  c.last.Clusters,
		Particles: c.last.Particles,

		EdgesMean: edges.Mean,
		EdgesMax:  edges.Max,
		EdgesP10:  edges.P10,
		EdgesP50:  edges.P50,
		EdgesP90:  edges.P90,
		Fill:      fill,

		DegreeMean: degrees.Mean,
		DegreeStd:  degrees.Std,

		SaturatedMean: saturated.Mean,

		Links:      c.last.Links,
		LinkGroups: c.last.LinkGroups,
		Rebuilds:   c.rebuilds,

		MinDistance:    c.tunables.MinDistance,
		MaxConnections: c.tunables.MaxConnections,
		LinkThreshold:  c.tunables.LinkThreshold,
	}

	c.windowStart = frame
	c.edges = c.edges[:0]
	c.degrees = c.degrees[:0]
	c.saturated = c.saturated[:0]
	c.maxEdges = 0
	c.rebuilds = 0

	return stats
}

// WindowFrames returns the number of frames per window.
func (c *Collector) WindowFrames() int {
	return c.windowFrames
}
