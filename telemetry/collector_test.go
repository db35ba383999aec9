package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/plexus/cluster"
	"github.com/pthm-cable/plexus/config"
)

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(4)
	tun := config.Tunables{MinDistance: 80, MaxConnections: 20, LinkThreshold: 15}

	frames := []cluster.FrameStats{
		{Clusters: 2, Particles: 8, ActiveEdges: 2, MaxEdges: 12, MeanDegree: 0.5, Rebuilt: true, Links: 1, LinkGroups: 1},
		{Clusters: 2, Particles: 8, ActiveEdges: 4, MaxEdges: 12, MeanDegree: 1.0, Links: 1, LinkGroups: 1},
		{Clusters: 2, Particles: 8, ActiveEdges: 6, MaxEdges: 12, MeanDegree: 1.5, Saturated: 2, Links: 1, LinkGroups: 1},
	}
	for i, f := range frames {
		if c.ShouldFlush(i) {
			t.Fatalf("flush requested early at frame %d", i)
		}
		c.Record(f, tun)
	}
	if !c.ShouldFlush(4) {
		t.Fatal("expected flush at frame 4")
	}

	s := c.Flush(4)

	if s.Frames != 3 || s.WindowStart != 0 || s.WindowEnd != 4 {
		t.Errorf("window = %d frames [%d, %d]", s.Frames, s.WindowStart, s.WindowEnd)
	}
	if math.Abs(s.EdgesMean-4) > 1e-9 || s.EdgesMax != 6 {
		t.Errorf("edges mean/max = %v/%v, want 4/6", s.EdgesMean, s.EdgesMax)
	}
	if math.Abs(s.Fill-12.0/36) > 1e-9 {
		t.Errorf("fill = %v, want %v", s.Fill, 12.0/36)
	}
	if math.Abs(s.DegreeMean-1) > 1e-9 {
		t.Errorf("degree mean = %v, want 1", s.DegreeMean)
	}
	if math.Abs(s.SaturatedMean-2.0/3) > 1e-9 {
		t.Errorf("saturated mean = %v, want 2/3", s.SaturatedMean)
	}
	if s.Rebuilds != 1 || s.Links != 1 || s.Particles != 8 {
		t.Errorf("rebuilds/links/particles = %d/%d/%d", s.Rebuilds, s.Links, s.Particles)
	}
	if s.MinDistance != 80 || s.LinkThreshold != 15 {
		t.Errorf("tunables = %v/%v", s.MinDistance, s.LinkThreshold)
	}

	// Window resets
	if c.ShouldFlush(5) {
		t.Error("flush requested right after reset")
	}
	s = c.Flush(5)
	if s.Frames != 0 || s.Rebuilds != 0 || s.EdgesMean != 0 {
		t.Errorf("empty window = %+v", s)
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for i := 1; i <= 2; i++ {
		if err := om.WriteTelemetry(WindowStats{WindowEnd: i * 600, Frames: 600, EdgesMean: 3}); err != nil {
			t.Fatal(err)
		}
		if err := om.WritePerf(PerfStats{PhasePct: map[string]float64{PhaseParticles: 50}}, i*600); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("telemetry.csv has %d lines, want header + 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,frames,") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "1200,600,") {
		t.Errorf("second row = %q", lines[2])
	}

	perf, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(perf), "window_end"); n != 1 {
		t.Errorf("perf.csv has %d headers, want 1", n)
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" {
		t.Error("disabled manager should have no dir")
	}
}
