package systems

import (
	"errors"
	"math"
	"math/rand"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func newTestSystem(t *testing.T, n int, region Region, speed float64, seed int64, opts ...Option) *ParticleSystem {
	t.Helper()
	s, err := NewParticleSystem(n, region, speed, rand.New(rand.NewSource(seed)), opts...)
	if err != nil {
		t.Fatalf("NewParticleSystem: %v", err)
	}
	return s
}

// pairSystem returns two stationary particles dist apart along x inside a large region.
func pairSystem(t *testing.T, dist float64) *ParticleSystem {
	t.Helper()
	s := newTestSystem(t, 2, UniformRegion(r3.Vec{}, 1000), 0, 1)
	s.Place(0, r3.Vec{X: 0}, r3.Vec{})
	s.Place(1, r3.Vec{X: dist}, r3.Vec{})
	return s
}

func TestNewParticleSystemValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	good := UniformRegion(r3.Vec{}, 40)

	tests := []struct {
		name   string
		n      int
		region Region
		speed  float64
		want   error
	}{
		{"zero count", 0, good, 1, ErrInvalidCount},
		{"negative count", -3, good, 1, ErrInvalidCount},
		{"zero extent", 4, Region{HalfExtent: r3.Vec{X: 40, Y: 0, Z: 40}}, 1, ErrInvalidExtent},
		{"negative extent", 4, Region{HalfExtent: r3.Vec{X: -1, Y: 1, Z: 1}}, 1, ErrInvalidExtent},
		{"nan extent", 4, Region{HalfExtent: r3.Vec{X: math.NaN(), Y: 1, Z: 1}}, 1, ErrInvalidExtent},
		{"negative speed", 4, good, -0.5, ErrInvalidSpeed},
		{"nan speed", 4, good, math.NaN(), ErrInvalidSpeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewParticleSystem(tt.n, tt.region, tt.speed, rng)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if s != nil {
				t.Error("expected nil system on error")
			}
		})
	}
}

func TestNewParticleSystemPlacement(t *testing.T) {
	region := Region{Anchor: r3.Vec{X: 100, Y: -50, Z: 7}, HalfExtent: r3.Vec{X: 40, Y: 20, Z: 40}}
	s := newTestSystem(t, 200, region, 0.25, 42)
	b := region.Bounds()

	if s.Len() != 200 || s.Capacity() != 200 {
		t.Fatalf("Len/Capacity = %d/%d, want 200/200", s.Len(), s.Capacity())
	}
	for i, p := range s.Particles() {
		if p.Pos.X < b.Min.X || p.Pos.X > b.Max.X ||
			p.Pos.Y < b.Min.Y || p.Pos.Y > b.Max.Y ||
			p.Pos.Z < b.Min.Z || p.Pos.Z > b.Max.Z {
			t.Fatalf("particle %d spawned outside region: %v", i, p.Pos)
		}
		if math.Abs(p.Vel.X) > 0.25 || math.Abs(p.Vel.Y) > 0.25 || math.Abs(p.Vel.Z) > 0.25 {
			t.Fatalf("particle %d velocity out of range: %v", i, p.Vel)
		}
	}

	if got := len(s.Frame().Points); got != 600 {
		t.Errorf("points length = %d, want 600", got)
	}
}

func TestLanesConfineX(t *testing.T) {
	region := UniformRegion(r3.Vec{}, 40)
	s := newTestSystem(t, 4, region, 0.05, 3, WithLanes())

	for i, p := range s.Particles() {
		lane := region.Lane(i, 4)
		if p.Min.X != lane.Min.X || p.Max.X != lane.Max.X {
			t.Errorf("particle %d bounds [%g, %g], want [%g, %g]", i, p.Min.X, p.Max.X, lane.Min.X, lane.Max.X)
		}
		if p.Pos.X < lane.Min.X || p.Pos.X > lane.Max.X {
			t.Errorf("particle %d spawned outside its lane: x=%g", i, p.Pos.X)
		}
		if p.Min.Y != -40 || p.Max.Y != 40 {
			t.Errorf("particle %d y bounds = [%g, %g], want [-40, 40]", i, p.Min.Y, p.Max.Y)
		}
	}
}

func TestIntegration(t *testing.T) {
	s := newTestSystem(t, 50, UniformRegion(r3.Vec{}, 40), 0.5, 7)

	for frame := 0; frame < 200; frame++ {
		before := append([]Particle(nil), s.Particles()...)
		s.Update(0, false, 0)

		for i, p := range s.Particles() {
			want := r3.Add(before[i].Pos, before[i].Vel)
			if p.Pos != want {
				t.Fatalf("frame %d particle %d: pos = %v, want %v", frame, i, p.Pos, want)
			}
		}
	}
}

func TestReflectionFlipsAndDoesNotClamp(t *testing.T) {
	s := newTestSystem(t, 30, UniformRegion(r3.Vec{}, 10), 0.9, 11)

	flips := 0
	for frame := 0; frame < 500; frame++ {
		before := append([]Particle(nil), s.Particles()...)
		s.Update(0, false, 0)

		for i, p := range s.Particles() {
			b := before[i]
			moved := r3.Add(b.Pos, b.Vel)
			if p.Pos != moved {
				t.Fatalf("position was clamped: got %v, want %v", p.Pos, moved)
			}

			axes := []struct{ pos, min, max, vBefore, vAfter float64 }{
				{moved.X, b.Min.X, b.Max.X, b.Vel.X, p.Vel.X},
				{moved.Y, b.Min.Y, b.Max.Y, b.Vel.Y, p.Vel.Y},
				{moved.Z, b.Min.Z, b.Max.Z, b.Vel.Z, p.Vel.Z},
			}
			for axis, a := range axes {
				outside := a.pos < a.min || a.pos > a.max
				if outside {
					flips++
					if a.vAfter != -a.vBefore {
						t.Fatalf("frame %d particle %d axis %d: velocity %g not flipped from %g", frame, i, axis, a.vAfter, a.vBefore)
					}
				} else if a.vAfter != a.vBefore {
					t.Fatalf("frame %d particle %d axis %d: velocity changed while inside", frame, i, axis)
				}
			}
		}
	}

	if flips == 0 {
		t.Fatal("expected at least one reflection")
	}
}

func TestReflectionAtPositiveXBoundary(t *testing.T) {
	s := newTestSystem(t, 1, UniformRegion(r3.Vec{}, 40), 0, 1)
	s.Place(0, r3.Vec{X: 40}, r3.Vec{X: 0.5})

	s.Update(10, false, 0)

	p := s.Particles()[0]
	if p.Vel.X >= 0 {
		t.Errorf("vx = %g, want negative", p.Vel.X)
	}
	if p.Pos.X != 40.5 {
		t.Errorf("x = %g, want unclamped 40.5", p.Pos.X)
	}

	// Next frame carries it back inside.
	s.Update(10, false, 0)
	if got := s.Particles()[0].Pos.X; got != 40 {
		t.Errorf("x after return = %g, want 40", got)
	}
}

func TestPairWithinDistance(t *testing.T) {
	s := pairSystem(t, 10)

	f := s.Update(20, false, 0)

	if f.ActiveEdges != 1 {
		t.Fatalf("ActiveEdges = %d, want 1", f.ActiveEdges)
	}
	if len(f.Lines) != 6 || len(f.Colors) != 6 {
		t.Fatalf("lines/colors length = %d/%d, want 6/6", len(f.Lines), len(f.Colors))
	}
	for k, c := range f.Colors {
		if c != 0.5 {
			t.Errorf("color[%d] = %v, want 0.5", k, c)
		}
	}
	want := []float32{0, 0, 0, 10, 0, 0}
	for k := range want {
		if f.Lines[k] != want[k] {
			t.Errorf("lines[%d] = %v, want %v", k, f.Lines[k], want[k])
		}
	}
}

func TestPairBeyondDistance(t *testing.T) {
	s := pairSystem(t, 10)

	f := s.Update(5, false, 0)

	if f.ActiveEdges != 0 {
		t.Errorf("ActiveEdges = %d, want 0", f.ActiveEdges)
	}
	if len(f.Lines) != 0 {
		t.Errorf("lines length = %d, want 0", len(f.Lines))
	}
}

func TestThresholdIsStrict(t *testing.T) {
	s := pairSystem(t, 10)
	if f := s.Update(10, false, 0); f.ActiveEdges != 0 {
		t.Errorf("distance == minDistance: ActiveEdges = %d, want 0", f.ActiveEdges)
	}

	f := s.Update(10+1e-6, false, 0)
	if f.ActiveEdges != 1 {
		t.Fatalf("distance just under minDistance: ActiveEdges = %d, want 1", f.ActiveEdges)
	}
	if a := f.Colors[0]; a <= 0 || a >= 1 {
		t.Errorf("alpha = %v, want in (0, 1)", a)
	}
}

func TestNonPositiveDistanceYieldsNoEdges(t *testing.T) {
	s := pairSystem(t, 0)
	for _, d := range []float64{0, -5} {
		if f := s.Update(d, false, 0); f.ActiveEdges != 0 {
			t.Errorf("minDistance %g: ActiveEdges = %d, want 0", d, f.ActiveEdges)
		}
	}
}

func TestEdgeSymmetry(t *testing.T) {
	s := newTestSystem(t, 60, UniformRegion(r3.Vec{}, 40), 0.5, 5)

	for frame := 0; frame < 50; frame++ {
		f := s.Update(25, false, 0)

		sum := 0
		for _, p := range s.Particles() {
			sum += p.Connections
		}
		if sum != 2*f.ActiveEdges {
			t.Fatalf("frame %d: degree sum %d != 2 * edges %d", frame, sum, f.ActiveEdges)
		}

		// Recount from positions: every close pair adds one to each endpoint.
		want := make([]int, s.Len())
		ps := s.Particles()
		for i := range ps {
			for j := i + 1; j < len(ps); j++ {
				if distance(ps[i].Pos, ps[j].Pos) < 25 {
					want[i]++
					want[j]++
				}
			}
		}
		for i, p := range ps {
			if p.Connections != want[i] {
				t.Fatalf("frame %d particle %d: connections %d, want %d", frame, i, p.Connections, want[i])
			}
		}
	}
}

func TestDegreeCap(t *testing.T) {
	// All particles in a tiny box: every pair is close.
	s := newTestSystem(t, 20, UniformRegion(r3.Vec{}, 1), 0.01, 9)

	for _, k := range []int{0, 1, 3, 7} {
		f := s.Update(100, true, k)
		for i, p := range s.Particles() {
			if p.Connections > k {
				t.Errorf("cap %d: particle %d has %d connections", k, i, p.Connections)
			}
		}
		if k == 0 && f.ActiveEdges != 0 {
			t.Errorf("cap 0: ActiveEdges = %d, want 0", f.ActiveEdges)
		}
	}
}

func TestDegreeCapGreedyOrder(t *testing.T) {
	// Three mutually close particles with cap 1: pair (0,1) wins, 2 stays alone.
	s := newTestSystem(t, 3, UniformRegion(r3.Vec{}, 100), 0, 1)
	s.Place(0, r3.Vec{X: 0}, r3.Vec{})
	s.Place(1, r3.Vec{X: 1}, r3.Vec{})
	s.Place(2, r3.Vec{X: 2}, r3.Vec{})

	f := s.Update(10, true, 1)

	if f.ActiveEdges != 1 {
		t.Fatalf("ActiveEdges = %d, want 1", f.ActiveEdges)
	}
	if f.Lines[0] != 0 || f.Lines[3] != 1 {
		t.Errorf("kept edge = (%v -> %v), want (0 -> 1)", f.Lines[0], f.Lines[3])
	}
	if got := s.Particles()[2].Connections; got != 0 {
		t.Errorf("particle 2 connections = %d, want 0", got)
	}
	if got := s.Saturated(1); got != 2 {
		t.Errorf("Saturated(1) = %d, want 2", got)
	}
}

func TestEdgeCountBound(t *testing.T) {
	for _, n := range []int{2, 5, 33} {
		s := newTestSystem(t, n, UniformRegion(r3.Vec{}, 1), 0.1, int64(n))
		f := s.Update(1000, false, 0)
		if f.ActiveEdges != MaxEdges(n) {
			t.Errorf("n=%d: ActiveEdges = %d, want %d", n, f.ActiveEdges, MaxEdges(n))
		}
		if len(f.Lines) != MaxEdges(n)*6 {
			t.Errorf("n=%d: lines length = %d, want %d", n, len(f.Lines), MaxEdges(n)*6)
		}
	}
}

func TestFrameBuffersAreReused(t *testing.T) {
	s := pairSystem(t, 10)

	first := s.Update(20, false, 0)
	second := s.Update(20, false, 0)

	if &first.Lines[0] != &second.Lines[0] {
		t.Error("expected line buffer to be overwritten in place")
	}

	// Shrinking the active length leaves stale data in the backing array.
	third := s.Update(5, false, 0)
	if third.ActiveEdges != 0 || len(third.Lines) != 0 {
		t.Fatalf("expected empty frame, got %d edges", third.ActiveEdges)
	}
	if full := third.Lines[:6]; full[3] != 10 {
		t.Errorf("stale vertex = %v, want 10 (buffers are not cleared)", full[3])
	}
}

func TestSetActiveCount(t *testing.T) {
	s := newTestSystem(t, 10, UniformRegion(r3.Vec{}, 1), 0, 2)

	if err := s.SetActiveCount(11); !errors.Is(err, ErrCapacity) {
		t.Fatalf("SetActiveCount(11) err = %v, want ErrCapacity", err)
	}
	if err := s.SetActiveCount(-1); !errors.Is(err, ErrCapacity) {
		t.Fatalf("SetActiveCount(-1) err = %v, want ErrCapacity", err)
	}
	if err := s.SetActiveCount(4); err != nil {
		t.Fatalf("SetActiveCount(4): %v", err)
	}

	f := s.Update(100, false, 0)
	if f.ActiveEdges != MaxEdges(4) {
		t.Errorf("ActiveEdges = %d, want %d", f.ActiveEdges, MaxEdges(4))
	}
	if len(f.Points) != 12 {
		t.Errorf("points length = %d, want 12", len(f.Points))
	}
}

func TestPackOverrunPanics(t *testing.T) {
	s := pairSystem(t, 1)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on buffer overrun")
		}
	}()
	s.pack(len(s.lines)-3, r3.Vec{}, r3.Vec{}, 1)
}

func BenchmarkUpdate(b *testing.B) {
	for _, n := range []int{20, 100, 500} {
		s, err := NewParticleSystem(n, UniformRegion(r3.Vec{}, 40), 0.25, rand.New(rand.NewSource(1)))
		if err != nil {
			b.Fatal(err)
		}
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				s.Update(20, true, 20)
			}
		})
	}
}
