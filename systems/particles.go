// Package systems implements the proximity graph engine: particle motion inside
// reflecting regions, the pairwise edge pass, and anchor-level structural links.
package systems

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Particle is a moving point confined to a box.
type Particle struct {
	Pos r3.Vec
	Vel r3.Vec

	// Connections counts edges touching this particle in the current frame only.
	Connections int

	// Reflection bounds. Either the system's region or one lane of it.
	Min, Max r3.Vec
}

// reflect negates each velocity component whose axis is out of bounds.
// Position is left where integration put it.
func (p *Particle) reflect() {
	if p.Pos.X < p.Min.X || p.Pos.X > p.Max.X {
		p.Vel.X = -p.Vel.X
	}
	if p.Pos.Y < p.Min.Y || p.Pos.Y > p.Max.Y {
		p.Vel.Y = -p.Vel.Y
	}
	if p.Pos.Z < p.Min.Z || p.Pos.Z > p.Max.Z {
		p.Vel.Z = -p.Vel.Z
	}
}

// Frame is the renderable output of one update.
//
// Points holds one xyz triple per active particle. Lines and Colors hold two
// triples per active edge and are prefixes of fixed-capacity buffers owned by
// the system: they are overwritten by the next Update and must not be retained.
type Frame struct {
	Points      []float32
	Lines       []float32
	Colors      []float32
	ActiveEdges int
}

// Vertices returns the number of line vertices in the frame.
func (f Frame) Vertices() int {
	return f.ActiveEdges * 2
}

// Option configures a ParticleSystem at construction.
type Option func(*options)

type options struct {
	lanes bool
}

// WithLanes confines particle i to the i-th of n equal x slices of the region.
func WithLanes() Option {
	return func(o *options) { o.lanes = true }
}

// ParticleSystem owns a fixed set of particles in one region.
type ParticleSystem struct {
	particles []Particle
	region    Region
	active    int

	points []float32
	lines  []float32
	colors []float32

	activeEdges int
}

// NewParticleSystem places n particles uniformly inside region with per-axis
// velocities drawn uniformly from [-speed, speed].
func NewParticleSystem(n int, region Region, speed float64, rng *rand.Rand, opts ...Option) (*ParticleSystem, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}
	if err := region.Validate(); err != nil {
		return nil, err
	}
	if speed < 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidSpeed, speed)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// n*n vertices bounds the n(n-1)/2 possible edges.
	segments := n * n
	s := &ParticleSystem{
		particles: make([]Particle, n),
		region:    region,
		active:    n,
		points:    make([]float32, n*3),
		lines:     make([]float32, segments*3),
		colors:    make([]float32, segments*3),
	}

	for i := range s.particles {
		box := region.Bounds()
		if o.lanes {
			box = region.Lane(i, n)
		}
		p := &s.particles[i]
		p.Min, p.Max = box.Min, box.Max
		p.Pos = r3.Vec{
			X: box.Min.X + rng.Float64()*(box.Max.X-box.Min.X),
			Y: box.Min.Y + rng.Float64()*(box.Max.Y-box.Min.Y),
			Z: box.Min.Z + rng.Float64()*(box.Max.Z-box.Min.Z),
		}
		p.Vel = r3.Vec{
			X: (rng.Float64()*2 - 1) * speed,
			Y: (rng.Float64()*2 - 1) * speed,
			Z: (rng.Float64()*2 - 1) * speed,
		}
	}
	s.syncPoints()

	return s, nil
}

// Update advances one frame and recomputes the edge set.
//
// Every active particle moves by its velocity, reflects off its bounds, and
// then all pairs i < j are tested against minDistance. With limit set, a pair
// is skipped when either endpoint already has maxConnections edges this frame.
func (s *ParticleSystem) Update(minDistance float64, limit bool, maxConnections int) Frame {
	ps := s.particles[:s.active]
	for i := range ps {
		p := &ps[i]
		p.Pos = r3.Add(p.Pos, p.Vel)
		p.reflect()
	}
	s.syncPoints()

	s.activeEdges = s.connect(minDistance, limit, maxConnections)
	return s.Frame()
}

// Frame returns the buffers produced by the last update.
func (s *ParticleSystem) Frame() Frame {
	n := s.activeEdges * 6
	return Frame{
		Points:      s.points[:s.active*3],
		Lines:       s.lines[:n],
		Colors:      s.colors[:n],
		ActiveEdges: s.activeEdges,
	}
}

// Place overrides the state of particle i. Bounds are kept.
func (s *ParticleSystem) Place(i int, pos, vel r3.Vec) {
	p := &s.particles[i]
	p.Pos = pos
	p.Vel = vel
	s.points[i*3] = float32(pos.X)
	s.points[i*3+1] = float32(pos.Y)
	s.points[i*3+2] = float32(pos.Z)
}

// SetActiveCount restricts motion and the edge pass to the first k particles.
func (s *ParticleSystem) SetActiveCount(k int) error {
	if k < 0 || k > len(s.particles) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrCapacity, k, len(s.particles))
	}
	s.active = k
	return nil
}

// Particles returns the active particles. Callers must not modify them.
func (s *ParticleSystem) Particles() []Particle {
	return s.particles[:s.active]
}

// Len returns the number of active particles.
func (s *ParticleSystem) Len() int {
	return s.active
}

// Capacity returns the particle count fixed at construction.
func (s *ParticleSystem) Capacity() int {
	return len(s.particles)
}

// Region returns the confining region.
func (s *ParticleSystem) Region() Region {
	return s.region
}

// ActiveEdges returns the edge count of the last update.
func (s *ParticleSystem) ActiveEdges() int {
	return s.activeEdges
}

// Saturated counts active particles at or above maxConnections.
func (s *ParticleSystem) Saturated(maxConnections int) int {
	n := 0
	for i := range s.particles[:s.active] {
		if s.particles[i].Connections >= maxConnections {
			n++
		}
	}
	return n
}

func (s *ParticleSystem) syncPoints() {
	for i := range s.particles[:s.active] {
		p := s.particles[i].Pos
		s.points[i*3] = float32(p.X)
		s.points[i*3+1] = float32(p.Y)
		s.points[i*3+2] = float32(p.Z)
	}
}
