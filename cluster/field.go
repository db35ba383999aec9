// Package cluster groups particle systems into a field and maintains the
// structural links between their anchors.
package cluster

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/plexus/components"
	"github.com/pthm-cable/plexus/config"
	"github.com/pthm-cable/plexus/systems"
)

// ErrEmptyField is returned when a layout yields no clusters.
var ErrEmptyField = errors.New("field has no clusters")

// Options holds construction settings shared by every cluster.
type Options struct {
	HalfExtent r3.Vec
	Speed      float64
	Lanes      bool

	Workers           int // 0 = GOMAXPROCS, 1 = sequential
	ParallelThreshold int // minimum clusters before fan-out
}

// OptionsFrom extracts Options from a field config.
func OptionsFrom(cfg config.FieldConfig) Options {
	return Options{
		HalfExtent:        cfg.HalfExtent.R3(),
		Speed:             cfg.Speed,
		Lanes:             cfg.Lanes,
		Workers:           cfg.Workers,
		ParallelThreshold: cfg.ParallelThreshold,
	}
}

// FrameStats summarizes one field update.
type FrameStats struct {
	Clusters    int
	Particles   int
	ActiveEdges int
	MaxEdges    int // sum of n(n-1)/2 over clusters
	Saturated   int // particles at the cap, 0 when the cap is off
	MeanDegree  float64
	Links       int
	LinkGroups  int
	Rebuilt     bool // structural links were recomputed this frame
}

// Field owns an ordered set of clusters registered in an ECS world.
type Field struct {
	world *ecs.World

	clusterMapper *ecs.Map3[components.Anchor, components.Label, components.Cluster]
	clusterFilter *ecs.Filter1[components.Cluster]
	anchorMap     *ecs.Map1[components.Anchor]
	labelMap      *ecs.Map1[components.Label]

	// Field order. Index i here is Cluster.Index and the link graph node ID.
	entities []ecs.Entity
	systems  []*systems.ParticleSystem
	anchors  []r3.Vec

	graph         *simple.UndirectedGraph
	links         []systems.Link
	groups        [][]int
	linkThreshold float64
	linksBuilt    bool

	active int // last applied active_particles, 0 = all

	parallel *parallelState
}

// New builds a field from config. Systems draw their initial state from rng in
// field order, so a seeded rng reproduces the same field.
func New(cfg config.FieldConfig, rng *rand.Rand) (*Field, error) {
	specs, err := Specs(cfg)
	if err != nil {
		return nil, err
	}
	return NewFromSpecs(specs, OptionsFrom(cfg), rng)
}

// NewFromSpecs builds a field from explicit cluster specs.
func NewFromSpecs(specs []Spec, opts Options, rng *rand.Rand) (*Field, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyField
	}

	world := ecs.NewWorld()
	f := &Field{
		world:         world,
		clusterMapper: ecs.NewMap3[components.Anchor, components.Label, components.Cluster](world),
		clusterFilter: ecs.NewFilter1[components.Cluster](world),
		anchorMap:     ecs.NewMap1[components.Anchor](world),
		labelMap:      ecs.NewMap1[components.Label](world),
	}

	var sysOpts []systems.Option
	if opts.Lanes {
		sysOpts = append(sysOpts, systems.WithLanes())
	}

	for i, spec := range specs {
		region := systems.Region{Anchor: spec.Anchor, HalfExtent: opts.HalfExtent}
		sys, err := systems.NewParticleSystem(spec.Particles, region, opts.Speed, rng, sysOpts...)
		if err != nil {
			return nil, fmt.Errorf("cluster %d at (%g, %g, %g): %w", i, spec.Anchor.X, spec.Anchor.Y, spec.Anchor.Z, err)
		}

		anchor := components.Anchor{Pos: spec.Anchor}
		label := components.Label{Text: spec.Label, Base: spec.Base}
		cl := components.Cluster{System: sys, Index: i}
		f.clusterMapper.NewEntity(&anchor, &label, &cl)
	}

	f.collect()

	workers := opts.Workers
	if workers != 1 && len(f.systems) >= max(opts.ParallelThreshold, 2) {
		f.parallel = newParallelState(f, workers)
	}

	return f, nil
}

// collect rebuilds the ordered caches from the world.
func (f *Field) collect() {
	type entry struct {
		entity ecs.Entity
		cl     components.Cluster
	}
	var entries []entry

	query := f.clusterFilter.Query()
	for query.Next() {
		entries = append(entries, entry{entity: query.Entity(), cl: *query.Get()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].cl.Index < entries[j].cl.Index })

	f.entities = make([]ecs.Entity, len(entries))
	f.systems = make([]*systems.ParticleSystem, len(entries))
	f.anchors = make([]r3.Vec, len(entries))
	for i, e := range entries {
		f.entities[i] = e.entity
		f.systems[i] = e.cl.System
		f.anchors[i] = f.anchorMap.Get(e.entity).Pos
	}
}

// Update advances every cluster with the same tunables, then rebuilds the
// structural links if the link threshold changed.
func (f *Field) Update(t config.Tunables) FrameStats {
	f.UpdateParticles(t)
	rebuilt := f.SyncLinks(t.LinkThreshold)
	return f.Stats(t, rebuilt)
}

// UpdateParticles runs one engine step on every cluster.
// Clusters share no state; fan-out gives the same result as the sequential loop.
func (f *Field) UpdateParticles(t config.Tunables) {
	if t.ActiveParticles != f.active {
		f.applyActive(t.ActiveParticles)
	}

	if f.parallel != nil {
		f.parallel.run(t)
		return
	}
	f.updateRange(0, len(f.systems), t)
}

func (f *Field) updateRange(i0, i1 int, t config.Tunables) {
	for _, sys := range f.systems[i0:i1] {
		sys.Update(t.MinDistance, t.LimitConnections, t.MaxConnections)
	}
}

// applyActive sets the draw range on every cluster, clamped to capacity.
func (f *Field) applyActive(k int) {
	for _, sys := range f.systems {
		n := sys.Capacity()
		if k > 0 && k < n {
			n = k
		}
		// n is within [0, capacity] here.
		_ = sys.SetActiveCount(n)
	}
	f.active = k
}

// SyncLinks rebuilds the structural links when threshold differs from the
// last build. Reports whether a rebuild happened.
func (f *Field) SyncLinks(threshold float64) bool {
	if f.linksBuilt && threshold == f.linkThreshold {
		return false
	}
	f.rebuildLinks(threshold)
	return true
}

// Resize forces a structural rebuild at the current threshold.
// The viewer calls it when the window size changes.
func (f *Field) Resize() {
	f.rebuildLinks(f.linkThreshold)
}

func (f *Field) rebuildLinks(threshold float64) {
	f.graph = systems.LinkGraph(f.anchors, threshold)
	f.links = systems.LinksOf(f.graph)
	f.groups = systems.LinkGroups(f.graph)
	f.linkThreshold = threshold
	f.linksBuilt = true
}

// Stats summarizes the current frame.
func (f *Field) Stats(t config.Tunables, rebuilt bool) FrameStats {
	s := FrameStats{
		Clusters:   len(f.systems),
		Links:      len(f.links),
		LinkGroups: len(f.groups),
		Rebuilt:    rebuilt,
	}
	for _, sys := range f.systems {
		s.Particles += sys.Len()
		s.ActiveEdges += sys.ActiveEdges()
		s.MaxEdges += systems.MaxEdges(sys.Len())
		if t.LimitConnections {
			s.Saturated += sys.Saturated(t.MaxConnections)
		}
	}
	if s.Particles > 0 {
		s.MeanDegree = 2 * float64(s.ActiveEdges) / float64(s.Particles)
	}
	return s
}

// Len returns the number of clusters.
func (f *Field) Len() int {
	return len(f.systems)
}

// System returns the particle system of cluster i.
func (f *Field) System(i int) *systems.ParticleSystem {
	return f.systems[i]
}

// Frame returns the last output of cluster i.
func (f *Field) Frame(i int) systems.Frame {
	return f.systems[i].Frame()
}

// Anchor returns the center of cluster i.
func (f *Field) Anchor(i int) r3.Vec {
	return f.anchors[i]
}

// Anchors returns all anchors in field order. Callers must not modify it.
func (f *Field) Anchors() []r3.Vec {
	return f.anchors
}

// Label returns the label of cluster i.
func (f *Field) Label(i int) components.Label {
	return *f.labelMap.Get(f.entities[i])
}

// Region returns the region of cluster i.
func (f *Field) Region(i int) systems.Region {
	return f.systems[i].Region()
}

// Links returns the structural links of the last rebuild, sorted.
func (f *Field) Links() []systems.Link {
	return f.links
}

// LinkGroups returns connected anchor sets of the last rebuild.
func (f *Field) LinkGroups() [][]int {
	return f.groups
}

// LinkThreshold returns the threshold of the last rebuild.
func (f *Field) LinkThreshold() float64 {
	return f.linkThreshold
}

// Bounds returns the box enclosing every cluster region.
func (f *Field) Bounds() r3.Box {
	b := f.systems[0].Region().Bounds()
	for _, sys := range f.systems[1:] {
		rb := sys.Region().Bounds()
		b.Min = r3.Vec{X: min(b.Min.X, rb.Min.X), Y: min(b.Min.Y, rb.Min.Y), Z: min(b.Min.Z, rb.Min.Z)}
		b.Max = r3.Vec{X: max(b.Max.X, rb.Max.X), Y: max(b.Max.Y, rb.Max.Y), Z: max(b.Max.Z, rb.Max.Z)}
	}
	return b
}

// Parallel reports whether updates fan out over workers.
func (f *Field) Parallel() bool {
	return f.parallel != nil
}

// Close stops the worker pool, if any.
func (f *Field) Close() {
	if f.parallel != nil {
		f.parallel.stopWorkers()
	}
}
