package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/plexus/config"
)

// Spec describes one cluster before construction.
type Spec struct {
	Anchor    r3.Vec
	Particles int
	Label     string
	Base      string // set on the lowest level of a tower
}

// Specs expands a field layout into cluster specs in field order.
func Specs(cfg config.FieldConfig) ([]Spec, error) {
	switch cfg.Layout {
	case config.LayoutAnchors:
		return anchorSpecs(cfg), nil
	case config.LayoutGrid:
		return gridSpecs(cfg), nil
	case config.LayoutTowers:
		return towerSpecs(cfg), nil
	default:
		return nil, fmt.Errorf("unknown layout %q", cfg.Layout)
	}
}

func particlesOr(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

func anchorSpecs(cfg config.FieldConfig) []Spec {
	specs := make([]Spec, 0, len(cfg.Anchors))
	for _, a := range cfg.Anchors {
		specs = append(specs, Spec{
			Anchor:    a.Pos.R3(),
			Particles: particlesOr(a.Particles, cfg.Particles),
			Label:     a.Label,
		})
	}
	return specs
}

// gridSpecs iterates x outermost, then y, then z.
func gridSpecs(cfg config.FieldConfig) []Spec {
	g := cfg.Grid
	specs := make([]Spec, 0, len(g.X)*len(g.Y)*len(g.Z))
	for _, x := range g.X {
		for _, y := range g.Y {
			for _, z := range g.Z {
				specs = append(specs, Spec{
					Anchor:    r3.Vec{X: x, Y: y, Z: z},
					Particles: cfg.Particles,
				})
			}
		}
	}
	return specs
}

// towerSpecs stacks levels from y = 0 upward, column by column.
func towerSpecs(cfg config.FieldConfig) []Spec {
	t := cfg.Towers
	var specs []Spec
	for _, col := range t.Columns {
		levels := col.Levels
		if levels == 0 {
			levels = t.Levels
		}
		n := particlesOr(col.Particles, cfg.Particles)
		for lvl := 0; lvl < levels; lvl++ {
			s := Spec{
				Anchor:    r3.Vec{X: col.X, Y: float64(lvl) * t.Spacing, Z: col.Z},
				Particles: n,
			}
			if lvl < len(col.Labels) {
				s.Label = col.Labels[lvl]
			}
			if lvl == 0 {
				s.Base = col.Base
			}
			specs = append(specs, s)
		}
	}
	return specs
}
