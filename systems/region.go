package systems

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Construction errors. Match with errors.Is.
var (
	ErrInvalidCount  = errors.New("particle count must be positive")
	ErrInvalidExtent = errors.New("region half-extent must be positive and finite on every axis")
	ErrInvalidSpeed  = errors.New("speed must be non-negative and finite")
	ErrCapacity      = errors.New("active count outside buffer capacity")
)

// Region is the axis-aligned box confining one particle system.
// Anchor is the box center; HalfExtent is measured per axis.
type Region struct {
	Anchor     r3.Vec
	HalfExtent r3.Vec
}

// UniformRegion returns a cube-shaped region around anchor.
func UniformRegion(anchor r3.Vec, halfExtent float64) Region {
	return Region{
		Anchor:     anchor,
		HalfExtent: r3.Vec{X: halfExtent, Y: halfExtent, Z: halfExtent},
	}
}

// Validate reports a degenerate region.
func (r Region) Validate() error {
	h := r.HalfExtent
	if !positiveFinite(h.X) || !positiveFinite(h.Y) || !positiveFinite(h.Z) {
		return fmt.Errorf("%w: got (%g, %g, %g)", ErrInvalidExtent, h.X, h.Y, h.Z)
	}
	return nil
}

// Bounds returns the reflection box.
func (r Region) Bounds() r3.Box {
	return r3.Box{
		Min: r3.Sub(r.Anchor, r.HalfExtent),
		Max: r3.Add(r.Anchor, r.HalfExtent),
	}
}

// Size returns the full edge lengths of the region.
func (r Region) Size() r3.Vec {
	return r3.Scale(2, r.HalfExtent)
}

// Lane returns the bounds of the i-th of n equal slices of the region along x.
// The y and z extents are those of the whole region.
func (r Region) Lane(i, n int) r3.Box {
	b := r.Bounds()
	if n <= 1 {
		return b
	}
	width := (b.Max.X - b.Min.X) / float64(n)
	b.Min.X += float64(i) * width
	b.Max.X = b.Min.X + width
	return b
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
