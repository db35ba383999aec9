package systems

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// connect resets degrees, runs the pairwise pass in ascending index order and
// packs accepted edges. Returns the number of edges written.
//
// Degree capping is greedy: the running count decides, so earlier pairs win.
func (s *ParticleSystem) connect(minDistance float64, limit bool, maxConnections int) int {
	ps := s.particles[:s.active]
	for i := range ps {
		ps[i].Connections = 0
	}
	if minDistance <= 0 {
		return 0
	}

	vertex := 0
	edges := 0
	for i := range ps {
		a := &ps[i]
		for j := i + 1; j < len(ps); j++ {
			// a only gains edges in this loop, so once full it stays full.
			if limit && a.Connections >= maxConnections {
				break
			}
			b := &ps[j]
			if limit && b.Connections >= maxConnections {
				continue
			}

			d := distance(a.Pos, b.Pos)
			if d >= minDistance {
				continue
			}

			a.Connections++
			b.Connections++

			alpha := float32(1 - d/minDistance)
			vertex = s.pack(vertex, a.Pos, b.Pos, alpha)
			edges++
		}
	}
	return edges
}

// pack writes one edge at float offset at and returns the next offset.
func (s *ParticleSystem) pack(at int, a, b r3.Vec, alpha float32) int {
	if at+6 > len(s.lines) {
		panic(fmt.Sprintf("systems: edge buffer overrun: need %d floats, capacity %d", at+6, len(s.lines)))
	}

	l := s.lines[at : at+6]
	l[0], l[1], l[2] = float32(a.X), float32(a.Y), float32(a.Z)
	l[3], l[4], l[5] = float32(b.X), float32(b.Y), float32(b.Z)

	c := s.colors[at : at+6]
	for k := range c {
		c[k] = alpha
	}
	return at + 6
}
