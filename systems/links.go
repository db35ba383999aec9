package systems

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Link is a structural edge between two anchors, A < B.
type Link struct {
	A, B int
}

// LinkGraph builds the anchor proximity graph from scratch.
//
// Every ordered pair (i, j) with i != j is tested, so each close pair is seen
// twice; the undirected graph keeps a single edge for both orderings.
func LinkGraph(anchors []r3.Vec, threshold float64) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := range anchors {
		g.AddNode(simple.Node(i))
	}
	for i, a := range anchors {
		for j, b := range anchors {
			if i == j {
				continue
			}
			if distance(a, b) < threshold {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}
	return g
}

// ProximityLinks returns the deduplicated anchor pairs closer than threshold,
// sorted by (A, B).
func ProximityLinks(anchors []r3.Vec, threshold float64) []Link {
	return LinksOf(LinkGraph(anchors, threshold))
}

// LinksOf lists the edges of g as sorted links.
func LinksOf(g *simple.UndirectedGraph) []Link {
	edges := graph.EdgesOf(g.Edges())
	links := make([]Link, 0, len(edges))
	for _, e := range edges {
		a, b := int(e.From().ID()), int(e.To().ID())
		if a > b {
			a, b = b, a
		}
		links = append(links, Link{A: a, B: b})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].A != links[j].A {
			return links[i].A < links[j].A
		}
		return links[i].B < links[j].B
	})
	return links
}

// LinkGroups returns the connected components of g as sorted anchor indices,
// ordered by their smallest member. Isolated anchors form their own group.
func LinkGroups(g graph.Undirected) [][]int {
	comps := topo.ConnectedComponents(g)
	groups := make([][]int, 0, len(comps))
	for _, c := range comps {
		ids := make([]int, len(c))
		for k, n := range c {
			ids[k] = int(n.ID())
		}
		sort.Ints(ids)
		groups = append(groups, ids)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}
