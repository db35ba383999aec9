// Package components defines ECS components for the cluster field.
package components

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/plexus/systems"
)

// Anchor is the world-space center of a cluster.
type Anchor struct {
	Pos r3.Vec
}

// Label is optional display text for a cluster.
// Base is drawn under the lowest cluster of a tower.
type Label struct {
	Text string
	Base string
}

// Cluster binds an entity to its particle system.
// Index is the cluster's position in field order and the node ID in the link graph.
type Cluster struct {
	System *systems.ParticleSystem
	Index  int
}
