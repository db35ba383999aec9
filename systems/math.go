package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// distanceSq returns the squared distance between two points.
func distanceSq(a, b r3.Vec) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}

// distance returns the Euclidean distance between two points.
func distance(a, b r3.Vec) float64 {
	return math.Sqrt(distanceSq(a, b))
}

// MaxEdges returns n(n-1)/2, the most edges n particles can form.
func MaxEdges(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}
