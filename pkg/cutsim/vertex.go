// Package cutsim implements the cutting-simulation kernel: an adaptive
// octree over a sampled signed-distance stock model, boolean operations
// against implicit tool volumes, and an incremental marching-cubes
// extractor that keeps an indexed surface-mesh table coherent with the
// tree as the stock is cut.
package cutsim

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/geom"
)

// Vertex is one surface-mesh record: position, paint color, and unit
// normal. Vertices are immutable in place except through the explicit
// Surface mutators.
type Vertex struct {
	Pos    v3.Vec
	Color  geom.Color
	Normal v3.Vec
}

// SetNormal assigns the normal, normalizing it to unit length.
func (v *Vertex) SetNormal(n v3.Vec) {
	l := n.Length()
	if l != 0 && l != 1 {
		n = n.DivScalar(l)
	}
	v.Normal = n
}

// triangleNormal returns the normal of the triangle p1-p2-p3, or a zero
// vector for a degenerate triangle.
func triangleNormal(p1, p2, p3 v3.Vec) v3.Vec {
	n := p1.Sub(p2).Cross(p1.Sub(p3))
	l := n.Length()
	if l == 0 || math.IsNaN(l) {
		return v3.Vec{}
	}
	return n.DivScalar(l)
}
