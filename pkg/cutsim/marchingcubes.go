package cutsim

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// IsoAlgorithm extracts surface geometry from an octree into a Surface.
// Implementations are expected to honor the tree's validity bits so that
// only subtrees touched since the last update are reworked.
type IsoAlgorithm interface {
	Update(t *Octree)
}

// Compile-time interface check.
var _ IsoAlgorithm = (*MarchingCubes)(nil)

// MarchingCubes is the standard 256-case marching-cubes extractor, run
// incrementally over the octree. Leaves crossed by the surface emit one
// interpolated vertex per crossed cube edge and triangles from the case
// table; nodes whose surface is already valid are skipped wholesale.
type MarchingCubes struct {
	surf *Surface
}

// NewMarchingCubes returns an extractor writing to the given surface
// table, configured for triangles.
func NewMarchingCubes(surf *Surface) *MarchingCubes {
	surf.SetTriangles()
	return &MarchingCubes{surf: surf}
}

// Update re-extracts the surface for every invalid subtree.
func (mc *MarchingCubes) Update(t *Octree) {
	mc.updateNode(t.root)
}

// updateNode retires stale geometry and re-emits it where needed.
//
// A decided (INSIDE/OUTSIDE) leaf has no crossing: its stale vertices are
// retired and it becomes valid. An internal node retires vertices left
// over from when it was a leaf and recurses; validity is restored through
// the childValid cascade once every child is valid. An undecided leaf is
// re-polygonized from scratch.
func (mc *MarchingCubes) updateNode(n *Octnode) {
	if n.valid() {
		return
	}
	if !n.isLeaf() {
		n.clearVertexSet()
		for i := 0; i < 8; i++ {
			mc.updateNode(n.child[i])
		}
		// children that were already valid do not re-trigger the cascade,
		// so close the mask check here
		if !n.valid() && n.childValid == 0xff {
			n.setValid()
		}
		return
	}
	n.clearVertexSet()
	if n.state == Undecided {
		mc.polygonize(n)
	}
	n.setValid()
}

// polygonize runs one marching-cubes cell on the leaf: build the case
// index from the corner signs (zero counts as inside), place a vertex on
// every crossed edge, then emit the case's triangles.
func (mc *MarchingCubes) polygonize(n *Octnode) {
	code := 0
	for i := 0; i < 8; i++ {
		if n.f[i] < 0 {
			code |= 1 << i
		}
	}
	edges := edgeTable[code]
	if edges == 0 {
		return
	}
	var edgeVert [12]int
	for e := 0; e < 12; e++ {
		if edges&(1<<e) == 0 {
			continue
		}
		p := interpolate(n, int(edgeCorners[e][0]), int(edgeCorners[e][1]))
		id := mc.surf.AddVertex(Vertex{Pos: p, Color: n.color}, n)
		n.addIndex(id)
		edgeVert[e] = id
	}
	for t := 0; triTable[code][t] != -1; t += 3 {
		a := edgeVert[triTable[code][t]]
		b := edgeVert[triTable[code][t+1]]
		c := edgeVert[triTable[code][t+2]]
		mc.surf.AddPolygon(a, b, c)
		mc.setTriangleNormal(n, a, b, c)
	}
}

// setTriangleNormal gives the three vertices the triangle's face normal,
// oriented toward the outside of the stock (the negative-f side).
// Degenerate triangles keep their zero normal.
func (mc *MarchingCubes) setTriangleNormal(n *Octnode, a, b, c int) {
	pa := mc.surf.vertices[a].Pos
	pb := mc.surf.vertices[b].Pos
	pc := mc.surf.vertices[c].Pos
	norm := triangleNormal(pa, pb, pc)
	if norm.Length() == 0 {
		return
	}
	// orient toward the most-outside corner of the cell
	low := 0
	for i := 1; i < 8; i++ {
		if n.f[i] < n.f[low] {
			low = i
		}
	}
	centroid := pa.Add(pb).Add(pc).DivScalar(3)
	if norm.Dot(n.corner[low].Sub(centroid)) < 0 {
		norm = norm.MulScalar(-1)
	}
	mc.surf.SetNormal(a, norm)
	mc.surf.SetNormal(b, norm)
	mc.surf.SetNormal(c, norm)
}

// interpolate places the crossing vertex on the edge between corners a
// and b. An exactly-zero endpoint snaps to that corner; equal endpoint
// values fall back to the edge midpoint.
func interpolate(n *Octnode, a, b int) v3.Vec {
	fa, fb := n.f[a], n.f[b]
	if fa == fb {
		return n.corner[a].Add(n.corner[b]).MulScalar(0.5)
	}
	if fa == 0 {
		return n.corner[a]
	}
	if fb == 0 {
		return n.corner[b]
	}
	t := fa / (fa - fb)
	return n.corner[a].Add(n.corner[b].Sub(n.corner[a]).MulScalar(t))
}
