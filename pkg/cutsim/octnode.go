package cutsim

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/volume"
)

// NodeState classifies a node against the stock surface, derived from the
// signs of its corner samples: INSIDE when all corners are >= 0, OUTSIDE
// when all are < 0, UNDECIDED when mixed (the surface crosses the cube).
type NodeState uint8

const (
	Inside NodeState = iota
	Outside
	Undecided
)

func (s NodeState) String() string {
	switch s {
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	case Undecided:
		return "undecided"
	}
	return fmt.Sprintf("NodeState(%d)", uint8(s))
}

// direction gives the offset of each corner from the node center, and
// equally the direction toward each child's center. Corner 2 carries the
// minimum coordinates, corner 4 the maximum. The ordering is compatible
// with the marching-cubes tables: 0-1-2-3 ring the bottom face, 4-5-6-7
// the top, i and i+4 share a vertical edge.
var direction = [8]v3.Vec{
	{X: 1, Y: 1, Z: -1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: -1},
	{X: 1, Y: -1, Z: -1},
	{X: 1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: 1},
}

// octant holds the childValid bit for each child slot.
var octant = [8]uint8{1, 2, 4, 8, 16, 32, 64, 128}

// opKind selects the per-corner combining rule of a boolean operation.
type opKind int

const (
	opSum opKind = iota
	opDiff
	opIntersect
)

// Octnode is one cubic cell of the octree. The node stores the sampled
// signed distance at its eight corners, its state derived from the corner
// signs, and the surface-mesh vertices it has produced. scale is the
// distance from the center to a corner along each axis, so the cube side
// is 2*scale.
type Octnode struct {
	state     NodeState
	prevState NodeState
	color     geom.Color

	child      [8]*Octnode
	parent     *Octnode
	childCount int

	center v3.Vec
	corner [8]v3.Vec
	f      [8]float64

	depth int
	idx   int // which octant of the parent this node occupies
	scale float64
	bb    geom.Bbox

	// surface bookkeeping
	surf       *Surface
	vertexSet  map[int]struct{}
	isoValid   bool
	childValid uint8
}

// newOctnode creates child idx of parent with the given scale and depth.
// The corner field is seeded with a sign sentinel taken from the parent's
// pre-subdivision state; the boolean operation that triggered the
// subdivision rewrites any corner the tool can reach.
func newOctnode(parent *Octnode, idx int, scale float64, depth int, surf *Surface) *Octnode {
	n := &Octnode{
		parent:    parent,
		idx:       idx,
		scale:     scale,
		depth:     depth,
		surf:      surf,
		vertexSet: make(map[int]struct{}),
	}
	var fill float64
	if parent != nil {
		n.center = parent.childCenter(idx)
		n.color = parent.color
		switch parent.prevState {
		case Inside:
			fill = 1
			n.state = Inside
		case Outside:
			fill = -1
			n.state = Outside
		default:
			panic("cutsim: subdividing node with undecided prior state")
		}
		n.prevState = n.state
	} else {
		fill = -1
		n.state = Outside
		n.prevState = Outside
	}
	for i := 0; i < 8; i++ {
		n.corner[i] = n.center.Add(direction[i].MulScalar(scale))
		n.f[i] = fill
	}
	n.bb.AddPoint(n.corner[2])
	n.bb.AddPoint(n.corner[4])
	return n
}

// fill overwrites every corner with the given sentinel value and
// reclassifies the node. Used when (re)initializing a root.
func (n *Octnode) fill(v float64) {
	for i := 0; i < 8; i++ {
		n.f[i] = v
	}
	n.setState()
}

// childCenter returns the center position of child idx.
func (n *Octnode) childCenter(idx int) v3.Vec {
	return n.center.Add(direction[idx].MulScalar(0.5 * n.scale))
}

// isLeaf reports whether the node has no children.
func (n *Octnode) isLeaf() bool { return n.childCount == 0 }

// Depth returns the tree depth of the node, 0 for the root.
func (n *Octnode) Depth() int { return n.depth }

// State returns the node classification.
func (n *Octnode) State() NodeState { return n.state }

// subdivide allocates all eight children. Only a leaf whose state is
// undecided may subdivide; its prior state seeds the children's fields.
func (n *Octnode) subdivide() {
	if n.childCount != 0 {
		panic("cutsim: subdivide on a non-leaf node")
	}
	if n.state != Undecided {
		panic(fmt.Sprintf("cutsim: subdivide on %s node", n.state))
	}
	for i := 0; i < 8; i++ {
		n.child[i] = newOctnode(n, i, n.scale/2, n.depth+1, n.surf)
		n.childCount++
	}
	n.childValid = 0
}

// forceSubdivide subdivides regardless of state, then reclassifies the node
// from its own corner signs. Used by uniform tree initialization.
func (n *Octnode) forceSubdivide() {
	n.setUndecided()
	n.subdivide()
	n.setState()
}

// applyOp combines the volume's distance field into the corner samples
// under the given opcode. A corner where the volume's value wins repaints
// the node with the volume's color: that is where new surface will appear.
func (n *Octnode) applyOp(op opKind, vol volume.Volume) {
	for i := 0; i < 8; i++ {
		d := vol.Dist(n.corner[i])
		switch op {
		case opSum:
			if d > n.f[i] {
				n.color = vol.Color()
				n.f[i] = d
			}
		case opDiff:
			if -d < n.f[i] {
				n.color = vol.Color()
				n.f[i] = -d
			}
		case opIntersect:
			if d < n.f[i] {
				n.color = vol.Color()
				n.f[i] = d
			}
		}
	}
	n.setState()
}

// setState reclassifies the node from its corner signs. Any change other
// than inside-to-inside or outside-to-outside invalidates the extracted
// surface for this node (an undecided node that stays undecided may have
// moved its crossing, so it invalidates too).
func (n *Octnode) setState() {
	old := n.state
	inside, outside := true, true
	for i := 0; i < 8; i++ {
		if n.f[i] >= 0 {
			outside = false
		} else {
			inside = false
		}
	}
	switch {
	case inside:
		n.state = Inside
	case outside:
		n.state = Outside
	default:
		n.setUndecided()
	}
	if (old == Inside && n.state == Inside) || (old == Outside && n.state == Outside) {
		return
	}
	n.setInvalid()
}

// setUndecided records the prior decided state before entering the
// undecided state; subdivision needs it to seed child fields.
func (n *Octnode) setUndecided() {
	if n.state != Undecided {
		n.prevState = n.state
		n.state = Undecided
		n.setInvalid()
	}
}

// allChildState reports whether every child is in state s. True for a
// leaf.
func (n *Octnode) allChildState(s NodeState) bool {
	if n.childCount != 8 {
		return true
	}
	for i := 0; i < 8; i++ {
		if n.child[i].state != s {
			return false
		}
	}
	return true
}

// tryPrune deletes all eight children when they have collapsed to the same
// decided state and carry no grandchildren. Child vertices are retired
// from the surface table before the children are dropped.
func (n *Octnode) tryPrune() {
	if n.childCount != 8 {
		return
	}
	s0 := n.child[0].state
	if s0 == Undecided {
		return
	}
	for i := 0; i < 8; i++ {
		if n.child[i].state != s0 || !n.child[i].isLeaf() {
			return
		}
	}
	for i := 0; i < 8; i++ {
		n.child[i].clearVertexSet()
		n.child[i].parent = nil
		n.child[i] = nil
	}
	n.childCount = 0
	n.childValid = 0
	if n.state != s0 {
		n.state = s0
		n.setInvalid()
	}
}

// valid reports whether the extracted surface is up to date for this
// subtree.
func (n *Octnode) valid() bool { return n.isoValid }

// setValid marks the node's surface as current and propagates upward
// through the parent's childValid mask.
func (n *Octnode) setValid() {
	n.isoValid = true
	if n.parent != nil {
		n.parent.setChildValid(n.idx)
	}
}

func (n *Octnode) setChildValid(idx int) {
	n.childValid |= octant[idx]
	if n.childValid == 0xff {
		n.setValid()
	}
}

func (n *Octnode) setChildInvalid(idx int) {
	n.childValid &^= octant[idx]
	n.setInvalid()
}

// setInvalid marks the node dirty and propagates the dirtiness to every
// still-valid ancestor.
func (n *Octnode) setInvalid() {
	n.isoValid = false
	if n.parent != nil && n.parent.valid() {
		n.parent.setChildInvalid(n.idx)
	}
}

// addIndex records a surface vertex produced for this node.
func (n *Octnode) addIndex(id int) {
	n.vertexSet[id] = struct{}{}
}

// swapIndex renames a recorded vertex. The surface table calls this when
// compaction moves a vertex to a new slot.
func (n *Octnode) swapIndex(oldID, newID int) {
	if _, ok := n.vertexSet[oldID]; !ok {
		panic(fmt.Sprintf("cutsim: swapIndex of unknown vertex %d", oldID))
	}
	delete(n.vertexSet, oldID)
	n.vertexSet[newID] = struct{}{}
}

// removeIndex forgets a recorded vertex.
func (n *Octnode) removeIndex(id int) {
	delete(n.vertexSet, id)
}

// clearVertexSet retires every vertex this node produced from the surface
// table. Removing a vertex may rename others through compaction, including
// members of this very set, so ids are popped one at a time.
func (n *Octnode) clearVertexSet() {
	for len(n.vertexSet) > 0 {
		var id int
		for id = range n.vertexSet {
			break
		}
		n.removeIndex(id)
		n.surf.RemoveVertex(id)
	}
}

// String gives a short description for diagnostics.
func (n *Octnode) String() string {
	return fmt.Sprintf("node depth=%d idx=%d %s scale=%g", n.depth, n.idx, n.state, n.scale)
}
