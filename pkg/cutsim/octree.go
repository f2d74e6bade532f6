package cutsim

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/volume"
)

// Octree is the sparse stock model: a tree of cubic nodes whose leaves
// carry the sampled signed-distance field of the remaining material.
// Boolean operations rewrite corner samples in place, refining the tree
// near the new surface down to maxDepth and pruning subtrees that collapse
// to a uniform state.
type Octree struct {
	root     *Octnode
	rootSize float64 // side length of the depth-0 cube
	maxDepth int
	surf     *Surface
}

// NewOctree creates a stock tree covering a cube of the given side length
// around center. The tree starts as full stock (a single INSIDE root).
// Leaves refine down to maxDepth, for a minimum cell side of
// size/2^maxDepth.
func NewOctree(size float64, maxDepth int, center v3.Vec, surf *Surface) *Octree {
	if size <= 0 {
		panic("cutsim: octree size must be positive")
	}
	if maxDepth < 1 {
		panic("cutsim: octree max depth must be at least 1")
	}
	t := &Octree{rootSize: size, maxDepth: maxDepth, surf: surf}
	t.root = newOctnode(nil, 0, size/2, 0, surf)
	t.root.center = center
	for i := 0; i < 8; i++ {
		t.root.corner[i] = center.Add(direction[i].MulScalar(size / 2))
	}
	t.root.bb.Clear()
	t.root.bb.AddPoint(t.root.corner[2])
	t.root.bb.AddPoint(t.root.corner[4])
	t.root.fill(1)
	t.root.prevState = t.root.state
	return t
}

// MaxDepth returns the maximum subdivision depth.
func (t *Octree) MaxDepth() int { return t.maxDepth }

// Size returns the side length of the root cube.
func (t *Octree) Size() float64 { return t.rootSize }

// LeafScale returns the side length of a cell at maximum depth.
func (t *Octree) LeafScale() float64 {
	return t.rootSize / math.Pow(2, float64(t.maxDepth))
}

// Root returns the root node.
func (t *Octree) Root() *Octnode { return t.root }

// Init force-subdivides the tree uniformly n more levels. A freshly
// constructed tree is full stock, so Init(n) yields 8^n INSIDE leaves.
func (t *Octree) Init(n int) {
	for m := 0; m < n; m++ {
		for _, leaf := range t.LeafNodes() {
			leaf.forceSubdivide()
		}
	}
}

// InitEmpty resets the tree to empty stock (everything OUTSIDE) and then
// force-subdivides uniformly n levels. Used for additive simulation where
// material is summed into a void.
func (t *Octree) InitEmpty(n int) {
	t.reset(-1)
	t.Init(n)
}

// reset discards the current tree, retiring all produced vertices, and
// refills the root with the given sentinel field value.
func (t *Octree) reset(fill float64) {
	t.clearSubtree(t.root)
	t.root.fill(fill)
	t.root.prevState = t.root.state
}

// clearSubtree retires every vertex below and including n and drops n's
// children.
func (t *Octree) clearSubtree(n *Octnode) {
	for i := 0; i < 8; i++ {
		if n.child[i] != nil {
			t.clearSubtree(n.child[i])
			n.child[i].parent = nil
			n.child[i] = nil
		}
	}
	n.childCount = 0
	n.childValid = 0
	n.clearVertexSet()
}

// LeafNodes collects the tree's leaves.
func (t *Octree) LeafNodes() []*Octnode {
	var out []*Octnode
	t.leafNodes(t.root, &out)
	return out
}

func (t *Octree) leafNodes(n *Octnode, out *[]*Octnode) {
	if n.isLeaf() {
		*out = append(*out, n)
		return
	}
	for i := 0; i < 8; i++ {
		if n.child[i] != nil {
			t.leafNodes(n.child[i], out)
		}
	}
}

// Sum unions the volume into the stock: f' = max(f, d).
func (t *Octree) Sum(vol volume.Volume) {
	if vol == nil {
		panic("cutsim: nil volume")
	}
	t.boolOp(t.root, vol, opSum)
}

// Diff subtracts the volume from the stock: f' = min(f, -d).
func (t *Octree) Diff(vol volume.Volume) {
	if vol == nil {
		panic("cutsim: nil volume")
	}
	t.boolOp(t.root, vol, opDiff)
}

// Intersect intersects the stock with the volume: f' = min(f, d).
func (t *Octree) Intersect(vol volume.Volume) {
	if vol == nil {
		panic("cutsim: nil volume")
	}
	t.boolOp(t.root, vol, opIntersect)
}

// boolOp is the recursive boolean update. Subtrees whose bounding box does
// not touch the volume's are skipped untouched. A leaf already saturated
// for the opcode (INSIDE for sum, OUTSIDE for diff and intersect) cannot
// change and is skipped. Otherwise the corner samples are rewritten under
// the opcode; an undecided leaf above maxDepth is subdivided so the
// crossing is resolved at full resolution, and after the children return a
// uniform octet of leaves is pruned back into its parent.
func (t *Octree) boolOp(n *Octnode, vol volume.Volume, op opKind) {
	if !vol.Bbox().Overlaps(&n.bb) {
		return
	}
	if n.isLeaf() {
		switch op {
		case opSum:
			if n.state == Inside {
				return
			}
		case opDiff, opIntersect:
			if n.state == Outside {
				return
			}
		}
	}
	n.applyOp(op, vol)
	if !n.isLeaf() {
		for i := 0; i < 8; i++ {
			t.boolOp(n.child[i], vol, op)
		}
		n.tryPrune()
		return
	}
	if n.state == Undecided && n.depth < t.maxDepth {
		n.subdivide()
		for i := 0; i < 8; i++ {
			t.boolOp(n.child[i], vol, op)
		}
		n.tryPrune()
	}
}

// String summarizes the tree per depth level.
func (t *Octree) String() string {
	depths := make([]int, t.maxDepth+1)
	invalid := make([]int, t.maxDepth+1)
	surface := make([]int, t.maxDepth+1)
	var walk func(*Octnode)
	walk = func(n *Octnode) {
		depths[n.depth]++
		if !n.valid() {
			invalid[n.depth]++
		}
		if n.state == Undecided {
			surface[n.depth]++
		}
		for i := 0; i < 8; i++ {
			if n.child[i] != nil {
				walk(n.child[i])
			}
		}
	}
	walk(t.root)
	out := "Octree:\n"
	for d := 0; d <= t.maxDepth; d++ {
		if depths[d] == 0 {
			continue
		}
		out += fmt.Sprintf("depth=%d  %d nodes, %d invalid, surface=%d\n",
			d, depths[d], invalid[d], surface[d])
	}
	return out
}
