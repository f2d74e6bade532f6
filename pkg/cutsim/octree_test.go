package cutsim

import (
	"testing"

	"github.com/chazu/kerf/pkg/volume"
)

// checkStateSigns walks the tree verifying that every node's state agrees
// with the signs of its corner samples.
func checkStateSigns(t *testing.T, n *Octnode) {
	t.Helper()
	inside, outside := true, true
	for i := 0; i < 8; i++ {
		if n.f[i] >= 0 {
			outside = false
		} else {
			inside = false
		}
	}
	want := Undecided
	if inside {
		want = Inside
	} else if outside {
		want = Outside
	}
	if n.state != want {
		t.Fatalf("node %v state %s, corner signs say %s (f=%v)", n.center, n.state, want, n.f)
	}
	for i := 0; i < 8; i++ {
		if n.child[i] != nil {
			checkStateSigns(t, n.child[i])
		}
	}
}

func countLeaves(n *Octnode, pred func(*Octnode) bool) int {
	if n.isLeaf() {
		if pred == nil || pred(n) {
			return 1
		}
		return 0
	}
	total := 0
	for i := 0; i < 8; i++ {
		if n.child[i] != nil {
			total += countLeaves(n.child[i], pred)
		}
	}
	return total
}

// snapshotFields collects every leaf's corner samples keyed by center.
func snapshotFields(n *Octnode, out map[[3]float64][8]float64) {
	if n.isLeaf() {
		out[[3]float64{n.center.X, n.center.Y, n.center.Z}] = n.f
		return
	}
	for i := 0; i < 8; i++ {
		if n.child[i] != nil {
			snapshotFields(n.child[i], out)
		}
	}
}

// Empty init: full stock, no surface anywhere.
func TestInitFullStock(t *testing.T) {
	sim := New(10, 5)
	sim.Init(2)
	sim.Refresh()

	if got := sim.Surface().VertexCount(); got != 0 {
		t.Fatalf("vertex count %d after init, want 0", got)
	}
	leaves := countLeaves(sim.Tree().Root(), nil)
	if leaves != 64 {
		t.Fatalf("leaf count %d after init(2), want 64", leaves)
	}
	if n := countLeaves(sim.Tree().Root(), func(n *Octnode) bool { return n.state == Inside }); n != 64 {
		t.Fatalf("%d INSIDE leaves, want 64", n)
	}
	checkStateSigns(t, sim.Tree().Root())
	if !sim.Tree().Root().valid() {
		t.Fatal("root not valid after refresh")
	}
}

func TestInitEmptyStock(t *testing.T) {
	sim := New(10, 5)
	sim.InitEmpty(2)
	sim.Refresh()

	if got := sim.Surface().VertexCount(); got != 0 {
		t.Fatalf("vertex count %d, want 0", got)
	}
	if n := countLeaves(sim.Tree().Root(), func(n *Octnode) bool { return n.state == Outside }); n != 64 {
		t.Fatalf("%d OUTSIDE leaves, want 64", n)
	}
}

// Punch-through: a cube covering the whole stock removes everything and
// the tree prunes back to a single OUTSIDE leaf.
func TestDiffPunchThrough(t *testing.T) {
	sim := New(10, 5)
	sim.Init(3)

	tool := volume.NewCube()
	tool.SetCenter(0, 0, 0)
	tool.SetSide(20)
	sim.Diff(tool)
	sim.Refresh()

	root := sim.Tree().Root()
	if !root.isLeaf() {
		t.Fatalf("root still has children after punch-through, %d leaves",
			countLeaves(root, nil))
	}
	if root.state != Outside {
		t.Fatalf("root state %s, want outside", root.state)
	}
	if got := sim.Surface().VertexCount(); got != 0 {
		t.Fatalf("vertex count %d after punch-through, want 0", got)
	}
	checkStateSigns(t, root)
}

// A volume whose bounding box misses the stock entirely is a no-op: no
// node's corner samples change.
func TestDiffNoOverlap(t *testing.T) {
	sim := New(10, 5)
	sim.Init(3)
	sim.Refresh()

	before := map[[3]float64][8]float64{}
	snapshotFields(sim.Tree().Root(), before)

	tool := volume.NewSphere()
	tool.SetCenter(100, 0, 0)
	tool.SetRadius(1)
	sim.Diff(tool)
	sim.Refresh()

	after := map[[3]float64][8]float64{}
	snapshotFields(sim.Tree().Root(), after)

	if len(before) != len(after) {
		t.Fatalf("leaf count changed %d -> %d", len(before), len(after))
	}
	for c, f := range before {
		if after[c] != f {
			t.Fatalf("leaf at %v modified by non-overlapping volume: %v -> %v", c, f, after[c])
		}
	}
	if got := sim.Surface().VertexCount(); got != 0 {
		t.Fatalf("vertex count %d, want 0", got)
	}
}

// Cutting refines leaves near the tool surface down to max depth, and no
// undecided leaf is left above max depth.
func TestDiffRefinesToMaxDepth(t *testing.T) {
	sim := New(10, 4)
	sim.Init(2)

	tool := volume.NewSphere()
	tool.SetCenter(0, 0, 5)
	tool.SetRadius(5)
	sim.Diff(tool)

	root := sim.Tree().Root()
	checkStateSigns(t, root)

	deep := countLeaves(root, func(n *Octnode) bool {
		return n.depth == 4 && n.state == Undecided
	})
	if deep == 0 {
		t.Fatal("no undecided leaves at max depth after cutting")
	}
	// undecided leaves exist only at max depth
	if n := countLeaves(root, func(n *Octnode) bool {
		return n.state == Undecided && n.depth < 4
	}); n != 0 {
		t.Fatalf("%d undecided leaves above max depth", n)
	}
}

func TestLeafScale(t *testing.T) {
	sim := New(10, 5)
	if got := sim.Tree().LeafScale(); got != 10.0/32.0 {
		t.Fatalf("leaf scale %g, want %g", got, 10.0/32.0)
	}
}

func TestNilVolumePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Sum(nil) did not panic")
		}
	}()
	sim := New(10, 5)
	sim.Sum(nil)
}
