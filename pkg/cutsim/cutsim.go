package cutsim

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/volume"
)

// Cutsim binds the stock octree, the iso-surface extractor and the surface
// table into one cutting simulation.
//
// The stock is modified with boolean operations (Sum, Diff, Intersect)
// against tool volumes; Refresh then brings the surface table up to date
// with everything that changed. A Cutsim is single-threaded: no method may
// be called while another is running, and a Volume must not call back into
// the simulation. Distinct instances are fully independent.
type Cutsim struct {
	surf *Surface
	tree *Octree
	iso  IsoAlgorithm
}

// New creates a simulation over a stock cube of the given side length
// centered at the origin, subdividing at most maxDepth levels (minimum
// cell side size/2^maxDepth), with a marching-cubes extractor. maxDepth of
// 6 or 7 is quick; 9 or 10 looks very smooth but costs accordingly.
func New(size float64, maxDepth int) *Cutsim {
	surf := NewSurface()
	return &Cutsim{
		surf: surf,
		tree: NewOctree(size, maxDepth, v3.Vec{}, surf),
		iso:  NewMarchingCubes(surf),
	}
}

// NewWithAlgorithm is New with a custom extractor.
func NewWithAlgorithm(size float64, maxDepth int, iso func(*Surface) IsoAlgorithm) *Cutsim {
	surf := NewSurface()
	return &Cutsim{
		surf: surf,
		tree: NewOctree(size, maxDepth, v3.Vec{}, surf),
		iso:  iso(surf),
	}
}

// Init subdivides the full stock uniformly n levels.
func (c *Cutsim) Init(n int) { c.tree.Init(n) }

// InitEmpty resets the stock to empty and subdivides uniformly n levels.
func (c *Cutsim) InitEmpty(n int) { c.tree.InitEmpty(n) }

// Sum unions a volume into the stock.
func (c *Cutsim) Sum(vol volume.Volume) { c.tree.Sum(vol) }

// Diff subtracts a volume from the stock.
func (c *Cutsim) Diff(vol volume.Volume) { c.tree.Diff(vol) }

// Intersect intersects the stock with a volume.
func (c *Cutsim) Intersect(vol volume.Volume) { c.tree.Intersect(vol) }

// Refresh updates the surface table to match the current stock.
func (c *Cutsim) Refresh() { c.iso.Update(c.tree) }

// Surface returns the surface table.
func (c *Cutsim) Surface() *Surface { return c.surf }

// Tree returns the stock octree.
func (c *Cutsim) Tree() *Octree { return c.tree }

// String summarizes the simulation state.
func (c *Cutsim) String() string {
	return fmt.Sprintf("Cutsim size=%g maxdepth=%d\n%s%s",
		c.tree.Size(), c.tree.MaxDepth(), c.tree.String(), c.surf.String())
}
