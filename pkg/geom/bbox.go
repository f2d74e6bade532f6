// Package geom holds the small geometric value types shared across the
// kernel: axis-aligned bounding boxes, RGB colors, and triangle facets.
// Positions and directions everywhere in kerf are sdfx v3.Vec values.
package geom

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Bbox is an axis-aligned bounding box, used for rapid overlap checks
// between a tool volume and an octree node. A zero Bbox is empty; points
// are accumulated with AddPoint.
//
// sdfx has a Box3 type but no overlap predicate and no empty state, so the
// kernel carries its own box built on v3.Vec.
type Bbox struct {
	Min v3.Vec
	Max v3.Vec

	initialized bool
}

// NewBbox returns a box spanning the two given corner points.
func NewBbox(min, max v3.Vec) Bbox {
	b := Bbox{}
	b.AddPoint(min)
	b.AddPoint(max)
	return b
}

// Clear resets the box to empty.
func (b *Bbox) Clear() {
	b.initialized = false
	b.Min = v3.Vec{}
	b.Max = v3.Vec{}
}

// AddPoint grows the box so that p is contained within it.
func (b *Bbox) AddPoint(p v3.Vec) {
	if !b.initialized {
		b.Min = p
		b.Max = p
		b.initialized = true
		return
	}
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	if p.Z < b.Min.Z {
		b.Min.Z = p.Z
	}
	if p.Z > b.Max.Z {
		b.Max.Z = p.Z
	}
}

// Overlaps reports whether the two boxes intersect. Empty boxes overlap
// nothing.
func (b *Bbox) Overlaps(other *Bbox) bool {
	if !b.initialized || !other.initialized {
		return false
	}
	if b.Max.X < other.Min.X || b.Min.X > other.Max.X {
		return false
	}
	if b.Max.Y < other.Min.Y || b.Min.Y > other.Max.Y {
		return false
	}
	if b.Max.Z < other.Min.Z || b.Min.Z > other.Max.Z {
		return false
	}
	return true
}

// Contains reports whether p lies inside the box (boundary included).
func (b *Bbox) Contains(p v3.Vec) bool {
	if !b.initialized {
		return false
	}
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
