package volume

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/geom"
)

// Compile-time interface check.
var _ Volume = (*SDF)(nil)

// SDF adapts any sdfx solid to the Volume interface, which makes the whole
// sdfx shape library (primitives, transforms, CSG combinations) usable as
// cutting tools.
//
// sdfx evaluates negative inside and positive outside, the opposite of the
// kernel's convention, so Dist flips the sign.
type SDF struct {
	s     sdf.SDF3
	bb    geom.Bbox
	color geom.Color
}

// NewSDF wraps an sdfx solid. The bounding box is taken from the solid once
// at construction; the solid must not change afterwards.
func NewSDF(s sdf.SDF3) *SDF {
	if s == nil {
		panic("volume: nil sdf")
	}
	box := s.BoundingBox()
	v := &SDF{s: s}
	v.bb.AddPoint(box.Min)
	v.bb.AddPoint(box.Max)
	return v
}

// SetColor sets the paint color for surface this volume exposes.
func (v *SDF) SetColor(r, g, b float32) { v.color.Set(r, g, b) }

// Dist returns the sign-flipped sdfx evaluation.
func (v *SDF) Dist(p v3.Vec) float64 {
	return -v.s.Evaluate(p)
}

// Bbox returns the bounding box of the positive region.
func (v *SDF) Bbox() *geom.Bbox { return &v.bb }

// Color returns the paint color.
func (v *SDF) Color() geom.Color { return v.color }
