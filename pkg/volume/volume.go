// Package volume defines the implicit tool volumes the stock model is cut
// with. A volume is a signed distance function with the positive-inside
// convention, so boolean operations on sampled fields reduce to min/max:
//
//	A union B     = max( d(A),  d(B) )
//	A minus B     = min( d(A), -d(B) )
//	A intersect B = min( d(A),  d(B) )
//
// Reference: Frisken et al., "Designing with Distance Fields".
package volume

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/geom"
)

// Volume is an implicit solid used as one operand of a boolean operation
// against the stock.
//
// Dist returns the signed distance from p to the volume surface, positive
// for points inside the volume and negative for points outside. The value
// only needs to be exact near the surface; far-field values may be
// approximate as long as the sign is right.
//
// Bbox bounds the positive region: Dist(p) > 0 implies p is inside the box.
// A looser box is legal and only costs traversal time.
//
// A Volume must not change while a boolean operation is running, and must
// not call back into the octree it is being applied to.
type Volume interface {
	Dist(p v3.Vec) float64
	Bbox() *geom.Bbox
	Color() geom.Color
}

// Sphere is a ball centered at a point.
type Sphere struct {
	center v3.Vec
	radius float64
	bb     geom.Bbox
	color  geom.Color
}

// NewSphere returns a unit sphere at the origin.
func NewSphere() *Sphere {
	s := &Sphere{radius: 1}
	s.calcBbox()
	return s
}

// SetCenter moves the sphere center.
func (s *Sphere) SetCenter(x, y, z float64) {
	s.center = v3.Vec{X: x, Y: y, Z: z}
	s.calcBbox()
}

// SetRadius sets the sphere radius.
func (s *Sphere) SetRadius(r float64) {
	s.radius = r
	s.calcBbox()
}

// SetColor sets the paint color for surface this volume exposes.
func (s *Sphere) SetColor(r, g, b float32) { s.color.Set(r, g, b) }

func (s *Sphere) calcBbox() {
	s.bb.Clear()
	r := v3.Vec{X: s.radius, Y: s.radius, Z: s.radius}
	s.bb.AddPoint(s.center.Add(r))
	s.bb.AddPoint(s.center.Sub(r))
}

// Dist returns radius minus the distance to the center.
func (s *Sphere) Dist(p v3.Vec) float64 {
	return s.radius - p.Sub(s.center).Length()
}

// Bbox returns the bounding box of the positive region.
func (s *Sphere) Bbox() *geom.Bbox { return &s.bb }

// Color returns the paint color.
func (s *Sphere) Color() geom.Color { return s.color }

// Cube is an axis-aligned cube given by its center and side length.
type Cube struct {
	center v3.Vec
	side   float64
	bb     geom.Bbox
	color  geom.Color
}

// NewCube returns a unit cube at the origin.
func NewCube() *Cube {
	c := &Cube{side: 1}
	c.calcBbox()
	return c
}

// SetCenter moves the cube center.
func (c *Cube) SetCenter(x, y, z float64) {
	c.center = v3.Vec{X: x, Y: y, Z: z}
	c.calcBbox()
}

// SetSide sets the side length.
func (c *Cube) SetSide(s float64) {
	c.side = s
	c.calcBbox()
}

// SetColor sets the paint color for surface this volume exposes.
func (c *Cube) SetColor(r, g, b float32) { c.color.Set(r, g, b) }

func (c *Cube) calcBbox() {
	c.bb.Clear()
	h := v3.Vec{X: c.side / 2, Y: c.side / 2, Z: c.side / 2}
	c.bb.AddPoint(c.center.Add(h))
	c.bb.AddPoint(c.center.Sub(h))
}

// Dist is the Chebyshev distance: half the side minus the largest
// coordinate offset from the center.
func (c *Cube) Dist(p v3.Vec) float64 {
	m := math.Abs(p.X - c.center.X)
	if d := math.Abs(p.Y - c.center.Y); d > m {
		m = d
	}
	if d := math.Abs(p.Z - c.center.Z); d > m {
		m = d
	}
	return c.side/2 - m
}

// Bbox returns the bounding box of the positive region.
func (c *Cube) Bbox() *geom.Bbox { return &c.bb }

// Color returns the paint color.
func (c *Cube) Color() geom.Color { return c.color }

// Cone is an open cone with its apex at the center, opening toward +z with
// the given half-angle, truncated at the given height.
type Cone struct {
	center v3.Vec
	height float64
	alfa   float64 // half-angle in radians
	bb     geom.Bbox
	color  geom.Color
}

// NewCone returns a cone of height 1 and half-angle 45 degrees.
func NewCone() *Cone {
	c := &Cone{height: 1, alfa: math.Pi / 4}
	c.calcBbox()
	return c
}

// SetCenter moves the apex.
func (c *Cone) SetCenter(x, y, z float64) {
	c.center = v3.Vec{X: x, Y: y, Z: z}
	c.calcBbox()
}

// SetHeight sets the cone height above the apex.
func (c *Cone) SetHeight(h float64) {
	c.height = h
	c.calcBbox()
}

// SetAngle sets the half-angle in radians.
func (c *Cone) SetAngle(a float64) {
	c.alfa = a
	c.calcBbox()
}

// SetColor sets the paint color for surface this volume exposes.
func (c *Cone) SetColor(r, g, b float32) { c.color.Set(r, g, b) }

func (c *Cone) calcBbox() {
	c.bb.Clear()
	r := c.height * math.Tan(c.alfa)
	c.bb.AddPoint(v3.Vec{X: c.center.X + r, Y: c.center.Y + r, Z: c.center.Z + c.height})
	c.bb.AddPoint(v3.Vec{X: c.center.X - r, Y: c.center.Y - r, Z: c.center.Z})
}

// Dist compares the radial offset against the cone radius at the point's
// height, and takes the smaller of that and the distance below the top cap.
// Points below the apex get a constant negative sentinel.
func (c *Cone) Dist(p v3.Vec) float64 {
	h := p.Z - c.center.Z
	if h <= 0 {
		return -1
	}
	radius := h * math.Tan(c.alfa)
	dx := p.X - c.center.X
	dy := p.Y - c.center.Y
	return math.Min(radius-math.Sqrt(dx*dx+dy*dy), c.height-h)
}

// Bbox returns the bounding box of the positive region.
func (c *Cone) Bbox() *geom.Bbox { return &c.bb }

// Color returns the paint color.
func (c *Cone) Color() geom.Color { return c.color }
