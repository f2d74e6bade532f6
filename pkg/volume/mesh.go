package volume

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/geom"
)

// signTolerance widens the boundary band between adjacent Voronoi regions
// when deciding the sign of an edge or vertex distance. Points that project
// just outside a facet are treated as "outside plus tolerance" so the sign
// does not flicker between neighboring facets.
const signTolerance = 1e-2

// Mesh is a triangle-soup volume. Dist is the signed distance to the
// nearest facet, with the sign taken from the facet's outward normal and
// the closest feature (face, edge, or vertex) classified through the
// facet's Voronoi regions.
type Mesh struct {
	center   v3.Vec
	rotation v3.Vec // rotation angles about the x and z axes, radians
	facets   []geom.Facet
	bb       geom.Bbox
	color    geom.Color

	// per-facet edge precomputations, filled once at load
	v21          []v3.Vec
	v32          []v3.Vec
	v13          []v3.Vec
	invV21dotV21 []float64
	invV32dotV32 []float64
	invV13dotV13 []float64
}

// NewMesh returns an empty mesh volume at the origin.
func NewMesh() *Mesh {
	return &Mesh{}
}

// SetCenter sets the placement offset applied to facets at load time.
func (m *Mesh) SetCenter(x, y, z float64) {
	m.center = v3.Vec{X: x, Y: y, Z: z}
}

// SetRotation sets rotation angles (radians) about the x and z axes,
// applied to facets once at load time.
func (m *Mesh) SetRotation(ax, az float64) {
	m.rotation = v3.Vec{X: ax, Z: az}
}

// SetColor sets the paint color for surface this volume exposes.
func (m *Mesh) SetColor(r, g, b float32) { m.color.Set(r, g, b) }

// rotateXZ rotates p about the x axis by a, then about the z axis by c.
func rotateXZ(p v3.Vec, a, c float64) v3.Vec {
	sa, ca := math.Sincos(a)
	p = v3.Vec{X: p.X, Y: ca*p.Y - sa*p.Z, Z: sa*p.Y + ca*p.Z}
	sc, cc := math.Sincos(c)
	return v3.Vec{X: cc*p.X - sc*p.Y, Y: sc*p.X + cc*p.Y, Z: p.Z}
}

// Load places the given facets into the volume, applying the configured
// placement and rotation once, then caches the edge quantities Dist needs.
// Degenerate facets with a zero-length edge are dropped.
func (m *Mesh) Load(facets []geom.Facet) error {
	if len(facets) == 0 {
		return fmt.Errorf("volume: empty mesh")
	}
	m.facets = m.facets[:0]
	m.v21, m.v32, m.v13 = nil, nil, nil
	m.invV21dotV21, m.invV32dotV32, m.invV13dotV13 = nil, nil, nil
	m.bb.Clear()

	for _, f := range facets {
		f.Normal = rotateXZ(f.Normal, m.rotation.X, m.rotation.Z)
		f.V1 = rotateXZ(f.V1, m.rotation.X, m.rotation.Z).Add(m.center)
		f.V2 = rotateXZ(f.V2, m.rotation.X, m.rotation.Z).Add(m.center)
		f.V3 = rotateXZ(f.V3, m.rotation.X, m.rotation.Z).Add(m.center)

		v21 := f.V2.Sub(f.V1)
		v32 := f.V3.Sub(f.V2)
		v13 := f.V1.Sub(f.V3)
		d21 := v21.Dot(v21)
		d32 := v32.Dot(v32)
		d13 := v13.Dot(v13)
		if d21 == 0 || d32 == 0 || d13 == 0 {
			continue
		}

		m.facets = append(m.facets, f)
		m.v21 = append(m.v21, v21)
		m.v32 = append(m.v32, v32)
		m.v13 = append(m.v13, v13)
		m.invV21dotV21 = append(m.invV21dotV21, 1/d21)
		m.invV32dotV32 = append(m.invV32dotV32, 1/d32)
		m.invV13dotV13 = append(m.invV13dotV13, 1/d13)

		m.bb.AddPoint(f.V1)
		m.bb.AddPoint(f.V2)
		m.bb.AddPoint(f.V3)
	}
	if len(m.facets) == 0 {
		return fmt.Errorf("volume: mesh has only degenerate facets")
	}

	// pad so surface cells right at the extremes still overlap
	tol := v3.Vec{X: signTolerance, Y: signTolerance, Z: signTolerance}
	min, max := m.bb.Min.Sub(tol), m.bb.Max.Add(tol)
	m.bb.Clear()
	m.bb.AddPoint(min)
	m.bb.AddPoint(max)
	return nil
}

// FacetCount returns the number of usable facets.
func (m *Mesh) FacetCount() int { return len(m.facets) }

// Dist scans every facet, classifies p against the facet's Voronoi regions
// and keeps the signed distance to the closest feature seen so far.
func (m *Mesh) Dist(p v3.Vec) float64 {
	min := 1.0e3
	ret := -1.0
	for i := range m.facets {
		f := &m.facets[i]

		u := p.Sub(f.V1).Dot(m.v21[i]) * m.invV21dotV21[i]
		q := f.V1.Add(m.v21[i].MulScalar(u))
		d := q.Sub(p).Dot(f.Normal)
		absD := math.Abs(d)
		if absD > min {
			continue
		}

		// project p onto the facet plane and test which side of each
		// edge the projection falls on
		r := p.Add(f.Normal.MulScalar(d))
		n1 := r.Sub(f.V1).Cross(m.v13[i])
		n2 := r.Sub(f.V2).Cross(m.v21[i])
		n3 := r.Sub(f.V3).Cross(m.v32[i])
		s12 := n1.Dot(n2)
		s23 := n2.Dot(n3)
		s31 := n3.Dot(n1)

		if s12*s31 > 0 && s12*s23 > 0 && s23*s31 > 0 {
			// face region: plane distance is the answer
			if absD < min {
				min = absD
				ret = d
			}
			continue
		}

		// edge or vertex region, one of the three edges
		switch {
		case s12 <= 0 && s31 >= 0:
			// edge v1-v2; u is already the projection parameter
			if u <= 0 {
				q = f.V1
			} else if u >= 1 {
				q = f.V2
			}
		case s31 <= 0 && s23 >= 0:
			u = p.Sub(f.V3).Dot(m.v13[i]) * m.invV13dotV13[i]
			if u > 0 && u < 1 {
				q = f.V3.Add(m.v13[i].MulScalar(u))
			} else if u <= 0 {
				q = f.V3
			} else {
				q = f.V1
			}
		default:
			u = p.Sub(f.V2).Dot(m.v32[i]) * m.invV32dotV32[i]
			if u > 0 && u < 1 {
				q = f.V2.Add(m.v32[i].MulScalar(u))
			} else if u <= 0 {
				q = f.V2
			} else {
				q = f.V3
			}
		}
		absD = q.Sub(p).Length()
		if absD < min {
			d = q.Sub(p).Dot(f.Normal)
			if d > signTolerance {
				// behind the facet per its normal, so inside, but the
				// closest feature is an edge or vertex shared with a
				// neighbor: keep it slightly disfavored so an adjacent
				// facet with a face-region answer wins the tie
				min = absD + signTolerance
				ret = absD
			} else {
				min = absD
				ret = -absD
			}
		}
	}
	return ret
}

// Bbox returns the bounding box of the positive region.
func (m *Mesh) Bbox() *geom.Bbox { return &m.bb }

// Color returns the paint color.
func (m *Mesh) Color() geom.Color { return m.color }
