package volume

import (
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/geom"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}

func TestSphereDist(t *testing.T) {
	s := NewSphere()
	s.SetCenter(0, 0, 5)
	s.SetRadius(5)

	cases := []struct {
		p    v3.Vec
		want float64
	}{
		{v3.Vec{X: 0, Y: 0, Z: 5}, 5},   // center
		{v3.Vec{X: 0, Y: 0, Z: 0}, 0},   // on the surface
		{v3.Vec{X: 0, Y: 0, Z: 11}, -1}, // outside
		{v3.Vec{X: 3, Y: 0, Z: 5}, 2},   // inside
	}
	for _, c := range cases {
		if got := s.Dist(c.p); !almostEqual(got, c.want) {
			t.Fatalf("Dist(%v) = %g, want %g", c.p, got, c.want)
		}
	}
}

func TestCubeDist(t *testing.T) {
	c := NewCube()
	c.SetCenter(0, 0, 0)
	c.SetSide(2)

	cases := []struct {
		p    v3.Vec
		want float64
	}{
		{v3.Vec{}, 1},
		{v3.Vec{X: 0.5}, 0.5},
		{v3.Vec{X: 1, Y: 1, Z: 1}, 0},
		{v3.Vec{X: 2}, -1},
		{v3.Vec{X: 0.2, Y: -0.9, Z: 0.1}, 0.1},
	}
	for _, cs := range cases {
		if got := c.Dist(cs.p); !almostEqual(got, cs.want) {
			t.Fatalf("Dist(%v) = %g, want %g", cs.p, got, cs.want)
		}
	}
}

func TestConeDist(t *testing.T) {
	c := NewCone()
	c.SetCenter(0, 0, 0)
	c.SetHeight(2)
	c.SetAngle(math.Pi / 4)

	// below the apex is a constant sentinel
	if got := c.Dist(v3.Vec{Z: -1}); got != -1 {
		t.Fatalf("Dist below apex = %g, want -1", got)
	}
	// on the axis, distance equals the cone radius at that height
	if got := c.Dist(v3.Vec{Z: 1}); !almostEqual(got, 1) {
		t.Fatalf("Dist on axis = %g, want 1", got)
	}
	// halfway to the wall
	if got := c.Dist(v3.Vec{X: 0.5, Z: 1}); !almostEqual(got, 0.5) {
		t.Fatalf("Dist = %g, want 0.5", got)
	}
	// outside the wall
	if got := c.Dist(v3.Vec{X: 2, Z: 1}); !almostEqual(got, -1) {
		t.Fatalf("Dist outside = %g, want -1", got)
	}
}

// The bounding box must contain every point with a positive distance.
func TestBboxBoundsPositiveRegion(t *testing.T) {
	sphere := NewSphere()
	sphere.SetCenter(1, -2, 3)
	sphere.SetRadius(2.5)

	cube := NewCube()
	cube.SetCenter(-1, 0, 2)
	cube.SetSide(3)

	cone := NewCone()
	cone.SetCenter(0, 1, -1)
	cone.SetHeight(3)
	cone.SetAngle(0.5)

	vols := []Volume{sphere, cube, cone}
	for _, vol := range vols {
		bb := vol.Bbox()
		for x := -6.0; x <= 6; x += 0.75 {
			for y := -6.0; y <= 6; y += 0.75 {
				for z := -6.0; z <= 6; z += 0.75 {
					p := v3.Vec{X: x, Y: y, Z: z}
					if vol.Dist(p) > 0 && !bb.Contains(p) {
						t.Fatalf("%T: %v is inside the volume but outside bbox [%v %v]",
							vol, p, bb.Min, bb.Max)
					}
				}
			}
		}
	}
}

func TestSDFAdapter(t *testing.T) {
	box, err := sdf.Box3D(v3.Vec{X: 2, Y: 2, Z: 2}, 0)
	if err != nil {
		t.Fatalf("Box3D: %v", err)
	}
	v := NewSDF(box)
	v.SetColor(0, 1, 0)

	// positive inside, negative outside
	if got := v.Dist(v3.Vec{}); !almostEqual(got, 1) {
		t.Fatalf("Dist(center) = %g, want 1", got)
	}
	if got := v.Dist(v3.Vec{X: 2}); got >= 0 {
		t.Fatalf("Dist(outside) = %g, want negative", got)
	}
	bb := v.Bbox()
	if !almostEqual(bb.Min.X, -1) || !almostEqual(bb.Max.Z, 1) {
		t.Fatalf("bbox [%v %v], want unit-ish box", bb.Min, bb.Max)
	}
	if v.Color().G != 1 {
		t.Fatalf("color %v, want green", v.Color())
	}
}

// cubeFacets builds the 12 triangles of an axis-aligned cube spanning
// [-h,h]^3 with outward normals.
func cubeFacets(h float64) []geom.Facet {
	p := func(x, y, z float64) v3.Vec {
		return v3.Vec{X: x * h, Y: y * h, Z: z * h}
	}
	quad := func(n, a, b, c, d v3.Vec) []geom.Facet {
		return []geom.Facet{
			{Normal: n, V1: a, V2: b, V3: c},
			{Normal: n, V1: a, V2: c, V3: d},
		}
	}
	var f []geom.Facet
	f = append(f, quad(v3.Vec{X: 1}, p(1, -1, -1), p(1, 1, -1), p(1, 1, 1), p(1, -1, 1))...)
	f = append(f, quad(v3.Vec{X: -1}, p(-1, -1, -1), p(-1, -1, 1), p(-1, 1, 1), p(-1, 1, -1))...)
	f = append(f, quad(v3.Vec{Y: 1}, p(-1, 1, -1), p(-1, 1, 1), p(1, 1, 1), p(1, 1, -1))...)
	f = append(f, quad(v3.Vec{Y: -1}, p(-1, -1, -1), p(1, -1, -1), p(1, -1, 1), p(-1, -1, 1))...)
	f = append(f, quad(v3.Vec{Z: 1}, p(-1, -1, 1), p(1, -1, 1), p(1, 1, 1), p(-1, 1, 1))...)
	f = append(f, quad(v3.Vec{Z: -1}, p(-1, -1, -1), p(-1, 1, -1), p(1, 1, -1), p(1, -1, -1))...)
	return f
}

func TestMeshVolumeCube(t *testing.T) {
	m := NewMesh()
	if err := m.Load(cubeFacets(1)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.FacetCount() != 12 {
		t.Fatalf("facet count %d, want 12", m.FacetCount())
	}

	// center: face region, one unit from every face
	if got := m.Dist(v3.Vec{}); !almostEqual(got, 1) {
		t.Fatalf("Dist(center) = %g, want 1", got)
	}
	// inside near the +x face
	if got := m.Dist(v3.Vec{X: 0.9}); !almostEqual(got, 0.1) {
		t.Fatalf("Dist(0.9,0,0) = %g, want 0.1", got)
	}
	// outside facing a face
	if got := m.Dist(v3.Vec{X: 2}); !almostEqual(got, -1) {
		t.Fatalf("Dist(2,0,0) = %g, want -1", got)
	}
	// outside in an edge region
	if got := m.Dist(v3.Vec{X: 1.5, Y: 1.5}); !almostEqual(got, -math.Sqrt(0.5)) {
		t.Fatalf("Dist(1.5,1.5,0) = %g, want %g", got, -math.Sqrt(0.5))
	}
	// outside in a vertex region
	if got := m.Dist(v3.Vec{X: 2, Y: 2, Z: 2}); !almostEqual(got, -math.Sqrt(3)) {
		t.Fatalf("Dist(2,2,2) = %g, want %g", got, -math.Sqrt(3))
	}
	// bbox covers the cube plus tolerance padding
	bb := m.Bbox()
	if bb.Min.X > -1 || bb.Max.X < 1 {
		t.Fatalf("bbox [%v %v] does not cover the cube", bb.Min, bb.Max)
	}
}

func TestMeshVolumePlacement(t *testing.T) {
	m := NewMesh()
	m.SetCenter(10, 0, 0)
	if err := m.Load(cubeFacets(1)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Dist(v3.Vec{X: 10}); !almostEqual(got, 1) {
		t.Fatalf("Dist(translated center) = %g, want 1", got)
	}
	if got := m.Dist(v3.Vec{}); got >= 0 {
		t.Fatalf("Dist(old center) = %g, want negative", got)
	}
}

func TestMeshVolumeEmpty(t *testing.T) {
	m := NewMesh()
	if err := m.Load(nil); err == nil {
		t.Fatal("Load(nil) did not error")
	}
	degenerate := []geom.Facet{{Normal: v3.Vec{Z: 1}}}
	if err := m.Load(degenerate); err == nil {
		t.Fatal("Load(degenerate) did not error")
	}
}
