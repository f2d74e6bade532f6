package cutsim

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/geom"
)

// checkSurface verifies the structural invariants of the mesh table:
// parallel arrays, polygon/vertex cross-references in both directions,
// vertex/owner cross-references, and descending polygon sets.
func checkSurface(t *testing.T, s *Surface) {
	t.Helper()
	if len(s.vertices) != len(s.aux) {
		t.Fatalf("vertex array %d != aux array %d", len(s.vertices), len(s.aux))
	}
	if len(s.indices)%s.polyVerts != 0 {
		t.Fatalf("index array length %d not a multiple of arity %d", len(s.indices), s.polyVerts)
	}
	polyCount := len(s.indices) / s.polyVerts
	for p := 0; p < polyCount; p++ {
		for m := 0; m < s.polyVerts; m++ {
			vi := s.indices[p*s.polyVerts+m]
			if int(vi) >= len(s.vertices) {
				t.Fatalf("polygon %d references dead vertex %d", p, vi)
			}
			if !s.aux[vi].polygons.contains(p) {
				t.Fatalf("polygon %d not registered on vertex %d", p, vi)
			}
		}
	}
	for v := range s.aux {
		prev := -1
		for _, p := range s.aux[v].polygons.ids {
			if prev != -1 && p >= prev {
				t.Fatalf("vertex %d polygon set not descending: %v", v, s.aux[v].polygons.ids)
			}
			prev = p
			if p >= polyCount {
				t.Fatalf("vertex %d references dead polygon %d", v, p)
			}
			found := false
			for m := 0; m < s.polyVerts; m++ {
				if s.indices[p*s.polyVerts+m] == uint32(v) {
					found = true
				}
			}
			if !found {
				t.Fatalf("vertex %d claims polygon %d but polygon does not reference it", v, p)
			}
		}
		if n := s.aux[v].node; n != nil {
			if _, ok := n.vertexSet[v]; !ok {
				t.Fatalf("vertex %d owner does not record it", v)
			}
		}
	}
}

func vtx(x, y, z float64) Vertex {
	return Vertex{Pos: v3.Vec{X: x, Y: y, Z: z}}
}

func TestAddRemovePolygon(t *testing.T) {
	s := NewSurface()
	a := s.AddVertex(vtx(0, 0, 0), nil)
	b := s.AddVertex(vtx(1, 0, 0), nil)
	c := s.AddVertex(vtx(0, 1, 0), nil)
	d := s.AddVertex(vtx(1, 1, 0), nil)
	p0 := s.AddPolygon(a, b, c)
	p1 := s.AddPolygon(b, d, c)
	checkSurface(t, s)
	if s.PolygonCount() != 2 {
		t.Fatalf("polygon count %d, want 2", s.PolygonCount())
	}

	// removing p0 moves p1 into its slot
	s.RemovePolygon(p0)
	checkSurface(t, s)
	if s.PolygonCount() != 1 {
		t.Fatalf("polygon count %d, want 1", s.PolygonCount())
	}
	if s.indices[0] != uint32(b) || s.indices[1] != uint32(d) || s.indices[2] != uint32(c) {
		t.Fatalf("moved polygon indices %v, want [%d %d %d]", s.indices[:3], b, d, c)
	}
	if !s.aux[a].polygons.empty() {
		t.Fatalf("vertex %d still references polygons %v", a, s.aux[a].polygons.ids)
	}
	_ = p1
}

func TestRemoveVertexCascade(t *testing.T) {
	s := NewSurface()
	// two triangles sharing an edge
	a := s.AddVertex(vtx(0, 0, 0), nil)
	b := s.AddVertex(vtx(1, 0, 0), nil)
	c := s.AddVertex(vtx(0, 1, 0), nil)
	d := s.AddVertex(vtx(1, 1, 0), nil)
	s.AddPolygon(a, b, c)
	s.AddPolygon(b, d, c)
	checkSurface(t, s)

	// removing the shared vertex removes both triangles
	s.RemoveVertex(b)
	checkSurface(t, s)
	if s.PolygonCount() != 0 {
		t.Fatalf("polygon count %d, want 0", s.PolygonCount())
	}
	if s.VertexCount() != 3 {
		t.Fatalf("vertex count %d, want 3", s.VertexCount())
	}
}

func TestRemoveVertexNotifiesOwner(t *testing.T) {
	s := NewSurface()
	n := newOctnode(nil, 0, 1, 0, s)
	a := s.AddVertex(vtx(0, 0, 0), nil)
	b := s.AddVertex(vtx(1, 0, 0), n)
	n.addIndex(b)
	checkSurface(t, s)

	// removing a moves b into slot 0; the owner must learn the new id
	s.RemoveVertex(a)
	checkSurface(t, s)
	if _, ok := n.vertexSet[0]; !ok {
		t.Fatalf("owner vertex set %v, want {0}", n.vertexSet)
	}
}

func TestSetNormalNormalizes(t *testing.T) {
	s := NewSurface()
	id := s.AddVertex(vtx(0, 0, 0), nil)
	s.SetNormal(id, v3.Vec{X: 0, Y: 0, Z: 10})
	n := s.vertices[id].Normal
	if n.Z != 1 || n.X != 0 || n.Y != 0 {
		t.Fatalf("normal %v, want unit +z", n)
	}
}

// Emit a batch of triangles and drain the table by repeatedly removing
// vertex 0. Every intermediate state must satisfy the invariants.
func TestCompactionDrain(t *testing.T) {
	const N = 20
	s := NewSurface()
	for i := 0; i < N; i++ {
		a := s.AddVertex(vtx(float64(i), 0, 0), nil)
		b := s.AddVertex(vtx(float64(i), 1, 0), nil)
		c := s.AddVertex(vtx(float64(i), 0, 1), nil)
		s.AddPolygon(a, b, c)
	}
	checkSurface(t, s)

	steps := 0
	for s.VertexCount() > 0 {
		s.RemoveVertex(0)
		checkSurface(t, s)
		steps++
		if steps > 3*N {
			t.Fatalf("table did not drain after %d removals", steps)
		}
	}
	if steps != 3*N {
		t.Fatalf("drained in %d removals, want %d", steps, 3*N)
	}
	if s.PolygonCount() != 0 {
		t.Fatalf("polygon count %d after drain", s.PolygonCount())
	}
}

func TestMeshExport(t *testing.T) {
	s := NewSurface()
	a := s.AddVertex(Vertex{Pos: v3.Vec{X: 1}, Color: geom.Color{R: 1}}, nil)
	b := s.AddVertex(vtx(0, 1, 0), nil)
	c := s.AddVertex(vtx(0, 0, 1), nil)
	s.AddPolygon(a, b, c)

	m := s.Mesh()
	if m.VertexCount() != 3 || m.TriangleCount() != 1 {
		t.Fatalf("mesh %d vertices %d triangles, want 3/1", m.VertexCount(), m.TriangleCount())
	}
	if m.Vertices[0] != 1 || m.Colors[0] != 1 {
		t.Fatalf("vertex 0 position/color not exported: %v %v", m.Vertices[:3], m.Colors[:3])
	}
	if len(m.Normals) != len(m.Vertices) {
		t.Fatalf("normals length %d != vertices length %d", len(m.Normals), len(m.Vertices))
	}
}
