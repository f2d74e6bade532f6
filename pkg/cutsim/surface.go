package cutsim

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// polygonSet is the set of polygon ids a vertex belongs to, kept sorted in
// descending order. Cascade removes pop the largest id first so that the
// remaining ids stay valid across the swap-compactions RemovePolygon does.
type polygonSet struct {
	ids []int // descending
}

func (s *polygonSet) add(id int) {
	i := 0
	for i < len(s.ids) && s.ids[i] > id {
		i++
	}
	if i < len(s.ids) && s.ids[i] == id {
		return
	}
	s.ids = append(s.ids, 0)
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = id
}

func (s *polygonSet) remove(id int) {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
}

func (s *polygonSet) contains(id int) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *polygonSet) empty() bool { return len(s.ids) == 0 }

// max returns the largest polygon id in the set.
func (s *polygonSet) max() int { return s.ids[0] }

// vertexAux carries the bookkeeping the extractor needs per vertex but a
// renderer does not: the octree leaf that produced the vertex and the set
// of polygons referencing it.
type vertexAux struct {
	polygons polygonSet
	node     *Octnode
}

// Surface is the externally observable mesh: a compact vertex array plus a
// flat polygon-index array, cross-linked both ways. Removal compacts by
// overwriting with the last element and shortening, with explicit
// renumbering of every reference to the moved record; the arrays therefore
// stay contiguous and can be handed to a renderer or exporter as-is.
//
// The four mutations an iso-surface algorithm performs are AddVertex,
// RemoveVertex (which cascades into the polygons using the vertex),
// AddPolygon, and RemovePolygon. See Schaefer & Warren, "Dual Marching
// Cubes", for the table layout this follows.
type Surface struct {
	vertices []Vertex
	aux      []vertexAux
	indices  []uint32

	polyVerts int // vertices per polygon, 3 for triangles, 2 for lines
}

// NewSurface returns an empty triangle surface.
func NewSurface() *Surface {
	return &Surface{polyVerts: 3}
}

// SetTriangles configures three vertices per polygon.
func (s *Surface) SetTriangles() { s.polyVerts = 3 }

// SetLines configures two vertices per polygon.
func (s *Surface) SetLines() { s.polyVerts = 2 }

// PolygonVertices returns the polygon arity.
func (s *Surface) PolygonVertices() int { return s.polyVerts }

// VertexCount returns the number of live vertices.
func (s *Surface) VertexCount() int { return len(s.vertices) }

// PolygonCount returns the number of live polygons.
func (s *Surface) PolygonCount() int { return len(s.indices) / s.polyVerts }

// Vertices returns the live vertex array. The slice is owned by the
// Surface and valid until the next mutation.
func (s *Surface) Vertices() []Vertex { return s.vertices }

// Indices returns the live flat polygon-index array. The slice is owned by
// the Surface and valid until the next mutation.
func (s *Surface) Indices() []uint32 { return s.indices }

// AddVertex appends a vertex owned by the given octree leaf (which may be
// nil) and returns its index. The new vertex belongs to no polygons.
func (s *Surface) AddVertex(v Vertex, owner *Octnode) int {
	id := len(s.vertices)
	s.vertices = append(s.vertices, v)
	s.aux = append(s.aux, vertexAux{node: owner})
	return id
}

// SetNormal sets the normal of the given vertex, normalized on write.
func (s *Surface) SetNormal(id int, n v3.Vec) {
	s.vertices[id].SetNormal(n)
}

// ModifyVertex replaces the vertex record in place. Ownership and polygon
// membership are unchanged.
func (s *Surface) ModifyVertex(id int, v Vertex) {
	s.vertices[id] = v
}

// AddPolygon appends a polygon over the given vertex ids and registers it
// with each of them. The number of ids must match the polygon arity.
func (s *Surface) AddPolygon(verts ...int) int {
	if len(verts) != s.polyVerts {
		panic(fmt.Sprintf("cutsim: AddPolygon got %d vertices, arity is %d", len(verts), s.polyVerts))
	}
	pid := len(s.indices) / s.polyVerts
	for _, v := range verts {
		s.indices = append(s.indices, uint32(v))
		s.aux[v].polygons.add(pid)
	}
	return pid
}

// RemovePolygon deletes the polygon: it is deregistered from its vertices,
// then the last polygon in the flat array is moved into its slot and every
// vertex of the moved polygon is renumbered.
func (s *Surface) RemovePolygon(pid int) {
	idx := pid * s.polyVerts
	for m := 0; m < s.polyVerts; m++ {
		s.aux[s.indices[idx+m]].polygons.remove(pid)
	}
	last := len(s.indices) - s.polyVerts
	if idx != last {
		lastPid := last / s.polyVerts
		for m := 0; m < s.polyVerts; m++ {
			s.indices[idx+m] = s.indices[last+m]
		}
		for m := 0; m < s.polyVerts; m++ {
			s.aux[s.indices[idx+m]].polygons.add(pid)
			s.aux[s.indices[idx+m]].polygons.remove(lastPid)
		}
	}
	s.indices = s.indices[:last]
}

// RemoveVertex deletes the vertex and, transitively, every polygon that
// references it. The last vertex is moved into the freed slot; its owning
// leaf is notified of the new id and every polygon referencing it is
// renumbered.
func (s *Surface) RemoveVertex(id int) {
	// largest polygon id first, so ids still pending stay valid across
	// the compactions RemovePolygon performs
	for !s.aux[id].polygons.empty() {
		s.RemovePolygon(s.aux[id].polygons.max())
	}
	last := len(s.vertices) - 1
	if id != last {
		s.vertices[id] = s.vertices[last]
		s.aux[id] = s.aux[last]
		if s.aux[id].node != nil {
			s.aux[id].node.swapIndex(last, id)
		}
		for _, pid := range s.aux[id].polygons.ids {
			idx := pid * s.polyVerts
			for m := 0; m < s.polyVerts; m++ {
				if s.indices[idx+m] == uint32(last) {
					s.indices[idx+m] = uint32(id)
				}
			}
		}
	}
	s.vertices = s.vertices[:last]
	s.aux = s.aux[:last]
}

// Mesh flattens the surface into renderer-ready arrays.
func (s *Surface) Mesh() *Mesh {
	m := &Mesh{
		Vertices: make([]float32, 0, len(s.vertices)*3),
		Normals:  make([]float32, 0, len(s.vertices)*3),
		Colors:   make([]float32, 0, len(s.vertices)*3),
		Indices:  make([]uint32, len(s.indices)),
	}
	for i := range s.vertices {
		v := &s.vertices[i]
		m.Vertices = append(m.Vertices, float32(v.Pos.X), float32(v.Pos.Y), float32(v.Pos.Z))
		m.Normals = append(m.Normals, float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z))
		m.Colors = append(m.Colors, v.Color.R, v.Color.G, v.Color.B)
	}
	copy(m.Indices, s.indices)
	return m
}

// String summarizes the table.
func (s *Surface) String() string {
	return fmt.Sprintf("Surface(%d) %d vertices and %d indices",
		s.polyVerts, len(s.vertices), len(s.indices))
}
