package stlio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/cutsim"
)

// twoTriangles builds a small surface by hand: two triangles with unit +z
// normals.
func twoTriangles() ([]uint32, []cutsim.Vertex) {
	mk := func(x, y float64) cutsim.Vertex {
		v := cutsim.Vertex{Pos: v3.Vec{X: x, Y: y}}
		v.SetNormal(v3.Vec{Z: 1})
		return v
	}
	verts := []cutsim.Vertex{
		mk(0, 0), mk(1, 0), mk(0, 1),
		mk(1, 0), mk(1, 1), mk(0, 1),
	}
	return []uint32{0, 1, 2, 3, 4, 5}, verts
}

func TestWriteReadASCII(t *testing.T) {
	indices, verts := twoTriangles()
	path, err := Write(filepath.Join(t.TempDir(), "out.stl"), indices, verts, false)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.HasPrefix(string(data), "solid") {
		t.Fatalf("ascii file does not start with solid: %q", data[:16])
	}

	facets, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(facets) != 2 {
		t.Fatalf("facet count %d, want 2", len(facets))
	}
	if facets[0].V2.X != 1 || facets[0].V3.Y != 1 {
		t.Fatalf("facet 0 vertices wrong: %+v", facets[0])
	}
	if facets[0].Normal.Z != 1 {
		t.Fatalf("facet 0 normal %v, want +z", facets[0].Normal)
	}
}

func TestWriteReadBinary(t *testing.T) {
	indices, verts := twoTriangles()
	path, err := Write(filepath.Join(t.TempDir(), "out.stl"), indices, verts, true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// 80-byte header + count + 2 * 50-byte records
	if info.Size() != 80+4+2*50 {
		t.Fatalf("binary size %d, want %d", info.Size(), 80+4+2*50)
	}

	facets, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(facets) != 2 {
		t.Fatalf("facet count %d, want 2", len(facets))
	}
	if facets[1].V2.X != 1 || facets[1].V2.Y != 1 {
		t.Fatalf("facet 1 vertices wrong: %+v", facets[1])
	}
}

func TestWritePathFixups(t *testing.T) {
	indices, verts := twoTriangles()
	dir := t.TempDir()

	// trailing separator gets a default file name
	path, err := Write(dir+string(os.PathSeparator), indices, verts, true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "kerf.stl" {
		t.Fatalf("default name %q, want kerf.stl", filepath.Base(path))
	}

	// missing extension is added
	path, err = Write(filepath.Join(dir, "part"), indices, verts, true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasSuffix(path, "part.stl") {
		t.Fatalf("path %q, want part.stl suffix", path)
	}

	// missing directory is created
	path, err = Write(filepath.Join(dir, "sub", "part.stl"), indices, verts, true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.stl")); err == nil {
		t.Fatal("Read of missing file did not error")
	}
}

func TestReadEmptyBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.stl")
	// binary header with a zero triangle count
	data := make([]byte, 84)
	copy(data, "binary junk header")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("Read of empty binary stl did not error")
	}
}
