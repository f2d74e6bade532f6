// Package stlio reads and writes STL files, both ASCII and binary. ASCII
// files are detected by the word "solid" on the first line; everything
// else is treated as binary.
package stlio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/cutsim"
	"github.com/chazu/kerf/pkg/geom"
)

// Read loads the facets of an STL file, sniffing the format from the
// first line.
func Read(path string) ([]geom.Facet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stlio: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	first, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("stlio: %w", err)
	}
	if strings.Contains(first, "solid") {
		return readASCII(r, path)
	}
	// rewind past the sniffed line and parse as binary
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("stlio: %w", err)
	}
	return readBinary(bufio.NewReader(f), path)
}

// readASCII parses facet blocks of the form
//
//	facet normal nx ny nz
//	  outer loop
//	    vertex x y z
//	    vertex x y z
//	    vertex x y z
//	  endloop
//	endfacet
//
// until endsolid.
func readASCII(r *bufio.Reader, path string) ([]geom.Facet, error) {
	var facets []geom.Facet
	var normal v3.Vec
	var verts []v3.Vec

	for {
		line, err := r.ReadString('\n')
		done := err == io.EOF
		if err != nil && !done {
			return nil, fmt.Errorf("stlio: %w", err)
		}

		switch {
		case strings.Contains(line, "facet normal"):
			normal, err = parseLine(line, "facet normal")
			if err != nil {
				return nil, fmt.Errorf("stlio: %s: %w", path, err)
			}
		case strings.Contains(line, "vertex"):
			v, err := parseLine(line, "vertex")
			if err != nil {
				return nil, fmt.Errorf("stlio: %s: %w", path, err)
			}
			verts = append(verts, v)
		case strings.Contains(line, "endfacet"):
			if len(verts) != 3 {
				return nil, fmt.Errorf("stlio: %s: facet with %d vertices", path, len(verts))
			}
			facets = append(facets, geom.Facet{Normal: normal, V1: verts[0], V2: verts[1], V3: verts[2]})
			verts = verts[:0]
		case strings.Contains(line, "endsolid"):
			return facets, nil
		}

		if done {
			// no endsolid seen, probably not an STL after all
			return nil, fmt.Errorf("stlio: %s: truncated ascii stl", path)
		}
	}
}

// parseLine strips the keyword and reads three floats.
func parseLine(line, keyword string) (v3.Vec, error) {
	line = strings.TrimSpace(strings.Replace(line, keyword, "", 1))
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return v3.Vec{}, fmt.Errorf("bad %s line %q", keyword, line)
	}
	var out [3]float64
	for i, s := range fields {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return v3.Vec{}, fmt.Errorf("bad %s line %q: %w", keyword, line, err)
		}
		out[i] = f
	}
	return v3.Vec{X: out[0], Y: out[1], Z: out[2]}, nil
}

// readBinary parses the 80-byte header, the triangle count, and the
// 50-byte facet records.
func readBinary(r io.Reader, path string) ([]geom.Facet, error) {
	var header [80]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("stlio: %s: %w", path, err)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("stlio: %s: %w", path, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("stlio: %s: empty mesh", path)
	}
	facets := make([]geom.Facet, 0, count)
	for i := uint32(0); i < count; i++ {
		var rec struct {
			Normal    [3]float32
			V1, V2, V3 [3]float32
			Attribute uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("stlio: %s: facet %d: %w", path, i, err)
		}
		facets = append(facets, geom.Facet{
			Normal: toVec(rec.Normal),
			V1:     toVec(rec.V1),
			V2:     toVec(rec.V2),
			V3:     toVec(rec.V3),
		})
	}
	return facets, nil
}

func toVec(f [3]float32) v3.Vec {
	return v3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}
}

// Write saves a triangle surface to an STL file and returns the path it
// actually wrote. A path ending in a separator gets "kerf.stl" appended; a
// missing ".stl" extension is added; a missing parent directory is
// created. The indices are consumed three at a time and each triangle's
// normal is taken from its first vertex.
func Write(path string, indices []uint32, verts []cutsim.Vertex, binaryFmt bool) (string, error) {
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\") {
		path += "kerf.stl"
	}
	if !strings.EqualFold(filepath.Ext(path), ".stl") {
		path += ".stl"
	}
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("stlio: %w", err)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("stlio: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if binaryFmt {
		if err := writeBinary(w, indices, verts); err != nil {
			return "", err
		}
	} else {
		if err := writeASCII(w, indices, verts); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("stlio: %w", err)
	}
	return path, nil
}

func writeASCII(w io.Writer, indices []uint32, verts []cutsim.Vertex) error {
	if _, err := fmt.Fprintln(w, "solid kerf"); err != nil {
		return fmt.Errorf("stlio: %w", err)
	}
	for n := 0; n+2 < len(indices); n += 3 {
		p1 := verts[indices[n]]
		p2 := verts[indices[n+1]]
		p3 := verts[indices[n+2]]
		fmt.Fprintf(w, "facet normal %g %g %g\n", p1.Normal.X, p1.Normal.Y, p1.Normal.Z)
		fmt.Fprintln(w, "  outer loop")
		fmt.Fprintf(w, "      vertex %g %g %g\n", p1.Pos.X, p1.Pos.Y, p1.Pos.Z)
		fmt.Fprintf(w, "      vertex %g %g %g\n", p2.Pos.X, p2.Pos.Y, p2.Pos.Z)
		fmt.Fprintf(w, "      vertex %g %g %g\n", p3.Pos.X, p3.Pos.Y, p3.Pos.Z)
		fmt.Fprintln(w, "  endloop")
		fmt.Fprintln(w, "endfacet")
	}
	if _, err := fmt.Fprintln(w, "endsolid kerf"); err != nil {
		return fmt.Errorf("stlio: %w", err)
	}
	return nil
}

func writeBinary(w io.Writer, indices []uint32, verts []cutsim.Vertex) error {
	var header [80]byte
	copy(header[:], "kerf")
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("stlio: %w", err)
	}
	count := uint32(len(indices) / 3)
	if err := binary.Write(w, binary.LittleEndian, count); err != nil {
		return fmt.Errorf("stlio: %w", err)
	}
	for n := 0; n+2 < len(indices); n += 3 {
		p1 := verts[indices[n]]
		p2 := verts[indices[n+1]]
		p3 := verts[indices[n+2]]
		rec := struct {
			Normal    [3]float32
			V1, V2, V3 [3]float32
			Attribute uint16
		}{
			Normal: toF32(p1.Normal),
			V1:     toF32(p1.Pos),
			V2:     toF32(p2.Pos),
			V3:     toF32(p3.Pos),
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("stlio: %w", err)
		}
	}
	return nil
}

func toF32(v v3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
