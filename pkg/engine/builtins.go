package engine

import (
	"fmt"
	"log"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/kerf/pkg/cutsim"
	"github.com/chazu/kerf/pkg/stlio"
	"github.com/chazu/kerf/pkg/volume"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms kerf Lisp source code before passing it to
// zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: init-empty -> init_empty
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Line comments: ; (or ;;) -> //, since zygomys comments start with //.
//
// All three respect string literal boundaries; keyword and kebab-case
// conversion are not applied inside ; line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVolume wraps a tool volume so it can be passed to the boolean
// operation builtins.
type sexpVolume struct {
	vol  volume.Volume
	kind string
}

func (s *sexpVolume) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(volume %s)", s.kind)
}
func (s *sexpVolume) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a vector literal.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.3f %.3f %.3f)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an int from a Sexp.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a bool from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected bool, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toVolume extracts a tool volume from a sexpVolume.
func toVolume(s zygo.Sexp) (volume.Volume, error) {
	if v, ok := s.(*sexpVolume); ok {
		return v.vol, nil
	}
	return nil, fmt.Errorf("expected volume, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// evalState is the per-evaluation state the builtins operate on.
type evalState struct {
	sim *cutsim.Cutsim
}

// requireSim fetches the simulation or errors if (stock ...) has not run.
func (st *evalState) requireSim(builtin string) (*cutsim.Cutsim, error) {
	if st.sim == nil {
		return nil, fmt.Errorf("%s: no stock yet, call (stock :size s :depth d) first", builtin)
	}
	return st.sim, nil
}

// volumeColor reads an optional :color (vec3 r g b) keyword into a volume
// color setter.
func volumeColor(pa kwArgs, set func(r, g, b float32)) error {
	v, ok := pa.kw["color"]
	if !ok {
		return nil
	}
	c, err := toVec3(v)
	if err != nil {
		return fmt.Errorf("color: %w", err)
	}
	set(float32(c.X), float32(c.Y), float32(c.Z))
	return nil
}

// registerBuiltins installs the kerf DSL builtins into a zygomys
// environment. The builtins operate on the provided evalState, creating
// and cutting a simulation during evaluation.
//
// Source code must be preprocessed with preprocessSource() before
// evaluation so that :keyword tokens are converted to recognizable string
// literals.
func registerBuiltins(env *zygo.Zlisp, st *evalState) {

	// -----------------------------------------------------------------------
	// (vec3 x y z)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3: want 3 numbers, got %d args", len(args))
		}
		var out [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
			}
			out[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: out[0], Y: out[1], Z: out[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (stock :size 10 :depth 5)
	// -----------------------------------------------------------------------
	env.AddFunction("stock", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		size := 10.0
		depth := 5
		if v, ok := pa.kw["size"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("stock: size: %w", err)
			}
			size = f
		}
		if v, ok := pa.kw["depth"]; ok {
			d, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("stock: depth: %w", err)
			}
			depth = d
		}
		if size <= 0 {
			return zygo.SexpNull, fmt.Errorf("stock: size must be positive, got %g", size)
		}
		if depth < 1 {
			return zygo.SexpNull, fmt.Errorf("stock: depth must be at least 1, got %d", depth)
		}
		st.sim = cutsim.New(size, depth)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (init 3) / (init-empty 3)
	// -----------------------------------------------------------------------
	env.AddFunction("init", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sim, err := st.requireSim("init")
		if err != nil {
			return zygo.SexpNull, err
		}
		n, err := initDepth(args, sim)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("init: %w", err)
		}
		sim.Init(n)
		return zygo.SexpNull, nil
	})

	env.AddFunction("init_empty", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sim, err := st.requireSim("init-empty")
		if err != nil {
			return zygo.SexpNull, err
		}
		n, err := initDepth(args, sim)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("init-empty: %w", err)
		}
		sim.InitEmpty(n)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (sphere :center (vec3 0 0 0) :radius 4 :color (vec3 1 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		s := volume.NewSphere()
		if v, ok := pa.kw["center"]; ok {
			c, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: center: %w", err)
			}
			s.SetCenter(c.X, c.Y, c.Z)
		}
		if v, ok := pa.kw["radius"]; ok {
			r, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
			}
			s.SetRadius(r)
		}
		if err := volumeColor(pa, s.SetColor); err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return &sexpVolume{vol: s, kind: "sphere"}, nil
	})

	// -----------------------------------------------------------------------
	// (cube :center (vec3 0 0 0) :side 20 :color (vec3 0 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("cube", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		c := volume.NewCube()
		if v, ok := pa.kw["center"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cube: center: %w", err)
			}
			c.SetCenter(p.X, p.Y, p.Z)
		}
		if v, ok := pa.kw["side"]; ok {
			s, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cube: side: %w", err)
			}
			c.SetSide(s)
		}
		if err := volumeColor(pa, c.SetColor); err != nil {
			return zygo.SexpNull, fmt.Errorf("cube: %w", err)
		}
		return &sexpVolume{vol: c, kind: "cube"}, nil
	})

	// -----------------------------------------------------------------------
	// (cone :center (vec3 0 0 0) :height 5 :angle 0.6 :color (vec3 0 0 1))
	// -----------------------------------------------------------------------
	env.AddFunction("cone", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		c := volume.NewCone()
		if v, ok := pa.kw["center"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cone: center: %w", err)
			}
			c.SetCenter(p.X, p.Y, p.Z)
		}
		if v, ok := pa.kw["height"]; ok {
			h, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cone: height: %w", err)
			}
			c.SetHeight(h)
		}
		if v, ok := pa.kw["angle"]; ok {
			a, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cone: angle: %w", err)
			}
			c.SetAngle(a)
		}
		if err := volumeColor(pa, c.SetColor); err != nil {
			return zygo.SexpNull, fmt.Errorf("cone: %w", err)
		}
		return &sexpVolume{vol: c, kind: "cone"}, nil
	})

	// -----------------------------------------------------------------------
	// (stl-volume :path "tool.stl" :center (vec3 0 0 0) :rotate-x 0 :rotate-z 0)
	// -----------------------------------------------------------------------
	env.AddFunction("stl_volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pv, ok := pa.kw["path"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("stl-volume: missing :path")
		}
		path, err := toString(pv)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("stl-volume: path: %w", err)
		}
		m := volume.NewMesh()
		if v, ok := pa.kw["center"]; ok {
			c, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("stl-volume: center: %w", err)
			}
			m.SetCenter(c.X, c.Y, c.Z)
		}
		var ax, az float64
		if v, ok := pa.kw["rotate-x"]; ok {
			if ax, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("stl-volume: rotate-x: %w", err)
			}
		}
		if v, ok := pa.kw["rotate-z"]; ok {
			if az, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("stl-volume: rotate-z: %w", err)
			}
		}
		m.SetRotation(ax, az)
		if err := volumeColor(pa, m.SetColor); err != nil {
			return zygo.SexpNull, fmt.Errorf("stl-volume: %w", err)
		}
		facets, err := stlio.Read(path)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("stl-volume: %w", err)
		}
		if err := m.Load(facets); err != nil {
			return zygo.SexpNull, fmt.Errorf("stl-volume: %w", err)
		}
		log.Printf("stl-volume: loaded %d facets from %s", m.FacetCount(), path)
		return &sexpVolume{vol: m, kind: "stl"}, nil
	})

	// -----------------------------------------------------------------------
	// (sum v) (diff v) (intersect v)
	// -----------------------------------------------------------------------
	boolOp := func(opName string, apply func(sim *cutsim.Cutsim, v volume.Volume)) {
		env.AddFunction(opName, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			sim, err := st.requireSim(opName)
			if err != nil {
				return zygo.SexpNull, err
			}
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s: want 1 volume, got %d args", opName, len(args))
			}
			vol, err := toVolume(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", opName, err)
			}
			apply(sim, vol)
			return zygo.SexpNull, nil
		})
	}
	boolOp("sum", func(sim *cutsim.Cutsim, v volume.Volume) { sim.Sum(v) })
	boolOp("diff", func(sim *cutsim.Cutsim, v volume.Volume) { sim.Diff(v) })
	boolOp("intersect", func(sim *cutsim.Cutsim, v volume.Volume) { sim.Intersect(v) })

	// -----------------------------------------------------------------------
	// (refresh)
	// -----------------------------------------------------------------------
	env.AddFunction("refresh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sim, err := st.requireSim("refresh")
		if err != nil {
			return zygo.SexpNull, err
		}
		sim.Refresh()
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (export-stl "path" :binary true)
	// -----------------------------------------------------------------------
	env.AddFunction("export_stl", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sim, err := st.requireSim("export-stl")
		if err != nil {
			return zygo.SexpNull, err
		}
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("export-stl: want a path, got %d args", len(pa.positional))
		}
		path, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("export-stl: %w", err)
		}
		binaryFmt := true
		if v, ok := pa.kw["binary"]; ok {
			if binaryFmt, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("export-stl: binary: %w", err)
			}
		}
		surf := sim.Surface()
		out, err := stlio.Write(path, surf.Indices(), surf.Vertices(), binaryFmt)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("export-stl: %w", err)
		}
		return &zygo.SexpStr{S: out}, nil
	})
}

// initDepth reads the single integer argument of init/init-empty and
// bounds it by the tree's maximum depth.
func initDepth(args []zygo.Sexp, sim *cutsim.Cutsim) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("want a depth, got %d args", len(args))
	}
	n, err := toInt(args[0])
	if err != nil {
		return 0, err
	}
	if n < 0 || n > sim.Tree().MaxDepth() {
		return 0, fmt.Errorf("depth %d out of range [0,%d]", n, sim.Tree().MaxDepth())
	}
	return n, nil
}
