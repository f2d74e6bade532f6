package geom

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Facet is a single mesh triangle with an outward normal. STL files decode
// to facet lists, and mesh volumes measure signed distance against them.
type Facet struct {
	Normal v3.Vec
	V1     v3.Vec
	V2     v3.Vec
	V3     v3.Vec
}
