package geom

// Color is an RGB triple in [0,1], carried per surface vertex so that each
// cutting tool can paint the material it exposes.
type Color struct {
	R, G, B float32
}

// Set assigns all three channels.
func (c *Color) Set(r, g, b float32) {
	c.R = r
	c.G = g
	c.B = b
}
