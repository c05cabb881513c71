package scene

// Default overlay dimensions, in meters.
const (
	DefaultGridSize    = 10.0
	DefaultGridSpacing = 1.0
	DefaultAxesLength  = 1.0
)

// NewGrid creates the ground grid overlay.
func NewGrid(size, spacing float64) *Node {
	n := NewNode("grid", KindGrid)
	n.Meta["size"] = size
	n.Meta["spacing"] = spacing
	return n
}

// NewAxes creates the coordinate axes overlay.
func NewAxes(length float64) *Node {
	n := NewNode("axes", KindAxes)
	n.Meta["length"] = length
	return n
}
