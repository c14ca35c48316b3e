package components

import "math"

// Position represents an entity's world position. The arena is centered on the origin.
type Position struct {
	X, Y float64
}

// Velocity represents an entity's velocity in units per second.
type Velocity struct {
	X, Y float64
}

// Rotation represents an entity's heading.
type Rotation struct {
	Heading float64 // radians
}

// Body holds physical properties of an entity.
type Body struct {
	Radius float64
}

// DistanceSq returns the squared distance between two positions.
func (p Position) DistanceSq(o Position) float64 {
	dx, dy := o.X-p.X, o.Y-p.Y
	return dx*dx + dy*dy
}

// BearingTo returns the absolute angle from p to o, in radians.
func (p Position) BearingTo(o Position) float64 {
	return math.Atan2(o.Y-p.Y, o.X-p.X)
}
