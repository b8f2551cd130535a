// Package components defines ECS components for pond creatures.
package components

// Position is the top-left corner of an entity's sprite in canvas space.
// For birds Y is the displayed (bobbing) position; BaseY in Motion is the rest line.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity.
type Velocity struct {
	X, Y float32
}

// Heading returns +1 when moving right and -1 when moving left.
// Heading is never stored; it always follows the sign of vx.
func (v Velocity) Heading() int {
	if v.X >= 0 {
		return 1
	}
	return -1
}
