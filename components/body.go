package components

import "github.com/pthm-cable/sketchpond/sprite"

// Body holds the entity's fixed on-canvas size. It is derived once from the
// sprite and never changes.
type Body struct {
	Width, Height float32
}

// BodyOf derives a Body from a sprite.
func BodyOf(s *sprite.Sprite) Body {
	return Body{Width: float32(s.W), Height: float32(s.H)}
}

// Appearance holds the entity's sprite.
type Appearance struct {
	Sprite *sprite.Sprite
}
