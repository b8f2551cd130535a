package game

import (
	"github.com/pthm-cable/sketchpond/components"
	"github.com/pthm-cable/sketchpond/sprite"
	"github.com/pthm-cable/sketchpond/systems"
)

// Boxes returns the displayed body box of every entity in draw order.
func (s *Scene) Boxes() []systems.Box {
	s.boxes = s.boxes[:0]
	for _, e := range s.order {
		pos, mot, body := s.posMap.Get(e), s.motionMap.Get(e), s.bodyMap.Get(e)
		s.boxes = append(s.boxes, s.behavior.Box(*pos, *mot, *body))
	}
	return s.boxes
}

// HitTest returns the record of the topmost entity whose displayed box,
// grown by the hit margin, contains (px, py).
func (s *Scene) HitTest(px, py float32) (components.Record, bool) {
	i := systems.HitTest(s.Boxes(), px, py, float32(s.cfg.HitTest.Margin))
	if i < 0 {
		return components.Record{}, false
	}
	return *s.recMap.Get(s.order[i]), true
}

// Sprite returns the normalized sprite of a live entity.
func (s *Scene) Sprite(id int64) (*sprite.Sprite, bool) {
	e, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.appMap.Get(e).Sprite, true
}
