package game

import (
	"github.com/pthm-cable/sketchpond/renderer"
	"github.com/pthm-cable/sketchpond/systems"
	"github.com/pthm-cable/sketchpond/telemetry"
)

func (s *Scene) env() *systems.Env {
	return &systems.Env{
		Bounds:    s.bounds,
		Clock:     systems.Clock{Tick: s.tick, DT: s.cfg.Derived.DT},
		Bait:      s.bait,
		Particles: s.particles,
	}
}

// Step advances the simulation one tick without drawing. It does nothing
// while the scene has no entities.
func (s *Scene) Step() bool {
	if len(s.order) == 0 {
		return false
	}
	if s.bait != nil {
		s.bait.Update(s.bounds)
	}
	s.particles.Update()
	s.simulate()
	s.tick++
	s.flushTelemetry()
	return true
}

func (s *Scene) simulate() {
	eaters := s.motion.Update(s.env())
	for _, e := range eaters {
		rec := s.recMap.Get(e)
		pos := s.posMap.Get(e)
		body := s.bodyMap.Get(e)
		s.collector.RecordEaten()
		s.emit(Event{Kind: EventEaten, ID: rec.ID, X: pos.X + body.Width/2, Y: pos.Y + body.Height/2})
	}
}

// Frame pumps pending updates and renders one frame onto c: background,
// bait, particles, then every entity stepped and drawn in arena order. It
// reports false, after drawing only the background, when there is nothing to
// animate.
func (s *Scene) Frame(c renderer.Canvas) bool {
	s.perf.StartTick()
	s.perf.StartPhase(telemetry.PhasePump)
	s.Pump()

	s.painter.Background(c, s.background, s.fallback)
	if len(s.order) == 0 {
		s.perf.EndTick()
		return false
	}

	t := float64(s.tick) * s.cfg.Derived.DT

	s.perf.StartPhase(telemetry.PhaseBait)
	if s.bait != nil {
		s.painter.Bait(c, s.bait.Active(), t)
		s.bait.Update(s.bounds)
	}

	s.perf.StartPhase(telemetry.PhaseParticles)
	s.painter.Particles(c, s.particles.Particles)
	s.particles.Update()

	s.perf.StartPhase(telemetry.PhaseSimulate)
	s.simulate()

	for _, e := range s.order {
		pos, vel := s.posMap.Get(e), s.velMap.Get(e)
		mot, body := s.motionMap.Get(e), s.bodyMap.Get(e)
		spr := s.appMap.Get(e).Sprite
		rec := s.recMap.Get(e)

		s.perf.StartPhase(telemetry.PhaseDeform)
		frame, dx, dy := s.behavior.Frame(spr.Image(), *vel, *mot)

		s.perf.StartPhase(telemetry.PhaseComposite)
		box := s.behavior.Box(*pos, *mot, *body)
		c.DrawImage(rec.ID, frame, box.X+dx, box.Y+dy, s.behavior.Mirror(*vel))
	}

	s.tick++
	d := s.perf.EndTick()
	s.collector.RecordFrame(d)
	s.flushTelemetry()
	return true
}

func (s *Scene) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}
	stats := s.collector.Flush(s.tick, len(s.order), s.particles.Count())
	if s.onStats != nil {
		s.onStats(stats)
	}
}

// Feed drops bait at (x, y). It is a no-op for scenes without bait and while
// a bait is already live.
func (s *Scene) Feed(x, y float32) bool {
	if s.bait == nil || !s.bait.Feed(x, y) {
		return false
	}
	s.collector.RecordFeed()
	s.emit(Event{Kind: EventFed, X: x, Y: y})
	return true
}
