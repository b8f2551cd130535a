package game

import (
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sketchpond/api"
	"github.com/pthm-cable/sketchpond/components"
	"github.com/pthm-cable/sketchpond/sprite"
)

func recordOf(f api.Fish) components.Record {
	return components.Record{
		ID:        f.FishID,
		UserID:    f.UserID,
		Artist:    f.ArtistName,
		CreatedAt: f.CreatedAt,
		Likes:     f.Likes,
		Dislikes:  f.Dislikes,
	}
}

// mergeCounts keeps the larger of each counter. Counters only grow, so a
// listing fetched before a vote cannot lower what the vote reported.
func mergeCounts(live *components.Record, listed components.Record) {
	live.Likes = max(live.Likes, listed.Likes)
	live.Dislikes = max(live.Dislikes, listed.Dislikes)
}

// SetGallery makes fishes the scene's visible set. Live entities keep their
// motion state and merge the listed counters; records not listed are evicted;
// new records start building. A record is never built twice while it stays
// in the scene.
func (s *Scene) SetGallery(fishes []api.Fish) {
	limit := s.cfg.Gallery.MaxScene
	keep := make(map[int64]struct{}, len(fishes))
	var reqs []sprite.Request

	for _, f := range fishes {
		if limit > 0 && len(keep) >= limit {
			break
		}
		if _, dup := keep[f.FishID]; dup {
			continue
		}
		keep[f.FishID] = struct{}{}

		rec := recordOf(f)
		if e, ok := s.index[f.FishID]; ok {
			mergeCounts(s.recMap.Get(e), rec)
			continue
		}
		if prev, ok := s.pending[f.FishID]; ok {
			mergeCounts(&rec, prev)
			s.pending[f.FishID] = rec
			continue
		}
		if s.loader.Seen(f.FishID) {
			// Built before and failed; stays skipped
			continue
		}
		s.pending[f.FishID] = rec
		reqs = append(reqs, sprite.Request{ID: f.FishID, Payload: f.ImageData})
	}

	for _, e := range slices.Clone(s.order) {
		id := s.recMap.Get(e).ID
		if _, ok := keep[id]; !ok {
			s.evict(id)
		}
	}
	for id := range s.pending {
		if _, ok := keep[id]; !ok {
			delete(s.pending, id)
			s.loader.Forget(id)
		}
	}

	s.failed = 0
	n := s.loader.Load(reqs...)
	s.logger.Info("gallery set", "records", len(keep), "building", n, "live", len(s.order))
	s.refreshStatus()
}

// Add inserts a single record, evicting the oldest entity when the scene is
// at capacity.
func (s *Scene) Add(f api.Fish) {
	if _, ok := s.index[f.FishID]; ok {
		return
	}
	if _, ok := s.pending[f.FishID]; ok {
		return
	}

	limit := s.cfg.Gallery.MaxScene
	if limit > 0 && len(s.order)+len(s.pending) >= limit && len(s.order) > 0 {
		s.evict(s.recMap.Get(s.order[0]).ID)
	}

	s.pending[f.FishID] = recordOf(f)
	if s.loader.Load(sprite.Request{ID: f.FishID, Payload: f.ImageData}) == 0 {
		delete(s.pending, f.FishID)
	}
	s.refreshStatus()
}

// ApplyVote replaces the counters of record id. A vote response always
// supersedes the counters the scene had before the vote.
func (s *Scene) ApplyVote(id int64, likes, dislikes int) bool {
	if e, ok := s.index[id]; ok {
		rec := s.recMap.Get(e)
		rec.Likes, rec.Dislikes = likes, dislikes
	} else if rec, ok := s.pending[id]; ok {
		rec.Likes, rec.Dislikes = likes, dislikes
		s.pending[id] = rec
	} else {
		return false
	}
	s.collector.RecordVote()
	s.emit(Event{Kind: EventVoted, ID: id})
	return true
}

// Record returns the gallery data of a live entity.
func (s *Scene) Record(id int64) (components.Record, bool) {
	e, ok := s.index[id]
	if !ok {
		return components.Record{}, false
	}
	return *s.recMap.Get(e), true
}

// Records returns the live records in draw order.
func (s *Scene) Records() []components.Record {
	out := make([]components.Record, len(s.order))
	for i, e := range s.order {
		out[i] = *s.recMap.Get(e)
	}
	return out
}

// SetStatus overrides the status until the next gallery change.
func (s *Scene) SetStatus(st Status) {
	s.status = st
}

// fetchFailed marks a failed gallery fetch. Live creatures keep the scene ready.
func (s *Scene) fetchFailed() {
	if len(s.order) == 0 && len(s.pending) == 0 {
		s.status = StatusError
	}
}

func (s *Scene) refreshStatus() {
	switch {
	case len(s.order) > 0:
		s.status = StatusReady
	case len(s.pending) > 0:
		s.status = StatusLoading
	case s.failed > 0:
		s.status = StatusError
	default:
		s.status = StatusEmpty
	}
}

// admit turns a finished build into an entity.
func (s *Scene) admit(res sprite.Result) {
	rec, ok := s.pending[res.ID]
	if !ok {
		// Evicted while building
		return
	}
	delete(s.pending, res.ID)
	if _, dup := s.index[res.ID]; dup {
		return
	}

	if res.Err != nil || res.Sprite == nil || res.Sprite.W == 0 || res.Sprite.H == 0 {
		s.failed++
		s.collector.RecordLoadFailed()
		s.emit(Event{Kind: EventLoadFailed, ID: res.ID})
		s.refreshStatus()
		return
	}

	s.spawn(rec, res.Sprite)
	s.refreshStatus()
}

func (s *Scene) spawn(rec components.Record, spr *sprite.Sprite) ecs.Entity {
	body := components.BodyOf(spr)
	pos, vel, mot := s.behavior.Spawn(s.rng, body, s.bounds)
	app := components.Appearance{Sprite: spr}

	e := s.mapper.NewEntity(&pos, &vel, &mot, &body, &app, &rec)
	s.order = append(s.order, e)
	s.index[rec.ID] = e

	s.collector.RecordLoaded()
	s.emit(Event{Kind: EventLoaded, ID: rec.ID})
	return e
}

func (s *Scene) evict(id int64) {
	e, ok := s.index[id]
	if !ok {
		return
	}
	delete(s.index, id)
	if i := slices.Index(s.order, e); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.mapper.Remove(e)
	s.loader.Forget(id)

	s.collector.RecordEvicted()
	s.emit(Event{Kind: EventRemoved, ID: id})
}
