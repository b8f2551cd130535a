package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/sketchpond/api"
)

// Source is the gallery the scene is fed from.
type Source interface {
	Fishes(ctx context.Context, userID int64) ([]api.Fish, error)
	Vote(ctx context.Context, fishID int64, action string) (api.VoteResponse, error)
}

// Feeder moves gallery data from a Source into a Scene. Its methods block on
// the network and may be called from any goroutine; scene changes are posted
// to the scene's mailbox.
type Feeder struct {
	src    Source
	scene  *Scene
	userID int64 // 0 when the viewer has not submitted yet
	logger *slog.Logger
}

// NewFeeder creates a feeder for the given viewer.
func NewFeeder(src Source, scene *Scene, userID int64, logger *slog.Logger) *Feeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feeder{src: src, scene: scene, userID: userID, logger: logger}
}

// send queues a scene change, waiting for mailbox space. Changes are lost
// only when ctx ends or the scene closes.
func (f *Feeder) send(ctx context.Context, what string, fn func(*Scene)) error {
	if err := f.scene.Send(ctx, fn); err != nil {
		f.logger.Warn("scene update not delivered", "update", what, "error", err)
		return fmt.Errorf("delivering %s: %w", what, err)
	}
	return nil
}

// Refresh fetches the gallery and replaces the scene's visible set.
func (f *Feeder) Refresh(ctx context.Context) error {
	// Status only; skipped when the mailbox is busy
	f.scene.Post(func(s *Scene) {
		if s.Len() == 0 {
			s.SetStatus(StatusLoading)
		}
	})

	fishes, err := f.src.Fishes(ctx, f.userID)
	if err != nil {
		f.logger.Warn("gallery fetch failed", "error", err)
		_ = f.send(ctx, "fetch failure", func(s *Scene) { s.fetchFailed() })
		return fmt.Errorf("fetching gallery: %w", err)
	}

	return f.send(ctx, "gallery", func(s *Scene) { s.SetGallery(fishes) })
}

// Vote records a vote and applies the returned counters to the scene.
func (f *Feeder) Vote(ctx context.Context, fishID int64, action string) (api.VoteResponse, error) {
	resp, err := f.src.Vote(ctx, fishID, action)
	if err != nil {
		f.logger.Warn("vote failed", "fish_id", fishID, "action", action, "error", err)
		return api.VoteResponse{}, fmt.Errorf("voting on %d: %w", fishID, err)
	}
	return resp, f.send(ctx, "vote", func(s *Scene) { s.ApplyVote(fishID, resp.Likes, resp.Dislikes) })
}

// Follow applies live gallery events until ctx is done or events is closed.
func (f *Feeder) Follow(ctx context.Context, events <-chan api.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			f.apply(ctx, ev)
		}
	}
}

func (f *Feeder) apply(ctx context.Context, ev api.Event) {
	switch ev.Type {
	case api.EventFishCreated:
		if ev.Fish == nil {
			return
		}
		fish := *ev.Fish
		_ = f.send(ctx, "new record", func(s *Scene) { s.Add(fish) })
	case api.EventVote:
		id, likes, dislikes := ev.FishID, ev.Likes, ev.Dislikes
		_ = f.send(ctx, "vote", func(s *Scene) { s.ApplyVote(id, likes, dislikes) })
	default:
		f.logger.Debug("ignoring gallery event", "type", ev.Type)
	}
}
