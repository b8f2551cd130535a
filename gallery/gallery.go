// Package gallery implements the drawing gallery rules on top of a store:
// submissions with a per-user cap, the viewer feed, voting and ranking.
package gallery

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pthm-cable/sketchpond/api"
	"github.com/pthm-cable/sketchpond/config"
	"github.com/pthm-cable/sketchpond/store"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrUserNotFound  = errors.New("user not found")
	ErrFishNotFound  = errors.New("fish not found")
	ErrInvalidAction = errors.New("invalid action")
)

// Publisher receives gallery changes, typically a websocket hub.
type Publisher interface {
	Publish(ev api.Event)
}

// Options configures a Service.
type Options struct {
	Limits    config.GalleryConfig
	Seed      int64 // Shuffle seed for stores without sampling; 0 uses the clock
	Publisher Publisher
	Logger    *slog.Logger
}

// Service applies gallery rules. It is safe for concurrent use.
type Service struct {
	store  store.Store
	limits config.GalleryConfig
	pub    Publisher
	logger *slog.Logger

	// Serializes submissions so the per-user cap holds under concurrent posts.
	submitMu sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Service over st.
func New(st store.Store, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Limits.ListLimit <= 0 {
		opts.Limits.ListLimit = 50
	}
	if opts.Limits.PerUserCap <= 0 {
		opts.Limits.PerUserCap = 20
	}
	if opts.Limits.RankLimit <= 0 {
		opts.Limits.RankLimit = 25
	}
	return &Service{
		store:  st,
		limits: opts.Limits,
		pub:    opts.Publisher,
		logger: opts.Logger,
		rng:    rand.New(rand.NewSource(opts.Seed)),
	}
}

// Submit stores a new drawing. A request without a user id creates a user
// named after the artist. The artist's oldest drawings are evicted so the
// cap holds after the insert.
func (s *Service) Submit(ctx context.Context, req api.SubmitRequest) (api.SubmitResponse, error) {
	name := strings.TrimSpace(req.ArtistName)
	if name == "" || req.ImageData == "" {
		return api.SubmitResponse{}, ErrMissingFields
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	var user store.User
	var err error
	if req.UserID != nil && *req.UserID != 0 {
		user, err = s.store.User(ctx, *req.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return api.SubmitResponse{}, ErrUserNotFound
		}
	} else {
		user, err = s.store.CreateUser(ctx, name)
	}
	if err != nil {
		return api.SubmitResponse{}, fmt.Errorf("resolving user: %w", err)
	}

	existing, err := s.store.FishesByUser(ctx, user.UserID)
	if err != nil {
		return api.SubmitResponse{}, fmt.Errorf("listing user fishes: %w", err)
	}
	for i := 0; len(existing)-i >= s.limits.PerUserCap; i++ {
		if err := s.store.DeleteFish(ctx, existing[i].FishID); err != nil {
			return api.SubmitResponse{}, fmt.Errorf("evicting fish %d: %w", existing[i].FishID, err)
		}
		s.logger.Debug("evicted oldest fish", "user_id", user.UserID, "fish_id", existing[i].FishID)
	}

	f, err := s.store.InsertFish(ctx, api.Fish{
		ArtistName: name,
		ImageData:  req.ImageData,
		UserID:     user.UserID,
	})
	if err != nil {
		return api.SubmitResponse{}, fmt.Errorf("inserting fish: %w", err)
	}

	s.logger.Info("fish submitted", "user_id", user.UserID, "fish_id", f.FishID)
	s.publish(api.Event{Type: api.EventFishCreated, Fish: &f, FishID: f.FishID})
	return api.SubmitResponse{Success: true, UserID: user.UserID, FishID: f.FishID}, nil
}

// List returns the viewer feed: the viewer's latest drawing first when
// viewer is non-zero, then a random sample of the rest.
func (s *Service) List(ctx context.Context, viewer int64) ([]api.Fish, error) {
	limit := s.limits.ListLimit
	out := make([]api.Fish, 0, limit)
	exclude := map[int64]struct{}{}

	if viewer != 0 {
		mine, err := s.store.FishesByUser(ctx, viewer)
		if err != nil {
			return nil, fmt.Errorf("listing viewer fishes: %w", err)
		}
		if n := len(mine); n > 0 {
			latest := mine[n-1]
			out = append(out, latest)
			exclude[latest.FishID] = struct{}{}
		}
	}

	rest, err := s.sample(ctx, limit-len(out), exclude)
	if err != nil {
		return nil, err
	}
	return append(out, rest...), nil
}

// sample draws from the store when it can sample, otherwise shuffles the
// full table.
func (s *Service) sample(ctx context.Context, n int, exclude map[int64]struct{}) ([]api.Fish, error) {
	if n <= 0 {
		return nil, nil
	}
	if sm, ok := s.store.(store.Sampler); ok {
		got, err := sm.Sample(ctx, n, exclude)
		if err == nil {
			return got, nil
		}
		s.logger.Warn("store sampling failed, shuffling full table", "error", err)
	}

	all, err := s.store.Fishes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing fishes: %w", err)
	}
	all = slices.DeleteFunc(all, func(f api.Fish) bool {
		_, skip := exclude[f.FishID]
		return skip
	})
	s.rngMu.Lock()
	s.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	s.rngMu.Unlock()
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Vote applies a like or dislike and returns the new counters.
func (s *Service) Vote(ctx context.Context, req api.VoteRequest) (api.VoteResponse, error) {
	if req.FishID == 0 || req.Action == "" {
		return api.VoteResponse{}, ErrMissingFields
	}
	var likes, dislikes int
	switch req.Action {
	case api.ActionLike:
		likes = 1
	case api.ActionDislike:
		dislikes = 1
	default:
		return api.VoteResponse{}, ErrInvalidAction
	}

	f, err := s.store.AddVotes(ctx, req.FishID, likes, dislikes)
	if errors.Is(err, store.ErrNotFound) {
		return api.VoteResponse{}, ErrFishNotFound
	}
	if err != nil {
		return api.VoteResponse{}, fmt.Errorf("voting on fish %d: %w", req.FishID, err)
	}

	s.publish(api.Event{Type: api.EventVote, FishID: f.FishID, Likes: f.Likes, Dislikes: f.Dislikes})
	return api.VoteResponse{Likes: f.Likes, Dislikes: f.Dislikes}, nil
}

// Rank returns the most liked drawings; ties go to the newest.
func (s *Service) Rank(ctx context.Context) ([]api.Fish, error) {
	all, err := s.store.Fishes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing fishes: %w", err)
	}
	slices.SortFunc(all, func(a, b api.Fish) int {
		if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.FishID, a.FishID)
	})
	if len(all) > s.limits.RankLimit {
		all = all[:s.limits.RankLimit]
	}
	return all, nil
}

// Fish returns a single drawing.
func (s *Service) Fish(ctx context.Context, id int64) (api.Fish, error) {
	f, err := s.store.Fish(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fish{}, ErrFishNotFound
	}
	return f, err
}

func (s *Service) publish(ev api.Event) {
	if s.pub != nil {
		s.pub.Publish(ev)
	}
}
