package game

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/pthm-cable/sketchpond/api"
	"github.com/pthm-cable/sketchpond/config"
	"github.com/pthm-cable/sketchpond/sprite"
)

// payload returns a PNG data URL of an opaque w x h drawing.
func payload(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 200, 255
	}
	url, err := sprite.EncodeDataURL(img)
	if err != nil {
		t.Fatal(err)
	}
	return url
}

func fish(t *testing.T, id int64) api.Fish {
	return api.Fish{
		FishID:     id,
		ArtistName: "artist",
		ImageData:  payload(t, 300, 150),
		CreatedAt:  time.Unix(1700000000+id, 0),
		UserID:     1,
	}
}

func newScene(t *testing.T, kind Kind, opts Options) *Scene {
	t.Helper()
	opts.Kind = kind
	opts.Width, opts.Height = 800, 600
	s, err := NewScene(context.Background(), config.Default(), opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

// waitFor pumps the scene until cond holds.
func waitFor(t *testing.T, s *Scene, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: len=%d pending=%d status=%v", s.Len(), s.Pending(), s.Status())
		}
		s.Pump()
		time.Sleep(time.Millisecond)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []string{"fish", "bird"} {
		if _, err := ParseKind(k); err != nil {
			t.Errorf("ParseKind(%q): %v", k, err)
		}
	}
	if _, err := ParseKind("cat"); err == nil {
		t.Error("ParseKind(cat) should fail")
	}
	if _, err := NewScene(context.Background(), config.Default(), Options{Kind: "cat"}); err == nil {
		t.Error("NewScene with an unknown kind should fail")
	}
}

func TestSceneLoadsEachRecordOnce(t *testing.T) {
	var mu sync.Mutex
	loaded := map[int64]int{}
	s := newScene(t, KindFish, Options{OnEvent: func(ev Event) {
		if ev.Kind == EventLoaded {
			mu.Lock()
			loaded[ev.ID]++
			mu.Unlock()
		}
	}})

	if s.Status() != StatusIdle {
		t.Errorf("initial status = %v, want idle", s.Status())
	}

	list := []api.Fish{fish(t, 1), fish(t, 2), fish(t, 2), fish(t, 3)}
	s.SetGallery(list)
	if s.Status() != StatusLoading {
		t.Errorf("status while building = %v, want loading", s.Status())
	}
	waitFor(t, s, func() bool { return s.Len() == 3 })

	s.SetGallery(list)
	s.Add(fish(t, 3))
	if s.Pending() != 0 {
		t.Errorf("pending = %d after re-listing live records, want 0", s.Pending())
	}
	time.Sleep(20 * time.Millisecond)
	s.Pump()

	for id, n := range loaded {
		if n != 1 {
			t.Errorf("record %d loaded %d times", id, n)
		}
	}
	if s.Len() != 3 || s.Status() != StatusReady {
		t.Errorf("len=%d status=%v, want 3 ready", s.Len(), s.Status())
	}
	for _, b := range s.Boxes() {
		if b.W != 150 || b.H != 75 {
			t.Errorf("entity box %vx%v, want 150x75", b.W, b.H)
		}
	}
}

func TestSceneEvictsUnlistedRecords(t *testing.T) {
	s := newScene(t, KindFish, Options{})
	s.SetGallery([]api.Fish{fish(t, 1), fish(t, 2), fish(t, 3)})
	waitFor(t, s, func() bool { return s.Len() == 3 })

	updated := fish(t, 2)
	updated.Likes = 9
	s.SetGallery([]api.Fish{updated})
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	rec, ok := s.Record(2)
	if !ok || rec.Likes != 9 {
		t.Errorf("record 2 = %+v, %v; want likes 9", rec, ok)
	}
	if _, ok := s.Record(1); ok {
		t.Error("record 1 should be evicted")
	}

	// Evicted records can come back
	s.SetGallery([]api.Fish{updated, fish(t, 1)})
	waitFor(t, s, func() bool { return s.Len() == 2 })
}

func TestSceneSkipsBadPayloads(t *testing.T) {
	s := newScene(t, KindBird, Options{})
	bad := fish(t, 7)
	bad.ImageData = ""

	s.SetGallery([]api.Fish{bad})
	waitFor(t, s, func() bool { return s.Pending() == 0 })
	if s.Status() != StatusError || s.Len() != 0 {
		t.Errorf("only bad payloads: status=%v len=%d, want error 0", s.Status(), s.Len())
	}

	s.SetGallery([]api.Fish{bad, fish(t, 8)})
	waitFor(t, s, func() bool { return s.Len() == 1 })
	if s.Status() != StatusReady {
		t.Errorf("status = %v, want ready", s.Status())
	}
}

func TestSceneEmptyGalleryDoesNotAnimate(t *testing.T) {
	s := newScene(t, KindBird, Options{})
	s.SetGallery(nil)
	if s.Status() != StatusEmpty {
		t.Errorf("status = %v, want empty", s.Status())
	}
	rec := &recorder{}
	if s.Frame(rec) {
		t.Error("frame should not animate an empty scene")
	}
	if s.Step() {
		t.Error("step should not run with zero entities")
	}
	if s.Tick() != 0 {
		t.Errorf("tick = %d, want 0", s.Tick())
	}
	if len(rec.clears) != 1 {
		t.Error("empty scene should still draw its background")
	}
}

func TestSceneHitTestTopmost(t *testing.T) {
	s := newScene(t, KindBird, Options{})
	s.SetGallery([]api.Fish{fish(t, 1), fish(t, 2)})
	waitFor(t, s, func() bool { return s.Len() == 2 })

	a, b := s.order[0], s.order[1]
	*s.posMap.Get(a) = positionAt(100, 100)
	*s.posMap.Get(b) = positionAt(150, 120)
	idA, idB := s.recMap.Get(a).ID, s.recMap.Get(b).ID

	tests := []struct {
		name   string
		x, y   float32
		wantID int64
		hit    bool
	}{
		{"overlap picks later", 200, 150, idB, true},
		{"only first", 110, 110, idA, true},
		{"within margin", 95, 95, idA, true},
		{"miss", 700, 500, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := s.HitTest(tt.x, tt.y)
			if ok != tt.hit || rec.ID != tt.wantID {
				t.Errorf("HitTest(%v, %v) = %d, %v; want %d, %v", tt.x, tt.y, rec.ID, ok, tt.wantID, tt.hit)
			}
		})
	}
}

func TestSceneFeedAndEat(t *testing.T) {
	var events []Event
	s := newScene(t, KindBird, Options{OnEvent: func(ev Event) { events = append(events, ev) }})
	s.SetGallery([]api.Fish{fish(t, 5)})
	waitFor(t, s, func() bool { return s.Len() == 1 })

	e := s.order[0]
	*s.posMap.Get(e) = positionAt(300, 300)
	mot := s.motionMap.Get(e)
	mot.BaseY, mot.BobPhase = 300, 0
	body := s.bodyMap.Get(e)

	if !s.Feed(300+body.Width/2, 300+body.Height/2) {
		t.Fatal("feed should drop bait")
	}
	if s.Feed(10, 10) {
		t.Error("second feed should be a no-op")
	}

	s.Step()
	if s.Bait() != nil {
		t.Fatal("bird on top of the bait should eat it")
	}
	if s.Particles() == 0 {
		t.Error("eating should burst particles")
	}
	last := events[len(events)-1]
	if last.Kind != EventEaten || last.ID != 5 {
		t.Errorf("last event = %+v, want eaten by 5", last)
	}

	fishScene := newScene(t, KindFish, Options{})
	if fishScene.Feed(10, 10) {
		t.Error("fish scenes have no bait")
	}
}

func TestSceneApplyVote(t *testing.T) {
	s := newScene(t, KindFish, Options{})
	f := fish(t, 42)
	f.Likes, f.Dislikes = 3, 1
	s.SetGallery([]api.Fish{f})
	waitFor(t, s, func() bool { return s.Len() == 1 })

	if !s.ApplyVote(42, 4, 1) {
		t.Fatal("vote on a live record should apply")
	}
	rec, _ := s.Record(42)
	if rec.Likes != 4 || rec.Dislikes != 1 {
		t.Errorf("counters = %d/%d, want 4/1", rec.Likes, rec.Dislikes)
	}
	if s.ApplyVote(99, 1, 1) {
		t.Error("vote on an unknown record should be ignored")
	}
}

func TestSceneFrameOrderAndMirror(t *testing.T) {
	s := newScene(t, KindBird, Options{})
	s.SetGallery([]api.Fish{fish(t, 1), fish(t, 2)})
	waitFor(t, s, func() bool { return s.Len() == 2 })

	first, second := s.order[0], s.order[1]
	*s.posMap.Get(first) = positionAt(200, 200)
	*s.posMap.Get(second) = positionAt(400, 200)
	s.velMap.Get(first).X = 2
	s.velMap.Get(second).X = -2
	wantIDs := []int64{s.recMap.Get(first).ID, s.recMap.Get(second).ID}

	rec := &recorder{}
	if !s.Frame(rec) {
		t.Fatal("frame should animate")
	}
	if len(rec.draws) != 2 {
		t.Fatalf("drew %d images, want 2", len(rec.draws))
	}
	for i, d := range rec.draws {
		if d.id != wantIDs[i] {
			t.Errorf("draw %d id = %d, want %d", i, d.id, wantIDs[i])
		}
		if d.h != 112 {
			t.Errorf("bird frame height = %d, want 112", d.h)
		}
	}
	if !rec.draws[0].mirror || rec.draws[1].mirror {
		t.Error("birds moving right should be mirrored, left should not")
	}
	if s.Tick() != 1 {
		t.Errorf("tick = %d, want 1", s.Tick())
	}
}

func TestSceneCloseDropsLateBuilds(t *testing.T) {
	s := newScene(t, KindFish, Options{})
	s.SetGallery([]api.Fish{fish(t, 1), fish(t, 2)})
	s.Close()
	s.Close()

	time.Sleep(20 * time.Millisecond)
	s.Pump()
	if s.Len() != 0 {
		t.Errorf("len = %d after close, want 0", s.Len())
	}
	if s.Post(func(*Scene) {}) {
		t.Error("post after close should fail")
	}
}

type fakeSource struct {
	fishes []api.Fish
	err    error
	votes  []int64
}

func (f *fakeSource) Fishes(context.Context, int64) ([]api.Fish, error) {
	return f.fishes, f.err
}

func (f *fakeSource) Vote(_ context.Context, id int64, action string) (api.VoteResponse, error) {
	if f.err != nil {
		return api.VoteResponse{}, f.err
	}
	f.votes = append(f.votes, id)
	return api.VoteResponse{Likes: 4, Dislikes: 0}, nil
}

func TestFeederRefreshAndVote(t *testing.T) {
	s := newScene(t, KindFish, Options{})
	src := &fakeSource{fishes: []api.Fish{fish(t, 42)}}
	f := NewFeeder(src, s, 0, nil)

	if err := f.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s, func() bool { return s.Len() == 1 })

	resp, err := f.Vote(context.Background(), 42, api.ActionLike)
	if err != nil || resp.Likes != 4 {
		t.Fatalf("vote = %+v, %v", resp, err)
	}
	s.Pump()
	if rec, _ := s.Record(42); rec.Likes != 4 {
		t.Errorf("likes = %d after vote, want 4", rec.Likes)
	}
}

func TestFeederFetchError(t *testing.T) {
	s := newScene(t, KindFish, Options{})
	f := NewFeeder(&fakeSource{err: errors.New("offline")}, s, 0, nil)

	if err := f.Refresh(context.Background()); err == nil {
		t.Fatal("refresh should report the fetch error")
	}
	s.Pump()
	if s.Status() != StatusError {
		t.Errorf("status = %v, want error", s.Status())
	}
}

func TestFeederFollow(t *testing.T) {
	s := newScene(t, KindFish, Options{})
	f := NewFeeder(&fakeSource{}, s, 0, nil)

	created := fish(t, 11)
	events := make(chan api.Event, 3)
	events <- api.Event{Type: api.EventFishCreated, Fish: &created}
	events <- api.Event{Type: "unknown"}
	events <- api.Event{Type: api.EventVote, FishID: 11, Likes: 2, Dislikes: 1}
	close(events)

	f.Follow(context.Background(), events)

	// The vote is applied while the record is still building
	waitFor(t, s, func() bool { return s.Len() == 1 })
	rec, _ := s.Record(11)
	if rec.Likes != 2 || rec.Dislikes != 1 {
		t.Errorf("counters = %d/%d, want 2/1", rec.Likes, rec.Dislikes)
	}
}

// heldSource serves a gallery snapshot, optionally blocking Fishes until
// release is closed.
type heldSource struct {
	fakeSource
	entered chan struct{}
	release chan struct{}
}

func (h *heldSource) Fishes(ctx context.Context, userID int64) ([]api.Fish, error) {
	if h.release != nil {
		close(h.entered)
		<-h.release
	}
	return h.fakeSource.Fishes(ctx, userID)
}

func TestFeederStaleRefreshKeepsVoteCounters(t *testing.T) {
	s := newScene(t, KindFish, Options{})
	listed := fish(t, 42)
	listed.Likes = 3
	src := &heldSource{fakeSource: fakeSource{fishes: []api.Fish{listed}}}
	f := NewFeeder(src, s, 0, nil)

	if err := f.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s, func() bool { return s.Len() == 1 })

	// A refresh fetched before the vote lands after it
	src.entered, src.release = make(chan struct{}), make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.Refresh(context.Background()) }()
	<-src.entered

	if _, err := f.Vote(context.Background(), 42, api.ActionLike); err != nil {
		t.Fatal(err)
	}
	s.Pump()
	close(src.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	s.Pump()

	if rec, _ := s.Record(42); rec.Likes != 4 {
		t.Errorf("likes = %d after stale refresh, want the vote's 4", rec.Likes)
	}
}

func TestSceneMailboxFull(t *testing.T) {
	s := newScene(t, KindFish, Options{})
	for i := 0; i < mailboxSize; i++ {
		if !s.Post(func(*Scene) {}) {
			t.Fatalf("post %d refused before the mailbox filled", i)
		}
	}
	if s.Post(func(*Scene) {}) {
		t.Fatal("post into a full mailbox should report false")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, func(*Scene) {}); !errors.Is(err, context.Canceled) {
		t.Errorf("send with a cancelled context = %v, want context.Canceled", err)
	}

	var mu sync.Mutex
	ran := false
	sent := make(chan error, 1)
	go func() {
		sent <- s.Send(context.Background(), func(*Scene) {
			mu.Lock()
			ran = true
			mu.Unlock()
		})
	}()
	// Drain until the waiting update has been delivered and applied
	waitFor(t, s, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran
	})
	if err := <-sent; err != nil {
		t.Errorf("send = %v, want nil", err)
	}

	s.Close()
	if err := s.Send(context.Background(), func(*Scene) {}); !errors.Is(err, ErrSceneClosed) {
		t.Errorf("send after close = %v, want ErrSceneClosed", err)
	}
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		kind Kind
		st   Status
		want string
	}{
		{KindBird, StatusEmpty, "No birds found"},
		{KindFish, StatusLoading, "Loading fish..."},
		{KindFish, StatusIdle, "Loading fish..."},
		{KindBird, StatusError, "Could not load birds"},
		{KindFish, StatusReady, ""},
	}
	for _, tt := range tests {
		if got := tt.st.Message(tt.kind); got != tt.want {
			t.Errorf("%s %s message = %q, want %q", tt.kind, tt.st, got, tt.want)
		}
	}
}
