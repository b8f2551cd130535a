package game

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pthm-cable/sketchpond/api"
	"github.com/pthm-cable/sketchpond/components"
)

type draw struct {
	id     int64
	h      int
	mirror bool
}

// recorder is a Canvas that records calls.
type recorder struct {
	clears []color.Color
	draws  []draw
	panic  bool
}

func (r *recorder) Size() (int, int)    { return 800, 600 }
func (r *recorder) Clear(c color.Color) { r.clears = append(r.clears, c) }
func (r *recorder) DrawImage(id int64, img *image.RGBA, _, _ float32, mirror bool) {
	if r.panic {
		panic("canvas lost")
	}
	r.draws = append(r.draws, draw{id: id, h: img.Bounds().Dy(), mirror: mirror})
}
func (r *recorder) FillCircle(_, _, _ float32, _ color.Color)          {}
func (r *recorder) StrokeLine(_, _, _, _, _ float32, _ color.Color) {}

func positionAt(x, y float32) components.Position {
	return components.Position{X: x, Y: y}
}

func loadedScene(t *testing.T, kind Kind, ids ...int64) *Scene {
	t.Helper()
	s := newScene(t, kind, Options{})
	var list []api.Fish
	for _, id := range ids {
		list = append(list, fish(t, id))
	}
	s.SetGallery(list)
	waitFor(t, s, func() bool { return s.Len() == len(ids) })
	return s
}

func TestLoopRunsUntilMaxTicks(t *testing.T) {
	s := loadedScene(t, KindFish, 1, 2)
	var calls atomic.Int64
	l := NewLoop(s, &recorder{}, LoopOptions{MaxTicks: 5, OnFrame: func(bool) { calls.Add(1) }})

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := l.Start(context.Background()); !errors.Is(err, ErrLoopRunning) {
		t.Errorf("second start = %v, want ErrLoopRunning", err)
	}

	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop at MaxTicks")
	}
	l.Stop()
	l.Stop()

	if l.Frames() != 5 || calls.Load() != 5 {
		t.Errorf("frames=%d calls=%d, want 5", l.Frames(), calls.Load())
	}
	if s.Tick() != 5 {
		t.Errorf("scene tick = %d, want 5", s.Tick())
	}
	if err := l.Start(context.Background()); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("start after stop = %v, want ErrLoopStopped", err)
	}
}

func TestLoopIdlesWithoutEntities(t *testing.T) {
	s := newScene(t, KindBird, Options{})
	s.SetGallery(nil)
	l := NewLoop(s, &recorder{}, LoopOptions{FPS: 200})
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	l.Stop()

	if l.Frames() != 0 || s.Tick() != 0 {
		t.Errorf("frames=%d tick=%d, want an idle loop", l.Frames(), s.Tick())
	}
}

func TestLoopRecoversFromPanics(t *testing.T) {
	s := loadedScene(t, KindFish, 1)
	l := NewLoop(s, &recorder{panic: true}, LoopOptions{})
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for l.Panics() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("loop stopped after a panicking frame")
		}
		time.Sleep(time.Millisecond)
	}
	l.Stop()
}

func TestLoopStopBeforeStart(t *testing.T) {
	s := newScene(t, KindFish, Options{})
	l := NewLoop(s, &recorder{}, LoopOptions{})
	l.Stop()
	if err := l.Start(context.Background()); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("start after stop = %v, want ErrLoopStopped", err)
	}
}

func TestLoopStopsWithContext(t *testing.T) {
	s := loadedScene(t, KindFish, 1)
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(s, &recorder{}, LoopOptions{FPS: 120})
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop ignored context cancellation")
	}
	l.Stop()
}
