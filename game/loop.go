package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pthm-cable/sketchpond/renderer"
)

var (
	ErrLoopRunning = errors.New("game: loop already running")
	ErrLoopStopped = errors.New("game: loop stopped")
)

// LoopOptions configures a Loop.
type LoopOptions struct {
	FPS      int   // Frames per second; 0 runs unthrottled
	MaxTicks int64 // Stop after this many animated frames; 0 = never
	// OnFrame runs on the loop goroutine after every frame. animated is false
	// while the scene has nothing to animate.
	OnFrame func(animated bool)
	Logger  *slog.Logger
}

// Loop is the cancellable repeating frame task for one scene and canvas. The
// loop goroutine owns the scene while it runs.
type Loop struct {
	scene  *Scene
	canvas renderer.Canvas
	opts   LoopOptions

	mu       sync.Mutex
	running  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	frames atomic.Int64
	panics atomic.Int64
}

// NewLoop creates a loop. It does nothing until Start.
func NewLoop(scene *Scene, canvas renderer.Canvas, opts LoopOptions) *Loop {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Loop{
		scene:  scene,
		canvas: canvas,
		opts:   opts,
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine. A loop runs at most once.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return ErrLoopStopped
	}
	if l.running {
		return ErrLoopRunning
	}
	l.running = true

	ctx, l.cancel = context.WithCancel(ctx)
	go l.run(ctx)
	return nil
}

// Stop cancels the loop and waits for the current frame to finish.
// Safe to call more than once and before Start.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		cancel, running := l.cancel, l.running
		l.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if running {
			<-l.done
		}
	})
}

// Done is closed when the loop goroutine exits.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Frames returns the number of animated frames so far.
func (l *Loop) Frames() int64 {
	return l.frames.Load()
}

// Panics returns the number of frames that panicked and were skipped.
func (l *Loop) Panics() int64 {
	return l.panics.Load()
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	var tick <-chan time.Time
	if l.opts.FPS > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(l.opts.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return
		}

		animated := l.frame()
		if l.opts.OnFrame != nil {
			l.opts.OnFrame(animated)
		}
		if !animated {
			if tick == nil {
				// Unthrottled and idle: wait for loads instead of spinning
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Millisecond):
				}
			}
			continue
		}
		if n := l.frames.Add(1); l.opts.MaxTicks > 0 && n >= l.opts.MaxTicks {
			return
		}
	}
}

// frame renders one frame, isolating panics so one bad frame cannot stop the
// scene.
func (l *Loop) frame() (animated bool) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.opts.Logger.Error("frame panicked", "panic", r, "tick", l.scene.Tick())
			animated = false
		}
	}()
	return l.scene.Frame(l.canvas)
}
