package game

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sketchpond/components"
	"github.com/pthm-cable/sketchpond/config"
	"github.com/pthm-cable/sketchpond/renderer"
	"github.com/pthm-cable/sketchpond/sprite"
	"github.com/pthm-cable/sketchpond/systems"
	"github.com/pthm-cable/sketchpond/telemetry"
)

// ErrSceneClosed is returned by Send once the scene is closed.
var ErrSceneClosed = errors.New("game: scene closed")

// mailboxSize is how many updates can wait for the next Pump.
const mailboxSize = 64

// Kind selects the scene behavior.
type Kind string

const (
	KindFish Kind = "fish"
	KindBird Kind = "bird"
)

// ParseKind parses a scene kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFish, KindBird:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown scene kind %q", s)
}

// Status describes what the scene is showing.
type Status int

const (
	StatusIdle    Status = iota // No gallery requested yet
	StatusLoading               // Gallery requested or sprites building
	StatusEmpty                 // Gallery has no creatures
	StatusReady                 // At least one creature is live
	StatusError                 // Gallery could not be fetched or nothing could be built
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusEmpty:
		return "empty"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return "idle"
}

// Message returns the centered text for the status, or "" when the scene is
// showing creatures.
func (s Status) Message(kind Kind) string {
	noun := "fish"
	if kind == KindBird {
		noun = "birds"
	}
	switch s {
	case StatusIdle, StatusLoading:
		return fmt.Sprintf("Loading %s...", noun)
	case StatusEmpty:
		return fmt.Sprintf("No %s found", noun)
	case StatusError:
		return fmt.Sprintf("Could not load %s", noun)
	}
	return ""
}

// Options configures a Scene.
type Options struct {
	Kind          Kind
	Width, Height int         // Canvas size; 0 uses the screen config
	Seed          int64       // RNG seed for spawn parameters
	Background    image.Image // Optional; scaled to cover the canvas
	Logger        *slog.Logger

	Perf      *telemetry.PerfCollector // Optional frame phase timings
	Collector *telemetry.Collector     // Optional windowed scene stats
	OnEvent   func(Event)              // Called on the frame owner
	OnStats   func(telemetry.WindowStats)
}

// Scene is one mounted gallery scene: the entity arena, the bait and
// particles, and the loader feeding it. Every method except Post must be
// called from the single goroutine that owns the scene's frames.
type Scene struct {
	cfg      *config.Config
	kind     Kind
	logger   *slog.Logger
	rng      *rand.Rand
	behavior systems.Behavior

	world  *ecs.World
	mapper *ecs.Map6[
		components.Position,
		components.Velocity,
		components.Motion,
		components.Body,
		components.Appearance,
		components.Record,
	]
	posMap    *ecs.Map[components.Position]
	velMap    *ecs.Map[components.Velocity]
	motionMap *ecs.Map[components.Motion]
	bodyMap   *ecs.Map[components.Body]
	appMap    *ecs.Map[components.Appearance]
	recMap    *ecs.Map[components.Record]
	motion    *systems.MotionSystem

	// Draw order doubles as hit-test z-order; index maps fish_id to entity.
	order   []ecs.Entity
	index   map[int64]ecs.Entity
	pending map[int64]components.Record
	failed  int

	bait       *systems.BaitSystem // nil for scenes without bait
	particles  *systems.ParticleSystem
	painter    *renderer.Painter
	background *image.RGBA
	fallback   color.RGBA

	loader  *sprite.Loader
	mailbox chan func(*Scene)

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	bounds systems.Bounds
	tick   int64
	status Status
	boxes  []systems.Box

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	onEvent   func(Event)
	onStats   func(telemetry.WindowStats)
}

// NewScene creates an empty scene. Builds started by the scene are abandoned
// when ctx is cancelled or the scene is closed.
func NewScene(ctx context.Context, cfg *config.Config, opts Options) (*Scene, error) {
	kind, err := ParseKind(string(opts.Kind))
	if err != nil {
		return nil, err
	}
	if opts.Width <= 0 {
		opts.Width = cfg.Screen.Width
	}
	if opts.Height <= 0 {
		opts.Height = cfg.Screen.Height
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("scene", string(kind))

	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(opts.Seed))
	ctx, cancel := context.WithCancel(ctx)

	s := &Scene{
		cfg:    cfg,
		kind:   kind,
		logger: logger,
		rng:    rng,
		world:  world,
		mapper: ecs.NewMap6[
			components.Position,
			components.Velocity,
			components.Motion,
			components.Body,
			components.Appearance,
			components.Record,
		](world),
		posMap:    ecs.NewMap[components.Position](world),
		velMap:    ecs.NewMap[components.Velocity](world),
		motionMap: ecs.NewMap[components.Motion](world),
		bodyMap:   ecs.NewMap[components.Body](world),
		appMap:    ecs.NewMap[components.Appearance](world),
		recMap:    ecs.NewMap[components.Record](world),
		index:     make(map[int64]ecs.Entity),
		pending:   make(map[int64]components.Record),
		particles: systems.NewParticleSystem(particleParams(cfg), rng),
		painter:   renderer.NewPainter(cfg.Bait),
		loader: sprite.NewLoader(ctx, sprite.LoaderOptions{
			Width:    cfg.Sprite.CanonicalWidth,
			Workers:  cfg.Sprite.Workers,
			MaxBytes: cfg.Sprite.MaxPayloadBytes,
			Logger:   logger,
		}),
		mailbox:   make(chan func(*Scene), mailboxSize),
		ctx:       ctx,
		cancel:    cancel,
		bounds:    systems.Bounds{Width: float32(opts.Width), Height: float32(opts.Height)},
		perf:      opts.Perf,
		collector: opts.Collector,
		onEvent:   opts.OnEvent,
		onStats:   opts.OnStats,
	}

	switch kind {
	case KindFish:
		s.behavior = systems.NewFishSwim(cfg.Fish, cfg.Derived.DT)
		s.fallback = cfg.Derived.FishBackground
	case KindBird:
		s.behavior = systems.NewBirdFlight(cfg.Bird)
		s.fallback = cfg.Derived.BirdBackground
		s.bait = systems.NewBaitSystem(systems.BaitParams{
			Gravity:      float32(cfg.Bait.Gravity),
			InitialVY:    float32(cfg.Bait.InitialVY),
			GroundMargin: float32(cfg.Bait.GroundMargin),
			Timeout:      cfg.Derived.BaitTimeout,
		})
	}
	s.motion = systems.NewMotionSystem(world, s.behavior)

	if opts.Background != nil {
		s.background = renderer.FitBackground(opts.Background, opts.Width, opts.Height)
	}

	return s, nil
}

func particleParams(cfg *config.Config) systems.ParticleParams {
	return systems.ParticleParams{
		BurstCount:   cfg.Particles.BurstCount,
		MinSpeed:     float32(cfg.Particles.MinSpeed),
		MaxSpeed:     float32(cfg.Particles.MaxSpeed),
		OpacityStep:  float32(cfg.Particles.OpacityStep),
		MaxParticles: cfg.Particles.MaxParticles,
		Size:         float32(cfg.Particles.Size),
		Palette:      cfg.Derived.ParticlePalette,
	}
}

// Kind returns the scene kind.
func (s *Scene) Kind() Kind {
	return s.kind
}

// Len returns the number of live entities.
func (s *Scene) Len() int {
	return len(s.order)
}

// Pending returns the number of records waiting for their sprite.
func (s *Scene) Pending() int {
	return len(s.pending)
}

// Status returns what the scene is currently showing.
func (s *Scene) Status() Status {
	return s.status
}

// Tick returns the number of simulated ticks.
func (s *Scene) Tick() int64 {
	return s.tick
}

// Size returns the canvas size the scene simulates in.
func (s *Scene) Size() (w, h int) {
	return int(s.bounds.Width), int(s.bounds.Height)
}

// Bait returns the live bait or nil.
func (s *Scene) Bait() *systems.Bait {
	if s.bait == nil {
		return nil
	}
	return s.bait.Active()
}

// Particles returns the number of live particles.
func (s *Scene) Particles() int {
	return s.particles.Count()
}

// Post queues fn to run on the frame owner during the next Pump. It is safe
// to call from any goroutine and reports false if the scene is closed or the
// mailbox is full.
func (s *Scene) Post(fn func(*Scene)) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.mailbox <- fn:
		return true
	default:
		s.logger.Warn("scene mailbox full, dropping update")
		return false
	}
}

// Send queues fn like Post but waits for mailbox space instead of dropping
// it. It fails when ctx is done or the scene closes first. Send must not be
// called from the goroutine that pumps the scene.
func (s *Scene) Send(ctx context.Context, fn func(*Scene)) error {
	select {
	case <-s.ctx.Done():
		return ErrSceneClosed
	default:
	}
	select {
	case s.mailbox <- fn:
		return nil
	case <-s.ctx.Done():
		return ErrSceneClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pump applies queued updates and finished sprite builds. It never blocks.
func (s *Scene) Pump() {
	for s.ctx.Err() == nil {
		select {
		case fn := <-s.mailbox:
			fn(s)
		case res := <-s.loader.Results():
			s.admit(res)
		default:
			return
		}
	}
}

// Close stops the scene: in-flight builds are abandoned and later
// completions are dropped. Safe to call more than once.
func (s *Scene) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.loader.Close()
		s.pending = make(map[int64]components.Record)
		s.logger.Debug("scene closed", "entities", len(s.order), "tick", s.tick)
	})
}

func (s *Scene) emit(ev Event) {
	ev.Tick = s.tick
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
