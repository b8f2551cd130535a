package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"os/signal"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/pthm-cable/sketchpond/audio"
	"github.com/pthm-cable/sketchpond/client"
	"github.com/pthm-cable/sketchpond/config"
	"github.com/pthm-cable/sketchpond/game"
)

type options struct {
	server     string
	kind       game.Kind
	session    client.Session
	headless   bool
	maxTicks   int64
	fps        int
	outputDir  string
	framePNG   string
	seed       int64
	sound      bool
	live       bool
	refresh    time.Duration
	background image.Image
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	serverURL := flag.String("server", "http://localhost:8080", "Gallery server URL")
	sceneKind := flag.String("scene", "fish", "Scene to show: fish or bird")
	sessionPath := flag.String("session", client.DefaultSessionPath(), "Artist session file")
	headless := flag.Bool("headless", false, "Run without graphics")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N animated frames (0 = unlimited)")
	fps := flag.Int("fps", -1, "Headless frame rate (0 = unthrottled, -1 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	framePNG := flag.String("frame-png", "", "Headless: write the last frame to this PNG file")
	backgroundPath := flag.String("background", "", "Background image (png, jpeg or webp)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	sound := flag.Bool("sound", false, "Play sound effects")
	live := flag.Bool("live", true, "Follow live gallery updates over the websocket")
	refresh := flag.Duration("refresh", 0, "Refetch the gallery at this interval (0 = never)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	kind, err := game.ParseKind(*sceneKind)
	if err != nil {
		slog.Error("invalid scene", "error", err)
		os.Exit(2)
	}
	sess, err := client.LoadSession(*sessionPath)
	if err != nil {
		slog.Warn("ignoring unreadable session", "path", *sessionPath, "error", err)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	frameRate := *fps
	if frameRate < 0 {
		frameRate = cfg.Screen.TargetFPS
	}

	opts := options{
		server:    *serverURL,
		kind:      kind,
		session:   sess,
		headless:  *headless,
		maxTicks:  *maxTicks,
		fps:       frameRate,
		outputDir: *outputDir,
		framePNG:  *framePNG,
		seed:      rngSeed,
		sound:     *sound,
		live:      *live,
		refresh:   *refresh,
	}
	if *backgroundPath != "" {
		if opts.background, err = loadImage(*backgroundPath); err != nil {
			slog.Warn("ignoring background", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.headless {
		err = runHeadless(ctx, cfg, opts, logger)
	} else {
		err = runViewer(ctx, cfg, opts, logger)
	}
	if err != nil {
		slog.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// connect creates the gallery client and starts feeding the scene: an
// initial fetch, periodic refreshes and the live event feed.
func connect(ctx context.Context, scene *game.Scene, opts options, logger *slog.Logger) (*game.Feeder, error) {
	cl, err := client.New(opts.server, client.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	feeder := game.NewFeeder(cl, scene, opts.session.UserID, logger)

	go func() {
		// Failures are logged by the feeder and shown as the scene status
		_ = feeder.Refresh(ctx)
		if opts.refresh <= 0 {
			return
		}
		t := time.NewTicker(opts.refresh)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_ = feeder.Refresh(ctx)
			}
		}
	}()

	if opts.live {
		go func() {
			events, err := cl.Subscribe(ctx)
			if err != nil {
				logger.Warn("live updates unavailable", "error", err)
				return
			}
			feeder.Follow(ctx, events)
		}()
	}
	return feeder, nil
}

// soundHook plays effects for scene events.
func soundHook(sm *audio.SoundManager) func(game.Event) {
	return func(ev game.Event) {
		switch ev.Kind {
		case game.EventEaten:
			sm.PlayEaten()
		case game.EventFed:
			sm.PlayFed()
		}
	}
}
