// Terminal gallery viewer: renders the fish tank or bird sky with half-block
// characters.
//
// Usage: go run ./cmd/termpond -server http://localhost:8080 -scene bird
//
// Keys: q/Esc quit, r refresh, l/d like or dislike the selected creature,
// click a creature to select it, right-click the sky to drop bait.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/sketchpond/api"
	"github.com/pthm-cable/sketchpond/client"
	"github.com/pthm-cable/sketchpond/config"
	"github.com/pthm-cable/sketchpond/game"
	"github.com/pthm-cable/sketchpond/renderer"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	serverURL := flag.String("server", "http://localhost:8080", "Gallery server URL")
	sceneKind := flag.String("scene", "fish", "Scene to show: fish or bird")
	sessionPath := flag.String("session", client.DefaultSessionPath(), "Artist session file")
	fps := flag.Int("fps", 20, "Frames per second")
	logPath := flag.String("log", "", "Write JSON logs to this file (default: discard)")
	flag.Parse()

	logger := slog.New(slog.DiscardHandler)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = slog.New(slog.NewJSONHandler(f, nil))
	}
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	kind, err := game.ParseKind(*sceneKind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	sess, err := client.LoadSession(*sessionPath)
	if err != nil {
		logger.Warn("ignoring unreadable session", "error", err)
	}

	if err := run(config.Cfg(), kind, *serverURL, sess.UserID, *fps, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// view holds what the input goroutine shares with the frame goroutine.
type view struct {
	mu       sync.Mutex
	selected int64
	note     string

	pressed tcell.ButtonMask // Buttons held, touched only by the input goroutine
}

func (v *view) set(id int64, note string) {
	v.mu.Lock()
	v.selected, v.note = id, note
	v.mu.Unlock()
}

func (v *view) get() (int64, string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected, v.note
}

func run(cfg *config.Config, kind game.Kind, serverURL string, userID int64, fps int, logger *slog.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w, h := cfg.Screen.Width, cfg.Screen.Height
	scene, err := game.NewScene(ctx, cfg, game.Options{
		Kind:   kind,
		Width:  w,
		Height: h,
		Seed:   time.Now().UnixNano(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("creating scene: %w", err)
	}
	defer scene.Close()

	cl, err := client.New(serverURL, client.Options{Logger: logger})
	if err != nil {
		return err
	}
	feeder := game.NewFeeder(cl, scene, userID, logger)
	go func() { _ = feeder.Refresh(ctx) }()
	go func() {
		events, err := cl.Subscribe(ctx)
		if err != nil {
			logger.Warn("live updates unavailable", "error", err)
			return
		}
		feeder.Follow(ctx, events)
	}()

	v := &view{}
	raster := renderer.NewRaster(w, h)
	loop := game.NewLoop(scene, raster, game.LoopOptions{
		FPS:    fps,
		Logger: logger,
		OnFrame: func(bool) {
			draw(screen, scene, raster, v)
		},
	})
	if err := loop.Start(ctx); err != nil {
		return err
	}
	defer loop.Stop()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !handle(ctx, ev, screen, scene, feeder, v) {
				return nil
			}
		}
	}
}

// handle applies one input event and reports whether to keep running.
func handle(ctx context.Context, ev tcell.Event, screen tcell.Screen, scene *game.Scene, feeder *game.Feeder, v *view) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		screen.Sync()
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch ev.Rune() {
		case 'q':
			return false
		case 'r':
			go func() { _ = feeder.Refresh(ctx) }()
		case 'l', 'd':
			id, _ := v.get()
			if id == 0 {
				return true
			}
			action := api.ActionLike
			if ev.Rune() == 'd' {
				action = api.ActionDislike
			}
			go func() {
				if _, err := feeder.Vote(ctx, id, action); err != nil {
					v.set(id, "vote failed")
				}
			}()
		}
	case *tcell.EventMouse:
		click := pressedEdge(v.pressed, ev.Buttons())
		v.pressed = ev.Buttons()
		if click == 0 {
			return true
		}
		col, row := ev.Position()
		cols, rows := screen.Size()
		rows-- // status line
		if row >= rows {
			return true
		}
		scene.Post(func(s *game.Scene) {
			w, h := s.Size()
			x, y := toScene(col, row, cols, rows, w, h)
			if click == tcell.Button2 {
				s.Feed(x, y)
				return
			}
			if rec, ok := s.HitTest(x, y); ok {
				v.set(rec.ID, "")
				return
			}
			v.set(0, "")
		})
	}
	return true
}

// draw copies the last frame to the terminal. It runs on the frame
// goroutine, which owns the scene.
func draw(screen tcell.Screen, scene *game.Scene, raster *renderer.Raster, v *view) {
	cols, rows := screen.Size()
	rows--
	for i, c := range sampleCells(raster.Image(), cols, rows) {
		style := tcell.StyleDefault.
			Foreground(tcell.NewRGBColor(int32(c.fg.R), int32(c.fg.G), int32(c.fg.B))).
			Background(tcell.NewRGBColor(int32(c.bg.R), int32(c.bg.G), int32(c.bg.B)))
		screen.SetContent(i%cols, i/cols, '▀', nil, style)
	}

	line := scene.Status().Message(scene.Kind())
	id, note := v.get()
	if rec, ok := scene.Record(id); ok {
		line = fmt.Sprintf("%s  %s  +%d -%d  [l]ike [d]islike", rec.Artist, rec.CreatedAt.Format("2006-01-02"), rec.Likes, rec.Dislikes)
	}
	if note != "" {
		line += "  " + note
	}
	if line == "" {
		line = fmt.Sprintf("%d on screen  click to select, right-click to feed, q to quit", scene.Len())
	}
	style := tcell.StyleDefault.Reverse(true)
	text := []rune(line)
	for x := 0; x < cols; x++ {
		r := ' '
		if x < len(text) {
			r = text[x]
		}
		screen.SetContent(x, rows, r, nil, style)
	}
	screen.Show()
}

// pressedEdge returns the primary or secondary button that went down between
// two mouse events, or 0. The primary button wins when both do.
func pressedEdge(prev, cur tcell.ButtonMask) tcell.ButtonMask {
	for _, b := range []tcell.ButtonMask{tcell.Button1, tcell.Button2} {
		if cur&b != 0 && prev&b == 0 {
			return b
		}
	}
	return 0
}
