package main

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/pthm-cable/sketchpond/config"
	"github.com/pthm-cable/sketchpond/game"
	"github.com/pthm-cable/sketchpond/renderer"
	"github.com/pthm-cable/sketchpond/telemetry"
)

// runHeadless renders the scene into an in-memory raster on a game.Loop,
// writing windowed telemetry until max ticks or ctx cancellation.
func runHeadless(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) error {
	output, err := telemetry.NewOutputManager(opts.outputDir)
	if err != nil {
		return err
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		logger.Warn("writing config snapshot", "error", err)
	}

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	collector := telemetry.NewCollector(cfg.Telemetry.WindowSec, cfg.Derived.DT)

	scene, err := game.NewScene(ctx, cfg, game.Options{
		Kind:       opts.kind,
		Width:      cfg.Screen.Width,
		Height:     cfg.Screen.Height,
		Seed:       opts.seed,
		Background: opts.background,
		Logger:     logger,
		Perf:       perf,
		Collector:  collector,
		OnEvent: func(ev game.Event) {
			logger.Debug("scene event", "kind", ev.Kind.String(), "id", ev.ID, "tick", ev.Tick)
			row := telemetry.EventRow{Tick: ev.Tick, Kind: ev.Kind.String(), ID: ev.ID, X: ev.X, Y: ev.Y}
			if err := output.WriteEvent(row); err != nil {
				logger.Warn("writing event", "error", err)
			}
		},
		OnStats: func(ws telemetry.WindowStats) {
			ws.LogStats(logger)
			if err := output.WriteTelemetry(ws); err != nil {
				logger.Warn("writing telemetry", "error", err)
			}
			ps := perf.Stats()
			if err := output.WritePerf(ps, ws.WindowEndTick); err != nil {
				logger.Warn("writing perf", "error", err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("creating scene: %w", err)
	}
	defer scene.Close()

	if _, err := connect(ctx, scene, opts, logger); err != nil {
		return err
	}

	raster := renderer.NewRaster(cfg.Screen.Width, cfg.Screen.Height)
	loop := game.NewLoop(scene, raster, game.LoopOptions{
		FPS:      opts.fps,
		MaxTicks: opts.maxTicks,
		Logger:   logger,
	})

	logger.Info("starting headless scene",
		"scene", string(opts.kind),
		"server", opts.server,
		"seed", opts.seed,
		"fps", opts.fps,
		"max_ticks", opts.maxTicks,
		"output_dir", output.Dir(),
	)
	if err := loop.Start(ctx); err != nil {
		return err
	}
	select {
	case <-loop.Done():
		logger.Info("max ticks reached", "tick", scene.Tick())
	case <-ctx.Done():
	}
	loop.Stop()

	perf.Stats().LogStats(logger)
	if opts.framePNG != "" {
		if err := writePNG(opts.framePNG, raster); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, r *renderer.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, r.Image()); err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	return nil
}
