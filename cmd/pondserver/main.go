// Gallery server: stores drawings, serves the feed and votes, and pushes
// live events over a websocket.
//
// Usage: go run ./cmd/pondserver -addr :8080 -snapshot gallery.json
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pthm-cable/sketchpond/config"
	"github.com/pthm-cable/sketchpond/gallery"
	"github.com/pthm-cable/sketchpond/server"
	"github.com/pthm-cable/sketchpond/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	snapshot := flag.String("snapshot", "", "Snapshot file (overrides server.snapshot_path)")
	seed := flag.Int64("seed", 0, "Sampling seed (0 = time-based)")
	debug := flag.Bool("debug", false, "Log request details")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *snapshot != "" {
		cfg.Server.SnapshotPath = *snapshot
	}

	st, err := store.NewMemory(store.MemoryOptions{
		SnapshotPath: cfg.Server.SnapshotPath,
		Seed:         *seed,
		Logger:       logger,
	})
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	users, fishes := st.Counts()
	logger.Info("store ready", "snapshot", cfg.Server.SnapshotPath, "users", users, "fishes", fishes)

	hub := server.NewHub(logger)
	defer hub.Close()

	svc := gallery.New(st, gallery.Options{
		Limits:    cfg.Gallery,
		Seed:      *seed,
		Publisher: hub,
		Logger:    logger,
	})
	srv := server.New(svc, hub, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
