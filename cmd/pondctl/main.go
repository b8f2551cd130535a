// Command-line client for the gallery server.
//
// Usage:
//
//	pondctl [-server URL] submit -artist NAME drawing.png
//	pondctl list [-csv]
//	pondctl vote -fish ID [-dislike]
//	pondctl rank [-csv]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/sketchpond/api"
	"github.com/pthm-cable/sketchpond/client"
	"github.com/pthm-cable/sketchpond/config"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	serverURL := flag.String("server", "http://localhost:8080", "Gallery server URL")
	sessionPath := flag.String("session", client.DefaultSessionPath(), "Artist session file")
	timeout := flag.Duration("timeout", 15*time.Second, "Request timeout")
	flag.Usage = usage
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	cl, err := client.New(*serverURL, client.Options{Timeout: *timeout, Logger: logger})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &app{
		client:      cl,
		cfg:         config.Cfg(),
		sessionPath: *sessionPath,
		out:         os.Stdout,
	}
	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: pondctl [flags] <command> [args]

Commands:
  submit  upload a drawing (png, jpeg, webp, bmp or svg)
  list    show the gallery feed
  vote    like or dislike a drawing
  rank    show the most liked drawings

Flags:
`)
	flag.PrintDefaults()
}

// app runs one subcommand.
type app struct {
	client      *client.Client
	cfg         *config.Config
	sessionPath string
	out         io.Writer
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "submit":
		return a.submit(ctx, args)
	case "list":
		return a.list(ctx, args)
	case "vote":
		return a.vote(ctx, args)
	case "rank":
		return a.rank(ctx, args)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) submit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	artist := fs.String("artist", "", "Artist name (default: the saved session name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("submit: expected one drawing file")
	}

	sess, err := client.LoadSession(a.sessionPath)
	if err != nil {
		return err
	}
	if *artist != "" {
		sess.ArtistName = *artist
	}
	if sess.ArtistName == "" {
		return fmt.Errorf("submit: -artist is required for a new session")
	}

	data, err := readDrawing(fs.Arg(0), a.cfg.Sprite.CropPadding)
	if err != nil {
		return err
	}
	if len(data) > a.cfg.Sprite.MaxPayloadBytes {
		return fmt.Errorf("submit: encoded drawing is %d bytes, limit %d", len(data), a.cfg.Sprite.MaxPayloadBytes)
	}

	resp, err := a.client.Submit(ctx, sess.Request(data))
	if err != nil {
		return err
	}
	sess.Remember(resp)
	if err := sess.Save(a.sessionPath); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "submitted fish %d as user %d\n", resp.FishID, resp.UserID)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	asCSV := fs.Bool("csv", false, "Write CSV instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := client.LoadSession(a.sessionPath)
	if err != nil {
		return err
	}
	fishes, err := a.client.Fishes(ctx, sess.UserID)
	if err != nil {
		return err
	}
	return writeRows(a.out, toRows(fishes), *asCSV)
}

func (a *app) vote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vote", flag.ContinueOnError)
	fishID := fs.Int64("fish", 0, "Drawing id")
	dislike := fs.Bool("dislike", false, "Dislike instead of like")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fishID == 0 {
		return fmt.Errorf("vote: -fish is required")
	}
	action := api.ActionLike
	if *dislike {
		action = api.ActionDislike
	}
	resp, err := a.client.Vote(ctx, *fishID, action)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "fish %d: %d likes, %d dislikes\n", *fishID, resp.Likes, resp.Dislikes)
	return nil
}

func (a *app) rank(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	asCSV := fs.Bool("csv", false, "Write CSV instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fishes, err := a.client.Rank(ctx)
	if err != nil {
		return err
	}
	return writeRows(a.out, toRows(fishes), *asCSV)
}
