// Deform preview tool - tune the tail wiggle and wing flap with sliders.
//
// Usage: go run ./cmd/deformpreview [-drawing fish.png]
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	_ "golang.org/x/image/webp"

	"github.com/pthm-cable/sketchpond/config"
	"github.com/pthm-cable/sketchpond/deform"
	"github.com/pthm-cable/sketchpond/sprite"
	"github.com/pthm-cable/sketchpond/ui"
)

const (
	windowWidth  = 1000
	windowHeight = 640
	previewWidth = 520
	panelWidth   = windowWidth - previewWidth - 30
)

// DeformParams holds the tunable filter parameters.
type DeformParams struct {
	Peduncle       float32
	WiggleStrength float32
	TimeScale      float32
	FlapSpeed      float32
	Slices         int
}

func defaults(cfg *config.Config) DeformParams {
	return DeformParams{
		Peduncle:       float32(cfg.Fish.MaxPeduncle),
		WiggleStrength: float32(cfg.Fish.WiggleStrength),
		TimeScale:      float32(cfg.Fish.TimeScale),
		FlapSpeed:      float32(cfg.Bird.FlapSpeed),
		Slices:         cfg.Bird.Slices,
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	drawing := flag.String("drawing", "", "Drawing to preview (default: a generated sample)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	src, err := loadSprite(*drawing, cfg)
	if err != nil {
		slog.Error("failed to load drawing", "error", err)
		os.Exit(1)
	}

	rl.InitWindow(windowWidth, windowHeight, "Deform Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	canvas := ui.NewCanvas()
	defer canvas.Unload()

	params := defaults(cfg)
	var clock, phase float64
	animating := true
	heading := 1

	for !rl.WindowShouldClose() {
		if animating {
			clock += float64(rl.GetFrameTime())
			phase += float64(params.FlapSpeed)
		}

		rl.BeginDrawing()
		canvas.Clear(rl.RayWhite)

		// Fish preview
		fishY := float32(40)
		rl.DrawText("Tail wiggle", 15, 12, 18, rl.DarkGray)
		rl.DrawRectangle(10, int32(fishY)-5, previewWidth, int32(src.Bounds().Dy())+10, rl.NewColor(165, 216, 255, 255))
		fish := deform.Fish(src, deform.FishParams{
			Time:      clock * float64(params.TimeScale),
			Peduncle:  float64(params.Peduncle),
			Heading:   heading,
			Amplitude: float64(params.WiggleStrength),
		})
		canvas.DrawImage(1, fish, float32(10+(previewWidth-fish.Bounds().Dx())/2), fishY, false)

		// Bird preview
		birdY := fishY + float32(src.Bounds().Dy()) + 50
		rl.DrawText("Wing flap", 15, int32(birdY)-28, 18, rl.DarkGray)
		bird := deform.Bird(src, phase, params.Slices)
		rl.DrawRectangle(10, int32(birdY)-5, previewWidth, int32(bird.Bounds().Dy())+10, rl.NewColor(224, 242, 254, 255))
		canvas.DrawImage(2, bird, float32(10+(previewWidth-bird.Bounds().Dx())/2), birdY, false)
		canvas.Sweep()

		statsY := int32(birdY) + int32(bird.Bounds().Dy()) + 20
		rl.DrawText(fmt.Sprintf("Clock: %.1f  Flap: %+.3f", clock, deform.FlapAmount(phase)), 15, statsY, 16, rl.DarkGray)

		// Control panel
		panelX := float32(previewWidth + 20)
		panelY := float32(10)
		rl.DrawText("Deform Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		params.Peduncle = slider(panelX, &panelY, "Peduncle (tail fraction)", "%.2f", params.Peduncle, 0.1, 1)
		params.WiggleStrength = slider(panelX, &panelY, "Wiggle strength (px)", "%.1f", params.WiggleStrength, 0, 40)
		params.TimeScale = slider(panelX, &panelY, "Time scale (wiggle clock)", "%.2f", params.TimeScale, 0.1, 6)

		rl.DrawLine(int32(panelX), int32(panelY), int32(panelX)+int32(panelWidth)-20, int32(panelY), rl.LightGray)
		panelY += 15

		params.FlapSpeed = slider(panelX, &panelY, "Flap speed (phase per frame)", "%.3f", params.FlapSpeed, 0.01, 1)
		params.Slices = int(slider(panelX, &panelY, "Slices", "%.0f", float32(params.Slices), 1, 600))
		panelY += 10

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(animating, "Pause", "Animate")) {
			animating = !animating
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, toggleText(heading > 0, "Face left", "Face right")) {
			heading = -heading
		}
		panelY += 40
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaults(cfg)
			clock, phase = 0, 0
		}
		panelY += 50

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		for _, line := range yamlLines(params) {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			text := ""
			for _, line := range yamlLines(params) {
				text += line + "\n"
			}
			rl.SetClipboardText(text)
		}

		rl.EndDrawing()
	}
}

// slider draws a labelled slider bar and advances y past it.
func slider(x float32, y *float32, label, format string, value, lo, hi float32) float32 {
	rl.DrawText(label, int32(x), int32(*y), 14, rl.Gray)
	*y += 18
	v := gui.SliderBar(
		rl.Rectangle{X: x, Y: *y, Width: float32(panelWidth - 80), Height: 20},
		fmt.Sprintf(format, lo), fmt.Sprintf(format, hi),
		value, lo, hi,
	)
	rl.DrawText(fmt.Sprintf(format, v), int32(x+float32(panelWidth-70)), int32(*y+2), 16, rl.DarkGray)
	*y += 35
	return v
}

func yamlLines(p DeformParams) []string {
	return []string{
		"fish:",
		fmt.Sprintf("  max_peduncle: %.2f", p.Peduncle),
		fmt.Sprintf("  wiggle_strength: %.1f", p.WiggleStrength),
		fmt.Sprintf("  time_scale: %.2f", p.TimeScale),
		"bird:",
		fmt.Sprintf("  flap_speed: %.3f", p.FlapSpeed),
		fmt.Sprintf("  slices: %d", p.Slices),
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// loadSprite builds the preview sprite the same way a scene does, from a
// drawing file or from a generated sample shape.
func loadSprite(path string, cfg *config.Config) (*image.RGBA, error) {
	var img image.Image
	if path == "" {
		img = sample()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if img, _, err = image.Decode(f); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	data, err := sprite.EncodeDataURL(sprite.CropToContent(img, cfg.Sprite.CropPadding))
	if err != nil {
		return nil, err
	}
	spr, err := sprite.BuildString(data, cfg.Sprite.CanonicalWidth)
	if err != nil {
		return nil, err
	}
	return spr.Image(), nil
}

// sample draws a striped ellipse with a triangular tail on the left.
func sample() image.Image {
	const w, h = 200, 100
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	body := color.RGBA{R: 255, G: 140, B: 60, A: 255}
	stripe := color.RGBA{R: 40, G: 40, B: 60, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) - 120) / 75
			dy := (float64(y) - 50) / 35
			inBody := dx*dx+dy*dy <= 1
			inTail := x < 50 && float64(abs(y-50)) <= float64(50-x)*0.8
			switch {
			case inBody && (x/12)%3 == 0:
				img.SetRGBA(x, y, stripe)
			case inBody || inTail:
				img.SetRGBA(x, y, body)
			}
		}
	}
	return img
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
