package main

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestSampleCellsSplitsRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if y%2 == 0 {
				img.SetRGBA(x, y, red)
			} else {
				img.SetRGBA(x, y, blue)
			}
		}
	}

	cells := sampleCells(img, 2, 2)
	if len(cells) != 4 {
		t.Fatalf("got %d cells, want 4", len(cells))
	}
	for i, c := range cells {
		if c.fg != red || c.bg != blue {
			t.Errorf("cell %d = %+v, want red over blue", i, c)
		}
	}
}

func TestSampleCellsEmpty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if cells := sampleCells(img, 0, 5); cells != nil {
		t.Errorf("zero columns should give no cells, got %d", len(cells))
	}
	if cells := sampleCells(image.NewRGBA(image.Rect(0, 0, 0, 0)), 3, 2); len(cells) != 6 {
		t.Errorf("empty image should still fill the grid, got %d", len(cells))
	}
}

func TestToScene(t *testing.T) {
	x, y := toScene(0, 0, 10, 5, 100, 50)
	if math.Abs(float64(x-5)) > 1e-6 || math.Abs(float64(y-5)) > 1e-6 {
		t.Errorf("toScene(0,0) = (%v, %v), want (5, 5)", x, y)
	}
	x, y = toScene(9, 4, 10, 5, 100, 50)
	if math.Abs(float64(x-95)) > 1e-6 || math.Abs(float64(y-45)) > 1e-6 {
		t.Errorf("toScene(9,4) = (%v, %v), want (95, 45)", x, y)
	}
}
