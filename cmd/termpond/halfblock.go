package main

import (
	"image"
	"image/color"
)

// cell is one terminal character: the upper half-block glyph takes fg, the
// lower half shows bg.
type cell struct {
	fg, bg color.RGBA
}

// sampleCells downsamples img onto a cols x rows grid of half-block cells,
// two image rows per terminal row.
func sampleCells(img *image.RGBA, cols, rows int) []cell {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cells := make([]cell, cols*rows)
	if w == 0 || h == 0 {
		return cells
	}
	for r := 0; r < rows; r++ {
		top := b.Min.Y + (2*r*h+h/2)/(2*rows)
		bottom := b.Min.Y + ((2*r+1)*h+h/2)/(2*rows)
		for c := 0; c < cols; c++ {
			x := b.Min.X + (2*c+1)*w/(2*cols)
			cells[r*cols+c] = cell{
				fg: img.RGBAAt(x, min(top, b.Max.Y-1)),
				bg: img.RGBAAt(x, min(bottom, b.Max.Y-1)),
			}
		}
	}
	return cells
}

// toScene maps a terminal cell to scene coordinates at the cell centre.
func toScene(col, row, cols, rows, w, h int) (float32, float32) {
	x := (float32(col) + 0.5) * float32(w) / float32(cols)
	y := (float32(row) + 0.5) * float32(h) / float32(rows)
	return x, y
}
