// Package deform produces per-frame deformed copies of sprite bitmaps.
//
// Filters never modify their source. Each call allocates a fresh destination,
// so a frame can be handed to a renderer while the next one is being built.
package deform

import (
	"image"
	"math"
)

// DefaultWiggle is the peak tail displacement in pixels.
const DefaultWiggle = 16.0

// FishParams controls the tail wiggle.
type FishParams struct {
	Time      float64 // Wiggle clock
	Offset    float64 // Per-fish static phase offset
	Peduncle  float64 // Trailing fraction of columns that wiggle
	Heading   int     // +1 moving right (tail on the left), -1 moving left
	Amplitude float64 // Peak displacement in pixels
}

// TailDisplacement returns the column displacement at normalized tail position t.
func TailDisplacement(time, offset, t, amplitude float64) float64 {
	return math.Sin(time*6+offset+t*3) * t * amplitude
}

// Fish composites the source column by column into a same-sized bitmap.
// Columns inside the tail zone slide along the vertical axis by the tail
// displacement; the rest are copied as-is. Heading -1 mirrors the sprite so
// the tail always trails the direction of travel.
func Fish(src *image.RGBA, p FishParams) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	tailEnd := int(math.Floor(float64(w) * p.Peduncle))
	if tailEnd > w {
		tailEnd = w
	}
	wiggles := tailEnd > 1 && p.Amplitude != 0
	mirrored := p.Heading < 0

	for i := 0; i < w; i++ {
		srcCol := i
		var t float64
		inTail := false
		if mirrored {
			srcCol = w - i - 1
			if i >= w-tailEnd {
				inTail = true
				t = float64(i-(w-tailEnd)) / float64(tailEnd-1)
			}
		} else if i < tailEnd {
			inTail = true
			t = float64(tailEnd-i-1) / float64(tailEnd-1)
		}

		dy := 0
		if wiggles && inTail {
			dy = int(math.Round(TailDisplacement(p.Time, p.Offset, t, p.Amplitude)))
		}
		copyColumn(dst, i, src, b.Min.X+srcCol, dy)
	}
	return dst
}

// copyColumn copies one source column into dst column x, shifted by dy rows.
func copyColumn(dst *image.RGBA, x int, src *image.RGBA, srcX, dy int) {
	sb := src.Bounds()
	h := dst.Bounds().Dy()
	for y := 0; y < sb.Dy(); y++ {
		ty := y + dy
		if ty < 0 || ty >= h {
			continue
		}
		so := src.PixOffset(srcX, sb.Min.Y+y)
		do := dst.PixOffset(x, ty)
		copy(dst.Pix[do:do+4], src.Pix[so:so+4])
	}
}

// FlapAmount converts a flap phase into the signed flap strength.
func FlapAmount(phase float64) float64 {
	return math.Sin(phase) * 0.25
}

// SliceOffset returns the vertical offset of a slice at normalized height n in [-1, 1].
func SliceOffset(n, height, flap float64) float64 {
	return (1 - math.Cos(n*math.Pi/2)) * height * flap * 0.6
}

// BirdHeight returns the destination height for a source of height h.
func BirdHeight(h int) int {
	return int(float64(h) * 1.5)
}

// Bird draws the source in horizontal slices into a bitmap 1.5x as tall, each
// slice shifted vertically by its flap offset. The body sits a quarter of the
// source height below the top edge to leave room for the upstroke.
func Bird(src *image.RGBA, phase float64, slices int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dh := BirdHeight(h)
	dst := image.NewRGBA(image.Rect(0, 0, w, dh))
	if w == 0 || h == 0 {
		return dst
	}
	if slices < 1 {
		slices = 1
	}

	flap := FlapAmount(phase)
	fh := float64(h)
	sliceHeight := fh / float64(slices)
	lift := fh * 0.25

	for i := 0; i < slices; i++ {
		y := float64(i) * sliceHeight
		row0 := int(y)
		row1 := int(float64(i+1) * sliceHeight)
		if i == slices-1 {
			row1 = h
		}
		if row1 <= row0 {
			continue
		}

		n := (y/fh)*2 - 1
		shift := int(math.Round(SliceOffset(n, fh, flap) + lift))
		for r := row0; r < row1 && r < h; r++ {
			ty := r + shift
			if ty < 0 || ty >= dh {
				continue
			}
			so := src.PixOffset(b.Min.X, b.Min.Y+r)
			do := dst.PixOffset(0, ty)
			copy(dst.Pix[do:do+w*4], src.Pix[so:so+w*4])
		}
	}
	return dst
}
