package main

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Draw renders the field slice, the array aperture and the focal point.
func (v *fieldView) Draw(screen *ebiten.Image) {
	screen.WritePixels(v.image.pixels)

	w, h := v.image.width, v.image.height
	toPixel := func(x, z float64) (int, int) {
		px := int((x + v.size/2) / v.size * float64(w))
		py := h - 1 - int(z/v.size*float64(h))
		return px, py
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, e := range v.array.Elements {
		minX = math.Min(minX, e.Position.X)
		maxX = math.Max(maxX, e.Position.X)
	}
	if v.array.Len() > 0 {
		x0, y0 := toPixel(minX, 0)
		x1, y1 := toPixel(maxX, 0)
		drawLine(screen, w, h, x0, y0, x1, y1, color.RGBA{0, 200, 255, 255})
	}
	fx, fy := toPixel(v.focus.X, v.focus.Z)
	drawLine(screen, w, h, fx-2, fy, fx+2, fy, color.RGBA{0, 255, 120, 255})
	drawLine(screen, w, h, fx, fy-2, fx, fy+2, color.RGBA{0, 255, 120, 255})

	if *debugFlag {
		msg := fmt.Sprintf("FPS: %.1f\nFocus: (%.3f, %.3f, %.3f) m\nDispatch: %.2f ms\nPeak |p|: %.3g",
			ebiten.ActualFPS(), v.focus.X, v.focus.Y, v.focus.Z,
			v.lastDispatch.Seconds()*1000, v.image.peak)
		ebitenutil.DebugPrint(screen, msg)
	}
}

// Layout reports the logical screen size used by Ebiten.
func (v *fieldView) Layout(_, _ int) (int, int) { return v.image.width, v.image.height }

// drawLine plots a line segment using Bresenham's integer algorithm,
// skipping points outside w by h.
func drawLine(screen *ebiten.Image, w, h, x0, y0, x1, y1 int, clr color.Color) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if x0 >= 0 && x0 < w && y0 >= 0 && y0 < h {
			screen.Set(x0, y0, clr)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}
