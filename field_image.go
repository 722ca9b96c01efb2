package main

import (
	"image/color"
	"math/cmplx"
)

// fieldImage turns a pressure field on a grid into RGBA pixels. Row 0 of
// the grid is drawn at the bottom.
type fieldImage struct {
	width, height int
	pixels        []byte
	peak          float32
}

func newFieldImage(width, height int) *fieldImage {
	return &fieldImage{
		width:  width,
		height: height,
		pixels: make([]byte, width*height*4),
	}
}

// update redraws every pixel from field, normalised to its peak magnitude.
func (f *fieldImage) update(field []complex64) {
	f.peak = 0
	for _, p := range field {
		if m := float32(cmplx.Abs(complex128(p))); m > f.peak {
			f.peak = m
		}
	}
	for i := 0; i < f.width*f.height; i++ {
		var v float32
		if i < len(field) && f.peak > 0 {
			v = float32(cmplx.Abs(complex128(field[i]))) / f.peak
		}
		x, y := i%f.width, f.height-1-i/f.width
		f.set(x, y, heatColor(v))
	}
}

func (f *fieldImage) set(x, y int, c color.RGBA) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	base := (y*f.width + x) * 4
	f.pixels[base] = c.R
	f.pixels[base+1] = c.G
	f.pixels[base+2] = c.B
	f.pixels[base+3] = 255
}

// heatColor maps v in [0, 1] to black, red, yellow, white.
func heatColor(v float32) color.RGBA {
	v = clamp32(v, 0, 1)
	r := clamp32(3*v, 0, 1)
	g := clamp32(3*v-1, 0, 1)
	b := clamp32(3*v-2, 0, 1)
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}
