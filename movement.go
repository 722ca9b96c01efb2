package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// manualMovementVector returns the focus movement requested this frame:
// A/D along x, Q/E along y, W/S along z.
func manualMovementVector() (float64, float64, float64) {
	dx, dy, dz := 0.0, 0.0, 0.0
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		dx--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		dx++
	}
	if ebiten.IsKeyPressed(ebiten.KeyQ) {
		dy--
	}
	if ebiten.IsKeyPressed(ebiten.KeyE) {
		dy++
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		dz--
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		dz++
	}
	return dx, dy, dz
}

// handleViewControls processes one-shot hotkeys and reports whether the
// focus was reset.
func (v *fieldView) handleViewControls() bool {
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		v.focus = v.homeFocus
		return true
	}
	return false
}
