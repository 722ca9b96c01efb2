package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// fieldView is the interactive viewer: a vertical slice through the array
// axis, refocused whenever the focal point moves.
type fieldView struct {
	prop    *propagator
	solve   *solver
	sampler *planeSampler
	array   *txArray
	image   *fieldImage

	focus     vec3
	homeFocus vec3
	size      float64

	lastDispatch time.Duration
	log          *slog.Logger
}

// newFieldView builds the slice grid and computes the first frame.
func newFieldView(prop *propagator, solve *solver, arr *txArray, focus vec3, cells int, size float64, m *metrics, logger *slog.Logger) (*fieldView, error) {
	v := &fieldView{
		prop:      prop,
		solve:     solve,
		sampler:   newRectSampler(m),
		array:     arr,
		image:     newFieldImage(cells, cells),
		focus:     focus,
		homeFocus: focus,
		size:      size,
		log:       logger,
	}
	step := size / float64(cells)
	err := v.sampler.SetGrid(planeGrid{
		Origin: vec3{X: -size / 2},
		U:      vec3{X: step},
		V:      vec3{Z: step},
		NU:     cells,
		NV:     cells,
	})
	if err != nil {
		return nil, err
	}
	if err := v.refresh(); err != nil {
		return nil, err
	}
	return v, nil
}

// refresh solves drives for the current focus and propagates the slice.
func (v *fieldView) refresh() error {
	start := time.Now()
	drives, err := v.solve.SingleFocus(v.array, v.focus, workShape{})
	if err != nil {
		return fmt.Errorf("solving focus %v: %w", v.focus, err)
	}
	driven, err := v.array.withDrive(drives)
	if err != nil {
		return err
	}
	if err := v.sampler.Propagate(v.prop, driven, workShape{}); err != nil {
		return err
	}
	v.image.update(v.sampler.Field())
	v.lastDispatch = time.Since(start)
	v.log.Debug("view refreshed", "focus", v.focus, "elapsed", v.lastDispatch, "sanitized", v.sampler.Sanitized())
	return nil
}

// Update moves the focus from keyboard input and recomputes on change.
func (v *fieldView) Update() error {
	dx, dy, dz := manualMovementVector()
	reset := v.handleViewControls()
	if dx == 0 && dy == 0 && dz == 0 && !reset {
		return nil
	}
	half := v.size / 2
	v.focus.X = clampFloat(v.focus.X+dx*focusStep, -half, half)
	v.focus.Y = clampFloat(v.focus.Y+dy*focusStep, -half, half)
	v.focus.Z = clampFloat(v.focus.Z+dz*focusStep, focusStep, v.size)
	return v.refresh()
}

// runViewer opens the window and blocks until it is closed.
func runViewer(v *fieldView) error {
	ebiten.SetWindowSize(v.image.width*viewerScale, v.image.height*viewerScale)
	ebiten.SetWindowTitle("beamfield")
	return ebiten.RunGame(v)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
